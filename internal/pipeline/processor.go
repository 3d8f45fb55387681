package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/storm-atcf-tracker/internal/archive"
	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
	"github.com/couchcryptid/storm-atcf-tracker/internal/identity"
	"github.com/couchcryptid/storm-atcf-tracker/internal/observability"
	"github.com/couchcryptid/storm-atcf-tracker/internal/trackstore"
)

// StormResolver ties an observation to an ATCF storm.
type StormResolver interface {
	Resolve(ctx context.Context, req identity.Request) (domain.StormID, string, error)
}

// TrackUpdater merges a record into its storm's track file.
type TrackUpdater interface {
	Update(ctx context.Context, rec domain.ForecastRecord, suffix string) (trackstore.Result, error)
}

// TrackProcessor implements Processor: parse, resolve, build, merge, archive.
type TrackProcessor struct {
	resolver StormResolver
	tracks   TrackUpdater
	archive  archive.Archive
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewProcessor creates a TrackProcessor. A nil archive disables archiving.
func NewProcessor(resolver StormResolver, tracks TrackUpdater, arch archive.Archive, metrics *observability.Metrics, logger *slog.Logger) *TrackProcessor {
	if arch == nil {
		arch = archive.Nop{}
	}
	return &TrackProcessor{
		resolver: resolver,
		tracks:   tracks,
		archive:  arch,
		metrics:  metrics,
		logger:   logger,
	}
}

func (t *TrackProcessor) Process(ctx context.Context, raw domain.RawEvent) (domain.TrackUpdate, error) {
	obs, err := domain.ParseObservation(raw.Value)
	if err != nil {
		return domain.TrackUpdate{}, err
	}
	ref, err := obs.ReferenceTime()
	if err != nil {
		return domain.TrackUpdate{}, err
	}

	storm, source, err := t.resolver.Resolve(ctx, identity.RequestFor(obs, ref))
	if err != nil {
		t.logger.Warn("no ATCF match",
			"agency", obs.Agency, "technique", obs.Technique, "dtg", domain.FormatDTG(ref), "error", err)
		return domain.TrackUpdate{}, err
	}
	t.metrics.StormsResolved.WithLabelValues(source).Inc()

	rec, dropped, err := domain.BuildRecord(obs, storm)
	if err != nil {
		return domain.TrackUpdate{}, err
	}
	if dropped > 0 {
		t.logger.Warn("forecast positions dropped",
			"atcf_id", storm.String(), "technique", rec.Technique, "dtg", rec.DTG, "dropped", dropped)
		t.metrics.PositionsDropped.Add(float64(dropped))
	}

	res, err := t.tracks.Update(ctx, rec, obs.Source)
	if res.Corrupt > 0 {
		t.metrics.CorruptLines.Add(float64(res.Corrupt))
	}
	if err != nil {
		t.logger.Error("track file not updated", "atcf_id", storm.String(), "path", res.Path, "error", err)
		return domain.TrackUpdate{}, fmt.Errorf("merge %s: %w", storm, err)
	}
	t.metrics.RecordsMerged.WithLabelValues(res.Outcome.String()).Inc()

	appended := res.Outcome == trackstore.Appended
	if appended {
		if err := t.archive.Save(ctx, archive.RecordFor(obs, rec)); err != nil {
			t.logger.Warn("bulletin not archived", "atcf_id", storm.String(), "error", err)
			t.metrics.ArchiveErrors.Inc()
		}
	}

	return domain.TrackUpdate{
		StormID:     storm.String(),
		Agency:      obs.Agency,
		Technique:   rec.Technique,
		DTG:         rec.DTG,
		Path:        res.Path,
		Records:     res.Records,
		Appended:    appended,
		ProcessedAt: domain.Now(),
	}, nil
}
