// Package pipeline runs the batch loop that turns decoded bulletins into
// track file updates: extract observations, resolve and merge each one, then
// notify downstream consumers of the files that changed.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
	"github.com/couchcryptid/storm-atcf-tracker/internal/observability"
)

// BatchExtractor reads up to batchSize raw events from the source. A finite
// source returns io.EOF once it is exhausted.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Processor merges one raw observation into its storm's track file.
type Processor interface {
	Process(ctx context.Context, raw domain.RawEvent) (domain.TrackUpdate, error)
}

// BatchLoader announces the track updates of a batch.
type BatchLoader interface {
	LoadBatch(ctx context.Context, updates []domain.TrackUpdate) error
}

// Stats summarizes what a pipeline has done so far.
type Stats struct {
	Consumed   int64
	Appended   int64
	Duplicates int64
	Failed     int64
	// NotifyFailed counts appended updates whose notification batch failed.
	NotifyFailed int64
}

// Pipeline orchestrates the extract-process-notify loop.
type Pipeline struct {
	extractor BatchExtractor
	processor Processor
	loader    BatchLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	batchSize int

	consumed   atomic.Int64
	appended   atomic.Int64
	duplicates   atomic.Int64
	failed       atomic.Int64
	notifyFailed atomic.Int64
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, p Processor, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor: e,
		processor: p,
		loader:    l,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// CheckReadiness returns nil if the pipeline has processed at least one message,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any messages yet")
	}
	return nil
}

// Stats returns the running totals.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Consumed:     p.consumed.Load(),
		Appended:     p.appended.Load(),
		Duplicates:   p.duplicates.Load(),
		Failed:       p.failed.Load(),
		NotifyFailed: p.notifyFailed.Load(),
	}
}

// Run executes the batch loop until the context is cancelled or a finite
// source is exhausted.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			s := p.Stats()
			p.logger.Info("pipeline stopped",
				"consumed", s.Consumed, "appended", s.Appended,
				"duplicates", s.Duplicates, "failed", s.Failed,
				"notify_failed", s.NotifyFailed)
			return nil
		}
	}
}

// processBatch runs one extract-process-notify cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	exhausted := errors.Is(err, io.EOF)
	if err != nil && !exhausted {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return !exhausted && ctx.Err() == nil
	}

	p.consumed.Add(int64(len(rawBatch)))
	p.metrics.ObservationsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	if !p.processAndLoad(ctx, rawBatch, backoff, maxBackoff) {
		return false
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return !exhausted
}

// processAndLoad merges each observation in the batch, announces the appended
// records, and commits offsets. A failed observation is logged, counted and
// committed so it is not redelivered. Returns false if the pipeline should stop.
func (p *Pipeline) processAndLoad(ctx context.Context, rawBatch []domain.RawEvent, backoff *time.Duration, maxBackoff time.Duration) bool {
	updates := make([]domain.TrackUpdate, 0, len(rawBatch))
	appendedRaws := make([]domain.RawEvent, 0, len(rawBatch))

	for _, raw := range rawBatch {
		update, err := p.processor.Process(ctx, raw)
		if err != nil {
			kind := errorKind(err)
			p.logger.Warn("observation skipped",
				"kind", kind,
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.failed.Add(1)
			p.metrics.ProcessErrors.WithLabelValues(kind).Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		if !update.Appended {
			p.duplicates.Add(1)
			p.commitOffset(ctx, raw)
			continue
		}
		p.appended.Add(1)
		updates = append(updates, update)
		appendedRaws = append(appendedRaws, raw)
	}

	if len(updates) == 0 {
		return true
	}

	// The track files are already written; a failed notification is retried
	// by redelivery, which the duplicate check turns into a no-op merge.
	if err := p.loader.LoadBatch(ctx, updates); err != nil {
		p.logger.Error("notify batch failed", "error", err, "batch_size", len(updates))
		p.metrics.NotificationErrors.Inc()
		p.notifyFailed.Add(int64(len(updates)))
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}
	p.metrics.NotificationsSent.Add(float64(len(updates)))

	for _, raw := range appendedRaws {
		p.commitOffset(ctx, raw)
	}
	return true
}

// errorKind maps a processing error onto its failure class.
func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrParse):
		return "parse"
	case errors.Is(err, domain.ErrResolution):
		return "resolution"
	case errors.Is(err, domain.ErrPersist), errors.Is(err, domain.ErrStoreCorruption):
		return "persist"
	default:
		return "other"
	}
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
