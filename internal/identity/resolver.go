// Package identity ties agency bulletins to global ATCF storm identifiers.
//
// Resolution tries, in order: an ATCF ID carried by the observation itself,
// the agency's cross-reference table, and finally an external position/time
// matcher backed by the active-storm registry. Matches from the registry are
// written back to the table unless they are invests.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
)

// Query is a storm fix to match against the active-storm registry.
type Query struct {
	Lat        float64
	Lon        float64
	JulianDate float64
	Time       time.Time
}

// Matcher finds the active storm nearest a position at a time.
type Matcher interface {
	MatchByPositionTime(ctx context.Context, q Query) (domain.StormID, bool, error)
}

// NoMatcher never matches. It stands in when no registry is configured.
type NoMatcher struct{}

func (NoMatcher) MatchByPositionTime(context.Context, Query) (domain.StormID, bool, error) {
	return domain.StormID{}, false, nil
}

// Resolution sources.
const (
	SourceObservation = "observation"
	SourceXref        = "xref"
	SourceRegistry    = "registry"
)

// Request carries the identity clues of one bulletin.
type Request struct {
	Agency     string
	AgencyID   *int
	AgencyYear int
	StormID    string
	Lat, Lon   float64
	Time       time.Time
}

// RequestFor builds a Request from an observation and its reference time.
// The agency year defaults to the reference year.
func RequestFor(obs domain.Observation, ref time.Time) Request {
	year := obs.AgencyYear
	if year == 0 {
		year = ref.Year()
	}
	return Request{
		Agency:     obs.Agency,
		AgencyID:   obs.AgencyID,
		AgencyYear: year,
		StormID:    obs.StormID,
		Lat:        obs.Lat,
		Lon:        obs.Lon,
		Time:       ref,
	}
}

// Resolver implements storm identity resolution.
type Resolver struct {
	xrefDir         string
	lockTimeout     time.Duration
	matcher         Matcher
	investThreshold int
	logger          *slog.Logger
}

// NewResolver creates a Resolver. A nil matcher disables the registry fallback.
func NewResolver(xrefDir string, lockTimeout time.Duration, matcher Matcher, investThreshold int, logger *slog.Logger) *Resolver {
	if matcher == nil {
		matcher = NoMatcher{}
	}
	if investThreshold <= 0 {
		investThreshold = domain.DefaultInvestThreshold
	}
	return &Resolver{
		xrefDir:         xrefDir,
		lockTimeout:     lockTimeout,
		matcher:         matcher,
		investThreshold: investThreshold,
		logger:          logger,
	}
}

// Resolve returns the ATCF ID of the storm a bulletin describes and where it
// came from. Failure wraps domain.ErrResolution; an ID is never invented.
func (r *Resolver) Resolve(ctx context.Context, req Request) (domain.StormID, string, error) {
	if req.StormID != "" {
		id, err := domain.ParseStormID(req.StormID)
		if err != nil {
			return domain.StormID{}, "", fmt.Errorf("%w: %v", domain.ErrResolution, err)
		}
		return id, SourceObservation, nil
	}

	var table *XrefTable
	if req.AgencyID != nil && req.Agency != "" {
		table = NewXrefTable(r.xrefDir, req.Agency, r.lockTimeout)
		id, found, err := table.Lookup(*req.AgencyID, req.AgencyYear)
		if err != nil {
			r.logger.Warn("xref lookup failed", "path", table.Path(), "error", err)
		} else if found {
			return id, SourceXref, nil
		}
	}

	q := Query{Lat: req.Lat, Lon: req.Lon, JulianDate: domain.JulianFromTime(req.Time), Time: req.Time}
	id, found, err := r.matcher.MatchByPositionTime(ctx, q)
	if err != nil {
		return domain.StormID{}, "", fmt.Errorf("%w: registry: %v", domain.ErrResolution, err)
	}
	if !found {
		return domain.StormID{}, "", fmt.Errorf("%w: %s fix %.1f/%.1f at %s",
			domain.ErrResolution, req.Agency, req.Lat, req.Lon, domain.FormatDTG(req.Time))
	}

	if table != nil && !id.IsInvest(r.investThreshold) {
		if err := table.Append(ctx, *req.AgencyID, id); err != nil {
			r.logger.Warn("xref append failed", "path", table.Path(), "atcf_id", id.String(), "error", err)
		} else {
			r.logger.Info("xref entry recorded", "path", table.Path(), "agency_id", *req.AgencyID, "atcf_id", id.String())
		}
	}
	return id, SourceRegistry, nil
}
