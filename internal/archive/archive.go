// Package archive stores the raw bulletin behind every merged forecast record.
package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
)

// Record is one archived bulletin.
type Record struct {
	ATCFID    string
	AgencyID  string // agency-local storm number, empty when unknown
	Header    string
	Type      string
	Advisory  int
	MsgTime   time.Time
	Lat       float64
	Lon       float64
	MaxWind   *int
	Pressure  *int
	Movement  string
	Message   string
	Technique string
}

// Archive persists bulletin records. Saving a record twice is a no-op.
type Archive interface {
	Save(ctx context.Context, r Record) error
	Close() error
}

// RecordFor builds the archive entry of an observation merged as rec.
func RecordFor(obs domain.Observation, rec domain.ForecastRecord) Record {
	r := Record{
		ATCFID:    rec.Storm.String(),
		Type:      "FORECAST",
		Lat:       obs.Lat,
		Lon:       obs.Lon,
		Technique: rec.Technique,
	}
	if t, err := domain.ParseDTG(rec.DTG); err == nil {
		r.MsgTime = t
	}
	if p, ok := rec.Point(0); ok {
		r.MaxWind = p.MaxWind
		r.Pressure = p.Pressure
	}
	if obs.AgencyID != nil {
		r.AgencyID = fmt.Sprintf("%04d", *obs.AgencyID)
	}
	if m := obs.Message; m != nil {
		r.Header = strings.TrimSpace(m.Header)
		if m.Type != "" {
			r.Type = strings.ToUpper(m.Type)
		}
		r.Advisory = m.Advisory
		r.Movement = strings.TrimSpace(m.Movement)
		r.Message = m.Text
	}
	return r
}

// Nop discards records. It stands in when no archive is configured.
type Nop struct{}

func (Nop) Save(context.Context, Record) error { return nil }
func (Nop) Close() error                      { return nil }

// Open selects a backend from dsn: a postgres:// or postgresql:// URL opens
// PostgreSQL, anything else is a SQLite file path, and "" disables archiving.
func Open(ctx context.Context, dsn string) (Archive, error) {
	switch {
	case dsn == "":
		return Nop{}, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn)
	default:
		return OpenSQLite(strings.TrimPrefix(dsn, "sqlite://"))
	}
}
