package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres archives bulletins in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and creates the archive table if needed.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = 4
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS rsfc_messages (
	id          BIGSERIAL PRIMARY KEY,
	atcfid      TEXT NOT NULL,
	rsfcid      TEXT,
	technique   TEXT NOT NULL,
	msg_hdr     TEXT NOT NULL DEFAULT '',
	msg_type    TEXT NOT NULL,
	msg_advnr   INTEGER,
	msg_time    TIMESTAMPTZ NOT NULL,
	lat         DOUBLE PRECISION NOT NULL,
	lon         DOUBLE PRECISION NOT NULL,
	vmax        INTEGER,
	mslp        INTEGER,
	movement    TEXT,
	message     TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (atcfid, technique, msg_hdr, msg_time)
);

CREATE INDEX IF NOT EXISTS idx_rsfc_messages_atcfid ON rsfc_messages(atcfid);
CREATE INDEX IF NOT EXISTS idx_rsfc_messages_time ON rsfc_messages(msg_time);
`

// Save inserts r unless the same bulletin is already archived.
func (p *Postgres) Save(ctx context.Context, r Record) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO rsfc_messages
			(atcfid, rsfcid, technique, msg_hdr, msg_type, msg_advnr, msg_time, lat, lon, vmax, mslp, movement, message)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), NULLIF($13, ''))
		ON CONFLICT (atcfid, technique, msg_hdr, msg_time) DO NOTHING`,
		r.ATCFID, r.AgencyID, r.Technique, r.Header, r.Type, r.Advisory,
		r.MsgTime.UTC(), r.Lat, r.Lon, r.MaxWind, r.Pressure, r.Movement, r.Message,
	)
	if err != nil {
		return fmt.Errorf("archive %s: %w", r.ATCFID, err)
	}
	return nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
