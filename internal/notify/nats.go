package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
)

const flushTimeout = 5 * time.Second

// NATS publishes track updates as JSON on a subject. The storm's ATCF ID is
// appended as a final token, e.g. "atcf.track.updated.WP012025", so
// subscribers can filter per storm with wildcards.
type NATS struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATS connects to url.
func NewNATS(url, subject string, logger *slog.Logger) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name("storm-atcf-tracker"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &NATS{conn: conn, subject: subject, logger: logger}, nil
}

// LoadBatch publishes every update and waits for the server to acknowledge
// the batch.
func (n *NATS) LoadBatch(ctx context.Context, updates []domain.TrackUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	for _, u := range updates {
		data, err := json.Marshal(u)
		if err != nil {
			return fmt.Errorf("serialize track update: %w", err)
		}
		if err := n.conn.Publish(Subject(n.subject, u.StormID), data); err != nil {
			return fmt.Errorf("publish %s: %w", u.StormID, err)
		}
	}
	flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	if err := n.conn.FlushWithContext(flushCtx); err != nil {
		return fmt.Errorf("flush nats: %w", err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (n *NATS) Close() error {
	return n.conn.Drain()
}

// Subject returns the per-storm subject below base.
func Subject(base, stormID string) string {
	if stormID == "" {
		return base
	}
	return base + "." + stormID
}
