package notify

import (
	"context"
	"errors"

	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
)

// Loader is a single notification sink.
type Loader interface {
	LoadBatch(ctx context.Context, updates []domain.TrackUpdate) error
	Close() error
}

// Multi fans a batch out to every sink. All sinks are attempted; their
// errors are joined.
type Multi []Loader

func (m Multi) LoadBatch(ctx context.Context, updates []domain.TrackUpdate) error {
	var errs []error
	for _, l := range m {
		if err := l.LoadBatch(ctx, updates); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, l := range m {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
