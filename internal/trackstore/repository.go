package trackstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
	"github.com/couchcryptid/storm-atcf-tracker/internal/filelock"
)

// Result describes one Update call.
type Result struct {
	Path    string
	Outcome Outcome
	Records int // records in the file after the update
	Corrupt int // lines skipped while loading
}

// Repository maps storms to track files under a directory and serializes
// updates to each file.
type Repository struct {
	dir           string
	defaultSuffix string
	lockTimeout   time.Duration
	logger        *slog.Logger
}

// NewRepository creates a Repository rooted at dir.
func NewRepository(dir, defaultSuffix string, lockTimeout time.Duration, logger *slog.Logger) *Repository {
	return &Repository{
		dir:           dir,
		defaultSuffix: defaultSuffix,
		lockTimeout:   lockTimeout,
		logger:        logger,
	}
}

// Path returns the track file of storm for a source suffix.
func (r *Repository) Path(storm domain.StormID, suffix string) string {
	if suffix == "" {
		suffix = r.defaultSuffix
	}
	return filepath.Join(r.dir, FileName(storm, suffix))
}

// Update merges rec into its storm's track file under an exclusive lock.
// A duplicate leaves the file untouched.
func (r *Repository) Update(ctx context.Context, rec domain.ForecastRecord, suffix string) (Result, error) {
	path := r.Path(rec.Storm, suffix)
	res := Result{Path: path}

	err := filelock.With(ctx, path, r.lockTimeout, func() error {
		store, err := Load(path, r.logger)
		if err != nil {
			return err
		}
		res.Corrupt = store.Corrupt

		res.Outcome = store.Merge(rec)
		res.Records = len(store.Records)
		if res.Outcome == Duplicate {
			r.logger.Info("forecast already in file",
				"path", path, "technique", rec.Technique, "dtg", rec.DTG)
			return nil
		}
		return store.SortAndPersist(path)
	})
	if err != nil {
		return res, fmt.Errorf("update %s: %w", path, wrapPersist(err))
	}

	if res.Outcome == Appended {
		r.logger.Info("track file updated",
			"path", path, "technique", rec.Technique, "dtg", rec.DTG,
			"points", len(rec.Track), "records", res.Records)
	}
	return res, nil
}

// Read loads a storm's track file without taking the lock. Persist replaces
// files by rename, so a reader always sees a complete file. An empty
// technique reads every record.
func (r *Repository) Read(storm domain.StormID, suffix, technique string) (*Store, error) {
	return LoadTechnique(r.Path(storm, suffix), technique, r.logger)
}

// wrapPersist classifies lock failures as persist failures.
func wrapPersist(err error) error {
	if errors.Is(err, domain.ErrPersist) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrPersist, err)
}
