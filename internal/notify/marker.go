// Package notify announces updated track files to downstream consumers.
package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
	"github.com/couchcryptid/storm-atcf-tracker/internal/filelock"
)

// MarkerPath returns the completion marker of an agency under dir.
func MarkerPath(dir, agency string) string {
	return filepath.Join(dir, strings.ToLower(agency)+"_updated.dat")
}

// FileMarker appends the ATCF ID of every appended record to the agency's
// "<agency>_updated.dat" marker so downstream jobs know which storms changed.
type FileMarker struct {
	dir         string
	lockTimeout time.Duration
}

// NewFileMarker creates a FileMarker writing under dir.
func NewFileMarker(dir string, lockTimeout time.Duration) *FileMarker {
	return &FileMarker{dir: dir, lockTimeout: lockTimeout}
}

// LoadBatch records every appended update. Duplicates are not marked.
func (m *FileMarker) LoadBatch(ctx context.Context, updates []domain.TrackUpdate) error {
	byAgency := make(map[string][]string)
	var order []string
	for _, u := range updates {
		if !u.Appended || u.Agency == "" {
			continue
		}
		if _, seen := byAgency[u.Agency]; !seen {
			order = append(order, u.Agency)
		}
		byAgency[u.Agency] = append(byAgency[u.Agency], u.StormID)
	}

	for _, agency := range order {
		if err := m.append(ctx, MarkerPath(m.dir, agency), byAgency[agency]); err != nil {
			return err
		}
	}
	return nil
}

func (m *FileMarker) append(ctx context.Context, path string, ids []string) error {
	return filelock.With(ctx, path, m.lockTimeout, func() error {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open marker %s: %w", path, err)
		}
		if _, err := f.WriteString(strings.Join(ids, "\n") + "\n"); err != nil {
			f.Close()
			return fmt.Errorf("write marker %s: %w", path, err)
		}
		return f.Close()
	})
}

func (m *FileMarker) Close() error { return nil }
