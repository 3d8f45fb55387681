package identity

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
	"github.com/couchcryptid/storm-atcf-tracker/internal/filelock"
)

// XrefPath returns the cross-reference table of an agency under dir.
func XrefPath(dir, agency string) string {
	return filepath.Join(dir, strings.ToLower(agency)+"_atcf.xref")
}

// XrefTable is an append-only mapping from an agency's local storm number to
// an ATCF ID. Each line reads "NNNN ATCFID".
type XrefTable struct {
	path        string
	lockTimeout time.Duration
}

// NewXrefTable opens the table of agency under dir. The file is created on
// first append.
func NewXrefTable(dir, agency string, lockTimeout time.Duration) *XrefTable {
	return &XrefTable{path: XrefPath(dir, agency), lockTimeout: lockTimeout}
}

// Path returns the table file.
func (t *XrefTable) Path() string { return t.path }

// Lookup finds the ATCF ID recorded for agencyID in year. A missing file is
// an empty table.
func (t *XrefTable) Lookup(agencyID, year int) (domain.StormID, bool, error) {
	entries, err := t.read()
	if err != nil {
		return domain.StormID{}, false, err
	}
	for _, e := range entries {
		if e.agencyID == agencyID && e.storm.Year == year {
			return e.storm, true, nil
		}
	}
	return domain.StormID{}, false, nil
}

// Append records agencyID -> storm unless an entry for the same agency
// number and year already exists.
func (t *XrefTable) Append(ctx context.Context, agencyID int, storm domain.StormID) error {
	return filelock.With(ctx, t.path, t.lockTimeout, func() error {
		_, found, err := t.Lookup(agencyID, storm.Year)
		if err != nil || found {
			return err
		}

		f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open xref %s: %w", t.path, err)
		}
		if _, err := fmt.Fprintf(f, "%04d %s\n", agencyID, storm); err != nil {
			f.Close()
			return fmt.Errorf("append xref %s: %w", t.path, err)
		}
		return f.Close()
	})
}

type xrefEntry struct {
	agencyID int
	storm    domain.StormID
}

func (t *XrefTable) read() ([]xrefEntry, error) {
	f, err := os.Open(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open xref %s: %w", t.path, err)
	}
	defer f.Close()

	var entries []xrefEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		storm, err := domain.ParseStormID(fields[1])
		if err != nil {
			continue
		}
		entries = append(entries, xrefEntry{agencyID: id, storm: storm})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read xref %s: %w", t.path, err)
	}
	return entries, nil
}
