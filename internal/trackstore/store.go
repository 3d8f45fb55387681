// Package trackstore loads, merges and persists per-storm ATCF track files.
//
// A track file holds every forecast record of one storm, one line per track
// point (and per wind threshold). Records are kept sorted by DTG then
// technique, and a record whose technique and reference time are already
// present is never written twice.
package trackstore

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/couchcryptid/storm-atcf-tracker/internal/atcf"
	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
)

// AnyTechnique selects every technique in LoadTechnique.
const AnyTechnique = "ANY"

// Outcome reports what Merge did with a record.
type Outcome int

const (
	Appended Outcome = iota + 1
	Duplicate
)

func (o Outcome) String() string {
	switch o {
	case Appended:
		return "appended"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Store is the in-memory content of one track file.
type Store struct {
	Storm   domain.StormID
	Records []domain.ForecastRecord
	Corrupt int // lines skipped while loading
}

type recordKey struct {
	basin  string
	number int
	dtg    string
	tech   string
}

// Load reads the track file at path. A missing file yields an empty store.
// Lines that fail to decode are logged and skipped.
func Load(path string, logger *slog.Logger) (*Store, error) {
	return LoadTechnique(path, AnyTechnique, logger)
}

// LoadTechnique is Load restricted to one technique. AnyTechnique or an empty
// string selects all of them.
func LoadTechnique(path, technique string, logger *slog.Logger) (*Store, error) {
	s := &Store{}
	s.Storm, _ = StormFromPath(path)

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("*caution* track file does not exist", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrPersist, path, err)
	}
	defer f.Close()

	technique = domain.NormalizeTechnique(technique)
	all := technique == "" || technique == AnyTechnique

	index := make(map[recordKey]int)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}

		line, err := atcf.DecodeLine(text)
		if err != nil {
			s.Corrupt++
			logger.Warn("skipping corrupt track line", "path", path, "line", lineNo, "error", err)
			continue
		}
		if !all && line.Technique != technique {
			continue
		}
		if err := s.addLine(line, index); err != nil {
			s.Corrupt++
			logger.Warn("skipping corrupt track line", "path", path, "line", lineNo, "error", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrPersist, path, err)
	}
	return s, nil
}

func (s *Store) addLine(line atcf.Line, index map[recordKey]int) error {
	key := recordKey{basin: line.Basin, number: line.Number, dtg: line.DTG, tech: line.Technique}
	i, ok := index[key]
	if !ok {
		storm := s.Storm
		if storm.IsZero() {
			storm = domain.StormID{Basin: line.Basin, Number: line.Number, Year: yearOf(line.DTG)}
			s.Storm = storm
		}
		rec, err := domain.NewForecastRecord(storm, line.DTG, line.Technique, line.TechNum)
		if err != nil {
			return err
		}
		s.Records = append(s.Records, rec)
		i = len(s.Records) - 1
		index[key] = i
	}

	rec := &s.Records[i]
	if rec.StormName == "" {
		rec.StormName = line.StormName
	}
	if !rec.AddPoint(line.Point) {
		return fmt.Errorf("%w: more than %d forecast positions", domain.ErrStoreCorruption, domain.MaxTrackPoints)
	}
	return nil
}

// IsDuplicate reports whether a record with technique lies within one hour
// of Julian date jd.
func (s *Store) IsDuplicate(technique string, jd float64) bool {
	technique = domain.NormalizeTechnique(technique)
	for _, rec := range s.Records {
		if rec.Technique == technique && domain.SameProductTime(rec.JulianDate, jd) {
			return true
		}
	}
	return false
}

// Merge appends rec unless it duplicates a stored record.
func (s *Store) Merge(rec domain.ForecastRecord) Outcome {
	if s.IsDuplicate(rec.Technique, rec.JulianDate) {
		return Duplicate
	}
	if s.Storm.IsZero() {
		s.Storm = rec.Storm
	}
	s.Records = append(s.Records, rec)
	return Appended
}

// Sort orders records by DTG then technique, keeping insertion order for ties.
func (s *Store) Sort() {
	slices.SortStableFunc(s.Records, func(a, b domain.ForecastRecord) int {
		return cmp.Or(
			cmp.Compare(a.DTG, b.DTG),
			cmp.Compare(a.Technique, b.Technique),
		)
	})
}

// SortAndPersist sorts the store and rewrites path with its full content.
// The file is replaced atomically so readers never observe a partial write.
func (s *Store) SortAndPersist(path string) error {
	s.Sort()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersist, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersist, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // already renamed on success

	if err := atcf.WriteRecords(tmp, s.Records); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", domain.ErrPersist, path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync %s: %v", domain.ErrPersist, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", domain.ErrPersist, path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersist, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename %s: %v", domain.ErrPersist, path, err)
	}
	return nil
}

// FileName returns the track file name of a storm, e.g. "AWP012025.dat".
func FileName(storm domain.StormID, suffix string) string {
	return "A" + storm.String() + "." + suffix
}

// StormFromPath recovers the storm identifier from a track file name.
func StormFromPath(path string) (domain.StormID, error) {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if len(base) != 9 || base[0] != 'A' {
		return domain.StormID{}, fmt.Errorf("%w: track file name %q", domain.ErrParse, filepath.Base(path))
	}
	return domain.ParseStormID(base[1:])
}

func yearOf(dtg string) int {
	t, err := domain.ParseDTG(dtg)
	if err != nil {
		return 0
	}
	return t.Year()
}
