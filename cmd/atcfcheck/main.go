// Command atcfcheck verifies ATCF track files against the track store
// invariants: every line decodes, no technique has two records within an
// hour, and records are sorted by DTG then technique.
//
// Usage:
//
//	go run ./cmd/atcfcheck -dir /data/atcf -suffix dat
//	go run ./cmd/atcfcheck AWP012025.dat AEP052025.jtwc
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/couchcryptid/storm-atcf-tracker/internal/trackstore"
)

// phase tracks pass/fail for one file.
type phase struct {
	name    string
	records int
	errors  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "", "directory to scan for A<ATCFID>.<suffix> track files")
	suffix := flag.String("suffix", "*", "track file suffix to scan for with -dir")
	tech := flag.String("tech", trackstore.AnyTechnique, "only check records of this technique")
	verbose := flag.Bool("v", false, "log skipped lines")
	flag.Parse()

	paths := flag.Args()
	if *dir != "" {
		matches, err := scanDir(*dir, *suffix)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: scan %s: %v\n", *dir, err)
			os.Exit(1)
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(os.Stdout, paths, *tech, *verbose))
}

// scanDir lists the track files in dir. The glob also matches lock files
// and other siblings whose name only starts like a track file; those are
// skipped.
func scanDir(dir, suffix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "A????????."+suffix))
	if err != nil {
		return nil, err
	}
	paths := matches[:0]
	for _, m := range matches {
		if _, err := trackstore.StormFromPath(m); err != nil {
			continue
		}
		paths = append(paths, m)
	}
	return paths, nil
}

func run(w io.Writer, paths []string, tech string, verbose bool) int {
	level := slog.LevelError
	if verbose {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	sort.Strings(paths)
	phases := make([]*phase, 0, len(paths))
	for _, path := range paths {
		phases = append(phases, checkFile(path, tech, logger))
	}
	return report(w, phases)
}

func checkFile(path, tech string, logger *slog.Logger) *phase {
	p := &phase{name: filepath.Base(path)}

	if _, err := trackstore.StormFromPath(path); err != nil {
		p.errorf("file name: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		p.errorf("%v", err)
		return p
	}

	store, err := trackstore.LoadTechnique(path, tech, logger)
	if err != nil {
		p.errorf("load: %v", err)
		return p
	}
	p.records = len(store.Records)
	for _, v := range trackstore.Check(store) {
		p.errorf("%s", v)
	}
	return p
}

func report(w io.Writer, phases []*phase) int {
	fmt.Fprintln(w, "=== ATCF Track File Check ===")
	fmt.Fprintln(w)

	allPassed := true
	records := 0
	for _, p := range phases {
		records += p.records
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-24s %5d records  %s\n", p.name, p.records, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Files: %d, records: %d\n", len(phases), records)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll track files passed.")
		return 0
	}
	fmt.Fprintln(w, "\nCheck FAILED.")
	return 1
}
