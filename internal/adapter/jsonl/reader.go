// Package jsonl reads observations from JSON-lines files, one observation per
// line, for batch reprocessing outside the streaming deployment.
package jsonl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
)

// Bulletins with long raw text make for long lines.
const (
	initialBufferSize = 1024 * 1024
	maxLineSize       = 16 * 1024 * 1024
)

// Reader implements pipeline.BatchExtractor over a list of files read in
// order. It returns io.EOF with the final batch.
type Reader struct {
	paths   []string
	next    int
	file    *os.File
	scanner *bufio.Scanner
	path    string
	line    int64
}

// NewReader creates a Reader over paths. A path of "-" reads standard input.
func NewReader(paths ...string) *Reader {
	return &Reader{paths: paths}
}

// ExtractBatch returns up to batchSize non-blank lines as raw events.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	batch := make([]domain.RawEvent, 0, batchSize)
	for len(batch) < batchSize {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		if r.scanner == nil {
			if err := r.openNext(); err != nil {
				return batch, err
			}
		}
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return batch, fmt.Errorf("read %s: %w", r.path, err)
			}
			r.closeCurrent()
			continue
		}
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" {
			continue
		}
		batch = append(batch, domain.RawEvent{
			Key:       []byte(fmt.Sprintf("%s:%d", r.path, r.line)),
			Value:     []byte(text),
			Topic:     r.path,
			Offset:    r.line,
			Timestamp: time.Now(),
		})
	}
	return batch, nil
}

// openNext opens the next input, or returns io.EOF when none remain.
func (r *Reader) openNext() error {
	if r.next >= len(r.paths) {
		return io.EOF
	}
	r.path = r.paths[r.next]
	r.next++
	r.line = 0

	var src io.Reader = os.Stdin
	if r.path != "-" {
		f, err := os.Open(r.path)
		if err != nil {
			return fmt.Errorf("open %s: %w", r.path, err)
		}
		r.file = f
		src = f
	}
	r.scanner = bufio.NewScanner(src)
	r.scanner.Buffer(make([]byte, 0, initialBufferSize), maxLineSize)
	return nil
}

func (r *Reader) closeCurrent() {
	if r.file != nil {
		_ = r.file.Close()
		r.file = nil
	}
	r.scanner = nil
}

// Close releases the file currently being read.
func (r *Reader) Close() error {
	r.closeCurrent()
	r.next = len(r.paths)
	return nil
}
