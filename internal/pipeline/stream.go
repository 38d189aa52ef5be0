// Package pipeline implements the task stream and dispatcher (C5): it reads
// the JSONL input, constructs tasks lazily, and runs a fixed pool of workers
// over a bounded queue.
package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ROpdebee/CAA-Auditor/internal/catalog"
)

// maxLineBytes bounds a single input line well past any record the catalog
// extraction tool plausibly emits, while still avoiding bufio.Scanner's
// default 64KB ceiling (spec §4.5).
const maxLineBytes = 64 * 1024 * 1024

// FanoutFactor is the number of leading MBID characters used as directory
// segments (spec §3 "Fanout path").
const FanoutFactor = 3

// FanoutPath builds the per-task output directory under root.
func FanoutPath(root, mbid string) string {
	segments := make([]string, 0, FanoutFactor+1)
	n := FanoutFactor
	if len(mbid) < n {
		n = len(mbid)
	}
	for i := 0; i < n; i++ {
		segments = append(segments, string(mbid[i]))
	}
	segments = append(segments, mbid)
	return filepath.Join(root, filepath.Join(segments...))
}

// Source streams task records out of the input JSONL file, having already
// consumed and validated the required meta record on Open.
type Source struct {
	f    *os.File
	sc   *bufio.Scanner
	Meta catalog.MetaRecord
}

// Open reads and validates the first line as the meta record, then returns
// a Source positioned at the first task record.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	if !sc.Scan() {
		f.Close()
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("reading meta record: %w", err)
		}
		return nil, fmt.Errorf("input stream is empty, expected a meta record")
	}
	meta, err := catalog.ParseMetaRecord(sc.Bytes())
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Source{f: f, sc: sc, Meta: meta}, nil
}

// Next returns the next task record, or io.EOF once the stream is exhausted.
func (s *Source) Next() (catalog.Record, error) {
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return catalog.Record{}, err
		}
		return catalog.Record{}, io.EOF
	}
	return catalog.ParseRecord(s.sc.Bytes())
}

// Close releases the underlying file handle.
func (s *Source) Close() error {
	return s.f.Close()
}

// CountTasks does a throwaway pass over path to count task lines (total
// lines minus the meta record), sizing the progress bar up front the same
// way the original coordinator does (spec §4.5's two-pass line count).
func CountTasks(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	n := 0
	for sc.Scan() {
		n++
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return n - 1, nil
}
