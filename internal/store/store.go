// Package store owns the ordered list of calendar events and its persistence
// to a line-per-event text file.
package store

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	appLog "deskcal/internal/log"
	"deskcal/internal/model"
)

// LoadMode selects what Load does with a malformed line.
type LoadMode string

const (
	// LoadSkip logs and skips malformed lines, loading every good line.
	LoadSkip LoadMode = "skip"
	// LoadStrict aborts on the first malformed line and leaves the store empty.
	LoadStrict LoadMode = "strict"
	// LoadStop keeps the lines read before the first malformed line and
	// ignores the rest of the file.
	LoadStop LoadMode = "stop"
)

// ParseLoadMode validates a configured mode string. Empty means LoadSkip.
func ParseLoadMode(s string) (LoadMode, error) {
	switch LoadMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", LoadSkip:
		return LoadSkip, nil
	case LoadStrict:
		return LoadStrict, nil
	case LoadStop:
		return LoadStop, nil
	default:
		return "", fmt.Errorf("unknown load mode %q (want skip, strict or stop)", s)
	}
}

// LoadReport summarizes a Load call.
type LoadReport struct {
	Loaded   int
	Failures []*ParseError
	// Stopped is set when LoadStop ended the read early.
	Stopped bool
}

// Store is an in-memory, insertion-ordered event list backed by a file.
// It is not safe for concurrent use; callers serialize access.
type Store struct {
	path   string
	mode   LoadMode
	events []model.Event
}

// New creates an empty store bound to path. Nothing is read until Load.
func New(path string, mode LoadMode) *Store {
	if mode == "" {
		mode = LoadSkip
	}
	return &Store{path: path, mode: mode}
}

func (s *Store) Path() string { return s.path }

func (s *Store) Mode() LoadMode { return s.mode }

// Load replaces the in-memory events with the contents of the backing file.
// A missing file yields an empty store and no error. The returned error is
// non-nil for I/O failures and, in LoadStrict mode, for the first malformed
// line (a *ParseError).
func (s *Store) Load() (LoadReport, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.events = nil
			appLog.Info("events file not found; starting empty", "path", s.path)
			return LoadReport{}, nil
		}
		return LoadReport{}, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	events, report, err := Decode(f, s.mode)
	if err != nil {
		s.events = nil
		return report, err
	}

	for _, pe := range report.Failures {
		appLog.Warn("events file: malformed line", "path", s.path, "line", pe.Line, "raw", pe.Raw, "reason", pe.Err)
	}
	if report.Stopped {
		appLog.Warn("events file: load stopped at malformed line", "path", s.path, "loaded", report.Loaded)
	}

	s.events = events
	appLog.Info("events loaded", "path", s.path, "count", len(events), "mode", string(s.mode))
	return report, nil
}

// Save overwrites the backing file with one line per event in store order.
// The write goes through a temp file in the same directory and a rename, so
// a failed save leaves the previous file intact. The in-memory list is
// authoritative either way.
func (s *Store) Save() error {
	var buf bytes.Buffer
	if err := Encode(&buf, s.events); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save events: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".deskcal-events-*.tmp")
	if err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("save events: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("save events: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("save events: %w", err)
	}

	appLog.Debug("events saved", "path", s.path, "count", len(s.events))
	return nil
}

// Add appends ev. It does not persist.
func (s *Store) Add(ev model.Event) {
	s.events = append(s.events, ev)
}

// Remove deletes the first event equal to ev and reports whether one was
// found. Removing an absent event is a no-op.
func (s *Store) Remove(ev model.Event) bool {
	for i, e := range s.events {
		if e == ev {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return true
		}
	}
	return false
}

// EventsOn returns the events dated d in store order.
func (s *Store) EventsOn(d model.Date) []model.Event {
	var out []model.Event
	for _, e := range s.events {
		if e.Date == d {
			out = append(out, e)
		}
	}
	return out
}

// All returns a copy of every event in store order.
func (s *Store) All() []model.Event {
	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Store) Len() int { return len(s.events) }

// Decode reads events from r in the line format, applying mode to malformed
// lines. Blank lines are ignored.
func Decode(r io.Reader, mode LoadMode) ([]model.Event, LoadReport, error) {
	var (
		events []model.Event
		report LoadReport
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := strings.TrimSuffix(sc.Text(), "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}

		ev, err := decodeLine(raw)
		if err != nil {
			pe := &ParseError{Line: lineNo, Raw: raw, Err: err}
			report.Failures = append(report.Failures, pe)

			switch mode {
			case LoadStrict:
				return nil, report, pe
			case LoadStop:
				report.Stopped = true
				report.Loaded = len(events)
				return events, report, nil
			default:
				continue
			}
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, report, fmt.Errorf("read events: %w", err)
	}

	report.Loaded = len(events)
	return events, report, nil
}

// Encode writes events to w, one line each.
func Encode(w io.Writer, events []model.Event) error {
	bw := bufio.NewWriter(w)
	for _, ev := range events {
		if _, err := bw.WriteString(encodeLine(ev)); err != nil {
			return fmt.Errorf("write events: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("write events: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	return nil
}
