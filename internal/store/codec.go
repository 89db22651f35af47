package store

import (
	"errors"
	"fmt"
	"strings"

	"deskcal/internal/model"
)

// Line format:
//
//	YYYY-MM-DD,event name
//
// The name is everything after the first comma. On write, backslash, comma,
// CR and LF inside a name are escaped with a backslash so that a line always
// holds exactly one event. Names without those characters encode to the same
// bytes as the legacy unescaped format.

const delimiter = ','

var (
	errMissingDelimiter = errors.New("missing ',' delimiter")
	errEmptyName        = errors.New("empty event name")
	errTrailingEscape   = errors.New("trailing backslash")
)

// ParseError describes one malformed line of the backing file.
type ParseError struct {
	Line int    // 1-based line number
	Raw  string // the line as read, without the newline
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Raw)
}

func (e *ParseError) Unwrap() error { return e.Err }

// encodeLine renders one event as a line without the trailing newline.
func encodeLine(ev model.Event) string {
	return ev.Date.String() + string(delimiter) + escapeName(ev.Name)
}

// decodeLine parses one line into an event.
func decodeLine(line string) (model.Event, error) {
	idx := strings.IndexByte(line, delimiter)
	if idx < 0 {
		return model.Event{}, errMissingDelimiter
	}

	date, err := model.ParseDate(line[:idx])
	if err != nil {
		return model.Event{}, err
	}

	name, err := unescapeName(line[idx+1:])
	if err != nil {
		return model.Event{}, err
	}
	if name == "" {
		return model.Event{}, errEmptyName
	}

	return model.Event{Date: date, Name: name}, nil
}

func escapeName(s string) string {
	if !strings.ContainsAny(s, "\\,\n\r") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case ',':
			b.WriteString(`\,`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func unescapeName(s string) (string, error) {
	if strings.IndexByte(s, '\\') < 0 {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", errTrailingEscape
		}
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case ',':
			b.WriteByte(',')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		default:
			return "", fmt.Errorf("unknown escape \\%c", s[i])
		}
	}
	return b.String(), nil
}
