// Package nav holds the displayed (year, month) and its transitions.
package nav

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidMonth is returned by JumpTo for a month outside 1..12.
var ErrInvalidMonth = errors.New("month out of range")

// State is the month currently displayed. The zero value is not valid; use
// New or At.
type State struct {
	Year  int
	Month time.Month
}

// At returns the state showing the month that contains t.
func At(t time.Time) State {
	return State{Year: t.Year(), Month: t.Month()}
}

// New validates and returns a state.
func New(year int, month time.Month) (State, error) {
	if month < time.January || month > time.December {
		return State{}, fmt.Errorf("%w: %d", ErrInvalidMonth, int(month))
	}
	return State{Year: year, Month: month}, nil
}

func (s State) PreviousMonth() State {
	if s.Month == time.January {
		return State{Year: s.Year - 1, Month: time.December}
	}
	return State{Year: s.Year, Month: s.Month - 1}
}

func (s State) NextMonth() State {
	if s.Month == time.December {
		return State{Year: s.Year + 1, Month: time.January}
	}
	return State{Year: s.Year, Month: s.Month + 1}
}

func (s State) PreviousYear() State {
	return State{Year: s.Year - 1, Month: s.Month}
}

func (s State) NextYear() State {
	return State{Year: s.Year + 1, Month: s.Month}
}

// JumpTo sets the state directly.
func (s State) JumpTo(year int, month time.Month) (State, error) {
	return New(year, month)
}

func (s State) String() string {
	return fmt.Sprintf("%04d-%02d", s.Year, int(s.Month))
}

// Parse reads a "YYYY-MM" string.
func Parse(v string) (State, error) {
	t, err := time.Parse("2006-01", v)
	if err != nil {
		return State{}, fmt.Errorf("parse month %q: %w", v, err)
	}
	return At(t), nil
}
