package nav

import (
	"errors"
	"testing"
	"time"
)

func TestNextMonthTwelveTimesAdvancesOneYear(t *testing.T) {
	for m := time.January; m <= time.December; m++ {
		start := State{Year: 2024, Month: m}
		s := start
		for i := 0; i < 12; i++ {
			s = s.NextMonth()
		}
		if s != (State{Year: 2025, Month: m}) {
			t.Errorf("from %v: got %v", start, s)
		}
	}
}

func TestMonthWrap(t *testing.T) {
	if got := (State{2024, time.January}).PreviousMonth(); got != (State{2023, time.December}) {
		t.Errorf("PreviousMonth from Jan = %v", got)
	}
	if got := (State{2024, time.December}).NextMonth(); got != (State{2025, time.January}) {
		t.Errorf("NextMonth from Dec = %v", got)
	}
	if got := (State{2024, time.June}).PreviousMonth(); got != (State{2024, time.May}) {
		t.Errorf("PreviousMonth from Jun = %v", got)
	}
}

func TestYearSteps(t *testing.T) {
	s := State{2024, time.February}
	if got := s.NextYear(); got != (State{2025, time.February}) {
		t.Errorf("NextYear = %v", got)
	}
	if got := s.PreviousYear(); got != (State{2023, time.February}) {
		t.Errorf("PreviousYear = %v", got)
	}
}

func TestJumpTo(t *testing.T) {
	s := State{2024, time.February}
	got, err := s.JumpTo(2030, time.July)
	if err != nil || got != (State{2030, time.July}) {
		t.Fatalf("JumpTo = %v, %v", got, err)
	}
	if _, err := s.JumpTo(2030, 13); !errors.Is(err, ErrInvalidMonth) {
		t.Errorf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestParse(t *testing.T) {
	s, err := Parse("2025-03")
	if err != nil || s != (State{2025, time.March}) {
		t.Fatalf("Parse = %v, %v", s, err)
	}
	if s.String() != "2025-03" {
		t.Errorf("String() = %q", s.String())
	}
	if _, err := Parse("2025-3"); err == nil {
		t.Error("expected error for single-digit month")
	}
}
