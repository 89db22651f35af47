package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 calendar-date form used on disk and in the API.
const DateLayout = "2006-01-02"

// ErrEmptyName is returned when an event is created without a name.
var ErrEmptyName = errors.New("event name is empty")

// Date is a calendar date without a time component or zone.
// The zero value is not a valid date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current system date.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses an ISO-8601 "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// ParseDayMonthYear converts raw day/month/year text from input fields into a
// Date. Impossible dates such as 31 April are rejected rather than
// normalized.
func ParseDayMonthYear(day, month, year string) (Date, error) {
	d, err := strconv.Atoi(strings.TrimSpace(day))
	if err != nil {
		return Date{}, fmt.Errorf("invalid day %q", day)
	}
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil {
		return Date{}, fmt.Errorf("invalid month %q", month)
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return Date{}, fmt.Errorf("invalid year %q", year)
	}
	return NewDate(y, time.Month(m), d)
}

// NewDate validates the components and returns the Date.
func NewDate(year int, month time.Month, day int) (Date, error) {
	if month < time.January || month > time.December {
		return Date{}, fmt.Errorf("month %d out of range", int(month))
	}
	if year < 1 || year > 9999 {
		return Date{}, fmt.Errorf("year %d out of range", year)
	}
	if day < 1 || day > DaysIn(year, month) {
		return Date{}, fmt.Errorf("day %d out of range for %s %d", day, month, year)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// DaysIn returns the number of days in the given month, honoring leap years.
func DaysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Time returns midnight UTC of d. Used for weekday arithmetic only.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Event is a named annotation on a calendar date. Two events are the same
// event when both date and name are equal; duplicates are allowed in a store.
type Event struct {
	Date Date   `json:"date"`
	Name string `json:"name"`
}

// NewEvent builds an Event, rejecting an empty name.
func NewEvent(date Date, name string) (Event, error) {
	if name == "" {
		return Event{}, ErrEmptyName
	}
	return Event{Date: date, Name: name}, nil
}

// String renders the event the way the event list shows it.
func (e Event) String() string {
	return e.Date.String() + " - " + e.Name
}
