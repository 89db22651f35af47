// Package grid computes the 6x7 month layout shown by every calendar view.
package grid

import (
	"strconv"
	"time"

	"deskcal/internal/model"
)

const (
	Rows  = 6
	Cols  = 7
	Cells = Rows * Cols
)

// WeekdayNames is the header row, Sunday first.
var WeekdayNames = [Cols]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// EventSource answers which events fall on a date, in store order.
type EventSource interface {
	EventsOn(d model.Date) []model.Event
}

// Cell is one of the 42 grid positions. A blank cell has Day == 0.
type Cell struct {
	Row int
	Col int
	Day int

	Date model.Date

	// Label is the name of the first event on Date in store order, if any.
	// Only one label is shown per cell.
	Label string
	// More counts the events on Date beyond the labelled one.
	More int

	Today bool
}

func (c Cell) Blank() bool { return c.Day == 0 }

// Grid is the layout of one month.
type Grid struct {
	Year         int
	Month        time.Month
	FirstWeekday int
	DaysInMonth  int
	Cells        [Cells]Cell
}

// Title returns e.g. "January 2024".
func (g Grid) Title() string {
	return g.Month.String() + " " + strconv.Itoa(g.Year)
}

// At returns the cell at row r, column c.
func (g Grid) At(r, c int) Cell {
	return g.Cells[r*Cols+c]
}

// CellFor returns the cell holding day-of-month day.
func (g Grid) CellFor(day int) (Cell, bool) {
	if day < 1 || day > g.DaysInMonth {
		return Cell{}, false
	}
	return g.Cells[g.FirstWeekday+day-1], true
}

// FirstWeekday returns the weekday index (0 = Sunday) of day 1.
func FirstWeekday(year int, month time.Month) int {
	return int(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday())
}

// Render lays out (year, month) and resolves each populated cell against src.
// today is compared by date equality; callers pass the current date on every
// call.
func Render(year int, month time.Month, src EventSource, today model.Date) Grid {
	g := Grid{
		Year:         year,
		Month:        month,
		FirstWeekday: FirstWeekday(year, month),
		DaysInMonth:  model.DaysIn(year, month),
	}

	for i := range g.Cells {
		g.Cells[i] = Cell{Row: i / Cols, Col: i % Cols}
	}

	// Row 0 starts at firstWeekday; the rest fill left to right until the
	// month runs out. 31 days starting on Saturday end exactly in row 5.
	for day := 1; day <= g.DaysInMonth; day++ {
		c := &g.Cells[g.FirstWeekday+day-1]
		c.Day = day
		c.Date = model.Date{Year: year, Month: month, Day: day}
		c.Today = c.Date == today

		if src == nil {
			continue
		}
		if evs := src.EventsOn(c.Date); len(evs) > 0 {
			c.Label = evs[0].Name
			c.More = len(evs) - 1
		}
	}

	return g
}

// Builder renders grids using a clock read on every build.
type Builder struct {
	Source EventSource
	Now    func() time.Time
}

// Build renders (year, month) with today taken from b.Now at call time.
func (b Builder) Build(year int, month time.Month) Grid {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	return Render(year, month, b.Source, model.DateOf(now()))
}
