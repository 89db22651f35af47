// Package app is the top-level calendar controller shared by the terminal UI,
// the CLI commands and the HTTP server. It owns the event store and the
// displayed month, and recomputes the grid after every transition.
package app

import (
	"fmt"
	"time"

	"deskcal/internal/grid"
	appLog "deskcal/internal/log"
	"deskcal/internal/model"
	"deskcal/internal/nav"
	"deskcal/internal/store"
)

// Store is the subset of *store.Store the controller needs.
type Store interface {
	grid.EventSource
	Add(ev model.Event)
	Remove(ev model.Event) bool
	All() []model.Event
	Save() error
}

var _ Store = (*store.Store)(nil)

// Controller is not safe for concurrent use.
type Controller struct {
	store Store
	state nav.State
	now   func() time.Time
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock overrides time.Now, used for "today" and the start-up month.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates a controller showing the current month.
func New(s Store, opts ...Option) *Controller {
	c := &Controller{store: s, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.state = nav.At(c.now())
	return c
}

// State returns the displayed month.
func (c *Controller) State() nav.State { return c.state }

// Current renders the displayed month.
func (c *Controller) Current() grid.Grid {
	b := grid.Builder{Source: c.store, Now: c.now}
	return b.Build(c.state.Year, c.state.Month)
}

func (c *Controller) PreviousMonth() grid.Grid {
	c.state = c.state.PreviousMonth()
	return c.Current()
}

func (c *Controller) NextMonth() grid.Grid {
	c.state = c.state.NextMonth()
	return c.Current()
}

func (c *Controller) PreviousYear() grid.Grid {
	c.state = c.state.PreviousYear()
	return c.Current()
}

func (c *Controller) NextYear() grid.Grid {
	c.state = c.state.NextYear()
	return c.Current()
}

// JumpTo displays (year, month). On an invalid month the state is unchanged.
func (c *Controller) JumpTo(year int, month time.Month) (grid.Grid, error) {
	next, err := c.state.JumpTo(year, month)
	if err != nil {
		return c.Current(), err
	}
	c.state = next
	return c.Current(), nil
}

// Today jumps back to the month containing the current date.
func (c *Controller) Today() grid.Grid {
	c.state = nav.At(c.now())
	return c.Current()
}

// AddEvent appends an event, persists the store and shows the event's month.
// If saving fails the event stays in memory and the error is returned along
// with the refreshed grid.
func (c *Controller) AddEvent(date model.Date, name string) (grid.Grid, error) {
	ev, err := model.NewEvent(date, name)
	if err != nil {
		return c.Current(), err
	}

	c.state = nav.State{Year: date.Year, Month: date.Month}
	c.store.Add(ev)

	if err := c.store.Save(); err != nil {
		appLog.Error("save after add failed", err, "date", date, "name", name)
		return c.Current(), fmt.Errorf("add event: %w", err)
	}
	appLog.Info("event added", "date", date, "name", name)
	return c.Current(), nil
}

// RemoveEvent removes the first event with the given date and name and
// persists the store. An absent event is a no-op and nothing is written.
func (c *Controller) RemoveEvent(date model.Date, name string) (grid.Grid, bool, error) {
	if !c.store.Remove(model.Event{Date: date, Name: name}) {
		return c.Current(), false, nil
	}

	if err := c.store.Save(); err != nil {
		appLog.Error("save after remove failed", err, "date", date, "name", name)
		return c.Current(), true, fmt.Errorf("remove event: %w", err)
	}
	appLog.Info("event removed", "date", date, "name", name)
	return c.Current(), true, nil
}

// ImportEvents appends events in order and saves once.
func (c *Controller) ImportEvents(events []model.Event) (int, error) {
	added := 0
	for _, ev := range events {
		if ev.Name == "" {
			continue
		}
		c.store.Add(ev)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := c.store.Save(); err != nil {
		return added, fmt.Errorf("import events: %w", err)
	}
	appLog.Info("events imported", "count", added)
	return added, nil
}

// EventsOn lists the events on d in store order.
func (c *Controller) EventsOn(d model.Date) []model.Event {
	return c.store.EventsOn(d)
}

// Events lists every event in store order.
func (c *Controller) Events() []model.Event {
	return c.store.All()
}

// Month renders (year, month) without changing the displayed month. The
// HTTP view uses it so that concurrent clients do not navigate each other.
func (c *Controller) Month(year int, month time.Month) (grid.Grid, error) {
	s, err := nav.New(year, month)
	if err != nil {
		return grid.Grid{}, err
	}
	b := grid.Builder{Source: c.store, Now: c.now}
	return b.Build(s.Year, s.Month), nil
}
