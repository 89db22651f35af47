package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"deskcal/internal/model"
	"deskcal/internal/nav"
	"deskcal/internal/store"
)

var fixedNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func newController(t *testing.T) (*Controller, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.txt")
	s := store.New(path, store.LoadSkip)
	return New(s, WithClock(func() time.Time { return fixedNow })), path
}

func TestStartsOnCurrentMonth(t *testing.T) {
	c, _ := newController(t)
	if c.State() != (nav.State{Year: 2025, Month: time.March}) {
		t.Fatalf("state = %v", c.State())
	}
	g := c.Current()
	if cell, _ := g.CellFor(10); !cell.Today {
		t.Error("10 March should be flagged today")
	}
}

func TestNavigationRecomputesGrid(t *testing.T) {
	c, _ := newController(t)

	g := c.NextMonth()
	if g.Month != time.April || g.Year != 2025 {
		t.Errorf("NextMonth grid = %s", g.Title())
	}
	g = c.PreviousYear()
	if g.Month != time.April || g.Year != 2024 {
		t.Errorf("PreviousYear grid = %s", g.Title())
	}
	for i := 0; i < 4; i++ {
		g = c.PreviousMonth()
	}
	if g.Month != time.December || g.Year != 2023 {
		t.Errorf("after 4x PreviousMonth grid = %s", g.Title())
	}
	g = c.NextYear()
	if g.Year != 2024 {
		t.Errorf("NextYear grid = %s", g.Title())
	}

	if _, err := c.JumpTo(2030, 0); err == nil {
		t.Error("expected JumpTo error")
	}
	if c.State() != (nav.State{Year: 2024, Month: time.December}) {
		t.Errorf("invalid JumpTo changed state to %v", c.State())
	}

	g = c.Today()
	if g.Month != time.March || g.Year != 2025 {
		t.Errorf("Today grid = %s", g.Title())
	}
}

func TestAddEventJumpsAndPersists(t *testing.T) {
	c, path := newController(t)
	d := model.Date{Year: 2025, Month: time.July, Day: 4}

	g, err := c.AddEvent(d, "Fireworks")
	if err != nil {
		t.Fatal(err)
	}
	if g.Month != time.July {
		t.Errorf("grid month = %s, want July", g.Month)
	}
	if cell, _ := g.CellFor(4); cell.Label != "Fireworks" {
		t.Errorf("label = %q", cell.Label)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "2025-07-04,Fireworks\n" {
		t.Errorf("file = %q", raw)
	}

	if got := c.EventsOn(d); len(got) != 1 || got[0].Name != "Fireworks" {
		t.Errorf("EventsOn = %+v", got)
	}
}

func TestAddEventRejectsEmptyName(t *testing.T) {
	c, path := newController(t)
	_, err := c.AddEvent(model.Date{Year: 2025, Month: time.July, Day: 4}, "")
	if !errors.Is(err, model.ErrEmptyName) {
		t.Fatalf("err = %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("nothing should have been written")
	}
}

func TestRemoveEvent(t *testing.T) {
	c, path := newController(t)
	d := model.Date{Year: 2025, Month: time.March, Day: 15}
	if _, err := c.AddEvent(d, "Meeting"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddEvent(d, "Lunch"); err != nil {
		t.Fatal(err)
	}

	g, removed, err := c.RemoveEvent(d, "Meeting")
	if err != nil || !removed {
		t.Fatalf("RemoveEvent = %v, %v", removed, err)
	}
	if cell, _ := g.CellFor(15); cell.Label != "Lunch" {
		t.Errorf("label after remove = %q", cell.Label)
	}

	_, removed, err = c.RemoveEvent(d, "Nope")
	if err != nil || removed {
		t.Errorf("absent remove = %v, %v", removed, err)
	}

	raw, _ := os.ReadFile(path)
	if string(raw) != "2025-03-15,Lunch\n" {
		t.Errorf("file = %q", raw)
	}
}

type failingStore struct {
	*store.Store
}

func (failingStore) Save() error { return errors.New("disk full") }

func TestSaveFailureKeepsMemory(t *testing.T) {
	s := failingStore{store.New(filepath.Join(t.TempDir(), "events.txt"), store.LoadSkip)}
	c := New(s, WithClock(func() time.Time { return fixedNow }))

	d := model.Date{Year: 2025, Month: time.March, Day: 11}
	g, err := c.AddEvent(d, "Unsaved")
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v", err)
	}
	if cell, _ := g.CellFor(11); cell.Label != "Unsaved" {
		t.Errorf("in-memory event missing from grid: %+v", cell)
	}
	if len(c.Events()) != 1 {
		t.Errorf("events = %d", len(c.Events()))
	}
}

func TestImportEventsSavesOnce(t *testing.T) {
	c, path := newController(t)
	n, err := c.ImportEvents([]model.Event{
		{Date: model.Date{Year: 2025, Month: time.May, Day: 1}, Name: "a"},
		{Date: model.Date{Year: 2025, Month: time.May, Day: 2}, Name: ""},
		{Date: model.Date{Year: 2025, Month: time.May, Day: 3}, Name: "b"},
	})
	if err != nil || n != 2 {
		t.Fatalf("ImportEvents = %d, %v", n, err)
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != "2025-05-01,a\n2025-05-03,b\n" {
		t.Errorf("file = %q", raw)
	}
}

func TestMonthDoesNotNavigate(t *testing.T) {
	c, _ := newController(t)
	g, err := c.Month(2024, time.February)
	if err != nil {
		t.Fatal(err)
	}
	if g.DaysInMonth != 29 {
		t.Errorf("DaysInMonth = %d", g.DaysInMonth)
	}
	if c.State() != (nav.State{Year: 2025, Month: time.March}) {
		t.Errorf("state moved to %v", c.State())
	}
	if _, err := c.Month(2024, 13); err == nil {
		t.Error("expected error for month 13")
	}
}
