package tui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"deskcal/internal/app"
	"deskcal/internal/grid"
	"deskcal/internal/model"
	"deskcal/internal/store"
)

var testNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T) (*Model, *app.Controller) {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "events.txt"), store.LoadSkip)
	ctrl := app.New(st, app.WithClock(func() time.Time { return testNow }))
	return NewModel(ctrl), ctrl
}

func press(m *Model, keys ...string) {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "backspace":
			msg = tea.KeyMsg{Type: tea.KeyBackspace}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m.Update(msg)
	}
}

func TestStartsOnToday(t *testing.T) {
	m, _ := newTestModel(t)
	if got := m.Selected(); got != (model.Date{Year: 2025, Month: time.March, Day: 10}) {
		t.Errorf("selected = %v", got)
	}
}

func TestNavigationKeys(t *testing.T) {
	m, _ := newTestModel(t)

	press(m, "n")
	if m.grid.Month != time.April || m.grid.Year != 2025 {
		t.Errorf("after n: %s", m.grid.Title())
	}
	press(m, "p", "p")
	if m.grid.Month != time.February {
		t.Errorf("after p p: %s", m.grid.Title())
	}
	press(m, "N")
	if m.grid.Year != 2026 || m.grid.Month != time.February {
		t.Errorf("after N: %s", m.grid.Title())
	}
	press(m, "P", "P")
	if m.grid.Year != 2024 {
		t.Errorf("after P P: %s", m.grid.Title())
	}
	press(m, "t")
	if m.Selected() != (model.Date{Year: 2025, Month: time.March, Day: 10}) {
		t.Errorf("after t: %v", m.Selected())
	}
}

func TestCursorStaysInMonth(t *testing.T) {
	m, _ := newTestModel(t)

	press(m, "right", "down")
	if m.selected != 18 {
		t.Errorf("selected = %d, want 18", m.selected)
	}
	press(m, "down", "down", "down")
	if m.selected != 25 {
		t.Errorf("selected = %d, want 25 (last full week)", m.selected)
	}

	// Feb 2025 has 28 days: cursor on the 31st is clamped.
	press(m, "t")
	for i := 0; i < 21; i++ {
		press(m, "right")
	}
	if m.selected != 31 {
		t.Fatalf("selected = %d", m.selected)
	}
	press(m, "p")
	if m.selected != 28 {
		t.Errorf("selected after p = %d, want 28", m.selected)
	}
}

func TestAddEventFlow(t *testing.T) {
	m, ctrl := newTestModel(t)

	press(m, "a")
	if m.Mode() != ViewAddDate {
		t.Fatalf("mode = %v", m.Mode())
	}
	if m.dateInputs[fieldDay].Value() != "10" || m.dateInputs[fieldYear].Value() != "2025" {
		t.Errorf("date not prefilled: %q %q", m.dateInputs[fieldDay].Value(), m.dateInputs[fieldYear].Value())
	}

	// move to 15 April
	press(m, "backspace", "backspace", "1", "5", "tab", "backspace", "4")
	press(m, "enter")
	if m.Mode() != ViewAddName {
		t.Fatalf("mode = %v, message %q", m.Mode(), m.Message())
	}

	press(m, "B", "i", "r", "t", "h", "d", "a", "y", "enter")
	if m.Mode() != ViewCalendar {
		t.Fatalf("mode = %v", m.Mode())
	}

	d := model.Date{Year: 2025, Month: time.April, Day: 15}
	events := ctrl.EventsOn(d)
	if len(events) != 1 || events[0].Name != "Birthday" {
		t.Fatalf("events = %+v", events)
	}
	if m.Selected() != d {
		t.Errorf("selected = %v", m.Selected())
	}
	if c, _ := m.grid.CellFor(15); c.Label != "Birthday" {
		t.Errorf("cell label = %q", c.Label)
	}
}

func TestAddEventRejectsInvalidDate(t *testing.T) {
	m, ctrl := newTestModel(t)

	press(m, "a", "backspace", "backspace", "3", "1", "tab", "backspace", "2", "enter")
	if m.Mode() != ViewAddDate {
		t.Errorf("mode = %v", m.Mode())
	}
	if !strings.HasPrefix(m.Message(), "Invalid date") {
		t.Errorf("message = %q", m.Message())
	}
	if len(ctrl.Events()) != 0 {
		t.Error("no event expected")
	}
}

func TestAddEventRejectsEmptyName(t *testing.T) {
	m, ctrl := newTestModel(t)

	press(m, "a", "enter", "enter")
	if m.Mode() != ViewAddName {
		t.Errorf("mode = %v", m.Mode())
	}
	if len(ctrl.Events()) != 0 {
		t.Error("no event expected")
	}
	press(m, "esc")
	if m.Mode() != ViewCalendar {
		t.Errorf("mode after esc = %v", m.Mode())
	}
}

func TestRemoveEventFlow(t *testing.T) {
	m, ctrl := newTestModel(t)
	d := model.Date{Year: 2025, Month: time.March, Day: 10}
	if _, err := ctrl.AddEvent(d, "Meeting"); err != nil {
		t.Fatal(err)
	}
	if _, err := ctrl.AddEvent(d, "Lunch"); err != nil {
		t.Fatal(err)
	}
	m.setGrid(ctrl.Current())

	press(m, "x")
	if m.Mode() != ViewRemove || len(m.choices) != 2 {
		t.Fatalf("mode = %v, choices = %+v", m.Mode(), m.choices)
	}
	press(m, "down", "enter")

	events := ctrl.EventsOn(d)
	if len(events) != 1 || events[0].Name != "Meeting" {
		t.Errorf("events = %+v", events)
	}
	if m.Mode() != ViewCalendar {
		t.Errorf("mode = %v", m.Mode())
	}
}

func TestRemoveOnEmptyDate(t *testing.T) {
	m, _ := newTestModel(t)
	press(m, "x")
	if m.Mode() != ViewCalendar {
		t.Errorf("mode = %v", m.Mode())
	}
	if m.Message() != NoEventsMessage {
		t.Errorf("message = %q", m.Message())
	}
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestRenderMonth(t *testing.T) {
	ev := store.New(filepath.Join(t.TempDir(), "e.txt"), store.LoadSkip)
	ev.Add(model.Event{Date: model.Date{Year: 2024, Month: time.January, Day: 1}, Name: "New Year"})
	g := grid.Render(2024, time.January, ev, model.Date{})

	out := RenderMonth(g, 0, DefaultStyles())
	for _, want := range []string{"January 2024", "Sunday", "31", "New Year"} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q", want)
		}
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"Wednesday", 5, "Wedn…"},
		{"ab", 1, "…"},
		{"x", 0, ""},
	}
	for _, c := range cases {
		if got := truncate(c.in, c.n); got != c.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}
}
