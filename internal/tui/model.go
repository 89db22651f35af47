// Package tui is the interactive terminal front end: a month grid with a
// day cursor, an add-event form and a remove-event picker.
package tui

import (
	"errors"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"deskcal/internal/app"
	"deskcal/internal/grid"
	appLog "deskcal/internal/log"
	"deskcal/internal/model"
)

type ViewMode int

const (
	ViewCalendar ViewMode = iota
	ViewAddDate
	ViewAddName
	ViewRemove
	ViewHelp
)

const (
	fieldDay = iota
	fieldMonth
	fieldYear
)

const listLimit = 20

// NoEventsMessage is shown when removal is requested on an empty date.
const NoEventsMessage = "No events found for this date."

type Model struct {
	ctrl *app.Controller

	mode     ViewMode
	grid     grid.Grid
	selected int

	// add form
	dateInputs [3]textinput.Model
	focus      int
	pending    model.Date
	nameInput  textinput.Model

	// remove picker
	choices []model.Event
	choice  int

	message string
	styles  Styles
}

func NewModel(ctrl *app.Controller) *Model {
	m := &Model{
		ctrl:   ctrl,
		mode:   ViewCalendar,
		styles: DefaultStyles(),
	}

	placeholders := [3]string{"DD", "MM", "YYYY"}
	for i := range m.dateInputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 4
		ti.Width = 6
		m.dateInputs[i] = ti
	}

	m.nameInput = textinput.New()
	m.nameInput.Placeholder = "Event name"
	m.nameInput.CharLimit = 256
	m.nameInput.Width = 40

	m.setGrid(ctrl.Current())
	return m
}

// Mode reports the active view.
func (m *Model) Mode() ViewMode { return m.mode }

// Selected is the highlighted day of the displayed month.
func (m *Model) Selected() model.Date {
	return model.Date{Year: m.grid.Year, Month: m.grid.Month, Day: m.selected}
}

// Message is the current status line.
func (m *Model) Message() string { return m.message }

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case ViewAddDate:
			return m.handleDateKeys(msg)
		case ViewAddName:
			return m.handleNameKeys(msg)
		case ViewRemove:
			return m.handleRemoveKeys(msg)
		case ViewHelp:
			m.mode = ViewCalendar
			return m, nil
		default:
			return m.handleCalendarKeys(msg)
		}
	}
	return m, nil
}

func (m *Model) handleCalendarKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.message = ""

	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "?":
		m.mode = ViewHelp
	case "left", "h":
		m.moveCursor(-1)
	case "right", "l":
		m.moveCursor(1)
	case "up", "k":
		m.moveCursor(-grid.Cols)
	case "down", "j":
		m.moveCursor(grid.Cols)
	case "p", "pgup":
		m.setGrid(m.ctrl.PreviousMonth())
	case "n", "pgdown":
		m.setGrid(m.ctrl.NextMonth())
	case "P":
		m.setGrid(m.ctrl.PreviousYear())
	case "N":
		m.setGrid(m.ctrl.NextYear())
	case "t":
		m.setGrid(m.ctrl.Today())
		m.selected = m.todayDay()
	case "a":
		return m, m.openAddForm()
	case "x", "d", "enter":
		return m, m.openRemovePicker()
	}
	return m, nil
}

func (m *Model) handleDateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeForm()
		return m, nil
	case "tab", "right":
		return m, m.focusField((m.focus + 1) % len(m.dateInputs))
	case "shift+tab", "left":
		return m, m.focusField((m.focus + len(m.dateInputs) - 1) % len(m.dateInputs))
	case "enter":
		d, err := model.ParseDayMonthYear(
			m.dateInputs[fieldDay].Value(),
			m.dateInputs[fieldMonth].Value(),
			m.dateInputs[fieldYear].Value(),
		)
		if err != nil {
			m.message = "Invalid date: " + err.Error()
			return m, nil
		}
		m.pending = d
		m.message = ""
		m.dateInputs[m.focus].Blur()
		m.nameInput.SetValue("")
		m.mode = ViewAddName
		return m, m.nameInput.Focus()
	}

	var cmd tea.Cmd
	m.dateInputs[m.focus], cmd = m.dateInputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) handleNameKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeForm()
		return m, nil
	case "enter":
		name := m.nameInput.Value()
		g, err := m.ctrl.AddEvent(m.pending, name)
		switch {
		case errors.Is(err, model.ErrEmptyName):
			m.message = "Event name cannot be empty."
			return m, nil
		case err != nil:
			// 메모리에는 추가됨, 저장만 실패
			m.message = "Save failed: " + err.Error()
		default:
			m.message = "Added " + model.Event{Date: m.pending, Name: name}.String()
		}
		m.setGrid(g)
		m.selected = m.pending.Day
		m.closeForm()
		return m, nil
	}

	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m *Model) handleRemoveKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.mode = ViewCalendar
		m.choices = nil
	case "up", "k":
		if m.choice > 0 {
			m.choice--
		}
	case "down", "j":
		if m.choice < len(m.choices)-1 {
			m.choice++
		}
	case "enter", "x", "d":
		ev := m.choices[m.choice]
		g, removed, err := m.ctrl.RemoveEvent(ev.Date, ev.Name)
		switch {
		case err != nil:
			m.message = "Save failed: " + err.Error()
		case removed:
			m.message = "Removed " + ev.String()
		}
		m.setGrid(g)
		m.mode = ViewCalendar
		m.choices = nil
	}
	return m, nil
}

func (m *Model) openAddForm() tea.Cmd {
	d := m.Selected()
	m.dateInputs[fieldDay].SetValue(strconv.Itoa(d.Day))
	m.dateInputs[fieldMonth].SetValue(strconv.Itoa(int(d.Month)))
	m.dateInputs[fieldYear].SetValue(strconv.Itoa(d.Year))
	for i := range m.dateInputs {
		m.dateInputs[i].CursorEnd()
	}
	m.mode = ViewAddDate
	m.message = ""
	return m.focusField(fieldDay)
}

func (m *Model) openRemovePicker() tea.Cmd {
	events := m.ctrl.EventsOn(m.Selected())
	if len(events) == 0 {
		m.message = NoEventsMessage
		return nil
	}
	m.choices = events
	m.choice = 0
	m.mode = ViewRemove
	return nil
}

func (m *Model) focusField(i int) tea.Cmd {
	for j := range m.dateInputs {
		m.dateInputs[j].Blur()
	}
	m.focus = i
	return m.dateInputs[i].Focus()
}

func (m *Model) closeForm() {
	for j := range m.dateInputs {
		m.dateInputs[j].Blur()
	}
	m.nameInput.Blur()
	m.mode = ViewCalendar
}

// setGrid swaps in g and keeps the cursor on a valid day.
func (m *Model) setGrid(g grid.Grid) {
	m.grid = g
	switch {
	case m.selected < 1:
		if d := m.todayDay(); d > 0 {
			m.selected = d
		} else {
			m.selected = 1
		}
	case m.selected > g.DaysInMonth:
		m.selected = g.DaysInMonth
	}
}

func (m *Model) todayDay() int {
	for _, c := range m.grid.Cells {
		if c.Today {
			return c.Day
		}
	}
	return 0
}

func (m *Model) moveCursor(delta int) {
	d := m.selected + delta
	if d < 1 || d > m.grid.DaysInMonth {
		return
	}
	m.selected = d
}

func (m *Model) View() string {
	if m.mode == ViewHelp {
		return m.helpView()
	}

	cal := RenderMonth(m.grid, m.selected, m.styles)
	list := RenderEventList(m.ctrl.Events(), listLimit, m.styles)
	body := lipgloss.JoinHorizontal(lipgloss.Top, cal, list)

	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n\n")

	switch m.mode {
	case ViewAddDate:
		b.WriteString(m.styles.Prompt.Render("New event date"))
		b.WriteString("\n")
		labels := [3]string{"Day", "Month", "Year"}
		parts := make([]string, 0, len(m.dateInputs))
		for i, in := range m.dateInputs {
			parts = append(parts, labels[i]+" "+in.View())
		}
		b.WriteString(strings.Join(parts, "  "))
		b.WriteString("\n")
		b.WriteString(m.styles.Help.Render("tab: next field • enter: continue • esc: cancel"))
	case ViewAddName:
		b.WriteString(m.styles.Prompt.Render("Event on " + m.pending.String()))
		b.WriteString("\n")
		b.WriteString(m.nameInput.View())
		b.WriteString("\n")
		b.WriteString(m.styles.Help.Render("enter: save • esc: cancel"))
	case ViewRemove:
		b.WriteString(m.styles.Prompt.Render("Remove event on " + m.Selected().String()))
		b.WriteString("\n")
		for i, ev := range m.choices {
			line := "  " + ev.Name
			if i == m.choice {
				line = m.styles.Selected.UnsetWidth().UnsetHeight().Render("> " + ev.Name)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString(m.styles.Help.Render("↑/↓: select • enter: remove • esc: cancel"))
	default:
		b.WriteString(m.styles.Help.Render("←↑↓→: day • n/p: month • N/P: year • t: today • a: add • x: remove • ?: help • q: quit"))
	}

	if m.message != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Message.Render(m.message))
	}
	return b.String()
}

func (m *Model) helpView() string {
	lines := []string{
		m.styles.Prompt.Render("Keys"),
		"  ←/h →/l ↑/k ↓/j  move the day cursor",
		"  p / n            previous / next month",
		"  P / N            previous / next year",
		"  t                jump to today",
		"  a                add an event",
		"  x / enter        remove an event on the selected day",
		"  q / ctrl+c       quit",
		"",
		m.styles.Help.Render("press any key to return"),
	}
	return strings.Join(lines, "\n")
}

// Run starts the full-screen program and blocks until the user quits.
func Run(ctrl *app.Controller) error {
	p := tea.NewProgram(NewModel(ctrl), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		appLog.Error("tui exited with error", err)
		return err
	}
	return nil
}
