package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"deskcal/internal/grid"
	"deskcal/internal/model"
)

const cellWidth = 12

// Styles groups the lipgloss styles used by the month view.
type Styles struct {
	Title    lipgloss.Style
	Weekday  lipgloss.Style
	Cell     lipgloss.Style
	Blank    lipgloss.Style
	Today    lipgloss.Style
	Selected lipgloss.Style
	Event    lipgloss.Style
	List     lipgloss.Style
	Help     lipgloss.Style
	Message  lipgloss.Style
	Prompt   lipgloss.Style
}

// DefaultStyles is the lavender-on-plum theme of the desktop version.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#322B3D")).
			Italic(true).
			Bold(true).
			Align(lipgloss.Center).
			Width(cellWidth * grid.Cols),
		Weekday: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#322B3D")).
			Background(lipgloss.Color("#E6C8FA")).
			Align(lipgloss.Center).
			Width(cellWidth),
		Cell: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#322B3D")).
			Background(lipgloss.Color("#E6C8FA")).
			Align(lipgloss.Center).
			Width(cellWidth).
			Height(2),
		Blank: lipgloss.NewStyle().
			Background(lipgloss.Color("#E6C8FA")).
			Width(cellWidth).
			Height(2),
		Today: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#808080")).
			Align(lipgloss.Center).
			Width(cellWidth).
			Height(2),
		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#322B3D")).
			Bold(true).
			Align(lipgloss.Center).
			Width(cellWidth).
			Height(2),
		Event: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5B2A86")),
		List: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#322B3D")).
			Padding(0, 1).
			MarginLeft(2),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Message: lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Background(lipgloss.Color("235")).
			Padding(0, 1),
		Prompt: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B2A86")),
	}
}

// RenderMonth draws g as a 6x7 table. selected is the highlighted
// day-of-month, 0 for none.
func RenderMonth(g grid.Grid, selected int, st Styles) string {
	var b strings.Builder

	b.WriteString(st.Title.Render(g.Title()))
	b.WriteString("\n")

	header := make([]string, 0, grid.Cols)
	for _, name := range grid.WeekdayNames {
		header = append(header, st.Weekday.Render(truncate(name, cellWidth-2)))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, header...))
	b.WriteString("\n")

	for row := 0; row < grid.Rows; row++ {
		cells := make([]string, 0, grid.Cols)
		for col := 0; col < grid.Cols; col++ {
			cells = append(cells, renderCell(g.At(row, col), selected, st))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		if row < grid.Rows-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

func renderCell(c grid.Cell, selected int, st Styles) string {
	if c.Blank() {
		return st.Blank.Render("")
	}

	label := ""
	if c.Label != "" {
		label = c.Label
		if c.More > 0 {
			suffix := " +" + strconv.Itoa(c.More)
			label = truncate(label, cellWidth-2-len(suffix)) + suffix
		} else {
			label = truncate(label, cellWidth-2)
		}
	}
	content := strconv.Itoa(c.Day) + "\n" + label

	switch {
	case c.Day == selected:
		return st.Selected.Render(content)
	case c.Today:
		return st.Today.Render(content)
	default:
		return st.Cell.Render(content)
	}
}

// RenderEventList draws the side list of all events, newest entries last,
// capped at max lines.
func RenderEventList(events []model.Event, max int, st Styles) string {
	lines := []string{st.Prompt.Render("Events")}
	if len(events) == 0 {
		lines = append(lines, st.Help.Render("(none)"))
	}
	for i, ev := range events {
		if i == max {
			lines = append(lines, st.Help.Render("… "+strconv.Itoa(len(events)-max)+" more"))
			break
		}
		lines = append(lines, st.Event.Render(ev.String()))
	}
	return st.List.Render(strings.Join(lines, "\n"))
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
