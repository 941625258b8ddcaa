package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gunwale-io/bailer/cli/reader"
)

// visiblePoints caps how many scan rows the dump view shows at once; the
// cursor scrolls the window.
const visiblePoints = 12

// InspectModel is a Bubble Tea model for the dump inspect view.
type InspectModel struct {
	viewType string
	data     any
	width    int
	height   int
	cursor   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case key.Matches(msg, keys.Down):
			if m.cursor < m.pointCount()-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	return m, nil
}

func (m InspectModel) pointCount() int {
	view, ok := m.data.(*reader.DumpView)
	if !ok || view.Scan == nil {
		return 0
	}
	return len(view.Scan.Points)
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "inspect_dump":
		content = m.renderInspectDump()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("↑/↓ scroll, q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m InspectModel) renderInspectDump() string {
	view, ok := m.data.(*reader.DumpView)
	if !ok {
		return "Invalid data type for inspect_dump"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Dump File"))
	b.WriteString("\n\n")

	rows := [][]string{
		{"Path", view.Path},
		{"Size", fmt.Sprintf("%d bytes", view.SizeBytes)},
		{"Seeds", formatSeeds(view.Seeds)},
	}
	if view.InvertBytes > 0 {
		rows = append(rows, []string{"Scan Artifact", fmt.Sprintf("%d bytes", view.InvertBytes)})
	}
	if view.TestBytes > 0 {
		rows = append(rows, []string{"Test Artifact", fmt.Sprintf("%d bytes", view.TestBytes)})
	}
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%s %s\n",
			LabelStyle.Render(row[0]+":"),
			ValueStyle.Render(row[1])))
	}

	if view.Scan != nil {
		b.WriteString("\n")
		b.WriteString(m.renderScan(view.Scan))
	}
	if view.Test != nil {
		b.WriteString("\n")
		b.WriteString(m.renderTest(view.Test))
	}

	return BoxStyle.Render(b.String())
}

func (m InspectModel) renderScan(scan *reader.ScanView) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Scan: %s (%s)", scan.Workspace, scan.POI)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Calculator:"),
		ValueStyle.Render(scan.Calculator)))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Statistic:"),
		ValueStyle.Render(scan.Statistic)))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("CL:"),
		ValueStyle.Render(fmt.Sprintf("%.2f", scan.CL))))
	b.WriteString("\n")

	header := fmt.Sprintf("  %10s %8s %8s %8s %8s %12s", scan.POI, "toys", "CLs", "CLs+b", "CLb", "expected CLs")
	b.WriteString(LabelStyle.Width(0).Render(header))
	b.WriteString("\n")

	start, end := window(m.cursor, len(scan.Points), visiblePoints)
	for i := start; i < end; i++ {
		pt := scan.Points[i]
		line := fmt.Sprintf("  %10.4g %8d %8.4f %8.4f %8.4f %12.4f",
			pt.X, pt.Toys, pt.CLs, pt.CLsb, pt.CLb, pt.ExpectedCLs)
		if i == m.cursor {
			line = lipgloss.NewStyle().Foreground(highlightColor).Bold(true).Render(line)
		} else {
			line = ValueStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	if end < len(scan.Points) {
		b.WriteString(HelpStyle.Render(fmt.Sprintf("  … %d more points", len(scan.Points)-end)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m InspectModel) renderTest(test *reader.TestView) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Hypothesis Test"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Toys:"),
		ValueStyle.Render(fmt.Sprintf("%d", test.Toys))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Null p-value:"),
		ValueStyle.Render(fmt.Sprintf("%.5f", test.NullPValue))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Alt p-value:"),
		ValueStyle.Render(fmt.Sprintf("%.5f", test.AltPValue))))
	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Significance:"),
		ValueStyle.Render(fmt.Sprintf("%.3f sigma", test.Significance))))
	return b.String()
}

// window picks the visible slice [start, end) keeping cursor in view.
func window(cursor, total, size int) (int, int) {
	if total <= size {
		return 0, total
	}
	start := cursor - size/2
	if start < 0 {
		start = 0
	}
	if start+size > total {
		start = total - size
	}
	return start, start + size
}

func formatSeeds(seeds []uint32) string {
	if len(seeds) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(seeds))
	for _, s := range seeds {
		parts = append(parts, fmt.Sprintf("0x%08x", s))
	}
	return strings.Join(parts, ", ")
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
	Up   key.Binding
	Down key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without full TUI (for fallback).
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
