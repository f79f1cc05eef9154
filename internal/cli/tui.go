package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/flowcraft/pkg/validate"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// filterCycle is the order the tab key steps through; "" shows every level.
var filterCycle = []validate.Level{"", validate.LevelError, validate.LevelWarning, validate.LevelInfo}

// =============================================================================
// LogViewModel - Interactive validation log
// =============================================================================

// LogViewModel is the bubbletea model for browsing a validation log.
type LogViewModel struct {
	Result validate.Result
	Filter validate.Level
	Offset int
	Height int
}

// NewLogViewModel creates a viewer showing every entry of res.
func NewLogViewModel(res validate.Result) LogViewModel {
	return LogViewModel{Result: res, Height: 15}
}

func (m LogViewModel) Init() tea.Cmd {
	return nil
}

func (m LogViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Offset > 0 {
				m.Offset--
			}
		case "down", "j":
			if m.Offset < m.maxOffset() {
				m.Offset++
			}
		case "tab":
			m.Filter = nextFilter(m.Filter)
			m.Offset = 0
		case "e":
			m.Filter, m.Offset = validate.LevelError, 0
		case "w":
			m.Filter, m.Offset = validate.LevelWarning, 0
		case "i":
			m.Filter, m.Offset = validate.LevelInfo, 0
		case "a":
			m.Filter, m.Offset = "", 0
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
		if m.Offset > m.maxOffset() {
			m.Offset = m.maxOffset()
		}
	}
	return m, nil
}

// Visible returns the entries that pass the current filter.
func (m LogViewModel) Visible() []validate.LogEntry {
	if m.Filter == "" {
		return m.Result.Logs
	}
	var out []validate.LogEntry
	for _, e := range m.Result.Logs {
		if e.Level == m.Filter {
			out = append(out, e)
		}
	}
	return out
}

func (m LogViewModel) maxOffset() int {
	return max(0, len(m.Visible())-m.Height)
}

func (m LogViewModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Validation Log"))
	b.WriteString("  ")
	if m.Result.IsValid {
		b.WriteString(StyleSuccess.Render(iconSuccess + " valid"))
	} else {
		b.WriteString(StyleError.Render(iconError + " invalid"))
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ scroll  tab filter  e/w/i/a level  q quit"))
	b.WriteString("\n\n")

	entries := m.Visible()
	end := min(m.Offset+m.Height, len(entries))
	rows := [][]string{}
	for _, e := range entries[m.Offset:end] {
		rows = append(rows, []string{e.Timestamp.Format("15:04:05.000"), string(e.Level), e.Message})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Time", "Level", "Message").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return listDimStyle
			}
			idx := m.Offset + row
			if idx >= len(entries) {
				return lipgloss.NewStyle()
			}
			switch entries[idx].Level {
			case validate.LevelError:
				return StyleError
			case validate.LevelWarning:
				return StyleWarning
			default:
				return StyleValue
			}
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")

	filter := "all"
	if m.Filter != "" {
		filter = string(m.Filter)
	}
	counts := m.Result.Counts()
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d] filter: %s · %d errors · %d warnings",
		len(entries), len(m.Result.Logs), filter, counts.Error, counts.Warning)))

	return b.String()
}

func nextFilter(cur validate.Level) validate.Level {
	for i, l := range filterCycle {
		if l == cur {
			return filterCycle[(i+1)%len(filterCycle)]
		}
	}
	return ""
}

// runLogViewer blocks until the user quits the viewer.
func runLogViewer(res validate.Result) error {
	_, err := tea.NewProgram(NewLogViewModel(res)).Run()
	return err
}
