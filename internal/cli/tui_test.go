package cli

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/flowcraft/pkg/validate"
)

func sampleResult(n int) validate.Result {
	levels := []validate.Level{validate.LevelInfo, validate.LevelWarning, validate.LevelError}
	res := validate.Result{IsValid: false}
	for i := range n {
		res.Logs = append(res.Logs, validate.LogEntry{
			Timestamp: time.Date(2024, 1, 1, 12, 0, i, 0, time.UTC),
			Message:   fmt.Sprintf("entry %d", i),
			Level:     levels[i%len(levels)],
		})
	}
	return res
}

func press(m LogViewModel, key string) LogViewModel {
	var msg tea.KeyMsg
	switch key {
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, _ := m.Update(msg)
	return next.(LogViewModel)
}

func TestLogViewFilter(t *testing.T) {
	m := NewLogViewModel(sampleResult(9))

	tests := []struct {
		key   string
		want  validate.Level
		count int
	}{
		{"tab", validate.LevelError, 3},
		{"tab", validate.LevelWarning, 3},
		{"tab", validate.LevelInfo, 3},
		{"tab", "", 9},
		{"e", validate.LevelError, 3},
		{"a", "", 9},
	}
	for _, tt := range tests {
		m = press(m, tt.key)
		if m.Filter != tt.want || len(m.Visible()) != tt.count {
			t.Errorf("after %q: filter = %q, visible = %d; want %q, %d", tt.key, m.Filter, len(m.Visible()), tt.want, tt.count)
		}
	}
}

func TestLogViewScroll(t *testing.T) {
	m := NewLogViewModel(sampleResult(20))
	m.Height = 5

	m = press(m, "up")
	if m.Offset != 0 {
		t.Errorf("Offset = %d after up at top", m.Offset)
	}
	for range 30 {
		m = press(m, "down")
	}
	if m.Offset != 15 {
		t.Errorf("Offset = %d, want clamped to 15", m.Offset)
	}

	m = press(m, "w")
	if m.Offset != 0 {
		t.Errorf("changing the filter should reset Offset, got %d", m.Offset)
	}

	next, _ := m.Update(tea.WindowSizeMsg{Height: 4})
	if got := next.(LogViewModel).Height; got != 5 {
		t.Errorf("Height = %d, want minimum 5", got)
	}
}

func TestLogViewQuit(t *testing.T) {
	m := NewLogViewModel(sampleResult(1))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestLogViewRender(t *testing.T) {
	m := NewLogViewModel(sampleResult(3))
	view := m.View()
	for _, want := range []string{"Validation Log", "entry 0", "entry 2", "12:00:01.000", "invalid"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
	m = press(m, "e")
	if view := m.View(); strings.Contains(view, "entry 0") || !strings.Contains(view, "entry 2") {
		t.Errorf("error filter view:\n%s", view)
	}
}
