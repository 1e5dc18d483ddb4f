package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/facedeck/facedeck/internal/domain"
	"github.com/facedeck/facedeck/internal/tui/styles"
)

// logCapacity bounds the retained console lines.
const logCapacity = 500

// LogView shows the rolling console output relayed by the backend during bulk
// operations. Lines beyond the capacity fall off the front.
type LogView struct {
	lines []logLine

	width  int
	height int
	offset int // lines scrolled up from the tail
}

type logLine struct {
	level string
	text  string
}

// NewLogView creates a console log component.
func NewLogView() LogView {
	return LogView{}
}

// Append adds a console event to the tail of the log.
func (l *LogView) Append(ev domain.ProgressEvent) {
	if ev.Message == "" {
		return
	}
	l.lines = append(l.lines, logLine{level: ev.Level, text: ev.Message})
	if len(l.lines) > logCapacity {
		l.lines = l.lines[len(l.lines)-logCapacity:]
	}
	// Stay pinned to the tail unless the user scrolled away
	if l.offset > 0 {
		l.offset++
	}
}

// Clear drops all retained lines.
func (l *LogView) Clear() {
	l.lines = nil
	l.offset = 0
}

// Len returns the number of retained lines.
func (l LogView) Len() int {
	return len(l.lines)
}

// SetSize updates the component dimensions
func (l *LogView) SetSize(width, height int) {
	l.width = width
	l.height = height
}

// Update handles scroll keys while the log view is open.
func (l LogView) Update(msg tea.Msg) (LogView, tea.Cmd) {
	visible := l.visibleLines()
	maxOffset := len(l.lines) - visible
	if maxOffset < 0 {
		maxOffset = 0
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "k", "up":
			if l.offset < maxOffset {
				l.offset++
			}
		case "j", "down":
			if l.offset > 0 {
				l.offset--
			}
		case "g", "home":
			l.offset = maxOffset
		case "G", "end":
			l.offset = 0
		}
	}
	return l, nil
}

func (l LogView) visibleLines() int {
	v := l.height - BorderHeight - 1 // title line
	if v < 1 {
		v = 1
	}
	return v
}

// View renders the component
func (l LogView) View() string {
	style := styles.ActiveBorder

	contentWidth := l.width - BorderWidth - HorizontalPadding
	if contentWidth < 10 {
		contentWidth = 10
	}

	var b strings.Builder
	b.WriteString(styles.AccentStyle.Render("Console"))
	b.WriteString("\n")

	if len(l.lines) == 0 {
		b.WriteString(styles.DimStyle.Render("No console output"))
	} else {
		visible := l.visibleLines()
		end := len(l.lines) - l.offset
		if end < 0 {
			end = 0
		}
		start := end - visible
		if start < 0 {
			start = 0
		}

		rendered := make([]string, 0, end-start)
		for _, line := range l.lines[start:end] {
			text := styles.Truncate(line.text, contentWidth)
			switch line.level {
			case "error":
				text = styles.ErrorStyle.Render(text)
			case "warning":
				text = styles.AccentStyle.Render(text)
			default:
				text = styles.DimStyle.Render(text)
			}
			rendered = append(rendered, text)
		}
		b.WriteString(strings.Join(rendered, "\n"))
	}

	frameW, frameH := style.GetFrameSize()
	return style.
		Width(l.width - frameW).
		Height(l.height - frameH).
		Render(b.String())
}
