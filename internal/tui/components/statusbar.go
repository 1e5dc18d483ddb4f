package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/facedeck/facedeck/internal/domain"
	"github.com/facedeck/facedeck/internal/tui/styles"
)

// StatusBar renders the single-line footer: face counts, cache fill, the
// active operation's progress, and the progress channel state.
type StatusBar struct {
	width int

	faceCount   int
	cacheSize   int
	imported    bool
	importing   bool
	channelSt   domain.ChannelState
	serverOK    bool
	healthKnown bool

	progressMsg string
	message     string
	isError     bool
}

// NewStatusBar creates a status bar component.
func NewStatusBar() StatusBar {
	return StatusBar{channelSt: domain.ChannelDisconnected}
}

// SetSize updates the component width.
func (s *StatusBar) SetSize(width int) {
	s.width = width
}

// SetCounts updates the face and cache counters.
func (s *StatusBar) SetCounts(faces, cached int, imported bool) {
	s.faceCount = faces
	s.cacheSize = cached
	s.imported = imported
}

// SetImporting marks whether a bulk operation is running.
func (s *StatusBar) SetImporting(importing bool) {
	s.importing = importing
	if !importing {
		s.progressMsg = ""
	}
}

// SetChannelState updates the progress channel indicator.
func (s *StatusBar) SetChannelState(st domain.ChannelState) {
	s.channelSt = st
}

// SetHealth records the last backend health probe result.
func (s *StatusBar) SetHealth(ok bool) {
	s.serverOK = ok
	s.healthKnown = true
}

// SetProgress updates the live progress line from a channel event.
func (s *StatusBar) SetProgress(ev domain.ProgressEvent) {
	switch ev.Kind {
	case domain.EventProgress:
		if ev.Total > 0 {
			s.progressMsg = fmt.Sprintf("%d/%d", ev.Processed, ev.Total)
		}
	case domain.EventItemSuccess, domain.EventItemFailure, domain.EventItemError:
		if ev.Item != "" {
			s.progressMsg = ev.Item
		}
	}
}

// SetMessage shows a transient informational message.
func (s *StatusBar) SetMessage(msg string) {
	s.message = msg
	s.isError = false
}

// SetError shows a transient error message.
func (s *StatusBar) SetError(msg string) {
	s.message = msg
	s.isError = true
}

// ClearMessage removes the transient message.
func (s *StatusBar) ClearMessage() {
	s.message = ""
	s.isError = false
}

// View renders the component
func (s StatusBar) View() string {
	var left []string

	left = append(left, fmt.Sprintf("%d faces", s.faceCount))
	left = append(left, fmt.Sprintf("%d cached", s.cacheSize))
	if s.imported {
		left = append(left, styles.SuccessStyle.Render("imported"))
	}
	if s.importing {
		op := "importing"
		if s.progressMsg != "" {
			op += " " + s.progressMsg
		}
		left = append(left, styles.AccentStyle.Render(op))
	}
	if s.message != "" {
		if s.isError {
			left = append(left, styles.ErrorStyle.Render(s.message))
		} else {
			left = append(left, s.message)
		}
	}

	right := s.renderChannel()

	leftStr := " " + strings.Join(left, "  ") + " "
	gap := s.width - lipgloss.Width(leftStr) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return styles.StatusBarStyle.Width(s.width).Render(leftStr + strings.Repeat(" ", gap) + right)
}

// renderChannel formats the channel state plus server availability.
func (s StatusBar) renderChannel() string {
	var parts []string

	if s.healthKnown && !s.serverOK {
		parts = append(parts, styles.ConnDownStyle.Render("server offline"))
	}

	label := "ws:" + strings.ToLower(s.channelSt.String())
	if s.channelSt == domain.ChannelOpen {
		parts = append(parts, styles.ConnOpenStyle.Render(label))
	} else {
		parts = append(parts, styles.ConnDownStyle.Render(label))
	}

	return strings.Join(parts, "  ") + " "
}
