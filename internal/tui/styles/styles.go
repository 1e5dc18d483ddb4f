package styles

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Amber      = lipgloss.Color("#E5A00D")
	SlateDark  = lipgloss.Color("#1F2937")
	SlateLight = lipgloss.Color("#374151")
	DimGray    = lipgloss.Color("#6B7280")
	LightGray  = lipgloss.Color("#9CA3AF")
	White      = lipgloss.Color("#F9FAFB")
	Green      = lipgloss.Color("#10B981")
	Red        = lipgloss.Color("#EF4444")
	Blue       = lipgloss.Color("#3B82F6")
)

// Borders
var (
	ActiveBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Amber)

	InactiveBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DimGray)
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(Amber)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)

	FilterPromptStyle = lipgloss.NewStyle().
				Foreground(Amber)

	FilterStyle = lipgloss.NewStyle().
			Foreground(White)
)

// Metadata badge characters
const (
	FullMetaChar    = "✓" // Landmarks and segmentation cached
	PartialMetaChar = "◐" // Landmarks only
	BookmarkChar    = "●"
	SelectChar      = "*"
)

// Badge styles
var (
	FullMetaStyle    = lipgloss.NewStyle().Foreground(Green)
	PartialMetaStyle = lipgloss.NewStyle().Foreground(Amber)
	BookmarkStyle    = lipgloss.NewStyle().Foreground(Blue)
	SelectStyle      = lipgloss.NewStyle().Foreground(Amber)
)

// Cell styles
var (
	SelectedCellStyle = lipgloss.NewStyle().
				Foreground(White).
				Background(SlateLight)

	NormalCellStyle = lipgloss.NewStyle().
			Foreground(LightGray)

	MarkedCellStyle = lipgloss.NewStyle().
			Foreground(Amber)
)

// StatusBar styles
var (
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			Background(SlateDark)

	ConnOpenStyle = lipgloss.NewStyle().
			Foreground(Green).
			Background(SlateDark)

	ConnDownStyle = lipgloss.NewStyle().
			Foreground(Red).
			Background(SlateDark)
)

// Truncate shortens a string to width characters, ellipsizing when possible
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}

// Pad pads a string to the given width
func Pad(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + spaces(width-len(s))
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
