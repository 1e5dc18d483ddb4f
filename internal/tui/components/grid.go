package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"

	"github.com/facedeck/facedeck/internal/domain"
	"github.com/facedeck/facedeck/internal/tui/styles"
)

// Layout constants for grid
const (
	// Border adds 1 char on each side (left+right for width, top+bottom for height)
	BorderWidth  = 2
	BorderHeight = 2

	// Padding inside the border (Padding(0,1) = 1 left + 1 right)
	HorizontalPadding = 2

	// Scroll indicators ("↑ more" and "↓ more") each take 1 line
	ScrollIndicatorLines = 2

	// Directory breadcrumb line at top of content area
	BreadcrumbLines = 1
)

// Grid is the virtualized face browser. It renders only the rows inside the
// viewport and reads metadata badge state straight from the cache reader;
// fetches for newly exposed identities are driven by the caller through
// NewlyVisible.
type Grid struct {
	records []*domain.FaceRecord
	meta    domain.MetadataReader

	// Selection
	cursor     int // index into the filtered view
	offsetRow  int
	columns    int
	maxColumns int // 0 means as many as fit
	maxRows    int

	// Dimensions
	cellWidth int
	width     int
	height    int
	focused   bool

	breadcrumb string

	// Filter state
	filterActive bool
	filterInput  textinput.Model
	filterQuery  string
	filteredIdx  []int // indices into records

	// Identities exposed by the last viewport pass
	lastVisible map[string]struct{}
}

// NewGrid creates a grid reading badge state from the given metadata reader.
func NewGrid(meta domain.MetadataReader, cellWidth int) Grid {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle

	if cellWidth < 8 {
		cellWidth = 8
	}

	return Grid{
		meta:        meta,
		cellWidth:   cellWidth,
		columns:     1,
		filterInput: ti,
		lastVisible: make(map[string]struct{}),
	}
}

// SetRecords replaces the face set. Cursor, scroll, filter, and the visibility
// memory all reset; every identity in the next viewport counts as newly
// visible again.
func (g *Grid) SetRecords(records []*domain.FaceRecord) {
	g.records = records
	g.cursor = 0
	g.offsetRow = 0
	g.lastVisible = make(map[string]struct{})
	g.clearFilter()
}

// Records returns the full unfiltered face set.
func (g Grid) Records() []*domain.FaceRecord {
	return g.records
}

// SetSize updates the component dimensions and recomputes the column count.
func (g *Grid) SetSize(width, height int) {
	g.width = width
	g.height = height
	g.recalcLayout()
	g.ensureVisible()
}

// SetMaxColumns caps the column count. Zero means no cap.
func (g *Grid) SetMaxColumns(n int) {
	g.maxColumns = n
	g.recalcLayout()
	g.ensureVisible()
}

// SetBreadcrumb sets the directory path displayed above the grid.
func (g *Grid) SetBreadcrumb(crumb string) {
	g.breadcrumb = crumb
}

// recalcLayout derives columns and visible rows from the current dimensions.
func (g *Grid) recalcLayout() {
	interiorWidth := g.width - BorderWidth - HorizontalPadding
	g.columns = interiorWidth / g.cellWidth
	if g.maxColumns > 0 && g.columns > g.maxColumns {
		g.columns = g.maxColumns
	}
	if g.columns < 1 {
		g.columns = 1
	}

	interiorHeight := g.height - BorderHeight
	g.maxRows = interiorHeight - ScrollIndicatorLines - BreadcrumbLines
	if g.filterActive {
		g.maxRows--
	}
	if g.maxRows < 1 {
		g.maxRows = 1
	}
}

// SetFocused sets the focus state
func (g *Grid) SetFocused(focused bool) {
	g.focused = focused
}

// IsFocused returns the focus state
func (g Grid) IsFocused() bool {
	return g.focused
}

// Cursor returns the current cursor position within the filtered view.
func (g Grid) Cursor() int {
	return g.cursor
}

// SelectedRecord returns the face under the cursor, or nil when empty.
func (g Grid) SelectedRecord() *domain.FaceRecord {
	count := g.itemCount()
	if count == 0 || g.cursor >= count {
		return nil
	}
	return g.records[g.mapIndex(g.cursor)]
}

// IsEmpty returns true if there are no faces to show.
func (g Grid) IsEmpty() bool {
	return g.itemCount() == 0
}

// itemCount returns the number of faces in the filtered view.
func (g Grid) itemCount() int {
	if g.filteredIdx != nil {
		return len(g.filteredIdx)
	}
	return len(g.records)
}

// mapIndex maps a position in the filtered view to an index into records.
func (g Grid) mapIndex(i int) int {
	if g.filteredIdx != nil && i < len(g.filteredIdx) {
		return g.filteredIdx[i]
	}
	return i
}

// rowCount returns the number of grid rows in the filtered view.
func (g Grid) rowCount() int {
	count := g.itemCount()
	if count == 0 {
		return 0
	}
	return (count + g.columns - 1) / g.columns
}

// ensureVisible scrolls so the cursor's row is inside the viewport.
func (g *Grid) ensureVisible() {
	row := g.cursor / g.columns
	if row < g.offsetRow {
		g.offsetRow = row
	}
	if row >= g.offsetRow+g.maxRows {
		g.offsetRow = row - g.maxRows + 1
	}
	if g.offsetRow < 0 {
		g.offsetRow = 0
	}
}

// VisibleIdentities returns the identities inside the current viewport.
func (g Grid) VisibleIdentities() []string {
	count := g.itemCount()
	start := g.offsetRow * g.columns
	end := (g.offsetRow + g.maxRows) * g.columns
	if end > count {
		end = count
	}
	if start >= end {
		return nil
	}

	ids := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		ids = append(ids, g.records[g.mapIndex(i)].Identity)
	}
	return ids
}

// NewlyVisible diffs the current viewport against the previous pass and
// returns only the identities that just scrolled into view. Identities that
// were already visible are not reported again.
func (g *Grid) NewlyVisible() []string {
	visible := g.VisibleIdentities()
	seen := make(map[string]struct{}, len(visible))

	var fresh []string
	for _, id := range visible {
		seen[id] = struct{}{}
		if _, ok := g.lastVisible[id]; !ok {
			fresh = append(fresh, id)
		}
	}
	g.lastVisible = seen
	return fresh
}

// CursorToIdentity moves the cursor onto the face with the given identity,
// dropping any active filter so the target is always reachable.
func (g *Grid) CursorToIdentity(identity string) bool {
	for i, record := range g.records {
		if record.Identity == identity {
			if g.filterActive {
				g.clearFilter()
			}
			g.cursor = i
			g.ensureVisible()
			return true
		}
	}
	return false
}

// ToggleFilter activates the filter input
func (g *Grid) ToggleFilter() {
	g.filterActive = true
	g.filterInput.Focus()
	g.recalcLayout()
}

// IsFiltering returns true if filter mode is active (showing filtered results)
func (g Grid) IsFiltering() bool {
	return g.filterActive
}

// IsFilterTyping returns true if filter is active AND input is focused (typing mode)
func (g Grid) IsFilterTyping() bool {
	return g.filterActive && g.filterInput.Focused()
}

// ClearFilter deactivates the filter and shows all faces.
func (g *Grid) ClearFilter() {
	g.clearFilter()
}

func (g *Grid) clearFilter() {
	g.filterActive = false
	g.filterQuery = ""
	g.filteredIdx = nil
	g.filterInput.SetValue("")
	g.filterInput.Blur()
	g.recalcLayout()
}

// applyFilter narrows the view to fuzzy matches on the filename.
func (g *Grid) applyFilter() {
	query := g.filterInput.Value()
	g.filterQuery = query

	if query == "" {
		g.filteredIdx = nil
		return
	}

	names := make([]string, len(g.records))
	for i, r := range g.records {
		names[i] = strings.ToLower(r.Filename)
	}

	matches := fuzzy.Find(strings.ToLower(query), names)
	g.filteredIdx = make([]int, len(matches))
	for i, match := range matches {
		g.filteredIdx[i] = match.Index
	}

	g.cursor = 0
	g.offsetRow = 0
}

// Init initializes the component
func (g Grid) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (g Grid) Update(msg tea.Msg) (Grid, tea.Cmd) {
	if !g.focused {
		return g, nil
	}

	// Typing mode: route keys to the filter input
	if g.filterActive && g.filterInput.Focused() {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			switch msg.String() {
			case "esc":
				g.clearFilter()
				return g, nil
			case "enter":
				// Accept filter, blur input to allow navigation
				g.filterInput.Blur()
				return g, nil
			case "backspace":
				if g.filterInput.Value() == "" {
					g.clearFilter()
					return g, nil
				}
			}
		}

		var cmd tea.Cmd
		g.filterInput, cmd = g.filterInput.Update(msg)
		g.applyFilter()
		return g, cmd
	}

	// Navigation mode with an accepted filter still applied
	if g.filterActive {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			switch msg.String() {
			case "esc":
				g.clearFilter()
				return g, nil
			case "/":
				g.filterInput.Focus()
				return g, nil
			}
		}
	}

	count := g.itemCount()
	if count == 0 {
		return g, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "l", "right":
			if g.cursor < count-1 {
				g.cursor++
				g.ensureVisible()
			}
		case "h", "left":
			if g.cursor > 0 {
				g.cursor--
				g.ensureVisible()
			}
		case "j", "down":
			if g.cursor+g.columns < count {
				g.cursor += g.columns
			} else if g.cursor/g.columns < (count-1)/g.columns {
				g.cursor = count - 1
			}
			g.ensureVisible()
		case "k", "up":
			if g.cursor-g.columns >= 0 {
				g.cursor -= g.columns
			}
			g.ensureVisible()
		case "g", "home":
			g.cursor = 0
			g.offsetRow = 0
		case "G", "end":
			g.cursor = count - 1
			g.ensureVisible()
		case "ctrl+d", "pgdown":
			g.cursor += g.maxRows * g.columns
			if g.cursor >= count {
				g.cursor = count - 1
			}
			g.ensureVisible()
		case "ctrl+u", "pgup":
			g.cursor -= g.maxRows * g.columns
			if g.cursor < 0 {
				g.cursor = 0
			}
			g.ensureVisible()
		}
	}

	return g, nil
}

// View renders the component
func (g Grid) View() string {
	style := styles.InactiveBorder
	if g.focused {
		style = styles.ActiveBorder
	}

	content := g.renderGrid()

	frameW, frameH := style.GetFrameSize()
	return style.
		Width(g.width - frameW).
		Height(g.height - frameH).
		Render(content)
}

// renderGrid renders the visible rows of face cells.
func (g Grid) renderGrid() string {
	interiorWidth := g.width - BorderWidth - HorizontalPadding

	breadcrumbLine := " "
	if g.breadcrumb != "" {
		crumb := g.breadcrumb
		if len(crumb) > interiorWidth {
			crumb = "..." + crumb[len(crumb)-interiorWidth+3:]
		}
		breadcrumbLine = styles.AccentStyle.Render(crumb)
	}

	count := g.itemCount()
	if count == 0 {
		emptyMsg := styles.DimStyle.Render("No faces")
		if g.filterActive && g.filterQuery != "" {
			emptyMsg = styles.DimStyle.Render("No matches")
		}
		return breadcrumbLine + "\n" + " " + "\n" + emptyMsg + "\n" + " "
	}

	rows := g.rowCount()
	endRow := g.offsetRow + g.maxRows
	if endRow > rows {
		endRow = rows
	}

	var lines []string
	for row := g.offsetRow; row < endRow; row++ {
		var cells []string
		for col := 0; col < g.columns; col++ {
			i := row*g.columns + col
			if i >= count {
				break
			}
			record := g.records[g.mapIndex(i)]
			cells = append(cells, g.renderCell(record, i == g.cursor))
		}
		lines = append(lines, strings.Join(cells, ""))
	}

	// Reserve the indicator lines even when empty to avoid layout shifts
	header := " "
	if g.offsetRow > 0 {
		header = styles.DimStyle.Render("↑ more")
	}
	footer := " "
	if endRow < rows {
		footer = styles.DimStyle.Render("↓ more")
	}

	content := breadcrumbLine + "\n" + header + "\n" + strings.Join(lines, "\n") + "\n" + footer

	if g.filterActive {
		content += "\n" + g.renderFilterBar()
	}

	return content
}

// renderCell renders one face cell: marks, truncated filename, metadata badge.
func (g Grid) renderCell(record *domain.FaceRecord, selected bool) string {
	badge := " "
	if entry, ok := g.meta.GetCached(record.Identity); ok {
		if entry.HasSegmentation() {
			badge = styles.FullMetaStyle.Render(styles.FullMetaChar)
		} else if entry.HasLandmarks() {
			badge = styles.PartialMetaStyle.Render(styles.PartialMetaChar)
		}
	}

	mark := " "
	if record.Selected {
		mark = styles.SelectStyle.Render(styles.SelectChar)
	} else if record.Bookmarked {
		mark = styles.BookmarkStyle.Render(styles.BookmarkChar)
	}

	// mark + space + name + space + badge + space
	nameWidth := g.cellWidth - 5
	name := styles.Pad(styles.Truncate(record.Filename, nameWidth), nameWidth)

	cellStyle := styles.NormalCellStyle
	if selected {
		cellStyle = styles.SelectedCellStyle
	} else if record.Selected || record.Bookmarked {
		cellStyle = styles.MarkedCellStyle
	}

	return cellStyle.Render(fmt.Sprintf("%s %s %s ", mark, name, badge))
}

// renderFilterBar renders the filter input bar
func (g Grid) renderFilterBar() string {
	input := g.filterInput.View()
	countStr := ""
	if g.filterQuery != "" {
		countStr = styles.DimStyle.Render(fmt.Sprintf(" [%d/%d]", g.itemCount(), len(g.records)))
	}
	return input + countStr
}
