package components

import (
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/facedeck/facedeck/internal/domain"
)

type fakeMeta struct {
	entries map[string]domain.MetadataEntry
}

func (f fakeMeta) GetCached(id string) (domain.MetadataEntry, bool) {
	e, ok := f.entries[id]
	return e, ok
}

func (f fakeMeta) Imported() bool { return false }

func makeRecords(n int) []*domain.FaceRecord {
	records := make([]*domain.FaceRecord, n)
	for i := range records {
		records[i] = &domain.FaceRecord{
			Identity: fmt.Sprintf("face_%02d", i),
			Filename: fmt.Sprintf("face_%02d.jpg", i),
		}
	}
	return records
}

// newTestGrid builds a focused grid with 2 columns and 3 visible rows.
func newTestGrid(n int, meta domain.MetadataReader) Grid {
	if meta == nil {
		meta = fakeMeta{}
	}
	g := NewGrid(meta, 10)
	g.SetFocused(true)
	// interior width 24-4=20 -> 2 columns; 8-5 -> 3 rows
	g.SetSize(24, 8)
	g.SetRecords(makeRecords(n))
	return g
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestNewlyVisibleReportsEachIdentityOnce(t *testing.T) {
	g := newTestGrid(20, nil)

	// First pass: the whole viewport (3 rows x 2 cols) is new
	fresh := g.NewlyVisible()
	if len(fresh) != 6 {
		t.Fatalf("expected 6 newly visible identities, got %d: %v", len(fresh), fresh)
	}

	// Unchanged viewport: nothing is new
	if fresh := g.NewlyVisible(); len(fresh) != 0 {
		t.Errorf("unchanged viewport reported %v as new", fresh)
	}

	// Scroll one row down: exactly one fresh row
	for i := 0; i < 3; i++ {
		g, _ = g.Update(keyMsg("j"))
	}
	fresh = g.NewlyVisible()
	if len(fresh) != 2 {
		t.Fatalf("expected 2 newly visible identities after scrolling one row, got %v", fresh)
	}
	if fresh[0] != "face_06" || fresh[1] != "face_07" {
		t.Errorf("wrong row reported new: %v", fresh)
	}
}

func TestSetRecordsResetsVisibilityMemory(t *testing.T) {
	g := newTestGrid(20, nil)
	g.NewlyVisible()

	g.SetRecords(makeRecords(20))
	if fresh := g.NewlyVisible(); len(fresh) != 6 {
		t.Errorf("expected full viewport after SetRecords, got %d identities", len(fresh))
	}
}

func TestSetMaxColumnsCapsLayout(t *testing.T) {
	g := newTestGrid(10, nil)
	g.NewlyVisible()

	// The test grid fits 2 columns; capping at 1 halves the viewport, so
	// moving right now advances a full row.
	g.SetMaxColumns(1)
	g, _ = g.Update(keyMsg("l"))
	if got := g.SelectedRecord().Identity; got != "face_01" {
		t.Errorf("expected face_01 after right with 1 column, got %s", got)
	}
	if row := g.cursor / g.columns; row != 1 {
		t.Errorf("expected cursor on row 1, got row %d", row)
	}

	g.SetMaxColumns(0)
	if g.columns != 2 {
		t.Errorf("expected 2 columns with cap removed, got %d", g.columns)
	}
}

func TestGridNavigation(t *testing.T) {
	g := newTestGrid(10, nil)

	g, _ = g.Update(keyMsg("l"))
	if got := g.SelectedRecord().Identity; got != "face_01" {
		t.Errorf("after right: %s", got)
	}

	g, _ = g.Update(keyMsg("j"))
	if got := g.SelectedRecord().Identity; got != "face_03" {
		t.Errorf("after down: %s", got)
	}

	g, _ = g.Update(keyMsg("k"))
	if got := g.SelectedRecord().Identity; got != "face_01" {
		t.Errorf("after up: %s", got)
	}

	g, _ = g.Update(keyMsg("G"))
	if got := g.SelectedRecord().Identity; got != "face_09" {
		t.Errorf("after end: %s", got)
	}

	g, _ = g.Update(keyMsg("g"))
	if got := g.SelectedRecord().Identity; got != "face_00" {
		t.Errorf("after home: %s", got)
	}

	// Up from the first row stays put
	g, _ = g.Update(keyMsg("k"))
	if got := g.SelectedRecord().Identity; got != "face_00" {
		t.Errorf("up from first row moved to %s", got)
	}
}

func TestCursorToIdentity(t *testing.T) {
	g := newTestGrid(20, nil)

	if !g.CursorToIdentity("face_15") {
		t.Fatal("known identity not found")
	}
	if got := g.SelectedRecord().Identity; got != "face_15" {
		t.Errorf("cursor on %s", got)
	}

	// The viewport scrolled; the target must be inside it
	found := false
	for _, id := range g.VisibleIdentities() {
		if id == "face_15" {
			found = true
		}
	}
	if !found {
		t.Error("target identity not scrolled into view")
	}

	if g.CursorToIdentity("nope") {
		t.Error("unknown identity resolved")
	}
}

func TestFilterNarrowsAndClears(t *testing.T) {
	g := newTestGrid(10, nil)

	g.ToggleFilter()
	if !g.IsFilterTyping() {
		t.Fatal("filter input not focused")
	}
	for _, r := range "face_03" {
		g, _ = g.Update(keyMsg(string(r)))
	}

	if got := g.SelectedRecord(); got == nil || got.Identity != "face_03" {
		t.Errorf("filter did not land on face_03: %+v", got)
	}

	// Enter keeps the filter but returns to navigation
	g, _ = g.Update(keyMsg("enter"))
	if g.IsFilterTyping() {
		t.Error("still in typing mode after enter")
	}
	if !g.IsFiltering() {
		t.Error("filter dropped by enter")
	}

	// Escape clears the filter entirely
	g, _ = g.Update(keyMsg("esc"))
	if g.IsFiltering() {
		t.Error("filter still active after escape")
	}
	if len(g.VisibleIdentities()) != 6 {
		t.Errorf("full collection not restored: %v", g.VisibleIdentities())
	}
}

func TestCellBadgesReflectCacheState(t *testing.T) {
	meta := fakeMeta{entries: map[string]domain.MetadataEntry{
		"face_00": {
			Landmarks:    []domain.Point{{X: 1, Y: 1}},
			Segmentation: []domain.Polygon{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}},
		},
		"face_01": {
			Landmarks: []domain.Point{{X: 1, Y: 1}},
		},
	}}
	g := newTestGrid(2, meta)

	view := g.View()
	if !strings.Contains(view, "✓") {
		t.Error("full-metadata badge missing from view")
	}
	if !strings.Contains(view, "◐") {
		t.Error("partial-metadata badge missing from view")
	}
}

func TestEmptyGrid(t *testing.T) {
	g := newTestGrid(0, nil)

	if !g.IsEmpty() {
		t.Error("empty grid not reported empty")
	}
	if g.SelectedRecord() != nil {
		t.Error("selection on empty grid")
	}
	if fresh := g.NewlyVisible(); len(fresh) != 0 {
		t.Errorf("empty grid reported new identities: %v", fresh)
	}
	if !strings.Contains(g.View(), "No faces") {
		t.Error("empty placeholder missing")
	}
}
