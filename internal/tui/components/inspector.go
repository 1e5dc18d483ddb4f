package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/facedeck/facedeck/internal/domain"
	"github.com/facedeck/facedeck/internal/tui/styles"
)

// Layout constants for inspector
const (
	InspectorBorderHeight = 2
)

// Inspector displays detailed metadata for the face under the cursor.
type Inspector struct {
	record *domain.FaceRecord
	meta   domain.MetadataReader

	width  int
	height int
}

// NewInspector creates an inspector reading from the given metadata cache.
func NewInspector(meta domain.MetadataReader) Inspector {
	return Inspector{meta: meta}
}

// SetRecord sets the face to display.
func (i *Inspector) SetRecord(record *domain.FaceRecord) {
	i.record = record
}

// SetSize updates the component dimensions
func (i *Inspector) SetSize(width, height int) {
	i.width = width
	i.height = height
}

// HasRecord returns true if there is a face to display.
func (i Inspector) HasRecord() bool {
	return i.record != nil
}

// Update handles messages (no-op, inspector is not focusable)
func (i Inspector) Update(_ tea.Msg) (Inspector, tea.Cmd) {
	return i, nil
}

// View renders the component
func (i Inspector) View() string {
	style := styles.InactiveBorder

	contentWidth := i.width - 3
	if contentWidth < 10 {
		contentWidth = 10
	}

	var b strings.Builder
	b.WriteString(styles.AccentStyle.Render(styles.Truncate("Face", contentWidth)))
	b.WriteString("\n\n")

	if i.record == nil {
		b.WriteString(styles.DimStyle.Render("No face selected"))
	} else {
		i.renderRecord(&b, contentWidth)
	}

	frameW, frameH := style.GetFrameSize()
	return style.
		Width(i.width - frameW).
		Height(i.height - frameH).
		Render(b.String())
}

func (i Inspector) renderRecord(b *strings.Builder, width int) {
	r := i.record

	writeField(b, "Name", r.Filename, width)
	writeField(b, "Identity", r.Identity, width)

	if r.Bitmap != nil {
		bounds := r.Bitmap.Bounds()
		writeField(b, "Size", fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()), width)
	} else {
		writeField(b, "Size", "decoding...", width)
	}

	b.WriteString("\n")

	entry, ok := i.meta.GetCached(r.Identity)
	if !ok {
		b.WriteString(styles.DimStyle.Render("No metadata cached"))
		b.WriteString("\n")
		return
	}

	if entry.HasLandmarks() {
		writeField(b, "Landmarks", fmt.Sprintf("%d points", len(entry.Landmarks)), width)
	} else {
		writeField(b, "Landmarks", "none", width)
	}

	if entry.HasSegmentation() {
		writeField(b, "Segmentation", fmt.Sprintf("%d polygons", len(entry.Segmentation)), width)
	} else {
		writeField(b, "Segmentation", "none", width)
	}

	if entry.FaceType != "" {
		writeField(b, "Face type", entry.FaceType, width)
	}
	if entry.SourceFilename != "" {
		writeField(b, "Source", entry.SourceFilename, width)
	}

	if r.Bookmarked {
		b.WriteString("\n")
		b.WriteString(styles.BookmarkStyle.Render(styles.BookmarkChar + " bookmarked"))
		b.WriteString("\n")
	}
}

func writeField(b *strings.Builder, label, value string, width int) {
	avail := width - len(label) - 2
	if avail < 4 {
		avail = 4
	}
	b.WriteString(styles.DimStyle.Render(label + ": "))
	b.WriteString(styles.Truncate(value, avail))
	b.WriteString("\n")
}
