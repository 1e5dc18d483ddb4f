package domain

import (
	"image"
	"path/filepath"
	"strings"
)

// Point is a 2D coordinate in face-image pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polygon is an ordered ring of points describing one segmentation region.
type Polygon []Point

// FaceRecord represents one face image within the active input directory.
// Records are created by a directory scan, mutated in place as selection and
// metadata state change, and dropped wholesale when the directory changes.
type FaceRecord struct {
	Identity   string // Unique within a session; derived from the filename stem
	Filename   string // Base name including extension
	SourcePath string // Absolute path to the image file

	// Decoded bitmap, nil until the decode pool has produced one.
	Bitmap image.Image

	Selected   bool
	Bookmarked bool
}

// MetadataEntry is the immutable per-face metadata computed by the backend.
// Entries are replaced wholesale, never patched, so a reader can never
// observe a landmarks-only or segmentation-only record.
type MetadataEntry struct {
	Landmarks      []Point   `json:"landmarks"`
	Segmentation   []Polygon `json:"segmentation"`
	FaceType       string    `json:"face_type"`
	SourceFilename string    `json:"source_filename"`
}

// HasLandmarks reports whether the entry carries a landmark set.
func (e MetadataEntry) HasLandmarks() bool { return len(e.Landmarks) > 0 }

// HasSegmentation reports whether the entry carries segmentation polygons.
func (e MetadataEntry) HasSegmentation() bool { return len(e.Segmentation) > 0 }

// IdentityFromPath derives the face identity for an image path.
// Identity is the filename stem: "workspace/faces/00017_0.jpg" -> "00017_0".
func IdentityFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ImportResult summarizes a completed bulk metadata import. It mirrors the
// backend's import response and is the sole authority for completion state.
type ImportResult struct {
	Metadata map[string]MetadataEntry

	FacesImported         int
	FacesWithData         int
	FacesWithLandmarks    int
	FacesWithSegmentation int
	TotalImages           int
}

// EmbedResult summarizes a mask-embed pass over a set of faces.
type EmbedResult struct {
	ProcessedCount int
	SuccessCount   int
	FailureCount   int
}
