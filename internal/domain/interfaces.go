package domain

import "context"

// ComputeClient is the interface the sync engine consumes from the
// metadata-computation backend. Implemented by compute.Client.
type ComputeClient interface {
	// GetFaceDataBatch fetches metadata for multiple identities in one round
	// trip. The result maps identity -> entry for every identity the backend
	// resolved; failed or unknown identities are simply absent.
	GetFaceDataBatch(ctx context.Context, inputDir string, identities []string) (map[string]MetadataEntry, error)

	// ImportFaceData runs the bulk import for a whole input directory. The
	// returned result is the single authority for completion and payload.
	ImportFaceData(ctx context.Context, inputDir, nodeID string) (*ImportResult, error)

	// SaveSegmentation writes edited segmentation polygons back to one face.
	SaveSegmentation(ctx context.Context, inputDir, identity string, polygons []Polygon) error

	// EmbedMasks bakes mask polygons into face images. A nil identities slice
	// means the whole directory.
	EmbedMasks(ctx context.Context, inputDir, nodeID string, identities []string, eyebrowExpandMod int) (*EmbedResult, error)

	// Health reports backend availability.
	Health(ctx context.Context) error
}

// MetadataStore persists imported metadata between sessions so a reopened
// directory can warm-start without re-importing. The engine is the only
// writer; the TUI never touches the store directly.
type MetadataStore interface {
	GetAll(inputDir string) (map[string]MetadataEntry, bool)
	ReplaceAll(inputDir string, entries map[string]MetadataEntry) error
	InvalidateDir(inputDir string)
	InvalidateAll()
	Close() error
}

// MetadataReader is the read-only cache view handed to the renderer.
type MetadataReader interface {
	GetCached(identity string) (MetadataEntry, bool)
	Imported() bool
}
