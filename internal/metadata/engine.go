package metadata

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/facedeck/facedeck/internal/domain"
)

const (
	defaultBatchSize = 50
	defaultCooldown  = 100 * time.Millisecond
)

// Engine owns the metadata cache and the in-flight set. It is the single
// writer for both; every other component reads through GetCached or invokes
// the engine's public operations. An identity is always in exactly one of
// {absent, in-flight, cached}.
type Engine struct {
	client domain.ComputeClient
	store  domain.MetadataStore // optional persistent mirror, may be nil
	logger *slog.Logger

	batchSize int
	cooldown  time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	inputDir string
	gen      uint64 // bumped on directory change and wholesale replace
	cache    map[string]domain.MetadataEntry
	inFlight map[string]struct{}
	imported bool

	importing    bool
	activeNodeID string

	onProgress domain.ProgressFunc
}

// Option tunes engine construction.
type Option func(*Engine)

// WithBatchSize overrides the identities-per-round-trip batch size.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithCooldown overrides the pause between sequential batches.
func WithCooldown(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.cooldown = d
		}
	}
}

// WithStore attaches a persistent metadata store for warm starts.
func WithStore(store domain.MetadataStore) Option {
	return func(e *Engine) { e.store = store }
}

// NewEngine creates a sync engine for the given backend client.
func NewEngine(client domain.ComputeClient, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		client:    client,
		logger:    logger,
		batchSize: defaultBatchSize,
		cooldown:  defaultCooldown,
		ctx:       ctx,
		cancel:    cancel,
		cache:     make(map[string]domain.MetadataEntry),
		inFlight:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetDirectory switches the active input directory. The cache, the in-flight
// marks, and the imported flag are dropped wholesale; batch responses still in
// flight for the previous directory are discarded on arrival via the
// generation counter. If a persistent store holds a prior import for the same
// directory, the cache warm-starts from it.
func (e *Engine) SetDirectory(dir string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.inputDir = dir
	e.gen++
	e.cache = make(map[string]domain.MetadataEntry)
	e.inFlight = make(map[string]struct{})
	e.imported = false

	if e.store != nil && dir != "" {
		if entries, ok := e.store.GetAll(dir); ok && len(entries) > 0 {
			// A stored mapping only ever originates from a completed import,
			// so restoring it restores the imported flag too.
			e.cache = entries
			e.imported = true
			e.logger.Info("warm-started metadata cache", "dir", dir, "count", len(entries))
		}
	}
}

// Directory returns the active input directory.
func (e *Engine) Directory() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.inputDir
}

// GetCached returns the cached entry for an identity, if present.
func (e *Engine) GetCached(identity string) (domain.MetadataEntry, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.cache[identity]
	return entry, ok
}

// Imported reports whether a bulk import has completed for the active
// directory. Only an import response (or a warm start from one) sets this.
func (e *Engine) Imported() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.imported
}

// CacheSize returns the number of cached entries.
func (e *Engine) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

// SetProgressFunc registers the display-feedback sink for channel events.
func (e *Engine) SetProgressFunc(fn domain.ProgressFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onProgress = fn
}

// Close stops all background batch work. In-flight requests are cancelled at
// the transport level; their results are discarded.
func (e *Engine) Close() {
	e.cancel()
}
