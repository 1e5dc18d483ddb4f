package metadata

import (
	"time"

	"github.com/facedeck/facedeck/internal/domain"
)

// EnsureMetadata asynchronously populates the cache for the given identities.
// Fire-and-forget: the caller has no synchronous dependency on the outcome.
//
// Duplicates in the input collapse to one. Identities already cached or
// already in flight are skipped; the check and the in-flight mark happen in a
// single critical section before any network call, so rapid repeated viewport
// passes can never issue a duplicate fetch. Whatever remains is chunked into
// fixed-size batches issued sequentially with a cooldown in between.
func (e *Engine) EnsureMetadata(identities []string) {
	e.mu.Lock()

	if e.inputDir == "" {
		e.mu.Unlock()
		return
	}

	// Check-then-mark in one step: dedupe, drop cached and in-flight, mark
	// the survivors before the lock is released.
	needed := make([]string, 0, len(identities))
	seen := make(map[string]struct{}, len(identities))
	for _, id := range identities {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := e.cache[id]; ok {
			continue
		}
		if _, ok := e.inFlight[id]; ok {
			continue
		}
		e.inFlight[id] = struct{}{}
		needed = append(needed, id)
	}

	dir := e.inputDir
	gen := e.gen
	e.mu.Unlock()

	if len(needed) == 0 {
		return
	}

	go e.fetchBatches(dir, gen, needed)
}

// fetchBatches issues sequential batch requests for the marked identities.
// Batches from distinct EnsureMetadata calls may interleave; that is safe
// because the in-flight set, not ordering, prevents duplicate work.
func (e *Engine) fetchBatches(dir string, gen uint64, identities []string) {
	for i, batch := range chunk(identities, e.batchSize) {
		if i > 0 && e.cooldown > 0 {
			select {
			case <-time.After(e.cooldown):
			case <-e.ctx.Done():
				e.releaseMarks(identities[i*e.batchSize:])
				return
			}
		}

		entries, err := e.client.GetFaceDataBatch(e.ctx, dir, batch)
		if err != nil {
			// A failed batch releases its own marks and nothing else; the
			// identities retry naturally next time they enter the viewport.
			e.logger.Warn("batch fetch failed", "count", len(batch), "error", err)
			e.releaseMarks(batch)
			continue
		}

		e.commitBatch(gen, batch, entries)
	}
}

// commitBatch writes a batch's results into the cache and clears its marks.
// Results for a directory that changed mid-flight are discarded.
func (e *Engine) commitBatch(gen uint64, batch []string, entries map[string]domain.MetadataEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gen != gen {
		// Directory changed while the request was in flight. The marks were
		// already dropped by SetDirectory; discard the stale payload.
		return
	}

	cached := 0
	for _, id := range batch {
		delete(e.inFlight, id)
		if entry, ok := entries[id]; ok {
			// One commit per identity; readers see the whole entry or nothing.
			e.cache[id] = entry
			cached++
		}
	}
	e.logger.Debug("batch committed", "requested", len(batch), "cached", cached)
}

// releaseMarks drops in-flight marks without touching the cache.
func (e *Engine) releaseMarks(batch []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range batch {
		delete(e.inFlight, id)
	}
}

// chunk splits ids into consecutive slices of at most size elements.
func chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = defaultBatchSize
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}
