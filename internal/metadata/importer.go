package metadata

import (
	"context"

	"github.com/facedeck/facedeck/internal/domain"
)

// StartBulkImport runs the bulk metadata import for the active directory and
// blocks until the backend's response arrives. That response is the only
// authority for the import's outcome: the progress channel may deliver a
// "complete" event before, after, or instead of it, and none of those events
// ever mutate the cache or the imported flag (see HandleEvent).
//
// On success the whole cache is replaced with the payload - not merged - so no
// stale entry survives a fresh import over a changed directory. On failure the
// cache and flag are left untouched and the error is surfaced once.
func (e *Engine) StartBulkImport(ctx context.Context, nodeID string) (*domain.ImportResult, error) {
	e.mu.Lock()
	if e.importing {
		e.mu.Unlock()
		return nil, domain.ErrImportInProgress
	}
	if e.inputDir == "" {
		e.mu.Unlock()
		return nil, domain.ErrNoFaces
	}
	e.importing = true
	e.activeNodeID = nodeID
	dir := e.inputDir
	gen := e.gen
	e.mu.Unlock()

	result, err := e.client.ImportFaceData(ctx, dir, nodeID)

	e.mu.Lock()
	e.importing = false
	e.activeNodeID = ""

	if err != nil {
		e.mu.Unlock()
		e.logger.Error("bulk import failed", "dir", dir, "error", err)
		return nil, err
	}

	if e.gen != gen {
		// Directory changed while the import ran; the payload belongs to the
		// previous session and must not populate the new cache.
		e.mu.Unlock()
		e.logger.Warn("bulk import result discarded, directory changed", "dir", dir)
		return result, nil
	}

	// Wholesale replacement: bump the generation so pending batch commits
	// from before the import cannot resurrect pre-import entries.
	e.gen++
	e.cache = make(map[string]domain.MetadataEntry, len(result.Metadata))
	for id, entry := range result.Metadata {
		e.cache[id] = entry
	}
	e.inFlight = make(map[string]struct{})
	e.imported = true
	store := e.store
	e.mu.Unlock()

	if store != nil {
		if err := store.ReplaceAll(dir, result.Metadata); err != nil {
			e.logger.Warn("failed to persist imported metadata", "dir", dir, "error", err)
		}
	}

	e.logger.Info("bulk import complete",
		"dir", dir,
		"imported", result.FacesImported,
		"withData", result.FacesWithData,
		"withLandmarks", result.FacesWithLandmarks,
		"withSegmentation", result.FacesWithSegmentation,
	)
	return result, nil
}

// EmbedMasks bakes mask polygons into the face images for the active
// directory. Like the bulk import, channel feedback for the operation is
// display-only; the response alone carries the authoritative counts.
func (e *Engine) EmbedMasks(ctx context.Context, nodeID string, identities []string, eyebrowExpandMod int) (*domain.EmbedResult, error) {
	e.mu.Lock()
	if e.importing {
		e.mu.Unlock()
		return nil, domain.ErrImportInProgress
	}
	if e.inputDir == "" {
		e.mu.Unlock()
		return nil, domain.ErrNoFaces
	}
	e.importing = true
	e.activeNodeID = nodeID
	dir := e.inputDir
	e.mu.Unlock()

	result, err := e.client.EmbedMasks(ctx, dir, nodeID, identities, eyebrowExpandMod)

	e.mu.Lock()
	e.importing = false
	e.activeNodeID = ""
	e.mu.Unlock()

	if err != nil {
		e.logger.Error("embed masks failed", "dir", dir, "error", err)
		return nil, err
	}

	e.logger.Info("embed masks complete", "dir", dir, "success", result.SuccessCount, "failed", result.FailureCount)
	return result, nil
}

// Importing reports whether a bulk import is currently running.
func (e *Engine) Importing() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.importing
}

// HandleEvent routes one inbound progress-channel event. Events whose
// correlation id does not match the active operation are dropped, guarding
// against stale notifications from a previous session or directory. Accepted
// events are forwarded to the registered display sink and nothing else:
// a "complete" event in particular is logged and displayed but never flips
// the imported flag, never writes the cache, and never clears busy state.
func (e *Engine) HandleEvent(ev domain.ProgressEvent) bool {
	e.mu.RLock()
	active := e.activeNodeID
	fn := e.onProgress
	e.mu.RUnlock()

	if active == "" || ev.NodeID != active {
		return false
	}

	if ev.Kind == domain.EventComplete {
		// Informational only. The import's own response performs the state
		// transition whether or not this event ever arrives.
		e.logger.Debug("channel completion event (advisory)", "nodeID", ev.NodeID)
	}

	if fn != nil {
		fn(ev)
	}
	return true
}
