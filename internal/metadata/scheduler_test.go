package metadata

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/facedeck/facedeck/internal/domain"
	"github.com/facedeck/facedeck/internal/log"
)

// fakeClient is an in-memory ComputeClient that records every batch request
// and can be made to fail or block on demand.
type fakeClient struct {
	mu      sync.Mutex
	batches [][]string

	// failures holds the number of upcoming batch calls that return an error
	failures int

	// resolve decides which identities the backend knows; nil resolves all
	resolve func(id string) bool

	// blockBatch, when set, is received from before a batch call returns
	blockBatch chan struct{}

	importResult  *domain.ImportResult
	importErr     error
	importStarted chan struct{}
	importRelease chan struct{}

	embedResult *domain.EmbedResult
	embedErr    error
}

func newFakeClient() *fakeClient {
	return &fakeClient{}
}

func testEntry(id string) domain.MetadataEntry {
	return domain.MetadataEntry{
		Landmarks:      []domain.Point{{X: 1, Y: 2}},
		SourceFilename: id + ".jpg",
	}
}

func (f *fakeClient) GetFaceDataBatch(ctx context.Context, inputDir string, identities []string) (map[string]domain.MetadataEntry, error) {
	f.mu.Lock()
	batch := make([]string, len(identities))
	copy(batch, identities)
	f.batches = append(f.batches, batch)
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	block := f.blockBatch
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, domain.ErrServerOffline
	}

	entries := make(map[string]domain.MetadataEntry, len(identities))
	for _, id := range identities {
		if f.resolve != nil && !f.resolve(id) {
			continue
		}
		entries[id] = testEntry(id)
	}
	return entries, nil
}

func (f *fakeClient) ImportFaceData(ctx context.Context, inputDir, nodeID string) (*domain.ImportResult, error) {
	if f.importStarted != nil {
		close(f.importStarted)
	}
	if f.importRelease != nil {
		select {
		case <-f.importRelease:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.importErr != nil {
		return nil, f.importErr
	}
	return f.importResult, nil
}

func (f *fakeClient) SaveSegmentation(ctx context.Context, inputDir, identity string, polygons []domain.Polygon) error {
	return nil
}

func (f *fakeClient) EmbedMasks(ctx context.Context, inputDir, nodeID string, identities []string, eyebrowExpandMod int) (*domain.EmbedResult, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return f.embedResult, nil
}

func (f *fakeClient) Health(ctx context.Context) error {
	return nil
}

// recordedBatches returns a snapshot of every batch requested so far.
func (f *fakeClient) recordedBatches() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.batches))
	copy(out, f.batches)
	return out
}

func (f *fakeClient) totalRequested() int {
	n := 0
	for _, b := range f.recordedBatches() {
		n += len(b)
	}
	return n
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func newTestEngine(client domain.ComputeClient, opts ...Option) *Engine {
	opts = append([]Option{WithCooldown(0)}, opts...)
	return NewEngine(client, log.NullLogger(), opts...)
}

func makeIdentities(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("face_%d", i)
	}
	return ids
}

func TestEnsureMetadataDeduplicates(t *testing.T) {
	client := newFakeClient()
	engine := newTestEngine(client)
	defer engine.Close()
	engine.SetDirectory("/faces")

	// Duplicates within one call and across rapid repeated calls collapse:
	// the in-flight marks are taken before EnsureMetadata returns.
	engine.EnsureMetadata([]string{"a", "b", "a", "b", "a"})
	engine.EnsureMetadata([]string{"a", "b"})
	engine.EnsureMetadata([]string{"b", "a"})

	waitFor(t, func() bool { return engine.CacheSize() == 2 }, "cache to fill")

	if got := client.totalRequested(); got != 2 {
		t.Errorf("expected each identity fetched exactly once, got %d total requests: %v",
			got, client.recordedBatches())
	}
}

func TestEnsureMetadataSkipsCached(t *testing.T) {
	client := newFakeClient()
	engine := newTestEngine(client)
	defer engine.Close()
	engine.SetDirectory("/faces")

	engine.EnsureMetadata([]string{"a"})
	waitFor(t, func() bool { return engine.CacheSize() == 1 }, "first fetch")

	engine.EnsureMetadata([]string{"a", "b"})
	waitFor(t, func() bool { return engine.CacheSize() == 2 }, "second fetch")

	requests := make(map[string]int)
	for _, batch := range client.recordedBatches() {
		for _, id := range batch {
			requests[id]++
		}
	}
	if requests["a"] != 1 {
		t.Errorf("cached identity requested %d times, expected 1", requests["a"])
	}
	if requests["b"] != 1 {
		t.Errorf("identity b requested %d times, expected 1", requests["b"])
	}
}

func TestBatchPartition(t *testing.T) {
	client := newFakeClient()
	engine := newTestEngine(client, WithBatchSize(50))
	defer engine.Close()
	engine.SetDirectory("/faces")

	ids := makeIdentities(130)
	engine.EnsureMetadata(ids)

	waitFor(t, func() bool { return engine.CacheSize() == 130 }, "all batches to commit")

	batches := client.recordedBatches()
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches for 130 identities, got %d", len(batches))
	}
	wantSizes := []int{50, 50, 30}
	for i, want := range wantSizes {
		if len(batches[i]) != want {
			t.Errorf("batch %d: expected %d identities, got %d", i, want, len(batches[i]))
		}
	}

	// Batches are disjoint and their union covers every requested identity
	seen := make(map[string]int)
	for _, batch := range batches {
		for _, id := range batch {
			seen[id]++
		}
	}
	for _, id := range ids {
		if seen[id] != 1 {
			t.Errorf("identity %s appeared %d times across batches", id, seen[id])
		}
	}
}

func TestLargePartitionBatchCount(t *testing.T) {
	client := newFakeClient()
	engine := newTestEngine(client, WithBatchSize(50))
	defer engine.Close()
	engine.SetDirectory("/faces")

	engine.EnsureMetadata(makeIdentities(1000))
	waitFor(t, func() bool { return engine.CacheSize() == 1000 }, "all batches to commit")

	if got := len(client.recordedBatches()); got != 20 {
		t.Errorf("expected 20 batches for 1000 identities, got %d", got)
	}
}

func TestFailedBatchRetriesOnRevisit(t *testing.T) {
	client := newFakeClient()
	client.failures = 1
	engine := newTestEngine(client)
	defer engine.Close()
	engine.SetDirectory("/faces")

	ids := makeIdentities(10)
	engine.EnsureMetadata(ids)

	// No scheduled retry exists. The identities must become fetchable again
	// once the failure releases their marks, so keep simulating viewport
	// revisits until the cache fills.
	waitFor(t, func() bool {
		engine.EnsureMetadata(ids)
		return engine.CacheSize() == 10
	}, "retry after failure")

	if len(client.recordedBatches()) < 2 {
		t.Errorf("expected at least 2 batch attempts, got %d", len(client.recordedBatches()))
	}
}

func TestFailedBatchReleasesOnlyItsOwnMarks(t *testing.T) {
	client := newFakeClient()
	client.failures = 1
	engine := newTestEngine(client, WithBatchSize(5))
	defer engine.Close()
	engine.SetDirectory("/faces")

	// First batch of 5 fails, second batch of 5 succeeds.
	ids := makeIdentities(10)
	engine.EnsureMetadata(ids)

	waitFor(t, func() bool { return engine.CacheSize() == 5 }, "surviving batch to commit")

	for _, id := range ids[5:] {
		if _, ok := engine.GetCached(id); !ok {
			t.Errorf("identity %s from the successful batch missing from cache", id)
		}
	}
	for _, id := range ids[:5] {
		if _, ok := engine.GetCached(id); ok {
			t.Errorf("identity %s from the failed batch should not be cached", id)
		}
	}
}

func TestUnresolvedIdentitiesStayAbsent(t *testing.T) {
	client := newFakeClient()
	client.resolve = func(id string) bool { return id != "face_1" }
	engine := newTestEngine(client)
	defer engine.Close()
	engine.SetDirectory("/faces")

	ids := makeIdentities(3)
	engine.EnsureMetadata(ids)
	waitFor(t, func() bool { return engine.CacheSize() == 2 }, "resolved identities to commit")

	if _, ok := engine.GetCached("face_1"); ok {
		t.Error("unresolved identity must stay absent, not cached empty")
	}

	// Absent means refetchable on the next viewport pass
	engine.EnsureMetadata(ids)
	waitFor(t, func() bool { return len(client.recordedBatches()) >= 2 }, "refetch of unresolved identity")

	second := client.recordedBatches()[1]
	if len(second) != 1 || second[0] != "face_1" {
		t.Errorf("expected refetch of only face_1, got %v", second)
	}
}

func TestDirectoryChangeDiscardsInFlightResults(t *testing.T) {
	client := newFakeClient()
	client.blockBatch = make(chan struct{})
	engine := newTestEngine(client)
	defer engine.Close()
	engine.SetDirectory("/faces/old")

	engine.EnsureMetadata([]string{"a", "b"})
	waitFor(t, func() bool { return len(client.recordedBatches()) == 1 }, "batch request to start")

	engine.SetDirectory("/faces/new")
	close(client.blockBatch)

	// The stale payload must never land in the new directory's cache
	time.Sleep(50 * time.Millisecond)
	if n := engine.CacheSize(); n != 0 {
		t.Errorf("expected empty cache after directory change, got %d entries", n)
	}

	// And the identities are immediately fetchable for the new directory
	client.mu.Lock()
	client.blockBatch = nil
	client.mu.Unlock()
	engine.EnsureMetadata([]string{"a", "b"})
	waitFor(t, func() bool { return engine.CacheSize() == 2 }, "refetch for new directory")
}

func TestChunkPartitionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := rapid.SliceOfN(rapid.StringMatching(`face_[0-9]{1,4}`), 0, 300).Draw(t, "ids")
		size := rapid.IntRange(1, 60).Draw(t, "size")

		batches := chunk(ids, size)

		var joined []string
		for i, batch := range batches {
			if len(batch) == 0 {
				t.Fatalf("batch %d is empty", i)
			}
			if len(batch) > size {
				t.Fatalf("batch %d exceeds size %d: %d", i, size, len(batch))
			}
			if i < len(batches)-1 && len(batch) != size {
				t.Fatalf("non-final batch %d not full: %d != %d", i, len(batch), size)
			}
			joined = append(joined, batch...)
		}

		if len(joined) != len(ids) {
			t.Fatalf("concatenated batches have %d identities, input had %d", len(joined), len(ids))
		}
		for i := range ids {
			if joined[i] != ids[i] {
				t.Fatalf("order not preserved at %d: %q != %q", i, joined[i], ids[i])
			}
		}
	})
}
