package decode

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/facedeck/facedeck/internal/domain"
	"github.com/facedeck/facedeck/internal/log"
)

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	return path
}

func collectResults(t *testing.T, pool *Pool, n int) []Result {
	t.Helper()
	results := make([]Result, 0, n)
	timeout := time.After(2 * time.Second)
	for len(results) < n {
		select {
		case res := <-pool.Results():
			results = append(results, res)
		case <-timeout:
			t.Fatalf("timed out after %d of %d results", len(results), n)
		}
	}
	return results
}

func TestPoolDecodesSubmittedJobs(t *testing.T) {
	dir := t.TempDir()
	pool := NewPool(2, log.NullLogger())
	defer pool.Close()

	ids := []string{"alpha", "beta", "gamma"}
	for _, id := range ids {
		path := writePNG(t, dir, id+".png")
		if err := pool.Submit(id, path); err != nil {
			t.Fatalf("submit %s: %v", id, err)
		}
	}

	results := collectResults(t, pool, len(ids))
	seen := make(map[string]bool)
	for _, res := range results {
		if res.Err != nil {
			t.Errorf("decode of %s failed: %v", res.Identity, res.Err)
		}
		if res.Image == nil {
			t.Errorf("decode of %s returned no image", res.Identity)
		}
		seen[res.Identity] = true
	}
	for _, id := range ids {
		if !seen[id] {
			t.Errorf("no result for %s", id)
		}
	}
}

func TestFailedDecodeIsIsolated(t *testing.T) {
	dir := t.TempDir()
	pool := NewPool(1, log.NullLogger())
	defer pool.Close()

	good := writePNG(t, dir, "good.png")
	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := pool.Submit("good", good); err != nil {
		t.Fatal(err)
	}
	if err := pool.Submit("bad", bad); err != nil {
		t.Fatal(err)
	}
	if err := pool.Submit("missing", filepath.Join(dir, "missing.png")); err != nil {
		t.Fatal(err)
	}

	results := collectResults(t, pool, 3)
	for _, res := range results {
		switch res.Identity {
		case "good":
			if res.Err != nil {
				t.Errorf("sibling failure leaked into good job: %v", res.Err)
			}
		case "bad", "missing":
			if res.Err == nil {
				t.Errorf("expected error for %s", res.Identity)
			}
		}
	}
}

func TestFIFODispatchOrder(t *testing.T) {
	dir := t.TempDir()
	// One worker makes completion order equal dispatch order
	pool := NewPool(1, log.NullLogger())
	defer pool.Close()

	ids := []string{"first", "second", "third", "fourth"}
	for _, id := range ids {
		if err := pool.Submit(id, writePNG(t, dir, id+".png")); err != nil {
			t.Fatal(err)
		}
	}

	results := collectResults(t, pool, len(ids))
	for i, res := range results {
		if res.Identity != ids[i] {
			t.Errorf("position %d: got %s, want %s", i, res.Identity, ids[i])
		}
	}
}

func TestSubmitAfterCloseFails(t *testing.T) {
	pool := NewPool(1, log.NullLogger())
	pool.Close()

	if err := pool.Submit("x", "/nope.png"); !errors.Is(err, domain.ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed, got %v", err)
	}

	// The results channel closes once workers are down
	select {
	case _, ok := <-pool.Results():
		if ok {
			t.Error("unexpected result from closed pool")
		}
	case <-time.After(time.Second):
		t.Error("results channel not closed after Close")
	}
}
