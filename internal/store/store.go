// Package store persists imported face metadata between sessions.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/facedeck/facedeck/internal/domain"
)

// Bucket names
var (
	bucketImports = []byte("imports")
)

// MetadataStore implements domain.MetadataStore using BoltDB. One record per
// input directory, keyed by a hash of the normalized path, replaced wholesale
// whenever a fresh import completes for that directory.
type MetadataStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// NewMetadataStore opens (or creates) the store under baseCacheDir. An empty
// baseCacheDir yields a memory-only store with no persistence.
func NewMetadataStore(baseCacheDir string) (*MetadataStore, error) {
	if baseCacheDir == "" {
		// Memory-only mode (no persistence)
		return &MetadataStore{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(baseCacheDir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(baseCacheDir, "facedeck.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketImports)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &MetadataStore{db: db, cache: make(map[string][]byte)}, nil
}

// hashDir normalizes and hashes an input-directory path into a stable key.
func hashDir(dir string) string {
	normalized := strings.TrimRight(filepath.ToSlash(dir), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:8])
}

func (s *MetadataStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetAll returns the stored metadata mapping for an input directory.
func (s *MetadataStore) GetAll(inputDir string) (map[string]domain.MetadataEntry, bool) {
	key := hashDir(inputDir)

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return decodeEntries(data)
	}
	s.mu.RUnlock()

	if s.db == nil {
		return nil, false
	}

	// Read from BoltDB
	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketImports)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return nil, false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()

	return decodeEntries(data)
}

// ReplaceAll overwrites the stored mapping for an input directory. The write
// is wholesale: nothing from a previous import survives.
func (s *MetadataStore) ReplaceAll(inputDir string, entries map[string]domain.MetadataEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	key := hashDir(inputDir)

	// Update memory cache
	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	// Write to BoltDB
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketImports)
		return b.Put([]byte(key), data)
	})
}

// InvalidateDir drops the stored mapping for one input directory.
func (s *MetadataStore) InvalidateDir(inputDir string) {
	key := hashDir(inputDir)

	// Clear from memory cache
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	// Delete from BoltDB
	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketImports)
		if b != nil {
			b.Delete([]byte(key))
		}
		return nil
	})
}

// InvalidateAll wipes every stored import.
func (s *MetadataStore) InvalidateAll() {
	s.mu.Lock()
	s.cache = make(map[string][]byte)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketImports)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func decodeEntries(data []byte) (map[string]domain.MetadataEntry, bool) {
	var entries map[string]domain.MetadataEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false
	}
	return entries, true
}
