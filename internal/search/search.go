// Package search provides fuzzy filename search over the face collection.
package search

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/facedeck/facedeck/internal/domain"
)

// Result is one search hit with its rank (lower is better).
type Result struct {
	Record *domain.FaceRecord
	Rank   int
}

// Service indexes the active face collection for fuzzy lookup by filename.
type Service struct {
	logger *slog.Logger

	mu      sync.RWMutex
	records []*domain.FaceRecord
	names   []string // Pre-extracted filenames, parallel to records
}

// NewService creates a new search service
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// Index replaces the searchable collection. Called after every rescan.
func (s *Service) Index(records []*domain.FaceRecord) {
	names := make([]string, len(records))
	for i, rec := range records {
		names[i] = rec.Filename
	}

	s.mu.Lock()
	s.records = records
	s.names = names
	s.mu.Unlock()

	s.logger.Debug("indexed face collection", "count", len(records))
}

// Search returns records whose filename fuzzily matches query, best first.
func (s *Service) Search(query string) []Result {
	if query == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ranks := fuzzy.RankFindNormalizedFold(query, s.names)
	sort.Sort(ranks)

	results := make([]Result, 0, len(ranks))
	for _, r := range ranks {
		results = append(results, Result{
			Record: s.records[r.OriginalIndex],
			Rank:   r.Distance,
		})
	}
	return results
}
