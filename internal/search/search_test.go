package search

import (
	"testing"

	"github.com/facedeck/facedeck/internal/domain"
	"github.com/facedeck/facedeck/internal/log"
)

func indexed(names ...string) *Service {
	records := make([]*domain.FaceRecord, len(names))
	for i, name := range names {
		records[i] = &domain.FaceRecord{
			Identity: name,
			Filename: name + ".jpg",
		}
	}
	s := NewService(log.NullLogger())
	s.Index(records)
	return s
}

func TestSearchFindsFuzzyMatches(t *testing.T) {
	s := indexed("frame_0001", "frame_0002", "portrait_happy", "portrait_sad")

	results := s.Search("happy")
	if len(results) == 0 {
		t.Fatal("no results for a known substring")
	}
	if results[0].Record.Identity != "portrait_happy" {
		t.Errorf("best match: got %s", results[0].Record.Identity)
	}
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	s := indexed("Frame_0001", "other")

	results := s.Search("frame")
	if len(results) != 1 || results[0].Record.Identity != "Frame_0001" {
		t.Errorf("case-insensitive match failed: %+v", results)
	}
}

func TestSearchRanksCloserMatchesFirst(t *testing.T) {
	s := indexed("abc", "axxbxxcxx")

	results := s.Search("abc")
	if len(results) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(results))
	}
	if results[0].Record.Identity != "abc" {
		t.Errorf("exact-ish match not ranked first: %s", results[0].Record.Identity)
	}
	if results[0].Rank > results[1].Rank {
		t.Error("results not sorted by rank")
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	s := indexed("a", "b")
	if results := s.Search(""); results != nil {
		t.Errorf("empty query returned %d results", len(results))
	}
}

func TestIndexReplacesCollection(t *testing.T) {
	s := indexed("old_face")
	s.Index([]*domain.FaceRecord{{Identity: "new_face", Filename: "new_face.jpg"}})

	if results := s.Search("old"); len(results) != 0 {
		t.Errorf("stale records still indexed: %+v", results)
	}
	if results := s.Search("new"); len(results) != 1 {
		t.Errorf("fresh records not indexed: %+v", results)
	}
}
