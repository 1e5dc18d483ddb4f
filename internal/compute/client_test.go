package compute

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/facedeck/facedeck/internal/domain"
	"github.com/facedeck/facedeck/internal/log"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, NewClient(server.URL, log.NullLogger())
}

func TestGetFaceDataBatch(t *testing.T) {
	var gotPath string
	var gotReq batchFaceDataRequest

	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(batchFaceDataResponse{
			Success: true,
			Faces: []faceData{
				{
					FaceID:       "00001_0",
					Success:      true,
					Landmarks:    [][]float64{{10, 20}, {30, 40}},
					Segmentation: [][][]float64{{{0, 0}, {4, 0}, {4, 4}}},
					FaceType:     "whole_face",
				},
				{FaceID: "00002_0", Success: false},
			},
		})
	})

	entries, err := client.GetFaceDataBatch(context.Background(), "/faces", []string{"00001_0", "00002_0"})
	if err != nil {
		t.Fatalf("batch fetch: %v", err)
	}

	if gotPath != "/api/face-editor/get-face-data-batch" {
		t.Errorf("wrong endpoint: %s", gotPath)
	}
	if gotReq.InputDir != "/faces" || len(gotReq.FaceIDs) != 2 {
		t.Errorf("wrong request payload: %+v", gotReq)
	}

	// Unsuccessful per-face payloads are dropped, not cached empty
	if len(entries) != 1 {
		t.Fatalf("expected 1 resolved entry, got %d", len(entries))
	}
	entry := entries["00001_0"]
	if len(entry.Landmarks) != 2 || entry.Landmarks[1] != (domain.Point{X: 30, Y: 40}) {
		t.Errorf("landmarks mapped wrong: %+v", entry.Landmarks)
	}
	if len(entry.Segmentation) != 1 || len(entry.Segmentation[0]) != 3 {
		t.Errorf("segmentation mapped wrong: %+v", entry.Segmentation)
	}
	if entry.FaceType != "whole_face" {
		t.Errorf("face type mapped wrong: %s", entry.FaceType)
	}
}

func TestImportFaceData(t *testing.T) {
	var gotReq importFaceDataRequest

	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/face-editor/import-face-data" {
			t.Errorf("wrong endpoint: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(importFaceDataResponse{
			Success:               true,
			FacesImported:         2,
			FacesWithData:         2,
			FacesWithLandmarks:    2,
			FacesWithSegmentation: 1,
			TotalImages:           2,
			Faces: []faceData{
				{FaceID: "a", Success: true, Landmarks: [][]float64{{1, 2}}},
				{FaceID: "b", Success: true, Landmarks: [][]float64{{3, 4}}},
			},
		})
	})

	result, err := client.ImportFaceData(context.Background(), "/faces", "node-1")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if gotReq.NodeID != "node-1" {
		t.Errorf("correlation id not sent: %+v", gotReq)
	}
	if result.FacesImported != 2 || result.FacesWithSegmentation != 1 {
		t.Errorf("counters mapped wrong: %+v", result)
	}
	if len(result.Metadata) != 2 {
		t.Errorf("payload mapped wrong: %d entries", len(result.Metadata))
	}
}

func TestImportEmptyDirectory(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(importFaceDataResponse{
			Success:     false,
			Message:     "no images found",
			TotalImages: 0,
		})
	})

	if _, err := client.ImportFaceData(context.Background(), "/faces", "node-1"); !errors.Is(err, domain.ErrNoFaces) {
		t.Errorf("expected ErrNoFaces, got %v", err)
	}
}

func TestSaveSegmentationWireFormat(t *testing.T) {
	var gotReq saveSegmentationRequest

	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/face-editor/save-segmentation" {
			t.Errorf("wrong endpoint: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(saveSegmentationResponse{Success: true})
	})

	polygons := []domain.Polygon{
		{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}},
	}
	if err := client.SaveSegmentation(context.Background(), "/faces", "00001_0", polygons); err != nil {
		t.Fatalf("save: %v", err)
	}

	if gotReq.FaceID != "00001_0" || gotReq.InputDir != "/faces" {
		t.Errorf("wrong request payload: %+v", gotReq)
	}
	if len(gotReq.SegmentationPolygons) != 1 || len(gotReq.SegmentationPolygons[0]) != 3 {
		t.Fatalf("polygons not in nested-pair form: %+v", gotReq.SegmentationPolygons)
	}
	if pt := gotReq.SegmentationPolygons[0][1]; pt[0] != 10 || pt[1] != 0 {
		t.Errorf("point order lost: %v", pt)
	}
}

func TestEmbedMasks(t *testing.T) {
	var gotReq embedMasksRequest

	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(embedMasksResponse{
			Success:        true,
			ProcessedCount: 3,
			SuccessCount:   2,
			FailureCount:   1,
		})
	})

	result, err := client.EmbedMasks(context.Background(), "/faces", "node-1", []string{"a", "b", "c"}, 30)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if gotReq.EyebrowExpandMod != 30 || len(gotReq.FaceIDs) != 3 {
		t.Errorf("wrong request payload: %+v", gotReq)
	}
	if result.SuccessCount != 2 || result.FailureCount != 1 {
		t.Errorf("counters mapped wrong: %+v", result)
	}
}

func TestHealth(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("health must be a GET, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(healthResponse{Status: "healthy", DFLAvailable: true})
	})

	if err := client.Health(context.Background()); err != nil {
		t.Errorf("health: %v", err)
	}
}

func TestNotFoundMapsToSentinel(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := client.GetFaceDataBatch(context.Background(), "/faces", []string{"x"})
	if !errors.Is(err, domain.ErrFaceNotFound) {
		t.Errorf("expected ErrFaceNotFound, got %v", err)
	}
}

func TestUnreachableServerMapsToSentinel(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", log.NullLogger())

	if err := client.Health(context.Background()); !errors.Is(err, domain.ErrServerOffline) {
		t.Errorf("expected ErrServerOffline, got %v", err)
	}
}
