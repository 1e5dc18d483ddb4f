package compute

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/facedeck/facedeck/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	importTimeout  = 10 * time.Minute // Bulk imports walk every image in the set
	userAgent      = "Facedeck/1.0"
)

// Client implements domain.ComputeClient against the face-editor backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new backend API client
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: importTimeout,
		},
		logger: logger,
	}
}

// doRequest performs a JSON POST (or bodyless GET) and returns the raw body
func (c *Client) doRequest(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	reqURL := fmt.Sprintf("%s%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("backend request", "method", method, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("backend request failed", "error", err)
		return nil, domain.ErrServerOffline
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrFaceNotFound
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("backend request error", "status", resp.StatusCode, "body", string(respBody))
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return respBody, nil
}

// GetFaceDataBatch fetches metadata for several identities in one round trip.
// Identities the backend could not resolve are absent from the result; that is
// not an error at this layer.
func (c *Client) GetFaceDataBatch(ctx context.Context, inputDir string, identities []string) (map[string]domain.MetadataEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	body, err := c.doRequest(ctx, http.MethodPost, "/api/face-editor/get-face-data-batch", batchFaceDataRequest{
		InputDir: inputDir,
		FaceIDs:  identities,
	})
	if err != nil {
		return nil, err
	}

	var resp batchFaceDataResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse batch response: %w", err)
	}

	entries := mapFaces(resp.Faces)
	c.logger.Debug("batch fetch", "requested", len(identities), "resolved", len(entries))
	return entries, nil
}

// ImportFaceData runs the bulk metadata import for a directory. The response
// is the sole authority for the import's outcome and payload.
func (c *Client) ImportFaceData(ctx context.Context, inputDir, nodeID string) (*domain.ImportResult, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/api/face-editor/import-face-data", importFaceDataRequest{
		InputDir: inputDir,
		NodeID:   nodeID,
	})
	if err != nil {
		return nil, err
	}

	var resp importFaceDataResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse import response: %w", err)
	}

	if !resp.Success {
		if resp.TotalImages == 0 {
			return nil, domain.ErrNoFaces
		}
		return nil, fmt.Errorf("import failed: %s", resp.Message)
	}

	return &domain.ImportResult{
		Metadata:              mapFaces(resp.Faces),
		FacesImported:         resp.FacesImported,
		FacesWithData:         resp.FacesWithData,
		FacesWithLandmarks:    resp.FacesWithLandmarks,
		FacesWithSegmentation: resp.FacesWithSegmentation,
		TotalImages:           resp.TotalImages,
	}, nil
}

// SaveSegmentation writes edited polygons back to a single face image.
func (c *Client) SaveSegmentation(ctx context.Context, inputDir, identity string, polygons []domain.Polygon) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	body, err := c.doRequest(ctx, http.MethodPost, "/api/face-editor/save-segmentation", saveSegmentationRequest{
		FaceID:               identity,
		InputDir:             inputDir,
		SegmentationPolygons: toWirePolygons(polygons),
	})
	if err != nil {
		return err
	}

	var resp saveSegmentationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to parse save response: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("save segmentation failed: %s", resp.Message)
	}
	return nil
}

// EmbedMasks bakes mask polygons into the face images themselves.
func (c *Client) EmbedMasks(ctx context.Context, inputDir, nodeID string, identities []string, eyebrowExpandMod int) (*domain.EmbedResult, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/api/face-editor/embed-masks", embedMasksRequest{
		InputDir:         inputDir,
		NodeID:           nodeID,
		EyebrowExpandMod: eyebrowExpandMod,
		FaceIDs:          identities,
	})
	if err != nil {
		return nil, err
	}

	var resp embedMasksResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse embed response: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("embed masks failed: %s", resp.Message)
	}

	return &domain.EmbedResult{
		ProcessedCount: resp.ProcessedCount,
		SuccessCount:   resp.SuccessCount,
		FailureCount:   resp.FailureCount,
	}, nil
}

// Health reports whether the backend is reachable and DFL-capable.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	body, err := c.doRequest(ctx, http.MethodGet, "/api/face-editor/health", nil)
	if err != nil {
		return err
	}

	var resp healthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to parse health response: %w", err)
	}
	if resp.Status != "healthy" {
		return fmt.Errorf("backend unhealthy: %s", resp.Status)
	}
	return nil
}
