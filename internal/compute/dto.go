package compute

// DTOs for the face-editor backend API. Landmarks travel as [x,y] pairs and
// segmentation as polygon -> point -> pair, matching the backend schema.

// batchFaceDataRequest asks for metadata for several identities in one trip.
type batchFaceDataRequest struct {
	InputDir string   `json:"input_dir"`
	FaceIDs  []string `json:"face_ids"`
}

// faceData is the per-identity payload shared by batch and import responses.
type faceData struct {
	FaceID         string        `json:"face_id"`
	Success        bool          `json:"success"`
	Landmarks      [][]float64   `json:"landmarks,omitempty"`
	Segmentation   [][][]float64 `json:"segmentation,omitempty"`
	FaceType       string        `json:"face_type,omitempty"`
	SourceFilename string        `json:"source_filename,omitempty"`
}

type batchFaceDataResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Faces   []faceData `json:"faces"`
}

type importFaceDataRequest struct {
	InputDir string `json:"input_dir"`
	NodeID   string `json:"node_id"`
}

type importFaceDataResponse struct {
	Success               bool       `json:"success"`
	Message               string     `json:"message"`
	FacesImported         int        `json:"faces_imported"`
	FacesWithData         int        `json:"faces_with_data"`
	FacesWithLandmarks    int        `json:"faces_with_landmarks"`
	FacesWithSegmentation int        `json:"faces_with_segmentation"`
	TotalImages           int        `json:"total_images"`
	Faces                 []faceData `json:"faces"`
}

type saveSegmentationRequest struct {
	FaceID               string        `json:"face_id"`
	InputDir             string        `json:"input_dir"`
	SegmentationPolygons [][][]float64 `json:"segmentation_polygons"`
}

type saveSegmentationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type embedMasksRequest struct {
	InputDir         string   `json:"input_dir"`
	NodeID           string   `json:"node_id"`
	EyebrowExpandMod int      `json:"eyebrow_expand_mod"`
	FaceIDs          []string `json:"face_ids,omitempty"`
}

type embedMasksResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ProcessedCount int    `json:"processed_count"`
	SuccessCount   int    `json:"success_count"`
	FailureCount   int    `json:"failure_count"`
}

type healthResponse struct {
	Status       string `json:"status"`
	DFLAvailable bool   `json:"dfl_available"`
}
