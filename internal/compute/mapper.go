package compute

import "github.com/facedeck/facedeck/internal/domain"

// mapFaceData converts a wire faceData into a domain entry. Returns false for
// unsuccessful payloads so callers can drop them without a partial write.
func mapFaceData(fd faceData) (domain.MetadataEntry, bool) {
	if !fd.Success {
		return domain.MetadataEntry{}, false
	}

	entry := domain.MetadataEntry{
		FaceType:       fd.FaceType,
		SourceFilename: fd.SourceFilename,
	}

	if len(fd.Landmarks) > 0 {
		entry.Landmarks = make([]domain.Point, 0, len(fd.Landmarks))
		for _, pair := range fd.Landmarks {
			if len(pair) < 2 {
				continue
			}
			entry.Landmarks = append(entry.Landmarks, domain.Point{X: pair[0], Y: pair[1]})
		}
	}

	if len(fd.Segmentation) > 0 {
		entry.Segmentation = make([]domain.Polygon, 0, len(fd.Segmentation))
		for _, ring := range fd.Segmentation {
			poly := make(domain.Polygon, 0, len(ring))
			for _, pair := range ring {
				if len(pair) < 2 {
					continue
				}
				poly = append(poly, domain.Point{X: pair[0], Y: pair[1]})
			}
			if len(poly) > 0 {
				entry.Segmentation = append(entry.Segmentation, poly)
			}
		}
	}

	return entry, true
}

// mapFaces builds the identity -> entry mapping from a wire face list.
func mapFaces(faces []faceData) map[string]domain.MetadataEntry {
	out := make(map[string]domain.MetadataEntry, len(faces))
	for _, fd := range faces {
		if entry, ok := mapFaceData(fd); ok {
			out[fd.FaceID] = entry
		}
	}
	return out
}

// toWirePolygons converts domain polygons to the backend's nested-pair form.
func toWirePolygons(polygons []domain.Polygon) [][][]float64 {
	out := make([][][]float64, len(polygons))
	for i, poly := range polygons {
		ring := make([][]float64, len(poly))
		for j, pt := range poly {
			ring[j] = []float64{pt.X, pt.Y}
		}
		out[i] = ring
	}
	return out
}
