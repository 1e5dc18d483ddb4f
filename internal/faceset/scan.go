// Package faceset builds and maintains the face-record collection for an
// input directory.
package faceset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/facedeck/facedeck/internal/domain"
)

// faceExtensions are the image types a face set may contain, matched
// case-insensitively.
var faceExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".bmp":  {},
	".tiff": {},
}

const statConcurrency = 16

// Scan lists the face images in dir, sorted by filename, and builds one
// FaceRecord per readable regular file. Identity is the filename stem.
func Scan(ctx context.Context, dir string) ([]*domain.FaceRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := faceExtensions[ext]; ok {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	// Stat pass drops files that vanished or turned unreadable between the
	// listing and now (face sets get rewritten by extraction passes).
	readable := make([]bool, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statConcurrency)
	for i, name := range names {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			info, err := os.Stat(filepath.Join(dir, name))
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
			readable[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]*domain.FaceRecord, 0, len(names))
	for i, name := range names {
		if !readable[i] {
			continue
		}
		path := filepath.Join(dir, name)
		records = append(records, &domain.FaceRecord{
			Identity:   domain.IdentityFromPath(path),
			Filename:   name,
			SourcePath: path,
		})
	}
	return records, nil
}

// ResolveIdentity maps a face id to a record. Ids come in two forms: the
// positional "face_N" form and the filename stem (or full filename) form.
func ResolveIdentity(faceID string, records []*domain.FaceRecord) (*domain.FaceRecord, bool) {
	if strings.HasPrefix(faceID, "face_") {
		if idx, err := strconv.Atoi(faceID[len("face_"):]); err == nil {
			if idx >= 0 && idx < len(records) {
				return records[idx], true
			}
			return nil, false
		}
	}

	for _, rec := range records {
		if rec.Identity == faceID || rec.Filename == faceID {
			return rec, true
		}
	}
	return nil, false
}
