package corpus

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/kilupskalvis/cocokit/internal/imagestore"
)

// CopyEntry describes one image handled by CopyToDirectory.
type CopyEntry struct {
	ImageID int    `json:"image_id"`
	Source  string `json:"source"`
	Target  string `json:"target"`
	Copied  bool   `json:"copied"`
}

// CopyReport lists every image CopyToDirectory handled.
type CopyReport struct {
	Entries []CopyEntry `json:"entries"`
}

// Copied returns how many files were actually written.
func (r *CopyReport) Copied() int {
	n := 0
	for _, e := range r.Entries {
		if e.Copied {
			n++
		}
	}
	return n
}

// CopyToDirectory copies every referenced image into dir as
// <stem>_<parent directory><ext>, so same-named images from different
// source folders do not collide. Existing targets are left alone. The
// returned dataset refers to the copies.
func CopyToDirectory(ctx context.Context, ds *dataset.Dataset, store imagestore.Store, dir string) (*dataset.Dataset, *CopyReport, error) {
	if err := store.MkdirAll(ctx, dir); err != nil {
		return nil, nil, err
	}
	out := ds.Clone()
	out.ImageDir = dir
	report := &CopyReport{}

	for _, img := range out.Images {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		src := ds.ImagePath(img)
		name := taggedName(src)
		dst := filepath.Join(dir, name)

		exists, err := store.Exists(ctx, dst)
		if err != nil {
			return nil, nil, err
		}
		if !exists {
			if err := store.Copy(ctx, src, dst); err != nil {
				return nil, nil, fmt.Errorf("copy image %d: %w", img.ID, err)
			}
		}
		report.Entries = append(report.Entries, CopyEntry{
			ImageID: img.ID,
			Source:  src,
			Target:  dst,
			Copied:  !exists,
		})
		img.FileName = name
	}
	return out, report, nil
}

// taggedName appends the name of the parent directory to the file stem.
func taggedName(path string) string {
	dir, file := filepath.Split(path)
	ext := filepath.Ext(file)
	parent := filepath.Base(filepath.Clean(dir))
	if parent == "." || parent == string(filepath.Separator) {
		return file
	}
	return strings.TrimSuffix(file, ext) + "_" + parent + ext
}
