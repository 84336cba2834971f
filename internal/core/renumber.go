package core

import (
	"sort"

	"github.com/kilupskalvis/cocokit/internal/dataset"
)

// RenumberIDs assigns dense ids starting at 1. Categories keep their order,
// images are ordered by ascending old id and annotations by new image id,
// both stably. Foreign keys follow the same maps. Duplicate ids or dangling
// references fail with a *dataset.IntegrityError before anything changes.
func RenumberIDs(ds *dataset.Dataset) (*dataset.Dataset, *RenumberReport, error) {
	if err := ds.CheckIntegrity(); err != nil {
		return nil, nil, err
	}

	out := ds.Clone()
	report := &RenumberReport{
		Categories:  make(map[int]int, len(out.Categories)),
		Images:      make(map[int]int, len(out.Images)),
		Annotations: make(map[int]int, len(out.Annotations)),
	}

	for i, c := range out.Categories {
		report.Categories[c.ID] = i + 1
		c.ID = i + 1
	}

	sort.SliceStable(out.Images, func(i, j int) bool {
		return out.Images[i].ID < out.Images[j].ID
	})
	for i, img := range out.Images {
		report.Images[img.ID] = i + 1
		img.ID = i + 1
	}

	for _, a := range out.Annotations {
		a.ImageID = report.Images[a.ImageID]
		a.CategoryID = report.Categories[a.CategoryID]
	}
	sort.SliceStable(out.Annotations, func(i, j int) bool {
		return out.Annotations[i].ImageID < out.Annotations[j].ImageID
	})
	for i, a := range out.Annotations {
		report.Annotations[a.ID] = i + 1
		a.ID = i + 1
	}
	return out, report, nil
}
