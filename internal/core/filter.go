// Package core implements the consistency engine: transforms that take a
// dataset and return a new, internally consistent dataset plus a report of
// what changed. Inputs are never modified.
package core

import (
	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/kilupskalvis/cocokit/internal/models"
)

// SelectLabeled keeps every category but drops images without annotations.
// It is FilterByCategory over the full category set, which is not a no-op.
func SelectLabeled(ds *dataset.Dataset) (*dataset.Dataset, *FilterReport) {
	return FilterByCategory(ds, ds.CategoryIDs())
}

// FilterByCategory keeps the categories in ids, the annotations of those
// categories and the images referenced by a kept annotation. Images left
// without annotations are dropped along with the rest. Annotations whose
// image does not exist are dropped and listed in the report.
func FilterByCategory(ds *dataset.Dataset, ids []int) (*dataset.Dataset, *FilterReport) {
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	out := headerOf(ds)
	report := &FilterReport{}

	kept := make(map[int]bool)
	for _, c := range ds.Categories {
		if want[c.ID] {
			out.Categories = append(out.Categories, c.Clone())
			report.KeptCategories = append(report.KeptCategories, c.ID)
			kept[c.ID] = true
		} else {
			report.RemovedCategories = append(report.RemovedCategories, c.ID)
		}
	}

	present := imageIDSet(ds.Images)
	referenced := make(map[int]bool)
	for _, a := range ds.Annotations {
		if !kept[a.CategoryID] {
			report.RemovedAnnotations++
			continue
		}
		if !present[a.ImageID] {
			report.OrphanAnnotations = append(report.OrphanAnnotations, a.ID)
			continue
		}
		out.Annotations = append(out.Annotations, a.Clone())
		referenced[a.ImageID] = true
	}

	for _, img := range ds.Images {
		if referenced[img.ID] {
			out.Images = append(out.Images, img.Clone())
		}
	}
	report.RemovedImages = removedIDs(ds.Images, out.Images)
	return out, report
}

// headerOf returns a dataset with the header, path and image directory of
// ds and empty collections.
func headerOf(ds *dataset.Dataset) *dataset.Dataset {
	c := &dataset.Dataset{
		Info:     append([]byte(nil), ds.Info...),
		Licenses: append([]byte(nil), ds.Licenses...),
		Extra:    ds.Extra.Clone(),
		Path:     ds.Path,
		ImageDir: ds.ImageDir,
	}
	c.Images = []*models.Image{}
	c.Annotations = []*models.Annotation{}
	c.Categories = []*models.Category{}
	return c
}

func imageIDSet(images []*models.Image) map[int]bool {
	ids := make(map[int]bool, len(images))
	for _, img := range images {
		ids[img.ID] = true
	}
	return ids
}
