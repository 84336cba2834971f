// Package corpus combines several COCO datasets into one training corpus.
// Each input contributes its labeled images; ids continue across inputs so
// the combined dataset never needs a second renumbering pass.
package corpus

import (
	"sort"

	"github.com/kilupskalvis/cocokit/internal/core"
	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/kilupskalvis/cocokit/internal/models"
)

// Row is one surviving image of a merge together with its annotations.
type Row struct {
	// Source is the annotation file the image came from.
	Source string

	OldImageID       int
	NewImageID       int
	OldAnnotationIDs []int
	NewAnnotationIDs []int
	OldFileName      string
	NewFileName      string

	// Categories are the classes of the filtered source dataset.
	Categories []*models.Category

	Image       *models.Image
	Annotations []*models.Annotation
}

// ClassIDs returns the category ids carried by the row.
func (r Row) ClassIDs() []int {
	ids := make([]int, len(r.Categories))
	for i, c := range r.Categories {
		ids[i] = c.ID
	}
	return ids
}

// ClassNames returns the category names carried by the row.
func (r Row) ClassNames() []string {
	names := make([]string, len(r.Categories))
	for i, c := range r.Categories {
		names[i] = c.Name
	}
	return names
}

// MergeLabeled merges every labeled image of every input.
func MergeLabeled(datasets []*dataset.Dataset) []Row {
	return merge(datasets, nil)
}

// Merge keeps, per input, the images holding an annotation of one of
// categoryIDs. A nil categoryIDs behaves like MergeLabeled.
func Merge(datasets []*dataset.Dataset, categoryIDs []int) []Row {
	return merge(datasets, categoryIDs)
}

func merge(datasets []*dataset.Dataset, categoryIDs []int) []Row {
	var rows []Row
	nextImage, nextAnn := 0, 0

	for _, ds := range datasets {
		var subset *dataset.Dataset
		if categoryIDs == nil {
			subset, _ = core.SelectLabeled(ds)
		} else {
			subset, _ = core.FilterByCategory(ds, categoryIDs)
		}

		images := append([]*models.Image(nil), subset.Images...)
		sort.SliceStable(images, func(i, j int) bool { return images[i].ID < images[j].ID })

		for _, src := range images {
			nextImage++
			img := src.Clone()
			img.ID = nextImage
			img.FileName = dataset.ResolvePath(ds.ImageDir, src.FileName)

			row := Row{
				Source:      ds.Path,
				OldImageID:  src.ID,
				NewImageID:  img.ID,
				OldFileName: src.FileName,
				NewFileName: img.FileName,
				Categories:  subset.Categories,
				Image:       img,
			}
			for _, a := range subset.AnnotationsOf(src.ID) {
				nextAnn++
				out := a.Clone()
				out.ID = nextAnn
				out.ImageID = img.ID
				row.OldAnnotationIDs = append(row.OldAnnotationIDs, a.ID)
				row.NewAnnotationIDs = append(row.NewAnnotationIDs, out.ID)
				row.Annotations = append(row.Annotations, out)
			}
			rows = append(rows, row)
		}
	}
	return rows
}
