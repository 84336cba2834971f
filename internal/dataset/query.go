package dataset

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/kilupskalvis/cocokit/internal/models"
)

// Image returns the image with the given id.
func (d *Dataset) Image(id int) (*models.Image, error) {
	for _, img := range d.Images {
		if img.ID == id {
			return img, nil
		}
	}
	return nil, fmt.Errorf("image %d: %w", id, ErrNotFound)
}

// ImageAt returns the n-th image in file order, counting from 1.
func (d *Dataset) ImageAt(n int) (*models.Image, error) {
	if n < 1 || n > len(d.Images) {
		return nil, fmt.Errorf("image position %d of %d: %w", n, len(d.Images), ErrNotFound)
	}
	return d.Images[n-1], nil
}

// Category returns the category with the given id.
func (d *Dataset) Category(id int) (*models.Category, error) {
	for _, c := range d.Categories {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
}

// AnnotationsOf returns the annotations of one image in file order,
// optionally restricted to the given category ids.
func (d *Dataset) AnnotationsOf(imageID int, categoryIDs ...int) []*models.Annotation {
	var keep map[int]bool
	if len(categoryIDs) > 0 {
		keep = make(map[int]bool, len(categoryIDs))
		for _, id := range categoryIDs {
			keep[id] = true
		}
	}
	var out []*models.Annotation
	for _, a := range d.Annotations {
		if a.ImageID != imageID {
			continue
		}
		if keep != nil && !keep[a.CategoryID] {
			continue
		}
		out = append(out, a)
	}
	return out
}

// CategoryIDs returns category ids in file order.
func (d *Dataset) CategoryIDs() []int {
	ids := make([]int, len(d.Categories))
	for i, c := range d.Categories {
		ids[i] = c.ID
	}
	return ids
}

// CategoryNames maps category id to name.
func (d *Dataset) CategoryNames() map[int]string {
	names := make(map[int]string, len(d.Categories))
	for _, c := range d.Categories {
		names[c.ID] = c.Name
	}
	return names
}

// SetCategoryNames renames categories by position in the category list, not
// by id. The dataset is left unchanged when the counts differ.
func (d *Dataset) SetCategoryNames(names []string) error {
	if len(names) != len(d.Categories) {
		return fmt.Errorf("%w: got %d names for %d categories", ErrArity, len(names), len(d.Categories))
	}
	for i, c := range d.Categories {
		c.Name = names[i]
	}
	return nil
}

// ReplaceImageDirectory points every image at dir, keeping only the base
// name of each file, and records dir as the image directory.
func (d *Dataset) ReplaceImageDirectory(dir string) {
	for _, img := range d.Images {
		img.FileName = filepath.Join(dir, baseName(img.FileName))
	}
	d.ImageDir = dir
}

// AnnotationCounts maps every image id to its number of annotations.
// Images without annotations map to 0.
func (d *Dataset) AnnotationCounts() map[int]int {
	counts := make(map[int]int, len(d.Images))
	for _, img := range d.Images {
		counts[img.ID] = 0
	}
	for _, a := range d.Annotations {
		counts[a.ImageID]++
	}
	return counts
}

// ImagePaths returns the resolved path of every image in file order.
func (d *Dataset) ImagePaths() []string {
	paths := make([]string, len(d.Images))
	for i, img := range d.Images {
		paths[i] = d.ImagePath(img)
	}
	return paths
}

// LabeledImageIDs returns, sorted, the ids of images that carry at least one
// annotation.
func (d *Dataset) LabeledImageIDs() []int {
	seen := make(map[int]bool)
	for _, a := range d.Annotations {
		seen[a.ImageID] = true
	}
	var ids []int
	for _, img := range d.Images {
		if seen[img.ID] {
			ids = append(ids, img.ID)
		}
	}
	sort.Ints(ids)
	return ids
}

// MaxIDs returns the largest image and annotation ids, 0 when empty.
func (d *Dataset) MaxIDs() (imageID, annotationID int) {
	for _, img := range d.Images {
		imageID = max(imageID, img.ID)
	}
	for _, a := range d.Annotations {
		annotationID = max(annotationID, a.ID)
	}
	return imageID, annotationID
}
