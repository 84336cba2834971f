package core

import "github.com/kilupskalvis/cocokit/internal/models"

// FilterReport describes what a category filter removed.
type FilterReport struct {
	KeptCategories     []int `json:"kept_categories"`
	RemovedCategories  []int `json:"removed_categories"`
	RemovedImages      []int `json:"removed_images"`
	RemovedAnnotations int   `json:"removed_annotations"`
	OrphanAnnotations  []int `json:"orphan_annotations,omitempty"`
}

// RemovedImage identifies an image dropped because its file is missing.
type RemovedImage struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
}

// PruneImagesReport lists images dropped by PruneMissingImages.
type PruneImagesReport struct {
	Removed []RemovedImage `json:"removed"`
}

// OrphanGroup lists the annotations removed for one missing image id.
type OrphanGroup struct {
	ImageID       int   `json:"image_id"`
	AnnotationIDs []int `json:"annotation_ids"`
}

// PruneAnnotationsReport lists annotations dropped by PruneOrphanAnnotations,
// grouped by image id in ascending order.
type PruneAnnotationsReport struct {
	Groups []OrphanGroup `json:"groups"`
}

// Count returns the total number of removed annotations.
func (r *PruneAnnotationsReport) Count() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.AnnotationIDs)
	}
	return n
}

// DimensionChange records an image whose stored size disagreed with its file.
type DimensionChange struct {
	ImageID   int `json:"image_id"`
	OldWidth  int `json:"old_width"`
	OldHeight int `json:"old_height"`
	Width     int `json:"width"`
	Height    int `json:"height"`
}

// RefreshReport lists images whose dimensions were rewritten.
type RefreshReport struct {
	Changed []DimensionChange `json:"changed"`
}

// RenumberReport maps old ids to new ids per collection.
type RenumberReport struct {
	Categories  map[int]int `json:"categories"`
	Images      map[int]int `json:"images"`
	Annotations map[int]int `json:"annotations"`
}

// ResetRow joins a removed image with the annotations removed because of it.
// FileName is empty when no image record with that id existed.
type ResetRow struct {
	ImageID       int    `json:"image_id"`
	FileName      string `json:"file_name,omitempty"`
	AnnotationIDs []int  `json:"annotation_ids"`
}

// ResetReport is the combined outcome of ResetAnnotation.
type ResetReport struct {
	Rows     []ResetRow        `json:"rows"`
	Resized  []DimensionChange `json:"resized"`
	Renumber *RenumberReport   `json:"renumber"`
}

// RemovedAnnotations returns the total number of annotations removed.
func (r *ResetReport) RemovedAnnotations() int {
	n := 0
	for _, row := range r.Rows {
		n += len(row.AnnotationIDs)
	}
	return n
}

// ImageChange records an image file rewritten by an image pass.
type ImageChange struct {
	ImageID int    `json:"image_id"`
	Path    string `json:"path"`
}

// ImagePassReport lists the files an image pass rewrote.
type ImagePassReport struct {
	Changed []ImageChange `json:"changed"`
}

// Paths returns the rewritten file paths in dataset order.
func (r *ImagePassReport) Paths() []string {
	paths := make([]string, len(r.Changed))
	for i, c := range r.Changed {
		paths[i] = c.Path
	}
	return paths
}

// Crop is one instance cut out of its image.
type Crop struct {
	AnnotationID int    `json:"annotation_id"`
	ImageID      int    `json:"image_id"`
	CategoryID   int    `json:"category_id"`
	Path         string `json:"path"`
}

// CropReport lists written crops and annotations skipped for empty boxes.
type CropReport struct {
	Crops   []Crop `json:"crops"`
	Skipped []int  `json:"skipped"`
}

func removedIDs(before, after []*models.Image) []int {
	kept := make(map[int]bool, len(after))
	for _, img := range after {
		kept[img.ID] = true
	}
	var out []int
	for _, img := range before {
		if !kept[img.ID] {
			out = append(out, img.ID)
		}
	}
	return out
}
