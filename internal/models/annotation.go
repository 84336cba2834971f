package models

import (
	"github.com/goccy/go-json"
	"github.com/kilupskalvis/cocokit/internal/geometry"
)

// Annotation is one object instance on one image.
type Annotation struct {
	ID           int                   `json:"id"`
	ImageID      int                   `json:"image_id"`
	CategoryID   int                   `json:"category_id"`
	Segmentation geometry.Segmentation `json:"segmentation"`
	Area         float64               `json:"area"`
	BBox         []float64             `json:"bbox"`
	IsCrowd      int                   `json:"iscrowd"`
	Extra        Extra                 `json:"-"`
}

type annotationAlias Annotation

// MarshalJSON writes the named fields followed by any preserved keys.
func (a Annotation) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(annotationAlias(a))
	if err != nil {
		return nil, err
	}
	return AppendExtra(b, a.Extra)
}

// UnmarshalJSON reads the named fields and keeps the rest in Extra.
func (a *Annotation) UnmarshalJSON(data []byte) error {
	var al annotationAlias
	if err := json.Unmarshal(data, &al); err != nil {
		return err
	}
	extra, err := SplitExtra(data, "id", "image_id", "category_id", "segmentation", "area", "bbox", "iscrowd")
	if err != nil {
		return err
	}
	al.Extra = extra
	*a = Annotation(al)
	return nil
}

// Box returns the bbox as a geometry.Box.
func (a *Annotation) Box() (geometry.Box, error) {
	return geometry.BoxFromSlice(a.BBox)
}

// Clone returns a deep copy.
func (a *Annotation) Clone() *Annotation {
	out := *a
	out.Segmentation = a.Segmentation.Clone()
	if a.BBox != nil {
		out.BBox = append([]float64(nil), a.BBox...)
	}
	out.Extra = a.Extra.Clone()
	return &out
}
