package dataset

import (
	"fmt"
	"math"

	"github.com/kilupskalvis/cocokit/internal/geometry"
	"github.com/kilupskalvis/cocokit/internal/models"
)

// InstanceMasks renders one binary mask per annotation, in input order.
func InstanceMasks(anns []*models.Annotation, height, width int) ([]*geometry.Mask, error) {
	masks := make([]*geometry.Mask, len(anns))
	for i, a := range anns {
		m, err := geometry.SegmentationToMask(a.Segmentation, height, width)
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", a.ID, err)
		}
		masks[i] = m
	}
	return masks, nil
}

// InstanceIndexMap paints each annotation with its 1-based position in anns.
// Overlaps keep the later instance.
func InstanceIndexMap(anns []*models.Annotation, height, width int) (*geometry.LabelMap, error) {
	if len(anns) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d instances exceed the 16-bit label range", geometry.ErrShape, len(anns))
	}
	masks, err := InstanceMasks(anns, height, width)
	if err != nil {
		return nil, err
	}
	lm := geometry.NewLabelMap(width, height)
	for i, m := range masks {
		if err := lm.Paint(m, uint16(i+1)); err != nil {
			return nil, err
		}
	}
	return lm, nil
}

// SemanticMap paints each annotation with its category id. Overlaps keep
// the later instance. Category ids must fit 1..65535; 0 is background.
func SemanticMap(anns []*models.Annotation, height, width int) (*geometry.LabelMap, error) {
	for _, a := range anns {
		if a.CategoryID < 1 || a.CategoryID > math.MaxUint16 {
			return nil, fmt.Errorf("%w: annotation %d: category %d is outside the 16-bit label range", geometry.ErrShape, a.ID, a.CategoryID)
		}
	}
	masks, err := InstanceMasks(anns, height, width)
	if err != nil {
		return nil, err
	}
	lm := geometry.NewLabelMap(width, height)
	for i, m := range masks {
		if err := lm.Paint(m, uint16(anns[i].CategoryID)); err != nil {
			return nil, err
		}
	}
	return lm, nil
}

// UnionMask merges all annotations into one binary mask.
func UnionMask(anns []*models.Annotation, height, width int) (*geometry.Mask, error) {
	out := geometry.NewMask(width, height)
	for _, a := range anns {
		m, err := geometry.SegmentationToMask(a.Segmentation, height, width)
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", a.ID, err)
		}
		if err := out.Or(m); err != nil {
			return nil, err
		}
	}
	return out, nil
}
