// Package convert translates between COCO annotations and the line-based
// label files used by YOLO-style detectors.
package convert

import (
	"fmt"

	"github.com/kilupskalvis/cocokit/internal/dataset"
)

// UnknownClassError reports a class id that has no catalog entry.
type UnknownClassError struct {
	CategoryID int
	Source     string
}

func (e *UnknownClassError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: category %d", dataset.ErrUnknownClass, e.CategoryID)
	}
	return fmt.Sprintf("%s: category %d (first seen in %s)", dataset.ErrUnknownClass, e.CategoryID, e.Source)
}

func (e *UnknownClassError) Unwrap() error {
	return dataset.ErrUnknownClass
}

func lineErrorf(n int, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", dataset.ErrFormat, n, fmt.Sprintf(format, args...))
}
