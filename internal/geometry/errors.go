// Package geometry converts between bounding-box conventions, polygon vertex
// lists, run-length encoded masks and pixel masks. Nothing here touches the
// filesystem.
package geometry

import (
	"errors"
	"fmt"
)

// ErrShape is returned for malformed coordinate arrays and mask sizes.
var ErrShape = errors.New("malformed shape")

func shapeErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrShape, fmt.Sprintf(format, args...))
}
