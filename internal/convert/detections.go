package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kilupskalvis/cocokit/internal/geometry"
	"github.com/kilupskalvis/cocokit/internal/imagestore"
)

// DetectionFormat selects the corner layout ConvertDetections writes.
type DetectionFormat int

const (
	// FormatXYXY writes "class x1 y1 x2 y2 [conf]".
	FormatXYXY DetectionFormat = iota
	// FormatClassConfXYXY writes "class conf x1 y1 x2 y2" and requires a
	// confidence on every input line.
	FormatClassConfXYXY
)

// String returns the flag name of the format.
func (f DetectionFormat) String() string {
	switch f {
	case FormatXYXY:
		return "xyxy"
	case FormatClassConfXYXY:
		return "cls-conf-xyxy"
	default:
		return "unknown"
	}
}

// ParseDetectionFormat is the inverse of DetectionFormat.String.
func ParseDetectionFormat(s string) (DetectionFormat, error) {
	switch s {
	case "xyxy":
		return FormatXYXY, nil
	case "cls-conf-xyxy":
		return FormatClassConfXYXY, nil
	}
	return 0, fmt.Errorf("unknown detection format %q (want xyxy or cls-conf-xyxy)", s)
}

// ConvertDetections rewrites "class xc yc w h [conf]" detector output into
// corner form. Coordinates keep their scale. Blank lines are dropped.
func ConvertDetections(lines []string, format DetectionFormat) ([]string, error) {
	out := make([]string, 0, len(lines))
	for n, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 5 && len(fields) != 6 {
			return nil, lineErrorf(n+1, "want 5 or 6 fields, got %d", len(fields))
		}
		values, err := parseFields(fields[1:])
		if err != nil {
			return nil, lineErrorf(n+1, "%v", err)
		}
		x1, y1, x2, y2 := geometry.CenterToExtremes(values[0], values[1], values[2], values[3])
		corners := []string{formatFloat(x1), formatFloat(y1), formatFloat(x2), formatFloat(y2)}
		class := fields[0]

		switch format {
		case FormatXYXY:
			row := append([]string{class}, corners...)
			if len(values) == 5 {
				row = append(row, formatFloat(values[4]))
			}
			out = append(out, strings.Join(row, " "))
		case FormatClassConfXYXY:
			if len(values) != 5 {
				return nil, lineErrorf(n+1, "missing confidence")
			}
			row := append([]string{class, formatFloat(values[4])}, corners...)
			out = append(out, strings.Join(row, " "))
		default:
			return nil, fmt.Errorf("unknown detection format %d", format)
		}
	}
	return out, nil
}

// LineTransform rewrites the lines of one label file.
type LineTransform func(lines []string) ([]string, error)

// TransformDirectory applies fn to every .txt file in inDir and writes the
// result under the same name in outDir. It returns the written paths.
func TransformDirectory(ctx context.Context, store imagestore.Store, inDir, outDir string, fn LineTransform) ([]string, error) {
	files, err := store.List(ctx, inDir, ".txt")
	if err != nil {
		return nil, err
	}
	if err := store.MkdirAll(ctx, outDir); err != nil {
		return nil, err
	}
	written := make([]string, 0, len(files))
	for _, path := range files {
		data, err := store.ReadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		lines, err := fn(splitLines(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		dst := filepath.Join(outDir, filepath.Base(path))
		if err := store.WriteFile(ctx, dst, joinLines(lines)); err != nil {
			return nil, err
		}
		written = append(written, dst)
	}
	return written, nil
}

// ConvertDetectionDir converts every detector output file in inDir.
func ConvertDetectionDir(ctx context.Context, store imagestore.Store, inDir, outDir string, format DetectionFormat) ([]string, error) {
	return TransformDirectory(ctx, store, inDir, outDir, func(lines []string) ([]string, error) {
		return ConvertDetections(lines, format)
	})
}
