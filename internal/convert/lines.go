package convert

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/kilupskalvis/cocokit/internal/geometry"
	"github.com/kilupskalvis/cocokit/internal/models"
)

// ToLineLabels renders the annotations of one image as
// "class x1 y1 ... xn yn" lines with coordinates normalized by the image
// size. The class written is category id - 1. Multi-part polygons emit their
// largest part; RLE and empty segmentations emit the bbox corners.
func ToLineLabels(ds *dataset.Dataset, imageID int) ([]string, error) {
	img, err := ds.Image(imageID)
	if err != nil {
		return nil, err
	}
	if img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("image %d has no size: %w", img.ID, geometry.ErrShape)
	}
	w, h := float64(img.Width), float64(img.Height)

	lines := []string{}
	for _, a := range ds.AnnotationsOf(imageID) {
		flat, err := exportPolygon(a)
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", a.ID, err)
		}
		fields := make([]string, 0, len(flat)+1)
		fields = append(fields, strconv.Itoa(a.CategoryID-1))
		for i, v := range flat {
			if i%2 == 0 {
				v /= w
			} else {
				v /= h
			}
			fields = append(fields, formatFloat(v))
		}
		lines = append(lines, strings.Join(fields, " "))
	}
	return lines, nil
}

func exportPolygon(a *models.Annotation) ([]float64, error) {
	if a.Segmentation.RLE == nil && len(a.Segmentation.Polygons) > 0 {
		return a.Segmentation.LargestPolygon()
	}
	b, err := a.Box()
	if err != nil {
		return nil, err
	}
	return b.Polygon(), nil
}

// FromLineLabels parses label lines for an image of the given size into
// annotations without ids or image ids. Lines with fewer than two values are
// skipped.
//
// Four coordinates are a YOLO box with category id = class. Five add a
// detector confidence, kept as "score". Six or more are a normalized polygon
// with category id = class + 1.
func FromLineLabels(lines []string, width, height int) ([]*models.Annotation, error) {
	w, h := float64(width), float64(height)
	var anns []*models.Annotation
	for n, line := range lines {
		values, err := parseFields(strings.Fields(line))
		if err != nil {
			return nil, lineErrorf(n+1, "%v", err)
		}
		if len(values) < 2 {
			continue
		}
		class := int(values[0])
		coords := values[1:]

		switch {
		case len(coords) == 4 || len(coords) == 5:
			x0, y0, bw, bh := geometry.YoloToCorner(coords[0], coords[1], coords[2], coords[3], w, h)
			box := geometry.Box{X: x0, Y: y0, W: bw, H: bh}
			a := &models.Annotation{
				CategoryID:   class,
				Segmentation: geometry.PolygonSegmentation(box.Polygon()),
				Area:         box.Area(),
				BBox:         box.Slice(),
			}
			if len(coords) == 5 {
				score, _ := json.Marshal(coords[4])
				a.Extra = models.Extra{"score": score}
			}
			anns = append(anns, a)

		case len(coords) >= 6 && len(coords)%2 == 0:
			flat := geometry.ScalePolygon(coords, w, h)
			xs, ys, err := geometry.Deinterleave(flat)
			if err != nil {
				return nil, lineErrorf(n+1, "%v", err)
			}
			area, err := geometry.PolygonArea(xs, ys)
			if err != nil {
				return nil, lineErrorf(n+1, "%v", err)
			}
			box, err := geometry.PolygonToBoundingBox(xs, ys)
			if err != nil {
				return nil, lineErrorf(n+1, "%v", err)
			}
			anns = append(anns, &models.Annotation{
				CategoryID:   class + 1,
				Segmentation: geometry.PolygonSegmentation(flat),
				Area:         area,
				BBox:         box.Slice(),
			})

		default:
			return nil, fmt.Errorf("line %d: %d coordinates: %w", n+1, len(coords), geometry.ErrShape)
		}
	}
	return anns, nil
}

func parseFields(fields []string) ([]float64, error) {
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("field %d: %q is not a number", i+1, f)
		}
		values[i] = v
	}
	return values, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// splitLines splits file content into lines, dropping a trailing empty line
// and carriage returns.
func splitLines(data []byte) []string {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func joinLines(lines []string) []byte {
	if len(lines) == 0 {
		return nil
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}
