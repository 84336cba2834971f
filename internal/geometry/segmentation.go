package geometry

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Segmentation is either a list of flat polygons or a single RLE mask.
// Exactly one of the fields is set for a non-empty segmentation.
type Segmentation struct {
	Polygons [][]float64
	RLE      *RLE
}

// PolygonSegmentation wraps a single flat polygon.
func PolygonSegmentation(flat []float64) Segmentation {
	return Segmentation{Polygons: [][]float64{flat}}
}

// IsEmpty reports whether the segmentation carries no geometry.
func (s Segmentation) IsEmpty() bool {
	return s.RLE == nil && len(s.Polygons) == 0
}

// Area returns the summed polygon area or the RLE pixel count.
func (s Segmentation) Area() (float64, error) {
	if s.RLE != nil {
		return float64(s.RLE.Area()), nil
	}
	var total float64
	for _, p := range s.Polygons {
		a, err := FlatPolygonArea(p)
		if err != nil {
			return 0, err
		}
		total += a
	}
	return total, nil
}

// BoundingBox returns the box around all polygon parts or the RLE mask.
func (s Segmentation) BoundingBox() (Box, error) {
	if s.RLE != nil {
		return s.RLE.BoundingBox()
	}
	return PolygonsBoundingBox(s.Polygons)
}

// LargestPolygon returns the part with the greatest absolute area.
func (s Segmentation) LargestPolygon() ([]float64, error) {
	var best []float64
	bestArea := -1.0
	for _, p := range s.Polygons {
		a, err := FlatPolygonArea(p)
		if err != nil {
			return nil, err
		}
		if a > bestArea {
			best, bestArea = p, a
		}
	}
	if best == nil {
		return nil, shapeErrorf("segmentation has no polygons")
	}
	return best, nil
}

// Scale multiplies polygon coordinates by (sx, sy). RLE masks are resampled
// by nearest neighbour into the new size.
func (s Segmentation) Scale(sx, sy float64) (Segmentation, error) {
	if s.RLE != nil {
		m, err := s.RLE.Decode()
		if err != nil {
			return Segmentation{}, err
		}
		w := int(float64(m.Width)*sx + 0.5)
		h := int(float64(m.Height)*sy + 0.5)
		out := NewMask(w, h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Pix[y*w+x] = m.At(int(float64(x)/sx), int(float64(y)/sy))
			}
		}
		r := EncodeMask(out)
		r.Compressed = s.RLE.Compressed
		return Segmentation{RLE: r}, nil
	}
	polys := make([][]float64, len(s.Polygons))
	for i, p := range s.Polygons {
		polys[i] = ScalePolygon(p, sx, sy)
	}
	return Segmentation{Polygons: polys}, nil
}

// Clone returns a deep copy.
func (s Segmentation) Clone() Segmentation {
	var out Segmentation
	if s.Polygons != nil {
		out.Polygons = make([][]float64, len(s.Polygons))
		for i, p := range s.Polygons {
			out.Polygons[i] = append([]float64(nil), p...)
		}
	}
	if s.RLE != nil {
		r := *s.RLE
		r.Counts = append([]int(nil), s.RLE.Counts...)
		out.RLE = &r
	}
	return out
}

type rleJSON struct {
	Size   []int           `json:"size"`
	Counts json.RawMessage `json:"counts"`
}

// MarshalJSON writes polygons as nested arrays and RLE as a
// {"size": [h, w], "counts": ...} object.
func (s Segmentation) MarshalJSON() ([]byte, error) {
	if s.RLE == nil {
		if s.Polygons == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(s.Polygons)
	}
	var counts []byte
	var err error
	if s.RLE.Compressed {
		counts, err = json.Marshal(s.RLE.String())
	} else {
		counts, err = json.Marshal(s.RLE.Counts)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(rleJSON{Size: []int{s.RLE.Height, s.RLE.Width}, Counts: counts})
}

// UnmarshalJSON accepts polygon arrays and both RLE forms.
func (s *Segmentation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*s = Segmentation{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '[' {
		var polys [][]float64
		if err := json.Unmarshal(data, &polys); err != nil {
			return shapeErrorf("polygon segmentation: %v", err)
		}
		s.Polygons = polys
		return nil
	}

	var raw rleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return shapeErrorf("RLE segmentation: %v", err)
	}
	if len(raw.Size) != 2 {
		return shapeErrorf("RLE size needs 2 values, got %d", len(raw.Size))
	}
	h, w := raw.Size[0], raw.Size[1]
	counts := bytes.TrimSpace(raw.Counts)
	if len(counts) > 0 && counts[0] == '"' {
		var str string
		if err := json.Unmarshal(counts, &str); err != nil {
			return shapeErrorf("RLE counts: %v", err)
		}
		r, err := ParseRLEString(str, h, w)
		if err != nil {
			return err
		}
		s.RLE = r
		return nil
	}
	var ints []int
	if err := json.Unmarshal(counts, &ints); err != nil {
		return shapeErrorf("RLE counts: %v", err)
	}
	s.RLE = &RLE{Height: h, Width: w, Counts: ints}
	return nil
}
