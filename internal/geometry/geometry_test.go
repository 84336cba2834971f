package geometry

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== Box Tests ====================

func TestYoloToCorner(t *testing.T) {
	x0, y0, w, h := YoloToCorner(0.5, 0.5, 0.5, 0.5, 100, 100)
	assert.Equal(t, 25.0, x0)
	assert.Equal(t, 25.0, y0)
	assert.Equal(t, 50.0, w)
	assert.Equal(t, 50.0, h)
}

func TestCornerToYolo_RoundTrip(t *testing.T) {
	xc, yc, w, h := CornerToYolo(10, 20, 30, 40, 200, 100)
	x0, y0, wp, hp := YoloToCorner(xc, yc, w, h, 200, 100)
	assert.InDelta(t, 10, x0, 1e-9)
	assert.InDelta(t, 20, y0, 1e-9)
	assert.InDelta(t, 30, wp, 1e-9)
	assert.InDelta(t, 40, hp, 1e-9)
}

func TestCenterToExtremes(t *testing.T) {
	x1, y1, x2, y2 := CenterToExtremes(0.5, 0.5, 0.2, 0.4)
	assert.InDelta(t, 0.4, x1, 1e-9)
	assert.InDelta(t, 0.3, y1, 1e-9)
	assert.InDelta(t, 0.6, x2, 1e-9)
	assert.InDelta(t, 0.7, y2, 1e-9)
}

func TestBoxFromSlice_WrongLength(t *testing.T) {
	_, err := BoxFromSlice([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrShape)
}

func TestBox_Polygon(t *testing.T) {
	b := Box{X: 1, Y: 2, W: 3, H: 4}
	assert.Equal(t, []float64{1, 2, 4, 2, 4, 6, 1, 6}, b.Polygon())
}

// ==================== Polygon Tests ====================

func TestPolygon_UnitSquare(t *testing.T) {
	xs := []float64{0, 1, 1, 0}
	ys := []float64{0, 0, 1, 1}

	b, err := PolygonToBoundingBox(xs, ys)
	require.NoError(t, err)
	assert.Equal(t, Box{X: 0, Y: 0, W: 1, H: 1}, b)

	a, err := PolygonArea(xs, ys)
	require.NoError(t, err)
	assert.Equal(t, 1.0, a)
}

func TestPolygonSignedArea_Winding(t *testing.T) {
	xs := []float64{0, 1, 1, 0}
	ys := []float64{0, 0, 1, 1}
	a, err := PolygonSignedArea(xs, ys)
	require.NoError(t, err)

	rx := []float64{0, 0, 1, 1}
	ry := []float64{0, 1, 1, 0}
	r, err := PolygonSignedArea(rx, ry)
	require.NoError(t, err)

	assert.Equal(t, -a, r)
	assert.Equal(t, 1.0, abs(a))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestDeinterleave_OddCount(t *testing.T) {
	_, _, err := Deinterleave([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrShape)

	_, err = FlatPolygonArea(nil)
	assert.ErrorIs(t, err, ErrShape)
}

func TestInterleave_RoundTrip(t *testing.T) {
	flat := []float64{1, 2, 3, 4, 5, 6}
	xs, ys, err := Deinterleave(flat)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 5}, xs)
	assert.Equal(t, []float64{2, 4, 6}, ys)

	back, err := Interleave(xs, ys)
	require.NoError(t, err)
	assert.Equal(t, flat, back)

	_, err = Interleave(xs, ys[:2])
	assert.ErrorIs(t, err, ErrShape)
}

func TestPolygonToBoundingBox_LengthMismatch(t *testing.T) {
	_, err := PolygonToBoundingBox([]float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrShape)
}

func TestPolygonsBoundingBox_MultiPart(t *testing.T) {
	b, err := PolygonsBoundingBox([][]float64{
		{0, 0, 2, 0, 2, 2},
		{5, 5, 8, 5, 8, 9},
	})
	require.NoError(t, err)
	assert.Equal(t, Box{X: 0, Y: 0, W: 8, H: 9}, b)
}

// ==================== Raster Tests ====================

func TestPolygonsToMask_Square(t *testing.T) {
	m, err := PolygonsToMask([][]float64{{10, 10, 20, 10, 20, 20, 10, 20}}, 32, 32)
	require.NoError(t, err)

	assert.Equal(t, 32, m.Width)
	assert.Equal(t, 32, m.Height)
	assert.InDelta(t, 100, m.Area(), 2)
	assert.Equal(t, uint8(1), m.At(15, 15))
	assert.Equal(t, uint8(0), m.At(5, 5))
}

func TestPolygonsToMask_TooFewVertices(t *testing.T) {
	_, err := PolygonsToMask([][]float64{{1, 1, 2, 2}}, 10, 10)
	assert.ErrorIs(t, err, ErrShape)
}

func TestSegmentationToMask_RLESizeMismatch(t *testing.T) {
	seg := Segmentation{RLE: &RLE{Height: 2, Width: 2, Counts: []int{4}}}
	_, err := SegmentationToMask(seg, 3, 3)
	assert.ErrorIs(t, err, ErrShape)
}

// ==================== RLE Tests ====================

func TestEncodeMask_ColumnMajor(t *testing.T) {
	m := NewMask(3, 2)
	m.Set(1, 0, 1)

	r := EncodeMask(m)
	assert.Equal(t, []int{2, 1, 3}, r.Counts)
	assert.Equal(t, 1, r.Area())

	back, err := r.Decode()
	require.NoError(t, err)
	assert.Equal(t, m.Pix, back.Pix)
}

func TestEncodeMask_StartsWithForeground(t *testing.T) {
	m := NewMask(2, 2)
	m.Set(0, 0, 1)
	r := EncodeMask(m)
	assert.Equal(t, []int{0, 1, 3}, r.Counts)
}

func TestRLE_DecodeSizeMismatch(t *testing.T) {
	r := &RLE{Height: 2, Width: 2, Counts: []int{1, 1}}
	_, err := r.Decode()
	assert.ErrorIs(t, err, ErrShape)
}

func TestRLEString_Simple(t *testing.T) {
	r := &RLE{Height: 1, Width: 5, Counts: []int{2, 3}}
	assert.Equal(t, "23", r.String())

	parsed, err := ParseRLEString("23", 1, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, parsed.Counts)
}

func TestRLEString_RoundTrip(t *testing.T) {
	cases := [][]int{
		{0, 1, 3},
		{5, 3, 7, 2, 10},
		{100, 1000, 2, 3, 40000, 1},
		{2, 3, 4, 2, 1},
	}
	for _, counts := range cases {
		s := encodeCounts(counts)
		got, err := decodeCounts(s)
		require.NoError(t, err)
		assert.Equal(t, counts, got, "string %q", s)
	}
}

func TestParseRLEString_InvalidCharacter(t *testing.T) {
	_, err := ParseRLEString("2 3", 1, 5)
	assert.ErrorIs(t, err, ErrShape)
}

func TestMergeRLE(t *testing.T) {
	a := NewMask(2, 2)
	a.Set(0, 0, 1)
	a.Set(1, 0, 1)
	b := NewMask(2, 2)
	b.Set(1, 0, 1)
	b.Set(1, 1, 1)

	union, err := MergeRLE([]*RLE{EncodeMask(a), EncodeMask(b)}, false)
	require.NoError(t, err)
	assert.Equal(t, 3, union.Area())

	inter, err := MergeRLE([]*RLE{EncodeMask(a), EncodeMask(b)}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, inter.Area())

	bb, err := inter.BoundingBox()
	require.NoError(t, err)
	assert.Equal(t, Box{X: 1, Y: 0, W: 1, H: 1}, bb)
}

// ==================== Segmentation Tests ====================

func TestSegmentation_JSONPolygons(t *testing.T) {
	var s Segmentation
	require.NoError(t, json.Unmarshal([]byte(`[[0,0,1,0,1,1,0,1]]`), &s))
	require.Nil(t, s.RLE)
	require.Len(t, s.Polygons, 1)

	a, err := s.Area()
	require.NoError(t, err)
	assert.Equal(t, 1.0, a)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `[[0,0,1,0,1,1,0,1]]`, string(out))
}

func TestSegmentation_JSONCompressedRLE(t *testing.T) {
	var s Segmentation
	require.NoError(t, json.Unmarshal([]byte(`{"size":[1,5],"counts":"23"}`), &s))
	require.NotNil(t, s.RLE)
	assert.Equal(t, []int{2, 3}, s.RLE.Counts)
	assert.True(t, s.RLE.Compressed)
	assert.Equal(t, 3, s.RLE.Area())

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"size":[1,5],"counts":"23"}`, string(out))
}

func TestSegmentation_JSONUncompressedRLE(t *testing.T) {
	var s Segmentation
	require.NoError(t, json.Unmarshal([]byte(`{"size":[2,2],"counts":[1,2,1]}`), &s))
	require.NotNil(t, s.RLE)
	assert.False(t, s.RLE.Compressed)

	m, err := SegmentationToMask(s, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Area())

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"size":[2,2],"counts":[1,2,1]}`, string(out))
}

func TestSegmentation_JSONBadSize(t *testing.T) {
	var s Segmentation
	err := json.Unmarshal([]byte(`{"size":[2],"counts":[4]}`), &s)
	assert.ErrorIs(t, err, ErrShape)
}

func TestSegmentation_LargestPolygon(t *testing.T) {
	s := Segmentation{Polygons: [][]float64{
		{0, 0, 1, 0, 1, 1},
		{0, 0, 4, 0, 4, 4, 0, 4},
	}}
	p, err := s.LargestPolygon()
	require.NoError(t, err)
	assert.Len(t, p, 8)
}

func TestSegmentation_ScalePolygons(t *testing.T) {
	s := PolygonSegmentation([]float64{1, 2, 3, 4})
	out, err := s.Scale(2, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 6, 6, 12}, out.Polygons[0])
	assert.Equal(t, []float64{1, 2, 3, 4}, s.Polygons[0])
}

func TestSegmentation_IsEmpty(t *testing.T) {
	assert.True(t, Segmentation{}.IsEmpty())
	assert.False(t, PolygonSegmentation([]float64{0, 0, 1, 0, 1, 1}).IsEmpty())
	assert.False(t, Segmentation{RLE: &RLE{Height: 1, Width: 1, Counts: []int{1}}}.IsEmpty())
}

func TestSegmentation_Clone(t *testing.T) {
	s := Segmentation{RLE: &RLE{Height: 1, Width: 2, Counts: []int{1, 1}}}
	c := s.Clone()
	c.RLE.Counts[0] = 9
	assert.Equal(t, 1, s.RLE.Counts[0])
}

// ==================== Mask Tests ====================

func TestLabelMap_PaintLaterWins(t *testing.T) {
	l := NewLabelMap(2, 1)
	a := NewMask(2, 1)
	a.Set(0, 0, 1)
	a.Set(1, 0, 1)
	b := NewMask(2, 1)
	b.Set(1, 0, 1)

	require.NoError(t, l.Paint(a, 1))
	require.NoError(t, l.Paint(b, 2))
	assert.Equal(t, []uint16{1, 2}, l.Pix)
	assert.ElementsMatch(t, []uint16{1, 2}, l.Labels())
}

func TestMaskFromImage_RoundTrip(t *testing.T) {
	m := NewMask(3, 3)
	m.Set(1, 1, 1)
	back := MaskFromImage(m.Gray(255))
	assert.Equal(t, m.Pix, back.Pix)
}
