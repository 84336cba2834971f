package geometry

import "math"

// Deinterleave splits a flat x0,y0,x1,y1,... list into coordinate slices.
func Deinterleave(flat []float64) (xs, ys []float64, err error) {
	if len(flat) == 0 || len(flat)%2 != 0 {
		return nil, nil, shapeErrorf("flat polygon needs an even, non-zero coordinate count, got %d", len(flat))
	}
	n := len(flat) / 2
	xs = make([]float64, n)
	ys = make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = flat[2*i]
		ys[i] = flat[2*i+1]
	}
	return xs, ys, nil
}

// Interleave is the inverse of Deinterleave.
func Interleave(xs, ys []float64) ([]float64, error) {
	if len(xs) != len(ys) {
		return nil, shapeErrorf("x/y length mismatch: %d vs %d", len(xs), len(ys))
	}
	flat := make([]float64, 0, 2*len(xs))
	for i := range xs {
		flat = append(flat, xs[i], ys[i])
	}
	return flat, nil
}

// PolygonSignedArea applies the shoelace formula
// 0.5 * (Σ x[i]·y[i-1] − Σ y[i]·x[i-1]) over the closed polygon. The sign
// depends on vertex winding.
func PolygonSignedArea(xs, ys []float64) (float64, error) {
	if len(xs) != len(ys) {
		return 0, shapeErrorf("x/y length mismatch: %d vs %d", len(xs), len(ys))
	}
	n := len(xs)
	if n == 0 {
		return 0, shapeErrorf("empty polygon")
	}
	var a, b float64
	for i := 0; i < n; i++ {
		prev := (i - 1 + n) % n
		a += xs[i] * ys[prev]
		b += ys[i] * xs[prev]
	}
	return 0.5 * (a - b), nil
}

// PolygonArea is the absolute value of PolygonSignedArea.
func PolygonArea(xs, ys []float64) (float64, error) {
	a, err := PolygonSignedArea(xs, ys)
	if err != nil {
		return 0, err
	}
	return math.Abs(a), nil
}

// FlatPolygonArea de-interleaves flat before computing the absolute area.
func FlatPolygonArea(flat []float64) (float64, error) {
	xs, ys, err := Deinterleave(flat)
	if err != nil {
		return 0, err
	}
	return PolygonArea(xs, ys)
}

// PolygonToBoundingBox returns the axis-aligned box of a vertex set.
func PolygonToBoundingBox(xs, ys []float64) (Box, error) {
	if len(xs) != len(ys) {
		return Box{}, shapeErrorf("x/y length mismatch: %d vs %d", len(xs), len(ys))
	}
	if len(xs) == 0 {
		return Box{}, shapeErrorf("empty polygon")
	}
	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := 1; i < len(xs); i++ {
		minX = math.Min(minX, xs[i])
		maxX = math.Max(maxX, xs[i])
		minY = math.Min(minY, ys[i])
		maxY = math.Max(maxY, ys[i])
	}
	return Box{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}, nil
}

// PolygonsBoundingBox returns the box enclosing every part of a multi-part
// polygon given as flat coordinate lists.
func PolygonsBoundingBox(polys [][]float64) (Box, error) {
	var xs, ys []float64
	for _, p := range polys {
		px, py, err := Deinterleave(p)
		if err != nil {
			return Box{}, err
		}
		xs = append(xs, px...)
		ys = append(ys, py...)
	}
	return PolygonToBoundingBox(xs, ys)
}

// ScalePolygon multiplies x coordinates by sx and y coordinates by sy.
func ScalePolygon(flat []float64, sx, sy float64) []float64 {
	out := make([]float64, len(flat))
	for i, v := range flat {
		if i%2 == 0 {
			out[i] = v * sx
		} else {
			out[i] = v * sy
		}
	}
	return out
}
