package geometry

import (
	"image"
	"math"
)

// Box is an axis-aligned box in absolute pixel units, top-left corner plus size.
type Box struct {
	X, Y, W, H float64
}

// BoxFromSlice reads a COCO [x0, y0, w, h] array.
func BoxFromSlice(v []float64) (Box, error) {
	if len(v) != 4 {
		return Box{}, shapeErrorf("bbox needs 4 values, got %d", len(v))
	}
	return Box{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
}

// Slice returns the COCO [x0, y0, w, h] form.
func (b Box) Slice() []float64 {
	return []float64{b.X, b.Y, b.W, b.H}
}

// Extremes returns the corner pair (x1, y1, x2, y2).
func (b Box) Extremes() (x1, y1, x2, y2 float64) {
	return b.X, b.Y, b.X + b.W, b.Y + b.H
}

// Area returns W*H.
func (b Box) Area() float64 {
	return b.W * b.H
}

// Scale multiplies the box by independent x and y factors.
func (b Box) Scale(sx, sy float64) Box {
	return Box{X: b.X * sx, Y: b.Y * sy, W: b.W * sx, H: b.H * sy}
}

// Pad grows the box by p pixels on every side.
func (b Box) Pad(p float64) Box {
	return Box{X: b.X - p, Y: b.Y - p, W: b.W + 2*p, H: b.H + 2*p}
}

// Rect converts the box to the smallest integer rectangle covering it,
// clipped to bounds.
func (b Box) Rect(bounds image.Rectangle) image.Rectangle {
	r := image.Rect(
		int(math.Floor(b.X)), int(math.Floor(b.Y)),
		int(math.Ceil(b.X+b.W)), int(math.Ceil(b.Y+b.H)),
	)
	return r.Intersect(bounds)
}

// Polygon returns the four corners as a flat x,y list, clockwise from top-left.
func (b Box) Polygon() []float64 {
	x1, y1, x2, y2 := b.Extremes()
	return []float64{x1, y1, x2, y1, x2, y2, x1, y2}
}

// YoloToCorner denormalizes a center-format box given as fractions of the
// image size into absolute top-left corner format.
func YoloToCorner(xc, yc, w, h, imgW, imgH float64) (x0, y0, wPx, hPx float64) {
	wPx = w * imgW
	hPx = h * imgH
	x0 = xc*imgW - wPx/2
	y0 = yc*imgH - hPx/2
	return x0, y0, wPx, hPx
}

// CornerToYolo is the inverse of YoloToCorner.
func CornerToYolo(x0, y0, w, h, imgW, imgH float64) (xc, yc, wn, hn float64) {
	xc = (x0 + w/2) / imgW
	yc = (y0 + h/2) / imgH
	return xc, yc, w / imgW, h / imgH
}

// CenterToExtremes converts a center-format box to a corner pair. No scaling
// is applied; inputs may be normalized or absolute.
func CenterToExtremes(xc, yc, w, h float64) (x1, y1, x2, y2 float64) {
	return xc - w/2, yc - h/2, xc + w/2, yc + h/2
}
