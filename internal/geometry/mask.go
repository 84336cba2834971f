package geometry

import (
	"image"
	"image/color"
)

// Mask is a binary raster stored row-major, one byte per pixel (0 or 1).
type Mask struct {
	Width, Height int
	Pix           []uint8
}

// NewMask allocates an empty width x height mask.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// At reports the mask value at (x, y); out-of-range reads return 0.
func (m *Mask) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Pix[y*m.Width+x]
}

// Set writes v (normalized to 0/1) at (x, y).
func (m *Mask) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	if v != 0 {
		v = 1
	}
	m.Pix[y*m.Width+x] = v
}

// Area returns the number of foreground pixels.
func (m *Mask) Area() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Or merges o into m.
func (m *Mask) Or(o *Mask) error {
	if m.Width != o.Width || m.Height != o.Height {
		return shapeErrorf("mask size mismatch: %dx%d vs %dx%d", m.Width, m.Height, o.Width, o.Height)
	}
	for i, v := range o.Pix {
		if v != 0 {
			m.Pix[i] = 1
		}
	}
	return nil
}

// And keeps only pixels set in both masks.
func (m *Mask) And(o *Mask) error {
	if m.Width != o.Width || m.Height != o.Height {
		return shapeErrorf("mask size mismatch: %dx%d vs %dx%d", m.Width, m.Height, o.Width, o.Height)
	}
	for i, v := range o.Pix {
		if v == 0 {
			m.Pix[i] = 0
		}
	}
	return nil
}

// BoundingBox returns the tight box around foreground pixels. ok is false for
// an empty mask.
func (m *Mask) BoundingBox() (b Box, ok bool) {
	minX, minY := m.Width, m.Height
	maxX, maxY := -1, -1
	for y := 0; y < m.Height; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x, v := range row {
			if v == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < 0 {
		return Box{}, false
	}
	return Box{
		X: float64(minX), Y: float64(minY),
		W: float64(maxX - minX + 1), H: float64(maxY - minY + 1),
	}, true
}

// Gray renders the mask with foreground pixels set to fg.
func (m *Mask) Gray(fg uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		if v != 0 {
			img.Pix[i] = fg
		}
	}
	return img
}

// MaskFromImage thresholds img: any pixel with luminance or alpha above
// half range becomes foreground.
func MaskFromImage(img image.Image) *Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
			if g.Y >= 0x8000 {
				m.Pix[(y-b.Min.Y)*m.Width+(x-b.Min.X)] = 1
			}
		}
	}
	return m
}

// LabelMap is a single-channel raster of integer labels, row-major.
type LabelMap struct {
	Width, Height int
	Pix           []uint16
}

// NewLabelMap allocates an all-background label map.
func NewLabelMap(width, height int) *LabelMap {
	return &LabelMap{Width: width, Height: height, Pix: make([]uint16, width*height)}
}

// At returns the label at (x, y).
func (l *LabelMap) At(x, y int) uint16 {
	if x < 0 || y < 0 || x >= l.Width || y >= l.Height {
		return 0
	}
	return l.Pix[y*l.Width+x]
}

// Paint writes label v wherever m is set, overwriting earlier labels.
func (l *LabelMap) Paint(m *Mask, v uint16) error {
	if m.Width != l.Width || m.Height != l.Height {
		return shapeErrorf("mask size mismatch: %dx%d vs %dx%d", m.Width, m.Height, l.Width, l.Height)
	}
	for i, p := range m.Pix {
		if p != 0 {
			l.Pix[i] = v
		}
	}
	return nil
}

// Labels returns the distinct non-zero labels present.
func (l *LabelMap) Labels() []uint16 {
	seen := make(map[uint16]bool)
	var out []uint16
	for _, v := range l.Pix {
		if v != 0 && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// Gray16 renders the labels verbatim into a 16-bit grayscale image.
func (l *LabelMap) Gray16() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, l.Width, l.Height))
	for i, v := range l.Pix {
		img.SetGray16(i%l.Width, i/l.Width, color.Gray16{Y: v})
	}
	return img
}
