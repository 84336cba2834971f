package geometry

import (
	"image"
	"image/color"

	"github.com/llgcode/draw2d/draw2dimg"
)

// coverageThreshold is the alpha at which a partially covered pixel counts
// as foreground.
const coverageThreshold = 0x80

// PolygonsToMask rasterizes every flat polygon into a height x width binary
// mask. Parts of a multi-part instance are merged with logical OR.
func PolygonsToMask(polys [][]float64, height, width int) (*Mask, error) {
	if height <= 0 || width <= 0 {
		return nil, shapeErrorf("invalid mask size %dx%d", width, height)
	}
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	gc := draw2dimg.NewGraphicContext(canvas)
	gc.SetFillColor(color.White)

	for _, flat := range polys {
		xs, ys, err := Deinterleave(flat)
		if err != nil {
			return nil, err
		}
		if len(xs) < 3 {
			return nil, shapeErrorf("polygon needs at least 3 vertices, got %d", len(xs))
		}
		gc.BeginPath()
		gc.MoveTo(xs[0], ys[0])
		for i := 1; i < len(xs); i++ {
			gc.LineTo(xs[i], ys[i])
		}
		gc.Close()
		gc.Fill()
	}

	m := NewMask(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if canvas.RGBAAt(x, y).A >= coverageThreshold {
				m.Pix[y*width+x] = 1
			}
		}
	}
	return m, nil
}

// SegmentationToMask rasterizes polygons or decodes RLE data into a mask of
// the requested size.
func SegmentationToMask(seg Segmentation, height, width int) (*Mask, error) {
	if seg.RLE != nil {
		if seg.RLE.Height != height || seg.RLE.Width != width {
			return nil, shapeErrorf("RLE size %dx%d does not match %dx%d",
				seg.RLE.Width, seg.RLE.Height, width, height)
		}
		return seg.RLE.Decode()
	}
	return PolygonsToMask(seg.Polygons, height, width)
}
