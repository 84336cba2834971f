package core

import (
	"context"
	"fmt"
	"image"
	"math"
	"path/filepath"
	"strings"

	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/kilupskalvis/cocokit/internal/geometry"
	"github.com/kilupskalvis/cocokit/internal/imagestore"
	"github.com/kilupskalvis/cocokit/internal/models"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// ResizeImages rewrites every referenced image in place at width x height
// and scales the geometry of its annotations to match. A zero width or
// height keeps the aspect ratio. Images already at the target size are not
// rewritten.
//
// Sizes and geometry are checked for every image before the first file is
// written. If a rewrite still fails, the returned dataset and report cover
// the images that were rewritten, alongside the error.
func ResizeImages(ctx context.Context, ds *dataset.Dataset, images imagestore.Store, width, height int) (*dataset.Dataset, *ImagePassReport, error) {
	if width <= 0 && height <= 0 {
		return nil, nil, fmt.Errorf("resize needs a positive width or height")
	}
	out := ds.Clone()
	targets := make([]image.Point, len(out.Images))
	sizes := make([]image.Point, len(out.Images))

	err := forEachIndex(ctx, len(out.Images), func(ctx context.Context, i int) error {
		rec := out.Images[i]
		w, h, err := images.Size(ctx, out.ImagePath(rec))
		if err != nil {
			return fmt.Errorf("resize image %d: %w", rec.ID, err)
		}
		tw, th := targetSize(w, h, width, height)
		sizes[i] = image.Pt(w, h)
		targets[i] = image.Pt(tw, th)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// Scaled copies are applied only once their image has been rewritten.
	index := make(map[int]int, len(out.Images))
	for i, rec := range out.Images {
		index[rec.ID] = i
	}
	scaled := make(map[int]*models.Annotation)
	for _, a := range out.Annotations {
		i, ok := index[a.ImageID]
		if !ok || sizes[i] == targets[i] {
			continue
		}
		c := a.Clone()
		sx := float64(targets[i].X) / float64(sizes[i].X)
		sy := float64(targets[i].Y) / float64(sizes[i].Y)
		if err := scaleAnnotation(c, sx, sy); err != nil {
			return nil, nil, fmt.Errorf("annotation %d: %w", a.ID, err)
		}
		scaled[a.ID] = c
	}

	written := make([]bool, len(out.Images))
	err = forEachIndex(ctx, len(out.Images), func(ctx context.Context, i int) error {
		if sizes[i] == targets[i] {
			return nil
		}
		rec := out.Images[i]
		path := out.ImagePath(rec)
		src, err := images.Read(ctx, path)
		if err != nil {
			return fmt.Errorf("resize image %d: %w", rec.ID, err)
		}
		dst := resize.Resize(uint(targets[i].X), uint(targets[i].Y), src, resize.Lanczos3)
		if err := images.Write(ctx, path, dst); err != nil {
			return fmt.Errorf("resize image %d: %w", rec.ID, err)
		}
		written[i] = true
		return nil
	})

	report := &ImagePassReport{Changed: []ImageChange{}}
	for i, rec := range out.Images {
		switch {
		case written[i]:
			rec.Width, rec.Height = targets[i].X, targets[i].Y
			report.Changed = append(report.Changed, ImageChange{ImageID: rec.ID, Path: out.ImagePath(rec)})
		case sizes[i] == targets[i]:
			rec.Width, rec.Height = sizes[i].X, sizes[i].Y
		}
	}
	for j, a := range out.Annotations {
		if c, ok := scaled[a.ID]; ok && written[index[a.ImageID]] {
			out.Annotations[j] = c
		}
	}
	return out, report, err
}

func targetSize(srcW, srcH, w, h int) (int, int) {
	switch {
	case w <= 0:
		w = int(math.Round(float64(h) * float64(srcW) / float64(srcH)))
	case h <= 0:
		h = int(math.Round(float64(w) * float64(srcH) / float64(srcW)))
	}
	return max(w, 1), max(h, 1)
}

func scaleAnnotation(a *models.Annotation, sx, sy float64) error {
	seg, err := a.Segmentation.Scale(sx, sy)
	if err != nil {
		return err
	}
	a.Segmentation = seg
	if len(a.BBox) == 4 {
		b, err := a.Box()
		if err != nil {
			return err
		}
		a.BBox = b.Scale(sx, sy).Slice()
	}
	if seg.RLE != nil {
		a.Area = float64(seg.RLE.Area())
	} else {
		a.Area *= sx * sy
	}
	return nil
}

// ConvertToGray rewrites every referenced image that is not already
// single-channel as 8-bit grayscale, in place.
func ConvertToGray(ctx context.Context, ds *dataset.Dataset, images imagestore.Store) (*ImagePassReport, error) {
	changed := make([]bool, len(ds.Images))
	err := forEachIndex(ctx, len(ds.Images), func(ctx context.Context, i int) error {
		rec := ds.Images[i]
		path := ds.ImagePath(rec)
		src, err := images.Read(ctx, path)
		if err != nil {
			return fmt.Errorf("gray image %d: %w", rec.ID, err)
		}
		switch src.(type) {
		case *image.Gray, *image.Gray16:
			return nil
		}
		b := src.Bounds()
		gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)
		if err := images.Write(ctx, path, gray); err != nil {
			return fmt.Errorf("gray image %d: %w", rec.ID, err)
		}
		changed[i] = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	report := &ImagePassReport{Changed: []ImageChange{}}
	for i, rec := range ds.Images {
		if changed[i] {
			report.Changed = append(report.Changed, ImageChange{ImageID: rec.ID, Path: ds.ImagePath(rec)})
		}
	}
	return report, nil
}

// CropOptions controls CropInstances.
type CropOptions struct {
	// Padding grows each box by this many pixels on every side.
	Padding float64
	// Width and Height, when both positive, resize every crop.
	Width, Height int
	// CategoryIDs restricts cropping to these categories when non-empty.
	CategoryIDs []int
}

// CropInstances cuts every annotation's box out of its image and writes it
// to dir as <image stem>_<annotation id>.png. Boxes that fall outside the
// image are skipped and listed in the report.
func CropInstances(ctx context.Context, ds *dataset.Dataset, images imagestore.Store, dir string, opts CropOptions) (*CropReport, error) {
	if err := images.MkdirAll(ctx, dir); err != nil {
		return nil, err
	}
	type result struct {
		crops   []Crop
		skipped []int
	}
	results := make([]result, len(ds.Images))

	err := forEachIndex(ctx, len(ds.Images), func(ctx context.Context, i int) error {
		rec := ds.Images[i]
		anns := ds.AnnotationsOf(rec.ID, opts.CategoryIDs...)
		if len(anns) == 0 {
			return nil
		}
		path := ds.ImagePath(rec)
		src, err := images.Read(ctx, path)
		if err != nil {
			return fmt.Errorf("crop image %d: %w", rec.ID, err)
		}
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		for _, a := range anns {
			box, err := a.Box()
			if err != nil {
				return fmt.Errorf("annotation %d: %w", a.ID, err)
			}
			crop, ok := cropBox(src, box.Pad(opts.Padding))
			if !ok {
				results[i].skipped = append(results[i].skipped, a.ID)
				continue
			}
			if opts.Width > 0 && opts.Height > 0 {
				crop = resize.Resize(uint(opts.Width), uint(opts.Height), crop, resize.Bilinear)
			}
			dst := filepath.Join(dir, fmt.Sprintf("%s_%d.png", stem, a.ID))
			if err := images.Write(ctx, dst, crop); err != nil {
				return err
			}
			results[i].crops = append(results[i].crops, Crop{
				AnnotationID: a.ID, ImageID: rec.ID, CategoryID: a.CategoryID, Path: dst,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report := &CropReport{Crops: []Crop{}, Skipped: []int{}}
	for _, r := range results {
		report.Crops = append(report.Crops, r.crops...)
		report.Skipped = append(report.Skipped, r.skipped...)
	}
	return report, nil
}

// cropBox copies the part of src covered by box into a new image.
func cropBox(src image.Image, box geometry.Box) (image.Image, bool) {
	r := box.Rect(src.Bounds())
	if r.Empty() {
		return nil, false
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Copy(dst, image.Point{}, src, r, draw.Src, nil)
	return dst, true
}
