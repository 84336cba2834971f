package core

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/kilupskalvis/cocokit/internal/imagestore"
)

// RefreshImageDimensions reads every image header and overwrites the
// stored width and height. A missing or unreadable file fails the whole
// operation; run PruneMissingImages first.
func RefreshImageDimensions(ctx context.Context, ds *dataset.Dataset, images imagestore.Store) (*dataset.Dataset, *RefreshReport, error) {
	out := ds.Clone()
	sizes := make([][2]int, len(out.Images))
	err := forEachIndex(ctx, len(out.Images), func(ctx context.Context, i int) error {
		img := out.Images[i]
		w, h, err := images.Size(ctx, out.ImagePath(img))
		if err != nil {
			return fmt.Errorf("refresh image %d: %w", img.ID, err)
		}
		sizes[i] = [2]int{w, h}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	report := &RefreshReport{Changed: []DimensionChange{}}
	for i, img := range out.Images {
		w, h := sizes[i][0], sizes[i][1]
		if img.Width == w && img.Height == h {
			continue
		}
		report.Changed = append(report.Changed, DimensionChange{
			ImageID:  img.ID,
			OldWidth: img.Width, OldHeight: img.Height,
			Width: w, Height: h,
		})
		img.Width, img.Height = w, h
	}
	return out, report, nil
}
