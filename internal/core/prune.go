package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/kilupskalvis/cocokit/internal/imagestore"
)

// PruneMissingImages drops every image whose file does not exist. Names are
// resolved against the dataset image directory. Annotations are left
// untouched, so the result may hold orphans until PruneOrphanAnnotations.
func PruneMissingImages(ctx context.Context, ds *dataset.Dataset, images imagestore.Store) (*dataset.Dataset, *PruneImagesReport, error) {
	exists := make([]bool, len(ds.Images))
	err := forEachIndex(ctx, len(ds.Images), func(ctx context.Context, i int) error {
		ok, err := images.Exists(ctx, ds.ImagePath(ds.Images[i]))
		if err != nil {
			return fmt.Errorf("check image %d: %w", ds.Images[i].ID, err)
		}
		exists[i] = ok
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	out := ds.Clone()
	report := &PruneImagesReport{Removed: []RemovedImage{}}
	out.Images = out.Images[:0]
	for i, img := range ds.Images {
		if exists[i] {
			out.Images = append(out.Images, img.Clone())
			continue
		}
		report.Removed = append(report.Removed, RemovedImage{ID: img.ID, FileName: img.FileName})
	}
	return out, report, nil
}

// PruneOrphanAnnotations drops annotations whose image id has no image
// record and groups the removed ids by that image id.
func PruneOrphanAnnotations(ds *dataset.Dataset) (*dataset.Dataset, *PruneAnnotationsReport) {
	present := imageIDSet(ds.Images)
	out := ds.Clone()
	out.Annotations = out.Annotations[:0]

	groups := make(map[int][]int)
	for _, a := range ds.Annotations {
		if present[a.ImageID] {
			out.Annotations = append(out.Annotations, a.Clone())
			continue
		}
		groups[a.ImageID] = append(groups[a.ImageID], a.ID)
	}

	report := &PruneAnnotationsReport{Groups: []OrphanGroup{}}
	for imageID, ids := range groups {
		report.Groups = append(report.Groups, OrphanGroup{ImageID: imageID, AnnotationIDs: ids})
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		return report.Groups[i].ImageID < report.Groups[j].ImageID
	})
	return out, report
}

// CheckIntegrity returns a *dataset.IntegrityError describing duplicate ids
// and dangling references, or nil.
func CheckIntegrity(ds *dataset.Dataset) error {
	return ds.CheckIntegrity()
}
