package core

import (
	"context"
	"log/slog"
	"sort"

	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/kilupskalvis/cocokit/internal/imagestore"
)

// ResetAnnotation prunes missing images and their orphaned annotations,
// re-reads image sizes and renumbers every id. Missing images are pruned a
// second time right before the size pass so files removed in between are
// reported instead of failing the refresh.
func ResetAnnotation(ctx context.Context, ds *dataset.Dataset, images imagestore.Store) (*dataset.Dataset, *ResetReport, error) {
	cur, pruned, err := PruneMissingImages(ctx, ds, images)
	if err != nil {
		return nil, nil, err
	}
	cur, orphans := PruneOrphanAnnotations(cur)

	cur, again, err := PruneMissingImages(ctx, cur, images)
	if err != nil {
		return nil, nil, err
	}
	if len(again.Removed) > 0 {
		var more *PruneAnnotationsReport
		cur, more = PruneOrphanAnnotations(cur)
		pruned.Removed = append(pruned.Removed, again.Removed...)
		orphans.Groups = append(orphans.Groups, more.Groups...)
	}

	cur, refreshed, err := RefreshImageDimensions(ctx, cur, images)
	if err != nil {
		return nil, nil, err
	}
	cur, renumbered, err := RenumberIDs(cur)
	if err != nil {
		return nil, nil, err
	}

	report := &ResetReport{
		Rows:     joinRemoved(pruned, orphans),
		Resized:  refreshed.Changed,
		Renumber: renumbered,
	}
	slog.Debug("reset annotation",
		"removed_images", len(pruned.Removed),
		"removed_annotations", report.RemovedAnnotations(),
		"resized", len(report.Resized))
	return cur, report, nil
}

// joinRemoved combines both pruning reports on the removed image id. Images
// that had no annotations and orphans whose image never existed both get a
// row.
func joinRemoved(images *PruneImagesReport, orphans *PruneAnnotationsReport) []ResetRow {
	rows := make(map[int]*ResetRow)
	for _, r := range images.Removed {
		rows[r.ID] = &ResetRow{ImageID: r.ID, FileName: r.FileName, AnnotationIDs: []int{}}
	}
	for _, g := range orphans.Groups {
		row, ok := rows[g.ImageID]
		if !ok {
			row = &ResetRow{ImageID: g.ImageID, AnnotationIDs: []int{}}
			rows[g.ImageID] = row
		}
		row.AnnotationIDs = append(row.AnnotationIDs, g.AnnotationIDs...)
	}

	out := make([]ResetRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ImageID < out[j].ImageID })
	return out
}
