package convert

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/kilupskalvis/cocokit/internal/imagestore"
	"github.com/kilupskalvis/cocokit/internal/models"
)

// DirectoryReport summarizes how images and label files were matched.
type DirectoryReport struct {
	Images       int      `json:"images"`
	Annotations  int      `json:"annotations"`
	Unlabeled    []string `json:"unlabeled"`
	OrphanLabels []string `json:"orphan_labels"`
}

// FromDirectoryPair builds a dataset from an image directory and a
// directory of .txt label files matched by file stem. Image ids follow the
// sorted image listing from 1 and annotation ids run across all label files
// from 1. Every category id produced must have a catalog entry.
//
// Box lines keep their class number as category id while polygon lines add
// one (see FromLineLabels). A list catalog starts at id 1, so box labels of
// class 0 fail with UnknownClassError; such directories need a map catalog
// with key -1 (id 0) or a class remap before conversion.
func FromDirectoryPair(ctx context.Context, store imagestore.Store, imageDir, labelDir string, catalog Catalog) (*dataset.Dataset, *DirectoryReport, error) {
	imagePaths, err := store.List(ctx, imageDir)
	if err != nil {
		return nil, nil, err
	}
	labelPaths, err := store.List(ctx, labelDir, ".txt")
	if err != nil {
		return nil, nil, err
	}
	labels := make(map[string]string, len(labelPaths))
	for _, p := range labelPaths {
		labels[stem(p)] = p
	}

	ds := dataset.New()
	ds.ImageDir = imageDir
	report := &DirectoryReport{Unlabeled: []string{}, OrphanLabels: []string{}}
	seenFrom := make(map[int]string)
	matched := make(map[string]bool)
	annID := 1

	for i, path := range imagePaths {
		w, h, err := store.Size(ctx, path)
		if err != nil {
			return nil, nil, err
		}
		img := &models.Image{ID: i + 1, FileName: filepath.Base(path), Width: w, Height: h}
		ds.Images = append(ds.Images, img)

		labelPath, ok := labels[stem(path)]
		if !ok {
			report.Unlabeled = append(report.Unlabeled, path)
			continue
		}
		matched[labelPath] = true

		data, err := store.ReadFile(ctx, labelPath)
		if err != nil {
			return nil, nil, err
		}
		anns, err := FromLineLabels(splitLines(data), w, h)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", labelPath, err)
		}
		for _, a := range anns {
			a.ID = annID
			a.ImageID = img.ID
			annID++
			if _, ok := seenFrom[a.CategoryID]; !ok {
				seenFrom[a.CategoryID] = labelPath
			}
		}
		ds.Annotations = append(ds.Annotations, anns...)
	}

	for _, p := range labelPaths {
		if !matched[p] {
			report.OrphanLabels = append(report.OrphanLabels, p)
		}
	}

	ids := make([]int, 0, len(seenFrom))
	for id := range seenFrom {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		name, ok := catalog[id]
		if !ok {
			return nil, nil, &UnknownClassError{CategoryID: id, Source: seenFrom[id]}
		}
		ds.Categories = append(ds.Categories, &models.Category{ID: id, Name: name})
	}

	report.Images = len(ds.Images)
	report.Annotations = len(ds.Annotations)
	if len(report.OrphanLabels) > 0 {
		slog.Warn("label files without images", "count", len(report.OrphanLabels))
	}
	return ds, report, nil
}

// ExportLineLabels writes one <stem>.txt per image into labelDir. Images
// without annotations get an empty file.
func ExportLineLabels(ctx context.Context, ds *dataset.Dataset, store imagestore.Store, labelDir string) ([]string, error) {
	if err := store.MkdirAll(ctx, labelDir); err != nil {
		return nil, err
	}
	written := make([]string, 0, len(ds.Images))
	for _, img := range ds.Images {
		lines, err := ToLineLabels(ds, img.ID)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(labelDir, stem(img.FileName)+".txt")
		if err := store.WriteFile(ctx, path, joinLines(lines)); err != nil {
			return nil, err
		}
		written = append(written, path)
	}
	return written, nil
}

func stem(path string) string {
	base := filepath.Base(strings.ReplaceAll(path, `\`, "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
