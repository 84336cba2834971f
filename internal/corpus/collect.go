package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kilupskalvis/cocokit/internal/core"
	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// LoadAll loads the annotation files at paths concurrently, at most
// core.Workers at a time. Results keep the order of paths. Each file's
// images resolve against its own directory.
func LoadAll(ctx context.Context, fs afero.Fs, paths []string) ([]*dataset.Dataset, error) {
	out := make([]*dataset.Dataset, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	limit := core.Workers
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, p := range paths {
		idx, path := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ds, err := dataset.Load(fs, path, "")
			if err != nil {
				return err
			}
			out[idx] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// FindAnnotationFile returns the first .json file in dir by name.
func FindAnnotationFile(fs afero.Fs, dir string) (string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no annotation file in %s", dataset.ErrNotFound, dir)
	}
	sort.Strings(names)
	if len(names) > 1 {
		slog.Warn("several annotation files, using the first", "dir", dir, "file", names[0], "count", len(names))
	}
	return filepath.Join(dir, names[0]), nil
}

// Collect loads the annotation file of each root/dirName and merges them in
// the given order.
func Collect(ctx context.Context, fs afero.Fs, root string, dirNames []string, categoryIDs []int) ([]Row, error) {
	paths := make([]string, len(dirNames))
	for i, name := range dirNames {
		p, err := FindAnnotationFile(fs, filepath.Join(root, name))
		if err != nil {
			return nil, err
		}
		paths[i] = p
	}
	datasets, err := LoadAll(ctx, fs, paths)
	if err != nil {
		return nil, err
	}
	return Merge(datasets, categoryIDs), nil
}
