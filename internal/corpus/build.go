package corpus

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/kilupskalvis/cocokit/internal/models"
	"github.com/spf13/afero"
)

// BuildDataset flattens rows into a single dataset with a minimal header.
// Categories are the union of every row's classes, sorted by id. Two rows
// naming the same category id differently is an integrity error.
func BuildDataset(rows []Row) (*dataset.Dataset, error) {
	out := dataset.New()

	cats := make(map[int]*models.Category)
	for _, r := range rows {
		for _, c := range r.Categories {
			prev, ok := cats[c.ID]
			if !ok {
				cats[c.ID] = &models.Category{ID: c.ID, Name: c.Name, Supercategory: c.Supercategory}
				continue
			}
			if prev.Name != c.Name {
				return nil, fmt.Errorf("%w: category %d is named both %q and %q",
					dataset.ErrIntegrity, c.ID, prev.Name, c.Name)
			}
		}
		out.Images = append(out.Images, r.Image.Clone())
		for _, a := range r.Annotations {
			out.Annotations = append(out.Annotations, a.Clone())
		}
	}

	ids := make([]int, 0, len(cats))
	for id := range cats {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		out.Categories = append(out.Categories, cats[id])
	}
	return out, nil
}

// WriteDataset builds the combined dataset and saves it as
// projectDir/outputName. It returns the dataset and the written path.
func WriteDataset(fs afero.Fs, rows []Row, projectDir, outputName string) (*dataset.Dataset, string, error) {
	ds, err := BuildDataset(rows)
	if err != nil {
		return nil, "", err
	}
	path := filepath.Join(projectDir, outputName)
	if err := ds.Save(fs, path); err != nil {
		return nil, "", err
	}
	ds.Path = path
	return ds, path, nil
}
