package dataset

import (
	"fmt"
	"path/filepath"
	"sort"
)

// Info summarizes a dataset.
type Info struct {
	AnnotationPath  string   `json:"annotation_path"`
	FileName        string   `json:"file_name"`
	ImageDir        string   `json:"image_dir"`
	Name            string   `json:"name"`
	CategoryIDs     []int    `json:"category_ids"`
	CategoryNames   []string `json:"category_names"`
	Supercategories []string `json:"supercategories"`
	Widths          []int    `json:"widths"`
	Heights         []int    `json:"heights"`
	ImageCount      int      `json:"image_count"`
	AnnotationCount int      `json:"annotation_count"`
	ExampleFile     string   `json:"example_file"`
}

// Describe collects category names, image sizes and counts. The dataset
// name is the directory two levels above the first image.
func (d *Dataset) Describe() Info {
	info := Info{
		AnnotationPath:  d.Path,
		FileName:        filepath.Base(d.Path),
		ImageDir:        d.ImageDir,
		ImageCount:      len(d.Images),
		AnnotationCount: len(d.Annotations),
		CategoryIDs:     d.CategoryIDs(),
	}
	if d.Path == "" {
		info.FileName = ""
	}
	for _, c := range d.Categories {
		info.CategoryNames = append(info.CategoryNames, c.Name)
		info.Supercategories = append(info.Supercategories, c.Supercategory)
	}

	widths := make(map[int]int)
	heights := make(map[int]int)
	for _, img := range d.Images {
		widths[img.Width]++
		heights[img.Height]++
	}
	info.Widths = sortedKeys(widths)
	info.Heights = sortedKeys(heights)

	if len(d.Images) > 0 {
		info.ExampleFile = d.ImagePath(d.Images[0])
		info.Name = filepath.Base(filepath.Dir(filepath.Dir(info.ExampleFile)))
	}
	return info
}

// MostFrequentImageSize returns the most common width and the most common
// height, computed independently. Ties go to the larger value.
func (d *Dataset) MostFrequentImageSize() (width, height int, err error) {
	if len(d.Images) == 0 {
		return 0, 0, fmt.Errorf("no images: %w", ErrNotFound)
	}
	widths := make(map[int]int)
	heights := make(map[int]int)
	for _, img := range d.Images {
		widths[img.Width]++
		heights[img.Height]++
	}
	return mostFrequent(widths), mostFrequent(heights), nil
}

// mostFrequent walks the values in ascending order and keeps the last one
// holding the maximum count.
func mostFrequent(counts map[int]int) int {
	best, bestCount := 0, -1
	for _, v := range sortedKeys(counts) {
		if counts[v] >= bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
