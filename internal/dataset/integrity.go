package dataset

import "sort"

// CheckIntegrity returns an *IntegrityError listing duplicate ids and
// annotations whose image or category does not exist, or nil.
func (d *Dataset) CheckIntegrity() error {
	ie := &IntegrityError{}

	imageIDs := make(map[int]int, len(d.Images))
	for _, img := range d.Images {
		imageIDs[img.ID]++
	}
	catIDs := make(map[int]int, len(d.Categories))
	for _, c := range d.Categories {
		catIDs[c.ID]++
	}
	annIDs := make(map[int]int, len(d.Annotations))
	for _, a := range d.Annotations {
		annIDs[a.ID]++
		if imageIDs[a.ImageID] == 0 {
			ie.Dangling = append(ie.Dangling, DanglingRef{AnnotationID: a.ID, Field: "image_id", Target: a.ImageID})
		}
		if catIDs[a.CategoryID] == 0 {
			ie.Dangling = append(ie.Dangling, DanglingRef{AnnotationID: a.ID, Field: "category_id", Target: a.CategoryID})
		}
	}

	ie.Duplicates = append(ie.Duplicates, duplicates("categories", catIDs)...)
	ie.Duplicates = append(ie.Duplicates, duplicates("images", imageIDs)...)
	ie.Duplicates = append(ie.Duplicates, duplicates("annotations", annIDs)...)

	if len(ie.Dangling) == 0 && len(ie.Duplicates) == 0 {
		return nil
	}
	return ie
}

func duplicates(collection string, counts map[int]int) []DuplicateID {
	var out []DuplicateID
	for id, n := range counts {
		if n > 1 {
			out = append(out, DuplicateID{Collection: collection, ID: id, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
