package index

import (
	"context"
)

// CategoryCount is the number of annotations and images per category.
type CategoryCount struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Annotations int     `json:"annotations"`
	Images      int     `json:"images"`
	MeanArea    float64 `json:"mean_area"`
}

// CategoryCounts returns per-category totals ordered by category id.
// Categories without annotations are included with zero counts.
func (x *Index) CategoryCounts(ctx context.Context) ([]CategoryCount, error) {
	rows, err := x.db.QueryContext(ctx, `
		SELECT c.id, c.name,
			COUNT(a.id),
			COUNT(DISTINCT a.image_id),
			COALESCE(AVG(a.area), 0)
		FROM categories c
		LEFT JOIN annotations a ON a.category_id = c.id
		GROUP BY c.id, c.name
		ORDER BY c.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.ID, &c.Name, &c.Annotations, &c.Images, &c.MeanArea); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// ImagesWithoutAnnotations returns the ids of unlabeled images, ascending.
func (x *Index) ImagesWithoutAnnotations(ctx context.Context) ([]int, error) {
	return x.ids(ctx, `
		SELECT i.id FROM images i
		WHERE NOT EXISTS (SELECT 1 FROM annotations a WHERE a.image_id = i.id)
		ORDER BY i.id`)
}

// AnnotationsLargerThanImage returns the ids of annotations whose box
// extends past the image bounds, ascending.
func (x *Index) AnnotationsLargerThanImage(ctx context.Context) ([]int, error) {
	return x.ids(ctx, `
		SELECT a.id FROM annotations a
		JOIN images i ON i.id = a.image_id
		WHERE a.bbox_x + a.bbox_w > i.width OR a.bbox_y + a.bbox_h > i.height
			OR a.bbox_x < 0 OR a.bbox_y < 0
		ORDER BY a.id`)
}

func (x *Index) ids(ctx context.Context, query string, args ...any) ([]int, error) {
	rows, err := x.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
