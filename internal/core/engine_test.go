package core

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/kilupskalvis/cocokit/internal/geometry"
	"github.com/kilupskalvis/cocokit/internal/imagestore"
	"github.com/kilupskalvis/cocokit/internal/models"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newImageStore returns an in-memory store holding a w x h PNG for each name
// under /images.
func newImageStore(t *testing.T, w, h int, names ...string) *imagestore.FS {
	t.Helper()
	st := imagestore.NewFS(afero.NewMemMapFs())
	for _, name := range names {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 200, G: 200, B: 200, A: 255}), image.Point{}, draw.Src)
		require.NoError(t, st.Write(context.Background(), "/images/"+name, img))
	}
	return st
}

func ann(id, imageID, catID int, box geometry.Box) *models.Annotation {
	return &models.Annotation{
		ID:           id,
		ImageID:      imageID,
		CategoryID:   catID,
		Segmentation: geometry.PolygonSegmentation(box.Polygon()),
		Area:         box.Area(),
		BBox:         box.Slice(),
	}
}

// newFixture builds a dataset with three images (one unlabeled), two
// categories and four annotations.
func newFixture() *dataset.Dataset {
	return &dataset.Dataset{
		ImageDir: "/images",
		Categories: []*models.Category{
			{ID: 4, Name: "cat"},
			{ID: 9, Name: "dog"},
		},
		Images: []*models.Image{
			{ID: 30, FileName: "c.png", Width: 8, Height: 8},
			{ID: 10, FileName: "a.png", Width: 8, Height: 8},
			{ID: 20, FileName: "b.png", Width: 8, Height: 8},
		},
		Annotations: []*models.Annotation{
			ann(100, 30, 9, geometry.Box{X: 1, Y: 1, W: 2, H: 2}),
			ann(101, 10, 4, geometry.Box{X: 0, Y: 0, W: 4, H: 4}),
			ann(102, 30, 4, geometry.Box{X: 2, Y: 2, W: 4, H: 2}),
			ann(103, 10, 9, geometry.Box{X: 4, Y: 4, W: 2, H: 2}),
		},
	}
}

func annotationIDs(ds *dataset.Dataset) []int {
	ids := make([]int, len(ds.Annotations))
	for i, a := range ds.Annotations {
		ids[i] = a.ID
	}
	return ids
}

func imageIDs(ds *dataset.Dataset) []int {
	ids := make([]int, len(ds.Images))
	for i, img := range ds.Images {
		ids[i] = img.ID
	}
	return ids
}

// ==================== Filter Tests ====================

func TestFilterByCategory_Subset(t *testing.T) {
	ds := newFixture()
	before, err := ds.Fingerprint()
	require.NoError(t, err)

	out, report := FilterByCategory(ds, []int{9})

	assert.Equal(t, []int{9}, out.CategoryIDs())
	assert.Equal(t, []int{100, 103}, annotationIDs(out))
	assert.Equal(t, []int{30, 10}, imageIDs(out))
	assert.Equal(t, []int{4}, report.RemovedCategories)
	assert.Equal(t, []int{20}, report.RemovedImages)
	assert.Equal(t, 2, report.RemovedAnnotations)
	assert.NoError(t, out.CheckIntegrity())

	// every surviving record existed in the input
	for _, a := range out.Annotations {
		assert.Contains(t, annotationIDs(ds), a.ID)
	}

	after, err := ds.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, before, after, "input must not change")
}

func TestSelectLabeled_DropsUnlabeledImages(t *testing.T) {
	out, report := SelectLabeled(newFixture())

	assert.Equal(t, []int{4, 9}, out.CategoryIDs())
	assert.Len(t, out.Annotations, 4)
	assert.Equal(t, []int{30, 10}, imageIDs(out))
	assert.Equal(t, []int{20}, report.RemovedImages)
	assert.Empty(t, report.RemovedCategories)
}

func TestFilterByCategory_UnknownIDs(t *testing.T) {
	out, _ := FilterByCategory(newFixture(), []int{77})
	assert.Empty(t, out.Categories)
	assert.Empty(t, out.Annotations)
	assert.Empty(t, out.Images)
}

func TestFilterByCategory_DropsAnnotationsOfMissingImages(t *testing.T) {
	ds := newFixture()
	ds.Annotations = append(ds.Annotations, ann(104, 99, 4, geometry.Box{X: 0, Y: 0, W: 1, H: 1}))

	out, report := FilterByCategory(ds, []int{4})
	assert.Equal(t, []int{101, 102}, annotationIDs(out))
	assert.Equal(t, []int{104}, report.OrphanAnnotations)
	assert.NoError(t, out.CheckIntegrity())

	out, report = SelectLabeled(ds)
	assert.Equal(t, []int{100, 101, 102, 103}, annotationIDs(out))
	assert.Equal(t, []int{104}, report.OrphanAnnotations)
	assert.NoError(t, out.CheckIntegrity())
}

// ==================== Prune Tests ====================

func TestPruneMissingImages(t *testing.T) {
	ctx := context.Background()
	st := newImageStore(t, 8, 8, "a.png", "c.png")
	ds := newFixture()

	out, report, err := PruneMissingImages(ctx, ds, st)
	require.NoError(t, err)

	assert.Equal(t, []int{30, 10}, imageIDs(out))
	assert.Equal(t, []RemovedImage{{ID: 20, FileName: "b.png"}}, report.Removed)
	assert.Len(t, ds.Images, 3)
}

func TestPruneOrphanAnnotations_Groups(t *testing.T) {
	ds := newFixture()
	ds.Images = ds.Images[2:] // keep only image 20

	out, report := PruneOrphanAnnotations(ds)

	assert.Empty(t, out.Annotations)
	assert.Equal(t, []OrphanGroup{
		{ImageID: 10, AnnotationIDs: []int{101, 103}},
		{ImageID: 30, AnnotationIDs: []int{100, 102}},
	}, report.Groups)
	assert.Equal(t, 4, report.Count())
	assert.Len(t, ds.Annotations, 4)
}

// ==================== Refresh Tests ====================

func TestRefreshImageDimensions(t *testing.T) {
	ctx := context.Background()
	st := newImageStore(t, 16, 12, "a.png", "b.png", "c.png")

	out, report, err := RefreshImageDimensions(ctx, newFixture(), st)
	require.NoError(t, err)

	for _, img := range out.Images {
		assert.Equal(t, 16, img.Width)
		assert.Equal(t, 12, img.Height)
	}
	require.Len(t, report.Changed, 3)
	assert.Equal(t, DimensionChange{ImageID: 30, OldWidth: 8, OldHeight: 8, Width: 16, Height: 12}, report.Changed[0])
}

func TestRefreshImageDimensions_MissingFile(t *testing.T) {
	st := newImageStore(t, 16, 12, "a.png")
	_, _, err := RefreshImageDimensions(context.Background(), newFixture(), st)
	assert.ErrorIs(t, err, imagestore.ErrImageNotFound)
}

// ==================== Renumber Tests ====================

func TestRenumberIDs_Dense(t *testing.T) {
	out, report, err := RenumberIDs(newFixture())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, out.CategoryIDs())
	// images sorted by old id: 10, 20, 30
	assert.Equal(t, []int{1, 2, 3}, imageIDs(out))
	assert.Equal(t, "a.png", out.Images[0].FileName)
	assert.Equal(t, "c.png", out.Images[2].FileName)

	// annotations ordered by new image id, file order kept within an image
	assert.Equal(t, []int{1, 2, 3, 4}, annotationIDs(out))
	assert.Equal(t, map[int]int{101: 1, 103: 2, 100: 3, 102: 4}, report.Annotations)

	first := out.Annotations[0]
	assert.Equal(t, 1, first.ImageID)
	assert.Equal(t, 1, first.CategoryID)
	last := out.Annotations[3]
	assert.Equal(t, 3, last.ImageID)
	assert.Equal(t, 1, last.CategoryID)
	assert.Equal(t, 2, out.Annotations[2].CategoryID)

	assert.NoError(t, out.CheckIntegrity())
}

func TestRenumberIDs_Idempotent(t *testing.T) {
	once, _, err := RenumberIDs(newFixture())
	require.NoError(t, err)
	twice, _, err := RenumberIDs(once)
	require.NoError(t, err)

	a, err := once.Encode()
	require.NoError(t, err)
	b, err := twice.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestRenumberIDs_DanglingFails(t *testing.T) {
	ds := newFixture()
	ds.Annotations[0].ImageID = 999

	_, _, err := RenumberIDs(ds)
	assert.ErrorIs(t, err, dataset.ErrIntegrity)
	var ie *dataset.IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, []dataset.DanglingRef{{AnnotationID: 100, Field: "image_id", Target: 999}}, ie.Dangling)
}

// ==================== Reset Tests ====================

func TestResetAnnotation_Scenario(t *testing.T) {
	ctx := context.Background()
	st := newImageStore(t, 20, 10, "one.png")
	box := geometry.Box{X: 1, Y: 1, W: 2, H: 2}
	ds := &dataset.Dataset{
		ImageDir:   "/images",
		Categories: []*models.Category{{ID: 1, Name: "thing"}},
		Images: []*models.Image{
			{ID: 1, FileName: "one.png", Width: 5, Height: 5},
			{ID: 2, FileName: "two.png", Width: 5, Height: 5},
		},
		Annotations: []*models.Annotation{
			ann(1, 1, 1, box),
			ann(2, 2, 1, box),
			ann(3, 1, 1, box),
		},
	}

	out, report, err := ResetAnnotation(ctx, ds, st)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, imageIDs(out))
	assert.Equal(t, []int{1, 2}, annotationIDs(out))
	for _, a := range out.Annotations {
		assert.Equal(t, 1, a.ImageID)
	}
	assert.Equal(t, 20, out.Images[0].Width)
	assert.Equal(t, 10, out.Images[0].Height)

	assert.Equal(t, []ResetRow{{ImageID: 2, FileName: "two.png", AnnotationIDs: []int{2}}}, report.Rows)
	assert.Equal(t, 1, report.RemovedAnnotations())
	assert.Len(t, report.Resized, 1)
	assert.Len(t, ds.Images, 2, "input must not change")
}

func TestResetAnnotation_Dense(t *testing.T) {
	ctx := context.Background()
	st := newImageStore(t, 8, 8, "a.png", "c.png")

	out, report, err := ResetAnnotation(ctx, newFixture(), st)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, imageIDs(out))
	assert.Equal(t, []int{1, 2, 3, 4}, annotationIDs(out))
	assert.NoError(t, out.CheckIntegrity())
	assert.Equal(t, []ResetRow{{ImageID: 20, FileName: "b.png", AnnotationIDs: []int{}}}, report.Rows)
}

func TestJoinRemoved_OrphanWithoutImage(t *testing.T) {
	rows := joinRemoved(
		&PruneImagesReport{Removed: []RemovedImage{{ID: 5, FileName: "x.png"}}},
		&PruneAnnotationsReport{Groups: []OrphanGroup{
			{ImageID: 3, AnnotationIDs: []int{7}},
			{ImageID: 5, AnnotationIDs: []int{8, 9}},
		}},
	)
	assert.Equal(t, []ResetRow{
		{ImageID: 3, AnnotationIDs: []int{7}},
		{ImageID: 5, FileName: "x.png", AnnotationIDs: []int{8, 9}},
	}, rows)
}

// ==================== Image Pass Tests ====================

func TestResizeImages_ScalesGeometry(t *testing.T) {
	ctx := context.Background()
	st := newImageStore(t, 8, 8, "a.png", "b.png", "c.png")

	out, report, err := ResizeImages(ctx, newFixture(), st, 16, 4)
	require.NoError(t, err)
	assert.Len(t, report.Paths(), 3)

	w, h, err := st.Size(ctx, "/images/a.png")
	require.NoError(t, err)
	assert.Equal(t, 16, w)
	assert.Equal(t, 4, h)

	a := out.Annotations[1] // id 101, box 0,0,4,4
	assert.Equal(t, []float64{0, 0, 8, 2}, a.BBox)
	assert.Equal(t, 16.0, a.Area)
	assert.Equal(t, []float64{0, 0, 8, 0, 8, 2, 0, 2}, a.Segmentation.Polygons[0])
	assert.Equal(t, 16, out.Images[0].Width)
}

func TestResizeImages_KeepAspect(t *testing.T) {
	ctx := context.Background()
	st := newImageStore(t, 8, 4, "a.png", "b.png", "c.png")

	out, _, err := ResizeImages(ctx, newFixture(), st, 16, 0)
	require.NoError(t, err)
	assert.Equal(t, 16, out.Images[0].Width)
	assert.Equal(t, 8, out.Images[0].Height)
}

func TestResizeImages_MissingFileWritesNothing(t *testing.T) {
	ctx := context.Background()
	st := newImageStore(t, 8, 8, "a.png", "b.png")

	out, report, err := ResizeImages(ctx, newFixture(), st, 4, 4)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Nil(t, report)

	for _, name := range []string{"a.png", "b.png"} {
		w, h, err := st.Size(ctx, "/images/"+name)
		require.NoError(t, err)
		assert.Equal(t, []int{8, 8}, []int{w, h}, name)
	}
}

// failingWrites rejects writes to one path.
type failingWrites struct {
	*imagestore.FS
	path string
}

func (f failingWrites) Write(ctx context.Context, path string, img image.Image) error {
	if path == f.path {
		return errors.New("disk full")
	}
	return f.FS.Write(ctx, path, img)
}

func TestResizeImages_PartialWriteReportsRewritten(t *testing.T) {
	saved := Workers
	Workers = 1
	t.Cleanup(func() { Workers = saved })

	ctx := context.Background()
	st := failingWrites{FS: newImageStore(t, 8, 8, "a.png", "b.png", "c.png"), path: "/images/b.png"}

	out, report, err := ResizeImages(ctx, newFixture(), st, 4, 4)
	require.Error(t, err)
	require.NotNil(t, out)
	assert.Equal(t, []string{"/images/c.png", "/images/a.png"}, report.Paths())

	// c and a were rewritten, b kept its size
	assert.Equal(t, 4, out.Images[0].Width)
	assert.Equal(t, 4, out.Images[1].Width)
	assert.Equal(t, 8, out.Images[2].Width)
	assert.Equal(t, []float64{0, 0, 2, 2}, out.Annotations[1].BBox)

	w, _, err := st.Size(ctx, "/images/b.png")
	require.NoError(t, err)
	assert.Equal(t, 8, w)
}

func TestConvertToGray(t *testing.T) {
	ctx := context.Background()
	st := newImageStore(t, 4, 4, "a.png", "b.png", "c.png")

	report, err := ConvertToGray(ctx, newFixture(), st)
	require.NoError(t, err)
	assert.Len(t, report.Changed, 3)

	img, err := st.Read(ctx, "/images/a.png")
	require.NoError(t, err)
	_, ok := img.(*image.Gray)
	assert.True(t, ok)

	again, err := ConvertToGray(ctx, newFixture(), st)
	require.NoError(t, err)
	assert.Empty(t, again.Changed)
}

func TestCropInstances(t *testing.T) {
	ctx := context.Background()
	st := newImageStore(t, 8, 8, "a.png", "b.png", "c.png")
	ds := newFixture()
	ds.Annotations = append(ds.Annotations, ann(104, 20, 4, geometry.Box{X: 20, Y: 20, W: 2, H: 2}))

	report, err := CropInstances(ctx, ds, st, "/crops", CropOptions{Padding: 1})
	require.NoError(t, err)

	assert.Len(t, report.Crops, 4)
	assert.Equal(t, []int{104}, report.Skipped)

	img, err := st.Read(ctx, "/crops/a_101.png")
	require.NoError(t, err)
	// box 0,0,4,4 padded by 1 and clipped at the origin
	assert.Equal(t, image.Rect(0, 0, 5, 5), img.Bounds())
	r, _, _, _ := img.At(1, 1).RGBA()
	assert.Equal(t, uint32(200*0x101), r)
}

func TestCropInstances_ResizeAndFilter(t *testing.T) {
	ctx := context.Background()
	st := newImageStore(t, 8, 8, "a.png", "b.png", "c.png")

	report, err := CropInstances(ctx, newFixture(), st, "/crops", CropOptions{Width: 3, Height: 3, CategoryIDs: []int{9}})
	require.NoError(t, err)
	require.Len(t, report.Crops, 2)

	for _, c := range report.Crops {
		assert.Equal(t, 9, c.CategoryID)
		w, h, err := st.Size(ctx, c.Path)
		require.NoError(t, err)
		assert.Equal(t, 3, w)
		assert.Equal(t, 3, h)
	}
}
