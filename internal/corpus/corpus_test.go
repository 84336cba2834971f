package corpus

import (
	"context"
	"errors"
	"testing"

	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/kilupskalvis/cocokit/internal/geometry"
	"github.com/kilupskalvis/cocokit/internal/imagestore"
	"github.com/kilupskalvis/cocokit/internal/models"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ann(id, imageID, catID int) *models.Annotation {
	box := geometry.Box{X: 1, Y: 1, W: 2, H: 2}
	return &models.Annotation{
		ID:           id,
		ImageID:      imageID,
		CategoryID:   catID,
		Segmentation: geometry.PolygonSegmentation(box.Polygon()),
		Area:         box.Area(),
		BBox:         box.Slice(),
	}
}

// first has two labeled images out of three; second has one.
func sources() []*dataset.Dataset {
	first := &dataset.Dataset{
		Path:       "/data/a/annotations.json",
		ImageDir:   "/data/a",
		Categories: []*models.Category{{ID: 1, Name: "cat"}, {ID: 2, Name: "dog"}},
		Images: []*models.Image{
			{ID: 7, FileName: "x.jpg", Width: 10, Height: 10},
			{ID: 3, FileName: "y.jpg", Width: 10, Height: 10},
			{ID: 5, FileName: "z.jpg", Width: 10, Height: 10},
		},
		Annotations: []*models.Annotation{
			ann(40, 7, 1),
			ann(41, 3, 2),
			ann(42, 7, 2),
		},
	}
	second := &dataset.Dataset{
		Path:       "/data/b/annotations.json",
		ImageDir:   "/data/b",
		Categories: []*models.Category{{ID: 3, Name: "bird"}, {ID: 1, Name: "cat"}},
		Images: []*models.Image{
			{ID: 1, FileName: "x.jpg", Width: 20, Height: 20},
		},
		Annotations: []*models.Annotation{
			ann(9, 1, 3),
		},
	}
	return []*dataset.Dataset{first, second}
}

// ============================================================================
// Merge
// ============================================================================

func TestMergeLabeled_ContinuesIDs(t *testing.T) {
	rows := MergeLabeled(sources())
	require.Len(t, rows, 3)

	assert.Equal(t, 3, rows[0].OldImageID)
	assert.Equal(t, 1, rows[0].NewImageID)
	assert.Equal(t, []int{41}, rows[0].OldAnnotationIDs)
	assert.Equal(t, []int{1}, rows[0].NewAnnotationIDs)

	assert.Equal(t, 7, rows[1].OldImageID)
	assert.Equal(t, 2, rows[1].NewImageID)
	assert.Equal(t, []int{40, 42}, rows[1].OldAnnotationIDs)
	assert.Equal(t, []int{2, 3}, rows[1].NewAnnotationIDs)

	assert.Equal(t, 1, rows[2].OldImageID)
	assert.Equal(t, 3, rows[2].NewImageID)
	assert.Equal(t, []int{4}, rows[2].NewAnnotationIDs)
	assert.Equal(t, "/data/b/annotations.json", rows[2].Source)
}

func TestMerge_RewritesFileNames(t *testing.T) {
	rows := MergeLabeled(sources())
	require.Len(t, rows, 3)
	assert.Equal(t, "y.jpg", rows[0].OldFileName)
	assert.Equal(t, "/data/a/y.jpg", rows[0].NewFileName)
	assert.Equal(t, "/data/a/y.jpg", rows[0].Image.FileName)
	assert.Equal(t, "/data/b/x.jpg", rows[2].Image.FileName)
}

func TestMerge_AnnotationsFollowImage(t *testing.T) {
	for _, r := range MergeLabeled(sources()) {
		for _, a := range r.Annotations {
			assert.Equal(t, r.NewImageID, a.ImageID)
		}
	}
}

func TestMerge_ByCategory(t *testing.T) {
	rows := Merge(sources(), []int{1})
	require.Len(t, rows, 1)
	assert.Equal(t, 7, rows[0].OldImageID)
	assert.Equal(t, []int{40}, rows[0].OldAnnotationIDs)
	assert.Equal(t, []int{1}, rows[0].ClassIDs())
	assert.Equal(t, []string{"cat"}, rows[0].ClassNames())
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	in := sources()
	MergeLabeled(in)
	assert.Equal(t, 7, in[0].Images[0].ID)
	assert.Equal(t, "x.jpg", in[0].Images[0].FileName)
	assert.Equal(t, 40, in[0].Annotations[0].ID)
}

// ============================================================================
// Build
// ============================================================================

func TestBuildDataset_CategoriesSortedByID(t *testing.T) {
	ds, err := BuildDataset(MergeLabeled(sources()))
	require.NoError(t, err)

	require.Len(t, ds.Categories, 3)
	assert.Equal(t, 1, ds.Categories[0].ID)
	assert.Equal(t, 2, ds.Categories[1].ID)
	assert.Equal(t, 3, ds.Categories[2].ID)
	assert.Len(t, ds.Images, 3)
	assert.Len(t, ds.Annotations, 4)
	assert.NoError(t, ds.CheckIntegrity())
}

func TestBuildDataset_NameConflict(t *testing.T) {
	in := sources()
	in[1].Categories[1].Name = "kitten"
	_, err := BuildDataset(MergeLabeled(in))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataset.ErrIntegrity))
}

func TestWriteDataset(t *testing.T) {
	fs := afero.NewMemMapFs()
	built, path, err := WriteDataset(fs, MergeLabeled(sources()), "/project", "merged.json")
	require.NoError(t, err)
	assert.Equal(t, "/project/merged.json", path)
	assert.Equal(t, path, built.Path)

	ds, err := dataset.Load(fs, path, "")
	require.NoError(t, err)
	assert.Len(t, ds.Images, 3)
	assert.JSONEq(t, `[{"name":"","id":0,"url":""}]`, string(ds.Licenses))
}

// ============================================================================
// Collect
// ============================================================================

func writeSources(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, ds := range sources() {
		require.NoError(t, ds.Save(fs, ds.Path))
	}
	return fs
}

func TestLoadAll_KeepsOrder(t *testing.T) {
	fs := writeSources(t)
	got, err := LoadAll(context.Background(), fs, []string{"/data/b/annotations.json", "/data/a/annotations.json"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/data/b", got[0].ImageDir)
	assert.Equal(t, "/data/a", got[1].ImageDir)
}

func TestLoadAll_MissingFile(t *testing.T) {
	_, err := LoadAll(context.Background(), afero.NewMemMapFs(), []string{"/nope.json"})
	assert.Error(t, err)
}

func TestFindAnnotationFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/d/b.json", []byte("{}"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/d/a.json", []byte("{}"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/d/img.png", []byte("x"), 0644))

	path, err := FindAnnotationFile(fs, "/d")
	require.NoError(t, err)
	assert.Equal(t, "/d/a.json", path)
}

func TestFindAnnotationFile_None(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/d/img.png", []byte("x"), 0644))
	_, err := FindAnnotationFile(fs, "/d")
	assert.True(t, errors.Is(err, dataset.ErrNotFound))
}

func TestCollect(t *testing.T) {
	fs := writeSources(t)
	rows, err := Collect(context.Background(), fs, "/data", []string{"a", "b"}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "/data/a/y.jpg", rows[0].NewFileName)
	assert.Equal(t, 3, rows[2].NewImageID)
}

// ============================================================================
// Copy
// ============================================================================

func TestCopyToDirectory(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	store := imagestore.NewFS(fs)
	require.NoError(t, afero.WriteFile(fs, "/data/a/x.jpg", []byte("a"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/data/b/x.jpg", []byte("b"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/train/x_b.jpg", []byte("old"), 0644))

	ds, err := BuildDataset(MergeLabeled(sources()))
	require.NoError(t, err)
	ds.Images = []*models.Image{
		{ID: 1, FileName: "/data/a/x.jpg"},
		{ID: 2, FileName: "/data/b/x.jpg"},
	}

	out, report, err := CopyToDirectory(ctx, ds, store, "/train")
	require.NoError(t, err)
	require.Len(t, report.Entries, 2)
	assert.True(t, report.Entries[0].Copied)
	assert.False(t, report.Entries[1].Copied)
	assert.Equal(t, 1, report.Copied())

	assert.Equal(t, "x_a.jpg", out.Images[0].FileName)
	assert.Equal(t, "x_b.jpg", out.Images[1].FileName)
	assert.Equal(t, "/train", out.ImageDir)
	assert.Equal(t, "/data/a/x.jpg", ds.Images[0].FileName)

	data, err := afero.ReadFile(fs, "/train/x_a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))
	data, err = afero.ReadFile(fs, "/train/x_b.jpg")
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestTaggedName(t *testing.T) {
	assert.Equal(t, "img_cam1.png", taggedName("/data/cam1/img.png"))
	assert.Equal(t, "img.png", taggedName("img.png"))
}
