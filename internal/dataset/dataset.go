// Package dataset holds a COCO annotation file in memory and offers the
// lookups, renames and mask rendering that operate on a single dataset.
package dataset

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/kilupskalvis/cocokit/internal/models"
	"github.com/spf13/afero"
)

// Top-level keys written in this order on save. Anything else follows,
// sorted by key.
const (
	keyInfo        = "info"
	keyLicenses    = "licenses"
	keyImages      = "images"
	keyAnnotations = "annotations"
	keyCategories  = "categories"
)

// Dataset is an in-memory COCO annotation file.
type Dataset struct {
	Info        json.RawMessage
	Licenses    json.RawMessage
	Images      []*models.Image
	Annotations []*models.Annotation
	Categories  []*models.Category
	// Extra holds unrecognized top-level keys.
	Extra models.Extra

	// Path is the file the dataset was loaded from, if any.
	Path string
	// ImageDir is the directory relative file names resolve against.
	ImageDir string
}

// Load reads and validates the annotation file at path. An empty imageDir
// defaults to the directory holding the file.
func Load(fs afero.Fs, path, imageDir string) (*Dataset, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read annotation file: %w", err)
	}
	ds, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ds.Path = path
	ds.ImageDir = imageDir
	if ds.ImageDir == "" {
		ds.ImageDir = filepath.Dir(path)
	}
	return ds, nil
}

// Parse decodes COCO JSON. images, annotations and categories must be
// present and must be arrays.
func Parse(data []byte) (*Dataset, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, formatErrorf("invalid JSON: %v", err)
	}
	if top == nil {
		return nil, formatErrorf("top level is not an object")
	}
	for _, k := range []string{keyImages, keyAnnotations, keyCategories} {
		raw, ok := top[k]
		if !ok {
			return nil, formatErrorf("missing %q", k)
		}
		if t := bytes.TrimSpace(raw); len(t) == 0 || t[0] != '[' {
			return nil, formatErrorf("%q is not an array", k)
		}
	}

	ds := &Dataset{Info: top[keyInfo], Licenses: top[keyLicenses]}
	if err := json.Unmarshal(top[keyImages], &ds.Images); err != nil {
		return nil, formatErrorf("images: %v", err)
	}
	if err := json.Unmarshal(top[keyAnnotations], &ds.Annotations); err != nil {
		return nil, formatErrorf("annotations: %v", err)
	}
	if err := json.Unmarshal(top[keyCategories], &ds.Categories); err != nil {
		return nil, formatErrorf("categories: %v", err)
	}
	for _, k := range []string{keyInfo, keyLicenses, keyImages, keyAnnotations, keyCategories} {
		delete(top, k)
	}
	if len(top) > 0 {
		ds.Extra = models.Extra(top)
	}
	return ds, nil
}

// Encode serializes the dataset with a stable key order.
func (d *Dataset) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	field := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		fmt.Fprintf(&buf, "%q:", key)
		buf.Write(b)
		return nil
	}

	if len(d.Info) > 0 {
		if err := field(keyInfo, d.Info); err != nil {
			return nil, err
		}
	}
	if len(d.Licenses) > 0 {
		if err := field(keyLicenses, d.Licenses); err != nil {
			return nil, err
		}
	}
	images := d.Images
	if images == nil {
		images = []*models.Image{}
	}
	anns := d.Annotations
	if anns == nil {
		anns = []*models.Annotation{}
	}
	cats := d.Categories
	if cats == nil {
		cats = []*models.Category{}
	}
	if err := field(keyImages, images); err != nil {
		return nil, err
	}
	if err := field(keyAnnotations, anns); err != nil {
		return nil, err
	}
	if err := field(keyCategories, cats); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return models.AppendExtra(buf.Bytes(), d.Extra)
}

// Save writes the dataset to path through a temporary file in the same
// directory.
func (d *Dataset) Save(fs afero.Fs, path string) error {
	data, err := d.Encode()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0644); err != nil {
		return fmt.Errorf("write annotation file: %w", err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		fs.Remove(tmp)
		return fmt.Errorf("write annotation file: %w", err)
	}
	return nil
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Info:     append(json.RawMessage(nil), d.Info...),
		Licenses: append(json.RawMessage(nil), d.Licenses...),
		Extra:    d.Extra.Clone(),
		Path:     d.Path,
		ImageDir: d.ImageDir,
	}
	out.Images = make([]*models.Image, len(d.Images))
	for i, img := range d.Images {
		out.Images[i] = img.Clone()
	}
	out.Annotations = make([]*models.Annotation, len(d.Annotations))
	for i, a := range d.Annotations {
		out.Annotations[i] = a.Clone()
	}
	out.Categories = make([]*models.Category, len(d.Categories))
	for i, c := range d.Categories {
		out.Categories[i] = c.Clone()
	}
	return out
}

// ImagePath resolves an image file name against the dataset image directory.
// Absolute names, and names that already start with the image directory,
// are returned unchanged.
func (d *Dataset) ImagePath(img *models.Image) string {
	return ResolvePath(d.ImageDir, img.FileName)
}

// ResolvePath joins name onto dir unless name is absolute or already
// located in dir.
func ResolvePath(dir, name string) string {
	if dir == "" || filepath.IsAbs(name) {
		return name
	}
	if filepath.Dir(name) == filepath.Clean(dir) {
		return name
	}
	return filepath.Join(dir, name)
}

// baseName strips both slash styles, since annotation files written on
// Windows carry backslashes.
func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		return name[i+1:]
	}
	return name
}

// New returns an empty dataset with a minimal info and licenses header.
func New() *Dataset {
	return &Dataset{
		Info:        json.RawMessage(`{"description":"","url":"","version":"","year":"","contributor":"","date_created":""}`),
		Licenses:    json.RawMessage(`[{"name":"","id":0,"url":""}]`),
		Images:      []*models.Image{},
		Annotations: []*models.Annotation{},
		Categories:  []*models.Category{},
	}
}
