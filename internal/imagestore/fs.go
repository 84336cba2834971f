package imagestore

import (
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageExtensions are the extensions List matches by default.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tif", ".tiff", ".webp"}

// JPEGQuality is used when writing .jpg files.
const JPEGQuality = 95

// FS implements Store on top of an afero filesystem.
type FS struct {
	fs afero.Fs
}

// NewFS wraps an afero filesystem.
func NewFS(fs afero.Fs) *FS {
	return &FS{fs: fs}
}

// NewOS returns a store over the host filesystem.
func NewOS() *FS {
	return NewFS(afero.NewOsFs())
}

// Fs exposes the underlying filesystem.
func (s *FS) Fs() afero.Fs {
	return s.fs
}

// Exists reports whether a regular file exists at path.
func (s *FS) Exists(_ context.Context, path string) (bool, error) {
	info, err := s.fs.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return !info.IsDir(), nil
}

// List returns matching files in dir sorted by name. Hidden files are skipped.
func (s *FS) List(_ context.Context, dir string, exts ...string) ([]string, error) {
	if len(exts) == 0 {
		exts = ImageExtensions
	}
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		want[e] = true
	}

	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("list %s: %w", dir, ErrImageNotFound)
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if want[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Size reads the image header for width and height.
func (s *FS) Size(_ context.Context, path string) (int, int, error) {
	f, err := s.open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode header %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// Read decodes the image at path.
func (s *FS) Read(_ context.Context, path string) (image.Image, error) {
	f, err := s.open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// Write encodes img into a temp file next to path and renames it into place.
func (s *FS) Write(_ context.Context, path string, img image.Image) error {
	encode, err := encoderFor(path)
	if err != nil {
		return err
	}
	return s.replace(path, func(w io.Writer) error { return encode(w, img) })
}

// ReadFile returns the raw bytes of a file.
func (s *FS) ReadFile(_ context.Context, path string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", path, ErrImageNotFound)
	}
	return data, err
}

// WriteFile atomically replaces a file with data.
func (s *FS) WriteFile(_ context.Context, path string, data []byte) error {
	return s.replace(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// MkdirAll creates dir and any missing parents.
func (s *FS) MkdirAll(_ context.Context, dir string) error {
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// Copy duplicates src at dst byte for byte.
func (s *FS) Copy(_ context.Context, src, dst string) error {
	in, err := s.open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return s.replace(dst, func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}

func (s *FS) open(path string) (afero.File, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrImageNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// replace writes through a temp file in the destination directory and
// renames it over path.
func (s *FS) replace(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := afero.TempFile(s.fs, dir, ".img-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		s.fs.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := s.fs.Rename(tmpPath, path); err != nil {
		s.fs.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

type encodeFunc func(io.Writer, image.Image) error

func encoderFor(path string) (encodeFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return png.Encode, nil
	case ".jpg", ".jpeg":
		return func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
		}, nil
	case ".gif":
		return func(w io.Writer, img image.Image) error {
			return gif.Encode(w, img, nil)
		}, nil
	case ".bmp":
		return bmp.Encode, nil
	case ".tif", ".tiff":
		return func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, nil)
		}, nil
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
}
