// Package imagestore reads, writes and lists the image files a dataset
// refers to.
package imagestore

import (
	"context"
	"errors"
	"image"
)

// ErrImageNotFound is returned when a requested file does not exist.
var ErrImageNotFound = errors.New("image not found")

// ErrUnsupportedFormat is returned when no encoder exists for a file extension.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Store defines the filesystem operations the dataset tools need.
type Store interface {
	// Exists reports whether a regular file exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// List returns the files in dir whose extension matches one of exts,
	// sorted by name. With no exts, common image extensions are used.
	List(ctx context.Context, dir string, exts ...string) ([]string, error)

	// Size decodes only the image header and returns width and height.
	Size(ctx context.Context, path string) (width, height int, err error)

	// Read decodes an image.
	Read(ctx context.Context, path string) (image.Image, error)

	// Write encodes img in the format implied by the extension of path,
	// replacing any existing file.
	Write(ctx context.Context, path string, img image.Image) error

	// ReadFile returns the raw bytes of a file.
	ReadFile(ctx context.Context, path string) ([]byte, error)

	// WriteFile replaces a file with data.
	WriteFile(ctx context.Context, path string, data []byte) error

	// MkdirAll creates a directory and its parents.
	MkdirAll(ctx context.Context, dir string) error

	// Copy duplicates src at dst.
	Copy(ctx context.Context, src, dst string) error
}
