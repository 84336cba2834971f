package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFormat is returned when an annotation file is not valid COCO JSON.
	ErrFormat = errors.New("malformed annotation file")
	// ErrArity is returned when a name list does not match the category count.
	ErrArity = errors.New("name count does not match category count")
	// ErrIntegrity is returned when ids collide or references dangle.
	ErrIntegrity = errors.New("referential integrity violated")
	// ErrUnknownClass is returned for a class id missing from the name catalog.
	ErrUnknownClass = errors.New("unknown class id")
	// ErrNotFound is returned by id and positional lookups.
	ErrNotFound = errors.New("not found")
)

// DanglingRef is an annotation field pointing at a record that does not exist.
type DanglingRef struct {
	AnnotationID int    `json:"annotation_id"`
	Field        string `json:"field"`
	Target       int    `json:"target"`
}

// DuplicateID is an id used by more than one record of a collection.
type DuplicateID struct {
	Collection string `json:"collection"`
	ID         int    `json:"id"`
	Count      int    `json:"count"`
}

// IntegrityError lists every violation found in one pass.
type IntegrityError struct {
	Dangling   []DanglingRef
	Duplicates []DuplicateID
}

func (e *IntegrityError) Error() string {
	var parts []string
	for _, d := range e.Duplicates {
		parts = append(parts, fmt.Sprintf("%s id %d used %d times", d.Collection, d.ID, d.Count))
	}
	for _, d := range e.Dangling {
		parts = append(parts, fmt.Sprintf("annotation %d: %s %d does not exist", d.AnnotationID, d.Field, d.Target))
	}
	const maxShown = 5
	more := ""
	if len(parts) > maxShown {
		more = fmt.Sprintf(" (and %d more)", len(parts)-maxShown)
		parts = parts[:maxShown]
	}
	return fmt.Sprintf("%s: %s%s", ErrIntegrity, strings.Join(parts, "; "), more)
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrity
}

func formatErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}
