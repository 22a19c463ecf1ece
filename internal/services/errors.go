package services

import (
	"errors"
	"fmt"
)

// ErrBookNotFound is returned by Catalog implementations when neither
// lookup nor search produce a book.
var ErrBookNotFound = errors.New("book not found in catalog")

// ResolutionError is a terminal per-item failure: the row could not be
// matched to a canonical book. It is recorded on the item and never
// retried automatically.
type ResolutionError struct {
	ISBN   string
	Title  string
	Author string
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.ISBN != "" {
		return fmt.Sprintf("could not resolve %q by %q (isbn %s): %v", e.Title, e.Author, e.ISBN, e.Err)
	}
	return fmt.Sprintf("could not resolve %q by %q: %v", e.Title, e.Author, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}
