package internal

import (
	"errors"
	"fmt"
)

var (
	ErrObjectNotFound  = errors.New("object not found")
	ErrInvalidLocation = errors.New("invalid repository location")
)

// ResolutionError reports an id the store could not resolve to the
// expected kind, either because it is missing or because it is corrupt.
// Ref is set instead of ID when the lookup started from a name such as HEAD.
type ResolutionError struct {
	ID   ObjectID
	Ref  string
	Kind ObjectKind
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("resolve %s %s: %v", e.Kind, e.Ref, e.Err)
	}
	return fmt.Sprintf("resolve %s %s: %v", e.Kind, e.ID, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// MalformedObjectError reports an object that resolved but lacks a
// readable field.
type MalformedObjectError struct {
	ID     ObjectID
	Kind   ObjectKind
	Field  string
	Reason string
}

func (e *MalformedObjectError) Error() string {
	return fmt.Sprintf("malformed %s %s: %s: %s", e.Kind, e.ID, e.Field, e.Reason)
}

type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open repository %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

type CloneError struct {
	URL  string
	Path string
	Err  error
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("clone %s into %s: %v", e.URL, e.Path, e.Err)
}

func (e *CloneError) Unwrap() error {
	return e.Err
}
