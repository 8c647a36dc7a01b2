// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates a request was malformed and rejected before
// producing any side effect.
var ErrValidation = errors.New("validation failed")

// ErrConflict indicates an operation could not proceed because another
// query holds the resource (e.g. a thread still draining a cancellation).
var ErrConflict = errors.New("conflict: resource is held by another query")
