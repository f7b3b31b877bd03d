// Package apperr holds the sentinel errors shared by the engine shells.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrNotReady        = errors.New("index not ready")
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidPath     = errors.New("invalid path")
)
