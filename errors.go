package fvapprox

import (
	"github.com/hupe1980/fvapprox/model"
	"github.com/hupe1980/fvapprox/scorer"
)

var (
	// ErrShapeMismatch is returned when array shapes disagree.
	ErrShapeMismatch = model.ErrShapeMismatch

	// ErrInvalidArgument is returned for out-of-range parameters.
	ErrInvalidArgument = model.ErrInvalidArgument

	// ErrUnknownMode is returned for unrecognized mode names.
	ErrUnknownMode = model.ErrUnknownMode
)

// ShapeError carries the expected and actual shapes of a mismatch.
type ShapeError = model.ShapeError

// WorkerError reports the class whose scoring aborted a batch.
//
// The underlying error can be accessed via errors.Unwrap.
type WorkerError = scorer.WorkerError
