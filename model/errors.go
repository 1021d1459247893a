package model

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when a mask or vector disagrees with the data it is applied to.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrInvalidArgument is returned when a parameter is outside its valid domain.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownMode is returned for an unrecognized normalization or prediction mode.
	ErrUnknownMode = errors.New("unknown mode")
)

// ShapeError describes a dimension disagreement.
//
// It matches ErrShapeMismatch with errors.Is.
type ShapeError struct {
	What     string
	Expected [2]int
	Actual   [2]int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape mismatch: %s: expected %dx%d, got %dx%d",
		e.What, e.Expected[0], e.Expected[1], e.Actual[0], e.Actual[1])
}

// Is reports whether target is ErrShapeMismatch.
func (e *ShapeError) Is(target error) bool { return target == ErrShapeMismatch }
