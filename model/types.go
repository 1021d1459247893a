package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Layout describes the shape of a Fisher vector.
type Layout struct {
	// D is the descriptor dimension (per visual word, per half).
	D int
	// K is the number of visual words.
	K int
}

// Dim returns the Fisher vector length 2·D·K.
func (l Layout) Dim() int { return 2 * l.D * l.K }

// Validate checks that both dimensions are positive.
func (l Layout) Validate() error {
	if l.D < 1 || l.K < 1 {
		return fmt.Errorf("%w: layout D=%d K=%d", ErrInvalidArgument, l.D, l.K)
	}
	return nil
}

// SliceData holds per-row statistics for slices or aggregated slices.
//
// Rows are in video order. The matrices are treated as immutable once
// built; every stage returns fresh matrices instead of mutating its input.
type SliceData struct {
	// FisherVectors is N × 2DK.
	FisherVectors *mat.Dense
	// Counts is N × K, the per-visual-word soft assignment.
	Counts *mat.Dense
	// NrDescriptors has length N.
	NrDescriptors []float64
	// GroupIDs identifies the owning video of each row (length N).
	GroupIDs []string
	// Labels is the ground truth class of the owning video (length N).
	Labels []int
}

// Len returns the number of rows.
func (s SliceData) Len() int { return len(s.NrDescriptors) }

// Validate checks that every field agrees on the row count and that the
// matrices match layout.
func (s SliceData) Validate(layout Layout) error {
	n := s.Len()
	if s.FisherVectors == nil || s.Counts == nil {
		return fmt.Errorf("%w: missing fisher vectors or counts", ErrInvalidArgument)
	}
	if r, c := s.FisherVectors.Dims(); r != n || c != layout.Dim() {
		return &ShapeError{What: "fisher vectors", Expected: [2]int{n, layout.Dim()}, Actual: [2]int{r, c}}
	}
	if r, c := s.Counts.Dims(); r != n || c != layout.K {
		return &ShapeError{What: "counts", Expected: [2]int{n, layout.K}, Actual: [2]int{r, c}}
	}
	if len(s.GroupIDs) != n {
		return &ShapeError{What: "group ids", Expected: [2]int{n, 1}, Actual: [2]int{len(s.GroupIDs), 1}}
	}
	if s.Labels != nil && len(s.Labels) != n {
		return &ShapeError{What: "labels", Expected: [2]int{n, 1}, Actual: [2]int{len(s.Labels), 1}}
	}
	for i, nd := range s.NrDescriptors {
		if nd < 0 {
			return fmt.Errorf("%w: negative descriptor count %v at row %d", ErrInvalidArgument, nd, i)
		}
	}
	return nil
}
