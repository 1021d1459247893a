package experiment

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/fvapprox/model"
)

// Kind selects how synthetic vectors are drawn.
type Kind uint8

const (
	// Independent draws every entry from a standard normal.
	Independent Kind = iota
	// Sparse keeps a random subset of each row's entries and zeroes the rest.
	Sparse
)

// Sampling describes a data generator.
type Sampling struct {
	Kind Kind
	// Keep is the number of non-zero entries per row for Sparse.
	Keep int
	// KeepFraction is used instead of Keep when Keep is 0.
	KeepFraction float64
}

// ParseSampling parses "independent", "sparse_<count>" or
// "sparse_<fraction>", e.g. "sparse_5" or "sparse_0.1".
func ParseSampling(s string) (Sampling, error) {
	if s == "independent" {
		return Sampling{Kind: Independent}, nil
	}
	arg, ok := strings.CutPrefix(s, "sparse_")
	if !ok {
		return Sampling{}, fmt.Errorf("%w: sampling %q", model.ErrUnknownMode, s)
	}
	if k, err := strconv.Atoi(arg); err == nil {
		if k < 1 {
			return Sampling{}, fmt.Errorf("%w: sparse count %d", model.ErrInvalidArgument, k)
		}
		return Sampling{Kind: Sparse, Keep: k}, nil
	}
	f, err := strconv.ParseFloat(arg, 64)
	if err != nil || f <= 0 || f > 1 {
		return Sampling{}, fmt.Errorf("%w: sparse fraction %q", model.ErrInvalidArgument, arg)
	}
	return Sampling{Kind: Sparse, KeepFraction: f}, nil
}

func (s Sampling) String() string {
	switch {
	case s.Kind == Independent:
		return "independent"
	case s.Keep > 0:
		return "sparse_" + strconv.Itoa(s.Keep)
	default:
		return "sparse_" + strconv.FormatFloat(s.KeepFraction, 'g', -1, 64)
	}
}

// keep returns the number of non-zero entries per row of dimension d.
func (s Sampling) keep(d int) int {
	if s.Kind == Independent {
		return d
	}
	k := s.Keep
	if k == 0 {
		k = int(s.KeepFraction * float64(d))
	}
	return max(1, min(k, d))
}

// Generate draws an n × d matrix.
func (s Sampling) Generate(rng *rand.Rand, n, d int) *mat.Dense {
	out := mat.NewDense(n, d, nil)
	k := s.keep(d)
	for i := 0; i < n; i++ {
		row := out.RawRowView(i)
		if k == d {
			for j := range row {
				row[j] = rng.NormFloat64()
			}
			continue
		}
		for _, j := range rng.Perm(d)[:k] {
			row[j] = rng.NormFloat64()
		}
	}
	return out
}
