package testutil

import (
	"math"
	"math/rand/v2"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/fvapprox/model"
)

// RNG is a seeded, thread-safe random source.
type RNG struct {
	rand *rand.Rand
	seed uint64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewPCG(seed, seed)),
		seed: seed,
	}
}

// Reset rewinds the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewPCG(r.seed, r.seed))
}

// Seed returns the initial seed.
func (r *RNG) Seed() uint64 {
	return r.seed
}

// IntN returns a pseudo-random number in [0,n).
func (r *RNG) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.IntN(n)
}

// Float64 returns a pseudo-random number in [0,1).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// GaussianDense returns an r × c matrix of standard normal values.
func (r *RNG) GaussianDense(rows, cols int) *mat.Dense {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = r.rand.NormFloat64()
	}
	return mat.NewDense(rows, cols, data)
}

// SimplexDense returns an r × c matrix whose rows are non-negative and sum
// to one, like soft visual word assignments.
func (r *RNG) SimplexDense(rows, cols int) *mat.Dense {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		var sum float64
		for j := range row {
			row[j] = r.rand.ExpFloat64()
			sum += row[j]
		}
		for j := range row {
			row[j] /= sum
		}
	}
	return out
}

// SliceData generates valid slice data for layout: one video per entry of
// nrSlices, video i labelled i % classes.
func (r *RNG) SliceData(layout model.Layout, nrSlices []int, classes int) model.SliceData {
	var n int
	for _, k := range nrSlices {
		n += k
	}

	s := model.SliceData{
		FisherVectors: r.GaussianDense(n, layout.Dim()),
		Counts:        r.SimplexDense(n, layout.K),
		NrDescriptors: make([]float64, n),
		GroupIDs:      make([]string, 0, n),
		Labels:        make([]int, 0, n),
	}
	for v, k := range nrSlices {
		for range k {
			s.GroupIDs = append(s.GroupIDs, "video-"+strconv.Itoa(v))
			s.Labels = append(s.Labels, v%max(classes, 1))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range s.NrDescriptors {
		s.NrDescriptors[i] = float64(1 + r.rand.IntN(100))
	}
	return s
}

// Weights returns a random weight vector of length dim.
func (r *RNG) Weights(dim int) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := make([]float64, dim)
	for i := range w {
		w[i] = r.rand.NormFloat64()
	}
	return w
}

// DenseInDelta asserts that want and got have the same shape and agree
// elementwise within delta.
func DenseInDelta(t testing.TB, want, got mat.Matrix, delta float64) bool {
	t.Helper()
	wr, wc := want.Dims()
	gr, gc := got.Dims()
	if !assert.Equal(t, [2]int{wr, wc}, [2]int{gr, gc}, "shape") {
		return false
	}
	ok := true
	for i := 0; i < wr; i++ {
		for j := 0; j < wc; j++ {
			ok = assert.InDelta(t, want.At(i, j), got.At(i, j), delta, "element (%d, %d)", i, j) && ok
		}
	}
	return ok
}

// AllFinite asserts that no value is NaN or infinite.
func AllFinite(t testing.TB, xs []float64) bool {
	t.Helper()
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return assert.Fail(t, "non-finite value", "index %d: %v", i, x)
		}
	}
	return true
}
