// Package testutil provides seeded data generators and float assertions
// for tests.
//
//	rng := testutil.NewRNG(4711)
//	data := rng.SliceData(model.Layout{D: 4, K: 3}, []int{5, 1, 7}, 2)
//	testutil.DenseInDelta(t, want, got, 1e-9)
package testutil
