// Package algebra implements grouped weighted sums and broadcasts.
//
// Every operator takes an optional *mask.Mask. A nil mask treats all rows
// as one global group, so the output has a single row. Groups whose weight
// total is zero produce zero rows (see GuardedDiv); no operator ever
// returns NaN or Inf for them.
//
// Inputs are never modified.
package algebra
