// Package normalize implements signed square-rooting and L2 normalization of
// Fisher vectors, both exactly and through per-visual-word approximations.
//
// The approximations never materialize a video-level vector. They work on
// N × K matrices of partial statistics, one column per visual word:
//
//   - squared-magnitude contributions (VisualWordSqContribution)
//   - partial linear scores (VisualWordLinearScore)
//   - soft-assignment counts
//
// A visual word whose count is zero is excluded from every approximate sum.
// A row whose approximate norm is zero scores 0.
package normalize
