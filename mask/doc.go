// Package mask builds sparse 0/1 aggregation operators.
//
// A Mask partitions Items() items into Groups() groups; every item belongs
// to exactly one group. Viewed as a matrix it has shape Groups() × Items()
// with one nonzero per column. Three construction rules are provided:
//
//   - Aggregation: groups enumerated in first-seen order of their label.
//   - Chunk: contiguous runs of a fixed size; the last run may be short.
//   - VisualWord: Fisher vector dimensions grouped by visual word.
//
// Masks are immutable and safe for concurrent use.
package mask
