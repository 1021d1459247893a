// Package model defines the records shared by every stage of the pipeline.
//
// # Granularities
//
//   - Slice: a short temporal segment with its own pooled Fisher vector.
//   - Aggregated slice: a descriptor-weighted merge of consecutive slices of one video.
//   - Video: all slices sharing a group id. Only its score is ever computed.
//
// # Layout
//
// A Fisher vector has 2·D·K dimensions: two halves of D·K values (mean and
// variance derivatives), each split into K contiguous blocks of D, one per
// visual word. See Layout.
//
// # Errors
//
// The package also holds the error taxonomy used across packages so that
// callers can match with errors.Is regardless of which stage failed.
package model
