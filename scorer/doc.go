// Package scorer computes per-class, per-video decision values either from
// exactly normalized video vectors or from per-visual-word slice statistics.
//
// Class-independent work (video aggregation and normalization in exact
// mode, squared contributions and counts in approximate mode) is done once
// by New. Score then only touches the class weights, so ScoreAll can run
// classes in parallel over shared, read-only inputs.
package scorer
