// Package aggregate merges runs of consecutive slices into coarser slices.
//
// Slices are scanned in input order. Each contiguous run of one group id
// is cut into buckets of at most nAgg slices; a new run always starts a new
// bucket, so a bucket never spans two videos. Buckets are merged as
// descriptor-count weighted averages, which keeps the merged Fisher vector
// an average pooled statistic regardless of how many slices fed it.
package aggregate
