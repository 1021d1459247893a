// Package resource bounds the shared resources of an evaluation run:
// scoring worker slots, memory held by in-process caches, and cache IO
// throughput.
package resource
