package fvapprox

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordClass is called after each class is scored within a chunk.
	RecordClass(cls int, duration time.Duration, err error)

	// RecordBatch is called after each chunk of videos. classes is the
	// number of classes scored, duration the total time taken.
	RecordBatch(videos, classes int, duration time.Duration, err error)

	// RecordCache is called after each aggregate cache lookup.
	RecordCache(hit bool)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordClass(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordBatch(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordCache(bool)                           {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ClassCount      atomic.Int64
	ClassErrors     atomic.Int64
	ClassTotalNanos atomic.Int64
	BatchCount      atomic.Int64
	BatchErrors     atomic.Int64
	BatchVideos     atomic.Int64
	BatchTotalNanos atomic.Int64
	CacheHits       atomic.Int64
	CacheMisses     atomic.Int64
}

// RecordClass implements MetricsCollector.
func (b *BasicMetricsCollector) RecordClass(_ int, duration time.Duration, err error) {
	b.ClassCount.Add(1)
	b.ClassTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ClassErrors.Add(1)
	}
}

// RecordBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatch(videos, _ int, duration time.Duration, err error) {
	b.BatchCount.Add(1)
	b.BatchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BatchErrors.Add(1)
		return
	}
	b.BatchVideos.Add(int64(videos))
}

// RecordCache implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCache(hit bool) {
	if hit {
		b.CacheHits.Add(1)
	} else {
		b.CacheMisses.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	stats := BasicMetricsStats{
		ClassCount:  b.ClassCount.Load(),
		ClassErrors: b.ClassErrors.Load(),
		BatchCount:  b.BatchCount.Load(),
		BatchErrors: b.BatchErrors.Load(),
		BatchVideos: b.BatchVideos.Load(),
		CacheHits:   b.CacheHits.Load(),
		CacheMisses: b.CacheMisses.Load(),
	}
	if stats.ClassCount > 0 {
		stats.ClassAvgNanos = b.ClassTotalNanos.Load() / stats.ClassCount
	}
	if stats.BatchCount > 0 {
		stats.BatchAvgNanos = b.BatchTotalNanos.Load() / stats.BatchCount
	}
	return stats
}

// BasicMetricsStats is a point-in-time snapshot of metrics.
type BasicMetricsStats struct {
	ClassCount    int64
	ClassErrors   int64
	ClassAvgNanos int64
	BatchCount    int64
	BatchErrors   int64
	BatchVideos   int64
	BatchAvgNanos int64
	CacheHits     int64
	CacheMisses   int64
}
