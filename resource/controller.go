package resource

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxWorkers is the number of classes scored concurrently.
	// If 0, defaults to runtime.GOMAXPROCS(0).
	MaxWorkers int64

	// MemoryLimitBytes is the hard limit for cache memory.
	// If 0, usage is only tracked.
	MemoryLimitBytes int64

	// IOLimitBytesPerSec throttles cache reads and writes.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller hands out worker slots and tracks memory and IO budgets.
// A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	workers *semaphore.Weighted

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = int64(runtime.GOMAXPROCS(0))
	}

	c := &Controller{
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.MaxWorkers),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// MaxWorkers returns the configured worker slot count.
func (c *Controller) MaxWorkers() int {
	if c == nil {
		return runtime.GOMAXPROCS(0)
	}
	return int(c.cfg.MaxWorkers)
}

// AcquireWorker blocks until a worker slot is free or ctx is done.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return ctx.Err()
	}
	return c.workers.Acquire(ctx, 1)
}

// TryAcquireWorker reserves a worker slot without blocking.
func (c *Controller) TryAcquireWorker() bool {
	if c == nil {
		return true
	}
	return c.workers.TryAcquire(1)
}

// ReleaseWorker returns a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// AcquireMemory reserves bytes, blocking while a hard limit would be
// exceeded.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, bytes); err != nil {
			return err
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// TryAcquireMemory reserves bytes without blocking.
// Returns false if the limit would be exceeded.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}

	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return false
	}

	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireIO waits until the IO limit allows the given number of bytes.
// Requests larger than one second of budget are split.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
