package cache

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/hupe1980/fvapprox/blobstore"
	"github.com/hupe1980/fvapprox/codec"
	"github.com/hupe1980/fvapprox/resource"
)

// BlobCache persists entries in a blobstore.Store, one blob per key.
type BlobCache struct {
	store       blobstore.Store
	prefix      string
	compression codec.Compression
	rc          *resource.Controller
}

// BlobOption configures a BlobCache.
type BlobOption func(*BlobCache)

// WithPrefix places all blobs below prefix.
func WithPrefix(prefix string) BlobOption {
	return func(c *BlobCache) { c.prefix = prefix }
}

// WithCompression compresses stored values. Defaults to zstd.
func WithCompression(comp codec.Compression) BlobOption {
	return func(c *BlobCache) { c.compression = comp }
}

// WithController throttles blob reads and writes by the controller's IO
// budget.
func WithController(rc *resource.Controller) BlobOption {
	return func(c *BlobCache) { c.rc = rc }
}

// NewBlobCache creates a cache on top of store.
func NewBlobCache(store blobstore.Store, optFns ...BlobOption) *BlobCache {
	c := &BlobCache{store: store, compression: codec.CompressionZstd}
	for _, fn := range optFns {
		fn(c)
	}
	return c
}

func (c *BlobCache) name(key string) string {
	return path.Join(c.prefix, key)
}

// Lookup implements Cache. Blobs that fail to decompress count as misses.
func (c *BlobCache) Lookup(ctx context.Context, key string) ([]byte, bool, error) {
	block, err := blobstore.ReadAll(ctx, c.store, c.name(key))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache lookup %q: %w", key, err)
	}
	if err := c.rc.AcquireIO(ctx, len(block)); err != nil {
		return nil, false, err
	}
	v, err := codec.Decompress(block)
	if err != nil {
		return nil, false, nil
	}
	return v, true, nil
}

// Store implements Cache.
func (c *BlobCache) Store(ctx context.Context, key string, value []byte) error {
	block, err := codec.Compress(c.compression, value)
	if err != nil {
		return err
	}
	if err := c.rc.AcquireIO(ctx, len(block)); err != nil {
		return err
	}
	if err := c.store.Put(ctx, c.name(key), block); err != nil {
		return fmt.Errorf("cache store %q: %w", key, err)
	}
	return nil
}
