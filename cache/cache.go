// Package cache memoizes aggregated slice data.
//
// A Cache is passed explicitly to the code that needs it. Entries are
// immutable byte strings addressed by a key that must fully determine the
// value, so entries never need invalidation. Caches may drop entries at
// any time; a miss only costs recomputation.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/fvapprox/codec"
	"github.com/hupe1980/fvapprox/model"
)

// Cache is a byte-oriented memoization store. Implementations must be safe
// for concurrent use. Returned slices must be treated as read-only.
type Cache interface {
	// Lookup returns the value stored under key; ok is false on a miss.
	Lookup(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Store records value under key. Implementations may decline to keep it.
	Store(ctx context.Context, key string, value []byte) error
}

// Chain consults caches in order. A hit in a later cache is copied into the
// earlier ones; Store writes to all of them.
func Chain(caches ...Cache) Cache {
	return chain(caches)
}

type chain []Cache

func (c chain) Lookup(ctx context.Context, key string) ([]byte, bool, error) {
	for i, cache := range c {
		v, ok, err := cache.Lookup(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		for _, earlier := range c[:i] {
			if err := earlier.Store(ctx, key, v); err != nil {
				return nil, false, err
			}
		}
		return v, true, nil
	}
	return nil, false, nil
}

func (c chain) Store(ctx context.Context, key string, value []byte) error {
	var errs []error
	for _, cache := range c {
		errs = append(errs, cache.Store(ctx, key, value))
	}
	return errors.Join(errs...)
}

// LookupSlices decodes slice data cached under key. Entries that fail to
// decode count as misses.
func LookupSlices(ctx context.Context, c Cache, key string) (model.SliceData, bool, error) {
	b, ok, err := c.Lookup(ctx, key)
	if err != nil || !ok {
		return model.SliceData{}, false, err
	}
	s, err := codec.UnmarshalSliceData(b)
	if err != nil {
		if errors.Is(err, codec.ErrCorrupt) {
			return model.SliceData{}, false, nil
		}
		return model.SliceData{}, false, err
	}
	return s, true, nil
}

// StoreSlices encodes s and stores it under key.
func StoreSlices(ctx context.Context, c Cache, key string, s model.SliceData) error {
	b, err := codec.MarshalSliceData(s)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return c.Store(ctx, key, b)
}
