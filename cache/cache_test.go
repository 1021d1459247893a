package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/hupe1980/fvapprox/blobstore"
	"github.com/hupe1980/fvapprox/codec"
	"github.com/hupe1980/fvapprox/model"
	"github.com/hupe1980/fvapprox/resource"
)

func TestLRU(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 100})
	c := NewLRU(50, rc)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "k1", make([]byte, 20)))
	require.NoError(t, c.Store(ctx, "k2", make([]byte, 20)))
	assert.Equal(t, int64(40), c.Size())
	assert.Equal(t, int64(40), rc.MemoryUsage())

	// Touch k1 so k2 becomes least recently used.
	_, ok, err := c.Lookup(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Store(ctx, "k3", make([]byte, 20)))
	assert.Equal(t, int64(40), c.Size())
	assert.Equal(t, int64(40), rc.MemoryUsage())

	_, ok, _ = c.Lookup(ctx, "k2")
	assert.False(t, ok)
	_, ok, _ = c.Lookup(ctx, "k3")
	assert.True(t, ok)

	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)

	c.Purge()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), rc.MemoryUsage())
}

func TestLRU_Limits(t *testing.T) {
	ctx := context.Background()

	t.Run("larger than capacity", func(t *testing.T) {
		c := NewLRU(10, nil)
		require.NoError(t, c.Store(ctx, "big", make([]byte, 11)))
		assert.Equal(t, 0, c.Len())
	})

	t.Run("global budget", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 30})
		c := NewLRU(100, rc)
		require.NoError(t, c.Store(ctx, "k1", make([]byte, 20)))
		require.NoError(t, c.Store(ctx, "k2", make([]byte, 20)))

		_, ok, _ := c.Lookup(ctx, "k2")
		assert.False(t, ok)
		assert.Equal(t, int64(20), c.Size())
	})

	t.Run("repeated store", func(t *testing.T) {
		c := NewLRU(100, nil)
		require.NoError(t, c.Store(ctx, "k", []byte("a")))
		require.NoError(t, c.Store(ctx, "k", []byte("a")))
		assert.Equal(t, 1, c.Len())
		assert.Equal(t, int64(1), c.Size())
	})
}

func TestBlobCache(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	for _, comp := range []codec.Compression{codec.CompressionNone, codec.CompressionLZ4, codec.CompressionZstd} {
		t.Run(comp.String(), func(t *testing.T) {
			c := NewBlobCache(store,
				WithPrefix("agg/"+comp.String()),
				WithCompression(comp),
				WithController(resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 20})),
			)

			_, ok, err := c.Lookup(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			value := []byte("aggregated slices aggregated slices aggregated slices")
			require.NoError(t, c.Store(ctx, "ucf101/agg-3", value))

			got, ok, err := c.Lookup(ctx, "ucf101/agg-3")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, value, got)

			names, err := store.List(ctx, "agg/"+comp.String())
			require.NoError(t, err)
			assert.Equal(t, []string{"agg/" + comp.String() + "/ucf101/agg-3"}, names)
		})
	}
}

func TestBlobCache_CorruptIsMiss(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "k", []byte{1, 2}))

	_, ok, err := NewBlobCache(store).Lookup(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

type recordingCache struct {
	data   map[string][]byte
	stores int
	err    error
}

func (r *recordingCache) Lookup(_ context.Context, key string) ([]byte, bool, error) {
	if r.err != nil {
		return nil, false, r.err
	}
	v, ok := r.data[key]
	return v, ok, nil
}

func (r *recordingCache) Store(_ context.Context, key string, value []byte) error {
	r.stores++
	r.data[key] = value
	return nil
}

func TestChain(t *testing.T) {
	ctx := context.Background()
	front := NewLRU(1<<10, nil)
	back := &recordingCache{data: map[string][]byte{"k": []byte("v")}}
	c := Chain(front, back)

	v, ok, err := c.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))
	assert.Equal(t, 1, front.Len())

	require.NoError(t, c.Store(ctx, "k2", []byte("w")))
	assert.Equal(t, 2, front.Len())
	assert.Equal(t, 1, back.stores)

	_, ok, err = c.Lookup(ctx, "none")
	require.NoError(t, err)
	assert.False(t, ok)

	back.err = errors.New("backend down")
	_, _, err = c.Lookup(ctx, "none")
	assert.Error(t, err)
}

func TestSlices(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(1<<20, nil)
	s := model.SliceData{
		FisherVectors: mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
		Counts:        mat.NewDense(2, 1, []float64{1, 1}),
		NrDescriptors: []float64{5, 6},
		GroupIDs:      []string{"a", "b"},
	}

	_, ok, err := LookupSlices(ctx, c, "s")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, StoreSlices(ctx, c, "s", s))
	got, ok, err := LookupSlices(ctx, c, "s")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mat.Equal(s.FisherVectors, got.FisherVectors))
	assert.Equal(t, s.GroupIDs, got.GroupIDs)

	require.NoError(t, c.Store(ctx, "bad", []byte("junk")))
	_, ok, err = LookupSlices(ctx, c, "bad")
	require.NoError(t, err)
	assert.False(t, ok)
}
