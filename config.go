package fvapprox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/fvapprox/blobstore"
	miniostore "github.com/hupe1980/fvapprox/blobstore/minio"
	s3store "github.com/hupe1980/fvapprox/blobstore/s3"
	"github.com/hupe1980/fvapprox/codec"
	"github.com/hupe1980/fvapprox/model"
	"github.com/hupe1980/fvapprox/normalize"
)

// DefaultChunkSize is the number of videos scored per chunk.
const DefaultChunkSize = 1000

// Cache backends.
const (
	BackendLocal = "local"
	BackendMinio = "minio"
	BackendS3    = "s3"
)

// Config describes one evaluation run. Mode names are kept as strings so
// the record round-trips through YAML; Validate parses them.
type Config struct {
	// Dataset names the slice data. It scopes cache keys; caching is
	// disabled when empty.
	Dataset string `yaml:"dataset"`

	// D is the descriptor dimension and K the number of visual words.
	D int `yaml:"d"`
	K int `yaml:"k"`

	// NAgg is the number of consecutive slices averaged into one row.
	NAgg int `yaml:"n_agg"`

	// Workers bounds the number of classes scored concurrently.
	// If 0, defaults to runtime.GOMAXPROCS(0).
	Workers int `yaml:"workers"`

	// ChunkSize is the number of videos scored together.
	ChunkSize int `yaml:"chunk_size"`

	// Mode is "exact" or "approx".
	Mode string `yaml:"mode"`

	// Sqrt selects the exact path's square root: "exact" or "approx".
	Sqrt string `yaml:"sqrt"`

	// Standardize requires a scaler (see WithScaler).
	Standardize bool `yaml:"standardize"`

	Cache CacheConfig `yaml:"cache"`
}

// CacheConfig configures the aggregate cache built by NewEvaluator when no
// cache is passed with WithCache.
type CacheConfig struct {
	// Backend selects the blob store behind the cache: "local", "minio"
	// or "s3". Empty means local.
	Backend string `yaml:"backend"`

	// Dir enables a directory-backed cache for the local backend.
	Dir string `yaml:"dir"`

	// Bucket and Prefix locate entries on the minio and s3 backends.
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`

	// Endpoint is the minio host:port, or an S3-compatible endpoint URL.
	Endpoint string `yaml:"endpoint"`
	// Region overrides the AWS region of the s3 backend.
	Region string `yaml:"region"`
	// Secure enables TLS for the minio backend.
	Secure bool `yaml:"secure"`

	// Compression is "none", "lz4" or "zstd".
	Compression string `yaml:"compression"`

	// MemoryBytes enables an in-memory LRU of encoded entries.
	MemoryBytes int64 `yaml:"memory_bytes"`

	// DecodedEntries is the number of decoded chunks kept in process.
	DecodedEntries int `yaml:"decoded_entries"`
}

// DefaultConfig returns the configuration of the debugging dataset with
// exact scoring and no cache.
func DefaultConfig() Config {
	return Config{
		D:         5,
		K:         2,
		NAgg:      1,
		ChunkSize: DefaultChunkSize,
		Mode:      normalize.PredictExact.String(),
		Sqrt:      normalize.SqrtExact.String(),
		Cache: CacheConfig{
			Compression:    codec.CompressionZstd.String(),
			DecodedEntries: 16,
		},
	}
}

// Layout returns the Fisher vector layout.
func (c Config) Layout() model.Layout {
	return model.Layout{D: c.D, K: c.K}
}

// Validate checks the configuration and parses every mode name.
func (c Config) Validate() error {
	_, err := c.resolve()
	return err
}

type settings struct {
	layout      model.Layout
	mode        normalize.PredictionMode
	sqrt        normalize.SqrtMode
	compression codec.Compression
}

func (c Config) resolve() (settings, error) {
	var s settings
	s.layout = c.Layout()
	if err := s.layout.Validate(); err != nil {
		return s, err
	}
	switch {
	case c.NAgg < 1:
		return s, fmt.Errorf("%w: n_agg %d < 1", ErrInvalidArgument, c.NAgg)
	case c.Workers < 0:
		return s, fmt.Errorf("%w: workers %d < 0", ErrInvalidArgument, c.Workers)
	case c.ChunkSize < 1:
		return s, fmt.Errorf("%w: chunk_size %d < 1", ErrInvalidArgument, c.ChunkSize)
	case c.Cache.MemoryBytes < 0:
		return s, fmt.Errorf("%w: cache memory_bytes %d < 0", ErrInvalidArgument, c.Cache.MemoryBytes)
	case c.Cache.DecodedEntries < 0:
		return s, fmt.Errorf("%w: cache decoded_entries %d < 0", ErrInvalidArgument, c.Cache.DecodedEntries)
	}

	var err error
	if s.mode, err = normalize.ParsePredictionMode(c.Mode); err != nil {
		return s, err
	}
	if s.sqrt, err = normalize.ParseSqrtMode(c.Sqrt); err != nil {
		return s, err
	}
	if s.compression, err = codec.ParseCompression(c.Cache.Compression); err != nil {
		return s, err
	}
	if err := c.Cache.validateBackend(); err != nil {
		return s, err
	}
	return s, nil
}

func (c CacheConfig) validateBackend() error {
	switch c.Backend {
	case "", BackendLocal:
		return nil
	case BackendMinio:
		if c.Endpoint == "" {
			return fmt.Errorf("%w: cache backend minio requires an endpoint", ErrInvalidArgument)
		}
	case BackendS3:
	default:
		return fmt.Errorf("%w: cache backend %q", ErrUnknownMode, c.Backend)
	}
	if c.Bucket == "" {
		return fmt.Errorf("%w: cache backend %s requires a bucket", ErrInvalidArgument, c.Backend)
	}
	return nil
}

// openStore returns the blob store of the configured backend, or nil when
// the local backend has no directory.
func (c CacheConfig) openStore(ctx context.Context) (blobstore.Store, error) {
	switch c.Backend {
	case BackendMinio:
		return miniostore.Dial(c.Endpoint, c.Bucket, c.Prefix, c.Secure)
	case BackendS3:
		return s3store.New(ctx, c.Bucket, func(o *s3store.Options) {
			o.Prefix = c.Prefix
			o.Region = c.Region
			o.Endpoint = c.Endpoint
		})
	}
	if c.Dir == "" {
		return nil, nil
	}
	return blobstore.NewLocalStore(c.Dir), nil
}

// LoadConfig reads a YAML config file. Fields missing from the file keep
// their DefaultConfig values; unknown fields are rejected.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return ReadConfig(f)
}

// ReadConfig decodes a YAML config from r. See LoadConfig.
func ReadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
