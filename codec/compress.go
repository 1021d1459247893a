package codec

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/fvapprox/model"
)

// Compression selects the block compression applied to encoded payloads.
type Compression uint8

const (
	// CompressionNone stores payloads as is.
	CompressionNone Compression = iota
	// CompressionLZ4 favors speed.
	CompressionLZ4
	// CompressionZstd favors ratio.
	CompressionZstd
)

var compressionNames = map[Compression]string{
	CompressionNone: "none",
	CompressionLZ4:  "lz4",
	CompressionZstd: "zstd",
}

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	for c, name := range compressionNames {
		if strings.EqualFold(s, name) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: compression %q", model.ErrUnknownMode, s)
}

func (c Compression) String() string {
	if name, ok := compressionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Compression) UnmarshalText(b []byte) (err error) {
	*c, err = ParseCompression(string(b))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (c Compression) MarshalText() ([]byte, error) {
	if _, ok := compressionNames[c]; !ok {
		return nil, fmt.Errorf("codec: unknown compression %d", uint8(c))
	}
	return []byte(c.String()), nil
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Block header: [kind uint8][uncompressed uint32][stored uint32].
// Blocks that do not shrink are stored with kind CompressionNone.
const blockHeaderSize = 9

// Compress wraps data in a self-describing block.
func Compress(c Compression, data []byte) ([]byte, error) {
	var packed []byte
	switch c {
	case CompressionNone:
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("codec: lz4: %w", err)
		}
		packed = buf[:n]
	case CompressionZstd:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("codec: unknown compression %d", uint8(c))
	}

	// Incompressible input (lz4 reports n == 0) is stored raw.
	if len(packed) == 0 || len(packed) >= len(data) {
		c, packed = CompressionNone, data
	}

	out := make([]byte, blockHeaderSize+len(packed))
	out[0] = byte(c)
	binary.LittleEndian.PutUint32(out[1:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[5:], uint32(len(packed)))
	copy(out[blockHeaderSize:], packed)
	return out, nil
}

// Decompress reverses Compress.
func Decompress(block []byte) ([]byte, error) {
	if len(block) < blockHeaderSize {
		return nil, fmt.Errorf("%w: block shorter than header", ErrCorrupt)
	}
	kind := Compression(block[0])
	size := binary.LittleEndian.Uint32(block[1:])
	stored := binary.LittleEndian.Uint32(block[5:])
	if uint64(len(block)) < blockHeaderSize+uint64(stored) {
		return nil, fmt.Errorf("%w: truncated block", ErrCorrupt)
	}
	payload := block[blockHeaderSize : blockHeaderSize+int(stored)]

	switch kind {
	case CompressionNone:
		if stored != size {
			return nil, fmt.Errorf("%w: raw block size mismatch", ErrCorrupt)
		}
		return payload, nil
	case CompressionLZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
		}
		if uint32(n) != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil
	case CompressionZstd:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(payload, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
		if uint32(len(out)) != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, uint8(kind))
	}
}
