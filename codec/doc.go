// Package codec encodes slice data for caches and blob stores.
//
// Encoded slice data is a little-endian binary frame (see MarshalSliceData)
// that is optionally compressed with LZ4 or Zstandard. Compressed frames
// carry their algorithm in a header, so readers never need to be told how
// a blob was written.
//
// Changing the frame layout is a breaking change: cached blobs written by
// older versions fail to decode with ErrCorrupt and are recomputed.
package codec
