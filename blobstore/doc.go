// Package blobstore abstracts where encoded slice data and cached
// aggregations live.
//
// Store is the interface for reading and writing immutable named blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: process-local, for tests and ephemeral caches
//   - LocalStore: local filesystem, read through mmap
//   - minio.Store: MinIO and other S3-compatible services
//   - s3.Store: Amazon S3, with multipart uploads for large blobs
//
// # Custom Implementations
//
//	type Store interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
