// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
//	store, err := s3.New(ctx, "datasets", func(o *s3.Options) {
//	    o.Prefix = "fisher/"
//	    o.Region = "eu-central-1"
//	})
//
// Reads use ranged GETs; writes go through the SDK upload manager, which
// switches to multipart uploads for large blobs.
package s3
