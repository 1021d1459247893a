// Package fs abstracts the file operations used to publish blobs so that
// tests can inject failures.
//
// Production code uses fs.Default, which is [LocalFS]:
//
//	f, err := fs.Default.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
//
// Tests wrap it in a [FaultyFS]:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".tmp-", fs.Fault{FailOnSync: true})
//
// Operations take no context.Context. Local file operations are not
// interruptible at the syscall level; remote stores have their own
// context-aware API in blobstore.
package fs
