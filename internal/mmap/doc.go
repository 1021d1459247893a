// Package mmap maps read-only files into memory.
//
//	m, err := mmap.Open("slices.fvs")
//	if err != nil { ... }
//	defer m.Close()
//
//	_ = m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// Unix platforms use mmap(2) and madvise(2); Windows uses
// CreateFileMapping/MapViewOfFile and ignores access hints.
//
// A Mapping is safe for concurrent reads. Close is idempotent, but callers
// must not touch a slice returned by Bytes after Close returns.
package mmap
