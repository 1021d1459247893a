package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrInjected is the default error returned by injected faults.
var ErrInjected = errors.New("injected fault")

// Fault defines specific failure behavior.
type Fault struct {
	FailAfterBytes int64 // Fail writes after this many bytes written to one file. -1 to disable.
	FailOnSync     bool
	FailOnClose    bool
	FailOnRename   bool // Matched against the rename source.
	Err            error
}

func (f Fault) err() error {
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

// FaultyFS is a FileSystem wrapper that can inject errors.
type FaultyFS struct {
	FS    FileSystem
	mu    sync.Mutex
	rules map[string]Fault // Filename substring -> Fault
}

// NewFaultyFS creates a new FaultyFS wrapping the provided FS (or Default if nil).
func NewFaultyFS(fs FileSystem) *FaultyFS {
	if fs == nil {
		fs = Default
	}
	return &FaultyFS{
		FS:    fs,
		rules: make(map[string]Fault),
	}
}

// AddRule adds a fault injection rule for files whose name contains pattern.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[pattern] = fault
}

// match returns the fault of the first matching pattern in lexical order.
func (f *FaultyFS) match(name string) (Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var (
		best  string
		fault Fault
		ok    bool
	)
	for pattern, rule := range f.rules {
		if strings.Contains(name, pattern) && (!ok || pattern < best) {
			best, fault, ok = pattern, rule, true
		}
	}
	return fault, ok
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	fault, ok := f.match(name)
	if !ok {
		return file, nil
	}
	return &faultyFile{File: file, fault: fault}, nil
}

func (f *FaultyFS) Remove(name string) error {
	return f.FS.Remove(name)
}

func (f *FaultyFS) Rename(oldpath, newpath string) error {
	if fault, ok := f.match(oldpath); ok && fault.FailOnRename {
		return fault.err()
	}
	return f.FS.Rename(oldpath, newpath)
}

func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error {
	return f.FS.MkdirAll(path, perm)
}

type faultyFile struct {
	File
	fault   Fault
	written int64
}

func (ff *faultyFile) Write(p []byte) (n int, err error) {
	if ff.fault.FailAfterBytes >= 0 && ff.written+int64(len(p)) > ff.fault.FailAfterBytes {
		return 0, ff.fault.err()
	}
	n, err = ff.File.Write(p)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) Sync() error {
	if ff.fault.FailOnSync {
		return ff.fault.err()
	}
	return ff.File.Sync()
}

func (ff *faultyFile) Close() error {
	if ff.fault.FailOnClose {
		_ = ff.File.Close()
		return ff.fault.err()
	}
	return ff.File.Close()
}
