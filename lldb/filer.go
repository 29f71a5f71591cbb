// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// An abstraction of file like (persistent) storage.

package lldb

import "github.com/cznic/mathutil"

// A Filer is a []byte-like model of a file or similar entity: offset
// addressed, not sequentially accessible. ReadAt and WriteAt are always
// "addressed" by an offset and are assumed to perform atomically. A Filer is
// not safe for concurrent access, it's designed for consumption by the
// other types in this package, which should use a Filer from one goroutine
// only or via an external mutex.
//
// Unlike the lldb.Filer this package's name recalls, there is no structural
// transaction support (BeginUpdate/EndUpdate/Rollback) and no PunchHole:
// the format has no crash-consistent journaling and no transactional
// rollback by design, and a buddy allocator never produces the "leaky"
// linked free blocks hole-punching exists to reclaim.
type Filer interface {
	// As os.File.Close().
	Close() error

	// As os.File.Name().
	Name() string

	// As os.File.ReadAt. `off` is an absolute address and cannot be
	// negative even when a Filer is an InnerFiler.
	ReadAt(b []byte, off int64) (n int, err error)

	// As os.File.WriteAt. `off` is an absolute address and cannot be
	// negative even when a Filer is an InnerFiler.
	WriteAt(b []byte, off int64) (n int, err error)

	// As os.File.FileInfo().Size().
	Size() int64

	// Sync commits the Filer's in-memory content, if any, to stable
	// storage.
	Sync() error

	// As os.File.Truncate().
	Truncate(size int64) error
}

var _ Filer = &InnerFiler{} // Ensure InnerFiler is a Filer.

// A InnerFiler is a Filer with added addressing/size translation.
type InnerFiler struct {
	outer Filer
	off   int64
}

// NewInnerFiler returns a new InnerFiler wrapped by `outer` in a way which
// adds `off` to every access.
//
// For example, considering:
//
// 	inner := NewInnerFiler(outer, 10)
//
// then
//
// 	inner.WriteAt([]byte{42}, 4)
//
// translates to
//
// 	outer.WriteAt([]byte{42}, 14)
//
// Also note that `inner.Size() == outer.Size() - off`, i.e. `inner`
// pretends no `outer` exists.
func NewInnerFiler(outer Filer, off int64) *InnerFiler { return &InnerFiler{outer, off} }

// Close implements Filer. Notice: InnerFiler.Close is a nop as the actual
// Close can be performed only by the outer Filer.
func (f *InnerFiler) Close() (err error) { return }

// Name implements Filer.
func (f *InnerFiler) Name() string { return f.outer.Name() }

// ReadAt implements Filer. `off` must be >= 0.
func (f *InnerFiler) ReadAt(b []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, &ErrINVAL{f.outer.Name() + ":ReadAt invalid off", off}
	}

	return f.outer.ReadAt(b, f.off+off)
}

// Size implements Filer.
func (f *InnerFiler) Size() int64 { return mathutil.MaxInt64(f.outer.Size()-f.off, 0) }

// Sync implements Filer.
func (f *InnerFiler) Sync() error { return f.outer.Sync() }

// Truncate implements Filer.
func (f *InnerFiler) Truncate(size int64) error { return f.outer.Truncate(size + f.off) }

// WriteAt implements Filer. `off` must be >= 0.
func (f *InnerFiler) WriteAt(b []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, &ErrINVAL{f.outer.Name() + ":WriteAt invalid off", off}
	}

	return f.outer.WriteAt(b, f.off+off)
}
