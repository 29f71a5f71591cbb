// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// A basic os.File backed Filer.

package lldb

import (
	"os"

	"github.com/cznic/mathutil"
)

var _ Filer = &SimpleFileFiler{} // Ensure SimpleFileFiler is a Filer.

// SimpleFileFiler is an os.File backed Filer. It tracks the file's size in
// memory to avoid a stat on every WriteAt.
type SimpleFileFiler struct {
	file *os.File
	size int64
}

// NewSimpleFileFiler returns a new SimpleFileFiler.
func NewSimpleFileFiler(f *os.File) *SimpleFileFiler {
	fi, err := os.Stat(f.Name())
	if err != nil {
		panic(err) //TODO must return error
	}

	return &SimpleFileFiler{file: f, size: fi.Size()}
}

// Close implements Filer.
func (f *SimpleFileFiler) Close() (err error) {
	return f.file.Close()
}

// Name implements Filer.
func (f *SimpleFileFiler) Name() string {
	return f.file.Name()
}

// ReadAt implements Filer.
func (f *SimpleFileFiler) ReadAt(b []byte, off int64) (n int, err error) {
	return f.file.ReadAt(b, off)
}

// Size implements Filer.
func (f *SimpleFileFiler) Size() int64 {
	return f.size
}

// Sync implements Filer.
func (f *SimpleFileFiler) Sync() (err error) {
	return f.file.Sync()
}

// Truncate implements Filer.
func (f *SimpleFileFiler) Truncate(size int64) (err error) {
	if size < 0 {
		return &ErrINVAL{"Truncate size", size}
	}

	f.size = size
	return f.file.Truncate(size)
}

// WriteAt implements Filer.
func (f *SimpleFileFiler) WriteAt(b []byte, off int64) (n int, err error) {
	f.size = mathutil.MaxInt64(f.size, int64(len(b))+off)
	return f.file.WriteAt(b, off)
}
