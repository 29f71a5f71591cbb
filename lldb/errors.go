// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lldb

import "fmt"

// ErrINVAL reports an invalid argument passed to a Filer, Allocator or Store
// method.
type ErrINVAL struct {
	Name string
	Arg  interface{}
}

func (e *ErrINVAL) Error() string {
	return fmt.Sprintf("%s: invalid argument: %#v", e.Name, e.Arg)
}

// ErrOutOfSpace reports that the allocator could not satisfy a request for a
// block of the given order at or below max_order.
type ErrOutOfSpace struct {
	Order int
}

func (e *ErrOutOfSpace) Error() string {
	return fmt.Sprintf("allocator: out of space for order %d", e.Order)
}

// ErrCorruptHeader reports a CRC mismatch while loading a persisted header
// or B+Tree state blob.
type ErrCorruptHeader struct {
	Name string
}

func (e *ErrCorruptHeader) Error() string {
	return fmt.Sprintf("%s: corrupt header (CRC mismatch)", e.Name)
}

// ErrInvalidDescriptor reports a descriptor whose bits do not decode to a
// possible (order, used, offset) triple.
type ErrInvalidDescriptor struct {
	Descriptor uint64
}

func (e *ErrInvalidDescriptor) Error() string {
	return fmt.Sprintf("invalid descriptor: %#016x", e.Descriptor)
}

// ErrInvalidType reports an unparseable or unsupported key_type/value_type
// string.
type ErrInvalidType struct {
	Type string
}

func (e *ErrInvalidType) Error() string {
	return fmt.Sprintf("unsupported type: %q", e.Type)
}

// ErrInvalidMode reports a file-store open mode outside {r, w, c, n}.
type ErrInvalidMode struct {
	Mode string
}

func (e *ErrInvalidMode) Error() string {
	return fmt.Sprintf("invalid open mode: %q", e.Mode)
}

// ErrInvalidArgument reports e.g. a whence argument outside {SET, CUR, END}.
type ErrInvalidArgument struct {
	Name  string
	Value int64
}

func (e *ErrInvalidArgument) Error() string {
	return fmt.Sprintf("%s: invalid argument: %d", e.Name, e.Value)
}

// ErrMissing reports get/pop of a key that does not exist and no default was
// provided.
type ErrMissing struct {
	Key interface{}
}

func (e *ErrMissing) Error() string {
	return fmt.Sprintf("missing key: %#v", e.Key)
}
