// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Length-prefixed byte lists, fixed-struct lists and big-endian integer
// framing shared by the allocator's free-list blob and the store's
// named-cell directory.

package lldb

import (
	"bytes"
	"encoding/binary"
)

// putUint64 appends the big-endian encoding of v to b.
func putUint64(b *bytes.Buffer, v uint64) {
	var a [8]byte
	binary.BigEndian.PutUint64(a[:], v)
	b.Write(a[:])
}

// putUint32 appends the big-endian encoding of v to b.
func putUint32(b *bytes.Buffer, v uint32) {
	var a [4]byte
	binary.BigEndian.PutUint32(a[:], v)
	b.Write(a[:])
}

func getUint64(b []byte) (uint64, []byte) {
	return binary.BigEndian.Uint64(b), b[8:]
}

func getUint32(b []byte) (uint32, []byte) {
	return binary.BigEndian.Uint32(b), b[4:]
}

// bytesListWrite encodes a length-prefixed list of byte strings as
//
//	u64 BE count || (u32 BE size || bytes)*count
func bytesListWrite(buf *bytes.Buffer, items [][]byte) {
	putUint64(buf, uint64(len(items)))
	for _, it := range items {
		putUint32(buf, uint32(len(it)))
		buf.Write(it)
	}
}

// bytesListRead is the inverse of bytesListWrite.
func bytesListRead(b []byte) (items [][]byte, rest []byte, err error) {
	if len(b) < 8 {
		return nil, nil, &ErrINVAL{"bytesListRead: short buffer", len(b)}
	}
	count, b := getUint64(b)
	items = make([][]byte, 0, count)
	for i := uint64(0); i < count; i++ {
		if len(b) < 4 {
			return nil, nil, &ErrINVAL{"bytesListRead: short size prefix", len(b)}
		}
		sz, rem := getUint32(b)
		b = rem
		if uint64(len(b)) < uint64(sz) {
			return nil, nil, &ErrINVAL{"bytesListRead: short item", len(b)}
		}
		items = append(items, b[:sz])
		b = b[sz:]
	}
	return items, b, nil
}

// u64ListWrite encodes a length-prefixed list of uint64 values as
//
//	u64 BE count || (u64 BE)*count
func u64ListWrite(buf *bytes.Buffer, items []uint64) {
	putUint64(buf, uint64(len(items)))
	for _, v := range items {
		putUint64(buf, v)
	}
}

// u64ListRead is the inverse of u64ListWrite.
func u64ListRead(b []byte) (items []uint64, rest []byte, err error) {
	if len(b) < 8 {
		return nil, nil, &ErrINVAL{"u64ListRead: short buffer", len(b)}
	}
	count, b := getUint64(b)
	items = make([]uint64, 0, count)
	for i := uint64(0); i < count; i++ {
		if len(b) < 8 {
			return nil, nil, &ErrINVAL{"u64ListRead: short item", len(b)}
		}
		var v uint64
		v, b = getUint64(b)
		items = append(items, v)
	}
	return items, b, nil
}
