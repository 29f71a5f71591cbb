// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Length-prefixed byte-list framing for a node's keys/values, independent
// of lldb's identical (but unexported) helper: a B+Tree node's wire shape
// is this package's own concern, not lldb's.

package bptree

import (
	"bytes"
	"encoding/binary"

	"github.com/aslpavel/store/lldb"
)

func putUint64(b *bytes.Buffer, v uint64) {
	var a [8]byte
	binary.BigEndian.PutUint64(a[:], v)
	b.Write(a[:])
}

func putUint32(b *bytes.Buffer, v uint32) {
	var a [4]byte
	binary.BigEndian.PutUint32(a[:], v)
	b.Write(a[:])
}

func getUint64(b []byte) (uint64, []byte) { return binary.BigEndian.Uint64(b), b[8:] }
func getUint32(b []byte) (uint32, []byte) { return binary.BigEndian.Uint32(b), b[4:] }

// bytesListWrite encodes keys/values as u64 BE count || (u32 BE size || bytes)*count.
func bytesListWrite(buf *bytes.Buffer, items [][]byte) {
	putUint64(buf, uint64(len(items)))
	for _, it := range items {
		putUint32(buf, uint32(len(it)))
		buf.Write(it)
	}
}

func bytesListRead(b []byte) (items [][]byte, rest []byte, err error) {
	if len(b) < 8 {
		return nil, nil, &lldb.ErrInvalidArgument{Name: "bytesListRead: short buffer", Value: int64(len(b))}
	}
	count, b := getUint64(b)
	items = make([][]byte, 0, count)
	for i := uint64(0); i < count; i++ {
		if len(b) < 4 {
			return nil, nil, &lldb.ErrInvalidArgument{Name: "bytesListRead: short size prefix", Value: int64(len(b))}
		}
		sz, rem := getUint32(b)
		b = rem
		if uint64(len(b)) < uint64(sz) {
			return nil, nil, &lldb.ErrInvalidArgument{Name: "bytesListRead: short item", Value: int64(len(b))}
		}
		items = append(items, b[:sz])
		b = b[sz:]
	}
	return items, b, nil
}

// descListWrite/descListRead frame an internal node's child descriptors:
// u64 BE count || (u64 BE)*count.
func descListWrite(buf *bytes.Buffer, items []Desc) {
	putUint64(buf, uint64(len(items)))
	for _, v := range items {
		putUint64(buf, uint64(v))
	}
}

func descListRead(b []byte) (items []Desc, rest []byte, err error) {
	if len(b) < 8 {
		return nil, nil, &lldb.ErrInvalidArgument{Name: "descListRead: short buffer", Value: int64(len(b))}
	}
	count, b := getUint64(b)
	items = make([]Desc, 0, count)
	for i := uint64(0); i < count; i++ {
		if len(b) < 8 {
			return nil, nil, &lldb.ErrInvalidArgument{Name: "descListRead: short item", Value: int64(len(b))}
		}
		var v uint64
		v, b = getUint64(b)
		items = append(items, Desc(v))
	}
	return items, b, nil
}
