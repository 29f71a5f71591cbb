// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lldb

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestBytesListRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cases := [][][]byte{
		nil,
		{},
		{[]byte("")},
		{[]byte("a"), []byte("bb"), []byte("ccc")},
	}

	big := make([][]byte, 100)
	for i := range big {
		b := make([]byte, rng.Intn(64))
		rng.Read(b)
		big[i] = b
	}
	cases = append(cases, big)

	for _, items := range cases {
		var buf bytes.Buffer
		bytesListWrite(&buf, items)
		got, rest, err := bytesListRead(buf.Bytes())
		if err != nil {
			t.Fatal(err)
		}
		if len(rest) != 0 {
			t.Fatalf("unexpected trailing bytes: %d", len(rest))
		}
		if len(got) != len(items) {
			t.Fatalf("got %d items, want %d", len(got), len(items))
		}
		for i := range items {
			if !bytes.Equal(got[i], items[i]) {
				t.Fatalf("item %d: got %q, want %q", i, got[i], items[i])
			}
		}
	}
}

func TestBytesListReadShort(t *testing.T) {
	if _, _, err := bytesListRead([]byte{1, 2, 3}); err == nil {
		t.Fatal("unexpected success")
	}
}

func TestU64ListRoundTrip(t *testing.T) {
	cases := [][]uint64{
		nil,
		{},
		{0},
		{1, 2, 3, 1<<64 - 1},
	}
	for _, items := range cases {
		var buf bytes.Buffer
		u64ListWrite(&buf, items)
		got, rest, err := u64ListRead(buf.Bytes())
		if err != nil {
			t.Fatal(err)
		}
		if len(rest) != 0 {
			t.Fatalf("unexpected trailing bytes: %d", len(rest))
		}
		if len(got) != len(items) {
			t.Fatalf("got %d items, want %d", len(got), len(items))
		}
		for i := range items {
			if got[i] != items[i] {
				t.Fatalf("item %d: got %d, want %d", i, got[i], items[i])
			}
		}
	}
}

func TestU64ListReadShort(t *testing.T) {
	if _, _, err := u64ListRead([]byte{1, 2, 3}); err == nil {
		t.Fatal("unexpected success")
	}
}
