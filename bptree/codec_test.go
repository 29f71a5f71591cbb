// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bptree

import (
	"bytes"
	"math/rand"
	"sort"
	"testing"
)

func TestBytesCodecRoundTrip(t *testing.T) {
	c, err := ParseCodec("bytes")
	if err != nil {
		t.Fatal(err)
	}
	enc, err := c.Encode([]byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	dec, err := c.Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec.([]byte), []byte("hello")) {
		t.Fatalf("got %v", dec)
	}

	if _, err := c.Encode(42); err == nil {
		t.Fatal("expected error encoding non-byte value")
	}
}

func TestJSONCodecRoundTrip(t *testing.T) {
	c, _ := ParseCodec("json")
	enc, err := c.Encode(map[string]interface{}{"a": 1.0})
	if err != nil {
		t.Fatal(err)
	}
	dec, err := c.Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	m := dec.(map[string]interface{})
	if m["a"].(float64) != 1.0 {
		t.Fatalf("got %v", dec)
	}
}

func TestParseCodecRejectsPickle(t *testing.T) {
	if _, err := ParseCodec("pickle:2"); err == nil {
		t.Fatal("expected pickle: to be rejected")
	}
	if _, err := ParseCodec("bogus"); err == nil {
		t.Fatal("expected bogus type to be rejected")
	}
}

// TestStructCodecUnsignedOrder confirms fixed-width big-endian unsigned
// encodings sort byte-lexicographically in numeric order.
func TestStructCodecUnsignedOrder(t *testing.T) {
	for _, format := range []string{"u8", "u16", "u32", "u64"} {
		c, err := ParseCodec("struct:" + format)
		if err != nil {
			t.Fatal(err)
		}
		limit := 1 << 16
		if format == "u8" {
			limit = 1 << 8
		}
		var vals []uint64
		for i := 0; i < 200; i++ {
			vals = append(vals, uint64(rand.Intn(limit)))
		}

		var encoded [][]byte
		for _, v := range vals {
			var enc []byte
			var err error
			switch format {
			case "u8":
				enc, err = c.Encode(uint8(v))
			case "u16":
				enc, err = c.Encode(uint16(v))
			case "u32":
				enc, err = c.Encode(uint32(v))
			case "u64":
				enc, err = c.Encode(v)
			}
			if err != nil {
				t.Fatal(err)
			}
			encoded = append(encoded, enc)
		}

		idx := make([]int, len(vals))
		for i := range idx {
			idx[i] = i
		}
		sort.Slice(idx, func(a, b int) bool { return vals[idx[a]] < vals[idx[b]] })

		sortedEnc := make([][]byte, len(encoded))
		for i, j := range idx {
			sortedEnc[i] = encoded[j]
		}
		for i := 1; i < len(sortedEnc); i++ {
			if bytes.Compare(sortedEnc[i-1], sortedEnc[i]) > 0 {
				t.Fatalf("%s: byte order does not match numeric order at %d", format, i)
			}
		}
	}
}

// TestStructCodecSignedOrder confirms the sign-bit-flip trick orders
// negative values correctly against positive ones, including at the
// int8 width where the flip happens on a single byte.
func TestStructCodecSignedOrder(t *testing.T) {
	for _, format := range []string{"i8", "i16", "i32", "i64"} {
		c, err := ParseCodec("struct:" + format)
		if err != nil {
			t.Fatal(err)
		}
		vals := []int64{-128, -100, -2, -1, 0, 1, 2, 100, 127}
		var encoded [][]byte
		for _, v := range vals {
			var enc []byte
			var err error
			switch format {
			case "i8":
				enc, err = c.Encode(int8(v))
			case "i16":
				enc, err = c.Encode(int16(v))
			case "i32":
				enc, err = c.Encode(int32(v))
			case "i64":
				enc, err = c.Encode(v)
			}
			if err != nil {
				t.Fatal(err)
			}
			encoded = append(encoded, enc)
		}
		for i := 1; i < len(encoded); i++ {
			if bytes.Compare(encoded[i-1], encoded[i]) >= 0 {
				t.Fatalf("%s: expected strictly increasing byte order at %d (vals %d < %d)", format, i, vals[i-1], vals[i])
			}
		}

		// Decode round-trips back to the original value.
		for i, enc := range encoded {
			dec, err := c.Decode(enc)
			if err != nil {
				t.Fatal(err)
			}
			var got int64
			switch v := dec.(type) {
			case int8:
				got = int64(v)
			case int16:
				got = int64(v)
			case int32:
				got = int64(v)
			case int64:
				got = v
			}
			if got != vals[i] {
				t.Fatalf("%s: round trip %d got %d", format, vals[i], got)
			}
		}
	}
}
