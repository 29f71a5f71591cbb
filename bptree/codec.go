// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Scalar key/value codecs. A Tree only ever stores []byte; a Codec converts
// a caller's native Go value to and from the []byte a Tree indexes on, so
// choosing a codec also chooses the key ordering (bytes.Compare over the
// encoded form). "pickle:*" — the source ecosystem's opaque default — is
// refused outright; a reimplementation has no business emulating it.

package bptree

import (
	"encoding/binary"
	"encoding/json"
	"strings"

	"github.com/aslpavel/store/lldb"
)

// Codec converts between a native Go value and the []byte form a Tree
// stores and compares.
type Codec interface {
	// Name is the persisted key_type/value_type string, e.g. "bytes",
	// "struct:u64be", "json".
	Name() string
	Encode(v interface{}) ([]byte, error)
	Decode(b []byte) (interface{}, error)
}

// ParseCodec resolves a persisted key_type/value_type string to a Codec.
// Unrecognized types, including any "pickle:" prefixed type inherited from
// an old store, are refused with ErrInvalidType rather than guessed at.
func ParseCodec(name string) (Codec, error) {
	switch {
	case name == "bytes":
		return bytesCodec{}, nil
	case name == "json":
		return jsonCodec{}, nil
	case strings.HasPrefix(name, "struct:"):
		return parseStructCodec(strings.TrimPrefix(name, "struct:"))
	default:
		return nil, &lldb.ErrInvalidType{Type: name}
	}
}

// bytesCodec is the identity codec: the native value must already be
// []byte (or a string, accepted as a convenience), and ordering is plain
// byte-lexicographic.
type bytesCodec struct{}

func (bytesCodec) Name() string { return "bytes" }

func (bytesCodec) Encode(v interface{}) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return nil, &lldb.ErrInvalidArgument{Name: "bytesCodec.Encode: not []byte or string", Value: 0}
	}
}

func (bytesCodec) Decode(b []byte) (interface{}, error) {
	return append([]byte(nil), b...), nil
}

// jsonCodec encodes any JSON-marshalable value. Ordering follows
// byte-lexicographic order of the marshaled text, which coincides with
// neither numeric nor natural string order in general — callers that need
// sorted numeric keys should use a struct codec instead.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Encode(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Decode(b []byte) (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// structCodec supports the fixed-width big-endian integer formats named by
// "struct:u8"/"u16"/"u32"/"u64"/"i8"/"i16"/"i32"/"i64". Fixed width,
// big-endian, unsigned encodings sort byte-lexicographically in numeric
// order, which is the entire point of offering this codec alongside
// "bytes"/"json": it gives callers a way to get correctly ordered integer
// keys without pulling in a general tuple-structure mini-language.
type structCodec struct {
	name string
	size int
	kind byte // 'u' or 'i'
}

func parseStructCodec(format string) (Codec, error) {
	var size int
	var kind byte
	switch format {
	case "u8":
		size, kind = 1, 'u'
	case "u16":
		size, kind = 2, 'u'
	case "u32":
		size, kind = 4, 'u'
	case "u64":
		size, kind = 8, 'u'
	case "i8":
		size, kind = 1, 'i'
	case "i16":
		size, kind = 2, 'i'
	case "i32":
		size, kind = 4, 'i'
	case "i64":
		size, kind = 8, 'i'
	default:
		return nil, &lldb.ErrInvalidType{Type: "struct:" + format}
	}
	return structCodec{name: "struct:" + format, size: size, kind: kind}, nil
}

func (c structCodec) Name() string { return c.name }

func (c structCodec) Encode(v interface{}) ([]byte, error) {
	u, err := toUint64(v, c.kind, c.size)
	if err != nil {
		return nil, err
	}
	b := make([]byte, c.size)
	switch c.size {
	case 1:
		b[0] = byte(u)
	case 2:
		binary.BigEndian.PutUint16(b, uint16(u))
	case 4:
		binary.BigEndian.PutUint32(b, uint32(u))
	case 8:
		binary.BigEndian.PutUint64(b, u)
	}
	return b, nil
}

func (c structCodec) Decode(b []byte) (interface{}, error) {
	if len(b) != c.size {
		return nil, &lldb.ErrInvalidArgument{Name: "structCodec.Decode: size mismatch", Value: int64(len(b))}
	}
	var u uint64
	switch c.size {
	case 1:
		u = uint64(b[0])
	case 2:
		u = uint64(binary.BigEndian.Uint16(b))
	case 4:
		u = uint64(binary.BigEndian.Uint32(b))
	case 8:
		u = binary.BigEndian.Uint64(b)
	}
	if c.kind == 'u' {
		switch c.size {
		case 1:
			return uint8(u), nil
		case 2:
			return uint16(u), nil
		case 4:
			return uint32(u), nil
		default:
			return u, nil
		}
	}

	// Signed: flip the sign bit on the wire so two's-complement values
	// still sort byte-lexicographically in numeric order, then undo it
	// here.
	signBit := uint64(1) << uint(c.size*8-1)
	iv := int64(u ^ signBit)
	switch c.size {
	case 1:
		return int8(iv), nil
	case 2:
		return int16(iv), nil
	case 4:
		return int32(iv), nil
	default:
		return iv, nil
	}
}

func toUint64(v interface{}, kind byte, size int) (uint64, error) {
	var iv int64
	switch n := v.(type) {
	case int:
		iv = int64(n)
	case int8:
		iv = int64(n)
	case int16:
		iv = int64(n)
	case int32:
		iv = int64(n)
	case int64:
		iv = n
	case uint:
		iv = int64(n)
	case uint8:
		iv = int64(n)
	case uint16:
		iv = int64(n)
	case uint32:
		iv = int64(n)
	case uint64:
		if kind == 'u' {
			return n, nil
		}
		iv = int64(n)
	default:
		return 0, &lldb.ErrInvalidArgument{Name: "toUint64: unsupported type", Value: 0}
	}

	if kind == 'u' {
		return uint64(iv), nil
	}

	signBit := uint64(1) << uint(size*8-1)
	return uint64(iv) ^ signBit, nil
}
