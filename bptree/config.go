// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bptree

// Config configures a tree at creation time. The zero value is meaningful
// for Order (defaults to 128) and Compress (defaults to "off"). Range's
// high-bound inclusivity is a per-call concern (see Tree.Range), not part
// of this struct; kv.Options.ExclusiveRangeHigh carries it for callers of
// the kv facade.
type Config struct {
	Order int // node fan-out; 0 means 128

	// Compress is a zlib level (1-9) applied to node payloads before they
	// are written to the Store. 0 means "no node-payload compression"
	// (resolved internally to -1); a negative value, including
	// zlib.DefaultCompression (-1), also disables compression.
	Compress int

	KeyType, ValueType string // codec names; "" defaults to "bytes"

	checked bool
}

const defaultOrder = 128

// check resolves zero-valued fields to their defaults. Idempotent.
func (c *Config) check() {
	if c.checked {
		return
	}
	if c.Order == 0 {
		c.Order = defaultOrder
	}
	if c.KeyType == "" {
		c.KeyType = "bytes"
	}
	if c.ValueType == "" {
		c.ValueType = "bytes"
	}
	c.checked = true
}

// compressLevel returns the zlib level to pass to the Provider, or -1 for
// "no node-payload compression".
func (c *Config) compressLevel() int {
	if c.Compress == 0 {
		return -1
	}
	return c.Compress
}
