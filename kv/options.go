// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kv

import "github.com/aslpavel/store/bptree"

// Options amend the behavior of Create/Open, following the same struct
// literal convention as the teacher's dbm.Options: plain exported fields,
// a private checked bool makes validation idempotent, and a zero value is
// always a usable default.
type Options struct {
	// Tree configures the Order/Compress/codec names of every tree the DB
	// creates on first use, the default ("main") tree and named trees
	// alike. The zero value resolves to Order 128, no node compression,
	// "bytes" key and value codecs.
	Tree bptree.Config

	// ExclusiveRangeHigh, when true, makes DB.Range treat its high bound
	// as exclusive. The zero value (false) is inclusive, matching
	// spec.md §8 S3's range(100,201) scenario (201 included).
	ExclusiveRangeHigh bool

	checked bool
}

func (o *Options) check() {
	if o.checked {
		return
	}
	o.checked = true
}
