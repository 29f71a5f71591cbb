// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// B+Tree node shapes shared by the algorithm (tree.go) and every Provider
// implementation.

package bptree

// Desc identifies a node. Positive values are descriptors a Store handed
// back from a previous flush; negative values name an in-memory node that
// has never been persisted; 0 means "no node".
type Desc int64

// Node is one B+Tree node: an internal node or a leaf.
//
// Internal nodes carry len(keys)+1 children, descriptors of the next level
// down. Leaves carry len(keys) values, one per key, plus the sibling chain
// (prev/next); children is unused on a leaf and values is unused on an
// internal node.
type Node struct {
	leaf bool
	desc Desc // assigned by the owning Provider at creation time

	keys     [][]byte
	children []Desc   // internal only
	values   [][]byte // leaf only

	prev, next Desc // leaf only; 0 means no sibling
}
