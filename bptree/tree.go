// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The B+Tree algorithm: descent, split-on-overflow insert, and
// merge-or-borrow-on-underflow delete, plus ordered range iteration. Keys
// and values are opaque []byte; ordering is byte-lexicographic
// (bytes.Compare), so a codec (codec.go) that wants a different key
// ordering (e.g. numeric) must produce a byte encoding that preserves it
// (fixed-width big-endian, for instance).
//
// The algorithm never touches storage directly — every node access goes
// through a Provider (provider.go), so the same code runs over an
// in-memory tree or over a Store-backed, cached tree (store_provider.go).

package bptree

import (
	"bytes"
	"sort"
)

// Tree is a B+Tree mapping ordered by bytes.Compare over []byte keys.
type Tree struct {
	p Provider
}

// New wraps p as a Tree.
func New(p Provider) *Tree { return &Tree{p: p} }

// Len returns the number of key/value pairs in the tree.
func (t *Tree) Len() int { return t.p.Size() }

func bisectRight(keys [][]byte, key []byte) int {
	return sort.Search(len(keys), func(i int) bool {
		return bytes.Compare(keys[i], key) > 0
	})
}

func bisectLeft(keys [][]byte, key []byte) int {
	return sort.Search(len(keys), func(i int) bool {
		return bytes.Compare(keys[i], key) >= 0
	})
}

// Get returns the value associated with key and true, or (nil, false) if
// key is absent.
func (t *Tree) Get(key []byte) ([]byte, bool) {
	node := t.p.Root()
	for d := t.p.Depth(); d > 1; d-- {
		node = t.p.DescToNode(node.children[bisectRight(node.keys, key)])
	}

	i := bisectLeft(node.keys, key)
	if i >= len(node.keys) || !bytes.Equal(node.keys[i], key) {
		return nil, false
	}
	return node.values[i], true
}

// Set associates key with value, overwriting any previous value.
func (t *Tree) Set(key, value []byte) {
	order := t.p.Order()

	type step struct {
		keyIndex, childIndex int
		node                 *Node
	}

	node := t.p.Root()
	var path []step
	for d := t.p.Depth(); d > 1; d-- {
		i := bisectRight(node.keys, key)
		path = append(path, step{i, i + 1, node})
		node = t.p.DescToNode(node.children[i])
	}

	i := bisectLeft(node.keys, key)
	if i < len(node.keys) && bytes.Equal(node.keys[i], key) {
		node.values[i] = value
		t.p.Dirty(node)
		return
	}

	path = append(path, step{i, i, node})

	t.p.SetSize(t.p.Size() + 1)

	// promoted (key, childDesc) to insert into the parent, or the leaf
	// value for the very first (leaf) insertion step below.
	promotedKey := key
	var promotedChild Desc
	leafValue := value

	for len(path) > 0 {
		s := path[len(path)-1]
		path = path[:len(path)-1]
		node = s.node

		node.keys = insertBytes(node.keys, s.keyIndex, promotedKey)
		if node.leaf {
			node.values = insertBytes(node.values, s.childIndex, leafValue)
		} else {
			node.children = insertDesc(node.children, s.childIndex, promotedChild)
		}
		t.p.Dirty(node)

		if len(node.keys) < order {
			return
		}

		// Overflow: split in half.
		center := len(node.keys) >> 1 // for a leaf len(children)==len(keys); for internal len(children)==len(keys)+1, so center is still taken over children below
		var sibling *Node
		if node.leaf {
			splitKeys := node.keys[center:]
			splitValues := node.values[center:]
			// Cap, not just truncate: node.keys[:center] alone would keep
			// the original capacity and let a later append clobber the
			// sibling's half of the same backing array.
			node.keys = node.keys[:center:center]
			node.values = node.values[:center:center]

			sibling = t.p.NodeCreateLeaf(splitKeys, splitValues)
			siblingDesc := t.p.NodeToDesc(sibling)
			nextDesc := node.next
			node.next = siblingDesc
			sibling.prev = t.p.NodeToDesc(node)
			if nextDesc != 0 {
				next := t.p.DescToNode(nextDesc)
				next.prev = siblingDesc
				sibling.next = nextDesc
				t.p.Dirty(next)
			}

			promotedKey = sibling.keys[0]
			promotedChild = siblingDesc
		} else {
			childCenter := len(node.children) >> 1
			splitKeys := node.keys[childCenter:]
			splitChildren := node.children[childCenter:]
			node.keys = node.keys[:childCenter:childCenter]
			node.children = node.children[:childCenter:childCenter]

			sibling = t.p.NodeCreateInternal(splitKeys, splitChildren)

			// The last key of the left half is promoted (moved, not
			// copied): it no longer separates two children of this
			// node, it separates this node from its new sibling.
			promotedKey = node.keys[len(node.keys)-1]
			node.keys = node.keys[:len(node.keys)-1]
			promotedChild = t.p.NodeToDesc(sibling)
		}
		t.p.Dirty(sibling)
	}

	// The root itself split: grow the tree by one level.
	oldRoot := t.p.Root()
	t.p.SetDepth(t.p.Depth() + 1)
	newRoot := t.p.NodeCreateInternal([][]byte{promotedKey},
		[]Desc{t.p.NodeToDesc(oldRoot), promotedChild})
	t.p.SetRoot(newRoot)
}

func insertBytes(s [][]byte, i int, v []byte) [][]byte {
	s = append(s, nil)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func insertDesc(s []Desc, i int, v Desc) []Desc {
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeBytes(s [][]byte, i int) [][]byte {
	return append(s[:i], s[i+1:]...)
}

func removeDesc(s []Desc, i int) []Desc {
	return append(s[:i], s[i+1:]...)
}

// Delete removes key and returns its value and true, or (nil, false) if
// key was absent.
func (t *Tree) Delete(key []byte) ([]byte, bool) {
	halfOrder := t.p.Order() >> 1

	type step struct {
		nodeIndex int // this level's index among parent's children
		parent    *Node
	}

	node := t.p.Root()
	var path []step
	for d := t.p.Depth(); d > 1; d-- {
		i := bisectRight(node.keys, key)
		parent := node
		node = t.p.DescToNode(node.children[i])
		path = append(path, step{i, parent})
	}

	i := bisectLeft(node.keys, key)
	if i >= len(node.keys) || !bytes.Equal(node.keys[i], key) {
		return nil, false
	}
	value := node.values[i]
	t.p.SetSize(t.p.Size() - 1)

	// The leaf's own key/value is removed unconditionally, whether or not
	// it has a parent to rebalance against (a depth-1 tree's root is a
	// leaf with an empty path, and still needs this).
	node.keys = removeBytes(node.keys, i)
	node.values = removeBytes(node.values, i)
	t.p.Dirty(node)

	// Cascade borrow-or-merge up the path while node underflows and a
	// parent remains to redistribute against.
	for len(path) > 0 && len(node.keys) < halfOrder {
		s := path[len(path)-1]
		path = path[:len(path)-1]
		nodeIndex, parent := s.nodeIndex, s.parent

		// Borrow from a sibling with slack, preferring left.
		if nodeIndex > 0 {
			left := t.p.DescToNode(parent.children[nodeIndex-1])
			if len(left.keys) > halfOrder {
				if node.leaf {
					node.keys = insertBytes(node.keys, 0, left.keys[len(left.keys)-1])
					node.values = insertBytes(node.values, 0, left.values[len(left.values)-1])
					left.values = left.values[:len(left.values)-1]
				} else {
					node.keys = insertBytes(node.keys, 0, parent.keys[nodeIndex-1])
					node.children = insertDesc(node.children, 0, left.children[len(left.children)-1])
					left.children = left.children[:len(left.children)-1]
				}
				parent.keys[nodeIndex-1] = left.keys[len(left.keys)-1]
				left.keys = left.keys[:len(left.keys)-1]

				t.p.Dirty(node)
				t.p.Dirty(left)
				t.p.Dirty(parent)
				return value, true
			}
		}

		if nodeIndex < len(parent.keys) {
			right := t.p.DescToNode(parent.children[nodeIndex+1])
			if len(right.keys) > halfOrder {
				if node.leaf {
					node.keys = append(node.keys, right.keys[0])
					node.values = append(node.values, right.values[0])
					right.values = right.values[1:]
					right.keys = right.keys[1:]
					parent.keys[nodeIndex] = right.keys[0]
				} else {
					node.keys = append(node.keys, parent.keys[nodeIndex])
					node.children = append(node.children, right.children[0])
					right.children = right.children[1:]
					parent.keys[nodeIndex] = right.keys[0]
					right.keys = right.keys[1:]
				}

				t.p.Dirty(node)
				t.p.Dirty(right)
				t.p.Dirty(parent)
				return value, true
			}
		}

		// Merge: fold the node lacking slack (and its sibling, whichever
		// is on the right of the pair) into dst, release src, and drop
		// the separator key + child pointer from parent.
		var src, dst *Node
		var mergeChildIndex int
		if nodeIndex > 0 {
			left := t.p.DescToNode(parent.children[nodeIndex-1])
			src, dst, mergeChildIndex = node, left, nodeIndex
		} else {
			right := t.p.DescToNode(parent.children[nodeIndex+1])
			src, dst, mergeChildIndex = right, node, nodeIndex+1
		}

		if node.leaf {
			dst.next = src.next
			if src.next != 0 {
				srcNext := t.p.DescToNode(src.next)
				srcNext.prev = src.prev
				t.p.Dirty(srcNext)
			}
		} else {
			dst.keys = append(dst.keys, parent.keys[mergeChildIndex-1])
		}

		dst.keys = append(dst.keys, src.keys...)
		if node.leaf {
			dst.values = append(dst.values, src.values...)
		} else {
			dst.children = append(dst.children, src.children...)
		}
		t.p.Dirty(dst)

		t.p.Release(src)

		parent.keys = removeBytes(parent.keys, mergeChildIndex-1)
		parent.children = removeDesc(parent.children, mergeChildIndex)
		t.p.Dirty(parent)

		node = parent
	}

	if len(path) == 0 {
		// node is the root (the original leaf root, or an internal node
		// merges cascaded all the way up to). An internal root that lost
		// its last key is replaced by its sole remaining child.
		if !node.leaf && len(node.keys) == 0 {
			if depth := t.p.Depth(); depth > 1 {
				newRoot := t.p.DescToNode(node.children[0])
				t.p.SetRoot(newRoot)
				t.p.Release(node)
				t.p.SetDepth(depth - 1)
				return value, true
			}
		}
		t.p.Dirty(node)
	}

	return value, true
}

// Range iterates the leaf chain, yielding entries whose key satisfies the
// supplied bounds. Either bound may be nil to mean "unbounded" on that
// side; when both are set and low is not strictly less than high, Range
// produces no entries.
type Range struct {
	t        *Tree
	node     *Node
	index    int
	high     []byte
	hasHigh  bool
	inclHigh bool
	done     bool
}

// Range returns an iterator over [low, high], high bound inclusive iff
// inclusiveHigh. A nil low starts at the first key; a nil high continues
// to the last key.
func (t *Tree) Range(low, high []byte, inclusiveHigh bool) *Range {
	if low != nil && high != nil && bytes.Compare(low, high) >= 0 {
		return &Range{done: true}
	}

	node := t.p.Root()
	var index int
	if low != nil {
		for d := t.p.Depth(); d > 1; d-- {
			node = t.p.DescToNode(node.children[bisectRight(node.keys, low)])
		}
		index = bisectLeft(node.keys, low)
		if index >= len(node.keys) {
			nextDesc := node.next
			if nextDesc == 0 {
				return &Range{done: true}
			}
			node, index = t.p.DescToNode(nextDesc), 0
		}
	} else {
		for d := t.p.Depth(); d > 1; d-- {
			node = t.p.DescToNode(node.children[0])
		}
		index = 0
	}

	return &Range{
		t: t, node: node, index: index,
		high: high, hasHigh: high != nil, inclHigh: inclusiveHigh,
	}
}

// Next advances the iterator. It returns (key, value, true) or (nil, nil,
// false) once the range is exhausted.
func (r *Range) Next() ([]byte, []byte, bool) {
	if r.done || r.node == nil {
		return nil, nil, false
	}

	for r.index >= len(r.node.keys) {
		nextDesc := r.node.next
		if nextDesc == 0 {
			r.done = true
			return nil, nil, false
		}
		r.node = r.t.p.DescToNode(nextDesc)
		r.index = 0
	}

	key := r.node.keys[r.index]
	if r.hasHigh {
		cmp := bytes.Compare(key, r.high)
		if (r.inclHigh && cmp > 0) || (!r.inclHigh && cmp >= 0) {
			r.done = true
			return nil, nil, false
		}
	}

	value := r.node.values[r.index]
	r.index++
	return key, value, true
}
