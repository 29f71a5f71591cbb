// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The Provider abstraction: the B+Tree algorithm in tree.go is injected with
// one of these rather than owning node storage itself, so the same
// traversal/split/merge logic runs over an in-memory tree (tests) or a
// Store-backed, cached, relocation-aware tree (store_provider.go).

package bptree

// Provider owns node storage and lifetime for a Tree. NodeCreate* marks the
// returned node dirty; Dirty marks an existing node dirty; Release drops a
// node for good (it has been merged away).
type Provider interface {
	Order() int

	Size() int
	SetSize(int)

	Depth() int
	SetDepth(int)

	Root() *Node
	SetRoot(*Node)

	NodeToDesc(*Node) Desc
	DescToNode(Desc) *Node

	NodeCreateLeaf(keys [][]byte, values [][]byte) *Node
	NodeCreateInternal(keys [][]byte, children []Desc) *Node

	Dirty(*Node)
	Release(*Node)
}

// MemProvider is a Provider that never touches a Store: every node lives in
// a plain Go map for the lifetime of the process. Used by tree_test.go and
// anywhere an ephemeral, non-persistent B+Tree is useful.
type MemProvider struct {
	order int
	size  int
	depth int
	root  *Node

	nodes   map[Desc]*Node
	nextNeg Desc
}

var _ Provider = (*MemProvider)(nil)

// NewMemProvider returns a Provider for an order-m tree with an empty root
// leaf. m must be >= 3 (order 2 can never satisfy the half-full invariant
// for both leaves and internal nodes).
func NewMemProvider(order int) *MemProvider {
	p := &MemProvider{
		order:   order,
		depth:   1,
		nodes:   map[Desc]*Node{},
		nextNeg: -1,
	}
	p.root = p.NodeCreateLeaf(nil, nil)
	return p
}

func (p *MemProvider) Order() int { return p.order }

func (p *MemProvider) Size() int     { return p.size }
func (p *MemProvider) SetSize(v int) { p.size = v }

func (p *MemProvider) Depth() int     { return p.depth }
func (p *MemProvider) SetDepth(v int) { p.depth = v }

func (p *MemProvider) Root() *Node     { return p.root }
func (p *MemProvider) SetRoot(n *Node) { p.root = n }

func (p *MemProvider) NodeToDesc(n *Node) Desc { return n.desc }

func (p *MemProvider) DescToNode(d Desc) *Node {
	if d == 0 {
		return nil
	}
	return p.nodes[d]
}

func (p *MemProvider) newDesc() Desc {
	d := p.nextNeg
	p.nextNeg--
	return d
}

func (p *MemProvider) NodeCreateLeaf(keys, values [][]byte) *Node {
	n := &Node{leaf: true, keys: keys, values: values, desc: p.newDesc()}
	p.nodes[n.desc] = n
	return n
}

func (p *MemProvider) NodeCreateInternal(keys [][]byte, children []Desc) *Node {
	n := &Node{leaf: false, keys: keys, children: children, desc: p.newDesc()}
	p.nodes[n.desc] = n
	return n
}

func (p *MemProvider) Dirty(n *Node) {} // everything already lives in p.nodes

func (p *MemProvider) Release(n *Node) {
	delete(p.nodes, n.desc)
}
