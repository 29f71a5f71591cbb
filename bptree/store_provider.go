// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// StoreProvider: a Provider that caches nodes in memory and persists them
// to an lldb.Store on Flush. Newly created nodes carry negative,
// never-persisted descriptors (see Desc); Flush relocates every
// dirty node to a real Store descriptor, updates every parent/sibling that
// pointed at the old one, and finally rewrites a small JSON+CRC32 state
// blob recording size/depth/order/root/codec names.

package bptree

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"hash/crc32"
	"io"

	"github.com/aslpavel/store/lldb"
)

const (
	tagInternal = 0x00
	tagLeaf     = 0x01
)

// state is the JSON blob persisted under the tree's named cell. Fields are
// declared in key order so the marshaled JSON has sorted keys.
type state struct {
	Compress  int    `json:"compress"`
	Depth     int    `json:"depth"`
	KeyType   string `json:"key_type"`
	Order     int    `json:"order"`
	Root      int64  `json:"root"`
	Size      int    `json:"size"`
	ValueType string `json:"value_type"`
}

// StoreProvider is a Store-backed Provider.
type StoreProvider struct {
	store *lldb.Store
	name  string // named cell holding the state blob

	order int
	size  int
	depth int
	root  *Node

	keyType, valueType string
	compress           int // zlib level, or -1 for no node-payload compression

	cache   map[Desc]*Node
	dirty   map[*Node]struct{}
	nextNeg Desc

	lastState []byte // last bytes written for state, to skip redundant saves
}

var _ Provider = (*StoreProvider)(nil)

// CreateStoreProvider initializes a brand-new order-m tree under name in
// store, with an empty root leaf, and the given key/value codec names
// (persisted so a later OpenStoreProvider can cross-check them).
func CreateStoreProvider(store *lldb.Store, name string, order int, keyType, valueType string, compress int) *StoreProvider {
	p := &StoreProvider{
		store:     store,
		name:      name,
		order:     order,
		depth:     1,
		keyType:   keyType,
		valueType: valueType,
		compress:  compress,
		cache:     map[Desc]*Node{},
		dirty:     map[*Node]struct{}{},
		nextNeg:   -1,
	}
	p.root = p.NodeCreateLeaf(nil, nil)
	return p
}

// OpenStoreProvider reloads a tree previously flushed under name in store.
func OpenStoreProvider(store *lldb.Store, name string) (*StoreProvider, error) {
	raw, err := store.LoadByName(name)
	if err != nil {
		return nil, err
	}
	if len(raw) < 4 {
		return nil, &lldb.ErrCorruptHeader{Name: name}
	}
	body, sum := raw[:len(raw)-4], raw[len(raw)-4:]
	if crc32.ChecksumIEEE(body) != uint32(sum[0])<<24|uint32(sum[1])<<16|uint32(sum[2])<<8|uint32(sum[3]) {
		return nil, &lldb.ErrCorruptHeader{Name: name}
	}

	var st state
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, err
	}

	p := &StoreProvider{
		store:     store,
		name:      name,
		order:     st.Order,
		size:      st.Size,
		depth:     st.Depth,
		keyType:   st.KeyType,
		valueType: st.ValueType,
		compress:  st.Compress,
		cache:     map[Desc]*Node{},
		dirty:     map[*Node]struct{}{},
		nextNeg:   -1,
		lastState: raw,
	}
	root, err := p.loadNode(Desc(st.Root))
	if err != nil {
		return nil, err
	}
	p.root = root
	return p, nil
}

func (p *StoreProvider) Order() int { return p.order }

func (p *StoreProvider) Size() int     { return p.size }
func (p *StoreProvider) SetSize(v int) { p.size = v }

func (p *StoreProvider) Depth() int     { return p.depth }
func (p *StoreProvider) SetDepth(v int) { p.depth = v }

func (p *StoreProvider) Root() *Node     { return p.root }
func (p *StoreProvider) SetRoot(n *Node) { p.root = n; p.markDirty(n) }

func (p *StoreProvider) NodeToDesc(n *Node) Desc { return n.desc }

func (p *StoreProvider) DescToNode(d Desc) *Node {
	if d == 0 {
		return nil
	}
	if n, ok := p.cache[d]; ok {
		return n
	}
	n, err := p.loadNode(d)
	if err != nil {
		// Provider has no error-returning accessor; a corrupt store is
		// unrecoverable at this call site either way.
		panic(err)
	}
	return n
}

func (p *StoreProvider) newDesc() Desc {
	d := p.nextNeg
	p.nextNeg--
	return d
}

func (p *StoreProvider) NodeCreateLeaf(keys, values [][]byte) *Node {
	n := &Node{leaf: true, keys: keys, values: values, desc: p.newDesc()}
	p.cache[n.desc] = n
	p.markDirty(n)
	return n
}

func (p *StoreProvider) NodeCreateInternal(keys [][]byte, children []Desc) *Node {
	n := &Node{leaf: false, keys: keys, children: children, desc: p.newDesc()}
	p.cache[n.desc] = n
	p.markDirty(n)
	return n
}

// markDirty marks n dirty and walks up to the root marking every ancestor
// on the path dirty too. A node that is itself untouched still holds its
// child's descriptor; if that child relocates at Flush time (its saved
// size crosses a block boundary), whichever node holds the old descriptor
// must be rewritten in the same Flush, so the whole path to the root has
// to be visited regardless of whether anything on it actually changed.
// Every ancestor of a cached node is itself already cached, since Tree's
// Get/Set/Delete descend root-to-leaf through DescToNode before reaching
// n, so findParent's cache scan is guaranteed to succeed up to the root.
func (p *StoreProvider) markDirty(n *Node) {
	for {
		if _, ok := p.dirty[n]; ok {
			return
		}
		p.dirty[n] = struct{}{}
		if n == p.root {
			return
		}
		parent := p.findParent(n)
		if parent == nil {
			return
		}
		n = parent
	}
}

// findParent returns the cached internal node whose children reference
// n's current descriptor, or nil if none is cached (n has no parent yet,
// e.g. freshly created and not yet linked in).
func (p *StoreProvider) findParent(n *Node) *Node {
	for _, c := range p.cache {
		if c.leaf {
			continue
		}
		for _, child := range c.children {
			if child == n.desc {
				return c
			}
		}
	}
	return nil
}

func (p *StoreProvider) Dirty(n *Node) { p.markDirty(n) }

func (p *StoreProvider) Release(n *Node) {
	delete(p.dirty, n)
	delete(p.cache, n.desc)
	if n.desc > 0 {
		p.store.Delete(uint64(n.desc))
	}
}

// encodeBody serializes n's body (without the persisted leaf header/tag).
func (p *StoreProvider) encodeBody(n *Node) []byte {
	var buf bytes.Buffer
	bytesListWrite(&buf, n.keys)
	if n.leaf {
		bytesListWrite(&buf, n.values)
	} else {
		descListWrite(&buf, n.children)
	}
	return buf.Bytes()
}

func (p *StoreProvider) compressPayload(b []byte) []byte {
	if p.compress < 0 {
		return b
	}
	var buf bytes.Buffer
	w, _ := zlib.NewWriterLevel(&buf, p.compress)
	w.Write(b)
	w.Close()
	return buf.Bytes()
}

func (p *StoreProvider) decompressPayload(b []byte) ([]byte, error) {
	if p.compress < 0 {
		return b, nil
	}
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// wireBytes is the full on-disk node representation: body, a leaf-only
// u64 BE prev || u64 BE next header, and a trailing type tag byte.
func (p *StoreProvider) wireBytes(n *Node) []byte {
	body := p.compressPayload(p.encodeBody(n))
	var buf bytes.Buffer
	if n.leaf {
		putUint64(&buf, uint64(n.prev))
		putUint64(&buf, uint64(n.next))
	}
	buf.Write(body)
	if n.leaf {
		buf.WriteByte(tagLeaf)
	} else {
		buf.WriteByte(tagInternal)
	}
	return buf.Bytes()
}

func (p *StoreProvider) loadNode(d Desc) (*Node, error) {
	if n, ok := p.cache[d]; ok {
		return n, nil
	}

	raw, err := p.store.Load(uint64(d))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, &lldb.ErrInvalidArgument{Name: "bptree: empty node", Value: int64(d)}
	}

	tag := raw[len(raw)-1]
	raw = raw[:len(raw)-1]

	n := &Node{desc: d}
	if tag == tagLeaf {
		n.leaf = true
		if len(raw) < 16 {
			return nil, &lldb.ErrCorruptHeader{Name: "bptree node"}
		}
		var prev, next uint64
		prev, raw = getUint64(raw)
		next, raw = getUint64(raw)
		n.prev, n.next = Desc(prev), Desc(next)
	}

	body, err := p.decompressPayload(raw)
	if err != nil {
		return nil, err
	}

	keys, rest, err := bytesListRead(body)
	if err != nil {
		return nil, err
	}
	n.keys = keys

	if n.leaf {
		values, _, err := bytesListRead(rest)
		if err != nil {
			return nil, err
		}
		n.values = values
	} else {
		children, _, err := descListRead(rest)
		if err != nil {
			return nil, err
		}
		n.children = children
	}

	p.cache[d] = n
	return n, nil
}

// Flush persists every dirty node and rewrites the state blob.
//
// Leaves are saved first, in a fixed-point loop: saving a leaf can move
// its descriptor (a grown node no longer fits its old block), which means
// the leaf's prev/next neighbors need re-saving to point at the new
// descriptor, so each relocation re-enqueues whoever referenced the old
// one. Internal nodes are then flushed depth-first starting at the root;
// a child descriptor that moved is resolved either through reloc (a leaf
// relocated in the pass above) or by reading the child's own new desc
// after it was recursively flushed.
//
// flushInternal's per-child "skip if not dirty" gate is sound only because
// markDirty already walked every touched node's full ancestor chain up to
// the root: a leaf dirtied in isolation (no split or merge, just an
// in-place value overwrite) still has every one of its ancestors marked
// dirty, so the gate never prunes a subtree that holds a stale descriptor.
func (p *StoreProvider) Flush() error {
	reloc := map[Desc]Desc{} // old desc -> new desc, for nodes already relocated this Flush

	leaves := map[*Node]struct{}{}
	for n := range p.dirty {
		if n.leaf {
			leaves[n] = struct{}{}
		}
	}

	for len(leaves) > 0 {
		var n *Node
		for k := range leaves {
			n = k
			break
		}
		delete(leaves, n)

		old := n.desc
		saveDesc := uint64(0)
		if old > 0 {
			saveDesc = uint64(old)
		}
		wire := p.wireBytes(n)
		newDesc, err := p.store.Save(wire, saveDesc)
		if err != nil {
			return err
		}
		n.desc = Desc(newDesc)
		delete(p.cache, old)
		p.cache[n.desc] = n

		if n.desc != old {
			reloc[old] = n.desc
			// A sibling referencing old by descriptor must be fixed even
			// if it was never otherwise touched this Flush, so load it
			// rather than relying on it already being cached.
			if n.prev != 0 {
				if sib, err := p.loadNode(n.prev); err == nil && sib != nil {
					sib.next = n.desc
					p.markDirty(sib)
					leaves[sib] = struct{}{}
				}
			}
			if n.next != 0 {
				if sib, err := p.loadNode(n.next); err == nil && sib != nil {
					sib.prev = n.desc
					p.markDirty(sib)
					leaves[sib] = struct{}{}
				}
			}
		}
		delete(p.dirty, n)
	}

	if err := p.flushInternal(p.root, reloc); err != nil {
		return err
	}

	return p.flushState()
}

func (p *StoreProvider) flushInternal(n *Node, reloc map[Desc]Desc) error {
	if n.leaf {
		return nil
	}

	for i, c := range n.children {
		if newDesc, ok := reloc[c]; ok {
			n.children[i] = newDesc
			p.markDirty(n)
			continue
		}
		child := p.cache[c]
		if child == nil {
			continue
		}
		if _, isDirty := p.dirty[child]; !isDirty {
			continue
		}
		if err := p.flushInternal(child, reloc); err != nil {
			return err
		}
		if child.desc != c {
			n.children[i] = child.desc
			p.markDirty(n)
		}
	}

	if _, ok := p.dirty[n]; !ok {
		return nil
	}

	old := n.desc
	saveDesc := uint64(0)
	if old > 0 {
		saveDesc = uint64(old)
	}
	newDesc, err := p.store.Save(p.wireBytes(n), saveDesc)
	if err != nil {
		return err
	}
	n.desc = Desc(newDesc)
	delete(p.cache, old)
	p.cache[n.desc] = n
	if n.desc != old {
		reloc[old] = n.desc
	}
	delete(p.dirty, n)
	return nil
}

func (p *StoreProvider) flushState() error {
	st := state{
		Size: p.size, Depth: p.depth, Order: p.order,
		Root:      int64(p.root.desc),
		KeyType:   p.keyType,
		ValueType: p.valueType,
		Compress:  p.compress,
	}
	body, err := json.Marshal(st)
	if err != nil {
		return err
	}
	sum := crc32.ChecksumIEEE(body)
	out := make([]byte, 0, len(body)+4)
	out = append(out, body...)
	out = append(out, byte(sum>>24), byte(sum>>16), byte(sum>>8), byte(sum))

	if bytes.Equal(out, p.lastState) {
		return nil
	}
	if err := p.store.SaveByName(p.name, out); err != nil {
		return err
	}
	p.lastState = out
	return nil
}

// Drop deletes every cached and stored node plus the state cell itself,
// leaving the provider unusable.
func (p *StoreProvider) Drop() {
	var drop func(n *Node)
	drop = func(n *Node) {
		if !n.leaf {
			for _, c := range n.children {
				if child, err := p.loadNode(c); err == nil {
					drop(child)
				}
			}
		}
		if n.desc > 0 {
			p.store.Delete(uint64(n.desc))
		}
	}
	drop(p.root)
	p.cache = map[Desc]*Node{}
	p.dirty = map[*Node]struct{}{}
	p.store.DeleteByName(p.name)
}

// KeyType and ValueType expose the codec names recorded in the state blob,
// for a kv-facade Open to cross-check against the codec it was asked to
// use.
func (p *StoreProvider) KeyType() string   { return p.keyType }
func (p *StoreProvider) ValueType() string { return p.valueType }
