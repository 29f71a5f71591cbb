// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The storage space management: a buddy-style allocator over a flat address
// space, addressing its blocks by 64-bit packed descriptors.

package lldb

import (
	"bytes"
	"math/bits"
	"sort"
)

// maxOrder is the largest block order the allocator will ever produce:
// 64 bits of descriptor, minus 6 bits of order, minus 1 bit folded into the
// used/offset split, leaves 57 bits for offset>>order at order 0.
const maxOrder = 57

/*
A Block is a power-of-two aligned region of the flat address space,
identified by (Order, Offset). Offset is always a multiple of 1<<Order.

Descriptor

Block's packed 64-bit descriptor layout (LSB first):

	bit 0..5   order  (6 bits, 0..57)
	bit 6..63  value  (58 bits)

where value packs Used and Offset>>Order together, taking advantage of the
fact that an allocated block's content never exceeds the block's own size:

	value bit [0, order]       used - 0        (1..1<<order, order+1 bits)
	value bit [order+1, 58)    offset >> order

Descriptor 0 means "absent/empty"; it is never produced for a real block
because every real block's used is always >= 1.
*/
type Block struct {
	Order  int
	Offset uint64
	Used   uint64
}

// size returns the number of bytes covered by the block, 1<<Order.
func (b Block) size() uint64 { return uint64(1) << uint(b.Order) }

// ToDesc packs the block into its 64-bit descriptor. Because offset is
// always aligned to 1<<order, shifting the raw offset left by 7 places its
// significant bits exactly where FromDesc expects offset>>order to live,
// directly above the (order+1)-bit used field that starts at bit 6.
func (b Block) ToDesc() uint64 {
	if b.Order == 0 && b.Offset == 0 && b.Used == 0 {
		return 0
	}
	return uint64(b.Order) | (b.Used << 6) | (b.Offset << 7)
}

// BlockFromDesc decodes a packed descriptor into a Block. desc == 0 decodes
// to the zero Block; callers must special case 0 ("empty") themselves.
func BlockFromDesc(desc uint64) (Block, error) {
	if desc == 0 {
		return Block{}, nil
	}

	order := int(desc & 0x3f)
	if order > maxOrder {
		return Block{}, &ErrInvalidDescriptor{desc}
	}

	value := desc >> 6
	valueMask := (uint64(1) << uint(order+1)) - 1
	used := value & valueMask
	offset := (value &^ valueMask) >> 1

	if used == 0 || used > uint64(1)<<uint(order) {
		return Block{}, &ErrInvalidDescriptor{desc}
	}

	return Block{Order: order, Offset: offset, Used: used}, nil
}

// AllocStats summarizes the allocator's bookkeeping, the buddy-allocator
// analogue of the teacher's atom-allocator AllocStats.
type AllocStats struct {
	TotalBytes        uint64
	UsedBytes         uint64
	FreeBytes         uint64
	FreeBlocksByOrder map[int]int
}

// Allocator implements buddy-style space allocation/deallocation over a flat
// address space. It owns no storage itself; it only hands out and reclaims
// (order, offset) blocks. Persisting block content is the Store's job.
type Allocator struct {
	blocks []Block // free list, sorted by (Order, Offset); never two buddies at one order
}

// NewAllocator returns an Allocator whose free list contains exactly one
// block {maxOrder, 0} — an empty address space.
func NewAllocator() *Allocator {
	return &Allocator{blocks: []Block{{Order: maxOrder, Offset: 0, Used: 0}}}
}

func blockLess(a, b Block) bool {
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	return a.Offset < b.Offset
}

func (a *Allocator) search(order int) int {
	return sort.Search(len(a.blocks), func(i int) bool {
		return !blockLess(a.blocks[i], Block{Order: order})
	})
}

// order returns ceil(log2(size)) for size >= 1.
func order(size uint64) int {
	if size <= 1 {
		return 0
	}
	return bits.Len64(size - 1)
}

// Alloc returns a block able to hold size bytes (size >= 1), with Used set
// to size. It finds the smallest free block with Order >= the requested
// order, splitting it down as needed.
func (a *Allocator) Alloc(size uint64) (Block, error) {
	if size == 0 {
		return Block{}, &ErrINVAL{"Allocator.Alloc: size", size}
	}
	return a.AllocOrder(order(size), size)
}

// AllocOrder allocates a block of exactly the given order and sets its Used
// field to used.
func (a *Allocator) AllocOrder(ord int, used uint64) (Block, error) {
	if ord < 0 || ord > maxOrder {
		return Block{}, &ErrINVAL{"Allocator.AllocOrder: order", ord}
	}

	i := a.search(ord)
	if i >= len(a.blocks) {
		return Block{}, &ErrOutOfSpace{ord}
	}

	block := a.blocks[i]
	a.blocks = append(a.blocks[:i], a.blocks[i+1:]...)

	for bo := ord; bo < block.Order; bo++ {
		a.insert(Block{Order: bo, Offset: block.Offset + (uint64(1) << uint(bo))})
	}

	return Block{Order: ord, Offset: block.Offset, Used: used}, nil
}

func (a *Allocator) insert(b Block) {
	i := a.search(b.Order)
	for i < len(a.blocks) && a.blocks[i].Order == b.Order && a.blocks[i].Offset < b.Offset {
		i++
	}
	a.blocks = append(a.blocks, Block{})
	copy(a.blocks[i+1:], a.blocks[i:])
	a.blocks[i] = b
}

// Free deallocates block, eagerly coalescing with its buddy at every order
// up to maxOrder.
func (a *Allocator) Free(block Block) {
	for ord := block.Order; ord < maxOrder; ord++ {
		buddyOffset := block.Offset ^ (uint64(1) << uint(ord))
		i := a.search(ord)
		for i < len(a.blocks) && a.blocks[i].Order == ord && a.blocks[i].Offset < buddyOffset {
			i++
		}
		if i < len(a.blocks) && a.blocks[i].Order == ord && a.blocks[i].Offset == buddyOffset {
			buddy := a.blocks[i]
			a.blocks = append(a.blocks[:i], a.blocks[i+1:]...)
			offset := block.Offset
			if offset > buddy.Offset {
				offset = buddy.Offset
			}
			block = Block{Order: ord + 1, Offset: offset}
			continue
		}
		a.insert(Block{Order: ord, Offset: block.Offset})
		return
	}
	a.blocks = []Block{{Order: maxOrder, Offset: 0}}
}

// Size returns the number of bytes currently allocated (not free).
func (a *Allocator) Size() uint64 {
	total := uint64(1) << uint(maxOrder)
	for _, b := range a.blocks {
		total -= b.size()
	}
	return total
}

// Stats reports allocator bookkeeping for tests and diagnostics.
func (a *Allocator) Stats() AllocStats {
	s := AllocStats{
		TotalBytes:        uint64(1) << uint(maxOrder),
		FreeBlocksByOrder: map[int]int{},
	}
	for _, b := range a.blocks {
		s.FreeBytes += b.size()
		s.FreeBlocksByOrder[b.Order]++
	}
	s.UsedBytes = s.TotalBytes - s.FreeBytes
	return s
}

// Verify checks invariants 1 and 2 of the allocator's testable properties:
// every free block is aligned and no two free blocks are buddies. It is
// intended for tests, not for production call sites.
func (a *Allocator) Verify() error {
	for i, b := range a.blocks {
		if b.Offset%b.size() != 0 {
			return &ErrINVAL{"Allocator.Verify: misaligned block", b}
		}
		if i > 0 && !blockLess(a.blocks[i-1], b) {
			return &ErrINVAL{"Allocator.Verify: unsorted free list", b}
		}
		if b.Order < maxOrder {
			buddyOffset := b.Offset ^ (uint64(1) << uint(b.Order))
			for _, o := range a.blocks {
				if o.Order == b.Order && o.Offset == buddyOffset {
					return &ErrINVAL{"Allocator.Verify: uncoalesced buddies", b}
				}
			}
		}
	}
	return nil
}

// ToBytes serializes the free list as a length-prefixed list of packed
// descriptors (used=0 for every entry).
func (a *Allocator) ToBytes() []byte {
	var buf bytes.Buffer
	descs := make([]uint64, len(a.blocks))
	for i, b := range a.blocks {
		// Used must be non-zero for ToDesc to round-trip through
		// BlockFromDesc (desc 0 means "empty"); free blocks are
		// persisted with Used pinned to the minimum legal value and
		// restored with Used reset to 0, since a free block carries
		// no content.
		descs[i] = Block{Order: b.Order, Offset: b.Offset, Used: 1}.ToDesc()
	}
	u64ListWrite(&buf, descs)
	return buf.Bytes()
}

// AllocatorFromBytes restores an Allocator previously serialized by
// ToBytes. The free list is re-sorted defensively in case it wasn't stored
// sorted.
func AllocatorFromBytes(b []byte) (*Allocator, error) {
	descs, _, err := u64ListRead(b)
	if err != nil {
		return nil, err
	}

	blocks := make([]Block, 0, len(descs))
	for _, d := range descs {
		blk, err := BlockFromDesc(d)
		if err != nil {
			return nil, err
		}
		blk.Used = 0
		blocks = append(blocks, blk)
	}
	sort.Slice(blocks, func(i, j int) bool { return blockLess(blocks[i], blocks[j]) })
	return &Allocator{blocks: blocks}, nil
}
