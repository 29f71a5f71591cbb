// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The self-describing byte store: a persistent header, an allocator-backed
// blob space, and a named-cell directory layered over a Filer.

package lldb

import (
	"bytes"

	"github.com/cznic/zappy"
)

const headerSize = 16 // two big-endian u64 descriptors: alloc_desc, names_desc

// A Store packs allocator metadata, a name->descriptor directory, and
// arbitrary binary blobs into a flat Filer-addressed region, starting at
// BaseOffset.
//
// Compress, when true, runs Save/Load content through zappy — a pure-Go
// snappy-family codec — independent of whatever compression a consumer
// (e.g. the bptree node cache) layers on top of the payloads it hands to
// Save. Compress does not apply to the allocator's own free-list blob (the
// spec's "no compression of the allocator metadata itself" non-goal).
type Store struct {
	f          Filer // InnerFiler over outer: offset 0 here is BaseOffset there
	outer      Filer // kept only to Close past the InnerFiler's nop Close
	BaseOffset int64
	Compress   bool

	alloc     *Allocator
	allocDesc uint64
	namesDesc uint64
	names     map[string]uint64
}

// OpenStore opens (or initializes, if empty) a Store over outer starting at
// baseOffset. outer is wrapped in an InnerFiler so every address the Store
// computes afterwards is relative to baseOffset; the Store's own code never
// adds BaseOffset back in. A Filer shorter than baseOffset+16 bytes is
// treated as an empty store (both descriptors zero).
func OpenStore(outer Filer, baseOffset int64) (*Store, error) {
	f := Filer(NewInnerFiler(outer, baseOffset))
	s := &Store{
		f:          f,
		outer:      outer,
		BaseOffset: baseOffset,
		names:      map[string]uint64{},
	}

	if f.Size() < headerSize {
		s.alloc = NewAllocator()
		return s, nil
	}

	var hdr [headerSize]byte
	if _, err := f.ReadAt(hdr[:], 0); err != nil {
		return nil, err
	}
	s.allocDesc, _ = getUint64(hdr[:8])
	s.namesDesc, _ = getUint64(hdr[8:])

	if s.allocDesc != 0 {
		data, err := s.Load(s.allocDesc)
		if err != nil {
			return nil, err
		}
		s.alloc, err = AllocatorFromBytes(data)
		if err != nil {
			return nil, err
		}
	} else {
		s.alloc = NewAllocator()
	}

	if s.namesDesc != 0 {
		data, err := s.Load(s.namesDesc)
		if err != nil {
			return nil, err
		}
		names, err := decodeNames(data)
		if err != nil {
			return nil, err
		}
		s.names = names
	}

	return s, nil
}

func decodeNames(data []byte) (map[string]uint64, error) {
	nameList, rest, err := bytesListRead(data)
	if err != nil {
		return nil, err
	}
	descList, _, err := u64ListRead(rest)
	if err != nil {
		return nil, err
	}
	if len(nameList) != len(descList) {
		return nil, &ErrINVAL{"Store: names/descs length mismatch", len(nameList)}
	}
	m := make(map[string]uint64, len(nameList))
	for i, n := range nameList {
		m[string(n)] = descList[i]
	}
	return m, nil
}

func (s *Store) compress(data []byte) []byte {
	if !s.Compress || len(data) == 0 {
		return data
	}
	c, err := zappy.Encode(nil, data)
	if err != nil || len(c) >= len(data) {
		return append([]byte{0}, data...)
	}
	return append([]byte{1}, c...)
}

func (s *Store) decompress(data []byte) ([]byte, error) {
	if !s.Compress || len(data) == 0 {
		return data, nil
	}
	tag, body := data[0], data[1:]
	if tag == 0 {
		return body, nil
	}
	return zappy.Decode(nil, body)
}

// ReserveBlock reserves space for size bytes without writing anything,
// reusing desc's block in place when it is already large enough.
func (s *Store) ReserveBlock(size uint64, desc uint64) (Block, error) {
	if desc != 0 {
		block, err := BlockFromDesc(desc)
		if err != nil {
			return Block{}, err
		}
		if block.size() >= size {
			block.Used = size
			return block, nil
		}
		s.alloc.Free(block)
	}

	block, err := s.alloc.Alloc(size)
	if err != nil {
		return Block{}, err
	}
	block.Used = size
	return block, nil
}

// Reserve is the descriptor-only form of ReserveBlock.
func (s *Store) Reserve(size uint64, desc uint64) (uint64, error) {
	block, err := s.ReserveBlock(size, desc)
	if err != nil {
		return 0, err
	}
	return block.ToDesc(), nil
}

// Save reserves space for data (reusing desc's block if possible) and
// writes data into it, possibly run through the Store's content
// compressor. Empty data returns descriptor 0 without allocating.
func (s *Store) Save(data []byte, desc uint64) (uint64, error) {
	if len(data) == 0 {
		if desc != 0 {
			s.Delete(desc)
		}
		return 0, nil
	}

	wire := s.compress(data)
	block, err := s.ReserveBlock(uint64(len(wire)), desc)
	if err != nil {
		return 0, err
	}
	block.Used = uint64(len(wire))
	if _, err := s.f.WriteAt(wire, headerSize+int64(block.Offset)); err != nil {
		return 0, err
	}
	return block.ToDesc(), nil
}

// Load reads back the bytes saved under desc. Descriptor 0 loads as empty.
func (s *Store) Load(desc uint64) ([]byte, error) {
	if desc == 0 {
		return nil, nil
	}
	block, err := BlockFromDesc(desc)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, block.Used)
	if _, err := s.f.ReadAt(buf, headerSize+int64(block.Offset)); err != nil {
		return nil, err
	}
	return s.decompress(buf)
}

// Delete frees the block referenced by desc. Descriptor 0 is a no-op.
func (s *Store) Delete(desc uint64) {
	if desc == 0 {
		return
	}
	block, err := BlockFromDesc(desc)
	if err != nil {
		return
	}
	s.alloc.Free(block)
}

// SaveByName associates name with data in the named-cell directory. Saving
// empty data deletes the name (empty-value-deletes semantics).
func (s *Store) SaveByName(name string, data []byte) error {
	if len(data) == 0 {
		s.DeleteByName(name)
		return nil
	}
	desc, err := s.Save(data, s.names[name])
	if err != nil {
		return err
	}
	s.names[name] = desc
	return nil
}

// LoadByName loads the data associated with name, or nil if name is absent.
func (s *Store) LoadByName(name string) ([]byte, error) {
	desc, ok := s.names[name]
	if !ok {
		return nil, nil
	}
	return s.Load(desc)
}

// DeleteByName removes name from the directory and frees its block.
func (s *Store) DeleteByName(name string) {
	desc, ok := s.names[name]
	if !ok {
		return
	}
	delete(s.names, name)
	s.Delete(desc)
}

// Names lists every name currently registered in the directory.
func (s *Store) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	return out
}

// Size reports the number of bytes currently allocated, minus the block
// holding the allocator's own free-list blob. The names directory blob and
// every named cell count as allocated.
func (s *Store) Size() (uint64, error) {
	total := s.alloc.Size()
	if s.allocDesc != 0 {
		block, err := BlockFromDesc(s.allocDesc)
		if err != nil {
			return 0, err
		}
		total -= block.size()
	}
	return total, nil
}

// Stats exposes the allocator's bookkeeping for diagnostics/tests.
func (s *Store) Stats() AllocStats {
	return s.alloc.Stats()
}

// Flush rewrites the names directory (if any), persists the allocator's own
// free list, and writes the two-descriptor header.
//
// Persisting the allocator's free list can itself perturb the free list
// (Save may need to allocate or resize its own backing block), so the save
// is repeated until the returned descriptor stops moving — the fixed-point
// loop the original implementation relies on (see DESIGN.md).
func (s *Store) Flush() error {
	if len(s.names) > 0 {
		var buf bytes.Buffer
		names := make([][]byte, 0, len(s.names))
		descs := make([]uint64, 0, len(s.names))
		for n, d := range s.names {
			names = append(names, []byte(n))
			descs = append(descs, d)
		}
		bytesListWrite(&buf, names)
		u64ListWrite(&buf, descs)
		desc, err := s.Save(buf.Bytes(), s.namesDesc)
		if err != nil {
			return err
		}
		s.namesDesc = desc
	} else {
		s.Delete(s.namesDesc)
		s.namesDesc = 0
	}

	// Does any user content remain besides the allocator's own previous
	// state block? If not, drop the allocator entirely.
	userSize := s.alloc.Size()
	if s.allocDesc != 0 {
		block, err := BlockFromDesc(s.allocDesc)
		if err != nil {
			return err
		}
		userSize -= block.size()
	}

	if userSize > 0 {
		// The allocator's free-list blob is always written uncompressed.
		compress := s.Compress
		s.Compress = false
		for {
			prev := s.allocDesc
			desc, err := s.Save(s.alloc.ToBytes(), s.allocDesc)
			if err != nil {
				s.Compress = compress
				return err
			}
			s.allocDesc = desc
			if s.allocDesc == prev {
				break
			}
		}
		s.Compress = compress
	} else {
		s.Delete(s.allocDesc)
		s.allocDesc = 0
	}

	var hdr [headerSize]byte
	var buf bytes.Buffer
	putUint64(&buf, s.allocDesc)
	putUint64(&buf, s.namesDesc)
	copy(hdr[:], buf.Bytes())
	if _, err := s.f.WriteAt(hdr[:], 0); err != nil {
		return err
	}
	return s.f.Sync()
}

// Close flushes (unless the underlying Filer is read-only) and closes the
// backing Filer.
func (s *Store) Close(readOnly bool) error {
	if !readOnly {
		if err := s.Flush(); err != nil {
			return err
		}
	}
	return s.outer.Close()
}
