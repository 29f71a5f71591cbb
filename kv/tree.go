// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kv

import (
	"github.com/aslpavel/store/bptree"
	"github.com/aslpavel/store/lldb"
)

// tree pairs a bptree.Tree with the codecs that convert its native key/
// value []byte form to and from the caller's Go values.
type tree struct {
	t   *bptree.Tree
	p   *bptree.StoreProvider
	key bptree.Codec
	val bptree.Codec
}

func createTree(store *lldb.Store, name string, cfg bptree.Config) (*tree, error) {
	t, p, err := bptree.Create(store, name, cfg)
	if err != nil {
		return nil, err
	}
	return wrapTree(t, p)
}

func openTree(store *lldb.Store, name string) (*tree, error) {
	t, p, err := bptree.Open(store, name)
	if err != nil {
		return nil, err
	}
	return wrapTree(t, p)
}

func wrapTree(t *bptree.Tree, p *bptree.StoreProvider) (*tree, error) {
	keyCodec, err := bptree.ParseCodec(p.KeyType())
	if err != nil {
		return nil, err
	}
	valCodec, err := bptree.ParseCodec(p.ValueType())
	if err != nil {
		return nil, err
	}
	return &tree{t: t, p: p, key: keyCodec, val: valCodec}, nil
}

func (tr *tree) get(key interface{}) (interface{}, bool, error) {
	k, err := tr.key.Encode(key)
	if err != nil {
		return nil, false, err
	}
	v, ok := tr.t.Get(k)
	if !ok {
		return nil, false, nil
	}
	dec, err := tr.val.Decode(v)
	if err != nil {
		return nil, false, err
	}
	return dec, true, nil
}

func (tr *tree) set(key, value interface{}) error {
	k, err := tr.key.Encode(key)
	if err != nil {
		return err
	}
	v, err := tr.val.Encode(value)
	if err != nil {
		return err
	}
	tr.t.Set(k, v)
	return nil
}

func (tr *tree) delete(key interface{}) (bool, error) {
	k, err := tr.key.Encode(key)
	if err != nil {
		return false, err
	}
	_, ok := tr.t.Delete(k)
	return ok, nil
}

// mustGet is get without the no-default escape: a missing key is an error,
// not an (_, false) result. Grounded on original_source/map/bptree.py's
// ItemGet(key) called with no `value` argument, which raises KeyError.
func (tr *tree) mustGet(key interface{}) (interface{}, error) {
	v, ok, err := tr.get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &lldb.ErrMissing{Key: key}
	}
	return v, nil
}

// pop deletes key and returns its prior value, or ErrMissing if key was
// absent. Grounded on original_source/map/bptree.py's ItemPop(key) called
// with no `value` argument.
func (tr *tree) pop(key interface{}) (interface{}, error) {
	v, ok, err := tr.get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &lldb.ErrMissing{Key: key}
	}
	if _, err := tr.delete(key); err != nil {
		return nil, err
	}
	return v, nil
}

func (tr *tree) rangeQuery(low, high interface{}, inclusiveHigh bool) (*Range, error) {
	var lowB, highB []byte
	if low != nil {
		b, err := tr.key.Encode(low)
		if err != nil {
			return nil, err
		}
		lowB = b
	}
	if high != nil {
		b, err := tr.key.Encode(high)
		if err != nil {
			return nil, err
		}
		highB = b
	}
	return &Range{r: tr.t.Range(lowB, highB, inclusiveHigh), key: tr.key, val: tr.val}, nil
}

// Range iterates a kv-level range query, decoding keys/values through the
// tree's configured codecs.
type Range struct {
	r   *bptree.Range
	key bptree.Codec
	val bptree.Codec
}

// Next advances the iterator, returning (key, value, true, nil) decoded
// through the tree's codecs, (nil, nil, false, nil) once exhausted, or a
// non-nil error if decoding fails.
func (r *Range) Next() (interface{}, interface{}, bool, error) {
	k, v, ok := r.r.Next()
	if !ok {
		return nil, nil, false, nil
	}
	dk, err := r.key.Decode(k)
	if err != nil {
		return nil, nil, false, err
	}
	dv, err := r.val.Decode(v)
	if err != nil {
		return nil, nil, false, err
	}
	return dk, dv, true, nil
}
