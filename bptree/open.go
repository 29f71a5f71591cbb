// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bptree

import "github.com/aslpavel/store/lldb"

// Create initializes a new, empty tree named name inside store and returns
// it wrapped as a Tree along with the underlying StoreProvider (for Flush/
// Drop access). cfg.KeyType/ValueType must name a registered Codec.
func Create(store *lldb.Store, name string, cfg Config) (*Tree, *StoreProvider, error) {
	cfg.check()
	if cfg.Order < 3 {
		return nil, nil, &lldb.ErrInvalidArgument{Name: "bptree.Create: Order", Value: int64(cfg.Order)}
	}
	if _, err := ParseCodec(cfg.KeyType); err != nil {
		return nil, nil, err
	}
	if _, err := ParseCodec(cfg.ValueType); err != nil {
		return nil, nil, err
	}

	p := CreateStoreProvider(store, name, cfg.Order, cfg.KeyType, cfg.ValueType, cfg.compressLevel())
	return New(p), p, nil
}

// Open reloads a tree previously flushed under name.
func Open(store *lldb.Store, name string) (*Tree, *StoreProvider, error) {
	p, err := OpenStoreProvider(store, name)
	if err != nil {
		return nil, nil, err
	}
	if _, err := ParseCodec(p.KeyType()); err != nil {
		return nil, nil, err
	}
	if _, err := ParseCodec(p.ValueType()); err != nil {
		return nil, nil, err
	}
	return New(p), p, nil
}
