// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kv is a thin consumer facade over lldb.Store and bptree.Tree,
// layered the way the teacher's dbm.DB layers over lldb.Allocator: a
// handful of top-level Create/Open constructors, a big-kernel-lock guarding
// every public entry point, and lazy per-name tree construction.
package kv

import (
	"fmt"
	"os"
	"sync"

	"github.com/aslpavel/store/bptree"
	"github.com/aslpavel/store/lldb"
)

const mainTree = "main"

// DB is an open key/value store. The zero value is not usable; construct
// one with Create, Open, or CreateMem.
type DB struct {
	f     *os.File // nil for an in-memory DB
	filer lldb.Filer
	store *lldb.Store

	opts     Options
	readOnly bool

	bkl    sync.Mutex
	closed bool

	trees map[string]*tree
}

// Create creates a new DB file mode 0666 (before umask); the file must not
// already exist.
func Create(name string, opts Options) (*DB, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		return nil, err
	}
	return newDB(f, lldb.NewSimpleFileFiler(f), opts, false)
}

// Open opens an existing DB file for reading and writing.
func Open(name string, opts Options) (*DB, error) {
	f, err := os.OpenFile(name, os.O_RDWR, 0666)
	if err != nil {
		return nil, err
	}
	return newDB(f, lldb.NewSimpleFileFiler(f), opts, false)
}

// OpenFile opens name under one of spec.md §6.6's file-store modes:
//
//	r - read-only, existing file required
//	w - read/write, existing file required
//	c - read/write, created if missing
//	n - read/write, truncated and (re)created
//
// A read-only ("r") DB skips Flush's side effects at Close, matching
// original_source/store/stream.py's FileStore ("if self.mode != 'r':
// StreamStore.Flush(self)"). Any other mode is ErrInvalidMode.
func OpenFile(name string, mode string, opts Options) (*DB, error) {
	var flag int
	switch mode {
	case "r":
		flag = os.O_RDONLY
	case "w":
		flag = os.O_RDWR
	case "c":
		flag = os.O_RDWR | os.O_CREATE
	case "n":
		flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	default:
		return nil, &lldb.ErrInvalidMode{Mode: mode}
	}

	f, err := os.OpenFile(name, flag, 0666)
	if err != nil {
		return nil, err
	}
	return newDB(f, lldb.NewSimpleFileFiler(f), opts, mode == "r")
}

// CreateMem creates an in-memory DB not backed by a disk file. It is never
// automatically persisted; the caller holds the only copy.
func CreateMem(opts Options) (*DB, error) {
	return newDB(nil, lldb.NewMemFiler(), opts, false)
}

func newDB(f *os.File, filer lldb.Filer, opts Options, readOnly bool) (*DB, error) {
	opts.check()

	store, err := lldb.OpenStore(filer, 0)
	if err != nil {
		return nil, err
	}

	return &DB{
		f:        f,
		filer:    filer,
		store:    store,
		opts:     opts,
		readOnly: readOnly,
		trees:    map[string]*tree{},
	}, nil
}

// Name returns the pathname of the DB file, or "" for an in-memory DB.
func (db *DB) Name() string {
	if db.f == nil {
		return ""
	}
	return db.filer.Name()
}

func (db *DB) enter() { db.bkl.Lock() }
func (db *DB) leave() { db.bkl.Unlock() }

// tree returns the named tree, creating it (with db.opts.Tree as its
// configuration) if it does not yet exist.
func (db *DB) tree(name string) (*tree, error) {
	if t, ok := db.trees[name]; ok {
		return t, nil
	}

	found := false
	for _, n := range db.store.Names() {
		if n == name {
			found = true
			break
		}
	}

	var t *tree
	var err error
	if found {
		t, err = openTree(db.store, name)
	} else {
		t, err = createTree(db.store, name, db.opts.Tree)
	}
	if err != nil {
		return nil, err
	}
	db.trees[name] = t
	return t, nil
}

// Get returns the value at key in the default tree, or (nil, false) if
// absent.
func (db *DB) Get(key interface{}) (interface{}, bool, error) {
	return db.GetFrom(mainTree, key)
}

// Set associates key with value in the default tree.
func (db *DB) Set(key, value interface{}) error {
	return db.SetIn(mainTree, key, value)
}

// Delete removes key from the default tree.
func (db *DB) Delete(key interface{}) (bool, error) {
	return db.DeleteFrom(mainTree, key)
}

// Range iterates [low, high] (high inclusive unless Options.
// ExclusiveRangeHigh) over the default tree.
func (db *DB) Range(low, high interface{}) (*Range, error) {
	return db.RangeIn(mainTree, low, high)
}

// MustGet returns the value at key in the default tree, or ErrMissing if
// key is absent — the no-default counterpart to Get's (_, false, nil).
func (db *DB) MustGet(key interface{}) (interface{}, error) {
	return db.MustGetFrom(mainTree, key)
}

// Pop removes key from the default tree and returns its prior value, or
// ErrMissing if key was absent.
func (db *DB) Pop(key interface{}) (interface{}, error) {
	return db.PopFrom(mainTree, key)
}

// GetFrom, SetIn, DeleteFrom, and RangeIn are the named-tree counterparts
// of Get/Set/Delete/Range, operating on treeName instead of the default
// tree (lazily created on first use).
func (db *DB) GetFrom(treeName string, key interface{}) (interface{}, bool, error) {
	db.enter()
	defer db.leave()

	t, err := db.tree(treeName)
	if err != nil {
		return nil, false, err
	}
	return t.get(key)
}

func (db *DB) SetIn(treeName string, key, value interface{}) error {
	db.enter()
	defer db.leave()

	t, err := db.tree(treeName)
	if err != nil {
		return err
	}
	return t.set(key, value)
}

func (db *DB) DeleteFrom(treeName string, key interface{}) (bool, error) {
	db.enter()
	defer db.leave()

	t, err := db.tree(treeName)
	if err != nil {
		return false, err
	}
	return t.delete(key)
}

func (db *DB) RangeIn(treeName string, low, high interface{}) (*Range, error) {
	db.enter()
	defer db.leave()

	t, err := db.tree(treeName)
	if err != nil {
		return nil, err
	}
	return t.rangeQuery(low, high, !db.opts.ExclusiveRangeHigh)
}

// MustGetFrom and PopFrom are the named-tree counterparts of MustGet/Pop.
func (db *DB) MustGetFrom(treeName string, key interface{}) (interface{}, error) {
	db.enter()
	defer db.leave()

	t, err := db.tree(treeName)
	if err != nil {
		return nil, err
	}
	return t.mustGet(key)
}

func (db *DB) PopFrom(treeName string, key interface{}) (interface{}, error) {
	db.enter()
	defer db.leave()

	t, err := db.tree(treeName)
	if err != nil {
		return nil, err
	}
	return t.pop(key)
}

// Len reports the number of entries in the default tree.
func (db *DB) Len() (int, error) { return db.LenOf(mainTree) }

// LenOf reports the number of entries in treeName.
func (db *DB) LenOf(treeName string) (int, error) {
	db.enter()
	defer db.leave()

	t, err := db.tree(treeName)
	if err != nil {
		return 0, err
	}
	return t.t.Len(), nil
}

// Trees enumerates every named tree currently hosted by the DB.
func (db *DB) Trees() []string {
	db.enter()
	defer db.leave()

	var names []string
	for _, n := range db.store.Names() {
		if _, err := bptree.Open(db.store, n); err == nil {
			names = append(names, n)
		}
	}
	return names
}

// DropTree deletes every node of treeName and removes it from the
// directory. Testable Property 9: after DropTree, the store's allocated
// size returns to what it was before the tree ever existed (modulo other
// live trees).
func (db *DB) DropTree(treeName string) error {
	db.enter()
	defer db.leave()

	t, err := db.tree(treeName)
	if err != nil {
		return err
	}
	t.p.Drop()
	delete(db.trees, treeName)
	return nil
}

// Flush persists every dirty tree and the allocator's own state to the
// backing Filer.
func (db *DB) Flush() error {
	db.enter()
	defer db.leave()

	return db.flush()
}

func (db *DB) flush() error {
	for _, t := range db.trees {
		if err := t.p.Flush(); err != nil {
			return err
		}
	}
	return db.store.Flush()
}

// Close flushes (unless the DB was opened read-only via OpenFile's "r"
// mode) and closes the DB. Close is idempotent.
func (db *DB) Close() error {
	db.enter()
	defer db.leave()

	if db.closed {
		return nil
	}
	db.closed = true

	if !db.readOnly {
		if err := db.flush(); err != nil {
			return err
		}
	}
	if err := db.filer.Close(); err != nil {
		return err
	}
	return nil
}

// Stats reports the underlying Store's allocator diagnostics.
func (db *DB) Stats() lldb.AllocStats {
	db.enter()
	defer db.leave()

	return db.store.Stats()
}

func (db *DB) String() string {
	return fmt.Sprintf("kv.DB(%q)", db.Name())
}
