// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kv

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aslpavel/store/lldb"
)

func TestDBMemGetSetDelete(t *testing.T) {
	db, err := CreateMem(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.Set("a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := db.Set("b", "2"); err != nil {
		t.Fatal(err)
	}

	v, ok, err := db.Get("a")
	if err != nil || !ok || string(v.([]byte)) != "1" {
		t.Fatalf("Get(a) = %v, %v, %v", v, ok, err)
	}

	ok, err = db.Delete("a")
	if err != nil || !ok {
		t.Fatalf("Delete(a) = %v, %v", ok, err)
	}
	if _, ok, _ := db.Get("a"); ok {
		t.Fatal("expected a to be gone")
	}
}

func TestDBFileDurability(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.kv")

	db, err := Create(path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2000; i++ {
		if err := db.Set(fmt.Sprintf("k%06d", i), fmt.Sprintf("v%06d", i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db2, err := Open(path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()

	n, err := db2.Len()
	if err != nil || n != 2000 {
		t.Fatalf("Len = %d, %v, want 2000", n, err)
	}
	for i := 0; i < 2000; i++ {
		v, ok, err := db2.Get(fmt.Sprintf("k%06d", i))
		want := fmt.Sprintf("v%06d", i)
		if err != nil || !ok || string(v.([]byte)) != want {
			t.Fatalf("Get(%d) = %v, %v, %v, want %q", i, v, ok, err, want)
		}
	}
}

func TestDBCreateExistingFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.kv")
	db, err := Create(path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	if _, err := Create(path, Options{}); !os.IsExist(err) {
		t.Fatalf("expected IsExist error, got %v", err)
	}
}

func TestDBNamedTrees(t *testing.T) {
	db, err := CreateMem(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.SetIn("users", "alice", "admin"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetIn("sessions", "alice", "token-1"); err != nil {
		t.Fatal(err)
	}

	v, ok, err := db.GetFrom("users", "alice")
	if err != nil || !ok || string(v.([]byte)) != "admin" {
		t.Fatalf("GetFrom(users, alice) = %v, %v, %v", v, ok, err)
	}

	if err := db.Flush(); err != nil {
		t.Fatal(err)
	}

	names := db.Trees()
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	if !found["users"] || !found["sessions"] {
		t.Fatalf("Trees() = %v, want users and sessions present", names)
	}
}

func TestDBDropTree(t *testing.T) {
	db, err := CreateMem(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	for i := 0; i < 50; i++ {
		if err := db.SetIn("scratch", fmt.Sprintf("k%d", i), "v"); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.Flush(); err != nil {
		t.Fatal(err)
	}

	if err := db.DropTree("scratch"); err != nil {
		t.Fatal(err)
	}

	for _, n := range db.Trees() {
		if n == "scratch" {
			t.Fatal("scratch still listed after DropTree")
		}
	}
}

func TestDBOpenFileModes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.kv")

	_, err := OpenFile(path, "x", Options{})
	if _, ok := err.(*lldb.ErrInvalidMode); !ok {
		t.Fatalf("OpenFile mode x = %v, want *lldb.ErrInvalidMode", err)
	}

	if _, err := OpenFile(path, "w", Options{}); !os.IsNotExist(err) {
		t.Fatalf("OpenFile mode w on missing file = %v, want IsNotExist", err)
	}

	db, err := OpenFile(path, "c", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Set("a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	ro, err := OpenFile(path, "r", Options{})
	if err != nil {
		t.Fatal(err)
	}
	v, ok, err := ro.Get("a")
	if err != nil || !ok || string(v.([]byte)) != "1" {
		t.Fatalf("Get(a) on read-only reopen = %v, %v, %v", v, ok, err)
	}
	// Set only touches the in-memory write-back cache; the mutation is never
	// persisted since a read-only DB's Close skips the flush side effect.
	if err := ro.Set("b", "2"); err != nil {
		t.Fatal(err)
	}
	if err := ro.Close(); err != nil {
		t.Fatal(err)
	}

	rw, err := OpenFile(path, "w", Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer rw.Close()
	n, err := rw.Len()
	if err != nil || n != 1 {
		t.Fatalf("Len after reopen = %d, %v, want 1 (read-only Close must skip flush)", n, err)
	}
	if _, ok, _ := rw.Get("b"); ok {
		t.Fatal("b should not have been persisted by the read-only DB's Close")
	}
}

func TestDBMustGetAndPop(t *testing.T) {
	db, err := CreateMem(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	_, err = db.MustGet("missing")
	if _, ok := err.(*lldb.ErrMissing); !ok {
		t.Fatalf("MustGet(missing) = %v, want *lldb.ErrMissing", err)
	}
	_, err = db.Pop("missing")
	if _, ok := err.(*lldb.ErrMissing); !ok {
		t.Fatalf("Pop(missing) = %v, want *lldb.ErrMissing", err)
	}

	if err := db.Set("a", "1"); err != nil {
		t.Fatal(err)
	}
	v, err := db.MustGet("a")
	if err != nil || string(v.([]byte)) != "1" {
		t.Fatalf("MustGet(a) = %v, %v", v, err)
	}
	v, err = db.Pop("a")
	if err != nil || string(v.([]byte)) != "1" {
		t.Fatalf("Pop(a) = %v, %v", v, err)
	}
	if _, ok, _ := db.Get("a"); ok {
		t.Fatal("expected a to be gone after Pop")
	}
}

func TestDBRange(t *testing.T) {
	db, err := CreateMem(Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	for i := 0; i < 50; i++ {
		if err := db.Set(fmt.Sprintf("%03d", i), fmt.Sprintf("%03d", i)); err != nil {
			t.Fatal(err)
		}
	}

	r, err := db.Range([]byte("010"), []byte("015"))
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for {
		_, _, ok, err := r.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		count++
	}
	if count != 6 {
		t.Fatalf("range count = %d, want 6", count)
	}
}
