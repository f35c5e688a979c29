// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pac

package pac

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestImportDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestFile(t, dir, "scripts/main.lua", sequenceBytes(500))
	writeTestFile(t, dir, "textures/wall.dds", sequenceBytes(4000))
	writeTestFile(t, dir, "textures/tiny.dds", []byte("tiny"))
	writeTestFile(t, dir, "readme.txt", []byte("readme"))

	a := New("DW_PACK", Options{ChunkMethod: ChunkMethodZstd})
	n, err := a.ImportDir(context.Background(), dir, ImportOptions{
		Prefix:   "data",
		Compress: includeRules("*.dds"),
	})
	if err != nil {
		t.Fatalf("ImportDir: %v", err)
	}
	if n != 4 {
		t.Fatalf("imported=%d, want 4", n)
	}

	want := []struct {
		name       string
		compressed bool
	}{
		{name: `data\readme.txt`},
		{name: `data\scripts\main.lua`},
		{name: `data\textures\tiny.dds`},
		{name: `data\textures\wall.dds`, compressed: true},
	}

	entries := a.Entries()
	for i, w := range want {
		if entries[i].Name != w.name || entries[i].Compressed != w.compressed || entries[i].ID != uint32(i) { //nolint:gosec // small test index
			t.Fatalf("entry %d=%q compressed=%v id=%d, want %q compressed=%v", i, entries[i].Name, entries[i].Compressed, entries[i].ID, w.name, w.compressed)
		}
	}

	out, res := rebuildBytes(t, a)
	if res.CompressedEntries != 1 || res.ImportedEntries != 4 {
		t.Fatalf("compressed=%d imported=%d", res.CompressedEntries, res.ImportedEntries)
	}

	b := loadBytes(t, out, Options{})
	got, err := b.ReadEntry(3)
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if !bytes.Equal(got, sequenceBytes(4000)) {
		t.Fatal("compressed import mismatch after rebuild")
	}
}

func TestImportDuplicateAndInvalid(t *testing.T) {
	t.Parallel()

	path := writeTestFile(t, t.TempDir(), "a.txt", []byte("a"))
	a := New("DW_PACK", Options{})

	if _, err := a.Import(`dir\a.txt`, path, false); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if _, err := a.Import("DIR/A.TXT", path, false); !errors.Is(err, ErrDuplicateEntryName) {
		t.Fatalf("Import duplicate err=%v, want %v", err, ErrDuplicateEntryName)
	}
	if _, err := a.Import("  ", path, false); !errors.Is(err, ErrInvalidEntryPath) {
		t.Fatalf("Import empty err=%v, want %v", err, ErrInvalidEntryPath)
	}
	if a.Len() != 1 {
		t.Fatalf("len=%d, want 1", a.Len())
	}
	if _, err := a.Append(nil); !errors.Is(err, ErrNilEntry) {
		t.Fatalf("Append(nil) err=%v, want %v", err, ErrNilEntry)
	}
}

func TestReplaceKeepsPosition(t *testing.T) {
	t.Parallel()

	a := loadBytes(t, buildPAC("DW_PACK",
		rawFixture("a.txt", []byte("aaaa")),
		rawFixture("b.txt", []byte("bbbb")),
		rawFixture("c.txt", []byte("cccc")),
	), Options{})

	replacement := sequenceBytes(2000)
	path := writeTestFile(t, t.TempDir(), "b.new", replacement)
	e, err := a.Replace(1, path, true)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if e.ID != 1 || e.Name != "b.txt" || !e.IsImported() || a.Len() != 3 {
		t.Fatalf("replaced entry=%+v len=%d", e, a.Len())
	}

	if _, err := a.Replace(7, path, false); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("Replace unknown err=%v, want %v", err, ErrEntryNotFound)
	}

	out, res := rebuildBytes(t, a)
	if res.CopiedEntries != 2 || res.CompressedEntries != 1 {
		t.Fatalf("copied=%d compressed=%d", res.CopiedEntries, res.CompressedEntries)
	}

	b := loadBytes(t, out, Options{})
	for id, want := range map[uint32][]byte{0: []byte("aaaa"), 1: replacement, 2: []byte("cccc")} {
		got, err := b.ReadEntry(id)
		if err != nil {
			t.Fatalf("ReadEntry(%d): %v", id, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("entry %d mismatch", id)
		}
	}
}
