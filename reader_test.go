// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pac

package pac

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"path/filepath"
	"slices"
	"testing"
)

func TestLoadTwoEntries(t *testing.T) {
	t.Parallel()

	first, second := sequenceBytes(10), randomBytes(20, 7)
	data := buildPAC("DW_PACK", rawFixture(`a\first.txt`, first), rawFixture(`b\second.bin`, second))
	a := loadBytes(t, data, Options{})

	if a.Header().Tag != "DW_PACK" || a.Header().FileCount != 2 || a.Len() != 2 {
		t.Fatalf("header=%+v len=%d", a.Header(), a.Len())
	}

	wantMeta := int64(HeaderSize + 2*DescriptorSize)
	if a.MetadataOffset() != wantMeta {
		t.Fatalf("MetadataOffset=%d, want %d", a.MetadataOffset(), wantMeta)
	}

	infos := a.Infos()
	if infos[0].Offset != wantMeta || infos[1].Offset != wantMeta+10 {
		t.Fatalf("offsets=%d,%d want %d,%d", infos[0].Offset, infos[1].Offset, wantMeta, wantMeta+10)
	}

	for _, e := range a.Entries() {
		if e.Origin() != a.Offset(e) {
			t.Fatalf("entry %d origin=%d, offset=%d", e.ID, e.Origin(), a.Offset(e))
		}
		if e.IsImported() || e.Codec() != nil {
			t.Fatalf("entry %d must be carried over without codec", e.ID)
		}
	}

	got, err := a.ReadEntry(1)
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if !bytes.Equal(got, second) {
		t.Fatal("ReadEntry bytes mismatch")
	}
}

func TestLoadEmpty(t *testing.T) {
	t.Parallel()

	a := loadBytes(t, buildPAC("DW_PACK"), Options{})
	if a.Len() != 0 || a.MetadataOffset() != HeaderSize {
		t.Fatalf("len=%d metadata=%d, want 0 and %d", a.Len(), a.MetadataOffset(), HeaderSize)
	}
}

func TestLoadCompressedEntryLoadsCodecTable(t *testing.T) {
	t.Parallel()

	payload := sequenceBytes(9000)
	data := buildPAC("DW_PACK",
		rawFixture("plain.txt", []byte("plain")),
		compressedFixture(t, "packed.txt", payload, ChunkMethodZstd, 4096),
	)
	a := loadBytes(t, data, Options{})

	plain, packed := a.FindByID(0), a.FindByID(1)
	if plain.Codec() != nil {
		t.Fatal("uncompressed entry must not load a chunk table")
	}

	codec, ok := packed.Codec().(*ChunkCodec)
	if !ok {
		t.Fatalf("codec type %T, want *ChunkCodec", packed.Codec())
	}
	if table := codec.Table(); table.Method != ChunkMethodZstd || len(table.ChunkSizes) != 3 || table.UncompressedSize != 9000 {
		t.Fatalf("table=%+v", table)
	}

	got, err := a.ReadEntry(1)
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("decoded payload mismatch")
	}

	rc, err := a.OpenEntry(1)
	if err != nil {
		t.Fatalf("OpenEntry: %v", err)
	}
	streamed, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read OpenEntry: %v", err)
	}
	if !bytes.Equal(streamed, payload) {
		t.Fatal("streamed payload mismatch")
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	valid := buildPAC("DW_PACK", rawFixture("a.txt", sequenceBytes(10)))
	packed := compressBytes(t, ChunkMethodLZ4, 1024, randomBytes(3000, 5))

	cases := []struct {
		name    string
		data    func() []byte
		wantErr error
	}{
		{name: "short header", data: func() []byte { return valid[:HeaderSize-1] }, wantErr: ErrInvalidHeader},
		{name: "empty stream", data: func() []byte { return nil }, wantErr: ErrInvalidHeader},
		{name: "count beyond stream", data: func() []byte {
			b := bytes.Clone(valid)
			binary.LittleEndian.PutUint32(b[12:16], 1000)
			return b
		}, wantErr: ErrInvalidHeader},
		{name: "payload beyond stream", data: func() []byte {
			return bytes.Clone(valid[:len(valid)-1])
		}, wantErr: ErrInvalidEntryOffset},
		{name: "offset beyond stream", data: func() []byte {
			b := bytes.Clone(valid)
			binary.LittleEndian.PutUint32(b[HeaderSize+descOffsetOffset:], 5)
			return b
		}, wantErr: ErrInvalidEntryOffset},
		{name: "bad chunk table", data: func() []byte {
			b := buildPAC("DW_PACK", fixtureEntry{name: "x", stored: make([]byte, 32), size: 100, compressed: true})
			binary.LittleEndian.PutUint32(b[HeaderSize+DescriptorSize:], 77)
			return b
		}, wantErr: ErrUnknownChunkMethod},
		{name: "chunk count beyond stored size", data: func() []byte {
			table := make([]byte, chunkTableHeaderSize)
			binary.LittleEndian.PutUint32(table[4:8], 1)
			binary.LittleEndian.PutUint32(table[8:12], math.MaxUint32)
			binary.LittleEndian.PutUint32(table[12:16], math.MaxUint32)
			return buildPAC("DW_PACK", fixtureEntry{name: "x", stored: table, size: math.MaxUint32, compressed: true})
		}, wantErr: ErrInvalidChunkTable},
		{name: "chunks beyond stored size", data: func() []byte {
			return buildPAC("DW_PACK", fixtureEntry{name: "x", stored: packed[:len(packed)-1], size: 3000, compressed: true})
		}, wantErr: ErrInvalidChunkTable},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			data := tc.data()
			_, err := Load(bytes.NewReader(data), int64(len(data)), Options{})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Load err=%v, want %v", err, tc.wantErr)
			}
		})
	}

	if _, err := Load(nil, 0, Options{}); !errors.Is(err, ErrNilReader) {
		t.Fatalf("Load(nil) err=%v, want %v", err, ErrNilReader)
	}
}

func TestReadsLeaveCodecTable(t *testing.T) {
	t.Parallel()

	payload := sequenceBytes(5000)
	a := loadBytes(t, buildPAC("DW_PACK", compressedFixture(t, "packed.txt", payload, ChunkMethodLZSS, 2048)), Options{})

	codec, ok := a.FindByID(0).Codec().(*ChunkCodec)
	if !ok {
		t.Fatalf("codec type %T, want *ChunkCodec", a.FindByID(0).Codec())
	}
	before := codec.Table()

	if _, err := a.ReadEntry(0); err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}

	rc, err := a.OpenEntry(0)
	if err != nil {
		t.Fatalf("OpenEntry: %v", err)
	}
	if _, err := io.Copy(io.Discard, rc); err != nil {
		t.Fatalf("read OpenEntry: %v", err)
	}
	_ = rc.Close()

	if _, err := a.Plan(context.Background()); err != nil {
		t.Fatalf("Plan: %v", err)
	}

	after := codec.Table()
	if after.Method != before.Method || after.UncompressedSize != before.UncompressedSize ||
		!slices.Equal(after.ChunkSizes, before.ChunkSizes) {
		t.Fatalf("Table=%+v, want %+v", after, before)
	}
}

func TestFindByID(t *testing.T) {
	t.Parallel()

	a := loadBytes(t, buildPAC("DW_PACK",
		rawFixture("a.txt", []byte("x")),
		rawFixture("b.txt", []byte("y")),
	), Options{})

	for _, id := range []uint32{0, 1} {
		if e := a.FindByID(id); e == nil || e.ID != id {
			t.Fatalf("FindByID(%d)=%v", id, e)
		}
	}

	if e := a.FindByID(99); e != nil {
		t.Fatalf("FindByID(99)=%v, want nil", e)
	}
}

func TestOpenAndClose(t *testing.T) {
	t.Parallel()

	path := writeTestFile(t, t.TempDir(), "data.pac", buildPAC("DW_PACK", rawFixture("a.txt", []byte("hello"))))
	a, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, err := a.ReadEntry(0); !errors.Is(err, ErrClosed) {
		t.Fatalf("ReadEntry after Close err=%v, want %v", err, ErrClosed)
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing.pac"), Options{}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFindByName(t *testing.T) {
	t.Parallel()

	a := loadBytes(t, buildPAC("DW_PACK",
		rawFixture(`Data\Scripts\Main.lua`, []byte("x")),
		rawFixture(`data\b.txt`, []byte("y")),
	), Options{})

	if e := a.FindByName("data/scripts/main.lua"); e == nil || e.ID != 0 {
		t.Fatalf("FindByName case-insensitive = %v", e)
	}
	if e := a.FindByName(`data\missing.txt`); e != nil {
		t.Fatalf("FindByName missing = %v", e)
	}
	if e := a.FindByID(9); e != nil {
		t.Fatalf("FindByID missing = %v", e)
	}
}

func TestListEntriesAndReadHeaderFile(t *testing.T) {
	t.Parallel()

	path := writeTestFile(t, t.TempDir(), "data.pac", buildPAC("DW_PACK",
		rawFixture("a.txt", []byte("aaaa")),
		rawFixture("b.txt", []byte("bb")),
	))

	header, err := ReadHeaderFile(path)
	if err != nil {
		t.Fatalf("ReadHeaderFile: %v", err)
	}
	if header.Tag != "DW_PACK" || header.FileCount != 2 {
		t.Fatalf("header=%+v", header)
	}

	entries, err := ListEntries(path)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}

	meta := int64(HeaderSize + 2*DescriptorSize)
	want := []EntryInfo{
		{ID: 0, Name: "a.txt", Offset: meta, Size: 4, CompSize: 4},
		{ID: 1, Name: "b.txt", Offset: meta + 4, Size: 2, CompSize: 2},
	}
	if len(entries) != len(want) {
		t.Fatalf("entries=%d, want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("entry %d=%+v, want %+v", i, entries[i], want[i])
		}
	}
}
