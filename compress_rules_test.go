// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pac

package pac

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/woozymasta/pathrules"
)

// includeRules builds include rules from raw patterns for concise test setup.
func includeRules(patterns ...string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		rules = append(rules, pathrules.Rule{
			Action:  pathrules.ActionInclude,
			Pattern: pattern,
		})
	}

	return rules
}

// fixtureEntry is one entry of a hand-built PAC fixture.
type fixtureEntry struct {
	name       string
	stored     []byte
	size       uint32
	compressed bool
}

// rawFixture returns an uncompressed fixture entry.
func rawFixture(name string, data []byte) fixtureEntry {
	return fixtureEntry{name: name, stored: data, size: uint32(len(data))}
}

// compressedFixture returns a fixture entry stored through the default chunk codec.
func compressedFixture(t *testing.T, name string, data []byte, method ChunkMethod, chunkSize int) fixtureEntry {
	t.Helper()

	return fixtureEntry{
		name:       name,
		stored:     compressBytes(t, method, chunkSize, data),
		size:       uint32(len(data)),
		compressed: true,
	}
}

// buildPAC encodes a PAC image field by field, independent of the package encoder.
func buildPAC(tag string, entries ...fixtureEntry) []byte {
	metadataOffset := HeaderSize + len(entries)*DescriptorSize
	out := make([]byte, metadataOffset)
	copy(out[0:8], tag)
	binary.LittleEndian.PutUint32(out[12:16], uint32(len(entries)))

	var rel uint32
	for i, e := range entries {
		d := out[HeaderSize+i*DescriptorSize : HeaderSize+(i+1)*DescriptorSize]
		binary.LittleEndian.PutUint32(d[4:8], uint32(i))
		copy(d[8:268], e.name)
		binary.LittleEndian.PutUint32(d[272:276], uint32(len(e.stored)))
		binary.LittleEndian.PutUint32(d[276:280], e.size)
		if e.compressed {
			binary.LittleEndian.PutUint32(d[280:284], 1)
		}
		binary.LittleEndian.PutUint32(d[284:288], rel)
		rel += uint32(len(e.stored))
	}

	for _, e := range entries {
		out = append(out, e.stored...)
	}

	return out
}

// loadBytes loads a PAC image from memory.
func loadBytes(t *testing.T, data []byte, opts Options) *Archive {
	t.Helper()

	a, err := Load(bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	return a
}

// compressBytes runs one codec pass over data and applies the returned patch.
func compressBytes(t *testing.T, method ChunkMethod, chunkSize int, data []byte) []byte {
	t.Helper()

	c := NewChunkCodec(method, chunkSize)
	c.ReserveChunks(chunkCount(int64(len(data)), c.ChunkSize()))

	var buf bytes.Buffer
	patch, err := c.Compress(&buf, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	out := buf.Bytes()
	if err := patch.Apply(out); err != nil {
		t.Fatalf("Patch.Apply: %v", err)
	}

	return out
}

// writeTestFile writes data to dir/name and returns the path.
func writeTestFile(t *testing.T, dir string, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	return path
}

// sequenceBytes returns n bytes of repeating text, easy to compress.
func sequenceBytes(n int) []byte {
	pattern := []byte("pac archive entry payload 0123456789 ")
	out := make([]byte, n)
	for i := range out {
		out[i] = pattern[i%len(pattern)]
	}

	return out
}

// randomBytes returns n deterministic pseudo-random bytes.
func randomBytes(n int, seed int64) []byte {
	out := make([]byte, n)
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic test data
	_, _ = rng.Read(out)
	return out
}

// stubCodec writes sizes[i] filler bytes per chunk and reports them in its patch.
type stubCodec struct {
	sizes     []uint32
	chunkSize int
	reserved  int
	reserveN  int
}

func (s *stubCodec) ChunkSize() int { return s.chunkSize }

func (s *stubCodec) ReserveChunks(n int) {
	s.reserved = n
	s.reserveN++
}

func (s *stubCodec) LoadTable(io.Reader, int64) error { return nil }

func (s *stubCodec) Compress(dst io.Writer, src io.Reader) (Patch, error) {
	if _, err := dst.Write(make([]byte, 4*s.reserved)); err != nil {
		return Patch{}, err
	}

	if _, err := io.Copy(io.Discard, src); err != nil {
		return Patch{}, err
	}

	table := make([]byte, 4*s.reserved)
	for i, size := range s.sizes {
		binary.LittleEndian.PutUint32(table[4*i:], size)
		if _, err := dst.Write(bytes.Repeat([]byte{0xAB}, int(size))); err != nil {
			return Patch{}, err
		}
	}

	return Patch{Offset: 0, Data: table}, nil
}

func (s *stubCodec) Decompress(io.Writer, io.Reader) (int64, error) {
	return 0, errors.New("stub codec cannot decompress")
}
