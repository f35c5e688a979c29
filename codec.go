// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pac

package pac

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	// chunkTableHeaderSize is method + chunkSize + chunkCount + uncompressedSize.
	chunkTableHeaderSize = 16
	// maxChunkSize bounds the decode buffer of one chunk.
	maxChunkSize = 64 << 20
	// slotBatchSize is how many chunk-size bytes are read per step.
	slotBatchSize = 4 * 1024
)

// Codec is per-entry chunked compression state.
//
// The on-disk table of a compressed payload embeds per-chunk stored sizes that
// are only known after compression, while its length must be fixed before any
// payload byte is written. ReserveChunks fixes that length up front; Compress
// writes the table as a placeholder and returns the real table as a Patch.
type Codec interface {
	// ChunkSize returns uncompressed size of one chunk.
	ChunkSize() int
	// ReserveChunks fixes the number of chunk-size slots written by Compress.
	ReserveChunks(n int)
	// LoadTable parses an existing table at the current position of r.
	// size is the stored payload length the table and its chunks must fit in.
	LoadTable(r io.Reader, size int64) error
	// Compress streams src into dst and returns the patch for the placeholder table.
	Compress(dst io.Writer, src io.Reader) (Patch, error)
	// Decompress reads table and chunks from src and writes decoded bytes to dst.
	Decompress(dst io.Writer, src io.Reader) (int64, error)
}

// Patch replaces bytes previously written as placeholders.
type Patch struct {
	// Data is the replacement content.
	Data []byte
	// Offset is relative to the first byte written by the producer of the patch.
	Offset int64
}

// Apply overwrites buf[Offset:Offset+len(Data)] with Data.
func (p Patch) Apply(buf []byte) error {
	if p.Offset < 0 || p.Offset > int64(len(buf)) || int64(len(p.Data)) > int64(len(buf))-p.Offset {
		return fmt.Errorf("%w: %d bytes at %d, buffer %d", ErrInvalidPatch, len(p.Data), p.Offset, len(buf))
	}

	copy(buf[p.Offset:], p.Data)
	return nil
}

// ChunkTable is the self-describing header of a compressed payload.
type ChunkTable struct {
	// ChunkSizes are stored byte lengths of every chunk in order.
	ChunkSizes []uint32
	// Method is chunk compression method.
	Method ChunkMethod
	// ChunkSize is uncompressed size of every chunk except possibly the last.
	ChunkSize uint32
	// UncompressedSize is total decoded length.
	UncompressedSize uint32
}

// Size returns encoded table length in bytes.
func (t ChunkTable) Size() int {
	return chunkTableHeaderSize + 4*len(t.ChunkSizes)
}

// StoredSize returns table length plus all stored chunk bytes.
func (t ChunkTable) StoredSize() int64 {
	total := int64(t.Size())
	for _, size := range t.ChunkSizes {
		total += int64(size)
	}

	return total
}

// chunkLen returns uncompressed length of chunk i.
func (t ChunkTable) chunkLen(i int) int {
	start := int64(i) * int64(t.ChunkSize)
	remaining := int64(t.UncompressedSize) - start
	if remaining > int64(t.ChunkSize) {
		return int(t.ChunkSize)
	}

	return int(remaining)
}

// MarshalBinary encodes the table to its on-disk form.
func (t ChunkTable) MarshalBinary() ([]byte, error) {
	buf := make([]byte, t.Size())
	binary.LittleEndian.PutUint32(buf[0:4], uint32(t.Method))
	binary.LittleEndian.PutUint32(buf[4:8], t.ChunkSize)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(t.ChunkSizes))) //nolint:gosec // bounded by reserve
	binary.LittleEndian.PutUint32(buf[12:16], t.UncompressedSize)
	for i, size := range t.ChunkSizes {
		binary.LittleEndian.PutUint32(buf[chunkTableHeaderSize+4*i:], size)
	}

	return buf, nil
}

// readChunkTable reads and validates one table from r.
// limit bounds the table plus its chunks; negative means unknown.
func readChunkTable(r io.Reader, limit int64) (ChunkTable, error) {
	var head [chunkTableHeaderSize]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return ChunkTable{}, fmt.Errorf("%w: read header: %w", ErrInvalidChunkTable, err)
	}

	t := ChunkTable{
		Method:           ChunkMethod(binary.LittleEndian.Uint32(head[0:4])),
		ChunkSize:        binary.LittleEndian.Uint32(head[4:8]),
		UncompressedSize: binary.LittleEndian.Uint32(head[12:16]),
	}
	count := binary.LittleEndian.Uint32(head[8:12])

	if err := t.Method.validate(); err != nil {
		return ChunkTable{}, err
	}

	if t.ChunkSize > maxChunkSize {
		return ChunkTable{}, fmt.Errorf("%w: chunk size %d exceeds %d", ErrInvalidChunkTable, t.ChunkSize, maxChunkSize)
	}

	if want := expectedChunkCount(t.UncompressedSize, t.ChunkSize); (t.ChunkSize == 0 && t.UncompressedSize != 0) || uint64(count) != want {
		return ChunkTable{}, fmt.Errorf(
			"%w: %d chunks of %d bytes for %d bytes",
			ErrInvalidChunkTable, count, t.ChunkSize, t.UncompressedSize,
		)
	}

	// Every chunk needs a 4-byte slot and at least one stored byte.
	if limit >= 0 && chunkTableHeaderSize+5*int64(count) > limit {
		return ChunkTable{}, fmt.Errorf(
			"%w: %d chunks do not fit in %d stored bytes",
			ErrInvalidChunkTable, count, limit,
		)
	}

	var batch [slotBatchSize]byte
	t.ChunkSizes = make([]uint32, 0, min(int(count), slotBatchSize/4))
	for remaining := int64(count) * 4; remaining > 0; {
		n := min(remaining, slotBatchSize)
		if _, err := io.ReadFull(r, batch[:n]); err != nil {
			return ChunkTable{}, fmt.Errorf("%w: read chunk sizes: %w", ErrInvalidChunkTable, err)
		}

		for off := int64(0); off < n; off += 4 {
			i := len(t.ChunkSizes)
			size := binary.LittleEndian.Uint32(batch[off:])
			if expected := t.chunkLen(i); size == 0 || int64(size) > int64(expected) {
				return ChunkTable{}, fmt.Errorf("%w: chunk %d stored size %d for %d bytes", ErrInvalidChunkTable, i, size, expected)
			}

			t.ChunkSizes = append(t.ChunkSizes, size)
		}

		remaining -= n
	}

	if limit >= 0 && t.StoredSize() > limit {
		return ChunkTable{}, fmt.Errorf(
			"%w: table describes %d bytes, payload has %d",
			ErrInvalidChunkTable, t.StoredSize(), limit,
		)
	}

	return t, nil
}

// expectedChunkCount returns ceil(size / chunkSize).
func expectedChunkCount(size uint32, chunkSize uint32) uint64 {
	if chunkSize == 0 {
		return 0
	}

	return (uint64(size) + uint64(chunkSize) - 1) / uint64(chunkSize)
}

// ChunkCodec is the default Codec: fixed-size chunks compressed independently.
type ChunkCodec struct {
	table     ChunkTable
	chunkSize int
	reserved  int
	method    ChunkMethod
	reserve   bool
}

// NewChunkCodec creates codec state for one entry.
func NewChunkCodec(method ChunkMethod, chunkSize int) *ChunkCodec {
	if chunkSize <= 0 || chunkSize > maxChunkSize {
		chunkSize = DefaultChunkSize
	}

	return &ChunkCodec{method: method, chunkSize: chunkSize}
}

// ChunkSize returns uncompressed size of one chunk.
func (c *ChunkCodec) ChunkSize() int {
	return c.chunkSize
}

// Method returns chunk compression method.
func (c *ChunkCodec) Method() ChunkMethod {
	return c.method
}

// ReservedChunks returns the number of reserved chunk-size slots.
func (c *ChunkCodec) ReservedChunks() int {
	return c.reserved
}

// ReserveChunks fixes the number of chunk-size slots written by Compress.
func (c *ChunkCodec) ReserveChunks(n int) {
	if n < 0 {
		n = 0
	}

	c.reserved = n
	c.reserve = true
}

// Table returns the last loaded chunk table.
func (c *ChunkCodec) Table() ChunkTable {
	t := c.table
	t.ChunkSizes = append([]uint32(nil), c.table.ChunkSizes...)
	return t
}

// LoadTable parses an existing table at the current position of r.
func (c *ChunkCodec) LoadTable(r io.Reader, size int64) error {
	t, err := readChunkTable(r, size)
	if err != nil {
		return err
	}

	c.table = t
	c.method = t.Method
	if t.ChunkSize != 0 {
		c.chunkSize = int(t.ChunkSize)
	}

	return nil
}

// Compress writes a placeholder table sized by ReserveChunks, then the stored
// chunks. The returned patch carries the real table for offset zero.
func (c *ChunkCodec) Compress(dst io.Writer, src io.Reader) (Patch, error) {
	if !c.reserve {
		return Patch{}, ErrChunksNotReserved
	}

	if err := c.method.validate(); err != nil {
		return Patch{}, err
	}

	placeholder, err := ChunkTable{
		Method:     c.method,
		ChunkSize:  uint32(c.chunkSize), //nolint:gosec // bounded in NewChunkCodec
		ChunkSizes: make([]uint32, c.reserved),
	}.MarshalBinary()
	if err != nil {
		return Patch{}, err
	}

	if _, err := dst.Write(placeholder); err != nil {
		return Patch{}, fmt.Errorf("write chunk table placeholder: %w", err)
	}

	sizes := make([]uint32, 0, c.reserved)
	raw := make([]byte, c.chunkSize)
	var total int64
	for {
		n, readErr := io.ReadFull(src, raw)
		if n > 0 {
			if len(sizes) == c.reserved {
				return Patch{}, fmt.Errorf("%w: more than %d chunks", ErrChunkCountMismatch, c.reserved)
			}

			total += int64(n)
			if total > math.MaxUint32 {
				return Patch{}, ErrSizeOverflow
			}

			stored, err := c.method.compressChunk(raw[:n])
			if err != nil {
				return Patch{}, err
			}

			if _, err := dst.Write(stored); err != nil {
				return Patch{}, fmt.Errorf("write chunk %d: %w", len(sizes), err)
			}

			sizes = append(sizes, uint32(len(stored))) //nolint:gosec // stored <= chunkSize
		}

		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			break
		}

		if readErr != nil {
			return Patch{}, fmt.Errorf("read chunk %d: %w", len(sizes), readErr)
		}
	}

	if len(sizes) != c.reserved {
		return Patch{}, fmt.Errorf("%w: got %d chunks, reserved %d", ErrChunkCountMismatch, len(sizes), c.reserved)
	}

	data, err := ChunkTable{
		Method:           c.method,
		ChunkSize:        uint32(c.chunkSize), //nolint:gosec // bounded in NewChunkCodec
		UncompressedSize: uint32(total),       //nolint:gosec // checked against MaxUint32 above
		ChunkSizes:       sizes,
	}.MarshalBinary()
	if err != nil {
		return Patch{}, err
	}

	return Patch{Offset: 0, Data: data}, nil
}

// sizedReader is implemented by readers that know their total length.
type sizedReader interface {
	Size() int64
}

// Decompress reads table and chunks from src and writes decoded bytes to dst.
// Codec state is not modified. A src reporting its Size bounds the table.
func (c *ChunkCodec) Decompress(dst io.Writer, src io.Reader) (int64, error) {
	limit := int64(-1)
	if sr, ok := src.(sizedReader); ok {
		limit = sr.Size()
	}

	table, err := readChunkTable(src, limit)
	if err != nil {
		return 0, err
	}

	var (
		written int64
		stored  []byte
		out     = make([]byte, 0, table.ChunkSize)
	)

	for i, size := range table.ChunkSizes {
		if cap(stored) < int(size) {
			stored = make([]byte, size)
		}
		stored = stored[:size]

		if _, err := io.ReadFull(src, stored); err != nil {
			return written, fmt.Errorf("read chunk %d: %w", i, err)
		}

		out = out[:table.chunkLen(i)]
		if err := table.Method.decompressChunk(out, stored); err != nil {
			return written, fmt.Errorf("chunk %d: %w", i, err)
		}

		n, err := dst.Write(out)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("write chunk %d: %w", i, err)
		}
	}

	return written, nil
}
