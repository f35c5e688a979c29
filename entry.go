// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pac

package pac

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Descriptor field offsets inside one record.
const (
	descIDOffset         = 4
	descNameOffset       = 8
	descCompSizeOffset   = descNameOffset + nameFieldSize + 4
	descSizeOffset       = descCompSizeOffset + 4
	descCompressedOffset = descSizeOffset + 4
	descOffsetOffset     = descCompressedOffset + 4
)

// Entry is one packed file: its descriptor plus what a rebuild needs to find its bytes.
//
// Offsets are kept in on-disk relative form only; the absolute position is a
// function of the owning archive's metadata offset, so changing the entry
// count never requires touching entries.
type Entry struct {
	codec        Codec
	Name         string
	importSource string
	origin       int64
	Size         uint32
	CompSize     uint32
	ID           uint32
	relOffset    uint32
	Compressed   bool
}

// NewImportedEntry creates an entry whose bytes come from filePath on the next rebuild.
// Size is taken from the file on disk. When compress is set, codec gets
// ceil(size / codec.ChunkSize()) chunk slots reserved up front.
func NewImportedEntry(name string, filePath string, compress bool, codec Codec) (*Entry, error) {
	var field [nameFieldSize]byte
	if err := encodeFixedString(field[:], name, ErrNameTooLong); err != nil {
		return nil, fmt.Errorf("%w: %q", err, name)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("stat import %s: %w", filePath, err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidEntryPath, filePath)
	}

	if info.Size() >= maxPACData {
		return nil, fmt.Errorf("%w: import %s is %d bytes", ErrSizeOverflow, filePath, info.Size())
	}

	e := &Entry{
		Name:         name,
		Size:         uint32(info.Size()), //nolint:gosec // checked against maxPACData above
		importSource: filePath,
		origin:       -1,
	}

	if compress {
		if codec == nil {
			return nil, ErrNilCodec
		}

		e.Compressed = true
		e.codec = codec
		codec.ReserveChunks(chunkCount(int64(e.Size), codec.ChunkSize()))
	} else {
		e.CompSize = e.Size
	}

	return e, nil
}

// chunkCount returns ceil(size / chunkSize).
func chunkCount(size int64, chunkSize int) int {
	if chunkSize <= 0 {
		return 0
	}

	return int((size + int64(chunkSize) - 1) / int64(chunkSize))
}

// Offset returns absolute payload position for the given metadata offset.
func (e *Entry) Offset(metadataOffset int64) int64 {
	return int64(e.relOffset) + metadataOffset
}

// RelativeOffset returns payload position relative to the end of the descriptor table.
func (e *Entry) RelativeOffset() uint32 {
	return e.relOffset
}

// Origin returns absolute payload position in the archive this entry was loaded from,
// or -1 for imported entries.
func (e *Entry) Origin() int64 {
	return e.origin
}

// ImportSource returns the file supplying new bytes, or empty for carried-over entries.
func (e *Entry) ImportSource() string {
	return e.importSource
}

// IsImported reports whether the next rebuild reads this entry from an import source.
func (e *Entry) IsImported() bool {
	return e.importSource != ""
}

// Codec returns entry codec state; nil for uncompressed entries.
func (e *Entry) Codec() Codec {
	return e.codec
}

// StoredSize returns the number of payload bytes occupied in the source archive.
func (e *Entry) StoredSize() uint32 {
	if e.Compressed {
		return e.CompSize
	}

	return e.Size
}

// Info returns a descriptor snapshot with absolute offset.
func (e *Entry) Info(metadataOffset int64) EntryInfo {
	return EntryInfo{
		ID:         e.ID,
		Name:       e.Name,
		Offset:     e.Offset(metadataOffset),
		Size:       e.Size,
		CompSize:   e.CompSize,
		Compressed: e.Compressed,
	}
}

// decodeDescriptor parses one fixed-size record.
func decodeDescriptor(buf []byte) *Entry {
	return &Entry{
		ID:         binary.LittleEndian.Uint32(buf[descIDOffset:]),
		Name:       decodeFixedString(buf[descNameOffset : descNameOffset+nameFieldSize]),
		CompSize:   binary.LittleEndian.Uint32(buf[descCompSizeOffset:]),
		Size:       binary.LittleEndian.Uint32(buf[descSizeOffset:]),
		Compressed: binary.LittleEndian.Uint32(buf[descCompressedOffset:]) != 0,
		relOffset:  binary.LittleEndian.Uint32(buf[descOffsetOffset:]),
		origin:     -1,
	}
}

// encodeDescriptor writes one record to buf with the given relative offset and stored size.
func (e *Entry) encodeDescriptor(buf []byte, relOffset uint32, compSize uint32) error {
	clear(buf[:DescriptorSize])
	binary.LittleEndian.PutUint32(buf[descIDOffset:], e.ID)
	if err := encodeFixedString(buf[descNameOffset:descNameOffset+nameFieldSize], e.Name, ErrNameTooLong); err != nil {
		return fmt.Errorf("entry %d %q: %w", e.ID, e.Name, err)
	}

	var compressed uint32
	if e.Compressed {
		compressed = 1
	}

	binary.LittleEndian.PutUint32(buf[descCompSizeOffset:], compSize)
	binary.LittleEndian.PutUint32(buf[descSizeOffset:], e.Size)
	binary.LittleEndian.PutUint32(buf[descCompressedOffset:], compressed)
	binary.LittleEndian.PutUint32(buf[descOffsetOffset:], relOffset)
	return nil
}

// readDescriptor reads one record from r.
func readDescriptor(r io.Reader) (*Entry, error) {
	var buf [DescriptorSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}

	return decodeDescriptor(buf[:]), nil
}
