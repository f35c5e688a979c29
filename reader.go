// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pac

package pac

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// readerTableBufferSize is a sequential read buffer for descriptor table parsing.
const readerTableBufferSize = 64 * 1024

// Open opens PAC file by path and parses header, descriptors and chunk tables.
func Open(path string, opts Options) (*Archive, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}

	a, err := Load(f, size, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	a.file = f
	return a, nil
}

// Load parses PAC structure from a random-access source of known size.
//
// Descriptor offsets are relative to the end of the descriptor table; each
// entry's absolute position in src is frozen as its origin, which later
// rebuilds copy from regardless of appends.
func Load(ra io.ReaderAt, size int64, opts Options) (*Archive, error) {
	opts.applyDefaults()

	if ra == nil {
		return nil, ErrNilReader
	}

	br := bufio.NewReaderSize(io.NewSectionReader(ra, 0, size), readerTableBufferSize)
	header, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}

	metadataOffset := TheoreticalMetadataOffset(int(header.FileCount))
	if metadataOffset > size {
		return nil, fmt.Errorf(
			"%w: %d descriptors need %d bytes, stream has %d",
			ErrInvalidHeader, header.FileCount, metadataOffset, size,
		)
	}

	a := &Archive{
		src:            ra,
		size:           size,
		opts:           opts,
		log:            opts.Logger,
		header:         header,
		metadataOffset: metadataOffset,
		entries:        make([]*Entry, 0, header.FileCount),
	}

	for i := uint32(0); i < header.FileCount; i++ {
		e, err := readDescriptor(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}

			return nil, fmt.Errorf("%w: descriptor %d: %w", ErrInvalidDescriptor, i, err)
		}

		e.origin = e.Offset(metadataOffset)
		a.entries = append(a.entries, e)
	}

	if err := validateEntryOffsets(a.entries, metadataOffset, size); err != nil {
		return nil, err
	}

	if err := a.loadCodecTables(); err != nil {
		return nil, err
	}

	a.log.Debug("archive loaded",
		slog.String("tag", header.Tag),
		slog.Uint64("entries", uint64(header.FileCount)),
		slog.Int64("metadata_offset", metadataOffset),
		slog.Int64("size", size),
	)

	return a, nil
}

// validateEntryOffsets checks every stored payload lies between metadataOffset and end of stream.
func validateEntryOffsets(entries []*Entry, metadataOffset int64, totalSize int64) error {
	for _, e := range entries {
		end := e.origin + int64(e.StoredSize())
		if e.origin < metadataOffset || end > totalSize {
			return fmt.Errorf(
				"%w: entry %d %q payload [%d, %d) outside [%d, %d)",
				ErrInvalidEntryOffset, e.ID, e.Name, e.origin, end, metadataOffset, totalSize,
			)
		}
	}

	return nil
}

// loadCodecTables parses chunk tables of compressed entries in place.
// Uncompressed payloads carry no table and are skipped.
func (a *Archive) loadCodecTables() error {
	for _, e := range a.entries {
		if !e.Compressed {
			continue
		}

		codec := a.opts.NewCodec()
		sr := io.NewSectionReader(a.src, e.origin, int64(e.CompSize))
		if err := codec.LoadTable(bufio.NewReader(sr), sr.Size()); err != nil {
			return fmt.Errorf("load chunk table of entry %d %q: %w", e.ID, e.Name, err)
		}

		e.codec = codec
	}

	return nil
}

// openFileWithSize opens a file and returns a handle plus current size.
func openFileWithSize(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open PAC: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat: %w", err)
	}

	return f, fi.Size(), nil
}
