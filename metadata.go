// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pac

package pac

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// ReadHeaderFile opens a PAC and returns only its header.
func ReadHeaderFile(path string) (Header, error) {
	f, _, err := openFileWithSize(path)
	if err != nil {
		return Header{}, err
	}
	defer func() { _ = f.Close() }()

	return ReadHeader(f)
}

// ListEntries opens a PAC and returns descriptors without payload reads.
func ListEntries(path string) ([]EntryInfo, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return ListEntriesFromReaderAt(f, size)
}

// ListEntriesFromReaderAt parses descriptors from a random-access source.
// Chunk tables are not read and payload bounds are not checked.
func ListEntriesFromReaderAt(ra io.ReaderAt, size int64) ([]EntryInfo, error) {
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
		return nil, fmt.Errorf("%w: %d descriptors exceed %d bytes", ErrInvalidHeader, header.FileCount, size)
	}

	out := make([]EntryInfo, 0, header.FileCount)
	for i := uint32(0); i < header.FileCount; i++ {
		e, err := readDescriptor(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}

			return nil, fmt.Errorf("%w: descriptor %d: %w", ErrInvalidDescriptor, i, err)
		}

		out = append(out, e.Info(metadataOffset))
	}

	return out, nil
}
