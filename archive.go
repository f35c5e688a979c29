// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pac

package pac

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Archive is the in-memory model of one PAC archive: header, ordered entries
// and the source stream carried-over payloads are read from.
//
// An Archive is not safe for concurrent mutation.
type Archive struct {
	// src is random-access source of loaded payloads; nil for archives built with New.
	src io.ReaderAt
	// file is set when Archive owns an *os.File opened via Open.
	file *os.File
	// log receives debug records.
	log *slog.Logger
	// opts are applied options.
	opts Options
	// entries are kept in descriptor order.
	entries []*Entry
	// header mirrors len(entries) in FileCount.
	header Header
	// size is source size in bytes.
	size int64
	// metadataOffset is header plus descriptor table length.
	metadataOffset int64
	// mu guards closed state and close operation.
	mu sync.Mutex
	// closed reports whether Close was already called.
	closed bool
}

// New creates an empty archive with the given tag.
func New(tag string, opts Options) *Archive {
	opts.applyDefaults()
	if tag == "" {
		tag = DefaultTag
	}

	return &Archive{
		opts:           opts,
		log:            opts.Logger,
		header:         Header{Tag: tag},
		metadataOffset: TheoreticalMetadataOffset(0),
	}
}

// TheoreticalMetadataOffset returns header plus descriptor table size for count entries.
func TheoreticalMetadataOffset(count int) int64 {
	return HeaderSize + int64(count)*DescriptorSize
}

// Header returns a copy of the archive header.
func (a *Archive) Header() Header {
	return a.header
}

// MetadataOffset returns the absolute offset where the first payload begins.
func (a *Archive) MetadataOffset() int64 {
	return a.metadataOffset
}

// Len returns number of entries.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Entries returns entries in descriptor order. The slice is a copy; entries are shared.
func (a *Archive) Entries() []*Entry {
	out := make([]*Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Infos returns descriptor snapshots with absolute offsets.
func (a *Archive) Infos() []EntryInfo {
	out := make([]EntryInfo, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Info(a.metadataOffset)
	}

	return out
}

// Offset returns absolute payload position of e in this archive.
func (a *Archive) Offset(e *Entry) int64 {
	return e.Offset(a.metadataOffset)
}

// FindByID returns the entry with the given id, or nil.
func (a *Archive) FindByID(id uint32) *Entry {
	for _, e := range a.entries {
		if e.ID == id {
			return e
		}
	}

	return nil
}

// FindByName returns the entry whose normalized name matches, case-insensitively, or nil.
func (a *Archive) FindByName(name string) *Entry {
	lookup := NormalizePath(name)
	for _, e := range a.entries {
		if strings.EqualFold(NormalizePath(e.Name), lookup) {
			return e
		}
	}

	return nil
}

// Append adds e at the end and returns its assigned id.
//
// The id is the prior entry count. Growing the descriptor table moves the
// payload boundary forward by DescriptorSize, so every absolute offset shifts
// by that amount while relative offsets stay untouched.
func (a *Archive) Append(e *Entry) (uint32, error) {
	if e == nil {
		return 0, ErrNilEntry
	}

	if uint64(len(a.entries)) >= uint64(^uint32(0)) {
		return 0, ErrSizeOverflow
	}

	previous := a.metadataOffset
	e.ID = uint32(len(a.entries)) //nolint:gosec // checked above
	a.entries = append(a.entries, e)
	a.header.FileCount++
	a.metadataOffset = TheoreticalMetadataOffset(len(a.entries))

	a.log.Debug("entry appended",
		slog.Uint64("id", uint64(e.ID)),
		slog.String("name", e.Name),
		slog.Int64("metadata_offset", a.metadataOffset),
		slog.Int64("shift", a.metadataOffset-previous),
	)

	return e.ID, nil
}

// Close closes the underlying file if archive owns one.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}

	a.closed = true
	if a.file != nil {
		return a.file.Close()
	}

	return nil
}

// source returns the payload source or an error when it is unusable.
func (a *Archive) source() (io.ReaderAt, error) {
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}

	if a.src == nil {
		return nil, ErrNilReader
	}

	return a.src, nil
}
