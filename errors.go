// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pac

package pac

import "errors"

// Sentinel errors for PAC operations. Use errors.Is in callers.
var (
	// ErrInvalidHeader means the PAC header is truncated or describes an impossible descriptor table.
	ErrInvalidHeader = errors.New("invalid PAC file: missing or bad header")
	// ErrInvalidDescriptor means one descriptor record could not be decoded.
	ErrInvalidDescriptor = errors.New("invalid PAC entry descriptor")
	// ErrInvalidEntryOffset means an entry payload lies outside of the source stream.
	ErrInvalidEntryOffset = errors.New("invalid entry offset")
	// ErrTagTooLong means the archive tag does not fit the 8-byte header field.
	ErrTagTooLong = errors.New("archive tag exceeds 8 bytes")
	// ErrNameTooLong means the entry name does not fit the 260-byte descriptor field.
	ErrNameTooLong = errors.New("entry name exceeds 260 bytes")
	// ErrNonASCIIName means the entry name contains bytes outside of ASCII.
	ErrNonASCIIName = errors.New("entry name is not ASCII")
	// ErrNilReader means the source reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrNilWriter means the destination writer is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrNilEntry means a nil entry was passed to an archive operation.
	ErrNilEntry = errors.New("entry is nil")
	// ErrNilCodec means a compressed entry has no codec state.
	ErrNilCodec = errors.New("compressed entry requires a codec")
	// ErrEntryNotFound means no entry has the requested id or name.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrEntryPending means the entry is staged for import and has no stored payload yet.
	ErrEntryPending = errors.New("entry is pending import and has no stored payload")
	// ErrDuplicateEntryName means an import resolves to an already present entry name.
	ErrDuplicateEntryName = errors.New("duplicate entry name")
	// ErrInvalidEntryPath means an import name is empty or invalid after normalization.
	ErrInvalidEntryPath = errors.New("invalid entry path")
	// ErrClosed means the archive source was already closed.
	ErrClosed = errors.New("archive already closed")
	// ErrSizeOverflow means a size or offset exceeds the uint32 or 4 GiB PAC limit.
	ErrSizeOverflow = errors.New("size exceeds uint32 or 4 GiB PAC limit")
	// ErrImportChanged means an import source changed size after it was staged.
	ErrImportChanged = errors.New("import source changed after staging")
	// ErrSameFile means rebuild output resolves to the archive it reads from.
	ErrSameFile = errors.New("rebuild output is the source archive")
	// ErrInvalidExtractPath means entry name is invalid for an extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrInvalidRules means one or more path rules could not be compiled.
	ErrInvalidRules = errors.New("invalid path rules")
	// ErrInvalidPatch means a codec patch does not fit the bytes it targets.
	ErrInvalidPatch = errors.New("codec patch out of range")
	// ErrChunksNotReserved means Compress was called before ReserveChunks.
	ErrChunksNotReserved = errors.New("chunk table space was not reserved")
	// ErrChunkCountMismatch means compression produced a different chunk count than reserved.
	ErrChunkCountMismatch = errors.New("chunk count differs from reserved table size")
	// ErrInvalidChunkTable means the on-disk chunk table is malformed.
	ErrInvalidChunkTable = errors.New("invalid chunk table")
	// ErrUnknownChunkMethod means the chunk table names an unsupported compression method.
	ErrUnknownChunkMethod = errors.New("unknown chunk compression method")
	// ErrDecompression means a chunk failed to decode to its expected size.
	ErrDecompression = errors.New("chunk decompression failed")
)
