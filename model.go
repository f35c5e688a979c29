// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pac

package pac

import (
	"log/slog"
	"time"

	"github.com/woozymasta/pathrules"
)

// Binary layout and format limits.
const (
	// HeaderSize is the fixed PAC header size: tag + three uint32 words.
	HeaderSize = tagSize + 3*4
	// DescriptorSize is the fixed size of one entry descriptor record.
	DescriptorSize = 4 + 4 + nameFieldSize + 4 + 4 + 4 + 4 + 4

	tagSize       = 8       // archive tag field
	nameFieldSize = 260     // entry name field
	maxPACData    = 1 << 32 // max addressable payload (4 GiB)
)

// Default tuning values.
const (
	// DefaultTag is the tag written by archives created from scratch.
	DefaultTag = "DW_PACK"
	// DefaultChunkSize is the uncompressed size of one codec chunk.
	DefaultChunkSize = 16 * 1024
	// DefaultChunkMethod is the chunk compression method for new codecs.
	DefaultChunkMethod = ChunkMethodLZSS
	// DefaultWriteBuffer is the buffered writer size used by Rebuild.
	DefaultWriteBuffer = 4 * 1024 * 1024
	// DefaultMinCompressSize disables compression for smaller imports.
	DefaultMinCompressSize = 64
)

// EntryInfo is an immutable snapshot of one entry descriptor.
type EntryInfo struct {
	// Name is the entry path as stored in the descriptor, usually with "\" separators.
	Name string `json:"name" yaml:"name"`
	// Offset is absolute payload position in the archive stream.
	Offset int64 `json:"offset" yaml:"offset"`
	// ID is the descriptor id.
	ID uint32 `json:"id" yaml:"id"`
	// Size is uncompressed byte length.
	Size uint32 `json:"size" yaml:"size"`
	// CompSize is stored byte length.
	CompSize uint32 `json:"comp_size" yaml:"comp_size"`
	// Compressed reports whether payload is stored through the chunk codec.
	Compressed bool `json:"compressed,omitempty" yaml:"compressed,omitempty"`
}

// StoredSize returns the number of payload bytes the entry occupies on disk.
func (e EntryInfo) StoredSize() uint32 {
	if e.Compressed {
		return e.CompSize
	}

	return e.Size
}

// Options configures archive load and rebuild behavior.
type Options struct {
	// Logger receives debug records; nil discards them.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// NewCodec creates codec state for compressed entries; nil uses NewChunkCodec with ChunkMethod.
	NewCodec func() Codec `json:"-" yaml:"-"`
	// ChunkMethod selects compression for codecs created by the default NewCodec.
	ChunkMethod ChunkMethod `json:"chunk_method,omitempty" yaml:"chunk_method,omitempty"`
	// ChunkSize is uncompressed chunk size for codecs created by the default NewCodec.
	ChunkSize int `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty"`
	// WriterBufferSize is buffered writer size in bytes used by Rebuild.
	WriterBufferSize int `json:"writer_buffer_size,omitempty" yaml:"writer_buffer_size,omitempty"`
}

// ImportOptions configures directory import.
type ImportOptions struct {
	// Prefix is prepended to every imported entry name.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// Compress defines ordered path rules selecting entries stored through the codec.
	Compress []pathrules.Rule `json:"compress,omitempty" yaml:"compress,omitempty"`
	// CompressMatcherOptions control compression path rule matching.
	CompressMatcherOptions pathrules.MatcherOptions `json:"compress_matcher_options,omitzero" yaml:"compress_matcher_options,omitzero"`
	// MinCompressSize disables compression for files smaller than this size.
	MinCompressSize int64 `json:"min_compress_size,omitempty" yaml:"min_compress_size,omitempty"`
}

// ExtractOptions configures ExtractAll behavior.
type ExtractOptions struct {
	// OnEntryDone is called after one entry is fully written to disk.
	OnEntryDone func(entry EntryInfo, written int64, outputPath string) `json:"-" yaml:"-"`
	// Include defines ordered path rules selecting extracted entries; empty means all.
	Include []pathrules.Rule `json:"include,omitempty" yaml:"include,omitempty"`
	// IncludeMatcherOptions control include path rule matching.
	IncludeMatcherOptions pathrules.MatcherOptions `json:"include_matcher_options,omitzero" yaml:"include_matcher_options,omitzero"`
	// Raw writes stored bytes verbatim instead of decompressing.
	Raw bool `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// RebuildResult contains rebuild output statistics.
type RebuildResult struct {
	// Entries are descriptors as written, with offsets absolute in the output.
	Entries []EntryInfo `json:"entries" yaml:"entries"`
	// MetadataOffset is header plus descriptor table size of the output.
	MetadataOffset int64 `json:"metadata_offset" yaml:"metadata_offset"`
	// Size is total output size in bytes.
	Size int64 `json:"size" yaml:"size"`
	// CopiedEntries is number of payloads carried over from the source archive.
	CopiedEntries int `json:"copied_entries,omitempty" yaml:"copied_entries,omitempty"`
	// ImportedEntries is number of payloads read from import sources.
	ImportedEntries int `json:"imported_entries,omitempty" yaml:"imported_entries,omitempty"`
	// CompressedEntries is number of imports written through the codec.
	CompressedEntries int `json:"compressed_entries,omitempty" yaml:"compressed_entries,omitempty"`
	// Duration is end-to-end rebuild duration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// applyDefaults fills zero-valued archive options with defaults.
func (opts *Options) applyDefaults() {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}

	if opts.WriterBufferSize < 4096 {
		opts.WriterBufferSize = DefaultWriteBuffer
	}

	if opts.NewCodec == nil {
		method, chunkSize := opts.ChunkMethod, opts.ChunkSize
		opts.NewCodec = func() Codec {
			return NewChunkCodec(method, chunkSize)
		}
	}
}

// applyDefaults fills zero-valued import options with defaults.
func (opts *ImportOptions) applyDefaults() {
	if opts.MinCompressSize <= 0 {
		opts.MinCompressSize = DefaultMinCompressSize
	}

	if opts.CompressMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.CompressMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.CompressMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.CompressMatcherOptions.DefaultAction = pathrules.ActionExclude
	}
}

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	if opts.IncludeMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.IncludeMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.IncludeMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.IncludeMatcherOptions.DefaultAction = pathrules.ActionExclude
	}
}
