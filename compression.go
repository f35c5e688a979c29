// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pac

package pac

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/woozymasta/lzss"
	"github.com/woozymasta/pathrules"
)

// ChunkMethod identifies the block compressor used for every chunk of one entry.
type ChunkMethod uint32

// Chunk compression methods, stored in the chunk table header.
const (
	// ChunkMethodLZSS compresses chunks with LZSS.
	ChunkMethodLZSS ChunkMethod = iota
	// ChunkMethodZstd compresses chunks with zstd frames.
	ChunkMethodZstd
	// ChunkMethodLZ4 compresses chunks with raw LZ4 blocks.
	ChunkMethodLZ4
)

var (
	// zstdEncoder is shared by all zstd chunks; EncodeAll is safe for concurrent use.
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1), zstd.WithLowerEncoderMem(true))
	})
	// zstdDecoder is shared by all zstd chunks; DecodeAll is safe for concurrent use.
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	})
)

// String returns method name.
func (m ChunkMethod) String() string {
	switch m {
	case ChunkMethodLZSS:
		return "lzss"
	case ChunkMethodZstd:
		return "zstd"
	case ChunkMethodLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("method(%d)", uint32(m))
	}
}

// validate reports whether method is supported.
func (m ChunkMethod) validate() error {
	switch m {
	case ChunkMethodLZSS, ChunkMethodZstd, ChunkMethodLZ4:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownChunkMethod, uint32(m))
	}
}

// compressChunk returns stored form of one chunk.
// Raw bytes are returned when compression does not make the chunk smaller.
func (m ChunkMethod) compressChunk(raw []byte) ([]byte, error) {
	var (
		packed []byte
		err    error
	)

	switch m {
	case ChunkMethodLZSS:
		packed, err = lzss.Compress(raw, lzss.DefaultCompressOptions())
	case ChunkMethodZstd:
		enc, encErr := zstdEncoder()
		if encErr != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", encErr)
		}

		packed = enc.EncodeAll(raw, nil)
	case ChunkMethodLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, lzErr := lz4.CompressBlock(raw, dst, nil)
		packed, err = dst[:n], lzErr
	default:
		return nil, m.validate()
	}

	if err != nil {
		return nil, fmt.Errorf("%s compress chunk: %w", m, err)
	}

	// Zero-length output is how LZ4 reports incompressible input.
	if len(packed) == 0 || len(packed) >= len(raw) {
		return raw, nil
	}

	return packed, nil
}

// decompressChunk decodes one stored chunk into exactly len(out) bytes.
func (m ChunkMethod) decompressChunk(out []byte, stored []byte) error {
	if len(stored) == len(out) {
		copy(out, stored)
		return nil
	}

	var n int
	switch m {
	case ChunkMethodLZSS:
		var buf bytes.Buffer
		buf.Grow(len(out))
		if _, err := lzss.DecompressToWriter(&buf, bytes.NewReader(stored), len(out), nil); err != nil {
			return fmt.Errorf("%w: lzss: %w", ErrDecompression, err)
		}

		n = buf.Len()
		copy(out, buf.Bytes())
	case ChunkMethodZstd:
		dec, err := zstdDecoder()
		if err != nil {
			return fmt.Errorf("create zstd decoder: %w", err)
		}

		decoded, err := dec.DecodeAll(stored, out[:0])
		if err != nil {
			return fmt.Errorf("%w: zstd: %w", ErrDecompression, err)
		}

		n = len(decoded)
	case ChunkMethodLZ4:
		decoded, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return fmt.Errorf("%w: lz4: %w", ErrDecompression, err)
		}

		n = decoded
	default:
		return m.validate()
	}

	if n != len(out) {
		return fmt.Errorf("%w: %s chunk decoded to %d bytes, want %d", ErrDecompression, m, n, len(out))
	}

	return nil
}

// ruleMatcher holds compiled path rules for compression or extraction selection.
type ruleMatcher struct {
	matcher *pathrules.Matcher
}

// newRuleMatcher compiles path rules; empty rule set yields nil matcher.
// Patterns are normalized like entry names and empty ones are dropped.
func newRuleMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*ruleMatcher, error) {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		if pattern := normalizePathForMatching(rule.Pattern); pattern != "" {
			normalized = append(normalized, pathrules.Rule{Action: rule.Action, Pattern: pattern})
		}
	}

	if len(normalized) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(normalized, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidRules, err)
	}

	return &ruleMatcher{matcher: matcher}, nil
}

// Match reports whether entry name is included by the rules.
func (m *ruleMatcher) Match(name string) bool {
	if m == nil || m.matcher == nil {
		return false
	}

	candidate := NormalizePath(name)
	if candidate == "" {
		return false
	}

	return m.matcher.Included(candidate, false)
}

// shouldCompressImport reports whether an import of given name and size goes through the codec.
func shouldCompressImport(opts ImportOptions, matcher *ruleMatcher, name string, size int64) bool {
	if matcher == nil || size < opts.MinCompressSize || size > maxPACData-1 {
		return false
	}

	return matcher.Match(name)
}
