// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pac

package pac

import (
	"fmt"
	"io"
	"sync"
)

// copyBufferSize is the temporary buffer used by streaming payload copies.
const copyBufferSize = 64 * 1024

// copyBufferPool reuses payload copy buffers between operations.
var copyBufferPool = sync.Pool{
	New: func() any {
		return new([copyBufferSize]byte)
	},
}

// acquireCopyBuffer returns reusable payload copy buffer and release callback.
func acquireCopyBuffer() ([]byte, func()) {
	arr := copyBufferPool.Get().(*[copyBufferSize]byte) //nolint:forcetypeassert // pool contains only fixed-size buffers
	return arr[:], func() {
		copyBufferPool.Put(arr)
	}
}

// copyRange copies length bytes starting at offset in src to the current position of dst.
func copyRange(dst io.Writer, src io.ReaderAt, offset int64, length int64, buf []byte) (int64, error) {
	if src == nil {
		return 0, ErrNilReader
	}

	written, err := copyExact(dst, io.NewSectionReader(src, offset, length), length, buf)
	if err != nil {
		return written, fmt.Errorf("copy %d bytes at %d: %w", length, offset, err)
	}

	return written, nil
}

// copyExact streams exactly length bytes from src to dst.
// A source ending early is io.ErrUnexpectedEOF.
func copyExact(dst io.Writer, src io.Reader, length int64, buf []byte) (int64, error) {
	if dst == nil {
		return 0, ErrNilWriter
	}
	if src == nil {
		return 0, ErrNilReader
	}
	if length < 0 {
		return 0, ErrSizeOverflow
	}
	if len(buf) == 0 {
		buf = nil
	}

	written, err := io.CopyBuffer(dst, io.LimitReader(src, length), buf)
	if err != nil {
		return written, err
	}
	if written < length {
		return written, io.ErrUnexpectedEOF
	}

	return written, nil
}
