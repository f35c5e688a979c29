// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pac

package pac

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Header is the fixed PAC preamble.
//
// On disk it is the zero-padded tag followed by three uint32 words; the entry
// count lives in the second word, the first and third are always zero.
type Header struct {
	// Tag is the ASCII archive identifier, at most 8 bytes.
	Tag string
	// FileCount is number of descriptors following the header.
	FileCount uint32
}

// EncodeTo writes the header to buf, which must be at least HeaderSize bytes.
func (h *Header) EncodeTo(buf []byte) error {
	if err := encodeFixedString(buf[:tagSize], h.Tag, ErrTagTooLong); err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(buf[8:12], 0)
	binary.LittleEndian.PutUint32(buf[12:16], h.FileCount)
	binary.LittleEndian.PutUint32(buf[16:20], 0)
	return nil
}

// DecodeFrom reads the header from buf without validation.
func (h *Header) DecodeFrom(buf []byte) {
	h.Tag = decodeFixedString(buf[:tagSize])
	h.FileCount = binary.LittleEndian.Uint32(buf[12:16])
}

// MarshalBinary encodes the header to its on-disk form.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	if err := h.EncodeTo(buf); err != nil {
		return nil, err
	}

	return buf, nil
}

// UnmarshalBinary decodes the header from its on-disk form.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidHeader, HeaderSize, len(data))
	}

	h.DecodeFrom(data)
	return nil
}

// WriteTo writes the header to w.
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	var buf [HeaderSize]byte
	if err := h.EncodeTo(buf[:]); err != nil {
		return 0, err
	}

	n, err := w.Write(buf[:])
	if err != nil {
		return int64(n), fmt.Errorf("write header: %w", err)
	}

	return int64(n), nil
}

// ReadHeader reads one header from r. A short stream is a decode failure.
func ReadHeader(r io.Reader) (Header, error) {
	var (
		h   Header
		buf [HeaderSize]byte
	)

	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return h, fmt.Errorf("%w: %w", ErrInvalidHeader, io.ErrUnexpectedEOF)
		}

		return h, fmt.Errorf("read header: %w", err)
	}

	h.DecodeFrom(buf[:])
	return h, nil
}
