// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pac

package pac

import "bytes"

// decodeFixedString returns field content up to the first NUL byte.
func decodeFixedString(field []byte) string {
	if idx := bytes.IndexByte(field, 0); idx >= 0 {
		return string(field[:idx])
	}

	return string(field)
}

// encodeFixedString writes ASCII value into dst and zero-fills the remainder.
// A value exactly filling dst is written without terminator.
func encodeFixedString(dst []byte, value string, tooLong error) error {
	if len(value) > len(dst) {
		return tooLong
	}

	for i := 0; i < len(value); i++ {
		if value[i] >= 0x80 {
			return ErrNonASCIIName
		}
	}

	n := copy(dst, value)
	clear(dst[n:])
	return nil
}
