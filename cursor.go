// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bra

package bra

import "encoding/binary"

// cursor reads little-endian fields at absolute offsets of an immutable buffer.
// Offsets are tracked by callers.
type cursor struct {
	buf []byte
}

// check returns *BoundsError when width bytes at off do not fit in buffer.
func (c cursor) check(off uint64, width uint64) error {
	size := uint64(len(c.buf))
	if off > size || width > size-off {
		return &BoundsError{Offset: off, Width: width, Size: size}
	}

	return nil
}

// uint16At reads one little-endian uint16.
func (c cursor) uint16At(off uint64) (uint16, error) {
	if err := c.check(off, 2); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint16(c.buf[off:]), nil
}

// uint32At reads one little-endian uint32.
func (c cursor) uint32At(off uint64) (uint32, error) {
	if err := c.check(off, 4); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(c.buf[off:]), nil
}

// bytesAt returns n bytes at off as a sub-slice without copying.
func (c cursor) bytesAt(off uint64, n uint64) ([]byte, error) {
	if err := c.check(off, n); err != nil {
		return nil, err
	}

	return c.buf[off : off+n : off+n], nil
}

// scanName reads ASCII bytes from off until 0x00, a byte >= 0x80,
// an invalid path character (backslash included), or end of buffer.
func (c cursor) scanName(off uint64) string {
	if off >= uint64(len(c.buf)) {
		return ""
	}

	end := off
	for end < uint64(len(c.buf)) {
		b := c.buf[end]
		if b == 0 || b >= 0x80 || b == '\\' || isInvalidNameByte(b) {
			break
		}

		end++
	}

	return string(c.buf[off:end])
}
