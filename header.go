// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bra

package bra

import (
	"encoding/binary"
	"fmt"
)

// ParseHeader decodes the fixed 16-byte header at the start of buf.
// Unknown magic is accepted; use Header.HasKnownMagic to check it.
func ParseHeader(buf []byte) (Header, error) {
	c := cursor{buf: buf}
	if err := c.check(0, headerSize); err != nil {
		return Header{}, fmt.Errorf("%w: %w", ErrCorruptHeader, err)
	}

	var h Header
	h.Magic = c.scanName(0)
	if len(h.Magic) > magicFieldWidth {
		// Tag overlaps compressionType; keep only the reserved field.
		h.Magic = h.Magic[:magicFieldWidth]
	}

	var err error
	if h.CompressionType, err = c.uint32At(4); err != nil {
		return Header{}, fmt.Errorf("%w: compression type: %w", ErrCorruptHeader, err)
	}
	if h.FileEntryOffset, err = c.uint32At(8); err != nil {
		return Header{}, fmt.Errorf("%w: file entry offset: %w", ErrCorruptHeader, err)
	}
	if h.FileCount, err = c.uint32At(12); err != nil {
		return Header{}, fmt.Errorf("%w: file count: %w", ErrCorruptHeader, err)
	}

	return h, nil
}

// AppendBinary appends the 16-byte encoded header to dst.
// Magic is null padded (or cut) to 4 bytes.
func (h Header) AppendBinary(dst []byte) ([]byte, error) {
	var magic [magicFieldWidth]byte
	copy(magic[:], h.Magic)

	dst = append(dst, magic[:]...)
	dst = binary.LittleEndian.AppendUint32(dst, h.CompressionType)
	dst = binary.LittleEndian.AppendUint32(dst, h.FileEntryOffset)
	dst = binary.LittleEndian.AppendUint32(dst, h.FileCount)
	return dst, nil
}

// MarshalBinary encodes the header to 16 bytes.
func (h Header) MarshalBinary() ([]byte, error) {
	return h.AppendBinary(make([]byte, 0, headerSize))
}
