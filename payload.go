// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bra

package bra

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// maxReadPrealloc bounds up-front buffer growth in ReadEntry for untrusted sizes.
const maxReadPrealloc = 64 * 1024 * 1024

// nopCloser wraps a reader and provides a no-op close.
type nopCloser struct {
	io.Reader
}

// Close closes nopCloser (no-op).
func (nopCloser) Close() error {
	return nil
}

// payloadRegion returns the stored bytes of entry after its 16-byte data header.
func payloadRegion(buf []byte, entry *FileEntry) ([]byte, error) {
	if entry.CompressedSize < dataHeaderSize {
		return nil, fmt.Errorf("%w: compressed size %d is smaller than %d-byte data header",
			ErrCorruptEntry, entry.CompressedSize, dataHeaderSize)
	}

	c := cursor{buf: buf}
	region, err := c.bytesAt(uint64(entry.Offset)+dataHeaderSize, uint64(entry.CompressedSize)-dataHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrCorruptEntry, err)
	}

	return region, nil
}

// openPayload returns a stream of final entry bytes.
// Stored payloads are served directly from buf; compressed ones are inflated.
func openPayload(buf []byte, entry *FileEntry) (io.ReadCloser, error) {
	if entry.nameErr != nil {
		return nil, entry.nameErr
	}

	region, err := payloadRegion(buf, entry)
	if err != nil {
		return nil, err
	}

	if !entry.IsCompressed() {
		return nopCloser{Reader: bytes.NewReader(region)}, nil
	}

	return &inflateReader{
		fr:        flate.NewReader(bytes.NewReader(region)),
		remaining: int64(entry.UncompressedSize),
		declared:  int64(entry.UncompressedSize),
	}, nil
}

// inflateReader decodes raw deflate and enforces the declared output size exactly.
type inflateReader struct {
	fr        io.ReadCloser
	remaining int64
	declared  int64
	done      bool
}

// Read implements io.Reader.
func (r *inflateReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}

	if r.remaining == 0 {
		if err := r.expectEnd(); err != nil {
			return 0, err
		}

		r.done = true
		return 0, io.EOF
	}

	if int64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}

	n, err := r.fr.Read(p)
	r.remaining -= int64(n)

	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF):
		if r.remaining > 0 {
			return n, fmt.Errorf("%w: stream ended after %d of %d bytes",
				ErrDecompression, r.declared-r.remaining, r.declared)
		}

		return n, nil
	default:
		return n, fmt.Errorf("%w: %w", ErrDecompression, err)
	}
}

// expectEnd verifies that the deflate stream has no output past the declared size.
func (r *inflateReader) expectEnd() error {
	var probe [1]byte
	for {
		n, err := r.fr.Read(probe[:])
		if n > 0 {
			return fmt.Errorf("%w: stream inflates past declared %d bytes", ErrDecompression, r.declared)
		}

		if err == nil {
			continue
		}

		if errors.Is(err, io.EOF) {
			return nil
		}

		return fmt.Errorf("%w: %w", ErrDecompression, err)
	}
}

// Close releases the deflate decoder.
func (r *inflateReader) Close() error {
	return r.fr.Close()
}

// readPayload returns full final bytes of entry as a new slice.
func readPayload(buf []byte, entry *FileEntry) ([]byte, error) {
	rc, err := openPayload(buf, entry)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	var out bytes.Buffer
	out.Grow(int(min(int64(entry.UncompressedSize), maxReadPrealloc)))
	if _, err := out.ReadFrom(rc); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}

// parseDataHeader reads the 16-byte per-file record at entry Offset.
func parseDataHeader(buf []byte, entry *FileEntry) (FileDataHeader, error) {
	c := cursor{buf: buf}
	off := uint64(entry.Offset)
	if err := c.check(off, dataHeaderSize); err != nil {
		return FileDataHeader{}, fmt.Errorf("%w: data header: %w", ErrCorruptEntry, err)
	}

	// Bounds are checked above, so field reads cannot fail.
	var h FileDataHeader
	h.UncompressedSize, _ = c.uint32At(off)
	h.CompressedSize, _ = c.uint32At(off + 4)
	h.Unknown1, _ = c.uint32At(off + 8)
	h.Unknown2, _ = c.uint32At(off + 12)
	return h, nil
}
