// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bra

package bra

import (
	"errors"
	"fmt"
	"io"
)

// ReadHeader opens an archive and decodes only its fixed header.
func ReadHeader(path string) (Header, error) {
	return ReadHeaderWithOptions(path, ReaderOptions{})
}

// ReadHeaderWithOptions decodes only the fixed header of the archive at path on opts.Fs.
func ReadHeaderWithOptions(path string, opts ReaderOptions) (Header, error) {
	opts.applyDefaults()

	f, err := opts.Fs.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("%w: open archive: %w", ErrIO, err)
	}
	defer func() { _ = f.Close() }()

	return ReadHeaderFrom(f)
}

// ReadHeaderFrom reads and decodes the fixed header from the start of r.
func ReadHeaderFrom(r io.Reader) (Header, error) {
	buf := make([]byte, headerSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Header{}, fmt.Errorf("%w: read header: %w", ErrIO, err)
	}

	return ParseHeader(buf[:n])
}

// ListEntries opens an archive and returns entry metadata without reading payloads.
func ListEntries(path string) ([]FileEntry, error) {
	return ListEntriesWithOptions(path, ReaderOptions{})
}

// ListEntriesWithOptions returns entry metadata of the archive at path using reader options.
func ListEntriesWithOptions(path string, opts ReaderOptions) ([]FileEntry, error) {
	s, err := OpenWithOptions(path, opts)
	if err != nil {
		return nil, err
	}

	return s.entries, nil
}
