// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bra

package bra

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// Session owns one loaded archive buffer with its decoded header and entry table.
// A Session is immutable after construction and safe for concurrent use.
type Session struct {
	// buf is the full archive content; never mutated.
	buf []byte
	// entries stores parsed entries in table order.
	entries []FileEntry
	// header is the decoded fixed header.
	header Header
}

// Open reads the archive at path from the OS filesystem and decodes it.
func Open(path string) (*Session, error) {
	return OpenWithOptions(path, ReaderOptions{})
}

// OpenWithOptions reads the archive at path from opts.Fs and decodes it.
func OpenWithOptions(path string, opts ReaderOptions) (*Session, error) {
	opts.applyDefaults()

	buf, err := afero.ReadFile(opts.Fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: read archive: %w", ErrIO, err)
	}

	return NewSession(buf, opts)
}

// OpenReader reads the whole archive stream and decodes it.
func OpenReader(r io.Reader, opts ReaderOptions) (*Session, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil reader", ErrIO)
	}

	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read archive: %w", ErrIO, err)
	}

	return NewSession(buf, opts)
}

// NewSession decodes header and entry table from buf.
// buf is retained and must not be modified afterwards.
func NewSession(buf []byte, opts ReaderOptions) (*Session, error) {
	header, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}

	entries, err := ParseEntries(buf, header, opts)
	if err != nil {
		return nil, err
	}

	return &Session{buf: buf, header: header, entries: entries}, nil
}

// Header returns the decoded archive header.
func (s *Session) Header() Header {
	if s == nil {
		return Header{}
	}

	return s.header
}

// Size returns archive size in bytes.
func (s *Session) Size() int64 {
	if s == nil {
		return 0
	}

	return int64(len(s.buf))
}

// Entries returns a copy of parsed entries in table order.
func (s *Session) Entries() []FileEntry {
	if s == nil {
		return nil
	}

	entries := make([]FileEntry, len(s.entries))
	copy(entries, s.entries)
	return entries
}

// Entry resolves one entry by name; both "\" and "/" separators are accepted.
func (s *Session) Entry(name string) (FileEntry, bool) {
	if s == nil {
		return FileEntry{}, false
	}

	lookupName := NormalizePath(name)
	for i := range s.entries {
		if NormalizePath(s.entries[i].Name) == lookupName {
			return s.entries[i], true
		}
	}

	return FileEntry{}, false
}

// OpenEntry opens a stream of final (decompressed) entry bytes.
// Errors are *EntryError wrapping ErrCorruptEntry or, while reading, ErrDecompression.
func (s *Session) OpenEntry(entry FileEntry) (io.ReadCloser, error) {
	if s == nil || s.buf == nil {
		return nil, ErrNilSession
	}

	rc, err := openPayload(s.buf, &entry)
	if err != nil {
		return nil, newEntryError(&entry, err)
	}

	return &entryReadCloser{ReadCloser: rc, entry: entry}, nil
}

// ReadEntry returns full final bytes of entry.
// Stored entries are copied from the archive verbatim; compressed ones are inflated to UncompressedSize.
func (s *Session) ReadEntry(entry FileEntry) ([]byte, error) {
	if s == nil || s.buf == nil {
		return nil, ErrNilSession
	}

	data, err := readPayload(s.buf, &entry)
	if err != nil {
		return nil, newEntryError(&entry, err)
	}

	return data, nil
}

// ReadEntryByName resolves entry by name and returns its final bytes.
func (s *Session) ReadEntryByName(name string) ([]byte, error) {
	entry, ok := s.Entry(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	return s.ReadEntry(entry)
}

// DataHeader returns the 16-byte per-file record that precedes entry payload.
func (s *Session) DataHeader(entry FileEntry) (FileDataHeader, error) {
	if s == nil || s.buf == nil {
		return FileDataHeader{}, ErrNilSession
	}

	h, err := parseDataHeader(s.buf, &entry)
	if err != nil {
		return FileDataHeader{}, newEntryError(&entry, err)
	}

	return h, nil
}

// entryReadCloser tags read errors with entry identity.
type entryReadCloser struct {
	io.ReadCloser
	entry FileEntry
}

// Read implements io.Reader.
func (r *entryReadCloser) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if err != nil && err != io.EOF {
		return n, newEntryError(&r.entry, err)
	}

	return n, err
}
