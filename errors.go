// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bra

package bra

import (
	"errors"
	"fmt"
)

// Sentinel errors for BRA operations. Use errors.Is in callers.
var (
	// ErrIO means the archive could not be read or output could not be written.
	ErrIO = errors.New("archive i/o failure")
	// ErrCorruptHeader means the fixed 16-byte archive header is unreadable.
	ErrCorruptHeader = errors.New("corrupt BRA header")
	// ErrCorruptTable means the file entry table runs out of archive bounds.
	ErrCorruptTable = errors.New("corrupt BRA file entry table")
	// ErrCorruptEntry means one entry has out-of-bounds offsets, bad sizes, or an unusable name.
	ErrCorruptEntry = errors.New("corrupt BRA entry")
	// ErrDecompression means deflate payload is malformed or does not inflate to the declared size.
	ErrDecompression = errors.New("entry decompression failed")
	// ErrOutOfBounds means a field read goes past the end of the archive buffer.
	ErrOutOfBounds = errors.New("read out of bounds")
	// ErrInvalidExtractPath means entry name is unsafe as an extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrInvalidFilterRule means one or more entry selection rules are invalid.
	ErrInvalidFilterRule = errors.New("invalid filter rules")
	// ErrEntryNotFound means no entry has the requested name.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrNilSession means the session is nil or was never loaded.
	ErrNilSession = errors.New("session is nil")
)

// BoundsError describes a read of Width bytes at Offset from a buffer of Size bytes.
type BoundsError struct {
	Offset uint64
	Width  uint64
	Size   uint64
}

// Error implements error.
func (e *BoundsError) Error() string {
	return fmt.Sprintf("%v: need %d bytes at offset %d, archive has %d", ErrOutOfBounds, e.Width, e.Offset, e.Size)
}

// Unwrap returns ErrOutOfBounds.
func (e *BoundsError) Unwrap() error {
	return ErrOutOfBounds
}

// EntryError reports a failure isolated to one archive entry.
type EntryError struct {
	// Err is the underlying cause, wrapping ErrCorruptEntry, ErrDecompression, or ErrInvalidExtractPath.
	Err error
	// Name is the sanitized entry name.
	Name string
	// Index is the entry position in the table.
	Index int
}

// Error implements error.
func (e *EntryError) Error() string {
	return fmt.Sprintf("entry #%d %q: %v", e.Index, e.Name, e.Err)
}

// Unwrap returns the underlying cause.
func (e *EntryError) Unwrap() error {
	return e.Err
}

// newEntryError wraps err for entry unless it already is an *EntryError.
func newEntryError(entry *FileEntry, err error) *EntryError {
	var ee *EntryError
	if errors.As(err, &ee) {
		return ee
	}

	return &EntryError{Index: entry.Index, Name: entry.Name, Err: err}
}
