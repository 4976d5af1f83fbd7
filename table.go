// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bra

package bra

import "fmt"

// ParseEntries decodes header.FileCount table records starting at header.FileEntryOffset.
// It returns all entries or an ErrCorruptTable error, never a partial list.
// Name problems (empty after sanitization, no extension to trim) do not fail the
// table; they are recorded on the entry and reported by FileEntry.Err.
func ParseEntries(buf []byte, header Header, opts ReaderOptions) ([]FileEntry, error) {
	if header.FileCount == 0 {
		return []FileEntry{}, nil
	}

	c := cursor{buf: buf}
	off := uint64(header.FileEntryOffset)

	// Every record holds at least its fixed fields; reject impossible counts before allocating.
	minTable := uint64(header.FileCount) * entryFixedSize
	if err := c.check(off, minTable); err != nil {
		return nil, fmt.Errorf("%w: %d entries at offset %d: %w", ErrCorruptTable, header.FileCount, off, err)
	}

	entries := make([]FileEntry, 0, header.FileCount)
	for i := 0; i < int(header.FileCount); i++ {
		entry, next, err := parseEntry(c, off, opts.TrimExtension)
		if err != nil {
			return nil, fmt.Errorf("%w: entry #%d at offset %d: %w", ErrCorruptTable, i, off, err)
		}

		entry.Index = i
		entries = append(entries, entry)
		off = next
	}

	return entries, nil
}

// parseEntry reads one table record at off and returns it with the next record offset.
func parseEntry(c cursor, off uint64, trim bool) (FileEntry, uint64, error) {
	var (
		e   FileEntry
		err error
	)

	e.RecordOffset = uint32(off) //nolint:gosec // off is within buffer, checked by caller reads

	if e.PackedTime, err = c.uint32At(off); err != nil {
		return e, 0, fmt.Errorf("packed time: %w", err)
	}
	off += 4

	if e.Unknown, err = c.uint32At(off); err != nil {
		return e, 0, fmt.Errorf("unknown: %w", err)
	}
	off += 4

	if e.CompressedSize, err = c.uint32At(off); err != nil {
		return e, 0, fmt.Errorf("compressed size: %w", err)
	}
	off += 4

	if e.UncompressedSize, err = c.uint32At(off); err != nil {
		return e, 0, fmt.Errorf("uncompressed size: %w", err)
	}
	off += 4

	if e.NameLength, err = c.uint16At(off); err != nil {
		return e, 0, fmt.Errorf("name length: %w", err)
	}
	off += 2

	if e.Flags, err = c.uint16At(off); err != nil {
		return e, 0, fmt.Errorf("flags: %w", err)
	}
	off += 2

	if e.Offset, err = c.uint32At(off); err != nil {
		return e, 0, fmt.Errorf("file offset: %w", err)
	}
	off += 4

	raw, err := c.bytesAt(off, uint64(e.NameLength))
	if err != nil {
		return e, 0, fmt.Errorf("name: %w", err)
	}
	// Advance by the declared length, not by the decoded string.
	off += uint64(e.NameLength)

	e.RawName, e.Name, e.nameErr = normalizeEntryName(raw, trim)
	return e, off, nil
}
