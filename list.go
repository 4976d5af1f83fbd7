// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bra

package bra

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// listTimeLayout formats packed timestamps in listings.
const listTimeLayout = "2006-01-02 15:04:05"

// ListOptions configures WriteListing output.
type ListOptions struct {
	// HumanSizes prints sizes as IEC units instead of raw byte counts.
	HumanSizes bool
	// FullNames prints full entry names instead of base names.
	FullNames bool
}

// ListRow is one formatted listing line before alignment.
type ListRow struct {
	Name             string
	PackedTime       string
	CompressedSize   string
	UncompressedSize string
}

// ListRows formats entries into listing cells in table order.
func ListRows(entries []FileEntry, opts ListOptions) []ListRow {
	rows := make([]ListRow, len(entries))
	for i := range entries {
		e := &entries[i]
		name := e.Name
		if !opts.FullNames {
			name = baseName(name)
		}

		rows[i] = ListRow{
			Name:             name,
			PackedTime:       e.ModTime().Format(listTimeLayout),
			CompressedSize:   formatSize(e.CompressedSize, opts.HumanSizes),
			UncompressedSize: formatSize(e.UncompressedSize, opts.HumanSizes),
		}
	}

	return rows
}

// WriteListing writes one right-aligned "name | time | compressed | uncompressed" line per entry.
func WriteListing(w io.Writer, entries []FileEntry, opts ListOptions) error {
	rows := ListRows(entries, opts)

	var nameW, timeW, compW, uncompW int
	for _, row := range rows {
		nameW = max(nameW, len(row.Name))
		timeW = max(timeW, len(row.PackedTime))
		compW = max(compW, len(row.CompressedSize))
		uncompW = max(uncompW, len(row.UncompressedSize))
	}

	var b strings.Builder
	for _, row := range rows {
		b.Reset()
		fmt.Fprintf(&b, "%*s | %*s | %*s | %*s\n",
			nameW, row.Name, timeW, row.PackedTime, compW, row.CompressedSize, uncompW, row.UncompressedSize)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}

	return nil
}

// baseName returns the last "\" or "/" separated segment of name.
func baseName(name string) string {
	if idx := strings.LastIndexAny(name, `\/`); idx >= 0 {
		return name[idx+1:]
	}

	return name
}

// formatSize formats one size cell.
func formatSize(v uint32, human bool) string {
	if human {
		return humanize.IBytes(uint64(v))
	}

	return strconv.FormatUint(uint64(v), 10)
}
