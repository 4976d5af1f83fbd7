// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bra

package bra

import (
	"time"

	"github.com/spf13/afero"
	"github.com/woozymasta/pathrules"
)

// Internal binary layout.
const (
	headerSize      = 16 // fixed archive header size in bytes
	dataHeaderSize  = 16 // per-file sub-header before each payload
	entryFixedSize  = 24 // fixed part of one table record, name bytes follow
	magicFieldWidth = 4  // bytes reserved for magic before compressionType
	trimExtLen      = 3  // characters kept after the first dot in trim mode
)

// Magic is the expected archive tag at offset zero.
const Magic = "PDA"

// Header is the fixed 16-byte BRA archive header.
type Header struct {
	// Magic is the leading ASCII tag, normally "PDA".
	Magic string `json:"magic" yaml:"magic"`
	// CompressionType is observed as 2 in shipped archives; semantics unknown.
	CompressionType uint32 `json:"compression_type" yaml:"compression_type"`
	// FileEntryOffset is absolute offset of the file entry table.
	FileEntryOffset uint32 `json:"file_entry_offset" yaml:"file_entry_offset"`
	// FileCount is the number of table records.
	FileCount uint32 `json:"file_count" yaml:"file_count"`
}

// HasKnownMagic reports whether Magic equals "PDA".
func (h Header) HasKnownMagic() bool {
	return h.Magic == Magic
}

// FileEntry describes one parsed table record.
type FileEntry struct {
	// nameErr is set when the name could not be sanitized or trimmed.
	nameErr error
	// RawName is the name field as stored, ASCII decoded.
	RawName string `json:"raw_name" yaml:"raw_name"`
	// Name is RawName after sanitization and optional extension trim.
	// Backslash is the directory separator.
	Name string `json:"name" yaml:"name"`
	// Index is the zero-based position in the table.
	Index int `json:"index" yaml:"index"`
	// RecordOffset is absolute offset of this table record.
	RecordOffset uint32 `json:"record_offset" yaml:"record_offset"`
	// PackedTime is Unix timestamp of the packed file.
	PackedTime uint32 `json:"packed_time" yaml:"packed_time"`
	// Unknown is an opaque field.
	Unknown uint32 `json:"unknown,omitempty" yaml:"unknown,omitempty"`
	// CompressedSize is stored size including the 16-byte data header.
	CompressedSize uint32 `json:"compressed_size" yaml:"compressed_size"`
	// UncompressedSize is final payload size.
	UncompressedSize uint32 `json:"uncompressed_size" yaml:"uncompressed_size"`
	// Offset is absolute offset of the per-file data header.
	Offset uint32 `json:"offset" yaml:"offset"`
	// NameLength is declared byte length of the name field.
	NameLength uint16 `json:"name_length" yaml:"name_length"`
	// Flags is an opaque field.
	Flags uint16 `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// ModTime converts PackedTime to UTC time.
func (e *FileEntry) ModTime() time.Time {
	return time.Unix(int64(e.PackedTime), 0).UTC()
}

// PayloadSize returns stored payload size without the data header, or zero on underflow.
func (e *FileEntry) PayloadSize() uint32 {
	if e.CompressedSize < dataHeaderSize {
		return 0
	}

	return e.CompressedSize - dataHeaderSize
}

// IsCompressed reports whether payload is stored as raw deflate.
// The format has no flag for it: equal sizes mean stored.
func (e *FileEntry) IsCompressed() bool {
	return e.CompressedSize >= dataHeaderSize && e.UncompressedSize != e.CompressedSize-dataHeaderSize
}

// Err returns the name problem recorded during table decoding, if any.
func (e *FileEntry) Err() error {
	return e.nameErr
}

// FileDataHeader is the 16-byte record at each entry Offset.
// It duplicates table sizes and is not needed for extraction.
type FileDataHeader struct {
	UncompressedSize uint32 `json:"uncompressed_size" yaml:"uncompressed_size"`
	CompressedSize   uint32 `json:"compressed_size" yaml:"compressed_size"`
	Unknown1         uint32 `json:"unknown1,omitempty" yaml:"unknown1,omitempty"`
	Unknown2         uint32 `json:"unknown2,omitempty" yaml:"unknown2,omitempty"`
}

// ReaderOptions configures table decoding.
type ReaderOptions struct {
	// Fs is the input filesystem used by Open and metadata helpers; nil means OS filesystem.
	Fs afero.Fs `json:"-" yaml:"-"`
	// TrimExtension cuts names to end three characters after the first dot.
	TrimExtension bool `json:"trim_extension,omitempty" yaml:"trim_extension,omitempty"`
}

// ExtractOptions configures Extract behavior.
// Output mtime is set from PackedTime when non-zero; failure to set it is ignored.
type ExtractOptions struct {
	// Fs is the output filesystem; nil means OS filesystem.
	Fs afero.Fs `json:"-" yaml:"-"`
	// OnEntryDone is called after one entry is fully written.
	// It runs on worker goroutines, concurrently when MaxWorkers > 1.
	OnEntryDone func(entry FileEntry, written int64, outputPath string) `json:"-" yaml:"-"`
	// OnEntryError is called for each entry that failed without aborting the run.
	// Like OnEntryDone it may be called concurrently and must synchronize its own state.
	OnEntryError func(err *EntryError) `json:"-" yaml:"-"`
	// Entries limits extraction to selected entries; nil means all parsed entries.
	Entries []FileEntry `json:"-" yaml:"-"`
	// Rules selects entries by name, matched against slash-separated Name.
	Rules []pathrules.Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
	// RulesMatcherOptions control rule matching.
	RulesMatcherOptions pathrules.MatcherOptions `json:"rules_matcher_options,omitzero" yaml:"rules_matcher_options,omitzero"`
	// MaxWorkers is number of extraction workers (zero means GOMAXPROCS).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
	// DirMode is permission for created directories; zero means 0o750.
	DirMode uint32 `json:"dir_mode,omitempty" yaml:"dir_mode,omitempty"`
	// FileMode is permission for created files; zero means 0o640.
	FileMode uint32 `json:"file_mode,omitempty" yaml:"file_mode,omitempty"`
}

// ExtractResult contains extraction statistics.
type ExtractResult struct {
	// Failed lists entries skipped because of per-entry errors, in table order.
	Failed []*EntryError `json:"-" yaml:"-"`
	// Extracted is number of entries written.
	Extracted int `json:"extracted" yaml:"extracted"`
	// Skipped is number of entries excluded by Rules.
	Skipped int `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	// BytesWritten is total payload bytes written.
	BytesWritten int64 `json:"bytes_written" yaml:"bytes_written"`
	// Duration is end-to-end extraction duration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// applyDefaults fills zero-valued reader options with defaults.
func (opts *ReaderOptions) applyDefaults() {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
}

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	if opts.DirMode == 0 {
		opts.DirMode = 0o750
	}

	if opts.FileMode == 0 {
		opts.FileMode = 0o640
	}

	if opts.RulesMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.RulesMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionInclude,
		}
	}

	if opts.RulesMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.RulesMatcherOptions.DefaultAction = pathrules.ActionInclude
	}
}
