// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bra

package bra

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/flate"
)

// testFile describes one entry for buildArchive.
type testFile struct {
	name       string
	data       []byte
	packedTime uint32
	flags      uint16
	compress   bool
}

// testRecord is one raw table record for buildTable.
type testRecord struct {
	name             []byte
	packedTime       uint32
	unknown          uint32
	compressedSize   uint32
	uncompressedSize uint32
	flags            uint16
	offset           uint32
	nameLength       int // -1 means len(name)
}

// buildArchive lays out header, payloads, then the entry table.
func buildArchive(t testing.TB, files []testFile) []byte {
	t.Helper()

	buf := make([]byte, headerSize)
	records := make([]testRecord, 0, len(files))
	for _, f := range files {
		payload := f.data
		if f.compress {
			payload = deflateRaw(t, f.data)
			if len(payload) == len(f.data) {
				t.Fatalf("compressed %q has same size as source; pick more compressible data", f.name)
			}
		}

		offset := uint32(len(buf))
		compressedSize := uint32(len(payload) + dataHeaderSize)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(f.data)))
		buf = binary.LittleEndian.AppendUint32(buf, compressedSize)
		buf = binary.LittleEndian.AppendUint32(buf, 0)
		buf = binary.LittleEndian.AppendUint32(buf, 0)
		buf = append(buf, payload...)

		records = append(records, testRecord{
			name:             []byte(f.name),
			nameLength:       -1,
			packedTime:       f.packedTime,
			compressedSize:   compressedSize,
			uncompressedSize: uint32(len(f.data)),
			flags:            f.flags,
			offset:           offset,
		})
	}

	tableOffset := uint32(len(buf))
	buf = appendRecords(buf, records)
	putHeader(buf, Magic, 2, tableOffset, uint32(len(files)))
	return buf
}

// appendRecords appends raw table records to buf.
func appendRecords(buf []byte, records []testRecord) []byte {
	for _, r := range records {
		nameLen := r.nameLength
		if nameLen < 0 {
			nameLen = len(r.name)
		}

		buf = binary.LittleEndian.AppendUint32(buf, r.packedTime)
		buf = binary.LittleEndian.AppendUint32(buf, r.unknown)
		buf = binary.LittleEndian.AppendUint32(buf, r.compressedSize)
		buf = binary.LittleEndian.AppendUint32(buf, r.uncompressedSize)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(nameLen))
		buf = binary.LittleEndian.AppendUint16(buf, r.flags)
		buf = binary.LittleEndian.AppendUint32(buf, r.offset)
		buf = append(buf, r.name...)
	}

	return buf
}

// putHeader writes the fixed header into the first 16 bytes of buf.
func putHeader(buf []byte, magic string, compressionType, tableOffset, count uint32) {
	var m [4]byte
	copy(m[:], magic)
	copy(buf[0:4], m[:])
	binary.LittleEndian.PutUint32(buf[4:8], compressionType)
	binary.LittleEndian.PutUint32(buf[8:12], tableOffset)
	binary.LittleEndian.PutUint32(buf[12:16], count)
}

// deflateRaw compresses data as raw deflate stream without zlib or gzip wrapper.
func deflateRaw(t testing.TB, data []byte) []byte {
	t.Helper()

	var out bytes.Buffer
	w, err := flate.NewWriter(&out, flate.BestCompression)
	if err != nil {
		t.Fatalf("flate.NewWriter: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("flate write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("flate close: %v", err)
	}

	return out.Bytes()
}

// mustSession decodes buf or fails the test.
func mustSession(t testing.TB, buf []byte, opts ReaderOptions) *Session {
	t.Helper()

	s, err := NewSession(buf, opts)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	return s
}

// compressible returns n bytes of repetitive text.
func compressible(n int) []byte {
	pattern := []byte("tokyo xanadu bra payload ")
	out := make([]byte, 0, n)
	for len(out) < n {
		out = append(out, pattern...)
	}

	return out[:n]
}
