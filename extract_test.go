// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bra

package bra

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/woozymasta/pathrules"
)

func TestExtractRoundTrip(t *testing.T) {
	t.Parallel()

	files := []testFile{
		{name: `scene\map\a.tbl`, data: compressible(5000), compress: true, packedTime: 1512777600},
		{name: `scene\b.txt`, data: []byte("bravo")},
		{name: "c.bin", data: compressible(64), compress: true},
	}
	s := mustSession(t, buildArchive(t, files), ReaderOptions{})
	fs := afero.NewMemMapFs()

	var mu sync.Mutex
	done := map[string]int64{}
	res, err := s.Extract(context.Background(), "out", ExtractOptions{
		Fs:         fs,
		MaxWorkers: 2,
		OnEntryDone: func(entry FileEntry, written int64, _ string) {
			mu.Lock()
			done[entry.Name] = written
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Extracted != 3 || len(res.Failed) != 0 {
		t.Fatalf("result=%+v", res)
	}

	wantPaths := []string{
		filepath.Join("out", "scene", "map", "a.tbl"),
		filepath.Join("out", "scene", "b.txt"),
		filepath.Join("out", "c.bin"),
	}
	var total int64
	for i, p := range wantPaths {
		got, err := afero.ReadFile(fs, p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if !bytes.Equal(got, files[i].data) {
			t.Fatalf("%s content mismatch", p)
		}
		total += int64(len(files[i].data))
	}

	if res.BytesWritten != total {
		t.Fatalf("BytesWritten=%d, want %d", res.BytesWritten, total)
	}
	if done[`scene\b.txt`] != 5 {
		t.Fatalf("OnEntryDone b.txt written=%d, want 5", done[`scene\b.txt`])
	}

	info, err := fs.Stat(wantPaths[0])
	if err != nil {
		t.Fatal(err)
	}
	if info.ModTime().Unix() != 1512777600 {
		t.Fatalf("mtime=%v, want packed time", info.ModTime())
	}
}

func TestExtract_OSFilesystem(t *testing.T) {
	t.Parallel()

	s := mustSession(t, buildArchive(t, []testFile{
		{name: `dir\file.txt`, data: []byte("on disk")},
	}), ReaderOptions{})

	dst := t.TempDir()
	if _, err := s.Extract(context.Background(), dst, ExtractOptions{}); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dst, "dir", "file.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "on disk" {
		t.Fatalf("content=%q", got)
	}
}

func TestExtract_IsolatesCorruptEntries(t *testing.T) {
	t.Parallel()

	buf := buildArchive(t, []testFile{
		{name: "good1.txt", data: []byte("one")},
		{name: "broken.txt", data: []byte("two")},
		{name: "bad.bin", data: bytes.Repeat([]byte{0xff}, 32)},
		{name: "good2.txt", data: compressible(400), compress: true},
	})
	s := mustSession(t, buf, ReaderOptions{})

	entries := s.Entries()
	entries[1].Offset = uint32(len(buf)) // fileOffset + compressedSize past archive end
	entries[2].UncompressedSize = 1000   // forces inflate of garbage

	fs := afero.NewMemMapFs()
	var reported []*EntryError
	var mu sync.Mutex
	res, err := s.Extract(context.Background(), "out", ExtractOptions{
		Fs:      fs,
		Entries: entries,
		OnEntryError: func(e *EntryError) {
			mu.Lock()
			reported = append(reported, e)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Extracted != 2 {
		t.Fatalf("Extracted=%d, want 2", res.Extracted)
	}
	if len(res.Failed) != 2 || len(reported) != 2 {
		t.Fatalf("Failed=%v reported=%v", res.Failed, reported)
	}
	if res.Failed[0].Index != 1 || !errors.Is(res.Failed[0], ErrCorruptEntry) {
		t.Fatalf("Failed[0]=%v, want ErrCorruptEntry for #1", res.Failed[0])
	}
	if res.Failed[1].Index != 2 || !errors.Is(res.Failed[1], ErrDecompression) {
		t.Fatalf("Failed[1]=%v, want ErrDecompression for #2", res.Failed[1])
	}

	for _, name := range []string{"good1.txt", "good2.txt"} {
		if ok, _ := afero.Exists(fs, filepath.Join("out", name)); !ok {
			t.Fatalf("%s not extracted", name)
		}
	}
	if ok, _ := afero.Exists(fs, filepath.Join("out", "bad.bin")); ok {
		t.Fatal("partial output of broken stream was kept")
	}
}

func TestExtract_NameProblems(t *testing.T) {
	t.Parallel()

	buf := make([]byte, headerSize)
	payloadOff := uint32(len(buf))
	buf = append(buf, make([]byte, dataHeaderSize)...)
	buf = append(buf, "xyz"...)

	records := []testRecord{
		{name: []byte("noext"), nameLength: -1, compressedSize: 19, uncompressedSize: 3, offset: payloadOff},
		{name: []byte(`..\evil.txt`), nameLength: -1, compressedSize: 19, uncompressedSize: 3, offset: payloadOff},
		{name: []byte("ok.txtjunk"), nameLength: -1, compressedSize: 19, uncompressedSize: 3, offset: payloadOff},
	}
	tableOff := uint32(len(buf))
	buf = appendRecords(buf, records)
	putHeader(buf, Magic, 2, tableOff, uint32(len(records)))

	s := mustSession(t, buf, ReaderOptions{TrimExtension: true})
	fs := afero.NewMemMapFs()
	res, err := s.Extract(context.Background(), "out", ExtractOptions{Fs: fs})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Extracted != 1 || len(res.Failed) != 2 {
		t.Fatalf("result=%+v", res)
	}
	if !errors.Is(res.Failed[0], ErrCorruptEntry) {
		t.Fatalf("Failed[0]=%v, want ErrCorruptEntry", res.Failed[0])
	}
	if !errors.Is(res.Failed[1], ErrInvalidExtractPath) {
		t.Fatalf("Failed[1]=%v, want ErrInvalidExtractPath", res.Failed[1])
	}

	got, err := afero.ReadFile(fs, filepath.Join("out", "ok.txt"))
	if err != nil || string(got) != "xyz" {
		t.Fatalf("ok.txt=%q, %v", got, err)
	}
	if ok, _ := afero.Exists(fs, "evil.txt"); ok {
		t.Fatal("traversal entry escaped output dir")
	}
}

func TestExtract_CollidingNamesGetSuffix(t *testing.T) {
	t.Parallel()

	s := mustSession(t, buildArchive(t, []testFile{
		{name: "a?b.txt", data: []byte("first")},
		{name: "ab.txt", data: []byte("second")},
		{name: "AB.txt", data: []byte("third")},
	}), ReaderOptions{})

	fs := afero.NewMemMapFs()
	if _, err := s.Extract(context.Background(), "out", ExtractOptions{Fs: fs, MaxWorkers: 3}); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := map[string]string{
		"ab.txt":   "first",
		"ab~2.txt": "second",
		"AB~3.txt": "third",
	}
	for name, content := range want {
		got, err := afero.ReadFile(fs, filepath.Join("out", name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(got) != content {
			t.Fatalf("%s=%q, want %q", name, got, content)
		}
	}
}

func TestExtract_Rules(t *testing.T) {
	t.Parallel()

	s := mustSession(t, buildArchive(t, []testFile{
		{name: `scene\a.tbl`, data: []byte("a")},
		{name: `scene\b.txt`, data: []byte("b")},
		{name: `text\c.tbl`, data: []byte("c")},
	}), ReaderOptions{})

	fs := afero.NewMemMapFs()
	res, err := s.Extract(context.Background(), "out", ExtractOptions{
		Fs:    fs,
		Rules: IncludeRules("*.tbl"),
		RulesMatcherOptions: pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Extracted != 2 || res.Skipped != 1 {
		t.Fatalf("result=%+v", res)
	}
	if ok, _ := afero.Exists(fs, filepath.Join("out", "scene", "b.txt")); ok {
		t.Fatal("excluded entry was extracted")
	}
}

func TestExtract_OutputUnwritableIsFatal(t *testing.T) {
	t.Parallel()

	s := mustSession(t, buildArchive(t, []testFile{{name: "a.txt", data: []byte("a")}}), ReaderOptions{})
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())

	_, err := s.Extract(context.Background(), "out", ExtractOptions{Fs: fs})
	if !errors.Is(err, ErrIO) {
		t.Fatalf("err=%v, want ErrIO", err)
	}
}

func TestExtract_Cancelled(t *testing.T) {
	t.Parallel()

	s := mustSession(t, buildArchive(t, []testFile{
		{name: "a.txt", data: []byte("a")},
		{name: "b.txt", data: []byte("b")},
	}), ReaderOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Extract(ctx, "out", ExtractOptions{Fs: afero.NewMemMapFs()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
}

func TestExtract_Empty(t *testing.T) {
	t.Parallel()

	buf := make([]byte, headerSize)
	putHeader(buf, Magic, 2, headerSize, 0)
	s := mustSession(t, buf, ReaderOptions{})

	fs := afero.NewMemMapFs()
	res, err := s.Extract(context.Background(), "out", ExtractOptions{Fs: fs})
	if err != nil || res.Extracted != 0 {
		t.Fatalf("result=%+v, err=%v", res, err)
	}
}

// faultyFs fails OpenFile for one base name and optionally every Chtimes call.
type faultyFs struct {
	afero.Fs
	chtimesErr error
	failName   string
	opened     atomic.Int32
}

func (f *faultyFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	f.opened.Add(1)
	if f.failName != "" && filepath.Base(name) == f.failName {
		return nil, os.ErrPermission
	}

	return f.Fs.OpenFile(name, flag, perm)
}

func (f *faultyFs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	if f.chtimesErr != nil {
		return f.chtimesErr
	}

	return f.Fs.Chtimes(name, atime, mtime)
}

func TestExtract_FileDirectoryConflict(t *testing.T) {
	t.Parallel()

	s := mustSession(t, buildArchive(t, []testFile{
		{name: "a", data: []byte("file a")},
		{name: `a\b.txt`, data: []byte("nested")},
		{name: "c.txt", data: []byte("sibling")},
	}), ReaderOptions{})

	dst := t.TempDir()
	res, err := s.Extract(context.Background(), dst, ExtractOptions{MaxWorkers: 2})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Extracted != 3 || len(res.Failed) != 0 {
		t.Fatalf("result=%+v", res)
	}

	want := map[string]string{
		"a~2":                       "file a",
		filepath.Join("a", "b.txt"): "nested",
		"c.txt":                     "sibling",
	}
	for name, content := range want {
		got, err := os.ReadFile(filepath.Join(dst, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(got) != content {
			t.Fatalf("%s=%q, want %q", name, got, content)
		}
	}
}

func TestPrepareExtractWorkItems_ReservesDirectories(t *testing.T) {
	t.Parallel()

	items, failed := prepareExtractWorkItems([]FileEntry{
		{Index: 0, Name: "x"},
		{Index: 1, Name: `X\Y`},
		{Index: 2, Name: `x\y\z.txt`},
	})
	if len(failed) != 0 {
		t.Fatalf("failed=%v", failed)
	}

	want := []string{"x~2", "X/Y~2", "x/y/z.txt"}
	if len(items) != len(want) {
		t.Fatalf("got %d items, want %d", len(items), len(want))
	}
	for i, item := range items {
		if got := filepath.ToSlash(item.relPath); got != want[i] {
			t.Fatalf("item %d path=%q, want %q", i, got, want[i])
		}
	}
}

func TestExtract_WriteFailureStopsDispatch(t *testing.T) {
	t.Parallel()

	files := make([]testFile, 200)
	for i := range files {
		files[i] = testFile{name: fmt.Sprintf("f%03d.bin", i), data: []byte("payload")}
	}
	s := mustSession(t, buildArchive(t, files), ReaderOptions{})

	fs := &faultyFs{Fs: afero.NewMemMapFs(), failName: "f000.bin"}
	res, err := s.Extract(context.Background(), "out", ExtractOptions{Fs: fs, MaxWorkers: 1})
	if !errors.Is(err, ErrIO) {
		t.Fatalf("err=%v, want ErrIO", err)
	}
	if errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want root cause instead of cancellation", err)
	}
	if res.Extracted != 0 {
		t.Fatalf("Extracted=%d, want 0", res.Extracted)
	}
	if n := fs.opened.Load(); n != 1 {
		t.Fatalf("opened %d files after fatal write error, want 1", n)
	}
}

func TestExtract_ChtimesFailureIgnored(t *testing.T) {
	t.Parallel()

	s := mustSession(t, buildArchive(t, []testFile{
		{name: "a.txt", data: []byte("a"), packedTime: 1512777600},
	}), ReaderOptions{})

	fs := &faultyFs{Fs: afero.NewMemMapFs(), chtimesErr: os.ErrPermission}
	res, err := s.Extract(context.Background(), "out", ExtractOptions{Fs: fs})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Extracted != 1 || len(res.Failed) != 0 {
		t.Fatalf("result=%+v", res)
	}
}
