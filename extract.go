// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bra

package bra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// extractCopyBufferSize defines per-worker buffer size for file copy during extraction.
const extractCopyBufferSize = 64 * 1024

// extractWorkItem stores one selected entry with prepared output relative paths.
type extractWorkItem struct {
	relPath string
	relDir  string
	entry   FileEntry
}

// extractOutcome is one worker result.
type extractOutcome struct {
	entryErr *EntryError
	fatal    error
	written  int64
}

// Extract writes selected entries to dstDir on opts.Fs using parallel workers.
// Per-entry failures (corrupt entry, bad deflate stream, unsafe name) are collected
// in ExtractResult.Failed and do not stop other entries. Output I/O failures and
// context cancellation are fatal: no new entries are started and the error is returned.
func (s *Session) Extract(ctx context.Context, dstDir string, opts ExtractOptions) (res ExtractResult, err error) {
	if s == nil || s.buf == nil {
		return res, ErrNilSession
	}

	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	opts.applyDefaults()

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers < 1 {
		workers = 1
	}

	entries := s.entries
	if opts.Entries != nil {
		entries = opts.Entries
	}

	matcher, err := newEntryMatcher(opts.Rules, opts.RulesMatcherOptions)
	if err != nil {
		return res, err
	}

	selected := filterEntries(entries, matcher)
	res.Skipped = len(entries) - len(selected)

	workItems, failed := prepareExtractWorkItems(selected)
	for _, entryErr := range failed {
		res.Failed = append(res.Failed, entryErr)
		if opts.OnEntryError != nil {
			opts.OnEntryError(entryErr)
		}
	}

	if len(workItems) == 0 {
		return res, nil
	}

	if err := opts.Fs.MkdirAll(dstDir, os.FileMode(opts.DirMode)); err != nil {
		return res, fmt.Errorf("%w: create output dir: %w", ErrIO, err)
	}

	if err := prepareExtractDirs(opts.Fs, dstDir, workItems, os.FileMode(opts.DirMode)); err != nil {
		return res, err
	}

	taskCh := make(chan extractWorkItem)
	outCh := make(chan extractOutcome, len(workItems))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Go(func() {
			copyBuf := make([]byte, extractCopyBufferSize)
			for task := range taskCh {
				out := s.extractPreparedEntry(ctx, dstDir, task, opts, copyBuf)
				if out.fatal != nil {
					cancel()
				}

				outCh <- out
			}
		})
	}

	var fatal error
dispatch:
	for _, task := range workItems {
		select {
		case <-ctx.Done():
			break dispatch
		case taskCh <- task:
		}
	}

	close(taskCh)
	wg.Wait()
	close(outCh)

	for out := range outCh {
		switch {
		case out.fatal != nil:
			// Workers that observed cancellation report ctx error; keep the root cause.
			if fatal == nil || (errors.Is(fatal, context.Canceled) && !errors.Is(out.fatal, context.Canceled)) {
				fatal = out.fatal
			}
		case out.entryErr != nil:
			res.Failed = append(res.Failed, out.entryErr)
		default:
			res.Extracted++
			res.BytesWritten += out.written
		}
	}

	slices.SortFunc(res.Failed, func(a, b *EntryError) int {
		return a.Index - b.Index
	})

	if fatal == nil && ctx.Err() != nil {
		// Parent context was cancelled; our own cancel only fires on fatal outcomes.
		fatal = ctx.Err()
	}

	return res, fatal
}

// prepareExtractWorkItems validates entry names and prepares unique relative fs paths.
// Directory prefixes of all valid entries are reserved first, so a file named
// like another entry's directory gets a "~N" suffix instead of failing the run.
func prepareExtractWorkItems(entries []FileEntry) ([]extractWorkItem, []*EntryError) {
	type candidate struct {
		path  string
		entry FileEntry
	}

	candidates := make([]candidate, 0, len(entries))
	used := make(map[string]struct{}, len(entries))
	nextSuffix := make(map[string]int, len(entries))

	var failed []*EntryError
	for i := range entries {
		entry := entries[i]
		if err := entry.Err(); err != nil {
			failed = append(failed, newEntryError(&entry, err))
			continue
		}

		normalizedPath, err := normalizeExtractEntryPath(entry.Name)
		if err != nil {
			failed = append(failed, newEntryError(&entry, fmt.Errorf("%w: %q", err, entry.Name)))
			continue
		}

		for dir := path.Dir(normalizedPath); dir != "."; dir = path.Dir(dir) {
			used[strings.ToLower(dir)] = struct{}{}
		}

		candidates = append(candidates, candidate{entry: entry, path: normalizedPath})
	}

	workItems := make([]extractWorkItem, 0, len(candidates))
	for _, c := range candidates {
		relPath := filepath.FromSlash(makePathUnique(c.path, used, nextSuffix))
		relDir := filepath.Dir(relPath)
		if relDir == "." {
			relDir = ""
		}

		workItems = append(workItems, extractWorkItem{
			entry:   c.entry,
			relPath: relPath,
			relDir:  relDir,
		})
	}

	return workItems, failed
}

// prepareExtractDirs creates all unique parent directories needed by work items.
func prepareExtractDirs(fs afero.Fs, dstDir string, workItems []extractWorkItem, mode os.FileMode) error {
	seen := make(map[string]struct{}, len(workItems))
	for _, task := range workItems {
		if task.relDir == "" {
			continue
		}

		dirPath := filepath.Join(dstDir, task.relDir)
		key := strings.ToLower(dirPath)
		if _, exists := seen[key]; exists {
			continue
		}

		seen[key] = struct{}{}
		if err := fs.MkdirAll(dirPath, mode); err != nil {
			return fmt.Errorf("%w: create output directory %s: %w", ErrIO, dirPath, err)
		}
	}

	return nil
}

// extractPreparedEntry writes one prepared work item below dstDir.
func (s *Session) extractPreparedEntry(
	ctx context.Context,
	dstDir string,
	task extractWorkItem,
	opts ExtractOptions,
	copyBuf []byte,
) extractOutcome {
	select {
	case <-ctx.Done():
		return extractOutcome{fatal: ctx.Err()}
	default:
	}

	rc, err := openPayload(s.buf, &task.entry)
	if err != nil {
		return s.entryFailed(&task.entry, err, opts)
	}
	defer func() { _ = rc.Close() }()

	outPath := filepath.Join(dstDir, task.relPath)
	file, err := opts.Fs.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(opts.FileMode))
	if err != nil {
		return extractOutcome{fatal: fmt.Errorf("%w: open %s: %w", ErrIO, outPath, err)}
	}

	written, copyErr := copyExtractData(file, rc, copyBuf)
	closeErr := file.Close()

	if copyErr != nil {
		if isEntryLevel(copyErr) {
			// Partial output of a broken stream is not kept.
			_ = opts.Fs.Remove(outPath)
			return s.entryFailed(&task.entry, copyErr, opts)
		}

		return extractOutcome{fatal: fmt.Errorf("%w: write %s: %w", ErrIO, outPath, copyErr)}
	}

	if closeErr != nil {
		return extractOutcome{fatal: fmt.Errorf("%w: close %s: %w", ErrIO, outPath, closeErr)}
	}

	// Packed time is best-effort: filesystems without mtime support still get the data.
	if task.entry.PackedTime != 0 {
		mtime := task.entry.ModTime()
		_ = opts.Fs.Chtimes(outPath, mtime, mtime)
	}

	if opts.OnEntryDone != nil {
		opts.OnEntryDone(task.entry, written, outPath)
	}

	return extractOutcome{written: written}
}

// entryFailed builds a per-entry outcome and reports it.
func (s *Session) entryFailed(entry *FileEntry, err error, opts ExtractOptions) extractOutcome {
	entryErr := newEntryError(entry, err)
	if opts.OnEntryError != nil {
		opts.OnEntryError(entryErr)
	}

	return extractOutcome{entryErr: entryErr}
}

// isEntryLevel reports whether err is isolated to one entry.
func isEntryLevel(err error) bool {
	return errors.Is(err, ErrCorruptEntry) ||
		errors.Is(err, ErrDecompression) ||
		errors.Is(err, ErrInvalidExtractPath)
}

// copyExtractData copies one entry stream to output file using fixed worker buffer.
// Read-side errors are returned unwrapped so callers can classify them.
func copyExtractData(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	if len(buf) == 0 {
		return 0, io.ErrShortBuffer
	}

	var total int64
	for {
		readN, readErr := src.Read(buf)
		if readN > 0 {
			writeN, writeErr := dst.Write(buf[:readN])
			total += int64(writeN)

			if writeErr != nil {
				return total, writeErr
			}

			if writeN != readN {
				return total, io.ErrShortWrite
			}
		}

		if readErr == nil {
			continue
		}

		if readErr == io.EOF {
			return total, nil
		}

		return total, readErr
	}
}
