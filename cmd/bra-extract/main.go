// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bra

// Command bra-extract unpacks Tokyo Xanadu .bra archives.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/woozymasta/bra"
	"github.com/woozymasta/pathrules"
)

// Exit codes.
const (
	exitOK      = 0
	exitFatal   = 1
	exitPartial = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], afero.NewOsFs(), os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command invocation and returns process exit code.
func run(ctx context.Context, args []string, fsys afero.Fs, stdout, stderr io.Writer) int {
	printBanner(stdout)

	if err := loadEnv(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitFatal
	}

	cfg, err := parseConfig(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}

		return exitFatal
	}

	// No archive path is a no-op.
	if cfg.archivePath == "" {
		return exitOK
	}

	log := newLogger(stderr, cfg.logLevel)
	log.Debug("configuration", "archive", cfg.archivePath, "workers", cfg.workers, "trim", cfg.trimExtension)

	var buf []byte
	err = benchmark(stdout, "Reading Archive", func() error {
		var readErr error
		buf, readErr = afero.ReadFile(fsys, cfg.archivePath)
		if readErr != nil {
			return fmt.Errorf("%w: read archive: %w", bra.ErrIO, readErr)
		}

		return nil
	})
	if err != nil {
		log.Error("read archive", "path", cfg.archivePath, "err", err)
		return exitFatal
	}

	var session *bra.Session
	err = benchmark(stdout, "Parsing Archive", func() error {
		var parseErr error
		session, parseErr = bra.NewSession(buf, bra.ReaderOptions{TrimExtension: cfg.trimExtension})
		return parseErr
	})
	if err != nil {
		log.Error("parse archive", "path", cfg.archivePath, "size", len(buf), "err", err)
		return exitFatal
	}

	header := session.Header()
	if !header.HasKnownMagic() {
		log.Warn("unexpected archive magic", "magic", header.Magic, "want", bra.Magic)
	}
	log.Info("archive parsed", "files", header.FileCount, "compression_type", header.CompressionType)

	for _, e := range session.Entries() {
		if e.Err() != nil {
			log.Warn("entry name problem", "index", e.Index, "raw_name", e.RawName, "err", e.Err())
		}
	}

	entries, err := bra.FilterEntries(session.Entries(), selectionRules(cfg), selectionMatcherOptions(cfg))
	if err != nil {
		log.Error("filter rules", "err", err)
		return exitFatal
	}

	if !cfg.quiet || cfg.listOnly {
		fmt.Fprint(stdout, "\n\n")
		if err := bra.WriteListing(stdout, entries, bra.ListOptions{HumanSizes: cfg.humanSizes}); err != nil {
			log.Error("write listing", "err", err)
			return exitFatal
		}
	}

	if cfg.listOnly {
		return exitOK
	}

	outDir := cfg.outputDir
	if outDir == "" {
		outDir = defaultOutputDir(cfg.archivePath)
	}

	var res bra.ExtractResult
	err = benchmark(stdout, "Writing Files", func() error {
		var extractErr error
		res, extractErr = session.Extract(ctx, outDir, bra.ExtractOptions{
			Fs:         fsys,
			Entries:    entries,
			MaxWorkers: cfg.workers,
			OnEntryDone: func(entry bra.FileEntry, written int64, outputPath string) {
				log.Debug("extracted", "name", entry.Name, "bytes", written, "path", outputPath)
			},
			OnEntryError: func(entryErr *bra.EntryError) {
				log.Warn("skip entry", "index", entryErr.Index, "name", entryErr.Name, "err", entryErr.Err)
			},
		})
		return extractErr
	})
	if err != nil {
		log.Error("extract", "dir", outDir, "err", err)
		return exitFatal
	}

	log.Info("extraction finished",
		"dir", outDir,
		"extracted", res.Extracted,
		"failed", len(res.Failed),
		"written", humanize.IBytes(uint64(res.BytesWritten)), //nolint:gosec // non-negative byte count
		"duration", res.Duration.Round(time.Millisecond),
	)

	if len(res.Failed) > 0 {
		return exitPartial
	}

	return exitOK
}

// selectionRules builds ordered pathrules from include and exclude flags.
func selectionRules(cfg config) []pathrules.Rule {
	rules := bra.IncludeRules(cfg.includes...)
	return append(rules, bra.ExcludeRules(cfg.excludes...)...)
}

// selectionMatcherOptions excludes by default once any include pattern is given.
func selectionMatcherOptions(cfg config) pathrules.MatcherOptions {
	opts := pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionInclude,
	}
	if len(cfg.includes) > 0 {
		opts.DefaultAction = pathrules.ActionExclude
	}

	return opts
}

// defaultOutputDir returns sibling directory named after archive without extension.
func defaultOutputDir(archivePath string) string {
	dir := filepath.Dir(archivePath)
	name := filepath.Base(archivePath)
	return filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name)))
}

// benchmark runs fn and prints "<action> | <N>ms".
func benchmark(w io.Writer, action string, fn func() error) error {
	fmt.Fprintf(w, "%s | ", action)
	start := time.Now()
	err := fn()
	fmt.Fprintf(w, "%dms\n", time.Since(start).Milliseconds())
	return err
}

func printBanner(w io.Writer) {
	fmt.Fprintln(w, "Xanadu .BRA Archive Exporter")
	printUsage(w)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: bra-extract [flags] <file.bra>")
	fmt.Fprintln(w, "Trim file extension (format has badly defined file names): bra-extract <file.bra> -t")
	fmt.Fprintln(w, "Flags: -o DIR, -workers N, -include GLOB, -exclude GLOB, -list, -human, -q, -log-level LEVEL")
	fmt.Fprintln(w)
}
