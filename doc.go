// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bra

/*
Package bra provides read and extract operations for BRA archives shipped
with the PC release of Tokyo Xanadu. The archive is loaded into memory once;
all decoded structures refer to that immutable buffer.

Layout (all integers little-endian):
  - offset 0: ASCII magic "PDA", null terminated;
  - offset 4/8/12: uint32 compression type, file entry table offset, file count;
  - at each entry offset: 16-byte data header, then CompressedSize-16 payload bytes;
  - table records: time, unknown, compressed size, uncompressed size,
    uint16 name length, uint16 flags, uint32 offset, name bytes.

A payload is raw deflate unless UncompressedSize equals CompressedSize-16,
in which case it is stored.

# Reading

Open an archive and read entries:

	s, err := bra.Open("system.bra")
	if err != nil {
	    return err
	}
	for _, e := range s.Entries() {
	    data, err := s.ReadEntry(e)
	    if err != nil {
	        // per-entry failure, other entries are still readable
	        continue
	    }
	    _ = data
	}

Names are sanitized during table decoding. Some archives carry garbage
after the extension; trim it with:

	s, err := bra.OpenWithOptions("system.bra", bra.ReaderOptions{
	    TrimExtension: true,
	})

# Extracting

Extract all entries to a directory (parallel workers):

	res, err := s.Extract(ctx, "out/", bra.ExtractOptions{MaxWorkers: 4})
	if err != nil {
	    return err // output i/o failure or cancellation
	}
	for _, failed := range res.Failed {
	    log.Printf("skip: %v", failed)
	}

Select entries with github.com/woozymasta/pathrules rules:

	res, err := s.Extract(ctx, "out/", bra.ExtractOptions{
	    Rules: bra.IncludeRules("*.tbl", "scene/**"),
	    RulesMatcherOptions: pathrules.MatcherOptions{
	        CaseInsensitive: true,
	        DefaultAction:   pathrules.ActionExclude,
	    },
	})

Output goes through an afero.Fs; pass afero.NewMemMapFs() to keep it in memory.
*/
package bra
