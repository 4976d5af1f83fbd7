// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bra

package bra

import (
	"fmt"
	"strings"
)

// invalidNameChars lists printable characters rejected in Windows paths or file names.
// Backslash is absent: it is the directory separator inside BRA names.
const invalidNameChars = `"<>|:*?/`

// isInvalidNameByte reports whether b may not appear in a host path segment.
func isInvalidNameByte(b byte) bool {
	return b < 0x20 || strings.IndexByte(invalidNameChars, b) >= 0
}

// decodeASCII converts raw name bytes to string, mapping bytes >= 0x80 to '?'.
func decodeASCII(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, ch := range raw {
		if ch >= 0x80 {
			b.WriteByte('?')
			continue
		}

		b.WriteByte(ch)
	}

	return b.String()
}

// SanitizeName removes characters invalid in a file path on any supported host.
// Backslash is kept. The function is idempotent.
func SanitizeName(raw string) string {
	clean := true
	for i := 0; i < len(raw); i++ {
		if isInvalidNameByte(raw[i]) {
			clean = false
			break
		}
	}
	if clean {
		return raw
	}

	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if isInvalidNameByte(ch) {
			continue
		}

		b.WriteByte(ch)
	}

	return b.String()
}

// TrimExtension cuts name to end three characters after its first dot.
// Names with a shorter extension are returned unchanged.
// A name without a dot fails with ErrCorruptEntry.
func TrimExtension(name string) (string, error) {
	dot := strings.IndexByte(name, '.')
	if dot < 0 {
		return name, fmt.Errorf("%w: trim extension: no '.' in %q", ErrCorruptEntry, name)
	}

	end := dot + 1 + trimExtLen
	if end >= len(name) {
		return name, nil
	}

	return name[:end], nil
}

// normalizeEntryName decodes, sanitizes, and optionally trims one raw name field.
// The returned error is a per-entry problem; the name is still usable for display.
func normalizeEntryName(raw []byte, trim bool) (string, string, error) {
	rawName := decodeASCII(raw)
	name := SanitizeName(rawName)
	if name == "" {
		return rawName, name, fmt.Errorf("%w: name %q is empty after sanitization", ErrCorruptEntry, rawName)
	}

	if !trim {
		return rawName, name, nil
	}

	trimmed, err := TrimExtension(name)
	return rawName, trimmed, err
}
