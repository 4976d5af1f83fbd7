// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bra

package bra

import (
	"fmt"
	"strings"

	"github.com/woozymasta/pathrules"
)

// entryMatcher holds compiled entry selection rules.
type entryMatcher struct {
	matcher *pathrules.Matcher
}

// newEntryMatcher compiles selection rules; nil matcher means everything is selected.
func newEntryMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*entryMatcher, error) {
	rules = normalizeRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidFilterRule, err)
	}

	return &entryMatcher{matcher: matcher}, nil
}

// normalizeRules converts rule patterns to slash form and drops empty patterns.
func normalizeRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := strings.TrimSpace(rule.Pattern)
		pattern = strings.ReplaceAll(pattern, `\`, `/`)
		pattern = strings.TrimPrefix(pattern, "./")
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// Match reports whether entry name is selected.
func (m *entryMatcher) Match(name string) bool {
	if m == nil || m.matcher == nil {
		return true
	}

	candidate := NormalizePath(name)
	if candidate == "" {
		return false
	}

	return m.matcher.Included(candidate, false)
}

// FilterEntries keeps entries whose names are selected by rules, preserving order.
// Empty rules select everything. Zero-valued opts match case-insensitively and include by default.
func FilterEntries(entries []FileEntry, rules []pathrules.Rule, opts pathrules.MatcherOptions) ([]FileEntry, error) {
	eo := ExtractOptions{Rules: rules, RulesMatcherOptions: opts}
	eo.applyDefaults()

	m, err := newEntryMatcher(eo.Rules, eo.RulesMatcherOptions)
	if err != nil {
		return nil, err
	}

	return filterEntries(entries, m), nil
}

// filterEntries applies compiled matcher to entries.
func filterEntries(entries []FileEntry, m *entryMatcher) []FileEntry {
	if m == nil {
		return entries
	}

	out := make([]FileEntry, 0, len(entries))
	for _, entry := range entries {
		if m.Match(entry.Name) {
			out = append(out, entry)
		}
	}

	return out
}

// IncludeRules builds include rules from raw glob patterns.
func IncludeRules(patterns ...string) []pathrules.Rule {
	patterns = cleanPatterns(patterns)
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, pattern := range patterns {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: pattern})
	}

	return rules
}

// ExcludeRules builds exclude rules from raw glob patterns.
func ExcludeRules(patterns ...string) []pathrules.Rule {
	patterns = cleanPatterns(patterns)
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, pattern := range patterns {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionExclude, Pattern: pattern})
	}

	return rules
}

// cleanPatterns trims patterns and drops empty ones.
func cleanPatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern != "" {
			out = append(out, pattern)
		}
	}

	return out
}
