// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/bra

package bra

import (
	"testing"

	"github.com/woozymasta/pathrules"
)

func TestFilterEntries(t *testing.T) {
	t.Parallel()

	entries := []FileEntry{
		{Name: `scene\a.tbl`},
		{Name: `scene\b.txt`},
		{Name: `text\c.TBL`},
		{Name: `text\d.txt`},
	}

	testCases := []struct {
		name  string
		rules []pathrules.Rule
		opts  pathrules.MatcherOptions
		want  []string
	}{
		{
			name: "no rules selects all",
			want: []string{`scene\a.tbl`, `scene\b.txt`, `text\c.TBL`, `text\d.txt`},
		},
		{
			name:  "exclude by extension",
			rules: ExcludeRules("*.txt"),
			want:  []string{`scene\a.tbl`, `text\c.TBL`},
		},
		{
			name:  "include only with default exclude",
			rules: IncludeRules("*.tbl"),
			opts:  pathrules.MatcherOptions{CaseInsensitive: true, DefaultAction: pathrules.ActionExclude},
			want:  []string{`scene\a.tbl`, `text\c.TBL`},
		},
		{
			name:  "backslash pattern",
			rules: IncludeRules(`scene\**`),
			opts:  pathrules.MatcherOptions{CaseInsensitive: true, DefaultAction: pathrules.ActionExclude},
			want:  []string{`scene\a.tbl`, `scene\b.txt`},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := FilterEntries(entries, tc.rules, tc.opts)
			if err != nil {
				t.Fatalf("FilterEntries: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d entries, want %d: %+v", len(got), len(tc.want), got)
			}
			for i := range got {
				if got[i].Name != tc.want[i] {
					t.Fatalf("got[%d]=%q, want %q", i, got[i].Name, tc.want[i])
				}
			}
		})
	}
}

func TestBuildRules_DropsEmpty(t *testing.T) {
	t.Parallel()

	rules := IncludeRules(" *.tbl ", "", "  ")
	if len(rules) != 1 || rules[0].Pattern != "*.tbl" || rules[0].Action != pathrules.ActionInclude {
		t.Fatalf("IncludeRules=%+v", rules)
	}

	rules = ExcludeRules("a", "b")
	if len(rules) != 2 || rules[1].Action != pathrules.ActionExclude {
		t.Fatalf("ExcludeRules=%+v", rules)
	}
}
