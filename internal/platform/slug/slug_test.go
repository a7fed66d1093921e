package slug_test

import (
	"strings"
	"testing"

	"deepwork/internal/platform/slug"
)

func TestMake(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"Draft RFC", "draft-rfc"},
		{"  Deep -- Work!!  ", "deep-work"},
		{"???", "session"},
		{"", "session"},
		{"Refactor parser v2.1", "refactor-parser-v2-1"},
	}
	for _, tc := range cases {
		if got := slug.Make(tc.in); got != tc.want {
			t.Fatalf("slug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if got := slug.Make(strings.Repeat("ab ", 40)); len(got) > 48 || strings.HasSuffix(got, "-") {
		t.Fatalf("long slug not trimmed: %q", got)
	}
}
