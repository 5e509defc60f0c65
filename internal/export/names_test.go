package export

import (
	"strings"
	"testing"
)

func TestLineText(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Plain title", 100, "Plain title"},
		{" A\nB\rC\tD\x00 ", 100, "A B C D"},
		{"  two   words  ", 100, "two words"},
		{"bad<>|\"name", 100, "bad<>|\"name"},
		{"Été à Paris", 100, "Été à Paris"},
		{"abcdefghij klm", 10, "abcdefghij"},
		{"abcd efgh", 5, "abcd"},
	}

	for _, tt := range tests {
		if got := lineText(tt.in, tt.max); got != tt.want {
			t.Errorf("lineText(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestLineText_NoLineBreaks(t *testing.T) {
	got := lineText("TITLE\n* SOURCE FILE:  injected", 200)
	if strings.ContainsAny(got, "\r\n") {
		t.Fatalf("lineText kept a line break: %q", got)
	}
}

func TestFileBase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Road Trip", "road-trip"},
		{"Été à Paris", "ete-a-paris"},
		{"  Best of 2024!!  ", "best-of-2024"},
		{"../../etc/passwd", "etc-passwd"},
		{"日本語", "playlist"},
		{"", "playlist"},
	}

	for _, tt := range tests {
		if got := FileBase(tt.in); got != tt.want {
			t.Errorf("FileBase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := FileBase(strings.Repeat("a", 200)); len(got) != maxFileBase {
		t.Errorf("FileBase long title length = %d, want %d", len(got), maxFileBase)
	}
}
