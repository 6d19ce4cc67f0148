package models

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateNameCountsRunes(t *testing.T) {
	// 100 two-byte runes: 200 bytes, 100 characters.
	name := strings.Repeat("ü", 100)

	got := TruncateName(name)
	if utf8.RuneCountInString(got) != MaxNameLength {
		t.Errorf("rune count = %d, want %d", utf8.RuneCountInString(got), MaxNameLength)
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncated name is not valid UTF-8: %q", got)
	}
	if got != strings.Repeat("ü", MaxNameLength) {
		t.Errorf("got %q", got)
	}
}

func TestTruncateNameShortAndASCII(t *testing.T) {
	if got := TruncateName("  Jazz24  "); got != "Jazz24" {
		t.Errorf("got %q, want trimmed %q", got, "Jazz24")
	}

	long := strings.Repeat("x", 200)
	if got := TruncateName(long); got != strings.Repeat("x", MaxNameLength) {
		t.Errorf("ASCII truncation changed: %q", got)
	}
}

func TestNormalizeTagsCapsAndTrims(t *testing.T) {
	tags := NormalizeTags(" jazz , smooth,, bebop , swing , fusion , latin ")
	want := TagList{"jazz", "smooth", "bebop", "swing", "fusion"}
	if len(tags) != len(want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tags[%d] = %q, want %q", i, tags[i], want[i])
		}
	}
}
