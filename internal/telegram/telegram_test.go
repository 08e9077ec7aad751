package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	short := "fits as is"
	if got := truncate(short); got != short {
		t.Errorf("truncate(%q) = %q", short, got)
	}

	long := strings.Repeat("x", maxMessageSize+100)
	got := truncate(long)
	if len(got) != maxMessageSize {
		t.Errorf("truncated ascii length = %v, want %v", len(got), maxMessageSize)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated message has no ellipsis: %q", got[len(got)-10:])
	}

	// place a multibyte rune straddling the cut point
	runes := strings.Repeat("x", maxMessageSize-4) + strings.Repeat("é", 60)
	got = truncate(runes)
	if !utf8.ValidString(got) {
		t.Errorf("truncation split a rune: %q", got[len(got)-10:])
	}
	if len(got) > maxMessageSize {
		t.Errorf("truncated length = %v, want at most %v", len(got), maxMessageSize)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated message has no ellipsis: %q", got[len(got)-10:])
	}
}
