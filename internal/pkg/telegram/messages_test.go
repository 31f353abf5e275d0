package telegram

import (
	"strings"
	"testing"
)

func TestSplitMessageShort(t *testing.T) {
	parts := splitMessage("hello")
	if len(parts) != 1 || parts[0] != "hello" {
		t.Fatalf("splitMessage = %v, want [hello]", parts)
	}
}

func TestSplitMessageLong(t *testing.T) {
	long := strings.Repeat("a", maxMessageLen*2+100)
	parts := splitMessage(long)
	if len(parts) != 3 {
		t.Fatalf("got %d parts, want 3", len(parts))
	}
	var total int
	for i, p := range parts {
		if len([]rune(p)) > maxMessageLen {
			t.Errorf("part %d exceeds limit: %d runes", i, len([]rune(p)))
		}
		total += len(p)
	}
	if total != len(long) {
		t.Errorf("hard cut lost content: got %d chars, want %d", total, len(long))
	}
}

func TestSplitMessagePrefersNewline(t *testing.T) {
	first := strings.Repeat("a", maxMessageLen-10)
	second := strings.Repeat("b", 200)
	parts := splitMessage(first + "\n" + second)
	if len(parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(parts))
	}
	if parts[0] != first {
		t.Errorf("first part should break at the newline, got %d chars", len(parts[0]))
	}
	if parts[1] != second {
		t.Errorf("second part mangled: got %d chars, want %d", len(parts[1]), len(second))
	}
}

func TestSplitMessageMultibyte(t *testing.T) {
	long := strings.Repeat("ж", maxMessageLen+50)
	parts := splitMessage(long)
	if len(parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(parts))
	}
	for i, p := range parts {
		for _, r := range p {
			if r != 'ж' {
				t.Fatalf("part %d contains a broken rune", i)
			}
		}
	}
}

func TestDecodeList(t *testing.T) {
	if got := decodeList(`["a","b"]`); len(got) != 2 {
		t.Errorf("decodeList valid = %v", got)
	}
	if got := decodeList(`not json`); got != nil {
		t.Errorf("decodeList invalid = %v, want nil", got)
	}
	if got := decodeList(`[]`); len(got) != 0 {
		t.Errorf("decodeList empty = %v", got)
	}
}
