package chunk

import (
	"strings"
	"testing"
)

func TestNew_Valid(t *testing.T) {
	text := "  " + strings.Repeat("lead migration limit ", 5) + "\n"
	c, err := New("EUROPE", "en71-3.pdf", "ANNEX A", 3, text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID() != "EUROPE/en71-3.pdf#3" {
		t.Errorf("ID = %q", c.ID())
	}
	if c.Text() != strings.TrimSpace(text) {
		t.Errorf("text should be trimmed, got %q", c.Text())
	}
	if c.Section() != "ANNEX A" || c.Source() != "en71-3.pdf" || c.Market() != "EUROPE" {
		t.Errorf("unexpected fields %+v", c)
	}
}

func TestNew_Rejects(t *testing.T) {
	long := strings.Repeat("x", MinLength)
	tests := []struct {
		name, market, source, text string
	}{
		{"short", "US", "a.txt", strings.Repeat("x", MinLength-1)},
		{"short after trim", "US", "a.txt", "   " + strings.Repeat("x", MinLength-1) + "   "},
		{"no market", "", "a.txt", long},
		{"no source", "US", "", long},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.market, tc.source, "", 0, tc.text); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNew_CountsRunes(t *testing.T) {
	// 50 CJK characters are 150 bytes but still exactly MinLength characters.
	if _, err := New("JAPAN_KOREA", "jis.txt", "", 0, strings.Repeat("玩", MinLength)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
