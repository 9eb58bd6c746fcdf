package convert

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "engine exited 1", 64, "engine exited 1"},
		{"ascii", "abcdef", 3, "abc..."},
		{"splits two-byte rune", "aéb", 2, "a..."},
		{"splits three-byte rune", "€€", 4, "€..."},
		{"boundary", "€€", 3, "€..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) = %q is not valid UTF-8", tt.in, tt.n, got)
			}
		})
	}
}

func TestTruncate_EngineOutput(t *testing.T) {
	out := strings.Repeat("ошибка ", 400)
	for n := 1; n < 16; n++ {
		if got := truncate(out, n); !utf8.ValidString(got) {
			t.Fatalf("truncate(_, %d) produced invalid UTF-8", n)
		}
	}
}
