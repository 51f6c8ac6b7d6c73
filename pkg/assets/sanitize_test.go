package assets

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"allowed set untouched", "My file_name 01", "My file_name 01"},
		{"punctuation", "my_file_name.foo", "my_file_name_foo"},
		{"path separators", "../../etc/passwd", "______etc_passwd"},
		{"control characters", "a\tb\nc\x00", "a_b_c_"},
		{"multi-byte runes", "héllo wörld", "h_llo w_rld"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeName(tt.input)
			require.Equal(t, tt.expected, got)
			require.Equal(t, utf8.RuneCountInString(tt.input), utf8.RuneCountInString(got))
		})
	}
}
