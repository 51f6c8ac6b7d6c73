package assets

import "strings"

// SanitizeName replaces every rune outside [A-Za-z0-9 _] with an underscore.
// The rune count is preserved. The name is metadata only and never reaches
// the filesystem.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == ' ', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
