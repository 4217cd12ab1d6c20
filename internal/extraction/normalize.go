package extraction

import "strings"

// NormalizeVendorName canonicalizes a free-text company name to a stable
// lookup key: lowercase, punctuation stripped, whitespace collapsed to
// single hyphens. "Acme Inc." and "ACME  INC" both map to "acme-inc".
func NormalizeVendorName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '-', r == '_', r == '.', r == '/', r == '&':
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), "-")
}
