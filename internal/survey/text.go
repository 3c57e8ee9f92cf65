package survey

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// FieldErrors maps a field key to a user-facing message.
type FieldErrors map[string]string

// Merge copies other into e.
func (e FieldErrors) Merge(other FieldErrors) {
	for k, v := range other {
		e[k] = v
	}
}

// CleanText normalizes rider free text to NFC and trims surrounding
// whitespace. Content is stored verbatim otherwise; markup-like input such
// as "a<b" is plain text and escaping happens on output.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(norm.NFC.String(s))
}
