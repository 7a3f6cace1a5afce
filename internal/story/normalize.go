package story

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeTopic composes Hangul jamo (NFC), trims, and collapses whitespace
// so decomposed input from macOS clipboards still matches keywords.
func NormalizeTopic(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
