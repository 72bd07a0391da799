package cfr

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns s in Unicode NFC with surrounding whitespace removed.
func Normalize(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
