package modifier

import (
	"path/filepath"
	"regexp"
	"strings"
)

// versionPattern matches a six-digit date token (YYMMDD) embedded in a
// filename stem. The token must be preceded by an underscore and followed
// by an underscore, a period, or the end of the stem.
var versionPattern = regexp.MustCompile(`_([0-9]{6})(?:_|\.|$)`)

// ExtractVersion returns the six-digit version token embedded in a filename
// stem, or the empty string if the stem carries no version.
//
// Only the first qualifying token is returned; a stem containing several
// six-digit runs yields the first occurrence. Tokens are treated as opaque
// strings throughout the system: ordering between versions is plain
// lexicographic comparison, never calendar arithmetic.
func ExtractVersion(stem string) string {
	m := versionPattern.FindStringSubmatch(stem)
	if m == nil {
		return ""
	}
	return m[1]
}

// Stem returns the final path element of p with its extension removed.
func Stem(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
