package guideline

import (
	"strings"
	"unicode"
)

// Slugify normalizes a topic or subtopic title into key form: lowercase
// alphanumeric runs joined by single hyphens. Classifier-returned keys pass
// through this too so a model that echoes the title instead of the key still
// matches the stored unit.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
