package report

import (
	"strings"
	"unicode"
)

const maxNameLen = 96

// PlotFilename turns an event ID into a file name with extension ext.
// Runs of characters outside [A-Za-z0-9._-] become one underscore, and
// leading dots are dropped so IDs cannot name hidden or parent paths.
func PlotFilename(eventID, ext string) string {
	var b strings.Builder
	pending := false
	for _, r := range eventID {
		if b.Len() >= maxNameLen {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	name := strings.TrimLeft(b.String(), ".")
	if name == "" {
		name = "event"
	}
	return name + ext
}
