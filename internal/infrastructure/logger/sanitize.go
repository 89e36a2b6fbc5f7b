package logger

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// SanitizeForLog escapes control characters in a string to prevent log
// injection. Untrusted input ends up in log lines in two places: user-supplied
// file names and diagnostic output captured from the external transcoder.
// Unicode is preserved; newlines, tabs, null bytes, ANSI escapes and other
// control characters (< 32, 127) are escaped.
func SanitizeForLog(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	for _, r := range s {
		switch r {
		case '\n':
			result.WriteString("\\n")
		case '\r':
			result.WriteString("\\r")
		case '\t':
			result.WriteString("\\t")
		case '\x00':
			result.WriteString("\\x00")
		default:
			if r < 32 || r == 127 || r == '\x1b' {
				result.WriteString(fmt.Sprintf("\\x%02x", r))
			} else {
				result.WriteRune(r)
			}
		}
	}
	return result.String()
}

// TruncateDiagnostic bounds adversarial or runaway external-tool output to at
// most maxBytes, cutting on a UTF-8 boundary and marking the cut. The result
// is sanitized for logging.
func TruncateDiagnostic(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) > maxBytes {
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "... [truncated]"
	}
	return SanitizeForLog(s)
}
