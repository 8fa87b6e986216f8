package utils

import (
	"strings"
	"time"
	"unicode"
)

const displayDateLayout = "January 2, 2006"

// Initials returns up to two upper-cased leading letters of the words in
// name, or "NA" when name is blank.
func Initials(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "NA"
	}

	var b strings.Builder
	for _, f := range fields {
		r := []rune(f)[0]
		b.WriteRune(unicode.ToUpper(r))
		if b.Len() >= 2 {
			break
		}
	}
	out := []rune(b.String())
	if len(out) > 2 {
		out = out[:2]
	}
	return string(out)
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "Unknown Date"
	}
	return t.Format(displayDateLayout)
}

// Redact replaces every occurrence of secret in s.
func Redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "[REDACTED]")
}
