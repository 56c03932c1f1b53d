package validation

import (
	"strings"
	"unicode"
)

const (
	minTINLength   = 9
	maxTINLength   = 12
	minPhoneLength = 10
	maxPhoneLength = 15

	ethiopiaDialCode = "+251"
)

// StripUnprintable removes non-printable characters, allowing common whitespace
// like space, tab, newline, and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}

// CleanText trims and strips control characters from free text forwarded to EIMS.
func CleanText(s string) string {
	return strings.TrimSpace(StripUnprintable(s))
}

// CleanTIN keeps only the digits of a TIN. Values shorter than the minimum TIN
// length, and the "0" placeholder some clients send, become empty.
func CleanTIN(tin string) string {
	digits := onlyDigits(tin)
	if len(digits) < minTINLength {
		return ""
	}
	return digits
}

// CleanPhone normalizes a phone number to the +251 international form.
func CleanPhone(phone string) string {
	p := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
	if p == "" {
		return ""
	}
	switch {
	case strings.HasPrefix(p, "+"):
		return "+" + onlyDigits(p)
	case strings.HasPrefix(p, "251"):
		return "+" + onlyDigits(p)
	case strings.HasPrefix(p, "0"):
		return ethiopiaDialCode + onlyDigits(p)[1:]
	default:
		return ethiopiaDialCode + onlyDigits(p)
	}
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
