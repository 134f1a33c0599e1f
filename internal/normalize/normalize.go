// Package normalize turns raw text fragments into canonical identifier, name,
// phone and address strings. Every function is pure and total: a value that
// cannot be normalized yields the empty string.
package normalize

import (
	"regexp"
	"strings"
)

// MobilePrefix is the national mobile prefix phone numbers are recovered to.
const MobilePrefix = "010"

var (
	zeroWidth     = regexp.MustCompile("[\u200b-\u200f\ufeff]")
	oddSpace      = regexp.MustCompile("[\u3000\u00a0]")
	nonIdentifier = regexp.MustCompile(`[^A-Za-z0-9]`)
	nonWord       = regexp.MustCompile(`[^가-힣A-Za-z0-9]`)
	nonDigit      = regexp.MustCompile(`[^0-9]`)
	parenAddress  = regexp.MustCompile(`\(([^)]{5,})\)`)
)

// Clean strips zero-width characters and maps ideographic and non-breaking
// spaces to plain spaces.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	s = zeroWidth.ReplaceAllString(s, "")
	return oddSpace.ReplaceAllString(s, " ")
}

// Identifier keeps ASCII letters and digits, uppercased.
func Identifier(s string) string {
	s = Clean(strings.TrimSpace(s))
	return strings.ToUpper(nonIdentifier.ReplaceAllString(s, ""))
}

// Name keeps Hangul syllables, ASCII letters and digits; Latin letters are uppercased.
func Name(s string) string {
	s = Clean(strings.TrimSpace(s))
	return strings.ToUpper(nonWord.ReplaceAllString(s, ""))
}

// Phone extracts the digits of s and recovers the canonical mobile form.
// Digit runs that lost their leading zero or prefix are padded back by length.
func Phone(s string) string {
	digits := nonDigit.ReplaceAllString(Clean(s), "")
	n := len(digits)
	short := MobilePrefix[1:]

	switch {
	case strings.HasPrefix(digits, MobilePrefix) && (n == 10 || n == 11):
		return digits
	case strings.HasPrefix(digits, short) && (n == 9 || n == 10):
		return "0" + digits
	case n == 7 || n == 8:
		return MobilePrefix + digits
	}
	return ""
}

// Address prefers the contents of a parenthesized run of at least five
// characters, then keeps Hangul, ASCII letters and digits.
func Address(s string) string {
	s = Clean(strings.TrimSpace(s))
	if m := parenAddress.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	return strings.ToUpper(nonWord.ReplaceAllString(s, ""))
}

var (
	parenGroup   = regexp.MustCompile(`\(([^)]+)\)`)
	bracketGroup = regexp.MustCompile(`\[([^\]]+)\]`)
	anyDigit     = regexp.MustCompile(`[0-9]`)
)

// NameVariants expands a spreadsheet name cell into its plausible spellings:
// the whole cell, names in parentheses or brackets, the part outside them,
// and whitespace separated parts. Every variant containing digits is followed
// by its digit-stripped form. Duplicates are dropped.
func NameVariants(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(raw string) {
		n := Name(raw)
		if n == "" || seen[n] {
			return
		}
		seen[n] = true
		out = append(out, n)
		if stripped := anyDigit.ReplaceAllString(n, ""); stripped != "" && !seen[stripped] {
			seen[stripped] = true
			out = append(out, stripped)
		}
	}

	add(s)
	for _, m := range parenGroup.FindAllStringSubmatch(s, -1) {
		add(m[1])
	}
	for _, m := range bracketGroup.FindAllStringSubmatch(s, -1) {
		add(m[1])
	}
	add(stripGroups(s))

	if parts := strings.Fields(s); len(parts) > 1 {
		for _, part := range parts {
			add(stripGroups(part))
		}
	}
	return out
}

func stripGroups(s string) string {
	s = parenGroup.ReplaceAllString(s, "")
	return bracketGroup.ReplaceAllString(s, "")
}
