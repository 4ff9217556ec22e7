package records

import (
	"strconv"
	"strings"
)

// currencyGlyphs are stripped before numeric parsing. The won sign shows
// up both as U+20A9 and as the hangul word in OCR output.
var currencyGlyphs = []string{"₩", "$", "€", "¥", "£", "원", "KRW", "USD"}

// CoerceNumber parses a numeric-looking string: optional sign, digits with
// optional thousand separators, optional decimal part, currency glyphs
// stripped. Returns the value and whether the string was numeric.
func CoerceNumber(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, false
	}
	for _, g := range currencyGlyphs {
		t = strings.ReplaceAll(t, g, "")
	}
	t = strings.TrimSpace(t)

	neg := false
	switch {
	case strings.HasPrefix(t, "-"):
		neg = true
		t = t[1:]
	case strings.HasPrefix(t, "+"):
		t = t[1:]
	}
	if t == "" {
		return 0, false
	}

	// Thousand separators must group digits in threes after the first
	// group; a bare "1,23" is not numeric.
	if strings.Contains(t, ",") {
		intPart := t
		var fracPart string
		if i := strings.IndexByte(t, '.'); i >= 0 {
			intPart, fracPart = t[:i], t[i+1:]
		}
		groups := strings.Split(intPart, ",")
		if len(groups[0]) == 0 || len(groups[0]) > 3 {
			return 0, false
		}
		for _, g := range groups[1:] {
			if len(g) != 3 || !allDigits(g) {
				return 0, false
			}
		}
		if !allDigits(groups[0]) {
			return 0, false
		}
		t = strings.Join(groups, "")
		if fracPart != "" {
			t = t + "." + fracPart
		}
	}

	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// CollapseSpaces trims a column name and collapses interior whitespace
// runs to a single space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
