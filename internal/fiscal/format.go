package fiscal

import (
	"strconv"
	"strings"
)

// vatLetters maps percentage rates onto the printer's tax groups.
var vatLetters = map[string]string{
	"23": "A",
	"8":  "B",
	"5":  "C",
	"0":  "D",
	"ZW": "E",
}

// vatGroup returns the tax group letter for a rate such as "23", "8.0", "8%" or "zw".
// An empty rate is the standard rate; unknown rates are passed through for the device to
// reject.
func vatGroup(rate string) string {
	r := strings.ToUpper(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rate), "%")))
	if r == "" {
		return "A"
	}
	if len(r) == 1 && r[0] >= 'A' && r[0] <= 'G' {
		return r
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(r, ",", "."), 64); err == nil {
		r = strconv.FormatFloat(f, 'f', -1, 64)
	}
	if g, ok := vatLetters[r]; ok {
		return g
	}
	return r
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// formatQuantity prints up to three decimals without trailing zeros.
func formatQuantity(q float64) string {
	s := strconv.FormatFloat(q, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// sanitize replaces bytes that cannot appear inside a field.
func sanitize(s string, sep byte) string {
	return strings.Map(func(r rune) rune {
		if r == rune(sep) {
			return ' '
		}
		if r < 0x20 || r == 0x7F {
			return ' '
		}
		return r
	}, s)
}
