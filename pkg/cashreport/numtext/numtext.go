// Package numtext parses and renders numbers written the Brazilian way:
// "." groups thousands and "," marks the decimal point.
package numtext

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Unavailable is rendered in place of a figure that could not be resolved.
const Unavailable = "—"

// grouped accepts "1.234.567,89"; plain accepts "1234567,89". Both allow a sign.
var (
	grouped = regexp.MustCompile(`^[+-]?\d{1,3}(\.\d{3})+(,\d+)?$`)
	plain   = regexp.MustCompile(`^[+-]?\d+(,\d+)?$`)
)

// Parse coerces locale-formatted text to a number. Surrounding blanks and a
// leading "R$" currency marker are ignored. Any other shape reports false.
func Parse(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	if s == "" {
		return 0, false
	}
	if !grouped.MatchString(s) && !plain.MatchString(s) {
		return 0, false
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Format renders v with two fractional digits, e.g. 1234.5 as "1.234,50".
func Format(v float64) string {
	return humanize.FormatFloat("#.###,##", v)
}

// Money renders a currency figure, or Unavailable when v is nil.
func Money(v *float64) string {
	if v == nil {
		return Unavailable
	}
	return "R$ " + Format(*v)
}
