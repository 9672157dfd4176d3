package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	amountPattern = regexp.MustCompile(`\d[\d\s\x{00a0}\x{202f}\x{2009}]*`)
	numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	intPattern    = regexp.MustCompile(`\d+`)

	durationPattern = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*([\p{L}]*)`)
)

// ParsePrice returns the first amount in a price string, ignoring thousands
// separators: "от 2 500 ₽" yields 2500.
func ParsePrice(s string) (int, bool) {
	m := amountPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, m)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseRating returns the decimal rating in s, accepting "4.9" and "4,9".
func ParseRating(s string) (float64, bool) {
	return parseDecimal(numberPattern.FindString(s))
}

// ParseReviews returns the review count in strings like "128 отзывов".
func ParseReviews(s string) (int, bool) {
	m := intPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseDuration converts a duration label to hours. Every "<number> <unit>"
// pair is summed, so "1 час 30 минут" yields 1.5. Minutes and days are
// converted; a number without a recognised unit is taken as hours.
func ParseDuration(s string) (float64, bool) {
	var total float64
	found := false
	for _, m := range durationPattern.FindAllStringSubmatch(strings.ToLower(s), -1) {
		v, ok := parseDecimal(m[1])
		if !ok {
			continue
		}
		found = true
		unit := m[2]
		switch {
		case strings.HasPrefix(unit, "мин"):
			total += v / 60
		case strings.HasPrefix(unit, "дн"), strings.HasPrefix(unit, "ден"), strings.HasPrefix(unit, "сут"):
			total += v * 24
		default:
			total += v
		}
	}
	return total, found
}

func parseDecimal(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
