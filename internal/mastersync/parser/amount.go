package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Whole units, optionally grouped in thousands by "." or ",".
var quantityRe = regexp.MustCompile(`^(\d+|\d{1,3}([.,]\d{3})+)$`)

// ParseQuantity reads a stock cell. "1.000" and "1,000" are a thousand;
// fractions such as "1.5" or "2,5", negatives and other text are rejected.
// An empty cell is zero.
func ParseQuantity(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	if !quantityRe.MatchString(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.NewReplacer(".", "", ",", "").Replace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseAmount reads a currency cell such as "Rp 12.500" or "12,500". Every
// rune other than digits is dropped, so both period and comma act as
// separators; a minus before the first digit makes the value negative.
// Empty or digit-free input yields zero.
func ParseAmount(s string) decimal.Decimal {
	var b strings.Builder
	neg := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			neg = true
		}
	}
	if b.Len() == 0 {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero
	}
	if neg {
		d = d.Neg()
	}
	return d
}
