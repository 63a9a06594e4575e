package utils

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/spidr/estimate-form/pkg/models"
)

const (
	maxContactDigits = 10
	maxPinDigits     = 16
	pinGroupSize     = 4
)

// Longest numeric prefix accepted when parsing an estimate
var numericPrefix = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

var usdPrinter = message.NewPrinter(language.AmericanEnglish)

// Normalize reformats raw input for the given field into its display form.
// Phone and PIN are rebuilt from their digits; every other field is returned
// unchanged.
func Normalize(field, raw string) string {
	switch field {
	case models.FieldContact:
		return FormatContact(raw)
	case models.FieldSpidrPin:
		return FormatPin(raw)
	default:
		return raw
	}
}

// FormatContact formats up to 10 digits as (DDD) DDD-DDDD, progressively
func FormatContact(raw string) string {
	digits := DigitsOnly(raw, maxContactDigits)

	var b strings.Builder
	for i, r := range digits {
		switch i {
		case 0:
			b.WriteByte('(')
		case 3:
			b.WriteString(") ")
		case 6:
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatPin groups up to 16 digits in blocks of four separated by '-'
func FormatPin(raw string) string {
	digits := DigitsOnly(raw, maxPinDigits)

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && i%pinGroupSize == 0 {
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DigitsOnly drops every non-digit character and keeps at most limit digits
func DigitsOnly(raw string, limit int) string {
	var b strings.Builder
	n := 0
	for _, r := range raw {
		if n == limit {
			break
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			n++
		}
	}
	return b.String()
}

// ParseEstimate reads the leading number of raw. Anything that does not start
// with a number yields 0. Negative values are returned as is.
func ParseEstimate(raw string) float64 {
	trimmed := strings.TrimLeftFunc(raw, unicode.IsSpace)
	prefix := numericPrefix.FindString(trimmed)
	if prefix == "" {
		return 0
	}

	v, err := strconv.ParseFloat(prefix, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	if math.IsNaN(v) || v == 0 {
		return 0
	}
	return v
}

// FormatUSD renders v as en-US currency text, e.g. $1,234.50 or -$5.00.
// Cents are rounded half away from zero on the shortest decimal form of v,
// so 2.675 becomes $2.68.
func FormatUSD(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	if math.IsInf(v, 1) {
		return sign + "$∞"
	}

	cents := decimal.NewFromFloat(v).Round(2)
	if cents.IsZero() {
		sign = ""
	}
	return sign + "$" + usdPrinter.Sprintf("%.2f", cents.InexactFloat64())
}
