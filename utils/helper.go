package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseDecimal converts a string to a decimal.Decimal value.
func ParseDecimal(value string) (decimal.Decimal, error) {
	// Remove any whitespace and check for empty strings
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}

	// batch files carry thousands separators
	value = strings.ReplaceAll(value, ",", "")

	dec, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}

	return dec, nil
}

// DecimalOrZero is ParseDecimal for columns where an empty or malformed value means zero.
func DecimalOrZero(value string) decimal.Decimal {
	dec, err := ParseDecimal(value)
	if err != nil {
		return decimal.Zero
	}
	return dec
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/06",
	"1/2/2006",
}

// ParseDate accepts the date layouts seen in batch files. Anything else is nil.
func ParseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

func NilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func IntPtr(i int) *int {
	return &i
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
