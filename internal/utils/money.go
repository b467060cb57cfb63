package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidAmount is returned by ParseMajor for input that is not a
// non-negative amount with at most two decimals.
var ErrInvalidAmount = errors.New("invalid amount")

// FormatMinor renders an amount in minor units as a major-unit decimal
// string, e.g. 480000 -> "4800.00".
func FormatMinor(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// ParseMajor converts a decimal major-unit string such as "4800" or
// "4800.5" to minor units.
func ParseMajor(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || (hasFrac && (frac == "" || len(frac) > 2)) {
		return 0, ErrInvalidAmount
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w < 0 {
		return 0, ErrInvalidAmount
	}
	var f int64
	if hasFrac {
		if len(frac) == 1 {
			frac += "0"
		}
		f, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || f < 0 {
			return 0, ErrInvalidAmount
		}
	}
	if w > (1<<62)/100 {
		return 0, ErrInvalidAmount
	}
	return w*100 + f, nil
}
