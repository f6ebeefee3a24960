// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Value grammars for the closed field kinds. The extraction adapter uses
// these to validate backend output at the boundary; the evaluator uses them
// for tolerance-aware matching. Per prd003-schema R3.

var (
	amountNumberRe  = regexp.MustCompile(`[0-9][0-9,]*(?:\.[0-9]+)?`)
	percentNumberRe = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*(%|percent|bps|basis points?|x)`)
)

// scale suffixes accepted in amount values ("$1.25 billion").
var amountScales = []struct {
	word  string
	scale float64
}{
	{"billion", 1e9},
	{"bn", 1e9},
	{"million", 1e6},
	{"mm", 1e6},
	{"thousand", 1e3},
}

// ParseAmount extracts the numeric value from a monetary amount string such
// as "$1,250,000,000" or "US$500 million". Returns false when no number is
// present.
func ParseAmount(s string) (float64, bool) {
	match := amountNumberRe.FindString(s)
	if match == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
	if err != nil {
		return 0, false
	}

	lower := strings.ToLower(s)
	for _, sc := range amountScales {
		if strings.Contains(lower, sc.word) {
			return n * sc.scale, true
		}
	}
	return n, true
}

// ParsePercent extracts the numeric rate from a percentage-like string:
// "4.75%", "SOFR + 2.50%", "275 bps", or a leverage multiple "4.75x".
// Basis points normalize to percent. Returns false when no rate is present.
func ParsePercent(s string) (float64, bool) {
	m := percentNumberRe.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		// A bare number ("4.75") is accepted as a stated rate.
		match := amountNumberRe.FindString(s)
		if match == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(strings.ReplaceAll(match, ",", ""), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if strings.HasPrefix(m[2], "b") {
		return n / 100, true
	}
	return n, true
}

// dateLayouts are the formats credit agreements and backends state dates in.
var dateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"1/2/2006",
	"01/02/2006",
}

// ParseDate parses a date value in any accepted layout. Returns false when
// the string is not a recognizable date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidValue reports whether a value string is well-formed for a field kind.
// FreeText accepts any non-empty string; Missing requires an empty value.
func ValidValue(kind FieldKind, value string) bool {
	switch kind {
	case KindAmount:
		_, ok := ParseAmount(value)
		return ok
	case KindPercentage:
		_, ok := ParsePercent(value)
		return ok
	case KindDate:
		_, ok := ParseDate(value)
		return ok
	case KindFreeText:
		return strings.TrimSpace(value) != ""
	case KindMissing:
		return value == ""
	}
	return false
}
