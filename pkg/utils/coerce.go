// Package utils provides cell-level coercion helpers for heterogeneous
// tabular input. A malformed cell collapses to the field's default value and
// never produces an error, so a single bad cell cannot abort a batch.
package utils

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// currency symbols and separators stripped before numeric parsing.
const numericNoise = "$€£₹%, "

// CoerceFloat parses a raw cell as a float64, tolerating currency symbols,
// thousands separators and surrounding whitespace. Unparseable or negative
// input collapses to def.
func CoerceFloat(raw string, def float64) float64 {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return def
	}
	cleaned = strings.Map(func(r rune) rune {
		if strings.ContainsRune(numericNoise, r) {
			return -1
		}
		return r
	}, cleaned)

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return def
	}
	return v
}

// CoerceCount parses a raw cell as a non-negative integer count. A float cell
// such as "3.0" is accepted and truncated. Unparseable input collapses to def.
func CoerceCount(raw string, def int) int {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return def
	}
	if v, err := strconv.Atoi(cleaned); err == nil && v >= 0 {
		return v
	}
	if f, err := strconv.ParseFloat(cleaned, 64); err == nil && f >= 0 && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int(f)
	}
	return def
}

// CoerceDuration parses a raw cell as a positive day count, collapsing
// anything else to def.
func CoerceDuration(raw string, def int) int {
	v := CoerceCount(raw, def)
	if v <= 0 {
		return def
	}
	return v
}

// dateLayouts are tried in order when coercing a date cell. The list covers
// the formats observed across public procurement exports.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"02 Jan 2006",
	"Jan 2, 2006",
}

// CoerceDate parses a raw cell as a calendar date. An unparseable cell yields
// the zero time, which downstream feature derivation treats as "missing".
func CoerceDate(raw string) time.Time {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Clip bounds v to the closed interval [lo, hi].
func Clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClipInt bounds v to the closed interval [lo, hi].
func ClipInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
