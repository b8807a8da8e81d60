package discovery

import (
	"slices"
	"strconv"
	"strings"
)

// ParseNumberWithSuffix parses a human-entered count with an optional
// k, m, or b suffix ("10k" is 10000, "1.5m" is 1500000). Empty or
// unparseable input yields 0, which filters treat as unconstrained.
func ParseNumberWithSuffix(input string) int64 {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return 0
	}
	mult := float64(1)
	switch s[len(s)-1] {
	case 'k':
		mult = 1_000
	case 'm':
		mult = 1_000_000
	case 'b':
		mult = 1_000_000_000
	}
	if mult != 1 {
		s = s[:len(s)-1]
	}
	num, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(num * mult)
}

// normalizeCodes uppercases and trims country codes, dropping empties.
// Fingerprinting, region selection and filtering all go through this so a
// search spelled "vn" behaves exactly like "VN".
func normalizeCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// parseDays parses a plain day count, treating bad input as 0.
func parseDays(input string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// applyFilters keeps channels satisfying every bound in params. A zero
// bound never constrains, and country matching is exact code membership.
func applyFilters(channels []Channel, params SearchParams) []Channel {
	minSubs := ParseNumberWithSuffix(params.MinSubscribers)
	maxSubs := ParseNumberWithSuffix(params.MaxSubscribers)
	minAge := parseDays(params.MinAgeDays)
	maxAge := parseDays(params.MaxAgeDays)
	codes := normalizeCodes(params.CountryCodes)

	out := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		subOk := (minSubs == 0 || ch.Subscribers >= minSubs) && (maxSubs == 0 || ch.Subscribers <= maxSubs)
		ageOk := (minAge == 0 || ch.AgeDays >= minAge) && (maxAge == 0 || ch.AgeDays <= maxAge)
		countryOk := len(codes) == 0 || slices.Contains(codes, ch.Country.Code)
		if subOk && ageOk && countryOk {
			out = append(out, ch)
		}
	}
	return out
}
