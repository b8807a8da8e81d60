package youtube

import (
	"regexp"
	"strings"
)

var (
	regionCodeRe = regexp.MustCompile(`^[A-Z]{2}$`)
	keywordRe    = regexp.MustCompile(`[^\s"]+|"[^"]*"`)
)

// ValidRegionCode reports whether code is a two-letter uppercase ISO
// 3166-1 region code. Anything else means a global (regionless) call.
func ValidRegionCode(code string) bool {
	return regionCodeRe.MatchString(code)
}

// ParseBrandingKeywords splits the branding settings keyword string into
// individual keywords. Quoted phrases stay together, with the surrounding
// quotes removed.
func ParseBrandingKeywords(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	matches := keywordRe.FindAllString(raw, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.Trim(m, `"`)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}
