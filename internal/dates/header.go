package dates

import (
	"strings"
	"time"
)

// ParseHeaderDate parses a standalone date string (statement period
// bounds and similar header values) against the profile's format list.
// hasYear reports whether the matched layout carried a year; callers
// resolve year-less values against a reference year.
func ParseHeaderDate(formats []string, value string) (date time.Time, hasYear, ok bool) {
	cleaned := ordinalPattern.ReplaceAllString(strings.TrimSpace(value), "$1")
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	for _, layout := range formats {
		layoutUse := layout
		candidate := cleaned
		if strings.Contains(layout, "/") {
			layoutUse = normalizeNumeric(layout)
			candidate = normalizeNumeric(cleaned)
		}
		parsed, err := time.Parse(layoutUse, candidate)
		if err != nil {
			continue
		}
		return parsed, layoutHasYear(layout), true
	}
	return time.Time{}, false, false
}
