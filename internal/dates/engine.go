// Package dates parses transaction dates in the forms banks actually
// print: ordinal suffixes, year-less dates resolved against the
// statement period, and split-year dates where the final year digit
// lands on a later line.
package dates

import (
	"regexp"
	"strings"
	"time"

	"bank-statement-engine/internal/models"
	"bank-statement-engine/internal/profile"
	"bank-statement-engine/pkg/logger"
)

var (
	ordinalPattern   = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	splitDatePattern = regexp.MustCompile(`^\s*(\d{1,2}/\d{1,2}/\d{3})(?:\s+(.*))?$`)
	yearDigitPattern = regexp.MustCompile(`^\s*(\d)(?:\s+(.*))?$`)
	fullNumericDate  = regexp.MustCompile(`^\s*\d{1,2}/\d{1,2}/\d{4}`)
)

// Match is a successfully parsed date together with the text it
// consumed and anything left on the line after it.
type Match struct {
	Date      time.Time
	Matched   string
	Remainder string
	CrossYear bool
	Warning   *models.Warning
}

// Engine parses dates per the bank profile's format list and keeps the
// split-year state: a partial DD/MM/YYY prefix waiting for its final
// digit. State resets on period boundaries.
type Engine struct {
	profile *profile.BankProfile
	logger  logger.Logger

	periodStart *time.Time
	periodEnd   *time.Time

	partialDate      string
	pendingYearDigit bool
}

// NewEngine creates a date engine for one parse.
func NewEngine(p *profile.BankProfile, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		profile: p,
		logger:  log.WithComponent("date_engine"),
	}
}

// SetPeriod installs the statement period used for year inference.
func (e *Engine) SetPeriod(start, end *time.Time) {
	e.periodStart = start
	e.periodEnd = end
}

// Reset clears split-year state. Called on period boundaries.
func (e *Engine) Reset() {
	e.partialDate = ""
	e.pendingYearDigit = false
}

// PendingYearDigit reports whether a split date awaits its final digit.
func (e *Engine) PendingYearDigit() bool {
	return e.pendingYearDigit
}

// MatchFull tries to parse a complete date at the start of the line. A
// full date always wins over any pending year-digit completion; matching
// one abandons the partial.
func (e *Engine) MatchFull(text string) (*Match, bool) {
	match, ok := e.parseLeading(text)
	if !ok {
		return nil, false
	}
	// Rule: a new date wins over state completion.
	if e.pendingYearDigit {
		e.logger.WithField("partial", e.partialDate).Debug("Abandoning partial date, new date matched")
		e.Reset()
	}
	return match, true
}

// MatchSplit tries to recognize a split-year date prefix (DD/MM/YYY)
// at the start of the line. Only banks that print them opt in via the
// profile. A line carrying a full DD/MM/YYYY date never matches here.
func (e *Engine) MatchSplit(text string) (prefix, remainder string, ok bool) {
	if !e.profile.SplitYearDates {
		return "", "", false
	}
	if fullNumericDate.MatchString(text) {
		return "", "", false
	}
	m := splitDatePattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// BeginSplit records a split-date prefix and arms year-digit completion.
func (e *Engine) BeginSplit(prefix string) {
	e.partialDate = prefix
	e.pendingYearDigit = true
}

// CompleteWithDigit consumes the single leading digit of the line to
// finish the pending split date. Trailing text on the same line is
// returned for re-queueing. Fails when the line does not start with a
// standalone digit.
func (e *Engine) CompleteWithDigit(text string) (*Match, string, bool) {
	if !e.pendingYearDigit {
		return nil, "", false
	}
	m := yearDigitPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, "", false
	}

	full := e.partialDate + m[1]
	e.Reset()

	date, err := time.Parse("2/1/2006", normalizeNumeric(full))
	if err != nil {
		e.logger.WithField("date", full).Warn("Completed split date failed to parse")
		w := models.NewWarning(models.WarnUnparseableDate, "completed split date %q failed to parse", full)
		return &Match{Warning: &w}, m[2], false
	}

	return &Match{Date: date, Matched: full}, m[2], true
}

// parseLeading walks the profile's date formats in order, matching each
// against the leading fields of the line. Ordinal suffixes are stripped
// before parsing.
func (e *Engine) parseLeading(text string) (*Match, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}

	fields := strings.Fields(trimmed)

	for _, layout := range e.profile.DateFormats {
		layoutFields := len(strings.Fields(layout))
		if layoutFields == 0 || layoutFields > len(fields) {
			continue
		}

		candidate := strings.Join(fields[:layoutFields], " ")
		// The remainder keeps the original spacing so re-queued
		// fragments can be re-anchored onto page coordinates.
		remainder := textAfterFields(text, layoutFields)
		cleaned := ordinalPattern.ReplaceAllString(candidate, "$1")
		layoutUse := layout
		if strings.Contains(layout, "/") {
			// Normalize both sides to unpadded day/month so one layout
			// covers "08/08/2024" and "8/8/2024".
			cleaned = normalizeNumeric(cleaned)
			layoutUse = normalizeNumeric(layout)
		}

		parsed, err := time.Parse(layoutUse, cleaned)
		if err != nil {
			continue
		}

		match := &Match{
			Matched:   candidate,
			Remainder: remainder,
		}

		if layoutHasYear(layout) {
			match.Date = parsed
			return match, true
		}

		date, crossYear, warning := e.inferYear(parsed.Day(), parsed.Month())
		match.Date = date
		match.CrossYear = crossYear
		match.Warning = warning
		return match, true
	}

	return nil, false
}

// textAfterFields returns the text following the first n
// whitespace-separated fields, left-trimmed but otherwise unaltered.
func textAfterFields(text string, n int) string {
	i := 0
	for k := 0; k < n; k++ {
		for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
			i++
		}
		for i < len(text) && text[i] != ' ' && text[i] != '\t' {
			i++
		}
	}
	return strings.TrimLeft(text[i:], " \t")
}

func layoutHasYear(layout string) bool {
	return strings.Contains(layout, "2006") || strings.Contains(layout, "06")
}

// normalizeNumeric pads d/m/yyyy forms so a single "2/1/2006" layout
// covers both padded and unpadded statements.
func normalizeNumeric(s string) string {
	parts := strings.Split(s, "/")
	for i, part := range parts {
		parts[i] = strings.TrimLeft(part, "0")
		if parts[i] == "" {
			parts[i] = "0"
		}
	}
	return strings.Join(parts, "/")
}

// inferYear resolves a year-less date against the statement period:
// try the period's start and end years and take the first that falls
// inside the period; a Nov/Dec date on a statement starting Jan/Feb
// belongs to the previous year; anything else defaults to the period
// start year with a warning.
func (e *Engine) inferYear(day int, month time.Month) (time.Time, bool, *models.Warning) {
	if e.periodStart == nil {
		// No period known. Keep the parse deterministic: year 1 stands
		// in and the caller records the warning.
		w := models.NewWarning(models.WarnUnparseableDate,
			"date %d %s has no year and no statement period is known", day, month)
		return time.Date(1, month, day, 0, 0, 0, 0, time.UTC), false, &w
	}

	startYear := e.periodStart.Year()
	years := []int{startYear}
	if e.periodEnd != nil && e.periodEnd.Year() != startYear {
		years = append(years, e.periodEnd.Year())
	}

	for _, year := range years {
		candidate, ok := makeDate(year, month, day)
		if !ok {
			continue
		}
		if e.withinPeriod(candidate) {
			return candidate, false, nil
		}
	}

	// Cross-year inference: statement opens in Jan/Feb but the row is
	// from Nov/Dec of the year before.
	if (e.periodStart.Month() == time.January || e.periodStart.Month() == time.February) &&
		(month == time.November || month == time.December) {
		candidate, ok := makeDate(startYear-1, month, day)
		if ok {
			w := models.NewWarning(models.WarnCrossYear,
				"date %d %s resolved to previous year %d (statement opens %s)",
				day, month, startYear-1, e.periodStart.Format("Jan 2006"))
			return candidate, true, &w
		}
	}

	// Feb 29 may only be valid in one candidate year; if the period
	// start year works, adopt it silently.
	if month == time.February && day == 29 {
		if candidate, ok := makeDate(startYear, month, day); ok {
			return candidate, false, nil
		}
	}

	candidate, ok := makeDate(startYear, month, day)
	if !ok {
		w := models.NewWarning(models.WarnUnparseableDate,
			"date %d %s is not valid in year %d", day, month, startYear)
		return time.Time{}, false, &w
	}

	w := models.NewWarning(models.WarnCrossYear,
		"date %s falls outside the statement period; defaulted to %d",
		candidate.Format("2006-01-02"), startYear)
	return candidate, false, &w
}

func (e *Engine) withinPeriod(date time.Time) bool {
	if e.periodStart != nil && date.Before(*e.periodStart) {
		return false
	}
	if e.periodEnd != nil && date.After(*e.periodEnd) {
		return false
	}
	return true
}

// makeDate builds a date and rejects normalized overflow (Feb 30 etc).
func makeDate(year int, month time.Month, day int) (time.Time, bool) {
	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if date.Month() != month || date.Day() != day {
		return time.Time{}, false
	}
	return date, true
}
