// Package statemachine drives the per-line event loop that turns
// reconstructed lines into emitted transactions: noise filtering, date
// joining, FX blocks, continuation handling and period breaks.
package statemachine

import (
	"regexp"
	"strings"

	"bank-statement-engine/internal/profile"
)

// universalSkipPatterns is the small hand-picked set of noise lines
// every statement carries: page markers, regulator boilerplate, account
// header labels and summary total rows. Bank-specific noise lives in the
// profile's skip_patterns and is never promoted into this set.
var universalSkipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^-+\s*page\s+\d+\s*-+$`),
	regexp.MustCompile(`(?i)^\s*page\s+\d+(\s+of\s+\d+)?\s*$`),
	regexp.MustCompile(`(?i)financial\s+services\s+compensation\s+scheme`),
	regexp.MustCompile(`(?i)\bFSCS\b`),
	regexp.MustCompile(`(?i)financial\s+conduct\s+authority`),
	regexp.MustCompile(`(?i)prudential\s+regulation\s+authority`),
	regexp.MustCompile(`(?i)authorised\s+by\s+the|regulated\s+by\s+the`),
	regexp.MustCompile(`(?i)^\s*continued\s+(overleaf|on\s+next\s+page)`),
	regexp.MustCompile(`(?i)^\s*date\s+description\b`),
	regexp.MustCompile(`(?i)^\s*total\s+(paid\s+in|paid\s+out|money\s+in|money\s+out|withdrawn|deposits|outgoings)\b`),
	regexp.MustCompile(`(?i)^\s*(your\s+)?account\s+(name|summary)\b`),
}

// SkipFilter classifies a line as transactional or noise using the
// universal set plus the profile's own patterns. Period-boundary and
// summary-total capture run before this filter, so skipped summary rows
// still contribute statement metadata.
type SkipFilter struct {
	profile *profile.BankProfile
}

// NewSkipFilter creates a filter for one bank.
func NewSkipFilter(p *profile.BankProfile) *SkipFilter {
	return &SkipFilter{profile: p}
}

// Skip reports whether the line is noise.
func (f *SkipFilter) Skip(text string) bool {
	if strings.TrimSpace(text) == "" {
		return true
	}
	for _, pattern := range universalSkipPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	for _, pattern := range f.profile.SkipMatchers() {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}
