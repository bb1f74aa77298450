// Package profile defines the declarative per-bank configuration the
// engine is driven by. Banks differ only in data: date formats, column
// names, boundary patterns, classification strategy and tolerances. A
// profile is immutable once registered.
package profile

import (
	"fmt"
	"regexp"
	"strings"

	"bank-statement-engine/internal/models"
	"bank-statement-engine/pkg/errors"
)

// ClassificationStrategy selects how amounts are assigned to money-in /
// money-out / balance.
type ClassificationStrategy string

const (
	StrategyColumnPosition ClassificationStrategy = "column_position"
	StrategyTypeCode       ClassificationStrategy = "type_code"
	StrategyKeyword        ClassificationStrategy = "keyword"
	StrategyHybrid         ClassificationStrategy = "hybrid"
)

// Valid reports whether the strategy is one of the known variants.
func (s ClassificationStrategy) Valid() bool {
	switch s {
	case StrategyColumnPosition, StrategyTypeCode, StrategyKeyword, StrategyHybrid:
		return true
	}
	return false
}

// ColumnDefaults holds the fallback right-edge x-values used until the
// first header line is seen; later pages without a header keep the last
// header's geometry.
type ColumnDefaults struct {
	MoneyOutRightX float64 `yaml:"money_out_right_x"`
	MoneyInRightX  float64 `yaml:"money_in_right_x"`
	BalanceRightX  float64 `yaml:"balance_right_x"`
}

// ClassificationConfig carries the strategy-specific knobs.
type ClassificationConfig struct {
	MoneyInCodes              []string `yaml:"money_in_codes,omitempty"`
	MoneyOutCodes             []string `yaml:"money_out_codes,omitempty"`
	MoneyInKeywords           []string `yaml:"money_in_keywords,omitempty"`
	MoneyOutKeywords          []string `yaml:"money_out_keywords,omitempty"`
	TypeCodePositionThreshold float64  `yaml:"type_code_position_threshold,omitempty"`
}

// HeaderPatterns captures regexes used to pull statement metadata from
// header lines before transaction parsing begins. Each pattern's first
// capture group is the value; the period pattern carries two groups,
// start and end.
type HeaderPatterns struct {
	AccountNumber string `yaml:"account_number,omitempty"`
	SortCode      string `yaml:"sort_code,omitempty"`
	Holder        string `yaml:"account_holder,omitempty"`
	Period        string `yaml:"period,omitempty"`
	TotalIn       string `yaml:"total_in,omitempty"`
	TotalOut      string `yaml:"total_out,omitempty"`
	ClosingTotal  string `yaml:"closing_total,omitempty"`
}

// BankProfile is the full declarative descriptor for one bank.
type BankProfile struct {
	Name        string   `yaml:"name"`
	Currency    string   `yaml:"currency,omitempty"`
	Identifiers []string `yaml:"identifiers"`

	// Date handling. DateFormats are Go reference layouts tried in
	// order; layouts without a year engage period-based inference.
	// SplitYearDates marks banks that print DD/MM/YYY with the final
	// year digit on a later line.
	DateFormats    []string `yaml:"date_formats"`
	SplitYearDates bool     `yaml:"split_year_dates,omitempty"`

	PeriodBoundaryPattern string `yaml:"period_boundary_pattern"`

	ColumnNames             []string       `yaml:"column_names,omitempty"`
	DefaultColumnThresholds ColumnDefaults `yaml:"default_column_thresholds"`

	Strategy       ClassificationStrategy `yaml:"classification_strategy"`
	Classification ClassificationConfig   `yaml:"classification_config,omitempty"`

	SkipPatterns []string `yaml:"skip_patterns,omitempty"`
	FXMarkers    []string `yaml:"fx_markers,omitempty"`

	AllowMissingBalance bool `yaml:"allow_missing_balance,omitempty"`
	PermitBothAmounts   bool `yaml:"permit_both_amounts,omitempty"`

	XTolerance float64 `yaml:"x_tolerance,omitempty"`
	YTolerance float64 `yaml:"y_tolerance,omitempty"`

	HeaderScanLines      int  `yaml:"header_scan_lines,omitempty"`
	RequireHeaderPerPage bool `yaml:"require_header_per_page,omitempty"`

	TransactionTypeMap map[string]string `yaml:"transaction_type_map,omitempty"`
	Headers            HeaderPatterns    `yaml:"header_patterns,omitempty"`

	compiled *compiledPatterns
}

// compiledPatterns holds the regexes compiled once at registration.
type compiledPatterns struct {
	periodBoundary *regexp.Regexp
	skip           []*regexp.Regexp
	identifiers    []string
	typeMap        map[string]models.TransactionType
	headers        map[string]*regexp.Regexp
}

const (
	defaultYTolerance      = 1.2
	defaultXTolerance      = 1.0
	defaultHeaderScanLines = 8
	defaultCurrency        = "GBP"
)

// Validate checks the descriptor, applies defaults and compiles every
// pattern. A profile that fails validation is rejected at registration;
// the engine never sees a half-valid profile.
func (p *BankProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.ProfileError(errors.CodeProfileInvalid, p.Name, fmt.Errorf("name is required"))
	}
	if len(p.DateFormats) == 0 {
		return errors.ProfileError(errors.CodeProfileInvalid, p.Name, fmt.Errorf("at least one date format is required"))
	}
	if !p.Strategy.Valid() {
		return errors.ProfileError(errors.CodeProfileInvalid, p.Name,
			fmt.Errorf("unknown classification strategy %q", p.Strategy))
	}
	if p.Strategy == StrategyTypeCode && len(p.Classification.MoneyInCodes) == 0 && len(p.Classification.MoneyOutCodes) == 0 {
		return errors.ProfileError(errors.CodeProfileInvalid, p.Name,
			fmt.Errorf("type_code strategy requires money_in_codes or money_out_codes"))
	}

	if p.Currency == "" {
		p.Currency = defaultCurrency
	}
	if p.YTolerance <= 0 {
		p.YTolerance = defaultYTolerance
	}
	if p.XTolerance <= 0 {
		p.XTolerance = defaultXTolerance
	}
	if p.HeaderScanLines <= 0 {
		p.HeaderScanLines = defaultHeaderScanLines
	}

	compiled := &compiledPatterns{
		typeMap: make(map[string]models.TransactionType),
		headers: make(map[string]*regexp.Regexp),
	}

	if p.PeriodBoundaryPattern != "" {
		re, err := regexp.Compile("(?i)" + p.PeriodBoundaryPattern)
		if err != nil {
			return errors.ProfileError(errors.CodeProfileInvalid, p.Name,
				fmt.Errorf("period_boundary_pattern: %w", err))
		}
		compiled.periodBoundary = re
	}

	for _, pattern := range p.SkipPatterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return errors.ProfileError(errors.CodeProfileInvalid, p.Name,
				fmt.Errorf("skip_patterns %q: %w", pattern, err))
		}
		compiled.skip = append(compiled.skip, re)
	}

	for keyword, typeName := range p.TransactionTypeMap {
		txnType, err := models.ParseTransactionType(typeName)
		if err != nil {
			return errors.ProfileError(errors.CodeProfileInvalid, p.Name,
				fmt.Errorf("transaction_type_map %q: %w", keyword, err))
		}
		compiled.typeMap[strings.ToLower(keyword)] = txnType
	}

	for name, pattern := range map[string]string{
		"account_number": p.Headers.AccountNumber,
		"sort_code":      p.Headers.SortCode,
		"account_holder": p.Headers.Holder,
		"period":         p.Headers.Period,
		"total_in":       p.Headers.TotalIn,
		"total_out":      p.Headers.TotalOut,
		"closing_total":  p.Headers.ClosingTotal,
	} {
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return errors.ProfileError(errors.CodeProfileInvalid, p.Name,
				fmt.Errorf("header_patterns %s: %w", name, err))
		}
		compiled.headers[name] = re
	}

	for _, id := range p.Identifiers {
		compiled.identifiers = append(compiled.identifiers, strings.ToLower(id))
	}

	p.compiled = compiled
	return nil
}

// Validated reports whether Validate has run. Profiles are validated at
// registration; the engine re-validates only unregistered ones so that
// concurrent parses never mutate a shared profile.
func (p *BankProfile) Validated() bool {
	return p.compiled != nil
}

// PeriodBoundary returns the compiled brought-forward/carried-forward
// matcher, or nil when the bank has none.
func (p *BankProfile) PeriodBoundary() *regexp.Regexp {
	if p.compiled == nil {
		return nil
	}
	return p.compiled.periodBoundary
}

// SkipMatchers returns the compiled per-bank skip patterns.
func (p *BankProfile) SkipMatchers() []*regexp.Regexp {
	if p.compiled == nil {
		return nil
	}
	return p.compiled.skip
}

// HeaderMatcher returns the compiled header pattern by name, or nil.
func (p *BankProfile) HeaderMatcher(name string) *regexp.Regexp {
	if p.compiled == nil {
		return nil
	}
	return p.compiled.headers[name]
}

// DetectType scans the description (and type code, when present) against
// the profile's transaction_type_map. Longest keyword wins so that
// "card payment fee" resolves to the more specific entry.
func (p *BankProfile) DetectType(typeCode, description string) models.TransactionType {
	if p.compiled == nil || len(p.compiled.typeMap) == 0 {
		return models.TypeOther
	}
	if typeCode != "" {
		if txnType, ok := p.compiled.typeMap[strings.ToLower(typeCode)]; ok {
			return txnType
		}
	}

	// Longest keyword wins; ties break lexicographically so results stay
	// deterministic across runs.
	lower := strings.ToLower(description)
	best := models.TypeOther
	bestKeyword := ""
	for keyword, txnType := range p.compiled.typeMap {
		if !strings.Contains(lower, keyword) {
			continue
		}
		if len(keyword) > len(bestKeyword) ||
			(len(keyword) == len(bestKeyword) && keyword < bestKeyword) {
			best = txnType
			bestKeyword = keyword
		}
	}
	return best
}

// MatchesIdentifier reports whether the given lowercased header text
// contains one of the profile's identifier strings.
func (p *BankProfile) MatchesIdentifier(lowerHeaderText string) bool {
	if p.compiled == nil {
		return false
	}
	for _, id := range p.compiled.identifiers {
		if strings.Contains(lowerHeaderText, id) {
			return true
		}
	}
	return false
}

// IsFXCurrency reports whether the currency code is one the amount
// extractor must treat as foreign.
func (p *BankProfile) IsFXCurrency(code string) bool {
	upper := strings.ToUpper(code)
	for _, marker := range p.FXMarkers {
		if strings.ToUpper(marker) == upper {
			return true
		}
	}
	return false
}
