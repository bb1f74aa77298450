package dates

import (
	"testing"
	"time"

	"bank-statement-engine/internal/models"
	"bank-statement-engine/internal/profile"
)

func monzoStyleProfile(t *testing.T) *profile.BankProfile {
	t.Helper()
	p := &profile.BankProfile{
		Name:           "SplitBank",
		Identifiers:    []string{"split bank"},
		DateFormats:    []string{"02/01/2006"},
		SplitYearDates: true,
		Strategy:       profile.StrategyHybrid,
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("profile invalid: %v", err)
	}
	return p
}

func ukProfile(t *testing.T) *profile.BankProfile {
	t.Helper()
	p := &profile.BankProfile{
		Name:        "UKBank",
		Identifiers: []string{"uk bank"},
		DateFormats: []string{"2 Jan 2006", "02/01/2006", "2 Jan"},
		Strategy:    profile.StrategyColumnPosition,
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("profile invalid: %v", err)
	}
	return p
}

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestMatchFullFormats(t *testing.T) {
	e := NewEngine(ukProfile(t), nil)
	e.SetPeriod(datePtr(2024, 1, 9), datePtr(2024, 2, 7))

	tests := []struct {
		text      string
		wantDate  string
		remainder string
	}{
		{"15 Jan 2024 TESCO STORES 12.50", "2024-01-15", "TESCO STORES 12.50"},
		{"15/01/2024 TESCO", "2024-01-15", "TESCO"},
		{"9th Jan COSTA COFFEE", "2024-01-09", "COSTA COFFEE"},
		{"22 Jan", "2024-01-22", ""},
	}

	for _, tt := range tests {
		match, ok := e.MatchFull(tt.text)
		if !ok {
			t.Errorf("MatchFull(%q) did not match", tt.text)
			continue
		}
		if got := match.Date.Format("2006-01-02"); got != tt.wantDate {
			t.Errorf("MatchFull(%q) date = %s, want %s", tt.text, got, tt.wantDate)
		}
		if match.Remainder != tt.remainder {
			t.Errorf("MatchFull(%q) remainder = %q, want %q", tt.text, match.Remainder, tt.remainder)
		}
	}
}

func TestMatchFullRejectsNonDates(t *testing.T) {
	e := NewEngine(ukProfile(t), nil)

	for _, text := range []string{"TESCO STORES 12.50", "Balance brought forward", "4 extra", ""} {
		if _, ok := e.MatchFull(text); ok {
			t.Errorf("MatchFull(%q) matched, want no match", text)
		}
	}
}

func TestCrossYearInference(t *testing.T) {
	// Statement period 9 Jan 2024 - 7 Feb 2024. "28th Dec" belongs to
	// 2023 and records a cross-year warning.
	e := NewEngine(ukProfile(t), nil)
	e.SetPeriod(datePtr(2024, 1, 9), datePtr(2024, 2, 7))

	match, ok := e.MatchFull("28th Dec AMAZON PRIME")
	if !ok {
		t.Fatal("MatchFull did not match")
	}
	if got := match.Date.Format("2006-01-02"); got != "2023-12-28" {
		t.Errorf("date = %s, want 2023-12-28", got)
	}
	if !match.CrossYear {
		t.Error("expected cross-year flag")
	}
	if match.Warning == nil || match.Warning.Kind != models.WarnCrossYear {
		t.Errorf("expected cross_year_date warning, got %v", match.Warning)
	}
}

func TestYearInferenceSpanningPeriod(t *testing.T) {
	// Period 15 Dec 2024 - 5 Jan 2025: "28 Dec" is 2024, "2 Jan" is 2025.
	e := NewEngine(ukProfile(t), nil)
	e.SetPeriod(datePtr(2024, 12, 15), datePtr(2025, 1, 5))

	match, ok := e.MatchFull("28 Dec SHELL")
	if !ok || match.Date.Format("2006-01-02") != "2024-12-28" {
		t.Errorf("28 Dec resolved to %v, want 2024-12-28", match)
	}

	match, ok = e.MatchFull("2 Jan SHELL")
	if !ok || match.Date.Format("2006-01-02") != "2025-01-02" {
		t.Errorf("2 Jan resolved to %v, want 2025-01-02", match)
	}
}

func TestYearInferenceOutsidePeriodDefaults(t *testing.T) {
	e := NewEngine(ukProfile(t), nil)
	e.SetPeriod(datePtr(2024, 6, 1), datePtr(2024, 6, 30))

	match, ok := e.MatchFull("15 Mar REFUND")
	if !ok {
		t.Fatal("MatchFull did not match")
	}
	if got := match.Date.Year(); got != 2024 {
		t.Errorf("year = %d, want period start year 2024", got)
	}
	if match.Warning == nil {
		t.Error("expected a warning for a date outside the period")
	}
}

func TestSplitDateLifecycle(t *testing.T) {
	e := NewEngine(monzoStyleProfile(t), nil)
	e.SetPeriod(datePtr(2024, 8, 1), datePtr(2024, 8, 31))

	prefix, remainder, ok := e.MatchSplit("08/08/202")
	if !ok {
		t.Fatal("MatchSplit did not match split prefix")
	}
	if prefix != "08/08/202" || remainder != "" {
		t.Errorf("MatchSplit = (%q, %q)", prefix, remainder)
	}

	e.BeginSplit(prefix)
	if !e.PendingYearDigit() {
		t.Fatal("expected pending year digit")
	}

	match, trailing, ok := e.CompleteWithDigit("4  extra")
	if !ok {
		t.Fatal("CompleteWithDigit failed")
	}
	if got := match.Date.Format("2006-01-02"); got != "2024-08-08" {
		t.Errorf("completed date = %s, want 2024-08-08", got)
	}
	if trailing != "extra" {
		t.Errorf("trailing = %q, want \"extra\"", trailing)
	}
	if e.PendingYearDigit() {
		t.Error("pending flag should clear after completion")
	}
}

func TestSplitDateNotMatchedForFullDates(t *testing.T) {
	e := NewEngine(monzoStyleProfile(t), nil)

	if _, _, ok := e.MatchSplit("08/08/2024 Merchant"); ok {
		t.Error("full DD/MM/YYYY date must not match as split prefix")
	}
}

func TestNewDateWinsOverPendingDigit(t *testing.T) {
	// A line matching a full date while a year digit is pending is a new
	// date; the partial is abandoned.
	e := NewEngine(monzoStyleProfile(t), nil)
	e.SetPeriod(datePtr(2024, 8, 1), datePtr(2024, 8, 31))

	prefix, _, _ := e.MatchSplit("08/08/202")
	e.BeginSplit(prefix)

	match, ok := e.MatchFull("09/08/2024 Merchant")
	if !ok {
		t.Fatal("full date should match while digit pending")
	}
	if got := match.Date.Format("2006-01-02"); got != "2024-08-09" {
		t.Errorf("date = %s, want 2024-08-09", got)
	}
	if e.PendingYearDigit() {
		t.Error("pending state must be abandoned when a new date wins")
	}
}

func TestCompleteWithDigitRejectsNonDigitLines(t *testing.T) {
	e := NewEngine(monzoStyleProfile(t), nil)
	prefix, _, _ := e.MatchSplit("31/05/202")
	e.BeginSplit(prefix)

	if _, _, ok := e.CompleteWithDigit("Merchant name"); ok {
		t.Error("non-digit line must not complete the date")
	}
	if !e.PendingYearDigit() {
		t.Error("pending state should survive a non-digit line")
	}

	if _, _, ok := e.CompleteWithDigit("42.50 something"); ok {
		t.Error("a multi-digit number must not complete the date")
	}
}

func TestFeb29Inference(t *testing.T) {
	e := NewEngine(ukProfile(t), nil)
	e.SetPeriod(datePtr(2024, 2, 1), datePtr(2024, 3, 1))

	match, ok := e.MatchFull("29 Feb INTEREST")
	if !ok {
		t.Fatal("MatchFull did not match Feb 29")
	}
	if got := match.Date.Format("2006-01-02"); got != "2024-02-29" {
		t.Errorf("date = %s, want 2024-02-29", got)
	}
	if match.Warning != nil {
		t.Errorf("leap day inside period should parse silently, got %v", match.Warning)
	}
}

func TestParseHeaderDate(t *testing.T) {
	formats := []string{"2 Jan 2006", "02/01/2006", "2 Jan"}

	date, hasYear, ok := ParseHeaderDate(formats, "9th Jan 2024")
	if !ok || !hasYear || date.Format("2006-01-02") != "2024-01-09" {
		t.Errorf("ParseHeaderDate = (%v, %v, %v)", date, hasYear, ok)
	}

	date, hasYear, ok = ParseHeaderDate(formats, "1 Nov")
	if !ok || hasYear {
		t.Errorf("ParseHeaderDate year-less = (%v, %v, %v), want ok without year", date, hasYear, ok)
	}

	if _, _, ok := ParseHeaderDate(formats, "not a date"); ok {
		t.Error("ParseHeaderDate should fail on garbage")
	}
}
