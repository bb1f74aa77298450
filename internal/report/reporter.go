// Package report renders run summaries of a parsed statement for the
// CLI: a human-readable text view and a machine-readable JSON view.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"bank-statement-engine/internal/models"
)

// Format selects the rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config holds reporter options.
type Config struct {
	Format       Format
	ShowWarnings bool
	ShowPeriods  bool
}

// DefaultConfig returns the CLI's default reporter configuration.
func DefaultConfig() *Config {
	return &Config{
		Format:       FormatText,
		ShowWarnings: true,
		ShowPeriods:  true,
	}
}

// Reporter renders StatementResult summaries.
type Reporter struct {
	config *Config
}

// NewReporter creates a reporter.
func NewReporter(config *Config) *Reporter {
	if config == nil {
		config = DefaultConfig()
	}
	return &Reporter{config: config}
}

// Write renders the result summary to w.
func (r *Reporter) Write(w io.Writer, result *models.StatementResult) error {
	if r.config.Format == FormatJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summaryOf(result))
	}
	return r.writeText(w, result)
}

// summary is the JSON shape of a run summary.
type summary struct {
	RunID             string `json:"run_id"`
	Bank              string `json:"bank"`
	AccountNumber     string `json:"account_number,omitempty"`
	PeriodStart       string `json:"period_start,omitempty"`
	PeriodEnd         string `json:"period_end,omitempty"`
	Transactions      int    `json:"transactions"`
	Periods           int    `json:"periods"`
	PeriodsReconciled int    `json:"periods_reconciled"`
	OpeningBalance    string `json:"opening_balance"`
	ClosingBalance    string `json:"closing_balance"`
	Confidence        int    `json:"confidence"`
	Warnings          int    `json:"warnings"`
	Success           bool   `json:"success"`
	Partial           bool   `json:"partial,omitempty"`
}

func summaryOf(result *models.StatementResult) summary {
	s := summary{
		RunID:          result.RunID,
		Bank:           result.Account.Bank,
		AccountNumber:  result.Account.AccountNumber,
		Transactions:   result.TransactionCount(),
		Periods:        len(result.Periods),
		OpeningBalance: result.OpeningBalance.StringFixed(2),
		ClosingBalance: result.ClosingBalance.StringFixed(2),
		Confidence:     result.ConfidenceOverall,
		Warnings:       len(result.Warnings),
		Success:        result.Success,
		Partial:        result.Partial,
	}
	for _, period := range result.Periods {
		if period.Reconciled {
			s.PeriodsReconciled++
		}
	}
	if result.Account.HasPeriod() {
		s.PeriodStart = result.Account.PeriodStart.Format("2006-01-02")
		s.PeriodEnd = result.Account.PeriodEnd.Format("2006-01-02")
	}
	return s
}

func (r *Reporter) writeText(w io.Writer, result *models.StatementResult) error {
	var b strings.Builder

	b.WriteString("Statement Extraction Summary\n")
	b.WriteString("============================\n")
	fmt.Fprintf(&b, "Bank:            %s\n", result.Account.Bank)
	if result.Account.AccountNumber != "" {
		fmt.Fprintf(&b, "Account:         %s\n", result.Account.AccountNumber)
	}
	if result.Account.HasPeriod() {
		fmt.Fprintf(&b, "Period:          %s to %s\n",
			result.Account.PeriodStart.Format("2006-01-02"),
			result.Account.PeriodEnd.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "Transactions:    %d\n", result.TransactionCount())
	fmt.Fprintf(&b, "Opening balance: %s\n", result.OpeningBalance.StringFixed(2))
	fmt.Fprintf(&b, "Closing balance: %s\n", result.ClosingBalance.StringFixed(2))
	fmt.Fprintf(&b, "Confidence:      %d/100\n", result.ConfidenceOverall)

	status := "SUCCESS"
	if result.Partial {
		status = "PARTIAL"
	} else if !result.Success {
		status = "FAILED"
	}
	fmt.Fprintf(&b, "Status:          %s\n", status)

	if r.config.ShowPeriods && len(result.Periods) > 0 {
		b.WriteString("\nPeriods:\n")
		for _, period := range result.Periods {
			state := "reconciled"
			if !period.Reconciled {
				state = "NOT RECONCILED"
			} else if period.CascadeRecalculated {
				state = "cascade recalculated"
			}
			fmt.Fprintf(&b, "  #%d  %s -> %s  (%d txns, %s)\n",
				period.Index,
				period.OpeningBalance.StringFixed(2),
				period.ClosingBalance.StringFixed(2),
				len(period.Transactions),
				state)
		}
	}

	if r.config.ShowWarnings && len(result.Warnings) > 0 {
		fmt.Fprintf(&b, "\nWarnings (%d):\n", len(result.Warnings))
		for _, warning := range result.Warnings {
			fmt.Fprintf(&b, "  [%s] %s\n", warning.Kind, warning.Message)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
