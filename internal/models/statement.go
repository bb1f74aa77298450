package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountInfo holds the statement header metadata captured before
// transaction parsing begins.
type AccountInfo struct {
	Bank          string     `json:"bank"`
	AccountNumber string     `json:"account_number,omitempty"`
	SortCode      string     `json:"sort_code,omitempty"`
	Holder        string     `json:"account_holder,omitempty"`
	Currency      string     `json:"currency"`
	PeriodStart   *time.Time `json:"period_start,omitempty"`
	PeriodEnd     *time.Time `json:"period_end,omitempty"`
}

// HasPeriod reports whether both period bounds were captured.
func (a *AccountInfo) HasPeriod() bool {
	return a.PeriodStart != nil && a.PeriodEnd != nil
}

// Period is one statement period: the transactions between two printed
// brought-forward / carried-forward markers (or stream boundaries), with
// its own reconciliation outcome.
type Period struct {
	Index               int             `json:"index"`
	OpeningBalance      decimal.Decimal `json:"opening_balance"`
	ClosingBalance      decimal.Decimal `json:"closing_balance"`
	Reconciled          bool            `json:"reconciled"`
	CascadeRecalculated bool            `json:"cascade_recalculated"`
	Transactions        []*Transaction  `json:"transactions"`
	Warnings            []Warning       `json:"warnings,omitempty"`

	// Printed summary totals captured from skipped summary rows, used
	// for the soft period-level assertions. Nil when the PDF omits them.
	PrintedTotalIn  *decimal.Decimal `json:"printed_total_in,omitempty"`
	PrintedTotalOut *decimal.Decimal `json:"printed_total_out,omitempty"`
	PrintedClosing  *decimal.Decimal `json:"printed_closing,omitempty"`
}

// TotalIn sums money_in over the period's non-marker transactions.
func (p *Period) TotalIn() decimal.Decimal {
	total := decimal.Zero
	for _, txn := range p.Transactions {
		if !txn.IsMarker() {
			total = total.Add(txn.MoneyIn)
		}
	}
	return total
}

// TotalOut sums money_out over the period's non-marker transactions.
func (p *Period) TotalOut() decimal.Decimal {
	total := decimal.Zero
	for _, txn := range p.Transactions {
		if !txn.IsMarker() {
			total = total.Add(txn.MoneyOut)
		}
	}
	return total
}

// String returns a compact representation for logging
func (p *Period) String() string {
	return fmt.Sprintf("Period{#%d %d txns opening=%s closing=%s reconciled=%v}",
		p.Index, len(p.Transactions), p.OpeningBalance.StringFixed(2),
		p.ClosingBalance.StringFixed(2), p.Reconciled)
}

// StatementResult is the engine's output: the ordered transactions, the
// per-period reconciliation outcomes, statement-level balances and every
// warning raised along the way. Opening balance is the first period's
// brought-forward; closing balance is the last transaction's balance
// after reconciliation. Both override header-printed totals on
// disagreement, which is itself recorded as a warning.
type StatementResult struct {
	RunID             string          `json:"run_id"`
	Account           AccountInfo     `json:"account"`
	Periods           []*Period       `json:"periods"`
	Transactions      []*Transaction  `json:"transactions"`
	OpeningBalance    decimal.Decimal `json:"opening_balance"`
	ClosingBalance    decimal.Decimal `json:"closing_balance"`
	Warnings          []Warning       `json:"warnings,omitempty"`
	ConfidenceOverall int             `json:"confidence_overall"`
	Success           bool            `json:"success"`
	Partial           bool            `json:"partial,omitempty"`
}

// TransactionCount returns the number of non-marker transactions.
func (r *StatementResult) TransactionCount() int {
	count := 0
	for _, txn := range r.Transactions {
		if !txn.IsMarker() {
			count++
		}
	}
	return count
}

// LowConfidence returns the non-marker transactions with confidence
// below the given threshold.
func (r *StatementResult) LowConfidence(threshold int) []*Transaction {
	var low []*Transaction
	for _, txn := range r.Transactions {
		if !txn.IsMarker() && txn.Confidence < threshold {
			low = append(low, txn)
		}
	}
	return low
}

// AllReconciled reports whether every period reconciled.
func (r *StatementResult) AllReconciled() bool {
	for _, period := range r.Periods {
		if !period.Reconciled {
			return false
		}
	}
	return true
}

// AddWarning appends a statement-level warning.
func (r *StatementResult) AddWarning(w Warning) {
	r.Warnings = append(r.Warnings, w)
}
