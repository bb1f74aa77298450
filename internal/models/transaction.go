package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger row by the kind of movement it
// records. BroughtForward, CarriedForward and PeriodBreak are synthetic
// marker rows, never ordinary ledger transactions.
type TransactionType string

const (
	TypeCardPayment    TransactionType = "Card Payment"
	TypeDirectDebit    TransactionType = "Direct Debit"
	TypeStandingOrder  TransactionType = "Standing Order"
	TypeTransfer       TransactionType = "Transfer"
	TypeFee            TransactionType = "Fee"
	TypeInterest       TransactionType = "Interest"
	TypeATM            TransactionType = "Cash Withdrawal"
	TypeCredit         TransactionType = "Credit"
	TypeBroughtForward TransactionType = "Brought Forward"
	TypeCarriedForward TransactionType = "Carried Forward"
	TypePeriodBreak    TransactionType = "Period Break"
	TypeOther          TransactionType = "Other"
)

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// IsMarker reports whether the type is a synthetic marker row rather
// than an ordinary ledger transaction.
func (t TransactionType) IsMarker() bool {
	switch t {
	case TypeBroughtForward, TypeCarriedForward, TypePeriodBreak:
		return true
	}
	return false
}

// ParseTransactionType maps a profile type name to the enum value.
func ParseTransactionType(name string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "card_payment", "card payment":
		return TypeCardPayment, nil
	case "direct_debit", "direct debit":
		return TypeDirectDebit, nil
	case "standing_order", "standing order":
		return TypeStandingOrder, nil
	case "transfer", "online_transfer":
		return TypeTransfer, nil
	case "fee", "charge":
		return TypeFee, nil
	case "interest":
		return TypeInterest, nil
	case "atm_withdrawal", "cash_withdrawal", "cash withdrawal":
		return TypeATM, nil
	case "credit", "automated_credit", "bank_credit":
		return TypeCredit, nil
	case "brought_forward":
		return TypeBroughtForward, nil
	case "carried_forward":
		return TypeCarriedForward, nil
	case "other":
		return TypeOther, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", name)
	}
}

// Transaction is a single emitted ledger row. MoneyIn and MoneyOut are
// non-negative and at most one is non-zero unless the bank profile
// explicitly permits both; Balance is present only when the PDF printed
// one. SourcePage and SourceLine locate the row for audit.
type Transaction struct {
	Date        time.Time        `json:"date"`
	Description string           `json:"description"`
	MoneyIn     decimal.Decimal  `json:"money_in"`
	MoneyOut    decimal.Decimal  `json:"money_out"`
	Balance     *decimal.Decimal `json:"balance,omitempty"`
	TypeCode    string           `json:"type_code,omitempty"`
	Type        TransactionType  `json:"transaction_type"`
	Confidence  int              `json:"confidence"`
	SourcePage  int              `json:"source_page"`
	SourceLine  int              `json:"source_line"`
}

// Validate enforces the per-transaction invariants. allowBoth comes from
// the bank profile's permit_both_amounts flag.
func (t *Transaction) Validate(allowBoth bool) error {
	if t.MoneyIn.IsNegative() {
		return fmt.Errorf("money_in cannot be negative: %s", t.MoneyIn)
	}
	if t.MoneyOut.IsNegative() {
		return fmt.Errorf("money_out cannot be negative: %s", t.MoneyOut)
	}
	if !allowBoth && t.MoneyIn.IsPositive() && t.MoneyOut.IsPositive() {
		return fmt.Errorf("transaction has both money_in (%s) and money_out (%s)", t.MoneyIn, t.MoneyOut)
	}
	if t.Confidence < 0 || t.Confidence > 100 {
		return fmt.Errorf("confidence must be 0..100, got %d", t.Confidence)
	}
	if t.Date.IsZero() && !t.Type.IsMarker() {
		return fmt.Errorf("transaction has no date")
	}
	return nil
}

// Delta returns money_in - money_out.
func (t *Transaction) Delta() decimal.Decimal {
	return t.MoneyIn.Sub(t.MoneyOut)
}

// SwapDirection exchanges money_in and money_out in place.
func (t *Transaction) SwapDirection() {
	t.MoneyIn, t.MoneyOut = t.MoneyOut, t.MoneyIn
}

// SetBalance records the printed (or recomputed) balance.
func (t *Transaction) SetBalance(b decimal.Decimal) {
	t.Balance = &b
}

// HasDirectional reports whether either money field is set.
func (t *Transaction) HasDirectional() bool {
	return t.MoneyIn.IsPositive() || t.MoneyOut.IsPositive()
}

// HasBalance reports whether a balance is attached.
func (t *Transaction) HasBalance() bool {
	return t.Balance != nil
}

// IsMarker reports whether this row is a synthetic marker.
func (t *Transaction) IsMarker() bool {
	return t.Type.IsMarker()
}

// String returns a compact representation for logging
func (t *Transaction) String() string {
	balance := "n/a"
	if t.Balance != nil {
		balance = t.Balance.StringFixed(2)
	}
	return fmt.Sprintf("Transaction{%s %q in=%s out=%s bal=%s}",
		t.Date.Format("2006-01-02"), truncate(t.Description, 30),
		t.MoneyIn.StringFixed(2), t.MoneyOut.StringFixed(2), balance)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// WarningKind labels the recoverable conditions surfaced on a result.
type WarningKind string

const (
	WarnTokenDropped      WarningKind = "token_dropped"
	WarnMissingHeader     WarningKind = "missing_header"
	WarnUnparseableDate   WarningKind = "unparseable_date"
	WarnCrossYear         WarningKind = "cross_year_date"
	WarnUnknownTypeCode   WarningKind = "unknown_type_code"
	WarnDiscardedFragment WarningKind = "discarded_fragment"
	WarnDirectionSwap     WarningKind = "direction_swap"
	WarnCascadeRecalc     WarningKind = "cascade_recalculate"
	WarnBalanceMismatch   WarningKind = "balance_mismatch"
	WarnPeriodTotals      WarningKind = "period_totals_mismatch"
	WarnHeaderTotals      WarningKind = "header_totals_mismatch"
	WarnPeriodFailed      WarningKind = "period_unreconciled"
)

// Warning is a recoverable condition recorded during parsing or
// reconciliation. TransactionIndex is -1 when the warning is not tied to
// a particular transaction.
type Warning struct {
	Kind             WarningKind     `json:"kind"`
	Message          string          `json:"message"`
	TransactionIndex int             `json:"transaction_index"`
	Expected         decimal.Decimal `json:"expected_delta,omitempty"`
	Computed         decimal.Decimal `json:"computed_delta,omitempty"`
}

// NewWarning creates a warning not tied to a transaction.
func NewWarning(kind WarningKind, format string, args ...interface{}) Warning {
	return Warning{Kind: kind, Message: fmt.Sprintf(format, args...), TransactionIndex: -1}
}
