package engine

import (
	"context"
	"encoding/json"
	"testing"

	"bank-statement-engine/internal/models"
	"bank-statement-engine/internal/profile"
	"bank-statement-engine/internal/tokens"
	"bank-statement-engine/pkg/errors"

	"github.com/shopspring/decimal"
)

func tok(text string, page int, x0, x1, y float64) models.Token {
	return models.Token{Text: text, PageIndex: page, X0: x0, X1: x1, Y: y}
}

func testProfile(t *testing.T) *profile.BankProfile {
	t.Helper()
	p := &profile.BankProfile{
		Name:                  "ColumnBank",
		Identifiers:           []string{"column bank"},
		DateFormats:           []string{"02/01/2006"},
		PeriodBoundaryPattern: `balance\s+brought\s+forward`,
		ColumnNames:           []string{"Money out", "Money in", "Balance"},
		Strategy:              profile.StrategyColumnPosition,
		DefaultColumnThresholds: profile.ColumnDefaults{
			MoneyOutRightX: 400, MoneyInRightX: 470, BalanceRightX: 540,
		},
		Headers: profile.HeaderPatterns{
			AccountNumber: `account\s*number:?\s*(\d{8})`,
			Period:        `(\d{1,2}/\d{1,2}/\d{4})\s*(?:-|to|–)\s*(\d{1,2}/\d{1,2}/\d{4})`,
		},
		TransactionTypeMap: map[string]string{
			"card payment": "card_payment",
			"refund":       "credit",
		},
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("profile invalid: %v", err)
	}
	return p
}

// statementTokens is a two-page statement whose second page reflows the
// money columns to different x positions.
func statementTokens() []models.Token {
	return []models.Token{
		// Page 0: header metadata.
		tok("Column Bank PLC", 0, 10, 120, 10),
		tok("Account number: 12345678", 0, 10, 180, 20),
		tok("Statement period", 0, 10, 90, 30),
		tok("01/08/2024", 0, 100, 150, 30),
		tok("-", 0, 155, 160, 30),
		tok("31/08/2024", 0, 165, 215, 30),
		// Page 0: column header.
		tok("Money out", 0, 340, 400, 40),
		tok("Money in", 0, 430, 470, 40),
		tok("Balance", 0, 500, 540, 40),
		// Opening marker and first transaction.
		tok("BALANCE BROUGHT FORWARD", 0, 70, 250, 50),
		tok("1,000.00", 0, 480, 540, 50),
		tok("05/08/2024", 0, 10, 60, 60),
		tok("CARD PAYMENT TESCO", 0, 70, 250, 60),
		tok("45.67", 0, 360, 400, 60),
		tok("954.33", 0, 490, 540, 60),
		// Page 1: reflowed column header.
		tok("Money out", 1, 350, 410, 10),
		tok("Money in", 1, 440, 480, 10),
		tok("Balance", 1, 510, 550, 10),
		// An amount ending exactly at the reflowed money-in right edge.
		tok("06/08/2024", 1, 10, 60, 20),
		tok("REFUND ACME", 1, 70, 200, 20),
		tok("12.00", 1, 442, 480, 20),
		tok("966.33", 1, 510, 550, 20),
	}
}

func TestParseFullStatement(t *testing.T) {
	e := New(nil, Options{RunID: "test-run"})

	result, err := e.Parse(context.Background(),
		tokens.NewSliceStream(statementTokens()), testProfile(t))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if result.Account.AccountNumber != "12345678" {
		t.Errorf("account number = %q, want 12345678", result.Account.AccountNumber)
	}
	if !result.Account.HasPeriod() {
		t.Fatal("statement period not captured")
	}
	if got := result.Account.PeriodStart.Format("2006-01-02"); got != "2024-08-01" {
		t.Errorf("period start = %s, want 2024-08-01", got)
	}

	if result.TransactionCount() != 2 {
		t.Fatalf("transaction count = %d, want 2", result.TransactionCount())
	}

	var rows []*models.Transaction
	for _, txn := range result.Transactions {
		if !txn.IsMarker() {
			rows = append(rows, txn)
		}
	}

	first := rows[0]
	if !first.MoneyOut.Equal(decimal.NewFromFloat(45.67)) {
		t.Errorf("first MoneyOut = %s, want 45.67", first.MoneyOut)
	}
	if first.Type != models.TypeCardPayment {
		t.Errorf("first type = %v, want CardPayment", first.Type)
	}

	// Page 2 reflow: 12.00 ends exactly at the new money-in right edge
	// and must classify as money in.
	second := rows[1]
	if !second.MoneyIn.Equal(decimal.NewFromFloat(12.00)) {
		t.Errorf("second MoneyIn = %s, want 12.00 (reflowed column)", second.MoneyIn)
	}
	if second.MoneyOut.IsPositive() {
		t.Errorf("second MoneyOut = %s, want 0", second.MoneyOut)
	}

	if !result.OpeningBalance.Equal(decimal.NewFromFloat(1000.00)) {
		t.Errorf("opening = %s, want 1000.00", result.OpeningBalance)
	}
	if !result.ClosingBalance.Equal(decimal.NewFromFloat(966.33)) {
		t.Errorf("closing = %s, want 966.33", result.ClosingBalance)
	}
	if !result.Success {
		t.Errorf("result not successful; warnings: %v", result.Warnings)
	}
	if !result.AllReconciled() {
		t.Errorf("periods not reconciled: %v", result.Warnings)
	}

	// Transactions are in emission (token) order.
	for i := 1; i < len(rows); i++ {
		if rows[i].Date.Before(rows[i-1].Date) {
			t.Errorf("rows out of order at %d", i)
		}
	}
}

func TestParseDeterministic(t *testing.T) {
	p := testProfile(t)

	parse := func() []byte {
		e := New(nil, Options{RunID: "fixed"})
		result, err := e.Parse(context.Background(), tokens.NewSliceStream(statementTokens()), p)
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		data, err := json.Marshal(result)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		return data
	}

	first := parse()
	second := parse()
	if string(first) != string(second) {
		t.Error("identical input produced different results")
	}
}

func TestParseCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(nil, Options{RunID: "cancelled"})
	result, err := e.Parse(ctx, tokens.NewSliceStream(statementTokens()), testProfile(t))

	if err == nil {
		t.Fatal("expected Cancelled error")
	}
	if !errors.IsKind(err, errors.CodeCancelled) {
		t.Errorf("error kind = %v, want cancelled", err)
	}
	if result == nil || !result.Partial {
		t.Error("cancellation must return a partial result")
	}
	if result.Success {
		t.Error("partial result must not be successful")
	}
}

func TestParseWithoutProfile(t *testing.T) {
	e := New(nil, Options{})
	_, err := e.Parse(context.Background(), tokens.NewSliceStream(nil), nil)
	if err == nil {
		t.Fatal("expected ProfileInvalid error")
	}
	if !errors.IsKind(err, errors.CodeProfileInvalid) {
		t.Errorf("error kind = %v, want profile_invalid", err)
	}
}

func TestParseInvalidStreamOrder(t *testing.T) {
	bad := []models.Token{
		tok("a", 1, 0, 5, 10),
		tok("b", 0, 0, 5, 10),
	}

	e := New(nil, Options{})
	_, err := e.Parse(context.Background(), tokens.NewSliceStream(bad), testProfile(t))
	if err == nil {
		t.Fatal("expected stream error")
	}
	if engineErr, ok := errors.AsEngineError(err); !ok || engineErr.Category != errors.CategoryStream {
		t.Errorf("expected stream-category error, got %v", err)
	}
}

func TestParseStrictMode(t *testing.T) {
	// A statement whose balances cannot reconcile: strict mode fails,
	// permissive mode succeeds with warnings.
	brokenTokens := []models.Token{
		tok("BALANCE BROUGHT FORWARD", 0, 70, 250, 10),
		tok("100.00", 0, 490, 540, 10),
		tok("05/08/2024", 0, 10, 60, 20),
		tok("MYSTERY", 0, 70, 150, 20),
		tok("10.00", 0, 360, 400, 20),
		tok("50.00", 0, 490, 540, 20),
		tok("06/08/2024", 0, 10, 60, 30),
		tok("MYSTERY TWO", 0, 70, 150, 30),
		tok("10.00", 0, 360, 400, 30),
		tok("40.00", 0, 490, 540, 30),
	}

	strict := New(nil, Options{RequireStrict: true, RunID: "strict"})
	result, err := strict.Parse(context.Background(), tokens.NewSliceStream(brokenTokens), testProfile(t))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if result.Success {
		t.Error("strict mode must fail on unreconciled periods")
	}

	permissive := New(nil, Options{RunID: "permissive"})
	result, err = permissive.Parse(context.Background(), tokens.NewSliceStream(brokenTokens), testProfile(t))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !result.Success {
		t.Error("permissive mode succeeds with warnings")
	}
	if len(result.Warnings) == 0 {
		t.Error("expected warnings on the unreconciled period")
	}
}
