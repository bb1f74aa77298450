package classify

import (
	"testing"

	"bank-statement-engine/internal/amounts"
	"bank-statement-engine/internal/layout"
	"bank-statement-engine/internal/profile"

	"github.com/shopspring/decimal"
)

var testGeometry = layout.Geometry{
	MoneyOutRightX: 400,
	MoneyInRightX:  470,
	BalanceRightX:  540,
}

func amount(value float64, rightX float64) amounts.Amount {
	d := decimal.NewFromFloat(value)
	neg := d.IsNegative()
	return amounts.Amount{Value: d.Abs(), Negative: neg, RightEdgeX: rightX}
}

func mustProfile(t *testing.T, p *profile.BankProfile) *profile.BankProfile {
	t.Helper()
	if err := p.Validate(); err != nil {
		t.Fatalf("profile invalid: %v", err)
	}
	return p
}

func TestColumnPositionClassifier(t *testing.T) {
	p := mustProfile(t, &profile.BankProfile{
		Name:        "ColBank",
		Identifiers: []string{"col bank"},
		DateFormats: []string{"02/01/2006"},
		Strategy:    profile.StrategyColumnPosition,
		DefaultColumnThresholds: profile.ColumnDefaults{
			MoneyOutRightX: 400, MoneyInRightX: 470, BalanceRightX: 540,
		},
	})
	c := New(p, nil)

	// Amount in the out column plus balance.
	row, warnings := c.Classify(Input{
		Amounts:  []amounts.Amount{amount(25.00, 395), amount(974.50, 540)},
		Geometry: testGeometry,
	})
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if !row.MoneyOut.Equal(decimal.NewFromFloat(25.00)) {
		t.Errorf("MoneyOut = %s, want 25.00", row.MoneyOut)
	}
	if row.Balance == nil || !row.Balance.Equal(decimal.NewFromFloat(974.50)) {
		t.Errorf("Balance = %v, want 974.50", row.Balance)
	}

	// Amount in the in column.
	row, _ = c.Classify(Input{
		Amounts:  []amounts.Amount{amount(100.00, 465)},
		Geometry: testGeometry,
	})
	if !row.MoneyIn.Equal(decimal.NewFromFloat(100.00)) {
		t.Errorf("MoneyIn = %s, want 100.00", row.MoneyIn)
	}
}

func TestColumnPositionSingleAmountBalanceRule(t *testing.T) {
	p := mustProfile(t, &profile.BankProfile{
		Name:        "ColBank",
		Identifiers: []string{"col bank"},
		DateFormats: []string{"02/01/2006"},
		Strategy:    profile.StrategyColumnPosition,
		DefaultColumnThresholds: profile.ColumnDefaults{
			MoneyOutRightX: 400, MoneyInRightX: 470, BalanceRightX: 540,
		},
	})
	c := New(p, nil)

	// Lone amount past the in threshold, preceded by a bare description:
	// it is the balance.
	row, _ := c.Classify(Input{
		Amounts:                 []amounts.Amount{amount(974.50, 540)},
		Geometry:                testGeometry,
		PrevLineBareDescription: true,
	})
	if row.Balance == nil || row.HasDirectional() {
		t.Errorf("expected balance-only row, got %+v", row)
	}

	// Same geometry without the bare-description context: directional,
	// assigned to the nearer money column.
	row, _ = c.Classify(Input{
		Amounts:  []amounts.Amount{amount(974.50, 540)},
		Geometry: testGeometry,
	})
	if row.Balance != nil {
		t.Errorf("expected directional row, got balance %v", row.Balance)
	}
	if !row.MoneyIn.Equal(decimal.NewFromFloat(974.50)) {
		t.Errorf("MoneyIn = %s, want 974.50 (nearer in column)", row.MoneyIn)
	}
}

func TestTypeCodeClassifier(t *testing.T) {
	p := mustProfile(t, &profile.BankProfile{
		Name:        "CodeBank",
		Identifiers: []string{"code bank"},
		DateFormats: []string{"02/01/2006"},
		Strategy:    profile.StrategyTypeCode,
		Classification: profile.ClassificationConfig{
			MoneyInCodes:  []string{"FPI", "BGC"},
			MoneyOutCodes: []string{"FPO", "DD", "CHG"},
		},
		DefaultColumnThresholds: profile.ColumnDefaults{
			MoneyOutRightX: 400, MoneyInRightX: 470, BalanceRightX: 540,
		},
	})
	c := New(p, nil)

	tests := []struct {
		code    string
		wantIn  bool
		warns   int
	}{
		{"FPI", true, 0},
		{"DD", false, 0},
		{"XYZ", false, 1}, // unknown: falls back to geometry (out column), warns
	}

	for _, tt := range tests {
		row, warnings := c.Classify(Input{
			Amounts:  []amounts.Amount{amount(55.00, 395), amount(500.00, 540)},
			TypeCode: tt.code,
			Geometry: testGeometry,
		})
		if len(warnings) != tt.warns {
			t.Errorf("code %s: %d warnings, want %d", tt.code, len(warnings), tt.warns)
		}
		if tt.wantIn && !row.MoneyIn.Equal(decimal.NewFromFloat(55.00)) {
			t.Errorf("code %s: MoneyIn = %s, want 55.00", tt.code, row.MoneyIn)
		}
		if !tt.wantIn && !row.MoneyOut.Equal(decimal.NewFromFloat(55.00)) {
			t.Errorf("code %s: MoneyOut = %s, want 55.00", tt.code, row.MoneyOut)
		}
		if row.Balance == nil {
			t.Errorf("code %s: balance missing", tt.code)
		}
	}
}

func TestKeywordClassifier(t *testing.T) {
	p := mustProfile(t, &profile.BankProfile{
		Name:        "KeyBank",
		Identifiers: []string{"key bank"},
		DateFormats: []string{"02/01/2006"},
		Strategy:    profile.StrategyKeyword,
		Classification: profile.ClassificationConfig{
			MoneyInKeywords:  []string{"automated credit", "cash & dep"},
			MoneyOutKeywords: []string{"card transaction", "direct debit"},
		},
		DefaultColumnThresholds: profile.ColumnDefaults{
			MoneyOutRightX: 400, MoneyInRightX: 470, BalanceRightX: 540,
		},
	})
	c := New(p, nil)

	tests := []struct {
		description string
		wantIn      bool
	}{
		{"AUTOMATED CREDIT ACME LTD SALARY", true},
		{"Card Transaction TESCO", false},
		{"no keywords at all", false}, // default is money out
	}

	for _, tt := range tests {
		row, _ := c.Classify(Input{
			Amounts:     []amounts.Amount{amount(80.00, 450)},
			Description: tt.description,
			Geometry:    testGeometry,
		})
		gotIn := row.MoneyIn.IsPositive()
		if gotIn != tt.wantIn {
			t.Errorf("description %q: in=%v, want %v", tt.description, gotIn, tt.wantIn)
		}
	}
}

func TestHybridClassifier(t *testing.T) {
	// Monzo-style: one signed amount column plus balance.
	p := mustProfile(t, &profile.BankProfile{
		Name:        "HybridBank",
		Identifiers: []string{"hybrid bank"},
		DateFormats: []string{"02/01/2006"},
		Strategy:    profile.StrategyHybrid,
		Classification: profile.ClassificationConfig{
			MoneyInKeywords:  []string{"transfer from"},
			MoneyOutKeywords: []string{"direct debit"},
		},
		DefaultColumnThresholds: profile.ColumnDefaults{
			MoneyOutRightX: 440, MoneyInRightX: 440, BalanceRightX: 540,
		},
	})
	c := New(p, nil)
	geometry := layout.Geometry{MoneyOutRightX: 440, MoneyInRightX: 440, BalanceRightX: 540}

	// Keyword decides for the in direction.
	row, _ := c.Classify(Input{
		Amounts:     []amounts.Amount{amount(50.00, 440), amount(60.39, 540)},
		Description: "Transfer from Pot",
		Geometry:    geometry,
	})
	if !row.MoneyIn.Equal(decimal.NewFromFloat(50.00)) {
		t.Errorf("MoneyIn = %s, want 50.00", row.MoneyIn)
	}
	if row.Balance == nil || !row.Balance.Equal(decimal.NewFromFloat(60.39)) {
		t.Errorf("Balance = %v, want 60.39", row.Balance)
	}

	// Sign decides when no keyword matches.
	row, _ = c.Classify(Input{
		Amounts:     []amounts.Amount{amount(-30.00, 440)},
		Description: "Kashia*Nyasa KEN",
		Geometry:    geometry,
	})
	if !row.MoneyOut.Equal(decimal.NewFromFloat(30.00)) {
		t.Errorf("MoneyOut = %s, want 30.00", row.MoneyOut)
	}

	// A lone amount at the balance edge is the balance.
	row, _ = c.Classify(Input{
		Amounts:  []amounts.Amount{amount(10.39, 540)},
		Geometry: geometry,
	})
	if row.Balance == nil || !row.Balance.Equal(decimal.NewFromFloat(10.39)) {
		t.Errorf("Balance = %v, want 10.39", row.Balance)
	}
	if row.HasDirectional() {
		t.Errorf("lone balance row must carry no directional amount: %+v", row)
	}
}

func TestRowInvariantOneDirection(t *testing.T) {
	for _, strategy := range []profile.ClassificationStrategy{
		profile.StrategyColumnPosition,
		profile.StrategyKeyword,
		profile.StrategyHybrid,
	} {
		p := mustProfile(t, &profile.BankProfile{
			Name:        "InvBank",
			Identifiers: []string{"inv bank"},
			DateFormats: []string{"02/01/2006"},
			Strategy:    strategy,
			DefaultColumnThresholds: profile.ColumnDefaults{
				MoneyOutRightX: 400, MoneyInRightX: 470, BalanceRightX: 540,
			},
		})
		c := New(p, nil)

		row, _ := c.Classify(Input{
			Amounts: []amounts.Amount{
				amount(10.00, 395), amount(20.00, 465), amount(500.00, 540),
			},
			Geometry: testGeometry,
		})
		if row.MoneyIn.IsPositive() && row.MoneyOut.IsPositive() {
			t.Errorf("strategy %s produced both directions: %+v", strategy, row)
		}
	}
}
