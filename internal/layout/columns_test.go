package layout

import (
	"strings"
	"testing"

	"bank-statement-engine/internal/models"
	"bank-statement-engine/internal/profile"
)

type seg struct {
	text   string
	startX float64
	endX   float64
}

// buildLine assembles a models.Line from positioned segments, keeping
// run offsets consistent with the joined text.
func buildLine(page, index int, y float64, segs ...seg) models.Line {
	var text strings.Builder
	runs := make([]models.Run, 0, len(segs))
	for i, s := range segs {
		if i > 0 {
			text.WriteString("  ")
		}
		runs = append(runs, models.Run{
			Text:       s.text,
			StartX:     s.startX,
			EndX:       s.endX,
			TextOffset: text.Len(),
		})
		text.WriteString(s.text)
	}
	return models.Line{
		Text:      text.String(),
		PageIndex: page,
		Y:         y,
		Runs:      runs,
		Index:     index,
	}
}

func columnProfile(t *testing.T) *profile.BankProfile {
	t.Helper()
	p := &profile.BankProfile{
		Name:        "ColumnBank",
		Identifiers: []string{"column bank"},
		DateFormats: []string{"02/01/2006"},
		ColumnNames: []string{"Money out", "Money in", "Balance"},
		Strategy:    profile.StrategyColumnPosition,
		DefaultColumnThresholds: profile.ColumnDefaults{
			MoneyOutRightX: 65,
			MoneyInRightX:  85,
			BalanceRightX:  105,
		},
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("profile invalid: %v", err)
	}
	return p
}

func TestGeometryClassifyInclusiveLeft(t *testing.T) {
	g := Geometry{MoneyOutRightX: 65, MoneyInRightX: 85, BalanceRightX: 105}

	tests := []struct {
		rightX float64
		want   ColumnRole
	}{
		{60, ColumnMoneyOut},
		{75, ColumnMoneyOut}, // exactly on the out/in threshold: left wins
		{75.1, ColumnMoneyIn},
		{85, ColumnMoneyIn},
		{95, ColumnMoneyIn}, // exactly on the in/balance threshold
		{95.1, ColumnBalance},
		{200, ColumnBalance},
	}

	for _, tt := range tests {
		if got := g.Classify(tt.rightX); got != tt.want {
			t.Errorf("Classify(%.1f) = %v, want %v", tt.rightX, got, tt.want)
		}
	}
}

func TestGeometryReversedColumnOrder(t *testing.T) {
	// Some banks print Paid In left of Withdrawn; classification follows
	// geometry, not print order.
	g := Geometry{MoneyInRightX: 65, MoneyOutRightX: 85, BalanceRightX: 105}

	if got := g.Classify(60); got != ColumnMoneyIn {
		t.Errorf("Classify(60) = %v, want money_in", got)
	}
	if got := g.Classify(85); got != ColumnMoneyOut {
		t.Errorf("Classify(85) = %v, want money_out", got)
	}
}

func TestColumnModelHeaderUpdate(t *testing.T) {
	p := columnProfile(t)
	cm := NewColumnModel(p, nil)

	header := buildLine(0, 0, 50,
		seg{"Money out", 35, 65},
		seg{"Money in", 60, 85},
		seg{"Balance", 80, 105},
	)

	matched, warning := cm.Observe(&header)
	if !matched {
		t.Fatal("header line not recognized")
	}
	if warning != nil {
		t.Errorf("unexpected warning: %v", warning)
	}

	g := cm.Geometry()
	if g.MoneyOutRightX != 65 || g.MoneyInRightX != 85 || g.BalanceRightX != 105 {
		t.Errorf("geometry = %+v, want right edges 65/85/105", g)
	}
	if !cm.FromHeader() {
		t.Error("geometry should be marked as header-derived")
	}
}

func TestColumnModelPerPageReflow(t *testing.T) {
	// Scenario: page 1 places the columns at 65/85/105, page 2 reflows
	// them to 79/94/117. An amount ending at x=94 on page 2 must be
	// money in, not money out.
	p := columnProfile(t)
	cm := NewColumnModel(p, nil)

	page1 := buildLine(0, 0, 50,
		seg{"Money out", 35, 65},
		seg{"Money in", 60, 85},
		seg{"Balance", 80, 105},
	)
	if matched, _ := cm.Observe(&page1); !matched {
		t.Fatal("page 1 header not recognized")
	}

	page2 := buildLine(1, 40, 50,
		seg{"Money out", 50, 79},
		seg{"Money in", 70, 94},
		seg{"Balance", 95, 117},
	)
	if matched, _ := cm.Observe(&page2); !matched {
		t.Fatal("page 2 header not recognized")
	}

	if got := cm.Geometry().Classify(94); got != ColumnMoneyIn {
		t.Errorf("after reflow Classify(94) = %v, want money_in", got)
	}

	// With the stale page-1 geometry, the page-2 money-out edge (x=79)
	// would have landed in money in.
	stale := Geometry{MoneyOutRightX: 65, MoneyInRightX: 85, BalanceRightX: 105}
	if got := stale.Classify(79); got == ColumnMoneyOut {
		t.Error("fixture broken: stale geometry should misclassify 79")
	}
}

func TestColumnModelInheritsWithoutHeader(t *testing.T) {
	p := columnProfile(t)
	cm := NewColumnModel(p, nil)

	page1 := buildLine(0, 0, 50,
		seg{"Money out", 35, 70},
		seg{"Money in", 60, 90},
		seg{"Balance", 80, 110},
	)
	cm.Observe(&page1)

	// Page 2 has no header; the model keeps page 1 geometry.
	body := buildLine(1, 10, 60, seg{"08/08/2024 Coffee 3.50", 10, 200})
	cm.Observe(&body)

	if got := cm.Geometry().MoneyInRightX; got != 90 {
		t.Errorf("geometry not inherited, MoneyInRightX = %.1f, want 90", got)
	}
}

func TestColumnModelRequireHeaderWarning(t *testing.T) {
	p := columnProfile(t)
	p.RequireHeaderPerPage = true
	p.HeaderScanLines = 3

	cm := NewColumnModel(p, nil)

	var warned *models.Warning
	for i := 0; i < 3; i++ {
		line := buildLine(0, i, float64(10+i*12), seg{"no header here", 10, 100})
		_, warning := cm.Observe(&line)
		if warning != nil {
			warned = warning
		}
	}

	if warned == nil {
		t.Fatal("expected missing_header warning after scan window")
	}
	if warned.Kind != models.WarnMissingHeader {
		t.Errorf("warning kind = %v, want missing_header", warned.Kind)
	}
}

func TestColumnModelDefaultsBeforeAnyHeader(t *testing.T) {
	p := columnProfile(t)
	cm := NewColumnModel(p, nil)

	g := cm.Geometry()
	if g.MoneyOutRightX != 65 || g.MoneyInRightX != 85 || g.BalanceRightX != 105 {
		t.Errorf("defaults not applied: %+v", g)
	}
	if cm.FromHeader() {
		t.Error("defaults must not be marked header-derived")
	}
}
