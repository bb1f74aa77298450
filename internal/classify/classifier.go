// Package classify assigns extracted amounts to money-in / money-out /
// balance. Four strategies cover the corpus: pure column geometry,
// printed type codes, directional keywords, and a hybrid that lets
// geometry decide whenever it is unambiguous.
package classify

import (
	"strings"

	"bank-statement-engine/internal/amounts"
	"bank-statement-engine/internal/layout"
	"bank-statement-engine/internal/models"
	"bank-statement-engine/internal/profile"
	"bank-statement-engine/pkg/logger"

	"github.com/shopspring/decimal"
)

// Input is everything a strategy may consult for one row.
type Input struct {
	Amounts     []amounts.Amount
	Description string
	TypeCode    string
	Geometry    layout.Geometry

	// PrevLineBareDescription is set when the preceding line carried a
	// description with no amounts; it gates the single-amount-as-balance
	// rule in the column strategy.
	PrevLineBareDescription bool
}

// Row is the structured classification of one row's amounts. At most
// one of MoneyIn / MoneyOut is non-zero unless the profile permits both
// amounts.
type Row struct {
	MoneyIn  decimal.Decimal
	MoneyOut decimal.Decimal
	Balance  *decimal.Decimal
}

// HasDirectional reports whether either money field is set.
func (r *Row) HasDirectional() bool {
	return r.MoneyIn.IsPositive() || r.MoneyOut.IsPositive()
}

// Classifier is the strategy interface.
type Classifier interface {
	Classify(input Input) (Row, []models.Warning)
}

// New returns the classifier the profile selects.
func New(p *profile.BankProfile, log logger.Logger) Classifier {
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("classifier")

	switch p.Strategy {
	case profile.StrategyTypeCode:
		return &typeCodeClassifier{profile: p, logger: log}
	case profile.StrategyKeyword:
		return &keywordClassifier{profile: p, logger: log}
	case profile.StrategyHybrid:
		return &hybridClassifier{profile: p, logger: log}
	default:
		return &columnClassifier{profile: p, logger: log}
	}
}

// splitByGeometry partitions amounts into directional ones and the
// balance, using each amount's right edge against the active column
// geometry. Thresholds are inclusive on the left column.
func splitByGeometry(input Input) (directional []amounts.Amount, balance *amounts.Amount) {
	for i := range input.Amounts {
		amount := input.Amounts[i]
		if input.Geometry.Classify(amount.RightEdgeX) == layout.ColumnBalance {
			if balance == nil {
				balance = &input.Amounts[i]
			} else {
				// Two balance-positioned amounts: keep the rightmost,
				// demote the other to directional.
				directional = append(directional, *balance)
				balance = &input.Amounts[i]
			}
			continue
		}
		directional = append(directional, amount)
	}
	return directional, balance
}

// signedBalance restores the sign on a balance amount; overdrawn
// balances print negative.
func signedBalance(a *amounts.Amount) *decimal.Decimal {
	value := a.Value
	if a.Negative {
		value = value.Neg()
	}
	return &value
}

// directionBySign maps a signed amount onto the row, negative meaning
// money out. Used where the in and out columns coincide (single
// "Amount" column banks).
func directionBySign(row *Row, amount amounts.Amount) {
	if amount.Negative {
		row.MoneyOut = amount.Value
	} else {
		row.MoneyIn = amount.Value
	}
}

// keywordDirection scans the description for the profile's directional
// keywords. Returns +1 for money in, -1 for money out, 0 for no match.
func keywordDirection(p *profile.BankProfile, description string) int {
	lower := strings.ToLower(description)
	for _, keyword := range p.Classification.MoneyInKeywords {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			return 1
		}
	}
	for _, keyword := range p.Classification.MoneyOutKeywords {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			return -1
		}
	}
	return 0
}

// columnClassifier: pure geometry. Each amount's right edge lands in a
// column; the thresholds come from the live ColumnModel.
type columnClassifier struct {
	profile *profile.BankProfile
	logger  logger.Logger
}

func (c *columnClassifier) Classify(input Input) (Row, []models.Warning) {
	var row Row

	if len(input.Amounts) == 1 {
		amount := input.Amounts[0]
		role := input.Geometry.Classify(amount.RightEdgeX)

		// A lone amount past the money-in threshold is a balance only
		// when the prior line was a bare description; otherwise it is a
		// directional amount whichever money column is nearer.
		if role == layout.ColumnBalance {
			if input.PrevLineBareDescription {
				row.Balance = signedBalance(&amount)
				return row, nil
			}
			role = nearerMoneyColumn(input.Geometry, amount.RightEdgeX)
		}
		c.assignDirectional(&row, amount, role)
		return row, nil
	}

	directional, balance := splitByGeometry(input)
	if balance != nil {
		row.Balance = signedBalance(balance)
	}
	for _, amount := range directional {
		if row.HasDirectional() && !c.profile.PermitBothAmounts {
			break
		}
		role := input.Geometry.Classify(amount.RightEdgeX)
		c.assignDirectional(&row, amount, role)
	}
	return row, nil
}

func (c *columnClassifier) assignDirectional(row *Row, amount amounts.Amount, role layout.ColumnRole) {
	if ambiguousDirection(c.profile) {
		directionBySign(row, amount)
		return
	}
	switch role {
	case layout.ColumnMoneyOut:
		row.MoneyOut = amount.Value
	default:
		row.MoneyIn = amount.Value
	}
}

// ambiguousDirection reports whether the profile's in and out columns
// coincide (single signed-amount column).
func ambiguousDirection(p *profile.BankProfile) bool {
	return p.DefaultColumnThresholds.MoneyInRightX == p.DefaultColumnThresholds.MoneyOutRightX
}

func nearerMoneyColumn(g layout.Geometry, rightX float64) layout.ColumnRole {
	outDist := rightX - g.MoneyOutRightX
	if outDist < 0 {
		outDist = -outDist
	}
	inDist := rightX - g.MoneyInRightX
	if inDist < 0 {
		inDist = -inDist
	}
	if outDist < inDist {
		return layout.ColumnMoneyOut
	}
	return layout.ColumnMoneyIn
}

// typeCodeClassifier: the bank prints an explicit type token (FPI, DD,
// CHG...). The code decides direction; position decides which amount is
// the balance; unknown codes fall back to geometry with a warning.
type typeCodeClassifier struct {
	profile *profile.BankProfile
	logger  logger.Logger
}

func (c *typeCodeClassifier) Classify(input Input) (Row, []models.Warning) {
	var row Row
	var warnings []models.Warning

	directional, balance := splitByGeometry(input)
	if balance != nil {
		row.Balance = signedBalance(balance)
	}
	if len(directional) == 0 {
		return row, nil
	}
	amount := directional[0]

	switch c.codeDirection(input.TypeCode) {
	case 1:
		row.MoneyIn = amount.Value
	case -1:
		row.MoneyOut = amount.Value
	default:
		if input.TypeCode != "" {
			warnings = append(warnings, models.NewWarning(models.WarnUnknownTypeCode,
				"unknown type code %q; falling back to column position", input.TypeCode))
		}
		if input.Geometry.Classify(amount.RightEdgeX) == layout.ColumnMoneyOut {
			row.MoneyOut = amount.Value
		} else {
			row.MoneyIn = amount.Value
		}
	}

	return row, warnings
}

func (c *typeCodeClassifier) codeDirection(code string) int {
	upper := strings.ToUpper(strings.TrimSpace(code))
	if upper == "" {
		return 0
	}
	for _, known := range c.profile.Classification.MoneyInCodes {
		if strings.ToUpper(known) == upper {
			return 1
		}
	}
	for _, known := range c.profile.Classification.MoneyOutCodes {
		if strings.ToUpper(known) == upper {
			return -1
		}
	}
	return 0
}

// keywordClassifier: directional keywords in the description decide;
// the default direction is money out. Geometry still separates the
// balance amount.
type keywordClassifier struct {
	profile *profile.BankProfile
	logger  logger.Logger
}

func (c *keywordClassifier) Classify(input Input) (Row, []models.Warning) {
	var row Row

	directional, balance := splitByGeometry(input)
	if balance != nil {
		row.Balance = signedBalance(balance)
	}
	if len(directional) == 0 {
		return row, nil
	}
	amount := directional[0]

	if keywordDirection(c.profile, input.Description) == 1 {
		row.MoneyIn = amount.Value
	} else {
		row.MoneyOut = amount.Value
	}
	return row, nil
}

// hybridClassifier: geometry decides when the row is unambiguous (a
// directional amount plus a balance with distinct right edges);
// keywords, then sign, decide when geometry yields one amount alone or
// when the profile's in and out columns share one right edge (a single
// signed-amount column).
type hybridClassifier struct {
	profile *profile.BankProfile
	logger  logger.Logger
}

func (c *hybridClassifier) Classify(input Input) (Row, []models.Warning) {
	var row Row

	directional, balance := splitByGeometry(input)
	if balance != nil {
		row.Balance = signedBalance(balance)
	}
	if len(directional) == 0 {
		return row, nil
	}
	amount := directional[0]

	if balance != nil && !ambiguousDirection(c.profile) {
		// Geometry is decisive.
		if input.Geometry.Classify(amount.RightEdgeX) == layout.ColumnMoneyOut {
			row.MoneyOut = amount.Value
		} else {
			row.MoneyIn = amount.Value
		}
		return row, nil
	}

	switch keywordDirection(c.profile, input.Description) {
	case 1:
		row.MoneyIn = amount.Value
	case -1:
		row.MoneyOut = amount.Value
	default:
		directionBySign(&row, amount)
	}
	return row, nil
}
