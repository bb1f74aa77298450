package layout

import (
	"sort"
	"strings"

	"bank-statement-engine/internal/models"
	"bank-statement-engine/internal/profile"
	"bank-statement-engine/pkg/logger"
)

// ColumnRole labels the three money columns of a statement table.
type ColumnRole string

const (
	ColumnMoneyOut ColumnRole = "money_out"
	ColumnMoneyIn  ColumnRole = "money_in"
	ColumnBalance  ColumnRole = "balance"
)

// Geometry is one resolved set of column right-edges, valid from the
// header line that produced it until the next header re-occurrence.
type Geometry struct {
	MoneyOutRightX float64
	MoneyInRightX  float64
	BalanceRightX  float64
	HeaderY        float64
	Page           int
}

// boundary is a role with its right edge, used for ordered threshold
// classification.
type boundary struct {
	role   ColumnRole
	rightX float64
}

// ordered returns the boundaries sorted left to right. Banks print the
// money columns in either order (Paid In before Withdrawn or the
// reverse); classification works off geometry, not print order.
func (g *Geometry) ordered() []boundary {
	bounds := []boundary{
		{ColumnMoneyOut, g.MoneyOutRightX},
		{ColumnMoneyIn, g.MoneyInRightX},
		{ColumnBalance, g.BalanceRightX},
	}
	sort.SliceStable(bounds, func(i, j int) bool {
		return bounds[i].rightX < bounds[j].rightX
	})
	return bounds
}

// Classify assigns an amount's right edge to a column. The threshold
// between two adjacent columns is the midpoint of their right edges and
// comparisons are inclusive on the left column: x <= threshold goes
// left.
func (g *Geometry) Classify(rightX float64) ColumnRole {
	bounds := g.ordered()
	for i := 0; i < len(bounds)-1; i++ {
		threshold := (bounds[i].rightX + bounds[i+1].rightX) / 2
		if rightX <= threshold {
			return bounds[i].role
		}
	}
	return bounds[len(bounds)-1].role
}

// OutThreshold returns the inclusive upper bound of the money-out
// column, midway to the next column on its right.
func (g *Geometry) OutThreshold() float64 {
	return thresholdFor(g, ColumnMoneyOut)
}

// InThreshold returns the inclusive upper bound of the money-in column.
func (g *Geometry) InThreshold() float64 {
	return thresholdFor(g, ColumnMoneyIn)
}

func thresholdFor(g *Geometry, role ColumnRole) float64 {
	bounds := g.ordered()
	for i := 0; i < len(bounds)-1; i++ {
		if bounds[i].role == role {
			return (bounds[i].rightX + bounds[i+1].rightX) / 2
		}
	}
	// Rightmost column has no upper bound.
	return bounds[len(bounds)-1].rightX
}

// ColumnModel tracks money column boundaries page by page. The model
// updates on every recognized header re-occurrence; a page without a
// header inherits the previous page's geometry, and until any header is
// seen the bank profile defaults apply. Statements reflow headers per
// page with different margins, so a single cached threshold would
// corrupt downstream classification.
type ColumnModel struct {
	profile *profile.BankProfile
	logger  logger.Logger

	current     Geometry
	fromHeader  bool
	currentPage int
	linesOnPage int
	headerSeen  bool
}

// NewColumnModel creates a model seeded with the profile's default
// thresholds.
func NewColumnModel(p *profile.BankProfile, log logger.Logger) *ColumnModel {
	if log == nil {
		log = logger.Nop()
	}
	return &ColumnModel{
		profile: p,
		logger:  log.WithComponent("column_model"),
		current: Geometry{
			MoneyOutRightX: p.DefaultColumnThresholds.MoneyOutRightX,
			MoneyInRightX:  p.DefaultColumnThresholds.MoneyInRightX,
			BalanceRightX:  p.DefaultColumnThresholds.BalanceRightX,
			Page:           -1,
		},
		currentPage: -1,
	}
}

// Observe feeds the model one reconstructed line. It returns true when
// the line was recognized as a column header (callers treat header
// lines as non-transactional), plus a warning when a page exhausts its
// header scan window on a profile that requires a header per page.
func (cm *ColumnModel) Observe(line *models.Line) (bool, *models.Warning) {
	var warning *models.Warning

	if line.PageIndex != cm.currentPage {
		cm.currentPage = line.PageIndex
		cm.linesOnPage = 0
		cm.headerSeen = false
	}
	cm.linesOnPage++

	// Only the first HeaderScanLines lines of a page are candidates; a
	// late header match would more likely be a summary row.
	if !cm.headerSeen && cm.linesOnPage <= cm.profile.HeaderScanLines {
		if geometry, ok := cm.matchHeader(line); ok {
			cm.current = geometry
			cm.fromHeader = true
			cm.headerSeen = true
			cm.logger.WithFields(logger.Fields{
				"page":      line.PageIndex,
				"out_right": geometry.MoneyOutRightX,
				"in_right":  geometry.MoneyInRightX,
				"bal_right": geometry.BalanceRightX,
			}).Debug("Column header matched, thresholds updated")
			return true, nil
		}
	}

	if !cm.headerSeen && cm.linesOnPage == cm.profile.HeaderScanLines &&
		cm.profile.RequireHeaderPerPage {
		w := models.NewWarning(models.WarnMissingHeader,
			"no column header found in first %d lines of page %d; retaining previous thresholds",
			cm.profile.HeaderScanLines, line.PageIndex)
		warning = &w
	}

	return false, warning
}

// matchHeader recognizes a header line: every configured column name
// present, each mapped to a money role by its wording. The recorded
// x for each column is the right edge of the run that printed its name
// (amounts are right-aligned under it).
func (cm *ColumnModel) matchHeader(line *models.Line) (Geometry, bool) {
	if len(cm.profile.ColumnNames) == 0 {
		return Geometry{}, false
	}

	lower := strings.ToLower(line.Text)
	geometry := Geometry{HeaderY: line.Y, Page: line.PageIndex}
	rolesSeen := make(map[ColumnRole]bool)

	for _, name := range cm.profile.ColumnNames {
		idx := strings.Index(lower, strings.ToLower(name))
		if idx < 0 {
			return Geometry{}, false
		}

		endX := line.XAtOffset(idx + len(name))
		role := roleForColumnName(name)
		rolesSeen[role] = true

		switch role {
		case ColumnMoneyOut:
			geometry.MoneyOutRightX = endX
		case ColumnMoneyIn:
			geometry.MoneyInRightX = endX
		case ColumnBalance:
			geometry.BalanceRightX = endX
		}
	}

	// A usable header names the balance column plus at least one money
	// column. Single-amount banks (Monzo) print "Amount" and "Balance";
	// the amount column then stands in for both directions.
	if !rolesSeen[ColumnBalance] {
		return Geometry{}, false
	}
	if !rolesSeen[ColumnMoneyOut] && !rolesSeen[ColumnMoneyIn] {
		return Geometry{}, false
	}
	if !rolesSeen[ColumnMoneyOut] {
		geometry.MoneyOutRightX = geometry.MoneyInRightX
	}
	if !rolesSeen[ColumnMoneyIn] {
		geometry.MoneyInRightX = geometry.MoneyOutRightX
	}

	return geometry, true
}

// roleForColumnName maps a printed column name to its money role.
// Recognized namings cover the corpus: "Money out", "Money in",
// "Paid in", "Paid out", "Withdrawn", "£ In", "£ Out", "Amount",
// "Balance".
func roleForColumnName(name string) ColumnRole {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "balance"):
		return ColumnBalance
	case strings.Contains(lower, "out"), strings.Contains(lower, "withdraw"),
		strings.Contains(lower, "debit"):
		return ColumnMoneyOut
	case strings.Contains(lower, "in"), strings.Contains(lower, "deposit"),
		strings.Contains(lower, "credit"):
		return ColumnMoneyIn
	default:
		// "Amount" style single columns carry both directions; treat as
		// money-in and let the mirror fill in money-out.
		return ColumnMoneyIn
	}
}

// Geometry returns the active column geometry.
func (cm *ColumnModel) Geometry() Geometry {
	return cm.current
}

// FromHeader reports whether the active geometry came from a matched
// header rather than profile defaults.
func (cm *ColumnModel) FromHeader() bool {
	return cm.fromHeader
}
