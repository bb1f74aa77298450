// Package reconcile verifies that emitted transactions are
// mathematically consistent with their printed balances, applying at
// most one authoritative cascade of corrections per statement period:
// direction swaps where they strictly improve the error, and cascading
// balance recalculation for the brought-forward quirk where a PDF
// repeats the opening balance on the first real row.
package reconcile

import (
	"github.com/shopspring/decimal"

	"bank-statement-engine/internal/models"
	"bank-statement-engine/internal/statemachine"
	"bank-statement-engine/pkg/logger"
)

var (
	// epsilon is the per-transaction balance tolerance (1p).
	epsilon = decimal.New(1, -2)
	// totalsTolerance is the soft tolerance against printed period
	// totals (50p).
	totalsTolerance = decimal.New(50, -2)
)

// Reconciler runs the per-period pass. It may rewrite fields of emitted
// transactions (direction, balance) before the result is returned —
// never after.
type Reconciler struct {
	logger logger.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(log logger.Logger) *Reconciler {
	if log == nil {
		log = logger.Nop()
	}
	return &Reconciler{logger: log.WithComponent("reconciler")}
}

// Reconcile partitions the transactions into periods at the synthetic
// markers and runs an independent pass over each. The returned periods
// own the transactions in emission order, markers included.
func (r *Reconciler) Reconcile(transactions []*models.Transaction,
	opening *decimal.Decimal, printed map[int]*statemachine.PrintedTotals) []*models.Period {

	groups := splitPeriods(transactions)
	periods := make([]*models.Period, 0, len(groups))

	for i, group := range groups {
		period := &models.Period{
			Index:        i,
			Reconciled:   true,
			Transactions: group,
		}
		if totals := printed[i]; totals != nil {
			period.PrintedTotalIn = totals.In
			period.PrintedTotalOut = totals.Out
			period.PrintedClosing = totals.Closing
		}

		r.reconcilePeriod(period, opening)
		r.assertTotals(period)
		periods = append(periods, period)
	}

	return periods
}

// splitPeriods groups transactions so each marker opens the period it
// belongs to. A PeriodBreak is strictly between the last transaction of
// one period and the first of the next.
func splitPeriods(transactions []*models.Transaction) [][]*models.Transaction {
	var groups [][]*models.Transaction
	var current []*models.Transaction

	for _, txn := range transactions {
		if txn.Type == models.TypePeriodBreak && len(current) > 0 {
			groups = append(groups, current)
			current = nil
		}
		current = append(current, txn)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	if len(groups) == 0 {
		groups = append(groups, []*models.Transaction{})
	}
	return groups
}

// reconcilePeriod walks one period's rows against the running balance.
func (r *Reconciler) reconcilePeriod(period *models.Period, statementOpening *decimal.Decimal) {
	prev, havePrev := r.openingFor(period, statementOpening)
	period.OpeningBalance = prev

	cascade := false
	rows := r.ledgerRows(period)

	for i, txn := range rows {
		if cascade {
			// Printed balances in this period are known-inconsistent;
			// recompute from the running balance.
			recomputed := prev.Add(txn.Delta())
			txn.SetBalance(recomputed)
			prev = recomputed
			continue
		}

		if !txn.HasBalance() {
			if havePrev {
				prev = prev.Add(txn.Delta())
			}
			continue
		}

		if !havePrev {
			prev = *txn.Balance
			havePrev = true
			continue
		}

		expected := txn.Balance.Sub(prev)
		computed := txn.Delta()
		err0 := expected.Sub(computed).Abs()

		if err0.LessThanOrEqual(epsilon) {
			prev = *txn.Balance
			continue
		}

		// Direction swap: accept when the error strictly improves.
		err1 := expected.Sub(computed.Neg()).Abs()
		if err1.LessThan(err0) {
			txn.SwapDirection()
			computed = txn.Delta()
			period.Warnings = append(period.Warnings, models.Warning{
				Kind:             models.WarnDirectionSwap,
				Message:          "direction swap applied",
				TransactionIndex: i,
				Expected:         expected,
				Computed:         computed,
			})
			r.logger.WithFields(logger.Fields{
				"period": period.Index,
				"txn":    i,
			}).Debug("Direction swap applied")

			if expected.Sub(computed).Abs().LessThanOrEqual(epsilon) {
				prev = *txn.Balance
				continue
			}
		}

		// Brought-forward quirk: the first row after the marker repeats
		// the brought-forward balance while carrying a real amount. If
		// recomputing would let the next row reconcile, rewrite and
		// switch this period to cascade mode.
		if i == 0 && expected.Abs().LessThanOrEqual(epsilon) && txn.HasDirectional() {
			rewritten := prev.Add(txn.Delta())
			if r.nextWouldReconcile(rows, i, rewritten) {
				txn.SetBalance(rewritten)
				prev = rewritten
				cascade = true
				period.CascadeRecalculated = true
				period.Warnings = append(period.Warnings, models.Warning{
					Kind:             models.WarnCascadeRecalc,
					Message:          "brought-forward quirk: balances recalculated from running balance",
					TransactionIndex: i,
					Expected:         expected,
					Computed:         computed,
				})
				r.logger.WithField("period", period.Index).Info("Cascade recalculation engaged")
				continue
			}
		}

		// Irreconcilable: record and continue with the PDF balance.
		period.Warnings = append(period.Warnings, models.Warning{
			Kind:             models.WarnBalanceMismatch,
			Message:          "balance mismatch",
			TransactionIndex: i,
			Expected:         expected,
			Computed:         computed,
		})
		period.Reconciled = false
		prev = *txn.Balance
	}

	period.ClosingBalance = prev
}

// ledgerRows returns the period's non-marker transactions.
func (r *Reconciler) ledgerRows(period *models.Period) []*models.Transaction {
	var rows []*models.Transaction
	for _, txn := range period.Transactions {
		if !txn.IsMarker() {
			rows = append(rows, txn)
		}
	}
	return rows
}

// openingFor resolves a period's opening balance: its own marker's
// printed balance, the statement opening for the first period, or
// derived backwards from the first balanced row.
func (r *Reconciler) openingFor(period *models.Period, statementOpening *decimal.Decimal) (decimal.Decimal, bool) {
	for _, txn := range period.Transactions {
		if txn.IsMarker() && txn.HasBalance() {
			return *txn.Balance, true
		}
	}
	if period.Index == 0 && statementOpening != nil {
		return *statementOpening, true
	}
	for _, txn := range period.Transactions {
		if !txn.IsMarker() && txn.HasBalance() {
			return txn.Balance.Sub(txn.Delta()), true
		}
	}
	return decimal.Zero, false
}

// nextWouldReconcile checks whether the first following row with a
// printed balance is consistent with the rewritten running balance —
// the justification for trusting the recomputation over the PDF.
func (r *Reconciler) nextWouldReconcile(rows []*models.Transaction, idx int, running decimal.Decimal) bool {
	for _, txn := range rows[idx+1:] {
		running = running.Add(txn.Delta())
		if txn.HasBalance() {
			return txn.Balance.Sub(running).Abs().LessThanOrEqual(epsilon)
		}
	}
	// No later balance to contradict the rewrite.
	return true
}

// assertTotals applies the soft period-level assertions against printed
// summary figures: total money in within 50p, closing balance within 1p.
func (r *Reconciler) assertTotals(period *models.Period) {
	if period.PrintedTotalIn != nil {
		diff := period.TotalIn().Sub(*period.PrintedTotalIn).Abs()
		if diff.GreaterThan(totalsTolerance) {
			period.Warnings = append(period.Warnings, models.NewWarning(models.WarnPeriodTotals,
				"period %d money in %s differs from printed total %s",
				period.Index, period.TotalIn().StringFixed(2), period.PrintedTotalIn.StringFixed(2)))
		}
	}
	if period.PrintedTotalOut != nil {
		diff := period.TotalOut().Sub(*period.PrintedTotalOut).Abs()
		if diff.GreaterThan(totalsTolerance) {
			period.Warnings = append(period.Warnings, models.NewWarning(models.WarnPeriodTotals,
				"period %d money out %s differs from printed total %s",
				period.Index, period.TotalOut().StringFixed(2), period.PrintedTotalOut.StringFixed(2)))
		}
	}
	if period.PrintedClosing != nil {
		diff := period.ClosingBalance.Sub(*period.PrintedClosing).Abs()
		if diff.GreaterThan(epsilon) {
			period.Warnings = append(period.Warnings, models.NewWarning(models.WarnPeriodTotals,
				"period %d closing balance %s differs from printed %s",
				period.Index, period.ClosingBalance.StringFixed(2), period.PrintedClosing.StringFixed(2)))
		}
	}
}
