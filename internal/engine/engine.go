// Package engine glues the pipeline together: token collection, line
// reconstruction, metadata capture, the per-line state machine and the
// reconciliation pass. One Engine value is reentrant; every Parse call
// owns its state exclusively.
package engine

import (
	"context"
	"strings"
	"time"

	"bank-statement-engine/internal/amounts"
	"bank-statement-engine/internal/classify"
	"bank-statement-engine/internal/dates"
	"bank-statement-engine/internal/layout"
	"bank-statement-engine/internal/models"
	"bank-statement-engine/internal/profile"
	"bank-statement-engine/internal/reconcile"
	"bank-statement-engine/internal/statemachine"
	"bank-statement-engine/internal/tokens"
	"bank-statement-engine/pkg/errors"
	"bank-statement-engine/pkg/logger"

	"github.com/google/uuid"
)

// Options configures one Engine.
type Options struct {
	// RequireStrict makes the overall result unsuccessful when any
	// period fails reconciliation. Drivers producing legal evidence set
	// it; permissive callers get success-with-warnings instead.
	RequireStrict bool

	// RunID overrides the generated run identifier. Results are
	// byte-identical for identical inputs apart from this field; tests
	// pin it.
	RunID string
}

// Engine is the orchestrator over components A-H.
type Engine struct {
	logger logger.Logger
	opts   Options
}

// New creates an engine.
func New(log logger.Logger, opts Options) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		logger: log.WithComponent("engine"),
		opts:   opts,
	}
}

// Parse consumes the token stream under the given bank profile and
// returns the statement result. The only errors crossing this boundary
// are ProfileInvalid, StreamInvalid and Cancelled; everything softer is
// a warning on the result. On cancellation the partial result
// accompanies the error.
func (e *Engine) Parse(ctx context.Context, stream tokens.TokenStream, p *profile.BankProfile) (*models.StatementResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if p == nil {
		return nil, errors.New(errors.CategoryProfile, errors.CodeProfileInvalid, "no bank profile supplied")
	}
	if !p.Validated() {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	result := &models.StatementResult{
		RunID: e.opts.RunID,
		Account: models.AccountInfo{
			Bank:     p.Name,
			Currency: p.Currency,
		},
	}
	if result.RunID == "" {
		result.RunID = uuid.NewString()
	}

	collected, err := tokens.Collect(stream, p.YTolerance)
	if err != nil {
		return result, err
	}

	reconstructor := layout.NewLineReconstructor(p.YTolerance, e.logger)
	lines, lineWarnings := reconstructor.Reconstruct(collected)
	result.Warnings = append(result.Warnings, lineWarnings...)

	e.captureMetadata(p, lines, &result.Account)

	dateEngine := dates.NewEngine(p, e.logger)
	dateEngine.SetPeriod(result.Account.PeriodStart, result.Account.PeriodEnd)

	extractor := amounts.NewExtractor(p, e.logger)
	classifier := classify.New(p, e.logger)
	columns := layout.NewColumnModel(p, e.logger)
	machine := statemachine.New(p, dateEngine, extractor, classifier, columns, e.logger)

	for i := range lines {
		// Cancellation is honored between lines: everything emitted so
		// far returns cleanly as a partial result.
		if ctx.Err() != nil {
			e.finalize(result, machine.Finish(), true)
			return result, errors.Cancelled(ctx.Err().Error())
		}
		machine.ProcessLine(&lines[i])
	}

	e.finalize(result, machine.Finish(), false)

	e.logger.WithFields(logger.Fields{
		"bank":         p.Name,
		"transactions": result.TransactionCount(),
		"periods":      len(result.Periods),
		"warnings":     len(result.Warnings),
		"confidence":   result.ConfidenceOverall,
	}).Info("Statement parsed")

	return result, nil
}

// finalize runs reconciliation and fills the statement-level fields.
func (e *Engine) finalize(result *models.StatementResult, machineOut *statemachine.Result, partial bool) {
	result.Warnings = append(result.Warnings, machineOut.Warnings...)
	result.Transactions = machineOut.Transactions

	reconciler := reconcile.NewReconciler(e.logger)
	result.Periods = reconciler.Reconcile(machineOut.Transactions, machineOut.OpeningBalance, machineOut.PeriodTotals)

	for _, period := range result.Periods {
		result.Warnings = append(result.Warnings, period.Warnings...)
		if !period.Reconciled {
			result.AddWarning(models.NewWarning(models.WarnPeriodFailed,
				"period %d failed reconciliation", period.Index))
		}
	}

	if len(result.Periods) > 0 {
		result.OpeningBalance = result.Periods[0].OpeningBalance
		result.ClosingBalance = result.Periods[len(result.Periods)-1].ClosingBalance
	}

	result.ConfidenceOverall = e.overallConfidence(result)
	result.Partial = partial
	result.Success = !partial && (!e.opts.RequireStrict || result.AllReconciled())
}

// overallConfidence aggregates per-transaction confidence into the
// statement score: the mean over ledger rows, pulled down when periods
// fail reconciliation.
func (e *Engine) overallConfidence(result *models.StatementResult) int {
	sum, count := 0, 0
	for _, txn := range result.Transactions {
		if txn.IsMarker() {
			continue
		}
		sum += txn.Confidence
		count++
	}
	if count == 0 {
		return 0
	}

	score := (sum + count/2) / count
	for _, period := range result.Periods {
		if !period.Reconciled {
			score -= 15
		}
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// captureMetadata scans the reconstructed lines against the profile's
// header patterns for account number, sort code, holder and the
// statement period. First match wins; capture happens before any line
// is skipped or parsed.
func (e *Engine) captureMetadata(p *profile.BankProfile, lines []models.Line, account *models.AccountInfo) {
	for i := range lines {
		text := lines[i].Text

		if account.AccountNumber == "" {
			if m := matchGroup(p, "account_number", text); m != "" {
				account.AccountNumber = m
			}
		}
		if account.SortCode == "" {
			if m := matchGroup(p, "sort_code", text); m != "" {
				account.SortCode = m
			}
		}
		if account.Holder == "" {
			if m := matchGroup(p, "account_holder", text); m != "" {
				account.Holder = m
			}
		}
		if account.PeriodStart == nil {
			e.capturePeriod(p, text, account)
		}
	}
}

func matchGroup(p *profile.BankProfile, name, text string) string {
	matcher := p.HeaderMatcher(name)
	if matcher == nil {
		return ""
	}
	sub := matcher.FindStringSubmatch(text)
	if sub == nil || len(sub) < 2 {
		return ""
	}
	return strings.TrimSpace(sub[1])
}

// capturePeriod parses the two capture groups of the period pattern. A
// start date printed without a year (Barclays style "1 Nov - 30 Nov
// 2024") borrows the end date's year, stepping back one year when that
// would place the start after the end.
func (e *Engine) capturePeriod(p *profile.BankProfile, text string, account *models.AccountInfo) {
	matcher := p.HeaderMatcher("period")
	if matcher == nil {
		return
	}
	sub := matcher.FindStringSubmatch(text)
	if sub == nil || len(sub) < 3 {
		return
	}

	end, endHasYear, okEnd := dates.ParseHeaderDate(p.DateFormats, sub[2])
	if !okEnd || !endHasYear {
		return
	}

	start, startHasYear, okStart := dates.ParseHeaderDate(p.DateFormats, sub[1])
	if !okStart {
		return
	}
	if !startHasYear {
		start = time.Date(end.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		if start.After(end) {
			start = start.AddDate(-1, 0, 0)
		}
	}

	account.PeriodStart = &start
	account.PeriodEnd = &end

	e.logger.WithFields(logger.Fields{
		"start": start.Format("2006-01-02"),
		"end":   end.Format("2006-01-02"),
	}).Debug("Captured statement period")
}
