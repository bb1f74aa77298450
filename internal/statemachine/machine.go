package statemachine

import (
	"strings"
	"time"

	"bank-statement-engine/internal/amounts"
	"bank-statement-engine/internal/classify"
	"bank-statement-engine/internal/dates"
	"bank-statement-engine/internal/layout"
	"bank-statement-engine/internal/models"
	"bank-statement-engine/internal/profile"
	"bank-statement-engine/pkg/logger"

	"github.com/shopspring/decimal"
)

// PrintedTotals collects the summary figures a period's skipped summary
// rows printed, used afterwards for the soft reconciliation assertions.
type PrintedTotals struct {
	In      *decimal.Decimal
	Out     *decimal.Decimal
	Closing *decimal.Decimal
}

// Result is everything the machine produced from one pass over the
// lines.
type Result struct {
	Transactions   []*models.Transaction
	Warnings       []models.Warning
	OpeningBalance *decimal.Decimal
	PeriodTotals   map[int]*PrintedTotals
}

// partial is the transaction under construction.
type partial struct {
	date        time.Time
	datePending bool
	descLines   []string
	moneyIn     decimal.Decimal
	moneyOut    decimal.Decimal
	balance     *decimal.Decimal
	typeCode    string
	sourcePage  int
	sourceLine  int
}

func (p *partial) hasDirectional() bool {
	return p.moneyIn.IsPositive() || p.moneyOut.IsPositive()
}

func (p *partial) description() string {
	return strings.TrimSpace(strings.Join(p.descLines, " "))
}

func (p *partial) hasContent() bool {
	return len(p.descLines) > 0 || p.hasDirectional() || p.balance != nil
}

// Machine drives the per-line event loop. Line events are handled in
// priority order: period boundary, summary-total capture, column header,
// skip, new date, year-digit completion, FX meta, amounts,
// continuation. Emission happens as soon as a transaction completes;
// the machine never waits for the next date when a balance has landed.
type Machine struct {
	profile    *profile.BankProfile
	logger     logger.Logger
	dates      *dates.Engine
	extractor  *amounts.Extractor
	classifier classify.Classifier
	columns    *layout.ColumnModel
	skip       *SkipFilter

	current       *partial
	carryOver     []string
	fxBlockActive bool
	prevLineBare  bool

	transactions   []*models.Transaction
	warnings       []models.Warning
	openingBalance *decimal.Decimal
	periodIndex    int
	totals         map[int]*PrintedTotals
}

// New creates a machine for one parse. All collaborators are owned by
// the caller; the machine holds the only mutable state.
func New(p *profile.BankProfile, dateEngine *dates.Engine, extractor *amounts.Extractor,
	classifier classify.Classifier, columns *layout.ColumnModel, log logger.Logger) *Machine {
	if log == nil {
		log = logger.Nop()
	}
	return &Machine{
		profile:    p,
		logger:     log.WithComponent("state_machine"),
		dates:      dateEngine,
		extractor:  extractor,
		classifier: classifier,
		columns:    columns,
		skip:       NewSkipFilter(p),
		totals:     make(map[int]*PrintedTotals),
	}
}

// ProcessLine consumes one reconstructed line.
func (m *Machine) ProcessLine(line *models.Line) {
	// Period boundaries and summary totals are captured before skip
	// filtering so summary rows still contribute metadata.
	if m.handlePeriodBoundary(line) {
		m.prevLineBare = false
		return
	}
	captured := m.captureTotals(line)

	headerMatched, headerWarning := m.columns.Observe(line)
	if headerWarning != nil {
		m.warnings = append(m.warnings, *headerWarning)
	}
	if headerMatched || captured || m.skip.Skip(line.Text) {
		return
	}

	m.handleText(line, line.Text, 0)
}

// Finish flushes the final transaction and returns the machine output.
func (m *Machine) Finish() *Result {
	if m.current != nil {
		if m.isComplete() {
			m.emit()
		} else if m.current.hasContent() {
			m.discardCurrent("end of stream")
		} else {
			m.current = nil
		}
	}
	return &Result{
		Transactions:   m.transactions,
		Warnings:       m.warnings,
		OpeningBalance: m.openingBalance,
		PeriodTotals:   m.totals,
	}
}

// handleText processes a line or a re-queued fragment of one.
// baseOffset locates the fragment inside line.Text so amounts keep
// their page coordinates.
func (m *Machine) handleText(line *models.Line, text string, baseOffset int) {
	if strings.TrimSpace(text) == "" {
		return
	}

	// New date: always wins, even over a pending year digit.
	if match, ok := m.dates.MatchFull(text); ok {
		m.startTransaction(line, match)
		if match.Remainder != "" {
			m.handleRemainder(line, text, match.Remainder, baseOffset)
		}
		m.prevLineBare = false
		return
	}

	if prefix, remainder, ok := m.dates.MatchSplit(text); ok {
		m.flushBeforeNewDate()
		m.dates.BeginSplit(prefix)
		m.current = &partial{
			datePending: true,
			sourcePage:  line.PageIndex,
			sourceLine:  line.Index,
		}
		if remainder != "" {
			m.handleRemainder(line, text, remainder, baseOffset)
		}
		m.prevLineBare = false
		return
	}

	// Year-digit completion for a split date.
	if m.dates.PendingYearDigit() && m.current != nil && m.current.datePending {
		match, trailing, ok := m.dates.CompleteWithDigit(text)
		if !ok && match != nil {
			// The digit landed but the assembled date is nonsense.
			m.recordDateWarning(match)
			m.discardCurrent("unparseable split date")
			if trailing != "" {
				m.handleRemainder(line, text, trailing, baseOffset)
			}
			m.prevLineBare = false
			return
		}
		if ok {
			m.current.date = match.Date
			m.current.datePending = false
			m.attachCarryOver()
			m.recordDateWarning(match)
			if trailing != "" {
				m.handleRemainder(line, text, trailing, baseOffset)
			}
			// Amounts may have landed before the year digit.
			if m.current != nil {
				m.emitIfComplete()
			}
			m.prevLineBare = false
			return
		}
	}

	// FX meta lines join the description verbatim; their foreign values
	// never become ledger amounts, but any GBP amounts sharing the line
	// still count.
	if m.isFXMeta(text) {
		m.handleFXLine(line, text, baseOffset)
		m.prevLineBare = false
		return
	}

	found := m.extractor.ExtractFromText(text, nil)
	if len(found) > 0 {
		m.handleAmountLine(line, text, baseOffset, found)
		m.prevLineBare = false
		return
	}

	m.handleContinuation(text)
	m.prevLineBare = true
}

// handleRemainder re-queues the trailing fragment of a line for
// reclassification, preserving its coordinate base.
func (m *Machine) handleRemainder(line *models.Line, fullText, remainder string, baseOffset int) {
	idx := strings.LastIndex(fullText, remainder)
	if idx < 0 {
		idx = len(fullText) - len(remainder)
	}
	m.handleText(line, remainder, baseOffset+idx)
}

func (m *Machine) startTransaction(line *models.Line, match *dates.Match) {
	m.flushBeforeNewDate()

	m.current = &partial{
		date:       match.Date,
		sourcePage: line.PageIndex,
		sourceLine: line.Index,
	}
	m.attachCarryOver()
	m.recordDateWarning(match)
}

func (m *Machine) recordDateWarning(match *dates.Match) {
	if match.Warning != nil {
		m.warnings = append(m.warnings, *match.Warning)
	}
}

// flushBeforeNewDate emits a complete transaction or discards an
// incomplete fragment before a new date starts one.
func (m *Machine) flushBeforeNewDate() {
	if m.current == nil {
		return
	}
	if m.isComplete() {
		m.emit()
		return
	}
	if m.current.hasContent() {
		m.discardCurrent("new date started")
		return
	}
	m.current = nil
}

func (m *Machine) attachCarryOver() {
	if m.current == nil || m.current.datePending || len(m.carryOver) == 0 {
		return
	}
	m.current.descLines = append(m.current.descLines, m.carryOver...)
	m.carryOver = nil
}

func (m *Machine) isFXMeta(text string) bool {
	if m.extractor.HasFXMarker(text) {
		return true
	}
	return strings.Contains(strings.ToLower(text), "rate:")
}

func (m *Machine) handleFXLine(line *models.Line, text string, baseOffset int) {
	if m.current == nil {
		// Quiet window: the FX block belongs to the next transaction.
		m.carryOver = append(m.carryOver, strings.TrimSpace(text))
		return
	}

	m.attachCarryOver()
	m.fxBlockActive = true

	found := m.extractor.ExtractFromText(text, nil)
	if len(found) > 0 {
		m.fillFromAmounts(line, text, baseOffset, found)
		return
	}

	m.current.descLines = append(m.current.descLines, strings.TrimSpace(text))
	m.emitIfComplete()
}

func (m *Machine) handleAmountLine(line *models.Line, text string, baseOffset int, found []amounts.Amount) {
	if m.current == nil || m.current.datePending {
		if m.current == nil {
			m.warnings = append(m.warnings, models.NewWarning(models.WarnDiscardedFragment,
				"amount-bearing line with no open transaction at page %d line %d: %q",
				line.PageIndex, line.Index, strings.TrimSpace(text)))
			return
		}
		// Amounts may land while the date still awaits its year digit;
		// accumulate them, completion waits for the date.
	}

	m.attachCarryOver()
	m.fillFromAmounts(line, text, baseOffset, found)
}

// fillFromAmounts classifies the line's amounts against the live column
// geometry and fills the missing fields of the open transaction.
func (m *Machine) fillFromAmounts(line *models.Line, text string, baseOffset int, found []amounts.Amount) {
	// Re-anchor fragment amounts onto the page.
	for i := range found {
		found[i].RightEdgeX = line.XAtOffset(baseOffset + found[i].TextEnd)
	}

	descPart := amounts.StripAmounts(text, found)
	if m.current.typeCode == "" {
		m.current.typeCode = m.findTypeCode(descPart)
	}

	input := classify.Input{
		Amounts:                 found,
		Description:             strings.TrimSpace(m.current.description() + " " + descPart),
		TypeCode:                m.current.typeCode,
		Geometry:                m.columns.Geometry(),
		PrevLineBareDescription: m.prevLineBare,
	}
	row, rowWarnings := m.classifier.Classify(input)
	m.warnings = append(m.warnings, rowWarnings...)

	if descPart != "" {
		m.current.descLines = append(m.current.descLines, descPart)
	}
	if !m.current.hasDirectional() {
		m.current.moneyIn = row.MoneyIn
		m.current.moneyOut = row.MoneyOut
	}
	if m.current.balance == nil && row.Balance != nil {
		m.current.balance = row.Balance
	}

	m.emitIfComplete()
}

func (m *Machine) handleContinuation(text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}

	if m.current != nil {
		m.current.descLines = append(m.current.descLines, trimmed)
		return
	}

	// Quiet window between an emitted transaction and the next date:
	// this line belongs to the next transaction.
	m.carryOver = append(m.carryOver, trimmed)
}

// isComplete implements the completion predicate: a fully realized date
// plus a balance with a directional amount, a balance alone where the
// profile permits rows without one (brought-forward, some fees), or a
// directional amount alone for banks with no balance column.
func (m *Machine) isComplete() bool {
	if m.current == nil || m.current.datePending || m.current.date.IsZero() {
		return false
	}
	if m.current.balance != nil {
		return m.current.hasDirectional() || m.profile.AllowMissingBalance
	}
	// No balance column configured at all: a directional amount
	// completes the row.
	if m.profile.DefaultColumnThresholds.BalanceRightX == 0 {
		return m.current.hasDirectional()
	}
	return false
}

func (m *Machine) emitIfComplete() {
	if m.isComplete() {
		m.emit()
	}
}

// emit finalizes the open transaction. Carry-over is retained for the
// next transaction; the FX flag clears.
func (m *Machine) emit() {
	p := m.current
	description := p.description()

	txn := &models.Transaction{
		Date:        p.date,
		Description: description,
		MoneyIn:     p.moneyIn,
		MoneyOut:    p.moneyOut,
		Balance:     p.balance,
		TypeCode:    p.typeCode,
		Type:        m.profile.DetectType(p.typeCode, description),
		SourcePage:  p.sourcePage,
		SourceLine:  p.sourceLine,
	}
	txn.Confidence = scoreConfidence(txn)

	m.transactions = append(m.transactions, txn)
	m.logger.WithFields(logger.Fields{
		"date":     txn.Date.Format("2006-01-02"),
		"in":       txn.MoneyIn.StringFixed(2),
		"out":      txn.MoneyOut.StringFixed(2),
		"has_bal":  txn.HasBalance(),
	}).Debug("Emitted transaction")

	m.current = nil
	m.fxBlockActive = false
}

func (m *Machine) discardCurrent(reason string) {
	m.warnings = append(m.warnings, models.NewWarning(models.WarnDiscardedFragment,
		"discarded incomplete transaction fragment (%s) at page %d line %d: %q",
		reason, m.current.sourcePage, m.current.sourceLine, m.current.description()))
	m.logger.WithField("reason", reason).Debug("Discarded incomplete fragment")
	m.current = nil
	m.fxBlockActive = false
}

// handlePeriodBoundary recognizes brought-forward / carried-forward
// marker lines. Brought-forward flushes state and emits a synthetic
// marker carrying the printed balance; the first one records the
// statement opening balance. Carried-forward records the period's
// printed closing figure.
func (m *Machine) handlePeriodBoundary(line *models.Line) bool {
	boundary := m.profile.PeriodBoundary()
	if boundary == nil || !boundary.MatchString(line.Text) {
		return false
	}

	// Flush whatever is open.
	if m.current != nil {
		if m.isComplete() {
			m.emit()
		} else if m.current.hasContent() {
			m.discardCurrent("period boundary")
		} else {
			m.current = nil
		}
	}

	found := m.extractor.Extract(line)
	var printed *decimal.Decimal
	if len(found) > 0 {
		value := found[len(found)-1].Value
		if found[len(found)-1].Negative {
			value = value.Neg()
		}
		printed = &value
	}

	if strings.Contains(strings.ToLower(line.Text), "carried") {
		if printed != nil {
			m.totalsFor(m.periodIndex).Closing = printed
		}
		return true
	}

	marker := &models.Transaction{
		Description: strings.TrimSpace(line.Text),
		SourcePage:  line.PageIndex,
		SourceLine:  line.Index,
		Confidence:  100,
	}
	if match, ok := m.dates.MatchFull(line.Text); ok {
		marker.Date = match.Date
	}
	if printed != nil {
		marker.SetBalance(*printed)
	}

	if len(m.transactions) == 0 {
		marker.Type = models.TypeBroughtForward
		if printed != nil && m.openingBalance == nil {
			m.openingBalance = printed
		}
	} else {
		marker.Type = models.TypePeriodBreak
		m.periodIndex++
	}

	m.transactions = append(m.transactions, marker)
	m.dates.Reset()
	m.carryOver = nil
	m.fxBlockActive = false
	m.prevLineBare = false

	m.logger.WithFields(logger.Fields{
		"period": m.periodIndex,
		"page":   line.PageIndex,
	}).Debug("Period boundary")
	return true
}

// captureTotals records printed summary figures (total in / total out /
// closing) for the current period. Returns true when the line was a
// summary row so it is not parsed as a transaction.
func (m *Machine) captureTotals(line *models.Line) bool {
	captured := false
	for name, assign := range map[string]func(*PrintedTotals, *decimal.Decimal){
		"total_in":      func(t *PrintedTotals, v *decimal.Decimal) { t.In = v },
		"total_out":     func(t *PrintedTotals, v *decimal.Decimal) { t.Out = v },
		"closing_total": func(t *PrintedTotals, v *decimal.Decimal) { t.Closing = v },
	} {
		matcher := m.profile.HeaderMatcher(name)
		if matcher == nil {
			continue
		}
		sub := matcher.FindStringSubmatch(line.Text)
		if sub == nil || len(sub) < 2 {
			continue
		}
		value, err := decimal.NewFromString(strings.ReplaceAll(sub[1], ",", ""))
		if err != nil {
			continue
		}
		assign(m.totalsFor(m.periodIndex), &value)
		captured = true
	}
	return captured
}

func (m *Machine) totalsFor(period int) *PrintedTotals {
	if m.totals[period] == nil {
		m.totals[period] = &PrintedTotals{}
	}
	return m.totals[period]
}

// findTypeCode looks for one of the profile's known type codes among
// the line's leading tokens.
func (m *Machine) findTypeCode(text string) string {
	codes := append([]string{}, m.profile.Classification.MoneyInCodes...)
	codes = append(codes, m.profile.Classification.MoneyOutCodes...)
	if len(codes) == 0 {
		return ""
	}

	fields := strings.Fields(text)
	limit := 2
	if len(fields) < limit {
		limit = len(fields)
	}
	for i := 0; i < limit; i++ {
		for _, code := range codes {
			if strings.EqualFold(fields[i], code) {
				return strings.ToUpper(fields[i])
			}
		}
	}
	return ""
}

// scoreConfidence applies the completeness schedule: missing date -30,
// missing description -20, no directional amount -25, missing balance
// -10; full row +5, reasonable description length +5; clamped 0..100.
func scoreConfidence(txn *models.Transaction) int {
	score := 100

	if txn.Date.IsZero() {
		score -= 30
	}
	if len(txn.Description) < 3 {
		score -= 20
	}
	if !txn.MoneyIn.IsPositive() && !txn.MoneyOut.IsPositive() {
		score -= 25
	}
	if txn.Balance == nil {
		score -= 10
	}
	if (txn.MoneyIn.IsPositive() || txn.MoneyOut.IsPositive()) && txn.Balance != nil {
		score += 5
	}
	if n := len(txn.Description); n >= 10 && n <= 200 {
		score += 5
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
