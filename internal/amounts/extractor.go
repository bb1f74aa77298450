// Package amounts finds monetary values in reconstructed lines and maps
// each back to its right-edge x-coordinate, the canonical coordinate for
// column classification. Foreign-currency annotations are recognized and
// their numbers excluded from the ledger.
package amounts

import (
	"regexp"
	"strings"

	"bank-statement-engine/internal/models"
	"bank-statement-engine/internal/profile"
	"bank-statement-engine/pkg/logger"

	"github.com/shopspring/decimal"
)

// amountPattern matches GBP-style ledger amounts: optional sign,
// thousands groups, exactly two fractional digits.
var amountPattern = regexp.MustCompile(`-?\d{1,3}(?:,\d{3})*\.\d{2}`)

// ratePattern matches conversion-rate annotations ("rate: 1.268.");
// their numbers are FX metadata, never ledger amounts.
var ratePattern = regexp.MustCompile(`(?i)\brate:\s*-?[\d.,]+`)

// Amount is one monetary value found in a line. RightEdgeX is where its
// rightmost digit ends on the page; TextStart/TextEnd locate it in the
// line text so the caller can cut it out of the description.
type Amount struct {
	Value     decimal.Decimal
	Negative  bool
	RightEdgeX float64
	TextStart int
	TextEnd   int
}

// Extractor scans lines for ledger amounts under one bank profile.
type Extractor struct {
	profile   *profile.BankProfile
	logger    logger.Logger
	fxPattern *regexp.Regexp
}

// NewExtractor creates an extractor. The FX matcher is built from the
// profile's foreign currency markers; with none configured, only
// conversion-rate annotations are filtered.
func NewExtractor(p *profile.BankProfile, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.Nop()
	}

	var fxPattern *regexp.Regexp
	if len(p.FXMarkers) > 0 {
		escaped := make([]string, len(p.FXMarkers))
		for i, marker := range p.FXMarkers {
			escaped[i] = regexp.QuoteMeta(strings.ToUpper(marker))
		}
		fxPattern = regexp.MustCompile(
			`(?i)Amount:\s*(?:` + strings.Join(escaped, "|") + `)\s*-?[\d,]+\.?\d*`)
	}

	return &Extractor{
		profile:   p,
		logger:    log.WithComponent("amount_extractor"),
		fxPattern: fxPattern,
	}
}

// Extract returns every ledger amount in the line with its right-edge
// x-coordinate. Numbers inside foreign-currency annotations
// ("Amount: USD -38.04") are never returned.
func (e *Extractor) Extract(line *models.Line) []Amount {
	return e.ExtractFromText(line.Text, line)
}

// ExtractFromText scans the given text; when line is non-nil the
// amounts' right edges are resolved through its coordinate map,
// otherwise they are byte offsets (used for re-queued line fragments
// that no longer own coordinates).
func (e *Extractor) ExtractFromText(text string, line *models.Line) []Amount {
	fxSpans := e.fxSpans(text)

	var found []Amount
	for _, loc := range amountPattern.FindAllStringIndex(text, -1) {
		if insideAny(loc[0], loc[1], fxSpans) {
			continue
		}

		raw := text[loc[0]:loc[1]]
		value, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
		if err != nil {
			// The pattern guarantees a parseable number; treat failure
			// as a skipped token rather than aborting the line.
			e.logger.WithField("raw", raw).Warn("Amount matched but failed to parse")
			continue
		}

		amount := Amount{
			Value:     value.Abs(),
			Negative:  value.IsNegative(),
			TextStart: loc[0],
			TextEnd:   loc[1],
		}
		if line != nil {
			amount.RightEdgeX = line.XAtOffset(loc[1])
		} else {
			amount.RightEdgeX = float64(loc[1])
		}
		found = append(found, amount)
	}

	return found
}

// HasFXMarker reports whether the text carries a foreign-currency
// annotation the profile recognizes.
func (e *Extractor) HasFXMarker(text string) bool {
	return e.fxPattern != nil && e.fxPattern.MatchString(text)
}

// StripAmounts removes the matched amounts from the text, collapsing the
// holes into single spaces. Used to turn an amount-bearing line into its
// description part.
func StripAmounts(text string, found []Amount) string {
	if len(found) == 0 {
		return strings.TrimSpace(text)
	}

	var builder strings.Builder
	last := 0
	for _, amount := range found {
		if amount.TextStart > last {
			builder.WriteString(text[last:amount.TextStart])
		}
		builder.WriteByte(' ')
		last = amount.TextEnd
	}
	if last < len(text) {
		builder.WriteString(text[last:])
	}

	return strings.Join(strings.Fields(builder.String()), " ")
}

func (e *Extractor) fxSpans(text string) [][]int {
	spans := ratePattern.FindAllStringIndex(text, -1)
	if e.fxPattern != nil {
		spans = append(spans, e.fxPattern.FindAllStringIndex(text, -1)...)
	}
	return spans
}

func insideAny(start, end int, spans [][]int) bool {
	for _, span := range spans {
		if start >= span[0] && end <= span[1] {
			return true
		}
	}
	return false
}
