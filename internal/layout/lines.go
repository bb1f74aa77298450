// Package layout rebuilds page geometry from coordinate-tagged tokens:
// grouping tokens into ordered lines and tracking per-page money
// column boundaries.
package layout

import (
	"math"
	"sort"
	"strings"

	"bank-statement-engine/internal/models"
	"bank-statement-engine/pkg/logger"
)

// LineReconstructor groups tokens into ordered lines by y-band. Two
// tokens share a line iff |y_a - y_b| <= YTolerance on the same page.
// Within a line, tokens sort by x0 and inter-token spacing is
// reconstructed from the coordinate gap.
type LineReconstructor struct {
	yTolerance float64
	logger     logger.Logger
}

// NewLineReconstructor creates a reconstructor with the profile's
// y-tolerance (points).
func NewLineReconstructor(yTolerance float64, log logger.Logger) *LineReconstructor {
	if log == nil {
		log = logger.Nop()
	}
	return &LineReconstructor{
		yTolerance: yTolerance,
		logger:     log.WithComponent("line_reconstructor"),
	}
}

// Reconstruct converts an ordered token slice into ordered lines.
// Tokens with invalid coordinates are dropped with a warning; nothing
// here is fatal.
func (lr *LineReconstructor) Reconstruct(tokens []models.Token) ([]models.Line, []models.Warning) {
	var warnings []models.Warning
	var bands []band

	dropped := 0
	for i := range tokens {
		token := &tokens[i]
		if !token.Valid() {
			dropped++
			continue
		}
		bands = appendToBand(bands, token, lr.yTolerance)
	}

	if dropped > 0 {
		lr.logger.WithField("dropped", dropped).Warn("Dropped tokens with invalid coordinates")
		warnings = append(warnings, models.NewWarning(models.WarnTokenDropped,
			"dropped %d tokens with invalid coordinates", dropped))
	}

	sort.SliceStable(bands, func(i, j int) bool {
		if bands[i].page != bands[j].page {
			return bands[i].page < bands[j].page
		}
		return bands[i].y < bands[j].y
	})

	lines := make([]models.Line, 0, len(bands))
	for i := range bands {
		line := lr.buildLine(&bands[i])
		line.Index = i
		lines = append(lines, line)
	}

	lr.logger.WithFields(logger.Fields{
		"tokens": len(tokens),
		"lines":  len(lines),
	}).Debug("Reconstructed lines")

	return lines, warnings
}

// band accumulates the tokens of one y-band on one page.
type band struct {
	page   int
	y      float64 // running mean of member y values
	count  int
	tokens []*models.Token
}

func appendToBand(bands []band, token *models.Token, tolerance float64) []band {
	// The stream is y-ordered, so only recent bands can still match.
	for i := len(bands) - 1; i >= 0; i-- {
		b := &bands[i]
		if b.page != token.PageIndex {
			break
		}
		if math.Abs(b.y-token.Y) <= tolerance {
			b.tokens = append(b.tokens, token)
			b.y = (b.y*float64(b.count) + token.Y) / float64(b.count+1)
			b.count++
			return bands
		}
		if token.Y-b.y > tolerance {
			break
		}
	}

	return append(bands, band{
		page:   token.PageIndex,
		y:      token.Y,
		count:  1,
		tokens: []*models.Token{token},
	})
}

// buildLine sorts a band's tokens left-to-right and reconstructs the
// line text with explicit spacing: N spaces where
// N = max(1, round(gap / avg_char_width)).
func (lr *LineReconstructor) buildLine(b *band) models.Line {
	sort.SliceStable(b.tokens, func(i, j int) bool {
		return b.tokens[i].X0 < b.tokens[j].X0
	})

	charWidth := averageCharWidth(b.tokens)

	var text strings.Builder
	runs := make([]models.Run, 0, len(b.tokens))

	for i, token := range b.tokens {
		if i > 0 {
			prev := b.tokens[i-1]
			gap := token.X0 - prev.X1
			spaces := 1
			if charWidth > 0 {
				if n := int(math.Round(gap / charWidth)); n > 1 {
					spaces = n
				}
			}
			text.WriteString(strings.Repeat(" ", spaces))
		}

		runs = append(runs, models.Run{
			Text:       token.Text,
			StartX:     token.X0,
			EndX:       token.X1,
			TextOffset: text.Len(),
		})
		text.WriteString(token.Text)
	}

	return models.Line{
		Text:      text.String(),
		PageIndex: b.page,
		Y:         b.y,
		Runs:      runs,
	}
}

func averageCharWidth(tokens []*models.Token) float64 {
	var width float64
	var chars int
	for _, token := range tokens {
		width += token.X1 - token.X0
		chars += len(token.Text)
	}
	if chars == 0 {
		return 0
	}
	return width / float64(chars)
}
