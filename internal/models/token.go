// Package models defines the entities that flow through the statement
// parsing pipeline: coordinate-tagged tokens, reconstructed lines,
// transactions, periods and the final statement result.
package models

import (
	"fmt"
	"math"
	"strings"
)

// Token is the input atom of the engine: a run of text carrying its
// bounding box on the page. Tokens are ordered by (page_index, y, x0).
type Token struct {
	Text      string  `json:"text"`
	PageIndex int     `json:"page_index"`
	X0        float64 `json:"x0"`
	X1        float64 `json:"x1"`
	Y         float64 `json:"y"`
	FontSize  float64 `json:"font_size,omitempty"`
	Color     string  `json:"color,omitempty"`
}

// Valid reports whether the token carries usable coordinates. Tokens
// failing this check are dropped with a warning, never fatally.
func (t *Token) Valid() bool {
	for _, v := range []float64{t.X0, t.X1, t.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return t.X1 >= t.X0 && strings.TrimSpace(t.Text) != ""
}

// String returns a compact representation for logging
func (t *Token) String() string {
	return fmt.Sprintf("Token{%q p%d x=%.1f..%.1f y=%.1f}", t.Text, t.PageIndex, t.X0, t.X1, t.Y)
}

// Run is a contiguous textual run within a reconstructed line, the
// x-range it occupies on the page, and its byte offset into the line's
// reconstructed Text.
type Run struct {
	Text       string  `json:"text"`
	StartX     float64 `json:"start_x"`
	EndX       float64 `json:"end_x"`
	TextOffset int     `json:"text_offset"`
}

// Line is an ordered sequence of runs sharing a y-band on one page. The
// Text field is the reconstructed line with explicit spacing; Runs is the
// parallel x-position map. No two lines share a y-band on the same page,
// and runs within a line are left-to-right non-overlapping.
type Line struct {
	Text      string  `json:"text"`
	PageIndex int     `json:"page_index"`
	Y         float64 `json:"y"`
	Runs      []Run   `json:"runs"`
	Index     int     `json:"index"`
}

// LeftX returns the start x of the first run, or 0 for an empty line.
func (l *Line) LeftX() float64 {
	if len(l.Runs) == 0 {
		return 0
	}
	return l.Runs[0].StartX
}

// RightX returns the end x of the last run, or 0 for an empty line.
func (l *Line) RightX() float64 {
	if len(l.Runs) == 0 {
		return 0
	}
	return l.Runs[len(l.Runs)-1].EndX
}

// XAtOffset maps a byte offset into Text to an x-coordinate on the page,
// interpolating within the run that covers it. Offsets that fall into
// synthesized spacing map to the end of the preceding run. Used to place
// a regex match (an amount's rightmost digit) back on the page.
func (l *Line) XAtOffset(textOffset int) float64 {
	var prevEnd float64
	for i := range l.Runs {
		run := &l.Runs[i]
		start := run.TextOffset
		end := run.TextOffset + len(run.Text)
		if textOffset < start {
			return prevEnd
		}
		if textOffset <= end {
			if len(run.Text) == 0 {
				return run.EndX
			}
			frac := float64(textOffset-start) / float64(len(run.Text))
			return run.StartX + frac*(run.EndX-run.StartX)
		}
		prevEnd = run.EndX
	}
	return prevEnd
}

// String returns a compact representation for logging
func (l *Line) String() string {
	return fmt.Sprintf("Line{p%d y=%.1f %q}", l.PageIndex, l.Y, l.Text)
}
