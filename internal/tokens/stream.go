// Package tokens defines the TokenStream input contract of the engine
// and its concrete implementations. The engine consumes tokens in
// (page_index, y, x0) order; extraction itself (native text layer, OCR,
// vision) is a collaborator concern and only the native text-layer
// reader ships here.
package tokens

import (
	"fmt"
	"io"
	"sort"

	"bank-statement-engine/internal/models"
	"bank-statement-engine/pkg/errors"
)

// TokenStream is the abstract source of ordered tokens. Next returns
// io.EOF as the terminal sentinel. Implementations must emit tokens with
// monotonically non-decreasing (page_index, y, x0), ties allowed on y
// within tolerance.
type TokenStream interface {
	Next() (*models.Token, error)
}

// SliceStream serves tokens from an in-memory slice. It is the
// materialized form every external extractor reduces to, and the fixture
// type used throughout the engine's tests.
type SliceStream struct {
	tokens []models.Token
	pos    int
}

// NewSliceStream creates a stream over the given tokens without
// reordering them; ordering violations surface when Collect consumes the
// stream.
func NewSliceStream(tokens []models.Token) *SliceStream {
	return &SliceStream{tokens: tokens}
}

// NewSortedSliceStream creates a stream over the given tokens after
// sorting them into (page_index, y, x0) order. Use for sources that
// cannot guarantee ordering themselves.
func NewSortedSliceStream(tokens []models.Token) *SliceStream {
	sorted := make([]models.Token, len(tokens))
	copy(sorted, tokens)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := &sorted[i], &sorted[j]
		if a.PageIndex != b.PageIndex {
			return a.PageIndex < b.PageIndex
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X0 < b.X0
	})
	return &SliceStream{tokens: sorted}
}

// Next returns the next token or io.EOF.
func (s *SliceStream) Next() (*models.Token, error) {
	if s.pos >= len(s.tokens) {
		return nil, io.EOF
	}
	token := &s.tokens[s.pos]
	s.pos++
	return token, nil
}

// Len returns the total number of tokens in the stream.
func (s *SliceStream) Len() int {
	return len(s.tokens)
}

// Reset rewinds the stream to the beginning.
func (s *SliceStream) Reset() {
	s.pos = 0
}

// Collect drains a stream into a slice, verifying the ordering contract
// as it goes. yTolerance bounds how far y may step backwards within one
// page before the stream is declared invalid; a violation beyond it is
// fatal (a stream error with code token_order), not normalizable.
func Collect(stream TokenStream, yTolerance float64) ([]models.Token, error) {
	var collected []models.Token
	var prev *models.Token

	for {
		token, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryStream, errors.CodeStreamInvalid, "token stream read failed")
		}

		if prev != nil {
			if token.PageIndex < prev.PageIndex {
				return nil, errors.StreamError(errors.CodeTokenOrder,
					fmt.Sprintf("page index went backwards: %d after %d", token.PageIndex, prev.PageIndex), nil)
			}
			if token.PageIndex == prev.PageIndex && token.Y < prev.Y-yTolerance {
				return nil, errors.StreamError(errors.CodeTokenOrder,
					fmt.Sprintf("y coordinate went backwards on page %d: %.2f after %.2f",
						token.PageIndex, token.Y, prev.Y), nil)
			}
		}

		collected = append(collected, *token)
		prev = &collected[len(collected)-1]
	}

	return collected, nil
}
