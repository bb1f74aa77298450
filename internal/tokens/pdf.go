package tokens

import (
	"fmt"
	"strings"

	"bank-statement-engine/internal/models"
	"bank-statement-engine/pkg/errors"
	"bank-statement-engine/pkg/logger"

	"github.com/ledongthuc/pdf"
)

// OpenPDF reads the native text layer of a PDF and returns a
// materialized, ordered token stream. PDFs without a usable text layer
// (scanned documents) are a collaborator concern; this reader returns a
// stream error with code token_invalid for them rather than guessing.
func OpenPDF(path string, log logger.Logger) (*SliceStream, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("pdf_reader")

	collected, err := readPDFTokens(path, log)
	if err != nil {
		return nil, err
	}
	if len(collected) == 0 {
		return nil, errors.StreamError(errors.CodeTokenInvalid,
			fmt.Sprintf("%s has no extractable text layer", path), nil)
	}

	log.WithFields(logger.Fields{
		"path":   path,
		"tokens": len(collected),
	}).Info("Extracted text-layer tokens")

	return NewSortedSliceStream(collected), nil
}

func readPDFTokens(path string, log logger.Logger) (collected []models.Token, err error) {
	// The pdf library panics on malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = errors.StreamError(errors.CodeTokenInvalid,
				fmt.Sprintf("pdf library failed on %s: %v", path, r), nil)
		}
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, errors.StreamError(errors.CodeTokenInvalid,
			fmt.Sprintf("opening %s", path), err)
	}
	defer file.Close()

	numPages := reader.NumPage()
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		pageHeight := mediaBoxHeight(page)
		content := page.Content()
		dropped := 0

		for _, text := range content.Text {
			if strings.TrimSpace(text.S) == "" {
				continue
			}

			token := models.Token{
				Text:      text.S,
				PageIndex: pageNum - 1,
				X0:        text.X,
				X1:        text.X + text.W,
				// PDF y runs bottom-to-top; flip so larger y means
				// further down the page.
				Y:        pageHeight - text.Y,
				FontSize: text.FontSize,
			}
			if !token.Valid() {
				dropped++
				continue
			}
			collected = append(collected, token)
		}

		if dropped > 0 {
			log.WithFields(logger.Fields{
				"page":    pageNum - 1,
				"dropped": dropped,
			}).Warn("Dropped tokens with invalid coordinates")
		}
	}

	return collected, nil
}

const defaultPageHeight = 842 // A4 in points

func mediaBoxHeight(page pdf.Page) float64 {
	mediaBox := page.V.Key("MediaBox")
	if mediaBox.IsNull() || mediaBox.Len() < 4 {
		return defaultPageHeight
	}
	top := mediaBox.Index(3).Float64()
	if top <= 0 {
		return defaultPageHeight
	}
	return top
}

// HeaderText joins the first maxTokens tokens of a materialized stream
// into the text block used for bank identification.
func HeaderText(stream *SliceStream, maxTokens int) string {
	var builder strings.Builder
	for i, token := range stream.tokens {
		if i >= maxTokens {
			break
		}
		if builder.Len() > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(token.Text)
	}
	return builder.String()
}
