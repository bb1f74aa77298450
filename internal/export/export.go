// Package export serializes a StatementResult for downstream consumers:
// CSV and JSON for pipelines, XLSX for human review. The engine itself
// never serializes; these writers are separate consumers of the result.
package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bank-statement-engine/internal/models"
	"bank-statement-engine/pkg/errors"
)

// Format identifies a writer.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat resolves a format name or an output filename extension.
func ParseFormat(name string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "csv":
		return FormatCSV, true
	case "json":
		return FormatJSON, true
	case "xlsx", "excel":
		return FormatXLSX, true
	default:
		return "", false
	}
}

// Write serializes the result to path in the given format.
func Write(result *models.StatementResult, path string, format Format) error {
	switch format {
	case FormatCSV:
		return writeCSV(result, path)
	case FormatJSON:
		return writeJSON(result, path)
	case FormatXLSX:
		return writeXLSX(result, path)
	default:
		return errors.New(errors.CategoryExport, errors.CodeWriteFailed,
			"unknown export format "+string(format))
	}
}

// FormatForPath picks the writer from the output filename, defaulting
// to CSV.
func FormatForPath(path string) Format {
	if format, ok := ParseFormat(filepath.Ext(path)); ok {
		return format
	}
	return FormatCSV
}

var csvHeader = []string{
	"date", "description", "money_in", "money_out", "balance",
	"type", "type_code", "confidence", "page",
}

func writeCSV(result *models.StatementResult, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.ExportError(path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return errors.ExportError(path, err)
	}

	for _, txn := range result.Transactions {
		if txn.Type == models.TypePeriodBreak {
			continue
		}
		if err := writer.Write(csvRow(txn)); err != nil {
			return errors.ExportError(path, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.ExportError(path, err)
	}
	return nil
}

func csvRow(txn *models.Transaction) []string {
	date := ""
	if !txn.Date.IsZero() {
		date = txn.Date.Format("2006-01-02")
	}
	balance := ""
	if txn.Balance != nil {
		balance = txn.Balance.StringFixed(2)
	}
	return []string{
		date,
		txn.Description,
		txn.MoneyIn.StringFixed(2),
		txn.MoneyOut.StringFixed(2),
		balance,
		txn.Type.String(),
		txn.TypeCode,
		strconv.Itoa(txn.Confidence),
		strconv.Itoa(txn.SourcePage),
	}
}

func writeJSON(result *models.StatementResult, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.ExportError(path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return errors.ExportError(path, err)
	}
	return nil
}
