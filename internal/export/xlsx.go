package export

import (
	"fmt"

	"bank-statement-engine/internal/models"
	"bank-statement-engine/pkg/errors"

	"github.com/xuri/excelize/v2"
)

const (
	sheetTransactions = "Transactions"
	sheetSummary      = "Summary"
)

// writeXLSX produces the review workbook: a transactions sheet with one
// row per ledger entry and a summary sheet with statement metadata,
// per-period reconciliation status and warnings.
func writeXLSX(result *models.StatementResult, path string) error {
	workbook := excelize.NewFile()
	defer workbook.Close()

	workbook.SetSheetName(workbook.GetSheetName(0), sheetTransactions)
	if _, err := workbook.NewSheet(sheetSummary); err != nil {
		return errors.ExportError(path, err)
	}

	if err := fillTransactions(workbook, result); err != nil {
		return errors.ExportError(path, err)
	}
	if err := fillSummary(workbook, result); err != nil {
		return errors.ExportError(path, err)
	}

	if err := workbook.SaveAs(path); err != nil {
		return errors.ExportError(path, err)
	}
	return nil
}

func fillTransactions(workbook *excelize.File, result *models.StatementResult) error {
	headerStyle, err := workbook.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DCE6F1"}},
	})
	if err != nil {
		return err
	}

	header := []interface{}{"Date", "Description", "Money In", "Money Out", "Balance", "Type", "Confidence", "Page"}
	if err := workbook.SetSheetRow(sheetTransactions, "A1", &header); err != nil {
		return err
	}
	if err := workbook.SetCellStyle(sheetTransactions, "A1", "H1", headerStyle); err != nil {
		return err
	}

	rowNum := 2
	for _, txn := range result.Transactions {
		if txn.Type == models.TypePeriodBreak {
			continue
		}

		date := ""
		if !txn.Date.IsZero() {
			date = txn.Date.Format("2006-01-02")
		}
		balance := ""
		if txn.Balance != nil {
			balance = txn.Balance.StringFixed(2)
		}

		row := []interface{}{
			date,
			txn.Description,
			txn.MoneyIn.StringFixed(2),
			txn.MoneyOut.StringFixed(2),
			balance,
			txn.Type.String(),
			txn.Confidence,
			txn.SourcePage,
		}
		cell := fmt.Sprintf("A%d", rowNum)
		if err := workbook.SetSheetRow(sheetTransactions, cell, &row); err != nil {
			return err
		}
		rowNum++
	}

	return workbook.SetColWidth(sheetTransactions, "B", "B", 50)
}

func fillSummary(workbook *excelize.File, result *models.StatementResult) error {
	rows := [][]interface{}{
		{"Bank", result.Account.Bank},
		{"Account number", result.Account.AccountNumber},
		{"Sort code", result.Account.SortCode},
		{"Currency", result.Account.Currency},
		{"Opening balance", result.OpeningBalance.StringFixed(2)},
		{"Closing balance", result.ClosingBalance.StringFixed(2)},
		{"Transactions", result.TransactionCount()},
		{"Periods", len(result.Periods)},
		{"Overall confidence", result.ConfidenceOverall},
		{"Success", result.Success},
	}
	if result.Account.HasPeriod() {
		rows = append(rows,
			[]interface{}{"Period start", result.Account.PeriodStart.Format("2006-01-02")},
			[]interface{}{"Period end", result.Account.PeriodEnd.Format("2006-01-02")},
		)
	}

	rowNum := 1
	for _, row := range rows {
		cell := fmt.Sprintf("A%d", rowNum)
		if err := workbook.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return err
		}
		rowNum++
	}

	rowNum++
	for _, period := range result.Periods {
		status := "reconciled"
		if !period.Reconciled {
			status = "FAILED"
		} else if period.CascadeRecalculated {
			status = "cascade recalculated"
		}
		row := []interface{}{
			fmt.Sprintf("Period %d", period.Index),
			fmt.Sprintf("%s -> %s", period.OpeningBalance.StringFixed(2), period.ClosingBalance.StringFixed(2)),
			status,
		}
		cell := fmt.Sprintf("A%d", rowNum)
		if err := workbook.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return err
		}
		rowNum++
	}

	rowNum++
	for _, warning := range result.Warnings {
		row := []interface{}{string(warning.Kind), warning.Message}
		cell := fmt.Sprintf("A%d", rowNum)
		if err := workbook.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return err
		}
		rowNum++
	}

	return workbook.SetColWidth(sheetSummary, "A", "B", 30)
}
