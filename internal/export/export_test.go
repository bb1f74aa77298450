package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bank-statement-engine/internal/models"

	"github.com/shopspring/decimal"
)

func sampleResult() *models.StatementResult {
	balance := decimal.NewFromFloat(954.33)
	txn := &models.Transaction{
		Date:        time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC),
		Description: "CARD PAYMENT TESCO",
		MoneyOut:    decimal.NewFromFloat(45.67),
		Type:        models.TypeCardPayment,
		Confidence:  100,
	}
	txn.SetBalance(balance)

	marker := &models.Transaction{
		Description: "BALANCE BROUGHT FORWARD",
		Type:        models.TypeBroughtForward,
		Confidence:  100,
	}
	marker.SetBalance(decimal.NewFromFloat(1000.00))

	return &models.StatementResult{
		RunID: "run-1",
		Account: models.AccountInfo{
			Bank:          "ColumnBank",
			AccountNumber: "12345678",
			Currency:      "GBP",
		},
		Transactions: []*models.Transaction{marker, txn},
		Periods: []*models.Period{{
			Index:          0,
			OpeningBalance: decimal.NewFromFloat(1000.00),
			ClosingBalance: decimal.NewFromFloat(954.33),
			Reconciled:     true,
			Transactions:   []*models.Transaction{marker, txn},
		}},
		OpeningBalance:    decimal.NewFromFloat(1000.00),
		ClosingBalance:    decimal.NewFromFloat(954.33),
		ConfidenceOverall: 100,
		Success:           true,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
		ok    bool
	}{
		{"csv", FormatCSV, true},
		{".CSV", FormatCSV, true},
		{"json", FormatJSON, true},
		{"xlsx", FormatXLSX, true},
		{"excel", FormatXLSX, true},
		{"pdf", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseFormat(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseFormat(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}

	if FormatForPath("/tmp/out.xlsx") != FormatXLSX {
		t.Error("FormatForPath should pick xlsx from extension")
	}
	if FormatForPath("/tmp/out.unknown") != FormatCSV {
		t.Error("FormatForPath should default to csv")
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := Write(sampleResult(), path, FormatCSV); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if len(rows) != 3 { // header + marker + transaction
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][0] != "date" || rows[0][4] != "balance" {
		t.Errorf("header row wrong: %v", rows[0])
	}
	if rows[2][1] != "CARD PAYMENT TESCO" {
		t.Errorf("description = %q", rows[2][1])
	}
	if rows[2][3] != "45.67" {
		t.Errorf("money_out = %q, want 45.67", rows[2][3])
	}
	if rows[2][4] != "954.33" {
		t.Errorf("balance = %q, want 954.33", rows[2][4])
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := Write(sampleResult(), path, FormatJSON); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var decoded models.StatementResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", decoded.RunID)
	}
	if decoded.Account.Bank != "ColumnBank" {
		t.Errorf("Bank = %q, want ColumnBank", decoded.Account.Bank)
	}
	if len(decoded.Transactions) != 2 {
		t.Errorf("got %d transactions, want 2", len(decoded.Transactions))
	}
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	if err := Write(sampleResult(), path, FormatXLSX); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("workbook not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("workbook is empty")
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")
	if err := Write(sampleResult(), path, Format("bin")); err == nil {
		t.Error("unknown format should fail")
	}
}
