package homebank

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// CSVRow is one transaction line in HomeBank's CSV import format:
// date;mode;info;payee;memo;amount;category;tags. HomeBank expects negative
// amounts for expenses and positive for income.
type CSVRow struct {
	Date     string // YYYY-MM-DD
	Payee    string
	Memo     string
	Amount   float64 // non-negative magnitude
	Expense  bool
	Category string
	Tags     []string
}

var csvHeader = []string{"date", "mode", "info", "payee", "memo", "amount", "category", "tags"}

// GenerateCSV renders rows in HomeBank's semicolon-separated CSV format.
func GenerateCSV(rows []CSVRow) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'

	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("writing csv header: %w", err)
	}

	for _, row := range rows {
		amount := row.Amount
		if amount < 0 {
			amount = -amount
		}
		if row.Expense {
			amount = -amount
		}

		record := []string{
			row.Date,
			"0", // mode: none
			"",  // info
			sanitizeField(row.Payee),
			sanitizeField(row.Memo),
			fmt.Sprintf("%.2f", amount),
			sanitizeField(row.Category),
			sanitizeField(strings.Join(row.Tags, " ")),
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("writing csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flushing csv: %w", err)
	}
	return buf.String(), nil
}

// sanitizeField keeps fields free of the separator and line breaks so the
// output never needs quoting, which HomeBank's importer handles poorly.
func sanitizeField(s string) string {
	s = strings.ReplaceAll(s, ";", ",")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}
