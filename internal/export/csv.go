// Package export serializes expense rows to the CSV download artifact.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"spendtrack/internal/core"
)

// Header is the fixed column order of the export artifact. Downstream
// consumers parse it, so the order is a compatibility contract.
var Header = []string{"Date", "Description", "Category", "Amount"}

// WriteCSV writes the header followed by one row per expense, preserving the
// order of the input slice. Amounts are plain decimals ("12.50"); dates are
// YYYY-MM-DD. Quoting follows RFC 4180, so embedded commas, quotes and
// newlines survive spreadsheet round trips.
func WriteCSV(w io.Writer, expenses []core.Expense) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range expenses {
		row := []string{e.Date.String(), e.Description, e.Category, e.Amount.String()}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
