package importer

import (
	"encoding/csv"
	"fmt"
	"io"

	"duobudget/internal/core"

	"github.com/xuri/excelize/v2"
)

// TemplateSheet names the sheet of the downloadable template.
const TemplateSheet = "Template"

var (
	templateHeaders = []string{"Date", "Time", "Vendor", "Category", "Description", "Amount", "Notes"}
	templateExample = []string{"2024-05-21", "14:30", "Starbucks", "Food & Dining", "Coffee run", "15.50", "Meeting with client"}
)

// WriteTemplate writes the import template workbook to w.
func WriteTemplate(w io.Writer) error {
	return writeWorkbook(w, TemplateSheet, [][]string{templateHeaders, templateExample})
}

// TemplateCSV writes the same template as comma separated values.
func TemplateCSV(w io.Writer) error {
	return writeCSV(w, [][]string{templateHeaders, templateExample})
}

// ExportSheet names the sheet of a transaction export.
const ExportSheet = "Transactions"

var exportHeaders = []string{"Date", "Time", "Vendor", "Category", "Description", "Amount", "Notes", "Frequency"}

// ExportRows lays transactions out in template column order, so an export
// can be imported again.
func ExportRows(transactions []core.Transaction) [][]string {
	rows := make([][]string, 0, len(transactions)+1)
	rows = append(rows, exportHeaders)
	for _, t := range transactions {
		rows = append(rows, []string{
			t.Date, t.Time, t.Vendor, string(t.Category), t.Description,
			t.Amount.StringFixed(2), t.Notes, string(t.Frequency),
		})
	}
	return rows
}

// Export writes transactions to w in the given format.
func Export(w io.Writer, f Format, transactions []core.Transaction) error {
	rows := ExportRows(transactions)
	switch f {
	case FormatCSV:
		return writeCSV(w, rows)
	case FormatXLSX:
		return writeWorkbook(w, ExportSheet, rows)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

func writeCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func writeWorkbook(w io.Writer, sheet string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet so the workbook holds exactly one.
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cellRef, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.SetColWidth(sheet, "A", "G", 16); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
