package export

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/xuri/excelize/v2"

	"usdlog/internal/gaps"
	"usdlog/internal/table"
)

// Sheet names used by WriteXLSX
const (
	DataSheet    = "data"
	MissingSheet = "missing"
)

// WriteXLSX writes the table and the gap report to a workbook with one
// sheet each, laid out like the CSV outputs
func (w *Writer) WriteXLSX(filename string, tbl *table.Table, report *gaps.Report) error {
	if tbl.Len()+1 > excelize.TotalRows {
		return fmt.Errorf("table has %d rows, XLSX sheets hold at most %d", tbl.Len(), excelize.TotalRows-1)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DataSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(MissingSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := writeDataSheet(f, tbl); err != nil {
		return err
	}
	if err := writeMissingSheet(f, report); err != nil {
		return err
	}

	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	w.logger.Debug("Wrote workbook",
		slog.String("file", filename),
		slog.Int("rows", tbl.Len()),
		slog.Int("missing", len(report.Missing)))
	return nil
}

func writeDataSheet(f *excelize.File, tbl *table.Table) error {
	sw, err := f.NewStreamWriter(DataSheet)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	names := tbl.Names()
	header := make([]interface{}, len(names)+1)
	header[0] = ""
	for i, name := range names {
		header[i+1] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for row := 0; row < tbl.Len(); row++ {
		values := tbl.Row(row)
		cells := make([]interface{}, len(values)+1)
		cells[0] = row
		for i, v := range values {
			cells[i+1] = cellValue(v)
		}

		cell, err := excelize.CoordinatesToCellName(1, row+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	return sw.Flush()
}

func writeMissingSheet(f *excelize.File, report *gaps.Report) error {
	if err := f.SetSheetRow(MissingSheet, "A1", &[]interface{}{"", "tick", "ratio"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	percent := report.Percent()
	for i, tick := range report.Missing {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(MissingSheet, cell, &[]interface{}{i, tick, percent}); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	return nil
}

// cellValue leaves NaN and infinite samples as empty cells
func cellValue(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
