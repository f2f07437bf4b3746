// Package export writes decoded log tables and gap reports to JSON, CSV and XLSX files
package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"

	"usdlog/internal/gaps"
	"usdlog/internal/table"
)

// Writer exports tables and gap reports
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a writer. A nil logger uses slog.Default().
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

// WriteJSON writes the table as a single JSON object mapping each column
// name to a flat array of its values, columns in table order. NaN and
// infinite values are written as null. It returns the number of bytes
// written.
func (w *Writer) WriteJSON(filename string, tbl *table.Table) (int64, error) {
	file, err := os.Create(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	counter := &countingWriter{w: file}
	out := bufio.NewWriter(counter)

	out.WriteByte('{')
	buf := make([]byte, 0, 64)
	for i, name := range tbl.Names() {
		if i > 0 {
			out.WriteString(", ")
		}
		key, err := json.Marshal(name)
		if err != nil {
			return 0, fmt.Errorf("failed to encode column name %q: %w", name, err)
		}
		out.Write(key)
		out.WriteString(": [")

		values, _ := tbl.Column(name)
		for j, v := range values {
			if j > 0 {
				out.WriteString(", ")
			}
			buf = appendJSONNumber(buf[:0], v)
			out.Write(buf)
		}
		out.WriteByte(']')
	}
	out.WriteByte('}')

	if err := out.Flush(); err != nil {
		return 0, fmt.Errorf("failed to write JSON: %w", err)
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("failed to close JSON file: %w", err)
	}

	w.logger.Debug("Wrote JSON table",
		slog.String("file", filename),
		slog.Int("columns", tbl.Width()),
		slog.Int("rows", tbl.Len()),
		slog.Int64("bytes", counter.n))

	return counter.n, nil
}

// WriteCSV writes one row per sample with a leading row index column. The
// header row starts with an empty cell above the index.
func (w *Writer) WriteCSV(filename string, tbl *table.Table) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	names := tbl.Names()
	header := append([]string{""}, names...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	columns := make([][]float64, len(names))
	for i, name := range names {
		columns[i], _ = tbl.Column(name)
	}

	record := make([]string, len(names)+1)
	for row := 0; row < tbl.Len(); row++ {
		record[0] = strconv.Itoa(row)
		for i, col := range columns {
			record[i+1] = formatFloat(col[row])
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", row, err)
		}
	}

	if err := flushCSV(writer); err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close CSV file: %w", err)
	}

	w.logger.Debug("Wrote CSV table",
		slog.String("file", filename),
		slog.Int("record_count", tbl.Len()))
	return nil
}

// WriteMissingCSV writes the missing ticks with the loss percentage
// repeated on every row
func (w *Writer) WriteMissingCSV(filename string, report *gaps.Report) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"", "tick", "ratio"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	percent := formatFloat(report.Percent())
	for i, tick := range report.Missing {
		record := []string{strconv.Itoa(i), strconv.FormatInt(tick, 10), percent}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := flushCSV(writer); err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close CSV file: %w", err)
	}

	w.logger.Debug("Wrote missing ticks",
		slog.String("file", filename),
		slog.Int("missing", len(report.Missing)),
		slog.Float64("loss_percent", report.Percent()))
	return nil
}

// flushCSV flushes buffered records and reports any write error
func flushCSV(writer *csv.Writer) error {
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func appendJSONNumber(dst []byte, v float64) []byte {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return append(dst, "null"...)
	}
	return strconv.AppendFloat(dst, v, 'g', -1, 64)
}

type countingWriter struct {
	w *os.File
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
