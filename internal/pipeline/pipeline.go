// Package pipeline runs the decode, export and gap detection steps for one log file
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"usdlog/internal/export"
	"usdlog/internal/gaps"
	"usdlog/internal/table"
)

// Decoder turns a log file into a table
type Decoder interface {
	Decode(path string) (*table.Table, error)
}

// Config holds the configuration for one pipeline run
type Config struct {
	Output     string        // JSON output path; empty derives <input>.json
	TickColumn string        // Column used for gap detection
	StepMode   gaps.StepMode // Step inference for gap detection
	XLSX       bool          // Also write <input>.xlsx
}

// Paths lists the files written for one input
type Paths struct {
	JSON    string `json:"json"`
	CSV     string `json:"csv"`
	Missing string `json:"missing"`
	XLSX    string `json:"xlsx,omitempty"`
}

// OutputPaths derives the output file names for input. jsonOut overrides
// the JSON path only; the CSV files always sit next to the input.
func OutputPaths(input, jsonOut string) Paths {
	p := Paths{
		JSON:    jsonOut,
		CSV:     input + ".csv",
		Missing: input + "_mis.csv",
	}
	if p.JSON == "" {
		p.JSON = input + ".json"
	}
	return p
}

// Result holds everything produced by a run
type Result struct {
	Input     string        `json:"input"`
	Paths     Paths         `json:"paths"`
	Rows      int           `json:"rows"`
	Columns   int           `json:"columns"`
	JSONBytes int64         `json:"json_bytes"`
	Report    *gaps.Report  `json:"report"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Pipeline decodes a log and writes its outputs
type Pipeline struct {
	config  *Config
	decoder Decoder
	writer  *export.Writer
	logger  *slog.Logger
	out     io.Writer
}

// NewPipeline creates a pipeline with the given configuration
func NewPipeline(config *Config, decoder Decoder, logger *slog.Logger) (*Pipeline, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if decoder == nil {
		return nil, fmt.Errorf("decoder cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if config.TickColumn == "" {
		config.TickColumn = table.TickColumn
	}
	if _, err := gaps.ParseStepMode(string(config.StepMode)); err != nil {
		return nil, err
	}

	return &Pipeline{
		config:  config,
		decoder: decoder,
		writer:  export.NewWriter(logger),
		logger:  logger,
		out:     os.Stdout,
	}, nil
}

// SetOutput redirects the summary lines, which go to stdout by default
func (p *Pipeline) SetOutput(w io.Writer) {
	p.out = w
}

// Run processes input. Any failing step aborts the run; files written by
// earlier steps are left in place.
func (p *Pipeline) Run(ctx context.Context, input string) (*Result, error) {
	start := time.Now()
	paths := OutputPaths(input, p.config.Output)
	if p.config.XLSX {
		paths.XLSX = input + ".xlsx"
	}

	p.logger.Info("Decoding log", slog.String("file", input))
	tbl, err := p.decoder.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", input, err)
	}

	result := &Result{
		Input:   input,
		Paths:   paths,
		Rows:    tbl.Len(),
		Columns: tbl.Width(),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, err := p.writer.WriteJSON(paths.JSON, tbl)
	if err != nil {
		return nil, err
	}
	result.JSONBytes = n
	fmt.Fprintf(p.out, "Number of lines written to %s: %d\n", paths.JSON, n)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.writer.WriteCSV(paths.CSV, tbl); err != nil {
		return nil, err
	}
	fmt.Fprintf(p.out, "Saved data to %s\n", paths.CSV)

	report, err := p.detectGaps(tbl)
	if err != nil {
		return nil, err
	}
	result.Report = report
	fmt.Fprintf(p.out, "first %d, last %d\n", report.First, report.Last)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.writer.WriteMissingCSV(paths.Missing, report); err != nil {
		return nil, err
	}
	fmt.Fprintf(p.out, "Saved missing to %s\n", paths.Missing)

	if paths.XLSX != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.writer.WriteXLSX(paths.XLSX, tbl, report); err != nil {
			return nil, err
		}
		fmt.Fprintf(p.out, "Saved workbook to %s\n", paths.XLSX)
	}

	fmt.Fprintf(p.out, "Loss ratio %.2f%% \n", report.Percent())

	result.Elapsed = time.Since(start)
	p.logger.Info("Processed log",
		slog.String("file", input),
		slog.Int("rows", result.Rows),
		slog.Int("missing", len(report.Missing)),
		slog.Duration("elapsed", result.Elapsed))

	return result, nil
}

func (p *Pipeline) detectGaps(tbl *table.Table) (*gaps.Report, error) {
	column, err := tbl.Ticks(p.config.TickColumn)
	if err != nil {
		return nil, err
	}
	ticks, err := gaps.TicksFromFloats(column)
	if err != nil {
		return nil, fmt.Errorf("gap detection on %q failed: %w", p.config.TickColumn, err)
	}

	report, err := gaps.DetectWithMode(ticks, p.config.StepMode)
	if err != nil {
		return nil, fmt.Errorf("gap detection on %q failed: %w", p.config.TickColumn, err)
	}
	return report, nil
}
