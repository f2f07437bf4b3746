// usdlog-gaps - Missing tick report for logs already converted by usdlog
// This program reads the JSON table written by usdlog, reruns gap detection
// on one column and writes the missing tick report next to it.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"usdlog/internal/export"
	"usdlog/internal/gaps"
	"usdlog/internal/version"

	"github.com/spf13/cobra"
)

var (
	inputFile   string // JSON table written by usdlog
	outputFile  string // Missing tick CSV
	column      string // Column holding the ticks
	stepMode    string // Step inference mode
	showVersion bool   // Show version information
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "usdlog-gaps",
	Short: "Report ticks missing from a converted log",
	Long: `usdlog-gaps reads a JSON table produced by usdlog and reports ticks
missing from one of its columns. Use it to compare step modes or to
analyse a different timestamp column without the original binary log.

Example usage:
  usdlog-gaps -i log03.json
  usdlog-gaps -i log03.json --step-mode median -o /tmp/log03_mis.csv`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Println(version.GetVersionInfo("usdlog-gaps"))
			return nil
		}
		if inputFile == "" {
			return fmt.Errorf(`required flag(s) "input" not set`)
		}

		_, err := runGaps(os.Stdout)
		return err
	},
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")
	rootCmd.Flags().StringVarP(&inputFile, "input", "i", "", "JSON table written by usdlog")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "missing tick CSV (default <input without .json>_mis.csv)")
	rootCmd.Flags().StringVar(&column, "column", "tick", "column holding the ticks")
	rootCmd.Flags().StringVar(&stepMode, "step-mode", "first", "tick step inference: first or median")
}

// missingPath derives the report path so that log03.json yields the same
// log03_mis.csv that usdlog writes for log03
func missingPath(input string) string {
	return strings.TrimSuffix(input, ".json") + "_mis.csv"
}

// runGaps is the main application logic
func runGaps(w io.Writer) (*gaps.Report, error) {
	mode, err := gaps.ParseStepMode(stepMode)
	if err != nil {
		return nil, err
	}

	values, err := export.ReadJSONColumn(inputFile, column)
	if err != nil {
		return nil, err
	}

	ticks, err := gaps.TicksFromFloats(values)
	if err != nil {
		return nil, fmt.Errorf("gap detection on %q failed: %w", column, err)
	}

	report, err := gaps.DetectWithMode(ticks, mode)
	if err != nil {
		return nil, fmt.Errorf("gap detection on %q failed: %w", column, err)
	}
	fmt.Fprintf(w, "first %d, last %d\n", report.First, report.Last)

	out := outputFile
	if out == "" {
		out = missingPath(inputFile)
	}
	if err := export.NewWriter(nil).WriteMissingCSV(out, report); err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "Saved missing to %s\n", out)
	fmt.Fprintf(w, "Loss ratio %.2f%% \n", report.Percent())

	return report, nil
}

// main is the entry point of the application
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
