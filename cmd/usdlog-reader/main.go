// usdlog-reader - Utility to display the contents of micro-SD deck logs
// This program prints the header, event types and record counts of a binary
// log, and can generate a synthetic log for trying out the other tools.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"usdlog/internal/usdfile"
	"usdlog/internal/version"

	"github.com/spf13/cobra"
)

var (
	outputFormat string
	headRecords  int
	showVersion  bool

	synthRecords   int
	synthStep      uint64
	synthDropEvery int
	synthVersion   uint16
)

// fileReport is the JSON form of the file display
type fileReport struct {
	File     string                 `json:"file"`
	Size     int64                  `json:"size"`
	Version  uint16                 `json:"version"`
	CRC      string                 `json:"crc"`
	CRCValid bool                   `json:"crc_valid"`
	Records  int                    `json:"records"`
	Events   []usdfile.EventSummary `json:"events"`
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "usdlog-reader [file]",
	Short: "Display contents of micro-SD deck log files",
	Long: `usdlog-reader displays the header and event types of a binary log.
Useful for choosing the --event to extract with usdlog and for checking
that a log survived the copy off the card.

Display modes:
  --format table   human readable summary (default)
  --format json    the same summary as JSON
  --head N         also print the first N records`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Println(version.GetVersionInfo("usdlog-reader"))
			return nil
		}

		if len(args) == 0 {
			cmd.Usage()
			return fmt.Errorf("filename required")
		}

		return displayFile(os.Stdout, args[0])
	},
}

// synthCmd writes a synthetic log
var synthCmd = &cobra.Command{
	Use:   "synth [file]",
	Short: "Write a synthetic log with evenly spaced ticks and optional gaps",
	Long: `synth writes a log with one "fixedFrequency" event type. Every
--drop-every'th sample slot after the first two is left out, so usdlog
reports a known set of missing ticks. Names ending in .zst are compressed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeSynthetic(os.Stdout, args[0])
	},
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")
	rootCmd.Flags().StringVarP(&outputFormat, "format", "f", "table", "output format (table, json)")
	rootCmd.Flags().IntVarP(&headRecords, "head", "n", 0, "number of records to print")

	synthCmd.Flags().IntVar(&synthRecords, "records", 1000, "number of sample slots")
	synthCmd.Flags().Uint64Var(&synthStep, "step", 10, "tick spacing between slots")
	synthCmd.Flags().IntVar(&synthDropEvery, "drop-every", 0, "drop every Nth slot (0 keeps all)")
	synthCmd.Flags().Uint16Var(&synthVersion, "log-version", usdfile.Version2, "format version (1 or 2)")

	rootCmd.AddCommand(synthCmd)
}

// displayFile reads and displays the contents of a log file
func displayFile(w io.Writer, filename string) error {
	fileInfo, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", filename)
	}
	if err != nil {
		return err
	}

	f, err := usdfile.ReadFile(filename)
	if err != nil {
		return err
	}

	report := fileReport{
		File:     filename,
		Size:     fileInfo.Size(),
		Version:  f.Version,
		CRC:      fmt.Sprintf("0x%08X", f.CRC),
		CRCValid: f.CRCValid,
		Records:  len(f.Records),
		Events:   f.Summary(),
	}

	switch outputFormat {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "table":
		displaySummary(w, report, fileInfo.ModTime().Format("2006-01-02 15:04:05"))
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}

	if headRecords > 0 {
		displayRecords(w, f, headRecords)
	}
	return nil
}

func displaySummary(w io.Writer, r fileReport, modified string) {
	crcStatus := "OK"
	if !r.CRCValid {
		crcStatus = "MISMATCH"
	}

	fmt.Fprintf(w, "USDLOG FILE READER %s\n\n", version.GetFullVersion())
	fmt.Fprintf(w, "File Information:\n")
	fmt.Fprintf(w, "Name: %s\n", filepath.Base(r.File))
	fmt.Fprintf(w, "Size: %.2f KB (%d bytes)\n", float64(r.Size)/1024, r.Size)
	fmt.Fprintf(w, "Modified: %s\n\n", modified)

	fmt.Fprintf(w, "Log Header:\n")
	fmt.Fprintf(w, "Format Version: %d\n", r.Version)
	fmt.Fprintf(w, "CRC: %s (%s)\n", r.CRC, crcStatus)
	fmt.Fprintf(w, "Records: %d\n\n", r.Records)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEVENT\tFORMAT\tRECORDS\tFIRST\tLAST\tVARIABLES")
	for _, e := range r.Events {
		first, last := "-", "-"
		if e.Records > 0 {
			first = fmt.Sprintf("%d", e.FirstTimestamp)
			last = fmt.Sprintf("%d", e.LastTimestamp)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			e.ID, e.Name, e.Format, e.Records, first, last, strings.Join(e.Vars, ","))
	}
	tw.Flush()
}

func displayRecords(w io.Writer, f *usdfile.File, limit int) {
	names := make(map[uint16]usdfile.EventType, len(f.Types))
	for _, et := range f.Types {
		names[et.ID] = et
	}

	fmt.Fprintf(w, "\nFirst %d records:\n", min(limit, len(f.Records)))
	for i, rec := range f.Records {
		if i >= limit {
			break
		}
		et := names[rec.EventID]
		fields := make([]string, len(rec.Values))
		for j, v := range rec.Values {
			fields[j] = fmt.Sprintf("%s=%g", et.Vars[j], v)
		}
		fmt.Fprintf(w, "%6d  %-16s %12d  %s\n", i, et.Name, rec.Timestamp, strings.Join(fields, " "))
	}
}

// writeSynthetic generates a demo log at filename
func writeSynthetic(w io.Writer, filename string) error {
	if synthRecords < 2 {
		return fmt.Errorf("at least 2 records are required, got %d", synthRecords)
	}

	f := usdfile.Synthesize(usdfile.SynthOptions{
		Version:   synthVersion,
		Records:   synthRecords,
		Step:      synthStep,
		DropEvery: synthDropEvery,
	})
	if err := usdfile.NewWriter().WriteFile(filename, f); err != nil {
		return err
	}

	fmt.Fprintf(w, "Wrote %d of %d records to %s\n", len(f.Records), synthRecords, filename)
	return nil
}

// main is the entry point of the application
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
