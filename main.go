// usdlog - converts binary micro-SD deck logs to JSON and CSV
// The tool decodes one event type of a log into columns, writes them as
// JSON and CSV, and reports ticks missing from the sample sequence.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"usdlog/internal/config"
	"usdlog/internal/gaps"
	"usdlog/internal/logging"
	"usdlog/internal/pipeline"
	"usdlog/internal/usdfile"
	"usdlog/internal/version"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Command line flag variables
var (
	cfgFile     string // Configuration file path
	input       string // Binary log file
	output      string // JSON output path
	event       string // Event type to extract
	stepMode    string // Gap detection step mode
	writeXLSX   bool   // Also write a workbook
	strictCRC   bool   // Fail on CRC mismatch
	verbose     bool   // Enable debug logging
	showVersion bool   // Show version information
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "usdlog",
	Short: "Convert a binary logfile to json",
	Long: `usdlog decodes a binary log written by the micro-SD logging deck and writes:

  <output>          JSON object of column name to values (default <input>.json)
  <input>.csv       one row per sample
  <input>_mis.csv   ticks missing from the sample sequence and the loss ratio

Example usage:
  usdlog -i log03
  usdlog -i log03 -o /tmp/log03.json --event fixedFrequency --xlsx`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Println(version.GetVersionInfo("usdlog"))
			return nil
		}
		if input == "" {
			return fmt.Errorf(`required flag(s) "input" not set`)
		}

		return runConvert()
	},
}

// init initializes the CLI flags and configuration
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./usdlog.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")
	rootCmd.Flags().StringVarP(&input, "input", "i", "", "the binary file that is converted to json")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "the output json file")
	rootCmd.Flags().StringVarP(&event, "event", "e", "", "event type to extract (default: first with records)")
	rootCmd.Flags().StringVar(&stepMode, "step-mode", "first", "tick step inference: first or median")
	rootCmd.Flags().BoolVar(&writeXLSX, "xlsx", false, "also write <input>.xlsx")
	rootCmd.Flags().BoolVar(&strictCRC, "strict-crc", false, "abort when the log CRC does not match")

	// Bind command line flags to viper configuration keys
	viper.BindPFlag("output.json", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("output.xlsx", rootCmd.Flags().Lookup("xlsx"))
	viper.BindPFlag("decode.event", rootCmd.Flags().Lookup("event"))
	viper.BindPFlag("decode.strict_crc", rootCmd.Flags().Lookup("strict-crc"))
	viper.BindPFlag("gaps.step_mode", rootCmd.Flags().Lookup("step-mode"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if err := config.Init(viper.GetViper(), cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if verbose && viper.ConfigFileUsed() != "" {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// runConvert is the main application logic
func runConvert() error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(cfg.Logging, verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	mode, err := gaps.ParseStepMode(cfg.Gaps.StepMode)
	if err != nil {
		return err
	}

	decoder := usdfile.NewDecoder(usdfile.Options{
		Event:     cfg.Decode.Event,
		StrictCRC: cfg.Decode.StrictCRC,
	}, logger)

	p, err := pipeline.NewPipeline(&pipeline.Config{
		Output:     cfg.Output.JSON,
		TickColumn: cfg.Gaps.Column,
		StepMode:   mode,
		XLSX:       cfg.Output.XLSX,
	}, decoder, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = p.Run(ctx, input)
	return err
}

// main is the entry point of the application
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
