// generator writes a synthetic tuberculosis patient dataset as CSV.
//
// Usage:
//
//	generator [--rows 500] [--output tb_dummy_500.csv] [--seed N] [--config file.yaml]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tbdelay/platform/pkg/common/config"
	"github.com/tbdelay/platform/pkg/common/logger"
	"github.com/tbdelay/platform/pkg/generator"
)

var generateFlags struct {
	config string
	rows   int
	output string
	seed   int64
}

var rootCmd = &cobra.Command{
	Use:          "generator",
	Short:        "Generate a synthetic TB diagnostic delay dataset",
	SilenceUsage: true,
	RunE:         runGenerate,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&generateFlags.config, "config", "", "YAML configuration file")
	f.IntVar(&generateFlags.rows, "rows", generator.DefaultRows, "Number of records to generate")
	f.StringVar(&generateFlags.output, "output", "", "Output CSV path (default from configuration)")
	f.Int64Var(&generateFlags.seed, "seed", 0, "Random seed; 0 seeds from the clock")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(generateFlags.config)
	if err != nil {
		return err
	}

	rows := cfg.GeneratorRows
	if cmd.Flags().Changed("rows") {
		rows = generateFlags.rows
	}
	if rows < 0 {
		return fmt.Errorf("rows must not be negative, got %d", rows)
	}
	output := cfg.DatasetPath
	if generateFlags.output != "" {
		output = generateFlags.output
	}
	seed := cfg.GeneratorSeed
	if cmd.Flags().Changed("seed") {
		seed = generateFlags.seed
	}

	recs, err := generator.WriteDataset(output, generator.Options{Rows: rows, Seed: seed})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Generated %d rows → saved to %s\n", len(recs), output)
	return nil
}

func main() {
	logger.Init()
	if err := rootCmd.Execute(); err != nil {
		logger.Log.WithError(err).Error("generator failed")
		os.Exit(1)
	}
}
