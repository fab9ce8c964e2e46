package main

import (
	"fmt"
	"time"

	"github.com/meyerlab/phenotool/internal/clean"
	"github.com/meyerlab/phenotool/internal/report"
	"github.com/meyerlab/phenotool/internal/util"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean <input> <output>",
	Short: "Apply the standard exclusion filters to a phenotype dataset",
	Long: `Clean a raw phenotype dataset for analysis.

Derives age at recruitment when the registration and birth year/month
columns are present, then removes participants matching the standard
exclusions: invalid birth year (-999), sex 3/-3 or missing, ethnicity
19/-3, income -1/-3 or missing, and under-18s when an age column exists.
Filters whose source columns are absent are skipped.`,
	Args: cobra.ExactArgs(2),
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	input, output := args[0], args[1]

	logger := newEventLogger()
	defer logger.Close()

	util.InfoLog("Reading input file: %s", input)
	start := time.Now()

	rowsIn, rowsOut, err := clean.Process(input, output)
	if err != nil {
		logger.LogError(report.EventClean, input, err)
		return fmt.Errorf("cleaning failed: %w", err)
	}

	logger.LogClean(input, output, rowsIn, rowsOut, time.Since(start))
	util.SuccessLog("Saved cleaned data to %s (%d of %d rows kept)", output, rowsOut, rowsIn)
	return nil
}
