package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/meyerlab/phenotool/internal/extract"
	"github.com/meyerlab/phenotool/internal/fetch"
	"github.com/meyerlab/phenotool/internal/report"
	"github.com/meyerlab/phenotool/internal/util"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract raw phenotype field values from the remote dataset",
	Long: `Extract raw field values for a configured phenotype list.

The field list is resolved through the project configuration (and fetched
from the platform when no local copy exists). The dataset is selected by
cohort key, or overridden directly with --dataset. With --sql-only the
generated SQL query text is saved instead of running the extraction.

Examples:
  # Extract the pilot phenotypes from the test cohort
  phenotool extract --output outputs/raw/pilot_phenotypes_raw_values.csv

  # Only generate the SQL for a full-cohort extraction
  phenotool extract --cohort FULL_COHORT --sql-only --output outputs/query.sql
`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("phenotype", "PILOT_PHENOTYPES", "phenotype list key under FILES.PHENOTYPE_FILES")
	extractCmd.Flags().StringP("output", "o", "outputs/raw/pilot_phenotypes_raw_values.csv", "output file path")
	extractCmd.Flags().String("cohort", "TEST_COHORT", "cohort key under COHORTS")
	extractCmd.Flags().String("dataset", "", "dataset identifier override (skips cohort lookup)")
	extractCmd.Flags().Bool("sql-only", false, "generate the SQL query text instead of extracting data")
}

func runExtract(cmd *cobra.Command, args []string) error {
	phenotypeKey, _ := cmd.Flags().GetString("phenotype")
	output, _ := cmd.Flags().GetString("output")
	cohortKey, _ := cmd.Flags().GetString("cohort")
	datasetOverride, _ := cmd.Flags().GetString("dataset")
	sqlOnly, _ := cmd.Flags().GetBool("sql-only")

	fetcher := newFetcher(fetch.OverwriteAlways)
	defer closeFetcher(fetcher)

	logger := newEventLogger()
	defer logger.Close()

	cfg, err := loadProjectConfig(fetcher)
	if err != nil {
		return err
	}

	desc, err := cfg.FileIn("PHENOTYPE_FILES", phenotypeKey)
	if err != nil {
		return err
	}
	listPath, err := cfg.ResolvePath(desc)
	if err != nil {
		return err
	}
	fieldListPath, err := fetcher.Get(listPath, desc.ID, desc.Filename, false)
	if err != nil {
		logger.LogError(report.EventFetch, listPath, err)
		return err
	}

	datasetID := datasetOverride
	if datasetID == "" {
		datasetID, err = cfg.Cohort(cohortKey)
		if err != nil {
			return err
		}
	}

	if sqlOnly && !strings.HasSuffix(output, ".sql") {
		util.WarnLog("SQL mode is enabled but %s does not end in .sql; the output may be misnamed", output)
	}

	util.InfoLog("Extracting fields from dataset %s", datasetID)
	start := time.Now()
	if err := extract.Extract(fetcher.DX, datasetID, fieldListPath, output, sqlOnly); err != nil {
		logger.LogError(report.EventExtract, fieldListPath, err)
		return fmt.Errorf("extraction failed: %w", err)
	}

	logger.LogExtract(datasetID, output, 0, time.Since(start))
	util.SuccessLog("Output saved to %s", output)
	return nil
}
