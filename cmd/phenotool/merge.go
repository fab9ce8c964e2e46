package main

import (
	"fmt"
	"time"

	"github.com/meyerlab/phenotool/internal/config"
	"github.com/meyerlab/phenotool/internal/fetch"
	"github.com/meyerlab/phenotool/internal/meta"
	"github.com/meyerlab/phenotool/internal/report"
	"github.com/meyerlab/phenotool/internal/table"
	"github.com/meyerlab/phenotool/internal/util"
	"github.com/spf13/cobra"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <input|-> <output>",
	Short: "Merge coding and data-dictionary metadata into a phenotype list",
	Long: `Merge the codings vocabulary and the data dictionary into a phenotype
list, filling in code values and descriptive metadata columns.

The input must contain at least the columns phenotype, coding_name, entity
and name. Pass "-" as the input to use the configured default phenotype
list (fetched from the platform when absent locally). The merge never
changes the row count; a change aborts without writing output.

This stage prompts before overwriting cached files it is about to
re-download; pass --yes to overwrite without asking.`,
	Args: cobra.ExactArgs(2),
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().BoolP("yes", "y", false, "overwrite cached files without asking")
}

func runMerge(cmd *cobra.Command, args []string) error {
	inputArg, output := args[0], args[1]

	policy := fetch.OverwriteAsk
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		policy = fetch.OverwriteAlways
	}

	fetcher := newFetcher(policy)
	defer closeFetcher(fetcher)

	logger := newEventLogger()
	defer logger.Close()

	cfg, err := loadProjectConfig(fetcher)
	if err != nil {
		return err
	}

	input := inputArg
	if input == "-" {
		input, err = fetchConfigured(fetcher, cfg, "PHENOTYPE_FILES.PILOT_PHENOTYPES")
		if err != nil {
			logger.LogError(report.EventFetch, inputArg, err)
			return err
		}
	}

	codingsPath, err := fetchConfigured(fetcher, cfg, "CODINGS")
	if err != nil {
		logger.LogError(report.EventFetch, "CODINGS", err)
		return err
	}
	dictPath, err := fetchConfigured(fetcher, cfg, "DATA_DICT")
	if err != nil {
		logger.LogError(report.EventFetch, "DATA_DICT", err)
		return err
	}

	pheno, err := table.LoadTable(input)
	if err != nil {
		return err
	}
	codings, err := table.LoadTable(codingsPath)
	if err != nil {
		return err
	}
	dict, err := table.LoadTable(dictPath)
	if err != nil {
		return err
	}

	util.InfoLog("Merging metadata into %d phenotype rows", pheno.NumRows())
	start := time.Now()
	merged, err := meta.Merge(pheno, codings, dict)
	if err != nil {
		logger.LogError(report.EventMerge, input, err)
		return fmt.Errorf("metadata merge failed: %w", err)
	}

	if err := merged.WriteCSV(output); err != nil {
		return err
	}

	logger.LogMerge(input, output, merged.NumRows(), time.Since(start))
	util.SuccessLog("Output saved to %s", output)
	return nil
}

// fetchConfigured resolves a logical file name through the configuration
// and returns a working local path.
func fetchConfigured(f *fetch.Fetcher, cfg *config.Config, name string) (string, error) {
	desc, err := cfg.File(name)
	if err != nil {
		return "", err
	}
	path, err := cfg.ResolvePath(desc)
	if err != nil {
		return "", err
	}
	return f.Get(path, desc.ID, desc.Filename, false)
}
