package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/meyerlab/phenotool/internal/fetch"
	"github.com/meyerlab/phenotool/internal/util"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [logical-name...]",
	Short: "Fetch configured files to the local cache",
	Long: `Fetch one or more configured files by logical name, using the local
copy when valid and downloading from the platform otherwise.

Names are top-level FILES keys or dotted group keys:

  phenotool fetch CODINGS DATA_DICT
  phenotool fetch PHENOTYPE_FILES.PILOT_PHENOTYPES

Use --list to show the fetch ledger instead.`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().Bool("list", false, "list the fetch ledger and exit")
}

func runFetch(cmd *cobra.Command, args []string) error {
	fetcher := newFetcher(fetch.OverwriteAlways)
	defer closeFetcher(fetcher)

	if list, _ := cmd.Flags().GetBool("list"); list {
		return printLedger(fetcher)
	}

	if len(args) == 0 {
		return fmt.Errorf("no logical file names given (or use --list)")
	}

	logger := newEventLogger()
	defer logger.Close()

	cfg, err := loadProjectConfig(fetcher)
	if err != nil {
		return err
	}

	for _, name := range args {
		path, err := fetchConfigured(fetcher, cfg, name)
		if err != nil {
			return err
		}
		info, statErr := os.Stat(path)
		var size int64
		if statErr == nil {
			size = info.Size()
		}
		logger.LogFetch(path, name, size, false)
		util.SuccessLog("%s -> %s", name, path)
	}
	return nil
}

func printLedger(f *fetch.Fetcher) error {
	if f.Ledger == nil {
		return fmt.Errorf("no fetch ledger configured (--ledger)")
	}

	entries, err := f.Ledger.Entries()
	if err != nil {
		return fmt.Errorf("failed to read ledger: %w", err)
	}
	if len(entries) == 0 {
		util.InfoLog("Fetch ledger is empty")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REMOTE ID\tLOCAL PATH\tSIZE\tFETCHED\tHITS")
	for _, e := range entries {
		fetched := ""
		if !e.FetchedAt.IsZero() {
			fetched = humanize.Time(e.FetchedAt)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			e.RemoteID, e.LocalPath, humanize.Bytes(uint64(e.SizeBytes)), fetched, e.HitCount)
	}
	return w.Flush()
}
