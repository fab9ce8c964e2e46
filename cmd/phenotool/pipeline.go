package main

import (
	"github.com/meyerlab/phenotool/internal/config"
	"github.com/meyerlab/phenotool/internal/fetch"
	"github.com/meyerlab/phenotool/internal/report"
	"github.com/meyerlab/phenotool/internal/util"
	"github.com/spf13/viper"
)

// newFetcher builds a fetcher from the global settings, opening the fetch
// ledger when one is configured. Ledger problems never block a stage.
func newFetcher(policy fetch.OverwritePolicy) *fetch.Fetcher {
	f := fetch.New()
	f.ProjectRoot = viper.GetString("project-root")
	f.CacheRoot = viper.GetString("cache-dir")
	f.Overwrite = policy

	if path := viper.GetString("ledger"); path != "" {
		ledger, err := fetch.OpenLedger(path)
		if err != nil {
			util.WarnLog("Failed to open fetch ledger %s: %v", path, err)
		} else {
			f.Ledger = ledger
		}
	}
	return f
}

func closeFetcher(f *fetch.Fetcher) {
	if f.Ledger != nil {
		f.Ledger.Close()
	}
}

// loadProjectConfig loads the shared pipeline configuration through the
// fetcher, so a missing or corrupt local copy is re-downloaded.
func loadProjectConfig(f *fetch.Fetcher) (*config.Config, error) {
	return config.Load(config.LoadOptions{
		RemoteID: viper.GetString("config-file-id"),
		Fetcher:  f,
	})
}

// newEventLogger opens the JSONL stage log, degrading to a null logger.
func newEventLogger() *report.EventLogger {
	level := report.LevelInfo
	if viper.GetBool("quiet") {
		level = report.LevelWarning
	} else if viper.GetBool("verbose") {
		level = report.LevelDebug
	}

	logger, err := report.NewEventLogger(viper.GetString("artifacts"), level)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return report.NullLogger()
	}
	if logger.Path() != "" {
		util.DebugLog("Event log: %s", logger.Path())
	}
	return logger
}
