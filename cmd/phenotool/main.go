package main

import (
	"fmt"
	"os"

	"github.com/meyerlab/phenotool/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "phenotool",
		Short: "Extract, annotate and clean phenotype data from the platform",
		Long: `phenotool is a configuration-driven pipeline for phenotype data.
It extracts field values from a remote dataset through the dx tool, merges
coding and data-dictionary metadata into the raw table, and applies the
standard participant exclusion filters. Stages run independently and
exchange data only through CSV files.`,
		Version: Version,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "tool settings file (default is ./configs/phenotool.yaml)")
	rootCmd.PersistentFlags().String("project-root", "/mnt/project", "remote project mount point")
	rootCmd.PersistentFlags().String("cache-dir", ".", "local cache directory for fetched files")
	rootCmd.PersistentFlags().String("ledger", ".phenotool/fetch-ledger.db", "fetch ledger database (empty disables)")
	rootCmd.PersistentFlags().String("artifacts", "artifacts", "directory for stage event logs")
	rootCmd.PersistentFlags().String("config-file-id", "", "remote identifier of the project config document")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	viper.BindPFlag("project-root", rootCmd.PersistentFlags().Lookup("project-root"))
	viper.BindPFlag("cache-dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	viper.BindPFlag("ledger", rootCmd.PersistentFlags().Lookup("ledger"))
	viper.BindPFlag("artifacts", rootCmd.PersistentFlags().Lookup("artifacts"))
	viper.BindPFlag("config-file-id", rootCmd.PersistentFlags().Lookup("config-file-id"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for settings in common locations
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("phenotool")
		viper.SetConfigType("yaml")
	}

	// Read in environment variables that match
	viper.SetEnvPrefix("PHENOTOOL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using settings file: %s", viper.ConfigFileUsed())
	}

	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
