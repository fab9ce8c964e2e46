package main

import (
	"fmt"
	"os"

	"github.com/meyerlab/phenotool/internal/dx"
	"github.com/meyerlab/phenotool/internal/util"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file...>",
	Short: "Upload result files to the remote project",
	Long: `Upload files into a remote project folder, creating the folder (and
any parents) first.

With --subfolder, each flag value pairs positionally with a file argument
and the file lands in <folder>/<subfolder>:

  phenotool upload a.csv b.csv --folder results --subfolder raw --subfolder merged

Files that do not exist locally are reported and skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().String("folder", "results", "remote project folder to upload into")
	uploadCmd.Flags().StringArray("subfolder", nil, "per-file subfolder, paired with file arguments in order")
}

func runUpload(cmd *cobra.Command, args []string) error {
	folder, _ := cmd.Flags().GetString("folder")
	subfolders, _ := cmd.Flags().GetStringArray("subfolder")

	logger := newEventLogger()
	defer logger.Close()

	client := dx.NewClient()

	var failed int
	for i, path := range args {
		if _, err := os.Stat(path); err != nil {
			util.WarnLog("File not found, skipping: %s", path)
			failed++
			continue
		}

		dest := folder
		if i < len(subfolders) && subfolders[i] != "" {
			dest = folder + "/" + subfolders[i]
		}

		if err := client.Mkdir(dest); err != nil {
			return fmt.Errorf("failed to create remote folder %s: %w", dest, err)
		}
		if err := client.Upload(path, dest); err != nil {
			return fmt.Errorf("failed to upload %s: %w", path, err)
		}

		logger.LogUpload(path, dest)
		util.SuccessLog("Uploaded %s to %s", path, dest)
	}

	if failed > 0 {
		util.WarnLog("%d file(s) skipped", failed)
	}
	return nil
}
