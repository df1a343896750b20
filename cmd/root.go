package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "albumgen",
		Short: "Build a reference identity from photos and generate candid album shots",
		Long: `Albumgen turns a handful of reference photos of one person into a small
album of candid, "taken by a friend" style images.

Upload photos, confirm a face crop for each, let a vision model describe the
person, then generate a set of shots in different everyday moments. Past
albums are kept in history and can be restored or exported.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file overriding environment settings")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newUploadCmd(opts))
	cmd.AddCommand(newCropCmd(opts))
	cmd.AddCommand(newAssetsCmd(opts))
	cmd.AddCommand(newAnalyzeCmd(opts))
	cmd.AddCommand(newGenerateCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newResetCmd(opts))
	cmd.AddCommand(newPosesCmd())
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))

	return cmd
}
