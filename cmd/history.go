package cmd

import (
	"fmt"
	"time"

	"github.com/lehigh-university-libraries/albumgen/internal/export"
	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse, restore or delete archived albums",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List archived albums, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			history := a.engine.History()
			if len(history) == 0 {
				fmt.Println("History is empty.")
				return nil
			}
			for _, s := range history {
				fmt.Printf("%s  %s  %2d image(s)  %d asset(s)  %s\n",
					s.ID, s.CreatedAt.Format("2006-01-02 15:04"), len(s.Images), len(s.ReferenceAssets), s.AnalysisSummary)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restore <id>",
		Short: "Make an archived album current again",
		Long: `Restores the album's images and reference assets. The current album is
archived first when it has images. The identity profile comes back in a
reduced form; run analyze to rebuild it in full.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.Restore(cmd.Context(), args[0]); err != nil {
				return err
			}
			snap := a.engine.Snapshot()
			fmt.Printf("Restored %s: %d image(s), %d asset(s)\n", args[0], len(snap.Gallery), len(snap.Assets))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Permanently delete an archived album",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.DeleteSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(newHistoryExportCmd(opts))
	cmd.AddCommand(newHistoryInspectCmd())
	return cmd
}

func newHistoryExportCmd(opts *rootOptions) *cobra.Command {
	var (
		out    string
		verify bool
	)

	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Write a Parquet index of archived albums",
		Example: `  albumgen history export --out history.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			history := a.engine.History()
			if err := export.WriteHistoryIndex(out, history); err != nil {
				return err
			}
			fmt.Printf("Wrote %d session(s) to %s\n", len(history), out)
			if verify {
				if err := export.VerifyHistoryIndex(out, history); err != nil {
					return err
				}
				fmt.Println("Index verified")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "history.parquet", "Output Parquet file")
	cmd.Flags().BoolVar(&verify, "verify", false, "Read the index back and check it against the archive")
	return cmd
}

func newHistoryInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "inspect <index.parquet>",
		Short:   "Print the sessions listed in a history index",
		Example: `  albumgen history inspect history.parquet`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := export.ReadHistoryIndex(args[0])
			if err != nil {
				return err
			}
			for _, r := range rows {
				created := "unknown"
				if r.CreatedAt > 0 {
					created = time.UnixMilli(r.CreatedAt).Format(time.RFC3339)
				}
				fmt.Printf("%s  %s  %d image(s)  %d asset(s)  %s\n", r.SessionID, created, r.ImageCount, r.AssetCount, r.Summary)
			}
			fmt.Printf("%d session(s)\n", len(rows))
			return nil
		},
	}
}
