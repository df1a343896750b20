package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/lehigh-university-libraries/albumgen/internal/export"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		out       string
		sessionID string
		manifest  bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Save album images to a directory",
		Long: `Writes each image of the current album (or an archived one with --session)
as quantum_snap_<id>.jpg, one file at a time with a short pause between files
(EXPORT_DELAY).`,
		Example: `  albumgen export --out ./album
  albumgen export --session 6f1c... --out ./old-album --manifest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			var (
				images    []models.GeneratedImage
				summary   string
				createdAt time.Time
				assets    int
			)
			if sessionID != "" {
				s, ok := a.engine.Session(sessionID)
				if !ok {
					return fmt.Errorf("session %s: %w", sessionID, models.ErrNotFound)
				}
				images, summary, createdAt, assets = s.Images, s.AnalysisSummary, s.CreatedAt, len(s.ReferenceAssets)
			} else {
				snap := a.engine.Snapshot()
				images, summary, assets = snap.Gallery, snap.Profile.Summary(), len(snap.Assets)
			}
			if len(images) == 0 {
				fmt.Println("Nothing to export.")
				return nil
			}

			res, err := export.New(out, a.cfg.ExportDelay).Export(cmd.Context(), images)
			if err != nil {
				return err
			}
			if manifest {
				path := filepath.Join(out, "album.yaml")
				if err := export.WriteManifest(path, export.NewManifest(sessionID, summary, createdAt, assets, images)); err != nil {
					return err
				}
				fmt.Printf("Wrote manifest %s\n", path)
			}

			names, err := export.List(out)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Printf("  %s\n", name)
			}
			fmt.Printf("Exported %d image(s) to %s", len(res.Written), out)
			if len(res.Skipped) > 0 {
				fmt.Printf(" (%d unreadable skipped)", len(res.Skipped))
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "album", "Output directory")
	cmd.Flags().StringVar(&sessionID, "session", "", "Export an archived album instead of the current one")
	cmd.Flags().BoolVar(&manifest, "manifest", false, "Also write album.yaml describing the images")
	return cmd
}
