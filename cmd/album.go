package cmd

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/albumgen/internal/analysis"
	"github.com/lehigh-university-libraries/albumgen/internal/generation"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Describe the person in the reference assets",
		Long: `Sends the reference crops (plus a couple of full photos for context when
there is more than one asset) to the analysis model and stores the resulting
identity profile. Any album on screen is archived first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			n := len(a.engine.Snapshot().Assets)
			fmt.Println(analysis.ProgressMessage(n))
			if err := a.engine.Analyze(cmd.Context()); err != nil {
				printFailure(a)
				return err
			}
			printProfile(a.engine.Snapshot().Profile)
			return nil
		},
	}
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new album from the identity profile",
		Long: `Generates one image per randomly chosen pose, one at a time. A pose that
fails is skipped; the album keeps every image that succeeded. The previous
album is archived to history first.`,
		Example: `  albumgen generate
  albumgen generate --count 6`,
		RunE: func(cmd *cobra.Command, args []string) error {
			done := 0
			a, err := newApp(cmd.Context(), opts, withImageObserver(func(img models.GeneratedImage) {
				done++
				fmt.Printf("  [%d] %s  %s\n", done, img.ScenarioID, img.ID)
			}))
			if err != nil {
				return err
			}
			defer a.Close()

			if count > 0 {
				count = a.engine.SetImageCount(count)
			}
			fmt.Println(generation.ProgressMessage)
			result, err := a.engine.Generate(cmd.Context(), count)
			if err != nil {
				printFailure(a)
				return err
			}

			fmt.Printf("\n%d of %d image(s) generated\n", len(result.Images), result.Requested)
			for _, f := range result.Failures {
				fmt.Printf("  skipped %s\n", f.Error())
			}
			fmt.Println("Export with: albumgen export --out ./album")
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 0, fmt.Sprintf("Number of images (1-%d, default from DEFAULT_IMAGE_COUNT)", generation.CatalogSize()))
	return cmd
}

func newResetCmd(opts *rootOptions) *cobra.Command {
	var factory bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Start over",
		Long: `Clears the reference assets, profile and current album. A non-empty album
is archived to history first and history is kept.

With --factory every saved key is removed, including history and the saved
API key.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.Reset(cmd.Context(), factory); err != nil {
				return err
			}
			if factory {
				fmt.Println("Factory reset complete. All saved data was removed.")
			} else {
				fmt.Printf("Session reset. %d album(s) in history.\n", a.engine.Snapshot().HistoryCount)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&factory, "factory", false, "Remove all saved data including history and the API key")
	return cmd
}

func newPosesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poses",
		Short: "List the candid moments albums are drawn from",
		Run: func(cmd *cobra.Command, args []string) {
			for i, p := range generation.Catalog() {
				fmt.Printf("%2d. %s\n    %s\n", i+1, p.ID, p.Prompt)
			}
		},
	}
}

func printProfile(p *models.AnalysisProfile) {
	if p == nil {
		return
	}
	fmt.Println("Identity profile")
	fmt.Println("========================================")
	fmt.Printf("Description: %s\n", p.Description)
	fmt.Printf("Outfit:      %s\n", p.Outfit)
	fmt.Printf("Environment: %s\n", p.Environment)
	fmt.Printf("Style:       %s\n", p.PhotographicStyle)
	if p.DetectedGender != "" {
		fmt.Printf("Gender:      %s\n", p.DetectedGender)
	}
	if len(p.KeyFeatures) > 0 {
		fmt.Printf("Features:    %s\n", strings.Join(p.KeyFeatures, ", "))
	}
	if p.VibeSummary != "" {
		fmt.Printf("Vibe:        %s\n", p.VibeSummary)
	}
	if p.CompositeConfidence != nil {
		fmt.Printf("Confidence:  %.0f%%\n", *p.CompositeConfidence*100)
	}
	if p.Degraded {
		fmt.Println("(restored from history; run `albumgen analyze` for a full profile)")
	}
}

func printFailure(a *app) {
	snap := a.engine.Snapshot()
	if snap.Error != "" {
		fmt.Println(snap.Error)
	}
	if snap.Hint != "" {
		fmt.Println(snap.Hint)
	}
}
