package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lehigh-university-libraries/albumgen/internal/config"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type statusReport struct {
	State        models.AppState         `json:"state" yaml:"state"`
	Error        string                  `json:"error,omitempty" yaml:"error,omitempty"`
	Hint         string                  `json:"hint,omitempty" yaml:"hint,omitempty"`
	Queued       int                     `json:"queued" yaml:"queued"`
	Assets       int                     `json:"assets" yaml:"assets"`
	MaxAssets    int                     `json:"max_assets" yaml:"max_assets"`
	Profile      string                  `json:"profile" yaml:"profile"`
	Images       int                     `json:"images" yaml:"images"`
	ImageCount   int                     `json:"image_count" yaml:"image_count"`
	History      int                     `json:"history" yaml:"history"`
	AlbumBytes   int64                   `json:"album_bytes" yaml:"album_bytes"`
	StoreBytes   int64                   `json:"store_bytes" yaml:"store_bytes"`
	Store        string                  `json:"store" yaml:"store"`
	Credential   config.CredentialStatus `json:"credential" yaml:"credential"`
	AnalysisWith string                  `json:"analysis_with" yaml:"analysis_with"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show session state, storage usage and credential status",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			snap := a.engine.Snapshot()
			album, total, err := a.engine.StorageUsage(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to measure storage: %w", err)
			}

			profile := "none"
			if snap.Profile != nil {
				profile = snap.Profile.Summary()
				if snap.Profile.Degraded {
					profile += " (restored)"
				}
			}
			report := statusReport{
				State:        snap.State,
				Error:        snap.Error,
				Hint:         snap.Hint,
				Queued:       snap.Queued,
				Assets:       len(snap.Assets),
				MaxAssets:    a.cfg.MaxAssets,
				Profile:      profile,
				Images:       len(snap.Gallery),
				ImageCount:   snap.ImageCount,
				History:      snap.HistoryCount,
				AlbumBytes:   album,
				StoreBytes:   total,
				Store:        a.cfg.Store,
				Credential:   a.creds.Status(cmd.Context()),
				AnalysisWith: a.cfg.AnalysisProvider + "/" + a.cfg.AnalysisModel,
			}
			return printStatus(report, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or yaml")
	return cmd
}

func printStatus(r statusReport, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(r)
	case "text":
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	fmt.Printf("State:      %s\n", r.State)
	if r.Error != "" {
		fmt.Printf("Error:      %s\n", r.Error)
	}
	if r.Hint != "" {
		fmt.Printf("Hint:       %s\n", r.Hint)
	}
	fmt.Printf("Queue:      %d waiting for crop\n", r.Queued)
	fmt.Printf("Assets:     %d/%d\n", r.Assets, r.MaxAssets)
	fmt.Printf("Profile:    %s\n", r.Profile)
	fmt.Printf("Album:      %d image(s), next run makes %d\n", r.Images, r.ImageCount)
	fmt.Printf("History:    %d album(s)\n", r.History)
	fmt.Printf("Storage:    album %s, total %s (%s)\n", humanBytes(r.AlbumBytes), humanBytes(r.StoreBytes), r.Store)
	fmt.Printf("Analysis:   %s\n", r.AnalysisWith)
	if r.Credential.Configured {
		fmt.Printf("API key:    %s (%s)\n", r.Credential.Masked, r.Credential.Source)
	} else {
		fmt.Println("API key:    not configured (albumgen config set-key)")
	}
	return nil
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
