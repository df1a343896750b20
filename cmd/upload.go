package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/albumgen/internal/imagekit"
	"github.com/lehigh-university-libraries/albumgen/internal/images"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/spf13/cobra"
)

func newUploadCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file|url|-> [more...]",
		Short: "Queue reference photos for cropping",
		Long: `Adds one or more photos to the crop queue. Each argument may be a local
file, an http(s) URL, or "-" to read a single image (raw bytes or a base64
data URL) from stdin. All images of one invocation are queued together.`,
		Example: `  albumgen upload me1.jpg me2.jpg
  albumgen upload https://example.com/portrait.png
  pbpaste | albumgen upload -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := readUploads(cmd, args)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			queued, err := a.engine.Enqueue(cmd.Context(), items)
			if err != nil {
				return fmt.Errorf("failed to queue uploads: %w", err)
			}
			fmt.Printf("Queued %d image(s); %d waiting for crop confirmation\n", len(items), queued)
			fmt.Println("Next: albumgen crop confirm (or crop all)")
			return nil
		},
	}
	return cmd
}

func readUploads(cmd *cobra.Command, args []string) ([]models.CropQueueItem, error) {
	fetcher := images.NewFetcher()
	items := make([]models.CropQueueItem, 0, len(args))
	for _, arg := range args {
		data, err := readUpload(cmd, fetcher, arg)
		if err != nil {
			return nil, err
		}
		item, err := imagekit.QueueItem(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", arg, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func readUpload(cmd *cobra.Command, fetcher *images.Fetcher, arg string) ([]byte, error) {
	switch {
	case arg == "-":
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), images.MaxDownloadBytes*2))
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return pastedImage(data)
	case strings.HasPrefix(arg, "http://"), strings.HasPrefix(arg, "https://"):
		return fetcher.Fetch(cmd.Context(), arg)
	default:
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		return data, nil
	}
}

// pastedImage accepts raw image bytes or base64 text, with or without a data: prefix.
func pastedImage(data []byte) ([]byte, error) {
	if _, err := imagekit.FromBytes(data); err == nil {
		return data, nil
	}
	blob, err := imagekit.DecodeDataURL(string(data))
	if err != nil {
		return nil, fmt.Errorf("stdin is neither an image nor base64 image data: %w", err)
	}
	return blob.Data, nil
}
