package cmd

import (
	"errors"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/albumgen/internal/imagekit"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/lehigh-university-libraries/albumgen/internal/session"
	"github.com/spf13/cobra"
)

func newCropCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crop",
		Short: "Confirm or skip queued photos one at a time",
	}
	cmd.AddCommand(newCropConfirmCmd(opts))
	cmd.AddCommand(newCropCancelCmd(opts))
	cmd.AddCommand(newCropAllCmd(opts))
	cmd.AddCommand(newCropShowCmd(opts))
	return cmd
}

func newCropConfirmCmd(opts *rootOptions) *cobra.Command {
	var (
		cropFile string
		rect     string
	)

	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm the photo at the head of the queue",
		Long: `Turns the next queued photo into a reference asset. By default the face
crop is automatic (a centered square biased toward the top of portrait shots).
Use --rect to crop a region of the original, or --crop-file to supply an
already cropped image.`,
		Example: `  albumgen crop confirm
  albumgen crop confirm --rect 120,40,600,600
  albumgen crop confirm --crop-file face.jpg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			item, ok := a.engine.Current()
			if !ok {
				return models.ErrQueueEmpty
			}
			cropped, err := resolveCrop(item, cropFile, rect)
			if err != nil {
				return err
			}
			return confirmOne(cmd, a, cropped)
		},
	}

	cmd.Flags().StringVar(&cropFile, "crop-file", "", "Use this image as the crop")
	cmd.Flags().StringVar(&rect, "rect", "", "Crop rectangle of the original as x,y,width,height")
	cmd.MarkFlagsMutuallyExclusive("crop-file", "rect")

	return cmd
}

func newCropCancelCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Skip the photo at the head of the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			drained, err := a.engine.CancelCrop(cmd.Context())
			if err != nil {
				return err
			}
			if drained {
				fmt.Println("Skipped. Crop queue is empty.")
				return nil
			}
			fmt.Printf("Skipped. %d photo(s) still queued.\n", a.engine.Snapshot().Queued)
			return nil
		},
	}
}

func newCropAllCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Auto-crop and confirm every queued photo in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			for {
				item, ok := a.engine.Current()
				if !ok {
					return nil
				}
				cropped, err := imagekit.AutoCrop(item.RawImage)
				if err != nil {
					return fmt.Errorf("failed to crop queued photo: %w", err)
				}
				if err := confirmOne(cmd, a, cropped); err != nil {
					return err
				}
			}
		},
	}
}

func newCropShowCmd(opts *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Write the photo at the head of the queue to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			item, ok := a.engine.Current()
			if !ok {
				return models.ErrQueueEmpty
			}
			blob, err := imagekit.DecodeDataURL(item.RawImage)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, blob.Data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			w, h, _ := imagekit.Dimensions(blob)
			fmt.Printf("Wrote %s (%dx%d, %d queued)\n", out, w, h, a.engine.Snapshot().Queued)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "crop-current.img", "Output file")
	return cmd
}

func confirmOne(cmd *cobra.Command, a *app, cropped string) error {
	outcome, err := a.engine.ConfirmCrop(cmd.Context(), cropped)
	if err != nil && !outcome.AutoAnalyzed {
		return err
	}
	printConfirm(outcome)
	if err != nil {
		return fmt.Errorf("automatic analysis failed: %w", err)
	}
	return nil
}

func printConfirm(outcome session.ConfirmOutcome) {
	switch {
	case outcome.CapacityReached:
		fmt.Println("Asset limit reached; photo not added.")
	case outcome.Added:
		fmt.Printf("Added asset %s\n", outcome.Asset.ID)
	}
	if outcome.AutoAnalyzed {
		fmt.Println("First asset added; identity analysis ran automatically.")
	} else if outcome.Drained {
		fmt.Println("Crop queue is empty. Run `albumgen analyze` when ready.")
	}
}

func resolveCrop(item models.CropQueueItem, cropFile, rect string) (string, error) {
	switch {
	case cropFile != "":
		data, err := os.ReadFile(cropFile)
		if err != nil {
			return "", fmt.Errorf("failed to read crop file: %w", err)
		}
		return imagekit.FromBytes(data)
	case rect != "":
		r, err := parseRect(rect)
		if err != nil {
			return "", err
		}
		return imagekit.Crop(item.RawImage, r)
	default:
		return imagekit.AutoCrop(item.RawImage)
	}
}

// parseRect reads "x,y,width,height".
func parseRect(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, errors.New("rect must be x,y,width,height")
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("invalid rect value %q: %w", p, err)
		}
		vals[i] = v
	}
	if vals[2] <= 0 || vals[3] <= 0 {
		return image.Rectangle{}, errors.New("rect width and height must be positive")
	}
	return image.Rect(vals[0], vals[1], vals[0]+vals[2], vals[1]+vals[3]), nil
}
