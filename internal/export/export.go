package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/facette/natsort"
	"github.com/lehigh-university-libraries/albumgen/internal/imagekit"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
)

const (
	filePrefix = "quantum_snap_"
	fileExt    = ".jpg"

	DefaultDelay = 500 * time.Millisecond
)

// FileName is the download name of a generated image.
func FileName(id string) string {
	return filePrefix + id + fileExt
}

// Exporter writes generated images to a directory one at a time, pausing
// between files.
type Exporter struct {
	dir   string
	delay time.Duration
	wait  func(ctx context.Context, d time.Duration) error
}

func New(dir string, delay time.Duration) *Exporter {
	if delay < 0 {
		delay = 0
	}
	return &Exporter{dir: dir, delay: delay, wait: sleep}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Result lists the files written by one export. When the context is
// cancelled mid-run, Written holds the files completed before that.
type Result struct {
	Written []string
	Skipped []string
}

// Export writes each image as quantum_snap_<id>.jpg. Images whose data
// cannot be decoded are skipped and logged.
func (e *Exporter) Export(ctx context.Context, images []models.GeneratedImage) (Result, error) {
	var res Result
	if len(images) == 0 {
		return res, nil
	}
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return res, fmt.Errorf("failed to create export directory: %w", err)
	}

	for i, img := range images {
		if i > 0 {
			if err := e.wait(ctx, e.delay); err != nil {
				return res, err
			}
		} else if err := ctx.Err(); err != nil {
			return res, err
		}

		blob, err := imagekit.DecodeDataURL(img.ImageData)
		if err != nil {
			slog.Warn("Skipping image with unreadable data", "image_id", img.ID, "err", err)
			res.Skipped = append(res.Skipped, img.ID)
			continue
		}

		path := filepath.Join(e.dir, FileName(img.ID))
		if err := os.WriteFile(path, blob.Data, 0644); err != nil {
			return res, fmt.Errorf("failed to write %s: %w", path, err)
		}
		res.Written = append(res.Written, path)
		slog.Debug("Exported image", "image_id", img.ID, "path", path, "bytes", len(blob.Data))
	}

	slog.Info("Export complete", "dir", e.dir, "written", len(res.Written), "skipped", len(res.Skipped))
	return res, nil
}

// List returns the exported image files in dir in natural order.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read export directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		names = append(names, name)
	}
	natsort.Sort(names)
	return names, nil
}
