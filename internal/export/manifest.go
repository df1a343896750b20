package export

import (
	"fmt"
	"os"
	"time"

	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"gopkg.in/yaml.v3"
)

// Manifest describes one exported album.
type Manifest struct {
	Album  ManifestAlbum   `yaml:"album"`
	Images []ManifestImage `yaml:"images"`
}

type ManifestAlbum struct {
	SessionID  string `yaml:"sessionid,omitempty"`
	Summary    string `yaml:"summary"`
	CreatedAt  string `yaml:"createdat"`
	ExportedAt string `yaml:"exportedat"`
	Assets     int    `yaml:"assets"`
}

type ManifestImage struct {
	File       string `yaml:"file"`
	ScenarioID string `yaml:"scenarioid"`
	Prompt     string `yaml:"prompt"`
	CreatedAt  string `yaml:"createdat"`
}

// NewManifest describes an album. sessionID is empty for the live gallery.
func NewManifest(sessionID, summary string, createdAt time.Time, assets int, images []models.GeneratedImage) Manifest {
	m := Manifest{
		Album: ManifestAlbum{
			SessionID:  sessionID,
			Summary:    summary,
			CreatedAt:  formatTime(createdAt),
			ExportedAt: time.Now().Format(time.RFC3339),
			Assets:     assets,
		},
		Images: make([]ManifestImage, 0, len(images)),
	}
	for _, img := range images {
		m.Images = append(m.Images, ManifestImage{
			File:       FileName(img.ID),
			ScenarioID: img.ScenarioID,
			Prompt:     img.Prompt,
			CreatedAt:  formatTime(img.CreatedAt),
		})
	}
	return m
}

// WriteManifest saves m as YAML.
func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
