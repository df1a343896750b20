package providers

import (
	"context"

	"github.com/lehigh-university-libraries/albumgen/internal/models"
)

// Config represents the configuration for an LLM provider
type Config struct {
	Model       string
	Temperature float64
	Prompt      string

	// Images are sent ahead of the prompt, in order.
	Images []models.Blob

	// JSON asks the provider for a JSON-only response.
	JSON bool
}

// Provider defines the interface for an LLM provider
type Provider interface {
	ExtractText(ctx context.Context, config Config) (string, error)
}

// KeyFunc resolves an API key at call time so a key saved mid-session is picked up.
type KeyFunc func(ctx context.Context) (string, error)
