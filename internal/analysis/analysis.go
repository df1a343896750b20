package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/albumgen/internal/imagekit"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/lehigh-university-libraries/albumgen/internal/providers"
)

const (
	// Temperature is kept low for a stable, factual description.
	Temperature = 0.1

	// MaxContextOriginals bounds the full images added to a composite payload.
	MaxContextOriginals = 2
)

// Coordinator derives an AnalysisProfile from reference assets through an
// analysis provider.
type Coordinator struct {
	provider providers.Provider
	model    string
}

func New(provider providers.Provider, model string) *Coordinator {
	return &Coordinator{provider: provider, model: model}
}

// Analyze sends the crops of every asset (primary first) and, for composite
// analysis, up to MaxContextOriginals originals. Any provider or parse
// failure is returned as *models.AnalysisError; a missing credential is
// returned as models.ErrCredentialMissing.
func (c *Coordinator) Analyze(ctx context.Context, assets []models.ReferenceAsset) (*models.AnalysisProfile, error) {
	if len(assets) == 0 {
		return nil, models.ErrEmptyInput
	}

	ordered := primaryFirst(assets)
	images, err := payload(ordered)
	if err != nil {
		return nil, models.NewAnalysisError(err)
	}

	shape := ShapeFor(len(ordered))
	slog.Info("Analyzing reference assets", "assets", len(ordered), "images", len(images), "shape", shape.String(), "model", c.model)

	text, err := c.provider.ExtractText(ctx, providers.Config{
		Model:       c.model,
		Temperature: Temperature,
		Prompt:      BuildPrompt(len(ordered)),
		Images:      images,
		JSON:        true,
	})
	if err != nil {
		if errors.Is(err, models.ErrCredentialMissing) {
			return nil, err
		}
		return nil, models.NewAnalysisError(err)
	}

	profile, err := ParseProfile(text)
	if err != nil {
		slog.Debug("Unparseable analysis response", "response", text)
		return nil, models.NewAnalysisError(err)
	}
	return profile, nil
}

func payload(assets []models.ReferenceAsset) ([]models.Blob, error) {
	images := make([]models.Blob, 0, len(assets)+MaxContextOriginals)
	for _, a := range assets {
		b, err := imagekit.DecodeDataURL(a.CroppedImage)
		if err != nil {
			return nil, fmt.Errorf("failed to decode crop of asset %s: %w", a.ID, err)
		}
		images = append(images, b)
	}

	if ShapeFor(len(assets)) != ShapeComposite {
		return images, nil
	}
	for _, a := range assets[:min(MaxContextOriginals, len(assets))] {
		b, err := imagekit.DecodeDataURL(a.OriginalImage)
		if err != nil {
			slog.Warn("Skipping unreadable original in analysis payload", "asset_id", a.ID, "err", err)
			continue
		}
		images = append(images, b)
	}
	return images, nil
}

func primaryFirst(assets []models.ReferenceAsset) []models.ReferenceAsset {
	out := make([]models.ReferenceAsset, 0, len(assets))
	for _, a := range assets {
		if a.IsPrimary {
			out = append(out, a)
		}
	}
	for _, a := range assets {
		if !a.IsPrimary {
			out = append(out, a)
		}
	}
	return out
}

type profileResponse struct {
	Description         string   `json:"description"`
	Outfit              string   `json:"outfit"`
	Environment         string   `json:"environment"`
	PhotographicStyle   string   `json:"photographicStyle"`
	DetectedGender      string   `json:"detectedGender"`
	KeyFeatures         []string `json:"keyFeatures"`
	VibeAnalysis        string   `json:"vibeAnalysis"`
	ConsistencyNotes    string   `json:"consistencyNotes"`
	CompositeConfidence *float64 `json:"compositeConfidence"`
}

// ParseProfile decodes the analysis JSON. Markdown code fences around the
// payload are tolerated; a missing description is an error.
func ParseProfile(text string) (*models.AnalysisProfile, error) {
	text = trimFences(text)
	if text == "" {
		return nil, fmt.Errorf("empty analysis response")
	}

	var resp profileResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}
	if strings.TrimSpace(resp.Description) == "" {
		return nil, fmt.Errorf("analysis response has no description")
	}

	profile := &models.AnalysisProfile{
		Description:       resp.Description,
		Outfit:            resp.Outfit,
		Environment:       resp.Environment,
		PhotographicStyle: resp.PhotographicStyle,
		DetectedGender:    resp.DetectedGender,
		KeyFeatures:       resp.KeyFeatures,
		VibeSummary:       resp.VibeAnalysis,
		ConsistencyNotes:  resp.ConsistencyNotes,
	}
	if profile.KeyFeatures == nil {
		profile.KeyFeatures = []string{}
	}
	if c := resp.CompositeConfidence; c != nil {
		v := min(max(*c, 0), 1)
		profile.CompositeConfidence = &v
	}
	return profile, nil
}

func trimFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
