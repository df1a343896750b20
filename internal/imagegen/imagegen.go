package imagegen

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/albumgen/internal/imagekit"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/lehigh-university-libraries/albumgen/internal/providers"
	"google.golang.org/genai"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator produces one image per call from a prompt and reference images
// using a Gemini image model.
type Generator struct {
	model string
	key   providers.KeyFunc

	newClient func(ctx context.Context, apiKey string) (contentGenerator, error)
}

func New(model string, key providers.KeyFunc) *Generator {
	return &Generator{
		model:     model,
		key:       key,
		newClient: newGenAIClient,
	}
}

func newGenAIClient(ctx context.Context, apiKey string) (contentGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

// GenerateImage sends the reference images followed by the prompt and returns
// the first inline image of the response.
func (g *Generator) GenerateImage(ctx context.Context, prompt string, refs []models.Blob) (models.Blob, error) {
	apiKey, err := g.key(ctx)
	if err != nil {
		return models.Blob{}, err
	}

	client, err := g.newClient(ctx, apiKey)
	if err != nil {
		return models.Blob{}, fmt.Errorf("failed to create genai client: %w", err)
	}

	parts := make([]*genai.Part, 0, len(refs)+1)
	for i, ref := range refs {
		compressed, err := imagekit.CompressForPayload(ref)
		if err != nil {
			slog.Warn("Sending reference image uncompressed", "index", i, "err", err)
			compressed = ref
		}
		parts = append(parts, genai.NewPartFromBytes(compressed.Data, compressed.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	resp, err := client.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{string(genai.ModalityText), string(genai.ModalityImage)},
		},
	)
	if err != nil {
		return models.Blob{}, fmt.Errorf("failed to generate image: %w", err)
	}
	return parseImage(resp)
}

func parseImage(resp *genai.GenerateContentResponse) (models.Blob, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return models.Blob{}, fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = "image/png"
				}
				return models.Blob{MIMEType: mimeType, Data: part.InlineData.Data}, nil
			}
		}
	}

	switch candidate.FinishReason {
	case "", genai.FinishReasonUnspecified, genai.FinishReasonStop:
		return models.Blob{}, fmt.Errorf("no image data in response")
	default:
		return models.Blob{}, fmt.Errorf("image generation stopped: %s", candidate.FinishReason)
	}
}
