package imagegen

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	resp *genai.GenerateContentResponse
	err  error

	gotModel    string
	gotContents []*genai.Content
	gotConfig   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.gotModel = model
	f.gotContents = contents
	f.gotConfig = config
	return f.resp, f.err
}

func newTestGenerator(fake *fakeModels) *Generator {
	g := New("image-model", func(context.Context) (string, error) { return "key", nil })
	g.newClient = func(context.Context, string) (contentGenerator, error) { return fake, nil }
	return g
}

func pngBlob(t *testing.T) models.Blob {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return models.Blob{MIMEType: "image/png", Data: buf.Bytes()}
}

func imageResponse(data []byte) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "here you go"},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: data}},
			}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func TestGenerateImage(t *testing.T) {
	fake := &fakeModels{resp: imageResponse([]byte("img"))}
	g := newTestGenerator(fake)

	out, err := g.GenerateImage(context.Background(), "a mirror selfie", []models.Blob{pngBlob(t), pngBlob(t)})
	require.NoError(t, err)
	assert.Equal(t, "image/png", out.MIMEType)
	assert.Equal(t, []byte("img"), out.Data)

	assert.Equal(t, "image-model", fake.gotModel)
	require.Len(t, fake.gotContents, 1)
	parts := fake.gotContents[0].Parts
	require.Len(t, parts, 3, "references then prompt")
	assert.Equal(t, "image/jpeg", parts[0].InlineData.MIMEType, "references are recompressed")
	assert.Equal(t, "a mirror selfie", parts[2].Text)
	assert.Contains(t, fake.gotConfig.ResponseModalities, string(genai.ModalityImage))
}

func TestGenerateImage_Errors(t *testing.T) {
	t.Run("credential", func(t *testing.T) {
		g := newTestGenerator(&fakeModels{})
		g.key = func(context.Context) (string, error) { return "", models.ErrCredentialMissing }
		_, err := g.GenerateImage(context.Background(), "p", nil)
		assert.ErrorIs(t, err, models.ErrCredentialMissing)
	})

	t.Run("transport", func(t *testing.T) {
		boom := errors.New("boom")
		g := newTestGenerator(&fakeModels{err: boom})
		_, err := g.GenerateImage(context.Background(), "p", nil)
		assert.ErrorIs(t, err, boom)
	})
}

func TestParseImage(t *testing.T) {
	_, err := parseImage(nil)
	assert.Error(t, err)

	_, err = parseImage(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		FinishReason: genai.FinishReasonSafety,
	}}})
	assert.ErrorContains(t, err, "SAFETY")

	_, err = parseImage(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content:      &genai.Content{Parts: []*genai.Part{{Text: "sorry"}}},
		FinishReason: genai.FinishReasonStop,
	}}})
	assert.ErrorContains(t, err, "no image data")

	resp := imageResponse([]byte("x"))
	resp.Candidates[0].Content.Parts[1].InlineData.MIMEType = ""
	out, err := parseImage(resp)
	require.NoError(t, err)
	assert.Equal(t, "image/png", out.MIMEType)
}
