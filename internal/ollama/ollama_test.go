package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/lehigh-university-libraries/albumgen/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"response":"{\"description\":\"x\"}"}`))
	}))
	defer server.Close()

	o := New(server.URL)
	text, err := o.ExtractText(context.Background(), providers.Config{
		Model:       "llava",
		Temperature: 0.1,
		Prompt:      "describe",
		Images:      []models.Blob{{MIMEType: "image/jpeg", Data: []byte("abc")}},
		JSON:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"description":"x"}`, text)

	assert.Equal(t, "llava", got["model"])
	assert.Equal(t, "json", got["format"])
	assert.Equal(t, []any{"YWJj"}, got["images"])
}

func TestExtractText_Non200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := New(server.URL).ExtractText(context.Background(), providers.Config{Model: "x"})
	assert.ErrorContains(t, err, "404")
}
