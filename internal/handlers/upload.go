package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/albumgen/internal/imagekit"
	"github.com/lehigh-university-libraries/albumgen/internal/images"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
)

// HandleUpload queues every image of one request for cropping. Multipart
// requests carry files under "files" (or "file"); JSON requests carry data
// URLs under "images" and remote URLs under "image_urls".
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	var (
		items []models.CropQueueItem
		err   error
	)
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		items, err = h.jsonUploadItems(r)
	} else {
		items, err = h.fileUploadItems(r)
	}
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	queued, err := h.engine.Enqueue(r.Context(), items)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, map[string]any{
		"message": fmt.Sprintf("Successfully queued %d image(s) for cropping", len(items)),
		"added":   len(items),
		"queued":  queued,
	})
}

func (h *Handler) jsonUploadItems(r *http.Request) ([]models.CropQueueItem, error) {
	var request struct {
		Images    []string `json:"images"`
		ImageURLs []string `json:"image_urls"`
	}
	if err := decodeJSON(r, &request); err != nil {
		return nil, err
	}
	if len(request.Images) == 0 && len(request.ImageURLs) == 0 {
		return nil, fmt.Errorf("images or image_urls is required")
	}

	items := make([]models.CropQueueItem, 0, len(request.Images)+len(request.ImageURLs))
	for i, raw := range request.Images {
		blob, err := imagekit.DecodeDataURL(raw)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
		item, err := imagekit.QueueItem(blob.Data)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
		items = append(items, item)
	}
	for _, u := range request.ImageURLs {
		data, err := h.fetcher.Fetch(r.Context(), u)
		if err != nil {
			return nil, fmt.Errorf("failed to process image URL: %w", err)
		}
		item, err := imagekit.QueueItem(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", u, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (h *Handler) fileUploadItems(r *http.Request) ([]models.CropQueueItem, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("no files in upload")
	}

	items := make([]models.CropQueueItem, 0, len(headers))
	for _, header := range headers {
		data, err := readUploadFile(header)
		if err != nil {
			return nil, err
		}
		item, err := imagekit.QueueItem(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", header.Filename, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func readUploadFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, images.MaxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file contents: %w", err)
	}
	if len(data) > images.MaxDownloadBytes {
		return nil, fmt.Errorf("%s: file too large (max 10MB)", header.Filename)
	}
	return data, nil
}
