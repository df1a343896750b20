package handlers

import (
	"errors"
	"fmt"
	"image"
	"net/http"

	"github.com/lehigh-university-libraries/albumgen/internal/imagekit"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
)

type cropRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// HandleCropCurrent returns the image waiting at the head of the crop queue.
func (h *Handler) HandleCropCurrent(w http.ResponseWriter, r *http.Request) {
	item, ok := h.engine.Current()
	if !ok {
		h.writeError(w, "Crop queue is empty", http.StatusNotFound)
		return
	}
	h.writeJSON(w, map[string]any{
		"item":   item,
		"queued": h.engine.Snapshot().Queued,
	})
}

// HandleCropConfirm confirms the queue head. The crop is taken from
// "cropped_image" when given, otherwise from "rect" applied to the raw
// image, otherwise an automatic face crop.
func (h *Handler) HandleCropConfirm(w http.ResponseWriter, r *http.Request) {
	var request struct {
		CroppedImage string    `json:"cropped_image"`
		Rect         *cropRect `json:"rect"`
	}
	if !h.decodeBody(w, r, &request) {
		return
	}

	cropped, err := h.resolveCrop(request.CroppedImage, request.Rect)
	if err != nil {
		if errors.Is(err, models.ErrQueueEmpty) {
			h.writeEngineError(w, err)
			return
		}
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome, err := h.engine.ConfirmCrop(r.Context(), cropped)
	if err != nil && !outcome.AutoAnalyzed {
		h.writeEngineError(w, err)
		return
	}

	// auto-analysis failures surface through state; the confirmation itself succeeded
	h.writeJSON(w, map[string]any{
		"outcome": outcome,
		"state":   h.engine.Snapshot(),
	})
}

func (h *Handler) resolveCrop(cropped string, rect *cropRect) (string, error) {
	if cropped != "" {
		if _, err := imagekit.DecodeDataURL(cropped); err != nil {
			return "", fmt.Errorf("invalid cropped_image: %w", err)
		}
		return cropped, nil
	}

	item, ok := h.engine.Current()
	if !ok {
		return "", models.ErrQueueEmpty
	}
	if rect != nil {
		return imagekit.Crop(item.RawImage, image.Rect(rect.X, rect.Y, rect.X+rect.Width, rect.Y+rect.Height))
	}
	return imagekit.AutoCrop(item.RawImage)
}

func (h *Handler) HandleCropCancel(w http.ResponseWriter, r *http.Request) {
	drained, err := h.engine.CancelCrop(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, map[string]any{
		"drained": drained,
		"state":   h.engine.Snapshot(),
	})
}
