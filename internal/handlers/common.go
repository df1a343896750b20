package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/albumgen/internal/config"
	"github.com/lehigh-university-libraries/albumgen/internal/images"
	"github.com/lehigh-university-libraries/albumgen/internal/models"
	"github.com/lehigh-university-libraries/albumgen/internal/session"
)

// maxUploadBytes bounds one multipart upload request.
const maxUploadBytes = 64 << 20

type Handler struct {
	engine  *session.Engine
	creds   *config.Credentials
	fetcher *images.Fetcher
}

func New(engine *session.Engine, creds *config.Credentials, fetcher *images.Fetcher) *Handler {
	if fetcher == nil {
		fetcher = images.NewFetcher()
	}
	return &Handler{
		engine:  engine,
		creds:   creds,
		fetcher: fetcher,
	}
}

// Routes registers the JSON API on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/state", h.HandleState)
	mux.HandleFunc("POST /api/upload", h.HandleUpload)
	mux.HandleFunc("GET /api/crop/current", h.HandleCropCurrent)
	mux.HandleFunc("POST /api/crop/confirm", h.HandleCropConfirm)
	mux.HandleFunc("POST /api/crop/cancel", h.HandleCropCancel)
	mux.HandleFunc("DELETE /api/assets/{id}", h.HandleRemoveAsset)
	mux.HandleFunc("POST /api/analyze", h.HandleAnalyze)
	mux.HandleFunc("POST /api/generate", h.HandleGenerate)
	mux.HandleFunc("POST /api/archive", h.HandleArchive)
	mux.HandleFunc("GET /api/history", h.HandleHistory)
	mux.HandleFunc("GET /api/history/{id}", h.HandleSessionDetail)
	mux.HandleFunc("POST /api/history/{id}/restore", h.HandleRestore)
	mux.HandleFunc("DELETE /api/history/{id}", h.HandleDeleteSession)
	mux.HandleFunc("POST /api/reset", h.HandleReset)
	mux.HandleFunc("GET /api/images/{id}", h.HandleImage)
	mux.HandleFunc("GET /api/config/key", h.HandleKeyStatus)
	mux.HandleFunc("PUT /api/config/key", h.HandleSaveKey)
	mux.HandleFunc("DELETE /api/config/key", h.HandleClearKey)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message)
	} else {
		slog.Debug("Request rejected", "status", code, "message", message)
	}
	h.writeJSONStatus(w, code, errorResponse{Error: message})
}

// writeEngineError maps engine errors to HTTP statuses.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	code := http.StatusInternalServerError

	var analysisErr *models.AnalysisError
	switch {
	case errors.Is(err, models.ErrBusy), errors.Is(err, models.ErrInvalidTransition):
		code = http.StatusConflict
	case errors.Is(err, models.ErrEmptyInput), errors.Is(err, models.ErrQueueEmpty):
		code = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, models.ErrCredentialMissing):
		code = http.StatusPreconditionFailed
		resp.Hint = models.CredentialRemediationHint
	case errors.As(err, &analysisErr):
		code = http.StatusBadGateway
		resp.Hint = analysisErr.Hint
	}

	if code >= http.StatusInternalServerError {
		slog.Error("Request failed", "status", code, "err", err)
	}
	h.writeJSONStatus(w, code, resp)
}

// decodeJSON reads an optional JSON body; an empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeJSON(r, v); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
