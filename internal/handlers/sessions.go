package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/lehigh-university-libraries/albumgen/internal/export"
	"github.com/lehigh-university-libraries/albumgen/internal/imagekit"
)

func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.engine.Snapshot())
}

func (h *Handler) HandleRemoveAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.RemoveAsset(r.Context(), r.PathValue("id")); err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, h.engine.Snapshot())
}

func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Analyze(r.Context()); err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, h.engine.Snapshot())
}

type generateResponse struct {
	Requested int      `json:"requested"`
	Completed int      `json:"completed"`
	Failures  []string `json:"failures,omitempty"`
	State     any      `json:"state"`
}

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Count int `json:"count"`
	}
	if !h.decodeBody(w, r, &request) {
		return
	}
	if request.Count > 0 {
		h.engine.SetImageCount(request.Count)
	}

	result, err := h.engine.Generate(r.Context(), request.Count)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	resp := generateResponse{
		Requested: result.Requested,
		Completed: len(result.Images),
		State:     h.engine.Snapshot(),
	}
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, f.Error())
	}
	h.writeJSON(w, resp)
}

func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	session, ok, err := h.engine.Archive(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, map[string]any{
		"archived": ok,
		"session":  session.ID,
		"state":    h.engine.Snapshot(),
	})
}

type sessionSummary struct {
	ID              string `json:"id"`
	CreatedAt       string `json:"created_at"`
	AnalysisSummary string `json:"analysis_summary"`
	Images          int    `json:"images"`
	ReferenceAssets int    `json:"reference_assets"`
}

// HandleHistory lists archived sessions without image data.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	history := h.engine.History()
	list := make([]sessionSummary, 0, len(history))
	for _, s := range history {
		list = append(list, sessionSummary{
			ID:              s.ID,
			CreatedAt:       s.CreatedAt.Format(time.RFC3339),
			AnalysisSummary: s.AnalysisSummary,
			Images:          len(s.Images),
			ReferenceAssets: len(s.ReferenceAssets),
		})
	}
	h.writeJSON(w, list)
}

func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	session, ok := h.engine.Session(r.PathValue("id"))
	if !ok {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, session)
}

func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Restore(r.Context(), r.PathValue("id")); err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, h.engine.Snapshot())
}

func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Factory bool `json:"factory"`
	}
	if !h.decodeBody(w, r, &request) {
		return
	}
	if err := h.engine.Reset(r.Context(), request.Factory); err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, h.engine.Snapshot())
}

// HandleImage serves the bytes of one generated image. ?download=1 sets
// the export file name.
func (h *Handler) HandleImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	img, ok := h.engine.Image(id)
	if !ok {
		h.writeError(w, "Image not found", http.StatusNotFound)
		return
	}
	blob, err := imagekit.DecodeDataURL(img.ImageData)
	if err != nil {
		h.writeError(w, "Stored image is unreadable: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", blob.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(id)+`"`)
	}
	if _, err := w.Write(blob.Data); err != nil {
		slog.Error("Unable to write image response", "image_id", id, "err", err)
	}
}
