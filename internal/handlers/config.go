package handlers

import (
	"net/http"
)

func (h *Handler) HandleKeyStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.creds.Status(r.Context()))
}

func (h *Handler) HandleSaveKey(w http.ResponseWriter, r *http.Request) {
	var request struct {
		APIKey string `json:"api_key"`
	}
	if !h.decodeBody(w, r, &request) {
		return
	}
	if err := h.creds.Save(r.Context(), request.APIKey); err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, h.creds.Status(r.Context()))
}

func (h *Handler) HandleClearKey(w http.ResponseWriter, r *http.Request) {
	if err := h.creds.Clear(r.Context()); err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, h.creds.Status(r.Context()))
}
