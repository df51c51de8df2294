package catalog

import (
	"errors"
	"net/http"
	"strings"

	"mobiq/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
)

const defaultLang = "ro"

type Handler struct {
	src Source
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func NewHandler(src Source) *Handler {
	return &Handler{src: src}
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	lang := langParam(r)
	items, err := h.src.ListCategories(r.Context(), lang)
	if err != nil {
		writeJSON(w, r, http.StatusServiceUnavailable, apiResponse{OK: false, Error: "categories are temporarily unavailable"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	categoryID := strings.TrimSpace(chi.URLParam(r, "id"))
	if categoryID == "" {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid category id"})
		return
	}

	items, err := h.src.ListQuestions(r.Context(), categoryID, langParam(r))
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			writeJSON(w, r, http.StatusServiceUnavailable, apiResponse{OK: false, Error: "questions are temporarily unavailable"})
			return
		}
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: items})
}

func langParam(r *http.Request) string {
	lang := strings.TrimSpace(r.URL.Query().Get("lang"))
	if lang == "" {
		return defaultLang
	}
	return lang
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload apiResponse) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteError(w, r, code, payload.Error)
}

var (
	_ Source = (*Service)(nil)
	_ Source = (*Cache)(nil)
)
