package home

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"mobiq/internal/app/apiresp"
	"mobiq/internal/auth"

	"github.com/go-chi/chi/v5"
)

type homeService interface {
	Create(ctx context.Context, ownerID int64, in HomeInput) (*Home, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]Home, error)
	Get(ctx context.Context, ownerID int64, id string) (*Home, error)
	Update(ctx context.Context, ownerID int64, id string, in HomeInput) (*Home, error)
	Delete(ctx context.Context, ownerID int64, id string) error
}

type Handler struct {
	svc homeService
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func NewHandler(svc homeService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}

	var in HomeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	created, err := h.svc.Create(r.Context(), user.ID, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: created})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}

	homes, err := h.svc.ListByOwner(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: homes})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.ownerScope(w, r)
	if !ok {
		return
	}
	found, err := h.svc.Get(r.Context(), user.ID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: found})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.ownerScope(w, r)
	if !ok {
		return
	}

	var in HomeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	updated, err := h.svc.Update(r.Context(), user.ID, id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: updated})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.ownerScope(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), user.ID, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]string{"status": "deleted"}})
}

func (h *Handler) ownerScope(w http.ResponseWriter, r *http.Request) (*auth.User, string, bool) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return nil, "", false
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid home id"})
		return nil, "", false
	}
	return user, id, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: "home not found"})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, r, http.StatusForbidden, apiResponse{OK: false, Error: "forbidden"})
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: err.Error()})
	default:
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload apiResponse) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteError(w, r, code, payload.Error)
}
