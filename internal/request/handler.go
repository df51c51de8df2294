package request

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"mobiq/internal/app/apiresp"
	"mobiq/internal/auth"
	"mobiq/internal/questionnaire"

	"github.com/go-chi/chi/v5"
)

type requestService interface {
	CreateFromSession(ctx context.Context, userID int64, sessionID string) (*FurnitureRequest, error)
	ListByCreator(ctx context.Context, userID int64) ([]FurnitureRequest, error)
	Get(ctx context.Context, userID int64, id string) (*FurnitureRequest, error)
	Publish(ctx context.Context, userID int64, id string) (*FurnitureRequest, error)
	UpdateStatus(ctx context.Context, userID int64, id string, next Status) (*FurnitureRequest, error)
}

type Handler struct {
	svc requestService
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type createRequestRequest struct {
	SessionID string `json:"session_id"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func NewHandler(svc requestService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}

	var req createRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.SessionID) == "" {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "session_id is required"})
		return
	}

	created, err := h.svc.CreateFromSession(r.Context(), user.ID, req.SessionID)
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

	requests, err := h.svc.ListByCreator(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: requests})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.creatorScope(w, r)
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

func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.creatorScope(w, r)
	if !ok {
		return
	}
	published, err := h.svc.Publish(r.Context(), user.ID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: published})
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.creatorScope(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}
	next := Status(strings.ToUpper(strings.TrimSpace(req.Status)))
	if next == "" {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "status is required"})
		return
	}

	updated, err := h.svc.UpdateStatus(r.Context(), user.ID, id, next)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: updated})
}

func (h *Handler) creatorScope(w http.ResponseWriter, r *http.Request) (*auth.User, string, bool) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return nil, "", false
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request id"})
		return nil, "", false
	}
	return user, id, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, questionnaire.ErrSessionNotFound):
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
	case errors.Is(err, ErrForbidden), errors.Is(err, questionnaire.ErrSessionForbidden):
		writeJSON(w, r, http.StatusForbidden, apiResponse{OK: false, Error: "forbidden"})
	case errors.Is(err, ErrHomeNotFound):
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "home not found"})
	case errors.Is(err, ErrNoAnswers), errors.Is(err, questionnaire.ErrSessionIncomplete):
		writeJSON(w, r, http.StatusConflict, apiResponse{OK: false, Error: err.Error()})
	case errors.Is(err, ErrInvalidTransition):
		writeJSON(w, r, http.StatusConflict, apiResponse{OK: false, Error: err.Error()})
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
