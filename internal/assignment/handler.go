package assignment

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"mobiq/internal/app/apiresp"
	"mobiq/internal/auth"

	"github.com/go-chi/chi/v5"
)

type assignmentService interface {
	ListByRequest(ctx context.Context, userID int64, requestID string) ([]Assignment, error)
	ListByCreator(ctx context.Context, userID int64) ([]Assignment, error)
	Accept(ctx context.Context, userID int64, id string) (*Assignment, error)
	Decline(ctx context.Context, userID int64, id string) (*Assignment, error)
}

type Handler struct {
	svc assignmentService
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func NewHandler(svc assignmentService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ListByRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}
	requestID := strings.TrimSpace(chi.URLParam(r, "id"))
	if requestID == "" {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request id"})
		return
	}

	offers, err := h.svc.ListByRequest(r.Context(), user.ID, requestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: offers})
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}

	offers, err := h.svc.ListByCreator(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: offers})
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.svc.Accept)
}

func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.svc.Decline)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID int64, id string) (*Assignment, error)) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid assignment id"})
		return
	}

	decided, err := fn(r.Context(), user.ID, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: decided})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: "assignment not found"})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, r, http.StatusForbidden, apiResponse{OK: false, Error: "forbidden"})
	case errors.Is(err, ErrAlreadyDecided):
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
