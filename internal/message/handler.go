package message

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

type messageService interface {
	ListThreads(ctx context.Context, userID int64) ([]Thread, error)
	ListMessages(ctx context.Context, userID int64, threadID string) ([]Message, error)
	Post(ctx context.Context, userID int64, threadID, body string) (*Message, error)
	MarkSeen(ctx context.Context, userID int64, threadID string) error
}

type Handler struct {
	svc messageService
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type postMessageRequest struct {
	Body string `json:"body"`
}

func NewHandler(svc messageService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ListThreads(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}

	threads, err := h.svc.ListThreads(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: threads})
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	user, threadID, ok := h.threadScope(w, r)
	if !ok {
		return
	}
	messages, err := h.svc.ListMessages(r.Context(), user.ID, threadID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: messages})
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	user, threadID, ok := h.threadScope(w, r)
	if !ok {
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}

	posted, err := h.svc.Post(r.Context(), user.ID, threadID, req.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: posted})
}

func (h *Handler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	user, threadID, ok := h.threadScope(w, r)
	if !ok {
		return
	}
	if err := h.svc.MarkSeen(r.Context(), user.ID, threadID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: map[string]string{"status": "seen"}})
}

func (h *Handler) threadScope(w http.ResponseWriter, r *http.Request) (*auth.User, string, bool) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return nil, "", false
	}
	threadID := strings.TrimSpace(chi.URLParam(r, "id"))
	if threadID == "" {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid thread id"})
		return nil, "", false
	}
	return user, threadID, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrThreadNotFound):
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: "thread not found"})
	case errors.Is(err, ErrNotParticipant):
		writeJSON(w, r, http.StatusForbidden, apiResponse{OK: false, Error: "forbidden"})
	case errors.Is(err, ErrEmptyBody):
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "message body is required"})
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
