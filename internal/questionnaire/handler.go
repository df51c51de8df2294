package questionnaire

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

type Handler struct {
	svc sessionService
}

type sessionService interface {
	Start(ctx context.Context, userID int64, in StartInput) (*SessionView, error)
	View(userID int64, id string) (*SessionView, error)
	SubmitAnswer(userID int64, id string, value AnswerValue) (*SessionView, error)
	ToggleAddon(userID int64, id, addonValue string) (*SessionView, error)
	Advance(userID int64, id string) (Signal, *SessionView, error)
	Retreat(userID int64, id string) (Signal, *SessionView, error)
	Rebuild(ctx context.Context, userID int64, id string) (*SessionView, error)
	Discard(userID int64, id string) error
}

type apiResponse struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type startSessionRequest struct {
	HomeID     string             `json:"home_id"`
	Lang       string             `json:"lang"`
	Categories []CategoryQuantity `json:"categories"`
}

type submitAnswerRequest struct {
	Value AnswerValue `json:"value"`
}

type toggleAddonRequest struct {
	Value string `json:"value"`
}

type navigationResponse struct {
	Signal  Signal       `json:"signal"`
	Session *SessionView `json:"session"`
}

func NewHandler(svc sessionService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return
	}

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid request body"})
		return
	}
	if len(req.Categories) == 0 {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "categories are required"})
		return
	}
	for _, c := range req.Categories {
		if strings.TrimSpace(c.CategoryID) == "" || c.Quantity <= 0 {
			writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "each category needs an id and a positive quantity"})
			return
		}
	}

	view, err := h.svc.Start(r.Context(), user.ID, StartInput{
		HomeID:     req.HomeID,
		Lang:       req.Lang,
		Categories: req.Categories,
	})
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, apiResponse{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusCreated, apiResponse{OK: true, Data: view})
}

func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.sessionScope(w, r)
	if !ok {
		return
	}
	view, err := h.svc.View(user.ID, id)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: view})
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.sessionScope(w, r)
	if !ok {
		return
	}
	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid answer payload"})
		return
	}
	view, err := h.svc.SubmitAnswer(user.ID, id, req.Value)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: view})
}

func (h *Handler) ToggleAddon(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.sessionScope(w, r)
	if !ok {
		return
	}
	var req toggleAddonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Value) == "" {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "addon value is required"})
		return
	}
	view, err := h.svc.ToggleAddon(user.ID, id, req.Value)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: view})
}

func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.sessionScope(w, r)
	if !ok {
		return
	}
	sig, view, err := h.svc.Advance(user.ID, id)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: navigationResponse{Signal: sig, Session: view}})
}

func (h *Handler) Retreat(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.sessionScope(w, r)
	if !ok {
		return
	}
	sig, view, err := h.svc.Retreat(user.ID, id)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: navigationResponse{Signal: sig, Session: view}})
}

func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.sessionScope(w, r)
	if !ok {
		return
	}
	view, err := h.svc.Rebuild(r.Context(), user.ID, id)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true, Data: view})
}

func (h *Handler) Discard(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.sessionScope(w, r)
	if !ok {
		return
	}
	if err := h.svc.Discard(user.ID, id); err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, apiResponse{OK: true})
}

func (h *Handler) sessionScope(w http.ResponseWriter, r *http.Request) (*auth.User, string, bool) {
	user, ok := auth.CurrentUser(r.Context())
	if !ok {
		writeJSON(w, r, http.StatusUnauthorized, apiResponse{OK: false, Error: "unauthorized"})
		return nil, "", false
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeJSON(w, r, http.StatusBadRequest, apiResponse{OK: false, Error: "invalid session id"})
		return nil, "", false
	}
	return user, id, true
}

func (h *Handler) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		writeJSON(w, r, http.StatusNotFound, apiResponse{OK: false, Error: err.Error()})
	case errors.Is(err, ErrSessionForbidden):
		writeJSON(w, r, http.StatusForbidden, apiResponse{OK: false, Error: "forbidden"})
	case errors.Is(err, ErrNoCurrentStep):
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
