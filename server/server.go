// Package server exposes the mail agent over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tbxark/mailagent/agent"
	"github.com/tbxark/mailagent/dialogue"
	"github.com/tbxark/mailagent/intent"
	"github.com/tbxark/mailagent/message"
	"github.com/tbxark/mailagent/transport"
	"github.com/tbxark/mailagent/types"
)

// Service is the part of agent.Agent the handlers use.
type Service interface {
	Say(ctx context.Context, text string) (*agent.Turn, error)
	Dispatch(ctx context.Context, u intent.Utterance) (*agent.Turn, error)
	Reset(ctx context.Context) error
}

type utteranceRequest struct {
	Text string `json:"text"`
}

type turnResponse struct {
	Phase     types.Phase     `json:"phase"`
	Replies   []string        `json:"replies"`
	Message   message.Message `json:"message"`
	Handled   bool            `json:"handled"`
	Completed bool            `json:"completed"`
	Error     string          `json:"error,omitempty"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Router builds the chi router with the agent routes and middleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", h.health)
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/v1/sessions/{key}", func(r chi.Router) {
		r.Post("/utterances", h.utterance)
		r.Post("/intents", h.intent)
		r.Delete("/", h.reset)
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) utterance(w http.ResponseWriter, r *http.Request) {
	var req utteranceRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		Error(w, http.StatusBadRequest, "text is required")
		return
	}
	turn, err := h.service.Say(h.sessionContext(r), req.Text)
	h.writeTurn(w, r, turn, err)
}

func (h *Handler) intent(w http.ResponseWriter, r *http.Request) {
	var u intent.Utterance
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&u); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if u.Intent == "" {
		Error(w, http.StatusBadRequest, "intent is required")
		return
	}
	turn, err := h.service.Dispatch(h.sessionContext(r), u)
	h.writeTurn(w, r, turn, err)
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reset(h.sessionContext(r)); err != nil {
		slog.Error("Failed to reset session", "key", chi.URLParam(r, "key"), "error", err)
		Error(w, http.StatusInternalServerError, "failed to reset session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sessionContext(r *http.Request) context.Context {
	return agent.WithSessionKey(r.Context(), chi.URLParam(r, "key"))
}

// writeTurn reports a delivery failure alongside the turn, since the
// session is already closed when it happens.
func (h *Handler) writeTurn(w http.ResponseWriter, r *http.Request, turn *agent.Turn, err error) {
	if turn == nil || turn.Response == nil {
		status := http.StatusInternalServerError
		if errors.Is(err, agent.ErrNoSessionKey) {
			status = http.StatusBadRequest
		}
		slog.Error("Failed to handle turn", "key", chi.URLParam(r, "key"), "error", err)
		Error(w, status, "failed to handle utterance")
		return
	}
	resp := turnResponse{
		Phase:     turn.Response.Phase,
		Replies:   dialogue.Texts(turn.Lines),
		Message:   turn.Response.Message,
		Handled:   turn.Response.Handled,
		Completed: turn.Response.Completed,
	}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = http.StatusBadGateway
		if errors.Is(err, transport.ErrUnknownRecipient) {
			status = http.StatusUnprocessableEntity
		}
		slog.Error("Turn failed", "key", chi.URLParam(r, "key"), "error", err)
	}
	JSON(w, status, resp)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := sonic.ConfigDefault.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
