package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/RichardoC/quanta/internal/chat"
	"github.com/RichardoC/quanta/internal/llm"
	"github.com/RichardoC/quanta/internal/view"
	"go.uber.org/zap"
)

// maxBodyBytes caps request bodies: a full draft of 4-byte characters plus
// JSON framing.
const maxBodyBytes = 4*chat.MaxDraftLen + 1024

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Handler struct {
	llm        Generator
	controller *chat.Controller
	logger     *zap.Logger
}

func NewHandler(generator Generator, controller *chat.Controller, logger *zap.Logger) *Handler {
	return &Handler{
		llm:        generator,
		controller: controller,
		logger:     logger,
	}
}

type MessageRequest struct {
	Message string `json:"message"`
}

type MessageResponse struct {
	Response string `json:"response"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ConversationResponse struct {
	State string `json:"state"`
	view.Timeline
}

type SubmitResponse struct {
	Message string `json:"message"`
	Queued  bool   `json:"queued"`
}

// Routes registers every endpoint, with static files from staticDir at /.
func (h *Handler) Routes(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", h.HandleChat)
	mux.HandleFunc("/api/health", h.Health)
	mux.HandleFunc("/api/conversation", h.GetConversation)
	mux.HandleFunc("/api/conversation/messages", h.SubmitMessage)
	mux.HandleFunc("/api/conversation/reset", h.ResetConversation)
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	return h.withCORS(mux)
}

// HandleChat relays one prompt to the upstream model.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	message, ok := h.decodeMessage(w, r)
	if !ok {
		return
	}

	response, err := h.llm.Generate(r.Context(), message)
	if err != nil {
		h.logger.Error("Upstream API error", zap.Error(err))
		status, msg := upstreamStatus(err)
		h.writeError(w, status, msg)
		return
	}

	h.writeJSON(w, http.StatusOK, MessageResponse{Response: response})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "OK", Message: "QuantaAI server is running"})
}

func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	h.writeConversation(w, http.StatusOK)
}

// SubmitMessage queues a message on the hosted conversation. The reply is
// picked up by polling GetConversation.
func (h *Handler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	message, ok := h.decodeMessage(w, r)
	if !ok {
		return
	}

	ex, ok := h.controller.Submit(message)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	h.logger.Debug("Message queued", zap.Int("length", len(ex.Prompt)))
	h.writeJSON(w, http.StatusAccepted, SubmitResponse{Message: ex.Prompt, Queued: true})
}

func (h *Handler) ResetConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := h.controller.Reset(r.Context()); err != nil {
		h.logger.Error("Failed to reset conversation", zap.Error(err))
		h.writeError(w, http.StatusServiceUnavailable, "Conversation is unavailable")
		return
	}
	h.writeConversation(w, http.StatusOK)
}

func (h *Handler) decodeMessage(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req MessageRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.writeError(w, http.StatusRequestEntityTooLarge, "Message is too long")
		return "", false
	}
	if err != nil || strings.TrimSpace(req.Message) == "" {
		h.writeError(w, http.StatusBadRequest, "Message is required")
		return "", false
	}
	return req.Message, true
}

func (h *Handler) writeConversation(w http.ResponseWriter, status int) {
	snap := h.controller.Snapshot()
	h.writeJSON(w, status, ConversationResponse{
		State:    snap.State.String(),
		Timeline: view.FromSnapshot(snap),
	})
}

// upstreamStatus maps an upstream failure to the relay's status and message.
func upstreamStatus(err error) (int, string) {
	var upstream *llm.UpstreamError
	if errors.As(err, &upstream) {
		switch upstream.StatusCode {
		case http.StatusUnauthorized:
			return http.StatusUnauthorized, "Invalid API key. Please check your Groq API key."
		case http.StatusTooManyRequests:
			return http.StatusTooManyRequests, "Rate limit exceeded. Please try again later."
		}
	}
	return http.StatusInternalServerError, "Failed to get AI response. Please try again."
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, ErrorResponse{Error: msg})
}

func (h *Handler) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
