package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/neoimplant/dental-assistant/internal/auth"
	"github.com/neoimplant/dental-assistant/internal/patients"
	"github.com/neoimplant/dental-assistant/pkg/logging"
)

// Assistant produces one bot reply per user message.
type Assistant interface {
	Respond(ctx context.Context, patient *patients.Patient, sessionID uuid.UUID, message string) (string, error)
}

// Handler exposes the chat API. All routes expect an authenticated patient
// in the request context (see auth.Middleware).
type Handler struct {
	store     *Store
	assistant Assistant
	logger    *logging.Logger
}

func NewHandler(store *Store, assistant Assistant, logger *logging.Logger) *Handler {
	if store == nil {
		panic("chat: store required")
	}
	if assistant == nil {
		panic("chat: assistant required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, assistant: assistant, logger: logger}
}

// Routes returns the chat sub-router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/sessions", h.CreateSession)
	r.Get("/sessions", h.ListSessions)
	r.Get("/sessions/{sessionID}/messages", h.ListMessages)
	r.Post("/sessions/{sessionID}/messages", h.PostMessage)
	return r
}

type sessionResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateSession opens a new conversation.
// POST /chat/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	patient, ok := auth.PatientFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}

	sess, err := h.store.CreateSession(r.Context(), patient.ID)
	if err != nil {
		h.logger.Error("create session failed", "error", err, "patient_id", patient.ID)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID, Title: sess.Title, CreatedAt: sess.CreatedAt})
}

// ListSessions returns the patient's sessions newest-first.
// GET /chat/sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	patient, ok := auth.PatientFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}

	sessions, err := h.store.ListSessions(r.Context(), patient.ID)
	if err != nil {
		h.logger.Error("list sessions failed", "error", err, "patient_id", patient.ID)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{ID: s.ID, Title: s.Title, CreatedAt: s.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

type turnResponse struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ListMessages returns the session's recent turns oldest-first.
// GET /chat/sessions/{sessionID}/messages
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	_, sess, ok := h.ownSession(w, r)
	if !ok {
		return
	}

	turns, err := h.store.Recent(r.Context(), sess.ID, 100)
	if err != nil {
		h.logger.Error("load messages failed", "error", err, "session_id", sess.ID)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	out := make([]turnResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, turnResponse{Role: t.Role, Text: t.Text, Timestamp: t.Timestamp})
	}
	writeJSON(w, http.StatusOK, out)
}

type postMessageRequest struct {
	Message string `json:"message"`
}

type postMessageResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Reply     string    `json:"reply"`
	Timestamp time.Time `json:"timestamp"`
}

// PostMessage handles one assistant turn.
// POST /chat/sessions/{sessionID}/messages
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	patient, sess, ok := h.ownSession(w, r)
	if !ok {
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		http.Error(w, `{"error": "message required"}`, http.StatusBadRequest)
		return
	}

	reply, err := h.assistant.Respond(r.Context(), patient, sess.ID, req.Message)
	if err != nil {
		h.logger.Error("assistant turn failed", "error", err, "session_id", sess.ID)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, postMessageResponse{SessionID: sess.ID, Reply: reply, Timestamp: time.Now()})
}

// ownSession resolves {sessionID} and enforces that it belongs to the
// authenticated patient.
func (h *Handler) ownSession(w http.ResponseWriter, r *http.Request) (*patients.Patient, *Session, bool) {
	patient, ok := auth.PatientFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return nil, nil, false
	}
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Error(w, `{"error": "invalid session id"}`, http.StatusBadRequest)
		return nil, nil, false
	}
	sess, err := h.store.GetSession(r.Context(), sessionID)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, `{"error": "session not found"}`, http.StatusNotFound)
		return nil, nil, false
	}
	if err != nil {
		h.logger.Error("load session failed", "error", err, "session_id", sessionID)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return nil, nil, false
	}
	if sess.PatientID != patient.ID {
		http.Error(w, `{"error": "session not found"}`, http.StatusNotFound)
		return nil, nil, false
	}
	return patient, sess, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
