// Package webchat serves the browser chat widget over a WebSocket. Each
// inbound message runs one synchronous assistant turn; history is replayed
// on connect.
package webchat

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/neoimplant/dental-assistant/internal/chat"
	"github.com/neoimplant/dental-assistant/internal/conversation"
	"github.com/neoimplant/dental-assistant/internal/patients"
	"github.com/neoimplant/dental-assistant/pkg/logging"
)

// TokenParser authenticates the connection from the token query parameter.
type TokenParser interface {
	ParseToken(tokenString string) (uuid.UUID, error)
	Patient(ctx context.Context, id uuid.UUID) (*patients.Patient, error)
}

// Assistant runs one turn per inbound message.
type Assistant interface {
	Respond(ctx context.Context, patient *patients.Patient, sessionID uuid.UUID, message string) (string, error)
}

// SessionStore is the slice of the chat store the widget needs.
type SessionStore interface {
	CreateSession(ctx context.Context, patientID uuid.UUID) (*chat.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*chat.Session, error)
	Recent(ctx context.Context, sessionID uuid.UUID, limit int) ([]conversation.Turn, error)
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type      string `json:"type"` // "message", "ping"
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "history", "session", "pong", "error"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified turn for history replay.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// Handler upgrades widget connections and relays turns to the assistant.
type Handler struct {
	tokens    TokenParser
	sessions  SessionStore
	assistant Assistant
	logger    *logging.Logger
}

func NewHandler(tokens TokenParser, sessions SessionStore, assistant Assistant, logger *logging.Logger) *Handler {
	if tokens == nil {
		panic("webchat: token parser required")
	}
	if sessions == nil {
		panic("webchat: session store required")
	}
	if assistant == nil {
		panic("webchat: assistant required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{tokens: tokens, sessions: sessions, assistant: assistant, logger: logger}
}

// ServeHTTP upgrades GET /ws?token=...&session_id=... to a WebSocket.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	patientID, err := h.tokens.ParseToken(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	patient, err := h.tokens.Patient(r.Context(), patientID)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	websocket.Handler(func(conn *websocket.Conn) {
		h.serve(conn, patient, r.URL.Query().Get("session_id"))
	}).ServeHTTP(w, r)
}

func (h *Handler) serve(conn *websocket.Conn, patient *patients.Patient, rawSessionID string) {
	defer conn.Close()
	ctx := conn.Request().Context()

	sess, err := h.resolveSession(ctx, patient, rawSessionID)
	if err != nil {
		h.logger.Error("webchat session setup failed", "error", err, "patient_id", patient.ID)
		h.send(conn, OutboundMessage{Type: "error", Text: "could not open session"})
		return
	}
	h.send(conn, OutboundMessage{Type: "session", SessionID: sess.ID.String()})
	h.replayHistory(ctx, conn, sess.ID)

	for {
		var in InboundMessage
		if err := websocket.JSON.Receive(conn, &in); err != nil {
			return
		}
		switch in.Type {
		case "ping":
			h.send(conn, OutboundMessage{Type: "pong"})
		case "message":
			if in.Text == "" {
				continue
			}
			reply, err := h.assistant.Respond(ctx, patient, sess.ID, in.Text)
			if err != nil {
				h.logger.Error("webchat turn failed", "error", err, "session_id", sess.ID)
				h.send(conn, OutboundMessage{Type: "error", Text: "something went wrong, please try again"})
				continue
			}
			h.send(conn, OutboundMessage{
				Type:      "message",
				Role:      conversation.RoleBot,
				Text:      reply,
				SessionID: sess.ID.String(),
				Timestamp: time.Now().Format(time.RFC3339),
			})
		}
	}
}

func (h *Handler) resolveSession(ctx context.Context, patient *patients.Patient, rawSessionID string) (*chat.Session, error) {
	if rawSessionID == "" {
		return h.sessions.CreateSession(ctx, patient.ID)
	}
	id, err := uuid.Parse(rawSessionID)
	if err != nil {
		return h.sessions.CreateSession(ctx, patient.ID)
	}
	sess, err := h.sessions.GetSession(ctx, id)
	if err != nil || sess.PatientID != patient.ID {
		return h.sessions.CreateSession(ctx, patient.ID)
	}
	return sess, nil
}

func (h *Handler) replayHistory(ctx context.Context, conn *websocket.Conn, sessionID uuid.UUID) {
	turns, err := h.sessions.Recent(ctx, sessionID, 50)
	if err != nil {
		h.logger.Warn("webchat history replay failed", "error", err, "session_id", sessionID)
		return
	}
	if len(turns) == 0 {
		return
	}
	messages := make([]HistoryMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, HistoryMessage{
			Role:      t.Role,
			Text:      t.Text,
			Timestamp: t.Timestamp.Format(time.RFC3339),
		})
	}
	h.send(conn, OutboundMessage{Type: "history", SessionID: sessionID.String(), Messages: messages})
}

func (h *Handler) send(conn *websocket.Conn, msg OutboundMessage) {
	if err := websocket.JSON.Send(conn, msg); err != nil {
		h.logger.Warn("webchat send failed", "error", err)
	}
}
