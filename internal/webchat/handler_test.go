package webchat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/neoimplant/dental-assistant/internal/chat"
	"github.com/neoimplant/dental-assistant/internal/conversation"
	"github.com/neoimplant/dental-assistant/internal/patients"
	"github.com/neoimplant/dental-assistant/pkg/logging"
)

type mockTokens struct {
	patient *patients.Patient
}

func (m *mockTokens) ParseToken(tokenString string) (uuid.UUID, error) {
	if tokenString != "good-token" {
		return uuid.Nil, errors.New("token signature invalid")
	}
	return m.patient.ID, nil
}

func (m *mockTokens) Patient(_ context.Context, id uuid.UUID) (*patients.Patient, error) {
	if id != m.patient.ID {
		return nil, patients.ErrNotFound
	}
	return m.patient, nil
}

type mockSessions struct {
	sessions map[uuid.UUID]*chat.Session
	turns    map[uuid.UUID][]conversation.Turn
}

func newMockSessions() *mockSessions {
	return &mockSessions{
		sessions: make(map[uuid.UUID]*chat.Session),
		turns:    make(map[uuid.UUID][]conversation.Turn),
	}
}

func (m *mockSessions) CreateSession(_ context.Context, patientID uuid.UUID) (*chat.Session, error) {
	sess := &chat.Session{ID: uuid.New(), PatientID: patientID, Title: "New Chat", CreatedAt: time.Now()}
	m.sessions[sess.ID] = sess
	return sess, nil
}

func (m *mockSessions) GetSession(_ context.Context, id uuid.UUID) (*chat.Session, error) {
	sess, ok := m.sessions[id]
	if !ok {
		return nil, chat.ErrNotFound
	}
	return sess, nil
}

func (m *mockSessions) Recent(_ context.Context, sessionID uuid.UUID, limit int) ([]conversation.Turn, error) {
	turns := m.turns[sessionID]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

type echoAssistant struct{}

func (echoAssistant) Respond(_ context.Context, _ *patients.Patient, _ uuid.UUID, message string) (string, error) {
	return "echo: " + message, nil
}

func testPatient() *patients.Patient {
	return &patients.Patient{ID: uuid.New(), Email: "pat@example.com", FullName: "Pat", Verified: true}
}

func dialWebchat(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func receive(t *testing.T, conn *websocket.Conn) OutboundMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var out OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &out))
	return out
}

func TestServeHTTPRejectsBadToken(t *testing.T) {
	h := NewHandler(&mockTokens{patient: testPatient()}, newMockSessions(), echoAssistant{}, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/ws?token=bad", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebSocketTurn(t *testing.T) {
	patient := testPatient()
	h := NewHandler(&mockTokens{patient: patient}, newMockSessions(), echoAssistant{}, logging.New("error"))
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dialWebchat(t, srv, "token=good-token")

	sess := receive(t, conn)
	assert.Equal(t, "session", sess.Type)
	assert.NotEmpty(t, sess.SessionID)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "hello"}))

	reply := receive(t, conn)
	assert.Equal(t, "message", reply.Type)
	assert.Equal(t, conversation.RoleBot, reply.Role)
	assert.Equal(t, "echo: hello", reply.Text)
	assert.Equal(t, sess.SessionID, reply.SessionID)
}

func TestWebSocketHistoryReplay(t *testing.T) {
	patient := testPatient()
	sessions := newMockSessions()
	sess, err := sessions.CreateSession(context.Background(), patient.ID)
	require.NoError(t, err)
	sessions.turns[sess.ID] = []conversation.Turn{
		{Role: conversation.RoleUser, Text: "hi", Timestamp: time.Now().Add(-time.Minute)},
		{Role: conversation.RoleBot, Text: "hello there", Timestamp: time.Now()},
	}

	h := NewHandler(&mockTokens{patient: patient}, sessions, echoAssistant{}, logging.New("error"))
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dialWebchat(t, srv, "token=good-token&session_id="+sess.ID.String())

	announce := receive(t, conn)
	assert.Equal(t, "session", announce.Type)
	assert.Equal(t, sess.ID.String(), announce.SessionID)

	history := receive(t, conn)
	assert.Equal(t, "history", history.Type)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, conversation.RoleUser, history.Messages[0].Role)
	assert.Equal(t, "hi", history.Messages[0].Text)
	assert.Equal(t, "hello there", history.Messages[1].Text)
}

func TestWebSocketForeignSessionGetsFreshOne(t *testing.T) {
	patient := testPatient()
	sessions := newMockSessions()
	other, err := sessions.CreateSession(context.Background(), uuid.New())
	require.NoError(t, err)

	h := NewHandler(&mockTokens{patient: patient}, sessions, echoAssistant{}, logging.New("error"))
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dialWebchat(t, srv, "token=good-token&session_id="+other.ID.String())

	announce := receive(t, conn)
	assert.Equal(t, "session", announce.Type)
	assert.NotEqual(t, other.ID.String(), announce.SessionID)
}

func TestWebSocketPing(t *testing.T) {
	h := NewHandler(&mockTokens{patient: testPatient()}, newMockSessions(), echoAssistant{}, logging.New("error"))
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dialWebchat(t, srv, "token=good-token")
	receive(t, conn) // session announce

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	pong := receive(t, conn)
	assert.Equal(t, "pong", pong.Type)
}
