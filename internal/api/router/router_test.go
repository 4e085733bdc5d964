package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/neoimplant/dental-assistant/internal/auth"
	"github.com/neoimplant/dental-assistant/internal/chat"
	"github.com/neoimplant/dental-assistant/internal/patients"
	"github.com/neoimplant/dental-assistant/pkg/logging"
)

type stubAccounts struct{}

func (stubAccounts) Create(context.Context, string, string) (*patients.Patient, error) {
	return nil, patients.ErrNotFound
}

func (stubAccounts) GetByEmail(context.Context, string) (*patients.Patient, error) {
	return nil, patients.ErrNotFound
}

func (stubAccounts) GetByID(context.Context, uuid.UUID) (*patients.Patient, error) {
	return nil, patients.ErrNotFound
}

func (stubAccounts) SetVerificationCode(context.Context, uuid.UUID, string, time.Time) error {
	return nil
}

func (stubAccounts) Verify(context.Context, uuid.UUID, string) (bool, error) {
	return false, nil
}

type stubAssistant struct{}

func (stubAssistant) Respond(_ context.Context, _ *patients.Patient, _ uuid.UUID, message string) (string, error) {
	return message, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.New("error")
	pool, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(pool.Close)

	authService := auth.NewService(stubAccounts{}, nil, auth.Config{JWTSecret: "test-secret"}, logger)
	cfg := &Config{
		Logger:      logger,
		AuthService: authService,
		AuthHandler: auth.NewHandler(authService, logger),
		ChatHandler: chat.NewHandler(chat.NewStore(pool), stubAssistant{}, logger),
	}
	return New(cfg)
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterChatRequiresToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/chat/sessions", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestRouterChatRejectsGarbageToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/chat/sessions", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestRouterCORSHeaders(t *testing.T) {
	logger := logging.New("error")
	cfg := &Config{
		Logger:             logger,
		CORSAllowedOrigins: []string{"https://app.example.com"},
	}
	router := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("expected origin echoed back, got %q", got)
	}
}
