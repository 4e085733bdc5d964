package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/neoimplant/dental-assistant/pkg/logging"
)

// Handler exposes registration, verification, and login endpoints.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("auth: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes returns the auth sub-router. All routes are public.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/verify", h.Verify)
	r.Post("/login", h.Login)
	return r
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account and sends a verification code.
// POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		http.Error(w, `{"error": "email and password required"}`, http.StatusBadRequest)
		return
	}

	patient, err := h.service.Register(r.Context(), req.Email, req.Password)
	if errors.Is(err, ErrEmailTaken) {
		http.Error(w, `{"error": "email already registered"}`, http.StatusConflict)
		return
	}
	if err != nil {
		h.logger.Error("register failed", "error", err, "email", req.Email)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": patient.ID, "email": patient.Email})
}

type verifyRequest struct {
	ID   uuid.UUID `json:"id"`
	Code string    `json:"code"`
}

// Verify consumes an emailed verification code.
// POST /auth/verify
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == uuid.Nil || req.Code == "" {
		http.Error(w, `{"error": "id and code required"}`, http.StatusBadRequest)
		return
	}

	err := h.service.VerifyEmail(r.Context(), req.ID, req.Code)
	if errors.Is(err, ErrInvalidCode) {
		http.Error(w, `{"error": "wrong or expired code"}`, http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		h.logger.Error("verify failed", "error", err, "patient_id", req.ID)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login returns a session token.
// POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		http.Error(w, `{"error": "email and password required"}`, http.StatusBadRequest)
		return
	}

	token, patient, err := h.service.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		http.Error(w, `{"error": "invalid email or password"}`, http.StatusUnauthorized)
		return
	case errors.Is(err, ErrNotVerified):
		http.Error(w, `{"error": "email not verified"}`, http.StatusForbidden)
		return
	case err != nil:
		h.logger.Error("login failed", "error", err, "email", req.Email)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"id":        patient.ID,
		"email":     patient.Email,
		"full_name": patient.FullName,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
