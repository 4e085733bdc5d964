// Package auth handles patient registration, login, and email verification.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/neoimplant/dental-assistant/internal/patients"
	"github.com/neoimplant/dental-assistant/pkg/logging"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrNotVerified        = errors.New("auth: email not verified")
	ErrInvalidCode        = errors.New("auth: wrong or expired verification code")
	ErrInvalidToken       = errors.New("auth: invalid token")
)

// PatientAccounts is the slice of the patient store the service needs.
type PatientAccounts interface {
	Create(ctx context.Context, email, passwordHash string) (*patients.Patient, error)
	GetByEmail(ctx context.Context, email string) (*patients.Patient, error)
	GetByID(ctx context.Context, id uuid.UUID) (*patients.Patient, error)
	SetVerificationCode(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error
	Verify(ctx context.Context, id uuid.UUID, code string) (bool, error)
}

// CodeMailer delivers verification codes.
type CodeMailer interface {
	SendVerificationCode(ctx context.Context, email, code string, ttlMinutes int) error
}

// Service issues verification codes on signup and HMAC-signed JWTs on login.
type Service struct {
	store    PatientAccounts
	mailer   CodeMailer
	secret   []byte
	tokenTTL time.Duration
	codeTTL  time.Duration
	logger   *logging.Logger
}

type Config struct {
	JWTSecret           string
	TokenTTL            time.Duration
	VerificationCodeTTL time.Duration
}

func NewService(store PatientAccounts, mailer CodeMailer, cfg Config, logger *logging.Logger) *Service {
	if store == nil {
		panic("auth: patient store required")
	}
	if cfg.JWTSecret == "" {
		panic("auth: jwt secret required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.VerificationCodeTTL <= 0 {
		cfg.VerificationCodeTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:    store,
		mailer:   mailer,
		secret:   []byte(cfg.JWTSecret),
		tokenTTL: cfg.TokenTTL,
		codeTTL:  cfg.VerificationCodeTTL,
		logger:   logger,
	}
}

// Register creates an unverified account and emails a verification code.
func (s *Service) Register(ctx context.Context, email, password string) (*patients.Patient, error) {
	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, patients.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	patient, err := s.store.Create(ctx, email, string(hash))
	if err != nil {
		return nil, err
	}

	code, err := newVerificationCode()
	if err != nil {
		return nil, err
	}
	if err := s.store.SetVerificationCode(ctx, patient.ID, code, time.Now().Add(s.codeTTL)); err != nil {
		return nil, err
	}
	if s.mailer != nil {
		if err := s.mailer.SendVerificationCode(ctx, email, code, int(s.codeTTL.Minutes())); err != nil {
			s.logger.Error("verification email failed", "error", err, "email", email)
		}
	}
	return patient, nil
}

// VerifyEmail consumes a verification code.
func (s *Service) VerifyEmail(ctx context.Context, id uuid.UUID, code string) error {
	ok, err := s.store.Verify(ctx, id, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}
	return nil
}

// Login checks credentials and returns a signed session token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *patients.Patient, error) {
	patient, err := s.store.GetByEmail(ctx, email)
	if errors.Is(err, patients.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(patient.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}
	if !patient.Verified {
		return "", nil, ErrNotVerified
	}

	token, err := s.issueToken(patient.ID)
	if err != nil {
		return "", nil, err
	}
	return token, patient, nil
}

func (s *Service) issueToken(patientID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   patientID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return token, nil
}

// ParseToken validates a session token and returns the patient id.
func (s *Service) ParseToken(tokenString string) (uuid.UUID, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

// Patient loads the account behind a parsed token.
func (s *Service) Patient(ctx context.Context, id uuid.UUID) (*patients.Patient, error) {
	return s.store.GetByID(ctx, id)
}

func newVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("auth: generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
