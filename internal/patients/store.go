// Package patients persists patient accounts and their clinical profiles.
package patients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when no patient matches the lookup.
var ErrNotFound = errors.New("patients: not found")

// Patient is a registered user of the assistant.
type Patient struct {
	ID           uuid.UUID
	Email        string
	FullName     string
	PasswordHash string
	Verified     bool
	CreatedAt    time.Time
}

// ClinicalInfo holds the optional medical profile attached to a patient.
type ClinicalInfo struct {
	PatientID  uuid.UUID
	Allergies  string
	Conditions string
	Notes      string
	UpdatedAt  time.Time
}

type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists patients in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &Store{pool: pool}
}

// Create inserts a new unverified patient account.
func (s *Store) Create(ctx context.Context, email, passwordHash string) (*Patient, error) {
	p := &Patient{ID: uuid.New(), Email: email, PasswordHash: passwordHash}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO patients (id, email, password_hash, verified)
		VALUES ($1, $2, $3, FALSE)
		RETURNING created_at
	`, p.ID, p.Email, p.PasswordHash).Scan(&p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("patients: create: %w", err)
	}
	return p, nil
}

// GetByEmail loads a patient by email, ErrNotFound when absent.
func (s *Store) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	return s.get(ctx, `
		SELECT id, email, COALESCE(full_name, ''), password_hash, verified, created_at
		FROM patients WHERE email = $1
	`, email)
}

// GetByID loads a patient by id, ErrNotFound when absent.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.get(ctx, `
		SELECT id, email, COALESCE(full_name, ''), password_hash, verified, created_at
		FROM patients WHERE id = $1
	`, id)
}

func (s *Store) get(ctx context.Context, query string, arg any) (*Patient, error) {
	var p Patient
	err := s.pool.QueryRow(ctx, query, arg).Scan(&p.ID, &p.Email, &p.FullName, &p.PasswordHash, &p.Verified, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patients: load: %w", err)
	}
	return &p, nil
}

// SetFullName records a name learned from conversation. Empty names are
// ignored so a bad extraction never erases a known name.
func (s *Store) SetFullName(ctx context.Context, id uuid.UUID, name string) error {
	if name == "" {
		return nil
	}
	_, err := s.pool.Exec(ctx, `UPDATE patients SET full_name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("patients: set full name: %w", err)
	}
	return nil
}

// SetVerificationCode stores a pending email verification code.
func (s *Store) SetVerificationCode(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE patients SET verification_code = $2, verification_expires_at = $3
		WHERE id = $1
	`, id, code, expiresAt)
	if err != nil {
		return fmt.Errorf("patients: set verification code: %w", err)
	}
	return nil
}

// Verify marks the patient verified when the code matches and has not
// expired. Returns false without error on a wrong or stale code.
func (s *Store) Verify(ctx context.Context, id uuid.UUID, code string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE patients
		SET verified = TRUE, verification_code = NULL, verification_expires_at = NULL
		WHERE id = $1 AND verification_code = $2 AND verification_expires_at > now()
	`, id, code)
	if err != nil {
		return false, fmt.Errorf("patients: verify: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetClinicalInfo loads the clinical profile, ErrNotFound when never filled.
func (s *Store) GetClinicalInfo(ctx context.Context, id uuid.UUID) (*ClinicalInfo, error) {
	var info ClinicalInfo
	err := s.pool.QueryRow(ctx, `
		SELECT patient_id, COALESCE(allergies, ''), COALESCE(conditions, ''), COALESCE(notes, ''), updated_at
		FROM patient_clinical_info WHERE patient_id = $1
	`, id).Scan(&info.PatientID, &info.Allergies, &info.Conditions, &info.Notes, &info.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patients: load clinical info: %w", err)
	}
	return &info, nil
}

// UpsertClinicalInfo creates or replaces the clinical profile.
func (s *Store) UpsertClinicalInfo(ctx context.Context, info ClinicalInfo) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO patient_clinical_info (patient_id, allergies, conditions, notes, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (patient_id)
		DO UPDATE SET allergies = EXCLUDED.allergies,
			conditions = EXCLUDED.conditions,
			notes = EXCLUDED.notes,
			updated_at = now()
	`, info.PatientID, info.Allergies, info.Conditions, info.Notes)
	if err != nil {
		return fmt.Errorf("patients: upsert clinical info: %w", err)
	}
	return nil
}
