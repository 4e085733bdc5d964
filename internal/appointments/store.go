// Package appointments persists booked appointments and enforces the
// one-appointment-per-slot rule at commit time.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// StatusScheduled is the only status this core creates; cancellation and
// completion are handled elsewhere.
const StatusScheduled = "scheduled"

// ErrConflict is returned by Create when the patient already holds a
// scheduled appointment at the same date and time.
var ErrConflict = errors.New("appointments: slot already booked")

// Appointment is one committed booking. Date is "YYYY-MM-DD" and Time is
// "HH:MM" in clinic-local time.
type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	Branch    string
	Dentist   string
	Treatment string
	Date      string
	Time      string
	Status    string
	CreatedAt time.Time
}

type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists appointments in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Store{pool: pool}
}

const selectColumns = `
	id, patient_id, branch, dentist, treatment,
	to_char(appointment_date, 'YYYY-MM-DD'),
	to_char(appointment_time, 'HH24:MI'),
	status, created_at
`

// ListUpcoming returns the patient's scheduled appointments from today
// onward, ordered by date then time.
func (s *Store) ListUpcoming(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+selectColumns+`
		FROM appointments
		WHERE patient_id = $1 AND status = $2 AND appointment_date >= CURRENT_DATE
		ORDER BY appointment_date, appointment_time
	`, patientID, StatusScheduled)
	if err != nil {
		return nil, fmt.Errorf("appointments: list upcoming: %w", err)
	}
	defer rows.Close()

	var appts []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.Branch, &a.Dentist, &a.Treatment, &a.Date, &a.Time, &a.Status, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		appts = append(appts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list upcoming: %w", err)
	}
	return appts, nil
}

// ExistsConflict reports whether the patient already holds a scheduled
// appointment at exactly (date, time). Conflicts never cross patients.
func (s *Store) ExistsConflict(ctx context.Context, patientID uuid.UUID, date, timeOfDay string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE patient_id = $1 AND status = $2
				AND appointment_date = $3::date AND appointment_time = $4::time
		)
	`, patientID, StatusScheduled, date, timeOfDay).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("appointments: conflict check: %w", err)
	}
	return exists, nil
}

// Create inserts a new scheduled appointment. The conflict check and the
// insert run in one transaction under a per-patient advisory lock so two
// concurrent commits for the same patient cannot both pass the check.
func (s *Store) Create(ctx context.Context, appt Appointment) (*Appointment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text))`, appt.PatientID); err != nil {
		return nil, fmt.Errorf("appointments: acquire lock: %w", err)
	}

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE patient_id = $1 AND status = $2
				AND appointment_date = $3::date AND appointment_time = $4::time
		)
	`, appt.PatientID, StatusScheduled, appt.Date, appt.Time).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("appointments: conflict check: %w", err)
	}
	if exists {
		return nil, ErrConflict
	}

	appt.ID = uuid.New()
	appt.Status = StatusScheduled
	err = tx.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, branch, dentist, treatment, appointment_date, appointment_time, status)
		VALUES ($1, $2, $3, $4, $5, $6::date, $7::time, $8)
		RETURNING created_at
	`, appt.ID, appt.PatientID, appt.Branch, appt.Dentist, appt.Treatment, appt.Date, appt.Time, appt.Status).Scan(&appt.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("appointments: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("appointments: commit: %w", err)
	}
	return &appt, nil
}
