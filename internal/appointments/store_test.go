package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestStoreListUpcoming(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	patientID := uuid.New()
	mock.ExpectQuery("SELECT").
		WithArgs(patientID, StatusScheduled).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_id", "branch", "dentist", "treatment", "date", "time", "status", "created_at",
		}).
			AddRow(uuid.New(), patientID, "NeoImplant - DHA", "Dr. Fatima Khan", "Scaling and Polishing", "2025-11-10", "14:00", StatusScheduled, time.Now()).
			AddRow(uuid.New(), patientID, "NeoImplant - Clifton", "Dr. Ahmed Raza", "Dental Filling", "2025-11-12", "11:00", StatusScheduled, time.Now()))

	appts, err := store.ListUpcoming(context.Background(), patientID)
	if err != nil {
		t.Fatalf("list upcoming: %v", err)
	}
	if len(appts) != 2 {
		t.Fatalf("got %d appointments, want 2", len(appts))
	}
	if appts[0].Date != "2025-11-10" || appts[0].Time != "14:00" {
		t.Errorf("first appointment = %+v", appts[0])
	}
}

func TestStoreExistsConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	patientID := uuid.New()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(patientID, StatusScheduled, "2025-11-10", "14:00").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	got, err := store.ExistsConflict(context.Background(), patientID, "2025-11-10", "14:00")
	if err != nil {
		t.Fatalf("conflict check: %v", err)
	}
	if !got {
		t.Error("expected conflict")
	}
}

func TestStoreCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	patientID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs(patientID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(patientID, StatusScheduled, "2025-11-10", "14:00").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), patientID, "NeoImplant - DHA", "Dr. Fatima Khan", "Scaling and Polishing", "2025-11-10", "14:00", StatusScheduled).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	appt, err := store.Create(context.Background(), Appointment{
		PatientID: patientID,
		Branch:    "NeoImplant - DHA",
		Dentist:   "Dr. Fatima Khan",
		Treatment: "Scaling and Polishing",
		Date:      "2025-11-10",
		Time:      "14:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if appt.Status != StatusScheduled || appt.ID == uuid.Nil {
		t.Errorf("unexpected appointment: %+v", appt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestStoreCreateConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	patientID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs(patientID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(patientID, StatusScheduled, "2025-11-10", "14:00").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err = store.Create(context.Background(), Appointment{
		PatientID: patientID,
		Date:      "2025-11-10",
		Time:      "14:00",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

// Conflicts are scoped to the patient: a second patient may book the slot
// another patient already holds.
func TestStoreCreateSameSlotDifferentPatient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	otherPatientID := uuid.New()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(otherPatientID, StatusScheduled, "2025-11-10", "14:00").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	got, err := store.ExistsConflict(context.Background(), otherPatientID, "2025-11-10", "14:00")
	if err != nil {
		t.Fatalf("conflict check: %v", err)
	}
	if got {
		t.Error("slot held by another patient must not conflict")
	}

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs(otherPatientID).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(otherPatientID, StatusScheduled, "2025-11-10", "14:00").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), otherPatientID, "NeoImplant - Clifton", "Dr. Ahmed Raza", "Teeth Whitening", "2025-11-10", "14:00", StatusScheduled).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	appt, err := store.Create(context.Background(), Appointment{
		PatientID: otherPatientID,
		Branch:    "NeoImplant - Clifton",
		Dentist:   "Dr. Ahmed Raza",
		Treatment: "Teeth Whitening",
		Date:      "2025-11-10",
		Time:      "14:00",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if appt.Status != StatusScheduled {
		t.Errorf("unexpected appointment: %+v", appt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
