package patients

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestStoreCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	mock.ExpectQuery("INSERT INTO patients").
		WithArgs(pgxmock.AnyArg(), "ali@example.com", "hashed").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	p, err := store.Create(context.Background(), "ali@example.com", "hashed")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Email != "ali@example.com" || p.ID == uuid.Nil {
		t.Errorf("unexpected patient: %+v", p)
	}
}

func TestStoreGetByEmailNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	mock.ExpectQuery("SELECT id, email").
		WithArgs("missing@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "full_name", "password_hash", "verified", "created_at"}))

	if _, err := store.GetByEmail(context.Background(), "missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStoreSetFullName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	id := uuid.New()
	mock.ExpectExec("UPDATE patients SET full_name").
		WithArgs(id, "Ali Raza").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := store.SetFullName(context.Background(), id, "Ali Raza"); err != nil {
		t.Fatalf("set full name: %v", err)
	}

	// Empty name is a no-op, no Exec expected.
	if err := store.SetFullName(context.Background(), id, ""); err != nil {
		t.Fatalf("empty name: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestStoreVerify(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := &Store{pool: mock}
	id := uuid.New()

	mock.ExpectExec("UPDATE patients").
		WithArgs(id, "123456").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := store.Verify(context.Background(), id, "123456")
	if err != nil || !ok {
		t.Fatalf("verify = %v, %v; want true, nil", ok, err)
	}

	mock.ExpectExec("UPDATE patients").
		WithArgs(id, "000000").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	ok, err = store.Verify(context.Background(), id, "000000")
	if err != nil || ok {
		t.Fatalf("verify wrong code = %v, %v; want false, nil", ok, err)
	}
}
