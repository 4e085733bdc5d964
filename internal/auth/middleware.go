package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/neoimplant/dental-assistant/internal/patients"
)

type contextKey string

const patientKey contextKey = "patient"

// Middleware enforces a Bearer session token and loads the patient into the
// request context.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}
		id, err := s.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		patient, err := s.Patient(r.Context(), id)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), patientKey, patient)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ContextWithPatient returns ctx carrying the patient the way Middleware
// does. Intended for transports that authenticate out of band and for tests.
func ContextWithPatient(ctx context.Context, p *patients.Patient) context.Context {
	return context.WithValue(ctx, patientKey, p)
}

// PatientFromContext returns the authenticated patient if present.
func PatientFromContext(ctx context.Context) (*patients.Patient, bool) {
	p, ok := ctx.Value(patientKey).(*patients.Patient)
	return p, ok
}
