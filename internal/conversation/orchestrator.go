package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neoimplant/dental-assistant/internal/appointments"
	"github.com/neoimplant/dental-assistant/internal/clinic"
	"github.com/neoimplant/dental-assistant/internal/observability/metrics"
	"github.com/neoimplant/dental-assistant/internal/patients"
)

// ConversationStore is the durable, append-only turn log.
type ConversationStore interface {
	AppendTurn(ctx context.Context, sessionID uuid.UUID, turn Turn) error
	Recent(ctx context.Context, sessionID uuid.UUID, limit int) ([]Turn, error)
	SetTitle(ctx context.Context, sessionID uuid.UUID, title string) error
}

// AppointmentStore commits and lists appointments. Create must perform its
// own conflict check atomically and return appointments.ErrConflict on a
// duplicate slot.
type AppointmentStore interface {
	ListUpcoming(ctx context.Context, patientID uuid.UUID) ([]appointments.Appointment, error)
	ExistsConflict(ctx context.Context, patientID uuid.UUID, date, timeOfDay string) (bool, error)
	Create(ctx context.Context, appt appointments.Appointment) (*appointments.Appointment, error)
}

// PatientStore covers the orchestrator's two patient-side effects: name
// learning and clinical-context lookup for the responder.
type PatientStore interface {
	SetFullName(ctx context.Context, id uuid.UUID, name string) error
	GetClinicalInfo(ctx context.Context, id uuid.UUID) (*patients.ClinicalInfo, error)
}

// KnowledgeResponder generates free-form replies. Implementations absorb
// their own failures and always return usable text.
type KnowledgeResponder interface {
	Answer(ctx context.Context, patient PatientContext, message string, history []Turn) string
	FallbackReply() string
}

// SessionTitler names a session from its opening message.
type SessionTitler interface {
	Title(ctx context.Context, firstMessage string) string
}

// ConfirmationMailer sends the booking confirmation. Called fire-and-forget;
// a send failure never rolls back the committed appointment.
type ConfirmationMailer interface {
	SendConfirmation(ctx context.Context, email, name string, booking BookingRecord) error
}

// Orchestrator drives one assistant turn: learn the patient's name, classify
// the message, follow the query, booking, or chat path, and append both
// turns to the log. All conversation state is recomputed from the stored
// history each turn.
type Orchestrator struct {
	validator *clinic.Validator
	turns     ConversationStore
	appts     AppointmentStore
	patients  PatientStore
	responder KnowledgeResponder
	titler    SessionTitler
	mailer    ConfirmationMailer
	metrics   *metrics.ChatMetrics
	logger    *slog.Logger

	historyLimit int
	clinicPhone  string
}

// OrchestratorConfig wires the orchestrator's collaborators. Titler, mailer,
// and metrics are optional.
type OrchestratorConfig struct {
	Validator    *clinic.Validator
	Turns        ConversationStore
	Appointments AppointmentStore
	Patients     PatientStore
	Responder    KnowledgeResponder
	Titler       SessionTitler
	Mailer       ConfirmationMailer
	Metrics      *metrics.ChatMetrics
	Logger       *slog.Logger
	HistoryLimit int
	ClinicPhone  string
}

func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Validator == nil {
		panic("conversation: validator required")
	}
	if cfg.Turns == nil {
		panic("conversation: conversation store required")
	}
	if cfg.Appointments == nil {
		panic("conversation: appointment store required")
	}
	if cfg.Patients == nil {
		panic("conversation: patient store required")
	}
	if cfg.Responder == nil {
		panic("conversation: responder required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	return &Orchestrator{
		validator:    cfg.Validator,
		turns:        cfg.Turns,
		appts:        cfg.Appointments,
		patients:     cfg.Patients,
		responder:    cfg.Responder,
		titler:       cfg.Titler,
		mailer:       cfg.Mailer,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		historyLimit: cfg.HistoryLimit,
		clinicPhone:  cfg.ClinicPhone,
	}
}

// Respond handles one user message and returns the bot reply. Both turns
// are appended to the session log before returning.
func (o *Orchestrator) Respond(ctx context.Context, patient *patients.Patient, sessionID uuid.UUID, message string) (string, error) {
	started := time.Now()

	history, err := o.turns.Recent(ctx, sessionID, o.historyLimit)
	if err != nil {
		return "", fmt.Errorf("conversation: load history: %w", err)
	}

	if len(history) == 0 && o.titler != nil {
		title := o.titler.Title(ctx, message)
		if err := o.turns.SetTitle(ctx, sessionID, title); err != nil {
			o.logger.Warn("set session title failed", "error", err.Error())
		}
	}

	o.learnName(ctx, patient, message)

	slots := Accumulate(message, history)
	intent := Classify(message, slots)

	var reply string
	switch intent {
	case IntentQuery:
		reply, err = o.queryReply(ctx, patient)
		if err != nil {
			return "", err
		}
	case IntentBookingAttempt:
		reply = o.bookingReply(ctx, patient, message, history, slots)
	default:
		reply = o.chatReply(ctx, patient, message, history)
	}

	now := time.Now()
	if err := o.turns.AppendTurn(ctx, sessionID, Turn{Role: RoleUser, Text: message, Timestamp: now}); err != nil {
		return "", fmt.Errorf("conversation: append user turn: %w", err)
	}
	if err := o.turns.AppendTurn(ctx, sessionID, Turn{Role: RoleBot, Text: reply, Timestamp: now}); err != nil {
		return "", fmt.Errorf("conversation: append bot turn: %w", err)
	}

	o.metrics.ObserveTurn(string(intent), time.Since(started).Seconds())
	return reply, nil
}

// learnName runs once per turn, before response generation, so the reply
// can already address the patient by name.
func (o *Orchestrator) learnName(ctx context.Context, patient *patients.Patient, message string) {
	if strings.TrimSpace(patient.FullName) != "" {
		return
	}
	name, ok := ExtractName(message)
	if !ok {
		return
	}
	if err := o.patients.SetFullName(ctx, patient.ID, name); err != nil {
		o.logger.Warn("persist learned name failed", "error", err.Error())
		return
	}
	patient.FullName = name
}

func (o *Orchestrator) queryReply(ctx context.Context, patient *patients.Patient) (string, error) {
	appts, err := o.appts.ListUpcoming(ctx, patient.ID)
	if err != nil {
		return "", fmt.Errorf("conversation: list appointments: %w", err)
	}
	return formatUpcoming(appts), nil
}

func (o *Orchestrator) bookingReply(ctx context.Context, patient *patients.Patient, message string, history []Turn, slots BookingRecord) string {
	// Completeness strictly before validation: a partial record is handed
	// back to the responder to ask for what is missing, never validated.
	if !slots.Complete() {
		return o.chatReply(ctx, patient, message, history)
	}

	var verr *clinic.ValidationError
	if err := o.validator.ValidateDate(slots.Date); errors.As(err, &verr) {
		o.metrics.ObserveRejection(string(verr.Kind))
		return verr.Message
	}
	if err := o.validator.ValidateTime(slots.Time, slots.Date); errors.As(err, &verr) {
		o.metrics.ObserveRejection(string(verr.Kind))
		return verr.Message
	}

	conflict, err := o.appts.ExistsConflict(ctx, patient.ID, slots.Date, slots.Time)
	if err != nil {
		o.logger.Error("conflict check failed", "error", err.Error())
		return o.commitFailureReply(err)
	}
	if conflict {
		o.metrics.ObserveBooking("conflict")
		return "You already have an appointment at this time. Please choose a different slot."
	}

	_, err = o.appts.Create(ctx, appointments.Appointment{
		PatientID: patient.ID,
		Branch:    slots.Branch,
		Dentist:   slots.Dentist,
		Treatment: slots.Treatment,
		Date:      slots.Date,
		Time:      slots.Time,
	})
	if errors.Is(err, appointments.ErrConflict) {
		o.metrics.ObserveBooking("conflict")
		return "You already have an appointment at this time. Please choose a different slot."
	}
	if err != nil {
		o.metrics.ObserveBooking("failed")
		o.logger.Error("appointment commit failed", "error", err.Error())
		return o.commitFailureReply(err)
	}
	o.metrics.ObserveBooking("created")

	name := strings.TrimSpace(patient.FullName)
	if name == "" {
		name = "Patient"
	}
	o.sendConfirmation(ctx, patient.Email, name, slots)

	return fmt.Sprintf(`Perfect! Your appointment is confirmed.

Dear %s, a confirmation email has been sent to %s.

Date: %s
Time: %s
Branch: %s
Dentist: %s
Treatment: %s

Please arrive 10 minutes early. See you soon!`,
		name, patient.Email, slots.Date, slots.Time, slots.Branch, slots.Dentist, slots.Treatment)
}

func (o *Orchestrator) chatReply(ctx context.Context, patient *patients.Patient, message string, history []Turn) string {
	pctx := PatientContext{Name: patient.FullName}
	if info, err := o.patients.GetClinicalInfo(ctx, patient.ID); err == nil && info != nil {
		pctx.Allergies = info.Allergies
		pctx.Conditions = info.Conditions
	} else if err != nil && !errors.Is(err, patients.ErrNotFound) {
		o.logger.Warn("clinical info lookup failed", "error", err.Error())
	}

	reply := o.responder.Answer(ctx, pctx, message, history)
	if reply == o.responder.FallbackReply() {
		o.metrics.ObserveLLMFallback()
	}
	return reply
}

func (o *Orchestrator) commitFailureReply(err error) string {
	return fmt.Sprintf("There was an issue creating your appointment: %v. Please contact us at %s.", err, o.clinicPhone)
}

// sendConfirmation runs detached from the request so a slow mail provider
// never delays the reply, and a failure never undoes the commit.
func (o *Orchestrator) sendConfirmation(ctx context.Context, email, name string, booking BookingRecord) {
	if o.mailer == nil {
		return
	}
	sendCtx := context.WithoutCancel(ctx)
	go func() {
		if err := o.mailer.SendConfirmation(sendCtx, email, name, booking); err != nil {
			o.logger.Error("confirmation email failed", "error", err.Error(), "email", email)
		}
	}()
}

// formatUpcoming renders the appointment list reply.
func formatUpcoming(appts []appointments.Appointment) string {
	if len(appts) == 0 {
		return "You don't have any upcoming appointments scheduled. Would you like to book one?"
	}

	plural := ""
	if len(appts) > 1 {
		plural = "s"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You have %d upcoming appointment%s:\n\n", len(appts), plural)

	for i, appt := range appts {
		fmt.Fprintf(&b, "Appointment %d:\n", i+1)
		if day, err := time.Parse(dateLayout, appt.Date); err == nil {
			fmt.Fprintf(&b, "Date: %s (%s)\n", day.Format("January 02, 2006"), day.Weekday())
		} else {
			fmt.Fprintf(&b, "Date: %s\n", appt.Date)
		}
		if at, err := time.Parse("15:04", appt.Time); err == nil {
			fmt.Fprintf(&b, "Time: %s\n", at.Format("03:04 PM"))
		} else {
			fmt.Fprintf(&b, "Time: %s\n", appt.Time)
		}
		fmt.Fprintf(&b, "Branch: %s\n", appt.Branch)
		fmt.Fprintf(&b, "Dentist: %s\n", appt.Dentist)
		fmt.Fprintf(&b, "Treatment: %s\n", appt.Treatment)
		fmt.Fprintf(&b, "Status: %s\n", capitalizeWords(appt.Status))

		if i < len(appts)-1 {
			b.WriteString("\n---\n\n")
		}
	}
	b.WriteString("\nIf you need to reschedule or cancel any appointment, please let me know!")
	return b.String()
}
