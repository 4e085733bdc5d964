package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/neoimplant/dental-assistant/internal/conversation"
	"github.com/neoimplant/dental-assistant/pkg/logging"
)

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`
<html>
<body style="font-family: Arial, sans-serif; padding: 20px; background-color: #f4f4f4;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 30px; border-radius: 10px;">
        <h2 style="color: #5B9FED; text-align: center;">&#129463; Appointment Confirmed</h2>
        <p style="font-size: 16px;">Dear <strong>{{.Name}}</strong>,</p>
        <p>Your appointment has been successfully scheduled at <strong>{{.Clinic}}</strong>.</p>

        <div style="background-color: #f8f9fa; padding: 20px; border-radius: 8px; margin: 20px 0;">
            <h3 style="color: #333; margin-top: 0;">Appointment Details:</h3>
            <table style="width: 100%; border-collapse: collapse;">
                <tr>
                    <td style="padding: 8px 0; color: #666;"><strong>Date:</strong></td>
                    <td style="padding: 8px 0; color: #333;">{{.Booking.Date}}</td>
                </tr>
                <tr>
                    <td style="padding: 8px 0; color: #666;"><strong>Time:</strong></td>
                    <td style="padding: 8px 0; color: #333;">{{.Booking.Time}}</td>
                </tr>
                <tr>
                    <td style="padding: 8px 0; color: #666;"><strong>Branch:</strong></td>
                    <td style="padding: 8px 0; color: #333;">{{.Booking.Branch}}</td>
                </tr>
                <tr>
                    <td style="padding: 8px 0; color: #666;"><strong>Dentist:</strong></td>
                    <td style="padding: 8px 0; color: #333;">{{.Booking.Dentist}}</td>
                </tr>
                <tr>
                    <td style="padding: 8px 0; color: #666;"><strong>Treatment:</strong></td>
                    <td style="padding: 8px 0; color: #333;">{{.Booking.Treatment}}</td>
                </tr>
            </table>
        </div>

        <p style="font-size: 14px; color: #666;">Please arrive 10 minutes before your scheduled time.</p>
        <p style="font-size: 14px; color: #666;">If you need to reschedule, please contact us at least 24 hours in advance.</p>

        <div style="text-align: center; margin-top: 30px; padding-top: 20px; border-top: 1px solid #e0e0e0;">
            <p style="color: #666; font-size: 13px;">{{.Clinic}}</p>
            <p style="color: #666; font-size: 13px;">Contact: {{.Phone}}</p>
        </div>
    </div>
</body>
</html>
`))

var verificationTmpl = template.Must(template.New("verification").Parse(`
<html>
<body style="font-family: Arial, sans-serif; padding: 20px; background-color: #f4f4f4;">
    <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 30px; border-radius: 10px;">
        <h2 style="color: #5B9FED; text-align: center;">Verify your email</h2>
        <p style="font-size: 16px;">Your verification code is:</p>
        <p style="font-size: 32px; text-align: center; letter-spacing: 6px;"><strong>{{.Code}}</strong></p>
        <p style="font-size: 14px; color: #666;">The code expires in {{.TTLMinutes}} minutes. If you did not request it, ignore this email.</p>
        <div style="text-align: center; margin-top: 30px; padding-top: 20px; border-top: 1px solid #e0e0e0;">
            <p style="color: #666; font-size: 13px;">{{.Clinic}}</p>
            <p style="color: #666; font-size: 13px;">Contact: {{.Phone}}</p>
        </div>
    </div>
</body>
</html>
`))

// Service renders and sends the assistant's transactional emails.
type Service struct {
	sender      EmailSender
	clinicName  string
	clinicPhone string
	logger      *logging.Logger
}

func NewService(sender EmailSender, clinicName, clinicPhone string, logger *logging.Logger) *Service {
	if sender == nil {
		panic("notify: email sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{sender: sender, clinicName: clinicName, clinicPhone: clinicPhone, logger: logger}
}

// SendConfirmation emails the booking summary to the patient.
func (s *Service) SendConfirmation(ctx context.Context, email, name string, booking conversation.BookingRecord) error {
	var html bytes.Buffer
	err := confirmationTmpl.Execute(&html, struct {
		Name, Clinic, Phone string
		Booking             conversation.BookingRecord
	}{Name: name, Clinic: s.clinicName, Phone: s.clinicPhone, Booking: booking})
	if err != nil {
		return fmt.Errorf("notify: render confirmation: %w", err)
	}

	body := fmt.Sprintf("Dear %s, your appointment at %s is confirmed.\nDate: %s\nTime: %s\nBranch: %s\nDentist: %s\nTreatment: %s\n",
		name, s.clinicName, booking.Date, booking.Time, booking.Branch, booking.Dentist, booking.Treatment)

	return s.sender.Send(ctx, EmailMessage{
		To:      email,
		ToName:  name,
		Subject: fmt.Sprintf("Appointment Confirmation - %s", s.clinicName),
		Body:    body,
		HTML:    html.String(),
	})
}

// SendVerificationCode emails a signup verification code.
func (s *Service) SendVerificationCode(ctx context.Context, email, code string, ttlMinutes int) error {
	var html bytes.Buffer
	err := verificationTmpl.Execute(&html, struct {
		Code, Clinic, Phone string
		TTLMinutes          int
	}{Code: code, Clinic: s.clinicName, Phone: s.clinicPhone, TTLMinutes: ttlMinutes})
	if err != nil {
		return fmt.Errorf("notify: render verification: %w", err)
	}

	return s.sender.Send(ctx, EmailMessage{
		To:      email,
		Subject: fmt.Sprintf("Your verification code - %s", s.clinicName),
		Body:    fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, ttlMinutes),
		HTML:    html.String(),
	})
}
