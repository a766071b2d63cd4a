package notify

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Mailer delivers customer-facing notifications. A send failure never
// fails the request that triggered it; callers go through SendAsync.
type Mailer interface {
	Send(to string, subject string, body string) error
}

// LogMailer is our placeholder mailer. Instead of sending a real email,
// it logs the message, so the flow can be exercised without an API key.
// Swapping in a real provider only means implementing Mailer.
type LogMailer struct{}

func (LogMailer) Send(to string, subject string, body string) error {
	log.Info().
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("outgoing email")
	return nil
}

// SendAsync dispatches a notification on its own goroutine so the HTTP
// response never waits on a mail provider. Failures are logged and dropped.
func SendAsync(m Mailer, to string, subject string, body string) {
	go func() {
		if err := m.Send(to, subject, body); err != nil {
			log.Warn().Err(err).Str("to", to).Msg("email send failed")
		}
	}()
}

// QuoteReplyBody builds the notification sent to a customer when staff
// replies on their service request.
func QuoteReplyBody(customerName string, requestID int64, serviceType string) (subject string, body string) {
	subject = fmt.Sprintf("Update on your service request #%d", requestID)
	body = fmt.Sprintf(
		"Hi %s,\n\nOur team has replied to your %s request. Log in to view the conversation and respond.\n\nThank you.",
		customerName, serviceType,
	)
	return subject, body
}

// StatusChangeBody builds the notification sent when a request's status moves.
func StatusChangeBody(customerName string, requestID int64, statusLabel string) (subject string, body string) {
	subject = fmt.Sprintf("Your service request #%d is now %s", requestID, statusLabel)
	body = fmt.Sprintf(
		"Hi %s,\n\nThe status of your service request #%d has changed to: %s.\n\nThank you.",
		customerName, requestID, statusLabel,
	)
	return subject, body
}
