// Package notify sends best-effort escalation alerts when a session reaches
// RED triage. A failed alert never fails the turn that triggered it.
package notify

import (
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Sender delivers one escalation message.
type Sender interface {
	EscalateRed(sessionKey, workerID, reason string) error
}

// Config holds Twilio credentials and routing for supervisor SMS.
type Config struct {
	AccountSID string
	AuthToken  string
	From       string
	Supervisor string
}

// TwilioSender implements Sender over the Twilio messages API.
type TwilioSender struct {
	config Config
	client *twilio.RestClient
}

// New constructs a TwilioSender.
func New(config Config) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: config.AccountSID,
		Password: config.AuthToken,
	})
	return &TwilioSender{config: config, client: client}
}

// EscalateRed sends one SMS to the supervisor number. The message carries the
// session key and worker id only; no patient-identifying content leaves the
// session.
func (s *TwilioSender) EscalateRed(sessionKey, workerID, reason string) error {
	body := fmt.Sprintf("ASHAlytics RED alert: session %s (worker %s)", sessionKey, workerID)
	if reason != "" {
		body += " - " + reason
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(s.config.From)
	params.SetTo(s.config.Supervisor)
	params.SetBody(body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("send escalation sms: %w", err)
	}
	log.Printf("escalation sms sent for session %s", sessionKey)
	return nil
}

// Nop is a Sender that does nothing, used when escalation is not configured.
type Nop struct{}

func (Nop) EscalateRed(sessionKey, workerID, reason string) error { return nil }
