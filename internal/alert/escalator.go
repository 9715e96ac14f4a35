package alert

import (
	"context"
	"fmt"

	"github.com/pharmapet/pharmapet/internal/core"
	"github.com/pharmapet/pharmapet/internal/email"
	"github.com/pharmapet/pharmapet/internal/logging"
)

// Subject line used for every escalation email.
const criticalSubject = "CRITICAL Health Alert"

// Mailer is the direct-delivery path
type Mailer interface {
	IsConfigured() bool
	SendToMany(ctx context.Context, recipients []string, subject, textBody string) []email.SendResult
}

// Reporter produces the health report attached to every alert
type Reporter interface {
	Generate(ctx context.Context) string
}

// Escalator broadcasts critical health alerts to the configured contacts.
// Direct SMTP delivery is attempted per contact; when not a single send
// succeeds, one compose fallback addressed to all contacts fires instead.
type Escalator struct {
	mailer   Mailer
	composer Composer
	reporter Reporter
	// notifyFailure surfaces a total escalation failure to the user.
	notifyFailure func(ctx context.Context, title, body string)
	log           *logging.Logger
}

// NewEscalator creates an escalator. notifyFailure may be nil.
func NewEscalator(mailer Mailer, composer Composer, reporter Reporter, notifyFailure func(ctx context.Context, title, body string)) *Escalator {
	return &Escalator{
		mailer:        mailer,
		composer:      composer,
		reporter:      reporter,
		notifyFailure: notifyFailure,
		log:           logging.WithField("component", "escalator"),
	}
}

// Escalate sends the critical alert to every contact. Sends are independent:
// one failing contact never stops the rest. At least one delivered email
// means the escalation succeeded; zero means exactly one fallback attempt.
// With no contacts configured the escalation is a silent no-op.
func (e *Escalator) Escalate(ctx context.Context, contacts []core.HealthContact, analysisMessage string) error {
	if len(contacts) == 0 {
		e.log.Warn("critical status but no health contacts configured, skipping escalation")
		return nil
	}

	recipients := make([]string, 0, len(contacts))
	for _, c := range contacts {
		recipients = append(recipients, c.Email)
	}

	body := e.buildBody(ctx, analysisMessage)

	if e.mailer != nil && e.mailer.IsConfigured() {
		results := e.mailer.SendToMany(ctx, recipients, criticalSubject, body)

		successCount := 0
		for _, r := range results {
			if r.Success {
				successCount++
			} else {
				e.log.Warn("alert delivery to %s failed: %v", r.Recipient, r.Error)
			}
		}

		if successCount > 0 {
			e.log.Info("critical alert delivered to %d/%d contacts", successCount, len(recipients))
			return nil
		}
	} else {
		e.log.Warn("mail sender not configured, falling back to compose")
	}

	return e.fallback(ctx, recipients, body)
}

// fallback opens a pre-filled compose window addressed to every contact.
// Attempted at most once per escalation.
func (e *Escalator) fallback(ctx context.Context, recipients []string, body string) error {
	err := e.composer.Compose(ctx, recipients, criticalSubject, body)
	if err == nil {
		e.log.Info("opened compose fallback for %d contacts", len(recipients))
		return nil
	}

	e.log.Error("escalation failed entirely: %v", err)
	if e.notifyFailure != nil {
		e.notifyFailure(ctx,
			"Could not send critical alert",
			"Automatic alert emails failed and no mail client is available. Please contact your health contacts directly.")
	}
	return fmt.Errorf("critical alert escalation failed: %w", err)
}

// buildBody assembles the alert body: the classifier's analysis, the full
// health report, and the call to action.
func (e *Escalator) buildBody(ctx context.Context, analysisMessage string) string {
	report := ""
	if e.reporter != nil {
		report = e.reporter.Generate(ctx)
	}

	return fmt.Sprintf(`A critical health status was detected.

AI Analysis: %s

%s

Please contact the patient immediately.`, analysisMessage, report)
}
