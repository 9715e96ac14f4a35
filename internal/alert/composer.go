// Package alert implements critical-alert escalation: broadcasting an
// emergency email to the configured health contacts, with a mail-compose
// fallback when direct delivery fails.
package alert

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"github.com/pharmapet/pharmapet/internal/core"
)

// Composer hands a pre-filled message to an external mail client when
// direct SMTP delivery is impossible.
type Composer interface {
	Compose(ctx context.Context, recipients []string, subject, body string) error
}

// MailtoComposer opens the OS default mail client via a mailto URL.
// Success means a handler accepted the URL, not that mail was sent; the
// user completes the send themselves.
type MailtoComposer struct {
	// opener overrides the launch command, for tests.
	opener func(ctx context.Context, url string) error
}

// NewMailtoComposer creates a composer using the platform opener
func NewMailtoComposer() *MailtoComposer {
	return &MailtoComposer{}
}

// Compose builds the mailto URL and hands it to the OS
func (c *MailtoComposer) Compose(ctx context.Context, recipients []string, subject, body string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients to compose to")
	}

	u := fmt.Sprintf("mailto:%s?subject=%s&body=%s",
		strings.Join(recipients, ","),
		url.QueryEscape(subject),
		url.QueryEscape(body))

	open := c.opener
	if open == nil {
		open = openURL
	}

	if err := open(ctx, u); err != nil {
		return fmt.Errorf("%w: %v", core.ErrNoMailHandler, err)
	}
	return nil
}

func openURL(ctx context.Context, u string) error {
	name, args := openCommand(u)
	return exec.CommandContext(ctx, name, args...).Run()
}

// openCommand picks the platform launcher for a URL
func openCommand(u string) (string, []string) {
	switch runtime.GOOS {
	case "darwin":
		return "open", []string{u}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", u}
	default:
		return "xdg-open", []string{u}
	}
}
