// Package email delivers alert and notification mail over SMTP.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strings"
	"time"

	"github.com/pharmapet/pharmapet/internal/core"
)

// Config configures the SMTP sender
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromEmail   string
	FromName    string
	UseStartTLS bool
	Timeout     time.Duration
}

// DefaultConfig returns config from environment
func DefaultConfig() Config {
	port := 587
	if v := os.Getenv("SMTP_PORT"); v != "" {
		fmt.Sscanf(v, "%d", &port)
	}

	fromName := os.Getenv("SMTP_FROM_NAME")
	if fromName == "" {
		fromName = "PharmaPet"
	}

	return Config{
		Host:        os.Getenv("SMTP_HOST"),
		Port:        port,
		Username:    os.Getenv("SMTP_USERNAME"),
		Password:    os.Getenv("SMTP_PASSWORD"),
		FromEmail:   os.Getenv("SMTP_FROM_EMAIL"),
		FromName:    fromName,
		UseStartTLS: os.Getenv("SMTP_USE_STARTTLS") != "false",
		Timeout:     30 * time.Second,
	}
}

// Sender handles email delivery
type Sender struct {
	config Config
}

// NewSender creates a new email sender
func NewSender(cfg Config) *Sender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Sender{config: cfg}
}

// Message represents an outgoing email
type Message struct {
	To       []string
	Subject  string
	TextBody string
	Headers  map[string]string
}

// IsConfigured reports whether enough settings are present to send
func (s *Sender) IsConfigured() bool {
	return s.config.Host != "" && s.config.FromEmail != ""
}

// Send delivers a single message
func (s *Sender) Send(ctx context.Context, msg *Message) error {
	if !s.IsConfigured() {
		return core.ErrMailNotConfigured
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients")
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	dialer := net.Dialer{Timeout: s.config.Timeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if s.config.UseStartTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			tlsConfig := &tls.Config{ServerName: s.config.Host}
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("STARTTLS failed: %w", err)
			}
		}
	}

	if s.config.Username != "" && s.config.Password != "" {
		auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}

	if err := client.Mail(s.config.FromEmail); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	for _, rcpt := range msg.To {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO failed for %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}

	if _, err := w.Write(s.buildEmail(msg)); err != nil {
		return fmt.Errorf("failed to write email data: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

// buildEmail constructs the raw message bytes
func (s *Sender) buildEmail(msg *Message) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("From: %s <%s>\r\n", s.config.FromName, s.config.FromEmail))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	buf.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	buf.WriteString("MIME-Version: 1.0\r\n")

	for key, value := range msg.Headers {
		buf.WriteString(fmt.Sprintf("%s: %s\r\n", key, value))
	}

	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	buf.WriteString(msg.TextBody)

	return buf.Bytes()
}

// SendResult tracks the outcome of one recipient in a fan-out send
type SendResult struct {
	Recipient string
	Success   bool
	Error     error
}

// BulkSender sends the same message to many recipients independently:
// one failure never aborts the remaining sends.
type BulkSender struct {
	sender *Sender
}

// NewBulkSender creates a bulk sender
func NewBulkSender(sender *Sender) *BulkSender {
	return &BulkSender{sender: sender}
}

// IsConfigured reports whether the underlying sender can deliver mail
func (bs *BulkSender) IsConfigured() bool {
	return bs.sender.IsConfigured()
}

// SendToMany sends subject/body to each recipient in turn and returns a
// per-recipient result. Cancellation marks the remaining recipients failed.
func (bs *BulkSender) SendToMany(ctx context.Context, recipients []string, subject, textBody string) []SendResult {
	results := make([]SendResult, len(recipients))

	for i, recipient := range recipients {
		select {
		case <-ctx.Done():
			for j := i; j < len(recipients); j++ {
				results[j] = SendResult{Recipient: recipients[j], Error: ctx.Err()}
			}
			return results
		default:
		}

		err := bs.sender.Send(ctx, &Message{
			To:       []string{recipient},
			Subject:  subject,
			TextBody: textBody,
		})
		results[i] = SendResult{
			Recipient: recipient,
			Success:   err == nil,
			Error:     err,
		}
	}

	return results
}
