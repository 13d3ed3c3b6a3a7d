package dispatch

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"mime"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ManualProvider performs no delivery. Sends through it are recorded as
// SKIPPED so an operator can deliver the draft out of band; this is the
// default mode.
type ManualProvider struct{}

// Name identifies the provider in the ledger.
func (ManualProvider) Name() string { return "manual" }

// Send never runs; the dispatcher records manual sends as SKIPPED without
// calling the provider.
func (ManualProvider) Send(context.Context, Email) (string, error) {
	return "", fmt.Errorf("manual provider does not send")
}

// SMTPConfig configures the SMTP provider.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
}

// SMTPProvider delivers mail over SMTP with optional STARTTLS and plain
// auth.
type SMTPProvider struct {
	cfg SMTPConfig
}

// NewSMTPProvider creates an SMTP provider. Empty From defaults to the
// warranty mailbox.
func NewSMTPProvider(cfg SMTPConfig) *SMTPProvider {
	if cfg.From == "" {
		cfg.From = "warranty@hairtechind.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPProvider{cfg: cfg}
}

// Name identifies the provider in the ledger.
func (p *SMTPProvider) Name() string { return "smtp" }

// Send delivers the email and returns the generated Message-Id. Attachments
// are included as base64 MIME parts.
func (p *SMTPProvider) Send(_ context.Context, email Email) (string, error) {
	messageID := newMessageID()
	msg, err := buildMIMEMessage(p.cfg.From, email, messageID)
	if err != nil {
		return "", err
	}

	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)
	var auth smtp.Auth
	if p.cfg.Username != "" {
		auth = smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, p.cfg.From, []string{email.Recipient}, msg); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	return messageID, nil
}

func newMessageID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%s@claimflow", hex.EncodeToString(buf))
}

// buildMIMEMessage assembles a multipart message with a plain-text body and
// base64 attachment parts.
func buildMIMEMessage(from string, email Email, messageID string) ([]byte, error) {
	boundary := "claimflow-" + newMessageID()[:16]

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", email.Recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", email.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-Id: <%s>\r\n", messageID)
	fmt.Fprintf(&b, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	fmt.Fprintf(&b, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(email.Body)
	b.WriteString("\r\n")

	for _, att := range email.Attachments {
		data, err := os.ReadFile(att)
		if err != nil {
			return nil, fmt.Errorf("read attachment %s: %w", att, err)
		}
		name := filepath.Base(att)
		ctype := mime.TypeByExtension(filepath.Ext(name))
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		fmt.Fprintf(&b, "Content-Type: %s\r\n", ctype)
		fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n", name)
		fmt.Fprintf(&b, "Content-Transfer-Encoding: base64\r\n\r\n")
		b.WriteString(encodeBase64Wrapped(data))
		b.WriteString("\r\n")
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String()), nil
}

// encodeBase64Wrapped encodes data with 76-column line wrapping per MIME.
func encodeBase64Wrapped(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var b strings.Builder
	for len(encoded) > 76 {
		b.WriteString(encoded[:76])
		b.WriteString("\r\n")
		encoded = encoded[76:]
	}
	b.WriteString(encoded)
	return b.String()
}
