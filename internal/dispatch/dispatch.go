// Package dispatch sends customer-facing claim responses with idempotency
// protection. The dispatch key is derived from the payload content, so a
// byte-identical resend is detected and skipped even across restarts.
package dispatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hairtech/claimflow/internal/state"
)

// Email is one outbound message payload. Attachments are file paths;
// only the base name and size participate in the payload hash.
type Email struct {
	Recipient   string
	Subject     string
	Body        string
	Attachments []string
}

// Result reports the outcome of one Send call.
type Result struct {
	OK        bool
	Status    state.DispatchStatus
	Duplicate bool
	Provider  string
	Key       string
	Recipient string
	Subject   string
	MessageID string
	Error     string
}

// Provider performs the actual delivery. Name identifies the provider in
// the ledger.
type Provider interface {
	Name() string
	Send(ctx context.Context, email Email) (messageID string, err error)
}

// PayloadHash derives the content hash for an email: recipient, subject,
// body, then each attachment's base name and size. Unreadable attachments
// hash as size 0 rather than failing.
func PayloadHash(email Email) string {
	h := sha256.New()
	h.Write([]byte(email.Recipient))
	h.Write([]byte(email.Subject))
	h.Write([]byte(email.Body))
	for _, att := range email.Attachments {
		h.Write([]byte(filepath.Base(att)))
		size := int64(0)
		if info, err := os.Stat(att); err == nil {
			size = info.Size()
		}
		h.Write([]byte(strconv.FormatInt(size, 10)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Key builds the dispatch key for a claim and payload hash.
func Key(claimID, payloadHash string) string {
	return claimID + ":" + payloadHash
}

// ParseDraft splits a rendered response draft into subject and body. A
// leading "Subject:" line supplies the subject; otherwise the fallback is
// used and the whole draft becomes the body.
func ParseDraft(draft, fallbackSubject string) (subject, body string) {
	subject = fallbackSubject
	lines := strings.Split(draft, "\n")
	bodyStart := 0
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(line), "subject:") {
			if s := strings.TrimSpace(line[len("subject:"):]); s != "" {
				subject = s
			}
			bodyStart = i + 1
			break
		}
	}
	body = strings.TrimSpace(strings.Join(lines[bodyStart:], "\n"))
	if body == "" {
		body = strings.TrimSpace(draft)
	}
	return subject, body
}

// Dispatcher coordinates the ledger check, the provider call, and the
// ledger write for each outbound send.
type Dispatcher struct {
	ledger   state.DispatchLedger
	provider Provider
}

// NewDispatcher creates a dispatcher over a ledger and provider. A nil
// provider behaves like the manual provider.
func NewDispatcher(ledger state.DispatchLedger, provider Provider) *Dispatcher {
	if provider == nil {
		provider = ManualProvider{}
	}
	return &Dispatcher{ledger: ledger, provider: provider}
}

// Send delivers an email for a claim exactly once. The ledger is consulted
// first: an existing SENT row for the same key short-circuits with
// Duplicate=true and no provider call. Failures are recorded as FAILED and
// are retryable by calling Send again with the same payload.
func (d *Dispatcher) Send(ctx context.Context, claimID, messageID string, email Email) (*Result, error) {
	payloadHash := PayloadHash(email)
	key := Key(claimID, payloadHash)

	existing, err := d.ledger.GetDispatch(key)
	if err != nil {
		return nil, fmt.Errorf("ledger lookup: %w", err)
	}
	if existing != nil && existing.Status == state.DispatchSent {
		return &Result{
			OK:        true,
			Status:    state.DispatchSent,
			Duplicate: true,
			Provider:  existing.Provider,
			Key:       key,
			Recipient: email.Recipient,
			Subject:   email.Subject,
			MessageID: existing.ProviderMessageID,
		}, nil
	}

	record := &state.Dispatch{
		Key:         key,
		ClaimID:     claimID,
		MessageID:   messageID,
		Provider:    d.provider.Name(),
		Recipient:   email.Recipient,
		Subject:     email.Subject,
		PayloadHash: payloadHash,
		CreatedAt:   time.Now().UTC(),
	}

	if email.Recipient == "" {
		record.Status = state.DispatchFailed
		record.Error = "no recipient email found in claim record"
		if err := d.ledger.RecordDispatch(record); err != nil {
			return nil, fmt.Errorf("record failed dispatch: %w", err)
		}
		return &Result{
			Status:   state.DispatchFailed,
			Provider: record.Provider,
			Key:      key,
			Subject:  email.Subject,
			Error:    record.Error,
		}, nil
	}

	if _, manual := d.provider.(ManualProvider); manual {
		record.Status = state.DispatchSkipped
		if err := d.ledger.RecordDispatch(record); err != nil {
			return nil, fmt.Errorf("record skipped dispatch: %w", err)
		}
		return &Result{
			OK:        true,
			Status:    state.DispatchSkipped,
			Provider:  record.Provider,
			Key:       key,
			Recipient: email.Recipient,
			Subject:   email.Subject,
		}, nil
	}

	providerMessageID, sendErr := d.provider.Send(ctx, email)
	if sendErr != nil {
		record.Status = state.DispatchFailed
		record.Error = sendErr.Error()
		if err := d.ledger.RecordDispatch(record); err != nil {
			return nil, fmt.Errorf("record failed dispatch: %w", err)
		}
		return &Result{
			Status:    state.DispatchFailed,
			Provider:  record.Provider,
			Key:       key,
			Recipient: email.Recipient,
			Subject:   email.Subject,
			Error:     sendErr.Error(),
		}, nil
	}

	record.Status = state.DispatchSent
	record.ProviderMessageID = providerMessageID
	if err := d.ledger.RecordDispatch(record); err != nil {
		return nil, fmt.Errorf("record sent dispatch: %w", err)
	}
	return &Result{
		OK:        true,
		Status:    state.DispatchSent,
		Provider:  record.Provider,
		Key:       key,
		Recipient: email.Recipient,
		Subject:   email.Subject,
		MessageID: providerMessageID,
	}, nil
}
