package models

// InboundMessage is the raw message handed to the core by a mail source
// collaborator. Immutable once ingested. AttachmentText is whatever text an
// external extractor produced for the attachments; the core never performs
// extraction itself.
type InboundMessage struct {
	ID             string   `json:"id"`
	From           string   `json:"from"`
	To             string   `json:"to"`
	Subject        string   `json:"subject"`
	Date           string   `json:"date"`
	Body           string   `json:"body"`
	Attachments    []string `json:"attachments"`
	AttachmentText string   `json:"attachment_text,omitempty"`
}

// Populated reports whether the message carries enough content to be
// processed without re-reading it from the source.
func (m *InboundMessage) Populated() bool {
	return m.Body != "" && m.From != "" && m.Subject != ""
}
