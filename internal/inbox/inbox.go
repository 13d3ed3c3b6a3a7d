// Package inbox loads inbound message files from the file-based inbox. A
// message is one JSON file, conventionally named <email-id>.json. IMAP and
// other live connectors hand their messages to the pipeline directly and
// never go through this package.
package inbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hairtech/claimflow/pkg/models"
)

// messageFile is the on-disk schema of an inbox message.
type messageFile struct {
	EmailID        string   `json:"email_id"`
	From           string   `json:"from"`
	To             string   `json:"to"`
	Subject        string   `json:"subject"`
	Date           string   `json:"date"`
	Body           string   `json:"body"`
	Attachments    []string `json:"attachments"`
	AttachmentText string   `json:"attachment_text"`
}

// Inbox reads messages from a directory of JSON files.
type Inbox struct {
	dir string
}

// New creates an inbox over dir. The directory does not need to exist yet;
// Load and List report missing files per call.
func New(dir string) *Inbox {
	return &Inbox{dir: dir}
}

// Dir returns the inbox directory.
func (in *Inbox) Dir() string { return in.dir }

// Load reads the message for an email id. It looks for <id>.json first and
// falls back to the first file whose name contains the id, so partial ids
// pasted from logs still resolve.
func (in *Inbox) Load(id string) (*models.InboundMessage, error) {
	path := filepath.Join(in.dir, id+".json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		match, err := in.glob(id)
		if err != nil {
			return nil, err
		}
		path = match
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read message %s: %w", id, err)
	}

	var mf messageFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse message %s: %w", filepath.Base(path), err)
	}
	if mf.EmailID == "" {
		mf.EmailID = id
	}

	return &models.InboundMessage{
		ID:             mf.EmailID,
		From:           mf.From,
		To:             mf.To,
		Subject:        mf.Subject,
		Date:           mf.Date,
		Body:           mf.Body,
		Attachments:    mf.Attachments,
		AttachmentText: mf.AttachmentText,
	}, nil
}

// glob returns the lexically first inbox file whose name contains id.
func (in *Inbox) glob(id string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(in.dir, "*"+id+"*"))
	if err != nil {
		return "", fmt.Errorf("scan inbox for %s: %w", id, err)
	}
	sort.Strings(matches)
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && !info.IsDir() {
			return m, nil
		}
	}
	return "", fmt.Errorf("message file not found: %s", id)
}

// List returns the email ids of every JSON message in the inbox, sorted.
func (in *Inbox) List() ([]string, error) {
	entries, err := os.ReadDir(in.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read inbox dir: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
