// Package render produces the human-facing artifacts of the claim pipeline:
// customer response drafts, review packets, return shipping labels, and the
// final audit log. Every artifact lands under a single outbox directory and
// callers receive the written path back; nothing outside this package
// re-derives outbox layout.
package render

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/hairtech/claimflow/internal/catalog"
	"github.com/hairtech/claimflow/pkg/models"
)

// Outbox subdirectories. Emails and labels are customer-facing, packets are
// for the reviewer, logs hold the per-claim audit record.
const (
	emailsSubdir  = "emails"
	labelsSubdir  = "labels"
	packetsSubdir = "packets"
	logsSubdir    = "logs"
)

// defaultReturnAddress is used when the catalog carries no return address.
var defaultReturnAddress = catalog.ReturnAddress{
	Name:    "HairTech Industries Returns",
	Street:  "1234 Innovation Drive",
	City:    "San Jose",
	State:   "CA",
	Zip:     "95134",
	Country: "USA",
}

// Artifact is a rendered document together with where it was written.
type Artifact struct {
	Path    string
	Content string
}

// Renderer writes claim artifacts under an outbox directory.
type Renderer struct {
	outboxDir string
	address   catalog.ReturnAddress

	// now and trackingSuffix are swappable for tests.
	now            func() time.Time
	trackingSuffix func() int
}

// NewRenderer creates a renderer rooted at outboxDir. A nil addr falls back
// to the company default return address.
func NewRenderer(outboxDir string, addr *catalog.ReturnAddress) *Renderer {
	r := &Renderer{
		outboxDir:      outboxDir,
		address:        defaultReturnAddress,
		now:            time.Now,
		trackingSuffix: func() int { return 100000 + rand.IntN(900000) },
	}
	if addr != nil {
		r.address = *addr
	}
	return r
}

// write creates the subdirectory if needed and writes one artifact file.
func (r *Renderer) write(subdir, name, content string) (string, error) {
	dir := r.outboxDir
	if subdir != "" {
		dir = filepath.Join(r.outboxDir, subdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create outbox dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", name, err)
	}
	return path, nil
}

// truncate cuts s to at most n bytes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// customerName returns the extracted customer name or the generic greeting.
func customerName(claim *models.Claim) string {
	if claim.Extracted != nil && claim.Extracted.CustomerName != nil && *claim.Extracted.CustomerName != "" {
		return *claim.Extracted.CustomerName
	}
	return "Valued Customer"
}

// productName prefers the catalog-resolved name over the extracted one.
func productName(claim *models.Claim) string {
	if claim.Resolution != nil && claim.Resolution.ProductName != nil && *claim.Resolution.ProductName != "" {
		return *claim.Resolution.ProductName
	}
	if claim.Extracted != nil && claim.Extracted.ProductName != nil && *claim.Extracted.ProductName != "" {
		return *claim.Extracted.ProductName
	}
	return "HairTech Product"
}

// issueSummary returns the first 100 bytes of the issue description.
func issueSummary(claim *models.Claim) string {
	if claim.Extracted != nil && claim.Extracted.IssueDescription != nil && *claim.Extracted.IssueDescription != "" {
		return truncate(*claim.Extracted.IssueDescription, 100)
	}
	return ""
}

// strOr dereferences p or returns the fallback when unset.
func strOr(p *string, fallback string) string {
	if p != nil && *p != "" {
		return *p
	}
	return fallback
}
