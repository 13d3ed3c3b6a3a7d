package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hairtech/claimflow/pkg/models"
)

// ErrNotApproved is returned when a label is requested for a claim whose
// review decision is anything other than APPROVE.
var ErrNotApproved = errors.New("return labels are only generated for approved claims")

// Label is a generated return shipping label artifact.
type Label struct {
	Path     string
	Content  string
	Tracking string
	RMA      string
}

const labelTemplate = `
+------------------------------------------------------------------+
|                    PREPAID RETURN LABEL                          |
|                    HairTech Industries                           |
|                    Warranty Return Service                       |
+------------------------------------------------------------------+
|                                                                  |
|  FROM:
%s|                                                                  |
|  TO:
%s|                                                                  |
+------------------------------------------------------------------+
|                                                                  |
|  RMA Number: %-30s                      |
|  Tracking:   %-30s                      |
|                                                                  |
|  |||||||||||||||||||||||||||||||||||||||||||||||||||||||||||     |
|                      %s                                  |
|                                                                  |
|                    PRIORITY MAIL                                 |
|              PREPAID - NO POSTAGE REQUIRED                       |
|                                                                  |
+------------------------------------------------------------------+
|  INSTRUCTIONS:                                                   |
|  1. Pack the product securely in original packaging              |
|  2. Include a copy of your warranty claim email                  |
|  3. Affix this label to the outside of the package               |
|  4. Drop off at any postal service location                      |
+------------------------------------------------------------------+
|  Generated: %s | Claim: %s | Valid: 30 days
|  Questions? warranty@hairtechind.com | 1-800-HAIRTECH            |
+------------------------------------------------------------------+
`

// ReturnLabel generates the text return shipping label for an approved claim
// and writes it to outbox/labels/<claim-id>_label.txt. The tracking number is
// HTK + generation date + six random digits; the RMA number is derived from
// the claim ID so the warehouse can tie the package back to the record.
func (r *Renderer) ReturnLabel(claim *models.Claim) (Label, error) {
	if claim.Human == nil || claim.Human.Decision != models.RecommendApprove {
		return Label{}, ErrNotApproved
	}

	tracking := fmt.Sprintf("HTK%s%d", r.now().Format("20060102"), r.trackingSuffix())
	rma := "RMA-" + claim.ClaimID

	content := fmt.Sprintf(labelTemplate,
		addressBlock(r.customerAddress(claim)),
		addressBlock(r.companyAddress()),
		rma,
		tracking,
		tracking,
		r.now().Format("2006-01-02 15:04"),
		claim.ClaimID,
	)

	path, err := r.write(labelsSubdir, claim.ClaimID+"_label.txt", content)
	if err != nil {
		return Label{}, err
	}
	return Label{Path: path, Content: content, Tracking: tracking, RMA: rma}, nil
}

// customerAddress builds the FROM block for the label: name over address
// when both are known, whichever is present otherwise.
func (r *Renderer) customerAddress(claim *models.Claim) []string {
	var name, addr string
	if claim.Extracted != nil {
		name = strOr(claim.Extracted.CustomerName, "")
		addr = strOr(claim.Extracted.CustomerAddress, "")
	}
	switch {
	case name != "" && addr != "":
		return append([]string{name}, strings.Split(addr, "\n")...)
	case addr != "":
		return strings.Split(addr, "\n")
	case name != "":
		return []string{name}
	}
	return []string{"Customer Address Not Provided"}
}

func (r *Renderer) companyAddress() []string {
	a := r.address
	return []string{
		a.Name,
		a.Street,
		fmt.Sprintf("%s, %s %s", a.City, a.State, a.Zip),
		a.Country,
	}
}

// addressBlock renders address lines as rows of the label box.
func addressBlock(lines []string) string {
	var b strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&b, "|  %s\n", strings.TrimSpace(line))
	}
	return b.String()
}
