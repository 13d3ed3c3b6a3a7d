package extract

import (
	"strings"
	"testing"

	"github.com/hairtech/claimflow/internal/catalog"
	"github.com/hairtech/claimflow/pkg/models"
)

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{Products: []catalog.Product{
		{ProductID: "HD-PRO-001", Name: "ProSalon 3000", Aliases: []string{"ProSalon", "Pro Salon 3000"}, PolicyFile: "pro.txt"},
		{ProductID: "HD-TRV-001", Name: "TravelMate Compact", Aliases: []string{"TravelMate"}, PolicyFile: "travel.txt"},
	}}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2025-03-15", "2025-03-15"},
		{"03/15/2025", "2025-03-15"},
		{"3/5/2025", "2025-03-05"},
		{"March 15, 2025", "2025-03-15"},
		{"Mar 15, 2025", "2025-03-15"},
		{"15 March 2025", "2025-03-15"},
		{"2025/03/15", "2025-03-15"},
		{"purchased on 03/15/2025 at the mall", "2025-03-15"},
		{"not a date", "not a date"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeDate(tt.in); got != tt.want {
			t.Errorf("NormalizeDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"(555) 123-4567", "555-123-4567"},
		{"555.123.4567", "555-123-4567"},
		{"+1 555 123 4567", "555-123-4567"},
		{"15551234567", "555-123-4567"},
		{"12345", "12345"},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeSerial(t *testing.T) {
	if got := NormalizeSerial("ps3k-2024-1234!"); got != "PS3K-2024-1234" {
		t.Errorf("NormalizeSerial = %q", got)
	}
}

func TestNormalizeAddress(t *testing.T) {
	in := "123 Main Street\n  Springfield, IL 62704  \n"
	want := "123 Main Street, Springfield, IL 62704"
	if got := NormalizeAddress(in); got != want {
		t.Errorf("NormalizeAddress = %q, want %q", got, want)
	}
}

func TestFromTextHelpers(t *testing.T) {
	text := "My dryer broke.\nSerial: PS3K-2024-0099\nCall me at (555) 867-5309.\nOrder #111-2233445-6677889\nBought on March 1, 2025.\nreach me: jane@example.com"

	if got := PhoneFromText(text); got != "555-867-5309" {
		t.Errorf("PhoneFromText = %q", got)
	}
	if got := SerialFromText(text); got != "PS3K-2024-0099" {
		t.Errorf("SerialFromText = %q", got)
	}
	if got := DateFromText(text); got != "2025-03-01" {
		t.Errorf("DateFromText = %q", got)
	}
	if got := EmailFromText(text); got != "jane@example.com" {
		t.Errorf("EmailFromText = %q", got)
	}
	if got := OrderNumberFromText(text); got != "111-2233445-6677889" {
		t.Errorf("OrderNumberFromText = %q", got)
	}
}

func TestAddressFromText(t *testing.T) {
	t.Run("street plus city line", func(t *testing.T) {
		text := "some preamble\n456 Oak Avenue\nPortland, OR 97201\ntrailing"
		want := "456 Oak Avenue, Portland, OR 97201"
		if got := AddressFromText(text); got != want {
			t.Errorf("AddressFromText = %q, want %q", got, want)
		}
	})
	t.Run("bare city state zip", func(t *testing.T) {
		if got := AddressFromText("hello\nAustin, TX 78701"); got != "Austin, TX 78701" {
			t.Errorf("AddressFromText = %q", got)
		}
	})
	t.Run("no address", func(t *testing.T) {
		if got := AddressFromText("nothing here"); got != "" {
			t.Errorf("AddressFromText = %q, want empty", got)
		}
	})
}

func TestExtract_FullMessage(t *testing.T) {
	msg := &models.InboundMessage{
		ID:      "msg-001",
		From:    "jane.doe@example.com",
		Subject: "Broken hair dryer",
		Body: "Hi,\n\nMy ProSalon 3000 stopped working after two weeks.\n" +
			"Serial: PS3K-2024-0042\nI bought it on 03/15/2025 and have the receipt.\n" +
			"My address is 123 Main Street\nSpringfield, IL 62704\n\nThanks,\nJane Doe",
		Attachments: []string{"receipt.pdf"},
	}

	fields := NewExtractor(testCatalog()).Extract(msg)

	checks := map[string]struct {
		got  *string
		want string
	}{
		"customer_name":  {fields.CustomerName, "Jane Doe"},
		"customer_email": {fields.CustomerEmail, "jane.doe@example.com"},
		"product_name":   {fields.ProductName, "ProSalon 3000"},
		"product_serial": {fields.ProductSerial, "PS3K-2024-0042"},
		"purchase_date":  {fields.PurchaseDate, "2025-03-15"},
	}
	for name, c := range checks {
		if c.got == nil {
			t.Errorf("%s not extracted", name)
		} else if *c.got != c.want {
			t.Errorf("%s = %q, want %q", name, *c.got, c.want)
		}
	}

	if fields.IssueDescription == nil || !strings.Contains(*fields.IssueDescription, "stopped working") {
		t.Errorf("issue description missing or wrong: %v", fields.IssueDescription)
	}
	if !fields.HasProofOfPurchase {
		t.Error("expected proof of purchase from receipt attachment")
	}
	if len(fields.MissingFields) != 0 {
		t.Errorf("expected no missing fields, got %v", fields.MissingFields)
	}
}

func TestExtract_EmptyMessage(t *testing.T) {
	fields := NewExtractor(testCatalog()).Extract(&models.InboundMessage{ID: "msg-002", From: "noreply"})

	want := []string{"customer_name", "product_name", "purchase_date", "issue_description", MissingContactInfo}
	if len(fields.MissingFields) != len(want) {
		t.Fatalf("missing fields = %v, want %v", fields.MissingFields, want)
	}
	for i, name := range want {
		if fields.MissingFields[i] != name {
			t.Errorf("missing[%d] = %q, want %q", i, fields.MissingFields[i], name)
		}
	}
}

func TestExtract_IssueFallsBackToBodyPrefix(t *testing.T) {
	body := strings.Repeat("the product hums quietly. ", 30)
	fields := NewExtractor(testCatalog()).Extract(&models.InboundMessage{From: "a@b.com", Body: body})
	if fields.IssueDescription == nil {
		t.Fatal("expected body-prefix issue description")
	}
	if len(*fields.IssueDescription) > 400 {
		t.Errorf("issue prefix too long: %d chars", len(*fields.IssueDescription))
	}
}

func TestFillGaps(t *testing.T) {
	msg := &models.InboundMessage{
		From: "bob@example.com",
		Body: "TravelMate won't turn on.\nSerial: tmc-2025-777\nBought 06/01/2025.\nRegards,\nBob",
	}
	date := "June 1, 2025"
	fields := &models.ExtractedFields{
		CustomerName: optional("Bob"),
		ProductName:  optional("TravelMate Compact"),
		PurchaseDate: &date,
	}

	NewExtractor(testCatalog()).FillGaps(fields, msg)

	if fields.CustomerEmail == nil || *fields.CustomerEmail != "bob@example.com" {
		t.Errorf("email not filled from sender: %v", fields.CustomerEmail)
	}
	if fields.ProductSerial == nil || *fields.ProductSerial != "TMC-2025-777" {
		t.Errorf("serial not filled/normalized: %v", fields.ProductSerial)
	}
	if fields.PurchaseDate == nil || *fields.PurchaseDate != "2025-06-01" {
		t.Errorf("purchase date = %v, want 2025-06-01", fields.PurchaseDate)
	}
	if len(fields.MissingFields) != 0 {
		t.Errorf("expected complete claim, got missing %v", fields.MissingFields)
	}
}

func TestConfidence(t *testing.T) {
	empty := &models.ExtractedFields{}
	if got := Confidence(empty); got != 0 {
		t.Errorf("empty confidence = %f", got)
	}

	full := &models.ExtractedFields{
		CustomerName:     optional("a"),
		CustomerEmail:    optional("b"),
		CustomerPhone:    optional("c"),
		CustomerAddress:  optional("d"),
		ProductName:      optional("e"),
		ProductSerial:    optional("f"),
		PurchaseDate:     optional("g"),
		PurchaseLocation: optional("h"),
		OrderNumber:      optional("i"),
		IssueDescription: optional("j"),
	}
	if got := Confidence(full); got != 1.0 {
		t.Errorf("full confidence = %f", got)
	}

	half := &models.ExtractedFields{
		CustomerName:     optional("a"),
		CustomerEmail:    optional("b"),
		ProductName:      optional("c"),
		PurchaseDate:     optional("d"),
		IssueDescription: optional("e"),
	}
	if got := Confidence(half); got != 0.5 {
		t.Errorf("half confidence = %f", got)
	}
}

func TestHasProofOfPurchase(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		attachments []string
		want        bool
	}{
		{"attachment name", "no evidence in body", []string{"my_receipt.jpg"}, true},
		{"body keyword", "I still have the invoice from the store", nil, true},
		{"nothing", "it just broke", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasProofOfPurchase(tt.body, "", tt.attachments); got != tt.want {
				t.Errorf("HasProofOfPurchase = %v, want %v", got, tt.want)
			}
		})
	}
}
