package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testCatalog() *Catalog {
	return &Catalog{
		Products: []Product{
			{
				ProductID:  "HD-PRO-001",
				Name:       "ProSalon 3000",
				Category:   "professional",
				Aliases:    []string{"prosalon", "pro salon 3000"},
				PolicyFile: "policy_prosalon_3000.txt",
			},
			{
				ProductID:  "HD-TRV-001",
				Name:       "TravelMate Compact",
				Category:   "travel",
				Aliases:    []string{"travelmate", "travel mate"},
				PolicyFile: "policy_travelmate_compact.txt",
			},
		},
	}
}

func testIndex() *PolicyIndex {
	return &PolicyIndex{
		Policies: []PolicyEntry{
			{
				PolicyID:      "POL-PRO-V1",
				ProductID:     "HD-PRO-001",
				PolicyFile:    "policy_prosalon_3000.txt",
				Version:       "1.0",
				EffectiveDate: "2025-01-01",
				Requirements:  []string{"proof_of_purchase", "serial_number"},
			},
			{
				PolicyID:          "POL-PRO-V2",
				ProductID:         "HD-PRO-001",
				PolicyFile:        "policy_prosalon_3000.txt",
				Version:           "2.0",
				EffectiveDate:     "2025-06-01",
				Requirements:      []string{"proof_of_purchase"},
				ExclusionKeywords: []string{"water damage"},
			},
		},
	}
}

// writePolicyDir creates a policies dir containing the given files.
func writePolicyDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("policy text"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestResolve_ExactAlias(t *testing.T) {
	dir := writePolicyDir(t, "policy_prosalon_3000.txt")
	r := NewResolver(testCatalog(), testIndex(), dir)

	res := r.Resolve("ProSalon", "", "2025-07-15")
	if res.ProductID == nil || *res.ProductID != "HD-PRO-001" {
		t.Fatalf("ProductID = %v, want HD-PRO-001", res.ProductID)
	}
	if res.MatchConfidence != 1.0 {
		t.Errorf("MatchConfidence = %v, want 1.0", res.MatchConfidence)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	dir := writePolicyDir(t, "policy_prosalon_3000.txt")
	r := NewResolver(testCatalog(), testIndex(), dir)

	first := r.Resolve("pro salon 3000", "", "")
	for i := 0; i < 5; i++ {
		again := r.Resolve("pro salon 3000", "", "")
		if *again.ProductID != *first.ProductID || again.MatchConfidence != first.MatchConfidence {
			t.Fatalf("resolution not deterministic: %v/%v vs %v/%v",
				*again.ProductID, again.MatchConfidence, *first.ProductID, first.MatchConfidence)
		}
	}
}

func TestResolve_SerialAgreesWithName(t *testing.T) {
	dir := writePolicyDir(t, "policy_prosalon_3000.txt")
	r := NewResolver(testCatalog(), testIndex(), dir)

	res := r.Resolve("prosalon", "PS3K-12345", "")
	if res.MatchConfidence != 1.0 {
		t.Errorf("MatchConfidence = %v, want 1.0 when serial agrees", res.MatchConfidence)
	}
	if res.Reason == "" || !strings.Contains(res.Reason, "both serial number and product name") {
		t.Errorf("Reason = %q, want both-signals note", res.Reason)
	}
}

func TestResolve_SerialWinsOverName(t *testing.T) {
	dir := writePolicyDir(t, "policy_prosalon_3000.txt", "policy_travelmate_compact.txt")
	r := NewResolver(testCatalog(), testIndex(), dir)

	// Name says ProSalon, serial prefix says TravelMate.
	res := r.Resolve("prosalon", "TMC-98765", "")
	if res.ProductID == nil || *res.ProductID != "HD-TRV-001" {
		t.Fatalf("ProductID = %v, want HD-TRV-001 (serial precedence)", res.ProductID)
	}
	if res.MatchConfidence != 0.95 {
		t.Errorf("MatchConfidence = %v, want 0.95", res.MatchConfidence)
	}
	if !strings.Contains(res.Reason, "serial number prefix") {
		t.Errorf("Reason = %q, want serial prefix note", res.Reason)
	}
}

func TestResolve_PartialNameCapped(t *testing.T) {
	dir := writePolicyDir(t, "policy_travelmate_compact.txt")
	r := NewResolver(testCatalog(), testIndex(), dir)

	res := r.Resolve("my travelmate compact dryer stopped", "", "")
	if res.ProductID == nil || *res.ProductID != "HD-TRV-001" {
		t.Fatalf("ProductID = %v, want HD-TRV-001", res.ProductID)
	}
	if res.MatchConfidence <= 0 || res.MatchConfidence > 0.9 {
		t.Errorf("MatchConfidence = %v, want partial score in (0, 0.9]", res.MatchConfidence)
	}
}

func TestResolve_NoMatch(t *testing.T) {
	dir := writePolicyDir(t)
	r := NewResolver(testCatalog(), testIndex(), dir)

	res := r.Resolve("toaster oven", "", "")
	if res.ProductID != nil {
		t.Errorf("ProductID = %v, want nil", *res.ProductID)
	}
	if res.MatchConfidence != 0 {
		t.Errorf("MatchConfidence = %v, want 0", res.MatchConfidence)
	}
	if res.Reason != "No product match found" {
		t.Errorf("Reason = %q", res.Reason)
	}
}

func TestResolve_MissingPolicyFileAnnotated(t *testing.T) {
	// Policies dir exists but the referenced file does not.
	dir := writePolicyDir(t)
	r := NewResolver(testCatalog(), testIndex(), dir)

	res := r.Resolve("prosalon", "", "2025-07-01")
	if res.PolicyFile != nil {
		t.Errorf("PolicyFile = %v, want nil for missing file", *res.PolicyFile)
	}
	if !strings.Contains(res.Reason, "policy file not found") {
		t.Errorf("Reason = %q, want missing-file warning", res.Reason)
	}
}

func TestSelectPolicy_DatedSelection(t *testing.T) {
	idx := testIndex()

	tests := []struct {
		name         string
		purchaseDate string
		wantPolicyID string
	}{
		{"before v2 effective", "2025-03-01", "POL-PRO-V1"},
		{"on v2 effective", "2025-06-01", "POL-PRO-V2"},
		{"after v2 effective", "2025-09-01", "POL-PRO-V2"},
		{"no purchase date falls back to latest", "", "POL-PRO-V2"},
		{"before all entries falls back to latest", "2024-01-01", "POL-PRO-V2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := idx.SelectPolicy("HD-PRO-001", tt.purchaseDate)
			if entry == nil {
				t.Fatal("SelectPolicy returned nil")
			}
			if entry.PolicyID != tt.wantPolicyID {
				t.Errorf("PolicyID = %q, want %q", entry.PolicyID, tt.wantPolicyID)
			}
		})
	}

	if got := idx.SelectPolicy("HD-NOPE-000", "2025-06-01"); got != nil {
		t.Errorf("SelectPolicy for unknown product = %+v, want nil", got)
	}
}

func TestValidate(t *testing.T) {
	c := &Catalog{Products: []Product{
		{ProductID: "A-1", Name: "Alpha", PolicyFile: "a.txt"},
		{ProductID: "A-1", Name: "", PolicyFile: ""},
	}}
	errs := c.Validate()
	if len(errs) != 3 {
		t.Errorf("Validate returned %d errors, want 3: %v", len(errs), errs)
	}
}
