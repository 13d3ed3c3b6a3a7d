package retrieval

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hairtech/claimflow/internal/catalog"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder()
	ctx := context.Background()

	a, err := e.Embed(ctx, []string{"water damage to the motor housing"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	b, err := e.Embed(ctx, []string{"water damage to the motor housing"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(a[0]) != 256 {
		t.Errorf("expected 256 dimensions, got %d", len(a[0]))
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("vectors differ at dimension %d: %v vs %v", i, a[0][i], b[0][i])
		}
	}
}

func TestHashEmbedder_L2Normalized(t *testing.T) {
	e := NewHashEmbedder()
	vecs, err := e.Embed(context.Background(), []string{"heating element stopped working after two weeks"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	var norm float64
	for _, v := range vecs[0] {
		norm += v * v
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 1e-9 {
		t.Errorf("expected unit norm, got %f", math.Sqrt(norm))
	}
}

func TestHashEmbedder_EmptyText(t *testing.T) {
	e := NewHashEmbedder()
	vecs, err := e.Embed(context.Background(), []string{""})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	for _, v := range vecs[0] {
		if v != 0 {
			t.Fatalf("expected zero vector for empty text, got component %f", v)
		}
	}
}

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		name      string
		length    int
		wantCount int
	}{
		{"short text is one chunk", 500, 1},
		{"exactly window size is one chunk", 1000, 1},
		{"just over window size is two chunks", 1001, 2},
		{"two windows minus overlap", 1800, 2},
		{"three windows", 2500, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := strings.Repeat("a", tt.length)
			chunks := splitChunks(text)
			if len(chunks) != tt.wantCount {
				t.Fatalf("expected %d chunks for %d chars, got %d", tt.wantCount, tt.length, len(chunks))
			}
			for i, c := range chunks {
				if c == "" {
					t.Errorf("chunk %d is empty", i)
				}
				if len(c) > 1000 {
					t.Errorf("chunk %d exceeds window: %d chars", i, len(c))
				}
			}
			// Adjacent chunks share the 200-char overlap.
			for i := 1; i < len(chunks); i++ {
				prev := chunks[i-1]
				if len(prev) == 1000 && !strings.HasPrefix(chunks[i], prev[800:]) {
					t.Errorf("chunk %d does not overlap its predecessor", i)
				}
			}
		})
	}
}

func writePolicies(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("writing policy file: %v", err)
		}
	}
	return dir
}

func testPolicyIndex() *catalog.PolicyIndex {
	return &catalog.PolicyIndex{Policies: []catalog.PolicyEntry{
		{
			PolicyID:    "POL-PRO-V1",
			ProductID:   "HD-PRO-001",
			ProductName: "ProSalon 3000",
			PolicyFile:  "pro.txt",
		},
		{
			PolicyID:    "POL-TRV-V1",
			ProductID:   "HD-TRV-001",
			ProductName: "TravelMate Compact",
			PolicyFile:  "travel.txt",
		},
	}}
}

func testIndex(t *testing.T) *Index {
	t.Helper()
	dir := writePolicies(t, map[string]string{
		"pro.txt":    "The ProSalon 3000 warranty covers motor failure and heating element defects for 90 days. Water damage is excluded from coverage.",
		"travel.txt": "The TravelMate Compact warranty covers manufacturing defects for 90 days. Drops and impact damage are excluded.",
	})
	return NewIndex(NewHashEmbedder(), dir, testPolicyIndex())
}

func TestIndex_BuildTagsChunks(t *testing.T) {
	ix := testIndex(t)
	if err := ix.Build(context.Background()); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if ix.Size() != 2 {
		t.Fatalf("expected 2 chunks, got %d", ix.Size())
	}

	results, err := ix.Search(context.Background(), "motor failure", 10, Filter{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, res := range results {
		if res.Chunk.PolicyID == "" || res.Chunk.ProductID == "" || res.Chunk.PolicyFile == "" {
			t.Errorf("chunk missing metadata: %+v", res.Chunk)
		}
		if !strings.HasPrefix(res.Chunk.Content, "Policy for ") {
			t.Errorf("chunk content missing product context: %q", res.Chunk.Content)
		}
	}
}

func TestIndex_BuildOnce(t *testing.T) {
	ix := testIndex(t)
	if err := ix.Build(context.Background()); err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	first := ix.Size()
	if err := ix.Build(context.Background()); err != nil {
		t.Fatalf("second Build failed: %v", err)
	}
	if ix.Size() != first {
		t.Errorf("rebuilding changed chunk count: %d vs %d", first, ix.Size())
	}
}

func TestIndex_FilterPrecedence(t *testing.T) {
	ix := testIndex(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		filter     Filter
		wantPolicy string
	}{
		{"policy id wins", Filter{PolicyID: "POL-TRV-V1", PolicyFile: "pro.txt", ProductID: "HD-PRO-001"}, "POL-TRV-V1"},
		{"policy file when no id", Filter{PolicyFile: "travel.txt", ProductID: "HD-PRO-001"}, "POL-TRV-V1"},
		{"product id when nothing else", Filter{ProductID: "HD-PRO-001"}, "POL-PRO-V1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := ix.Search(ctx, "warranty coverage", 10, tt.filter)
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if len(results) == 0 {
				t.Fatal("expected results")
			}
			for _, res := range results {
				if res.Chunk.PolicyID != tt.wantPolicy {
					t.Errorf("filter leaked chunk from %s, want only %s", res.Chunk.PolicyID, tt.wantPolicy)
				}
			}
		})
	}
}

func TestIndex_SearchRanksByDistance(t *testing.T) {
	ix := testIndex(t)
	results, err := ix.Search(context.Background(), "water damage motor failure heating element ProSalon", 2, Filter{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Distance > results[1].Distance {
		t.Errorf("results not ordered by distance: %f then %f", results[0].Distance, results[1].Distance)
	}
	if results[0].Chunk.PolicyID != "POL-PRO-V1" {
		t.Errorf("expected ProSalon chunk to rank first, got %s", results[0].Chunk.PolicyID)
	}
}

func TestIndex_EmptyDir(t *testing.T) {
	ix := NewIndex(NewHashEmbedder(), t.TempDir(), testPolicyIndex())
	results, err := ix.Search(context.Background(), "anything", 3, Filter{})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results from empty corpus, got %d", len(results))
	}
}

func TestRetriever_TwoQueryProtocol(t *testing.T) {
	r := NewRetriever(testIndex(t))
	excerpts, err := r.Retrieve(context.Background(), Request{
		ProductName:      "ProSalon 3000",
		IssueDescription: "motor failure",
		PolicyID:         "POL-PRO-V1",
	})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(excerpts) == 0 {
		t.Fatal("expected excerpts")
	}

	// Single-chunk corpus per policy: the terms query returns the same
	// chunk and must be deduplicated, keeping the issue-query provenance.
	if len(excerpts) != 1 {
		t.Fatalf("expected 1 deduplicated excerpt, got %d", len(excerpts))
	}
	if excerpts[0].Query != "issue" {
		t.Errorf("expected first-seen issue provenance, got %q", excerpts[0].Query)
	}
	if excerpts[0].PolicyID != "POL-PRO-V1" {
		t.Errorf("expected POL-PRO-V1 excerpt, got %s", excerpts[0].PolicyID)
	}
	if !strings.HasPrefix(excerpts[0].SectionName, "Excerpt from ") {
		t.Errorf("unexpected section name: %q", excerpts[0].SectionName)
	}
}

func TestRetriever_FallbackQuery(t *testing.T) {
	// A filter matching nothing forces the merged set empty; the broad
	// fallback query then runs with the same (empty-result) filter, so
	// the retriever returns no excerpts rather than erroring.
	r := NewRetriever(testIndex(t))
	excerpts, err := r.Retrieve(context.Background(), Request{
		ProductName: "Unknown Widget",
		PolicyID:    "POL-NOPE",
	})
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(excerpts) != 0 {
		t.Errorf("expected no excerpts for unmatched filter, got %d", len(excerpts))
	}
}

func TestRetriever_FallbackProvenance(t *testing.T) {
	res := Result{Chunk: Chunk{Content: "general terms", PolicyFile: "pro.txt"}, Distance: 0.42}
	exc := toExcerpt(res, "fallback")
	if exc.SectionName != "General Policy" {
		t.Errorf("expected General Policy section for fallback, got %q", exc.SectionName)
	}
	if exc.Query != "fallback" {
		t.Errorf("expected fallback provenance, got %q", exc.Query)
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float64, error) {
	return nil, os.ErrDeadlineExceeded
}
func (failingEmbedder) Name() string { return "failing" }

func TestWithFallback_DegradesToHash(t *testing.T) {
	e := WithFallback(failingEmbedder{})
	vecs, err := e.Embed(context.Background(), []string{"motor failure"})
	if err != nil {
		t.Fatalf("expected silent degradation, got error: %v", err)
	}
	if len(vecs) != 1 || len(vecs[0]) != 256 {
		t.Fatalf("expected one 256-dim vector from hash fallback")
	}
}
