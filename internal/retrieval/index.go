package retrieval

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hairtech/claimflow/internal/catalog"
)

const (
	chunkSize    = 1000
	chunkOverlap = 200
)

// Chunk is one indexed slice of a policy document together with the
// metadata used for filtered search.
type Chunk struct {
	Content    string
	PolicyID   string
	PolicyFile string
	ProductID  string
	ChunkIndex int
	vector     []float64
}

// Filter narrows a search to one policy or product. Precedence when
// several fields are set: PolicyID, then PolicyFile, then ProductID. An
// empty filter matches everything.
type Filter struct {
	PolicyID   string
	PolicyFile string
	ProductID  string
}

func (f Filter) matches(c Chunk) bool {
	switch {
	case f.PolicyID != "":
		return c.PolicyID == f.PolicyID
	case f.PolicyFile != "":
		return c.PolicyFile == f.PolicyFile
	case f.ProductID != "":
		return c.ProductID == f.ProductID
	default:
		return true
	}
}

// Result is a scored chunk. Distance is cosine distance: 0 is identical,
// larger is less similar.
type Result struct {
	Chunk    Chunk
	Distance float64
}

// Index holds the in-memory vector index over the policy corpus. The index
// is built lazily on first search; concurrent callers share one build.
type Index struct {
	embedder    Embedder
	policiesDir string
	policyIndex *catalog.PolicyIndex

	buildOnce sync.Once
	buildErr  error
	chunks    []Chunk
}

// NewIndex creates an index over the policy documents in policiesDir,
// using the policy index to attach policy and product metadata to chunks.
func NewIndex(embedder Embedder, policiesDir string, policyIndex *catalog.PolicyIndex) *Index {
	return &Index{
		embedder:    embedder,
		policiesDir: policiesDir,
		policyIndex: policyIndex,
	}
}

// splitChunks slices text into overlapping windows. Short texts yield a
// single chunk; the final window is never empty.
func splitChunks(text string) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}
	var out []string
	step := chunkSize - chunkOverlap
	for start := 0; start < len(text); start += step {
		end := start + chunkSize
		if end >= len(text) {
			out = append(out, text[start:])
			break
		}
		out = append(out, text[start:end])
	}
	return out
}

// Build reads every policy file, chunks it, embeds all chunks in one batch,
// and populates the index. It is normally invoked lazily via ensure, but is
// exported for explicit warm-up (the index CLI command).
func (ix *Index) Build(ctx context.Context) error {
	ix.buildOnce.Do(func() {
		ix.buildErr = ix.build(ctx)
	})
	return ix.buildErr
}

func (ix *Index) build(ctx context.Context) error {
	entries, err := os.ReadDir(ix.policiesDir)
	if err != nil {
		return fmt.Errorf("reading policies dir: %w", err)
	}

	var chunks []Chunk
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(ix.policiesDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("reading policy %s: %w", entry.Name(), err)
		}
		text := strings.TrimSpace(string(raw))
		if text == "" {
			continue
		}

		policyID, productID, productName := ix.lookupMeta(entry.Name())
		for i, piece := range splitChunks(text) {
			content := piece
			if productName != "" {
				content = "Policy for " + productName + ": " + piece
			}
			chunks = append(chunks, Chunk{
				Content:    content,
				PolicyID:   policyID,
				PolicyFile: entry.Name(),
				ProductID:  productID,
				ChunkIndex: i,
			})
		}
	}

	if len(chunks) == 0 {
		ix.chunks = nil
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vecs, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding policy chunks: %w", err)
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("embedding policy chunks: got %d vectors for %d chunks", len(vecs), len(chunks))
	}
	for i := range chunks {
		chunks[i].vector = vecs[i]
	}
	ix.chunks = chunks
	return nil
}

// lookupMeta finds the policy entry whose PolicyFile matches the given
// file name. The latest version wins when several policies share a file.
func (ix *Index) lookupMeta(fileName string) (policyID, productID, productName string) {
	if ix.policyIndex == nil {
		return "", "", ""
	}
	for _, p := range ix.policyIndex.Policies {
		if p.PolicyFile == fileName {
			policyID = p.PolicyID
			productID = p.ProductID
			productName = p.ProductName
		}
	}
	return policyID, productID, productName
}

// Search returns the k nearest chunks to the query, restricted by the
// filter. The index is built on first use.
func (ix *Index) Search(ctx context.Context, query string, k int, filter Filter) ([]Result, error) {
	if err := ix.Build(ctx); err != nil {
		return nil, err
	}
	if k <= 0 || len(ix.chunks) == 0 {
		return nil, nil
	}

	vecs, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	qv := vecs[0]

	var results []Result
	for _, c := range ix.chunks {
		if !filter.matches(c) {
			continue
		}
		results = append(results, Result{Chunk: c, Distance: cosineDistance(qv, c.vector)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Size reports the number of indexed chunks; zero before the first build.
func (ix *Index) Size() int { return len(ix.chunks) }

func cosineDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
