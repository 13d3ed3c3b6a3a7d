package retrieval

import (
	"context"
	"fmt"

	"github.com/hairtech/claimflow/pkg/models"
)

const (
	issueTopK    = 3
	termsTopK    = 2
	fallbackTopK = 3
)

// Retriever runs the per-claim query protocol against the policy index:
// an issue-specific query, a general terms query, and a broad fallback if
// both come back empty.
type Retriever struct {
	index *Index
}

// NewRetriever creates a retriever over the given index.
func NewRetriever(index *Index) *Retriever {
	return &Retriever{index: index}
}

// Request carries the claim fields that shape the queries and the filter.
type Request struct {
	ProductName      string
	IssueDescription string
	PolicyID         string
	PolicyFile       string
	ProductID        string
}

// Retrieve returns ranked, deduplicated excerpts for the claim. Each
// excerpt records the query that produced it and its cosine distance.
func (r *Retriever) Retrieve(ctx context.Context, req Request) ([]models.PolicyExcerpt, error) {
	productName := req.ProductName
	if productName == "" {
		productName = "Unknown Product"
	}
	issueDesc := req.IssueDescription
	if issueDesc == "" {
		issueDesc = "general warranty inquiry"
	}
	filter := Filter{
		PolicyID:   req.PolicyID,
		PolicyFile: req.PolicyFile,
		ProductID:  req.ProductID,
	}

	issueQuery := fmt.Sprintf("warranty coverage for %s on %s", issueDesc, productName)
	issueResults, err := r.index.Search(ctx, issueQuery, issueTopK, filter)
	if err != nil {
		return nil, fmt.Errorf("issue query: %w", err)
	}

	termsQuery := fmt.Sprintf("warranty period duration coverage exclusions for %s", productName)
	termsResults, err := r.index.Search(ctx, termsQuery, termsTopK, filter)
	if err != nil {
		return nil, fmt.Errorf("terms query: %w", err)
	}

	seen := make(map[string]bool)
	var excerpts []models.PolicyExcerpt
	appendResults := func(results []Result, queryName string) {
		for _, res := range results {
			if seen[res.Chunk.Content] {
				continue
			}
			seen[res.Chunk.Content] = true
			excerpts = append(excerpts, toExcerpt(res, queryName))
		}
	}
	appendResults(issueResults, "issue")
	appendResults(termsResults, "terms")

	if len(excerpts) == 0 {
		fallbackQuery := fmt.Sprintf("warranty policy for %s", productName)
		fallbackResults, err := r.index.Search(ctx, fallbackQuery, fallbackTopK, filter)
		if err != nil {
			return nil, fmt.Errorf("fallback query: %w", err)
		}
		for _, res := range fallbackResults {
			excerpts = append(excerpts, toExcerpt(res, "fallback"))
		}
	}

	return excerpts, nil
}

func toExcerpt(res Result, queryName string) models.PolicyExcerpt {
	sectionName := "Excerpt from " + res.Chunk.PolicyFile
	if queryName == "fallback" {
		sectionName = "General Policy"
	}
	return models.PolicyExcerpt{
		SectionName: sectionName,
		Content:     res.Chunk.Content,
		PolicyID:    res.Chunk.PolicyID,
		PolicyFile:  res.Chunk.PolicyFile,
		ChunkIndex:  res.Chunk.ChunkIndex,
		Distance:    res.Distance,
		Query:       queryName,
	}
}
