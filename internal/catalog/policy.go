package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// PolicyEntry describes one dated policy document in the policy index.
type PolicyEntry struct {
	PolicyID          string   `json:"policy_id"`
	ProductID         string   `json:"product_id"`
	ProductName       string   `json:"product_name"`
	PolicyFile        string   `json:"policy_file"`
	Version           string   `json:"version"`
	EffectiveDate     string   `json:"effective_date"` // ISO YYYY-MM-DD
	Requirements      []string `json:"requirements"`
	ExclusionKeywords []string `json:"exclusion_keywords"`
}

// PolicyIndex is the parsed policies/index.json.
type PolicyIndex struct {
	Policies []PolicyEntry `json:"policies"`
}

// LoadPolicyIndex reads the policy index file. A missing file yields an
// empty index.
func LoadPolicyIndex(path string) (*PolicyIndex, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &PolicyIndex{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read policy index: %w", err)
	}

	var idx PolicyIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse policy index %s: %w", filepath.Base(path), err)
	}
	return &idx, nil
}

// SelectPolicy picks the policy entry for a product given a possibly absent
// purchase date. Among entries whose effective date is on or before the
// purchase date, the latest wins; with no purchase date, or no qualifying
// entry, the overall latest wins. Returns nil when the product has no
// entries at all.
func (idx *PolicyIndex) SelectPolicy(productID, purchaseDate string) *PolicyEntry {
	var candidates []PolicyEntry
	for _, p := range idx.Policies {
		if p.ProductID == productID {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].EffectiveDate < candidates[j].EffectiveDate
	})

	if purchaseDate != "" {
		for i := len(candidates) - 1; i >= 0; i-- {
			if candidates[i].EffectiveDate <= purchaseDate {
				return &candidates[i]
			}
		}
	}

	return &candidates[len(candidates)-1]
}

// PolicyFileExists reports whether the entry's policy document is present
// in the policies directory. Referenced-but-missing files are tolerated by
// the resolver, never an error.
func PolicyFileExists(policiesDir, policyFile string) bool {
	if policyFile == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(policiesDir, policyFile))
	return err == nil
}
