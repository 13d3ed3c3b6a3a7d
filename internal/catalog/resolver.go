package catalog

import (
	"fmt"
	"strings"

	"github.com/hairtech/claimflow/pkg/models"
)

// serialPrefixes maps a serial number prefix (the segment before the first
// hyphen) to the product it belongs to. Serial evidence outranks a
// conflicting name match.
var serialPrefixes = map[string]string{
	"PS3K": "HD-PRO-001",
	"PS5K": "HD-PRO-002",
	"TMC":  "HD-TRV-001",
	"TMP":  "HD-TRV-002",
	"SE7K": "HD-SLN-001",
	"SE9K": "HD-SLN-002",
	"EB":   "HD-ECO-001",
	"KG":   "HD-KDS-001",
	"IF2K": "HD-ION-001",
	"QDE":  "HD-QCK-001",
}

// Resolver resolves product mentions against a catalog and policy index.
type Resolver struct {
	catalog     *Catalog
	index       *PolicyIndex
	policiesDir string
}

// NewResolver builds a resolver over a loaded catalog and policy index.
func NewResolver(catalog *Catalog, index *PolicyIndex, policiesDir string) *Resolver {
	return &Resolver{catalog: catalog, index: index, policiesDir: policiesDir}
}

// normalize lowercases, trims, and replaces separator characters so that
// "TravelMate-Pro" and "travelmate pro" compare equal.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

// matchByName finds the best catalog match for a product mention.
// Exact matches on name, product id, or alias score 1.0; partial containment
// scores len(candidate)/len(mention), capped at 0.9 for product-name partials.
func (r *Resolver) matchByName(mention string) (*Product, float64) {
	if mention == "" {
		return nil, 0
	}
	norm := normalize(mention)
	if norm == "" {
		return nil, 0
	}

	var best *Product
	var bestScore float64

	for i := range r.catalog.Products {
		p := &r.catalog.Products[i]
		if normalize(p.Name) == norm || normalize(p.ProductID) == norm {
			return p, 1.0
		}
		for _, alias := range p.Aliases {
			aliasNorm := normalize(alias)
			if aliasNorm == "" {
				continue
			}
			if aliasNorm == norm {
				return p, 1.0
			}
			if strings.Contains(norm, aliasNorm) || strings.Contains(aliasNorm, norm) {
				score := float64(len(aliasNorm)) / float64(max(len(norm), 1))
				if score > bestScore {
					bestScore = score
					best = p
				}
			}
		}
		nameNorm := normalize(p.Name)
		if strings.Contains(norm, nameNorm) || strings.Contains(nameNorm, norm) {
			score := float64(len(nameNorm)) / float64(max(len(norm), 1))
			if score > bestScore {
				bestScore = min(score, 0.9)
				best = p
			}
		}
	}

	return best, bestScore
}

// matchBySerial looks up the serial prefix table. The prefix is the segment
// before the first hyphen; serials without a hyphen carry no usable prefix.
func (r *Resolver) matchBySerial(serial string) *Product {
	if serial == "" || !strings.Contains(serial, "-") {
		return nil
	}
	prefix := strings.ToUpper(serial[:strings.Index(serial, "-")])
	productID, ok := serialPrefixes[prefix]
	if !ok {
		return nil
	}
	return r.catalog.ByID(productID)
}

// Resolve turns a product mention plus optional serial and purchase date into
// a resolution. A no-match result has a nil product and confidence 0; that
// is a valid terminal state that drives a NEED_INFO outcome downstream, not
// an error.
func (r *Resolver) Resolve(mention, serial, purchaseDate string) *models.Resolution {
	if len(r.catalog.Products) == 0 {
		res := &models.Resolution{Reason: "Product catalog not available"}
		if mention != "" {
			res.ProductName = &mention
		}
		return res
	}

	bySerial := r.matchBySerial(serial)
	byName, nameScore := r.matchByName(mention)

	var match *Product
	var confidence float64
	var reason string

	switch {
	case bySerial != nil && byName != nil && byName.ProductID == bySerial.ProductID:
		match = byName
		confidence = 1.0
		reason = "Matched by both serial number and product name"
	case bySerial != nil:
		match = bySerial
		confidence = 0.95
		reason = "Matched by serial number prefix"
	case byName != nil:
		match = byName
		confidence = nameScore
		reason = fmt.Sprintf("Matched by product name (confidence: %.0f%%)", nameScore*100)
	default:
		res := &models.Resolution{Reason: "No product match found"}
		if mention != "" {
			res.ProductName = &mention
		}
		return res
	}

	res := &models.Resolution{
		ProductID:       &match.ProductID,
		ProductName:     &match.Name,
		ProductCategory: &match.Category,
		MatchConfidence: confidence,
	}

	entry := r.index.SelectPolicy(match.ProductID, purchaseDate)
	policyFile := match.PolicyFile
	if entry != nil {
		policyFile = entry.PolicyFile
		res.PolicyID = &entry.PolicyID
		res.PolicyVersion = &entry.Version
		res.PolicyEffective = &entry.EffectiveDate
		res.Requirements = append([]string(nil), entry.Requirements...)
		res.ExclusionKeywords = append([]string(nil), entry.ExclusionKeywords...)
		reason += fmt.Sprintf(" | Policy: %s (%s)", entry.PolicyID, entry.Version)
	}

	if policyFile != "" {
		if PolicyFileExists(r.policiesDir, policyFile) {
			res.PolicyFile = &policyFile
		} else {
			reason += fmt.Sprintf(" (Warning: policy file not found: %s)", policyFile)
		}
	}

	res.Reason = reason
	return res
}
