// Package catalog maps free-text product mentions to catalog entries and
// dated warranty policy versions.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Product is one entry of the product catalog.
type Product struct {
	ProductID  string   `json:"product_id"`
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Aliases    []string `json:"aliases"`
	PolicyFile string   `json:"policy_file"`
}

// ReturnAddress is the company address printed on return labels.
type ReturnAddress struct {
	Name    string `json:"name"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Catalog is the full product catalog file.
type Catalog struct {
	Products      []Product      `json:"products"`
	ReturnAddress *ReturnAddress `json:"return_address,omitempty"`
}

// LoadCatalog reads a product catalog JSON file. A missing file yields an
// empty catalog, not an error; resolution against an empty catalog is a
// valid no-match outcome.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Catalog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", filepath.Base(path), err)
	}
	return &c, nil
}

// Validate checks minimum schema requirements and returns one message per
// problem found.
func (c *Catalog) Validate() []string {
	var errs []string
	seen := make(map[string]bool)
	for i, p := range c.Products {
		prefix := fmt.Sprintf("products[%d]", i)
		if p.ProductID == "" {
			errs = append(errs, prefix+".product_id is required")
		}
		if p.Name == "" {
			errs = append(errs, prefix+".name is required")
		}
		if p.PolicyFile == "" {
			errs = append(errs, prefix+".policy_file is required")
		}
		if p.ProductID != "" && seen[p.ProductID] {
			errs = append(errs, "duplicate product_id: "+p.ProductID)
		}
		seen[p.ProductID] = true
	}
	return errs
}

// ByID returns the product with the given ID, or nil.
func (c *Catalog) ByID(id string) *Product {
	for i := range c.Products {
		if c.Products[i].ProductID == id {
			return &c.Products[i]
		}
	}
	return nil
}
