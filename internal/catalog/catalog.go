// Package catalog holds the static category/product listing offered to users.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownCategory is returned when a category is not present in the catalog.
var ErrUnknownCategory = errors.New("unknown category")

// Catalog is an immutable, order-preserving mapping of categories to products.
type Catalog struct {
	order    []string
	products map[string][]string
}

type fileEntry struct {
	Name     string   `yaml:"name"`
	Products []string `yaml:"products"`
}

type fileCatalog struct {
	Categories []fileEntry `yaml:"categories"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := build([]fileEntry{
		{Name: "Clothing", Products: []string{"T-Shirt", "Jeans", "Jacket"}},
		{Name: "Electronics", Products: []string{"Smartphone", "Laptop", "Headphones"}},
	})
	if err != nil {
		// The built-in data is validated by tests; this is unreachable.
		panic(err)
	}
	return c
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var fc fileCatalog
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	c, err := build(fc.Categories)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return c, nil
}

func build(entries []fileEntry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, errors.New("catalog has no categories")
	}
	c := &Catalog{products: make(map[string][]string, len(entries))}
	seenProducts := make(map[string]string)
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, errors.New("category name must not be empty")
		}
		if _, dup := c.products[name]; dup {
			return nil, fmt.Errorf("duplicate category %q", name)
		}
		if len(e.Products) == 0 {
			return nil, fmt.Errorf("category %q has no products", name)
		}
		products := make([]string, 0, len(e.Products))
		for _, p := range e.Products {
			p = strings.TrimSpace(p)
			if p == "" {
				return nil, fmt.Errorf("category %q has an empty product name", name)
			}
			if owner, dup := seenProducts[p]; dup {
				return nil, fmt.Errorf("product %q listed under both %q and %q", p, owner, name)
			}
			seenProducts[p] = name
			products = append(products, p)
		}
		c.order = append(c.order, name)
		c.products[name] = products
	}
	return c, nil
}

// Categories returns category names in catalog order.
func (c *Catalog) Categories() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// ProductsOf returns the product names of a category in catalog order.
func (c *Catalog) ProductsOf(category string) ([]string, error) {
	products, ok := c.products[category]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	out := make([]string, len(products))
	copy(out, products)
	return out, nil
}

// Contains reports whether the category exists.
func (c *Catalog) Contains(category string) bool {
	_, ok := c.products[category]
	return ok
}

// HasProduct reports whether product is listed under category.
func (c *Catalog) HasProduct(category, product string) bool {
	for _, p := range c.products[category] {
		if p == product {
			return true
		}
	}
	return false
}
