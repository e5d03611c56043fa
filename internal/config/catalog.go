package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/michael213532/ai-debate/internal/domain"
)

//go:embed models.yaml
var defaultCatalog []byte

// Catalog lists the models offered to clients, grouped by provider.
type Catalog struct {
	Providers []CatalogProvider `yaml:"providers"`
}

// CatalogProvider is one vendor in the catalog.
type CatalogProvider struct {
	ID     string         `yaml:"id"`
	Name   string         `yaml:"name"`
	Models []CatalogModel `yaml:"models"`
}

// CatalogModel is one model of a vendor.
type CatalogModel struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("config: built-in catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog file. An empty path yields the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse model catalog: %w", err)
	}
	seen := make(map[string]bool)
	for _, p := range c.Providers {
		if p.ID == "" {
			return nil, fmt.Errorf("model catalog: provider without id")
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("model catalog: duplicate provider %q", p.ID)
		}
		seen[p.ID] = true
		for _, m := range p.Models {
			if m.ID == "" {
				return nil, fmt.Errorf("model catalog: provider %q has a model without id", p.ID)
			}
		}
	}
	return &c, nil
}

// Models flattens the catalog.
func (c *Catalog) Models() []domain.ModelInfo {
	var out []domain.ModelInfo
	for _, p := range c.Providers {
		for _, m := range p.Models {
			out = append(out, domain.ModelInfo{
				ID:           m.ID,
				Name:         displayName(m),
				Provider:     p.ID,
				ProviderName: p.Name,
			})
		}
	}
	return out
}

// Lookup finds a model of a provider.
func (c *Catalog) Lookup(provider, modelID string) (domain.ModelInfo, bool) {
	for _, p := range c.Providers {
		if p.ID != provider {
			continue
		}
		for _, m := range p.Models {
			if m.ID == modelID {
				return domain.ModelInfo{ID: m.ID, Name: displayName(m), Provider: p.ID, ProviderName: p.Name}, true
			}
		}
	}
	return domain.ModelInfo{}, false
}

// DefaultModel returns the first listed model of a provider.
func (c *Catalog) DefaultModel(provider string) (domain.ModelInfo, bool) {
	for _, p := range c.Providers {
		if p.ID == provider && len(p.Models) > 0 {
			m := p.Models[0]
			return domain.ModelInfo{ID: m.ID, Name: displayName(m), Provider: p.ID, ProviderName: p.Name}, true
		}
	}
	return domain.ModelInfo{}, false
}

// ProviderIDs returns provider ids in catalog order.
func (c *Catalog) ProviderIDs() []string {
	ids := make([]string, 0, len(c.Providers))
	for _, p := range c.Providers {
		ids = append(ids, p.ID)
	}
	return ids
}

func displayName(m CatalogModel) string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}
