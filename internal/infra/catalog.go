package infra

import (
	"fmt"
	"os"

	"carbon_market/internal/domain"

	"gopkg.in/yaml.v3"
)

// LoadCatalog reads the item catalog from a YAML file. An empty path
// returns the built-in default catalog.
func LoadCatalog(path string) (*domain.Catalog, error) {
	if path == "" {
		return domain.DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var catalog domain.Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return &catalog, nil
}
