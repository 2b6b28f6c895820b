package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"cpiview/internal/core"
)

// catalogFile is the YAML shape of a series catalog override.
type catalogFile struct {
	Series []core.CatalogEntry `yaml:"series"`
}

// LoadCatalog reads the series catalog from the configured YAML file, falling
// back to the built-in CPI set when no file is configured.
func LoadCatalog(path string) (*core.Catalog, error) {
	if path == "" {
		return core.DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read series catalog: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse series catalog: %w", err)
	}

	catalog := core.NewCatalog(f.Series)
	if catalog.Len() == 0 {
		return nil, fmt.Errorf("series catalog %s defines no usable series", path)
	}
	return catalog, nil
}
