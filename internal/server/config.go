package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/loomengine/loom/pkg/domain"
)

// Config is the reference server configuration, loaded from YAML.
type Config struct {
	// Addr is the listen address, e.g. ":8460".
	Addr string `yaml:"addr"`

	// Redis enables the redis-backed workflow store when Addr is set;
	// otherwise the server runs on the in-memory store.
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	// Workflows are created at startup so editors can open them directly.
	Workflows []string `yaml:"workflows"`

	// Modules overrides the built-in catalog when non-empty.
	Modules []domain.Module `yaml:"modules"`
}

// DefaultConfig returns a runnable local configuration.
func DefaultConfig() Config {
	return Config{
		Addr:      ":8460",
		Workflows: []string{"default"},
	}
}

// LoadConfig reads a YAML config file, applying defaults for unset
// fields.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultConfig().Addr
	}
	return cfg, nil
}

// CatalogOrDefault returns the configured module catalog, or the built-in
// one when none is configured.
func (c Config) CatalogOrDefault() []domain.Module {
	if len(c.Modules) > 0 {
		return c.Modules
	}
	return DefaultCatalog()
}

// DefaultCatalog is the built-in processing-module catalog. Descriptions
// are markdown; the CLI renders them.
func DefaultCatalog() []domain.Module {
	return []domain.Module{
		{
			Type:        "excel_import",
			DisplayName: "Excel Import",
			Description: "Reads an uploaded **Excel** workbook and emits its sheets as tabular data.",
			Outputs:     []domain.PortSpec{{Name: "output", Description: "Imported rows"}},
		},
		{
			Type:        "csv_export",
			DisplayName: "CSV Export",
			Description: "Writes incoming rows to a downloadable **CSV** file.",
			Inputs:      []domain.PortSpec{{Name: "input", Description: "Rows to export"}},
		},
		{
			Type:        "statistics",
			DisplayName: "Statistics",
			Description: "Computes summary statistics (mean, median, deviation) over numeric columns.",
			Inputs:      []domain.PortSpec{{Name: "input"}},
			Outputs:     []domain.PortSpec{{Name: "output", Description: "Summary table"}},
		},
		{
			Type:        "filter",
			DisplayName: "Row Filter",
			Description: "Keeps only the rows matching a configured predicate.",
			Inputs:      []domain.PortSpec{{Name: "input"}},
			Outputs:     []domain.PortSpec{{Name: "output"}},
		},
		{
			Type:        "file_convert",
			DisplayName: "File Converter",
			Description: "Converts between supported tabular file formats.",
			Inputs:      []domain.PortSpec{{Name: "input"}},
			Outputs:     []domain.PortSpec{{Name: "output"}},
		},
	}
}
