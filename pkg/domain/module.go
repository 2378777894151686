package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// PortSpec describes one named input or output terminal on a module type.
type PortSpec struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Module is the catalog entry for a processing-node type. Catalog data is
// reference-only: immutable for the lifetime of a session and never
// mutated by the graph engine.
type Module struct {
	Type        string     `json:"module_type"`
	DisplayName string     `json:"display_name"`
	Description string     `json:"description,omitempty"`
	Inputs      []PortSpec `json:"inputs"`
	Outputs     []PortSpec `json:"outputs"`
}

// Catalog indexes modules by type.
type Catalog map[string]Module

// NewCatalog builds an index from a module list as returned by the remote
// catalog endpoint.
func NewCatalog(modules []Module) Catalog {
	c := make(Catalog, len(modules))
	for _, m := range modules {
		c[m.Type] = m
	}
	return c
}

// Lookup returns the module entry for a type, or false if unknown.
func (c Catalog) Lookup(moduleType string) (Module, bool) {
	m, ok := c[moduleType]
	return m, ok
}

// DecodeConfig maps a node's opaque config payload onto a typed settings
// struct using "mapstructure" tags. The graph engine itself never
// interprets config; this is a convenience for module implementations
// that do.
func DecodeConfig(config map[string]any, out any) error {
	if err := mapstructure.Decode(config, out); err != nil {
		return fmt.Errorf("failed to decode node config: %w", err)
	}
	return nil
}
