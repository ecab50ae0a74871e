package models

import "strings"

// Category classifies a catalog component.
type Category string

const (
	CategoryPlatform                Category = "platform"
	CategoryConnectorImport         Category = "connector-import"
	CategoryConnectorExport         Category = "connector-export"
	CategoryConnectorEnrichment     Category = "connector-enrichment"
	CategoryConnectorExternalImport Category = "connector-external-import"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryPlatform,
		CategoryConnectorImport,
		CategoryConnectorExport,
		CategoryConnectorEnrichment,
		CategoryConnectorExternalImport:
		return true
	}
	return false
}

// IsConnector reports whether c is one of the connector categories.
func (c Category) IsConnector() bool {
	return strings.HasPrefix(string(c), "connector-") && c.Valid()
}

// ComponentDescriptor describes one git-hosted component of the ecosystem.
type ComponentDescriptor struct {
	ID          string   `toml:"id" json:"id"`
	DisplayName string   `toml:"name" json:"name"`
	SourceURL   string   `toml:"url" json:"url"`
	Branch      string   `toml:"branch" json:"branch"`
	Required    bool     `toml:"required" json:"required"`
	Category    Category `toml:"category" json:"category"`
}

// IsConnector reports whether the component is staged into the connectors directory.
func (c ComponentDescriptor) IsConnector() bool {
	return c.Category.IsConnector()
}
