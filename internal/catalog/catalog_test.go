package catalog

import (
	"testing"

	"github.com/spachava753/ctictl/internal/models"
)

func component(id string) models.ComponentDescriptor {
	return models.ComponentDescriptor{
		ID:        id,
		SourceURL: "https://github.com/example/" + id + ".git",
		Branch:    "main",
		Category:  models.CategoryConnectorExport,
	}
}

func TestNew(t *testing.T) {
	withURL := func(c models.ComponentDescriptor, url string) models.ComponentDescriptor {
		c.SourceURL = url
		return c
	}
	withBranch := func(c models.ComponentDescriptor, branch string) models.ComponentDescriptor {
		c.Branch = branch
		return c
	}
	withCategory := func(c models.ComponentDescriptor, cat models.Category) models.ComponentDescriptor {
		c.Category = cat
		return c
	}

	tests := []struct {
		name       string
		components []models.ComponentDescriptor
		wantErr    bool
	}{
		{"valid", []models.ComponentDescriptor{component("a"), component("b.c-d_e")}, false},
		{"empty catalog", nil, false},
		{"duplicate id", []models.ComponentDescriptor{component("a"), component("a")}, true},
		{"empty id", []models.ComponentDescriptor{component("")}, true},
		{"path separator", []models.ComponentDescriptor{component("a/b")}, true},
		{"dot dot", []models.ComponentDescriptor{component("..")}, true},
		{"leading dot", []models.ComponentDescriptor{component(".hidden")}, true},
		{"empty url", []models.ComponentDescriptor{withURL(component("a"), " ")}, true},
		{"empty branch", []models.ComponentDescriptor{withBranch(component("a"), "")}, true},
		{"unknown category", []models.ComponentDescriptor{withCategory(component("a"), "connector-stream")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.components)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !models.IsType(err, models.ErrCatalog) {
				t.Errorf("expected catalog_error, got %v", err)
			}
		})
	}
}

func TestCatalogIsolation(t *testing.T) {
	c, err := New([]models.ComponentDescriptor{component("a"), component("b")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	all := c.All()
	all[0].ID = "mutated"
	ids := c.IDs()
	ids[1] = "mutated"

	if got, _ := c.Get("a"); got.ID != "a" {
		t.Error("mutating All() result leaked into the catalog")
	}
	if c.IDs()[1] != "b" {
		t.Error("mutating IDs() result leaked into the catalog")
	}
}
