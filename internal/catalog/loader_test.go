package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spachava753/ctictl/internal/models"
)

const testCatalog = `
[[components]]
id = "platform"
name = "Platform"
url = "https://github.com/example/platform.git"
branch = "main"
required = true
category = "platform"

[[components]]
id = "connector-a"
name = "Connector A"
url = "https://github.com/example/connector-a.git"
branch = "master"
category = "connector-import"
`

func TestDefault(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}

	if c.Len() == 0 {
		t.Fatal("expected embedded catalog to contain components")
	}

	platform, ok := c.Get("opencti")
	if !ok {
		t.Fatal("expected opencti in embedded catalog")
	}
	if !platform.Required {
		t.Error("expected opencti to be required")
	}
	if platform.IsConnector() {
		t.Error("platform must not be a connector")
	}

	var connectors int
	for _, comp := range c.All() {
		if comp.IsConnector() {
			connectors++
		}
	}
	if connectors == 0 {
		t.Error("expected at least one connector in embedded catalog")
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "catalog.toml")
	if err := os.WriteFile(path, []byte(testCatalog), 0644); err != nil {
		t.Fatalf("writing test catalog: %v", err)
	}

	c, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if got := c.IDs(); len(got) != 2 || got[0] != "platform" || got[1] != "connector-a" {
		t.Errorf("expected ids [platform connector-a] in order, got %v", got)
	}

	a, _ := c.Get("connector-a")
	if a.Category != models.CategoryConnectorImport {
		t.Errorf("expected category connector-import, got %q", a.Category)
	}
	if a.Required {
		t.Error("expected connector-a to default to not required")
	}
}

func TestLoadFromPath_NotFound(t *testing.T) {
	_, err := LoadFromPath("/nonexistent/path/catalog.toml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
	if !models.IsType(err, models.ErrCatalog) {
		t.Errorf("expected catalog_error, got %v", err)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid toml", "[[components]\nid ="},
		{"unknown key", "[[components]]\nid = \"a\"\nurl = \"u\"\nbranch = \"b\"\ncategory = \"platform\"\nowner = \"me\""},
		{"missing url", "[[components]]\nid = \"a\"\nbranch = \"b\"\ncategory = \"platform\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/toml")
		w.Write([]byte(testCatalog))
	}))
	defer server.Close()

	c, err := LoadFromURL(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("LoadFromURL: %v", err)
	}

	if c.Len() != 2 {
		t.Errorf("expected 2 components, got %d", c.Len())
	}
}

func TestLoadFromURL_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := LoadFromURL(context.Background(), server.URL)
	if err == nil {
		t.Error("expected error for HTTP 404")
	}
}

func TestLoad_Dispatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testCatalog))
	}))
	defer server.Close()

	fromURL, err := Load(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Load(url): %v", err)
	}
	if !fromURL.Has("connector-a") {
		t.Error("expected URL catalog to contain connector-a")
	}

	def, err := Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if !def.Has("opencti") {
		t.Error("expected default catalog for empty source")
	}
}
