package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/spachava753/ctictl/internal/models"
)

//go:embed catalog.toml
var defaultCatalog []byte

// file is the on-disk layout of a catalog.toml.
type file struct {
	Components []models.ComponentDescriptor `toml:"components"`
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes a TOML catalog and validates it.
func Parse(data []byte) (*Catalog, error) {
	var f file
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, models.NewError(models.ErrCatalog, "", fmt.Errorf("parsing catalog TOML: %w", err))
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, models.Errorf(models.ErrCatalog, "", "unknown catalog keys: %v", undecoded)
	}
	return New(f.Components)
}

// LoadFromPath loads a catalog.toml from a local filesystem path.
func LoadFromPath(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.NewError(models.ErrCatalog, "", fmt.Errorf("reading catalog file: %w", err))
	}
	return Parse(data)
}

// LoadFromURL loads a catalog.toml from a remote URL.
func LoadFromURL(ctx context.Context, url string) (*Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, models.NewError(models.ErrCatalog, "", fmt.Errorf("creating request: %w", err))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, models.NewError(models.ErrCatalog, "", fmt.Errorf("fetching catalog: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, models.Errorf(models.ErrCatalog, "", "fetching catalog: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewError(models.ErrCatalog, "", fmt.Errorf("reading response body: %w", err))
	}

	return Parse(data)
}

// Load resolves source to a catalog: empty means the embedded default, an
// http(s) URL is fetched, anything else is read from disk.
func Load(ctx context.Context, source string) (*Catalog, error) {
	switch {
	case source == "":
		return Default()
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return LoadFromURL(ctx, source)
	default:
		return LoadFromPath(source)
	}
}
