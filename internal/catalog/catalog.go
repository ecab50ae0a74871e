package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spachava753/ctictl/internal/models"
)

// idPattern restricts ids to a single safe filesystem path segment.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Catalog is the immutable set of components known to ctictl.
type Catalog struct {
	order []string
	byID  map[string]models.ComponentDescriptor
}

// New validates components and builds a Catalog preserving their order.
func New(components []models.ComponentDescriptor) (*Catalog, error) {
	c := &Catalog{
		order: make([]string, 0, len(components)),
		byID:  make(map[string]models.ComponentDescriptor, len(components)),
	}

	for i, comp := range components {
		if err := validate(comp); err != nil {
			return nil, models.Errorf(models.ErrCatalog, comp.ID, "component[%d]: %w", i, err)
		}
		if _, dup := c.byID[comp.ID]; dup {
			return nil, models.Errorf(models.ErrCatalog, comp.ID, "component[%d]: duplicate id %q", i, comp.ID)
		}
		c.order = append(c.order, comp.ID)
		c.byID[comp.ID] = comp
	}

	return c, nil
}

func validate(comp models.ComponentDescriptor) error {
	if comp.ID == "" {
		return fmt.Errorf("id must not be empty")
	}
	if !idPattern.MatchString(comp.ID) || comp.ID == "." || comp.ID == ".." {
		return fmt.Errorf("id %q is not a safe path segment", comp.ID)
	}
	if strings.TrimSpace(comp.SourceURL) == "" {
		return fmt.Errorf("url must not be empty")
	}
	if strings.TrimSpace(comp.Branch) == "" {
		return fmt.Errorf("branch must not be empty")
	}
	if !comp.Category.Valid() {
		return fmt.Errorf("unknown category %q", comp.Category)
	}
	return nil
}

// Get returns the component with the given id.
func (c *Catalog) Get(id string) (models.ComponentDescriptor, bool) {
	comp, ok := c.byID[id]
	return comp, ok
}

// Has reports whether id is in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// All returns every component in declaration order. The slice is a copy.
func (c *Catalog) All() []models.ComponentDescriptor {
	out := make([]models.ComponentDescriptor, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// IDs returns every component id in declaration order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// Len returns the number of components.
func (c *Catalog) Len() int {
	return len(c.order)
}
