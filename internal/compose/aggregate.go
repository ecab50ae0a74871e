package compose

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/spachava753/ctictl/internal/models"
	"github.com/spachava753/ctictl/internal/util"
)

const (
	// Separator joins a component id and a service name.
	Separator = "_"
	// ComponentLabel records the owning component on every merged service.
	ComponentLabel = "ctictl.component"
	// MergedFileName is the merged descriptor's name inside the connectors path.
	MergedFileName = "docker-compose.merged.yml"
)

// MergedPath returns the deterministic location of the merged descriptor.
func MergedPath(connectorsPath string) string {
	return filepath.Join(connectorsPath, MergedFileName)
}

// ServiceName returns the collision-free name of a component's service.
func ServiceName(component, service string) string {
	return component + Separator + service
}

// Aggregate merges the descriptors of every immediate subdirectory of
// connectorsPath. Subdirectories are visited in lexical order and hidden ones
// are ignored. A subdirectory without a usable descriptor is recorded in the
// report and skipped; only an unreadable connectorsPath is returned as an error.
func Aggregate(fsys afero.Fs, connectorsPath string) (*Descriptor, models.AggregateReport, error) {
	var report models.AggregateReport

	// afero.ReadDir returns entries sorted by name
	entries, err := afero.ReadDir(fsys, connectorsPath)
	if err != nil {
		return nil, report, fmt.Errorf("reading connectors directory: %w", err)
	}

	m := newMerger()
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		component := entry.Name()
		dir := filepath.Join(connectorsPath, component)

		d, path, err := LoadDescriptor(fsys, dir)
		if err != nil {
			skipped := models.SkippedDir{Dir: component, Error: classify(component, err)}
			slog.Warn("skipping component without usable compose descriptor",
				"component", component, "error", skipped.Error.Message)
			report.Skipped = append(report.Skipped, skipped)
			continue
		}

		added := m.add(component, d)
		slog.Debug("merged component descriptor", "component", component, "path", path, "services", added)
		report.Components = append(report.Components, component)
	}

	report.Services = len(m.out.Services)
	report.Collisions = m.collisions
	return m.out, report, nil
}

func classify(component string, err error) models.ComponentError {
	t := models.ErrParse
	if errors.Is(err, ErrNoDescriptor) {
		t = models.ErrNotFound
	}
	e := models.NewError(t, component, err)
	return models.ComponentError{Type: t, Message: e.Error()}
}

// merger accumulates descriptors. The first definition of a name wins and
// every later one is recorded as a collision.
type merger struct {
	out        *Descriptor
	owners     map[string]map[string]string // kind -> name -> component
	collisions []models.Collision
}

func newMerger() *merger {
	return &merger{
		out:    &Descriptor{Services: make(map[string]Service)},
		owners: make(map[string]map[string]string),
	}
}

func (m *merger) add(component string, d *Descriptor) int {
	rw := newRewriter(component, d)

	added := 0
	for _, name := range sortedKeys(d.Services) {
		svc := d.Services[name]
		unique := ServiceName(component, name)
		if !m.claim("service", unique, component) {
			continue
		}

		labels := make(Labels, len(svc.Labels)+1)
		for k, v := range svc.Labels {
			labels[k] = v
		}
		labels[ComponentLabel] = component

		m.out.Services[unique] = Service{
			ContainerName: unique,
			Labels:        labels,
			DependsOn:     svc.DependsOn.Prefixed(component + Separator),
			Extra:         rw.service(svc.Extra),
		}
		added++
	}

	m.out.Volumes = m.union("volume", component, m.out.Volumes, rw.resources(d.Volumes))
	m.out.Networks = m.union("network", component, m.out.Networks, rw.resources(d.Networks))
	m.out.Secrets = m.union("secret", component, m.out.Secrets, rw.resources(d.Secrets))
	m.out.Configs = m.union("config", component, m.out.Configs, rw.resources(d.Configs))

	for key := range d.Extra {
		slog.Debug("dropping top-level key from merged descriptor", "component", component, "key", key)
	}
	return added
}

// union adds a component's already prefixed top-level definitions to dst.
func (m *merger) union(kind, component string, dst, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for _, name := range sortedKeys(src) {
		if !m.claim(kind, name, component) {
			continue
		}
		dst[name] = src[name]
	}
	return dst
}

// claim records component as the owner of name and reports whether it was free.
func (m *merger) claim(kind, name, component string) bool {
	owners, ok := m.owners[kind]
	if !ok {
		owners = make(map[string]string)
		m.owners[kind] = owners
	}
	if owner, taken := owners[name]; taken {
		c := models.Collision{Kind: kind, Name: name, Kept: owner, Dropped: component}
		err := models.Errorf(models.ErrMergeCollision, component, "%s %q already defined by %s", kind, name, owner)
		slog.Warn("merge collision", "kind", kind, "name", name, "kept", owner, "dropped", component, "error", err)
		m.collisions = append(m.collisions, c)
		return false
	}
	owners[name] = component
	return true
}

// Marshal encodes the descriptor with two-space indentation. Mapping keys are
// emitted in sorted order, so equal descriptors encode identically.
func Marshal(d *Descriptor) ([]byte, error) {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// Write serializes d to path, replacing any previous file atomically.
func Write(fsys afero.Fs, d *Descriptor, path string) error {
	data, err := Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding merged descriptor: %w", err)
	}
	if err := util.WriteFileAtomic(fsys, path, data, 0644); err != nil {
		return fmt.Errorf("writing merged descriptor: %w", err)
	}
	slog.Info("merged descriptor written", "path", path, "services", len(d.Services))
	return nil
}

// Merge aggregates connectorsPath and writes the result to its merged path.
func Merge(fsys afero.Fs, connectorsPath string) (models.AggregateReport, error) {
	merged, report, err := Aggregate(fsys, connectorsPath)
	if err != nil {
		return report, err
	}
	return report, Write(fsys, merged, MergedPath(connectorsPath))
}
