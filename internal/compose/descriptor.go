// Package compose reads per-component docker compose descriptors and merges
// them into a single descriptor with collision-free service names.
package compose

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DescriptorNames are the file names searched for in a component directory,
// in order of preference.
var DescriptorNames = []string{
	"docker-compose.yml",
	"docker-compose.yaml",
	"compose.yml",
	"compose.yaml",
}

// ErrNoDescriptor is returned when a directory holds none of DescriptorNames.
var ErrNoDescriptor = errors.New("no compose descriptor found")

// Descriptor is a compose file. Only the sections the merger rewrites are
// typed; everything else is carried in Extra untouched.
type Descriptor struct {
	Services map[string]Service `yaml:"services"`
	Volumes  map[string]any     `yaml:"volumes,omitempty"`
	Networks map[string]any     `yaml:"networks,omitempty"`
	Secrets  map[string]any     `yaml:"secrets,omitempty"`
	Configs  map[string]any     `yaml:"configs,omitempty"`
	Extra    map[string]any     `yaml:",inline"`
}

// Service is one entry under services. Fields the merger does not touch are
// preserved in Extra.
type Service struct {
	ContainerName string         `yaml:"container_name,omitempty"`
	Labels        Labels         `yaml:"labels,omitempty"`
	DependsOn     DependsOn      `yaml:"depends_on,omitempty"`
	Extra         map[string]any `yaml:",inline"`
}

// Labels accepts both the mapping and the "key=value" list form.
type Labels map[string]string

func (l *Labels) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		var m map[string]string
		if err := node.Decode(&m); err != nil {
			return err
		}
		*l = m
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		m := make(map[string]string, len(items))
		for _, item := range items {
			k, v, _ := strings.Cut(item, "=")
			m[k] = v
		}
		*l = m
	default:
		return fmt.Errorf("line %d: labels must be a mapping or a list", node.Line)
	}
	return nil
}

// DependsOn accepts both the list form and the mapping form. In list form
// every value is nil.
type DependsOn map[string]any

func (d *DependsOn) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		m := make(DependsOn, len(names))
		for _, n := range names {
			m[n] = nil
		}
		*d = m
	case yaml.MappingNode:
		var m map[string]any
		if err := node.Decode(&m); err != nil {
			return err
		}
		*d = m
	default:
		return fmt.Errorf("line %d: depends_on must be a list or a mapping", node.Line)
	}
	return nil
}

// MarshalYAML emits the list form when no dependency carries options.
func (d DependsOn) MarshalYAML() (any, error) {
	for _, v := range d {
		if v != nil {
			return map[string]any(d), nil
		}
	}
	names := make([]string, 0, len(d))
	for n := range d {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Prefixed returns a copy with every dependency renamed to prefix+name.
func (d DependsOn) Prefixed(prefix string) DependsOn {
	if d == nil {
		return nil
	}
	out := make(DependsOn, len(d))
	for name, opts := range d {
		out[prefix+name] = opts
	}
	return out
}

// Parse decodes a compose descriptor. A descriptor without services is an error.
func Parse(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	if len(d.Services) == 0 {
		return nil, fmt.Errorf("descriptor defines no services")
	}
	return &d, nil
}

// FindDescriptor returns the path of the first descriptor file in dir.
func FindDescriptor(fsys afero.Fs, dir string) (string, error) {
	for _, name := range DescriptorNames {
		path := filepath.Join(dir, name)
		info, err := fsys.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("checking %s: %w", path, err)
		}
		if info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s: %w", dir, ErrNoDescriptor)
}

// LoadDescriptor finds and parses the compose descriptor in dir.
func LoadDescriptor(fsys afero.Fs, dir string) (*Descriptor, string, error) {
	path, err := FindDescriptor(fsys, dir)
	if err != nil {
		return nil, "", err
	}

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, path, fmt.Errorf("reading %s: %w", path, err)
	}

	d, err := Parse(data)
	if err != nil {
		return nil, path, fmt.Errorf("parsing %s: %w", path, err)
	}
	return d, path, nil
}
