package compose

import (
	"path"
	"sort"
	"strings"
)

// rewriter moves one component's descriptor into the merged namespace:
// service and top-level resource names get the component prefix and relative
// paths are re-anchored under the component's directory, which sits next to
// the merged descriptor.
type rewriter struct {
	component string
	volumes   map[string]bool
	networks  map[string]bool
	secrets   map[string]bool
	configs   map[string]bool
}

func newRewriter(component string, d *Descriptor) *rewriter {
	return &rewriter{
		component: component,
		volumes:   keySet(d.Volumes),
		networks:  keySet(d.Networks),
		secrets:   keySet(d.Secrets),
		configs:   keySet(d.Configs),
	}
}

func keySet(m map[string]any) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func (r *rewriter) name(n string) string {
	return ServiceName(r.component, n)
}

// anchor rewrites a path relative to the component's directory so it stays
// valid relative to the merged descriptor. Absolute, home-relative and remote
// paths are returned unchanged.
func (r *rewriter) anchor(p string) string {
	if p == "" || path.IsAbs(p) || strings.HasPrefix(p, "~") ||
		strings.Contains(p, "://") || strings.HasPrefix(p, "git@") {
		return p
	}
	return "./" + path.Join(r.component, p)
}

// service returns the pass-through fields of a service with every reference
// to component-local names and paths rewritten.
func (r *rewriter) service(extra map[string]any) map[string]any {
	if extra == nil {
		return nil
	}
	out := make(map[string]any, len(extra))
	for k, v := range extra {
		out[k] = v
	}

	if v, ok := out["build"]; ok {
		out["build"] = r.build(v)
	}
	if v, ok := out["env_file"]; ok {
		out["env_file"] = r.envFile(v)
	}
	if v, ok := out["volumes"]; ok {
		out["volumes"] = r.serviceVolumes(v)
	}
	if v, ok := out["links"]; ok {
		out["links"] = mapStrings(v, r.link)
	}
	if v, ok := out["volumes_from"]; ok {
		out["volumes_from"] = mapStrings(v, r.volumesFrom)
	}
	if v, ok := out["network_mode"].(string); ok {
		if svc, found := strings.CutPrefix(v, "service:"); found {
			out["network_mode"] = "service:" + r.name(svc)
		}
	}
	if v, ok := out["extends"]; ok {
		out["extends"] = r.extends(v)
	}
	if v, ok := out["networks"]; ok {
		out["networks"] = r.references(v, r.networks, nil)
	}
	if v, ok := out["secrets"]; ok {
		out["secrets"] = r.references(v, r.secrets, secretTarget)
	}
	if v, ok := out["configs"]; ok {
		out["configs"] = r.references(v, r.configs, configTarget)
	}
	return out
}

func (r *rewriter) build(v any) any {
	switch b := v.(type) {
	case string:
		return r.anchor(b)
	case map[string]any:
		out := copyMap(b)
		ctx, _ := out["context"].(string)
		if ctx == "" {
			ctx = "."
		}
		out["context"] = r.anchor(ctx)
		return out
	}
	return v
}

func (r *rewriter) envFile(v any) any {
	switch e := v.(type) {
	case string:
		return r.anchor(e)
	case []any:
		out := make([]any, len(e))
		for i, item := range e {
			switch f := item.(type) {
			case string:
				out[i] = r.anchor(f)
			case map[string]any:
				m := copyMap(f)
				if p, ok := m["path"].(string); ok {
					m["path"] = r.anchor(p)
				}
				out[i] = m
			default:
				out[i] = item
			}
		}
		return out
	}
	return v
}

// serviceVolumes handles both "source:target[:mode]" strings and the long
// mapping syntax.
func (r *rewriter) serviceVolumes(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]any, len(list))
	for i, item := range list {
		switch vol := item.(type) {
		case string:
			out[i] = r.shortVolume(vol)
		case map[string]any:
			m := copyMap(vol)
			if src, ok := m["source"].(string); ok {
				m["source"] = r.volumeSource(src)
			}
			out[i] = m
		default:
			out[i] = item
		}
	}
	return out
}

func (r *rewriter) shortVolume(spec string) string {
	src, rest, found := strings.Cut(spec, ":")
	if !found {
		// Anonymous volume, only a container path
		return spec
	}
	return r.volumeSource(src) + ":" + rest
}

func (r *rewriter) volumeSource(src string) string {
	if r.volumes[src] {
		return r.name(src)
	}
	if strings.HasPrefix(src, ".") {
		return r.anchor(src)
	}
	return src
}

// link rewrites "service[:alias]". The original name is kept as the alias so
// the linked container stays reachable under the hostname the component expects.
func (r *rewriter) link(l string) string {
	svc, alias, found := strings.Cut(l, ":")
	if !found {
		alias = svc
	}
	return r.name(svc) + ":" + alias
}

func (r *rewriter) volumesFrom(v string) string {
	if strings.HasPrefix(v, "container:") {
		return v
	}
	svc, mode, found := strings.Cut(v, ":")
	if found {
		return r.name(svc) + ":" + mode
	}
	return r.name(svc)
}

func (r *rewriter) extends(v any) any {
	switch e := v.(type) {
	case string:
		return r.name(e)
	case map[string]any:
		out := copyMap(e)
		if file, ok := out["file"].(string); ok {
			// The base service lives in another file and keeps its name there
			out["file"] = r.anchor(file)
			return out
		}
		if svc, ok := out["service"].(string); ok {
			out["service"] = r.name(svc)
		}
		return out
	}
	return v
}

// references renames entries of a service's networks, secrets or configs
// that point at resources declared by the component. Both the list form and
// the mapping form (networks) or long syntax (secrets, configs) are accepted.
// When target is set, renamed resources get an explicit mount target so they
// appear inside the container where they did before the rename.
func (r *rewriter) references(v any, declared map[string]bool, target func(string) string) any {
	rename := func(n string) string {
		if declared[n] {
			return r.name(n)
		}
		return n
	}
	switch refs := v.(type) {
	case []any:
		out := make([]any, len(refs))
		for i, item := range refs {
			switch ref := item.(type) {
			case string:
				if target != nil && declared[ref] {
					out[i] = map[string]any{"source": r.name(ref), "target": target(ref)}
				} else {
					out[i] = rename(ref)
				}
			case map[string]any:
				m := copyMap(ref)
				if src, ok := m["source"].(string); ok {
					if _, hasTarget := m["target"]; !hasTarget && target != nil && declared[src] {
						m["target"] = target(src)
					}
					m["source"] = rename(src)
				}
				out[i] = m
			default:
				out[i] = item
			}
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(refs))
		for n, opts := range refs {
			out[rename(n)] = opts
		}
		return out
	}
	return v
}

func secretTarget(name string) string { return name }

func configTarget(name string) string { return "/" + name }

// resources prefixes the keys of a top-level volumes, networks, secrets or
// configs section. External resources keep their real name through "name",
// and file-backed secrets and configs are re-anchored.
func (r *rewriter) resources(section map[string]any) map[string]any {
	if len(section) == 0 {
		return nil
	}
	out := make(map[string]any, len(section))
	for n, def := range section {
		m, ok := def.(map[string]any)
		if !ok {
			out[r.name(n)] = def
			continue
		}
		m = copyMap(m)
		if external, _ := m["external"].(bool); external {
			if _, named := m["name"]; !named {
				m["name"] = n
			}
		}
		if file, ok := m["file"].(string); ok {
			m["file"] = r.anchor(file)
		}
		out[r.name(n)] = m
	}
	return out
}

func mapStrings(v any, fn func(string) string) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]any, len(list))
	for i, item := range list {
		if s, ok := item.(string); ok {
			out[i] = fn(s)
		} else {
			out[i] = item
		}
	}
	return out
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
