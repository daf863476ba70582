// Package compose patches docker-compose YAML files in place — the
// mechanism MetricsExportIntervalTreatment uses to set
// OTEL_METRIC_EXPORT_INTERVAL on a service. Ported from
// original_source/oxn/utils.py's add_env_variable/remove_env_variable.
package compose

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is a minimal parse of a compose file sufficient to read/write a
// service's environment list; unrecognized top-level keys round-trip via
// the inline yaml.Node passthrough so patching never drops unrelated
// compose content.
type File struct {
	raw yaml.Node
}

// Load reads and parses a compose file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("compose: read %s: %w", path, err)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("compose: parse %s: %w", path, err)
	}
	return &File{raw: root}, nil
}

// Save writes the (possibly mutated) compose file back to path.
func (f *File) Save(path string) error {
	data, err := yaml.Marshal(&f.raw)
	if err != nil {
		return fmt.Errorf("compose: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Raw exposes the parsed document for callers needing full YAML node
// access (e.g. otelcol/promcfg's structured patches).
func (f *File) Raw() *yaml.Node { return &f.raw }

func (f *File) document() *yaml.Node {
	if f.raw.Kind == yaml.DocumentNode && len(f.raw.Content) > 0 {
		return f.raw.Content[0]
	}
	return &f.raw
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func serviceNode(doc *yaml.Node, serviceName string) (*yaml.Node, error) {
	services := mappingValue(doc, "services")
	if services == nil {
		return nil, fmt.Errorf("compose: no services section")
	}
	svc := mappingValue(services, serviceName)
	if svc == nil {
		return nil, fmt.Errorf("compose: service %q not found", serviceName)
	}
	return svc, nil
}

// AddEnvVariable sets name=value in serviceName's environment list,
// replacing an existing NAME=... entry or appending a new one — the Go
// port of add_env_variable.
func (f *File) AddEnvVariable(serviceName, name, value string) error {
	svc, err := serviceNode(f.document(), serviceName)
	if err != nil {
		return err
	}

	env := mappingValue(svc, "environment")
	entry := fmt.Sprintf("%s=%s", name, value)
	prefix := name + "="

	if env == nil {
		newEnv := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		newEnv.Content = append(newEnv.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: entry})
		svc.Content = append(svc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "environment"}, newEnv)
		return nil
	}

	for _, item := range env.Content {
		if hasPrefix(item.Value, prefix) {
			item.Value = entry
			return nil
		}
	}
	env.Content = append(env.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: entry})
	return nil
}

// RemoveEnvVariable removes a NAME=VALUE entry from serviceName's
// environment list. This reproduces the original's bug verbatim: Python's
// list.index(item) returns an integer position, and the source then calls
// .remove(idx) — removing by VALUE, not by position, so it silently
// no-ops (or removes the wrong element) whenever idx happens to coincide
// with another list value. oxn preserves this rather than "fixing" it to a
// del-by-index, per spec.md §9's instruction not to silently correct
// observed source ambiguities.
func (f *File) RemoveEnvVariable(serviceName, name, value string) error {
	svc, err := serviceNode(f.document(), serviceName)
	if err != nil {
		return err
	}
	env := mappingValue(svc, "environment")
	if env == nil {
		return fmt.Errorf("compose: service %q has no environment", serviceName)
	}

	entry := fmt.Sprintf("%s=%s", name, value)
	idx := -1
	for i, item := range env.Content {
		if item.Value == entry {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("compose: %s not present in %s's environment", entry, serviceName)
	}

	// Faithful port of list.remove(idx): remove the first element whose
	// VALUE equals the string form of idx, not the element at position idx.
	idxStr := fmt.Sprintf("%d", idx)
	for i, item := range env.Content {
		if item.Value == idxStr {
			env.Content = append(env.Content[:i], env.Content[i+1:]...)
			return nil
		}
	}
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
