package gates

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed data/gates.yaml
var builtinGates []byte

// Describable exposes the registration-time description of a gate.
// Registries are resolved once at startup; nothing introspects rule modules
// per call.
type Describable interface {
	GateID() string
	Name() string
	Severity() Severity
	LegalSource() string
}

// GateSpec is a declared gate within a module.
type GateSpec struct {
	ID     string   `yaml:"id"`
	Title  string   `yaml:"name"`
	Sev    Severity `yaml:"severity"`
	Source string   `yaml:"legal_source"`
}

// GateID returns the gate identifier.
func (g GateSpec) GateID() string { return g.ID }

// Name returns the human-readable gate name.
func (g GateSpec) Name() string { return g.Title }

// Severity returns the declared failure severity.
func (g GateSpec) Severity() Severity { return g.Sev }

// LegalSource returns the rule citation.
func (g GateSpec) LegalSource() string { return g.Source }

// ModuleSpec is a declared rule module with its gates.
type ModuleSpec struct {
	ID    string     `yaml:"id"`
	Name  string     `yaml:"name"`
	Gates []GateSpec `yaml:"gates"`
}

type registryFile struct {
	Version int          `yaml:"version"`
	Modules []ModuleSpec `yaml:"modules"`
}

// Registry holds the resolved module and gate declarations.
type Registry struct {
	modules map[string]ModuleSpec
	order   []string
}

// LoadRegistry parses and validates the embedded gate declarations.
func LoadRegistry() (*Registry, error) {
	return ParseRegistry(builtinGates)
}

// ParseRegistry builds a Registry from YAML data, rejecting duplicate IDs and
// unknown severities.
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse gate registry: %w", err)
	}
	if len(file.Modules) == 0 {
		return nil, fmt.Errorf("gate registry declares no modules")
	}

	r := &Registry{modules: make(map[string]ModuleSpec)}
	for _, mod := range file.Modules {
		if mod.ID == "" {
			return nil, fmt.Errorf("gate registry module with empty id")
		}
		if _, ok := r.modules[mod.ID]; ok {
			return nil, fmt.Errorf("duplicate module id %q", mod.ID)
		}
		seen := make(map[string]bool)
		for _, g := range mod.Gates {
			if g.ID == "" {
				return nil, fmt.Errorf("module %q declares a gate with empty id", mod.ID)
			}
			if seen[g.ID] {
				return nil, fmt.Errorf("module %q declares gate %q twice", mod.ID, g.ID)
			}
			if !g.Sev.Valid() {
				return nil, fmt.Errorf("module %q gate %q has unknown severity %q", mod.ID, g.ID, g.Sev)
			}
			seen[g.ID] = true
		}
		r.modules[mod.ID] = mod
		r.order = append(r.order, mod.ID)
	}
	sort.Strings(r.order)
	return r, nil
}

// ModuleIDs returns all registered module IDs in sorted order.
func (r *Registry) ModuleIDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Module returns the declaration for a module ID.
func (r *Registry) Module(id string) (ModuleSpec, bool) {
	mod, ok := r.modules[id]
	return mod, ok
}

// Gate returns the declaration for a module:gate pair.
func (r *Registry) Gate(moduleID, gateID string) (GateSpec, bool) {
	mod, ok := r.modules[moduleID]
	if !ok {
		return GateSpec{}, false
	}
	for _, g := range mod.Gates {
		if g.ID == gateID {
			return g, true
		}
	}
	return GateSpec{}, false
}

// Gates returns the gate declarations for a module as Describables.
func (r *Registry) Gates(moduleID string) []Describable {
	mod, ok := r.modules[moduleID]
	if !ok {
		return nil
	}
	out := make([]Describable, 0, len(mod.Gates))
	for _, g := range mod.Gates {
		out = append(out, g)
	}
	return out
}
