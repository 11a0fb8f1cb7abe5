package engine

import (
	"fmt"

	"leasing_crm_backend/internal/party/domain"
)

// Registry is the ordered, closed collection of task definitions. It is
// built once at startup and injected into the dispatcher; there is no
// package-level registry.
type Registry struct {
	ordered []Definition
	byName  map[domain.TaskName]Definition
}

// NewRegistry builds a registry from the given definitions, preserving
// registration order. Duplicate task names are rejected.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{
		ordered: make([]Definition, 0, len(defs)),
		byName:  make(map[domain.TaskName]Definition, len(defs)),
	}
	for _, def := range defs {
		name := def.Name()
		if _, exists := r.byName[name]; exists {
			return nil, fmt.Errorf("duplicate task definition: %s", name)
		}
		r.byName[name] = def
		r.ordered = append(r.ordered, def)
	}
	return r, nil
}

// All returns the definitions in registration order.
func (r *Registry) All() []Definition {
	out := make([]Definition, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// ByName returns the definition registered under the given task name.
func (r *Registry) ByName(name domain.TaskName) (Definition, bool) {
	def, ok := r.byName[name]
	return def, ok
}

// Partition splits the definitions into role-restricted and unrestricted
// subsets, each in registration order.
func (r *Registry) Partition() (restricted, unrestricted []Definition) {
	for _, def := range r.ordered {
		if def.Capability().RoleRestricted {
			restricted = append(restricted, def)
		} else {
			unrestricted = append(unrestricted, def)
		}
	}
	return restricted, unrestricted
}

// BySweepFamily returns the sweep-driven definition for the given family.
func (r *Registry) BySweepFamily(family SweepFamily) (SweepDefinition, bool) {
	for _, def := range r.ordered {
		if sweep, ok := def.(SweepDefinition); ok && sweep.SweepFamily() == family {
			return sweep, true
		}
	}
	return nil, false
}
