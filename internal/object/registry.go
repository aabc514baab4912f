package object

import (
	"fmt"
	"sync"

	"github.com/sfexlang/sfex/internal/ir"
	"github.com/sfexlang/sfex/internal/rterr"
	"github.com/sfexlang/sfex/internal/value"
)

// Registry holds the Concept and Situation definitions of a loaded program.
// Definitions are registered once at load time and frozen by Seal; lookups
// after sealing need no locking.
type Registry struct {
	mu         sync.Mutex
	sealed     bool
	concepts   map[string]*ConceptDef
	situations map[string]*SituationDef
}

func NewRegistry() *Registry {
	return &Registry{
		concepts:   make(map[string]*ConceptDef),
		situations: make(map[string]*SituationDef),
	}
}

// AddConcept registers a concept definition. Fails after Seal or on
// duplicate names.
func (r *Registry) AddConcept(c *ConceptDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("registry sealed: cannot add concept %q", c.Name)
	}
	if _, dup := r.concepts[c.Name]; dup {
		return fmt.Errorf("duplicate concept %q", c.Name)
	}
	r.concepts[c.Name] = c
	return nil
}

// AddSituation registers a situation definition.
func (r *Registry) AddSituation(s *SituationDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("registry sealed: cannot add situation %q", s.Name)
	}
	if _, dup := r.situations[s.Name]; dup {
		return fmt.Errorf("duplicate situation %q", s.Name)
	}
	r.situations[s.Name] = s
	return nil
}

// AddNativeMethod attaches a host callable as a method of a registered
// concept. Natives run through the ordinary invoke path but are never
// promoted to generated code.
func (r *Registry) AddNativeMethod(concept, method string, fn value.NativeFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("registry sealed: cannot add native %s.%s", concept, method)
	}
	c, ok := r.concepts[concept]
	if !ok {
		return rterr.New(rterr.UnknownMethod, "unknown concept %q", concept)
	}
	if c.Methods == nil {
		c.Methods = make(map[string]*ir.Method)
	}
	if _, dup := c.Methods[method]; dup {
		return fmt.Errorf("duplicate method %s.%s", concept, method)
	}
	c.Methods[method] = &ir.Method{Name: method, Native: fn}
	return nil
}

// Seal freezes the registry. Definitions are read-only for the rest of the
// process lifetime.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Concept resolves a concept definition by name.
func (r *Registry) Concept(name string) (*ConceptDef, error) {
	if c, ok := r.concepts[name]; ok {
		return c, nil
	}
	return nil, rterr.New(rterr.UnknownMethod, "unknown concept %q", name)
}

// Situation resolves a situation definition by name.
func (r *Registry) Situation(name string) (*SituationDef, error) {
	if s, ok := r.situations[name]; ok {
		return s, nil
	}
	return nil, rterr.New(rterr.UnknownSituation, "unknown situation %q", name)
}
