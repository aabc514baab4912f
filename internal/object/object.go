// Package object implements instance storage and the immutable Concept and
// Situation definitions. The object model is dependency-agnostic: WriteRaw
// performs the bare mutation and the reactive graph layers change tracking
// on top of it.
package object

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sfexlang/sfex/internal/ir"
	"github.com/sfexlang/sfex/internal/rterr"
	"github.com/sfexlang/sfex/internal/value"
)

// FieldDecl declares a concept field with its default value.
type FieldDecl struct {
	Name    string
	Default value.Value
}

// ObserverDecl declares a "When <Field> changes" body. The trigger field
// seeds the dependency graph; actual dependencies are re-derived from the
// reads the body performs.
type ObserverDecl struct {
	Field string
	Body  *ir.Block
}

// ConceptDef is an immutable, process-lifetime type definition.
type ConceptDef struct {
	Name      string
	Fields    []FieldDecl
	Methods   map[string]*ir.Method
	Observers []ObserverDecl
}

// Method looks up a base method body.
func (c *ConceptDef) Method(name string) (*ir.Method, bool) {
	m, ok := c.Methods[name]
	return m, ok
}

// Adjustment is a replacement method body a Situation registers for one
// (Concept, method) pair.
type Adjustment struct {
	Concept string
	Method  string
	Body    *ir.Method
}

// SituationDef is an immutable bundle of adjustments toggled on and off at
// runtime.
type SituationDef struct {
	Name        string
	Adjustments []Adjustment
}

// Adjusts returns the adjustment body for (concept, method), if any.
func (s *SituationDef) Adjusts(concept, method string) (*ir.Method, bool) {
	for i := range s.Adjustments {
		a := &s.Adjustments[i]
		if a.Concept == concept && a.Method == method {
			return a.Body, true
		}
	}
	return nil, false
}

// Instance is a living object: identity, owned field storage and a
// back-reference to its definition. The mutex is the per-instance exclusive
// section the reactive graph serializes write cascades under.
type Instance struct {
	ID      uuid.UUID
	Concept *ConceptDef

	Mu     sync.Mutex
	fields map[string]value.Value
}

// New creates an instance with every declared field populated with its
// default. A declared field always holds a well-typed value afterwards.
func New(concept *ConceptDef) *Instance {
	fields := make(map[string]value.Value, len(concept.Fields))
	for _, f := range concept.Fields {
		fields[f.Name] = f.Default
	}
	return &Instance{
		ID:      uuid.New(),
		Concept: concept,
		fields:  fields,
	}
}

// ReadField returns the current value of a declared field.
func (in *Instance) ReadField(name string) (value.Value, error) {
	v, ok := in.fields[name]
	if !ok {
		return value.Value{}, rterr.New(rterr.UnknownField, "concept %s has no field %q", in.Concept.Name, name)
	}
	return v, nil
}

// WriteRaw performs the bare field mutation. Callers outside the reactive
// graph must not use it for program-visible writes.
func (in *Instance) WriteRaw(name string, v value.Value) error {
	if _, ok := in.fields[name]; !ok {
		return rterr.New(rterr.UnknownField, "concept %s has no field %q", in.Concept.Name, name)
	}
	in.fields[name] = v
	return nil
}

// FieldNames returns the declared field names in declaration order.
func (in *Instance) FieldNames() []string {
	out := make([]string, len(in.Concept.Fields))
	for i, f := range in.Concept.Fields {
		out[i] = f.Name
	}
	return out
}
