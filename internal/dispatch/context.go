// Package dispatch implements context-sensitive method resolution: the
// active Situation stack, the ordered adjustment chain it induces for a
// (concept, method) pair, and the interpreter that executes chain bodies
// with Proceed delegation.
package dispatch

import (
	"github.com/sfexlang/sfex/internal/object"
	"github.com/sfexlang/sfex/internal/rterr"
)

// Context carries the active Situation stack of one execution context. It
// is scoped to a top-level execution context (the main story or one
// background task), never shared process-wide, so Switch on/off in one task
// cannot affect dispatch in another. Methods are not safe for concurrent
// use by design; each context has exactly one owner.
type Context struct {
	registry *object.Registry
	active   []string // switch-on order; most recent last
}

// NewContext creates an execution context with an empty Situation stack.
func NewContext(registry *object.Registry) *Context {
	return &Context{registry: registry}
}

// Clone snapshots the context for a background task, which starts with the
// parent's active Situations (switching later diverges independently).
func (c *Context) Clone() *Context {
	active := make([]string, len(c.active))
	copy(active, c.active)
	return &Context{registry: c.registry, active: active}
}

// SwitchOn activates a situation. The stack never holds duplicates.
func (c *Context) SwitchOn(name string) error {
	if _, err := c.registry.Situation(name); err != nil {
		return err
	}
	for _, s := range c.active {
		if s == name {
			return rterr.New(rterr.AlreadyActive, "situation %q is already active", name)
		}
	}
	c.active = append(c.active, name)
	return nil
}

// SwitchOff deactivates a situation.
func (c *Context) SwitchOff(name string) error {
	if _, err := c.registry.Situation(name); err != nil {
		return err
	}
	for i, s := range c.active {
		if s == name {
			c.active = append(c.active[:i], c.active[i+1:]...)
			return nil
		}
	}
	return rterr.New(rterr.NotActive, "situation %q is not active", name)
}

// Active returns the stack contents, most recently switched on first.
func (c *Context) Active() []string {
	out := make([]string, len(c.active))
	for i, s := range c.active {
		out[len(c.active)-1-i] = s
	}
	return out
}

// AnyAdjusts reports whether any active situation adjusts the given
// (concept, method) pair. The tier manager consults this both before
// promoting a call site and as a guard before trusting a compiled entry.
func (c *Context) AnyAdjusts(concept, method string) bool {
	for _, name := range c.active {
		s, err := c.registry.Situation(name)
		if err != nil {
			continue
		}
		if _, ok := s.Adjusts(concept, method); ok {
			return true
		}
	}
	return false
}

// Registry exposes the definitions this context resolves against.
func (c *Context) Registry() *object.Registry { return c.registry }
