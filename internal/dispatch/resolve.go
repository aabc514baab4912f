package dispatch

import (
	"github.com/sfexlang/sfex/internal/ir"
	"github.com/sfexlang/sfex/internal/object"
	"github.com/sfexlang/sfex/internal/rterr"
	"github.com/sfexlang/sfex/internal/value"
)

// Chain is the ordered resolution result for one call: adjustments from the
// most recently switched-on situation first, the base method body last.
// Proceed is a continuation pointer into this list, not a virtual-call
// re-entry.
type Chain []*ir.Method

// Effects is the engine surface chain bodies execute against. Field writes
// go through the reactive graph, reads may be recorded by it, and nested
// calls go back through the tier manager.
type Effects interface {
	ReadField(inst *object.Instance, name string) (value.Value, error)
	WriteField(inst *object.Instance, name string, v value.Value) error
	Call(ctx *Context, site string, inst *object.Instance, method string, args []value.Value) (value.Value, error)
}

// Resolve computes the adjustment chain for (concept, method) against the
// context's active Situation stack. Resolution is read-only on the stack.
func Resolve(ctx *Context, conceptName, methodName string) (Chain, error) {
	concept, err := ctx.registry.Concept(conceptName)
	if err != nil {
		return nil, err
	}

	var chain Chain
	// Most recently switched on first.
	for i := len(ctx.active) - 1; i >= 0; i-- {
		s, err := ctx.registry.Situation(ctx.active[i])
		if err != nil {
			continue
		}
		if adj, ok := s.Adjusts(conceptName, methodName); ok {
			chain = append(chain, adj)
		}
	}
	if base, ok := concept.Method(methodName); ok {
		chain = append(chain, base)
	}
	if len(chain) == 0 {
		return nil, rterr.New(rterr.UnknownMethod, "method %q not found on concept %q", methodName, conceptName)
	}
	return chain, nil
}

// Invoke executes the head of the chain. Proceed inside a body continues at
// the next element; Proceed past the base fails with ProceedAtBase. A body
// that never issues Proceed terminates the chain: there is no implicit
// fallthrough.
func Invoke(ctx *Context, eff Effects, chain Chain, inst *object.Instance, args []value.Value) (value.Value, error) {
	return invokeAt(ctx, eff, chain, 0, inst, args)
}

func invokeAt(ctx *Context, eff Effects, chain Chain, idx int, inst *object.Instance, args []value.Value) (value.Value, error) {
	if idx >= len(chain) {
		return value.Value{}, rterr.New(rterr.ProceedAtBase, "Proceed called past the base method")
	}
	m := chain[idx]
	if m.IsNative() {
		return m.Native(args)
	}

	st := &execState{
		ctx:    ctx,
		eff:    eff,
		chain:  chain,
		idx:    idx,
		inst:   inst,
		args:   args,
		params: bindParams(m, args),
		locals: make(map[string]value.Value),
	}
	result, returned, err := st.execBlock(m.Body)
	if err != nil {
		return value.Value{}, err
	}
	if !returned {
		// Implicit result of a body that falls off the end.
		return value.Bool(false), nil
	}
	return result, nil
}

func bindParams(m *ir.Method, args []value.Value) map[string]value.Value {
	params := make(map[string]value.Value, len(m.Params))
	for i, name := range m.Params {
		if i < len(args) {
			params[name] = args[i]
		} else {
			params[name] = value.Bool(false)
		}
	}
	return params
}
