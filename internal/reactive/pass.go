package reactive

import (
	"github.com/google/uuid"

	"github.com/sfexlang/sfex/internal/dispatch"
	"github.com/sfexlang/sfex/internal/object"
	"github.com/sfexlang/sfex/internal/rterr"
	"github.com/sfexlang/sfex/internal/value"
)

// pass is one propagation run: an initial field write plus every cascaded
// observer execution it triggers. The pass holds the per-instance exclusive
// sections of every instance it touches, so a concurrent writer to the same
// instance waits until the whole cascade completes.
type pass struct {
	graph *Graph
	ctx   *dispatch.Context

	queue   []bindingID
	pending map[bindingID]bool
	invoked int

	// current is the binding whose body is executing; its field reads are
	// recorded into observed to re-derive the dependency edge set.
	current  bindingID
	observed map[edgeKey]struct{}

	locks map[uuid.UUID]*object.Instance
}

// WriteField performs the raw write, and if the value changed, runs the
// full propagation pass before returning. Cascades beyond the invocation
// ceiling abort with RecursionGuardExceeded; writes applied before the
// guard point remain (the guard stops the runaway loop, it does not roll
// back committed state).
func (g *Graph) WriteField(ctx *dispatch.Context, inst *object.Instance, field string, v value.Value) error {
	p := &pass{
		graph:   g,
		ctx:     ctx,
		pending: make(map[bindingID]bool),
		current: -1,
		locks:   make(map[uuid.UUID]*object.Instance),
	}
	defer p.unlockAll()

	if err := p.write(inst, field, v); err != nil {
		return err
	}
	return p.drain()
}

func (p *pass) lock(inst *object.Instance) {
	if _, held := p.locks[inst.ID]; held {
		return
	}
	inst.Mu.Lock()
	p.locks[inst.ID] = inst
}

func (p *pass) unlockAll() {
	for _, inst := range p.locks {
		inst.Mu.Unlock()
	}
	p.locks = nil
}

// write applies one field mutation inside the pass and schedules the
// bindings depending on it. A binding already waiting in the queue is not
// enqueued twice; a binding that already ran is re-enqueued when a later
// write re-dirties it, which is what the invocation ceiling bounds.
func (p *pass) write(inst *object.Instance, field string, v value.Value) error {
	p.lock(inst)
	old, err := inst.ReadField(field)
	if err != nil {
		return err
	}
	if err := inst.WriteRaw(field, v); err != nil {
		return err
	}
	if value.Equals(old, v) {
		return nil
	}
	for _, id := range p.graph.dependents(edgeKey{inst.ID, field}) {
		if !p.pending[id] {
			p.pending[id] = true
			p.queue = append(p.queue, id)
		}
	}
	return nil
}

// drain processes the queue breadth-first in discovery order.
func (p *pass) drain() error {
	for len(p.queue) > 0 {
		id := p.queue[0]
		p.queue = p.queue[1:]
		p.pending[id] = false

		b := p.graph.lookup(id)
		if b == nil {
			continue
		}
		if p.invoked >= p.graph.ceiling {
			p.graph.logger.Warn("observer cascade aborted",
				"instance", b.inst.ID, "ceiling", p.graph.ceiling)
			return rterr.New(rterr.RecursionGuardExceeded,
				"observer cascade exceeded %d invocations in one pass", p.graph.ceiling)
		}
		p.invoked++

		if err := p.runBinding(b); err != nil {
			return err
		}
	}
	return nil
}

// runBinding executes one observer body, recording its reads and replacing
// the binding's dependency edges with the freshly observed set.
func (p *pass) runBinding(b *binding) error {
	p.lock(b.inst)

	prevCurrent, prevObserved := p.current, p.observed
	p.current = b.id
	p.observed = make(map[edgeKey]struct{})
	defer func() {
		p.graph.replaceEdges(b.id, p.observed)
		p.current, p.observed = prevCurrent, prevObserved
	}()

	eff := &passEffects{pass: p}
	return dispatch.RunBody(p.ctx, eff, b.inst, b.body, nil)
}

// passEffects is the effects view observer bodies execute under: reads are
// recorded as dependency edges, writes fold into the running pass, and
// calls go back through the tier manager with this same view.
type passEffects struct {
	pass *pass
}

func (e *passEffects) ReadField(inst *object.Instance, name string) (value.Value, error) {
	p := e.pass
	p.lock(inst)
	if p.current >= 0 {
		p.observed[edgeKey{inst.ID, name}] = struct{}{}
	}
	return inst.ReadField(name)
}

func (e *passEffects) WriteField(inst *object.Instance, name string, v value.Value) error {
	return e.pass.write(inst, name, v)
}

func (e *passEffects) Call(ctx *dispatch.Context, site string, inst *object.Instance, method string, args []value.Value) (value.Value, error) {
	if e.pass.graph.call == nil {
		return value.Value{}, rterr.New(rterr.UnknownMethod, "no call path wired for method %q", method)
	}
	return e.pass.graph.call(ctx, e, site, inst, method, args)
}
