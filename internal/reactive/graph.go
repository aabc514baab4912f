// Package reactive implements the dependency and propagation graph behind
// "When" observers. Observer bindings live in an arena addressed by integer
// handles; edges from (instance, field) to bindings are derived from the
// reads each observer body actually performs and re-derived on every run,
// so dependencies adapt automatically when a body's control flow changes
// which fields it reads.
package reactive

import (
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/sfexlang/sfex/internal/dispatch"
	"github.com/sfexlang/sfex/internal/ir"
	"github.com/sfexlang/sfex/internal/object"
	"github.com/sfexlang/sfex/internal/value"
)

// DefaultCeiling bounds observer invocations within one propagation pass.
// Mutually dependent observers would otherwise cascade forever.
const DefaultCeiling = 1000

// bindingID is an arena handle.
type bindingID int

type binding struct {
	id   bindingID
	inst *object.Instance
	body *ir.Block
	// trigger is the declared "When <field>" seed; the edge set replaces it
	// after the first run.
	trigger string
}

type edgeKey struct {
	inst  uuid.UUID
	field string
}

// CallFn executes a method call issued from inside an observer body. The
// engine wires this to the tier manager; the effects argument is the
// pass-local view so nested writes fold into the running cascade.
type CallFn func(ctx *dispatch.Context, eff dispatch.Effects, site string, inst *object.Instance, method string, args []value.Value) (value.Value, error)

// Graph owns the binding arena and the edge index.
type Graph struct {
	mu       sync.Mutex
	nextID   bindingID
	bindings map[bindingID]*binding
	byInst   map[uuid.UUID][]bindingID
	// deps maps a dirty-able (instance, field) to the bindings depending on
	// it, kept in creation order for deterministic scheduling.
	deps map[edgeKey][]bindingID

	ceiling int
	call    CallFn
	logger  *log.Logger
}

// NewGraph creates an empty graph. ceiling <= 0 selects DefaultCeiling.
func NewGraph(ceiling int, logger *log.Logger) *Graph {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	return &Graph{
		bindings: make(map[bindingID]*binding),
		byInst:   make(map[uuid.UUID][]bindingID),
		deps:     make(map[edgeKey][]bindingID),
		ceiling:  ceiling,
		logger:   logger,
	}
}

// SetCallFn injects the tier manager's invoke path for calls made inside
// observer bodies. Must be set before any write is routed through the graph.
func (g *Graph) SetCallFn(fn CallFn) { g.call = fn }

// Register creates one binding per observer declaration of the instance's
// concept, each seeded with an edge on its declared trigger field.
func (g *Graph) Register(inst *object.Instance) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, decl := range inst.Concept.Observers {
		id := g.nextID
		g.nextID++
		b := &binding{id: id, inst: inst, body: decl.Body, trigger: decl.Field}
		g.bindings[id] = b
		g.byInst[inst.ID] = append(g.byInst[inst.ID], id)
		g.addEdge(edgeKey{inst.ID, decl.Field}, id)
	}
}

// Release prunes every binding and edge referencing the instance. The graph
// must never retain an edge to a destroyed instance.
func (g *Graph) Release(instID uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := g.byInst[instID]
	dead := make(map[bindingID]bool, len(ids))
	for _, id := range ids {
		dead[id] = true
		delete(g.bindings, id)
	}
	delete(g.byInst, instID)
	for key, list := range g.deps {
		kept := list[:0]
		for _, id := range list {
			if !dead[id] && key.inst != instID {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(g.deps, key)
		} else {
			g.deps[key] = kept
		}
	}
}

// HasDependents reports whether any observer currently depends on the
// field. The tier manager treats a dependent field as making its writer
// call sites unstable.
func (g *Graph) HasDependents(instID uuid.UUID, field string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.deps[edgeKey{instID, field}]) > 0
}

// dependents returns the binding ids for a dirty (instance, field), in
// creation order.
func (g *Graph) dependents(key edgeKey) []bindingID {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]bindingID, len(g.deps[key]))
	copy(out, g.deps[key])
	return out
}

func (g *Graph) lookup(id bindingID) *binding {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bindings[id]
}

// replaceEdges swaps a binding's dependency edge set for the freshly
// observed one.
func (g *Graph) replaceEdges(id bindingID, observed map[edgeKey]struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, alive := g.bindings[id]; !alive {
		return
	}
	for key, list := range g.deps {
		if _, keep := observed[key]; keep {
			continue
		}
		kept := list[:0]
		for _, other := range list {
			if other != id {
				kept = append(kept, other)
			}
		}
		if len(kept) == 0 {
			delete(g.deps, key)
		} else {
			g.deps[key] = kept
		}
	}
	for key := range observed {
		g.addEdge(key, id)
	}
}

// addEdge inserts id into the dependent list for key, keeping creation
// order and uniqueness. Callers hold g.mu.
func (g *Graph) addEdge(key edgeKey, id bindingID) {
	list := g.deps[key]
	for _, other := range list {
		if other == id {
			return
		}
	}
	list = append(list, id)
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	g.deps[key] = list
}
