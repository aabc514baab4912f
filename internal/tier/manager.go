package tier

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/sfexlang/sfex/internal/dispatch"
	"github.com/sfexlang/sfex/internal/ir"
	"github.com/sfexlang/sfex/internal/object"
	"github.com/sfexlang/sfex/internal/reactive"
	"github.com/sfexlang/sfex/internal/rterr"
	"github.com/sfexlang/sfex/internal/value"
	"github.com/sfexlang/sfex/internal/vm"
)

// DefaultThreshold is the documented promotion threshold: a call site is a
// compilation candidate after this many interpreted invocations.
const DefaultThreshold = 100

// Backend is the code-generation interface the manager consumes as a black
// box: it accepts a method-body IR and returns a callable chunk or a
// compilation failure.
type Backend interface {
	Compile(concept string, m *ir.Method) (*vm.Chunk, error)
}

// BytecodeBackend is the in-process backend that lowers IR to the stack
// machine's bytecode.
type BytecodeBackend struct{}

func (BytecodeBackend) Compile(concept string, m *ir.Method) (*vm.Chunk, error) {
	return vm.Compile(concept, m)
}

// CompiledEntry caches one generated-code handle with the guard predicate
// under which it may be invoked.
type CompiledEntry struct {
	chunk  *vm.Chunk
	shapes map[Shape]struct{}
}

// Manager owns the two execution tiers for every call site.
type Manager struct {
	profiler  *Profiler
	backend   Backend
	graph     *reactive.Graph
	threshold uint64
	logger    *log.Logger

	mu       sync.Mutex
	compiled map[string]*CompiledEntry
}

// NewManager wires the tier manager. threshold <= 0 selects
// DefaultThreshold.
func NewManager(profiler *Profiler, backend Backend, graph *reactive.Graph, threshold int, logger *log.Logger) *Manager {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Manager{
		profiler:  profiler,
		backend:   backend,
		graph:     graph,
		threshold: uint64(threshold),
		logger:    logger,
		compiled:  make(map[string]*CompiledEntry),
	}
}

// Profiler exposes the per-site profile data.
func (m *Manager) Profiler() *Profiler { return m.profiler }

// Compiled reports whether a site currently has a compiled entry.
func (m *Manager) Compiled(site string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.compiled[site] != nil
}

// Invalidate drops a site's compiled entry. Deoptimization never changes
// observable results, only performance.
func (m *Manager) Invalidate(site string) {
	m.mu.Lock()
	delete(m.compiled, site)
	m.mu.Unlock()
}

// Invoke is the sole call entry point. It replays a cached compiled entry
// when its guard holds, otherwise profiles and interprets, promoting the
// site once it is hot and stable.
func (m *Manager) Invoke(ctx *dispatch.Context, eff dispatch.Effects, site string, inst *object.Instance, method string, args []value.Value) (value.Value, error) {
	concept := inst.Concept.Name
	shape := ShapeOf(args)

	if entry := m.lookup(site); entry != nil && m.guardHolds(entry, ctx, inst, concept, method, shape) {
		host := &vmHost{eff: eff, graph: m.graph, ctx: ctx, concept: concept, method: method}
		result, err := vm.Run(entry.chunk, host, inst, args)
		if err == nil {
			return result, nil
		}
		if !vm.IsTrap(err) {
			// Runtime errors (division by zero and friends) surface exactly
			// as they would from the interpreter. Anything outside the
			// taxonomy means the backend produced a bad chunk.
			if rterr.KindOf(err) != "" {
				return value.Value{}, err
			}
			inv := rterr.Violated("vm", "generated code for %s failed: %v", site, err)
			m.logger.Error(inv.Error())
			m.Invalidate(site)
			return value.Value{}, inv
		}
		// Deoptimize: no side effect has been committed, replay the whole
		// call through the interpreter.
		m.logger.Debug("trap to interpreter", "site", site, "reason", err.Error())
	}

	count := m.profiler.Record(site, shape)

	chain, err := dispatch.Resolve(ctx, concept, method)
	if err != nil {
		return value.Value{}, err
	}
	result, err := dispatch.Invoke(ctx, eff, chain, inst, args)
	if err != nil {
		return value.Value{}, err
	}

	if count >= m.threshold {
		m.maybePromote(ctx, site, inst, concept, method, chain)
	}
	return result, nil
}

func (m *Manager) lookup(site string) *CompiledEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.compiled[site]
}

// guardHolds checks the entry guard: observed argument shape, no active
// Situation adjusting the pair, and no observer depending on any field the
// chunk writes.
func (m *Manager) guardHolds(entry *CompiledEntry, ctx *dispatch.Context, inst *object.Instance, concept, method string, shape Shape) bool {
	if _, ok := entry.shapes[shape]; !ok {
		return false
	}
	if ctx.AnyAdjusts(concept, method) {
		return false
	}
	for _, field := range entry.chunk.WrittenFields {
		if m.graph.HasDependents(inst.ID, field) {
			return false
		}
	}
	return true
}

// maybePromote requests compilation for a hot site. Promotion requires a
// stable site: the chain is just the base method, the body is not native,
// and nothing it writes has observers. Compilation is advisory: failures
// are logged and the site stays interpreted for good.
func (m *Manager) maybePromote(ctx *dispatch.Context, site string, inst *object.Instance, concept, method string, chain dispatch.Chain) {
	if m.Compiled(site) || m.profiler.HasFailed(site) {
		return
	}
	if len(chain) != 1 || chain[0].IsNative() {
		return
	}
	if ctx.AnyAdjusts(concept, method) {
		return
	}
	base := chain[0]
	for _, field := range ir.WrittenFields(base.Body) {
		if m.graph.HasDependents(inst.ID, field) {
			return
		}
	}

	chunk, err := m.backend.Compile(concept, base)
	if err != nil {
		m.profiler.MarkFailed(site)
		m.logger.Debug("compilation declined", "site", site, "err", err)
		return
	}
	entry := &CompiledEntry{chunk: chunk, shapes: m.profiler.Shapes(site)}
	m.mu.Lock()
	m.compiled[site] = entry
	m.mu.Unlock()
	m.logger.Info("call site promoted", "site", site, "method", concept+"."+method)
}

// vmHost adapts the engine surface for generated code.
type vmHost struct {
	eff     dispatch.Effects
	graph   *reactive.Graph
	ctx     *dispatch.Context
	concept string
	method  string
}

func (h *vmHost) ReadField(inst *object.Instance, name string) (value.Value, error) {
	return h.eff.ReadField(inst, name)
}

func (h *vmHost) WriteAllowed(inst *object.Instance, name string) bool {
	if h.ctx.AnyAdjusts(h.concept, h.method) {
		return false
	}
	return !h.graph.HasDependents(inst.ID, name)
}

func (h *vmHost) CommitWrite(inst *object.Instance, name string, v value.Value) error {
	return h.eff.WriteField(inst, name, v)
}
