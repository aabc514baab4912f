// Package engine assembles the execution engine: the definition registry,
// the reactive graph, the tier manager, and the background task pool, and
// exposes the call, write, switch and spawn operations programs run
// against. The engine is the dispatch.Effects implementation used outside
// of propagation passes; during a pass the graph substitutes its own view.
package engine

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/sfexlang/sfex/internal/config"
	"github.com/sfexlang/sfex/internal/dispatch"
	"github.com/sfexlang/sfex/internal/logging"
	"github.com/sfexlang/sfex/internal/object"
	"github.com/sfexlang/sfex/internal/profstore"
	"github.com/sfexlang/sfex/internal/reactive"
	"github.com/sfexlang/sfex/internal/rterr"
	"github.com/sfexlang/sfex/internal/task"
	"github.com/sfexlang/sfex/internal/tier"
	"github.com/sfexlang/sfex/internal/value"
)

// Engine owns every runtime component of one loaded program.
type Engine struct {
	registry *object.Registry
	graph    *reactive.Graph
	manager  *tier.Manager
	pool     *task.Pool
	store    *profstore.Store
	logger   *log.Logger
}

// New builds an engine from the given configuration, logging to w.
func New(cfg config.Config, w io.Writer) (*Engine, error) {
	logger := logging.New(w, cfg.LogLevel)

	registry := object.NewRegistry()
	graph := reactive.NewGraph(cfg.ObserverCeiling, logger)
	profiler := tier.NewProfiler()

	var store *profstore.Store
	if cfg.ProfileStore != "" {
		s, err := profstore.Open(cfg.ProfileStore)
		if err != nil {
			return nil, err
		}
		counts, err := s.Load()
		if err != nil {
			s.Close()
			return nil, err
		}
		profiler.Seed(counts)
		store = s
	}

	e := &Engine{
		registry: registry,
		graph:    graph,
		manager:  tier.NewManager(profiler, tier.BytecodeBackend{}, graph, cfg.PromotionThreshold, logger),
		pool:     task.NewPool(cfg.Workers),
		store:    store,
		logger:   logger,
	}
	graph.SetCallFn(func(ctx *dispatch.Context, eff dispatch.Effects, site string, inst *object.Instance, method string, args []value.Value) (value.Value, error) {
		return e.manager.Invoke(ctx, eff, site, inst, method, args)
	})
	return e, nil
}

// RegisterConcept adds a concept definition. Must precede Seal.
func (e *Engine) RegisterConcept(c *object.ConceptDef) error {
	return e.registry.AddConcept(c)
}

// RegisterSituation adds a situation definition. Must precede Seal.
func (e *Engine) RegisterSituation(s *object.SituationDef) error {
	return e.registry.AddSituation(s)
}

// RegisterNative attaches a host function as a method of a registered
// concept. Must precede Seal.
func (e *Engine) RegisterNative(concept, method string, fn value.NativeFunc) error {
	return e.registry.AddNativeMethod(concept, method, fn)
}

// Seal freezes the definitions. Execution starts after sealing.
func (e *Engine) Seal() { e.registry.Seal() }

// Registry exposes the definition registry.
func (e *Engine) Registry() *object.Registry { return e.registry }

// Manager exposes the tier manager, mainly for diagnostics.
func (e *Engine) Manager() *tier.Manager { return e.manager }

// NewContext creates a fresh execution context with no active situations.
func (e *Engine) NewContext() *dispatch.Context {
	return dispatch.NewContext(e.registry)
}

// MakeInstance creates an instance of the named concept and registers its
// observers with the reactive graph.
func (e *Engine) MakeInstance(conceptName string) (*object.Instance, error) {
	concept, err := e.registry.Concept(conceptName)
	if err != nil {
		return nil, err
	}
	inst := object.New(concept)
	e.graph.Register(inst)
	return inst, nil
}

// ReleaseInstance prunes the instance's observer bindings and dependency
// edges. The instance itself is garbage collected once unreferenced.
func (e *Engine) ReleaseInstance(inst *object.Instance) {
	e.graph.Release(inst.ID)
}

// Invoke runs one method call through the tier manager. site identifies the
// source call expression and must be stable across invocations of it.
func (e *Engine) Invoke(ctx *dispatch.Context, site string, inst *object.Instance, method string, args []value.Value) (value.Value, error) {
	return e.manager.Invoke(ctx, e.Effects(ctx), site, inst, method, args)
}

// WriteField performs a program-visible field write in the given context.
// The write routes through the reactive graph so observers run, under the
// caller's active situations, before this returns.
func (e *Engine) WriteField(ctx *dispatch.Context, inst *object.Instance, name string, v value.Value) error {
	return e.graph.WriteField(ctx, inst, name, v)
}

// ReadField returns the current value of an instance field.
func (e *Engine) ReadField(inst *object.Instance, name string) (value.Value, error) {
	inst.Mu.Lock()
	defer inst.Mu.Unlock()
	return inst.ReadField(name)
}

// Effects binds the engine surface to one execution context. Method bodies
// run against this view outside of propagation passes; inside a pass the
// graph substitutes its own recording view.
func (e *Engine) Effects(ctx *dispatch.Context) dispatch.Effects {
	return &ctxEffects{engine: e, ctx: ctx}
}

type ctxEffects struct {
	engine *Engine
	ctx    *dispatch.Context
}

func (ce *ctxEffects) ReadField(inst *object.Instance, name string) (value.Value, error) {
	return ce.engine.ReadField(inst, name)
}

func (ce *ctxEffects) WriteField(inst *object.Instance, name string, v value.Value) error {
	return ce.engine.graph.WriteField(ce.ctx, inst, name, v)
}

func (ce *ctxEffects) Call(ctx *dispatch.Context, site string, inst *object.Instance, method string, args []value.Value) (value.Value, error) {
	return ce.engine.manager.Invoke(ctx, ce, site, inst, method, args)
}

// Spawn schedules fn as a background task. The task runs under a clone of
// the caller's context, so its situation switches stay invisible to the
// parent. A failing task completes with an error value result rather than
// tearing anything down.
func (e *Engine) Spawn(ctx *dispatch.Context, fn func(taskCtx *dispatch.Context) (value.Value, error)) *task.Handle {
	taskCtx := ctx.Clone()
	return e.pool.Spawn(func() value.Value {
		result, err := fn(taskCtx)
		if err != nil {
			return errValue(err)
		}
		return result
	})
}

// Await blocks on a task handle value until its result is available.
func (e *Engine) Await(v value.Value) (value.Value, error) {
	h, ok := v.AsTask().(*task.Handle)
	if !ok {
		return value.Value{}, rterr.New(rterr.TypeMismatch, "await expects a task handle, got %s", v.Kind())
	}
	return h.Await(), nil
}

// Close persists the profile counters (when a store is configured) and
// drains the task pool.
func (e *Engine) Close() error {
	e.pool.Close()
	if e.store == nil {
		return nil
	}
	if err := e.store.Save(e.manager.Profiler().Counts()); err != nil {
		e.logger.Warn("profile store save failed", "err", err)
	}
	return e.store.Close()
}

// errValue converts a Go error into a first-class error value.
func errValue(err error) value.Value {
	if re, ok := err.(*rterr.Error); ok {
		return value.Err(re)
	}
	return value.Err(rterr.New(rterr.TypeMismatch, "%s", err.Error()))
}
