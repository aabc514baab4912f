// Package tier implements the adaptive execution tier manager: per-site
// profiling, promotion of hot stable call sites to generated code, guard
// checks before trusting a compiled entry, and deoptimization back to the
// interpreter. Tiering failures are never user-visible; a site that cannot
// be compiled simply stays interpreted.
package tier

import (
	"sort"
	"strings"
	"sync"

	"github.com/sfexlang/sfex/internal/value"
)

// Shape is the value-kind combination of a call's arguments, e.g.
// "Number|String". Compiled entries are guarded by the shapes observed
// while the site was profiled.
type Shape string

// ShapeOf fingerprints the argument kinds.
func ShapeOf(args []value.Value) Shape {
	if len(args) == 0 {
		return Shape("")
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Kind().String()
	}
	return Shape(strings.Join(parts, "|"))
}

// ProfileEntry tracks one call site: how often it ran and which argument
// shapes it saw.
type ProfileEntry struct {
	Count  uint64
	Shapes map[Shape]struct{}
	// Failed marks a site whose compilation failed; attempts are not
	// retried for the same signature.
	Failed bool
}

// Profiler owns the per-site profile entries.
type Profiler struct {
	mu      sync.Mutex
	entries map[string]*ProfileEntry
}

func NewProfiler() *Profiler {
	return &Profiler{entries: make(map[string]*ProfileEntry)}
}

// Record counts one invocation and returns the new total.
func (p *Profiler) Record(site string, shape Shape) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entry(site)
	e.Count++
	e.Shapes[shape] = struct{}{}
	return e.Count
}

// Shapes snapshots the observed shapes for a site.
func (p *Profiler) Shapes(site string) map[Shape]struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entry(site)
	out := make(map[Shape]struct{}, len(e.Shapes))
	for s := range e.Shapes {
		out[s] = struct{}{}
	}
	return out
}

// MarkFailed records a failed compilation so the site is not retried.
func (p *Profiler) MarkFailed(site string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entry(site).Failed = true
}

// HasFailed reports whether compilation already failed for the site.
func (p *Profiler) HasFailed(site string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entry(site).Failed
}

// Seed pre-loads counters, typically from a persisted profile store, so a
// later run promotes hot sites sooner.
func (p *Profiler) Seed(counts map[string]uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for site, n := range counts {
		e := p.entry(site)
		if n > e.Count {
			e.Count = n
		}
	}
}

// Counts snapshots all site counters.
func (p *Profiler) Counts() map[string]uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]uint64, len(p.entries))
	for site, e := range p.entries {
		out[site] = e.Count
	}
	return out
}

// HotSite is one entry of the hot-site report.
type HotSite struct {
	Site  string
	Count uint64
}

// HotSites lists sites at or above the threshold, hottest first.
func (p *Profiler) HotSites(threshold uint64) []HotSite {
	p.mu.Lock()
	defer p.mu.Unlock()
	var hot []HotSite
	for site, e := range p.entries {
		if e.Count >= threshold {
			hot = append(hot, HotSite{Site: site, Count: e.Count})
		}
	}
	sort.Slice(hot, func(i, j int) bool {
		if hot[i].Count != hot[j].Count {
			return hot[i].Count > hot[j].Count
		}
		return hot[i].Site < hot[j].Site
	})
	return hot
}

// entry returns the profile entry for site, creating it lazily. Callers
// hold p.mu.
func (p *Profiler) entry(site string) *ProfileEntry {
	e, ok := p.entries[site]
	if !ok {
		e = &ProfileEntry{Shapes: make(map[Shape]struct{})}
		p.entries[site] = e
	}
	return e
}
