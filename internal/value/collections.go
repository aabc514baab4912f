package value

import (
	"sync"

	"github.com/rivo/uniseg"

	"github.com/sfexlang/sfex/internal/rterr"
)

// List is an ordered, mutable container. Logical indices run 1..Length;
// index 0 and indices past Length fail with IndexOutOfRange, never a
// silent default.
type List struct {
	mu    sync.RWMutex
	items []Value
}

func (l *List) Length() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

func (l *List) Get(index int) (Value, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index < 1 || index > len(l.items) {
		return Value{}, rterr.New(rterr.IndexOutOfRange, "index %d out of range for list of length %d (lists start at 1)", index, len(l.items))
	}
	return l.items[index-1], nil
}

func (l *List) Set(index int, v Value) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 1 || index > len(l.items) {
		return rterr.New(rterr.IndexOutOfRange, "index %d out of range for list of length %d (lists start at 1)", index, len(l.items))
	}
	l.items[index-1] = v
	return nil
}

func (l *List) Append(v Value) {
	l.mu.Lock()
	l.items = append(l.items, v)
	l.mu.Unlock()
}

// Snapshot returns a copy of the backing slice.
func (l *List) Snapshot() []Value {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Value, len(l.items))
	copy(out, l.items)
	return out
}

// Map is an insertion-ordered string-keyed container.
type Map struct {
	mu      sync.RWMutex
	keys    []string
	entries map[string]Value
}

func newMap() *Map {
	return &Map{entries: make(map[string]Value)}
}

func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

func (m *Map) Get(key string) (Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok
}

func (m *Map) Set(key string, v Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = v
}

func (m *Map) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists {
		return false
	}
	delete(m.entries, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Length returns the logical length of a value: grapheme clusters for
// strings, element count for lists and maps.
func Length(v Value) (int, error) {
	switch v.kind {
	case KindString:
		return uniseg.GraphemeClusterCount(v.str), nil
	case KindList:
		return v.AsList().Length(), nil
	case KindMap:
		return v.AsMap().Len(), nil
	default:
		return 0, rterr.New(rterr.TypeMismatch, "%s has no length", v.kind)
	}
}

// graphemeAt returns the 1-based n-th grapheme cluster of s.
func graphemeAt(s string, index int) (string, bool) {
	g := uniseg.NewGraphemes(s)
	for i := 1; g.Next(); i++ {
		if i == index {
			return g.Str(), true
		}
	}
	return "", false
}

// Index applies 1-based indexing: lists and strings by number, maps by
// string key. Strings index by grapheme cluster, so an emoji flag is one
// character.
func Index(v, idx Value) (Value, error) {
	switch v.kind {
	case KindList:
		i, err := indexToInt(idx)
		if err != nil {
			return Value{}, err
		}
		return v.AsList().Get(i)
	case KindString:
		i, err := indexToInt(idx)
		if err != nil {
			return Value{}, err
		}
		if i < 1 {
			return Value{}, rterr.New(rterr.IndexOutOfRange, "index %d out of range (strings start at 1)", i)
		}
		g, ok := graphemeAt(v.str, i)
		if !ok {
			return Value{}, rterr.New(rterr.IndexOutOfRange, "index %d out of range for string of length %d", i, uniseg.GraphemeClusterCount(v.str))
		}
		return Str(g), nil
	case KindMap:
		if !idx.IsString() {
			return Value{}, rterr.New(rterr.TypeMismatch, "cannot index Map with %s", idx.kind)
		}
		item, ok := v.AsMap().Get(idx.str)
		if !ok {
			return Value{}, rterr.New(rterr.IndexOutOfRange, "key %q not found", idx.str)
		}
		return item, nil
	default:
		return Value{}, rterr.New(rterr.TypeMismatch, "cannot index %s with %s", v.kind, idx.kind)
	}
}

func indexToInt(idx Value) (int, error) {
	switch idx.kind {
	case KindNumber:
		if !idx.num.IsInteger() {
			return 0, rterr.New(rterr.TypeMismatch, "index must be an integer, got %s", idx.num.String())
		}
		return int(idx.num.IntPart()), nil
	case KindFastNumber:
		n := int(idx.fast)
		if float64(n) != idx.fast {
			return 0, rterr.New(rterr.TypeMismatch, "index must be an integer, got %g", idx.fast)
		}
		return n, nil
	default:
		return 0, rterr.New(rterr.TypeMismatch, "index must be a Number, got %s", idx.kind)
	}
}
