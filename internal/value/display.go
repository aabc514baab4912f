package value

import (
	"fmt"
	"math"
	"strings"
)

// displayScale caps the fractional digits shown for exact numbers.
const displayScale = 10

func formatNumber(v Value) string {
	s := v.num.String()
	if !strings.Contains(s, ".") {
		return s
	}
	rounded := v.num.Round(displayScale).String()
	trimmed := strings.TrimRight(rounded, "0")
	return strings.TrimRight(trimmed, ".")
}

// Display renders a value the way Print shows it to the program.
func Display(v Value) string {
	switch v.kind {
	case KindNumber:
		return formatNumber(v)
	case KindFastNumber:
		switch {
		case math.IsInf(v.fast, 1):
			return "Infinity"
		case math.IsInf(v.fast, -1):
			return "-Infinity"
		case math.IsNaN(v.fast):
			return "NaN"
		default:
			return fmt.Sprintf("%g", v.fast)
		}
	case KindString:
		return v.str
	case KindBoolean:
		if v.b {
			return "True"
		}
		return "False"
	case KindList:
		items := v.AsList().Snapshot()
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = Display(it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		m := v.AsMap()
		parts := make([]string, 0, m.Len())
		for _, k := range m.Keys() {
			item, _ := m.Get(k)
			parts = append(parts, k+": "+Display(item))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindOption:
		if v.ref == nil {
			return "None"
		}
		return "Some(" + Display(*v.ref.(*Value)) + ")"
	case KindWeakRef:
		if v.WeakValid() {
			return "<WeakRef (valid)>"
		}
		return "<WeakRef (collected)>"
	case KindTask:
		return "<TaskHandle>"
	case KindError:
		e := v.AsError()
		return fmt.Sprintf("Error.%s.%s: %s", e.Kind.Category(), e.Kind, e.Message)
	case KindNative:
		return "<native function>"
	default:
		return "<unknown>"
	}
}

// Debug renders a value for diagnostics: strings quoted, lists element-wise.
func Debug(v Value) string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindList:
		items := v.AsList().Snapshot()
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = Debug(it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return Display(v)
	}
}

func (v Value) String() string { return Display(v) }
