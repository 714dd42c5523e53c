package ty

import (
	"fmt"
	"strconv"
	"strings"
)

// Error kinds. They are tags, not type names.
const (
	// Mistaken marks a value whose shape does not match the pattern.
	Mistaken = "mistaken"
	// Dirty marks a strict-mode length or key mismatch.
	Dirty = "dirty"
	// Missing marks an absent value that the pattern requires.
	Missing = "missing"
	// Overflow marks a value present where it should not be.
	Overflow = "overflow"
	// Exception marks a user predicate or validator rejection.
	Exception = "exception"
	// Unexcepted marks a bounds or range violation.
	Unexcepted = "unexcepted"

	// Write-path refusals used by the schema and model layers.
	Locked   = "locked"
	Disabled = "disabled"
	Readonly = "readonly"
	Compute  = "compute"
)

// Error is the structured validation error. A failed root assert yields
// exactly one Error whose Path points at the offending sub-location.
type Error struct {
	Kind    string
	Value   interface{}
	Pattern Pattern
	Name    string
	Path    []interface{}
	Cause   error
	// Msg overrides the rendered message when set, usually through a
	// rule or schema message meta.
	Msg string
}

func newError(kind string, v interface{}, p Pattern, path []interface{}) *Error {
	e := &Error{Kind: kind, Value: v, Pattern: p, Name: PatternName(p)}
	e.Path = append(e.Path, path...)
	return e
}

// Error renders the stable human-readable form:
//
//	"<kind>: value <repr> does not match <pattern name> at <path>"
func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	name := e.Name
	if name == "" {
		name = PatternName(e.Pattern)
	}
	return e.Kind + ": value " + formatValue(e.Value) +
		" does not match " + name + " at " + PathString(e.Path)
}

// Unwrap exposes the nested cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Cause }

// At returns e with seg prepended to its path.
func (e *Error) At(seg interface{}) *Error {
	e.Path = append([]interface{}{seg}, e.Path...)
	return e
}

// PathString renders a key path as $ followed by dotted segments.
func PathString(path []interface{}) string {
	var b strings.Builder
	b.WriteByte('$')
	for _, seg := range path {
		b.WriteByte('.')
		switch s := seg.(type) {
		case string:
			b.WriteString(s)
		case int:
			b.WriteString(strconv.Itoa(s))
		default:
			fmt.Fprintf(&b, "%v", s)
		}
	}
	return b.String()
}

// PatternName returns a short display name for any pattern value.
func PatternName(p Pattern) string {
	switch x := p.(type) {
	case nil:
		return "null"
	case *Proto:
		return x.Name()
	case named:
		return x.TypeName()
	case map[string]interface{}:
		return "dict"
	case []interface{}:
		return "list"
	default:
		if Is(x).Existing() {
			return fmt.Sprintf("%v", x)
		}
		return fmt.Sprintf("equal(%v)", formatValue(x))
	}
}

// named is implemented by patterns that carry their own display name.
type named interface{ TypeName() string }

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
