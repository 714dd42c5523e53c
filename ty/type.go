package ty

import (
	"reflect"
	"regexp"
	"sort"
)

// Pattern is the language of type expressions: a *Proto token, a
// *regexp.Regexp, a structural type (*Type, *Dict, *List, *Tuple,
// *Enum, *Range, *SelfRef), a *Rule, a map literal, a sequence literal,
// or any other value matched by equality.
type Pattern = interface{}

// Map is a mapping pattern or value.
type Map = map[string]interface{}

// Seq is a sequence pattern or value.
type Seq = []interface{}

// Mode selects how structural checks treat unknown keys and extra
// positions.
type Mode int

const (
	// Loose ignores unknown keys and extra tuple positions.
	Loose Mode = iota
	// Strict rejects them with a dirty error.
	Strict
)

// Typer is the behavioral contract shared by all type values.
type Typer interface {
	Assert(v interface{}) error
	Catch(v interface{}) *Error
	Test(v interface{}) bool
}

// catcher is the internal recursion hook carrying path context.
type catcher interface {
	catchAt(v interface{}, mode Mode, path []interface{}) *Error
}

// Type wraps a pattern with a name and a strict/loose mode. The zero
// value with a nil pattern matches only nil.
type Type struct {
	Name    string
	Pattern Pattern
	Mode    Mode
}

// New returns a type over the given pattern in loose mode.
func New(pattern Pattern) *Type {
	return &Type{Name: "type", Pattern: pattern}
}

func (t *Type) TypeName() string { return t.Name }

// Assert validates v recursively and returns a *Error on mismatch.
func (t *Type) Assert(v interface{}) error {
	if err := t.Catch(v); err != nil {
		return err
	}
	return nil
}

// Catch is the non-throwing form of Assert.
func (t *Type) Catch(v interface{}) *Error { return t.catchAt(v, t.Mode, nil) }

// Test reports whether v matches.
func (t *Type) Test(v interface{}) bool { return t.Catch(v) == nil }

func (t *Type) catchAt(v interface{}, _ Mode, path []interface{}) *Error {
	return check(v, t.Pattern, t.Mode, path)
}

// Trace returns a synchronously resolved deferred handle over the check.
func (t *Type) Trace(v interface{}) *Deferred { return resolved(t.Catch(v)) }

// Track resolves the check on a separate goroutine, the closest analogue
// to a microtask.
func (t *Type) Track(v interface{}) *Deferred {
	d := pending()
	go d.resolve(t.Catch(v))
	return d
}

// Clone returns a deep copy of the type and its pattern tree so schemas
// can hold independent copies.
func (t *Type) Clone() *Type {
	return &Type{Name: t.Name, Pattern: ClonePattern(t.Pattern), Mode: t.Mode}
}

// Strict returns a strict-mode clone.
func (t *Type) Strict() *Type {
	c := t.Clone()
	c.Mode = Strict
	return c
}

// Loose returns a loose-mode clone.
func (t *Type) Loose() *Type {
	c := t.Clone()
	c.Mode = Loose
	return c
}

// check is the central validator all pattern kinds dispatch through.
func check(v interface{}, p Pattern, mode Mode, path []interface{}) *Error {
	switch x := p.(type) {
	case nil:
		if IsNull(v) {
			return nil
		}
		return newError(Mistaken, v, p, path)
	case *Proto:
		if x.Test(v) {
			return nil
		}
		return newError(Mistaken, v, p, path)
	case *regexp.Regexp:
		if s, ok := v.(string); ok && x.MatchString(s) {
			return nil
		}
		return newError(Mistaken, v, p, path)
	case *Rule:
		return x.checkValue(v, mode, path)
	case catcher:
		return x.catchAt(v, mode, path)
	case map[string]interface{}:
		return checkMap(v, x, mode, path)
	case []interface{}:
		return checkSeq(v, x, mode, path)
	}
	if test := Find(p); test != nil {
		if test(v) {
			return nil
		}
		return newError(Mistaken, v, p, path)
	}
	if equalValue(p, v) {
		return nil
	}
	return newError(Mistaken, v, p, path)
}

// checkMap validates a mapping pattern. Every pattern key must be
// present and match unless a rule gates it; strict mode rejects unknown
// keys.
func checkMap(v interface{}, pattern Map, mode Mode, path []interface{}) *Error {
	data, ok := asMap(v)
	if !ok {
		return newError(Mistaken, v, pattern, path)
	}
	for _, key := range sortedKeys(pattern) {
		sub := pattern[key]
		val, exists := data[key]
		kpath := append(path, key)
		if rule, is := sub.(*Rule); is {
			if err := rule.check(data, key, mode, kpath); err != nil {
				return err
			}
			continue
		}
		if !exists {
			return newError(Missing, nil, sub, kpath)
		}
		if err := check(val, sub, mode, kpath); err != nil {
			return err
		}
	}
	if mode == Strict {
		for _, key := range sortedKeys(data) {
			if _, known := pattern[key]; !known {
				return newError(Dirty, data[key], pattern, append(path, key))
			}
		}
	}
	return nil
}

// checkSeq validates a sequence pattern: the value must be a sequence
// whose every element matches one of the element patterns.
func checkSeq(v interface{}, pattern Seq, mode Mode, path []interface{}) *Error {
	items, ok := asSlice(v)
	if !ok {
		return newError(Mistaken, v, pattern, path)
	}
	for i, item := range items {
		ipath := append(path, i)
		var err *Error
		for _, sub := range pattern {
			if err = check(item, sub, mode, ipath); err == nil {
				break
			}
		}
		if err != nil {
			if len(pattern) > 1 {
				err = newError(Mistaken, item, pattern, ipath)
			}
			return err
		}
	}
	return nil
}

// asMap normalizes any string-keyed map value.
func asMap(v interface{}) (Map, bool) {
	if m, ok := v.(Map); ok {
		return m, true
	}
	r := reflect.ValueOf(v)
	if !r.IsValid() || r.Kind() != reflect.Map || r.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(Map, r.Len())
	for _, k := range r.MapKeys() {
		m[k.String()] = r.MapIndex(k).Interface()
	}
	return m, true
}

// asSlice normalizes any slice or array value.
func asSlice(v interface{}) (Seq, bool) {
	if s, ok := v.(Seq); ok {
		return s, true
	}
	r := reflect.ValueOf(v)
	if !r.IsValid() || (r.Kind() != reflect.Slice && r.Kind() != reflect.Array) {
		return nil, false
	}
	s := make(Seq, r.Len())
	for i := range s {
		s[i] = r.Index(i).Interface()
	}
	return s, true
}

func sortedKeys(m Map) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
