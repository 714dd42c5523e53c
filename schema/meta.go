// Package schema interprets per-field meta descriptors and evaluates
// them against a context, usually the owning model. Meta evaluation
// never throws: failures are routed through the schema's OnError hook
// and the field's Catch meta, and the operation proceeds with a
// documented fallback.
package schema

import (
	"github.com/pkg/errors"

	"github.com/Clearlove07/tyshemo/store"
	"github.com/Clearlove07/tyshemo/ty"
)

// Context is the evaluation environment for metas, implemented by the
// owning model.
type Context interface {
	// Get returns the user-facing value of a field.
	Get(key string) interface{}
	// Data returns the raw storage view.
	Data() map[string]interface{}
}

// Defs maps field names to their meta bags.
type Defs map[string]FieldDef

// FieldDef is the meta bag recognized per field. Every func meta is
// optional; nil means the meta is absent.
type FieldDef struct {
	// Default is the initial value, or a zero-arg producer invoked at
	// init and restore. Object and sequence defaults are deep cloned so
	// instances never share mutable state.
	Default interface{}

	// Type is the pattern enforced on writes and validation. A *ty.Rule
	// checks against the parent data view, any other pattern checks the
	// bare value.
	Type ty.Pattern

	// Message is the default message for type failures.
	Message string

	// Compute derives the value from the context; the field becomes
	// read-only and is recomputed when a dependency changes.
	Compute func(ctx Context) interface{}

	// Validators run during validation, independent of Required and
	// Type.
	Validators []Validator

	// Create transforms raw input during parse; a nil result falls back
	// to the default.
	Create func(data map[string]interface{}, key string, value interface{}) interface{}

	// Drop skips the field during export when it returns true.
	Drop func(value interface{}, key string, data map[string]interface{}) bool

	// Map transforms the exported value.
	Map func(value interface{}, key string, data map[string]interface{}) interface{}

	// Flat expands the field into extra top-level output keys; the
	// expansion wins over plainly exported keys.
	Flat func(value interface{}, key string, data map[string]interface{}) map[string]interface{}

	// Getter transforms the stored value on read.
	Getter func(value interface{}, ctx Context) interface{}

	// Setter transforms the caller value before storage.
	Setter func(value interface{}, ctx Context) interface{}

	// Required, Readonly, Disabled and Hidden are tri-form metas: bool,
	// string (truthy with message), func(Context) bool, or Tri.
	Required interface{}
	Readonly interface{}
	Disabled interface{}
	Hidden   interface{}

	// Watch is a field-scoped reaction to value changes.
	Watch func(store.Change)

	// Catch is the per-field error sink; its return value substitutes
	// the result of a failed meta.
	Catch func(err error) interface{}

	// Extra carries arbitrary metas; only names allowed by the model's
	// metas list are exposed on views.
	Extra map[string]interface{}
}

// Validator is one entry of a field's validators list.
type Validator struct {
	// Determine gates the validator; nil means always run.
	Determine func(value interface{}, ctx Context) bool
	// Validate returns bool, error, []*Issue (nested submodel errors,
	// spliced in) or *ty.Deferred for async checks.
	Validate func(value interface{}, ctx Context) interface{}
	// Message is a string or a func(value, key, result) string.
	Message interface{}
}

// Tri is the tagged record form of a tri-form meta.
type Tri struct {
	Determine func(ctx Context) bool
	Message   string
}

// tri is the decoded variant, resolved once at schema construction.
type tri struct {
	set       bool
	on        bool
	msg       string
	determine func(ctx Context) bool
}

func decodeTri(key, meta string, v interface{}) (tri, error) {
	switch x := v.(type) {
	case nil:
		return tri{}, nil
	case bool:
		return tri{set: true, on: x}, nil
	case string:
		return tri{set: true, on: true, msg: x}, nil
	case func(ctx Context) bool:
		return tri{set: true, determine: x}, nil
	case func() bool:
		return tri{set: true, determine: func(Context) bool { return x() }}, nil
	case Tri:
		return tri{set: true, on: x.Determine == nil, determine: x.Determine, msg: x.Message}, nil
	case *Tri:
		return decodeTri(key, meta, *x)
	}
	return tri{}, errors.Errorf("schema: field %s meta %s has unsupported form %T", key, meta, v)
}

// field is one decoded schema entry.
type field struct {
	key       string
	def       FieldDef
	typ       ty.Pattern
	required  tri
	readonly  tri
	disabled  tri
	hidden    tri
	defaultFn func() interface{}
}

func decodeField(key string, def FieldDef) (*field, error) {
	f := &field{key: key, def: def}
	if def.Type != nil {
		f.typ = ty.ClonePattern(def.Type)
	}
	if fn, ok := def.Default.(func() interface{}); ok {
		f.defaultFn = fn
	}
	var err error
	if f.required, err = decodeTri(key, "required", def.Required); err != nil {
		return nil, err
	}
	if f.readonly, err = decodeTri(key, "readonly", def.Readonly); err != nil {
		return nil, err
	}
	if f.disabled, err = decodeTri(key, "disabled", def.Disabled); err != nil {
		return nil, err
	}
	if f.hidden, err = decodeTri(key, "hidden", def.Hidden); err != nil {
		return nil, err
	}
	return f, nil
}
