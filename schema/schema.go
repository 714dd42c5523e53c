package schema

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/Clearlove07/tyshemo/ty"
)

// Schema is the per-field meta evaluator. A schema is owned by one
// model and never shared; the pattern graph is cloned at construction.
type Schema struct {
	fields map[string]*field
	keys   []string

	// OnError receives every routed issue. The model wires its own
	// error hook here.
	OnError func(*Issue)
}

// New decodes the meta bags once and returns the schema. Unsupported
// meta forms fail construction.
func New(defs Defs) (*Schema, error) {
	s := &Schema{fields: make(map[string]*field, len(defs))}
	for key := range defs {
		s.keys = append(s.keys, key)
	}
	sort.Strings(s.keys)
	for _, key := range s.keys {
		f, err := decodeField(key, defs[key])
		if err != nil {
			return nil, err
		}
		s.fields[key] = f
	}
	return s, nil
}

// Keys returns the field names in sorted order.
func (s *Schema) Keys() []string { return s.keys }

// Has reports whether the schema declares the field.
func (s *Schema) Has(key string) bool { return s.fields[key] != nil }

// Def returns the raw meta bag for a field, or nil.
func (s *Schema) Def(key string) *FieldDef {
	if f := s.fields[key]; f != nil {
		return &f.def
	}
	return nil
}

// Computed reports whether the field carries a compute meta.
func (s *Schema) Computed(key string) bool {
	f := s.fields[key]
	return f != nil && f.def.Compute != nil
}

// route constructs the issue record, hands it to OnError and falls back
// to the field's Catch sink when defined. It enforces the collect,
// never throw policy for meta evaluation.
func (s *Schema) route(iss *Issue) (interface{}, bool) {
	if s.OnError != nil {
		s.OnError(iss)
	}
	if f := s.fields[iss.Key]; f != nil && f.def.Catch != nil && iss.Err != nil {
		return f.def.Catch(iss.Err), true
	}
	return nil, false
}

// trydo runs one meta invocation under the routing policy. A panic in
// the meta becomes the issue's error. Force bypasses the recovery so
// the caller sees the raw failure.
func (s *Schema) trydo(key, meta string, force bool, fn func() interface{}) (v interface{}, iss *Issue) {
	if force {
		return fn(), nil
	}
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = errors.Errorf("%v", r)
			}
			iss = &Issue{Key: key, Meta: meta, At: -1, Err: errors.WithMessagef(err, "%s.%s", key, meta), Message: fmt.Sprintf("%s.%s: %v", key, meta, err)}
			if fb, ok := s.route(iss); ok {
				v, iss = fb, nil
			}
		}
	}()
	return fn(), nil
}

// Default returns the field's default value; producer funcs are
// invoked, object and sequence values deep cloned.
func (s *Schema) Default(key string) interface{} {
	f := s.fields[key]
	if f == nil {
		return nil
	}
	if f.defaultFn != nil {
		v, _ := s.trydo(key, "default", false, func() interface{} { return f.defaultFn() })
		return v
	}
	return ty.CloneValue(f.def.Default)
}

// triOn resolves a decoded tri-form meta to a boolean. Errors during
// determine are routed and fall back to false.
func (s *Schema) triOn(key, meta string, t tri, ctx Context) bool {
	if !t.set {
		return false
	}
	if t.determine == nil {
		return t.on
	}
	v, iss := s.trydo(key, meta, false, func() interface{} { return t.determine(ctx) })
	if iss != nil {
		return false
	}
	on, _ := v.(bool)
	return on
}

// triMessage resolves the meta's message, templated when absent.
func triMessage(key, meta string, t tri) string {
	if t.msg != "" {
		return t.msg
	}
	return key + " is " + meta
}

// Required reports whether the field is required in ctx.
func (s *Schema) Required(key string, ctx Context) bool {
	f := s.fields[key]
	if f == nil {
		return false
	}
	return s.triOn(key, "required", f.required, ctx)
}

// Readonly reports whether writes to the field are rejected. Reads,
// validation and export still apply.
func (s *Schema) Readonly(key string, ctx Context) bool {
	f := s.fields[key]
	if f == nil {
		return false
	}
	return s.triOn(key, "readonly", f.readonly, ctx)
}

// Disabled reports whether the field is disabled: writes rejected,
// validation empty, export drops the field.
func (s *Schema) Disabled(key string, ctx Context) bool {
	f := s.fields[key]
	if f == nil {
		return false
	}
	return s.triOn(key, "disabled", f.disabled, ctx)
}

// Hidden resolves the hidden meta, surfaced only on views.
func (s *Schema) Hidden(key string, ctx Context) bool {
	f := s.fields[key]
	if f == nil {
		return false
	}
	return s.triOn(key, "hidden", f.hidden, ctx)
}

// Get resolves the user-facing value: compute wins over the stored
// value, else the getter transforms it.
func (s *Schema) Get(key string, value interface{}, ctx Context) interface{} {
	f := s.fields[key]
	if f == nil {
		return value
	}
	if f.def.Compute != nil {
		v, _ := s.trydo(key, "compute", false, func() interface{} { return f.def.Compute(ctx) })
		return v
	}
	if f.def.Getter != nil {
		v, iss := s.trydo(key, "getter", false, func() interface{} { return f.def.Getter(value, ctx) })
		if iss != nil {
			return value
		}
		return v
	}
	return value
}

// Accept is the raw write path: computed fields record a compute issue
// and still return the computed value; otherwise the setter applies and
// the type is checked. Type failures are routed, the value passes
// through. Force bypasses the meta recovery.
func (s *Schema) Accept(key string, value interface{}, ctx Context, force bool) (interface{}, []*Issue) {
	f := s.fields[key]
	if f == nil {
		return value, nil
	}
	var issues []*Issue
	if f.def.Compute != nil {
		iss := &Issue{Key: key, Meta: ty.Compute, At: -1, Message: key + " is a computed field and cannot be set"}
		s.route(iss)
		v, _ := s.trydo(key, "compute", force, func() interface{} { return f.def.Compute(ctx) })
		return v, []*Issue{iss}
	}
	if f.def.Setter != nil {
		v, iss := s.trydo(key, "setter", force, func() interface{} { return f.def.Setter(value, ctx) })
		if iss == nil {
			value = v
		} else {
			issues = append(issues, iss)
		}
	}
	if iss := s.checkType(f, value, ctx); iss != nil {
		s.route(iss)
		issues = append(issues, iss)
	}
	return value, issues
}

// Set guards the write with disabled then readonly; a refusal routes an
// issue and returns prev unchanged.
func (s *Schema) Set(key string, next, prev interface{}, ctx Context) (interface{}, []*Issue) {
	f := s.fields[key]
	if f == nil {
		return next, nil
	}
	if s.Disabled(key, ctx) {
		iss := &Issue{Key: key, Meta: ty.Disabled, At: -1, Message: triMessage(key, "disabled", f.disabled)}
		s.route(iss)
		return prev, []*Issue{iss}
	}
	if s.Readonly(key, ctx) {
		iss := &Issue{Key: key, Meta: ty.Readonly, At: -1, Message: triMessage(key, "readonly", f.readonly)}
		s.route(iss)
		return prev, []*Issue{iss}
	}
	return s.Accept(key, next, ctx, false)
}

// checkType runs the field's type pattern. Rules check against the
// parent data view so sibling-dependent patterns work.
func (s *Schema) checkType(f *field, value interface{}, ctx Context) *Issue {
	if f.typ == nil {
		return nil
	}
	var err *ty.Error
	if rule, ok := f.typ.(*ty.Rule); ok {
		view := make(map[string]interface{})
		if ctx != nil {
			for k, v := range ctx.Data() {
				view[k] = v
			}
		}
		view[f.key] = value
		err = rule.CatchKey(view, f.key)
	} else {
		err = ty.Catch(value).By(f.typ)
	}
	if err == nil {
		return nil
	}
	msg := f.def.Message
	if msg == "" {
		msg = err.Error()
	}
	return &Issue{Key: f.key, Meta: "type", At: -1, Err: err, Message: msg}
}

// Validate returns the field's validation errors: nothing when
// disabled, the required check on empty values first, then the type,
// then each validator in order.
func (s *Schema) Validate(key string, value interface{}, ctx Context) []*Issue {
	f := s.fields[key]
	if f == nil {
		return nil
	}
	if s.Disabled(key, ctx) {
		return nil
	}
	var issues []*Issue
	empty := ty.IsEmpty(value)
	if empty && s.Required(key, ctx) {
		issues = append(issues, &Issue{Key: key, Meta: "required", At: -1, Message: triMessage(key, "required", f.required)})
	}
	if iss := s.checkType(f, value, ctx); iss != nil {
		issues = append(issues, iss)
	}
	issues = append(issues, s.runValidators(f, value, ctx, f.def.Validators, 0, false)...)
	return issues
}

// ValidateWait validates like Validate but blocks on async validators
// instead of treating unresolved ones as passed.
func (s *Schema) ValidateWait(key string, value interface{}, ctx Context) []*Issue {
	f := s.fields[key]
	if f == nil || s.Disabled(key, ctx) {
		return nil
	}
	var issues []*Issue
	if ty.IsEmpty(value) && s.Required(key, ctx) {
		issues = append(issues, &Issue{Key: key, Meta: "required", At: -1, Message: triMessage(key, "required", f.required)})
	}
	if iss := s.checkType(f, value, ctx); iss != nil {
		issues = append(issues, iss)
	}
	issues = append(issues, s.runValidators(f, value, ctx, f.def.Validators, 0, true)...)
	return issues
}

// ValidateOnly runs the validators list alone, skipping required and
// type. Views use it for their errors projection.
func (s *Schema) ValidateOnly(key string, value interface{}, ctx Context) []*Issue {
	f := s.fields[key]
	if f == nil || s.Disabled(key, ctx) {
		return nil
	}
	return s.runValidators(f, value, ctx, f.def.Validators, 0, false)
}

// ValidateBy runs a selected subset of validators, see Selector.
func (s *Schema) ValidateBy(key string, value interface{}, ctx Context, sel Selector) []*Issue {
	f := s.fields[key]
	if f == nil || s.Disabled(key, ctx) {
		return nil
	}
	list, base := sel.pick(f.def.Validators)
	return s.runValidators(f, value, ctx, list, base, false)
}

func (s *Schema) runValidators(f *field, value interface{}, ctx Context, list []Validator, base int, await bool) []*Issue {
	var issues []*Issue
	for i, v := range list {
		issues = append(issues, s.runValidator(f, base+i, v, value, ctx, await)...)
	}
	return issues
}

func (s *Schema) runValidator(f *field, at int, v Validator, value interface{}, ctx Context, await bool) []*Issue {
	if v.Determine != nil {
		ok, iss := s.trydo(f.key, "validators.determine", false, func() interface{} { return v.Determine(value, ctx) })
		if iss != nil {
			return nil
		}
		if on, _ := ok.(bool); !on {
			return nil
		}
	}
	if v.Validate == nil {
		return nil
	}
	res, iss := s.trydo(f.key, "validators.validate", false, func() interface{} { return v.Validate(value, ctx) })
	if iss != nil {
		return nil
	}
	switch r := res.(type) {
	case nil:
		return nil
	case bool:
		if r {
			return nil
		}
		return []*Issue{{Key: f.key, Meta: "validate", At: at, Message: validatorMessage(v, value, f.key, r)}}
	case error:
		return []*Issue{{Key: f.key, Meta: "validate", At: at, Err: r, Message: validatorMessage(v, value, f.key, r)}}
	case []*Issue:
		out := make([]*Issue, 0, len(r))
		for _, sub := range r {
			spliced := *sub
			spliced.Key = f.key + "." + sub.Key
			out = append(out, &spliced)
		}
		return out
	case *ty.Deferred:
		if !await && !r.Done() {
			// fire-and-forget: a late result does not invalidate this run
			return nil
		}
		if err := r.Wait(); err != nil {
			return []*Issue{{Key: f.key, Meta: "validate", At: at, Err: err, Message: validatorMessage(v, value, f.key, err)}}
		}
		return nil
	}
	return nil
}

// validatorMessage resolves message metas: funcs are called with
// (value, key, result), strings used directly, errors expose their
// message, anything else falls back to a templated default.
func validatorMessage(v Validator, value interface{}, key string, result interface{}) string {
	switch m := v.Message.(type) {
	case string:
		if m != "" {
			return m
		}
	case func(value interface{}, key string, result interface{}) string:
		return m(value, key, result)
	}
	if err, ok := result.(error); ok {
		return err.Error()
	}
	return key + " did not pass its validator"
}

// Parse builds a fresh record from raw input: create transforms apply,
// absent results fall back to defaults, and every value is type checked
// with errors routed and aggregated.
func (s *Schema) Parse(data map[string]interface{}, ctx Context) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(s.keys))
	var errs error
	for _, key := range s.keys {
		f := s.fields[key]
		raw, exists := data[key]
		var value interface{}
		switch {
		case f.def.Create != nil:
			v, iss := s.trydo(key, "create", false, func() interface{} { return f.def.Create(data, key, raw) })
			if iss != nil || v == nil {
				v = s.Default(key)
			}
			value = v
		case exists:
			value = raw
		default:
			value = s.Default(key)
		}
		if f.def.Setter != nil && exists && f.def.Create == nil {
			if v, iss := s.trydo(key, "setter", false, func() interface{} { return f.def.Setter(value, ctx) }); iss == nil {
				value = v
			}
		}
		if f.def.Compute == nil {
			if iss := s.checkType(f, value, ctx); iss != nil {
				s.route(iss)
				errs = multierr.Append(errs, iss)
			}
		}
		out[key] = value
	}
	return out, errs
}

// Export projects raw data to the output form: flat expansions are
// collected as a patch, disabled and dropped fields are skipped, map
// transforms apply, and the patch wins over plainly exported keys.
func (s *Schema) Export(data map[string]interface{}, ctx Context) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(s.keys))
	patch := make(map[string]interface{})
	var errs error
	for _, key := range s.keys {
		f := s.fields[key]
		value := data[key]
		if f.def.Compute != nil {
			value = s.Get(key, value, ctx)
		}
		if f.def.Flat != nil {
			m, iss := s.trydo(key, "flat", false, func() interface{} { return f.def.Flat(value, key, data) })
			if iss == nil {
				if mm, ok := m.(map[string]interface{}); ok {
					for k, v := range mm {
						patch[k] = v
					}
				}
			} else {
				errs = multierr.Append(errs, iss)
			}
		}
		if s.Disabled(key, ctx) {
			continue
		}
		if f.def.Drop != nil {
			drop, iss := s.trydo(key, "drop", false, func() interface{} { return f.def.Drop(value, key, data) })
			if iss == nil {
				if on, _ := drop.(bool); on {
					continue
				}
			}
		}
		if f.def.Map != nil {
			v, iss := s.trydo(key, "map", false, func() interface{} { return f.def.Map(value, key, data) })
			if iss == nil {
				value = v
			} else {
				errs = multierr.Append(errs, iss)
			}
		}
		out[key] = value
	}
	for k, v := range patch {
		out[k] = v
	}
	return out, errs
}
