package model

import "github.com/Clearlove07/tyshemo/schema"

// View is a live projection of one field consumed by UI layers. Views
// observe the model and never own it; every accessor reads through the
// schema at call time.
type View struct {
	m   *Model
	key string
}

// Use returns the live view for a field.
func (m *Model) Use(key string) *View {
	if v, ok := m.views[key]; ok {
		return v
	}
	v := &View{m: m, key: key}
	m.views[key] = v
	return v
}

// Views returns the view for every schema field.
func (m *Model) Views() map[string]*View {
	for _, key := range m.sch.Keys() {
		m.Use(key)
	}
	return m.views
}

// ViewErrors concatenates the validator errors of every view, the
// $errors aggregate.
func (m *Model) ViewErrors() []*schema.Issue {
	var issues []*schema.Issue
	for _, key := range m.sch.Keys() {
		issues = append(issues, m.Use(key).Errors()...)
	}
	return issues
}

// Key returns the field name.
func (v *View) Key() string { return v.key }

// Value reads the user-facing value.
func (v *View) Value() interface{} { return v.m.Get(v.key) }

// SetValue writes through the schema like a model set.
func (v *View) SetValue(value interface{}) { v.m.Set(v.key, value) }

// Required resolves the required meta.
func (v *View) Required() bool { return v.m.sch.Required(v.key, v.m) }

// Readonly resolves the readonly meta.
func (v *View) Readonly() bool { return v.m.sch.Readonly(v.key, v.m) }

// Disabled resolves the disabled meta.
func (v *View) Disabled() bool { return v.m.sch.Disabled(v.key, v.m) }

// Hidden resolves the hidden meta.
func (v *View) Hidden() bool { return v.m.sch.Hidden(v.key, v.m) }

// Changed reports whether the field was written since the last restore
// or commit.
func (v *View) Changed() bool { return v.m.changed[v.key] }

// Errors returns the validators-only errors, excluding required and
// type failures.
func (v *View) Errors() []*schema.Issue {
	return v.m.sch.ValidateOnly(v.key, v.m.value(v.key), v.m)
}

// Meta resolves an arbitrary meta by name. Only names allowed by the
// model's metas declaration are exposed; a nil declared default means
// the meta surfaces only when the field carries it.
func (v *View) Meta(name string) (interface{}, bool) {
	if v.m.metas == nil {
		return nil, false
	}
	fallback, allowed := v.m.metas[name]
	if !allowed {
		return nil, false
	}
	if def := v.m.sch.Def(v.key); def != nil && def.Extra != nil {
		if val, ok := def.Extra[name]; ok {
			return val, true
		}
	}
	if fallback != nil {
		return fallback, true
	}
	return nil, false
}

// Metas resolves every allowed meta present on the field.
func (v *View) Metas() map[string]interface{} {
	out := make(map[string]interface{})
	for name := range v.m.metas {
		if val, ok := v.Meta(name); ok {
			out[name] = val
		}
	}
	return out
}
