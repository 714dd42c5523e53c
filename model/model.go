// Package model combines a schema and a reactive store into a typed,
// validated, observable data container with views, history and
// serialization.
package model

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Clearlove07/tyshemo/log"
	"github.com/Clearlove07/tyshemo/schema"
	"github.com/Clearlove07/tyshemo/store"
	"github.com/Clearlove07/tyshemo/ty"
)

// Hooks are the overridable model reactions. Nil hooks fall back to the
// documented defaults.
type Hooks struct {
	// OnError receives every routed issue; the default logs it.
	OnError func(*schema.Issue)
	// OnSwitch runs before restore and may mutate its argument in
	// place; the result is deep copied before seeding the store.
	OnSwitch func(data map[string]interface{}) map[string]interface{}
	// OnParse transforms raw input before FromJSON parses it.
	OnParse func(data map[string]interface{}) map[string]interface{}
	// OnExport transforms the exported record of ToJSON.
	OnExport func(data map[string]interface{}) map[string]interface{}
}

// Config declares a model: field defs, extra mutable state, the meta
// names views may expose, hooks and a logger.
type Config struct {
	Defs  schema.Defs
	State map[string]interface{}
	// Metas is a []string of allowed meta names, or a map from meta
	// name to a default value where a nil default means only-if-present.
	Metas  interface{}
	Hooks  Hooks
	Logger log.Logger
}

// Model is the orchestrator over one schema snapshot and one store.
type Model struct {
	// ID tags log lines for this instance. Routed issues do not carry it.
	ID string

	sch    *schema.Schema
	sto    *store.Store
	hooks  Hooks
	logger log.Logger

	metas     map[string]interface{}
	stateKeys []string
	locked    bool
	changed   map[string]bool
	issues    []*schema.Issue
	views     map[string]*View
}

// New builds a model from its config and optional input data. A state
// key colliding with a schema key fails construction; the schema is
// authoritative.
func New(c Config, input map[string]interface{}) (*Model, error) {
	sch, err := schema.New(c.Defs)
	if err != nil {
		return nil, err
	}
	m := &Model{
		ID:      uuid.NewString(),
		sch:     sch,
		sto:     store.New(),
		hooks:   c.Hooks,
		changed: make(map[string]bool),
		views:   make(map[string]*View),
	}
	logger := c.Logger
	if logger == nil {
		logger = log.Root
	}
	m.logger = logger.With("model", m.ID)
	for key := range c.State {
		if sch.Has(key) {
			return nil, errors.Errorf("model: state key %s collides with schema", key)
		}
		m.stateKeys = append(m.stateKeys, key)
	}
	if err := m.decodeMetas(c.Metas); err != nil {
		return nil, err
	}
	sch.OnError = m.route
	if input == nil {
		input = map[string]interface{}{}
	}
	seed, _ := sch.Parse(input, m)
	m.sto.Replace(seed)
	for key, v := range c.State {
		m.sto.SetSilent(key, ty.CloneValue(v))
	}
	for _, key := range sch.Keys() {
		if def := sch.Def(key); def.Watch != nil {
			m.sto.Watch(key, def.Watch, false)
		}
	}
	m.bindComputed()
	return m, nil
}

func (m *Model) decodeMetas(metas interface{}) error {
	switch x := metas.(type) {
	case nil:
		return nil
	case []string:
		m.metas = make(map[string]interface{}, len(x))
		for _, name := range x {
			m.metas[name] = nil
		}
		return nil
	case map[string]interface{}:
		m.metas = x
		return nil
	}
	return errors.Errorf("model: metas must be []string or map[string]interface{}, got %T", metas)
}

// bindComputed captures each computed field's dependencies once, at
// construction, and binds writes to them to a recompute of the field;
// dependencies read only on later evaluations are not tracked. Every
// changed dependency reruns the compute, so a batch touching two
// dependencies computes twice; the dispatch turn dedup delivers an
// identical result to the field's watchers only once.
func (m *Model) bindComputed() {
	for _, key := range m.sch.Keys() {
		if !m.sch.Computed(key) {
			continue
		}
		key := key
		var current interface{}
		deps := m.sto.Track(func() { current = m.sch.Get(key, nil, m) })
		m.sto.SetSilent(key, current)
		recompute := func(store.Change) {
			m.sto.Set(key, m.sch.Get(key, nil, m))
		}
		for _, dep := range deps {
			m.sto.Watch(dep, recompute, true)
		}
	}
}

// route records an issue, hands it to the OnError hook and logs it by
// default.
func (m *Model) route(iss *schema.Issue) {
	m.issues = append(m.issues, iss)
	if m.hooks.OnError != nil {
		m.hooks.OnError(iss)
		return
	}
	m.logger.Error("model issue", "key", iss.Key, "meta", iss.Meta, "msg", iss.Error())
}

// LastIssues returns the issues routed since construction or the last
// ClearIssues call.
func (m *Model) LastIssues() []*schema.Issue { return m.issues }

// ClearIssues drops the recorded issue list.
func (m *Model) ClearIssues() { m.issues = nil }

// Schema exposes the owned schema snapshot.
func (m *Model) Schema() *schema.Schema { return m.sch }

// Store exposes the owned store.
func (m *Model) Store() *store.Store { return m.sto }

// Data returns the raw storage view. Part of schema.Context.
func (m *Model) Data() map[string]interface{} { return m.sto.Raw() }

// Get returns the user-facing value of a field: computed fields are
// materialized, getters applied. Part of schema.Context.
func (m *Model) Get(key string) interface{} {
	return m.sch.Get(key, m.sto.Get(key), m)
}

// State returns the user-facing record: every schema field through Get
// plus the declared state keys.
func (m *Model) State() map[string]interface{} {
	out := make(map[string]interface{})
	for _, key := range m.sch.Keys() {
		out[key] = m.Get(key)
	}
	for _, key := range m.stateKeys {
		out[key] = m.sto.Get(key)
	}
	return out
}

// Set writes one field through the schema. Locked models and disabled,
// readonly or computed fields refuse the write with a routed issue and
// keep the previous value. Force skips the readonly and disabled
// guards.
func (m *Model) Set(key string, value interface{}) { m.set(key, value, false) }

// SetForce writes like Set but skips readonly and disabled guards.
func (m *Model) SetForce(key string, value interface{}) { m.set(key, value, true) }

func (m *Model) set(key string, value interface{}, force bool) {
	if m.refuseLocked(key) {
		return
	}
	if !m.sch.Has(key) {
		m.sto.Set(key, value)
		return
	}
	prev := m.sto.Get(key)
	var next interface{}
	var issues []*schema.Issue
	if force {
		next, issues = m.sch.Accept(key, value, m, true)
	} else {
		next, issues = m.sch.Set(key, value, prev, m)
	}
	if refused(issues) {
		return
	}
	m.sto.Set(key, next)
	m.changed[key] = true
}

// Update applies a whole patch batched: every write resolves through
// the schema first, then the store applies and dispatches them as one
// turn.
func (m *Model) Update(patch map[string]interface{}) {
	if m.refuseLocked("") {
		return
	}
	final := make(map[string]interface{}, len(patch))
	for key, value := range patch {
		if !m.sch.Has(key) {
			final[key] = value
			continue
		}
		next, issues := m.sch.Set(key, value, m.sto.Get(key), m)
		if refused(issues) {
			continue
		}
		final[key] = next
	}
	m.sto.Update(final)
	for key := range final {
		m.changed[key] = true
	}
}

func (m *Model) refuseLocked(key string) bool {
	if !m.locked {
		return false
	}
	m.route(&schema.Issue{Key: key, Meta: ty.Locked, At: -1, Message: "model is locked"})
	return true
}

// refused reports whether issues contain a write refusal rather than a
// routed type failure.
func refused(issues []*schema.Issue) bool {
	for _, iss := range issues {
		switch iss.Meta {
		case ty.Disabled, ty.Readonly, ty.Compute:
			return true
		}
	}
	return false
}

// Validate aggregates validation errors for the given keys, or for the
// whole schema when none are given.
func (m *Model) Validate(keys ...string) []*schema.Issue {
	if len(keys) == 0 {
		keys = m.sch.Keys()
	}
	var issues []*schema.Issue
	for _, key := range keys {
		issues = append(issues, m.sch.Validate(key, m.value(key), m)...)
	}
	return issues
}

// ValidateCtx fans the per-field validation out on an errgroup and
// awaits async validators. Validators must not write to the model
// during a concurrent validation.
func (m *Model) ValidateCtx(ctx context.Context, keys ...string) ([]*schema.Issue, error) {
	if len(keys) == 0 {
		keys = m.sch.Keys()
	}
	results := make([][]*schema.Issue, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			results[i] = m.sch.ValidateWait(key, m.value(key), m)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var issues []*schema.Issue
	for _, r := range results {
		issues = append(issues, r...)
	}
	return issues, nil
}

// Err folds the full validation into one aggregated error, nil when
// the model is valid.
func (m *Model) Err() error { return schema.Combine(m.Validate()) }

// value returns what validation sees: the raw stored value, or the
// materialized one for computed fields.
func (m *Model) value(key string) interface{} {
	if m.sch.Computed(key) {
		return m.Get(key)
	}
	return m.sto.Get(key)
}

// Changed reports whether any of the keys, or any field at all, was
// written since construction or the last restore or commit.
func (m *Model) Changed(keys ...string) bool {
	if len(keys) == 0 {
		return len(m.changed) > 0
	}
	for _, key := range keys {
		if m.changed[key] {
			return true
		}
	}
	return false
}

func (m *Model) resetChanged() { m.changed = make(map[string]bool) }

// Restore replaces the store state wholesale without firing watchers.
// The OnSwitch hook runs first and may mutate its argument; the result
// is deep copied before seeding.
func (m *Model) Restore(data map[string]interface{}) {
	if m.refuseLocked("") {
		return
	}
	if m.hooks.OnSwitch != nil {
		if out := m.hooks.OnSwitch(data); out != nil {
			data = out
		}
	}
	copied, _ := ty.CloneValue(data).(map[string]interface{})
	seed := make(map[string]interface{})
	for _, key := range m.sch.Keys() {
		if v, ok := copied[key]; ok {
			seed[key] = v
		} else {
			seed[key] = m.sch.Default(key)
		}
	}
	for _, key := range m.stateKeys {
		if v, ok := copied[key]; ok {
			seed[key] = v
		} else {
			seed[key] = m.sto.Get(key)
		}
	}
	m.sto.Replace(seed)
	m.resetChanged()
	for _, key := range m.sch.Keys() {
		if m.sch.Computed(key) {
			m.sto.SetSilent(key, m.sch.Get(key, nil, m))
		}
	}
}

// FromJSON parses raw input through OnParse and the schema, then
// restores the result.
func (m *Model) FromJSON(data map[string]interface{}) {
	if m.hooks.OnParse != nil {
		if out := m.hooks.OnParse(data); out != nil {
			data = out
		}
	}
	parsed, _ := m.sch.Parse(data, m)
	m.Restore(parsed)
}

// ToJSON projects the raw data through the schema export and OnExport.
func (m *Model) ToJSON() map[string]interface{} {
	out, _ := m.sch.Export(m.sto.Raw(), m)
	if m.hooks.OnExport != nil {
		if next := m.hooks.OnExport(out); next != nil {
			out = next
		}
	}
	return out
}

// MarshalJSON implements json.Marshaler over ToJSON.
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.ToJSON())
}

// UnmarshalJSON implements json.Unmarshaler over FromJSON.
func (m *Model) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "model: unmarshal")
	}
	m.FromJSON(raw)
	return nil
}

// Lock freezes writes: Set, Update and Restore no-op with a locked
// issue until Unlock.
func (m *Model) Lock() { m.locked = true }

// Unlock lifts the write freeze.
func (m *Model) Unlock() { m.locked = false }

// Locked reports the lock state.
func (m *Model) Locked() bool { return m.locked }

// Watch registers a store watcher; immediate fires the handler once
// with the current value.
func (m *Model) Watch(path string, fn store.Handler, immediate bool) {
	m.sto.Watch(path, fn, true)
	if immediate {
		segs, err := store.ParsePath(path)
		if err != nil {
			return
		}
		fn(store.Change{Key: segs[0], Path: segs, Value: m.sto.Get(path)})
	}
}

// Unwatch removes watchers for the path; a nil fn removes all of them.
func (m *Model) Unwatch(path string, fn store.Handler) { m.sto.Unwatch(path, fn) }
