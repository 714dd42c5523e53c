package model

import (
	"github.com/pkg/errors"

	"github.com/Clearlove07/tyshemo/store"
	"github.com/Clearlove07/tyshemo/ty"
)

// Origin is the reserved snapshot tag holding the construction state.
// Commit refuses it; Reset accepts it to return to the initial state.
const Origin = "$origin"

// defaultHistory bounds the linear undo history.
const defaultHistory = 128

// entry is one recorded mutation with its inverse.
type entry struct {
	key  string
	prev interface{}
	next interface{}
}

// Trace extends a model with named snapshots and linear undo/redo over
// the mutation history. Named commits are independent of the history
// ring.
type Trace struct {
	*Model

	entries []entry
	pos     int
	limit   int
	commits map[string]map[string]interface{}
	muted   bool
}

// NewTrace builds the model and arms the history recorder.
func NewTrace(c Config, input map[string]interface{}) (*Trace, error) {
	m, err := New(c, input)
	if err != nil {
		return nil, err
	}
	return WrapTrace(m), nil
}

// WrapTrace arms history recording over an existing model. The current
// state becomes the origin snapshot.
func WrapTrace(m *Model) *Trace {
	t := &Trace{Model: m, limit: defaultHistory, commits: make(map[string]map[string]interface{})}
	t.commits[Origin] = m.sto.Snapshot()
	m.sto.Watch(store.Wildcard, t.record, false)
	return t
}

// record captures top-level writes. Computed recomputations and the
// replays of undo/redo are not recorded.
func (t *Trace) record(c store.Change) {
	if t.muted || len(c.Path) != 1 {
		return
	}
	if t.sch.Computed(c.Key) {
		return
	}
	t.entries = append(t.entries[:t.pos], entry{
		key:  c.Key,
		prev: ty.CloneValue(c.Prev),
		next: ty.CloneValue(c.Value),
	})
	t.pos = len(t.entries)
	if len(t.entries) > t.limit {
		drop := len(t.entries) - t.limit
		t.entries = append(t.entries[:0:0], t.entries[drop:]...)
		t.pos -= drop
	}
}

// SetLimit bounds the history ring; the oldest entries fall off first.
func (t *Trace) SetLimit(n int) {
	if n > 0 {
		t.limit = n
	}
}

// Commit stores a deep copy of the current data under tag, replacing a
// previous snapshot of the same tag. The origin tag is reserved.
func (t *Trace) Commit(tag string) error {
	if tag == Origin {
		return errors.Errorf("model: commit tag %s is reserved", Origin)
	}
	t.commits[tag] = t.sto.Snapshot()
	t.resetChanged()
	return nil
}

// Reset restores the snapshot committed under tag without firing
// watchers.
func (t *Trace) Reset(tag string) error {
	snap, ok := t.commits[tag]
	if !ok {
		return errors.Errorf("model: no commit tagged %s", tag)
	}
	t.muted = true
	t.Restore(ty.CloneValue(snap).(map[string]interface{}))
	t.muted = false
	t.entries = nil
	t.pos = 0
	return nil
}

// Undo reverts the most recent recorded mutation. It is a no-op with
// an empty history.
func (t *Trace) Undo() {
	if t.pos == 0 {
		return
	}
	t.pos--
	e := t.entries[t.pos]
	t.replay(e.key, e.prev)
}

// Redo replays the most recently undone mutation. Any new write after
// an undo truncates the redo tail.
func (t *Trace) Redo() {
	if t.pos >= len(t.entries) {
		return
	}
	e := t.entries[t.pos]
	t.pos++
	t.replay(e.key, e.next)
}

func (t *Trace) replay(key string, value interface{}) {
	t.muted = true
	t.sto.Set(key, ty.CloneValue(value))
	t.muted = false
}

// Clear drops the linear history but retains named commits.
func (t *Trace) Clear() {
	t.entries = nil
	t.pos = 0
}

// CanUndo reports whether an undo step exists.
func (t *Trace) CanUndo() bool { return t.pos > 0 }

// CanRedo reports whether a redo step exists.
func (t *Trace) CanRedo() bool { return t.pos < len(t.entries) }
