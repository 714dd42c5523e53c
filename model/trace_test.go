package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Clearlove07/tyshemo/log"
	"github.com/Clearlove07/tyshemo/schema"
)

func newTrace(t *testing.T) *Trace {
	t.Helper()
	tr, err := NewTrace(Config{
		Defs: schema.Defs{
			"name": {Default: ""},
			"age":  {Default: 0},
		},
		Logger: log.Discard,
	}, nil)
	require.NoError(t, err)
	return tr
}

func TestCommitReset(t *testing.T) {
	tr := newTrace(t)
	tr.Set("name", "before")
	require.NoError(t, tr.Commit("e"))
	tr.Set("name", "X")
	tr.Set("age", 9)
	require.NoError(t, tr.Reset("e"))
	require.Equal(t, "before", tr.Get("name"))
	require.Equal(t, 0, tr.Get("age"))
	require.False(t, tr.Changed())
}

func TestCommitReplacesTag(t *testing.T) {
	tr := newTrace(t)
	tr.Set("name", "one")
	require.NoError(t, tr.Commit("e"))
	tr.Set("name", "two")
	require.NoError(t, tr.Commit("e"))
	tr.Set("name", "three")
	require.NoError(t, tr.Reset("e"))
	require.Equal(t, "two", tr.Get("name"))
}

func TestCommitReservedTag(t *testing.T) {
	tr := newTrace(t)
	require.Error(t, tr.Commit(Origin))
	tr.Set("name", "x")
	require.NoError(t, tr.Reset(Origin))
	require.Equal(t, "", tr.Get("name"))
}

func TestUndoRedo(t *testing.T) {
	tr := newTrace(t)
	tr.Set("name", "a")
	tr.Set("name", "b")
	tr.Undo()
	require.Equal(t, "a", tr.Get("name"))
	tr.Undo()
	require.Equal(t, "", tr.Get("name"))
	tr.Redo()
	tr.Redo()
	require.Equal(t, "b", tr.Get("name"))
	// undo(); redo() is identity with no intervening writes
	tr.Undo()
	tr.Redo()
	require.Equal(t, "b", tr.Get("name"))
}

func TestUndoTruncatesRedo(t *testing.T) {
	tr := newTrace(t)
	tr.Set("name", "a")
	tr.Set("name", "b")
	tr.Undo()
	require.True(t, tr.CanRedo())
	tr.Set("name", "c")
	require.False(t, tr.CanRedo())
	tr.Redo()
	require.Equal(t, "c", tr.Get("name"))
	tr.Undo()
	require.Equal(t, "a", tr.Get("name"))
}

func TestUndoEmptyHistory(t *testing.T) {
	tr := newTrace(t)
	tr.Undo()
	require.Equal(t, "", tr.Get("name"))
	tr.Redo()
	require.Equal(t, "", tr.Get("name"))
}

func TestClearKeepsCommits(t *testing.T) {
	tr := newTrace(t)
	tr.Set("name", "a")
	require.NoError(t, tr.Commit("tag"))
	tr.Set("name", "b")
	tr.Clear()
	require.False(t, tr.CanUndo())
	require.NoError(t, tr.Reset("tag"))
	require.Equal(t, "a", tr.Get("name"))
}

func TestHistoryLimit(t *testing.T) {
	tr := newTrace(t)
	tr.SetLimit(2)
	tr.Set("age", 1)
	tr.Set("age", 2)
	tr.Set("age", 3)
	tr.Undo()
	tr.Undo()
	tr.Undo()
	// the first write fell off the ring
	require.Equal(t, 1, tr.Get("age"))
}

func TestResetUnknownTag(t *testing.T) {
	tr := newTrace(t)
	require.Error(t, tr.Reset("nope"))
}

func TestCommitSnapshotIsDeep(t *testing.T) {
	tr, err := NewTrace(Config{
		Defs:   schema.Defs{"body": {Default: func() interface{} { return map[string]interface{}{"head": true} }}},
		Logger: log.Discard,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, tr.Commit("e"))
	tr.Set("body.head", false)
	require.NoError(t, tr.Reset("e"))
	require.Equal(t, true, tr.Store().Get("body.head"))
}
