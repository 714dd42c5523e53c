// Package store provides a reactive keypath store with watchers,
// dependency tracking and a two-phase dispatch queue.
//
// The store is single-threaded and cooperative: mutations, watcher
// dispatch and tracking run to completion on the caller's goroutine.
// It is not safe for concurrent use.
package store

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Clearlove07/tyshemo/ty"
)

// Change describes one applied write delivered to watchers.
type Change struct {
	// Key is the first path segment.
	Key string
	// Path is the full segmented path of the write.
	Path []string
	// Value is the value after the write, nil after a delete.
	Value interface{}
	// Prev is the value before the write.
	Prev interface{}
}

// Handler receives changes for a watched path.
type Handler func(Change)

// Store is a mapping from key paths to values.
type Store struct {
	data     map[string]interface{}
	watchers []*watcher
	silent   bool
	queue    []Change
	draining bool
	emitted  map[string]interface{}
	frames   []*frame
	nextID   int
}

// New returns an empty store.
func New() *Store {
	return &Store{data: make(map[string]interface{})}
}

// ParsePath splits a dotted key path into segments. The wildcard "*"
// stays a single segment.
func ParsePath(path string) ([]string, error) {
	if path == "" {
		return nil, errors.New("store: empty key path")
	}
	return strings.Split(path, "."), nil
}

func joinPath(path []string) string { return strings.Join(path, ".") }

// Raw returns the live backing map. Callers must treat it as read-only;
// writes through Raw bypass dispatch.
func (s *Store) Raw() map[string]interface{} { return s.data }

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() map[string]interface{} {
	return ty.CloneValue(s.data).(map[string]interface{})
}

// Keys returns the top-level keys in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether the top-level key exists.
func (s *Store) Has(key string) bool {
	_, ok := s.data[key]
	return ok
}

// Get reads the value at path, nil when absent. A read during a tracked
// function records the path as a dependency.
func (s *Store) Get(path string) interface{} {
	segs, err := ParsePath(path)
	if err != nil {
		return nil
	}
	s.record(path)
	return walk(s.data, segs)
}

// Set writes value at path and dispatches watchers.
func (s *Store) Set(path string, value interface{}) {
	s.write(path, value, false, false)
}

// SetSilent writes value at path without dispatching watchers.
func (s *Store) SetSilent(path string, value interface{}) {
	s.write(path, value, true, false)
}

// Del removes the value at path and notifies watchers with a nil next
// value.
func (s *Store) Del(path string) {
	s.write(path, nil, false, true)
}

// DelSilent removes the value at path without dispatch.
func (s *Store) DelSilent(path string) {
	s.write(path, nil, true, true)
}

// Silent toggles the session silent flag: while set, every write skips
// dispatch.
func (s *Store) Silent(on bool) { s.silent = on }

// Update applies a whole patch atomically: all writes are applied
// first, then watchers fire per change, specific paths before
// wildcards.
func (s *Store) Update(patch map[string]interface{}) {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	changes := make([]Change, 0, len(keys))
	for _, k := range keys {
		segs, err := ParsePath(k)
		if err != nil {
			continue
		}
		prev := walk(s.data, segs)
		s.apply(segs, patch[k], false)
		changes = append(changes, Change{Key: segs[0], Path: segs, Value: patch[k], Prev: prev})
	}
	if !s.silent {
		s.dispatch(changes...)
	}
}

// UpdateSilent applies a patch without dispatch.
func (s *Store) UpdateSilent(patch map[string]interface{}) {
	s.silent = true
	s.Update(patch)
	s.silent = false
}

// Replace swaps the whole state without dispatch, used by restore.
func (s *Store) Replace(data map[string]interface{}) {
	s.data = make(map[string]interface{}, len(data))
	for k, v := range data {
		s.data[k] = v
	}
}

func (s *Store) write(path string, value interface{}, silent, del bool) {
	segs, err := ParsePath(path)
	if err != nil {
		return
	}
	prev := walk(s.data, segs)
	s.apply(segs, value, del)
	if silent || s.silent {
		return
	}
	s.dispatch(Change{Key: segs[0], Path: segs, Value: value, Prev: prev})
}

// walk resolves a segmented path against nested maps and sequences.
func walk(data interface{}, segs []string) interface{} {
	cur := data
	for _, seg := range segs {
		switch node := cur.(type) {
		case map[string]interface{}:
			cur = node[seg]
		case []interface{}:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			cur = node[i]
		default:
			return nil
		}
	}
	return cur
}

// apply writes or deletes a leaf, materializing intermediate maps.
func (s *Store) apply(segs []string, value interface{}, del bool) {
	applyPath(s.data, segs, value, del)
}

func applyPath(parent map[string]interface{}, segs []string, value interface{}, del bool) {
	for i, seg := range segs {
		last := i == len(segs)-1
		if last {
			if del {
				delete(parent, seg)
				return
			}
			parent[seg] = value
			return
		}
		next, ok := parent[seg].(map[string]interface{})
		if !ok {
			if list, is := parent[seg].([]interface{}); is {
				if idx, err := strconv.Atoi(segs[i+1]); err == nil {
					applyIndex(list, parent, seg, segs[i+1:], idx, value, del)
					return
				}
			}
			next = make(map[string]interface{})
			parent[seg] = next
		}
		parent = next
	}
}

// applyIndex handles writes addressed into a sequence.
func applyIndex(list []interface{}, parent map[string]interface{}, key string, segs []string, idx int, value interface{}, del bool) {
	if idx < 0 {
		return
	}
	if len(segs) == 1 {
		if del {
			if idx < len(list) {
				parent[key] = append(list[:idx:idx], list[idx+1:]...)
			}
			return
		}
		for idx >= len(list) {
			list = append(list, nil)
		}
		list[idx] = value
		parent[key] = list
		return
	}
	if idx >= len(list) {
		return
	}
	node, ok := list[idx].(map[string]interface{})
	if !ok {
		node = make(map[string]interface{})
		list[idx] = node
	}
	applyPath(node, segs[1:], value, del)
}
