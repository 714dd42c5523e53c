package store

import "reflect"

// Wildcard watches every path.
const Wildcard = "*"

// watcher is one registration. A nil path means wildcard.
type watcher struct {
	id   int
	path []string
	deep bool
	fn   Handler
	ptr  uintptr
}

// matches reports whether the watcher wants the change. Exact watchers
// fire on their own path only; deep watchers also fire for descendant
// writes.
func (w *watcher) matches(path []string) bool {
	if w.path == nil {
		return false
	}
	if len(w.path) > len(path) {
		return false
	}
	if !w.deep && len(w.path) != len(path) {
		return false
	}
	for i, seg := range w.path {
		if seg != path[i] {
			return false
		}
	}
	return true
}

// Watch registers a handler for a key path. The path may be Wildcard,
// a dotted path, or an already segmented one joined by dots. A deep
// watch also fires for descendant writes.
func (s *Store) Watch(path string, fn Handler, deep bool) {
	w := &watcher{id: s.nextID, fn: fn, deep: deep, ptr: reflect.ValueOf(fn).Pointer()}
	s.nextID++
	if path != Wildcard {
		segs, err := ParsePath(path)
		if err != nil {
			return
		}
		w.path = segs
	}
	s.watchers = append(s.watchers, w)
}

// Unwatch removes registrations for path. A nil fn removes every
// handler on that path; otherwise only registrations of that handler.
func (s *Store) Unwatch(path string, fn Handler) {
	var ptr uintptr
	if fn != nil {
		ptr = reflect.ValueOf(fn).Pointer()
	}
	out := s.watchers[:0]
	for _, w := range s.watchers {
		keep := true
		if samePath(w, path) && (fn == nil || w.ptr == ptr) {
			keep = false
		}
		if keep {
			out = append(out, w)
		}
	}
	s.watchers = out
}

func samePath(w *watcher, path string) bool {
	if path == Wildcard {
		return w.path == nil
	}
	return joinPath(w.path) == path
}

// dispatch runs the two-phase turn: changes queue up, then each change
// is shown to specific-path watchers in registration order and to
// wildcard watchers after them. A watcher writing to the store enqueues
// into the same turn; identical (path, value) re-emissions within one
// turn are deduped so chained writes terminate.
func (s *Store) dispatch(changes ...Change) {
	s.queue = append(s.queue, changes...)
	if s.draining {
		return
	}
	s.draining = true
	s.emitted = make(map[string]interface{})
	defer func() {
		s.draining = false
		s.emitted = nil
	}()
	for len(s.queue) > 0 {
		c := s.queue[0]
		s.queue = s.queue[1:]
		key := joinPath(c.Path)
		if prev, seen := s.emitted[key]; seen && reflect.DeepEqual(prev, c.Value) {
			continue
		}
		s.emitted[key] = c.Value
		for _, w := range s.watchers {
			if w.matches(c.Path) {
				w.fn(c)
			}
		}
		for _, w := range s.watchers {
			if w.path == nil {
				w.fn(c)
			}
		}
	}
}
