package ty

// Structural types built on Type.

// Dict is a mapping type. Keys declared in the pattern must be present
// and match; strict mode additionally rejects unknown keys.
type Dict struct{ Type }

// NewDict returns a dict type over the given mapping pattern.
func NewDict(pattern Map) *Dict {
	return &Dict{Type{Name: "dict", Pattern: pattern}}
}

func (d *Dict) catchAt(v interface{}, _ Mode, path []interface{}) *Error {
	m, _ := d.Pattern.(Map)
	return checkMap(v, m, d.Mode, path)
}

// Clone returns an independent copy of the dict.
func (d *Dict) Clone() *Dict {
	return &Dict{Type{Name: d.Name, Pattern: ClonePattern(d.Pattern), Mode: d.Mode}}
}

// Strict returns a strict-mode clone.
func (d *Dict) Strict() *Dict {
	c := d.Clone()
	c.Mode = Strict
	return c
}

// List is a sequence type: the value must be a sequence whose every
// element matches one of the declared patterns.
type List struct {
	Type
	patterns Seq
}

// NewList returns a list type over the given element patterns.
func NewList(patterns ...Pattern) *List {
	l := &List{patterns: Seq(patterns)}
	l.Name = "list"
	l.Pattern = l.patterns
	return l
}

func (l *List) catchAt(v interface{}, _ Mode, path []interface{}) *Error {
	return checkSeq(v, l.patterns, l.Mode, path)
}

// Clone returns an independent copy of the list.
func (l *List) Clone() *List {
	c := NewList(cloneSeq(l.patterns)...)
	c.Mode = l.Mode
	return c
}

// Tuple is a positional sequence type. Strict mode requires length
// equality; loose mode allows extra trailing elements.
type Tuple struct {
	Type
	patterns Seq
}

// NewTuple returns a tuple type over the given positional patterns.
func NewTuple(patterns ...Pattern) *Tuple {
	t := &Tuple{patterns: Seq(patterns)}
	t.Name = "tuple"
	t.Pattern = t.patterns
	return t
}

func (t *Tuple) catchAt(v interface{}, _ Mode, path []interface{}) *Error {
	items, ok := asSlice(v)
	if !ok {
		return newError(Mistaken, v, t, path)
	}
	if len(items) < len(t.patterns) {
		return newError(Missing, nil, t.patterns[len(items)], append(path, len(items)))
	}
	if t.Mode == Strict && len(items) > len(t.patterns) {
		return newError(Dirty, items[len(t.patterns)], t, append(path, len(t.patterns)))
	}
	for i, sub := range t.patterns {
		if err := check(items[i], sub, t.Mode, append(path, i)); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an independent copy of the tuple.
func (t *Tuple) Clone() *Tuple {
	c := NewTuple(cloneSeq(t.patterns)...)
	c.Mode = t.Mode
	return c
}

// Strict returns a strict-mode clone.
func (t *Tuple) Strict() *Tuple {
	c := t.Clone()
	c.Mode = Strict
	return c
}

// Enum requires the value to match any one of its patterns.
type Enum struct {
	Type
	patterns Seq
}

// NewEnum returns an enum type over the given alternatives.
func NewEnum(patterns ...Pattern) *Enum {
	e := &Enum{patterns: Seq(patterns)}
	e.Name = "enum"
	e.Pattern = e.patterns
	return e
}

func (e *Enum) catchAt(v interface{}, mode Mode, path []interface{}) *Error {
	for _, sub := range e.patterns {
		if check(v, sub, e.Mode, path) == nil {
			return nil
		}
	}
	return newError(Mistaken, v, e, path)
}

// Clone returns an independent copy of the enum.
func (e *Enum) Clone() *Enum {
	c := NewEnum(cloneSeq(e.patterns)...)
	c.Mode = e.Mode
	return c
}

// RangeOpts declares numeric bounds. MinBound and MaxBound select
// inclusive bounds and default to inclusive.
type RangeOpts struct {
	Min      float64
	Max      float64
	MinBound *bool
	MaxBound *bool
}

// Range validates numeric bounds.
type Range struct {
	Type
	min, max           float64
	minBound, maxBound bool
}

// NewRange returns a range type for the given bounds.
func NewRange(opts RangeOpts) *Range {
	r := &Range{min: opts.Min, max: opts.Max, minBound: true, maxBound: true}
	r.Name = "range"
	r.Pattern = opts
	if opts.MinBound != nil {
		r.minBound = *opts.MinBound
	}
	if opts.MaxBound != nil {
		r.maxBound = *opts.MaxBound
	}
	return r
}

func (r *Range) catchAt(v interface{}, _ Mode, path []interface{}) *Error {
	f, ok := toFloat(v)
	if !ok {
		return newError(Mistaken, v, r, path)
	}
	low := f > r.min || (r.minBound && f == r.min)
	high := f < r.max || (r.maxBound && f == r.max)
	if !low || !high {
		return newError(Unexcepted, v, r, path)
	}
	return nil
}

// Clone returns an independent copy of the range.
func (r *Range) Clone() *Range {
	c := *r
	return &c
}

// SelfRef resolves a cyclic pattern lazily: the builder receives the
// self reference and returns the pattern, which is materialized on
// first use instead of eagerly.
type SelfRef struct {
	Type
	build func(self Pattern) Pattern
}

// NewSelfRef returns a self-referential type from the given builder.
func NewSelfRef(build func(self Pattern) Pattern) *SelfRef {
	s := &SelfRef{build: build}
	s.Name = "selfref"
	return s
}

func (s *SelfRef) catchAt(v interface{}, mode Mode, path []interface{}) *Error {
	if s.Pattern == nil {
		s.Pattern = s.build(s)
	}
	return check(v, s.Pattern, s.Mode, path)
}

// Assert, Catch and Test on the embedded Type would miss the overridden
// catchAt, so the structural types redeclare the entry points.

func (d *Dict) Assert(v interface{}) error  { return errOrNil(d.Catch(v)) }
func (d *Dict) Catch(v interface{}) *Error  { return d.catchAt(v, d.Mode, nil) }
func (d *Dict) Test(v interface{}) bool     { return d.Catch(v) == nil }
func (l *List) Assert(v interface{}) error  { return errOrNil(l.Catch(v)) }
func (l *List) Catch(v interface{}) *Error  { return l.catchAt(v, l.Mode, nil) }
func (l *List) Test(v interface{}) bool     { return l.Catch(v) == nil }
func (t *Tuple) Assert(v interface{}) error { return errOrNil(t.Catch(v)) }
func (t *Tuple) Catch(v interface{}) *Error { return t.catchAt(v, t.Mode, nil) }
func (t *Tuple) Test(v interface{}) bool    { return t.Catch(v) == nil }
func (e *Enum) Assert(v interface{}) error  { return errOrNil(e.Catch(v)) }
func (e *Enum) Catch(v interface{}) *Error  { return e.catchAt(v, e.Mode, nil) }
func (e *Enum) Test(v interface{}) bool     { return e.Catch(v) == nil }
func (r *Range) Assert(v interface{}) error { return errOrNil(r.Catch(v)) }
func (r *Range) Catch(v interface{}) *Error { return r.catchAt(v, r.Mode, nil) }
func (r *Range) Test(v interface{}) bool    { return r.Catch(v) == nil }
func (s *SelfRef) Assert(v interface{}) error  { return errOrNil(s.Catch(v)) }
func (s *SelfRef) Catch(v interface{}) *Error  { return s.catchAt(v, s.Mode, nil) }
func (s *SelfRef) Test(v interface{}) bool     { return s.Catch(v) == nil }

// Trace and Track follow the same pattern so the deferred handles see
// the overridden checks.

func (d *Dict) Trace(v interface{}) *Deferred  { return resolved(d.Catch(v)) }
func (l *List) Trace(v interface{}) *Deferred  { return resolved(l.Catch(v)) }
func (t *Tuple) Trace(v interface{}) *Deferred { return resolved(t.Catch(v)) }
func (e *Enum) Trace(v interface{}) *Deferred  { return resolved(e.Catch(v)) }
func (r *Range) Trace(v interface{}) *Deferred { return resolved(r.Catch(v)) }
func (s *SelfRef) Trace(v interface{}) *Deferred { return resolved(s.Catch(v)) }

func (d *Dict) Track(v interface{}) *Deferred  { return track(d)(v) }
func (l *List) Track(v interface{}) *Deferred  { return track(l)(v) }
func (t *Tuple) Track(v interface{}) *Deferred { return track(t)(v) }
func (e *Enum) Track(v interface{}) *Deferred  { return track(e)(v) }
func (r *Range) Track(v interface{}) *Deferred { return track(r)(v) }
func (s *SelfRef) Track(v interface{}) *Deferred { return track(s)(v) }

func track(t Typer) func(interface{}) *Deferred {
	return func(v interface{}) *Deferred {
		d := pending()
		go d.resolve(t.Catch(v))
		return d
	}
}

func errOrNil(e *Error) error {
	if e != nil {
		return e
	}
	return nil
}
