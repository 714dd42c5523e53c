package ty

import (
	"reflect"
	"sync"
)

// Rule is a first-class conditional pattern. Rules run in a (data, key)
// idiom because they frequently depend on sibling values.
//
// Hooks, all optional:
//
//	ShouldCheck gates the check entirely.
//	Use resolves the pattern dynamically.
//	Validate replaces the structural check with a custom one.
//	Override mutates the data on mismatch, turning it into a pass.
//	Decorate mutates the data on match.
//	Message overrides the error message.
type Rule struct {
	Name        string
	Pattern     Pattern
	ShouldCheck func(data Map, key string) bool
	Use         func(data Map, key string) Pattern
	Validate    func(data Map, key string, pattern Pattern) *Error
	Override    func(data Map, key string)
	Decorate    func(data Map, key string)
	Message     string
}

func (r *Rule) TypeName() string {
	if r.Name != "" {
		return r.Name
	}
	return "rule"
}

// check runs the rule against one key of data.
func (r *Rule) check(data Map, key string, mode Mode, path []interface{}) *Error {
	if r.ShouldCheck != nil && !r.ShouldCheck(data, key) {
		return nil
	}
	pattern := r.Pattern
	if r.Use != nil {
		pattern = r.Use(data, key)
	}
	var err *Error
	if r.Validate != nil {
		err = r.Validate(data, key, pattern)
	} else if _, exists := data[key]; !exists {
		err = newError(Missing, nil, r, nil)
	} else {
		err = check(data[key], pattern, mode, nil)
	}
	if err == nil {
		if r.Decorate != nil {
			r.Decorate(data, key)
		}
		return nil
	}
	if r.Override != nil {
		r.Override(data, key)
		return nil
	}
	if len(err.Path) == 0 {
		err.Path = append(err.Path, path...)
	} else if len(path) > 0 {
		err.Path = append(append([]interface{}{}, path...), err.Path...)
	}
	if r.Message != "" {
		err.Msg = r.Message
	}
	return err
}

// checkValue runs the rule against a bare value outside a mapping, by
// wrapping it under a synthetic key.
func (r *Rule) checkValue(v interface{}, mode Mode, path []interface{}) *Error {
	data := Map{"": v}
	err := r.check(data, "", mode, path)
	if err != nil && len(err.Path) > 0 && err.Path[0] == "" {
		err.Path = err.Path[1:]
	}
	return err
}

// CatchKey checks the rule against one key of a data view, the way a
// mapping pattern would.
func (r *Rule) CatchKey(data Map, key string) *Error {
	return r.check(data, key, Loose, []interface{}{key})
}

// Assert, Catch and Test make a bare rule usable wherever a type is.

func (r *Rule) Assert(v interface{}) error { return errOrNil(r.Catch(v)) }
func (r *Rule) Catch(v interface{}) *Error { return r.checkValue(v, Loose, nil) }
func (r *Rule) Test(v interface{}) bool    { return r.Catch(v) == nil }

// IfExist checks the pattern only when the key exists.
func IfExist(pattern Pattern) *Rule {
	return &Rule{
		Name:    "ifexist",
		Pattern: pattern,
		ShouldCheck: func(data Map, key string) bool {
			_, ok := data[key]
			return ok
		},
	}
}

// IfNotMatch replaces the value with a fallback when the pattern does
// not match. The fallback may be a value or a producer func.
func IfNotMatch(pattern Pattern, fallback interface{}) *Rule {
	return &Rule{
		Name:    "ifnotmatch",
		Pattern: pattern,
		Override: func(data Map, key string) {
			data[key] = produce(fallback)
		},
	}
}

// IfMatch replaces the value when the pattern matches.
func IfMatch(pattern Pattern, next interface{}) *Rule {
	return &Rule{
		Name:    "ifmatch",
		Pattern: pattern,
		Decorate: func(data Map, key string) {
			data[key] = produce(next)
		},
	}
}

// ShouldExist requires the key when determine returns true; when it
// exists the value must match pattern either way.
func ShouldExist(determine func(data Map) bool, pattern Pattern) *Rule {
	r := &Rule{Name: "shouldexist", Pattern: pattern}
	r.Validate = func(data Map, key string, p Pattern) *Error {
		v, exists := data[key]
		if !exists {
			if determine(data) {
				return newError(Missing, nil, r, nil)
			}
			return nil
		}
		return check(v, p, Loose, nil)
	}
	return r
}

// ShouldNotExist refuses the key when determine returns true; when it
// may exist the value must match pattern.
func ShouldNotExist(determine func(data Map) bool, pattern Pattern) *Rule {
	r := &Rule{Name: "shouldnotexist", Pattern: pattern}
	r.Validate = func(data Map, key string, p Pattern) *Error {
		v, exists := data[key]
		if determine(data) {
			if exists {
				return newError(Overflow, v, r, nil)
			}
			return nil
		}
		if !exists {
			return nil
		}
		return check(v, p, Loose, nil)
	}
	return r
}

// Nullable matches nil or the pattern.
func Nullable(pattern Pattern) *Rule {
	r := &Rule{Name: "nullable", Pattern: pattern}
	r.Validate = func(data Map, key string, p Pattern) *Error {
		v, exists := data[key]
		if !exists || IsNull(v) {
			return nil
		}
		return check(v, p, Loose, nil)
	}
	return r
}

// MatchAll requires the value to match every given pattern in order.
func MatchAll(patterns ...Pattern) *Rule {
	r := &Rule{Name: "match", Pattern: Seq(patterns)}
	r.Validate = func(data Map, key string, _ Pattern) *Error {
		for _, p := range patterns {
			if err := check(data[key], p, Loose, nil); err != nil {
				return err
			}
		}
		return nil
	}
	return r
}

// Determine resolves the pattern from the sibling data on every check.
func Determine(use func(data Map) Pattern) *Rule {
	return &Rule{
		Name: "determine",
		Use:  func(data Map, _ string) Pattern { return use(data) },
	}
}

// ShouldMatch attaches a custom message to a pattern check.
func ShouldMatch(pattern Pattern, message string) *Rule {
	return &Rule{Name: "shouldmatch", Pattern: pattern, Message: message}
}

// ShouldNotMatch inverts a pattern check.
func ShouldNotMatch(pattern Pattern, message string) *Rule {
	r := &Rule{Name: "shouldnotmatch", Pattern: pattern, Message: message}
	r.Validate = func(data Map, key string, p Pattern) *Error {
		if check(data[key], p, Loose, nil) == nil {
			return newError(Exception, data[key], r, nil)
		}
		return nil
	}
	return r
}

// InstanceOf matches values whose dynamic type equals or implements the
// type of sample. Sample may also be a reflect.Type.
func InstanceOf(sample interface{}) *Rule {
	var want reflect.Type
	if t, ok := sample.(reflect.Type); ok {
		want = t
	} else {
		want = reflect.TypeOf(sample)
	}
	r := &Rule{Name: "instance", Pattern: sample}
	r.Validate = func(data Map, key string, _ Pattern) *Error {
		v := data[key]
		if v != nil && want != nil {
			got := reflect.TypeOf(v)
			if got == want || (want.Kind() == reflect.Interface && got.Implements(want)) {
				return nil
			}
		}
		return newError(Mistaken, v, r, nil)
	}
	return r
}

// Equal matches values deep-equal to want.
func Equal(want interface{}) *Rule {
	r := &Rule{Name: "equal", Pattern: want}
	r.Validate = func(data Map, key string, _ Pattern) *Error {
		if equalValue(want, data[key]) {
			return nil
		}
		return newError(Mistaken, data[key], r, nil)
	}
	return r
}

// Lambda matches function values. When inputs are given the function
// must take exactly that many arguments; when output is given it must
// return at least one value. Argument and result types are not checked.
func Lambda(inputs *Tuple, output Pattern) *Rule {
	r := &Rule{Name: "lambda", Pattern: Func}
	r.Validate = func(data Map, key string, _ Pattern) *Error {
		v := data[key]
		if !IsFunc(v) {
			return newError(Mistaken, v, r, nil)
		}
		if inputs != nil {
			if t := reflect.TypeOf(v); t.NumIn() != len(inputs.patterns) {
				return newError(Dirty, v, r, nil)
			}
		}
		if output != nil {
			if t := reflect.TypeOf(v); t.NumOut() == 0 {
				return newError(Missing, v, r, nil)
			}
		}
		return nil
	}
	return r
}

// Asynch resolves its pattern on a separate goroutine. Checks before
// resolution use the Any pattern; a late-arriving pattern does not
// retroactively invalidate prior checks.
func Asynch(fetch func() Pattern) *Rule {
	var mu sync.Mutex
	var pattern Pattern = Any
	go func() {
		p := fetch()
		mu.Lock()
		pattern = p
		mu.Unlock()
	}()
	return &Rule{
		Name: "asynch",
		Use: func(Map, string) Pattern {
			mu.Lock()
			defer mu.Unlock()
			return pattern
		},
	}
}

// produce returns fallback() for zero-arg producer funcs, else fallback.
func produce(fallback interface{}) interface{} {
	if fn, ok := fallback.(func() interface{}); ok {
		return fn()
	}
	return fallback
}
