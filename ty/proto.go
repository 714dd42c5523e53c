package ty

import (
	"math"
	"reflect"
	"regexp"
	"sync"
)

// Proto is a prototype token: a named value kind with a predicate. The
// package preregisters tokens for the usual primitive kinds; callers can
// register their own tokens with Register.
type Proto struct {
	name string
	test func(interface{}) bool
}

// NewProto returns a new prototype token with the given name and predicate.
func NewProto(name string, test func(interface{}) bool) *Proto {
	return &Proto{name: name, test: test}
}

func (p *Proto) Name() string { return p.name }

// Test reports whether v matches the prototype.
func (p *Proto) Test(v interface{}) bool { return p.test(v) }

var (
	// Any matches every value including nil.
	Any = NewProto("any", func(interface{}) bool { return true })
	// Null matches only nil.
	Null = NewProto("null", IsNull)
	// String matches string values.
	String = NewProto("string", IsString)
	// Number matches every numeric kind.
	Number = NewProto("number", IsNumber)
	// Int matches integer kinds.
	Int = NewProto("int", IsInt)
	// Float matches float kinds, NaN and infinities included.
	Float = NewProto("float", IsFloat)
	// Bool matches boolean values.
	Bool = NewProto("bool", IsBool)
	// Object matches string-keyed maps and structs.
	Object = NewProto("object", IsObject)
	// Array matches slices and arrays.
	Array = NewProto("array", IsArray)
	// Func matches function values.
	Func = NewProto("function", IsFunc)
	// NaN matches only float not-a-number values.
	NaN = NewProto("nan", func(v interface{}) bool {
		f, ok := toFloat(v)
		return ok && math.IsNaN(f)
	})
	// Infinity matches positive and negative float infinities.
	Infinity = NewProto("infinity", func(v interface{}) bool {
		f, ok := toFloat(v)
		return ok && math.IsInf(f, 0)
	})
)

// protos is the process-wide registry for custom tokens. Callers must not
// mutate it during concurrent assertions.
var protos = struct {
	sync.RWMutex
	m map[interface{}]func(interface{}) bool
}{m: make(map[interface{}]func(interface{}) bool)}

// Register associates a custom token with a predicate. Registering an
// existing token replaces its predicate.
func Register(token interface{}, test func(interface{}) bool) {
	protos.Lock()
	protos.m[token] = test
	protos.Unlock()
}

// Unregister removes a custom token from the registry.
func Unregister(token interface{}) {
	protos.Lock()
	delete(protos.m, token)
	protos.Unlock()
}

// Find returns the predicate registered for token or nil.
func Find(token interface{}) func(interface{}) bool {
	protos.RLock()
	defer protos.RUnlock()
	return protos.m[token]
}

// Checker is the triadic helper over a token or pattern. See Is.
type Checker struct {
	token interface{}
}

// Is returns a checker for the given token or pattern.
func Is(token interface{}) Checker { return Checker{token} }

// Existing reports whether the token is a known prototype: a builtin
// token, a regexp, or a registered custom token.
func (c Checker) Existing() bool {
	switch c.token.(type) {
	case *Proto, *regexp.Regexp:
		return true
	}
	return Find(c.token) != nil
}

// TypeOf reports whether v matches the token. Regexps match strings
// only, NaN matches only not-a-number floats and registered tokens use
// their predicate. Any other pattern value is checked like Test.
func (c Checker) TypeOf(v interface{}) bool {
	switch x := c.token.(type) {
	case *Proto:
		return x.Test(v)
	case *regexp.Regexp:
		s, ok := v.(string)
		return ok && x.MatchString(s)
	}
	if test := Find(c.token); test != nil {
		return test(v)
	}
	return check(v, c.token, Loose, nil) == nil
}

// Equal reports whether v deep-equals the token.
func (c Checker) Equal(v interface{}) bool { return equalValue(c.token, v) }

// Small value predicates. They back the builtin prototypes and are
// exported for reuse in rules and schema metas.

func IsNull(v interface{}) bool {
	if v == nil {
		return true
	}
	switch r := reflect.ValueOf(v); r.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return r.IsNil()
	}
	return false
}

func IsString(v interface{}) bool {
	_, ok := v.(string)
	return ok
}

func IsBool(v interface{}) bool {
	_, ok := v.(bool)
	return ok
}

func IsNumber(v interface{}) bool { return IsInt(v) || IsFloat(v) }

func IsInt(v interface{}) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func IsFloat(v interface{}) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func IsObject(v interface{}) bool {
	if v == nil {
		return false
	}
	r := reflect.ValueOf(v)
	switch r.Kind() {
	case reflect.Map:
		return r.Type().Key().Kind() == reflect.String
	case reflect.Struct:
		return true
	case reflect.Ptr:
		return !r.IsNil() && r.Elem().Kind() == reflect.Struct
	}
	return false
}

func IsArray(v interface{}) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}
	return false
}

func IsFunc(v interface{}) bool {
	return v != nil && reflect.ValueOf(v).Kind() == reflect.Func
}

// IsEmpty reports whether v counts as empty for required checks: nil,
// an empty string, an empty map or an empty sequence.
func IsEmpty(v interface{}) bool {
	if IsNull(v) {
		return true
	}
	switch r := reflect.ValueOf(v); r.Kind() {
	case reflect.String, reflect.Map, reflect.Slice, reflect.Array:
		return r.Len() == 0
	}
	return false
}

// toFloat normalizes any numeric kind to float64.
func toFloat(v interface{}) (float64, bool) {
	switch r := reflect.ValueOf(v); r.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(r.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(r.Uint()), true
	case reflect.Float32, reflect.Float64:
		return r.Float(), true
	}
	return 0, false
}

// equalValue compares two values, normalizing numerics through float64
// so 1 equals 1.0 the way loosely typed inputs expect.
func equalValue(a, b interface{}) bool {
	if af, ok := toFloat(a); ok {
		bf, bok := toFloat(b)
		return bok && (af == bf || (math.IsNaN(af) && math.IsNaN(bf)))
	}
	return reflect.DeepEqual(a, b)
}
