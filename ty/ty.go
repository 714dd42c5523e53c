// Package ty implements a composable type system over plain values:
// prototype tokens, structural types, combinator rules and structured
// errors with path context.
//
// Patterns read like the data they describe:
//
//	t := ty.NewDict(ty.Map{
//		"name": ty.String,
//		"age":  ty.IfExist(ty.Int),
//	})
//	err := t.Assert(ty.Map{"name": "tom"})
//
// The package facade mirrors the assertion idiom:
//
//	ty.Expect(v).ToMatch(p)   // returns *Error on mismatch
//	ty.Catch(v).By(p)         // never fails, returns *Error or nil
//	ty.Is(p).TypeOf(v)        // boolean
//	ty.Trace(v).By(p)         // resolved Deferred
//	ty.Track(v).By(p)         // async Deferred
package ty

// Expector is the handle returned by Expect.
type Expector struct{ v interface{} }

// Expect starts an assertion over v.
func Expect(v interface{}) Expector { return Expector{v} }

// ToMatch returns a *Error when v does not match pattern.
func (x Expector) ToMatch(pattern Pattern) error {
	if err := check(x.v, pattern, Loose, nil); err != nil {
		return err
	}
	return nil
}

// Catcher is the handle returned by Catch.
type Catcher struct{ v interface{} }

// Catch starts a non-throwing check over v.
func Catch(v interface{}) Catcher { return Catcher{v} }

// By returns the Error for the pattern or nil.
func (c Catcher) By(pattern Pattern) *Error {
	return check(c.v, pattern, Loose, nil)
}

// Tracer is the handle returned by Trace.
type Tracer struct{ v interface{} }

// Trace starts a synchronously resolved deferred check over v.
func Trace(v interface{}) Tracer { return Tracer{v} }

// By resolves the check and returns the handle.
func (t Tracer) By(pattern Pattern) *Deferred {
	return resolved(check(t.v, pattern, Loose, nil))
}

// Tracker is the handle returned by Track.
type Tracker struct{ v interface{} }

// Track starts an asynchronously resolved deferred check over v.
func Track(v interface{}) Tracker { return Tracker{v} }

// By resolves the check on a goroutine and returns the handle.
func (t Tracker) By(pattern Pattern) *Deferred {
	d := pending()
	go d.resolve(check(t.v, pattern, Loose, nil))
	return d
}
