package ty

import (
	"regexp"
	"strings"
	"testing"
)

func TestCheckPrimitives(t *testing.T) {
	tests := []struct {
		name    string
		pattern Pattern
		ok      []interface{}
		bad     []interface{}
	}{
		{"string", String, []interface{}{"", "abc"}, []interface{}{1, nil, true}},
		{"number", Number, []interface{}{1, int64(2), 3.5, uint8(4)}, []interface{}{"1", nil}},
		{"int", Int, []interface{}{1, int32(7)}, []interface{}{1.5, "x"}},
		{"float", Float, []interface{}{1.5, float32(2)}, []interface{}{1, "x"}},
		{"bool", Bool, []interface{}{true, false}, []interface{}{0, "true"}},
		{"array", Array, []interface{}{Seq{1}, []string{"a"}}, []interface{}{"a", 1}},
		{"object", Object, []interface{}{Map{}, struct{}{}}, []interface{}{Seq{}, 1}},
		{"null", Null, []interface{}{nil}, []interface{}{0, ""}},
		{"any", Any, []interface{}{nil, 1, "x"}, nil},
		{"regexp", regexp.MustCompile(`^a+$`), []interface{}{"aa"}, []interface{}{"b", 1}},
		{"literal", "male", []interface{}{"male"}, []interface{}{"female"}},
	}
	for _, test := range tests {
		for _, v := range test.ok {
			if err := Catch(v).By(test.pattern); err != nil {
				t.Errorf("%s: catch %v got error %v", test.name, v, err)
			}
			if err := Expect(v).ToMatch(test.pattern); err != nil {
				t.Errorf("%s: expect %v got error %v", test.name, v, err)
			}
		}
		for _, v := range test.bad {
			if Catch(v).By(test.pattern) == nil {
				t.Errorf("%s: catch %v expected error", test.name, v)
			}
			if Expect(v).ToMatch(test.pattern) == nil {
				t.Errorf("%s: expect %v expected error", test.name, v)
			}
		}
	}
}

func TestCheckMapPath(t *testing.T) {
	pattern := Map{"body": Map{"head": Bool}}
	err := Catch(Map{"body": Map{"head": "yes"}}).By(pattern)
	if err == nil {
		t.Fatalf("expected error")
	}
	if err.Kind != Mistaken {
		t.Errorf("kind want mistaken got %s", err.Kind)
	}
	if got := PathString(err.Path); got != "$.body.head" {
		t.Errorf("path want $.body.head got %s", got)
	}
	if !strings.Contains(err.Error(), "mistaken: value") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestCheckMapMissing(t *testing.T) {
	err := Catch(Map{}).By(Map{"name": String})
	if err == nil || err.Kind != Missing {
		t.Fatalf("want missing got %v", err)
	}
}

func TestStrictDict(t *testing.T) {
	d := NewDict(Map{"name": String})
	if err := d.Catch(Map{"name": "tom", "extra": 1}); err != nil {
		t.Errorf("loose dict should ignore unknown keys, got %v", err)
	}
	s := d.Strict()
	err := s.Catch(Map{"name": "tom", "extra": 1})
	if err == nil || err.Kind != Dirty {
		t.Errorf("strict dict want dirty got %v", err)
	}
	// strictness must not leak back through the clone
	if err := d.Catch(Map{"name": "tom", "extra": 1}); err != nil {
		t.Errorf("clone changed origin mode: %v", err)
	}
}

func TestList(t *testing.T) {
	l := NewList(Number)
	if err := l.Catch(Seq{1, 2.5, 3}); err != nil {
		t.Errorf("list got %v", err)
	}
	err := l.Catch(Seq{1, "x"})
	if err == nil {
		t.Fatalf("want element error")
	}
	if got := PathString(err.Path); got != "$.1" {
		t.Errorf("path want $.1 got %s", got)
	}
	if err := l.Catch("nope"); err == nil || err.Kind != Mistaken {
		t.Errorf("non-sequence want mistaken got %v", err)
	}
}

func TestTupleModes(t *testing.T) {
	tp := NewTuple(Number, String)
	if err := tp.Catch(Seq{1, "a"}); err != nil {
		t.Errorf("tuple got %v", err)
	}
	if err := tp.Catch(Seq{1, "a", "x"}); err != nil {
		t.Errorf("loose tuple should allow extra, got %v", err)
	}
	if err := tp.Catch(Seq{1}); err == nil || err.Kind != Missing {
		t.Errorf("short tuple want missing got %v", err)
	}
	st := tp.Strict()
	if err := st.Catch(Seq{1, "a", "x"}); err == nil || err.Kind != Dirty {
		t.Errorf("strict tuple want dirty got %v", err)
	}
}

func TestEnum(t *testing.T) {
	e := NewEnum(String, Number)
	if err := e.Catch("x"); err != nil {
		t.Errorf("enum got %v", err)
	}
	if err := e.Catch(1); err != nil {
		t.Errorf("enum got %v", err)
	}
	if err := e.Catch(true); err == nil || err.Kind != Mistaken {
		t.Errorf("enum want mistaken got %v", err)
	}
	lits := NewEnum(1, 2)
	if err := lits.Catch(2); err != nil {
		t.Errorf("literal enum got %v", err)
	}
	if err := lits.Catch(3); err == nil {
		t.Errorf("literal enum want error")
	}
}

func TestRange(t *testing.T) {
	r := NewRange(RangeOpts{Min: 1, Max: 2})
	for _, v := range []interface{}{1, 1.5, 2} {
		if err := r.Catch(v); err != nil {
			t.Errorf("range %v got %v", v, err)
		}
	}
	if err := r.Catch(3); err == nil || err.Kind != Unexcepted {
		t.Errorf("range want unexcepted got %v", err)
	}
	open := false
	x := NewRange(RangeOpts{Min: 1, Max: 2, MaxBound: &open})
	if err := x.Catch(2); err == nil || err.Kind != Unexcepted {
		t.Errorf("open bound want unexcepted got %v", err)
	}
	if err := r.Catch("2"); err == nil || err.Kind != Mistaken {
		t.Errorf("non-number want mistaken got %v", err)
	}
}

func TestSelfRef(t *testing.T) {
	node := NewSelfRef(func(self Pattern) Pattern {
		return Map{"value": Number, "children": IfExist(NewList(self))}
	})
	tree := Map{"value": 1, "children": Seq{
		Map{"value": 2},
		Map{"value": 3, "children": Seq{Map{"value": 4}}},
	}}
	if err := node.Catch(tree); err != nil {
		t.Errorf("selfref got %v", err)
	}
	bad := Map{"value": 1, "children": Seq{Map{"value": "x"}}}
	if err := node.Catch(bad); err == nil {
		t.Errorf("selfref want error")
	}
}

func TestCatchExpectEquivalence(t *testing.T) {
	patterns := []Pattern{String, Map{"a": Number}, NewTuple(Bool), NewEnum(1, 2)}
	values := []interface{}{"x", 1, Map{"a": 1}, Seq{true}, nil}
	for _, p := range patterns {
		for _, v := range values {
			c := Catch(v).By(p)
			e := Expect(v).ToMatch(p)
			if (c == nil) != (e == nil) {
				t.Errorf("catch/expect disagree for %v by %v", v, p)
			}
		}
	}
}

func TestClone(t *testing.T) {
	d := NewDict(Map{"tags": NewList(String)})
	c := d.Clone()
	c.Pattern.(Map)["tags"] = Number
	if err := d.Catch(Map{"tags": Seq{"a"}}); err != nil {
		t.Errorf("clone mutated origin: %v", err)
	}
}

func TestTraceTrack(t *testing.T) {
	var caught *Error
	New(String).Trace(1).Catch(func(e *Error) { caught = e })
	if caught == nil {
		t.Fatalf("trace should resolve synchronously")
	}
	d := New(String).Track(1)
	if err := d.Wait(); err == nil {
		t.Errorf("track want error")
	}
	ok := false
	Track("x").By(String).Then(func() { ok = true }).Wait()
	if !ok {
		t.Errorf("then continuation not called")
	}
}
