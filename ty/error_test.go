package ty

import "testing"

func TestErrorString(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{
			newError(Mistaken, "x", Number, []interface{}{"age"}),
			`mistaken: value "x" does not match number at $.age`,
		},
		{
			newError(Missing, nil, String, []interface{}{"body", "head"}),
			`missing: value null does not match string at $.body.head`,
		},
		{
			newError(Dirty, 3, NewTuple(Number), []interface{}{2}),
			`dirty: value 3 does not match tuple at $.2`,
		},
		{
			newError(Unexcepted, 5, NewRange(RangeOpts{Min: 1, Max: 2}), nil),
			`unexcepted: value 5 does not match range at $`,
		},
	}
	for _, test := range tests {
		if got := test.err.Error(); got != test.want {
			t.Errorf("error string want %q got %q", test.want, got)
		}
	}
}

func TestErrorAt(t *testing.T) {
	err := newError(Mistaken, 1, String, []interface{}{"b"})
	err.At("a")
	if got := PathString(err.Path); got != "$.a.b" {
		t.Errorf("at got %s", got)
	}
}

func TestErrorMsgOverride(t *testing.T) {
	err := newError(Mistaken, 1, String, nil)
	err.Msg = "custom"
	if err.Error() != "custom" {
		t.Errorf("msg override got %q", err.Error())
	}
}
