package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Clearlove07/tyshemo/log"
	"github.com/Clearlove07/tyshemo/schema"
	"github.com/Clearlove07/tyshemo/store"
	"github.com/Clearlove07/tyshemo/ty"
)

// formDefs is the form model scenario: name, age with a coercing
// setter and a stringifying getter, sex bounded to 1..2, married
// nullable and hidden for minors.
func formDefs() schema.Defs {
	return schema.Defs{
		"name": {Default: "", Type: ty.String},
		"age": {
			Default: 0,
			Type:    ty.Number,
			Setter: func(v interface{}, ctx schema.Context) interface{} {
				switch n := v.(type) {
				case int:
					return n
				case float64:
					return int(n)
				case string:
					total := 0
					for _, r := range n {
						if r < '0' || r > '9' {
							return v
						}
						total = total*10 + int(r-'0')
					}
					return total
				}
				return v
			},
			Getter: func(v interface{}, ctx schema.Context) interface{} {
				if n, ok := v.(int); ok {
					digits := ""
					if n == 0 {
						return "0"
					}
					for n > 0 {
						digits = string(rune('0'+n%10)) + digits
						n /= 10
					}
					return digits
				}
				return ""
			},
		},
		"sex":     {Default: 1, Type: ty.NewRange(ty.RangeOpts{Min: 1, Max: 2})},
		"married": {Default: nil, Type: ty.Nullable(ty.Bool), Hidden: func(ctx schema.Context) bool {
			age, _ := ctx.Data()["age"].(int)
			return age < 20
		}},
	}
}

func newForm(t *testing.T, input map[string]interface{}) *Model {
	t.Helper()
	m, err := New(Config{Defs: formDefs(), Logger: log.Discard}, input)
	require.NoError(t, err)
	return m
}

func TestFormModel(t *testing.T) {
	m := newForm(t, map[string]interface{}{"name": "", "age": "14"})
	require.Equal(t, 14, m.Data()["age"])
	require.Equal(t, "14", m.Get("age"))
	require.True(t, m.Use("married").Hidden())
	m.Set("age", 25)
	require.False(t, m.Use("married").Hidden())
}

func TestDefaultsValidate(t *testing.T) {
	m := newForm(t, nil)
	require.Empty(t, m.Validate())
	require.NoError(t, m.Err())
}

func TestSetterGetterIdempotence(t *testing.T) {
	m := newForm(t, map[string]interface{}{"age": 14})
	before := m.Data()["age"]
	m.Set("age", m.Get("age"))
	require.Equal(t, before, m.Data()["age"])
}

func TestValidatorAggregation(t *testing.T) {
	defs := schema.Defs{
		"name": {
			Default: "",
			Type:    ty.String,
			Validators: []schema.Validator{{
				Validate: func(v interface{}, ctx schema.Context) interface{} {
					sv, _ := v.(string)
					return len(sv) < 12
				},
				Message: "too long",
			}},
		},
	}
	m, err := New(Config{Defs: defs, Logger: log.Discard}, nil)
	require.NoError(t, err)
	m.Set("name", "abcdefghijklmn")
	issues := m.Validate("name")
	require.Len(t, issues, 1)
	require.Equal(t, "name", issues[0].Key)
	require.Equal(t, 0, issues[0].At)
	require.Equal(t, "too long", issues[0].Message)
	require.Error(t, m.Err())
}

func TestComputeDependency(t *testing.T) {
	defs := schema.Defs{
		"first": {Default: ""},
		"last":  {Default: ""},
		"full": {Compute: func(ctx schema.Context) interface{} {
			f, _ := ctx.Get("first").(string)
			l, _ := ctx.Get("last").(string)
			return f + " " + l
		}},
	}
	m, err := New(Config{Defs: defs, Logger: log.Discard}, nil)
	require.NoError(t, err)
	fired := 0
	m.Watch("full", func(store.Change) { fired++ }, false)
	m.Set("first", "A")
	m.Set("last", "B")
	require.Equal(t, "A B", m.Get("full"))
	require.Equal(t, "A B", m.State()["full"])
	require.Equal(t, 2, fired)

	// a batched update notifies the full watcher exactly once
	fired = 0
	m.Update(map[string]interface{}{"first": "C", "last": "D"})
	require.Equal(t, "C D", m.Get("full"))
	require.Equal(t, 1, fired)
}

func TestComputeDirectSetRefused(t *testing.T) {
	defs := schema.Defs{
		"first": {Default: "A"},
		"full":  {Compute: func(ctx schema.Context) interface{} { return ctx.Get("first") }},
	}
	var issues []*schema.Issue
	m, err := New(Config{
		Defs:   defs,
		Hooks:  Hooks{OnError: func(iss *schema.Issue) { issues = append(issues, iss) }},
		Logger: log.Discard,
	}, nil)
	require.NoError(t, err)
	m.Set("full", "other")
	require.Equal(t, "A", m.Get("full"))
	require.NotEmpty(t, issues)
	require.Equal(t, ty.Compute, issues[len(issues)-1].Meta)
}

func TestDisabledField(t *testing.T) {
	defs := schema.Defs{
		"ghost": {Default: 1, Disabled: true, Required: true},
		"name":  {Default: "x"},
	}
	m, err := New(Config{Defs: defs, Logger: log.Discard}, nil)
	require.NoError(t, err)
	m.Set("ghost", 9)
	require.Equal(t, 1, m.Data()["ghost"])
	require.Empty(t, m.Validate("ghost"))
	out := m.ToJSON()
	require.NotContains(t, out, "ghost")
	require.Contains(t, out, "name")
}

func TestReadonlyField(t *testing.T) {
	defs := schema.Defs{"id": {Default: "a1", Readonly: true}}
	m, err := New(Config{Defs: defs, Logger: log.Discard}, nil)
	require.NoError(t, err)
	m.Set("id", "zz")
	require.Equal(t, "a1", m.Data()["id"])
	// readonly still exports and validates
	require.Contains(t, m.ToJSON(), "id")
	require.Empty(t, m.Validate("id"))
	// force skips the guard
	m.SetForce("id", "zz")
	require.Equal(t, "zz", m.Data()["id"])
}

func TestSerialization(t *testing.T) {
	defs := schema.Defs{
		"name":     {Default: ""},
		"password": {Default: "", Drop: func(interface{}, string, map[string]interface{}) bool { return true }},
		"profile": {
			Default: func() interface{} { return map[string]interface{}{"f": "", "l": ""} },
			Drop:    func(interface{}, string, map[string]interface{}) bool { return true },
			Flat: func(v interface{}, key string, data map[string]interface{}) map[string]interface{} {
				m := v.(map[string]interface{})
				return map[string]interface{}{"firstName": m["f"], "lastName": m["l"]}
			},
		},
	}
	m, err := New(Config{Defs: defs, Logger: log.Discard}, map[string]interface{}{
		"name":     "tom",
		"password": "zzz",
		"profile":  map[string]interface{}{"f": "To", "l": "M"},
	})
	require.NoError(t, err)
	out := m.ToJSON()
	require.Equal(t, map[string]interface{}{
		"name": "tom", "firstName": "To", "lastName": "M",
	}, out)
}

func TestFromJSONRoundTrip(t *testing.T) {
	defs := schema.Defs{
		"name": {Default: "", Type: ty.String},
		"tags": {Default: func() interface{} { return []interface{}{} }},
	}
	m, err := New(Config{Defs: defs, Logger: log.Discard}, nil)
	require.NoError(t, err)
	in := map[string]interface{}{"name": "tom", "tags": []interface{}{"a"}}
	m.FromJSON(in)
	require.Equal(t, in, m.ToJSON())
}

func TestRestoreSilent(t *testing.T) {
	m := newForm(t, nil)
	fired := 0
	m.Watch("name", func(store.Change) { fired++ }, false)
	m.Set("name", "tom")
	require.True(t, m.Changed("name"))
	m.Restore(map[string]interface{}{"name": "jerry"})
	require.Equal(t, 1, fired)
	require.Equal(t, "jerry", m.Get("name"))
	require.False(t, m.Changed())
}

func TestOnSwitchMutatesInput(t *testing.T) {
	defs := schema.Defs{"name": {Default: ""}}
	m, err := New(Config{
		Defs: defs,
		Hooks: Hooks{OnSwitch: func(data map[string]interface{}) map[string]interface{} {
			data["name"] = "switched"
			return data
		}},
		Logger: log.Discard,
	}, nil)
	require.NoError(t, err)
	input := map[string]interface{}{"name": "raw"}
	m.Restore(input)
	require.Equal(t, "switched", input["name"])
	require.Equal(t, "switched", m.Get("name"))
	// the stored copy is independent of the caller's map
	input["name"] = "mutated later"
	require.Equal(t, "switched", m.Get("name"))
}

func TestLock(t *testing.T) {
	m := newForm(t, nil)
	m.Set("name", "tom")
	m.Lock()
	m.Set("name", "jerry")
	m.Update(map[string]interface{}{"name": "x"})
	m.Restore(map[string]interface{}{"name": "y"})
	require.Equal(t, "tom", m.Get("name"))
	m.Unlock()
	m.Set("name", "jerry")
	require.Equal(t, "jerry", m.Get("name"))
}

func TestStateCollisionFailsConstruction(t *testing.T) {
	_, err := New(Config{
		Defs:   schema.Defs{"name": {Default: ""}},
		State:  map[string]interface{}{"name": 1},
		Logger: log.Discard,
	}, nil)
	require.Error(t, err)
}

func TestStateKeys(t *testing.T) {
	m, err := New(Config{
		Defs:   schema.Defs{"name": {Default: ""}},
		State:  map[string]interface{}{"step": 1},
		Logger: log.Discard,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, m.State()["step"])
	m.Set("step", 2)
	require.Equal(t, 2, m.State()["step"])
}

func TestViewsAndMetas(t *testing.T) {
	defs := schema.Defs{
		"name": {
			Default:  "",
			Required: true,
			Extra:    map[string]interface{}{"label": "Name", "internal": true},
			Validators: []schema.Validator{{
				Validate: func(v interface{}, ctx schema.Context) interface{} {
					sv, _ := v.(string)
					return len(sv) < 4
				},
				Message: "too long",
			}},
		},
		"age": {Default: 0},
	}
	m, err := New(Config{
		Defs:   defs,
		Metas:  map[string]interface{}{"label": "", "placeholder": "fill me"},
		Logger: log.Discard,
	}, nil)
	require.NoError(t, err)
	view := m.Use("name")
	require.True(t, view.Required())
	require.False(t, view.Changed())

	label, ok := view.Meta("label")
	require.True(t, ok)
	require.Equal(t, "Name", label)
	// declared default applies when the field has no value for the meta
	ph, ok := view.Meta("placeholder")
	require.True(t, ok)
	require.Equal(t, "fill me", ph)
	// undeclared metas stay hidden even when present
	_, ok = view.Meta("internal")
	require.False(t, ok)

	// errors exposes validators only, not required
	require.Empty(t, view.Errors())
	m.Set("name", "abcdef")
	require.True(t, view.Changed())
	require.Len(t, view.Errors(), 1)
	require.Len(t, m.ViewErrors(), 1)
	// $errors excludes the required issue the full validation sees
	m.Set("name", "")
	require.Empty(t, m.ViewErrors())
	require.Len(t, m.Validate("name"), 1)
}

func TestViewSetValue(t *testing.T) {
	m := newForm(t, nil)
	m.Use("name").SetValue("via view")
	require.Equal(t, "via view", m.Get("name"))
	require.Equal(t, "via view", m.Use("name").Value())
}

func TestValidateCtx(t *testing.T) {
	resolved := ty.Track("nope").By(ty.Number)
	defs := schema.Defs{
		"a": {Default: "", Validators: []schema.Validator{{
			Validate: func(interface{}, schema.Context) interface{} { return resolved },
			Message:  "bad async",
		}}},
		"b": {Default: 1, Type: ty.Number},
	}
	m, err := New(Config{Defs: defs, Logger: log.Discard}, nil)
	require.NoError(t, err)
	issues, err := m.ValidateCtx(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "bad async", issues[0].Message)
}

func TestWatchImmediate(t *testing.T) {
	m := newForm(t, map[string]interface{}{"name": "tom"})
	var got interface{}
	m.Watch("name", func(c store.Change) { got = c.Value }, true)
	require.Equal(t, "tom", got)
}

func TestFieldWatchMeta(t *testing.T) {
	var seen []store.Change
	defs := schema.Defs{
		"name": {Default: "", Watch: func(c store.Change) { seen = append(seen, c) }},
	}
	m, err := New(Config{Defs: defs, Logger: log.Discard}, nil)
	require.NoError(t, err)
	m.Set("name", "tom")
	require.Len(t, seen, 1)
	require.Equal(t, "tom", seen[0].Value)
}
