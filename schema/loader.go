package schema

import (
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Clearlove07/tyshemo/ty"
)

// yamlDef is the declarative form of a field def. Func metas cannot be
// declared in a document; they are attached in code after loading.
type yamlDef struct {
	Default  interface{} `yaml:"default"`
	Type     string      `yaml:"type"`
	Message  string      `yaml:"message"`
	Required interface{} `yaml:"required"`
	Readonly interface{} `yaml:"readonly"`
	Disabled interface{} `yaml:"disabled"`
	Hidden   interface{} `yaml:"hidden"`
}

// LoadYAML decodes a document of field declarations into Defs. Type
// names resolve against the builtin names and the given custom table;
// a "nullable " prefix and a trailing "[]" are recognized:
//
//	name:
//	  default: ""
//	  type: string
//	  required: "name must not be empty"
//	age:
//	  default: 0
//	  type: number
func LoadYAML(doc []byte, types map[string]ty.Pattern) (Defs, error) {
	var raw map[string]yamlDef
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return nil, errors.Wrap(err, "schema: load yaml")
	}
	defs := make(Defs, len(raw))
	for key, yd := range raw {
		def := FieldDef{
			Default:  yd.Default,
			Message:  yd.Message,
			Required: yd.Required,
			Readonly: yd.Readonly,
			Disabled: yd.Disabled,
			Hidden:   yd.Hidden,
		}
		if yd.Type != "" {
			p, err := ParseTypeName(yd.Type, types)
			if err != nil {
				return nil, errors.WithMessagef(err, "field %s", key)
			}
			def.Type = p
		}
		defs[key] = def
	}
	return defs, nil
}

// ParseTypeName resolves a declared type name to a pattern.
func ParseTypeName(name string, types map[string]ty.Pattern) (ty.Pattern, error) {
	name = strings.TrimSpace(name)
	if rest, ok := strings.CutPrefix(name, "nullable "); ok {
		p, err := ParseTypeName(rest, types)
		if err != nil {
			return nil, err
		}
		return ty.Nullable(p), nil
	}
	if rest, ok := strings.CutSuffix(name, "[]"); ok {
		p, err := ParseTypeName(rest, types)
		if err != nil {
			return nil, err
		}
		return ty.NewList(p), nil
	}
	if p, ok := types[name]; ok {
		return p, nil
	}
	switch name {
	case "string":
		return ty.String, nil
	case "number":
		return ty.Number, nil
	case "int":
		return ty.Int, nil
	case "float":
		return ty.Float, nil
	case "bool":
		return ty.Bool, nil
	case "object":
		return ty.Object, nil
	case "array":
		return ty.Array, nil
	case "any":
		return ty.Any, nil
	case "null":
		return ty.Null, nil
	}
	return nil, errors.Errorf("schema: unknown type name %q", name)
}
