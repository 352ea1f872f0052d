package registry

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/orneryd/hyperdb/pkg/hvalue"
)

// yamlSchema is the ontology-as-data interchange format: everything the
// native DSL ontology grammar can express except constraints and rules,
// whose compiled patterns are not meaningfully round-trippable through
// a data format. Constraints/rules are authored through the DSL
// ontology grammar and AddConstraint/AddRule instead.
type yamlSchema struct {
	Types     []yamlType     `yaml:"types"`
	EdgeTypes []yamlEdgeType `yaml:"edge_types"`
}

type yamlAttr struct {
	Name     string      `yaml:"name"`
	Type     string      `yaml:"type"`
	Required bool        `yaml:"required,omitempty"`
	Default  interface{} `yaml:"default,omitempty"`
	Min      interface{} `yaml:"min,omitempty"`
	Max      interface{} `yaml:"max,omitempty"`
	Unique   bool        `yaml:"unique,omitempty"`
	Readonly bool        `yaml:"readonly,omitempty"`
}

type yamlType struct {
	Name       string     `yaml:"name"`
	Parent     string     `yaml:"parent,omitempty"`
	Abstract   bool       `yaml:"abstract,omitempty"`
	Attributes []yamlAttr `yaml:"attributes,omitempty"`
}

type yamlParam struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type yamlEdgeType struct {
	Name        string           `yaml:"name"`
	Params      []yamlParam      `yaml:"params"`
	Attributes  []yamlAttr       `yaml:"attributes,omitempty"`
	Symmetric   bool             `yaml:"symmetric,omitempty"`
	Acyclic     bool             `yaml:"acyclic,omitempty"`
	Cardinality map[int]yamlCard `yaml:"cardinality,omitempty"`
	OnKill      map[int]string   `yaml:"on_kill,omitempty"`
}

type yamlCard struct {
	Lo int `yaml:"lo"`
	Hi int `yaml:"hi"`
}

func kindFromName(name string) (hvalue.Kind, error) {
	switch name {
	case "Bool":
		return hvalue.KindBool, nil
	case "Int":
		return hvalue.KindInt, nil
	case "Float":
		return hvalue.KindFloat, nil
	case "String":
		return hvalue.KindString, nil
	case "Timestamp":
		return hvalue.KindTimestamp, nil
	case "Duration":
		return hvalue.KindDuration, nil
	case "NodeRef":
		return hvalue.KindNodeRef, nil
	case "EdgeRef":
		return hvalue.KindEdgeRef, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAttrType, name)
	}
}

func valueFromYAML(kind hvalue.Kind, raw interface{}) (hvalue.Value, error) {
	if raw == nil {
		return hvalue.Null, nil
	}
	switch kind {
	case hvalue.KindBool:
		b, ok := raw.(bool)
		if !ok {
			return hvalue.Null, fmt.Errorf("expected bool, got %T", raw)
		}
		return hvalue.NewBool(b), nil
	case hvalue.KindInt, hvalue.KindTimestamp, hvalue.KindDuration:
		switch n := raw.(type) {
		case int:
			return intValueOfKind(kind, int64(n)), nil
		case int64:
			return intValueOfKind(kind, n), nil
		default:
			return hvalue.Null, fmt.Errorf("expected integer, got %T", raw)
		}
	case hvalue.KindFloat:
		switch n := raw.(type) {
		case float64:
			return hvalue.NewFloat(n), nil
		case int:
			return hvalue.NewFloat(float64(n)), nil
		default:
			return hvalue.Null, fmt.Errorf("expected float, got %T", raw)
		}
	case hvalue.KindString:
		s, ok := raw.(string)
		if !ok {
			return hvalue.Null, fmt.Errorf("expected string, got %T", raw)
		}
		return hvalue.NewString(s), nil
	default:
		return hvalue.Null, fmt.Errorf("unsupported default/min/max kind %s", kind)
	}
}

func intValueOfKind(kind hvalue.Kind, n int64) hvalue.Value {
	switch kind {
	case hvalue.KindTimestamp:
		return hvalue.NewTimestamp(n)
	case hvalue.KindDuration:
		return hvalue.NewDuration(n)
	default:
		return hvalue.NewInt(n)
	}
}

func onKillFromName(name string) (OnKillAction, error) {
	switch name {
	case "Delete":
		return OnKillDelete, nil
	case "Cascade":
		return OnKillCascade, nil
	case "Restrict":
		return OnKillRestrict, nil
	case "SetNull":
		return OnKillSetNull, nil
	default:
		return 0, fmt.Errorf("registry: unknown on_kill action %q", name)
	}
}

func attrDefFromYAML(y yamlAttr) (AttributeDef, error) {
	kind, err := kindFromName(y.Type)
	if err != nil {
		return AttributeDef{}, err
	}
	a := AttributeDef{Name: y.Name, Kind: kind, Required: y.Required, Unique: y.Unique, Readonly: y.Readonly}
	if y.Default != nil {
		v, err := valueFromYAML(kind, y.Default)
		if err != nil {
			return AttributeDef{}, fmt.Errorf("attribute %s default: %w", y.Name, err)
		}
		a.Default = &v
	}
	if y.Min != nil {
		v, err := valueFromYAML(kind, y.Min)
		if err != nil {
			return AttributeDef{}, fmt.Errorf("attribute %s min: %w", y.Name, err)
		}
		a.Min = &v
	}
	if y.Max != nil {
		v, err := valueFromYAML(kind, y.Max)
		if err != nil {
			return AttributeDef{}, fmt.Errorf("attribute %s max: %w", y.Name, err)
		}
		a.Max = &v
	}
	return a, nil
}

// FromYAML loads types and edge types from an ontology-as-data YAML
// document into b. Constraints and rules are not representable in this
// format; add them separately via AddConstraint/AddRule before Build.
func (b *RegistryBuilder) FromYAML(data []byte) error {
	var doc yamlSchema
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("registry: parse yaml: %w", err)
	}
	for _, t := range doc.Types {
		attrs := make([]AttributeDef, 0, len(t.Attributes))
		for _, ya := range t.Attributes {
			a, err := attrDefFromYAML(ya)
			if err != nil {
				return fmt.Errorf("type %s: %w", t.Name, err)
			}
			attrs = append(attrs, a)
		}
		if err := b.AddType(t.Name, t.Parent, t.Abstract, attrs); err != nil {
			return err
		}
	}
	for _, et := range doc.EdgeTypes {
		params := make([]ParamDef, 0, len(et.Params))
		for _, p := range et.Params {
			params = append(params, ParamDef{Name: p.Name, TypeName: p.Type})
		}
		attrs := make([]AttributeDef, 0, len(et.Attributes))
		for _, ya := range et.Attributes {
			a, err := attrDefFromYAML(ya)
			if err != nil {
				return fmt.Errorf("edge type %s: %w", et.Name, err)
			}
			attrs = append(attrs, a)
		}
		var cardinality map[int]CardinalityBound
		if len(et.Cardinality) > 0 {
			cardinality = make(map[int]CardinalityBound, len(et.Cardinality))
			for pos, c := range et.Cardinality {
				cardinality[pos] = CardinalityBound{Lo: c.Lo, Hi: c.Hi}
			}
		}
		var onKill map[int]OnKillAction
		if len(et.OnKill) > 0 {
			onKill = make(map[int]OnKillAction, len(et.OnKill))
			for pos, name := range et.OnKill {
				action, err := onKillFromName(name)
				if err != nil {
					return fmt.Errorf("edge type %s: %w", et.Name, err)
				}
				onKill[pos] = action
			}
		}
		if err := b.AddEdgeType(et.Name, params, attrs, cardinality, et.Symmetric, et.Acyclic, onKill); err != nil {
			return err
		}
	}
	return nil
}

// DumpYAML renders the registry's types and edge types back to the
// ontology-as-data YAML format (constraints/rules are not included; see
// FromYAML). Attribute min/max, edge cardinality bounds, on_kill
// actions, and NodeRef/EdgeRef defaults are not written.
func (r *Registry) DumpYAML() ([]byte, error) {
	doc := yamlSchema{}
	for name, id := range r.typeIDs {
		td := r.typesByID[id]
		yt := yamlType{Name: name, Abstract: td.IsAbstract}
		if td.HasParent {
			yt.Parent = r.typesByID[td.Parent].Name
		}
		for attrName, a := range td.Attributes {
			yt.Attributes = append(yt.Attributes, attrToYAML(attrName, a))
		}
		doc.Types = append(doc.Types, yt)
	}
	for name, id := range r.edgeTypeIDs {
		etd := r.edgeTypesByID[id]
		yet := yamlEdgeType{Name: name, Symmetric: etd.Symmetric, Acyclic: etd.Acyclic}
		for _, p := range etd.Params {
			yet.Params = append(yet.Params, yamlParam{Name: p.Name, Type: p.TypeName})
		}
		for attrName, a := range etd.Attributes {
			yet.Attributes = append(yet.Attributes, attrToYAML(attrName, a))
		}
		doc.EdgeTypes = append(doc.EdgeTypes, yet)
	}
	return yaml.Marshal(doc)
}

func attrToYAML(name string, a AttributeDef) yamlAttr {
	y := yamlAttr{Name: name, Type: a.Kind.String(), Required: a.Required, Unique: a.Unique, Readonly: a.Readonly}
	if a.Default != nil {
		switch a.Default.Kind() {
		case hvalue.KindBool:
			y.Default, _ = a.Default.Bool()
		case hvalue.KindInt:
			y.Default, _ = a.Default.Int()
		case hvalue.KindFloat:
			y.Default, _ = a.Default.Float()
		case hvalue.KindString:
			y.Default, _ = a.Default.String()
		case hvalue.KindTimestamp:
			y.Default, _ = a.Default.TimestampMillis()
		case hvalue.KindDuration:
			y.Default, _ = a.Default.DurationMillis()
		}
	}
	return y
}
