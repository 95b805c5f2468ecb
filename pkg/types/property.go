package types

// PropertyType identifies one of the closed set of value-shape contracts a
// property can carry.
type PropertyType string

// Property types determine what values a property accepts.
const (
	TypeText        PropertyType = "TEXT"
	TypeLongText    PropertyType = "LONG_TEXT"
	TypeEmail       PropertyType = "EMAIL"
	TypeURL         PropertyType = "URL"
	TypeNumber      PropertyType = "NUMBER"
	TypeCheckbox    PropertyType = "CHECKBOX"
	TypeSelect      PropertyType = "SELECT"
	TypeMultiSelect PropertyType = "MULTI_SELECT"
	TypeFile        PropertyType = "FILE"
	TypeRelation    PropertyType = "RELATION"
	TypeDate        PropertyType = "DATE"
	TypeDateTime    PropertyType = "DATETIME"
)

// validPropertyTypes is the set of recognized property types.
var validPropertyTypes = map[PropertyType]bool{
	TypeText:        true,
	TypeLongText:    true,
	TypeEmail:       true,
	TypeURL:         true,
	TypeNumber:      true,
	TypeCheckbox:    true,
	TypeSelect:      true,
	TypeMultiSelect: true,
	TypeFile:        true,
	TypeRelation:    true,
	TypeDate:        true,
	TypeDateTime:    true,
}

// filterablePropertyTypes is the subset of types the record query engine
// accepts in filter predicates. List-shaped types are excluded.
var filterablePropertyTypes = map[PropertyType]bool{
	TypeText:     true,
	TypeLongText: true,
	TypeEmail:    true,
	TypeURL:      true,
	TypeNumber:   true,
	TypeSelect:   true,
	TypeCheckbox: true,
	TypeDate:     true,
	TypeDateTime: true,
}

// Valid reports whether the type is a recognized property type.
func (t PropertyType) Valid() bool {
	return validPropertyTypes[t]
}

// Filterable reports whether record filters may target properties of this type.
func (t PropertyType) Filterable() bool {
	return filterablePropertyTypes[t]
}

// HasOptions reports whether the type constrains values to a configured
// option set.
func (t PropertyType) HasOptions() bool {
	return t == TypeSelect || t == TypeMultiSelect
}

// List reports whether values of this type are string sequences.
func (t PropertyType) List() bool {
	return t == TypeMultiSelect || t == TypeFile || t == TypeRelation
}

// PropertyTypes lists all recognized property types for enumeration.
var PropertyTypes = []PropertyType{
	TypeText,
	TypeLongText,
	TypeEmail,
	TypeURL,
	TypeNumber,
	TypeCheckbox,
	TypeSelect,
	TypeMultiSelect,
	TypeFile,
	TypeRelation,
	TypeDate,
	TypeDateTime,
}

// PropertyConfig holds type-specific parameters for a property definition.
// Options applies to SELECT and MULTI_SELECT; Min and Max apply to NUMBER.
type PropertyConfig struct {
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Clone returns a deep copy of the config.
func (c PropertyConfig) Clone() PropertyConfig {
	out := c
	if c.Options != nil {
		out.Options = append([]string(nil), c.Options...)
	}
	if c.Min != nil {
		v := *c.Min
		out.Min = &v
	}
	if c.Max != nil {
		v := *c.Max
		out.Max = &v
	}
	return out
}

// HasOption reports whether name is one of the configured options.
func (c PropertyConfig) HasOption(name string) bool {
	for _, o := range c.Options {
		if o == name {
			return true
		}
	}
	return false
}

// PropertyDefinition describes one typed column of a table. Key and Type are
// fixed at creation; changing a property's type is modeled as remove+add.
type PropertyDefinition struct {
	Key          string         `json:"key"`
	Type         PropertyType   `json:"type"`
	DisplayName  string         `json:"displayName"`
	Required     bool           `json:"required"`
	Config       PropertyConfig `json:"config,omitempty"`
	DefaultValue any            `json:"defaultValue,omitempty"`
	Description  string         `json:"description,omitempty"`
}

// Clone returns a deep copy of the definition.
func (d PropertyDefinition) Clone() PropertyDefinition {
	out := d
	out.Config = d.Config.Clone()
	out.DefaultValue = cloneValue(d.DefaultValue)
	return out
}

// cloneValue deep-copies a property value. Values are JSON-shaped: scalars,
// []string, []any, or map[string]any.
func cloneValue(v any) any {
	switch val := v.(type) {
	case []string:
		return append([]string(nil), val...)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = cloneValue(e)
		}
		return out
	default:
		return val
	}
}
