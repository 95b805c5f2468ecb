// Package validate implements the conformance check between a table schema
// and candidate record data. The check is a pure function: no storage access,
// no side effects. Both the schema store (definition and default-value
// checks) and the record store (every write) call into it.
package validate

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"net/url"
	"time"

	"github.com/astarworks/flextable/pkg/types"
)

// Calendar layouts for DATE and DATETIME values.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = time.RFC3339
)

// Mode selects how absent required properties are treated.
type Mode int

const (
	// Full is used on create and full update: a required property absent
	// from the payload is a field error.
	Full Mode = iota
	// Partial is used on payloads that only carry changed keys: absence
	// is not checked, but an explicit null on a required property still
	// fails.
	Partial
)

// Conform checks data against the table's current schema and returns a
// normalized deep copy: numbers as float64, list values as []string. All
// field-level problems are collected into a single ValidationError; the check
// never stops at the first failure.
func Conform(tbl *types.Table, data map[string]any, mode Mode) (map[string]any, error) {
	ve := &types.ValidationError{}
	out := make(map[string]any, len(data))

	for key, raw := range data {
		def, ok := tbl.Properties[key]
		if !ok {
			ve.Add(types.FieldError{
				Key:     key,
				Message: "unknown property key",
			})
			continue
		}
		if raw == nil {
			if def.Required {
				ve.Add(types.FieldError{
					Key:      key,
					Message:  "required property must not be null",
					Expected: expectedShape(def),
					Received: "null",
				})
				continue
			}
			out[key] = nil
			continue
		}
		norm, ferr := Value(def, raw)
		if ferr != nil {
			ve.Add(*ferr)
			continue
		}
		out[key] = norm
	}

	if mode == Full {
		for _, key := range tbl.PropertyOrder {
			def := tbl.Properties[key]
			if !def.Required {
				continue
			}
			if v, ok := out[key]; !ok || v == nil {
				if _, present := data[key]; present {
					continue // already reported above
				}
				ve.Add(types.FieldError{
					Key:      key,
					Message:  "missing required property",
					Expected: expectedShape(def),
				})
			}
		}
	}

	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// Value checks a single non-null value against a property definition and
// returns the normalized value.
func Value(def types.PropertyDefinition, v any) (any, *types.FieldError) {
	switch def.Type {
	case types.TypeText, types.TypeLongText:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(def, v)
		}
		return s, nil

	case types.TypeEmail:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(def, v)
		}
		if _, err := mail.ParseAddress(s); err != nil {
			return nil, &types.FieldError{
				Key:      def.Key,
				Message:  "not a valid email address",
				Expected: expectedShape(def),
				Received: fmt.Sprintf("%q", s),
			}
		}
		return s, nil

	case types.TypeURL:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(def, v)
		}
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, &types.FieldError{
				Key:      def.Key,
				Message:  "not a valid absolute URL",
				Expected: expectedShape(def),
				Received: fmt.Sprintf("%q", s),
			}
		}
		return s, nil

	case types.TypeNumber:
		n, ok := asNumber(v)
		if !ok {
			return nil, mismatch(def, v)
		}
		if def.Config.Min != nil && n < *def.Config.Min {
			return nil, &types.FieldError{
				Key:      def.Key,
				Message:  fmt.Sprintf("below configured minimum %v", *def.Config.Min),
				Expected: expectedShape(def),
				Received: fmt.Sprintf("%v", n),
			}
		}
		if def.Config.Max != nil && n > *def.Config.Max {
			return nil, &types.FieldError{
				Key:      def.Key,
				Message:  fmt.Sprintf("above configured maximum %v", *def.Config.Max),
				Expected: expectedShape(def),
				Received: fmt.Sprintf("%v", n),
			}
		}
		return n, nil

	case types.TypeCheckbox:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch(def, v)
		}
		return b, nil

	case types.TypeSelect:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(def, v)
		}
		if !def.Config.HasOption(s) {
			return nil, &types.FieldError{
				Key:      def.Key,
				Message:  "not one of the configured options",
				Expected: expectedShape(def),
				Received: fmt.Sprintf("%q", s),
			}
		}
		return s, nil

	case types.TypeMultiSelect, types.TypeFile, types.TypeRelation:
		items, ok := asStringList(v)
		if !ok {
			return nil, mismatch(def, v)
		}
		if def.Type == types.TypeMultiSelect {
			for _, item := range items {
				if !def.Config.HasOption(item) {
					return nil, &types.FieldError{
						Key:      def.Key,
						Message:  "contains a value that is not one of the configured options",
						Expected: expectedShape(def),
						Received: fmt.Sprintf("%q", item),
					}
				}
			}
		}
		return items, nil

	case types.TypeDate:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(def, v)
		}
		if _, err := time.Parse(DateLayout, s); err != nil {
			return nil, &types.FieldError{
				Key:      def.Key,
				Message:  "not a valid calendar date",
				Expected: expectedShape(def),
				Received: fmt.Sprintf("%q", s),
			}
		}
		return s, nil

	case types.TypeDateTime:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(def, v)
		}
		if _, err := time.Parse(DateTimeLayout, s); err != nil {
			return nil, &types.FieldError{
				Key:      def.Key,
				Message:  "not a valid datetime",
				Expected: expectedShape(def),
				Received: fmt.Sprintf("%q", s),
			}
		}
		return s, nil

	default:
		return nil, &types.FieldError{
			Key:     def.Key,
			Message: fmt.Sprintf("unknown property type %q", def.Type),
		}
	}
}

// Definition checks a property definition: recognized type, well-formed
// config for that type, and a default value that itself conforms.
// The returned error is nil when the definition is valid.
func Definition(def types.PropertyDefinition) error {
	ve := &types.ValidationError{}

	if def.Key == "" {
		ve.Add(types.FieldError{Key: def.Key, Message: "property key must not be empty"})
	}
	if !def.Type.Valid() {
		ve.Add(types.FieldError{
			Key:     def.Key,
			Message: fmt.Sprintf("unknown property type %q", def.Type),
		})
		return ve.OrNil()
	}

	if def.Type.HasOptions() {
		if len(def.Config.Options) == 0 {
			ve.Add(types.FieldError{
				Key:     def.Key,
				Message: "select property requires at least one option",
			})
		}
		seen := make(map[string]bool, len(def.Config.Options))
		for _, o := range def.Config.Options {
			if o == "" {
				ve.Add(types.FieldError{Key: def.Key, Message: "options must not be empty strings"})
			}
			if seen[o] {
				ve.Add(types.FieldError{
					Key:     def.Key,
					Message: fmt.Sprintf("duplicate option %q", o),
				})
			}
			seen[o] = true
		}
	} else if len(def.Config.Options) > 0 {
		ve.Add(types.FieldError{
			Key:     def.Key,
			Message: fmt.Sprintf("options are not supported for type %q", def.Type),
		})
	}

	if def.Type == types.TypeNumber {
		if def.Config.Min != nil && def.Config.Max != nil && *def.Config.Min > *def.Config.Max {
			ve.Add(types.FieldError{Key: def.Key, Message: "min must not exceed max"})
		}
	} else if def.Config.Min != nil || def.Config.Max != nil {
		ve.Add(types.FieldError{
			Key:     def.Key,
			Message: fmt.Sprintf("min/max are not supported for type %q", def.Type),
		})
	}

	if def.DefaultValue != nil && ve.Empty() {
		if _, ferr := Value(def, def.DefaultValue); ferr != nil {
			ve.Add(types.FieldError{
				Key:      def.Key,
				Message:  "default value does not conform: " + ferr.Message,
				Expected: ferr.Expected,
				Received: ferr.Received,
			})
		}
	}

	return ve.OrNil()
}

// FilterableProperty resolves key on the table and confirms the property's
// type admits filtering. Unfilterable types are rejected with a
// ValidationError, never silently ignored.
func FilterableProperty(tbl *types.Table, key string) (types.PropertyDefinition, error) {
	def, ok := tbl.Properties[key]
	if !ok {
		return types.PropertyDefinition{}, types.Invalidf(key, "unknown property key")
	}
	if !def.Type.Filterable() {
		return types.PropertyDefinition{}, types.Invalidf(key,
			"properties of type %q cannot be filtered", def.Type)
	}
	return def, nil
}

// asNumber widens the numeric representations a JSON decoder or Go caller may
// hand us into float64.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// asStringList accepts []string directly or []any whose elements are all
// strings (the shape a JSON decoder produces).
func asStringList(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...), true
	case []any:
		out := make([]string, len(list))
		for i, e := range list {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// mismatch builds the field error for a value of the wrong shape.
func mismatch(def types.PropertyDefinition, v any) *types.FieldError {
	return &types.FieldError{
		Key:      def.Key,
		Message:  "value does not match the property type",
		Expected: expectedShape(def),
		Received: shapeOf(v),
	}
}

// expectedShape names the value shape a property type accepts, for error
// messages.
func expectedShape(def types.PropertyDefinition) string {
	switch def.Type {
	case types.TypeText, types.TypeLongText:
		return "string"
	case types.TypeEmail:
		return "email address string"
	case types.TypeURL:
		return "absolute URL string"
	case types.TypeNumber:
		return "number"
	case types.TypeCheckbox:
		return "boolean"
	case types.TypeSelect:
		return "string, one of the configured options"
	case types.TypeMultiSelect:
		return "list of strings, each one of the configured options"
	case types.TypeFile, types.TypeRelation:
		return "list of strings"
	case types.TypeDate:
		return `date string "2006-01-02"`
	case types.TypeDateTime:
		return "RFC 3339 datetime string"
	default:
		return string(def.Type)
	}
}

// shapeOf names the shape of a received value, for error messages.
func shapeOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64, json.Number:
		return "number"
	case []any, []string:
		return "list"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
