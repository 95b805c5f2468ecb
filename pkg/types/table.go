package types

import "time"

// Table is a tenant-defined schema container holding an ordered set of typed
// properties. Properties is keyed by property key; PropertyOrder is always a
// permutation of the Properties key set.
type Table struct {
	TableID       string                        `json:"tableId"`
	WorkspaceID   string                        `json:"workspaceId"`
	Name          string                        `json:"name"`
	Description   string                        `json:"description,omitempty"`
	Properties    map[string]PropertyDefinition `json:"properties"`
	PropertyOrder []string                      `json:"propertyOrder"`
	CreatedAt     time.Time                     `json:"createdAt"`
	UpdatedAt     time.Time                     `json:"updatedAt"`
}

// Clone returns a deep copy of the table. Mutations are modeled as pure
// transformations of a clone committed back to the backend as a single
// replace, so readers never observe a half-updated schema.
func (t *Table) Clone() *Table {
	out := *t
	out.Properties = make(map[string]PropertyDefinition, len(t.Properties))
	for k, d := range t.Properties {
		out.Properties[k] = d.Clone()
	}
	out.PropertyOrder = append([]string(nil), t.PropertyOrder...)
	return &out
}

// Property returns the definition for the given key.
// Returns ErrPropertyNotFound if the key is not defined on the table.
func (t *Table) Property(key string) (PropertyDefinition, error) {
	d, ok := t.Properties[key]
	if !ok {
		return PropertyDefinition{}, ErrPropertyNotFound
	}
	return d, nil
}

// OrderedProperties returns the property definitions in display order.
func (t *Table) OrderedProperties() []PropertyDefinition {
	out := make([]PropertyDefinition, 0, len(t.PropertyOrder))
	for _, key := range t.PropertyOrder {
		if d, ok := t.Properties[key]; ok {
			out = append(out, d)
		}
	}
	return out
}

// OrderConsistent reports whether PropertyOrder is exactly a permutation of
// the Properties key set.
func (t *Table) OrderConsistent() bool {
	if len(t.PropertyOrder) != len(t.Properties) {
		return false
	}
	seen := make(map[string]bool, len(t.PropertyOrder))
	for _, key := range t.PropertyOrder {
		if seen[key] {
			return false
		}
		if _, ok := t.Properties[key]; !ok {
			return false
		}
		seen[key] = true
	}
	return true
}
