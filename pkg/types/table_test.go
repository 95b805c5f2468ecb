package types

import (
	"testing"
)

func testTable() *Table {
	return &Table{
		TableID:     "tbl-1",
		WorkspaceID: "ws-1",
		Name:        "Matters",
		Properties: map[string]PropertyDefinition{
			"title":  {Key: "title", Type: TypeText, Required: true},
			"status": {Key: "status", Type: TypeSelect, Config: PropertyConfig{Options: []string{"open", "closed"}}},
		},
		PropertyOrder: []string{"title", "status"},
	}
}

func TestTableOrderConsistent(t *testing.T) {
	tests := []struct {
		name  string
		order []string
		want  bool
	}{
		{"exact permutation", []string{"status", "title"}, true},
		{"identity order", []string{"title", "status"}, true},
		{"missing key", []string{"title"}, false},
		{"duplicate key", []string{"title", "title"}, false},
		{"unknown key", []string{"title", "ghost"}, false},
		{"extra key", []string{"title", "status", "ghost"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := testTable()
			tbl.PropertyOrder = tt.order
			if got := tbl.OrderConsistent(); got != tt.want {
				t.Errorf("OrderConsistent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTableClone(t *testing.T) {
	tbl := testTable()
	clone := tbl.Clone()

	clone.Properties["title"] = PropertyDefinition{Key: "title", Type: TypeLongText}
	clone.PropertyOrder[0] = "status"
	opts := clone.Properties["status"].Config.Options
	opts[0] = "mutated"

	if tbl.Properties["title"].Type != TypeText {
		t.Error("Clone shares Properties map with original")
	}
	if tbl.PropertyOrder[0] != "title" {
		t.Error("Clone shares PropertyOrder slice with original")
	}
	if tbl.Properties["status"].Config.Options[0] != "open" {
		t.Error("Clone shares nested option slices with original")
	}
}

func TestTableProperty(t *testing.T) {
	tbl := testTable()

	d, err := tbl.Property("title")
	if err != nil {
		t.Fatalf("Property(title) error = %v", err)
	}
	if d.Type != TypeText {
		t.Errorf("Property(title).Type = %q, want TEXT", d.Type)
	}

	if _, err := tbl.Property("ghost"); err != ErrPropertyNotFound {
		t.Errorf("Property(ghost) error = %v, want ErrPropertyNotFound", err)
	}
}

func TestTableOrderedProperties(t *testing.T) {
	tbl := testTable()
	tbl.PropertyOrder = []string{"status", "title"}

	props := tbl.OrderedProperties()
	if len(props) != 2 {
		t.Fatalf("OrderedProperties() len = %d, want 2", len(props))
	}
	if props[0].Key != "status" || props[1].Key != "title" {
		t.Errorf("OrderedProperties() order = [%s %s], want [status title]", props[0].Key, props[1].Key)
	}
}
