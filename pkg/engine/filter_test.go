package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astarworks/flextable/pkg/types"
)

// filterFixture builds a table of mixed types with a known record set.
//
//	name     score  active  kind   due
//	ada      90     true    a      2026-01-10
//	grace    75     false   b      2026-03-01
//	edsger   (unset) true   a      (unset)
func filterFixture(t *testing.T) (*RecordStore, string) {
	t.Helper()
	schemas, records := newStores(t)
	tbl, err := schemas.CreateTable("ws-1", "People", "", []types.PropertyDefinition{
		{Key: "name", Type: types.TypeText, Required: true},
		{Key: "score", Type: types.TypeNumber},
		{Key: "active", Type: types.TypeCheckbox},
		{Key: "kind", Type: types.TypeSelect,
			Config: types.PropertyConfig{Options: []string{"a", "b"}}},
		{Key: "due", Type: types.TypeDate},
		{Key: "tags", Type: types.TypeMultiSelect,
			Config: types.PropertyConfig{Options: []string{"x", "y"}}},
	})
	require.NoError(t, err)

	rows := []map[string]any{
		{"name": "ada", "score": 90, "active": true, "kind": "a", "due": "2026-01-10"},
		{"name": "grace", "score": 75, "active": false, "kind": "b", "due": "2026-03-01"},
		{"name": "edsger", "active": true, "kind": "a"},
	}
	for _, row := range rows {
		_, err := records.CreateRecord(tbl.TableID, row)
		require.NoError(t, err)
	}
	return records, tbl.TableID
}

func names(page *RecordPage) []string {
	out := make([]string, len(page.Records))
	for i, rec := range page.Records {
		out[i] = rec.Data["name"].(string)
	}
	return out
}

func TestFilterOperators(t *testing.T) {
	records, tableID := filterFixture(t)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"text eq", Filter{Key: "name", Op: OpEq, Value: "ada"}, []string{"ada"}},
		{"text neq", Filter{Key: "name", Op: OpNeq, Value: "ada"}, []string{"grace", "edsger"}},
		{"text contains", Filter{Key: "name", Op: OpContains, Value: "ra"}, []string{"grace"}},
		{"number gt", Filter{Key: "score", Op: OpGt, Value: 80}, []string{"ada"}},
		{"number lte", Filter{Key: "score", Op: OpLte, Value: 75}, []string{"grace"}},
		{"number neq includes unset", Filter{Key: "score", Op: OpNeq, Value: 75}, []string{"ada", "edsger"}},
		{"checkbox eq", Filter{Key: "active", Op: OpEq, Value: false}, []string{"grace"}},
		{"select eq", Filter{Key: "kind", Op: OpEq, Value: "a"}, []string{"ada", "edsger"}},
		{"date lt", Filter{Key: "due", Op: OpLt, Value: "2026-02-01"}, []string{"ada"}},
		{"date gte", Filter{Key: "due", Op: OpGte, Value: "2026-02-01"}, []string{"grace"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := records.ListRecords(tableID, ListQuery{Filters: []Filter{tt.filter}})
			require.NoError(t, err)
			require.Equal(t, tt.want, names(page))
		})
	}
}

func TestFilterConjunction(t *testing.T) {
	records, tableID := filterFixture(t)

	page, err := records.ListRecords(tableID, ListQuery{Filters: []Filter{
		{Key: "kind", Op: OpEq, Value: "a"},
		{Key: "score", Op: OpGte, Value: 50},
	}})
	require.NoError(t, err)
	require.Equal(t, []string{"ada"}, names(page), "filters AND together; unset score drops edsger")
}

func TestFilterValidation(t *testing.T) {
	records, tableID := filterFixture(t)

	tests := []struct {
		name   string
		filter Filter
	}{
		{"unknown key", Filter{Key: "ghost", Op: OpEq, Value: "x"}},
		{"non-filterable type", Filter{Key: "tags", Op: OpEq, Value: "x"}},
		{"operator invalid for type", Filter{Key: "active", Op: OpGt, Value: true}},
		{"contains on number", Filter{Key: "score", Op: OpContains, Value: 9}},
		{"value shape mismatch", Filter{Key: "score", Op: OpEq, Value: "ninety"}},
		{"option not in set", Filter{Key: "kind", Op: OpEq, Value: "z"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := records.ListRecords(tableID, ListQuery{Filters: []Filter{tt.filter}})
			_, ok := types.AsValidation(err)
			require.True(t, ok, "expected validation error, got %v", err)
		})
	}
}

func TestFilterValueOutsideNumberBounds(t *testing.T) {
	schemas, records := newStores(t)
	tbl, err := schemas.CreateTable("ws-1", "Bounded", "", []types.PropertyDefinition{
		{Key: "pct", Type: types.TypeNumber,
			Config: types.PropertyConfig{Min: fptr(0), Max: fptr(100)}},
	})
	require.NoError(t, err)
	_, err = records.CreateRecord(tbl.TableID, map[string]any{"pct": 50})
	require.NoError(t, err)

	// Comparison values are predicates, not stored data; bounds do not apply.
	page, err := records.ListRecords(tbl.TableID, ListQuery{Filters: []Filter{
		{Key: "pct", Op: OpLt, Value: 1000},
	}})
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalCount)
}

func TestSorting(t *testing.T) {
	records, tableID := filterFixture(t)

	page, err := records.ListRecords(tableID, ListQuery{
		Sort: &SortSpec{Key: "score"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"grace", "ada", "edsger"}, names(page), "unset sorts last")

	page, err = records.ListRecords(tableID, ListQuery{
		Sort: &SortSpec{Key: "score", Desc: true},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"ada", "grace", "edsger"}, names(page))

	page, err = records.ListRecords(tableID, ListQuery{
		Sort: &SortSpec{Key: PositionSortKey, Desc: true},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"edsger", "grace", "ada"}, names(page))

	// Default is position ascending.
	page, err = records.ListRecords(tableID, ListQuery{})
	require.NoError(t, err)
	require.Equal(t, []string{"ada", "grace", "edsger"}, names(page))

	// Sorting by a non-filterable property is rejected.
	_, err = records.ListRecords(tableID, ListQuery{Sort: &SortSpec{Key: "tags"}})
	_, ok := types.AsValidation(err)
	require.True(t, ok)
}
