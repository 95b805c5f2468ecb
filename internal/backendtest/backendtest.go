// Package backendtest is the shared contract suite for storage backends.
// Every types.Backend implementation runs the same suite, so the engine can
// treat backends as interchangeable.
package backendtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/astarworks/flextable/pkg/types"
)

// Factory opens a fresh, attached backend for one test. Cleanup (detach,
// temp files) belongs to the factory via t.Cleanup.
type Factory func(t *testing.T) types.Backend

// Run exercises the full backend contract against backends produced by open.
func Run(t *testing.T, open Factory) {
	t.Run("TableLifecycle", func(t *testing.T) { testTableLifecycle(t, open) })
	t.Run("ListTables", func(t *testing.T) { testListTables(t, open) })
	t.Run("MutateTable", func(t *testing.T) { testMutateTable(t, open) })
	t.Run("DeleteTableCascade", func(t *testing.T) { testDeleteTableCascade(t, open) })
	t.Run("RecordLifecycle", func(t *testing.T) { testRecordLifecycle(t, open) })
	t.Run("ListRecordsOrder", func(t *testing.T) { testListRecordsOrder(t, open) })
	t.Run("ReplaceRecordVersion", func(t *testing.T) { testReplaceRecordVersion(t, open) })
	t.Run("DeleteRecordVersion", func(t *testing.T) { testDeleteRecordVersion(t, open) })
	t.Run("NextPosition", func(t *testing.T) { testNextPosition(t, open) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, open) })
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func newTable(workspaceID string) *types.Table {
	now := time.Now().UTC()
	return &types.Table{
		TableID:     newID(),
		WorkspaceID: workspaceID,
		Name:        "Tasks",
		Properties: map[string]types.PropertyDefinition{
			"title": {Key: "title", Type: types.TypeText, DisplayName: "Title", Required: true},
			"done":  {Key: "done", Type: types.TypeCheckbox, DisplayName: "Done"},
		},
		PropertyOrder: []string{"title", "done"},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func newRecord(tableID string, position int64) *types.Record {
	now := time.Now().UTC()
	return &types.Record{
		RecordID:  newID(),
		TableID:   tableID,
		Data:      map[string]any{"title": "write report", "done": false},
		Position:  position,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testTableLifecycle(t *testing.T, open Factory) {
	b := open(t)

	tbl := newTable("ws-1")
	require.NoError(t, b.InsertTable(tbl))

	got, err := b.GetTable(tbl.TableID)
	require.NoError(t, err)
	require.Equal(t, tbl.TableID, got.TableID)
	require.Equal(t, tbl.Name, got.Name)
	require.Equal(t, tbl.PropertyOrder, got.PropertyOrder)
	require.Len(t, got.Properties, 2)
	require.Equal(t, types.TypeText, got.Properties["title"].Type)
	require.True(t, got.Properties["title"].Required)

	require.NoError(t, b.DeleteTable(tbl.TableID))
	_, err = b.GetTable(tbl.TableID)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func testListTables(t *testing.T, open Factory) {
	b := open(t)

	var ids []string
	for i := 0; i < 3; i++ {
		tbl := newTable("ws-list")
		tbl.CreatedAt = tbl.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, b.InsertTable(tbl))
		ids = append(ids, tbl.TableID)
	}
	other := newTable("ws-other")
	require.NoError(t, b.InsertTable(other))

	tables, err := b.ListTables("ws-list")
	require.NoError(t, err)
	require.Len(t, tables, 3)
	for i, tbl := range tables {
		require.Equal(t, ids[i], tbl.TableID, "tables must come back in creation order")
	}

	all, err := b.ListTables("")
	require.NoError(t, err)
	require.Len(t, all, 4)

	none, err := b.ListTables("ws-empty")
	require.NoError(t, err)
	require.Empty(t, none)
}

func testMutateTable(t *testing.T, open Factory) {
	b := open(t)

	tbl := newTable("ws-1")
	require.NoError(t, b.InsertTable(tbl))

	updated, err := b.MutateTable(tbl.TableID, func(c *types.Table) error {
		c.Name = "Renamed"
		c.Properties["notes"] = types.PropertyDefinition{Key: "notes", Type: types.TypeLongText}
		c.PropertyOrder = append(c.PropertyOrder, "notes")
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
	require.Equal(t, []string{"title", "done", "notes"}, updated.PropertyOrder)
	require.False(t, updated.UpdatedAt.Before(tbl.UpdatedAt))

	got, err := b.GetTable(tbl.TableID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Name)
	require.Len(t, got.Properties, 3)

	// A failing fn must leave the stored table untouched.
	boom := types.ErrPermissionDenied
	_, err = b.MutateTable(tbl.TableID, func(c *types.Table) error {
		c.Name = "should not stick"
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err = b.GetTable(tbl.TableID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Name)

	_, err = b.MutateTable(newID(), func(*types.Table) error { return nil })
	require.ErrorIs(t, err, types.ErrNotFound)
}

func testDeleteTableCascade(t *testing.T, open Factory) {
	b := open(t)

	tbl := newTable("ws-1")
	require.NoError(t, b.InsertTable(tbl))
	rec := newRecord(tbl.TableID, 0)
	require.NoError(t, b.InsertRecord(rec))

	require.NoError(t, b.DeleteTable(tbl.TableID))

	_, err := b.GetRecord(rec.RecordID)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func testRecordLifecycle(t *testing.T, open Factory) {
	b := open(t)

	tbl := newTable("ws-1")
	require.NoError(t, b.InsertTable(tbl))

	rec := newRecord(tbl.TableID, 0)
	rec.Data = map[string]any{
		"title": "quarterly report",
		"done":  true,
		"score": float64(42.5),
		"tags":  []string{"a", "b"},
	}
	require.NoError(t, b.InsertRecord(rec))

	got, err := b.GetRecord(rec.RecordID)
	require.NoError(t, err)
	require.Equal(t, rec.RecordID, got.RecordID)
	require.Equal(t, rec.TableID, got.TableID)
	require.Equal(t, rec.Data, got.Data)
	require.Equal(t, int64(0), got.Version)

	orphan := newRecord(newID(), 0)
	require.ErrorIs(t, b.InsertRecord(orphan), types.ErrNotFound)

	require.NoError(t, b.DeleteRecord(rec.RecordID, nil))
	_, err = b.GetRecord(rec.RecordID)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func testListRecordsOrder(t *testing.T, open Factory) {
	b := open(t)

	tbl := newTable("ws-1")
	require.NoError(t, b.InsertTable(tbl))

	// Insert out of position order; list must sort by position.
	for _, pos := range []int64{2, 0, 1} {
		rec := newRecord(tbl.TableID, pos)
		require.NoError(t, b.InsertRecord(rec))
	}

	records, err := b.ListRecords(tbl.TableID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		require.Equal(t, int64(i), rec.Position)
	}

	_, err = b.ListRecords(newID())
	require.ErrorIs(t, err, types.ErrNotFound)
}

func testReplaceRecordVersion(t *testing.T, open Factory) {
	b := open(t)

	tbl := newTable("ws-1")
	require.NoError(t, b.InsertTable(tbl))
	rec := newRecord(tbl.TableID, 0)
	require.NoError(t, b.InsertRecord(rec))

	next := rec.Clone()
	next.Data["title"] = "updated"
	next.Version = 1
	next.UpdatedAt = time.Now().UTC()
	require.NoError(t, b.ReplaceRecord(next, 0))

	got, err := b.GetRecord(rec.RecordID)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Version)
	require.Equal(t, "updated", got.Data["title"])

	// The stored version moved on; the stale expectation loses.
	stale := rec.Clone()
	stale.Version = 1
	require.ErrorIs(t, b.ReplaceRecord(stale, 0), types.ErrVersionConflict)

	missing := newRecord(tbl.TableID, 1)
	require.ErrorIs(t, b.ReplaceRecord(missing, 0), types.ErrNotFound)
}

func testDeleteRecordVersion(t *testing.T, open Factory) {
	b := open(t)

	tbl := newTable("ws-1")
	require.NoError(t, b.InsertTable(tbl))
	rec := newRecord(tbl.TableID, 0)
	require.NoError(t, b.InsertRecord(rec))

	wrong := int64(7)
	require.ErrorIs(t, b.DeleteRecord(rec.RecordID, &wrong), types.ErrVersionConflict)

	right := int64(0)
	require.NoError(t, b.DeleteRecord(rec.RecordID, &right))
	require.ErrorIs(t, b.DeleteRecord(rec.RecordID, nil), types.ErrNotFound)
}

func testNextPosition(t *testing.T, open Factory) {
	b := open(t)

	tbl := newTable("ws-1")
	require.NoError(t, b.InsertTable(tbl))

	pos, err := b.NextPosition(tbl.TableID)
	require.NoError(t, err)
	require.Equal(t, int64(0), pos)

	require.NoError(t, b.InsertRecord(newRecord(tbl.TableID, 0)))
	require.NoError(t, b.InsertRecord(newRecord(tbl.TableID, 1)))

	pos, err = b.NextPosition(tbl.TableID)
	require.NoError(t, err)
	require.Equal(t, int64(2), pos)

	// Positions stay monotonic even after deleting the tail record.
	records, err := b.ListRecords(tbl.TableID)
	require.NoError(t, err)
	require.NoError(t, b.DeleteRecord(records[0].RecordID, nil))

	pos, err = b.NextPosition(tbl.TableID)
	require.NoError(t, err)
	require.Equal(t, int64(2), pos)

	_, err = b.NextPosition(newID())
	require.ErrorIs(t, err, types.ErrNotFound)
}

func testNotFound(t *testing.T, open Factory) {
	b := open(t)

	_, err := b.GetTable(newID())
	require.ErrorIs(t, err, types.ErrNotFound)
	require.ErrorIs(t, b.DeleteTable(newID()), types.ErrNotFound)

	_, err = b.GetRecord(newID())
	require.ErrorIs(t, err, types.ErrNotFound)
	require.ErrorIs(t, b.DeleteRecord(newID(), nil), types.ErrNotFound)
}
