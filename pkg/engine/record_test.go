package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astarworks/flextable/pkg/types"
)

func seedTable(t *testing.T, schemas *SchemaStore) *types.Table {
	t.Helper()
	tbl, err := schemas.CreateTable("ws-1", "Tasks", "", []types.PropertyDefinition{
		{Key: "title", Type: types.TypeText, Required: true},
		{Key: "status", Type: types.TypeSelect, DefaultValue: "todo",
			Config: types.PropertyConfig{Options: []string{"todo", "done"}}},
		{Key: "estimate", Type: types.TypeNumber},
		{Key: "tags", Type: types.TypeMultiSelect,
			Config: types.PropertyConfig{Options: []string{"red", "green", "blue"}}},
	})
	require.NoError(t, err)
	return tbl
}

func TestCreateRecord(t *testing.T) {
	schemas, records := newStores(t)
	tbl := seedTable(t, schemas)

	rec, err := records.CreateRecord(tbl.TableID, map[string]any{
		"title": "first", "estimate": 3, "tags": []any{"red", "blue"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), rec.Position)
	require.Equal(t, int64(0), rec.Version)
	require.Equal(t, "todo", rec.Data["status"], "default fills the absent key")
	require.Equal(t, float64(3), rec.Data["estimate"], "numbers normalize to float64")
	require.Equal(t, []string{"red", "blue"}, rec.Data["tags"], "lists normalize to []string")

	second, err := records.CreateRecord(tbl.TableID, map[string]any{"title": "second"})
	require.NoError(t, err)
	require.Equal(t, int64(1), second.Position, "positions append at the end")

	_, err = records.CreateRecord("missing-table", map[string]any{"title": "x"})
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestCreateRecordCollectsAllErrors(t *testing.T) {
	schemas, records := newStores(t)
	tbl := seedTable(t, schemas)

	_, err := records.CreateRecord(tbl.TableID, map[string]any{
		"ghost":    "x",        // unknown key
		"estimate": "a lot",    // wrong shape
		"tags":     []any{"x"}, // not in options
		// title missing (required)
	})
	require.Error(t, err)
	ve, ok := types.AsValidation(err)
	require.True(t, ok)
	require.Len(t, ve.Fields, 4)

	page, err := records.ListRecords(tbl.TableID, ListQuery{})
	require.NoError(t, err)
	require.Zero(t, page.TotalCount, "failed validation mutates nothing")
}

func TestUpdateRecordVersioning(t *testing.T) {
	schemas, records := newStores(t)
	tbl := seedTable(t, schemas)

	rec, err := records.CreateRecord(tbl.TableID, map[string]any{"title": "v"})
	require.NoError(t, err)

	// Versions move up by exactly one per successful update.
	for i := int64(0); i < 3; i++ {
		updated, err := records.UpdateRecord(rec.RecordID, map[string]any{"estimate": i}, i)
		require.NoError(t, err)
		require.Equal(t, i+1, updated.Version)
	}

	_, err = records.UpdateRecord(rec.RecordID, map[string]any{"estimate": 99}, 0)
	require.ErrorIs(t, err, types.ErrVersionConflict)

	current, err := records.GetRecord(rec.RecordID)
	require.NoError(t, err)
	require.Equal(t, int64(3), current.Version)
	require.Equal(t, float64(2), current.Data["estimate"], "failed update mutates nothing")
}

func TestUpdateRecordMergeAndUnset(t *testing.T) {
	schemas, records := newStores(t)
	tbl := seedTable(t, schemas)

	rec, err := records.CreateRecord(tbl.TableID, map[string]any{
		"title": "keep me", "estimate": 5,
	})
	require.NoError(t, err)

	// Partial payload: untouched keys survive, null unsets an optional key.
	updated, err := records.UpdateRecord(rec.RecordID, map[string]any{
		"status":   "done",
		"estimate": nil,
	}, 0)
	require.NoError(t, err)
	require.Equal(t, "keep me", updated.Data["title"])
	require.Equal(t, "done", updated.Data["status"])
	require.NotContains(t, updated.Data, "estimate")

	// Null on a required key fails.
	_, err = records.UpdateRecord(rec.RecordID, map[string]any{"title": nil}, 1)
	_, ok := types.AsValidation(err)
	require.True(t, ok)
}

func TestConcurrentUpdatesOneWinner(t *testing.T) {
	schemas, records := newStores(t)
	tbl := seedTable(t, schemas)

	rec, err := records.CreateRecord(tbl.TableID, map[string]any{"title": "contested"})
	require.NoError(t, err)

	const writers = 8
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = records.UpdateRecord(rec.RecordID,
				map[string]any{"estimate": i}, 0)
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			require.ErrorIs(t, err, types.ErrVersionConflict)
		}
	}
	require.Equal(t, 1, won, "exactly one writer commits from the same base version")

	current, err := records.GetRecord(rec.RecordID)
	require.NoError(t, err)
	require.Equal(t, int64(1), current.Version)
}

func TestDeleteRecord(t *testing.T) {
	schemas, records := newStores(t)
	tbl := seedTable(t, schemas)

	rec, err := records.CreateRecord(tbl.TableID, map[string]any{"title": "bye"})
	require.NoError(t, err)

	stale := int64(5)
	require.ErrorIs(t, records.DeleteRecord(rec.RecordID, &stale), types.ErrVersionConflict)
	require.NoError(t, records.DeleteRecord(rec.RecordID, nil))
	require.ErrorIs(t, records.DeleteRecord(rec.RecordID, nil), types.ErrNotFound)
}

func TestListRecordsPagination(t *testing.T) {
	schemas, records := newStores(t)
	tbl := seedTable(t, schemas)

	for i := 0; i < 7; i++ {
		_, err := records.CreateRecord(tbl.TableID, map[string]any{"title": "t"})
		require.NoError(t, err)
	}

	page, err := records.ListRecords(tbl.TableID, ListQuery{Page: 2, PageSize: 3})
	require.NoError(t, err)
	require.Equal(t, 7, page.TotalCount)
	require.Len(t, page.Records, 3)
	require.Equal(t, int64(3), page.Records[0].Position)

	last, err := records.ListRecords(tbl.TableID, ListQuery{Page: 3, PageSize: 3})
	require.NoError(t, err)
	require.Len(t, last.Records, 1)

	beyond, err := records.ListRecords(tbl.TableID, ListQuery{Page: 9, PageSize: 3})
	require.NoError(t, err)
	require.Empty(t, beyond.Records)
	require.Equal(t, 7, beyond.TotalCount)
}

func TestListRecordsPageSizeClamp(t *testing.T) {
	schemas, records := newStores(t)
	tbl := seedTable(t, schemas)
	_, err := records.CreateRecord(tbl.TableID, map[string]any{"title": "t"})
	require.NoError(t, err)

	page, err := records.ListRecords(tbl.TableID, ListQuery{PageSize: 100000})
	require.NoError(t, err)
	require.Equal(t, DefaultPageSizeMax, page.PageSize, "requested size clamps to the server max")

	page, err = records.ListRecords(tbl.TableID, ListQuery{})
	require.NoError(t, err)
	require.Equal(t, DefaultPageSize, page.PageSize)
}

func TestBatchOperations(t *testing.T) {
	schemas, records := newStores(t)
	tbl := seedTable(t, schemas)

	creates := records.CreateBatch([]BatchCreateItem{
		{TableID: tbl.TableID, Data: map[string]any{"title": "one"}},
		{TableID: tbl.TableID, Data: map[string]any{"estimate": 1}}, // missing title
		{TableID: tbl.TableID, Data: map[string]any{"title": "three"}},
	})
	require.Len(t, creates, 3)
	require.NoError(t, creates[0].Err)
	require.Error(t, creates[1].Err)
	require.NoError(t, creates[2].Err)

	updates := records.UpdateBatch([]BatchUpdateItem{
		{RecordID: creates[0].Record.RecordID, Data: map[string]any{"status": "done"}, ExpectedVersion: 0},
		{RecordID: "missing", Data: map[string]any{"status": "done"}, ExpectedVersion: 0},
		{RecordID: creates[2].Record.RecordID, Data: map[string]any{"status": "done"}, ExpectedVersion: 7},
	})
	require.NoError(t, updates[0].Err)
	require.ErrorIs(t, updates[1].Err, types.ErrNotFound)
	require.ErrorIs(t, updates[2].Err, types.ErrVersionConflict)

	deletes := records.DeleteBatch([]string{
		creates[0].Record.RecordID,
		"missing",
	})
	require.NoError(t, deletes[0].Err)
	require.ErrorIs(t, deletes[1].Err, types.ErrNotFound)

	// Partial success is visible: one record remains.
	page, err := records.ListRecords(tbl.TableID, ListQuery{})
	require.NoError(t, err)
	require.Equal(t, 1, page.TotalCount)
}
