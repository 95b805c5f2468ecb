package engine

import "github.com/astarworks/flextable/pkg/types"

// BatchCreateItem is one entry of a batch create.
type BatchCreateItem struct {
	TableID string         `json:"tableId"`
	Data    map[string]any `json:"data"`
}

// BatchUpdateItem is one entry of a batch update.
type BatchUpdateItem struct {
	RecordID        string         `json:"recordId"`
	Data            map[string]any `json:"data"`
	ExpectedVersion int64          `json:"expectedVersion"`
}

// BatchResult is the outcome of one batch item. Exactly one of Record and
// Err is set; Record stays nil for deletes.
type BatchResult struct {
	Record *types.Record
	Err    error
}

// CreateBatch processes each item independently and returns per-item
// outcomes in request order. One item's failure never aborts the others:
// the callers are bulk edits that expect partial success to be visible.
func (s *RecordStore) CreateBatch(items []BatchCreateItem) []BatchResult {
	results := make([]BatchResult, len(items))
	for i, item := range items {
		rec, err := s.CreateRecord(item.TableID, item.Data)
		results[i] = BatchResult{Record: rec, Err: err}
	}
	s.logBatch("create", results)
	return results
}

// UpdateBatch processes each item independently; see CreateBatch.
func (s *RecordStore) UpdateBatch(items []BatchUpdateItem) []BatchResult {
	results := make([]BatchResult, len(items))
	for i, item := range items {
		rec, err := s.UpdateRecord(item.RecordID, item.Data, item.ExpectedVersion)
		results[i] = BatchResult{Record: rec, Err: err}
	}
	s.logBatch("update", results)
	return results
}

// DeleteBatch processes each ID independently; see CreateBatch.
func (s *RecordStore) DeleteBatch(ids []string) []BatchResult {
	results := make([]BatchResult, len(ids))
	for i, id := range ids {
		results[i] = BatchResult{Err: s.DeleteRecord(id, nil)}
	}
	s.logBatch("delete", results)
	return results
}

func (s *RecordStore) logBatch(op string, results []BatchResult) {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.log.Debug().Str("op", op).Int("items", len(results)).
		Int("failed", failed).Msg("batch processed")
}
