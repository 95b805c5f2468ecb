package types

import "time"

// Record is a row of data belonging to a table. Data keys are a subset of the
// owning table's property keys; every value conforms to its property's type
// contract. Position establishes a stable display order within the table.
// Version increments by one on each successful update and backs the
// optimistic-concurrency check.
type Record struct {
	RecordID  string         `json:"recordId"`
	TableID   string         `json:"tableId"`
	Data      map[string]any `json:"data"`
	Position  int64          `json:"position"`
	Version   int64          `json:"version"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	out := *r
	out.Data = CloneData(r.Data)
	return &out
}

// CloneData deep-copies a record data map.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}
