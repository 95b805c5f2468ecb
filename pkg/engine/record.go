package engine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/astarworks/flextable/pkg/types"
	"github.com/astarworks/flextable/pkg/validate"
)

// Page size defaults. The maximum is server-enforced; callers asking for
// more get clamped, not rejected.
const (
	DefaultPageSize    = 50
	DefaultPageSizeMax = 200
)

// PageLimits configures pagination defaults. Zero values fall back to the
// package defaults.
type PageLimits struct {
	Default int
	Max     int
}

// RecordStore owns record CRUD, batch mutation, pagination and filtering.
type RecordStore struct {
	backend  types.Backend
	log      zerolog.Logger
	pageSize int
	pageMax  int
}

// NewRecordStore creates a record store over the given backend.
func NewRecordStore(backend types.Backend, log zerolog.Logger, limits PageLimits) *RecordStore {
	if limits.Default <= 0 {
		limits.Default = DefaultPageSize
	}
	if limits.Max <= 0 {
		limits.Max = DefaultPageSizeMax
	}
	return &RecordStore{
		backend:  backend,
		log:      log,
		pageSize: limits.Default,
		pageMax:  limits.Max,
	}
}

// ListQuery parameterizes ListRecords. Page is 1-based; a zero PageSize uses
// the store default. Sorting defaults to position ascending.
type ListQuery struct {
	Page     int
	PageSize int
	Filters  []Filter
	Sort     *SortSpec
}

// RecordPage is one page of a filtered record listing. TotalCount counts all
// records matching the filters, not just this page.
type RecordPage struct {
	Records    []*types.Record `json:"records"`
	TotalCount int             `json:"totalCount"`
	TableID    string          `json:"tableId"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
}

// ListRecords returns a page of the table's records after filtering and
// sorting. Filter keys must resolve to filterable properties.
func (s *RecordStore) ListRecords(tableID string, q ListQuery) (*RecordPage, error) {
	if tableID == "" {
		return nil, types.ErrInvalidID
	}
	tbl, err := s.backend.GetTable(tableID)
	if err != nil {
		return nil, err
	}

	filters, err := compileFilters(tbl, q.Filters)
	if err != nil {
		return nil, err
	}
	sortSpec, err := compileSort(tbl, q.Sort)
	if err != nil {
		return nil, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size <= 0 {
		size = s.pageSize
	}
	if size > s.pageMax {
		size = s.pageMax
	}

	all, err := s.backend.ListRecords(tableID)
	if err != nil {
		return nil, err
	}

	matched := all[:0]
	for _, rec := range all {
		ok := true
		for _, f := range filters {
			if !f.match(rec) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, rec)
		}
	}

	sortRecords(tbl, matched, sortSpec)

	total := len(matched)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	return &RecordPage{
		Records:    append([]*types.Record{}, matched[start:end]...),
		TotalCount: total,
		TableID:    tableID,
		Page:       page,
		PageSize:   size,
	}, nil
}

// GetRecord retrieves a record by ID.
func (s *RecordStore) GetRecord(id string) (*types.Record, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	return s.backend.GetRecord(id)
}

// CreateRecord validates data against the table's current schema and appends
// the record at the end of the table's position order with version 0.
// Properties carrying a default value fill in absent keys before validation.
func (s *RecordStore) CreateRecord(tableID string, data map[string]any) (*types.Record, error) {
	if tableID == "" {
		return nil, types.ErrInvalidID
	}
	tbl, err := s.backend.GetTable(tableID)
	if err != nil {
		return nil, err
	}

	withDefaults := types.CloneData(data)
	if withDefaults == nil {
		withDefaults = map[string]any{}
	}
	for key, def := range tbl.Properties {
		if def.DefaultValue == nil {
			continue
		}
		if _, present := withDefaults[key]; !present {
			withDefaults[key] = def.Clone().DefaultValue
		}
	}

	norm, err := validate.Conform(tbl, withDefaults, validate.Full)
	if err != nil {
		return nil, err
	}

	pos, err := s.backend.NextPosition(tableID)
	if err != nil {
		return nil, fmt.Errorf("assigning record position: %w", err)
	}

	now := time.Now().UTC()
	rec := &types.Record{
		RecordID:  newUUID(),
		TableID:   tableID,
		Data:      norm,
		Position:  pos,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.backend.InsertRecord(rec); err != nil {
		return nil, fmt.Errorf("creating record: %w", err)
	}
	return rec, nil
}

// UpdateRecord applies a partial data update: only provided keys change, and
// an explicit null unsets a key. The merged result is re-validated against
// the table's current schema. The write commits only if expectedVersion
// still matches the stored version; otherwise ErrVersionConflict is returned
// and nothing is applied. Retry is the caller's call — only the caller knows
// how to re-merge.
func (s *RecordStore) UpdateRecord(id string, data map[string]any, expectedVersion int64) (*types.Record, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	existing, err := s.backend.GetRecord(id)
	if err != nil {
		return nil, err
	}
	if existing.Version != expectedVersion {
		return nil, types.ErrVersionConflict
	}

	tbl, err := s.backend.GetTable(existing.TableID)
	if err != nil {
		return nil, err
	}

	merged := types.CloneData(existing.Data)
	if merged == nil {
		merged = map[string]any{}
	}
	for key, v := range data {
		if v == nil {
			if def, ok := tbl.Properties[key]; ok && !def.Required {
				delete(merged, key)
				continue
			}
		}
		merged[key] = v
	}

	norm, err := validate.Conform(tbl, merged, validate.Full)
	if err != nil {
		return nil, err
	}

	updated := existing.Clone()
	updated.Data = norm
	updated.Version = expectedVersion + 1
	updated.UpdatedAt = time.Now().UTC()

	if err := s.backend.ReplaceRecord(updated, expectedVersion); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteRecord removes a record. A non-nil expectedVersion makes the delete
// subject to the optimistic-concurrency check.
func (s *RecordStore) DeleteRecord(id string, expectedVersion *int64) error {
	if id == "" {
		return types.ErrInvalidID
	}
	return s.backend.DeleteRecord(id, expectedVersion)
}
