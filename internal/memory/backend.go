// Package memory implements the in-memory storage backend. It exists for
// tests and ephemeral deployments and satisfies the exact same contract as
// the SQLite backend; both run against the shared backend test suite.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/astarworks/flextable/pkg/types"
)

// nowUTC returns the current time in UTC, the timezone all stored
// timestamps use.
func nowUTC() time.Time { return time.Now().UTC() }

// Backend implements types.Backend over mutex-guarded maps. Every read
// returns a deep copy and every write stores a deep copy, so callers never
// share state with the backend.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config

	tables  map[string]*types.Table
	records map[string]*types.Record
	byTable map[string]map[string]bool // tableID -> record ID set
}

var _ types.Backend = (*Backend)(nil)

// NewBackend creates a new in-memory backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach initializes the backend state.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	b.config = config
	b.tables = make(map[string]*types.Table)
	b.records = make(map[string]*types.Record)
	b.byTable = make(map[string]map[string]bool)
	b.attached = true
	return nil
}

// Detach drops all state. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.attached = false
	b.tables = nil
	b.records = nil
	b.byTable = nil
	return nil
}

// InsertTable stores a new table.
func (b *Backend) InsertTable(t *types.Table) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}
	b.tables[t.TableID] = t.Clone()
	if b.byTable[t.TableID] == nil {
		b.byTable[t.TableID] = make(map[string]bool)
	}
	return nil
}

// GetTable retrieves a table by ID.
func (b *Backend) GetTable(id string) (*types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrDetached
	}
	t, ok := b.tables[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return t.Clone(), nil
}

// ListTables returns tables of a workspace ordered by creation time.
func (b *Backend) ListTables(workspaceID string) ([]*types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrDetached
	}
	out := make([]*types.Table, 0)
	for _, t := range b.tables {
		if workspaceID == "" || t.WorkspaceID == workspaceID {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].TableID < out[j].TableID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// MutateTable runs fn on a clone of the stored table under the write lock
// and commits the clone as a single replace. Concurrent readers observe
// either the old or the new schema, never a half-applied one.
func (b *Backend) MutateTable(id string, fn func(*types.Table) error) (*types.Table, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil, types.ErrDetached
	}
	stored, ok := b.tables[id]
	if !ok {
		return nil, types.ErrNotFound
	}

	candidate := stored.Clone()
	if err := fn(candidate); err != nil {
		return nil, err
	}
	candidate.UpdatedAt = nowUTC()
	b.tables[id] = candidate
	return candidate.Clone(), nil
}

// DeleteTable removes a table and every record it owns.
func (b *Backend) DeleteTable(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}
	if _, ok := b.tables[id]; !ok {
		return types.ErrNotFound
	}
	for recID := range b.byTable[id] {
		delete(b.records, recID)
	}
	delete(b.byTable, id)
	delete(b.tables, id)
	return nil
}

// InsertRecord stores a new record.
func (b *Backend) InsertRecord(r *types.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}
	if _, ok := b.tables[r.TableID]; !ok {
		return types.ErrNotFound
	}
	b.records[r.RecordID] = r.Clone()
	if b.byTable[r.TableID] == nil {
		b.byTable[r.TableID] = make(map[string]bool)
	}
	b.byTable[r.TableID][r.RecordID] = true
	return nil
}

// GetRecord retrieves a record by ID.
func (b *Backend) GetRecord(id string) (*types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrDetached
	}
	r, ok := b.records[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return r.Clone(), nil
}

// ListRecords returns all records of a table ordered by position ascending.
func (b *Backend) ListRecords(tableID string) ([]*types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrDetached
	}
	if _, ok := b.tables[tableID]; !ok {
		return nil, types.ErrNotFound
	}
	out := make([]*types.Record, 0, len(b.byTable[tableID]))
	for recID := range b.byTable[tableID] {
		out = append(out, b.records[recID].Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position == out[j].Position {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

// ReplaceRecord commits r only if the stored version equals expectedVersion.
func (b *Backend) ReplaceRecord(r *types.Record, expectedVersion int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}
	stored, ok := b.records[r.RecordID]
	if !ok {
		return types.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return types.ErrVersionConflict
	}
	b.records[r.RecordID] = r.Clone()
	return nil
}

// DeleteRecord removes a record, optionally guarded by a version check.
func (b *Backend) DeleteRecord(id string, expectedVersion *int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrDetached
	}
	stored, ok := b.records[id]
	if !ok {
		return types.ErrNotFound
	}
	if expectedVersion != nil && stored.Version != *expectedVersion {
		return types.ErrVersionConflict
	}
	delete(b.byTable[stored.TableID], id)
	delete(b.records, id)
	return nil
}

// NextPosition returns max(position)+1 for the table, or zero when empty.
func (b *Backend) NextPosition(tableID string) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return 0, types.ErrDetached
	}
	if _, ok := b.tables[tableID]; !ok {
		return 0, types.ErrNotFound
	}
	next := int64(0)
	for recID := range b.byTable[tableID] {
		if p := b.records[recID].Position; p >= next {
			next = p + 1
		}
	}
	return next, nil
}
