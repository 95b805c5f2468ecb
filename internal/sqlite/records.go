package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/astarworks/flextable/pkg/types"
)

const selectRecordColumns = `SELECT record_id, table_id, data, position,
    version, created_at, updated_at FROM records`

// InsertRecord stores a new record. Returns ErrNotFound when the owning
// table does not exist.
func (b *Backend) InsertRecord(r *types.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ready(); err != nil {
		return err
	}
	if err := b.tableExists(r.TableID); err != nil {
		return err
	}

	dataJSON, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Errorf("marshaling record data: %w", err)
	}
	_, err = b.db.Exec(
		`INSERT INTO records (record_id, table_id, data, position, version, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RecordID, r.TableID, string(dataJSON), r.Position, r.Version,
		r.CreatedAt.Format(timeLayout), r.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return types.Unavailable("inserting record", err)
	}
	return nil
}

// GetRecord retrieves a record by ID.
func (b *Backend) GetRecord(id string) (*types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.ready(); err != nil {
		return nil, err
	}

	row := b.db.QueryRow(selectRecordColumns+` WHERE record_id = ?`, id)
	return hydrateRecord(row)
}

// ListRecords returns all records of a table ordered by position ascending.
func (b *Backend) ListRecords(tableID string) ([]*types.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.ready(); err != nil {
		return nil, err
	}
	if err := b.tableExists(tableID); err != nil {
		return nil, err
	}

	rows, err := b.db.Query(
		selectRecordColumns+` WHERE table_id = ? ORDER BY position ASC, created_at ASC, record_id ASC`,
		tableID,
	)
	if err != nil {
		return nil, types.Unavailable("listing records", err)
	}
	defer rows.Close()

	out := make([]*types.Record, 0)
	for rows.Next() {
		r, err := hydrateRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, types.Unavailable("iterating records", err)
	}
	return out, nil
}

// ReplaceRecord commits r only if the stored version equals expectedVersion.
// The check and the write are one UPDATE, so concurrent replacers race on the
// version predicate and exactly one wins.
func (b *Backend) ReplaceRecord(r *types.Record, expectedVersion int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ready(); err != nil {
		return err
	}

	dataJSON, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Errorf("marshaling record data: %w", err)
	}
	res, err := b.db.Exec(
		`UPDATE records SET data = ?, position = ?, version = ?, updated_at = ?
         WHERE record_id = ? AND version = ?`,
		string(dataJSON), r.Position, r.Version, r.UpdatedAt.Format(timeLayout),
		r.RecordID, expectedVersion,
	)
	if err != nil {
		return types.Unavailable("replacing record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return types.Unavailable("replacing record", err)
	}
	if n == 0 {
		return b.recordMissOrConflict(r.RecordID)
	}
	return nil
}

// DeleteRecord removes a record, optionally guarded by a version check.
func (b *Backend) DeleteRecord(id string, expectedVersion *int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ready(); err != nil {
		return err
	}

	query := `DELETE FROM records WHERE record_id = ?`
	args := []any{id}
	if expectedVersion != nil {
		query += ` AND version = ?`
		args = append(args, *expectedVersion)
	}
	res, err := b.db.Exec(query, args...)
	if err != nil {
		return types.Unavailable("deleting record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return types.Unavailable("deleting record", err)
	}
	if n == 0 {
		if expectedVersion == nil {
			return types.ErrNotFound
		}
		return b.recordMissOrConflict(id)
	}
	return nil
}

// NextPosition returns max(position)+1 for the table, or zero when empty.
func (b *Backend) NextPosition(tableID string) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.ready(); err != nil {
		return 0, err
	}
	if err := b.tableExists(tableID); err != nil {
		return 0, err
	}

	var next int64
	err := b.db.QueryRow(
		`SELECT COALESCE(MAX(position) + 1, 0) FROM records WHERE table_id = ?`,
		tableID,
	).Scan(&next)
	if err != nil {
		return 0, types.Unavailable("computing next position", err)
	}
	return next, nil
}

// tableExists probes the tables table. Callers hold b.mu.
func (b *Backend) tableExists(tableID string) error {
	var one int
	err := b.db.QueryRow(`SELECT 1 FROM tables WHERE table_id = ?`, tableID).Scan(&one)
	if err == sql.ErrNoRows {
		return types.ErrNotFound
	}
	if err != nil {
		return types.Unavailable("checking table existence", err)
	}
	return nil
}

// recordMissOrConflict distinguishes a missing record from a version
// mismatch after a guarded write touched zero rows.
func (b *Backend) recordMissOrConflict(id string) error {
	var one int
	err := b.db.QueryRow(`SELECT 1 FROM records WHERE record_id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return types.ErrNotFound
	}
	if err != nil {
		return types.Unavailable("checking record existence", err)
	}
	return types.ErrVersionConflict
}

// hydrateRecord converts a SQLite row into a *types.Record.
func hydrateRecord(row rowScanner) (*types.Record, error) {
	var r types.Record
	var dataJSON, createdAt, updatedAt string
	err := row.Scan(&r.RecordID, &r.TableID, &dataJSON, &r.Position,
		&r.Version, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, types.Unavailable("scanning record", err)
	}
	if err := json.Unmarshal([]byte(dataJSON), &r.Data); err != nil {
		return nil, fmt.Errorf("parsing record data: %w", err)
	}
	if r.Data == nil {
		r.Data = make(map[string]any)
	}
	for key, v := range r.Data {
		r.Data[key] = canonicalValue(v)
	}
	r.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing record created_at: %w", err)
	}
	r.UpdatedAt, err = time.Parse(timeLayout, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing record updated_at: %w", err)
	}
	return &r, nil
}

// canonicalValue restores the normalized value shapes after a JSON round
// trip: lists decode as []any but the engine stores them as []string.
func canonicalValue(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]string, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return v
		}
		out[i] = s
	}
	return out
}
