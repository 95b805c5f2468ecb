package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/astarworks/flextable/pkg/types"
)

const selectTableColumns = `SELECT table_id, workspace_id, name, description,
    properties, property_order, created_at, updated_at FROM tables`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// InsertTable stores a new table.
func (b *Backend) InsertTable(t *types.Table) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ready(); err != nil {
		return err
	}

	propsJSON, orderJSON, err := marshalSchema(t)
	if err != nil {
		return err
	}
	_, err = b.db.Exec(
		`INSERT INTO tables (table_id, workspace_id, name, description, properties, property_order, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TableID, t.WorkspaceID, t.Name, t.Description,
		propsJSON, orderJSON,
		t.CreatedAt.Format(timeLayout), t.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return types.Unavailable("inserting table", err)
	}
	return nil
}

// GetTable retrieves a table by ID.
// Returns ErrNotFound if no table exists with that ID.
func (b *Backend) GetTable(id string) (*types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.ready(); err != nil {
		return nil, err
	}

	row := b.db.QueryRow(selectTableColumns+` WHERE table_id = ?`, id)
	return hydrateTable(row)
}

// ListTables returns tables of a workspace ordered by creation time.
// An empty workspace ID returns every table.
func (b *Backend) ListTables(workspaceID string) ([]*types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.ready(); err != nil {
		return nil, err
	}

	query := selectTableColumns
	var args []any
	if workspaceID != "" {
		query += ` WHERE workspace_id = ?`
		args = append(args, workspaceID)
	}
	// table_id breaks created_at ties; UUID v7 keys preserve insert order.
	query += ` ORDER BY created_at ASC, table_id ASC`

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, types.Unavailable("listing tables", err)
	}
	defer rows.Close()

	out := make([]*types.Table, 0)
	for rows.Next() {
		t, err := hydrateTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, types.Unavailable("iterating tables", err)
	}
	return out, nil
}

// MutateTable runs fn on the stored table inside a transaction and commits
// the result as a single replace. Schema mutations are serialized by the
// backend mutex; readers observe either the old or the new schema.
func (b *Backend) MutateTable(id string, fn func(*types.Table) error) (*types.Table, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ready(); err != nil {
		return nil, err
	}

	tx, err := b.db.Begin()
	if err != nil {
		return nil, types.Unavailable("beginning transaction", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(selectTableColumns+` WHERE table_id = ?`, id)
	tbl, err := hydrateTable(row)
	if err != nil {
		return nil, err
	}

	if err := fn(tbl); err != nil {
		return nil, err
	}
	tbl.UpdatedAt = time.Now().UTC()

	propsJSON, orderJSON, err := marshalSchema(tbl)
	if err != nil {
		return nil, err
	}
	_, err = tx.Exec(
		`UPDATE tables SET workspace_id = ?, name = ?, description = ?, properties = ?, property_order = ?, updated_at = ?
         WHERE table_id = ?`,
		tbl.WorkspaceID, tbl.Name, tbl.Description,
		propsJSON, orderJSON, tbl.UpdatedAt.Format(timeLayout), id,
	)
	if err != nil {
		return nil, types.Unavailable("updating table", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, types.Unavailable("committing table update", err)
	}
	return tbl, nil
}

// DeleteTable removes a table and every record it owns. Irreversible.
func (b *Backend) DeleteTable(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ready(); err != nil {
		return err
	}

	tx, err := b.db.Begin()
	if err != nil {
		return types.Unavailable("beginning transaction", err)
	}
	defer tx.Rollback()

	// Records first: the FK references tables.
	if _, err := tx.Exec(`DELETE FROM records WHERE table_id = ?`, id); err != nil {
		return types.Unavailable("deleting table records", err)
	}
	res, err := tx.Exec(`DELETE FROM tables WHERE table_id = ?`, id)
	if err != nil {
		return types.Unavailable("deleting table", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return types.Unavailable("deleting table", err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return commit(tx, "table deletion")
}

// commit commits tx, wrapping failures as backend unavailability.
func commit(tx *sql.Tx, what string) error {
	if err := tx.Commit(); err != nil {
		return types.Unavailable("committing "+what, err)
	}
	return nil
}

// marshalSchema serializes the properties map and order list for storage.
func marshalSchema(t *types.Table) (propsJSON, orderJSON string, err error) {
	props, err := json.Marshal(t.Properties)
	if err != nil {
		return "", "", fmt.Errorf("marshaling properties: %w", err)
	}
	order, err := json.Marshal(t.PropertyOrder)
	if err != nil {
		return "", "", fmt.Errorf("marshaling property order: %w", err)
	}
	return string(props), string(order), nil
}

// hydrateTable converts a SQLite row into a *types.Table.
func hydrateTable(row rowScanner) (*types.Table, error) {
	var t types.Table
	var propsJSON, orderJSON, createdAt, updatedAt string
	err := row.Scan(&t.TableID, &t.WorkspaceID, &t.Name, &t.Description,
		&propsJSON, &orderJSON, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, types.Unavailable("scanning table", err)
	}
	if err := json.Unmarshal([]byte(propsJSON), &t.Properties); err != nil {
		return nil, fmt.Errorf("parsing table properties: %w", err)
	}
	if err := json.Unmarshal([]byte(orderJSON), &t.PropertyOrder); err != nil {
		return nil, fmt.Errorf("parsing property order: %w", err)
	}
	if t.Properties == nil {
		t.Properties = make(map[string]types.PropertyDefinition)
	}
	if t.PropertyOrder == nil {
		t.PropertyOrder = []string{}
	}
	for key, def := range t.Properties {
		def.DefaultValue = canonicalValue(def.DefaultValue)
		t.Properties[key] = def
	}
	t.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing table created_at: %w", err)
	}
	t.UpdatedAt, err = time.Parse(timeLayout, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing table updated_at: %w", err)
	}
	return &t, nil
}
