// Package sqlite implements the durable SQLite storage backend for the
// flextable engine.
package sqlite

// Schema DDL. Property definitions, their order, and record data are stored
// as JSON in TEXT columns; timestamps as RFC 3339 strings.
const (
	createTables = `CREATE TABLE IF NOT EXISTS tables (
    table_id TEXT PRIMARY KEY,
    workspace_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    properties TEXT NOT NULL,
    property_order TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createRecords = `CREATE TABLE IF NOT EXISTS records (
    record_id TEXT PRIMARY KEY,
    table_id TEXT NOT NULL,
    data TEXT NOT NULL,
    position INTEGER NOT NULL,
    version INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (table_id) REFERENCES tables(table_id)
);`
)

// Index DDL for common queries.
const (
	idxTablesWorkspace      = `CREATE INDEX IF NOT EXISTS idx_tables_workspace ON tables(workspace_id);`
	idxRecordsTable         = `CREATE INDEX IF NOT EXISTS idx_records_table ON records(table_id);`
	idxRecordsTablePosition = `CREATE INDEX IF NOT EXISTS idx_records_table_position ON records(table_id, position);`
)

// schemaDDL lists all CREATE statements in dependency order.
var schemaDDL = []string{
	createTables,
	createRecords,
	idxTablesWorkspace,
	idxRecordsTable,
	idxRecordsTablePosition,
}
