package types

// Backend is the storage interface the schema and record stores are written
// against. Two interchangeable implementations exist: a durable SQLite
// backend and an in-memory backend; both satisfy the same contract test
// suite. Callers attach to a backend once at startup and detach when done.
//
// Implementations return deep copies from every read and store deep copies on
// every write, so callers never share mutable state through the backend.
type Backend interface {
	// Attach connects the backend using the given config. Creates the
	// DataDir if it does not exist. Returns ErrAlreadyAttached if called
	// while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls
	// succeed. After Detach, operations return ErrDetached.
	Detach() error

	// InsertTable stores a new table.
	InsertTable(t *Table) error

	// GetTable retrieves a table by ID. Returns ErrNotFound if no table
	// exists with that ID.
	GetTable(id string) (*Table, error)

	// ListTables returns all tables in a workspace ordered by creation
	// time. An empty workspace ID returns every table.
	ListTables(workspaceID string) ([]*Table, error)

	// MutateTable applies fn to a clone of the stored table and commits
	// the result as a single atomic replace. Schema mutations on the same
	// table are serialized: fn runs inside the backend's critical section,
	// and readers observe either the pre- or post-mutation schema, never a
	// partially applied one. An error from fn aborts the mutation and is
	// returned unchanged.
	MutateTable(id string, fn func(*Table) error) (*Table, error)

	// DeleteTable removes a table and every record it owns. Irreversible.
	// Returns ErrNotFound if the table does not exist.
	DeleteTable(id string) error

	// InsertRecord stores a new record.
	InsertRecord(r *Record) error

	// GetRecord retrieves a record by ID. Returns ErrNotFound if no record
	// exists with that ID.
	GetRecord(id string) (*Record, error)

	// ListRecords returns all records of a table ordered by position
	// ascending. Returns ErrNotFound if the table does not exist.
	ListRecords(tableID string) ([]*Record, error)

	// ReplaceRecord commits r only if the stored version still equals
	// expectedVersion. Returns ErrVersionConflict when another writer got
	// there first, ErrNotFound when the record no longer exists.
	ReplaceRecord(r *Record, expectedVersion int64) error

	// DeleteRecord removes a record. When expectedVersion is non-nil the
	// delete is subject to the same optimistic-concurrency check as
	// ReplaceRecord. Returns ErrNotFound if the record does not exist.
	DeleteRecord(id string, expectedVersion *int64) error

	// NextPosition returns the append position for a table: the current
	// maximum record position plus one, or zero for an empty table.
	NextPosition(tableID string) (int64, error)
}
