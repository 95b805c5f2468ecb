package sqlite

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/astarworks/flextable/pkg/types"
)

// dbFileName is the SQLite database file created inside DataDir.
const dbFileName = "flextable.db"

// timeLayout is the storage format for timestamp columns.
const timeLayout = time.RFC3339Nano

// Backend implements types.Backend using a SQLite database file as the
// durable store. A process-wide RWMutex serializes schema mutations; record
// writes rely on SQL-level compare-and-swap for the version check.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
}

var _ types.Backend = (*Backend)(nil)

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach opens (or creates) the database under config.DataDir and applies
// the schema. Existing data is preserved across attachments.
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

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return types.Unavailable("creating data dir", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, dbFileName))
	if err != nil {
		return types.Unavailable("opening database", err)
	}

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return types.Unavailable("applying schema", err)
		}
	}

	b.db = db
	b.config = config
	b.attached = true
	return nil
}

// Detach closes the database. Idempotent. After Detach, operations return
// ErrDetached.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return types.Unavailable("closing database", err)
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

// ready reports whether the backend can serve a call. Callers hold b.mu.
func (b *Backend) ready() error {
	if !b.attached || b.db == nil {
		return types.ErrDetached
	}
	return nil
}
