// Package memory provides the public API for the in-memory storage backend.
// The in-memory backend is interchangeable with the SQLite one and is the
// usual choice for tests and ephemeral deployments.
package memory

import (
	"github.com/astarworks/flextable/internal/memory"
	"github.com/astarworks/flextable/pkg/types"
)

// NewBackend creates a new in-memory backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() types.Backend {
	return memory.NewBackend()
}
