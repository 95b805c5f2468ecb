package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astarworks/flextable/internal/backendtest"
	"github.com/astarworks/flextable/pkg/types"
)

func openBackend(t *testing.T) types.Backend {
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendMemory}))
	t.Cleanup(func() { _ = b.Detach() })
	return b
}

func TestBackendContract(t *testing.T) {
	backendtest.Run(t, openBackend)
}

func TestAttachLifecycle(t *testing.T) {
	b := NewBackend()
	cfg := types.Config{Backend: types.BackendMemory}

	require.NoError(t, b.Attach(cfg))
	require.ErrorIs(t, b.Attach(cfg), types.ErrAlreadyAttached)

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "detach must be idempotent")

	_, err := b.GetTable("any")
	require.ErrorIs(t, err, types.ErrDetached)

	// Reattach starts from a clean slate.
	require.NoError(t, b.Attach(cfg))
	tables, err := b.ListTables("")
	require.NoError(t, err)
	require.Empty(t, tables)
	require.NoError(t, b.Detach())
}

func TestAttachRejectsBadConfig(t *testing.T) {
	b := NewBackend()
	require.ErrorIs(t, b.Attach(types.Config{}), types.ErrBackendEmpty)
	require.ErrorIs(t, b.Attach(types.Config{Backend: "papyrus"}), types.ErrBackendUnknown)
}
