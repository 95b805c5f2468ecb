package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astarworks/flextable/internal/backendtest"
	"github.com/astarworks/flextable/pkg/types"
)

func openBackend(t *testing.T) types.Backend {
	b := NewBackend()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}
	require.NoError(t, b.Attach(cfg))
	t.Cleanup(func() { _ = b.Detach() })
	return b
}

func TestBackendContract(t *testing.T) {
	backendtest.Run(t, openBackend)
}

func TestAttachCreatesDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	defer b.Detach()

	_, err := os.Stat(filepath.Join(dir, dbFileName))
	require.NoError(t, err)
}

func TestAttachLifecycle(t *testing.T) {
	dir := t.TempDir()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b := NewBackend()
	require.NoError(t, b.Attach(cfg))
	require.ErrorIs(t, b.Attach(cfg), types.ErrAlreadyAttached)
	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "detach must be idempotent")

	_, err := b.GetTable("any")
	require.ErrorIs(t, err, types.ErrDetached)
}

func TestDataSurvivesReattach(t *testing.T) {
	dir := t.TempDir()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b := NewBackend()
	require.NoError(t, b.Attach(cfg))

	tbl := &types.Table{
		TableID:     "tbl-1",
		WorkspaceID: "ws-1",
		Name:        "Persistent",
		Properties: map[string]types.PropertyDefinition{
			"title": {Key: "title", Type: types.TypeText},
		},
		PropertyOrder: []string{"title"},
	}
	require.NoError(t, b.InsertTable(tbl))
	require.NoError(t, b.Detach())

	b2 := NewBackend()
	require.NoError(t, b2.Attach(cfg))
	defer b2.Detach()

	got, err := b2.GetTable("tbl-1")
	require.NoError(t, err)
	require.Equal(t, "Persistent", got.Name)
	require.Equal(t, []string{"title"}, got.PropertyOrder)
}
