package repository

import (
	"os"
	"path/filepath"
	"testing"

	"stock-dashboard/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLegacyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legacy_state.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLegacyStoreMissingFile(t *testing.T) {
	store := NewLegacyStore(filepath.Join(t.TempDir(), "absent.json"))

	codes, ok, err := store.Favorites()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, codes)

	tabs, ok, err := store.Tabs()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, tabs)

	assert.NoError(t, store.DeleteKey(common.LegacyKeyFavorites))
}

func TestLegacyStoreReadsBothKeys(t *testing.T) {
	path := writeLegacyFile(t, `{
		"stock_favorites": ["600000", "000001"],
		"stock_tabs": [{"id": "import_1", "name": "seed", "stocks": [{"c": "600000", "n": "PuFa", "p": "7.5", "i": "Bank", "a": ["中金公司"]}]}]
	}`)
	store := NewLegacyStore(path)

	codes, ok, err := store.Favorites()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"600000", "000001"}, codes)

	tabs, ok, err := store.Tabs()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, tabs, 1)
	assert.Equal(t, "import_1", tabs[0].ID)
	require.Len(t, tabs[0].Stocks, 1)
	assert.Equal(t, "PuFa", tabs[0].Stocks[0].Name)
	assert.Equal(t, []string{"中金公司"}, tabs[0].Stocks[0].Agencies)
}

func TestLegacyStoreDeleteKeyKeepsOthers(t *testing.T) {
	path := writeLegacyFile(t, `{"stock_favorites": ["600000"], "stock_tabs": []}`)
	store := NewLegacyStore(path)

	require.NoError(t, store.DeleteKey(common.LegacyKeyFavorites))

	_, ok, err := store.Favorites()
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.Tabs()
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = os.Stat(path)
	assert.NoError(t, err, "file must survive while keys remain")
}

func TestLegacyStoreDeleteLastKeyRemovesFile(t *testing.T) {
	path := writeLegacyFile(t, `{"stock_favorites": ["600000"]}`)
	store := NewLegacyStore(path)

	require.NoError(t, store.DeleteKey(common.LegacyKeyFavorites))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Deleting again is a no-op.
	assert.NoError(t, store.DeleteKey(common.LegacyKeyFavorites))
}

func TestLegacyStoreCorruptFile(t *testing.T) {
	store := NewLegacyStore(writeLegacyFile(t, `{not json`))

	_, _, err := store.Favorites()
	assert.ErrorIs(t, err, ErrStorageRead)
}
