package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"stock-dashboard/internal/entity"
	"stock-dashboard/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFavorites is an in-memory FavoritesRepository with idempotent puts,
// matching the upsert semantics of the real store.
type memFavorites struct {
	codes map[string]bool
	puts  int
}

func newMemFavorites() *memFavorites { return &memFavorites{codes: map[string]bool{}} }

func (m *memFavorites) FindAll(context.Context) ([]entity.Favorite, error) {
	favorites := make([]entity.Favorite, 0, len(m.codes))
	for code := range m.codes {
		favorites = append(favorites, entity.Favorite{Code: code})
	}
	return favorites, nil
}

func (m *memFavorites) Put(_ context.Context, codes ...string) error {
	m.puts++
	for _, code := range codes {
		m.codes[code] = true
	}
	return nil
}

func (m *memFavorites) Delete(_ context.Context, code string) error {
	delete(m.codes, code)
	return nil
}

func (m *memFavorites) Clear(context.Context) error {
	m.codes = map[string]bool{}
	return nil
}

// memUploads is an in-memory UploadsRepository keyed by id.
type memUploads struct {
	rows map[string]*entity.Upload
}

func newMemUploads() *memUploads { return &memUploads{rows: map[string]*entity.Upload{}} }

func (m *memUploads) FindAll(context.Context) ([]entity.Upload, error) {
	uploads := make([]entity.Upload, 0, len(m.rows))
	for _, u := range m.rows {
		uploads = append(uploads, *u)
	}
	return uploads, nil
}

func (m *memUploads) Put(_ context.Context, uploads ...*entity.Upload) error {
	for _, u := range uploads {
		m.rows[u.ID] = u
	}
	return nil
}

func (m *memUploads) Delete(_ context.Context, id string) error {
	delete(m.rows, id)
	return nil
}

const legacyMigrationPayload = `{
	"stock_favorites": ["600000", "000001"],
	"stock_tabs": [{"id": "import_1", "name": "seed", "stocks": [{"c": "600000", "n": "PuFa"}]}]
}`

func TestLegacyMigrationDrainsStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy_state.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyMigrationPayload), 0o644))

	favorites := newMemFavorites()
	uploads := newMemUploads()
	migrator := NewLegacyMigrator(NewLegacyStore(path), favorites, uploads, logger.NewNop())

	require.NoError(t, migrator.Run(context.Background()))

	assert.True(t, favorites.codes["600000"])
	assert.True(t, favorites.codes["000001"])
	require.Contains(t, uploads.rows, "import_1")
	tab, err := uploads.rows["import_1"].ToTab()
	require.NoError(t, err)
	assert.Equal(t, "PuFa", tab.Stocks[0].Name)

	// Both keys drained, so the file is gone.
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLegacyMigrationRerunIsHarmless(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy_state.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyMigrationPayload), 0o644))

	favorites := newMemFavorites()
	uploads := newMemUploads()
	store := NewLegacyStore(path)
	migrator := NewLegacyMigrator(store, favorites, uploads, logger.NewNop())
	require.NoError(t, migrator.Run(context.Background()))

	// Simulate a crash between the bulk put and the key removal by restoring
	// the legacy file, then run again.
	require.NoError(t, os.WriteFile(path, []byte(legacyMigrationPayload), 0o644))
	require.NoError(t, migrator.Run(context.Background()))

	assert.Len(t, favorites.codes, 2)
	assert.Len(t, uploads.rows, 1)
	assert.Equal(t, 2, favorites.puts)
}

func TestLegacyMigrationNoLegacyState(t *testing.T) {
	favorites := newMemFavorites()
	uploads := newMemUploads()
	store := NewLegacyStore(filepath.Join(t.TempDir(), "absent.json"))
	migrator := NewLegacyMigrator(store, favorites, uploads, logger.NewNop())

	require.NoError(t, migrator.Run(context.Background()))
	assert.Empty(t, favorites.codes)
	assert.Empty(t, uploads.rows)
	assert.Zero(t, favorites.puts)
}
