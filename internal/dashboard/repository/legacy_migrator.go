package repository

import (
	"context"
	"fmt"

	"stock-dashboard/internal/entity"
	"stock-dashboard/pkg/common"
	"stock-dashboard/pkg/logger"
)

// LegacyMigrator drains the legacy flat store into the embedded database.
// It runs once at startup, before any read of the new store is trusted.
//
// The migration is deliberately put-then-delete: a crash after the bulk put
// but before the key removal re-runs the migration on the next startup, and
// the idempotent upserts make that rerun harmless.
type LegacyMigrator struct {
	legacy    LegacyStore
	favorites FavoritesRepository
	uploads   UploadsRepository
	logger    *logger.Logger
}

// NewLegacyMigrator creates a migrator over the given stores.
func NewLegacyMigrator(legacy LegacyStore, favorites FavoritesRepository, uploads UploadsRepository, log *logger.Logger) *LegacyMigrator {
	return &LegacyMigrator{
		legacy:    legacy,
		favorites: favorites,
		uploads:   uploads,
		logger:    log,
	}
}

// Run performs the migration. Absent legacy keys make it a no-op.
func (m *LegacyMigrator) Run(ctx context.Context) error {
	codes, haveFavorites, err := m.legacy.Favorites()
	if err != nil {
		return fmt.Errorf("legacy favorites: %w", err)
	}
	if haveFavorites {
		m.logger.Info("migrating legacy favorites", logger.IntField("count", len(codes)))
		if err := m.favorites.Put(ctx, codes...); err != nil {
			return fmt.Errorf("migrate favorites: %w", err)
		}
		if err := m.legacy.DeleteKey(common.LegacyKeyFavorites); err != nil {
			return fmt.Errorf("drop legacy favorites key: %w", err)
		}
	}

	tabs, haveTabs, err := m.legacy.Tabs()
	if err != nil {
		return fmt.Errorf("legacy tabs: %w", err)
	}
	if haveTabs {
		m.logger.Info("migrating legacy tabs", logger.IntField("count", len(tabs)))
		uploads := make([]*entity.Upload, 0, len(tabs))
		for i := range tabs {
			u, err := entity.NewUpload(&tabs[i])
			if err != nil {
				return fmt.Errorf("encode legacy tab %s: %w", tabs[i].ID, err)
			}
			uploads = append(uploads, u)
		}
		if err := m.uploads.Put(ctx, uploads...); err != nil {
			return fmt.Errorf("migrate tabs: %w", err)
		}
		if err := m.legacy.DeleteKey(common.LegacyKeyTabs); err != nil {
			return fmt.Errorf("drop legacy tabs key: %w", err)
		}
	}

	if haveFavorites || haveTabs {
		m.logger.Info("legacy migration complete")
	}
	return nil
}
