package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"stock-dashboard/internal/dashboard/dto"
	"stock-dashboard/internal/dashboard/repository"
	"stock-dashboard/internal/entity"
	"stock-dashboard/pkg/common"
	"stock-dashboard/pkg/logger"
	"stock-dashboard/pkg/utils"
)

// WatchlistService owns the canonical in-memory watchlist state and the
// query derivations over it.
//
// Mutations update memory synchronously and submit the matching persistence
// write on a background goroutine. A failed write is logged and never rolls
// back the in-memory change: the embedded database is a write-behind cache of
// the state, not a system of record.
type WatchlistService interface {
	// Load runs the legacy migration and hydrates state from the embedded
	// database. It must succeed before the service is used.
	Load(ctx context.Context) error

	View(ctx context.Context) *dto.WatchlistResponse

	ImportFile(ctx context.Context, fileName string, r io.Reader) (*dto.ImportResponse, error)
	RemoveTab(ctx context.Context, id string) error
	SwitchTab(ctx context.Context, id string) error

	ToggleFavorite(ctx context.Context, code string) (*dto.ToggleFavoriteResponse, error)
	AddFavorite(ctx context.Context, rawCode string) (*dto.AddFavoriteResponse, error)
	ClearFavorites(ctx context.Context) error

	ToggleFilter(ctx context.Context, kind, value string) error
	SetPage(ctx context.Context, page int) error
	SetPageSize(ctx context.Context, size int) error
	SetView(ctx context.Context, mode, gridColumns string) error

	// FavoriteRecords returns the hydrated favorites view for export.
	FavoriteRecords(ctx context.Context) []entity.StockRecord
	// FavoriteCodes returns the favorited codes, for chart prefetching.
	FavoriteCodes(ctx context.Context) []string
}

// persistTimeout bounds each write-behind persistence call.
const persistTimeout = 10 * time.Second

// NewWatchlistService creates the watchlist service.
func NewWatchlistService(
	favorites repository.FavoritesRepository,
	uploads repository.UploadsRepository,
	migrator *repository.LegacyMigrator,
	ingest IngestService,
	defaultPageSize int,
	log *logger.Logger,
) WatchlistService {
	return &watchlistService{
		favorites: favorites,
		uploads:   uploads,
		migrator:  migrator,
		ingest:    ingest,
		logger:    log,
		state:     newState(defaultPageSize),
	}
}

type watchlistService struct {
	favorites repository.FavoritesRepository
	uploads   repository.UploadsRepository
	migrator  *repository.LegacyMigrator
	ingest    IngestService
	logger    *logger.Logger

	mu    sync.RWMutex
	state *state
}

func (s *watchlistService) Load(ctx context.Context) error {
	if s.migrator != nil {
		if err := s.migrator.Run(ctx); err != nil {
			return fmt.Errorf("legacy migration: %w", err)
		}
	}

	favorites, err := s.favorites.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("load favorites: %w", err)
	}
	uploads, err := s.uploads.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("load uploads: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fav := range favorites {
		if !s.state.favorites[fav.Code] {
			s.state.favorites[fav.Code] = true
			s.state.favoriteOrder = append(s.state.favoriteOrder, fav.Code)
		}
	}
	for i := range uploads {
		tab, err := uploads[i].ToTab()
		if err != nil {
			return fmt.Errorf("decode upload %s: %w", uploads[i].ID, err)
		}
		s.state.tabs = append(s.state.tabs, tab)
	}
	s.state.rebuildIndex()

	s.logger.Info("watchlist state loaded",
		logger.IntField("favorites", len(s.state.favoriteOrder)),
		logger.IntField("tabs", len(s.state.tabs)))
	return nil
}

func (s *watchlistService) View(_ context.Context) *dto.WatchlistResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state

	items, page, start := st.pageSlice()
	filteredCount := len(st.filteredList())
	concepts, agencies := st.facetValues()

	stocks := make([]dto.StockItem, 0, len(items))
	for _, rec := range items {
		stocks = append(stocks, dto.StockItem{
			Code:     rec.Code,
			Name:     rec.Name,
			Price:    rec.Price,
			Concept:  rec.Concept,
			Agencies: rec.Agencies,
			Favorite: st.favorites[rec.Code],
			QuoteURL: entity.QuoteURL(rec.Code),
		})
	}

	tabs := make([]dto.TabSummary, 0, len(st.tabs))
	for _, tab := range st.tabs {
		tabs = append(tabs, dto.TabSummary{
			ID:         tab.ID,
			Name:       tab.Name,
			StockCount: len(tab.Stocks),
		})
	}

	totalPages := (filteredCount + st.pageSize - 1) / st.pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	end := start + len(items)

	return &dto.WatchlistResponse{
		ActiveTabID:   st.activeTabID,
		Tabs:          tabs,
		FavoriteCount: len(st.favoriteOrder),
		Stocks:        stocks,
		Pagination: dto.PaginationMeta{
			Page:       page,
			PageSize:   st.pageSize,
			TotalItems: filteredCount,
			TotalPages: totalPages,
			Start:      start,
			End:        end,
		},
		Filters: dto.FilterState{
			Concept: sortedKeys(st.conceptFilter),
			Agency:  sortedKeys(st.agencyFilter),
		},
		Facets: dto.Facets{
			Concepts: concepts,
			Agencies: agencies,
		},
		View: dto.ViewState{
			Mode:        st.viewMode,
			GridColumns: st.gridColumns,
		},
	}
}

func (s *watchlistService) ImportFile(ctx context.Context, fileName string, r io.Reader) (*dto.ImportResponse, error) {
	tab, err := s.ingest.IngestFile(ctx, fileName, r)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.state.tabs = append(s.state.tabs, tab)
	s.state.indexTab(tab)
	s.activateLocked(tab.ID)
	s.mu.Unlock()

	s.persistUploadPut(tab)

	return &dto.ImportResponse{
		TabID:      tab.ID,
		Name:       tab.Name,
		StockCount: len(tab.Stocks),
	}, nil
}

func (s *watchlistService) RemoveTab(_ context.Context, id string) error {
	s.mu.Lock()
	tab := s.state.findTab(id)
	if tab == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownTab, id)
	}

	tabs := s.state.tabs[:0]
	for _, t := range s.state.tabs {
		if t.ID != id {
			tabs = append(tabs, t)
		}
	}
	s.state.tabs = tabs
	s.state.rebuildIndex()
	if s.state.activeTabID == id {
		s.activateLocked(common.TabIDFavorites)
	}
	s.mu.Unlock()

	s.persistUploadDelete(id)
	return nil
}

func (s *watchlistService) SwitchTab(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != common.TabIDFavorites && s.state.findTab(id) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTab, id)
	}
	s.activateLocked(id)
	return nil
}

// activateLocked selects a tab, resetting pagination and filters. Callers
// hold the lock.
func (s *watchlistService) activateLocked(id string) {
	s.state.activeTabID = id
	s.state.page = 1
	s.state.conceptFilter = map[string]bool{}
	s.state.agencyFilter = map[string]bool{}
}

func (s *watchlistService) ToggleFavorite(_ context.Context, code string) (*dto.ToggleFavoriteResponse, error) {
	s.mu.Lock()
	nowFavorite := !s.state.favorites[code]
	if nowFavorite {
		s.state.favorites[code] = true
		s.state.favoriteOrder = append(s.state.favoriteOrder, code)
	} else {
		delete(s.state.favorites, code)
		order := s.state.favoriteOrder[:0]
		for _, c := range s.state.favoriteOrder {
			if c != code {
				order = append(order, c)
			}
		}
		s.state.favoriteOrder = order
	}
	s.mu.Unlock()

	if nowFavorite {
		s.persistFavoritePut(code)
	} else {
		s.persistFavoriteDelete(code)
	}
	return &dto.ToggleFavoriteResponse{Code: code, Favorite: nowFavorite}, nil
}

func (s *watchlistService) AddFavorite(ctx context.Context, rawCode string) (*dto.AddFavoriteResponse, error) {
	code, ok := entity.NormalizeFavoriteInput(rawCode)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCode, rawCode)
	}

	s.mu.RLock()
	already := s.state.favorites[code]
	s.mu.RUnlock()
	if already {
		return &dto.AddFavoriteResponse{
			Code:    code,
			Added:   false,
			Message: fmt.Sprintf("%s is already in favorites", code),
		}, nil
	}

	if _, err := s.ToggleFavorite(ctx, code); err != nil {
		return nil, err
	}
	return &dto.AddFavoriteResponse{Code: code, Added: true}, nil
}

func (s *watchlistService) ClearFavorites(_ context.Context) error {
	s.mu.Lock()
	s.state.favorites = map[string]bool{}
	s.state.favoriteOrder = nil
	s.mu.Unlock()

	utils.GoSafe(func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.favorites.Clear(ctx); err != nil {
			s.logger.Error("write-behind clear of favorites failed", logger.ErrorField(err))
		}
	})
	return nil
}

func (s *watchlistService) ToggleFilter(_ context.Context, kind, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var set map[string]bool
	switch kind {
	case common.FilterKindConcept:
		set = s.state.conceptFilter
	case common.FilterKindAgency:
		set = s.state.agencyFilter
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFilterKind, kind)
	}

	if value == common.FilterAll {
		for k := range set {
			delete(set, k)
		}
	} else if set[value] {
		delete(set, value)
	} else {
		set[value] = true
	}

	s.state.page = 1
	return nil
}

func (s *watchlistService) SetPage(_ context.Context, page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.page = clampPage(page, len(s.state.filteredList()), s.state.pageSize)
	return nil
}

func (s *watchlistService) SetPageSize(_ context.Context, size int) error {
	if !common.ValidPageSize(size) {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.pageSize = size
	s.state.page = 1
	return nil
}

func (s *watchlistService) SetView(_ context.Context, mode, gridColumns string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode != "" {
		if mode != common.ViewModeGrid && mode != common.ViewModeList {
			return fmt.Errorf("%w: %q", ErrInvalidViewMode, mode)
		}
		if mode != s.state.viewMode {
			s.state.viewMode = mode
			s.state.page = 1
		}
	}
	if gridColumns != "" {
		switch gridColumns {
		case common.GridColumnsAuto, "3", "4", "5", "6":
			s.state.gridColumns = gridColumns
		default:
			return fmt.Errorf("%w: %q", ErrInvalidGridColumns, gridColumns)
		}
	}
	return nil
}

func (s *watchlistService) FavoriteRecords(_ context.Context) []entity.StockRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]entity.StockRecord, 0, len(s.state.favoriteOrder))
	for _, code := range s.state.favoriteOrder {
		if rec, ok := s.state.index[code]; ok {
			records = append(records, *rec)
		} else {
			records = append(records, entity.StockRecord{Code: code})
		}
	}
	return records
}

func (s *watchlistService) FavoriteCodes(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]string, len(s.state.favoriteOrder))
	copy(codes, s.state.favoriteOrder)
	return codes
}

func (s *watchlistService) persistFavoritePut(code string) {
	utils.GoSafe(func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.favorites.Put(ctx, code); err != nil {
			s.logger.Error("write-behind put of favorite failed",
				logger.StringField("code", code), logger.ErrorField(err))
		}
	})
}

func (s *watchlistService) persistFavoriteDelete(code string) {
	utils.GoSafe(func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.favorites.Delete(ctx, code); err != nil {
			s.logger.Error("write-behind delete of favorite failed",
				logger.StringField("code", code), logger.ErrorField(err))
		}
	})
}

func (s *watchlistService) persistUploadPut(tab *entity.Tab) {
	upload, err := entity.NewUpload(tab)
	if err != nil {
		s.logger.Error("encoding tab for persistence failed",
			logger.StringField("tab_id", tab.ID), logger.ErrorField(err))
		return
	}
	utils.GoSafe(func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.uploads.Put(ctx, upload); err != nil {
			s.logger.Error("write-behind put of tab failed",
				logger.StringField("tab_id", tab.ID), logger.ErrorField(err))
		}
	})
}

func (s *watchlistService) persistUploadDelete(id string) {
	utils.GoSafe(func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.uploads.Delete(ctx, id); err != nil {
			s.logger.Error("write-behind delete of tab failed",
				logger.StringField("tab_id", id), logger.ErrorField(err))
		}
	})
}
