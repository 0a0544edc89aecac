package service

import (
	"context"
	"fmt"
	"sync"

	"stock-dashboard/internal/dashboard/config"
	"stock-dashboard/internal/dashboard/dto"
	"stock-dashboard/internal/dashboard/repository"
	"stock-dashboard/internal/entity"
	"stock-dashboard/pkg/common"
	"stock-dashboard/pkg/logger"
	"stock-dashboard/pkg/utils"

	"github.com/robfig/cron/v3"
)

// MarketService serves the chart and news collaborators for stock cards.
// Card fetches for different codes run concurrently and fail independently:
// one card's error never blocks or empties a sibling card.
type MarketService interface {
	GetKline(ctx context.Context, code, period string) (*dto.KlineResponse, error)
	GetNews(ctx context.Context, code string) (*dto.NewsResponse, error)
	// GetCards fetches kline and news for a page of codes, one card per
	// code in input order.
	GetCards(ctx context.Context, codes []string, period string) (*dto.CardsResponse, error)
	// StartPrefetch begins the optional cron-driven warm-up of favorite
	// charts. It returns a stop function.
	StartPrefetch(ctx context.Context, watchlist WatchlistService) (stop func(), err error)
}

// NewMarketService creates a new market service.
func NewMarketService(market repository.MarketDataRepository, cfg *config.Config, log *logger.Logger) MarketService {
	maxConcurrent := cfg.Eastmoney.MaxConcurrentCards
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &marketService{
		market:        market,
		cfg:           cfg,
		logger:        log,
		maxConcurrent: maxConcurrent,
	}
}

type marketService struct {
	market        repository.MarketDataRepository
	cfg           *config.Config
	logger        *logger.Logger
	maxConcurrent int
}

func validPeriod(period string) bool {
	switch period {
	case common.PeriodDay, common.PeriodWeek, common.PeriodMonth:
		return true
	}
	return false
}

func (s *marketService) GetKline(ctx context.Context, code, period string) (*dto.KlineResponse, error) {
	if period == "" {
		period = common.PeriodWeek
	}
	if !validPeriod(period) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	normalized, ok := entity.NormalizeFavoriteInput(code)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	return s.market.GetKline(ctx, normalized, period)
}

func (s *marketService) GetNews(ctx context.Context, code string) (*dto.NewsResponse, error) {
	normalized, ok := entity.NormalizeFavoriteInput(code)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	return s.market.GetNews(ctx, normalized)
}

func (s *marketService) GetCards(ctx context.Context, codes []string, period string) (*dto.CardsResponse, error) {
	if period == "" {
		period = common.PeriodWeek
	}
	if !validPeriod(period) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}

	cards := make([]dto.Card, len(codes))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, s.maxConcurrent)

	for i, code := range codes {
		if !utils.ShouldContinue(ctx, s.logger) {
			break
		}
		i, code := i, code
		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			cards[i] = s.fetchCard(ctx, code, period)
		})
	}
	wg.Wait()

	return &dto.CardsResponse{Cards: cards}, nil
}

// fetchCard resolves one card, folding any fetch failure into the card
// itself.
func (s *marketService) fetchCard(ctx context.Context, code, period string) dto.Card {
	card := dto.Card{Code: code}

	normalized, ok := entity.NormalizeFavoriteInput(code)
	if !ok {
		card.Error = "invalid stock code"
		return card
	}
	card.Code = normalized

	kline, err := s.market.GetKline(ctx, normalized, period)
	if err != nil {
		s.logger.WarnContext(ctx, "card kline fetch failed",
			logger.StringField("code", normalized), logger.ErrorField(err))
		card.Error = "chart unavailable"
	} else {
		card.Kline = kline
	}

	news, err := s.market.GetNews(ctx, normalized)
	if err != nil {
		s.logger.WarnContext(ctx, "card news fetch failed",
			logger.StringField("code", normalized), logger.ErrorField(err))
		if card.Error == "" {
			card.Error = "news unavailable"
		}
	} else {
		card.News = news
	}

	return card
}

func (s *marketService) StartPrefetch(ctx context.Context, watchlist WatchlistService) (func(), error) {
	if !s.cfg.Prefetch.Enabled {
		return func() {}, nil
	}
	schedule := s.cfg.Prefetch.Schedule
	if schedule == "" {
		schedule = "@every 30m"
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		codes := watchlist.FavoriteCodes(ctx)
		if len(codes) == 0 {
			return
		}
		s.logger.Info("prefetching favorite charts", logger.IntField("count", len(codes)))
		if _, err := s.GetCards(ctx, codes, common.PeriodWeek); err != nil {
			s.logger.Error("prefetch run failed", logger.ErrorField(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("prefetch schedule %q: %w", schedule, err)
	}
	c.Start()
	return func() { <-c.Stop().Done() }, nil
}
