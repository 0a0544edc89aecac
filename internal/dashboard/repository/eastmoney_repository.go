package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stock-dashboard/internal/dashboard/config"
	"stock-dashboard/internal/dashboard/dto"
	"stock-dashboard/internal/entity"
	"stock-dashboard/pkg/common"
	"stock-dashboard/pkg/logger"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// MarketDataRepository fetches candlestick and news data for a stock from the
// remote quote endpoints. Results are cached in process and requests are rate
// limited; a news fetch that exceeds its timeout resolves to an empty list.
type MarketDataRepository interface {
	GetKline(ctx context.Context, code, period string) (*dto.KlineResponse, error)
	GetNews(ctx context.Context, code string) (*dto.NewsResponse, error)
}

type eastmoneyRepository struct {
	cfg            *config.Config
	log            *logger.Logger
	httpClient     *http.Client
	requestLimiter *rate.Limiter
	responseCache  *cache.Cache
}

// NewEastmoneyRepository creates a market-data repository over the eastmoney
// shaped endpoints configured in cfg.
func NewEastmoneyRepository(cfg *config.Config, log *logger.Logger) MarketDataRepository {
	maxPerMinute := cfg.Eastmoney.MaxRequestPerMinute
	if maxPerMinute <= 0 {
		maxPerMinute = 60
	}
	secondsPerRequest := time.Minute / time.Duration(maxPerMinute)
	cacheTTL := cfg.Eastmoney.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &eastmoneyRepository{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
		responseCache:  cache.New(cacheTTL, 2*cacheTTL),
	}
}

var periodCodes = map[string]string{
	common.PeriodDay:   "101",
	common.PeriodWeek:  "102",
	common.PeriodMonth: "103",
}

type klineEnvelope struct {
	Data struct {
		Code   string   `json:"code"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

// GetKline fetches the candle series for one code and period.
func (r *eastmoneyRepository) GetKline(ctx context.Context, code, period string) (*dto.KlineResponse, error) {
	klt, ok := periodCodes[period]
	if !ok {
		return nil, fmt.Errorf("%w: unknown period %q", ErrRemoteFetch, period)
	}
	secID := entity.SecID(code)

	cacheKey := "kline:" + secID + ":" + klt
	if cached, found := r.responseCache.Get(cacheKey); found {
		return cached.(*dto.KlineResponse), nil
	}

	limit := r.cfg.Eastmoney.KlineLimit
	if limit <= 0 {
		limit = 120
	}

	q := url.Values{}
	q.Set("secid", secID)
	q.Set("klt", klt)
	q.Set("fqt", "1")
	q.Set("lmt", strconv.Itoa(limit))
	q.Set("end", "20500101")
	q.Set("fields1", "f1,f2,f3,f4,f5,f6")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56")
	requestURL := r.cfg.Eastmoney.KlineBaseURL + "/api/qt/stock/kline/get?" + q.Encode()

	body, err := r.sendRequest(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var envelope klineEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decode kline response: %v", ErrRemoteFetch, err)
	}

	candles := make([]dto.Candle, 0, len(envelope.Data.Klines))
	for _, line := range envelope.Data.Klines {
		candle, err := parseKline(line)
		if err != nil {
			r.log.DebugContext(ctx, "skipping malformed kline entry",
				logger.StringField("code", code), logger.ErrorField(err))
			continue
		}
		candles = append(candles, candle)
	}

	resp := &dto.KlineResponse{
		Code:    code,
		SecID:   secID,
		Period:  period,
		Candles: candles,
	}
	r.responseCache.Set(cacheKey, resp, cache.DefaultExpiration)
	return resp, nil
}

// parseKline decodes one "date,open,close,high,low,volume" entry.
func parseKline(line string) (dto.Candle, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 6 {
		return dto.Candle{}, fmt.Errorf("kline entry has %d fields", len(parts))
	}
	values := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(parts[i+1], 64)
		if err != nil {
			return dto.Candle{}, fmt.Errorf("kline field %d: %w", i+1, err)
		}
		values[i] = v
	}
	return dto.Candle{
		Date:   parts[0],
		Open:   values[0],
		Close:  values[1],
		High:   values[2],
		Low:    values[3],
		Volume: values[4],
	}, nil
}

type newsEnvelope struct {
	Data struct {
		Items []dto.NewsItem `json:"items"`
	} `json:"data"`
}

// newsWindow is the fixed lookback for news queries.
const newsWindow = 2 * 365 * 24 * time.Hour

// GetNews fetches news items for one code over the fixed two-year window.
// A fetch that exceeds the configured timeout returns an empty list so a slow
// upstream bounds, rather than blocks, card rendering.
func (r *eastmoneyRepository) GetNews(ctx context.Context, code string) (*dto.NewsResponse, error) {
	cacheKey := "news:" + code
	if cached, found := r.responseCache.Get(cacheKey); found {
		return cached.(*dto.NewsResponse), nil
	}

	timeout := r.cfg.Eastmoney.NewsTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	now := time.Now()
	market := "0"
	if entity.ExchangeFor(code) == entity.ExchangeShanghai {
		market = "1"
	}

	q := url.Values{}
	q.Set("code", code)
	q.Set("market", market)
	q.Set("beginTime", now.Add(-newsWindow).Format("2006-01-02"))
	q.Set("endTime", now.Format("2006-01-02"))
	requestURL := r.cfg.Eastmoney.NewsBaseURL + "/api/news/get?" + q.Encode()

	body, err := r.sendRequest(fetchCtx, requestURL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrRemoteTimeout) {
			r.log.WarnContext(ctx, "news fetch timed out, returning empty result",
				logger.StringField("code", code))
			return &dto.NewsResponse{Code: code, Items: []dto.NewsItem{}}, nil
		}
		return nil, err
	}

	var envelope newsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decode news response: %v", ErrRemoteFetch, err)
	}

	items := envelope.Data.Items
	if items == nil {
		items = []dto.NewsItem{}
	}
	resp := &dto.NewsResponse{Code: code, Items: items}
	r.responseCache.Set(cacheKey, resp, cache.DefaultExpiration)
	return resp, nil
}

func (r *eastmoneyRepository) sendRequest(ctx context.Context, requestURL string) ([]byte, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: waiting for request slot: %v", ErrRemoteTimeout, err)
		}
		return nil, fmt.Errorf("%w: waiting for request slot: %v", ErrRemoteFetch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrRemoteFetch, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Referer", "https://quote.eastmoney.com")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrRemoteTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrRemoteFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrRemoteFetch, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrRemoteFetch, err)
	}
	return body, nil
}
