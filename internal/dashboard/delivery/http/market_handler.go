package http

import (
	"errors"
	"net/http"
	"strings"

	"stock-dashboard/internal/dashboard/service"
	"stock-dashboard/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketHandler handles HTTP requests for chart and news data.
type MarketHandler struct {
	market service.MarketService
	logger *logger.Logger
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(market service.MarketService, logger *logger.Logger) *MarketHandler {
	return &MarketHandler{market: market, logger: logger}
}

// RegisterRoutes registers the market routes to the Echo group.
func (h *MarketHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/kline/:code", h.GetKline)
	g.GET("/news/:code", h.GetNews)
	g.GET("/cards", h.GetCards)
}

// GetKline godoc
// @Summary Get candlestick data for a stock
// @Tags market
// @Produce json
// @Param code path string true "Stock code"
// @Param period query string false "day, week or month" default(week)
// @Success 200 {object} dto.KlineResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /market/kline/{code} [get]
func (h *MarketHandler) GetKline(c echo.Context) error {
	resp, err := h.market.GetKline(c.Request().Context(), c.Param("code"), c.QueryParam("period"))
	if err != nil {
		return h.marketError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetNews godoc
// @Summary Get news items for a stock
// @Description Returns news over the fixed two-year window; a timed-out upstream yields an empty list
// @Tags market
// @Produce json
// @Param code path string true "Stock code"
// @Success 200 {object} dto.NewsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /market/news/{code} [get]
func (h *MarketHandler) GetNews(c echo.Context) error {
	resp, err := h.market.GetNews(c.Request().Context(), c.Param("code"))
	if err != nil {
		return h.marketError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetCards godoc
// @Summary Get chart and news cards for a page of stocks
// @Description Fetches kline and news per code concurrently; a failed card carries its own error and never fails siblings
// @Tags market
// @Produce json
// @Param codes query string true "Comma-separated stock codes"
// @Param period query string false "day, week or month" default(week)
// @Success 200 {object} dto.CardsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /market/cards [get]
func (h *MarketHandler) GetCards(c echo.Context) error {
	raw := strings.TrimSpace(c.QueryParam("codes"))
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing codes parameter"})
	}
	codes := make([]string, 0)
	for _, code := range strings.Split(raw, ",") {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, code)
		}
	}

	resp, err := h.market.GetCards(c.Request().Context(), codes, c.QueryParam("period"))
	if err != nil {
		return h.marketError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *MarketHandler) marketError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidCode), errors.Is(err, service.ErrInvalidPeriod):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		h.logger.Error("market fetch failed", logger.ErrorField(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "Upstream market data unavailable"})
	}
}
