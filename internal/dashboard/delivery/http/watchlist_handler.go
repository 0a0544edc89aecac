package http

import (
	"errors"
	"net/http"

	"stock-dashboard/internal/dashboard/dto"
	"stock-dashboard/internal/dashboard/service"
	"stock-dashboard/pkg/logger"

	"github.com/labstack/echo/v4"
)

// WatchlistHandler handles HTTP requests for the watchlist state.
type WatchlistHandler struct {
	watchlist service.WatchlistService
	export    service.ExportService
	logger    *logger.Logger
}

// NewWatchlistHandler creates a new WatchlistHandler.
func NewWatchlistHandler(watchlist service.WatchlistService, export service.ExportService, logger *logger.Logger) *WatchlistHandler {
	return &WatchlistHandler{watchlist: watchlist, export: export, logger: logger}
}

// RegisterRoutes registers the watchlist routes to the Echo group.
func (h *WatchlistHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetWatchlist)

	g.POST("/tabs", h.ImportTab)
	g.DELETE("/tabs/:id", h.RemoveTab)
	g.POST("/tabs/:id/activate", h.ActivateTab)

	g.POST("/favorites", h.AddFavorite)
	g.POST("/favorites/:code/toggle", h.ToggleFavorite)
	g.DELETE("/favorites", h.ClearFavorites)
	g.GET("/favorites/export", h.ExportFavorites)

	g.POST("/filters", h.ToggleFilter)
	g.PUT("/page", h.SetPage)
	g.PUT("/page-size", h.SetPageSize)
	g.PUT("/view", h.SetView)
}

// GetWatchlist godoc
// @Summary Get the current watchlist view
// @Description Returns the active tab, the current filtered page, facet values and view preferences
// @Tags watchlist
// @Produce json
// @Success 200 {object} dto.WatchlistResponse
// @Router /watchlist [get]
func (h *WatchlistHandler) GetWatchlist(c echo.Context) error {
	return c.JSON(http.StatusOK, h.watchlist.View(c.Request().Context()))
}

// ImportTab godoc
// @Summary Import a spreadsheet as a new tab
// @Description Ingests the uploaded spreadsheet, creates a tab and activates it
// @Tags watchlist
// @Accept mpfd
// @Produce json
// @Param file formData file true "Spreadsheet export (xlsx or csv)"
// @Success 201 {object} dto.ImportResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse
// @Router /watchlist/tabs [post]
func (h *WatchlistHandler) ImportTab(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing file upload"})
	}
	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Unreadable file upload"})
	}
	defer src.Close()

	resp, err := h.watchlist.ImportFile(c.Request().Context(), fileHeader.Filename, src)
	if err != nil {
		return h.ingestError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *WatchlistHandler) ingestError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrEmptyOrInvalidFile),
		errors.Is(err, service.ErrMissingCodeColumn),
		errors.Is(err, service.ErrUnsupportedFile):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrParseFailure):
		h.logger.Error("spreadsheet parse failed", logger.ErrorField(err))
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	default:
		h.logger.Error("import failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Import failed"})
	}
}

// RemoveTab godoc
// @Summary Remove an imported tab
// @Tags watchlist
// @Produce json
// @Param id path string true "Tab ID"
// @Success 204 {object} nil
// @Failure 404 {object} dto.ErrorResponse
// @Router /watchlist/tabs/{id} [delete]
func (h *WatchlistHandler) RemoveTab(c echo.Context) error {
	if err := h.watchlist.RemoveTab(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrUnknownTab) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		}
		h.logger.Error("remove tab failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to remove tab"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ActivateTab godoc
// @Summary Switch the active tab
// @Description Selects a tab (or the favorites sentinel), resetting pagination and filters
// @Tags watchlist
// @Produce json
// @Param id path string true "Tab ID or 'favorites'"
// @Success 200 {object} dto.WatchlistResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /watchlist/tabs/{id}/activate [post]
func (h *WatchlistHandler) ActivateTab(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.watchlist.SwitchTab(ctx, c.Param("id")); err != nil {
		if errors.Is(err, service.ErrUnknownTab) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to switch tab"})
	}
	return c.JSON(http.StatusOK, h.watchlist.View(ctx))
}

// AddFavorite godoc
// @Summary Add a favorite by user-entered code
// @Description Normalizes an optionally sz/sh/bj-prefixed 6-digit code and favorites it
// @Tags watchlist
// @Accept json
// @Produce json
// @Param favorite body dto.AddFavoriteRequest true "Code to add"
// @Success 200 {object} dto.AddFavoriteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /watchlist/favorites [post]
func (h *WatchlistHandler) AddFavorite(c echo.Context) error {
	var req dto.AddFavoriteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}

	resp, err := h.watchlist.AddFavorite(c.Request().Context(), req.Code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCode) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Please enter a valid 6-digit stock code"})
		}
		h.logger.Error("add favorite failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to add favorite"})
	}
	return c.JSON(http.StatusOK, resp)
}

// ToggleFavorite godoc
// @Summary Toggle favorite membership for a code
// @Tags watchlist
// @Produce json
// @Param code path string true "Stock code"
// @Success 200 {object} dto.ToggleFavoriteResponse
// @Router /watchlist/favorites/{code}/toggle [post]
func (h *WatchlistHandler) ToggleFavorite(c echo.Context) error {
	resp, err := h.watchlist.ToggleFavorite(c.Request().Context(), c.Param("code"))
	if err != nil {
		h.logger.Error("toggle favorite failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to toggle favorite"})
	}
	return c.JSON(http.StatusOK, resp)
}

// ClearFavorites godoc
// @Summary Remove every favorite
// @Tags watchlist
// @Produce json
// @Success 204 {object} nil
// @Router /watchlist/favorites [delete]
func (h *WatchlistHandler) ClearFavorites(c echo.Context) error {
	if err := h.watchlist.ClearFavorites(c.Request().Context()); err != nil {
		h.logger.Error("clear favorites failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to clear favorites"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ExportFavorites godoc
// @Summary Export favorites as a spreadsheet
// @Description Streams an xlsx workbook with exchange-qualified codes
// @Tags watchlist
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Failure 409 {object} dto.ErrorResponse
// @Router /watchlist/favorites/export [get]
func (h *WatchlistHandler) ExportFavorites(c echo.Context) error {
	data, err := h.export.ExportFavorites(c.Request().Context())
	if err != nil {
		if errors.Is(err, service.ErrNoFavorites) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "No favorites to export"})
		}
		h.logger.Error("export favorites failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to export favorites"})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="favorites.xlsx"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// ToggleFilter godoc
// @Summary Toggle a filter value
// @Description Toggles membership of a concept or agency filter value; the value "ALL" clears that filter set
// @Tags watchlist
// @Accept json
// @Produce json
// @Param filter body dto.ToggleFilterRequest true "Filter toggle"
// @Success 200 {object} dto.WatchlistResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /watchlist/filters [post]
func (h *WatchlistHandler) ToggleFilter(c echo.Context) error {
	var req dto.ToggleFilterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}

	ctx := c.Request().Context()
	if err := h.watchlist.ToggleFilter(ctx, req.Kind, req.Value); err != nil {
		if errors.Is(err, service.ErrInvalidFilterKind) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to apply filter"})
	}
	return c.JSON(http.StatusOK, h.watchlist.View(ctx))
}

// SetPage godoc
// @Summary Select a page
// @Description Selects a page of the filtered list; out-of-range pages clamp to the last page
// @Tags watchlist
// @Accept json
// @Produce json
// @Param page body dto.SetPageRequest true "Page selection"
// @Success 200 {object} dto.WatchlistResponse
// @Router /watchlist/page [put]
func (h *WatchlistHandler) SetPage(c echo.Context) error {
	var req dto.SetPageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}

	ctx := c.Request().Context()
	if err := h.watchlist.SetPage(ctx, req.Page); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to set page"})
	}
	return c.JSON(http.StatusOK, h.watchlist.View(ctx))
}

// SetPageSize godoc
// @Summary Select a page size
// @Tags watchlist
// @Accept json
// @Produce json
// @Param size body dto.SetPageSizeRequest true "Page size, one of 20/50/100/200/500/1000"
// @Success 200 {object} dto.WatchlistResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /watchlist/page-size [put]
func (h *WatchlistHandler) SetPageSize(c echo.Context) error {
	var req dto.SetPageSizeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}

	ctx := c.Request().Context()
	if err := h.watchlist.SetPageSize(ctx, req.PageSize); err != nil {
		if errors.Is(err, service.ErrInvalidPageSize) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to set page size"})
	}
	return c.JSON(http.StatusOK, h.watchlist.View(ctx))
}

// SetView godoc
// @Summary Update view preferences
// @Description Sets the view mode (grid or list) and/or the grid column count
// @Tags watchlist
// @Accept json
// @Produce json
// @Param view body dto.SetViewRequest true "View preferences"
// @Success 200 {object} dto.WatchlistResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /watchlist/view [put]
func (h *WatchlistHandler) SetView(c echo.Context) error {
	var req dto.SetViewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request payload"})
	}

	ctx := c.Request().Context()
	if err := h.watchlist.SetView(ctx, req.Mode, req.GridColumns); err != nil {
		if errors.Is(err, service.ErrInvalidViewMode) || errors.Is(err, service.ErrInvalidGridColumns) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to set view"})
	}
	return c.JSON(http.StatusOK, h.watchlist.View(ctx))
}
