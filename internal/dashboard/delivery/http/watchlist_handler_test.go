package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"stock-dashboard/internal/dashboard/dto"
	"stock-dashboard/internal/dashboard/service"
	"stock-dashboard/internal/entity"
	"stock-dashboard/pkg/common"
	"stock-dashboard/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFavorites struct {
	mu    sync.Mutex
	codes map[string]bool
}

func (s *stubFavorites) FindAll(context.Context) ([]entity.Favorite, error) { return nil, nil }

func (s *stubFavorites) Put(_ context.Context, codes ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range codes {
		s.codes[c] = true
	}
	return nil
}

func (s *stubFavorites) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, code)
	return nil
}

func (s *stubFavorites) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = map[string]bool{}
	return nil
}

type stubUploads struct {
	mu   sync.Mutex
	rows map[string]*entity.Upload
}

func (s *stubUploads) FindAll(context.Context) ([]entity.Upload, error) { return nil, nil }

func (s *stubUploads) Put(_ context.Context, uploads ...*entity.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range uploads {
		s.rows[u.ID] = u
	}
	return nil
}

func (s *stubUploads) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func newHandlerFixture(t *testing.T) (*echo.Echo, service.WatchlistService) {
	t.Helper()
	log := logger.NewNop()
	watchlist := service.NewWatchlistService(
		&stubFavorites{codes: map[string]bool{}},
		&stubUploads{rows: map[string]*entity.Upload{}},
		nil,
		service.NewIngestService(log),
		common.DefaultPageSize,
		log,
	)
	require.NoError(t, watchlist.Load(context.Background()))

	e := echo.New()
	handler := NewWatchlistHandler(watchlist, service.NewExportService(watchlist, log), log)
	handler.RegisterRoutes(e.Group("/api/v1/watchlist"))
	return e, watchlist
}

func multipartCSV(t *testing.T, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func TestGetWatchlistDefaults(t *testing.T) {
	e, _ := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/watchlist", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var view dto.WatchlistResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, common.TabIDFavorites, view.ActiveTabID)
	assert.Equal(t, common.DefaultPageSize, view.Pagination.PageSize)
	assert.Equal(t, common.ViewModeGrid, view.View.Mode)
}

func TestImportTabCreatesAndActivates(t *testing.T) {
	e, _ := newHandlerFixture(t)

	body, contentType := multipartCSV(t, "holdings.csv", "代码,简称\n600000,PuFa\n")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/watchlist/tabs", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp dto.ImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.TabID, common.TabIDPrefix))
	assert.Equal(t, "holdings", resp.Name)
	assert.Equal(t, 1, resp.StockCount)
}

func TestImportTabRejectsEmptySheet(t *testing.T) {
	e, _ := newHandlerFixture(t)

	body, contentType := multipartCSV(t, "empty.csv", "代码,简称\n")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/watchlist/tabs", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestImportTabMissingFile(t *testing.T) {
	e, _ := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/watchlist/tabs", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActivateUnknownTab(t *testing.T) {
	e, _ := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/watchlist/tabs/import_missing/activate", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddFavoriteValidation(t *testing.T) {
	e, _ := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/watchlist/favorites",
		strings.NewReader(`{"code": "not-a-code"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddAndToggleFavorite(t *testing.T) {
	e, _ := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/watchlist/favorites",
		strings.NewReader(`{"code": "sh600000"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var addResp dto.AddFavoriteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &addResp))
	assert.True(t, addResp.Added)
	assert.Equal(t, "600000", addResp.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/watchlist/favorites/600000/toggle", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var toggleResp dto.ToggleFavoriteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggleResp))
	assert.False(t, toggleResp.Favorite)
}

func TestExportFavoritesEmptyConflict(t *testing.T) {
	e, _ := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/watchlist/favorites/export", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestExportFavoritesStreamsWorkbook(t *testing.T) {
	e, watchlist := newHandlerFixture(t)
	_, err := watchlist.AddFavorite(context.Background(), "600000")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/watchlist/favorites/export", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "favorites.xlsx")
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestSetPageSizeRejectsUnknownSize(t *testing.T) {
	e, _ := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/watchlist/page-size",
		strings.NewReader(`{"page_size": 33}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToggleFilterInvalidKindRejected(t *testing.T) {
	e, _ := newHandlerFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/watchlist/filters",
		strings.NewReader(`{"kind": "sector", "value": "Bank"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
