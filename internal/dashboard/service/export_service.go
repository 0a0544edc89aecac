package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"stock-dashboard/internal/entity"
	"stock-dashboard/pkg/logger"

	"github.com/xuri/excelize/v2"
)

// exportHeader is the fixed column layout of a favorites export.
var exportHeader = []interface{}{"Code", "Name", "Agency Name", "Concept", "Price"}

// ExportService writes the favorites view out as a spreadsheet.
type ExportService interface {
	// ExportFavorites renders the current favorites to an xlsx workbook.
	// Codes are written exchange-qualified, e.g. "600000.SH".
	ExportFavorites(ctx context.Context) ([]byte, error)
}

// NewExportService creates a new export service.
func NewExportService(watchlist WatchlistService, log *logger.Logger) ExportService {
	return &exportService{watchlist: watchlist, logger: log}
}

type exportService struct {
	watchlist WatchlistService
	logger    *logger.Logger
}

func (s *exportService) ExportFavorites(ctx context.Context) ([]byte, error) {
	records := s.watchlist.FavoriteRecords(ctx)
	if len(records) == 0 {
		return nil, ErrNoFavorites
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Favorites"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, rec := range records {
		row := []interface{}{
			entity.QualifiedCode(rec.Code),
			rec.Name,
			strings.Join(rec.Agencies, "; "),
			rec.Concept,
			rec.Price,
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("row coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}

	s.logger.InfoContext(ctx, "exported favorites", logger.IntField("count", len(records)))
	return buf.Bytes(), nil
}
