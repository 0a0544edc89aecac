package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"stock-dashboard/internal/entity"
	"stock-dashboard/pkg/common"
	"stock-dashboard/pkg/logger"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// IngestService converts a raw tabular spreadsheet into a deduplicated,
// normalized Tab. Column meaning is inferred from header keywords, so exports
// from different research tools land in the same shape.
type IngestService interface {
	// IngestFile decodes an uploaded spreadsheet (xlsx, or csv with GBK
	// fallback) and ingests its first sheet.
	IngestFile(ctx context.Context, fileName string, r io.Reader) (*entity.Tab, error)
	// Ingest builds a Tab from raw rows, row 0 being the header.
	Ingest(rows [][]string, sourceName string) (*entity.Tab, error)
}

// NewIngestService creates a new ingest service.
func NewIngestService(log *logger.Logger) IngestService {
	return &ingestService{
		logger: log,
		now:    time.Now,
	}
}

type ingestService struct {
	logger *logger.Logger
	now    func() time.Time
}

// Header keywords per inferred field, matched as case-insensitive substrings.
var (
	codeKeywords    = []string{"代码", "Code"}
	nameKeywords    = []string{"简称", "Name"}
	conceptKeywords = []string{"概念", "Concept", "Industry", "行业"}
	priceKeywords   = []string{"现价", "Price", "Close", "最新价"}

	// Agency resolution is two-tier: explicit agency-name labels win, and
	// only then a broad "agency" label is accepted, provided it is not a
	// count or detail column. Research exports routinely carry both an
	// agency-name and an agency-count column, and a single greedy pass
	// would latch onto whichever comes first.
	agencyStrictKeywords  = []string{"调研机构名称", "机构名称", "Agency Name"}
	agencyBroadKeywords   = []string{"机构", "Agency"}
	agencyExcludeKeywords = []string{"次数", "明细", "Count"}
)

// Agency cell values treated as "no data".
var agencyPlaceholders = map[string]bool{"--": true, "null": true}

func (s *ingestService) IngestFile(ctx context.Context, fileName string, r io.Reader) (*entity.Tab, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	var (
		rows [][]string
		err  error
	)
	switch ext {
	case ".csv":
		rows, err = decodeCSV(r)
	case ".xlsx", ".xlsm", ".xls", "":
		rows, err = decodeWorkbook(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, ext)
	}
	if err != nil {
		return nil, err
	}

	tab, err := s.Ingest(rows, fileName)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "ingested spreadsheet",
		logger.StringField("file", fileName),
		logger.IntField("rows", len(rows)),
		logger.IntField("stocks", len(tab.Stocks)))
	return tab, nil
}

func (s *ingestService) Ingest(rows [][]string, sourceName string) (tab *entity.Tab, err error) {
	// A malformed sheet must abort the whole import with no partial tab, so
	// any parse panic is converted into an error here.
	defer func() {
		if r := recover(); r != nil {
			tab = nil
			err = fmt.Errorf("%w: %v", ErrParseFailure, r)
		}
	}()

	if len(rows) < 2 {
		return nil, ErrEmptyOrInvalidFile
	}

	header := rows[0]
	codeIdx := findColumn(header, codeKeywords)
	if codeIdx < 0 {
		return nil, ErrMissingCodeColumn
	}
	nameIdx := findColumn(header, nameKeywords)
	conceptIdx := findColumn(header, conceptKeywords)
	priceIdx := findColumn(header, priceKeywords)
	agencyIdx := findAgencyColumn(header)

	type record struct {
		stock    *entity.StockRecord
		agencies map[string]bool
	}
	byCode := map[string]*record{}
	order := make([]string, 0, len(rows)-1)

	for _, row := range rows[1:] {
		code, ok := entity.ExtractCode(cell(row, codeIdx))
		if !ok {
			// Blank, footer and summary rows are expected in these
			// exports; skip without complaint.
			continue
		}

		rec, seen := byCode[code]
		if !seen {
			// First occurrence establishes all scalar fields; later
			// duplicate rows only contribute agencies.
			rec = &record{
				stock: &entity.StockRecord{
					Code:    code,
					Name:    strings.TrimSpace(cell(row, nameIdx)),
					Price:   strings.TrimSpace(cell(row, priceIdx)),
					Concept: strings.TrimSpace(cell(row, conceptIdx)),
				},
				agencies: map[string]bool{},
			}
			byCode[code] = rec
			order = append(order, code)
		}

		if agencyIdx >= 0 {
			raw := strings.TrimSpace(cell(row, agencyIdx))
			if raw == "" || agencyPlaceholders[strings.ToLower(raw)] {
				continue
			}
			for _, agency := range entity.SplitTags(raw) {
				if !rec.agencies[agency] {
					rec.agencies[agency] = true
					rec.stock.Agencies = append(rec.stock.Agencies, agency)
				}
			}
		}
	}

	if len(order) == 0 {
		return nil, fmt.Errorf("%w: no rows with a valid stock code", ErrEmptyOrInvalidFile)
	}

	stocks := make([]entity.StockRecord, 0, len(order))
	for _, code := range order {
		stocks = append(stocks, *byCode[code].stock)
	}

	return &entity.Tab{
		ID:     common.TabIDPrefix + strconv.FormatInt(s.now().UnixMilli(), 10),
		Name:   tabName(sourceName),
		Stocks: stocks,
	}, nil
}

// findColumn returns the first header column whose label contains any of the
// keywords, case-insensitively, or -1.
func findColumn(header []string, keywords []string) int {
	for i, label := range header {
		lower := strings.ToLower(label)
		for _, k := range keywords {
			if strings.Contains(lower, strings.ToLower(k)) {
				return i
			}
		}
	}
	return -1
}

// findAgencyColumn applies the two-tier agency resolution policy.
func findAgencyColumn(header []string) int {
	if idx := findColumn(header, agencyStrictKeywords); idx >= 0 {
		return idx
	}
	for i, label := range header {
		broad := false
		for _, k := range agencyBroadKeywords {
			if strings.Contains(label, k) {
				broad = true
				break
			}
		}
		if !broad {
			continue
		}
		excluded := false
		for _, k := range agencyExcludeKeywords {
			if strings.Contains(label, k) {
				excluded = true
				break
			}
		}
		if !excluded {
			return i
		}
	}
	return -1
}

// cell reads row[idx], tolerating short rows and unresolved columns.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// tabName derives the display label from the source file name, truncated to
// the sidebar-friendly length.
func tabName(sourceName string) string {
	name := strings.TrimSuffix(filepath.Base(sourceName), filepath.Ext(sourceName))
	runes := []rune(name)
	if len(runes) > common.TabNameMaxLen {
		return string(runes[:common.TabNameMaxLen])
	}
	return name
}

// decodeWorkbook reads the first sheet of an xlsx workbook.
func decodeWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", ErrParseFailure, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyOrInvalidFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %s: %v", ErrParseFailure, sheets[0], err)
	}
	return rows, nil
}

// decodeCSV reads a csv file, transcoding from GBK when the payload is not
// valid UTF-8. A-share research tools commonly export GBK-encoded csv.
func decodeCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read csv: %v", ErrParseFailure, err)
	}
	if !utf8.Valid(data) {
		decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), simplifiedchinese.GBK.NewDecoder()))
		if err != nil {
			return nil, fmt.Errorf("%w: decode gbk csv: %v", ErrParseFailure, err)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse csv: %v", ErrParseFailure, err)
	}
	return rows, nil
}
