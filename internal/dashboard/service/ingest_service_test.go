package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"stock-dashboard/internal/entity"
	"stock-dashboard/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

func newTestIngest(t *testing.T) *ingestService {
	t.Helper()
	return &ingestService{
		logger: logger.NewNop(),
		now:    func() time.Time { return time.UnixMilli(1756700000000) },
	}
}

func TestIngestChineseHeaders(t *testing.T) {
	rows := [][]string{
		{"代码", "简称", "现价"},
		{"600000", "PuFa", "7.5"},
		{"sz000001", "PingAn", "12.0"},
		{"600000", "PuFa", "7.6"},
	}

	tab, err := newTestIngest(t).Ingest(rows, "holdings.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "import_1756700000000", tab.ID)
	assert.Equal(t, "holdings", tab.Name)
	require.Len(t, tab.Stocks, 2)
	assert.Equal(t, entity.StockRecord{Code: "600000", Name: "PuFa", Price: "7.5"}, tab.Stocks[0])
	assert.Equal(t, entity.StockRecord{Code: "000001", Name: "PingAn", Price: "12.0"}, tab.Stocks[1])
}

func TestIngestEnglishHeaders(t *testing.T) {
	rows := [][]string{
		{"Stock Code", "Stock Name", "Industry", "Close"},
		{"300750", "CATL", "Battery", "180.2"},
	}

	tab, err := newTestIngest(t).Ingest(rows, "export.csv")
	require.NoError(t, err)
	require.Len(t, tab.Stocks, 1)
	assert.Equal(t, entity.StockRecord{Code: "300750", Name: "CATL", Price: "180.2", Concept: "Battery"}, tab.Stocks[0])
}

func TestIngestAgencyStrictColumnWins(t *testing.T) {
	// The count column appears before the name column; the strict tier must
	// still pick the name column.
	rows := [][]string{
		{"代码", "机构调研次数", "调研机构名称"},
		{"600000", "5", "中金公司;中信证券"},
	}

	tab, err := newTestIngest(t).Ingest(rows, "research.xlsx")
	require.NoError(t, err)
	require.Len(t, tab.Stocks, 1)
	assert.Equal(t, []string{"中金公司", "中信证券"}, tab.Stocks[0].Agencies)
}

func TestIngestAgencyBroadFallbackSkipsCountColumns(t *testing.T) {
	rows := [][]string{
		{"代码", "机构次数", "参与机构"},
		{"600000", "3", "高盛"},
	}

	tab, err := newTestIngest(t).Ingest(rows, "research.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"高盛"}, tab.Stocks[0].Agencies)
}

func TestIngestAgencyMergeAcrossDuplicateRows(t *testing.T) {
	rows := [][]string{
		{"代码", "简称", "调研机构名称"},
		{"600000", "PuFa", "中金公司；中信证券"},
		{"600000", "PuFa", "中信证券;高盛"},
		{"600000", "PuFa", "--"},
		{"600000", "PuFa", "null"},
		{"600000", "PuFa", ""},
	}

	tab, err := newTestIngest(t).Ingest(rows, "research.xlsx")
	require.NoError(t, err)
	require.Len(t, tab.Stocks, 1)
	assert.Equal(t, []string{"中金公司", "中信证券", "高盛"}, tab.Stocks[0].Agencies)
}

func TestIngestSkipsRowsWithoutCode(t *testing.T) {
	rows := [][]string{
		{"代码", "简称"},
		{"", "blank"},
		{"数据来源：同花顺", ""},
		{"600000", "PuFa"},
	}

	tab, err := newTestIngest(t).Ingest(rows, "holdings.xlsx")
	require.NoError(t, err)
	require.Len(t, tab.Stocks, 1)
	assert.Equal(t, "600000", tab.Stocks[0].Code)
}

func TestIngestErrors(t *testing.T) {
	svc := newTestIngest(t)

	_, err := svc.Ingest(nil, "empty.xlsx")
	assert.ErrorIs(t, err, ErrEmptyOrInvalidFile)

	_, err = svc.Ingest([][]string{{"代码", "简称"}}, "header-only.xlsx")
	assert.ErrorIs(t, err, ErrEmptyOrInvalidFile)

	_, err = svc.Ingest([][]string{
		{"名称", "价格"},
		{"PuFa", "7.5"},
	}, "no-code.xlsx")
	assert.ErrorIs(t, err, ErrMissingCodeColumn)

	_, err = svc.Ingest([][]string{
		{"代码", "简称"},
		{"n/a", "footer"},
	}, "no-valid.xlsx")
	assert.ErrorIs(t, err, ErrEmptyOrInvalidFile)
}

func TestIngestTabNameTruncation(t *testing.T) {
	tab, err := newTestIngest(t).Ingest([][]string{
		{"代码"},
		{"600000"},
	}, "一二三四五六七八九十一二三四五六七八九十超出部分.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "一二三四五六七八九十一二三四五六七八九十", tab.Name)
	assert.Len(t, []rune(tab.Name), 20)
}

func TestIngestShortRowsTolerated(t *testing.T) {
	rows := [][]string{
		{"代码", "简称", "现价", "概念"},
		{"600000"},
		{"000001", "PingAn"},
	}

	tab, err := newTestIngest(t).Ingest(rows, "ragged.csv")
	require.NoError(t, err)
	require.Len(t, tab.Stocks, 2)
	assert.Empty(t, tab.Stocks[0].Name)
	assert.Equal(t, "PingAn", tab.Stocks[1].Name)
}

func TestIngestFileCSVUTF8(t *testing.T) {
	csvData := "代码,简称,现价\n600000,浦发银行,7.5\n"

	tab, err := newTestIngest(t).IngestFile(context.Background(), "holdings.csv", strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, tab.Stocks, 1)
	assert.Equal(t, "浦发银行", tab.Stocks[0].Name)
}

func TestIngestFileCSVGBK(t *testing.T) {
	csvData := "代码,简称\n600000,浦发银行\n"
	gbk, err := io.ReadAll(transform.NewReader(strings.NewReader(csvData), simplifiedchinese.GBK.NewEncoder()))
	require.NoError(t, err)

	tab, err := newTestIngest(t).IngestFile(context.Background(), "holdings.csv", bytes.NewReader(gbk))
	require.NoError(t, err)
	require.Len(t, tab.Stocks, 1)
	assert.Equal(t, "浦发银行", tab.Stocks[0].Name)
}

func TestIngestFileUnsupportedExtension(t *testing.T) {
	_, err := newTestIngest(t).IngestFile(context.Background(), "notes.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestIngestFileInvalidWorkbook(t *testing.T) {
	_, err := newTestIngest(t).IngestFile(context.Background(), "broken.xlsx", strings.NewReader("not a zip"))
	assert.ErrorIs(t, err, ErrParseFailure)
}
