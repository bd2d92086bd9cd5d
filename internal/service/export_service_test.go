package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
)

func newTestExportService() *ExportService {
	store := newMemStore()
	seedHub(store)
	return NewExportService(NewAggregationService(store, nil, nil, 0, nil), nil, nil, nil, nil)
}

func TestParseExportFormat(t *testing.T) {
	format, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, ExportCSV, format)

	format, err = ParseExportFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, ExportXLSX, format)

	_, err = ParseExportFormat("docx")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportBroadsheetCSV(t *testing.T) {
	file, err := newTestExportService().Broadsheet(context.Background(), testHub, "MOCK 1", ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "SSMAP-2026-0001_MOCK_1_broadsheet.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Rank,Index,Name,English Language,Mathematics,"))
	assert.True(t, strings.HasSuffix(lines[0], ",Aggregate,Total,Rate %,Category,Status"))
	assert.Equal(t, "1,2,Kofi Boateng,1,1,1,1,,,,,1,1,6,540,90,EXCELLENT,complete", lines[1])
	assert.True(t, strings.HasPrefix(lines[3], "-,3,Esi Owusu,"))
	assert.True(t, strings.HasSuffix(lines[3], ",0,0,0,,no data"))
}

func TestExportBroadsheetXLSX(t *testing.T) {
	file, err := newTestExportService().Broadsheet(context.Background(), testHub, "", ExportXLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Broadsheet", "Statistics"}, f.GetSheetList())
	name, err := f.GetCellValue("Broadsheet", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Kofi Boateng", name)
	subject, err := f.GetCellValue("Statistics", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Computing", subject)
}

func TestExportBroadsheetPDF(t *testing.T) {
	file, err := newTestExportService().Broadsheet(context.Background(), testHub, "MOCK 1", ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestExportReportCardPDF(t *testing.T) {
	svc := newTestExportService()

	file, err := svc.ReportCardPDF(context.Background(), testHub, 1, "")
	require.NoError(t, err)
	assert.Equal(t, "SSMAP-2026-0001_1_MOCK_1_report.pdf", file.Filename)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))

	_, err = svc.ReportCardPDF(context.Background(), testHub, 99, "")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
