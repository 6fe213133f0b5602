package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-retake-api/internal/dto"
	appErrors "github.com/noah-isme/academy-retake-api/pkg/errors"
)

type listerStub struct {
	result *dto.ListResult
	query  dto.ListQuery
}

func (l *listerStub) ListFiltered(_ context.Context, query dto.ListQuery) (*dto.ListResult, error) {
	l.query = query
	return l.result, nil
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(&listerStub{result: &dto.ListResult{}}, 0, nil)

	_, err := svc.Export(context.Background(), dto.ListQuery{}, "xlsx")
	requireErrorCode(t, err, appErrors.ErrValidation.Code)
	_, err = svc.Export(context.Background(), dto.ListQuery{}, "")
	requireErrorCode(t, err, appErrors.ErrValidation.Code)
}

func TestExportCSVContainsFilteredRows(t *testing.T) {
	lister := &listerStub{result: &dto.ListResult{Items: sampleWorkingSet()}}
	svc := NewExportService(lister, 0, nil)

	result, err := svc.Export(context.Background(), dto.ListQuery{HideCompleted: true}, "csv")
	require.NoError(t, err)
	require.Equal(t, "text/csv", result.ContentType)
	require.True(t, strings.HasPrefix(result.Filename, "retakes-"))
	require.True(t, strings.HasSuffix(result.Filename, ".csv"))

	body := string(result.Content)
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 5) // header + 4 rows
	require.Contains(t, lines[0], "Student")
	require.Contains(t, lines[0], "Postpones")
	require.Contains(t, body, "Ada Lovelace")
	require.Contains(t, body, "2025-03-01")

	// export runs the same criteria pipeline as the list endpoint
	require.True(t, lister.query.HideCompleted)
}

func TestExportPDFRenders(t *testing.T) {
	svc := NewExportService(&listerStub{result: &dto.ListResult{Items: sampleWorkingSet()}}, 0, nil)

	result, err := svc.Export(context.Background(), dto.ListQuery{}, "pdf")
	require.NoError(t, err)
	require.Equal(t, "application/pdf", result.ContentType)
	require.True(t, strings.HasSuffix(result.Filename, ".pdf"))
	require.NotEmpty(t, result.Content)
	require.True(t, strings.HasPrefix(string(result.Content[:5]), "%PDF-"))
}

func TestExportTruncatesAtMaxRows(t *testing.T) {
	svc := NewExportService(&listerStub{result: &dto.ListResult{Items: sampleWorkingSet()}}, 2, nil)

	result, err := svc.Export(context.Background(), dto.ListQuery{}, "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(result.Content)), "\n")
	require.Len(t, lines, 3) // header + capped rows
}
