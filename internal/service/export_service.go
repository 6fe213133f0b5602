package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-retake-api/internal/dto"
	"github.com/noah-isme/academy-retake-api/internal/models"
	"github.com/noah-isme/academy-retake-api/pkg/export"
	appErrors "github.com/noah-isme/academy-retake-api/pkg/errors"
)

type retakeLister interface {
	ListFiltered(ctx context.Context, query dto.ListQuery) (*dto.ListResult, error)
}

// ExportService renders the filtered working set as a downloadable file,
// reusing the exact same criteria pipeline as the list endpoint so an
// export always matches what the operator sees on screen.
type ExportService struct {
	retakes retakeLister
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	maxRows int
	logger  *zap.Logger
}

// ExportResult is a rendered export ready to stream.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// NewExportService constructs the service.
func NewExportService(retakes retakeLister, maxRows int, logger *zap.Logger) *ExportService {
	if maxRows <= 0 {
		maxRows = 5000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		retakes: retakes,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		maxRows: maxRows,
		logger:  logger,
	}
}

// Export renders the filtered list in the requested format (csv or pdf).
func (s *ExportService) Export(ctx context.Context, query dto.ListQuery, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	result, err := s.retakes.ListFiltered(ctx, query)
	if err != nil {
		return nil, err
	}
	items := result.Items
	if len(items) > s.maxRows {
		s.logger.Warn("export truncated", zap.Int("rows", len(items)), zap.Int("max", s.maxRows))
		items = items[:s.maxRows]
	}

	dataset := buildDataset(items)
	stamp := time.Now().UTC().Format("20060102-150405")

	switch format {
	case "csv":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("retakes-%s.csv", stamp),
		}, nil
	default:
		content, err := s.pdf.Render(dataset, "Retake Assignments")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("retakes-%s.pdf", stamp),
		}, nil
	}
}

func buildDataset(items []models.RetakeListItem) export.Dataset {
	headers := []string{"Student", "Course", "Exam", "Status", "Scheduled", "Postpones", "Absences", "Management Status"}
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		scheduled := ""
		if item.ScheduledDate != nil {
			scheduled = item.ScheduledDate.Format(dateLayout)
		}
		managementStatus := ""
		if item.ManagementStatus != nil {
			managementStatus = *item.ManagementStatus
		}
		rows = append(rows, map[string]string{
			"Student":           item.StudentName,
			"Course":            item.CourseName,
			"Exam":              item.ExamName,
			"Status":            string(item.Status),
			"Scheduled":         scheduled,
			"Postpones":         strconv.Itoa(item.PostponeCount),
			"Absences":          strconv.Itoa(item.AbsentCount),
			"Management Status": managementStatus,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
