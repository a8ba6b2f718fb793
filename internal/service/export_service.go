package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/uni-obs/curricula-api/internal/models"
	"github.com/uni-obs/curricula-api/pkg/export"
	appErrors "github.com/uni-obs/curricula-api/pkg/errors"
)

// ExportFormat enumerates the grade-sheet output formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// GradeSheet is a rendered export ready to be written to the response.
type GradeSheet struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders the grade sheet of one assessment: the roster with
// each student's current score.
type ExportService struct {
	assessments assessmentRepository
	policy      *Policy
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(assessments assessmentRepository, policy *Policy, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{assessments: assessments, policy: policy, csv: csv, pdf: pdf, logger: logger}
}

// GradeSheet renders the grade sheet of an assessment in the requested
// format.
func (s *ExportService) GradeSheet(ctx context.Context, claims *models.JWTClaims, assessmentID string, format ExportFormat) (*GradeSheet, error) {
	assessment, err := s.assessments.FindByID(ctx, assessmentID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
	}
	if err := s.policy.requireManageCurriculum(ctx, claims, assessment.CurriculumID); err != nil {
		return nil, err
	}

	rows, err := s.assessments.ListGradeRows(ctx, assessmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade rows")
	}

	dataset := export.Dataset{
		Title: assessment.Name,
		Columns: []export.Column{
			{Name: "Username"},
			{Name: "Full Name"},
			{Name: "Score", Numeric: true},
			{Name: "Percentage", Numeric: true},
			{Name: "Contribution", Numeric: true},
		},
		Rows: make([][]string, 0, len(rows)),
	}
	for _, row := range rows {
		var score, percentage, contribution string
		if row.RawScore != nil {
			score = strconv.FormatFloat(*row.RawScore, 'f', -1, 64)
		}
		if pct := scorePercentage(row.RawScore, assessment.MaxScore); pct != nil {
			percentage = strconv.FormatFloat(*pct, 'f', 2, 64)
		}
		if contrib := scoreContribution(row.RawScore, assessment.MaxScore, assessment.WeightInCourse); contrib != nil {
			contribution = strconv.FormatFloat(*contrib, 'f', 2, 64)
		}
		dataset.Rows = append(dataset.Rows, []string{row.Username, row.FullName, score, percentage, contribution})
	}

	var payload []byte
	var contentType string
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render grade sheet")
	}

	return &GradeSheet{
		Filename:    fmt.Sprintf("grades-%s.%s", assessment.ID, format),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}
