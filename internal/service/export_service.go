package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/ssmap-api/internal/engine"
	"github.com/noah-isme/ssmap-api/pkg/export"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
)

// ExportFormat is a rendered file type.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportPDF  ExportFormat = "pdf"
	ExportXLSX ExportFormat = "xlsx"
)

var exportContentTypes = map[ExportFormat]string{
	ExportCSV:  "text/csv",
	ExportPDF:  "application/pdf",
	ExportXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ExportFile is a rendered document ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type reportSource interface {
	Broadsheet(ctx context.Context, hubID, series string) (*Broadsheet, bool, error)
	ReportCard(ctx context.Context, hubID string, studentID int, series string) (*ReportCard, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderDocument(doc export.Document) ([]byte, error)
}

type xlsxRenderer interface {
	RenderSheets(sheets []export.Sheet) ([]byte, error)
}

// ExportService renders broadsheets and report cards.
type ExportService struct {
	source reportSource
	csv    csvRenderer
	pdf    pdfRenderer
	xlsx   xlsxRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers get the defaults.
func NewExportService(source reportSource, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer, xlsx xlsxRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	return &ExportService{source: source, csv: csv, pdf: pdf, xlsx: xlsx, logger: logger}
}

// ParseExportFormat validates a requested format.
func ParseExportFormat(raw string) (ExportFormat, error) {
	format := ExportFormat(strings.ToLower(strings.TrimSpace(raw)))
	if format == "" {
		return ExportCSV, nil
	}
	if _, ok := exportContentTypes[format]; !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
	}
	return format, nil
}

// Broadsheet renders the class broadsheet of a series.
func (s *ExportService) Broadsheet(ctx context.Context, hubID, series string, format ExportFormat) (*ExportFile, error) {
	sheet, _, err := s.source.Broadsheet(ctx, hubID, series)
	if err != nil {
		return nil, err
	}
	data, err := RenderBroadsheet(sheet, format, s.csv, s.pdf, s.xlsx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render broadsheet")
	}
	s.logger.Debug("broadsheet exported", zap.String("hub_id", hubID), zap.String("format", string(format)), zap.Int("bytes", len(data)))
	return &ExportFile{
		Filename:    sanitizeFilename(fmt.Sprintf("%s_%s_broadsheet.%s", hubID, sheet.Result.Series, format)),
		ContentType: exportContentTypes[format],
		Data:        data,
	}, nil
}

// ReportCardPDF renders one pupil's report card.
func (s *ExportService) ReportCardPDF(ctx context.Context, hubID string, studentID int, series string) (*ExportFile, error) {
	card, err := s.source.ReportCard(ctx, hubID, studentID, series)
	if err != nil {
		return nil, err
	}
	data, err := s.pdf.RenderDocument(ReportCardDocument(card))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report card")
	}
	return &ExportFile{
		Filename:    sanitizeFilename(fmt.Sprintf("%s_%d_%s_report.pdf", hubID, studentID, card.Series)),
		ContentType: exportContentTypes[ExportPDF],
		Data:        data,
	}, nil
}

// RenderBroadsheet renders a broadsheet with the given renderers.
func RenderBroadsheet(sheet *Broadsheet, format ExportFormat, csv csvRenderer, pdf pdfRenderer, xlsx xlsxRenderer) ([]byte, error) {
	dataset := BroadsheetDataset(sheet)
	switch format {
	case ExportCSV:
		return csv.Render(dataset)
	case ExportPDF:
		title := strings.TrimSpace(fmt.Sprintf("%s %s broadsheet", sheet.School.SchoolName, sheet.Result.Series))
		return pdf.Render(dataset, title)
	case ExportXLSX:
		return xlsx.RenderSheets([]export.Sheet{
			{Name: "Broadsheet", Data: dataset},
			{Name: "Statistics", Data: StatisticsDataset(sheet.Result.Statistics)},
		})
	default:
		return nil, fmt.Errorf("unsupported format %s", format)
	}
}

// BroadsheetDataset flattens a broadsheet into one row per student with a
// grade column per configured subject.
func BroadsheetDataset(sheet *Broadsheet) export.Dataset {
	headers := []string{"Rank", "Index", "Name"}
	headers = append(headers, sheet.Subjects...)
	headers = append(headers, "Aggregate", "Total", "Rate %", "Category", "Status")

	rows := make([]map[string]string, 0, len(sheet.Result.Students))
	for _, st := range sheet.Result.Students {
		row := map[string]string{
			"Rank":      rankLabel(st.Rank),
			"Index":     strconv.Itoa(st.ID),
			"Name":      st.Name,
			"Aggregate": strconv.Itoa(st.BestSixAggregate),
			"Total":     formatFloat(st.TotalScore),
			"Rate %":    formatFloat(st.Rate),
			"Category":  st.Category,
			"Status":    completeness(st),
		}
		for _, subject := range sheet.Subjects {
			if res, ok := st.Subject(subject); ok {
				row[subject] = strconv.Itoa(res.Grade)
			}
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

// StatisticsDataset lists per-subject class statistics.
func StatisticsDataset(stats engine.ClassStatistics) export.Dataset {
	headers := []string{"Subject", "Count", "Mean", "Std Dev", "Min", "Max", "Median"}
	rows := make([]map[string]string, 0, len(stats.Subjects))
	subjects := make([]string, 0, len(stats.Subjects))
	for subject := range stats.Subjects {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	for _, subject := range subjects {
		st := stats.Subjects[subject]
		rows = append(rows, map[string]string{
			"Subject": subject,
			"Count":   strconv.Itoa(st.Count),
			"Mean":    formatFloat(st.Mean),
			"Std Dev": formatFloat(st.StdDev),
			"Min":     formatFloat(st.Min),
			"Max":     formatFloat(st.Max),
			"Median":  formatFloat(st.P50),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

// ReportCardDocument lays out a report card.
func ReportCardDocument(card *ReportCard) export.Document {
	st := card.Student
	subtitle := []string{}
	if card.School.SchoolAddress != "" {
		subtitle = append(subtitle, card.School.SchoolAddress)
	}
	subtitle = append(subtitle,
		strings.TrimSpace(fmt.Sprintf("%s %s %s", card.School.ExamTitle, card.School.AcademicYear, card.School.Term)),
		fmt.Sprintf("%s (Index %d) - %s", st.Name, st.ID, card.Series),
	)

	subjects := export.Dataset{Headers: []string{"Subject", "Obj", "Theory", "SBA", "Score", "Grade", "Remark", "Facilitator"}}
	for _, res := range st.Subjects {
		sba := ""
		if res.SBA != nil {
			sba = formatFloat(*res.SBA)
		}
		remark := res.Remark
		if remark == "" {
			remark = res.GradeRemark
		}
		subjects.Rows = append(subjects.Rows, map[string]string{
			"Subject":     res.Subject,
			"Obj":         formatFloat(res.SectionA),
			"Theory":      formatFloat(res.SectionB),
			"SBA":         sba,
			"Score":       formatFloat(res.Composite),
			"Grade":       strconv.Itoa(res.Grade),
			"Remark":      remark,
			"Facilitator": res.Facilitator,
		})
	}

	summary := export.Dataset{
		Headers: []string{"Aggregate", "Category", "Position", "Total", "Rate %", "Attendance"},
		Rows: []map[string]string{{
			"Aggregate":  strconv.Itoa(st.BestSixAggregate),
			"Category":   st.Category,
			"Position":   fmt.Sprintf("%s of %d", rankLabel(st.Rank), card.ClassSize),
			"Total":      formatFloat(st.TotalScore),
			"Rate %":     formatFloat(st.Rate),
			"Attendance": fmt.Sprintf("%d / %d", st.Attendance, card.AttendanceTotal),
		}},
	}

	sections := []export.Section{{Heading: "Subjects", Data: subjects}, {Heading: "Summary", Data: summary}}
	if len(card.Timeline) > 0 {
		history := export.Dataset{Headers: []string{"Series", "Aggregate", "Position", "Category", "Growth"}}
		for _, t := range card.Timeline {
			history.Rows = append(history.Rows, map[string]string{
				"Series":    t.Series,
				"Aggregate": strconv.Itoa(t.Aggregate),
				"Position":  rankLabel(t.Rank),
				"Category":  t.Category,
				"Growth":    strconv.FormatFloat(t.Growth, 'f', 2, 64),
			})
		}
		sections = append(sections, export.Section{Heading: "Progress", Data: history})
	}

	var footer []string
	if st.ConductRemark != "" {
		footer = append(footer, "Conduct: "+st.ConductRemark)
	}
	if st.Incomplete {
		footer = append(footer, "Aggregate computed on incomplete data.")
	}
	if card.School.HeadTeacher != "" {
		footer = append(footer, "Head teacher: "+card.School.HeadTeacher)
	}

	return export.Document{Title: card.School.SchoolName, Subtitle: subtitle, Sections: sections, Footer: footer}
}

func rankLabel(rank int) string {
	if rank <= 0 {
		return "-"
	}
	return strconv.Itoa(rank)
}

func completeness(st engine.ProcessedStudent) string {
	switch {
	case st.RecordedSubjects == 0:
		return "no data"
	case st.Incomplete:
		return "incomplete"
	default:
		return "complete"
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sanitizeFilename(raw string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, raw)
}
