package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ssmap-api/internal/engine"
	"github.com/noah-isme/ssmap-api/internal/models"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
)

type broadsheetCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// SchoolHeader carries the identity printed on reports.
type SchoolHeader struct {
	HubID         string `json:"hub_id"`
	SchoolName    string `json:"school_name"`
	SchoolAddress string `json:"school_address,omitempty"`
	HeadTeacher   string `json:"head_teacher,omitempty"`
	ExamTitle     string `json:"exam_title,omitempty"`
	AcademicYear  string `json:"academic_year,omitempty"`
	Term          string `json:"term,omitempty"`
}

// Broadsheet is the processed class view of one series.
type Broadsheet struct {
	School   SchoolHeader  `json:"school"`
	Subjects []string      `json:"subjects"`
	Result   engine.Result `json:"result"`
}

// ReportCard is one pupil's processed result with class context.
type ReportCard struct {
	School                SchoolHeader                        `json:"school"`
	Series                string                              `json:"series"`
	Student               engine.ProcessedStudent             `json:"student"`
	ClassSize             int                                 `json:"class_size"`
	ClassAverageAggregate float64                             `json:"class_average_aggregate"`
	AttendanceTotal       int                                 `json:"attendance_total"`
	SubjectStatistics     map[string]engine.SubjectStatistics `json:"subject_statistics"`
	Timeline              []engine.TimelineEntry              `json:"timeline"`
}

// AggregationService computes broadsheets, report cards and class statistics.
type AggregationService struct {
	store   schoolReader
	cache   broadsheetCache
	metrics *MetricsService
	logger  *zap.Logger
	ttl     time.Duration
}

// NewAggregationService constructs the aggregation service.
func NewAggregationService(store schoolReader, cache broadsheetCache, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *AggregationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AggregationService{store: store, cache: cache, metrics: metrics, ttl: ttl, logger: logger}
}

// Broadsheet processes a series for the whole class. An empty series means the
// active one. The second return reports whether the result came from cache.
func (s *AggregationService) Broadsheet(ctx context.Context, hubID, series string) (*Broadsheet, bool, error) {
	data, err := loadSchool(ctx, s.store, hubID)
	if err != nil {
		return nil, false, err
	}
	return s.broadsheetFor(ctx, data, series)
}

func (s *AggregationService) broadsheetFor(ctx context.Context, data *models.SchoolData, series string) (*Broadsheet, bool, error) {
	series, err := resolveSeries(data.Settings, series)
	if err != nil {
		return nil, false, err
	}

	key, err := broadsheetKey(data, series)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fingerprint broadsheet")
	}
	if s.cache != nil {
		var cached Broadsheet
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	start := time.Now()
	result := engine.Process(data.Students, series, data.Facilitators, configFor(data.Settings))
	s.metrics.ObserveCompute("broadsheet", time.Since(start))
	for _, note := range result.Adjustments {
		s.logger.Warn("grading configuration adjusted", zap.String("hub_id", data.HubID), zap.String("note", note))
	}

	sheet := &Broadsheet{School: header(data), Subjects: append([]string(nil), data.Settings.Subjects...), Result: result}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, sheet, s.ttl); err != nil {
			s.logger.Warn("failed to cache broadsheet", zap.String("key", key), zap.Error(err))
		}
	}
	return sheet, false, nil
}

// ReportCard returns one pupil's processed result for a series.
func (s *AggregationService) ReportCard(ctx context.Context, hubID string, studentID int, series string) (*ReportCard, error) {
	data, err := loadSchool(ctx, s.store, hubID)
	if err != nil {
		return nil, err
	}
	idx := findStudent(data.Students, studentID)
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %d not found", studentID))
	}
	sheet, _, err := s.broadsheetFor(ctx, data, series)
	if err != nil {
		return nil, err
	}
	processed, _ := sheet.Result.Student(studentID)
	return &ReportCard{
		School:                sheet.School,
		Series:                sheet.Result.Series,
		Student:               processed,
		ClassSize:             len(sheet.Result.Students),
		ClassAverageAggregate: sheet.Result.ClassAverageAggregate,
		AttendanceTotal:       data.Settings.AttendanceTotal,
		SubjectStatistics:     sheet.Result.Statistics.Subjects,
		Timeline:              engine.Timeline(data.Students[idx], configFor(data.Settings)),
	}, nil
}

// Statistics returns the class statistics of a series.
func (s *AggregationService) Statistics(ctx context.Context, hubID, series string) (*engine.ClassStatistics, error) {
	data, err := loadSchool(ctx, s.store, hubID)
	if err != nil {
		return nil, err
	}
	series, err = resolveSeries(data.Settings, series)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	stats := engine.ComputeClassStatistics(data.Students, series, configFor(data.Settings))
	s.metrics.ObserveCompute("statistics", time.Since(start))
	return &stats, nil
}

func header(data *models.SchoolData) SchoolHeader {
	return SchoolHeader{
		HubID:         data.HubID,
		SchoolName:    data.Settings.SchoolName,
		SchoolAddress: data.Settings.SchoolAddress,
		HeadTeacher:   data.Settings.HeadTeacher,
		ExamTitle:     data.Settings.ExamTitle,
		AcademicYear:  data.Settings.AcademicYear,
		Term:          data.Settings.Term,
	}
}

// broadsheetKey fingerprints every input of a series computation so a stale
// entry can never be served after a write that skipped invalidation.
func broadsheetKey(data *models.SchoolData, series string) (string, error) {
	type scoreView struct {
		ID       int            `json:"id"`
		Name     string         `json:"name"`
		Gender   string         `json:"gender"`
		MockSet  models.MockSet `json:"mock_set"`
		Recorded bool           `json:"recorded"`
	}
	views := make([]scoreView, len(data.Students))
	for i, st := range data.Students {
		set, ok := st.MockData[series]
		views[i] = scoreView{ID: st.ID, Name: st.Name, Gender: st.Gender, MockSet: set, Recorded: ok}
	}
	payload, err := json.Marshal(struct {
		Settings     models.Settings     `json:"settings"`
		Facilitators models.Facilitators `json:"facilitators"`
		Students     []scoreView         `json:"students"`
	}{data.Settings, data.Facilitators, views})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("broadsheet:%s:%s:%s", data.HubID, series, hex.EncodeToString(sum[:8])), nil
}
