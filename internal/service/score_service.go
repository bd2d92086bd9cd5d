package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ssmap-api/internal/engine"
	"github.com/noah-isme/ssmap-api/internal/models"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
	"github.com/noah-isme/ssmap-api/pkg/importer"
)

type activityRecorder interface {
	RecordActivity(ctx context.Context, hubID string, studentCount int) error
}

// ImportResult summarises a roster import.
type ImportResult struct {
	Imported int              `json:"imported"`
	Students []models.Student `json:"students"`
}

// ScoreService records enrolment, scores and per-series pupil records.
type ScoreService struct {
	store     schoolStore
	cache     broadsheetInvalidator
	activity  activityRecorder
	metrics   *MetricsService
	locks     *HubLocks
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScoreService constructs the score service.
func NewScoreService(store schoolStore, cache broadsheetInvalidator, activity activityRecorder, metrics *MetricsService, locks *HubLocks, validate *validator.Validate, logger *zap.Logger) *ScoreService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = NewHubLocks()
	}
	return &ScoreService{store: store, cache: cache, activity: activity, metrics: metrics, locks: locks, validator: validate, logger: logger}
}

// Enroll adds a pupil with an empty record and the next free index number.
func (s *ScoreService) Enroll(ctx context.Context, hubID string, req models.EnrollStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	var created models.Student
	err := s.update(ctx, hubID, func(data *models.SchoolData) error {
		created = models.Student{
			ID:            nextStudentID(data.Students),
			Name:          strings.TrimSpace(req.Name),
			Gender:        req.Gender,
			ParentContact: strings.TrimSpace(req.ParentContact),
			MockData:      map[string]models.MockSet{},
		}
		data.Students = append(data.Students, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// ImportRoster validates a roster document and enrolls every row. Rows that
// carry an index number already in use are rejected.
func (s *ScoreService) ImportRoster(ctx context.Context, hubID string, payload []byte) (*ImportResult, error) {
	roster, err := importer.Parse(payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	result := &ImportResult{}
	err = s.update(ctx, hubID, func(data *models.SchoolData) error {
		incoming := roster.Records(nextStudentID(data.Students))
		cfg, _ := engine.FromSettings(data.Settings).Normalize()
		for i := range incoming {
			st := &incoming[i]
			if findStudent(data.Students, st.ID) >= 0 {
				return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("index number %d is already enrolled", st.ID))
			}
			if err := normalizeImported(st, data.Settings, cfg); err != nil {
				return err
			}
		}
		data.Students = append(data.Students, incoming...)
		result.Students = incoming
		result.Imported = len(incoming)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpsertScore records a single subject score.
func (s *ScoreService) UpsertScore(ctx context.Context, hubID string, req models.ScoreEntryRequest) (*models.ScoreEntryResult, error) {
	return s.BulkUpsert(ctx, hubID, models.BulkScoreRequest{Series: req.Series, Atomic: true, Entries: []models.ScoreEntryRequest{req}})
}

// BulkUpsert records many scores. Raw values outside their maxima are clamped
// and reported. In atomic mode one bad entry rejects the batch; otherwise the
// valid entries are saved and the rest reported as failed.
func (s *ScoreService) BulkUpsert(ctx context.Context, hubID string, req models.BulkScoreRequest) (*models.ScoreEntryResult, error) {
	if len(req.Entries) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one score entry is required")
	}
	result := &models.ScoreEntryResult{}
	err := s.update(ctx, hubID, func(data *models.SchoolData) error {
		cfg, _ := engine.FromSettings(data.Settings).Normalize()
		for i, entry := range req.Entries {
			if entry.Series == "" {
				entry.Series = req.Series
			}
			events, err := s.applyScore(data, entry, cfg)
			if err != nil {
				if req.Atomic {
					return err
				}
				result.Failed = append(result.Failed, models.ScoreEntryError{Index: i, Message: appErrors.FromError(err).Message})
				continue
			}
			result.Saved++
			result.Clamped = append(result.Clamped, events...)
		}
		if result.Saved == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "no score entries were valid")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if n := len(result.Clamped); n > 0 {
		s.metrics.RecordClamps(n)
		s.logger.Warn("score values clamped", zap.String("hub_id", hubID), zap.Int("count", n))
	}
	return result, nil
}

func (s *ScoreService) applyScore(data *models.SchoolData, entry models.ScoreEntryRequest, cfg engine.Configuration) ([]models.ClampEvent, error) {
	if err := s.validator.Struct(entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid score entry")
	}
	series, err := resolveSeries(data.Settings, entry.Series)
	if err != nil {
		return nil, err
	}
	subject, ok := matchSubject(data.Settings.Subjects, entry.Subject)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject "+entry.Subject)
	}
	idx := findStudent(data.Students, entry.StudentID)
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %d not found", entry.StudentID))
	}

	n := engine.NormalizeScore(models.SubjectScore{SectionA: entry.SectionA, SectionB: entry.SectionB, SBA: entry.SBA}, cfg)
	for i := range n.Clamped {
		n.Clamped[i].StudentID = entry.StudentID
		n.Clamped[i].Subject = subject
	}

	st := &data.Students[idx]
	set := mockSet(st, series)
	set.Scores[subject] = models.SubjectScore{SectionA: n.SectionA, SectionB: n.SectionB, SBA: n.SBA}
	if remark := strings.TrimSpace(entry.Remark); remark != "" {
		if set.FacilitatorRemarks == nil {
			set.FacilitatorRemarks = map[string]string{}
		}
		set.FacilitatorRemarks[subject] = remark
	}
	st.MockData[series] = set
	return n.Clamped, nil
}

// UpdateConduct records attendance, conduct and exam-official observations.
func (s *ScoreService) UpdateConduct(ctx context.Context, hubID string, studentID int, req models.ConductUpdateRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conduct payload")
	}
	return s.updateStudent(ctx, hubID, studentID, req.Series, func(data *models.SchoolData, set *models.MockSet) error {
		if total := data.Settings.AttendanceTotal; total > 0 && req.Attendance > total {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("attendance %d exceeds the %d sessions held", req.Attendance, total))
		}
		set.Attendance = req.Attendance
		set.ConductRemark = strings.TrimSpace(req.ConductRemark)
		set.Observations = req.Observations
		return nil
	})
}

// UpdateRemark records a facilitator's remark on one subject.
func (s *ScoreService) UpdateRemark(ctx context.Context, hubID string, studentID int, req models.RemarkUpdateRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid remark payload")
	}
	return s.updateStudent(ctx, hubID, studentID, req.Series, func(data *models.SchoolData, set *models.MockSet) error {
		subject, ok := matchSubject(data.Settings.Subjects, req.Subject)
		if !ok {
			return appErrors.Clone(appErrors.ErrValidation, "unknown subject "+req.Subject)
		}
		if set.FacilitatorRemarks == nil {
			set.FacilitatorRemarks = map[string]string{}
		}
		if remark := strings.TrimSpace(req.Remark); remark != "" {
			set.FacilitatorRemarks[subject] = remark
		} else {
			delete(set.FacilitatorRemarks, subject)
		}
		return nil
	})
}

// RecordBece stores a pupil's final external examination grades for a year.
func (s *ScoreService) RecordBece(ctx context.Context, hubID string, studentID int, req models.BeceEntryRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bece payload")
	}
	var updated models.Student
	err := s.update(ctx, hubID, func(data *models.SchoolData) error {
		idx := findStudent(data.Students, studentID)
		if idx < 0 {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %d not found", studentID))
		}
		grades := make(map[string]int, len(req.Grades))
		for name, grade := range req.Grades {
			subject, ok := matchSubject(data.Settings.Subjects, name)
			if !ok {
				return appErrors.Clone(appErrors.ErrValidation, "unknown subject "+name)
			}
			grades[subject] = grade
		}
		st := &data.Students[idx]
		if st.BeceResults == nil {
			st.BeceResults = map[string]models.BeceResult{}
		}
		st.BeceResults[req.Year] = models.BeceResult{Year: req.Year, Grades: grades}
		updated = st.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// UpdateFacilitators replaces the subject to facilitator assignments. Each
// assignment is keyed by its taught subject and staff ids must be unique.
func (s *ScoreService) UpdateFacilitators(ctx context.Context, hubID string, assignments []models.StaffAssignment) (models.Facilitators, error) {
	unlock := s.locks.Lock(hubID)
	defer unlock()

	data, err := loadSchool(ctx, s.store, hubID)
	if err != nil {
		return nil, err
	}
	out := make(models.Facilitators, len(assignments))
	seen := make(map[string]struct{}, len(assignments))
	for _, a := range assignments {
		if err := s.validator.Struct(a); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid facilitator assignment")
		}
		subject, ok := matchSubject(data.Settings.Subjects, a.TaughtSubject)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject "+a.TaughtSubject)
		}
		id := strings.TrimSpace(a.EnrolledID)
		if _, dup := seen[id]; dup {
			return nil, appErrors.Clone(appErrors.ErrConflict, "staff id "+id+" is assigned twice")
		}
		if _, dup := out[subject]; dup {
			return nil, appErrors.Clone(appErrors.ErrConflict, subject+" has more than one facilitator")
		}
		seen[id] = struct{}{}
		a.EnrolledID = id
		a.TaughtSubject = subject
		a.Name = strings.TrimSpace(a.Name)
		out[subject] = a
	}
	if err := s.store.SaveFacilitators(ctx, hubID, out); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save facilitators")
	}
	s.invalidate(ctx, hubID)
	return out, nil
}

func (s *ScoreService) updateStudent(ctx context.Context, hubID string, studentID int, series string, fn func(*models.SchoolData, *models.MockSet) error) (*models.Student, error) {
	var updated models.Student
	err := s.update(ctx, hubID, func(data *models.SchoolData) error {
		resolved, err := resolveSeries(data.Settings, series)
		if err != nil {
			return err
		}
		idx := findStudent(data.Students, studentID)
		if idx < 0 {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %d not found", studentID))
		}
		st := &data.Students[idx]
		set := mockSet(st, resolved)
		if err := fn(data, &set); err != nil {
			return err
		}
		st.MockData[resolved] = set
		updated = st.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// update runs fn against the hub's data under the hub lock and persists the
// student shard when fn succeeds.
func (s *ScoreService) update(ctx context.Context, hubID string, fn func(*models.SchoolData) error) error {
	unlock := s.locks.Lock(hubID)
	defer unlock()

	data, err := loadSchool(ctx, s.store, hubID)
	if err != nil {
		return err
	}
	before := len(data.Students)
	if err := fn(data); err != nil {
		return err
	}
	if err := s.store.SaveStudents(ctx, hubID, data.Students); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save students")
	}
	s.invalidate(ctx, hubID)
	if len(data.Students) != before && s.activity != nil {
		if err := s.activity.RecordActivity(ctx, hubID, len(data.Students)); err != nil {
			s.logger.Warn("failed to record registry activity", zap.String("hub_id", hubID), zap.Error(err))
		}
	}
	return nil
}

func (s *ScoreService) invalidate(ctx context.Context, hubID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, broadsheetPattern(hubID)); err != nil {
		s.logger.Warn("broadsheet cache invalidation failed", zap.String("hub_id", hubID), zap.Error(err))
	}
}

func mockSet(st *models.Student, series string) models.MockSet {
	if st.MockData == nil {
		st.MockData = map[string]models.MockSet{}
	}
	set := st.MockData[series]
	if set.Scores == nil {
		set.Scores = map[string]models.SubjectScore{}
	}
	return set
}

// normalizeImported maps imported subject names onto the catalogue and clamps
// raw scores the same way score entry does.
func normalizeImported(st *models.Student, settings models.Settings, cfg engine.Configuration) error {
	for series, set := range st.MockData {
		if _, err := resolveSeries(settings, series); err != nil {
			return err
		}
		scores := make(map[string]models.SubjectScore, len(set.Scores))
		for name, raw := range set.Scores {
			subject, ok := matchSubject(settings.Subjects, name)
			if !ok {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("student %d: unknown subject %s", st.ID, name))
			}
			n := engine.NormalizeScore(raw, cfg)
			scores[subject] = models.SubjectScore{SectionA: n.SectionA, SectionB: n.SectionB, SBA: n.SBA}
		}
		set.Scores = scores
		st.MockData[series] = set
	}
	return nil
}

func matchSubject(subjects []string, name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, s := range subjects {
		if strings.EqualFold(s, name) {
			return s, true
		}
	}
	return "", false
}

func nextStudentID(students []models.Student) int {
	next := 1
	for _, st := range students {
		if st.ID >= next {
			next = st.ID + 1
		}
	}
	return next
}
