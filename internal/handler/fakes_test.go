package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ssmap-api/internal/engine"
	"github.com/noah-isme/ssmap-api/internal/models"
	"github.com/noah-isme/ssmap-api/internal/service"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
)

const testHub = "SSMAP-2026-0001"

// tokenTable maps bearer tokens to fixed claims.
type tokenTable map[string]*models.HubClaims

func (t tokenTable) ValidateToken(token string) (*models.HubClaims, error) {
	if claims, ok := t[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func testTokens() tokenTable {
	return tokenTable{
		"super":   {Role: models.RoleSuperAdmin},
		"admin":   {HubID: testHub, Role: models.RoleAdmin},
		"maths":   {HubID: testHub, Role: models.RoleFacilitator, Subject: "Mathematics", StaffID: "STF-01"},
		"pupil-1": {HubID: testHub, Role: models.RolePupil, StudentID: 1},
	}
}

type authServiceStub struct{ req models.LoginRequest }

func (s *authServiceStub) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	s.req = req
	if req.AccessKey != "secret" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &models.LoginResponse{AccessToken: "token", Role: req.Role, HubID: req.HubID}, nil
}

type registryServiceStub struct{ entries []models.RegistryEntry }

func (s *registryServiceStub) Register(_ context.Context, req models.RegistrationRequest) (*models.RegistrationResponse, error) {
	return &models.RegistrationResponse{HubID: testHub, AccessKey: "key", Entry: models.RegistryEntry{ID: testHub, Name: req.SchoolName}}, nil
}

func (s *registryServiceStub) List(context.Context) ([]models.RegistryEntry, error) {
	return s.entries, nil
}

func (s *registryServiceStub) Get(_ context.Context, hubID string) (*models.RegistryEntry, error) {
	for _, e := range s.entries {
		if e.ID == hubID {
			return &e, nil
		}
	}
	return nil, appErrors.ErrNotFound
}

func (s *registryServiceStub) SetStatus(_ context.Context, hubID string, req models.StatusUpdateRequest) (*models.RegistryEntry, error) {
	return &models.RegistryEntry{ID: hubID, Status: req.Status}, nil
}

type settingsServiceStub struct {
	hubID string
	reset bool
}

func (s *settingsServiceStub) Get(_ context.Context, hubID string) (*models.Settings, error) {
	s.hubID = hubID
	settings := models.DefaultSettings("Accra Model School")
	return &settings, nil
}

func (s *settingsServiceStub) Update(_ context.Context, hubID string, settings models.Settings) (*models.Settings, error) {
	s.hubID = hubID
	return &settings, nil
}

func (s *settingsServiceStub) SetActiveSeries(_ context.Context, hubID, series string) (*models.Settings, error) {
	s.hubID = hubID
	settings := models.DefaultSettings("Accra Model School")
	settings.ActiveSeries = series
	return &settings, nil
}

func (s *settingsServiceStub) ResetData(_ context.Context, hubID string) error {
	s.hubID = hubID
	s.reset = true
	return nil
}

type scoreServiceStub struct {
	bulk    models.BulkScoreRequest
	roster  []byte
	calls   int
	student int
}

func (s *scoreServiceStub) Enroll(_ context.Context, _ string, req models.EnrollStudentRequest) (*models.Student, error) {
	s.calls++
	return &models.Student{ID: 4, Name: req.Name}, nil
}

func (s *scoreServiceStub) ImportRoster(_ context.Context, _ string, payload []byte) (*service.ImportResult, error) {
	s.calls++
	s.roster = payload
	return &service.ImportResult{Imported: 1}, nil
}

func (s *scoreServiceStub) UpsertScore(_ context.Context, _ string, req models.ScoreEntryRequest) (*models.ScoreEntryResult, error) {
	s.calls++
	s.bulk = models.BulkScoreRequest{Entries: []models.ScoreEntryRequest{req}}
	return &models.ScoreEntryResult{Saved: 1}, nil
}

func (s *scoreServiceStub) BulkUpsert(_ context.Context, _ string, req models.BulkScoreRequest) (*models.ScoreEntryResult, error) {
	s.calls++
	s.bulk = req
	return &models.ScoreEntryResult{Saved: len(req.Entries)}, nil
}

func (s *scoreServiceStub) UpdateConduct(_ context.Context, _ string, id int, _ models.ConductUpdateRequest) (*models.Student, error) {
	s.calls++
	s.student = id
	return &models.Student{ID: id}, nil
}

func (s *scoreServiceStub) UpdateRemark(_ context.Context, _ string, id int, _ models.RemarkUpdateRequest) (*models.Student, error) {
	s.calls++
	s.student = id
	return &models.Student{ID: id}, nil
}

func (s *scoreServiceStub) RecordBece(_ context.Context, _ string, id int, _ models.BeceEntryRequest) (*models.Student, error) {
	s.calls++
	s.student = id
	return &models.Student{ID: id}, nil
}

func (s *scoreServiceStub) UpdateFacilitators(_ context.Context, _ string, assignments []models.StaffAssignment) (models.Facilitators, error) {
	s.calls++
	out := models.Facilitators{}
	for _, a := range assignments {
		out[a.TaughtSubject] = a
	}
	return out, nil
}

type aggregationServiceStub struct {
	hit    bool
	series string
}

func (s *aggregationServiceStub) Broadsheet(_ context.Context, hubID, series string) (*service.Broadsheet, bool, error) {
	if series == "" {
		series = "MOCK 1"
	}
	s.series = series
	return &service.Broadsheet{
		School:   service.SchoolHeader{HubID: hubID, SchoolName: "Accra Model School"},
		Subjects: []string{"Mathematics"},
		Result:   engine.Result{Series: series},
	}, s.hit, nil
}

func (s *aggregationServiceStub) ReportCard(_ context.Context, _ string, studentID int, series string) (*service.ReportCard, error) {
	if studentID > 3 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &service.ReportCard{Series: series, Student: engine.ProcessedStudent{ID: studentID}}, nil
}

func (s *aggregationServiceStub) Statistics(_ context.Context, _ string, series string) (*engine.ClassStatistics, error) {
	return &engine.ClassStatistics{Series: series}, nil
}

type exportServiceStub struct{ format service.ExportFormat }

func (s *exportServiceStub) Broadsheet(_ context.Context, hubID, series string, format service.ExportFormat) (*service.ExportFile, error) {
	s.format = format
	return &service.ExportFile{Filename: hubID + "_broadsheet." + string(format), ContentType: "text/csv", Data: []byte("Rank,Name\n")}, nil
}

func (s *exportServiceStub) ReportCardPDF(_ context.Context, hubID string, studentID int, _ string) (*service.ExportFile, error) {
	return &service.ExportFile{Filename: "report.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")}, nil
}

type seriesServiceStub struct{ committed string }

func (s *seriesServiceStub) Commit(_ context.Context, _ string, series string) (*service.CommitResult, error) {
	if series == "MOCK 9" {
		return nil, appErrors.ErrSeriesNotCommittable
	}
	s.committed = series
	return &service.CommitResult{Summary: engine.SeriesSummary{Series: series}}, nil
}

func (s *seriesServiceStub) Timeline(_ context.Context, _ string, studentID int) ([]engine.TimelineEntry, error) {
	return []engine.TimelineEntry{}, nil
}

func (s *seriesServiceStub) Growth(_ context.Context, _ string, current, previous string) (*service.GrowthReport, error) {
	return &service.GrowthReport{Current: current, Previous: previous}, nil
}

func (s *seriesServiceStub) Tracker(context.Context, string) (*service.TrackerReport, error) {
	return &service.TrackerReport{}, nil
}

type rewardServiceStub struct{ pool float64 }

func (s *rewardServiceStub) FacilitatorRewards(_ context.Context, _ string, series, year string, pool float64) (*service.RewardReport, error) {
	s.pool = pool
	return &service.RewardReport{Series: series, BeceYear: year, Pool: pool}, nil
}

func (s *rewardServiceStub) SigDiffRanking(_ context.Context, _ string, year string) (*service.RewardReport, error) {
	return &service.RewardReport{BeceYear: year}, nil
}

func (s *rewardServiceStub) PupilMerit(_ context.Context, _ string, series string) (*service.PupilMeritReport, error) {
	return &service.PupilMeritReport{Series: series}, nil
}

type networkServiceStub struct{}

func (networkServiceStub) GlobalRanking(_ context.Context, series string) (*service.NetworkRanking, error) {
	return &service.NetworkRanking{Series: series, Entries: []engine.GlobalEntry{}}, nil
}

func (networkServiceStub) GlobalRankOf(_ context.Context, hubID string, studentID int, _ string) (*engine.GlobalEntry, error) {
	return &engine.GlobalEntry{InstitutionID: hubID, StudentID: studentID, Rank: 1}, nil
}

func (networkServiceStub) NetworkSummary(context.Context) (*service.NetworkSummary, error) {
	return &service.NetworkSummary{}, nil
}

type stubs struct {
	settings    *settingsServiceStub
	scores      *scoreServiceStub
	aggregation *aggregationServiceStub
	exports     *exportServiceStub
	series      *seriesServiceStub
	rewards     *rewardServiceStub
}

func buildRouter() (*gin.Engine, *stubs) {
	gin.SetMode(gin.TestMode)
	s := &stubs{
		settings:    &settingsServiceStub{},
		scores:      &scoreServiceStub{},
		aggregation: &aggregationServiceStub{},
		exports:     &exportServiceStub{},
		series:      &seriesServiceStub{},
		rewards:     &rewardServiceStub{},
	}
	router := gin.New()
	RegisterRoutes(router, Handlers{
		Auth:       NewAuthHandler(&authServiceStub{}),
		Registry:   NewRegistryHandler(&registryServiceStub{entries: []models.RegistryEntry{{ID: testHub, Name: "Accra Model School", AccessKeyHash: "hash"}}}),
		Settings:   NewSettingsHandler(s.settings),
		Scores:     NewScoreHandler(s.scores),
		Broadsheet: NewBroadsheetHandler(s.aggregation, s.exports),
		Series:     NewSeriesHandler(s.series),
		Rewards:    NewRewardHandler(s.rewards),
		Network:    NewNetworkHandler(networkServiceStub{}),
		Metrics:    NewMetricsHandler(service.NewMetricsService(), nil),
	}, testTokens())
	return router, s
}

func performRequest(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
