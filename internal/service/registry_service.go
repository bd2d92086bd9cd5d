package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/ssmap-api/internal/engine"
	"github.com/noah-isme/ssmap-api/internal/models"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
)

const (
	hubIDPrefix     = "SSMAP"
	accessKeyPrefix = "SEC-"
	accessKeyChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	accessKeyLength = 8
	maxIDAttempts   = 20
)

// schoolSeeder writes every shard of a newly registered hub.
type schoolSeeder interface {
	SaveSchool(ctx context.Context, data models.SchoolData) error
}

// RegistryService manages the network of registered institutions.
type RegistryService struct {
	store     registryStore
	seeder    schoolSeeder
	cache     broadsheetInvalidator
	template  func(schoolName string) models.Settings
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	mu        sync.Mutex
}

// NewRegistryService constructs the registry service. template builds the
// settings of a new hub and defaults to models.DefaultSettings. cache may be
// nil; status changes then leave the network ranking to expire on its own.
func NewRegistryService(store registryStore, seeder schoolSeeder, cache broadsheetInvalidator, template func(string) models.Settings, validate *validator.Validate, logger *zap.Logger) *RegistryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if template == nil {
		template = models.DefaultSettings
	}
	return &RegistryService{store: store, seeder: seeder, cache: cache, template: template, validator: validate, logger: logger, now: time.Now}
}

// Register enrolls a new institution and returns its one-time credentials.
func (s *RegistryService) Register(ctx context.Context, req models.RegistrationRequest) (*models.RegistrationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	name := strings.TrimSpace(req.SchoolName)

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.store.Registry(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registry")
	}
	taken := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if strings.EqualFold(strings.TrimSpace(e.Name), name) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateInstitution, fmt.Sprintf("%s is already registered", name))
		}
		taken[e.ID] = struct{}{}
	}

	now := s.now().UTC()
	hubID, err := newHubID(now.Year(), taken)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate hub id")
	}
	accessKey, err := newAccessKey()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate access key")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(accessKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash access key")
	}

	settings := s.template(name)
	settings.UpdatedAt = now
	seed := models.SchoolData{
		HubID:        hubID,
		Settings:     settings,
		Students:     []models.Student{},
		Facilitators: models.Facilitators{},
	}
	if err := s.seeder.SaveSchool(ctx, seed); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed institution settings")
	}

	entry := models.RegistryEntry{
		ID:                 hubID,
		Name:               name,
		Registrant:         strings.TrimSpace(req.Registrant),
		RegistrantEmail:    strings.TrimSpace(req.RegistrantEmail),
		Location:           strings.TrimSpace(req.Location),
		AccessKeyHash:      string(hash),
		EnrollmentDate:     now,
		PerformanceHistory: []models.PerformancePoint{},
		Status:             models.InstitutionActive,
		LastActivity:       now,
	}
	if err := s.store.SaveRegistry(ctx, append(entries, entry)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save registry")
	}

	s.logger.Info("institution registered", zap.String("hub_id", hubID), zap.String("name", name))
	return &models.RegistrationResponse{HubID: hubID, AccessKey: accessKey, Entry: entry.Public()}, nil
}

// List returns every institution ordered by enrollment date.
func (s *RegistryService) List(ctx context.Context) ([]models.RegistryEntry, error) {
	entries, err := s.store.Registry(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registry")
	}
	out := make([]models.RegistryEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Public()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EnrollmentDate.Before(out[j].EnrollmentDate) })
	return out, nil
}

// Get returns one institution.
func (s *RegistryService) Get(ctx context.Context, hubID string) (*models.RegistryEntry, error) {
	entry, err := s.find(ctx, hubID)
	if err != nil {
		return nil, err
	}
	public := entry.Public()
	return &public, nil
}

// SetStatus activates or suspends an institution.
func (s *RegistryService) SetStatus(ctx context.Context, hubID string, req models.StatusUpdateRequest) (*models.RegistryEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	var updated models.RegistryEntry
	err := s.mutate(ctx, hubID, func(e *models.RegistryEntry) {
		e.Status = req.Status
		updated = e.Public()
	})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, networkCachePattern); err != nil {
			s.logger.Warn("network cache invalidation failed", zap.String("hub_id", hubID), zap.Error(err))
		}
	}
	s.logger.Info("institution status changed", zap.String("hub_id", hubID), zap.String("status", string(req.Status)))
	return &updated, nil
}

// Authenticate checks a hub's access key. Unknown hubs and wrong keys are
// indistinguishable to the caller.
func (s *RegistryService) Authenticate(ctx context.Context, hubID, accessKey string) (*models.RegistryEntry, error) {
	entry, err := s.find(ctx, strings.TrimSpace(hubID))
	if err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrNotFound.Code {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(entry.AccessKeyHash), []byte(strings.TrimSpace(accessKey))) != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	if entry.Status == models.InstitutionSuspended {
		return nil, appErrors.ErrInactiveInstitution
	}
	public := entry.Public()
	return &public, nil
}

// RecordCommit stores a committed series in the hub's performance history,
// replacing an earlier commit of the same series.
func (s *RegistryService) RecordCommit(ctx context.Context, hubID string, summary engine.SeriesSummary, at time.Time) error {
	return s.mutate(ctx, hubID, func(e *models.RegistryEntry) {
		point := models.PerformancePoint{
			Series:       summary.Series,
			AvgAggregate: summary.AvgAggregate,
			AvgComposite: summary.AvgComposite,
			StudentCount: summary.StudentCount,
			CommittedAt:  at,
		}
		replaced := false
		for i := range e.PerformanceHistory {
			if e.PerformanceHistory[i].Series == summary.Series {
				e.PerformanceHistory[i] = point
				replaced = true
			}
		}
		if !replaced {
			e.PerformanceHistory = append(e.PerformanceHistory, point)
		}
		e.StudentCount = summary.StudentCount
		e.AvgAggregate = summary.AvgAggregate
		e.LastActivity = at
	})
}

// RecordActivity refreshes a hub's enrolment count and activity timestamp.
func (s *RegistryService) RecordActivity(ctx context.Context, hubID string, studentCount int) error {
	now := s.now().UTC()
	return s.mutate(ctx, hubID, func(e *models.RegistryEntry) {
		e.StudentCount = studentCount
		e.LastActivity = now
	})
}

func (s *RegistryService) find(ctx context.Context, hubID string) (*models.RegistryEntry, error) {
	entries, err := s.store.Registry(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registry")
	}
	for i := range entries {
		if entries[i].ID == hubID {
			return &entries[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "institution not found")
}

func (s *RegistryService) mutate(ctx context.Context, hubID string, fn func(*models.RegistryEntry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.store.Registry(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registry")
	}
	idx := -1
	for i := range entries {
		if entries[i].ID == hubID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "institution not found")
	}
	fn(&entries[idx])
	if err := s.store.SaveRegistry(ctx, entries); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save registry")
	}
	return nil
}

func newHubID(year int, taken map[string]struct{}) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10000))
		if err != nil {
			return "", err
		}
		id := fmt.Sprintf("%s-%d-%04d", hubIDPrefix, year, n.Int64())
		if _, exists := taken[id]; !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free hub id for %d after %d attempts", year, maxIDAttempts)
}

func newAccessKey() (string, error) {
	var b strings.Builder
	b.WriteString(accessKeyPrefix)
	limit := big.NewInt(int64(len(accessKeyChars)))
	for i := 0; i < accessKeyLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b.WriteByte(accessKeyChars[n.Int64()])
	}
	return b.String(), nil
}
