package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/noah-isme/ssmap-api/internal/engine"
	"github.com/noah-isme/ssmap-api/internal/models"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
)

// registryStore persists the network registry shard.
type registryStore interface {
	Registry(ctx context.Context) ([]models.RegistryEntry, error)
	SaveRegistry(ctx context.Context, entries []models.RegistryEntry) error
}

// schoolReader loads every shard of a hub.
type schoolReader interface {
	LoadSchool(ctx context.Context, hubID string) (*models.SchoolData, error)
}

// schoolStore reads and writes hub shards.
type schoolStore interface {
	schoolReader
	Settings(ctx context.Context, hubID string) (*models.Settings, error)
	SaveSettings(ctx context.Context, hubID string, settings models.Settings) error
	SaveStudents(ctx context.Context, hubID string, students []models.Student) error
	SaveFacilitators(ctx context.Context, hubID string, facilitators models.Facilitators) error
	DeleteSchoolData(ctx context.Context, hubID string) error
}

// HubLocks serialises read-modify-write cycles per hub.
type HubLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewHubLocks constructs an empty lock table.
func NewHubLocks() *HubLocks {
	return &HubLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the hub's lock and returns its release func.
func (h *HubLocks) Lock(hubID string) func() {
	h.mu.Lock()
	l, ok := h.locks[hubID]
	if !ok {
		l = &sync.Mutex{}
		h.locks[hubID] = l
	}
	h.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func loadSchool(ctx context.Context, store schoolReader, hubID string) (*models.SchoolData, error) {
	data, err := store.LoadSchool(ctx, hubID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "institution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load institution data")
	}
	if data.Facilitators == nil {
		data.Facilitators = models.Facilitators{}
	}
	return data, nil
}

func findStudent(students []models.Student, id int) int {
	for i, st := range students {
		if st.ID == id {
			return i
		}
	}
	return -1
}

// resolveSeries defaults an empty series to the active one and checks it is configured.
func resolveSeries(settings models.Settings, series string) (string, error) {
	if series == "" {
		series = settings.ActiveSeries
	}
	if series == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "series is required")
	}
	for _, s := range settings.CommittedSeries {
		if s == series {
			return series, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "unknown series "+series)
}

func configFor(settings models.Settings) engine.Configuration {
	return engine.FromSettings(settings)
}

func broadsheetPattern(hubID string) string {
	return "broadsheet:" + hubID + ":*"
}
