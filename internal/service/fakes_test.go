package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/ssmap-api/internal/events"
	"github.com/noah-isme/ssmap-api/internal/models"
)

const testHub = "SSMAP-2026-0001"

// memStore keeps hub shards in memory. Every read returns a deep copy.
type memStore struct {
	mu           sync.Mutex
	registry     []models.RegistryEntry
	settings     map[string]models.Settings
	students     map[string][]models.Student
	facilitators map[string]models.Facilitators
	saveErr      error
}

func newMemStore() *memStore {
	return &memStore{
		settings:     map[string]models.Settings{},
		students:     map[string][]models.Student{},
		facilitators: map[string]models.Facilitators{},
	}
}

func (m *memStore) Registry(ctx context.Context) ([]models.RegistryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.RegistryEntry(nil), m.registry...), nil
}

func (m *memStore) SaveRegistry(ctx context.Context, entries []models.RegistryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.registry = append([]models.RegistryEntry(nil), entries...)
	return nil
}

func (m *memStore) LoadSchool(ctx context.Context, hubID string) (*models.SchoolData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	settings, ok := m.settings[hubID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	students := make([]models.Student, len(m.students[hubID]))
	for i, st := range m.students[hubID] {
		students[i] = st.Clone()
	}
	facilitators := models.Facilitators{}
	for k, v := range m.facilitators[hubID] {
		facilitators[k] = v
	}
	return &models.SchoolData{HubID: hubID, Settings: settings, Students: students, Facilitators: facilitators}, nil
}

func (m *memStore) Settings(ctx context.Context, hubID string) (*models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	settings, ok := m.settings[hubID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &settings, nil
}

func (m *memStore) SaveSettings(ctx context.Context, hubID string, settings models.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.settings[hubID] = settings
	return nil
}

func (m *memStore) SaveSchool(ctx context.Context, data models.SchoolData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.settings[data.HubID] = data.Settings
	m.students[data.HubID] = append([]models.Student(nil), data.Students...)
	m.facilitators[data.HubID] = data.Facilitators
	return nil
}

func (m *memStore) SaveStudents(ctx context.Context, hubID string, students []models.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	out := make([]models.Student, len(students))
	for i, st := range students {
		out[i] = st.Clone()
	}
	m.students[hubID] = out
	return nil
}

func (m *memStore) SaveFacilitators(ctx context.Context, hubID string, facilitators models.Facilitators) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.facilitators[hubID] = facilitators
	return nil
}

func (m *memStore) DeleteSchoolData(ctx context.Context, hubID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.students, hubID)
	delete(m.facilitators, hubID)
	return nil
}

func (m *memStore) studentsOf(hubID string) []models.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.students[hubID]
}

// memCache is a JSON round-tripping cache with glob-suffix invalidation.
type memCache struct {
	mu          sync.Mutex
	items       map[string][]byte
	invalidated []string
}

func newMemCache() *memCache {
	return &memCache{items: map[string][]byte{}}
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = raw
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, patterns ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, pattern := range patterns {
		c.invalidated = append(c.invalidated, pattern)
		prefix := strings.TrimSuffix(pattern, "*")
		for key := range c.items {
			if strings.HasPrefix(key, prefix) {
				delete(c.items, key)
			}
		}
	}
	return nil
}

func (c *memCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.items))
	for k := range c.items {
		out = append(out, k)
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.SeriesCommitted
	err    error
}

func (p *recordingPublisher) PublishSeriesCommitted(ctx context.Context, evt events.SeriesCommitted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

// testSettings grades on the static table with exam scores only so composites
// equal SectionA + SectionB.
func testSettings() models.Settings {
	s := models.DefaultSettings("Accra Model School")
	s.UseTDistribution = false
	s.SBA.Enabled = false
	s.CommittedSeries = []string{"MOCK 1", "MOCK 2", "MOCK 3"}
	return s
}

var coreAndElectives = []string{
	"English Language", "Mathematics", "Integrated Science", "Social Studies", "Computing", "French",
}

// pupil records pct in each of the six subjects for every listed series.
func pupil(id int, name string, pct float64, series ...string) models.Student {
	st := models.Student{ID: id, Name: name, MockData: map[string]models.MockSet{}}
	for _, s := range series {
		set := models.MockSet{Scores: map[string]models.SubjectScore{}}
		for _, subject := range coreAndElectives {
			a := pct * 0.4
			set.Scores[subject] = models.SubjectScore{SectionA: a, SectionB: pct - a}
		}
		st.MockData[s] = set
	}
	return st
}

// seedHub registers a hub with three pupils: Ama (80s), Kofi (90s) and Esi
// with no scores.
func seedHub(store *memStore) {
	store.settings[testHub] = testSettings()
	store.students[testHub] = []models.Student{
		pupil(1, "Ama Mensah", 80, "MOCK 1"),
		pupil(2, "Kofi Boateng", 90, "MOCK 1"),
		{ID: 3, Name: "Esi Owusu", MockData: map[string]models.MockSet{}},
	}
	store.facilitators[testHub] = models.Facilitators{
		"Mathematics": {Name: "Mr. Asare", EnrolledID: "STF-01", TaughtSubject: "Mathematics"},
		"French":      {Name: "Mme. Dubois", EnrolledID: "STF-02", TaughtSubject: "French"},
	}
	store.registry = append(store.registry, models.RegistryEntry{
		ID:             testHub,
		Name:           "Accra Model School",
		Status:         models.InstitutionActive,
		EnrollmentDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	})
}
