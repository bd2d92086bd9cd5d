package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/ssmap-api/internal/models"
)

const registryKey = "registry"

// Shard suffixes under a hub id.
const (
	settingsShard     = "settings"
	studentsShard     = "students"
	facilitatorsShard = "facilitators"
)

// SchoolRepository maps hub data onto the key/payload store, one row per shard.
type SchoolRepository struct {
	store   *PersistenceRepository
	observe func(operation string, d time.Duration)
}

// NewSchoolRepository constructs the repository.
func NewSchoolRepository(store *PersistenceRepository) *SchoolRepository {
	return &SchoolRepository{store: store}
}

// SetQueryObserver registers a callback timing every store round trip.
func (r *SchoolRepository) SetQueryObserver(fn func(operation string, d time.Duration)) {
	r.observe = fn
}

func (r *SchoolRepository) track(operation string, start time.Time) {
	if r.observe != nil {
		r.observe(operation, time.Since(start))
	}
}

// ShardID returns the storage id of a hub shard.
func ShardID(hubID, shard string) string {
	return hubID + "_" + shard
}

// Registry returns the network registry. An absent registry is empty.
func (r *SchoolRepository) Registry(ctx context.Context) ([]models.RegistryEntry, error) {
	var entries []models.RegistryEntry
	if err := r.load(ctx, registryKey, &entries); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.RegistryEntry{}, nil
		}
		return nil, err
	}
	return entries, nil
}

// SaveRegistry replaces the network registry.
func (r *SchoolRepository) SaveRegistry(ctx context.Context, entries []models.RegistryEntry) error {
	return r.save(ctx, registryKey, entries)
}

// Settings returns a hub's settings or sql.ErrNoRows.
func (r *SchoolRepository) Settings(ctx context.Context, hubID string) (*models.Settings, error) {
	var settings models.Settings
	if err := r.load(ctx, ShardID(hubID, settingsShard), &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// SaveSettings replaces a hub's settings.
func (r *SchoolRepository) SaveSettings(ctx context.Context, hubID string, settings models.Settings) error {
	return r.save(ctx, ShardID(hubID, settingsShard), settings)
}

// Students returns a hub's students. An absent shard is empty.
func (r *SchoolRepository) Students(ctx context.Context, hubID string) ([]models.Student, error) {
	var students []models.Student
	if err := r.load(ctx, ShardID(hubID, studentsShard), &students); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.Student{}, nil
		}
		return nil, err
	}
	return students, nil
}

// SaveStudents replaces a hub's students.
func (r *SchoolRepository) SaveStudents(ctx context.Context, hubID string, students []models.Student) error {
	return r.save(ctx, ShardID(hubID, studentsShard), students)
}

// Facilitators returns a hub's facilitator assignments. An absent shard is empty.
func (r *SchoolRepository) Facilitators(ctx context.Context, hubID string) (models.Facilitators, error) {
	facilitators := models.Facilitators{}
	if err := r.load(ctx, ShardID(hubID, facilitatorsShard), &facilitators); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Facilitators{}, nil
		}
		return nil, err
	}
	return facilitators, nil
}

// SaveFacilitators replaces a hub's facilitator assignments.
func (r *SchoolRepository) SaveFacilitators(ctx context.Context, hubID string, facilitators models.Facilitators) error {
	return r.save(ctx, ShardID(hubID, facilitatorsShard), facilitators)
}

// LoadSchool reads every shard of a hub in one query. sql.ErrNoRows is
// returned when the hub has no settings.
func (r *SchoolRepository) LoadSchool(ctx context.Context, hubID string) (*models.SchoolData, error) {
	defer r.track("load_school", time.Now())
	records, err := r.store.ListByPrefix(ctx, hubID+"_")
	if err != nil {
		return nil, err
	}
	data := &models.SchoolData{HubID: hubID, Students: []models.Student{}, Facilitators: models.Facilitators{}}
	foundSettings := false
	for _, rec := range records {
		shard := strings.TrimPrefix(rec.ID, hubID+"_")
		var target interface{}
		switch shard {
		case settingsShard:
			target = &data.Settings
			foundSettings = true
		case studentsShard:
			target = &data.Students
		case facilitatorsShard:
			target = &data.Facilitators
		default:
			continue
		}
		if err := json.Unmarshal(rec.Payload, target); err != nil {
			return nil, fmt.Errorf("decode %s: %w", rec.ID, err)
		}
	}
	if !foundSettings {
		return nil, sql.ErrNoRows
	}
	return data, nil
}

// SaveSchool writes every shard of a hub atomically.
func (r *SchoolRepository) SaveSchool(ctx context.Context, data models.SchoolData) error {
	defer r.track("save_school", time.Now())
	shards := map[string]interface{}{
		settingsShard:     data.Settings,
		studentsShard:     data.Students,
		facilitatorsShard: data.Facilitators,
	}
	records := make([]models.PersistenceRecord, 0, len(shards))
	for _, shard := range []string{settingsShard, studentsShard, facilitatorsShard} {
		payload, err := json.Marshal(shards[shard])
		if err != nil {
			return fmt.Errorf("encode %s: %w", shard, err)
		}
		records = append(records, models.PersistenceRecord{ID: ShardID(data.HubID, shard), Payload: payload})
	}
	return r.store.BulkUpsert(ctx, records)
}

// DeleteSchoolData removes a hub's students and facilitators, keeping its settings.
func (r *SchoolRepository) DeleteSchoolData(ctx context.Context, hubID string) error {
	defer r.track("delete", time.Now())
	return r.store.Delete(ctx, ShardID(hubID, studentsShard), ShardID(hubID, facilitatorsShard))
}

func (r *SchoolRepository) load(ctx context.Context, id string, dest interface{}) error {
	defer r.track("get", time.Now())
	rec, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(rec.Payload, dest); err != nil {
		return fmt.Errorf("decode %s: %w", id, err)
	}
	return nil
}

func (r *SchoolRepository) save(ctx context.Context, id string, value interface{}) error {
	defer r.track("upsert", time.Now())
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}
	return r.store.Upsert(ctx, &models.PersistenceRecord{ID: id, Payload: payload})
}
