package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ssmap-api/internal/models"
)

func newPersistenceRepoMock(t *testing.T) (*SchoolRepository, *PersistenceRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	store := NewPersistenceRepository(sqlxDB)
	return NewSchoolRepository(store), store, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func payloadRow(t *testing.T, id string, value interface{}) *sqlmock.Rows {
	raw, err := json.Marshal(value)
	require.NoError(t, err)
	return sqlmock.NewRows([]string{"id", "payload", "last_updated"}).AddRow(id, raw, time.Now())
}

func TestPersistenceRepositoryUpsert(t *testing.T) {
	_, store, mock, cleanup := newPersistenceRepoMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO ssmap_persistence").
		WithArgs("registry", `[]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := &models.PersistenceRecord{ID: "registry", Payload: json.RawMessage(`[]`)}
	require.NoError(t, store.Upsert(context.Background(), rec))
	assert.False(t, rec.LastUpdated.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistenceRepositoryListByPrefixEscapesWildcards(t *testing.T) {
	_, store, mock, cleanup := newPersistenceRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, payload, last_updated FROM ssmap_persistence WHERE id LIKE").
		WithArgs(`SSMAP-2026-0001\_%`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "payload", "last_updated"}))

	records, err := store.ListByPrefix(context.Background(), "SSMAP-2026-0001_")
	require.NoError(t, err)
	assert.Empty(t, records)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolRepositoryRegistryMissingIsEmpty(t *testing.T) {
	repo, _, mock, cleanup := newPersistenceRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, payload, last_updated FROM ssmap_persistence WHERE id =").
		WithArgs("registry").
		WillReturnError(sql.ErrNoRows)

	entries, err := repo.Registry(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSchoolRepositoryStudents(t *testing.T) {
	repo, _, mock, cleanup := newPersistenceRepoMock(t)
	defer cleanup()

	students := []models.Student{{ID: 1, Name: "Ama Mensah", MockData: map[string]models.MockSet{
		"MOCK 1": {Scores: map[string]models.SubjectScore{"Mathematics": {SectionA: 30, SectionB: 40}}},
	}}}
	mock.ExpectQuery("SELECT id, payload").
		WithArgs("SSMAP-2026-0001_students").
		WillReturnRows(payloadRow(t, "SSMAP-2026-0001_students", students))

	got, err := repo.Students(context.Background(), "SSMAP-2026-0001")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 30.0, got[0].MockData["MOCK 1"].Scores["Mathematics"].SectionA)
}

func TestSchoolRepositorySettingsNotFound(t *testing.T) {
	repo, _, mock, cleanup := newPersistenceRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, payload").
		WithArgs("SSMAP-2026-0001_settings").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Settings(context.Background(), "SSMAP-2026-0001")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSchoolRepositoryLoadSchool(t *testing.T) {
	repo, _, mock, cleanup := newPersistenceRepoMock(t)
	defer cleanup()

	settings := models.DefaultSettings("Accra Academy")
	settingsRaw, _ := json.Marshal(settings)
	studentsRaw, _ := json.Marshal([]models.Student{{ID: 1, Name: "Kofi"}})
	facRaw, _ := json.Marshal(models.Facilitators{"Mathematics": {Name: "Mr. Boateng", EnrolledID: "FAC-001", TaughtSubject: "Mathematics"}})
	rows := sqlmock.NewRows([]string{"id", "payload", "last_updated"}).
		AddRow("SSMAP-2026-0001_facilitators", facRaw, time.Now()).
		AddRow("SSMAP-2026-0001_settings", settingsRaw, time.Now()).
		AddRow("SSMAP-2026-0001_students", studentsRaw, time.Now())
	mock.ExpectQuery("WHERE id LIKE").WillReturnRows(rows)

	data, err := repo.LoadSchool(context.Background(), "SSMAP-2026-0001")
	require.NoError(t, err)
	assert.Equal(t, "Accra Academy", data.Settings.SchoolName)
	assert.Len(t, data.Students, 1)
	assert.Equal(t, "Mr. Boateng", data.Facilitators.BySubject("Mathematics"))
}

func TestSchoolRepositoryLoadSchoolWithoutSettings(t *testing.T) {
	repo, _, mock, cleanup := newPersistenceRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("WHERE id LIKE").WillReturnRows(sqlmock.NewRows([]string{"id", "payload", "last_updated"}))

	_, err := repo.LoadSchool(context.Background(), "SSMAP-2026-0404")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSchoolRepositorySaveSchoolIsTransactional(t *testing.T) {
	repo, _, mock, cleanup := newPersistenceRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ssmap_persistence").
		WithArgs("SSMAP-2026-0001_settings", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO ssmap_persistence").
		WithArgs("SSMAP-2026-0001_students", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.SaveSchool(context.Background(), models.SchoolData{HubID: "SSMAP-2026-0001", Settings: models.DefaultSettings("X")})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchoolRepositoryDeleteSchoolData(t *testing.T) {
	repo, _, mock, cleanup := newPersistenceRepoMock(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM ssmap_persistence WHERE id IN").
		WithArgs("SSMAP-2026-0001_students", "SSMAP-2026-0001_facilitators").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.DeleteSchoolData(context.Background(), "SSMAP-2026-0001"))
	require.NoError(t, mock.ExpectationsWereMet())
}
