package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ssmap-api/internal/models"
)

const upsertPersistenceQuery = `INSERT INTO ssmap_persistence (id, payload, last_updated)
VALUES ($1, $2::jsonb, $3)
ON CONFLICT (id)
DO UPDATE SET payload = EXCLUDED.payload, last_updated = EXCLUDED.last_updated`

// PersistenceRepository stores JSON payloads keyed by shard id.
type PersistenceRepository struct {
	db *sqlx.DB
}

// NewPersistenceRepository constructs the repository.
func NewPersistenceRepository(db *sqlx.DB) *PersistenceRepository {
	return &PersistenceRepository{db: db}
}

// Get fetches a single record. sql.ErrNoRows is returned untouched when absent.
func (r *PersistenceRepository) Get(ctx context.Context, id string) (*models.PersistenceRecord, error) {
	const query = `SELECT id, payload, last_updated FROM ssmap_persistence WHERE id = $1`
	var rec models.PersistenceRecord
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByPrefix returns every record whose id starts with prefix.
func (r *PersistenceRepository) ListByPrefix(ctx context.Context, prefix string) ([]models.PersistenceRecord, error) {
	const query = `SELECT id, payload, last_updated FROM ssmap_persistence WHERE id LIKE $1 ORDER BY id ASC`
	var records []models.PersistenceRecord
	if err := r.db.SelectContext(ctx, &records, query, escapeLike(prefix)+"%"); err != nil {
		return nil, fmt.Errorf("list persistence records: %w", err)
	}
	return records, nil
}

// Upsert inserts or replaces a record.
func (r *PersistenceRepository) Upsert(ctx context.Context, rec *models.PersistenceRecord) error {
	rec.LastUpdated = time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, upsertPersistenceQuery, rec.ID, string(rec.Payload), rec.LastUpdated); err != nil {
		return fmt.Errorf("upsert persistence record %s: %w", rec.ID, err)
	}
	return nil
}

// BulkUpsert writes all records within one transaction.
func (r *PersistenceRepository) BulkUpsert(ctx context.Context, recs []models.PersistenceRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin persistence tx: %w", err)
	}
	now := time.Now().UTC()
	for i := range recs {
		recs[i].LastUpdated = now
		if _, err := tx.ExecContext(ctx, upsertPersistenceQuery, recs[i].ID, string(recs[i].Payload), now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("bulk upsert persistence record %s: %w", recs[i].ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit persistence tx: %w", err)
	}
	return nil
}

// Delete removes the given records. Missing ids are ignored.
func (r *PersistenceRepository) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM ssmap_persistence WHERE id IN (%s)`, placeholders(len(ids)))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete persistence records: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	values := make([]string, n)
	for i := 1; i <= n; i++ {
		values[i-1] = fmt.Sprintf("$%d", i)
	}
	return strings.Join(values, ",")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
