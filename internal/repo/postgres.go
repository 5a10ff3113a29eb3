package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/campus-atlas/plan-cli/internal/model"
)

// PgPool is the subset of pgxpool.Pool the repository uses. pgxmock
// satisfies it in tests.
type PgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresRepo implements Repository on a JSONB document table.
type PostgresRepo struct {
	pool PgPool
}

// NewPostgres connects a pgx pool to the given DSN.
func NewPostgres(ctx context.Context, dsn string) (*PostgresRepo, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresRepo{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests.
func NewPostgresFromPool(pool PgPool) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS buildings (
	id                        TEXT PRIMARY KEY,
	legacy_id                 TEXT,
	doc                       JSONB NOT NULL,
	geometry_live             BOOLEAN NOT NULL DEFAULT FALSE,
	administrative_live       BOOLEAN NOT NULL DEFAULT FALSE,
	scheduling_live           BOOLEAN NOT NULL DEFAULT FALSE,
	geometry_updated_at       TIMESTAMPTZ,
	administrative_updated_at TIMESTAMPTZ,
	scheduling_updated_at     TIMESTAMPTZ,
	geometry_deleted_at       TIMESTAMPTZ,
	administrative_deleted_at TIMESTAMPTZ,
	scheduling_deleted_at     TIMESTAMPTZ,
	updated_at                TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_buildings_legacy_id ON buildings(legacy_id);
`

func (r *PostgresRepo) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (r *PostgresRepo) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepo) FindByID(ctx context.Context, id string) (*model.Building, error) {
	return scanPgBuilding(r.pool.QueryRow(ctx,
		`SELECT doc FROM buildings WHERE id = $1`, id))
}

func (r *PostgresRepo) FindByLegacyID(ctx context.Context, id string) (*model.Building, error) {
	return scanPgBuilding(r.pool.QueryRow(ctx,
		`SELECT doc FROM buildings WHERE legacy_id = $1 ORDER BY id LIMIT 1`, id))
}

func (r *PostgresRepo) Save(ctx context.Context, b *model.Building) error {
	row, err := documentRow(b)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO buildings (
			id, legacy_id, doc,
			geometry_live, administrative_live, scheduling_live,
			geometry_updated_at, administrative_updated_at, scheduling_updated_at,
			geometry_deleted_at, administrative_deleted_at, scheduling_deleted_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			legacy_id = EXCLUDED.legacy_id,
			doc = EXCLUDED.doc,
			geometry_live = EXCLUDED.geometry_live,
			administrative_live = EXCLUDED.administrative_live,
			scheduling_live = EXCLUDED.scheduling_live,
			geometry_updated_at = EXCLUDED.geometry_updated_at,
			administrative_updated_at = EXCLUDED.administrative_updated_at,
			scheduling_updated_at = EXCLUDED.scheduling_updated_at,
			geometry_deleted_at = EXCLUDED.geometry_deleted_at,
			administrative_deleted_at = EXCLUDED.administrative_deleted_at,
			scheduling_deleted_at = EXCLUDED.scheduling_deleted_at,
			updated_at = EXCLUDED.updated_at`,
		row...,
	)
	return eris.Wrapf(err, "postgres: save building %s", b.ID)
}

func (r *PostgresRepo) Remove(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM buildings WHERE id = $1`, id)
	return eris.Wrapf(err, "postgres: remove building %s", id)
}

func (r *PostgresRepo) FindStale(ctx context.Context, source model.SourceKind, before time.Time) ([]*model.Building, error) {
	col, ok := sourceColumns[source]
	if !ok {
		return nil, eris.Errorf("postgres: unknown namespace %q", source)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT doc FROM buildings
		 WHERE `+col+`_live AND `+col+`_updated_at < $1
		 ORDER BY id`,
		before.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find stale")
	}
	defer rows.Close()
	return scanPgBuildings(rows)
}

func (r *PostgresRepo) UnsetNamespace(ctx context.Context, id string, source model.SourceKind, stamp time.Time) error {
	b, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if b == nil {
		return eris.Errorf("postgres: unset namespace: building %s not found", id)
	}
	b.Unset(source, stamp.UTC())
	return r.Save(ctx, b)
}

func (r *PostgresRepo) RemoveIfAllNamespacesDeleted(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		DELETE FROM buildings
		WHERE NOT geometry_live AND NOT administrative_live AND NOT scheduling_live
		  AND (geometry_deleted_at IS NOT NULL
		       OR administrative_deleted_at IS NOT NULL
		       OR scheduling_deleted_at IS NOT NULL)
		RETURNING id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: delete orphaned")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan orphaned id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate orphaned ids")
	}
	return ids, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]*model.Building, error) {
	rows, err := r.pool.Query(ctx, `SELECT doc FROM buildings ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list")
	}
	defer rows.Close()
	return scanPgBuildings(rows)
}

func scanPgBuilding(row pgx.Row) (*model.Building, error) {
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: scan building")
	}
	var b model.Building
	if err := json.Unmarshal(doc, &b); err != nil {
		return nil, eris.Wrap(err, "postgres: decode building document")
	}
	return &b, nil
}

func scanPgBuildings(rows pgx.Rows) ([]*model.Building, error) {
	var out []*model.Building
	for rows.Next() {
		b, err := scanPgBuilding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate buildings")
	}
	return out, nil
}
