package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/campus-atlas/plan-cli/internal/model"
)

// sourceColumns maps a namespace kind to its column name prefix. It
// doubles as an allowlist: namespace names are never interpolated into
// SQL without passing through this map.
var sourceColumns = map[model.SourceKind]string{
	model.SourceGeometry:       "geometry",
	model.SourceAdministrative: "administrative",
	model.SourceScheduling:     "scheduling",
}

// SQLiteRepo implements Repository using modernc.org/sqlite.
type SQLiteRepo struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given DSN and configures
// WAL mode.
func NewSQLite(dsn string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteRepo{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS buildings (
	id                        TEXT PRIMARY KEY,
	legacy_id                 TEXT,
	doc                       TEXT NOT NULL,
	geometry_live             INTEGER NOT NULL DEFAULT 0,
	administrative_live       INTEGER NOT NULL DEFAULT 0,
	scheduling_live           INTEGER NOT NULL DEFAULT 0,
	geometry_updated_at       DATETIME,
	administrative_updated_at DATETIME,
	scheduling_updated_at     DATETIME,
	geometry_deleted_at       DATETIME,
	administrative_deleted_at DATETIME,
	scheduling_deleted_at     DATETIME,
	updated_at                DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_buildings_legacy_id ON buildings(legacy_id);
`

func (r *SQLiteRepo) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepo) FindByID(ctx context.Context, id string) (*model.Building, error) {
	return scanBuilding(r.db.QueryRowContext(ctx,
		`SELECT doc FROM buildings WHERE id = ?`, id))
}

func (r *SQLiteRepo) FindByLegacyID(ctx context.Context, id string) (*model.Building, error) {
	return scanBuilding(r.db.QueryRowContext(ctx,
		`SELECT doc FROM buildings WHERE legacy_id = ? ORDER BY id LIMIT 1`, id))
}

func (r *SQLiteRepo) Save(ctx context.Context, b *model.Building) error {
	row, err := documentRow(b)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO buildings (
			id, legacy_id, doc,
			geometry_live, administrative_live, scheduling_live,
			geometry_updated_at, administrative_updated_at, scheduling_updated_at,
			geometry_deleted_at, administrative_deleted_at, scheduling_deleted_at,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			legacy_id = excluded.legacy_id,
			doc = excluded.doc,
			geometry_live = excluded.geometry_live,
			administrative_live = excluded.administrative_live,
			scheduling_live = excluded.scheduling_live,
			geometry_updated_at = excluded.geometry_updated_at,
			administrative_updated_at = excluded.administrative_updated_at,
			scheduling_updated_at = excluded.scheduling_updated_at,
			geometry_deleted_at = excluded.geometry_deleted_at,
			administrative_deleted_at = excluded.administrative_deleted_at,
			scheduling_deleted_at = excluded.scheduling_deleted_at,
			updated_at = excluded.updated_at`,
		row...,
	)
	return eris.Wrapf(err, "sqlite: save building %s", b.ID)
}

func (r *SQLiteRepo) Remove(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM buildings WHERE id = ?`, id)
	return eris.Wrapf(err, "sqlite: remove building %s", id)
}

func (r *SQLiteRepo) FindStale(ctx context.Context, source model.SourceKind, before time.Time) ([]*model.Building, error) {
	col, ok := sourceColumns[source]
	if !ok {
		return nil, eris.Errorf("sqlite: unknown namespace %q", source)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT doc FROM buildings
		 WHERE `+col+`_live = 1 AND `+col+`_updated_at < ?
		 ORDER BY id`,
		before.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find stale")
	}
	defer rows.Close()
	return scanBuildings(rows)
}

func (r *SQLiteRepo) UnsetNamespace(ctx context.Context, id string, source model.SourceKind, stamp time.Time) error {
	b, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if b == nil {
		return eris.Errorf("sqlite: unset namespace: building %s not found", id)
	}
	b.Unset(source, stamp.UTC())
	return r.Save(ctx, b)
}

func (r *SQLiteRepo) RemoveIfAllNamespacesDeleted(ctx context.Context) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM buildings
		WHERE geometry_live = 0 AND administrative_live = 0 AND scheduling_live = 0
		  AND (geometry_deleted_at IS NOT NULL
		       OR administrative_deleted_at IS NOT NULL
		       OR scheduling_deleted_at IS NOT NULL)
		ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select orphaned")
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "sqlite: scan orphaned id")
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate orphaned ids")
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM buildings WHERE id = ?`, id); err != nil {
			return nil, eris.Wrapf(err, "sqlite: delete orphaned %s", id)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit")
	}
	return ids, nil
}

func (r *SQLiteRepo) List(ctx context.Context) ([]*model.Building, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT doc FROM buildings ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list")
	}
	defer rows.Close()
	return scanBuildings(rows)
}

// documentRow derives the queryable columns from the document. The
// doc column stays the single source of truth; the columns exist so
// staleness and legacy-id lookups never parse JSON.
func documentRow(b *model.Building) ([]any, error) {
	doc, err := json.Marshal(b)
	if err != nil {
		return nil, eris.Wrapf(err, "repo: marshal building %s", b.ID)
	}

	var legacy any
	if id := b.LegacyID(); id != "" {
		legacy = id
	}

	row := []any{b.ID, legacy, string(doc)}
	for _, kind := range model.Sources {
		row = append(row, b.Source(kind) != nil)
	}
	for _, kind := range model.Sources {
		if ns := b.Source(kind); ns != nil {
			row = append(row, ns.UpdatedAt.UTC())
		} else {
			row = append(row, nil)
		}
	}
	for _, kind := range model.Sources {
		if t := b.DeletedAt(kind); t != nil {
			row = append(row, t.UTC())
		} else {
			row = append(row, nil)
		}
	}
	return append(row, b.UpdatedAt.UTC()), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuilding(row rowScanner) (*model.Building, error) {
	var doc string
	if err := row.Scan(&doc); err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "repo: scan building")
	}
	var b model.Building
	if err := json.Unmarshal([]byte(doc), &b); err != nil {
		return nil, eris.Wrap(err, "repo: decode building document")
	}
	return &b, nil
}

func scanBuildings(rows *sql.Rows) ([]*model.Building, error) {
	var out []*model.Building
	for rows.Next() {
		b, err := scanBuilding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "repo: iterate buildings")
	}
	return out, nil
}
