package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	createMigrationTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`
	selectAppliedSQL = `SELECT version, applied_at FROM schema_migrations`
	insertAppliedSQL = `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`
	deleteAppliedSQL = `DELETE FROM schema_migrations WHERE version = $1`
)

// Migration is one schema step. Files are named NNN_name.up.sql and
// NNN_name.down.sql.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// GetMigrations returns the embedded migrations ordered by version.
func GetMigrations() []Migration {
	migrations, err := loadMigrations(migrationFiles, "migrations")
	if err != nil {
		// The files are compiled in; a bad name is a build mistake.
		panic(err)
	}
	return migrations
}

func loadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	byVersion := map[int]*Migration{}
	for _, e := range entries {
		base := e.Name()
		var direction string
		switch {
		case strings.HasSuffix(base, ".up.sql"):
			direction = "up"
		case strings.HasSuffix(base, ".down.sql"):
			direction = "down"
		default:
			continue
		}
		stem := strings.TrimSuffix(base, "."+direction+".sql")
		num, name, ok := strings.Cut(stem, "_")
		version, err := strconv.Atoi(num)
		if !ok || err != nil || version <= 0 {
			return nil, fmt.Errorf("%w: bad file name %q", ErrMigrationFailed, base)
		}
		body, err := fs.ReadFile(fsys, path.Join(dir, base))
		if err != nil {
			return nil, err
		}
		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if direction == "up" {
			m.UpSQL = string(body)
		} else {
			m.DownSQL = string(body)
		}
	}
	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		out = append(out, *m)
	}
	sortByVersion(out)
	return out, nil
}

func sortByVersion(ms []Migration) {
	slices.SortFunc(ms, func(a, b Migration) int { return a.Version - b.Version })
}

// Migrator applies migrations and records them in schema_migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
}

func NewMigrator(conn *Connection) *Migrator {
	return NewMigratorWithMigrations(conn, GetMigrations())
}

func NewMigratorWithMigrations(conn *Connection, migrations []Migration) *Migrator {
	sorted := slices.Clone(migrations)
	sortByVersion(sorted)
	return &Migrator{conn: conn, migrations: sorted}
}

// applied creates the bookkeeping table on first use.
func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	if _, err := m.conn.Exec(ctx, createMigrationTableSQL); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	rows, err := m.conn.Query(ctx, selectAppliedSQL)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	out := map[int]time.Time{}
	for rows.Next() {
		var (
			version int
			at      time.Time
		)
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("read schema_migrations: %w", err)
		}
		out[version] = at
	}
	return out, rows.Err()
}

// Migrate applies every pending migration, each in its own transaction,
// and returns the versions applied. It stops at the first failure.
func (m *Migrator) Migrate(ctx context.Context) ([]int, error) {
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	var versions []int
	for _, mig := range pending(m.migrations, done) {
		if mig.UpSQL == "" {
			return versions, fmt.Errorf("%w: %d has no up script", ErrMigrationFailed, mig.Version)
		}
		err := m.conn.WithTx(ctx, migrationTx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, insertAppliedSQL, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return versions, fmt.Errorf("%w: %d %s: %v", ErrMigrationFailed, mig.Version, mig.Name, err)
		}
		versions = append(versions, mig.Version)
	}
	return versions, nil
}

// Rollback reverts the newest applied migration. With nothing applied it
// does nothing.
func (m *Migrator) Rollback(ctx context.Context) error {
	done, err := m.applied(ctx)
	if err != nil {
		return err
	}
	last := 0
	for v := range done {
		last = max(last, v)
	}
	if last == 0 {
		return nil
	}

	i := slices.IndexFunc(m.migrations, func(mig Migration) bool { return mig.Version == last })
	if i < 0 || m.migrations[i].DownSQL == "" {
		return fmt.Errorf("%w: %d has no down script", ErrMigrationFailed, last)
	}
	mig := m.migrations[i]

	return m.conn.WithTx(ctx, migrationTx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, mig.DownSQL); err != nil {
			return fmt.Errorf("%w: revert %d: %v", ErrMigrationFailed, last, err)
		}
		_, err := tx.Exec(ctx, deleteAppliedSQL, last)
		return err
	})
}

// Status lists every known migration with its applied time, if any.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	return mergeStatus(m.migrations, done), nil
}

func pending(migrations []Migration, applied map[int]time.Time) []Migration {
	var out []Migration
	for _, mig := range migrations {
		if _, ok := applied[mig.Version]; !ok {
			out = append(out, mig)
		}
	}
	return out
}

func mergeStatus(migrations []Migration, applied map[int]time.Time) []Migration {
	out := slices.Clone(migrations)
	for i := range out {
		if at, ok := applied[out[i].Version]; ok {
			out[i].IsApplied, out[i].AppliedAt = true, at
		}
	}
	return out
}
