package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"

	"timesplit/internal/core"
	"timesplit/internal/store"

	_ "modernc.org/sqlite"
)

var _ store.Repository = (*SQLiteRepository)(nil)

// SQLiteRepository stores entries and settings in a private in-memory SQLite
// database. The database lives as long as the repository; nothing is written
// to disk.
type SQLiteRepository struct {
	db  *sql.DB
	dsn string
}

// MemoryDSN builds a shared-cache in-memory DSN. The random suffix keeps two
// repositories in one process from seeing each other's tables.
func MemoryDSN(name string) string {
	if name == "" {
		name = "timesplit"
	}
	return "file:" + url.PathEscape(name+"-"+uuid.NewString()) + "?mode=memory&cache=shared"
}

// NewSQLiteRepository opens an in-memory database, migrates it and seeds the
// settings row with baseAmount.
func NewSQLiteRepository(ctx context.Context, name string, baseAmount float64) (*SQLiteRepository, error) {
	dsn := MemoryDSN(name)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One connection serialises every statement and keeps the in-memory
	// database alive for the lifetime of the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{db: db, dsn: dsn}
	if err := repo.seedSettings(ctx, baseAmount); err != nil {
		db.Close()
		return nil, err
	}

	slog.InfoContext(ctx, "SQLite repository ready", "dsn", dsn)
	return repo, nil
}

func (r *SQLiteRepository) seedSettings(ctx context.Context, baseAmount float64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (id, base_amount) SELECT ?, ? WHERE NOT EXISTS (SELECT 1 FROM settings)`,
		uuid.NewString(), baseAmount)
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}

// Close releases the database; its contents are lost.
func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database still answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const entryColumns = `id, date, nafees, waqas, cheetan, nadeem, total_minutes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (core.TimeEntry, error) {
	var e core.TimeEntry
	err := row.Scan(&e.ID, &e.Date, &e.Nafees, &e.Waqas, &e.Cheetan, &e.Nadeem, &e.TotalMinutes)
	return e, err
}

// ListEntries implements store.EntryStore.
func (r *SQLiteRepository) ListEntries(ctx context.Context) ([]core.TimeEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM time_entries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query time entries: %w", err)
	}
	defer rows.Close()

	entries := []core.TimeEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate time entries: %w", err)
	}

	core.SortEntries(entries)
	return entries, nil
}

// CreateEntry implements store.EntryStore.
func (r *SQLiteRepository) CreateEntry(ctx context.Context, n core.NewEntry) (core.TimeEntry, error) {
	e := n.Build(uuid.NewString())
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO time_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Date, e.Nafees, e.Waqas, e.Cheetan, e.Nadeem, e.TotalMinutes)
	if err != nil {
		return core.TimeEntry{}, fmt.Errorf("insert time entry: %w", err)
	}

	slog.DebugContext(ctx, "Time entry saved to SQLite", "id", e.ID, "date", e.Date, "total_minutes", e.TotalMinutes)
	return e, nil
}

// UpdateEntry implements store.EntryStore. Read, merge and write happen in
// one transaction.
func (r *SQLiteRepository) UpdateEntry(ctx context.Context, id string, p core.EntryPatch) (core.TimeEntry, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.TimeEntry{}, false, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanEntry(tx.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.TimeEntry{}, false, nil
	}
	if err != nil {
		return core.TimeEntry{}, false, fmt.Errorf("get time entry %s: %w", id, err)
	}

	updated := p.Apply(existing)
	_, err = tx.ExecContext(ctx,
		`UPDATE time_entries SET date = ?, nafees = ?, waqas = ?, cheetan = ?, nadeem = ?, total_minutes = ? WHERE id = ?`,
		updated.Date, updated.Nafees, updated.Waqas, updated.Cheetan, updated.Nadeem, updated.TotalMinutes, id)
	if err != nil {
		return core.TimeEntry{}, false, fmt.Errorf("update time entry %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return core.TimeEntry{}, false, fmt.Errorf("commit update: %w", err)
	}
	return updated, true, nil
}

// DeleteEntry implements store.EntryStore.
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM time_entries WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete time entry %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// GetSettings implements store.SettingsStore.
func (r *SQLiteRepository) GetSettings(ctx context.Context) (core.Settings, error) {
	var s core.Settings
	err := r.db.QueryRowContext(ctx, `SELECT id, base_amount FROM settings LIMIT 1`).Scan(&s.ID, &s.BaseAmount)
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

// UpdateSettings implements store.SettingsStore.
func (r *SQLiteRepository) UpdateSettings(ctx context.Context, p core.SettingsPatch) (core.Settings, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Settings{}, fmt.Errorf("begin settings update: %w", err)
	}
	defer tx.Rollback()

	var s core.Settings
	if err := tx.QueryRowContext(ctx, `SELECT id, base_amount FROM settings LIMIT 1`).Scan(&s.ID, &s.BaseAmount); err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}

	s = p.Apply(s)
	if _, err := tx.ExecContext(ctx, `UPDATE settings SET base_amount = ? WHERE id = ?`, s.BaseAmount, s.ID); err != nil {
		return core.Settings{}, fmt.Errorf("update settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Settings{}, fmt.Errorf("commit settings update: %w", err)
	}
	return s, nil
}
