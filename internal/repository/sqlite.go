package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/wardtagger/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteRepository stores the caches in a local SQLite file.
type SQLiteRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSQLiteRepository opens the SQLite database at path and configures WAL mode.
func NewSQLiteRepository(path string, log *slog.Logger) (*SQLiteRepository, error) {
	dtb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite cache: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err = dtb.Exec(pragma); err != nil {
			_ = dtb.Close()
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return &SQLiteRepository{db: dtb, log: log}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address   TEXT PRIMARY KEY,
	latitude  REAL NOT NULL,
	longitude REAL NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS processed_members (
	member_id    TEXT PRIMARY KEY,
	processed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS pending_members (
	member_id TEXT PRIMARY KEY,
	failed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// Migrate creates the cache tables when they do not exist yet.
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteMigration); err != nil {
		return fmt.Errorf("failed to create cache tables: %w", err)
	}

	return nil
}

// GetCoordinates returns the cached coordinates for the address or ErrCacheMiss.
func (r *SQLiteRepository) GetCoordinates(ctx context.Context, address string) (models.Coordinates, error) {
	var coords models.Coordinates

	err := r.db.QueryRowContext(ctx,
		`SELECT latitude, longitude FROM geocode_cache WHERE address = ?`, address,
	).Scan(&coords.Latitude, &coords.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Coordinates{}, ErrCacheMiss
	}
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("failed to query cached coordinates: %w", err)
	}

	r.log.DebugContext(ctx, "Geocode cache hit", "address", address)

	return coords, nil
}

// SetCoordinates stores the coordinates for the address, replacing any previous entry.
func (r *SQLiteRepository) SetCoordinates(ctx context.Context, address string, coords models.Coordinates) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (address, latitude, longitude, cached_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT (address) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			cached_at = excluded.cached_at`,
		address, coords.Latitude, coords.Longitude,
	)
	if err != nil {
		return fmt.Errorf("failed to store cached coordinates: %w", err)
	}

	return nil
}

// IsMemberProcessed reports whether the member was marked during the current batch.
func (r *SQLiteRepository) IsMemberProcessed(ctx context.Context, memberID string) (bool, error) {
	var exists bool

	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM processed_members WHERE member_id = ?)`, memberID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check processed member: %w", err)
	}

	return exists, nil
}

// MarkMemberProcessed records that the member was handled in the current batch.
func (r *SQLiteRepository) MarkMemberProcessed(ctx context.Context, memberID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO processed_members (member_id) VALUES (?) ON CONFLICT (member_id) DO NOTHING`, memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark member as processed: %w", err)
	}

	return nil
}

// ClearProcessedMembers forgets every member of the batch.
func (r *SQLiteRepository) ClearProcessedMembers(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM processed_members`); err != nil {
		return fmt.Errorf("failed to clear processed members: %w", err)
	}

	return nil
}

// AddPendingMember queues the member for the next batch.
func (r *SQLiteRepository) AddPendingMember(ctx context.Context, memberID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_members (member_id, failed_at)
		VALUES (?, datetime('now'))
		ON CONFLICT (member_id) DO UPDATE SET failed_at = excluded.failed_at`,
		memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to queue pending member: %w", err)
	}

	return nil
}

// PendingMembers lists the queued members, oldest failure first.
func (r *SQLiteRepository) PendingMembers(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT member_id FROM pending_members ORDER BY failed_at, member_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan pending member: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list pending members: %w", err)
	}

	return ids, nil
}

// RemovePendingMember drops the member from the queue.
func (r *SQLiteRepository) RemovePendingMember(ctx context.Context, memberID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pending_members WHERE member_id = ?`, memberID); err != nil {
		return fmt.Errorf("failed to remove pending member: %w", err)
	}

	return nil
}

// Close closes the database file.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
