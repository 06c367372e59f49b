package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/wardtagger/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Database is the subset of pgxpool.Pool used by the repository.
type Database interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresRepository stores the caches in PostgreSQL tables.
type PostgresRepository struct {
	db  Database
	log *slog.Logger
}

// NewDatabase connects to PostgreSQL and verifies the connection.
func NewDatabase(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// NewPostgresRepository creates a new instance of PostgresRepository with the provided Database.
func NewPostgresRepository(db Database, log *slog.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, log: log}
}

const postgresMigration = `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address   TEXT PRIMARY KEY,
		latitude  DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		cached_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS processed_members (
		member_id    TEXT PRIMARY KEY,
		processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS pending_members (
		member_id TEXT PRIMARY KEY,
		failed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
`

// Migrate creates the cache tables when they do not exist yet.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, postgresMigration); err != nil {
		return fmt.Errorf("failed to create cache tables: %w", err)
	}

	return nil
}

// GetCoordinates returns the cached coordinates for the address or ErrCacheMiss.
func (r *PostgresRepository) GetCoordinates(ctx context.Context, address string) (models.Coordinates, error) {
	var coords models.Coordinates
	query := `
		SELECT latitude, longitude
		FROM geocode_cache
		WHERE address = $1;
	`

	err := r.db.QueryRow(ctx, query, address).Scan(&coords.Latitude, &coords.Longitude)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Coordinates{}, ErrCacheMiss
	}
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("failed to query cached coordinates: %w", err)
	}

	r.log.DebugContext(ctx, "Geocode cache hit", "address", address)

	return coords, nil
}

// SetCoordinates stores the coordinates for the address, replacing any previous entry.
func (r *PostgresRepository) SetCoordinates(ctx context.Context, address string, coords models.Coordinates) error {
	query := `
		INSERT INTO geocode_cache (address, latitude, longitude, cached_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (address) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			cached_at = now();
	`

	if _, err := r.db.Exec(ctx, query, address, coords.Latitude, coords.Longitude); err != nil {
		return fmt.Errorf("failed to store cached coordinates: %w", err)
	}

	return nil
}

// IsMemberProcessed reports whether the member was marked during the current batch.
func (r *PostgresRepository) IsMemberProcessed(ctx context.Context, memberID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM processed_members WHERE member_id = $1);`

	if err := r.db.QueryRow(ctx, query, memberID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check processed member: %w", err)
	}

	return exists, nil
}

// MarkMemberProcessed records that the member was handled in the current batch.
func (r *PostgresRepository) MarkMemberProcessed(ctx context.Context, memberID string) error {
	query := `
		INSERT INTO processed_members (member_id, processed_at)
		VALUES ($1, now())
		ON CONFLICT (member_id) DO NOTHING;
	`

	if _, err := r.db.Exec(ctx, query, memberID); err != nil {
		return fmt.Errorf("failed to mark member as processed: %w", err)
	}

	return nil
}

// ClearProcessedMembers forgets every member of the batch.
func (r *PostgresRepository) ClearProcessedMembers(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM processed_members;`); err != nil {
		return fmt.Errorf("failed to clear processed members: %w", err)
	}

	return nil
}

// AddPendingMember queues the member for the next batch.
func (r *PostgresRepository) AddPendingMember(ctx context.Context, memberID string) error {
	query := `
		INSERT INTO pending_members (member_id, failed_at)
		VALUES ($1, now())
		ON CONFLICT (member_id) DO UPDATE SET failed_at = now();
	`

	if _, err := r.db.Exec(ctx, query, memberID); err != nil {
		return fmt.Errorf("failed to queue pending member: %w", err)
	}

	return nil
}

// PendingMembers lists the queued members, oldest failure first.
func (r *PostgresRepository) PendingMembers(ctx context.Context) ([]string, error) {
	query := `SELECT member_id FROM pending_members ORDER BY failed_at, member_id;`

	rows, err := r.db.Query(ctx, query)
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
func (r *PostgresRepository) RemovePendingMember(ctx context.Context, memberID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM pending_members WHERE member_id = $1;`, memberID); err != nil {
		return fmt.Errorf("failed to remove pending member: %w", err)
	}

	return nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() error {
	r.db.Close()
	return nil
}
