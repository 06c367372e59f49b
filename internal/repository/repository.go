package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/UnknownOlympus/wardtagger/internal/models"
)

// Supported cache drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrCacheMiss is returned when no coordinates are stored for an address.
var ErrCacheMiss = errors.New("address not found in geocode cache")

// GeocodeCache memoizes geocoding results keyed by the exact address string.
type GeocodeCache interface {
	GetCoordinates(ctx context.Context, address string) (models.Coordinates, error)
	SetCoordinates(ctx context.Context, address string, coords models.Coordinates) error
}

// BatchCache remembers which members an interrupted batch already processed,
// and which members still need their tags fixed after a failed remote call.
// Pending members survive the end of a batch; a later batch retries them.
type BatchCache interface {
	IsMemberProcessed(ctx context.Context, memberID string) (bool, error)
	MarkMemberProcessed(ctx context.Context, memberID string) error
	ClearProcessedMembers(ctx context.Context) error
	AddPendingMember(ctx context.Context, memberID string) error
	PendingMembers(ctx context.Context) ([]string, error)
	RemovePendingMember(ctx context.Context, memberID string) error
}

// Interface is the persistent state shared across runs.
type Interface interface {
	GeocodeCache
	BatchCache
	Close() error
}

// Options selects and locates the cache backend.
type Options struct {
	Driver   string // Driver is either "sqlite" or "postgres".
	DSN      string // DSN is the postgres connection string or the sqlite file path.
	StateDir string // StateDir holds the default sqlite file when DSN is empty.
}

// Open creates the cache backend described by opts and makes sure its tables exist.
func Open(ctx context.Context, opts Options, log *slog.Logger) (Interface, error) {
	switch opts.Driver {
	case DriverPostgres:
		dtb, err := NewDatabase(ctx, opts.DSN)
		if err != nil {
			return nil, err
		}
		repo := NewPostgresRepository(dtb, log)
		if err = repo.Migrate(ctx); err != nil {
			dtb.Close()
			return nil, err
		}
		return repo, nil
	case DriverSQLite, "":
		path := opts.DSN
		if path == "" {
			if err := os.MkdirAll(opts.StateDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
			path = filepath.Join(opts.StateDir, "cache.db")
		}
		repo, err := NewSQLiteRepository(path, log)
		if err != nil {
			return nil, err
		}
		if err = repo.Migrate(ctx); err != nil {
			_ = repo.Close()
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", opts.Driver)
	}
}
