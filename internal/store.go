package internal

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/2beens/tricoach/internal/config"
	"github.com/2beens/tricoach/internal/db"
	"github.com/2beens/tricoach/internal/telemetry/metrics"
	"github.com/2beens/tricoach/internal/training"
	"github.com/2beens/tricoach/internal/training/dashboard"
	"github.com/2beens/tricoach/internal/training/workouts"

	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// WorkoutStore is the append-only workout log, backed by postgres or a spreadsheet.
type WorkoutStore interface {
	Append(ctx context.Context, row training.Row) (training.Row, error)
	List(ctx context.Context) (_ []training.Row, version string, err error)
	ReplaceAll(ctx context.Context, rows []training.Row, expectedVersion string) (version string, err error)
}

type OpenStoreParams struct {
	Config         *config.Config
	TracingEnabled bool
	// PingAttempts > 0 waits for postgres to come up.
	PingAttempts uint64
}

// OpenWorkoutStore builds the store selected by store_backend. The returned pool is nil
// unless the postgres backend is used; the caller closes it.
func OpenWorkoutStore(ctx context.Context, params OpenStoreParams) (WorkoutStore, *pgxpool.Pool, error) {
	cfg := params.Config
	switch cfg.StoreBackend {
	case config.StoreBackendSheets:
		store, err := workouts.NewSheetsStore(ctx, cfg.SheetsCredentialsPath, cfg.SheetsSpreadsheetID, cfg.SheetsRange)
		if err != nil {
			return nil, nil, fmt.Errorf("sheets store: %w", err)
		}
		log.Debugf("using sheets workout store [%s]", cfg.SheetsRange)
		return store, nil, nil
	case config.StoreBackendPostgres:
		dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			TracingEnabled: params.TracingEnabled,
			PingAttempts:   params.PingAttempts,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("new db pool: %w", err)
		}

		repo := workouts.NewRepo(dbPool)
		if err := repo.Migrate(ctx); err != nil {
			dbPool.Close()
			return nil, nil, err
		}
		log.Debugf("using postgres workout store [%s]", cfg.PostgresDBName)
		return repo, dbPool, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.StoreBackend)
	}
}

// NewRedisClient returns nil when no redis is configured.
func NewRedisClient(ctx context.Context, cfg *config.Config, password string, tracingEnabled bool) *redis.Client {
	if cfg.RedisHost == "" || cfg.RedisPort == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: password,
		DB:       0, // use default DB
	})
	if tracingEnabled {
		rdb.AddHook(redisotel.NewTracingHook())
	}

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}
	return rdb
}

// NewAnalyzer wires the analysis service to the store and the configured snapshot cache.
func NewAnalyzer(
	cfg *config.Config,
	store WorkoutStore,
	rdb *redis.Client,
	metricsManager *metrics.Manager,
) (*dashboard.Analyzer, error) {
	settings := dashboard.DefaultSettings()
	settings.Scaling = cfg.EFScaling
	settings.DeloadCadence = cfg.DeloadCadence
	settings.Location = cfg.Location()
	settings.RetryAttempts = uint64(cfg.StoreRetryAttempts)

	if cfg.SnapshotCacheBackend != config.CacheBackendRedis {
		cache := dashboard.NewMemorySnapshotCache(cfg.SnapshotCacheSizeMB, cfg.SnapshotCacheTTL.Duration)
		return dashboard.NewAnalyzer(store, cache, metricsManager, settings), nil
	}

	if rdb == nil {
		return nil, errors.New("redis snapshot cache: redis not configured")
	}
	cache := dashboard.NewRedisSnapshotCache(rdb, cfg.SnapshotCacheTTL.Duration)
	return dashboard.NewAnalyzer(store, cache, metricsManager, settings), nil
}
