package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/tricoach/internal/config"
	"github.com/2beens/tricoach/internal/middleware"
	"github.com/2beens/tricoach/internal/telemetry/metrics"
	"github.com/2beens/tricoach/internal/telemetry/tracing"
	"github.com/2beens/tricoach/internal/training/dashboard"
	trainingmcp "github.com/2beens/tricoach/internal/training/mcp"
	"github.com/2beens/tricoach/internal/training/workouts"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server

	config      *config.Config
	dbPool      *pgxpool.Pool // nil with the sheets store
	redisClient *redis.Client // nil when redis is not configured
	store       WorkoutStore
	analyzer    *dashboard.Analyzer

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	RedisPassword           string
	HoneycombTracingEnabled bool
	// DBPingAttempts > 0 waits for postgres before giving up.
	DBPingAttempts uint64
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "tricoach-backend")
	if err != nil {
		return nil, err
	}

	store, dbPool, err := OpenWorkoutStore(ctx, OpenStoreParams{
		Config:         params.Config,
		TracingEnabled: params.HoneycombTracingEnabled,
		PingAttempts:   params.DBPingAttempts,
	})
	if err != nil {
		otelShutdown()
		return nil, fmt.Errorf("open workout store: %w", err)
	}

	promRegistry := metrics.SetupPrometheus()
	if dbPool != nil {
		if err := metrics.RegisterDBPool(promRegistry, dbPool, params.Config.PostgresDBName); err != nil {
			log.Warnf("register db pool metrics: %s", err)
		}
	}
	metricsManager := metrics.NewManager("tricoach", "backend", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := NewRedisClient(ctx, params.Config, params.RedisPassword, params.HoneycombTracingEnabled)

	analyzer, err := NewAnalyzer(params.Config, store, rdb, metricsManager)
	if err != nil {
		if dbPool != nil {
			dbPool.Close()
		}
		otelShutdown()
		return nil, err
	}

	return &Server{
		config:      params.Config,
		dbPool:      dbPool,
		redisClient: rdb,
		store:       store,
		analyzer:    analyzer,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("tricoach-router"))

	var writeLimiter middleware.RequestRateLimiter
	writesPerMinute := 0
	if s.redisClient != nil {
		writeLimiter = redis_rate.NewLimiter(s.redisClient)
		writesPerMinute = s.config.WorkoutsWritesPerMinute
	}
	limitWrites := middleware.RateLimit(writeLimiter, s.metricsManager, "workouts-write", writesPerMinute)

	workoutsHandler := workouts.NewHandler(s.store, s.config.EFScaling, s.metricsManager)
	r.HandleFunc("/workouts", workoutsHandler.HandleList).Methods("GET", "OPTIONS").Name("list-workouts")
	r.Handle("/workouts", limitWrites(http.HandlerFunc(workoutsHandler.HandleAdd))).Methods("POST").Name("add-workout")
	r.Handle("/workouts", limitWrites(http.HandlerFunc(workoutsHandler.HandleReplaceAll))).Methods("PUT").Name("replace-workouts")

	dashboard.NewHandler(s.analyzer).SetupRoutes(r)

	mcpServer := trainingmcp.NewServer(s.analyzer)
	r.PathPrefix("/mcp").
		Handler(otelhttp.NewHandler(trainingmcp.NewHTTPHandler(mcpServer), "mcp")).
		Name("mcp")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.CorsAllowedOrigins))
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(host string, port int) {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      s.routerSetup(),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{Registry: s.promRegistry},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	if s.config.PrometheusMetricsPort != "" {
		go func() {
			log.Debugf(" > metrics listening on: [%s]", metricsAddr)
			err := s.metricsHttpServer.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("metrics service, listen and serve: %s", err)
			}
		}()
	}

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
