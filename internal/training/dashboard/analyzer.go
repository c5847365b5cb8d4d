package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/tricoach/internal/telemetry/metrics"
	"github.com/2beens/tricoach/internal/telemetry/tracing"
	"github.com/2beens/tricoach/internal/training"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=analyzer_mocks_test.go -package=dashboard_test

type workoutReader interface {
	List(ctx context.Context) (_ []training.Row, version string, err error)
}

type snapshotCache interface {
	Get(ctx context.Context) (*Snapshot, error)
	Set(ctx context.Context, snapshot Snapshot) error
}

const (
	outcomeFresh  = "fresh"
	outcomeStale  = "stale"
	outcomeFailed = "failed"
)

type Settings struct {
	Scaling        training.EFScaling
	DeloadCadence  int
	WeekCompleteOn time.Weekday
	RollingWindow  int
	// Location decides which calendar day "today" is.
	Location *time.Location

	RetryAttempts        uint64
	RetryInitialInterval time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

func DefaultSettings() Settings {
	return Settings{
		Scaling:              training.DefaultEFScaling(),
		DeloadCadence:        training.DefaultDeloadCadence,
		WeekCompleteOn:       time.Friday,
		RollingWindow:        training.DefaultRollingEFWindow,
		Location:             time.UTC,
		RetryAttempts:        3,
		RetryInitialInterval: 200 * time.Millisecond,
		Now:                  time.Now,
	}
}

type Query struct {
	Window     training.Window
	EFCategory training.Category
}

// RecordSet is the validated workout log, optionally narrowed to a window.
type RecordSet struct {
	Version string                   `json:"version"`
	Window  training.Window          `json:"window"`
	Records []training.WorkoutRecord `json:"records"`
	Skipped []training.SkippedRow    `json:"skipped"`
	Stale   bool                     `json:"stale"`
}

// Analyzer runs analysis passes over the whole workout log. Each pass reads the
// store once, retrying transient failures, and falls back to the last snapshot
// that was read successfully.
type Analyzer struct {
	reader         workoutReader
	cache          snapshotCache
	metricsManager *metrics.Manager
	settings       Settings
}

func NewAnalyzer(
	reader workoutReader,
	cache snapshotCache,
	metricsManager *metrics.Manager,
	settings Settings,
) *Analyzer {
	defaults := DefaultSettings()
	if settings.Location == nil {
		settings.Location = defaults.Location
	}
	if settings.Now == nil {
		settings.Now = defaults.Now
	}
	if settings.RollingWindow <= 0 {
		settings.RollingWindow = defaults.RollingWindow
	}
	if settings.RetryInitialInterval <= 0 {
		settings.RetryInitialInterval = defaults.RetryInitialInterval
	}
	settings.Scaling = settings.Scaling.WithDefaults()

	return &Analyzer{
		reader:         reader,
		cache:          cache,
		metricsManager: metricsManager,
		settings:       settings,
	}
}

func (a *Analyzer) Settings() Settings {
	return a.settings
}

// Dashboard runs one full analysis pass.
func (a *Analyzer) Dashboard(ctx context.Context, query Query) (_ training.Report, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.dashboard")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("window", query.Window.String()))

	start := time.Now()
	defer func() {
		a.metricsManager.HistogramAnalysisDuration.Observe(time.Since(start).Seconds())
	}()

	snapshot, stale, err := a.readLog(ctx)
	if err != nil {
		a.metricsManager.CounterAnalysisPasses.WithLabelValues(outcomeFailed).Inc()
		return training.Report{}, err
	}

	opts := a.analysisOptions(query)
	report := training.Analyze(snapshot.Rows, opts)
	report.Stale = stale

	a.reportSkipped(report.Skipped)
	if stale {
		a.metricsManager.CounterAnalysisPasses.WithLabelValues(outcomeStale).Inc()
	} else {
		a.metricsManager.CounterAnalysisPasses.WithLabelValues(outcomeFresh).Inc()
	}

	span.SetAttributes(
		attribute.Int("records", report.Records),
		attribute.Int("records.window", report.WindowRecords),
		attribute.Int("records.skipped", len(report.Skipped)),
		attribute.Bool("stale", stale),
	)
	return report, nil
}

// Records returns the valid records inside window, sorted by date.
func (a *Analyzer) Records(ctx context.Context, window training.Window) (_ RecordSet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.records")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	snapshot, stale, err := a.readLog(ctx)
	if err != nil {
		return RecordSet{}, err
	}

	records, skipped := training.ValidateAll(snapshot.Rows)
	a.reportSkipped(skipped)
	if skipped == nil {
		skipped = []training.SkippedRow{}
	}

	windowed := training.SortRecords(training.Filter(records, window, a.now()))
	span.SetAttributes(attribute.Int("records", len(windowed)))

	return RecordSet{
		Version: snapshot.Version,
		Window:  window,
		Records: windowed,
		Skipped: skipped,
		Stale:   stale,
	}, nil
}

func (a *Analyzer) analysisOptions(query Query) training.AnalysisOptions {
	return training.AnalysisOptions{
		Now:            a.now(),
		Window:         query.Window,
		Scaling:        a.settings.Scaling,
		DeloadCadence:  a.settings.DeloadCadence,
		WeekCompleteOn: a.settings.WeekCompleteOn,
		RollingWindow:  a.settings.RollingWindow,
		EFCategory:     query.EFCategory,
	}
}

// now is the current wall clock in the configured location, so that its
// calendar day is the athlete's today.
func (a *Analyzer) now() time.Time {
	return a.settings.Now().In(a.settings.Location)
}

// readLog reads every row from the store. When the store keeps failing the
// cached snapshot is returned with stale set.
func (a *Analyzer) readLog(ctx context.Context) (_ *Snapshot, stale bool, err error) {
	var snapshot Snapshot
	readOp := func() error {
		rows, version, err := a.reader.List(ctx)
		if err != nil {
			return err
		}
		snapshot = Snapshot{
			Rows:    rows,
			Version: version,
			ReadAt:  a.settings.Now(),
		}
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = a.settings.RetryInitialInterval
	b := backoff.WithContext(backoff.WithMaxRetries(expBackoff, a.settings.RetryAttempts), ctx)

	readErr := backoff.RetryNotify(readOp, b, func(err error, next time.Duration) {
		log.Warnf("workout store read failed, retrying in %s: %s", next, err)
	})
	if readErr == nil {
		if a.cache != nil {
			if err := a.cache.Set(ctx, snapshot); err != nil {
				log.Errorf("failed to store workout log snapshot: %s", err)
			}
		}
		return &snapshot, false, nil
	}

	a.metricsManager.CounterStoreFailures.WithLabelValues("list").Inc()
	log.Errorf("workout store read failed: %s", readErr)

	if a.cache == nil {
		return nil, false, fmt.Errorf("%w: %w", training.ErrStoreUnavailable, readErr)
	}

	cached, err := a.cache.Get(ctx)
	if err != nil {
		if !errors.Is(err, ErrSnapshotNotFound) {
			log.Errorf("failed to get workout log snapshot: %s", err)
		}
		return nil, false, fmt.Errorf("%w: %w", training.ErrStoreUnavailable, readErr)
	}

	log.Warnf("serving workout log snapshot read at %s", cached.ReadAt.Format(time.RFC3339))
	a.metricsManager.CounterStaleSnapshots.Inc()
	return cached, true, nil
}

func (a *Analyzer) reportSkipped(skipped []training.SkippedRow) {
	if len(skipped) == 0 {
		return
	}
	a.metricsManager.CounterRowsDropped.Add(float64(len(skipped)))
	log.Warnf("analysis pass dropped %d rows: %s", len(skipped), training.SkippedErr(skipped))
}
