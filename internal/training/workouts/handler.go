package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/2beens/tricoach/internal/telemetry/metrics"
	"github.com/2beens/tricoach/internal/telemetry/tracing"
	"github.com/2beens/tricoach/internal/training"
	"github.com/2beens/tricoach/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=workouts_mocks_test.go -package=workouts_test

type workoutStore interface {
	Append(ctx context.Context, row training.Row) (training.Row, error)
	List(ctx context.Context) (_ []training.Row, version string, err error)
	ReplaceAll(ctx context.Context, rows []training.Row, expectedVersion string) (version string, err error)
}

const retryAfterSeconds = "30"

// WorkoutRequest is a single session as sent by clients. Pace is "m:ss" or seconds.
type WorkoutRequest struct {
	Date              string  `json:"date"`
	Sport             string  `json:"sport"`
	Category          string  `json:"category"`
	DurationMinutes   float64 `json:"durationMinutes"`
	Distance          float64 `json:"distance"`
	Intensity         int     `json:"intensity"`
	AvgHeartRate      int     `json:"avgHeartRate"`
	AvgPowerWatts     float64 `json:"avgPowerWatts"`
	Pace              string  `json:"pace"`
	DecouplingPercent float64 `json:"decouplingPercent"`
}

// Row converts the request into store cells. Zero numbers become empty cells.
func (req WorkoutRequest) Row() (training.Row, error) {
	pace, err := training.ParsePace(req.Pace)
	if err != nil {
		return training.Row{}, err
	}
	return training.Row{
		Date:       req.Date,
		Sport:      req.Sport,
		Type:       req.Category,
		Duration:   cellNumber(req.DurationMinutes),
		Distance:   cellNumber(req.Distance),
		Intensity:  cellNumber(float64(req.Intensity)),
		AvgHR:      cellNumber(float64(req.AvgHeartRate)),
		AvgPower:   cellNumber(req.AvgPowerWatts),
		Pace:       cellNumber(pace),
		Decoupling: cellNumber(req.DecouplingPercent),
	}, nil
}

type WorkoutResponse struct {
	Seq               int                       `json:"seq"`
	Date              string                    `json:"date"`
	Sport             training.Sport            `json:"sport"`
	Category          training.Category         `json:"category,omitempty"`
	DurationMinutes   float64                   `json:"durationMinutes"`
	Distance          float64                   `json:"distance"`
	DistanceUnit      training.DistanceUnit     `json:"distanceUnit"`
	Intensity         int                       `json:"intensity"`
	Load              float64                   `json:"load"`
	AvgHeartRate      int                       `json:"avgHeartRate,omitempty"`
	AvgPowerWatts     float64                   `json:"avgPowerWatts,omitempty"`
	PaceSeconds       float64                   `json:"paceSeconds,omitempty"`
	EF                float64                   `json:"ef,omitempty"`
	DecouplingPercent float64                   `json:"decouplingPercent"`
	DecouplingStatus  training.DecouplingStatus `json:"decouplingStatus"`
}

func NewWorkoutResponse(rec training.WorkoutRecord, scaling training.EFScaling) WorkoutResponse {
	resp := WorkoutResponse{
		Seq:               rec.Seq,
		Date:              rec.Date.Format(training.DateLayout),
		Sport:             rec.Sport,
		Category:          rec.Category,
		DurationMinutes:   rec.DurationMinutes,
		Distance:          rec.Distance,
		DistanceUnit:      rec.DistanceUnit(),
		Intensity:         rec.Intensity,
		Load:              rec.Load(),
		AvgHeartRate:      rec.AvgHeartRate,
		AvgPowerWatts:     rec.AvgPowerWatts,
		PaceSeconds:       rec.PaceSeconds,
		DecouplingPercent: rec.DecouplingPercent,
		DecouplingStatus:  training.ClassifyDecoupling(rec.DecouplingPercent),
	}
	if ef, err := rec.EfficiencyFactor(scaling); err == nil {
		resp.EF = ef
	}
	return resp
}

type ListResponse struct {
	Version  string                `json:"version"`
	Workouts []WorkoutResponse     `json:"workouts"`
	Skipped  []training.SkippedRow `json:"skipped"`
}

type ReplaceAllRequest struct {
	Workouts []WorkoutRequest `json:"workouts"`
}

type ReplaceAllResponse struct {
	Version string `json:"version"`
	Count   int    `json:"count"`
}

type Handler struct {
	store          workoutStore
	scaling        training.EFScaling
	metricsManager *metrics.Manager
}

func NewHandler(store workoutStore, scaling training.EFScaling, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		store:          store,
		scaling:        scaling.WithDefaults(),
		metricsManager: metricsManager,
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.add")
	defer span.End()

	if !isJSON(r) {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req WorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("add workout, unmarshal json params: %s", err)
		http.Error(w, "add workout failed, invalid json", http.StatusBadRequest)
		return
	}

	rec, err := validateRequest(req)
	if err != nil {
		log.Debugf("add workout, invalid request: %s", err)
		http.Error(w, fmt.Sprintf("invalid workout: %s", err), http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.String("workout.sport", rec.Sport.String()))

	added, err := handler.store.Append(ctx, rec.ToRow(handler.scaling))
	if err != nil {
		handler.storeError(w, "append", err)
		return
	}
	rec.Seq = added.Seq
	handler.metricsManager.CounterWorkoutsAppended.WithLabelValues(rec.Sport.String()).Inc()

	respJson, err := json.Marshal(NewWorkoutResponse(rec, handler.scaling))
	if err != nil {
		log.Errorf("failed to marshal new workout: %s", err)
		http.Error(w, "failed to marshal new workout", http.StatusInternalServerError)
		return
	}

	log.Debugf("new workout added: %s", respJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	rows, version, err := handler.store.List(ctx)
	if err != nil {
		handler.storeError(w, "list", err)
		return
	}

	records, skipped := training.ValidateAll(rows)
	if len(skipped) > 0 {
		log.Warnf("list workouts, %d rows skipped: %s", len(skipped), training.SkippedErr(skipped))
	}
	if skipped == nil {
		skipped = []training.SkippedRow{}
	}

	resp := ListResponse{
		Version:  version,
		Workouts: make([]WorkoutResponse, 0, len(records)),
		Skipped:  skipped,
	}
	for _, rec := range records {
		resp.Workouts = append(resp.Workouts, NewWorkoutResponse(rec, handler.scaling))
	}
	span.SetAttributes(attribute.Int("workouts.count", len(resp.Workouts)))

	respJson, err := json.Marshal(resp)
	if err != nil {
		log.Errorf("failed to marshal workouts: %s", err)
		http.Error(w, "failed to marshal workouts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", strconv.Quote(version))
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

// HandleReplaceAll swaps the whole log. The If-Match header must carry the
// version returned by the last list, otherwise the write is rejected.
func (handler *Handler) HandleReplaceAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.replaceall")
	defer span.End()

	expectedVersion := strings.Trim(strings.TrimSpace(r.Header.Get("If-Match")), `"`)
	if expectedVersion == "" {
		http.Error(w, "error, If-Match header with log version required", http.StatusPreconditionRequired)
		return
	}

	if !isJSON(r) {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req ReplaceAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("replace workouts, unmarshal json params: %s", err)
		http.Error(w, "replace workouts failed, invalid json", http.StatusBadRequest)
		return
	}

	rows := make([]training.Row, 0, len(req.Workouts))
	for i, workoutReq := range req.Workouts {
		rec, err := validateRequest(workoutReq)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid workout at index %d: %s", i, err), http.StatusBadRequest)
			return
		}
		rows = append(rows, rec.ToRow(handler.scaling))
	}

	version, err := handler.store.ReplaceAll(ctx, rows, expectedVersion)
	if err != nil {
		handler.storeError(w, "replace_all", err)
		return
	}

	log.Debugf("workout log replaced, %d rows, version %s -> %s", len(rows), expectedVersion, version)

	respJson, err := json.Marshal(ReplaceAllResponse{
		Version: version,
		Count:   len(rows),
	})
	if err != nil {
		log.Errorf("failed to marshal replace response: %s", err)
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", strconv.Quote(version))
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (handler *Handler) storeError(w http.ResponseWriter, operation string, err error) {
	if errors.Is(err, training.ErrVersionConflict) {
		handler.metricsManager.CounterReplaceConflicts.Inc()
		http.Error(w, "workout log changed since it was read", http.StatusConflict)
		return
	}

	log.Errorf("workout store %s: %s", operation, err)
	handler.metricsManager.CounterStoreFailures.WithLabelValues(operation).Inc()
	w.Header().Set("Retry-After", retryAfterSeconds)
	http.Error(w, "workout store unavailable", http.StatusServiceUnavailable)
}

func validateRequest(req WorkoutRequest) (training.WorkoutRecord, error) {
	row, err := req.Row()
	if err != nil {
		return training.WorkoutRecord{}, err
	}
	return training.Validate(row)
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), pkg.ContentType.JSON)
}

func cellNumber(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
