package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/2beens/tricoach/internal/telemetry/tracing"
	"github.com/2beens/tricoach/internal/training"
	"github.com/2beens/tricoach/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=dashboard_test

type trainingAnalyzer interface {
	Dashboard(ctx context.Context, query Query) (training.Report, error)
}

type WeeklyResponse struct {
	Window training.Window `json:"window"`
	BySport bool           `json:"bySport"`
	Weeks   any            `json:"weeks"`
	Stale   bool           `json:"stale"`
}

type ProgressionResponse struct {
	Window      training.Window             `json:"window"`
	Progression training.ProgressionVerdict `json:"progression"`
	Weeks       []training.WeeklyBucket     `json:"weeks"`
	Stale       bool                        `json:"stale"`
}

type EfficiencyResponse struct {
	Window     training.Window                       `json:"window"`
	Category   training.Category                     `json:"category,omitempty"`
	Efficiency map[training.Sport][]training.EFPoint `json:"efficiency"`
	Stale      bool                                  `json:"stale"`
}

type RecoveryResponse struct {
	Recovery training.RecoveryStatus `json:"recovery"`
	Stale    bool                    `json:"stale"`
}

type TotalsResponse struct {
	Window   training.Window                    `json:"window"`
	Lifetime map[training.Sport]training.Totals `json:"lifetime"`
	InWindow map[training.Sport]training.Totals `json:"inWindow"`
	Stale    bool                               `json:"stale"`
}

type DriftRequest struct {
	FirstHalfEF  float64 `json:"firstHalfEf"`
	SecondHalfEF float64 `json:"secondHalfEf"`
}

type CategoriesResponse struct {
	Sports        []training.Sport                         `json:"sports"`
	Categories    map[training.Sport][]training.Category   `json:"categories"`
	DistanceUnits map[training.Sport]training.DistanceUnit `json:"distanceUnits"`
}

type Handler struct {
	analyzer trainingAnalyzer
}

func NewHandler(analyzer trainingAnalyzer) *Handler {
	return &Handler{
		analyzer: analyzer,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/training/dashboard", handler.HandleDashboard).Methods("GET", "OPTIONS").Name("training-dashboard")
	router.HandleFunc("/training/weekly", handler.HandleWeekly).Methods("GET", "OPTIONS").Name("training-weekly")
	router.HandleFunc("/training/progression", handler.HandleProgression).Methods("GET", "OPTIONS").Name("training-progression")
	router.HandleFunc("/training/efficiency", handler.HandleEfficiency).Methods("GET", "OPTIONS").Name("training-efficiency")
	router.HandleFunc("/training/recovery", handler.HandleRecovery).Methods("GET", "OPTIONS").Name("training-recovery")
	router.HandleFunc("/training/totals", handler.HandleTotals).Methods("GET", "OPTIONS").Name("training-totals")
	router.HandleFunc("/training/drift", handler.HandleDrift).Methods("POST", "OPTIONS").Name("training-drift")
	router.HandleFunc("/training/categories", handler.HandleCategories).Methods("GET", "OPTIONS").Name("training-categories")
}

func (handler *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.dashboard")
	defer span.End()

	query, ok := parseQuery(w, r)
	if !ok {
		return
	}

	report, ok := handler.analyze(ctx, w, query)
	if !ok {
		return
	}
	pkg.WriteJSON(w, report, http.StatusOK)
}

// HandleWeekly returns weekly buckets, per discipline when by=sport.
func (handler *Handler) HandleWeekly(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.weekly")
	defer span.End()

	query, ok := parseQuery(w, r)
	if !ok {
		return
	}
	bySport := strings.EqualFold(r.URL.Query().Get("by"), "sport")

	report, ok := handler.analyze(ctx, w, query)
	if !ok {
		return
	}

	resp := WeeklyResponse{
		Window:  report.Window,
		BySport: bySport,
		Weeks:   report.Weeks,
		Stale:   report.Stale,
	}
	if bySport {
		resp.Weeks = report.WeeksBySport
	}
	pkg.WriteJSON(w, resp, http.StatusOK)
}

func (handler *Handler) HandleProgression(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.progression")
	defer span.End()

	query, ok := parseQuery(w, r)
	if !ok {
		return
	}

	report, ok := handler.analyze(ctx, w, query)
	if !ok {
		return
	}
	pkg.WriteJSON(w, ProgressionResponse{
		Window:      report.Window,
		Progression: report.Progression,
		Weeks:       report.Weeks,
		Stale:       report.Stale,
	}, http.StatusOK)
}

func (handler *Handler) HandleEfficiency(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.efficiency")
	defer span.End()

	query, ok := parseQuery(w, r)
	if !ok {
		return
	}

	report, ok := handler.analyze(ctx, w, query)
	if !ok {
		return
	}
	pkg.WriteJSON(w, EfficiencyResponse{
		Window:     report.Window,
		Category:   query.EFCategory,
		Efficiency: report.Efficiency,
		Stale:      report.Stale,
	}, http.StatusOK)
}

// HandleRecovery always looks at the whole log, the window parameter is ignored.
func (handler *Handler) HandleRecovery(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.recovery")
	defer span.End()

	report, ok := handler.analyze(ctx, w, Query{Window: training.AllTime()})
	if !ok {
		return
	}
	pkg.WriteJSON(w, RecoveryResponse{
		Recovery: report.Recovery,
		Stale:    report.Stale,
	}, http.StatusOK)
}

func (handler *Handler) HandleTotals(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.totals")
	defer span.End()

	query, ok := parseQuery(w, r)
	if !ok {
		return
	}

	report, ok := handler.analyze(ctx, w, query)
	if !ok {
		return
	}
	pkg.WriteJSON(w, TotalsResponse{
		Window:   report.Window,
		Lifetime: report.LifetimeTotals,
		InWindow: report.WindowTotals,
		Stale:    report.Stale,
	}, http.StatusOK)
}

// HandleDrift compares the EF of the two halves of a single session.
func (handler *Handler) HandleDrift(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.drift")
	defer span.End()

	var req DriftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("drift, unmarshal json params: %s", err)
		http.Error(w, "invalid drift request", http.StatusBadRequest)
		return
	}

	result, err := training.Drift(req.FirstHalfEF, req.SecondHalfEF)
	if err != nil {
		http.Error(w, "first half EF must not be zero", http.StatusBadRequest)
		return
	}
	pkg.WriteJSON(w, result, http.StatusOK)
}

func (handler *Handler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.training.categories")
	defer span.End()

	units := make(map[training.Sport]training.DistanceUnit, len(training.Sports))
	for _, s := range training.Sports {
		units[s] = s.DistanceUnit()
	}
	pkg.WriteJSON(w, CategoriesResponse{
		Sports:        training.Sports,
		Categories:    training.CategoryTable(),
		DistanceUnits: units,
	}, http.StatusOK)
}

func (handler *Handler) analyze(ctx context.Context, w http.ResponseWriter, query Query) (training.Report, bool) {
	report, err := handler.analyzer.Dashboard(ctx, query)
	if errors.Is(err, training.ErrStoreUnavailable) {
		w.Header().Set("Retry-After", "30")
		http.Error(w, "workout store unavailable", http.StatusServiceUnavailable)
		return training.Report{}, false
	}
	if err != nil {
		log.Errorf("analysis pass failed: %s", err)
		http.Error(w, "analysis failed", http.StatusInternalServerError)
		return training.Report{}, false
	}
	return report, true
}

func parseQuery(w http.ResponseWriter, r *http.Request) (Query, bool) {
	window, err := training.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return Query{}, false
	}

	category, err := ParseAnyCategory(r.URL.Query().Get("category"))
	if err != nil {
		http.Error(w, "unknown workout category", http.StatusBadRequest)
		return Query{}, false
	}

	return Query{Window: window, EFCategory: category}, true
}

// ParseAnyCategory matches raw against the categories of every discipline.
func ParseAnyCategory(raw string) (training.Category, error) {
	if strings.TrimSpace(raw) == "" {
		return training.CategoryNone, nil
	}
	for _, sport := range training.Sports {
		if c, err := training.ParseCategory(sport, raw); err == nil {
			return c, nil
		}
	}
	return training.CategoryNone, training.ErrUnknownCategory
}
