package mcp

import (
	"context"
	"time"

	"github.com/2beens/tricoach/internal/training"
	"github.com/2beens/tricoach/internal/training/dashboard"
	"github.com/2beens/tricoach/internal/training/workouts"
)

// trainingAnalyzer runs analysis passes over the workout log (for dependency injection and testing).
type trainingAnalyzer interface {
	Dashboard(ctx context.Context, query dashboard.Query) (training.Report, error)
	Records(ctx context.Context, window training.Window) (dashboard.RecordSet, error)
}

// contextService provides training context data for the MCP tools.
// Used by Handler for testability.
type contextService interface {
	Dashboard(ctx context.Context, window training.Window) (training.Report, error)
	WeeklyLoad(ctx context.Context, window training.Window, bySport bool) (*WeeklyLoad, error)
	Recovery(ctx context.Context) (training.RecoveryStatus, error)
	Workouts(ctx context.Context, params WorkoutParams) ([]workouts.WorkoutResponse, error)
}

// WeeklyLoad is the weekly view handed to MCP clients: buckets plus the progression verdict.
type WeeklyLoad struct {
	Window      training.Window             `json:"window"`
	Weeks       any                         `json:"weeks"`
	Progression training.ProgressionVerdict `json:"progression"`
	Stale       bool                        `json:"stale"`
}

// WorkoutParams narrows the workout list to an inclusive date range and, optionally, one discipline.
type WorkoutParams struct {
	From  time.Time
	To    time.Time
	Sport training.Sport
}

// TrainingService holds dependencies and implements the training context logic.
type TrainingService struct {
	analyzer trainingAnalyzer
	scaling  training.EFScaling
}

func NewTrainingService(analyzer trainingAnalyzer, scaling training.EFScaling) *TrainingService {
	return &TrainingService{
		analyzer: analyzer,
		scaling:  scaling.WithDefaults(),
	}
}

func (s *TrainingService) Dashboard(ctx context.Context, window training.Window) (training.Report, error) {
	return s.analyzer.Dashboard(ctx, dashboard.Query{Window: window})
}

func (s *TrainingService) WeeklyLoad(ctx context.Context, window training.Window, bySport bool) (*WeeklyLoad, error) {
	report, err := s.analyzer.Dashboard(ctx, dashboard.Query{Window: window})
	if err != nil {
		return nil, err
	}

	load := &WeeklyLoad{
		Window:      report.Window,
		Weeks:       report.Weeks,
		Progression: report.Progression,
		Stale:       report.Stale,
	}
	if bySport {
		load.Weeks = report.WeeksBySport
	}
	return load, nil
}

// Recovery always assesses the whole log.
func (s *TrainingService) Recovery(ctx context.Context) (training.RecoveryStatus, error) {
	report, err := s.analyzer.Dashboard(ctx, dashboard.Query{Window: training.AllTime()})
	if err != nil {
		return training.RecoveryStatus{}, err
	}
	return report.Recovery, nil
}

// Workouts returns the valid sessions between params.From and params.To (both days included),
// in chronological order.
func (s *TrainingService) Workouts(ctx context.Context, params WorkoutParams) ([]workouts.WorkoutResponse, error) {
	set, err := s.analyzer.Records(ctx, training.AllTime())
	if err != nil {
		return nil, err
	}

	list := []workouts.WorkoutResponse{}
	for _, rec := range set.Records {
		if rec.Date.Before(params.From) || rec.Date.After(params.To) {
			continue
		}
		if params.Sport != "" && rec.Sport != params.Sport {
			continue
		}
		list = append(list, workouts.NewWorkoutResponse(rec, s.scaling))
	}
	return list, nil
}
