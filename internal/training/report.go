package training

import (
	"time"
)

type AnalysisOptions struct {
	Now            time.Time
	Window         Window
	Scaling        EFScaling
	DeloadCadence  int
	WeekCompleteOn time.Weekday
	RollingWindow  int
	EFCategory     Category
}

func DefaultAnalysisOptions(now time.Time) AnalysisOptions {
	return AnalysisOptions{
		Now:            now,
		Window:         AllTime(),
		Scaling:        DefaultEFScaling(),
		DeloadCadence:  DefaultDeloadCadence,
		WeekCompleteOn: time.Friday,
		RollingWindow:  DefaultRollingEFWindow,
	}
}

func (o AnalysisOptions) progression() ProgressionOptions {
	return ProgressionOptions{
		Now:            o.Now,
		DeloadCadence:  o.DeloadCadence,
		WeekCompleteOn: o.WeekCompleteOn,
	}
}

// Report is the outcome of one analysis pass over the whole workout log.
type Report struct {
	GeneratedAt    time.Time           `json:"generatedAt"`
	Window         Window              `json:"window"`
	Records        int                 `json:"records"`
	WindowRecords  int                 `json:"windowRecords"`
	Weeks          []WeeklyBucket      `json:"weeks"`
	WeeksBySport   []SportWeeklyBucket `json:"weeksBySport"`
	Progression    ProgressionVerdict  `json:"progression"`
	Efficiency     map[Sport][]EFPoint `json:"efficiency"`
	Recovery       RecoveryStatus      `json:"recovery"`
	LifetimeTotals map[Sport]Totals    `json:"lifetimeTotals"`
	WindowTotals   map[Sport]Totals    `json:"windowTotals"`
	Skipped        []SkippedRow        `json:"skipped"`
	Stale          bool                `json:"stale"`
}

// Analyze runs a full pass. Recovery and lifetime totals use every valid record,
// everything else only the records inside opts.Window.
func Analyze(rows []Row, opts AnalysisOptions) Report {
	records, skipped := ValidateAll(rows)
	return AnalyzeRecords(records, skipped, opts)
}

func AnalyzeRecords(records []WorkoutRecord, skipped []SkippedRow, opts AnalysisOptions) Report {
	if skipped == nil {
		skipped = []SkippedRow{}
	}
	windowed := Filter(records, opts.Window, opts.Now)
	weeks := MarkProvisional(AggregateByWeek(windowed), opts.progression())
	// a day window usually starts mid-week, progression only compares whole weeks
	progressionWeeks := weeks
	if opts.Window.Kind == WindowLastNDays {
		progressionWeeks = MarkProvisional(AggregateByWeek(FilterWholeWeeks(records, opts.Window, opts.Now)), opts.progression())
	}

	return Report{
		GeneratedAt:   opts.Now,
		Window:        opts.Window,
		Records:       len(records),
		WindowRecords: len(windowed),
		Weeks:         weeks,
		WeeksBySport:  AggregateByWeekAndSport(windowed),
		Progression:   EvaluateProgression(progressionWeeks, opts.progression()),
		Efficiency: EFSeries(windowed, EFSeriesOptions{
			Scaling:       opts.Scaling,
			RollingWindow: opts.RollingWindow,
			Category:      opts.EFCategory,
		}),
		Recovery:       AssessRecovery(records, opts.Scaling),
		LifetimeTotals: TotalsBySport(records),
		WindowTotals:   TotalsBySport(windowed),
		Skipped:        skipped,
	}
}
