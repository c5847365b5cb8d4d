package training

import (
	"fmt"
	"time"
)

const (
	DefaultDeloadCadence = 4

	dangerChangeMin   = 25.0
	pushingChangeMin  = 15.0
	recoveryChangeMax = -20.0
)

type Verdict string

const (
	VerdictInsufficient      Verdict = "Insufficient"
	VerdictInProgress        Verdict = "InProgress"
	VerdictDeloadRecommended Verdict = "DeloadRecommended"
	VerdictDanger            Verdict = "Danger"
	VerdictPushing           Verdict = "Pushing"
	VerdictSweetSpot         Verdict = "SweetSpot"
	VerdictRecovery          Verdict = "Recovery"
)

type ProgressionOptions struct {
	Now time.Time
	// DeloadCadence recommends a deload every n-th week, 0 disables it.
	DeloadCadence int
	// WeekCompleteOn is the first weekday on which the current week is compared
	// against the previous one.
	WeekCompleteOn time.Weekday
}

func DefaultProgressionOptions(now time.Time) ProgressionOptions {
	return ProgressionOptions{
		Now:            now,
		DeloadCadence:  DefaultDeloadCadence,
		WeekCompleteOn: time.Friday,
	}
}

type ProgressionVerdict struct {
	Verdict       Verdict `json:"verdict"`
	Label         string  `json:"label"`
	CurrentWeek   string  `json:"currentWeek,omitempty"`
	PreviousWeek  string  `json:"previousWeek,omitempty"`
	CurrentLoad   float64 `json:"currentLoad"`
	PreviousLoad  float64 `json:"previousLoad"`
	PercentChange float64 `json:"percentChange"`
	WeekNumber    int     `json:"weekNumber"`
	Provisional   bool    `json:"provisional"`
}

// EvaluateProgression compares the load of the last two weekly buckets.
func EvaluateProgression(buckets []WeeklyBucket, opts ProgressionOptions) ProgressionVerdict {
	if len(buckets) < 2 {
		return ProgressionVerdict{
			Verdict:    VerdictInsufficient,
			Label:      "Not enough data: log at least two weeks of training",
			WeekNumber: len(buckets),
		}
	}

	cur, prev := buckets[len(buckets)-1], buckets[len(buckets)-2]
	v := ProgressionVerdict{
		CurrentWeek:  cur.WeekStart,
		PreviousWeek: prev.WeekStart,
		CurrentLoad:  cur.Load,
		PreviousLoad: prev.Load,
		WeekNumber:   len(buckets),
	}
	if prev.Load != 0 {
		v.PercentChange = (cur.Load - prev.Load) * 100 / prev.Load
	}

	if IsProvisional(cur, opts) {
		v.Verdict = VerdictInProgress
		v.Provisional = true
		v.Label = fmt.Sprintf("Week in progress: verdict available from %s", opts.WeekCompleteOn)
		return v
	}

	if opts.DeloadCadence > 0 && len(buckets)%opts.DeloadCadence == 0 {
		v.Verdict = VerdictDeloadRecommended
		v.Label = "Deload week: reduce volume by about 30% to absorb the last block"
		return v
	}

	switch {
	case v.PercentChange > dangerChangeMin:
		v.Verdict = VerdictDanger
		v.Label = "Danger: load jumped more than 25%, high injury risk"
	case v.PercentChange > pushingChangeMin:
		v.Verdict = VerdictPushing
		v.Label = "Pushing: load rose 15-25%, hold steady next week"
	case v.PercentChange < recoveryChangeMax:
		v.Verdict = VerdictRecovery
		v.Label = "Recovery: load dropped more than 20%"
	default:
		v.Verdict = VerdictSweetSpot
		v.Label = "Sweet spot: steady progression"
	}
	return v
}

// IsProvisional reports whether the bucket is the still running current week.
func IsProvisional(bucket WeeklyBucket, opts ProgressionOptions) bool {
	if opts.Now.IsZero() {
		return false
	}
	if bucket.WeekStart != WeekStart(opts.Now).Format(DateLayout) {
		return false
	}
	return mondayIndex(opts.Now.Weekday()) < mondayIndex(opts.WeekCompleteOn)
}

// MarkProvisional flags the running current week in a copy of buckets.
func MarkProvisional(buckets []WeeklyBucket, opts ProgressionOptions) []WeeklyBucket {
	marked := make([]WeeklyBucket, len(buckets))
	copy(marked, buckets)
	if len(marked) > 0 {
		last := &marked[len(marked)-1]
		last.Provisional = IsProvisional(*last, opts)
	}
	return marked
}

func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
