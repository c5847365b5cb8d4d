package training

import (
	"fmt"
)

const fatigueDropThreshold = -0.05

type RecoveryState string

const (
	RecoveryNoData       RecoveryState = "NoData"
	RecoveryReady        RecoveryState = "Ready"
	RecoveryFatigueAlert RecoveryState = "FatigueAlert"
)

type RecoveryStatus struct {
	State      RecoveryState `json:"state"`
	Sessions   int           `json:"sessions"`
	BaselineEF float64       `json:"baselineEf"`
	LatestEF   float64       `json:"latestEf"`
	LatestDate string        `json:"latestDate,omitempty"`
	Drop       float64       `json:"drop"`
	Label      string        `json:"label"`
}

// AssessRecovery compares the EF of the latest recovery session with the mean
// EF of all recovery sessions. The baseline is recomputed on every call.
func AssessRecovery(records []WorkoutRecord, scaling EFScaling) RecoveryStatus {
	scaling = scaling.WithDefaults()

	var (
		sum      float64
		count    int
		latest   WorkoutRecord
		latestEF float64
	)
	for _, r := range records {
		if !r.Category.IsRecovery() {
			continue
		}
		ef, err := r.EfficiencyFactor(scaling)
		if err != nil {
			continue
		}
		sum += ef
		count++
		if count == 1 || r.Date.After(latest.Date) || (r.Date.Equal(latest.Date) && r.Seq > latest.Seq) {
			latest = r
			latestEF = ef
		}
	}

	if count == 0 {
		return RecoveryStatus{
			State: RecoveryNoData,
			Label: "No recovery sessions with heart rate and pace or power logged yet",
		}
	}

	baseline := sum / float64(count)
	if baseline <= 0 {
		return RecoveryStatus{
			State:    RecoveryNoData,
			Sessions: count,
			Label:    "Recovery baseline is zero, log a recovery session with work output",
		}
	}

	drop := latestEF/baseline - 1
	state := ClassifyRecoveryDrop(drop)
	status := RecoveryStatus{
		State:      state,
		Sessions:   count,
		BaselineEF: round(baseline, 4),
		LatestEF:   latestEF,
		LatestDate: latest.Date.Format(DateLayout),
		Drop:       round(drop, 4),
	}
	if state == RecoveryFatigueAlert {
		status.Label = fmt.Sprintf("Fatigue alert: recovery EF %.1f%% below baseline, prioritize rest", -drop*100)
	} else {
		status.Label = "Ready: recovery EF within 5% of baseline"
	}
	return status
}

// ClassifyRecoveryDrop flags fatigue when drop is strictly below -5%.
// The drop is rounded to 6 decimals first so ratios like 0.95 land on the boundary.
func ClassifyRecoveryDrop(drop float64) RecoveryState {
	if round(drop, 6) < fatigueDropThreshold {
		return RecoveryFatigueAlert
	}
	return RecoveryReady
}
