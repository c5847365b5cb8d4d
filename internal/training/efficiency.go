package training

import (
	"strconv"
	"strings"
)

const (
	RunPaceMeters  = 1000.0
	SwimPaceMeters = 100.0

	DefaultRollingEFWindow = 4

	stableDecouplingMax     = 5.0
	developingDecouplingMax = 8.0
	stableDriftMax          = 5.0
)

// EFScaling converts a Run or Swim speed (m/s) into a work index that sits on
// a scale comparable to cycling watts.
type EFScaling struct {
	RunSpeedScale  float64 `toml:"run_speed_scale" json:"runSpeedScale"`
	SwimSpeedScale float64 `toml:"swim_speed_scale" json:"swimSpeedScale"`
}

func DefaultEFScaling() EFScaling {
	return EFScaling{
		RunSpeedScale:  100,
		SwimSpeedScale: 100,
	}
}

// WithDefaults fills the non-positive scale factors with the default ones.
func (s EFScaling) WithDefaults() EFScaling {
	d := DefaultEFScaling()
	if s.RunSpeedScale <= 0 {
		s.RunSpeedScale = d.RunSpeedScale
	}
	if s.SwimSpeedScale <= 0 {
		s.SwimSpeedScale = d.SwimSpeedScale
	}
	return s
}

// ComputeEF returns workOutput per heartbeat rounded to 4 decimals.
func ComputeEF(workOutput, avgHeartRate float64) (float64, error) {
	if avgHeartRate <= 0 {
		return 0, ErrDivisionByZero
	}
	return round(workOutput/avgHeartRate, 4), nil
}

// SpeedFromPace turns seconds per unitMeters into meters per second.
func SpeedFromPace(paceSeconds, unitMeters float64) (float64, error) {
	if paceSeconds <= 0 {
		return 0, ErrNoWorkOutput
	}
	return unitMeters / paceSeconds, nil
}

func PaceSeconds(minutes, seconds int) float64 {
	return float64(minutes*60 + seconds)
}

// ParsePace accepts "m:ss" or a plain number of seconds. Empty input is no pace.
func ParsePace(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	minutes, seconds, found := strings.Cut(raw, ":")
	if !found {
		return parseNonNegative("Pace", raw)
	}
	m, errM := strconv.Atoi(minutes)
	s, errS := strconv.Atoi(seconds)
	if errM != nil || errS != nil || m < 0 || s < 0 || s >= 60 {
		return 0, &ValidationError{Field: "Pace", Value: raw, Err: ErrInvalidNumeric}
	}
	return PaceSeconds(m, s), nil
}

type DecouplingStatus string

const (
	DecouplingStable      DecouplingStatus = "Stable"
	DecouplingDeveloping  DecouplingStatus = "Developing"
	DecouplingHighFatigue DecouplingStatus = "HighFatigue"
)

func ClassifyDecoupling(pct float64) DecouplingStatus {
	switch {
	case pct <= stableDecouplingMax:
		return DecouplingStable
	case pct <= developingDecouplingMax:
		return DecouplingDeveloping
	default:
		return DecouplingHighFatigue
	}
}

type DriftResult struct {
	FirstHalfEF  float64 `json:"firstHalfEf"`
	SecondHalfEF float64 `json:"secondHalfEf"`
	DriftPercent float64 `json:"driftPercent"`
	Stable       bool    `json:"stable"`
}

// Drift compares the EF of the two halves of a single session.
func Drift(firstHalfEF, secondHalfEF float64) (DriftResult, error) {
	if firstHalfEF == 0 {
		return DriftResult{}, ErrDivisionByZero
	}
	pct := (firstHalfEF - secondHalfEF) / firstHalfEF * 100
	return DriftResult{
		FirstHalfEF:  firstHalfEF,
		SecondHalfEF: secondHalfEF,
		DriftPercent: round(pct, 2),
		Stable:       pct < stableDriftMax,
	}, nil
}

type EFPoint struct {
	Seq              int              `json:"seq"`
	Date             string           `json:"date"`
	Category         Category         `json:"category,omitempty"`
	EF               float64          `json:"ef"`
	Decoupling       float64          `json:"decoupling"`
	DecouplingStatus DecouplingStatus `json:"decouplingStatus"`
	RollingEF        float64          `json:"rollingEf"`
}

type EFSeriesOptions struct {
	Scaling EFScaling
	// RollingWindow is the number of points averaged into RollingEF, DefaultRollingEFWindow when <= 0.
	RollingWindow int
	// Category keeps only the sessions of that category when set.
	Category Category
}

// EFSeries builds a per-discipline, date ascending EF series. Sessions without a
// computable EF are left out.
func EFSeries(records []WorkoutRecord, opts EFSeriesOptions) map[Sport][]EFPoint {
	window := opts.RollingWindow
	if window <= 0 {
		window = DefaultRollingEFWindow
	}
	scaling := opts.Scaling.WithDefaults()

	series := make(map[Sport][]EFPoint)
	for _, r := range SortRecords(records) {
		if opts.Category != CategoryNone && r.Category != opts.Category {
			continue
		}
		ef, err := r.EfficiencyFactor(scaling)
		if err != nil {
			continue
		}
		points := append(series[r.Sport], EFPoint{
			Seq:              r.Seq,
			Date:             r.Date.Format(DateLayout),
			Category:         r.Category,
			EF:               ef,
			Decoupling:       r.DecouplingPercent,
			DecouplingStatus: ClassifyDecoupling(r.DecouplingPercent),
		})
		points[len(points)-1].RollingEF = rollingMean(points, window)
		series[r.Sport] = points
	}
	return series
}

func rollingMean(points []EFPoint, window int) float64 {
	from := len(points) - window
	if from < 0 {
		from = 0
	}
	var sum float64
	for _, p := range points[from:] {
		sum += p.EF
	}
	return round(sum/float64(len(points)-from), 4)
}
