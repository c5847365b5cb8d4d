package training

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// RowColumns is the column order used by every tabular workout store.
var RowColumns = []string{
	"Date", "Sport", "Type", "Duration", "Distance", "Intensity",
	"AvgHR", "AvgPower", "Pace", "Load", "EF", "Decoupling",
}

// Row is a workout row the way a store holds it: every cell is text and may be empty.
// Load and EF cells are written on persist but ignored on read.
type Row struct {
	Seq        int    `json:"seq"`
	Date       string `json:"date"`
	Sport      string `json:"sport"`
	Type       string `json:"type,omitempty"`
	Duration   string `json:"duration,omitempty"`
	Distance   string `json:"distance,omitempty"`
	Intensity  string `json:"intensity,omitempty"`
	AvgHR      string `json:"avgHr,omitempty"`
	AvgPower   string `json:"avgPower,omitempty"`
	Pace       string `json:"pace,omitempty"`
	Load       string `json:"load,omitempty"`
	EF         string `json:"ef,omitempty"`
	Decoupling string `json:"decoupling,omitempty"`
}

// Values returns the row cells in RowColumns order.
func (r Row) Values() []string {
	return []string{
		r.Date, r.Sport, r.Type, r.Duration, r.Distance, r.Intensity,
		r.AvgHR, r.AvgPower, r.Pace, r.Load, r.EF, r.Decoupling,
	}
}

// RowFromValues is the inverse of Row.Values. Missing trailing cells are left empty.
func RowFromValues(seq int, values []string) Row {
	cell := func(i int) string {
		if i < len(values) {
			return strings.TrimSpace(values[i])
		}
		return ""
	}
	return Row{
		Seq:        seq,
		Date:       cell(0),
		Sport:      cell(1),
		Type:       cell(2),
		Duration:   cell(3),
		Distance:   cell(4),
		Intensity:  cell(5),
		AvgHR:      cell(6),
		AvgPower:   cell(7),
		Pace:       cell(8),
		Load:       cell(9),
		EF:         cell(10),
		Decoupling: cell(11),
	}
}

type WorkoutRecord struct {
	Seq               int       `json:"seq"`
	Date              time.Time `json:"date"`
	Sport             Sport     `json:"sport"`
	Category          Category  `json:"category,omitempty"`
	DurationMinutes   float64   `json:"durationMinutes"`
	Distance          float64   `json:"distance"`
	Intensity         int       `json:"intensity,omitempty"`
	AvgHeartRate      int       `json:"avgHeartRate,omitempty"`
	AvgPowerWatts     float64   `json:"avgPowerWatts,omitempty"`
	PaceSeconds       float64   `json:"paceSeconds,omitempty"`
	DecouplingPercent float64   `json:"decouplingPercent"`
}

// Load is always derived, never read from a store.
func (r WorkoutRecord) Load() float64 {
	return r.DurationMinutes * float64(r.Intensity)
}

// WorkOutput returns the discipline specific work proxy: watts for Bike and a
// scaled speed index derived from pace for Run and Swim.
func (r WorkoutRecord) WorkOutput(scaling EFScaling) (float64, error) {
	scaling = scaling.WithDefaults()
	switch r.Sport {
	case SportBike:
		if r.AvgPowerWatts <= 0 {
			return 0, ErrNoWorkOutput
		}
		return r.AvgPowerWatts, nil
	case SportRun:
		speed, err := SpeedFromPace(r.PaceSeconds, RunPaceMeters)
		if err != nil {
			return 0, err
		}
		return speed * scaling.RunSpeedScale, nil
	case SportSwim:
		speed, err := SpeedFromPace(r.PaceSeconds, SwimPaceMeters)
		if err != nil {
			return 0, err
		}
		return speed * scaling.SwimSpeedScale, nil
	default:
		return 0, ErrNoWorkOutput
	}
}

// EfficiencyFactor fails with ErrNoWorkOutput when the session lacks power or
// pace and with ErrDivisionByZero when heart rate is missing.
func (r WorkoutRecord) EfficiencyFactor(scaling EFScaling) (float64, error) {
	work, err := r.WorkOutput(scaling)
	if err != nil {
		return 0, err
	}
	return ComputeEF(work, float64(r.AvgHeartRate))
}

func (r WorkoutRecord) DistanceUnit() DistanceUnit {
	return r.Sport.DistanceUnit()
}

// ToRow renders the record with its derived Load and EF cells filled in.
func (r WorkoutRecord) ToRow(scaling EFScaling) Row {
	row := Row{
		Seq:       r.Seq,
		Date:      r.Date.Format(DateLayout),
		Sport:     string(r.Sport),
		Type:      string(r.Category),
		Duration:  formatNumber(r.DurationMinutes),
		Distance:  formatNumber(r.Distance),
		Intensity: formatInt(r.Intensity),
		AvgHR:     formatInt(r.AvgHeartRate),
		AvgPower:  formatNumber(r.AvgPowerWatts),
		Pace:      formatNumber(r.PaceSeconds),
		Load:      formatNumber(r.Load()),
	}
	if r.DecouplingPercent > 0 {
		row.Decoupling = formatNumber(r.DecouplingPercent)
	}
	if ef, err := r.EfficiencyFactor(scaling); err == nil {
		row.EF = formatNumber(ef)
	}
	return row
}

// Validate parses a raw row into a WorkoutRecord. Every failure is a
// *ValidationError naming the offending column.
func Validate(row Row) (WorkoutRecord, error) {
	rec := WorkoutRecord{Seq: row.Seq}

	date, err := ParseDate(row.Date)
	if err != nil {
		return WorkoutRecord{}, &ValidationError{Field: "Date", Value: row.Date, Err: err}
	}
	rec.Date = date

	sport, err := ParseSport(row.Sport)
	if err != nil {
		return WorkoutRecord{}, &ValidationError{Field: "Sport", Value: row.Sport, Err: err}
	}
	rec.Sport = sport

	category, err := ParseCategory(sport, row.Type)
	if err != nil {
		return WorkoutRecord{}, &ValidationError{Field: "Type", Value: row.Type, Err: err}
	}
	rec.Category = category

	if rec.DurationMinutes, err = parseNonNegative("Duration", row.Duration); err != nil {
		return WorkoutRecord{}, err
	}
	if rec.Distance, err = parseNonNegative("Distance", row.Distance); err != nil {
		return WorkoutRecord{}, err
	}

	rawIntensity := strings.TrimSpace(row.Intensity)
	intensity, err := parseInt("Intensity", rawIntensity)
	if err != nil {
		return WorkoutRecord{}, err
	}
	switch {
	case rawIntensity == "" && rec.DurationMinutes > 0:
		return WorkoutRecord{}, &ValidationError{Field: "Intensity", Err: ErrMissingField}
	case rawIntensity != "" && (intensity < 1 || intensity > 10):
		return WorkoutRecord{}, &ValidationError{Field: "Intensity", Value: row.Intensity, Err: ErrOutOfRange}
	}
	rec.Intensity = intensity

	hr, err := parseInt("AvgHR", row.AvgHR)
	if err != nil {
		return WorkoutRecord{}, err
	}
	if hr < 0 {
		return WorkoutRecord{}, &ValidationError{Field: "AvgHR", Value: row.AvgHR, Err: ErrOutOfRange}
	}
	rec.AvgHeartRate = hr

	if rec.AvgPowerWatts, err = parseNonNegative("AvgPower", row.AvgPower); err != nil {
		return WorkoutRecord{}, err
	}
	if rec.PaceSeconds, err = parseNonNegative("Pace", row.Pace); err != nil {
		return WorkoutRecord{}, err
	}

	if rec.DecouplingPercent, err = parseNonNegative("Decoupling", row.Decoupling); err != nil {
		return WorkoutRecord{}, err
	}
	if rec.DecouplingPercent > 100 {
		return WorkoutRecord{}, &ValidationError{Field: "Decoupling", Value: row.Decoupling, Err: ErrOutOfRange}
	}

	return rec, nil
}

// SkippedRow is a stored row dropped by ValidateAll.
type SkippedRow struct {
	Seq    int    `json:"seq"`
	Date   string `json:"date"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// ValidateAll validates every row, dropping the invalid ones instead of failing.
// Rows without a sequence number get their 1-based position.
func ValidateAll(rows []Row) ([]WorkoutRecord, []SkippedRow) {
	records := make([]WorkoutRecord, 0, len(rows))
	var skipped []SkippedRow
	for i, row := range rows {
		if row.Seq == 0 {
			row.Seq = i + 1
		}
		rec, err := Validate(row)
		if err != nil {
			dqErr := &DataQualityError{Seq: row.Seq, Err: err}
			skipped = append(skipped, SkippedRow{
				Seq:    row.Seq,
				Date:   row.Date,
				Reason: err.Error(),
				Err:    dqErr,
			})
			continue
		}
		records = append(records, rec)
	}
	return records, skipped
}

// ParseDate accepts YYYY-MM-DD and the timestamp forms older exports used,
// keeping only the calendar day.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// SortRecords returns a copy ordered by date, discipline, then insertion order.
func SortRecords(records []WorkoutRecord) []WorkoutRecord {
	sorted := make([]WorkoutRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Sport != b.Sport {
			return a.Sport.rank() < b.Sport.rank()
		}
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		if a.DurationMinutes != b.DurationMinutes {
			return a.DurationMinutes < b.DurationMinutes
		}
		if a.Intensity != b.Intensity {
			return a.Intensity < b.Intensity
		}
		return a.Distance < b.Distance
	})
	return sorted
}

func parseFloat(field, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Field: field, Value: raw, Err: ErrInvalidNumeric}
	}
	return v, nil
}

func parseNonNegative(field, raw string) (float64, error) {
	v, err := parseFloat(field, raw)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, &ValidationError{Field: field, Value: raw, Err: ErrOutOfRange}
	}
	return v, nil
}

// parseInt accepts integral floats like "7.0", spreadsheets tend to write those.
func parseInt(field, raw string) (int, error) {
	v, err := parseFloat(field, raw)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, &ValidationError{Field: field, Value: raw, Err: ErrInvalidNumeric}
	}
	return int(v), nil
}

func formatNumber(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
