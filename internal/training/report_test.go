package training_test

import (
	"testing"
	"time"

	"github.com/2beens/tricoach/internal/training"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	now := time.Date(2024, 2, 16, 9, 0, 0, 0, time.UTC) // a Friday
	rows := []training.Row{
		{Date: "2023-12-18", Sport: "Bike", Type: "Pure Aerobic (Recovery)", Duration: "60", Intensity: "3", AvgHR: "110", AvgPower: "132"},
		{Date: "2024-02-05", Sport: "Run", Duration: "50", Intensity: "6", Distance: "10", AvgHR: "150", Pace: "300"},
		{Date: "2024-02-07", Sport: "Swim", Duration: "50", Intensity: "5", Distance: "2500"},
		{Date: "2024-02-13", Sport: "Bike", Type: "Pure Aerobic (Recovery)", Duration: "60", Intensity: "3", AvgHR: "110", AvgPower: "110"},
		{Date: "2024-02-14", Sport: "Run", Duration: "60", Intensity: "6", Distance: "12", AvgHR: "152", Pace: "295"},
		{Date: "garbage", Sport: "Run", Duration: "60", Intensity: "6"},
	}

	opts := training.DefaultAnalysisOptions(now)
	opts.Window = training.YearToDate()
	report := training.Analyze(rows, opts)

	assert.Equal(t, 5, report.Records)
	assert.Equal(t, 4, report.WindowRecords)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, 6, report.Skipped[0].Seq)

	require.Len(t, report.Weeks, 2)
	assert.Equal(t, "2024-02-05", report.Weeks[0].WeekStart)
	assert.Equal(t, 550.0, report.Weeks[0].Load)
	assert.Equal(t, 540.0, report.Weeks[1].Load)
	assert.False(t, report.Weeks[1].Provisional)
	assert.Equal(t, training.VerdictSweetSpot, report.Progression.Verdict)

	// lifetime totals and recovery see the December ride, the window does not
	assert.Equal(t, 2, report.LifetimeTotals[training.SportBike].Sessions)
	assert.Equal(t, 1, report.WindowTotals[training.SportBike].Sessions)
	assert.Equal(t, 2, report.Recovery.Sessions)
	assert.Equal(t, training.RecoveryFatigueAlert, report.Recovery.State)
	assert.Equal(t, "2024-02-13", report.Recovery.LatestDate)

	require.Len(t, report.Efficiency[training.SportRun], 2)
	require.Len(t, report.Efficiency[training.SportBike], 1)
	assert.Empty(t, report.Efficiency[training.SportSwim])
	assert.False(t, report.Stale)
}

func TestAnalyze_DayWindowComparesWholeWeeks(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) // a Friday
	rows := []training.Row{
		{Date: "2024-03-04", Sport: "Run", Duration: "60", Intensity: "6"},
		{Date: "2024-03-07", Sport: "Run", Duration: "30", Intensity: "4"},
		{Date: "2024-03-12", Sport: "Bike", Duration: "100", Intensity: "5"},
	}

	opts := training.DefaultAnalysisOptions(now)
	opts.Window = training.LastNDays(10)
	report := training.Analyze(rows, opts)

	// the chart keeps the window, 2024-03-06 onwards
	assert.Equal(t, 2, report.WindowRecords)
	require.Len(t, report.Weeks, 2)
	assert.Equal(t, 120.0, report.Weeks[0].Load)

	// the verdict uses the whole week of 2024-03-04
	assert.Equal(t, 480.0, report.Progression.PreviousLoad)
	assert.Equal(t, 500.0, report.Progression.CurrentLoad)
	assert.Equal(t, training.VerdictSweetSpot, report.Progression.Verdict)
}

func TestAnalyze_EmptyLog(t *testing.T) {
	report := training.Analyze(nil, training.DefaultAnalysisOptions(time.Now()))
	assert.Zero(t, report.Records)
	assert.NotNil(t, report.Weeks)
	assert.NotNil(t, report.Skipped)
	assert.Equal(t, training.VerdictInsufficient, report.Progression.Verdict)
	assert.Equal(t, training.RecoveryNoData, report.Recovery.State)
}
