//go:build integration

package test

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/2beens/tricoach/internal/training"
	"github.com/2beens/tricoach/internal/training/dashboard"
	"github.com/2beens/tricoach/internal/training/workouts"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedRecoveryLog adds four recovery runs, the latest one clearly less efficient.
func (s *IntegrationTestSuite) seedRecoveryLog(ctx context.Context) {
	s.deleteAllWorkouts()
	for _, w := range []workouts.WorkoutRequest{
		{Date: "2024-03-04", Sport: "Bike", Category: "Pure Aerobic (Recovery)", DurationMinutes: 60, Intensity: 3, AvgHeartRate: 120, AvgPowerWatts: 180},
		{Date: "2024-03-06", Sport: "Bike", Category: "Pure Aerobic (Recovery)", DurationMinutes: 60, Intensity: 3, AvgHeartRate: 120, AvgPowerWatts: 180},
		{Date: "2024-03-08", Sport: "Bike", Category: "Pure Aerobic (Recovery)", DurationMinutes: 60, Intensity: 3, AvgHeartRate: 120, AvgPowerWatts: 180},
		{Date: "2024-03-10", Sport: "Bike", Category: "Pure Aerobic (Recovery)", DurationMinutes: 60, Intensity: 3, AvgHeartRate: 140, AvgPowerWatts: 150},
	} {
		s.addWorkout(ctx, w)
	}
}

func (s *IntegrationTestSuite) TestTraining_Endpoints() {
	ctx := context.Background()
	t := s.T()
	s.seedRecoveryLog(ctx)

	resp, body := s.doJSON(ctx, "GET", "/training/dashboard?window=all", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var report training.Report
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, 4, report.Records)
	assert.False(t, report.Stale)
	assert.Equal(t, training.RecoveryFatigueAlert, report.Recovery.State)
	assert.Equal(t, 4, report.LifetimeTotals[training.SportBike].Sessions)
	assert.Equal(t, float64(720), report.LifetimeTotals[training.SportBike].Load)

	resp, body = s.doJSON(ctx, "GET", "/training/recovery", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var recovery dashboard.RecoveryResponse
	require.NoError(t, json.Unmarshal(body, &recovery))
	assert.Equal(t, training.RecoveryFatigueAlert, recovery.Recovery.State)

	resp, body = s.doJSON(ctx, "GET", "/training/efficiency?window=all&category=Pure+Aerobic+(Recovery)", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var efficiency dashboard.EfficiencyResponse
	require.NoError(t, json.Unmarshal(body, &efficiency))
	assert.Len(t, efficiency.Efficiency[training.SportBike], 4)

	resp, _ = s.doJSON(ctx, "GET", "/training/weekly?window=fortnight", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = s.doJSON(ctx, "POST", "/training/drift", dashboard.DriftRequest{FirstHalfEF: 1.5, SecondHalfEF: 1.38}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var drift training.DriftResult
	require.NoError(t, json.Unmarshal(body, &drift))
	assert.Equal(t, float64(8), drift.DriftPercent)
	assert.False(t, drift.Stable)
}

func (s *IntegrationTestSuite) TestTraining_MCPOverHTTP() {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	t := s.T()
	s.seedRecoveryLog(ctx)

	client := mcp.NewClient(&mcp.Implementation{Name: "tricoach-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{
		Endpoint:   serverEndpoint + "/mcp",
		HTTPClient: s.httpClient,
	}, nil)
	require.NoError(t, err)
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "get_recovery_status",
		Arguments: map[string]any{},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	var status training.RecoveryStatus
	require.NoError(t, json.Unmarshal([]byte(text.Text), &status))
	assert.Equal(t, training.RecoveryFatigueAlert, status.State)
	assert.Equal(t, 4, status.Sessions)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name: "get_workouts_for_time_range",
		Arguments: map[string]any{
			"from_date": "2024-03-05",
			"to_date":   "2024-03-10",
		},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	text, ok = res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	var list []workouts.WorkoutResponse
	require.NoError(t, json.Unmarshal([]byte(text.Text), &list))
	assert.Len(t, list, 3)
}
