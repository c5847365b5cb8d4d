//go:build integration

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/2beens/tricoach/internal/training/workouts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) doJSON(
	ctx context.Context,
	method, path string,
	body any,
	headers map[string]string,
) (*http.Response, []byte) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(s.T(), err)
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)
	return resp, respBytes
}

func (s *IntegrationTestSuite) addWorkout(ctx context.Context, workout workouts.WorkoutRequest) workouts.WorkoutResponse {
	resp, body := s.doJSON(ctx, "POST", "/workouts", workout, nil)
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode, string(body))

	var added workouts.WorkoutResponse
	require.NoError(s.T(), json.Unmarshal(body, &added))
	return added
}

func (s *IntegrationTestSuite) listWorkouts(ctx context.Context) (workouts.ListResponse, string) {
	resp, body := s.doJSON(ctx, "GET", "/workouts", nil, nil)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode, string(body))

	var list workouts.ListResponse
	require.NoError(s.T(), json.Unmarshal(body, &list))
	return list, resp.Header.Get("ETag")
}

func (s *IntegrationTestSuite) countWorkoutRows() int {
	var count int
	require.NoError(s.T(), s.DB.QueryRow("SELECT COUNT(*) FROM public.workout").Scan(&count))
	return count
}

func (s *IntegrationTestSuite) TestWorkouts_AddListReplace() {
	ctx := context.Background()
	t := s.T()
	s.deleteAllWorkouts()

	added := s.addWorkout(ctx, workouts.WorkoutRequest{
		Date:            "2024-03-04",
		Sport:           "Bike",
		Category:        "Steady State (Z2)",
		DurationMinutes: 60,
		Distance:        30,
		Intensity:       6,
		AvgHeartRate:    140,
		AvgPowerWatts:   200,
	})
	assert.Equal(t, 1, added.Seq)
	assert.Equal(t, float64(360), added.Load)
	assert.Equal(t, 1.4286, added.EF)

	s.addWorkout(ctx, workouts.WorkoutRequest{
		Date:            "2024-03-05",
		Sport:           "Run",
		DurationMinutes: 45,
		Distance:        9,
		Intensity:       5,
		AvgHeartRate:    150,
		Pace:            "5:00",
	})
	assert.Equal(t, 2, s.countWorkoutRows())

	// stored derived cells are written by the service
	var storedLoad string
	require.NoError(t, s.DB.QueryRow("SELECT load FROM public.workout WHERE seq = 1").Scan(&storedLoad))
	assert.Equal(t, "360", storedLoad)

	list, etag := s.listWorkouts(ctx)
	require.Len(t, list.Workouts, 2)
	assert.NotEmpty(t, etag)
	assert.Empty(t, list.Skipped)
	assert.Equal(t, "km", string(list.Workouts[1].DistanceUnit))

	// invalid payload is rejected before reaching the store
	resp, _ := s.doJSON(ctx, "POST", "/workouts", workouts.WorkoutRequest{
		Date:            "2024-03-06",
		Sport:           "Rowing",
		DurationMinutes: 30,
		Intensity:       4,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 2, s.countWorkoutRows())

	replacement := workouts.ReplaceAllRequest{Workouts: []workouts.WorkoutRequest{
		{Date: "2024-03-07", Sport: "Swim", DurationMinutes: 40, Distance: 2000, Intensity: 4},
	}}

	resp, _ = s.doJSON(ctx, "PUT", "/workouts", replacement, nil)
	assert.Equal(t, http.StatusPreconditionRequired, resp.StatusCode)

	resp, _ = s.doJSON(ctx, "PUT", "/workouts", replacement, map[string]string{"If-Match": `"stale-version"`})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, 2, s.countWorkoutRows())

	resp, body := s.doJSON(ctx, "PUT", "/workouts", replacement, map[string]string{"If-Match": etag})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var replaced workouts.ReplaceAllResponse
	require.NoError(t, json.Unmarshal(body, &replaced))
	assert.Equal(t, 1, replaced.Count)
	assert.NotEqual(t, etag, resp.Header.Get("ETag"))
	assert.Equal(t, 1, s.countWorkoutRows())

	// the old version is gone for good
	resp, _ = s.doJSON(ctx, "PUT", "/workouts", replacement, map[string]string{"If-Match": etag})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestWorkouts_InvalidStoredRowsAreSkipped() {
	ctx := context.Background()
	t := s.T()
	s.deleteAllWorkouts()

	s.addWorkout(ctx, workouts.WorkoutRequest{
		Date: "2024-03-04", Sport: "Run", DurationMinutes: 30, Intensity: 5,
	})
	// a row typed straight into the table, bypassing validation
	_, err := s.DB.Exec(
		`INSERT INTO public.workout (workout_date, sport, duration, intensity) VALUES ($1, $2, $3, $4)`,
		"2024-03-05", "Run", "abc", "5",
	)
	require.NoError(t, err)

	list, _ := s.listWorkouts(ctx)
	require.Len(t, list.Workouts, 1)
	require.Len(t, list.Skipped, 1)
	assert.Equal(t, "2024-03-05", list.Skipped[0].Date)
}

func (s *IntegrationTestSuite) TestWorkouts_WriteRateLimit() {
	ctx := context.Background()
	t := s.T()

	// own client address, so other tests keep their budget
	headers := map[string]string{"X-Real-Ip": "10.20.30.40"}
	invalid := map[string]string{"date": "not-a-date"}

	for i := 0; i < testWritesPerMinute; i++ {
		resp, _ := s.doJSON(ctx, "POST", "/workouts", invalid, headers)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, fmt.Sprintf("request %d", i))
	}

	resp, _ := s.doJSON(ctx, "POST", "/workouts", invalid, headers)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// reads are not limited
	resp, _ = s.doJSON(ctx, "GET", "/workouts", nil, headers)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
