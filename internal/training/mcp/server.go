package mcp

import (
	"net/http"

	"github.com/2beens/tricoach/internal/training/dashboard"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds an MCP server with the training tools: dashboard, weekly load,
// recovery status, drift and the workout list.
// Served over stdio by cmd/tricoach_mcp and mounted at /mcp by internal/server.
func NewServer(analyzer *dashboard.Analyzer) *mcp.Server {
	svc := NewTrainingService(analyzer, analyzer.Settings().Scaling)
	h := NewHandler(svc)
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "tricoach-training",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_training_dashboard",
		Description: "Returns a full analysis of the workout log for a season window (all, ytd, <n>d): weekly load buckets, the progression verdict, EF series per discipline, recovery status, totals and the rows skipped as invalid. Use when you need the overall training picture.",
	}, h.GetTrainingDashboardTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_weekly_load",
		Description: "Returns Monday-start weekly buckets (sessions, duration, load, distance) and the week-over-week progression verdict. Optional: window, by_sport. Use when checking load ramp or deload weeks.",
	}, h.GetWeeklyLoadTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_recovery_status",
		Description: "Compares the EF of the latest recovery session with the mean EF of all recovery sessions and returns Ready, FatigueAlert or NoData.",
	}, h.GetRecoveryStatusTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "calculate_drift",
		Description: "Computes the aerobic drift percentage between the EF of the first and the second half of one session. Below 5% is stable.",
	}, h.CalculateDriftTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_workouts_for_time_range",
		Description: "Returns the valid sessions logged within the given date range, with derived load and EF. Optional filter: sport. Use when you need to see what was logged in a period.",
	}, h.GetWorkoutsForTimeRangeTool())

	return s
}

// NewHTTPHandler serves server over the streamable HTTP transport.
func NewHTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
}
