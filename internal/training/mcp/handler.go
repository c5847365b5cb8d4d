package mcp

import (
	"context"
	"encoding/json"

	"github.com/2beens/tricoach/internal/training"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler handles MCP tool requests: parses input, calls the service, formats the MCP result.
type Handler struct {
	service contextService
}

func NewHandler(service contextService) *Handler {
	return &Handler{
		service: service,
	}
}

// WindowInput is the input of the tools that analyze a season window.
type WindowInput struct {
	Window string `json:"window,omitempty" jsonschema:"Season window: all, ytd or <n>d (e.g. 28d). Defaults to all"`
}

// GetTrainingDashboardTool returns the MCP tool handler for get_training_dashboard.
func (h *Handler) GetTrainingDashboardTool() func(context.Context, *mcp.CallToolRequest, WindowInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in WindowInput) (*mcp.CallToolResult, any, error) {
		window, err := training.ParseWindow(in.Window)
		if err != nil {
			return errorResult("Invalid window: use all, ytd or <n>d"), nil, nil
		}
		report, err := h.service.Dashboard(ctx, window)
		if err != nil {
			return errorResult("Error analyzing workout log: " + err.Error()), nil, nil
		}
		return jsonResult(report), nil, nil
	}
}

type WeeklyLoadInput struct {
	Window  string `json:"window,omitempty" jsonschema:"Season window: all, ytd or <n>d (e.g. 28d). Defaults to all"`
	BySport bool   `json:"by_sport,omitempty" jsonschema:"Split every week per discipline"`
}

// GetWeeklyLoadTool returns the MCP tool handler for get_weekly_load.
func (h *Handler) GetWeeklyLoadTool() func(context.Context, *mcp.CallToolRequest, WeeklyLoadInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in WeeklyLoadInput) (*mcp.CallToolResult, any, error) {
		window, err := training.ParseWindow(in.Window)
		if err != nil {
			return errorResult("Invalid window: use all, ytd or <n>d"), nil, nil
		}
		load, err := h.service.WeeklyLoad(ctx, window, in.BySport)
		if err != nil {
			return errorResult("Error analyzing workout log: " + err.Error()), nil, nil
		}
		return jsonResult(load), nil, nil
	}
}

// GetRecoveryStatusTool returns the MCP tool handler for get_recovery_status.
func (h *Handler) GetRecoveryStatusTool() func(context.Context, *mcp.CallToolRequest, any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
		status, err := h.service.Recovery(ctx)
		if err != nil {
			return errorResult("Error analyzing workout log: " + err.Error()), nil, nil
		}
		return jsonResult(status), nil, nil
	}
}

type DriftInput struct {
	FirstHalfEF  float64 `json:"first_half_ef" jsonschema:"Efficiency factor of the first half of the session"`
	SecondHalfEF float64 `json:"second_half_ef" jsonschema:"Efficiency factor of the second half of the session"`
}

// CalculateDriftTool returns the MCP tool handler for calculate_drift.
func (h *Handler) CalculateDriftTool() func(context.Context, *mcp.CallToolRequest, DriftInput) (*mcp.CallToolResult, any, error) {
	return func(_ context.Context, _ *mcp.CallToolRequest, in DriftInput) (*mcp.CallToolResult, any, error) {
		result, err := training.Drift(in.FirstHalfEF, in.SecondHalfEF)
		if err != nil {
			return errorResult("Invalid input: first_half_ef must not be zero"), nil, nil
		}
		return jsonResult(result), nil, nil
	}
}

// WorkoutsTimeRangeInput is the input for get_workouts_for_time_range.
type WorkoutsTimeRangeInput struct {
	FromDate string `json:"from_date" jsonschema:"Start date (YYYY-MM-DD)"`
	ToDate   string `json:"to_date" jsonschema:"End date (YYYY-MM-DD)"`
	Sport    string `json:"sport,omitempty" jsonschema:"Filter by discipline (Swim, Bike, Run, Strength, Mobility)"`
}

// GetWorkoutsForTimeRangeTool returns the MCP tool handler for get_workouts_for_time_range.
func (h *Handler) GetWorkoutsForTimeRangeTool() func(context.Context, *mcp.CallToolRequest, WorkoutsTimeRangeInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in WorkoutsTimeRangeInput) (*mcp.CallToolResult, any, error) {
		from, err := training.ParseDate(in.FromDate)
		if err != nil {
			return errorResult("Invalid from_date: use YYYY-MM-DD"), nil, nil
		}
		to, err := training.ParseDate(in.ToDate)
		if err != nil {
			return errorResult("Invalid to_date: use YYYY-MM-DD"), nil, nil
		}

		params := WorkoutParams{From: from, To: to}
		if in.Sport != "" {
			if params.Sport, err = training.ParseSport(in.Sport); err != nil {
				return errorResult("Unknown sport: " + in.Sport), nil, nil
			}
		}

		list, err := h.service.Workouts(ctx, params)
		if err != nil {
			return errorResult("Error listing workouts: " + err.Error()), nil, nil
		}
		return jsonResult(list), nil, nil
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error encoding response: " + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
