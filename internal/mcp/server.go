// Package mcp provides the stdio MCP server exposing glucose tools to agents.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/go-ports/glucowatch/internal/alert"
	"github.com/go-ports/glucowatch/internal/buildinfo"
	"github.com/go-ports/glucowatch/internal/display"
	"github.com/go-ports/glucowatch/internal/service"
)

const (
	defaultLimit   = 12
	maxLimit       = 288
	defaultMinutes = 1440
)

const currentDescription = `Get the most recent glucose reading of the last 24 hours: value in mg/dL, trend, arrow, range and how long ago it was taken. Returns available=false when the sensor has no data.`

const readingsDescription = `List recent glucose readings, newest first. Use this to see how glucose has moved over the last hours.`

const alertDescription = `Evaluate the current reading against the alert thresholds (falling below 130, dropping quickly below 160, rising above 200, anything above 250) without sending a notification.`

// NewServer creates and registers all glucose tools on a new MCP server.
// It is separate from Serve so that tests and other callers can obtain a
// fully configured server without committing to the stdio transport.
func NewServer(svc *service.Service) *mcpserver.MCPServer {
	return newServer(svc, time.Now)
}

func newServer(svc *service.Service, now func() time.Time) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("glucowatch", buildinfo.Version)
	registerTools(s, svc, now)
	return s
}

// Serve starts the stdio MCP server for the config in home, blocking until
// stdin closes.
func Serve(_ context.Context, home string) error {
	svc, err := service.Open(home)
	if err != nil {
		return fmt.Errorf("mcp: init service: %w", err)
	}
	return mcpserver.ServeStdio(NewServer(svc))
}

func registerTools(s *mcpserver.MCPServer, svc *service.Service, now func() time.Time) {
	s.AddTool(mcp.NewTool("glucose_current",
		mcp.WithDescription(currentDescription),
	), func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCurrent(ctx, svc, now)
	})

	s.AddTool(mcp.NewTool("glucose_readings",
		mcp.WithDescription(readingsDescription),
		mcp.WithNumber("limit",
			mcp.Description("Max readings (default 12, at most 288)"),
		),
		mcp.WithNumber("minutes",
			mcp.Description("Lookback window in minutes (default 1440, at most 1440)"),
		),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleReadings(ctx, svc, req, now)
	})

	s.AddTool(mcp.NewTool("glucose_alert_status",
		mcp.WithDescription(alertDescription),
	), func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleAlertStatus(ctx, svc, now)
	})
}

// ---------------------------------------------------------------------------
// Tool handlers
// ---------------------------------------------------------------------------

func handleCurrent(ctx context.Context, svc *service.Service, now func() time.Time) (*mcp.CallToolResult, error) {
	r, err := svc.Current(ctx)
	if err != nil {
		return mcp.NewToolResultError(svc.RedactError(err)), nil
	}
	if r == nil {
		return jsonResult(map[string]any{
			"available": false,
			"message":   "No glucose reading available for the last 24 hours.",
		})
	}
	out := display.Fields(*r, now())
	out["available"] = true
	return jsonResult(out)
}

func handleReadings(ctx context.Context, svc *service.Service, req mcp.CallToolRequest, now func() time.Time) (*mcp.CallToolResult, error) {
	limit := clamp(req.GetInt("limit", defaultLimit), defaultLimit, maxLimit)
	minutes := clamp(req.GetInt("minutes", defaultMinutes), defaultMinutes, defaultMinutes)

	readings, err := svc.Recent(ctx, limit, minutes)
	if err != nil {
		return mcp.NewToolResultError(svc.RedactError(err)), nil
	}

	t := now()
	clean := make([]map[string]any, 0, len(readings))
	for _, r := range readings {
		clean = append(clean, display.Fields(r, t))
	}
	return jsonResult(map[string]any{
		"count":    len(clean),
		"minutes":  minutes,
		"readings": clean,
	})
}

func handleAlertStatus(ctx context.Context, svc *service.Service, now func() time.Time) (*mcp.CallToolResult, error) {
	r, err := svc.Current(ctx)
	if err != nil {
		return mcp.NewToolResultError(svc.RedactError(err)), nil
	}
	if r == nil {
		return jsonResult(map[string]any{"alert": false, "reading": nil})
	}

	out := map[string]any{"alert": false, "reading": display.Fields(*r, now())}
	if a, ok := alert.Evaluate(*r); ok {
		out["alert"] = true
		out["rule"] = string(a.Rule)
		out["title"] = a.Title
		out["subtitle"] = a.Subtitle
		out["body"] = a.Body
	}
	return jsonResult(out)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// clamp returns def for non-positive n and caps n at upper.
func clamp(n, def, upper int) int {
	if n <= 0 {
		return def
	}
	return min(n, upper)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
