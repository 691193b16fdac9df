// Package mcp exposes the aggregation engine's three query operations over
// a JSON-RPC 2.0 method surface (initialize, tools/list, tools/call).
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/claude/vitals/internal/report"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	serverName      = "vitals"
	protocolVersion = "2024-11-05"
)

// --- Tool definitions ---

var toolGetToday = mcp.NewTool("get_today",
	mcp.WithDescription("Get all raw health data for today: HRV, heart rate (with HR zones), sleep stages, steps, exercise minutes, respiratory rate."),
)

var toolGetTrends = mcp.NewTool("get_trends",
	mcp.WithDescription("Get health trends over multiple days: HRV, resting HR, exercise minutes, steps, HR zones, sleep data."),
	mcp.WithNumber("days", mcp.Description("Number of days (default 7)")),
)

var toolGetRecoveryStatus = mcp.NewTool("get_recovery_status",
	mcp.WithDescription("Get recovery data: HRV (today vs 14-day baseline), resting HR, sleep, exercise minutes, HR zones, plus last 3 days for training pattern context. Includes the configured weekly routine."),
)

// Dispatcher routes JSON-RPC messages to the aggregation engine.
type Dispatcher struct {
	agg     *report.Aggregator
	version string
	log     *slog.Logger
	tools   []mcp.Tool
}

// NewDispatcher creates a Dispatcher over the given aggregator.
func NewDispatcher(agg *report.Aggregator, version string, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		agg:     agg,
		version: version,
		log:     log,
		tools:   []mcp.Tool{toolGetToday, toolGetTrends, toolGetRecoveryStatus},
	}
}

// Tools returns the tool descriptors, for the discovery document.
func (d *Dispatcher) Tools() []mcp.Tool {
	return d.tools
}

// ServerName returns the advertised server name.
func (d *Dispatcher) ServerName() string { return serverName }

// --- JSON-RPC envelope ---

// The request ID is carried opaquely: whatever the client sent (number,
// string, null) is echoed back unmodified.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    map[string]any     `json:"capabilities"`
	ServerInfo      mcp.Implementation `json:"serverInfo"`
}

func errorResponse(id json.RawMessage, code int, message string) rpcResponse {
	return rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}}
}

// HandleMessage processes one JSON-RPC request body and returns the response
// envelope to serialize. An unknown top-level method is a protocol error
// (-32601); an unknown tool NAME inside tools/call is not — it comes back as
// a normal result carrying an error string, so tool-level and
// transport-level "unknown" stay distinguishable.
func (d *Dispatcher) HandleMessage(ctx context.Context, body []byte) rpcResponse {
	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return errorResponse(nil, mcp.PARSE_ERROR, "invalid JSON: "+err.Error())
	}

	switch req.Method {
	case "initialize":
		return rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: initializeResult{
				ProtocolVersion: protocolVersion,
				Capabilities:    map[string]any{"tools": map[string]any{}},
				ServerInfo:      mcp.Implementation{Name: serverName, Version: d.version},
			},
		}

	case "tools/list":
		return rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]any{"tools": d.tools},
		}

	case "tools/call":
		text, err := d.callTool(ctx, req.Params.Name, req.Params.Arguments)
		if err != nil {
			d.log.Error("tool call failed", "tool", req.Params.Name, "error", err)
			return errorResponse(req.ID, mcp.INTERNAL_ERROR, err.Error())
		}
		return rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  mcp.NewToolResultText(text),
		}

	default:
		return errorResponse(req.ID, mcp.METHOD_NOT_FOUND, "Unknown method: "+req.Method)
	}
}

// callTool dispatches by tool name and serializes the result as indented
// JSON for the text-content payload.
func (d *Dispatcher) callTool(ctx context.Context, name string, args map[string]any) (string, error) {
	var result any
	var err error

	switch name {
	case "get_today":
		result, err = d.agg.Today(ctx)
	case "get_trends":
		days := report.DefaultTrendDays
		if n, ok := args["days"].(float64); ok && n > 0 {
			days = int(n)
		}
		result, err = d.agg.Trends(ctx, days)
	case "get_recovery_status":
		result, err = d.agg.RecoveryStatus(ctx)
	default:
		result = map[string]string{"error": fmt.Sprintf("Unknown tool: %s", name)}
	}
	if err != nil {
		return "", err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding tool result: %w", err)
	}
	return string(out), nil
}
