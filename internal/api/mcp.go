package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lexio/readerd/internal/device"
	"github.com/lexio/readerd/internal/prefs"
	"github.com/lexio/readerd/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Prefs  *prefs.Store
	Events EventLister // optional; if nil, preference_history returns an empty list
}

// NewMCPServer creates an MCP server exposing reading preferences to
// assistants over stdio.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"readerd",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("readerd — local reading-preferences daemon (bionic reading, body font, device profile)."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("get_preferences",
			mcp.WithDescription("Read the current reading preferences and whether the initial remote sync has completed."),
		),
		mcpGetPreferences(deps),
	)

	s.AddTool(
		mcp.NewTool("set_preference",
			mcp.WithDescription("Update one reading preference. The change applies immediately and is written to the account service in the background."),
			mcp.WithString("key", mcp.Description("Preference key: bionicReading or bodyFont"), mcp.Required()),
			mcp.WithString("value", mcp.Description("Value in string form (true/false, or a font identifier)"), mcp.Required()),
		),
		mcpSetPreference(deps),
	)

	s.AddTool(
		mcp.NewTool("classify_device",
			mcp.WithDescription("Classify a user-agent string as ios, android, or desktop."),
			mcp.WithString("user_agent", mcp.Description("User-agent string to classify")),
			mcp.WithNumber("touch_points", mcp.Description("Reported maxTouchPoints capability (detects iPadOS)")),
		),
		mcpClassifyDevice(),
	)

	s.AddTool(
		mcp.NewTool("preference_history",
			mcp.WithDescription("List recent preference changes (updates, reverts, syncs)."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of events (default 20)")),
		),
		mcpPreferenceHistory(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"user://preferences",
			"Reading Preferences",
			mcp.WithResourceDescription("Current reading preferences as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourcePreferences(deps),
	)

	return s
}

func mcpGetPreferences(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(preferencesResponse{
			Set:   deps.Prefs.Current(),
			Ready: deps.Prefs.Ready(),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal preferences: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSetPreference(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcpError("key is required"), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		switch prefs.Key(key) {
		case prefs.KeyBionicReading:
			v, err := strconv.ParseBool(value)
			if err != nil {
				return mcpError("bionicReading expects true or false"), nil
			}
			deps.Prefs.SetBionicReading(ctx, v)
		case prefs.KeyBodyFont:
			font, ok := prefs.ParseFont(value)
			if !ok {
				return mcpError(fmt.Sprintf("unknown bodyFont %q", value)), nil
			}
			deps.Prefs.SetBodyFont(ctx, font)
		default:
			return mcpError(fmt.Sprintf("unknown preference key %q", key)), nil
		}

		return mcpText(fmt.Sprintf("Set %s = %s (remote write pending)", key, value)), nil
	}
}

func mcpClassifyDevice() server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ua := req.GetString("user_agent", "")
		touch := req.GetInt("touch_points", 0)

		platform := device.Classify(device.Probe{UserAgent: ua, TouchPoints: touch})
		return mcpText(string(platform)), nil
	}
}

func mcpPreferenceHistory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		events := []storage.PreferenceEvent{}
		if deps.Events != nil {
			list, err := deps.Events.ListEvents(limit, 0)
			if err != nil {
				return mcpError(fmt.Sprintf("failed to list events: %v", err)), nil
			}
			if list != nil {
				events = list
			}
		}

		b, err := json.Marshal(events)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal events: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourcePreferences(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(preferencesResponse{
			Set:   deps.Prefs.Current(),
			Ready: deps.Prefs.Ready(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal preferences: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
