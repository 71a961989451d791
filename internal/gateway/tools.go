// Package gateway exposes the browser bridge to the agent as MCP tools
// served over stdio.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is the MCP server version advertised to clients.
const Version = "1.0.0"

// Caller issues browser actions against the bridge facade.
type Caller interface {
	Call(ctx context.Context, action string, params any) (json.RawMessage, error)
}

// modifyActions is the set of DOM mutations modify_dom accepts.
var modifyActions = map[string]bool{
	"setHTML":         true,
	"setOuterHTML":    true,
	"setText":         true,
	"setAttribute":    true,
	"removeAttribute": true,
	"addClass":        true,
	"removeClass":     true,
	"remove":          true,
	"insertBefore":    true,
	"insertAfter":     true,
}

// consoleLevels is the set of accepted console log filters.
var consoleLevels = map[string]bool{
	"all":     true,
	"error":   true,
	"warning": true,
	"info":    true,
}

// NewServer builds the MCP server with all browser tools registered.
func NewServer(caller Caller) *server.MCPServer {
	s := server.NewMCPServer(
		"browser-bridge",
		Version,
		server.WithToolCapabilities(false),
	)
	registerTools(s, caller)
	return s
}

func registerTools(s *server.MCPServer, caller Caller) {
	domTool := mcp.NewTool("get_browser_dom",
		mcp.WithDescription("Get the DOM content of the current browser tab, optionally scoped to a CSS selector."),
		mcp.WithString("selector",
			mcp.Description("CSS selector to scope the DOM to (defaults to the document body)"),
		),
		mcp.WithBoolean("includeStyles",
			mcp.Description("Include computed styles in the result"),
		),
	)
	s.AddTool(domTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return invoke(ctx, caller, "getDom", domParams(request))
	})

	selectionTool := mcp.NewTool("get_browser_selection",
		mcp.WithDescription("Get the text currently selected in the browser tab."),
	)
	s.AddTool(selectionTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return invoke(ctx, caller, "getSelection", map[string]any{})
	})

	urlTool := mcp.NewTool("get_browser_url",
		mcp.WithDescription("Get the URL of the current browser tab."),
	)
	s.AddTool(urlTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return invoke(ctx, caller, "getUrl", map[string]any{})
	})

	screenshotTool := mcp.NewTool("capture_browser_screenshot",
		mcp.WithDescription("Capture a screenshot of the current browser tab. Returns a base64-encoded image."),
	)
	s.AddTool(screenshotTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return invoke(ctx, caller, "screenshot", map[string]any{})
	})

	scriptTool := mcp.NewTool("execute_browser_script",
		mcp.WithDescription("Execute a JavaScript snippet in the current browser tab and return its result."),
		mcp.WithString("script",
			mcp.Required(),
			mcp.Description("JavaScript source to execute"),
		),
	)
	s.AddTool(scriptTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		script, err := request.RequireString("script")
		if err != nil {
			return mcp.NewToolResultError("Missing or invalid 'script' argument"), nil
		}
		return invoke(ctx, caller, "executeScript", map[string]any{"script": script})
	})

	modifyTool := mcp.NewTool("modify_dom",
		mcp.WithDescription("Modify DOM elements matching a CSS selector."),
		mcp.WithString("selector",
			mcp.Required(),
			mcp.Description("CSS selector for the target element(s)"),
		),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("Mutation to apply: setHTML, setOuterHTML, setText, setAttribute, removeAttribute, addClass, removeClass, remove, insertBefore or insertAfter"),
		),
		mcp.WithString("value",
			mcp.Description("New content, attribute value or class name, depending on the action"),
		),
		mcp.WithString("attributeName",
			mcp.Description("Attribute name for setAttribute/removeAttribute"),
		),
		mcp.WithBoolean("all",
			mcp.Description("Apply to all matching elements instead of the first"),
		),
	)
	s.AddTool(modifyTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params, errMsg := modifyDomParams(request)
		if errMsg != "" {
			return mcp.NewToolResultError(errMsg), nil
		}
		return invoke(ctx, caller, "modifyDom", params)
	})

	logsTool := mcp.NewTool("get_console_logs",
		mcp.WithDescription("Get console logs captured in the current browser tab."),
		mcp.WithString("level",
			mcp.Description("Filter by level: all, error, warning or info (defaults to all)"),
		),
		mcp.WithBoolean("clear",
			mcp.Description("Clear the captured logs after returning them"),
		),
	)
	s.AddTool(logsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params, errMsg := consoleLogParams(request)
		if errMsg != "" {
			return mcp.NewToolResultError(errMsg), nil
		}
		return invoke(ctx, caller, "getConsoleLogs", params)
	})
}

// invoke runs a browser action through the facade and converts the outcome
// into an MCP result. Failures become error results, never protocol errors.
func invoke(ctx context.Context, caller Caller, action string, params any) (*mcp.CallToolResult, error) {
	data, err := caller.Call(ctx, action, params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// domParams normalizes get_browser_dom arguments, applying defaults.
func domParams(request mcp.CallToolRequest) map[string]any {
	params := map[string]any{
		"selector":      "body",
		"includeStyles": false,
	}

	if args, ok := request.Params.Arguments.(map[string]any); ok {
		if selector, ok := args["selector"].(string); ok && selector != "" {
			params["selector"] = selector
		}
		if include, ok := args["includeStyles"].(bool); ok {
			params["includeStyles"] = include
		}
	}

	return params
}

// modifyDomParams validates and normalizes modify_dom arguments. A
// non-empty error message means the arguments were rejected.
func modifyDomParams(request mcp.CallToolRequest) (map[string]any, string) {
	selector, err := request.RequireString("selector")
	if err != nil {
		return nil, "Missing or invalid 'selector' argument"
	}
	action, err := request.RequireString("action")
	if err != nil {
		return nil, "Missing or invalid 'action' argument"
	}
	if !modifyActions[action] {
		return nil, fmt.Sprintf("Unsupported modify_dom action %q", action)
	}

	params := map[string]any{
		"selector": selector,
		"action":   action,
		"all":      false,
	}

	if args, ok := request.Params.Arguments.(map[string]any); ok {
		if value, ok := args["value"].(string); ok {
			params["value"] = value
		}
		if name, ok := args["attributeName"].(string); ok {
			params["attributeName"] = name
		}
		if all, ok := args["all"].(bool); ok {
			params["all"] = all
		}
	}

	return params, ""
}

// consoleLogParams validates and normalizes get_console_logs arguments.
func consoleLogParams(request mcp.CallToolRequest) (map[string]any, string) {
	params := map[string]any{
		"level": "all",
		"clear": false,
	}

	if args, ok := request.Params.Arguments.(map[string]any); ok {
		if level, ok := args["level"].(string); ok && level != "" {
			if !consoleLevels[level] {
				return nil, fmt.Sprintf("Unsupported console log level %q", level)
			}
			params["level"] = level
		}
		if clear, ok := args["clear"].(bool); ok {
			params["clear"] = clear
		}
	}

	return params, ""
}
