package gateway

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func requestWithArgs(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestDomParamsDefaults(t *testing.T) {
	params := domParams(requestWithArgs(nil))

	if params["selector"] != "body" {
		t.Errorf("selector = %v, want body", params["selector"])
	}
	if params["includeStyles"] != false {
		t.Errorf("includeStyles = %v, want false", params["includeStyles"])
	}
}

func TestDomParamsOverrides(t *testing.T) {
	params := domParams(requestWithArgs(map[string]any{
		"selector":      "#main",
		"includeStyles": true,
	}))

	if params["selector"] != "#main" {
		t.Errorf("selector = %v, want #main", params["selector"])
	}
	if params["includeStyles"] != true {
		t.Errorf("includeStyles = %v, want true", params["includeStyles"])
	}
}

func TestDomParamsEmptySelectorFallsBack(t *testing.T) {
	params := domParams(requestWithArgs(map[string]any{"selector": ""}))

	if params["selector"] != "body" {
		t.Errorf("selector = %v, empty selector should fall back to body", params["selector"])
	}
}

func TestModifyDomParams(t *testing.T) {
	params, errMsg := modifyDomParams(requestWithArgs(map[string]any{
		"selector": ".item",
		"action":   "addClass",
		"value":    "highlight",
	}))
	if errMsg != "" {
		t.Fatalf("unexpected error: %s", errMsg)
	}

	if params["selector"] != ".item" || params["action"] != "addClass" {
		t.Errorf("unexpected params: %v", params)
	}
	if params["value"] != "highlight" {
		t.Errorf("value = %v, want highlight", params["value"])
	}
	if params["all"] != false {
		t.Errorf("all = %v, want false by default", params["all"])
	}
}

func TestModifyDomParamsAllFlag(t *testing.T) {
	params, errMsg := modifyDomParams(requestWithArgs(map[string]any{
		"selector": "p",
		"action":   "remove",
		"all":      true,
	}))
	if errMsg != "" {
		t.Fatalf("unexpected error: %s", errMsg)
	}
	if params["all"] != true {
		t.Errorf("all = %v, want true", params["all"])
	}
}

func TestModifyDomParamsMissingSelector(t *testing.T) {
	_, errMsg := modifyDomParams(requestWithArgs(map[string]any{"action": "remove"}))
	if errMsg == "" {
		t.Error("missing selector should be rejected")
	}
}

func TestModifyDomParamsUnknownAction(t *testing.T) {
	_, errMsg := modifyDomParams(requestWithArgs(map[string]any{
		"selector": "div",
		"action":   "explode",
	}))
	if errMsg == "" {
		t.Error("unknown action should be rejected")
	}
}

func TestModifyDomParamsAcceptsAllActions(t *testing.T) {
	actions := []string{
		"setHTML", "setOuterHTML", "setText", "setAttribute",
		"removeAttribute", "addClass", "removeClass", "remove",
		"insertBefore", "insertAfter",
	}
	for _, action := range actions {
		_, errMsg := modifyDomParams(requestWithArgs(map[string]any{
			"selector": "div",
			"action":   action,
		}))
		if errMsg != "" {
			t.Errorf("action %q rejected: %s", action, errMsg)
		}
	}
}

func TestConsoleLogParamsDefaults(t *testing.T) {
	params, errMsg := consoleLogParams(requestWithArgs(nil))
	if errMsg != "" {
		t.Fatalf("unexpected error: %s", errMsg)
	}

	if params["level"] != "all" {
		t.Errorf("level = %v, want all", params["level"])
	}
	if params["clear"] != false {
		t.Errorf("clear = %v, want false", params["clear"])
	}
}

func TestConsoleLogParamsOverrides(t *testing.T) {
	params, errMsg := consoleLogParams(requestWithArgs(map[string]any{
		"level": "error",
		"clear": true,
	}))
	if errMsg != "" {
		t.Fatalf("unexpected error: %s", errMsg)
	}

	if params["level"] != "error" {
		t.Errorf("level = %v, want error", params["level"])
	}
	if params["clear"] != true {
		t.Errorf("clear = %v, want true", params["clear"])
	}
}

func TestConsoleLogParamsRejectsUnknownLevel(t *testing.T) {
	_, errMsg := consoleLogParams(requestWithArgs(map[string]any{"level": "debugzilla"}))
	if errMsg == "" {
		t.Error("unknown level should be rejected")
	}
}
