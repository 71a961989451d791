// Package handlers provides HTTP API request handlers.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/browser-bridge/backend/internal/call"
	"github.com/browser-bridge/backend/internal/model"
)

// Dispatcher issues correlated browser calls over the socket hub.
type Dispatcher interface {
	Call(action string, params json.RawMessage) call.Result
	PendingCount() int
}

// Terminal exposes the session state reported by status endpoints.
type Terminal interface {
	Running() bool
	Size() (cols, rows int)
}

// Peers reports socket hub membership.
type Peers interface {
	ClientCount() int
}

// CallHistory reads back recorded browser calls.
type CallHistory interface {
	Recent(ctx context.Context, limit int) ([]*model.CallRecord, error)
}

// validActions is the browser action set accepted by the facade.
var validActions = map[string]bool{
	"getDom":         true,
	"getSelection":   true,
	"getUrl":         true,
	"screenshot":     true,
	"executeScript":  true,
	"modifyDom":      true,
	"getConsoleLogs": true,
}

// BrowserHandler handles the HTTP facade: health, status and browser calls.
type BrowserHandler struct {
	dispatcher Dispatcher
	terminal   Terminal
	peers      Peers
	history    CallHistory
}

// NewBrowserHandler creates a new BrowserHandler. history may be nil when
// call recording is disabled.
func NewBrowserHandler(dispatcher Dispatcher, terminal Terminal, peers Peers, history CallHistory) *BrowserHandler {
	return &BrowserHandler{
		dispatcher: dispatcher,
		terminal:   terminal,
		peers:      peers,
		history:    history,
	}
}

// Health handles GET /health.
func (h *BrowserHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"terminalRunning": h.terminal.Running(),
		"clients":         h.peers.ClientCount(),
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}

// Status handles GET /status.
func (h *BrowserHandler) Status(c *gin.Context) {
	cols, rows := h.terminal.Size()
	c.JSON(http.StatusOK, gin.H{
		"terminal": gin.H{
			"running": h.terminal.Running(),
			"cols":    cols,
			"rows":    rows,
		},
		"clients":      h.peers.ClientCount(),
		"pendingCalls": h.dispatcher.PendingCount(),
	})
}

// Invoke handles POST /browser/:action. The request body is passed through
// to the extension untouched; the call result comes back as-is on success
// and as a flat {error} body on failure.
func (h *BrowserHandler) Invoke(c *gin.Context) {
	action := c.Param("action")
	if !validActions[action] {
		c.JSON(http.StatusNotFound, gin.H{"error": model.ErrUnknownAction.Error() + ": " + action})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	var params json.RawMessage
	if len(body) > 0 {
		params = json.RawMessage(body)
	}

	result := h.dispatcher.Call(action, params)
	if !result.Success {
		log.Printf("Browser call %s failed: %s", action, result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error})
		return
	}

	if len(result.Data) == 0 {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	c.Data(http.StatusOK, "application/json", result.Data)
}

// ListCalls handles GET /api/calls.
func (h *BrowserHandler) ListCalls(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusOK, gin.H{"calls": []*model.CallRecord{}})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	records, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list calls"})
		return
	}
	if records == nil {
		records = []*model.CallRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"calls": records})
}

// RegisterRoutes registers the facade routes on the root router.
func (h *BrowserHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/status", h.Status)
	r.POST("/browser/:action", h.Invoke)
	r.GET("/api/calls", h.ListCalls)
}
