// Package handlers provides HTTP API request handlers.
package handlers

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/browser-bridge/backend/internal/ws"
)

// WebSocketHandler upgrades socket connections for UI clients and the
// browser extension. Both join the same hub.
type WebSocketHandler struct {
	wsHandler *ws.Handler
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(wsHandler *ws.Handler) *WebSocketHandler {
	return &WebSocketHandler{
		wsHandler: wsHandler,
	}
}

// Connect handles GET /api/connect.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	if err := h.wsHandler.HandleConnection(c.Writer, c.Request); err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
	}
}

// RegisterRoutes registers the WebSocket routes on a Gin router group.
func (h *WebSocketHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/connect", h.Connect)
}
