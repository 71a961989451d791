package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Screenshot responses carry
	// base64 image payloads, so this is generous.
	maxMessageSize = 16 * 1024 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The extension and the local UI connect from extension/file origins.
		return true
	},
}

// Terminal is the subset of the terminal session the handler routes input to.
type Terminal interface {
	Write(data []byte) error
	Resize(cols, rows int) error
	History() []byte
}

// CallResolver completes a pending browser call. Resolve reports whether the
// request id matched a pending call.
type CallResolver interface {
	Resolve(requestID string, success bool, data json.RawMessage, errMsg string) bool
}

// Handler handles WebSocket connections for the shared hub.
type Handler struct {
	hub      *Hub
	terminal Terminal
	resolver CallResolver
}

// NewHandler creates a new WebSocket handler.
func NewHandler(hub *Hub, terminal Terminal, resolver CallResolver) *Handler {
	h := &Handler{
		hub:      hub,
		terminal: terminal,
		resolver: resolver,
	}
	hub.SetOnMessage(h.handleMessage)
	return h
}

// HandleConnection upgrades the HTTP connection to WebSocket and manages the
// bidirectional communication.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(conn)
	h.hub.Register(client)

	// Greet the new client, then replay buffered terminal history
	if data, err := json.Marshal(NewConnectionStatus("connected", "")); err == nil {
		client.Send(data)
	}
	h.sendHistory(client)

	go h.writePump(client)
	go h.readPump(client)

	return nil
}

// sendHistory sends the buffered terminal output to the client.
func (h *Handler) sendHistory(client *Client) {
	if h.terminal == nil {
		return
	}
	history := h.terminal.History()
	if len(history) == 0 {
		return
	}

	data, err := json.Marshal(NewTerminalOutput(history))
	if err != nil {
		log.Printf("Failed to marshal history message: %v", err)
		return
	}

	client.Send(data)
}

// handleMessage processes incoming messages from clients. Unknown or
// malformed messages are logged and dropped; the connection stays open.
func (h *Handler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case MessageTypeTerminalInput:
		h.handleTerminalInput(msg)
	case MessageTypeTerminalResize:
		h.handleTerminalResize(msg)
	case MessageTypeBrowserResponse:
		h.handleBrowserResponse(msg)
	case MessageTypeConnectionStatus:
		// Informational, nothing to route.
	default:
		log.Printf("Ignoring message with unknown type %q", msg.Type)
	}
}

// handleTerminalInput forwards keystrokes to the shell.
func (h *Handler) handleTerminalInput(msg *Message) {
	data, ok := msg.TerminalData()
	if !ok {
		log.Printf("Dropping terminal input with non-string data")
		return
	}
	if data == "" || h.terminal == nil {
		return
	}

	if err := h.terminal.Write([]byte(data)); err != nil {
		log.Printf("Failed to write to terminal: %v", err)
	}
}

// handleTerminalResize applies new terminal dimensions.
func (h *Handler) handleTerminalResize(msg *Message) {
	if h.terminal == nil {
		return
	}
	if err := h.terminal.Resize(msg.Cols, msg.Rows); err != nil {
		log.Printf("Failed to resize terminal: %v", err)
	}
}

// handleBrowserResponse resolves the matching pending call. Replies that
// match nothing (already timed out, or duplicate) are dropped.
func (h *Handler) handleBrowserResponse(msg *Message) {
	if h.resolver == nil || msg.RequestID == "" {
		return
	}
	if !h.resolver.Resolve(msg.RequestID, msg.Success, msg.Data, msg.Error) {
		log.Printf("Dropping browser response with unmatched request id %s", msg.RequestID)
	}
}

// readPump pumps messages from the WebSocket connection to the hub.
func (h *Handler) readPump(client *Client) {
	defer func() {
		h.hub.Unregister(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		msg, ok := Decode(message)
		if !ok {
			log.Printf("Failed to decode message, dropping")
			continue
		}

		h.hub.HandleMessage(client, msg)
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.SendChan():
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Send each message in its own frame so the client can parse
			// them independently.
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			n := len(client.SendChan())
			for i := 0; i < n; i++ {
				queuedMsg := <-client.SendChan()
				client.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.conn.WriteMessage(websocket.TextMessage, queuedMsg); err != nil {
					return
				}
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// BroadcastOutput broadcasts terminal output to all connected clients.
func (h *Handler) BroadcastOutput(data []byte) {
	h.hub.BroadcastMessage(NewTerminalOutput(data))
}

// BroadcastStatus broadcasts a connection status notice to all clients.
func (h *Handler) BroadcastStatus(status, detail string) {
	h.hub.BroadcastMessage(NewConnectionStatus(status, detail))
}

// SetCheckOrigin sets a custom origin checker for the WebSocket upgrader.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}
