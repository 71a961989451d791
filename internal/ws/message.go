package ws

import "encoding/json"

// MessageType discriminates the envelope exchanged over the socket.
type MessageType string

const (
	// MessageTypeTerminalInput carries keystrokes from a UI client to the shell.
	MessageTypeTerminalInput MessageType = "terminal:input"

	// MessageTypeTerminalOutput carries shell output to all connected clients.
	MessageTypeTerminalOutput MessageType = "terminal:output"

	// MessageTypeTerminalResize carries new terminal dimensions from a UI client.
	MessageTypeTerminalResize MessageType = "terminal:resize"

	// MessageTypeBrowserRequest carries a correlated browser action to the extension.
	MessageTypeBrowserRequest MessageType = "browser:request"

	// MessageTypeBrowserResponse carries the extension's reply to a browser request.
	MessageTypeBrowserResponse MessageType = "browser:response"

	// MessageTypeConnectionStatus is an informational lifecycle notice.
	MessageTypeConnectionStatus MessageType = "connection:status"
)

// Message is the single JSON envelope for all socket traffic. Only the fields
// relevant to a given Type are populated; the rest are omitted on the wire.
// Data is raw JSON because terminal kinds carry a string while browser
// responses carry an arbitrary payload.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Cols      int             `json:"cols,omitempty"`
	Rows      int             `json:"rows,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	Action    string          `json:"action,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Success   bool            `json:"success,omitempty"`
	Error     string          `json:"error,omitempty"`
	Status    string          `json:"status,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// Decode parses raw socket bytes into an envelope. It returns false for
// payloads that are not valid JSON or carry no type.
func Decode(raw []byte) (*Message, bool) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, false
	}
	if msg.Type == "" {
		return nil, false
	}
	return &msg, true
}

// NewTerminalOutput wraps a chunk of shell output in an envelope.
func NewTerminalOutput(data []byte) *Message {
	raw, _ := json.Marshal(string(data))
	return &Message{Type: MessageTypeTerminalOutput, Data: raw}
}

// NewConnectionStatus builds an informational status notice.
func NewConnectionStatus(status, detail string) *Message {
	return &Message{Type: MessageTypeConnectionStatus, Status: status, Message: detail}
}

// NewBrowserRequest builds a correlated browser request.
func NewBrowserRequest(requestID, action string, params json.RawMessage) *Message {
	return &Message{Type: MessageTypeBrowserRequest, RequestID: requestID, Action: action, Params: params}
}

// TerminalData decodes the Data field of a terminal message as a string.
func (m *Message) TerminalData() (string, bool) {
	var s string
	if err := json.Unmarshal(m.Data, &s); err != nil {
		return "", false
	}
	return s, true
}
