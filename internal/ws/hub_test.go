package ws

import (
	"encoding/json"
	"testing"
	"time"
)

// mockClient is a test helper that wraps a Client without a real WebSocket
// connection.
type mockClient struct {
	client *Client
}

func newMockClient() *mockClient {
	client := &Client{
		conn: nil, // No real connection for testing
		send: make(chan []byte, 256),
	}
	return &mockClient{client: client}
}

func (mc *mockClient) receive(timeout time.Duration) ([]byte, bool) {
	select {
	case msg, ok := <-mc.client.SendChan():
		return msg, ok
	case <-time.After(timeout):
		return nil, false
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	if hub.HasClients() {
		t.Error("new hub should have no clients")
	}

	mc1 := newMockClient()
	mc2 := newMockClient()
	hub.Register(mc1.client)
	hub.Register(mc2.client)

	if got := hub.ClientCount(); got != 2 {
		t.Errorf("ClientCount() = %d, want 2", got)
	}

	hub.Unregister(mc1.client)
	if got := hub.ClientCount(); got != 1 {
		t.Errorf("ClientCount() after unregister = %d, want 1", got)
	}
	if !mc1.client.IsClosed() {
		t.Error("unregistered client should be closed")
	}

	hub.Unregister(mc2.client)
	if hub.HasClients() {
		t.Error("hub should have no clients after unregistering all")
	}
}

func TestHubBroadcastSkipsClosedClients(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	open := newMockClient()
	closed := newMockClient()
	hub.Register(open.client)
	hub.Register(closed.client)

	closed.client.Close()

	hub.Broadcast([]byte("hello"))

	if msg, ok := open.receive(100 * time.Millisecond); !ok || string(msg) != "hello" {
		t.Errorf("open client received %q, want %q", msg, "hello")
	}
}

func TestHubBroadcastMessageSerializesOnce(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	clients := make([]*mockClient, 3)
	for i := range clients {
		clients[i] = newMockClient()
		hub.Register(clients[i].client)
	}

	msg := NewConnectionStatus("connected", "terminal ready")
	if err := hub.BroadcastMessage(msg); err != nil {
		t.Fatalf("BroadcastMessage() error: %v", err)
	}

	want, _ := json.Marshal(msg)
	for i, mc := range clients {
		got, ok := mc.receive(100 * time.Millisecond)
		if !ok {
			t.Fatalf("client %d received nothing", i)
		}
		if string(got) != string(want) {
			t.Errorf("client %d received %q, want %q", i, got, want)
		}
	}
}

func TestClientSendAfterClose(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	mc := newMockClient()
	mc.client.Close()

	// Must not panic on the closed channel.
	mc.client.Send([]byte("late"))

	if _, ok := mc.receive(50 * time.Millisecond); ok {
		t.Error("closed client should not receive data")
	}
}

func TestClientSendClosesOnFullBuffer(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	mc := newMockClient()
	hub.Register(mc.client)

	// Fill the buffer without draining; one more send must close the client.
	for i := 0; i < 256; i++ {
		mc.client.Send([]byte("x"))
	}
	mc.client.Send([]byte("overflow"))

	if !mc.client.IsClosed() {
		t.Error("client with full buffer should be closed")
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantOK   bool
		wantType MessageType
	}{
		{
			name:     "terminal input",
			raw:      `{"type":"terminal:input","data":"ls\n"}`,
			wantOK:   true,
			wantType: MessageTypeTerminalInput,
		},
		{
			name:     "browser response",
			raw:      `{"type":"browser:response","requestId":"abc","success":true,"data":{"url":"https://example.com"}}`,
			wantOK:   true,
			wantType: MessageTypeBrowserResponse,
		},
		{
			name:   "invalid json",
			raw:    `{not json`,
			wantOK: false,
		},
		{
			name:   "missing type",
			raw:    `{"data":"hello"}`,
			wantOK: false,
		},
		{
			name:   "non-object payload",
			raw:    `[1,2,3]`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := Decode([]byte(tt.raw))
			if ok != tt.wantOK {
				t.Fatalf("Decode() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && msg.Type != tt.wantType {
				t.Errorf("Decode() type = %q, want %q", msg.Type, tt.wantType)
			}
		})
	}
}

func TestTerminalDataRoundTrip(t *testing.T) {
	msg := NewTerminalOutput([]byte("echo hi\r\n"))

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	parsed, ok := Decode(raw)
	if !ok {
		t.Fatal("Decode() failed on terminal output")
	}

	data, ok := parsed.TerminalData()
	if !ok {
		t.Fatal("TerminalData() failed")
	}
	if data != "echo hi\r\n" {
		t.Errorf("TerminalData() = %q, want %q", data, "echo hi\r\n")
	}
}

func TestTerminalDataRejectsNonString(t *testing.T) {
	msg, ok := Decode([]byte(`{"type":"terminal:input","data":{"nested":true}}`))
	if !ok {
		t.Fatal("Decode() failed")
	}
	if _, ok := msg.TerminalData(); ok {
		t.Error("TerminalData() accepted an object payload")
	}
}
