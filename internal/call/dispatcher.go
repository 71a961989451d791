// Package call correlates browser requests broadcast over the socket hub
// with the asynchronous replies that come back from the extension.
package call

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/browser-bridge/backend/internal/model"
	"github.com/browser-bridge/backend/internal/ws"
)

// DefaultTimeout is how long a call waits for a reply before failing.
const DefaultTimeout = 30 * time.Second

// User-visible failure messages for the two no-reply outcomes.
const (
	ErrMsgNoClients = "No browser extension connected"
	ErrMsgTimeout   = "Request timed out"
)

// Result is the terminal outcome of a remote call. Exactly one of the
// failure paths or a reply produces it; a call never resolves twice.
type Result struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Broadcaster is the subset of the socket hub the dispatcher needs.
type Broadcaster interface {
	ClientCount() int
	BroadcastMessage(msg *ws.Message) error
}

// Recorder persists completed calls for the history endpoint.
type Recorder interface {
	Record(ctx context.Context, rec *model.CallRecord) error
}

type pendingCall struct {
	timer *time.Timer
	done  chan Result
}

// Dispatcher tracks in-flight browser calls keyed by request id.
type Dispatcher struct {
	peers    Broadcaster
	timeout  time.Duration
	recorder Recorder

	mu      sync.Mutex
	pending map[string]*pendingCall
}

// NewDispatcher creates a dispatcher broadcasting over the given hub.
func NewDispatcher(peers Broadcaster) *Dispatcher {
	return &Dispatcher{
		peers:   peers,
		timeout: DefaultTimeout,
		pending: make(map[string]*pendingCall),
	}
}

// SetRecorder enables best-effort call history recording.
func (d *Dispatcher) SetRecorder(r Recorder) {
	d.recorder = r
}

// SetTimeout overrides the default reply timeout.
func (d *Dispatcher) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.timeout = timeout
	}
}

// Call broadcasts a browser request and blocks until the extension replies
// or the timeout fires. With no connected clients it fails immediately
// without registering anything. Callers always get a Result; transport
// problems surface as failed results, not errors.
func (d *Dispatcher) Call(action string, params json.RawMessage) Result {
	start := time.Now()

	if d.peers.ClientCount() == 0 {
		res := Result{Success: false, Error: ErrMsgNoClients}
		d.record("", action, res, time.Since(start))
		return res
	}

	id := uuid.New().String()
	pc := &pendingCall{done: make(chan Result, 1)}

	d.mu.Lock()
	pc.timer = time.AfterFunc(d.timeout, func() {
		if d.take(id) != nil {
			pc.done <- Result{Success: false, Error: ErrMsgTimeout}
		}
	})
	d.pending[id] = pc
	d.mu.Unlock()

	if err := d.peers.BroadcastMessage(ws.NewBrowserRequest(id, action, params)); err != nil {
		if d.take(id) != nil {
			pc.timer.Stop()
		}
		res := Result{Success: false, Error: err.Error()}
		d.record(id, action, res, time.Since(start))
		return res
	}

	res := <-pc.done
	d.record(id, action, res, time.Since(start))
	return res
}

// Resolve completes the pending call for the given request id. It returns
// false when the id matches nothing, which means the call already timed out
// or the reply is a duplicate. Implements ws.CallResolver.
func (d *Dispatcher) Resolve(requestID string, success bool, data json.RawMessage, errMsg string) bool {
	pc := d.take(requestID)
	if pc == nil {
		return false
	}

	pc.timer.Stop()
	pc.done <- Result{Success: success, Data: data, Error: errMsg}
	return true
}

// PendingCount returns the number of in-flight calls.
func (d *Dispatcher) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// take removes and returns the pending entry for id, or nil when it is
// already gone. Removal from the map is the single resolution gate:
// whichever of the reply and timer paths takes the entry first wins, the
// loser becomes a no-op.
func (d *Dispatcher) take(id string) *pendingCall {
	d.mu.Lock()
	defer d.mu.Unlock()

	pc := d.pending[id]
	delete(d.pending, id)
	return pc
}

// record persists the call outcome when a recorder is configured.
func (d *Dispatcher) record(id, action string, res Result, elapsed time.Duration) {
	if d.recorder == nil {
		return
	}
	if id == "" {
		id = uuid.New().String()
	}

	rec := &model.CallRecord{
		ID:         id,
		Action:     action,
		Success:    res.Success,
		Error:      res.Error,
		DurationMS: elapsed.Milliseconds(),
		CreatedAt:  time.Now(),
	}
	if err := d.recorder.Record(context.Background(), rec); err != nil {
		log.Printf("Failed to record call %s: %v", action, err)
	}
}
