package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/browser-bridge/backend/internal/call"
	"github.com/browser-bridge/backend/internal/model"
)

type fakeDispatcher struct {
	lastAction string
	lastParams json.RawMessage
	result     call.Result
	pending    int
}

func (f *fakeDispatcher) Call(action string, params json.RawMessage) call.Result {
	f.lastAction = action
	f.lastParams = params
	return f.result
}

func (f *fakeDispatcher) PendingCount() int { return f.pending }

type fakeTerminal struct {
	running bool
	cols    int
	rows    int
}

func (f *fakeTerminal) Running() bool    { return f.running }
func (f *fakeTerminal) Size() (int, int) { return f.cols, f.rows }

type fakePeers struct{ clients int }

func (f *fakePeers) ClientCount() int { return f.clients }

type fakeHistory struct {
	records []*model.CallRecord
	err     error
}

func (f *fakeHistory) Recent(ctx context.Context, limit int) ([]*model.CallRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.records) {
		return f.records[:limit], nil
	}
	return f.records, nil
}

func newTestRouter(dispatcher *fakeDispatcher, terminal *fakeTerminal, peers *fakePeers, history *fakeHistory) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var h CallHistory
	if history != nil {
		h = history
	}
	NewBrowserHandler(dispatcher, terminal, peers, h).RegisterRoutes(r)
	return r
}

func TestHealth(t *testing.T) {
	r := newTestRouter(
		&fakeDispatcher{},
		&fakeTerminal{running: true, cols: 80, rows: 24},
		&fakePeers{clients: 2},
		nil,
	)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["terminalRunning"] != true {
		t.Errorf("terminalRunning = %v, want true", body["terminalRunning"])
	}
	if body["clients"] != float64(2) {
		t.Errorf("clients = %v, want 2", body["clients"])
	}
	if _, ok := body["timestamp"]; !ok {
		t.Error("timestamp missing")
	}
}

func TestStatus(t *testing.T) {
	r := newTestRouter(
		&fakeDispatcher{pending: 3},
		&fakeTerminal{running: false, cols: 132, rows: 50},
		&fakePeers{clients: 1},
		nil,
	)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Terminal struct {
			Running bool `json:"running"`
			Cols    int  `json:"cols"`
			Rows    int  `json:"rows"`
		} `json:"terminal"`
		Clients      int `json:"clients"`
		PendingCalls int `json:"pendingCalls"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body.Terminal.Running {
		t.Error("terminal.running = true, want false")
	}
	if body.Terminal.Cols != 132 || body.Terminal.Rows != 50 {
		t.Errorf("terminal size = %dx%d, want 132x50", body.Terminal.Cols, body.Terminal.Rows)
	}
	if body.PendingCalls != 3 {
		t.Errorf("pendingCalls = %d, want 3", body.PendingCalls)
	}
}

func TestInvokeSuccess(t *testing.T) {
	dispatcher := &fakeDispatcher{
		result: call.Result{Success: true, Data: json.RawMessage(`{"url":"https://example.com"}`)},
	}
	r := newTestRouter(dispatcher, &fakeTerminal{}, &fakePeers{clients: 1}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/browser/getUrl", strings.NewReader(`{}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if dispatcher.lastAction != "getUrl" {
		t.Errorf("dispatched action = %q, want getUrl", dispatcher.lastAction)
	}
	if w.Body.String() != `{"url":"https://example.com"}` {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestInvokePassesParamsThrough(t *testing.T) {
	dispatcher := &fakeDispatcher{result: call.Result{Success: true}}
	r := newTestRouter(dispatcher, &fakeTerminal{}, &fakePeers{clients: 1}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/browser/modifyDom",
		strings.NewReader(`{"selector":".x","action":"remove","all":true}`))
	r.ServeHTTP(w, req)

	if string(dispatcher.lastParams) != `{"selector":".x","action":"remove","all":true}` {
		t.Errorf("params = %s", dispatcher.lastParams)
	}
}

func TestInvokeFailureReturns500(t *testing.T) {
	dispatcher := &fakeDispatcher{
		result: call.Result{Success: false, Error: "No browser extension connected"},
	}
	r := newTestRouter(dispatcher, &fakeTerminal{}, &fakePeers{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/browser/getDom", strings.NewReader(`{}`)))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["error"] != "No browser extension connected" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestInvokeUnknownActionReturns404(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	r := newTestRouter(dispatcher, &fakeTerminal{}, &fakePeers{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/browser/selfDestruct", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if dispatcher.lastAction != "" {
		t.Error("unknown action reached the dispatcher")
	}
}

func TestListCalls(t *testing.T) {
	history := &fakeHistory{
		records: []*model.CallRecord{
			{ID: "a", Action: "getDom", Success: true},
			{ID: "b", Action: "getUrl", Success: false, Error: "Request timed out"},
		},
	}
	r := newTestRouter(&fakeDispatcher{}, &fakeTerminal{}, &fakePeers{}, history)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/calls", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Calls []*model.CallRecord `json:"calls"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if len(body.Calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(body.Calls))
	}
	if body.Calls[1].Error != "Request timed out" {
		t.Errorf("second call error = %q", body.Calls[1].Error)
	}
}

func TestListCallsInvalidLimit(t *testing.T) {
	r := newTestRouter(&fakeDispatcher{}, &fakeTerminal{}, &fakePeers{}, &fakeHistory{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/calls?limit=banana", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListCallsWithoutHistory(t *testing.T) {
	r := newTestRouter(&fakeDispatcher{}, &fakeTerminal{}, &fakePeers{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/calls", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"calls":[]`) {
		t.Errorf("body = %s, want empty calls list", w.Body.String())
	}
}
