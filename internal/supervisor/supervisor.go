// Package supervisor makes sure the bridge server is running before the
// tool gateway starts issuing calls against it.
package supervisor

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/exec"
	"syscall"
	"time"
)

const (
	// DefaultPollInterval is how often health is re-checked after a spawn.
	DefaultPollInterval = 250 * time.Millisecond

	// DefaultStartTimeout bounds the wait for a spawned server to come up.
	DefaultStartTimeout = 10 * time.Second
)

// Supervisor health-checks the bridge server and spawns it detached when it
// is not answering.
type Supervisor struct {
	baseURL      string
	binary       string
	client       *http.Client
	pollInterval time.Duration
	startTimeout time.Duration
}

// New creates a supervisor for the server at baseURL, spawning binary when
// the server is down. An empty binary disables auto-start.
func New(baseURL, binary string) *Supervisor {
	return &Supervisor{
		baseURL:      baseURL,
		binary:       binary,
		client:       &http.Client{Timeout: 2 * time.Second},
		pollInterval: DefaultPollInterval,
		startTimeout: DefaultStartTimeout,
	}
}

// EnsureRunning checks the server's health endpoint and spawns the server
// detached when it is not answering, then polls until it is healthy or the
// start timeout elapses. Best effort: the gateway starts either way, so the
// outcome is logged rather than returned.
func (s *Supervisor) EnsureRunning(ctx context.Context) {
	if s.healthy(ctx) {
		log.Printf("Bridge server already running at %s", s.baseURL)
		return
	}

	if s.binary == "" {
		log.Printf("No bridge server binary configured, skipping auto-start")
		return
	}
	if _, err := os.Stat(s.binary); err != nil {
		log.Printf("Bridge server binary not found at %s, skipping auto-start", s.binary)
		return
	}

	cmd := exec.Command(s.binary)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	// New session so the server outlives the gateway process.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		log.Printf("Failed to start bridge server: %v", err)
		return
	}
	log.Printf("Started bridge server (pid %d), waiting for health", cmd.Process.Pid)
	cmd.Process.Release()

	deadline := time.Now().Add(s.startTimeout)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.healthy(ctx) {
				log.Printf("Bridge server is up at %s", s.baseURL)
				return
			}
		}
	}

	log.Printf("Bridge server did not become healthy within %s", s.startTimeout)
}

// healthy reports whether the server's health endpoint answers with 200.
func (s *Supervisor) healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
