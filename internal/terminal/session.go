// Package terminal owns the single interactive shell session exposed to
// UI clients over the socket hub.
package terminal

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/browser-bridge/backend/internal/buffer"
	"github.com/browser-bridge/backend/internal/logger"
	"github.com/browser-bridge/backend/internal/model"
)

const (
	// DefaultCols is the initial terminal width.
	DefaultCols = 80

	// DefaultRows is the initial terminal height.
	DefaultRows = 24

	// historySize bounds the output history kept for reconnecting clients.
	historySize = 64 * 1024

	readBufferSize = 4096
)

// Listener receives session lifecycle events. Callbacks are invoked from
// the session's own goroutines and must not call back into the session
// synchronously except for Start.
type Listener interface {
	// OnReady fires after the shell has been spawned.
	OnReady()

	// OnData fires for each chunk of shell output, in order.
	OnData(data []byte)

	// OnExit fires when the shell exits, with its exit code and the
	// terminating signal name if it was signaled.
	OnExit(exitCode int, signal string)

	// OnError fires when the shell cannot be spawned.
	OnError(err error)
}

// Options configures a session.
type Options struct {
	// Shell is the command to spawn. Defaults to /bin/bash.
	Shell string

	// Workdir is the shell's working directory.
	Workdir string

	// Env holds extra environment variables for the shell.
	Env map[string]string

	// TranscriptDir enables asciinema transcripts when non-empty.
	TranscriptDir string
}

// Session manages one interactive shell: idle until Start, running until
// the shell exits or is killed, then idle again. Dimensions persist across
// restarts.
type Session struct {
	opts     Options
	listener Listener

	mu         sync.Mutex
	cmd        *exec.Cmd
	ptmx       *os.File
	transcript *logger.Transcript
	running    bool
	cols       uint16
	rows       uint16

	history *buffer.RingBuffer
}

// NewSession creates an idle session with default dimensions.
func NewSession(opts Options, listener Listener) *Session {
	if opts.Shell == "" {
		opts.Shell = "/bin/bash"
	}
	return &Session{
		opts:     opts,
		listener: listener,
		cols:     DefaultCols,
		rows:     DefaultRows,
		history:  buffer.NewRingBuffer(historySize),
	}
}

// Start spawns the shell. Starting a session that is already running is a
// logged no-op.
func (s *Session) Start() error {
	s.mu.Lock()

	if s.running {
		s.mu.Unlock()
		log.Printf("Terminal already running, ignoring start")
		return nil
	}

	cmd := exec.Command(s.opts.Shell)
	if s.opts.Workdir != "" {
		cmd.Dir = s.opts.Workdir
	}
	env := os.Environ()
	for k, v := range s.opts.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = env

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: s.rows, Cols: s.cols})
	if err != nil {
		s.mu.Unlock()
		err = fmt.Errorf("failed to start terminal: %w", err)
		log.Printf("%v", err)
		if s.listener != nil {
			s.listener.OnError(err)
		}
		return err
	}

	s.cmd = cmd
	s.ptmx = ptmx
	s.transcript = s.openTranscript()
	s.running = true
	s.mu.Unlock()

	go s.readLoop(ptmx)
	go s.waitLoop(cmd, ptmx)

	log.Printf("Terminal started: %s (pid %d)", s.opts.Shell, cmd.Process.Pid)
	if s.listener != nil {
		s.listener.OnReady()
	}
	return nil
}

// openTranscript creates a timestamped transcript file, or returns nil when
// transcripts are disabled or the file cannot be created. Caller holds s.mu.
func (s *Session) openTranscript() *logger.Transcript {
	if s.opts.TranscriptDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.opts.TranscriptDir, 0o755); err != nil {
		log.Printf("Failed to create transcript dir: %v", err)
		return nil
	}

	name := fmt.Sprintf("terminal-%s.cast", time.Now().Format("20060102-150405"))
	transcript, err := logger.NewTranscript(filepath.Join(s.opts.TranscriptDir, name), int(s.cols), int(s.rows))
	if err != nil {
		log.Printf("Failed to create transcript: %v", err)
		return nil
	}
	return transcript
}

// Write sends input to the shell. Writing while idle is a logged no-op.
func (s *Session) Write(data []byte) error {
	s.mu.Lock()
	ptmx := s.ptmx
	transcript := s.transcript
	running := s.running
	s.mu.Unlock()

	if !running {
		log.Printf("Dropping terminal input: %v", model.ErrTerminalNotRunning)
		return nil
	}

	if transcript != nil {
		transcript.WriteInput(data)
	}

	if _, err := ptmx.Write(data); err != nil {
		return fmt.Errorf("failed to write to terminal: %w", err)
	}
	return nil
}

// Resize updates the terminal dimensions. Non-positive dimensions are
// ignored. New dimensions are stored regardless of state and applied to the
// live shell only while running, so they survive restarts.
func (s *Session) Resize(cols, rows int) error {
	if cols <= 0 || rows <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cols = uint16(cols)
	s.rows = uint16(rows)

	if !s.running {
		return nil
	}

	if err := pty.Setsize(s.ptmx, &pty.Winsize{Rows: s.rows, Cols: s.cols}); err != nil {
		return fmt.Errorf("failed to resize terminal: %w", err)
	}
	return nil
}

// Kill terminates the shell. The exit is observed and reported through the
// normal exit path. Killing an idle session is a no-op.
func (s *Session) Kill() error {
	s.mu.Lock()
	cmd := s.cmd
	running := s.running
	s.mu.Unlock()

	if !running {
		return nil
	}

	if err := cmd.Process.Kill(); err != nil {
		return fmt.Errorf("failed to kill terminal: %w", err)
	}
	return nil
}

// Running reports whether the shell is currently live.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Size returns the current terminal dimensions.
func (s *Session) Size() (cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.cols), int(s.rows)
}

// History returns a copy of the buffered shell output.
func (s *Session) History() []byte {
	return s.history.ReadAll()
}

// readLoop pumps shell output to the history buffer, the transcript and
// the listener until the pty closes.
func (s *Session) readLoop(ptmx *os.File) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			s.history.Write(chunk)

			s.mu.Lock()
			transcript := s.transcript
			s.mu.Unlock()
			if transcript != nil {
				transcript.WriteOutput(chunk)
			}

			if s.listener != nil {
				s.listener.OnData(chunk)
			}
		}
		if err != nil {
			// EIO is the normal end of a pty when the child exits.
			return
		}
	}
}

// waitLoop reaps the shell, returns the session to idle and reports the
// exit to the listener.
func (s *Session) waitLoop(cmd *exec.Cmd, ptmx *os.File) {
	err := cmd.Wait()

	exitCode := 0
	signal := ""
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
				signal = status.Signal().String()
			}
		} else {
			exitCode = -1
		}
	}

	ptmx.Close()

	s.mu.Lock()
	transcript := s.transcript
	s.cmd = nil
	s.ptmx = nil
	s.transcript = nil
	s.running = false
	s.mu.Unlock()

	if transcript != nil {
		transcript.Close()
	}

	log.Printf("Terminal exited with code %d", exitCode)
	if s.listener != nil {
		s.listener.OnExit(exitCode, signal)
	}
}
