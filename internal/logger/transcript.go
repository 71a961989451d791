// Package logger records terminal sessions as asciinema v2 transcripts.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Header is the asciinema v2 recording header.
type Header struct {
	Version   int               `json:"version"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Timestamp int64             `json:"timestamp"`
	Env       map[string]string `json:"env,omitempty"`
}

// Event is a single asciinema v2 event, serialized as
// [time_offset, event_type, data].
type Event struct {
	TimeOffset float64
	EventType  string // "o" for output, "i" for input
	Data       string
}

// MarshalJSON emits the three-element array form.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.TimeOffset, e.EventType, e.Data})
}

// Transcript writes a terminal recording in asciinema v2 JSON-Lines format.
type Transcript struct {
	writer    io.Writer
	file      *os.File // only set if we own the file
	startTime time.Time
	mu        sync.Mutex
}

// NewTranscript creates a transcript file at the given path and writes the
// v2 header with the given terminal dimensions.
func NewTranscript(filePath string, cols, rows int) (*Transcript, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcript file: %w", err)
	}

	t := &Transcript{
		writer:    file,
		file:      file,
		startTime: time.Now(),
	}
	if err := t.writeHeader(cols, rows); err != nil {
		file.Close()
		return nil, err
	}
	return t, nil
}

// NewTranscriptWithWriter creates a transcript writing to w. Useful for tests.
func NewTranscriptWithWriter(w io.Writer, cols, rows int) (*Transcript, error) {
	t := &Transcript{
		writer:    w,
		startTime: time.Now(),
	}
	if err := t.writeHeader(cols, rows); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Transcript) writeHeader(cols, rows int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	header := Header{
		Version:   2,
		Width:     cols,
		Height:    rows,
		Timestamp: t.startTime.Unix(),
	}

	data, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	if _, err := t.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	return nil
}

// WriteOutput appends an output event ("o").
func (t *Transcript) WriteOutput(data []byte) error {
	return t.writeEvent("o", data)
}

// WriteInput appends an input event ("i").
func (t *Transcript) WriteInput(data []byte) error {
	return t.writeEvent("i", data)
}

func (t *Transcript) writeEvent(eventType string, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	event := Event{
		TimeOffset: time.Since(t.startTime).Seconds(),
		EventType:  eventType,
		Data:       string(data),
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := t.writer.Write(append(eventData, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// Close closes the transcript file if this transcript owns one.
func (t *Transcript) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file != nil {
		return t.file.Close()
	}
	return nil
}

// StartTime returns when the recording started.
func (t *Transcript) StartTime() time.Time {
	return t.startTime
}
