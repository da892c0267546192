// Package recorder keeps a rotating JSONL trace of what the bot did to
// which item, for post-hoc review of a session.
package recorder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	MaxRotatedFiles = 3
	TraceDir        = "data/traces"
)

// Event is a single record in the flight recorder.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Type      string    `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Platform  string    `json:"platform,omitempty"`
	ItemID    string    `json:"item_id,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Event types written by the orchestrator.
const (
	EventCycleStart = "cycle_start"
	EventCycleEnd   = "cycle_end"
	EventSkip       = "skip_replied"
	EventReply      = "reply"
	EventFailure    = "failure"
	EventAbort      = "abort"
)

// Recorder manages rotating trace files for one run.
type Recorder struct {
	mu       sync.Mutex
	file     *os.File
	encoder  *json.Encoder
	basePath string
	runID    string
	platform string
}

// NewRecorder creates a recorder instance and ensures the directory
// exists.
func NewRecorder(basePath string) (*Recorder, error) {
	if basePath == "" {
		basePath = TraceDir
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, err
	}
	return &Recorder{basePath: basePath}, nil
}

// Start begins a new trace for the run, rotating old files so only the
// last few sessions are kept.
func (r *Recorder) Start(runID, platform string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		_ = r.file.Close()
		r.file = nil
	}

	if err := r.rotate(); err != nil {
		return fmt.Errorf("rotate traces: %w", err)
	}

	filename := fmt.Sprintf("trace_%s_%d.jsonl", platform, time.Now().UnixMilli())
	path := filepath.Join(r.basePath, filename)
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	r.file = f
	r.encoder = json.NewEncoder(f)
	r.runID = runID
	r.platform = platform
	return nil
}

// Log writes an event to the current trace. A recorder that was never
// started (trace disabled) silently drops events.
func (r *Recorder) Log(eventType, itemID, outcome, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encoder == nil {
		return
	}

	_ = r.encoder.Encode(Event{
		Timestamp: time.Now(),
		Type:      eventType,
		RunID:     r.runID,
		Platform:  r.platform,
		ItemID:    itemID,
		Outcome:   outcome,
		Detail:    detail,
	})
}

// rotate keeps only the newest MaxRotatedFiles.
func (r *Recorder) rotate() error {
	entries, err := os.ReadDir(r.basePath)
	if err != nil {
		return err
	}

	var traces []struct {
		Name string
		Time time.Time
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		traces = append(traces, struct {
			Name string
			Time time.Time
		}{e.Name(), info.ModTime()})
	}

	sort.Slice(traces, func(i, j int) bool {
		return traces[i].Time.After(traces[j].Time)
	})

	if len(traces) >= MaxRotatedFiles {
		keep := MaxRotatedFiles - 1
		for i := keep; i < len(traces); i++ {
			path := filepath.Join(r.basePath, traces[i].Name)
			_ = os.Remove(path)
		}
	}
	return nil
}

// Close finishes the current trace.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		r.encoder = nil
		return err
	}
	return nil
}
