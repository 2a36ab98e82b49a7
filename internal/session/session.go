// =============================================================================
// Diamond Metrics - Upload Sessions
// =============================================================================
//
// This module owns the row collection of each upload. It runs the ingest
// pipeline for a new file and then serializes every grid event against the
// session's state.
//
// PIPELINE:
//   1. Read the whole upload (one atomic read, size-limited)
//   2. Parse lot lines into RawRecords
//   3. Enrich records against the preset tables
//   4. Convert to grid rows and apply a Reload event
//
// CONCURRENCY:
//   Preset tables are read-only and shared by all sessions. A session's
//   state is guarded by its own mutex, so each event is fully applied
//   (including the totals) before the next one is looked at.
//
// =============================================================================

package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/diamond-metrics/internal/config"
	"github.com/ginjaninja78/diamond-metrics/internal/engine"
	"github.com/ginjaninja78/diamond-metrics/internal/enricher"
	"github.com/ginjaninja78/diamond-metrics/internal/lotparser"
	"github.com/ginjaninja78/diamond-metrics/internal/presets"
	"github.com/ginjaninja78/diamond-metrics/internal/types"
)

// Errors returned by the pipeline and the manager.
var (
	ErrNoRecords       = errors.New("no lot records found")
	ErrReadFailed      = errors.New("failed to read upload")
	ErrFileTooLarge    = errors.New("file too large")
	ErrNoFile          = errors.New("no file provided")
	ErrSessionNotFound = errors.New("session not found")
)

// =============================================================================
// PIPELINE
// =============================================================================

// Stats describes one ingest run.
type Stats struct {
	BytesRead      int           `json:"bytes_read"`
	RecordsParsed  int           `json:"records_parsed"`
	Unmatched      int           `json:"unmatched"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// Result is the outcome of running the pipeline on one file.
type Result struct {
	Records []types.RawRecord
	State   engine.State
	Stats   Stats
}

// Pipeline turns export text into grid state.
type Pipeline struct {
	parser   *lotparser.Parser
	index    *presets.Index
	maxBytes int64
}

// NewPipeline creates a pipeline. maxBytes <= 0 disables the size limit.
func NewPipeline(parser config.ParserSettings, idx *presets.Index, maxBytes int64) *Pipeline {
	return &Pipeline{
		parser:   lotparser.New(parser),
		index:    idx,
		maxBytes: maxBytes,
	}
}

// Run reads r to the end and produces the initial grid state.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) (*Result, error) {
	start := time.Now()

	data, err := p.read(r)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := p.parser.Parse(string(data))
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	rows := enricher.Enrich(records, p.index)
	state, err := engine.Apply(engine.State{}, engine.Reload{Rows: engine.FromEnriched(rows)})
	if err != nil {
		return nil, fmt.Errorf("failed to load rows: %w", err)
	}

	result := &Result{
		Records: records,
		State:   state,
		Stats: Stats{
			BytesRead:      len(data),
			RecordsParsed:  len(records),
			ProcessingTime: time.Since(start),
		},
	}
	for _, row := range rows {
		if row.SieveSize == types.Sentinel || !row.AvgWeight.IsPresent() {
			result.Stats.Unmatched++
		}
	}
	return result, nil
}

func (p *Pipeline) read(r io.Reader) ([]byte, error) {
	if p.maxBytes > 0 {
		r = io.LimitReader(r, p.maxBytes+1)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}
	if p.maxBytes > 0 && int64(buf.Len()) > p.maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, p.maxBytes)
	}
	return buf.Bytes(), nil
}

// =============================================================================
// SESSION
// =============================================================================

// Session is one uploaded file and its grid state.
type Session struct {
	ID        string
	FileName  string
	CreatedAt time.Time
	Stats     Stats

	mu       sync.Mutex
	state    engine.State
	records  []types.RawRecord
	lastUsed time.Time
}

// Apply runs one grid event against the session.
func (s *Session) Apply(ev engine.Event) (engine.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := engine.Apply(s.state, ev)
	if err != nil {
		return s.state, err
	}
	s.state = next
	return next, nil
}

// State returns the current state.
func (s *Session) State() engine.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Records returns the records parsed from the upload.
func (s *Session) Records() []types.RawRecord {
	return s.records
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastUsed)
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager keeps the live sessions in memory.
type Manager struct {
	pipeline *Pipeline
	ttl      time.Duration
	newID    func() string
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager. ttl <= 0 keeps sessions until deleted. A nil
// newID uses random UUIDs.
func NewManager(pipeline *Pipeline, ttl time.Duration, newID func() string) *Manager {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Manager{
		pipeline: pipeline,
		ttl:      ttl,
		newID:    newID,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create ingests an upload and stores the resulting session.
func (m *Manager) Create(ctx context.Context, fileName string, r io.Reader) (*Session, error) {
	result, err := m.pipeline.Run(ctx, r)
	if err != nil {
		return nil, err
	}

	now := m.now()
	s := &Session{
		ID:        m.newID(),
		FileName:  fileName,
		CreatedAt: now,
		Stats:     result.Stats,
		state:     result.State,
		records:   result.Records,
		lastUsed:  now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	slog.Info("session created",
		"session_id", s.ID,
		"file", fileName,
		"records", result.Stats.RecordsParsed,
		"unmatched", result.Stats.Unmatched,
	)
	return s, nil
}

// Get returns a live session and marks it used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	now := m.now()
	if !ok || m.expired(s, now) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.touch(now)
	return s, nil
}

// Delete discards a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (m *Manager) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return m.ttl > 0 && s.idleSince(now) > m.ttl
}
