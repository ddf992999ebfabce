package session

import (
	"context"
	"errors"
	"sync"

	"github.com/MonsterRookie/ashalytics/internal/analysis"
	"github.com/MonsterRookie/ashalytics/internal/capture"
)

// Analyzer is the minimal interface to the external analysis service.
type Analyzer interface {
	Analyze(ctx context.Context, audio []byte, mimeType, memory string) (*analysis.TurnResult, error)
}

var (
	// ErrTurnInFlight is returned when a turn is started while a prior
	// analysis call is still outstanding.
	ErrTurnInFlight = errors.New("session: a turn is already in flight")
	// ErrDiscarded is returned when a turn's result arrived after the session
	// was reset; the result is dropped whole, never half-applied.
	ErrDiscarded = errors.New("session: turn result discarded by session reset")
)

// Options configures per-session policy.
type Options struct {
	// Policy decides whether an override survives the start of a new turn.
	Policy OverridePolicy
	// MemoryLimit caps memory at the last N turns. Zero means unbounded. The
	// limit is fixed for the life of the session.
	MemoryLimit int
	// OnUpdate, when set, is invoked with a fresh snapshot after every state
	// change (successful turn, override, reset). Called without the session
	// lock held.
	OnUpdate func(Snapshot)
}

// Session owns all mutable conversation state for one logged-in interaction:
// the memory block, the turn history, the statistics and the triage state.
// All access is serialized through its mutex; the analysis call is the only
// suspension point and runs unlocked.
type Session struct {
	analyzer Analyzer
	policy   OverridePolicy
	memLimit int
	onUpdate func(Snapshot)

	mu      sync.Mutex
	memory  string
	history history
	stats   stats
	triage  triageState
	last    *analysis.TurnResult
	busy    bool
	epoch   uint64
}

// New constructs an idle session.
func New(a Analyzer, opts Options) *Session {
	return &Session{
		analyzer: a,
		policy:   opts.Policy,
		memLimit: opts.MemoryLimit,
		onUpdate: opts.OnUpdate,
	}
}

// Snapshot is a consistent read-only view of the session, sufficient to
// render the full dashboard state.
type Snapshot struct {
	Effective analysis.Status     `json:"effective_status"`
	AIStatus  analysis.Status     `json:"ai_status"`
	Override  analysis.Status     `json:"override_status"`
	TurnCount int                 `json:"turn_count"`
	Memory    string              `json:"memory"`
	History   []HistoryEntry      `json:"history"`
	Stats     StatsSnapshot       `json:"stats"`
	Last      *analysis.TurnResult `json:"last_result,omitempty"`
	Busy      bool                `json:"busy"`
}

// Snapshot returns the current composite state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	var last *analysis.TurnResult
	if s.last != nil {
		cp := *s.last
		last = &cp
	}
	return Snapshot{
		Effective: s.triage.Effective(),
		AIStatus:  s.triage.ai,
		Override:  s.triage.override,
		TurnCount: TurnCount(s.memory),
		Memory:    s.memory,
		History:   s.history.snapshot(),
		Stats:     s.stats.snapshot(),
		Last:      last,
		Busy:      s.busy,
	}
}

// RunTurn executes one complete capture-analyze-update cycle for a finished
// recording segment. On any failure the session is a complete no-op: memory,
// history, statistics and triage state stay exactly as they were, and the
// session returns to an idle, retryable condition.
func (s *Session) RunTurn(ctx context.Context, seg capture.Segment) (*analysis.TurnResult, error) {
	if len(seg.Data) == 0 {
		return nil, analysis.ErrNoAudio
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrTurnInFlight
	}
	s.busy = true
	if s.policy == OverrideReleasedOnCapture {
		s.triage.clearOverride()
	}
	memory := s.memory
	epoch := s.epoch
	s.mu.Unlock()

	result, err := s.analyzer.Analyze(ctx, seg.Data, seg.MimeType, memory)

	s.mu.Lock()
	s.busy = false
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.epoch != epoch {
		// The session was reset while the call was outstanding. The network
		// layer cannot cancel mid-flight, so discard here instead.
		s.mu.Unlock()
		return nil, ErrDiscarded
	}

	s.memory = capMemory(AppendTurn(s.memory, *result), s.memLimit)
	s.history.append(result.Transcription, result.Markers)
	s.stats.observe(*result)
	s.triage.observeAI(result.Status)
	s.last = result
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return result, nil
}

// Override records a human triage decision. It bypasses the analysis client
// entirely and takes precedence over the AI status, including any result
// still in flight for a turn begun before this call.
func (s *Session) Override(status analysis.Status) error {
	if _, err := analysis.ParseStatus(string(status)); err != nil {
		return err
	}
	s.mu.Lock()
	s.triage.setOverride(status)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// ClearOverride hands authority back to the AI signal.
func (s *Session) ClearOverride() {
	s.mu.Lock()
	s.triage.clearOverride()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Reset clears all conversation state. A subsequent analysis call carries
// empty memory; results of calls begun before the reset are discarded.
// Calling Reset on an already-empty session is a no-op.
func (s *Session) Reset() {
	s.mu.Lock()
	s.epoch++
	s.memory = ""
	s.history.reset()
	s.stats.reset()
	s.triage.reset()
	s.last = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Effective returns the current effective triage status.
func (s *Session) Effective() analysis.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triage.Effective()
}

func (s *Session) notify(snap Snapshot) {
	if s.onUpdate != nil {
		s.onUpdate(snap)
	}
}
