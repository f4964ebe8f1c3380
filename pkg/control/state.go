// Package control tracks the lifecycle of the adapter daemon.
package control

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Phase is a lifecycle phase of the daemon.
type Phase int32

const (
	PhaseStarting Phase = iota
	PhaseReady
	PhaseBusy
	PhaseDraining
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseReady:
		return "ready"
	case PhaseBusy:
		return "busy"
	case PhaseDraining:
		return "draining"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// State tracks the runtime state of the daemon and its open response streams.
type State struct {
	phase         atomic.Int32
	startTime     time.Time
	activeStreams atomic.Int32
	identity      string

	mu       sync.RWMutex
	metadata map[string]string
}

// Status is a point-in-time copy of State.
type Status struct {
	Identity      string
	Phase         Phase
	Uptime        time.Duration
	ActiveStreams int32
	Metadata      map[string]string
}

// NewState creates a new State in the starting phase.
func NewState(identity string) *State {
	s := &State{
		startTime: time.Now(),
		identity:  identity,
		metadata:  make(map[string]string),
	}
	s.phase.Store(int32(PhaseStarting))
	return s
}

// SetReady transitions to the ready phase.
func (s *State) SetReady() {
	s.phase.Store(int32(PhaseReady))
}

// SetDraining transitions to the draining phase. New streams are refused.
func (s *State) SetDraining() {
	s.phase.Store(int32(PhaseDraining))
}

// SetStopped transitions to the stopped phase.
func (s *State) SetStopped() {
	s.phase.Store(int32(PhaseStopped))
}

// BeginStream registers an open response stream. It returns false, without
// registering, once the daemon is draining or stopped.
//
// The stream is counted before the phase is checked, so a stream accepted
// concurrently with SetDraining is always visible to ActiveStreams.
func (s *State) BeginStream() bool {
	s.activeStreams.Add(1)
	if !s.Accepting() {
		s.activeStreams.Add(-1)
		return false
	}
	s.phase.CompareAndSwap(int32(PhaseReady), int32(PhaseBusy))
	return true
}

// EndStream unregisters a stream and returns to ready when none remain.
func (s *State) EndStream() {
	if s.activeStreams.Add(-1) == 0 {
		s.phase.CompareAndSwap(int32(PhaseBusy), int32(PhaseReady))
	}
}

// Accepting reports whether new streams may start.
func (s *State) Accepting() bool {
	switch s.Phase() {
	case PhaseDraining, PhaseStopped:
		return false
	default:
		return true
	}
}

// Phase returns the current lifecycle phase.
func (s *State) Phase() Phase {
	return Phase(s.phase.Load())
}

// ActiveStreams returns the number of open response streams.
func (s *State) ActiveStreams() int32 {
	return s.activeStreams.Load()
}

// Uptime returns the time since the state was created.
func (s *State) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Identity returns the daemon identity.
func (s *State) Identity() string {
	return s.identity
}

// SetMetadata sets a metadata key-value pair.
func (s *State) SetMetadata(key, value string) {
	s.mu.Lock()
	s.metadata[key] = value
	s.mu.Unlock()
}

// Metadata returns a copy of the metadata map.
func (s *State) Metadata() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.metadata)
}

// Status returns a snapshot of the state.
func (s *State) Status() Status {
	return Status{
		Identity:      s.identity,
		Phase:         s.Phase(),
		Uptime:        s.Uptime(),
		ActiveStreams: s.ActiveStreams(),
		Metadata:      s.Metadata(),
	}
}

// LogValue implements slog.LogValuer.
func (st Status) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("identity", st.Identity),
		slog.String("phase", st.Phase.String()),
		slog.Duration("uptime", st.Uptime.Round(time.Second)),
		slog.Int("active_streams", int(st.ActiveStreams)),
	}
	for _, key := range slices.Sorted(maps.Keys(st.Metadata)) {
		attrs = append(attrs, slog.String(key, st.Metadata[key]))
	}
	return slog.GroupValue(attrs...)
}
