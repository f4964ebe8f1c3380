package control

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewState(t *testing.T) {
	s := NewState("ollama-adapter/test")

	if s.Phase() != PhaseStarting {
		t.Errorf("expected starting phase, got %v", s.Phase())
	}
	if s.Identity() != "ollama-adapter/test" {
		t.Errorf("expected identity 'ollama-adapter/test', got %v", s.Identity())
	}
	if s.ActiveStreams() != 0 {
		t.Errorf("expected 0 active streams, got %v", s.ActiveStreams())
	}
}

func TestPhaseTransitions(t *testing.T) {
	s := NewState("test")

	s.SetReady()
	if s.Phase() != PhaseReady {
		t.Errorf("expected ready phase, got %v", s.Phase())
	}

	s.SetDraining()
	if s.Phase() != PhaseDraining {
		t.Errorf("expected draining phase, got %v", s.Phase())
	}

	s.SetStopped()
	if s.Phase() != PhaseStopped {
		t.Errorf("expected stopped phase, got %v", s.Phase())
	}
}

func TestStreamTracking(t *testing.T) {
	s := NewState("test")
	s.SetReady()

	// ready -> busy
	if !s.BeginStream() {
		t.Fatal("expected stream to be accepted")
	}
	if s.ActiveStreams() != 1 {
		t.Errorf("expected 1 active stream, got %v", s.ActiveStreams())
	}
	if s.Phase() != PhaseBusy {
		t.Errorf("expected busy phase, got %v", s.Phase())
	}

	s.BeginStream()
	s.EndStream()
	if s.Phase() != PhaseBusy {
		t.Errorf("expected busy phase with one stream left, got %v", s.Phase())
	}

	// busy -> ready
	s.EndStream()
	if s.ActiveStreams() != 0 {
		t.Errorf("expected 0 active streams, got %v", s.ActiveStreams())
	}
	if s.Phase() != PhaseReady {
		t.Errorf("expected ready phase, got %v", s.Phase())
	}
}

func TestBeginStreamWhileDraining(t *testing.T) {
	s := NewState("test")
	s.SetReady()
	s.BeginStream()
	s.SetDraining()

	if s.BeginStream() {
		t.Error("expected stream to be refused while draining")
	}
	if s.ActiveStreams() != 1 {
		t.Errorf("refused stream must not be counted, got %v", s.ActiveStreams())
	}

	s.EndStream()
	if s.Phase() != PhaseDraining {
		t.Errorf("ending the last stream must not leave draining, got %v", s.Phase())
	}
}

func TestBeginStreamRacingDrain(t *testing.T) {
	s := NewState("test")
	s.SetReady()

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
		start    = make(chan struct{})
	)
	n := 200

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if s.BeginStream() {
				accepted.Add(1)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		s.SetDraining()
	}()
	close(start)
	wg.Wait()

	if s.Phase() != PhaseDraining {
		t.Fatalf("expected draining phase, got %v", s.Phase())
	}
	if got := s.ActiveStreams(); got != accepted.Load() {
		t.Errorf("expected %d active streams, got %d", accepted.Load(), got)
	}

	before := s.ActiveStreams()
	if s.BeginStream() {
		t.Error("expected stream to be refused after draining")
	}
	if s.ActiveStreams() != before {
		t.Errorf("refused stream changed the count: %d -> %d", before, s.ActiveStreams())
	}
}

func TestStreamTrackingConcurrent(t *testing.T) {
	s := NewState("test")
	s.SetReady()

	var wg sync.WaitGroup
	n := 100

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.BeginStream()
		}()
	}
	wg.Wait()

	if s.ActiveStreams() != int32(n) {
		t.Errorf("expected %d active streams, got %v", n, s.ActiveStreams())
	}

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.EndStream()
		}()
	}
	wg.Wait()

	if s.ActiveStreams() != 0 {
		t.Errorf("expected 0 active streams, got %v", s.ActiveStreams())
	}
	if s.Phase() != PhaseReady {
		t.Errorf("expected ready phase after all streams end, got %v", s.Phase())
	}
}

func TestMetadata(t *testing.T) {
	s := NewState("test")

	s.SetMetadata("model", "qwen3:8b")
	s.SetMetadata("base_url", "http://localhost:11434/v1")

	meta := s.Metadata()
	if meta["model"] != "qwen3:8b" {
		t.Errorf("expected model 'qwen3:8b', got %v", meta["model"])
	}

	// Verify we get a copy, not the original
	meta["model"] = "modified"
	if s.Metadata()["model"] != "qwen3:8b" {
		t.Errorf("metadata should be a copy, got modified value")
	}
}

func TestStatus(t *testing.T) {
	s := NewState("test")
	s.SetReady()
	s.BeginStream()
	s.SetMetadata("provider", "ollama")

	st := s.Status()
	if st.Identity != "test" || st.Phase != PhaseBusy || st.ActiveStreams != 1 {
		t.Errorf("unexpected status: %+v", st)
	}
	if st.Uptime < 0 {
		t.Errorf("uptime should be non-negative, got %v", st.Uptime)
	}
	if st.Metadata["provider"] != "ollama" {
		t.Errorf("expected provider metadata, got %v", st.Metadata)
	}
}

func TestStatusLogValue(t *testing.T) {
	s := NewState("test")
	s.SetReady()
	s.BeginStream()
	s.SetMetadata("provider", "ollama")
	s.SetMetadata("model", "qwen3")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("ready", "status", s.Status())

	out := buf.String()
	for _, want := range []string{
		"status.identity=test status.phase=busy status.uptime=",
		"status.active_streams=1 status.model=qwen3 status.provider=ollama\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log line %q", want, out)
		}
	}
}

func TestPhaseString(t *testing.T) {
	tests := map[Phase]string{
		PhaseStarting: "starting",
		PhaseReady:    "ready",
		PhaseBusy:     "busy",
		PhaseDraining: "draining",
		PhaseStopped:  "stopped",
		Phase(42):     "unknown",
	}
	for phase, want := range tests {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
