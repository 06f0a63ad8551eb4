package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"slidecast/internal/logging"
	"slidecast/internal/pipeline"
	"slidecast/internal/testsupport"
)

func newTestLoop(t *testing.T) *Loop {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.SourceDir, 0o755); err != nil {
		t.Fatalf("mkdir source: %v", err)
	}
	pipe := pipeline.NewDefault(cfg, logging.NewNop(), nil)
	return New(cfg, logging.NewNop(), pipe, "")
}

func TestNotifyCoalesces(t *testing.T) {
	loop := newTestLoop(t)
	for i := 0; i < 10; i++ {
		loop.Notify()
	}
	if pending := len(loop.kick); pending != 1 {
		t.Fatalf("pending follow-ups = %d, want exactly 1", pending)
	}
}

func TestSnapshotDetectsSourceChanges(t *testing.T) {
	loop := newTestLoop(t)
	before := loop.snapshot()

	path := filepath.Join(loop.cfg.Paths.SourceDir, "new.jpg")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	after := loop.snapshot()
	if len(after) != len(before)+1 {
		t.Fatalf("snapshot did not pick up the new file")
	}

	// Content changes surface through size and mtime.
	testsupport.TouchLater(t, path)
	bumped := loop.snapshot()
	if bumped[path] == after[path] {
		t.Fatalf("snapshot fingerprint did not change after touch")
	}
}

func TestSnapshotTracksAudioTracks(t *testing.T) {
	loop := newTestLoop(t)
	track := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(track, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	loop.cfg.Audio.Tracks = []string{track}

	snapshot := loop.snapshot()
	if _, ok := snapshot[track]; !ok {
		t.Fatalf("configured audio track missing from snapshot")
	}
}

func TestStateStartsIdle(t *testing.T) {
	loop := newTestLoop(t)
	if loop.State() != StateIdle {
		t.Fatalf("initial state = %q, want idle", loop.State())
	}
}

func TestStateFollowsPipelinePhases(t *testing.T) {
	for _, tc := range []struct {
		phase pipeline.Phase
		want  State
	}{
		{pipeline.PhaseResolving, StateResolving},
		{pipeline.PhaseRendering, StateRendering},
		{pipeline.PhaseAssembling, StateAssembling},
	} {
		if got := stateForPhase(tc.phase); got != tc.want {
			t.Fatalf("state for %q = %q, want %q", tc.phase, got, tc.want)
		}
	}
}

func TestRebuildLimiterConfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watch.RebuildsPerMinute = 30
	pipe := pipeline.NewDefault(cfg, logging.NewNop(), nil)
	loop := New(cfg, logging.NewNop(), pipe, "")

	// 30 rebuilds per minute is one every two seconds.
	interval := time.Duration(float64(time.Second) / float64(loop.limiter.Limit()))
	if interval != 2*time.Second {
		t.Fatalf("limiter interval = %v, want 2s", interval)
	}
}
