// Package watch re-runs the pipeline when the source directory, the
// configuration file, or a configured audio track changes. Exactly one
// pipeline run is active at a time; changes arriving mid-run coalesce into
// a single follow-up run.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/time/rate"

	"slidecast/internal/config"
	"slidecast/internal/logging"
	"slidecast/internal/pipeline"
)

// State is the loop's externally visible position in its cycle.
type State string

const (
	StateIdle       State = "idle"
	StateResolving  State = "resolving"
	StateRendering  State = "rendering"
	StateAssembling State = "assembling"
	StateFailed     State = "failed"
)

// Loop polls for changes and serializes pipeline runs.
type Loop struct {
	cfg        *config.Config
	logger     *slog.Logger
	pipe       *pipeline.Pipeline
	configPath string

	mu    sync.Mutex
	state State

	// kick has capacity one: any number of changes detected while a run is
	// in flight collapse into a single queued follow-up.
	kick chan struct{}

	limiter *rate.Limiter
}

// New builds a Loop. configPath, when non-empty, is watched alongside the
// source directory and audio tracks.
func New(cfg *config.Config, logger *slog.Logger, pipe *pipeline.Pipeline, configPath string) *Loop {
	perMinute := cfg.Watch.RebuildsPerMinute
	if perMinute < 1 {
		perMinute = 1
	}
	loop := &Loop{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "watch"),
		pipe:       pipe,
		configPath: configPath,
		state:      StateIdle,
		kick:       make(chan struct{}, 1),
		limiter:    rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1),
	}
	pipe.SetPhaseHook(func(phase pipeline.Phase) {
		loop.setState(stateForPhase(phase))
	})
	return loop
}

func stateForPhase(phase pipeline.Phase) State {
	switch phase {
	case pipeline.PhaseResolving:
		return StateResolving
	case pipeline.PhaseRendering:
		return StateRendering
	case pipeline.PhaseAssembling:
		return StateAssembling
	default:
		return StateIdle
	}
}

// State returns the loop's current state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loop) setState(state State) {
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
}

// Notify queues a follow-up run. Repeated calls while one is already queued
// are absorbed.
func (l *Loop) Notify() {
	select {
	case l.kick <- struct{}{}:
	default:
	}
}

// Run watches until ctx is cancelled. It takes an exclusive lock file under
// the cache directory so two watchers never race over the cache and output
// paths, runs the pipeline once immediately, then re-runs on every detected
// change. A failed cycle logs, passes through StateFailed, and returns to
// idle; the loop never exits on a run error.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	lockPath := filepath.Join(l.cfg.Paths.CacheDir, "watch.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire watch lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another watcher holds %s", lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			l.logger.Warn("release watch lock", logging.Error(err))
		}
	}()

	snapshot := l.snapshot()
	l.runOnce(ctx, "watch-start")

	interval := time.Duration(l.cfg.Watch.PollInterval) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.kick:
			snapshot = l.snapshot()
			l.runOnce(ctx, "change")
		case <-ticker.C:
			current := l.snapshot()
			if maps.Equal(snapshot, current) {
				continue
			}
			snapshot = current
			l.Notify()
		}
	}
}

// runOnce executes one rate-limited pipeline run.
func (l *Loop) runOnce(ctx context.Context, trigger string) {
	if err := l.limiter.Wait(ctx); err != nil {
		return
	}

	outcome, err := l.pipe.Run(ctx, trigger, false)
	switch {
	case err != nil:
		l.setState(StateFailed)
		l.logger.Error("watch cycle failed", logging.Error(err))
	case outcome.Partial():
		l.logger.Warn("watch cycle completed with failed slides",
			logging.Int("failed", len(outcome.Failures)),
		)
	default:
		l.logger.Info("watch cycle complete", logging.String("summary", outcome.Summary()))
	}
	l.setState(StateIdle)
}

// snapshot fingerprints everything that should trigger a rebuild: source
// directory entries, the config file, and configured audio tracks.
func (l *Loop) snapshot() map[string]string {
	fingerprints := make(map[string]string)

	if entries, err := os.ReadDir(l.cfg.Paths.SourceDir); err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			path := filepath.Join(l.cfg.Paths.SourceDir, entry.Name())
			fingerprints[path] = fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano())
		}
	}

	extra := append([]string{l.configPath}, l.cfg.Audio.Tracks...)
	for _, path := range extra {
		if path == "" {
			continue
		}
		if info, err := os.Stat(path); err == nil {
			fingerprints[path] = fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano())
		}
	}
	return fingerprints
}
