// Package pipeline orchestrates one full build: resolve the source
// directory, render stale segments, and assemble the outputs. A run is a
// pure function of (source directory, config, cache); the watch loop and
// CLI both invoke the same entry point.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"slidecast/internal/assemble"
	"slidecast/internal/config"
	"slidecast/internal/faults"
	"slidecast/internal/ffmpeg"
	"slidecast/internal/logging"
	"slidecast/internal/resolve"
	"slidecast/internal/runlog"
	"slidecast/internal/segment"
)

// Outcome summarizes one run.
type Outcome struct {
	RunID    string
	Slides   int
	Rendered int
	Reused   int
	Failures []segment.Failure
	Results  []assemble.Result
}

// Partial reports whether some slides failed while the rest of the batch
// completed.
func (o *Outcome) Partial() bool { return len(o.Failures) > 0 }

// Summary renders a one-line human summary of the run.
func (o *Outcome) Summary() string {
	outputs := make([]string, 0, len(o.Results))
	for _, result := range o.Results {
		outputs = append(outputs, result.FinalPath)
	}
	return fmt.Sprintf("%d slides (%d rendered, %d reused, %d failed), outputs: %v",
		o.Slides, o.Rendered, o.Reused, len(o.Failures), outputs)
}

// Phase identifies the pipeline stage currently executing.
type Phase string

const (
	PhaseResolving  Phase = "resolving"
	PhaseRendering  Phase = "rendering"
	PhaseAssembling Phase = "assembling"
)

// Pipeline wires the resolver, renderer, and assembler together.
type Pipeline struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *runlog.Store
	renderer  *segment.Renderer
	assembler *assemble.Assembler
	onPhase   func(Phase)
	limit     int
}

// SetPhaseHook registers a callback invoked as each stage starts. The watch
// loop uses it to expose its state machine.
func (p *Pipeline) SetPhaseHook(hook func(Phase)) { p.onPhase = hook }

// SetSlideLimit restricts runs to the first n resolved slides. Zero means no
// limit. Intended for quick test builds over a prefix of the sequence.
func (p *Pipeline) SetSlideLimit(n int) { p.limit = n }

func (p *Pipeline) enterPhase(phase Phase) {
	if p.onPhase != nil {
		p.onPhase(phase)
	}
}

// New builds a Pipeline over an explicit encoder and prober; tests inject
// fakes here.
func New(cfg *config.Config, logger *slog.Logger, store *runlog.Store, encoder ffmpeg.Encoder, prober *ffmpeg.Prober) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		store:     store,
		renderer:  segment.NewRenderer(cfg, encoder, prober, logger),
		assembler: assemble.NewAssembler(cfg, encoder, prober, logger),
	}
}

// NewDefault builds a Pipeline backed by the real ffmpeg binaries.
func NewDefault(cfg *config.Config, logger *slog.Logger, store *runlog.Store) *Pipeline {
	runner := ffmpeg.NewRunner(logger)
	prober := ffmpeg.NewProber(runner, cfg.FFprobeBinary())
	return New(cfg, logger, store, ffmpeg.NewTranscoder(runner, cfg), prober)
}

// Run executes one full build. Per-slide encoder failures leave a partial
// outcome rather than an error; resolution and assembly failures are
// returned directly. The journal, when present, records the run either way.
func (p *Pipeline) Run(ctx context.Context, trigger string, force bool) (*Outcome, error) {
	if err := p.cfg.EnsureDirectories(); err != nil {
		return nil, faults.Wrap(faults.ErrResolution, "pipeline", "prepare directories", err)
	}

	journal := p.beginJournal(ctx, trigger)
	outcome := &Outcome{}
	if journal != nil {
		outcome.RunID = journal.ID
	}

	p.enterPhase(PhaseResolving)
	slides, err := resolve.Resolve(p.cfg.Paths.SourceDir, p.cfg, p.logger)
	if err != nil {
		p.finishJournal(ctx, journal, outcome, err)
		return nil, err
	}
	if p.limit > 0 && len(slides) > p.limit {
		slides = slides[:p.limit]
	}
	outcome.Slides = len(slides)
	p.logger.Info("source resolved",
		logging.Int("slides", len(slides)),
		logging.String("source", p.cfg.Paths.SourceDir),
	)

	p.enterPhase(PhaseRendering)
	segments, failures, err := p.renderer.RenderAll(ctx, slides, force)
	if err != nil {
		p.finishJournal(ctx, journal, outcome, err)
		return nil, err
	}
	outcome.Failures = failures
	for _, seg := range segments {
		if seg.Reused {
			outcome.Reused++
		} else {
			outcome.Rendered++
		}
	}
	p.recordFailures(ctx, journal, failures)

	p.enterPhase(PhaseAssembling)
	results, err := p.assembler.Assemble(ctx, slides, segments)
	if err != nil {
		p.finishJournal(ctx, journal, outcome, err)
		return nil, err
	}
	outcome.Results = results

	p.finishJournal(ctx, journal, outcome, nil)
	p.logger.Info("run complete", logging.String("summary", outcome.Summary()))
	return outcome, nil
}

func (p *Pipeline) beginJournal(ctx context.Context, trigger string) *runlog.Run {
	if p.store == nil {
		return nil
	}
	run, err := p.store.Begin(ctx, trigger)
	if err != nil {
		p.logger.Warn("journal unavailable for this run", logging.Error(err))
		return nil
	}
	return run
}

func (p *Pipeline) recordFailures(ctx context.Context, journal *runlog.Run, failures []segment.Failure) {
	if journal == nil {
		return
	}
	for _, failure := range failures {
		if err := p.store.RecordFailure(ctx, journal.ID, failure.Ordinal, failure.Sources, failure.Err.Error()); err != nil {
			p.logger.Warn("could not journal slide failure", logging.Error(err))
		}
	}
}

func (p *Pipeline) finishJournal(ctx context.Context, journal *runlog.Run, outcome *Outcome, runErr error) {
	if journal == nil {
		return
	}
	journal.Slides = outcome.Slides
	journal.Rendered = outcome.Rendered
	journal.Reused = outcome.Reused
	journal.Failed = len(outcome.Failures)
	if len(outcome.Results) > 0 {
		journal.Output = outcome.Results[len(outcome.Results)-1].FinalPath
	}

	switch {
	case runErr != nil:
		journal.Status = runlog.StatusFailed
		journal.Error = runErr.Error()
	case outcome.Partial():
		journal.Status = runlog.StatusPartial
	default:
		journal.Status = runlog.StatusDone
	}

	if err := p.store.Finish(ctx, journal); err != nil {
		p.logger.Warn("could not journal run result", logging.Error(err))
	}
}
