// Package engine runs the SBLAR validation phases over a chunked submission.
//
// A run is a small state machine:
//
//	SYNTACTICAL (every chunk)
//	     -> any finding? stop
//	     -> REGISTER (uid uniqueness over the whole file, once)
//	     -> LOGICAL (every chunk)
//
// Processing is sequential. The only concurrency is a reader goroutine that
// fills a bounded channel with the next chunk while the current one is
// validated.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sblar/internal/checks"
	"sblar/internal/findings"
	"sblar/internal/frame"
	"sblar/internal/metrics"
	"sblar/internal/rules"
)

const tracerName = "sblar/engine"

// Stage is where a run ended.
type Stage string

const (
	// StageClean means no phase produced a finding.
	StageClean Stage = "clean"
	// StageSyntactical means syntactical failures stopped the run.
	StageSyntactical Stage = "syntactical_failures"
	// StageLogical means syntactical was clean and the register or logical
	// phase produced findings.
	StageLogical Stage = "logical_failures"
)

// Config tunes a run. Zero values fall back to defaults.
type Config struct {
	// Job labels metrics and logs.
	Job string
	// MaxErrors bounds detailed failures per phase; <= 0 means unbounded.
	MaxErrors int
	// ChannelBuffer is the number of chunks read ahead.
	ChannelBuffer int
	// Context parametrizes context-sensitive rules, e.g. "lei".
	Context map[string]string
	// Codes holds the reference tables by name.
	Codes map[string]checks.CodeSet
}

// Outcome summarizes a whole run.
type Outcome struct {
	Stage   Stage
	Records int
	// Phases holds the summary of every phase that ran.
	Phases    map[rules.Phase]findings.Summary
	Truncated bool
}

// Summary merges the summaries of every phase that ran.
func (o Outcome) Summary() findings.Summary {
	var s findings.Summary
	for _, p := range o.Phases {
		s.Add(p)
	}
	return s
}

// Ran reports whether phase p was executed.
func (o Outcome) Ran(p rules.Phase) bool {
	_, ok := o.Phases[p]
	return ok
}

// Engine sequences the phases of a run.
type Engine struct {
	cat    *rules.Catalog
	cfg    Config
	log    *zap.Logger
	runner *Runner
}

// New returns an engine over cat. A nil logger is replaced by a no-op one.
func New(cat *rules.Catalog, cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ChannelBuffer <= 0 {
		cfg.ChannelBuffer = 1
	}
	if cfg.Job == "" {
		cfg.Job = "sblar"
	}
	return &Engine{cat: cat, cfg: cfg, log: log, runner: NewRunner(log)}
}

// Run validates src. emit, if not nil, receives every chunk result as soon
// as it is ready, plus the single register result; returning an error from
// emit aborts the run.
//
// A run full of findings is a normal return. Errors mean the run was aborted
// and no outcome is available for the failing phase.
func (e *Engine) Run(ctx context.Context, src ChunkSource, emit func(Result) error) (Outcome, error) {
	if emit == nil {
		emit = func(Result) error { return nil }
	}
	env := rules.Env{Context: e.cfg.Context, Codes: e.cfg.Codes}

	// Build every schema up front so catalog defects surface before reading.
	syn, err := rules.BuildSchema(e.cat, rules.PhaseSyntactical, env)
	if err != nil {
		return Outcome{}, fmt.Errorf("build syntactical schema: %w", err)
	}
	logi, err := rules.BuildSchema(e.cat, rules.PhaseLogical, env)
	if err != nil {
		return Outcome{}, fmt.Errorf("build logical schema: %w", err)
	}
	reg, err := rules.RegisterSchema(e.cat, env)
	if err != nil {
		return Outcome{}, fmt.Errorf("build register schema: %w", err)
	}

	out := Outcome{Phases: make(map[rules.Phase]findings.Summary, 3)}

	var uids []string
	collect := func(c *frame.Chunk) error {
		col, ok := c.Column(rules.UIDColumn)
		if !ok {
			return &frame.MissingColumnError{Columns: []string{rules.UIDColumn}}
		}
		uids = append(uids, col...)
		return nil
	}

	ps, err := e.phase(ctx, syn, src, collect, emit)
	if err != nil {
		return Outcome{}, err
	}
	out.Records = len(uids)
	out.Phases[rules.PhaseSyntactical] = ps.summary
	out.Truncated = ps.truncated
	if ps.summary.Total() > 0 {
		out.Stage = StageSyntactical
		e.log.Info("syntactical failures, skipping register and logical phases",
			zap.Int("records", out.Records),
			zap.Int("failures", ps.summary.Total()),
		)
		return out, nil
	}

	regChunk, err := frame.FromColumns(0, []string{rules.UIDColumn}, [][]string{uids})
	if err != nil {
		return Outcome{}, fmt.Errorf("register chunk: %w", err)
	}
	ps, err = e.phase(ctx, reg, StaticSource{regChunk}, nil, emit)
	if err != nil {
		return Outcome{}, err
	}
	out.Phases[rules.PhaseRegister] = ps.summary
	out.Truncated = out.Truncated || ps.truncated

	ps, err = e.phase(ctx, logi, src, nil, emit)
	if err != nil {
		return Outcome{}, err
	}
	out.Phases[rules.PhaseLogical] = ps.summary
	out.Truncated = out.Truncated || ps.truncated

	out.Stage = StageClean
	if out.Summary().Total() > 0 {
		out.Stage = StageLogical
	}
	return out, nil
}

type phaseStats struct {
	summary   findings.Summary
	rows      int
	truncated bool
}

// phase validates every chunk of src against s with a fresh budget. onChunk
// sees each chunk before it is validated.
func (e *Engine) phase(ctx context.Context, s *rules.Schema, src ChunkSource, onChunk func(*frame.Chunk) error, emit func(Result) error) (st phaseStats, err error) {
	name := string(s.Phase)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "engine."+name)
	span.SetAttributes(
		attribute.String("sblar.phase", name),
		attribute.Int("sblar.checks", s.Len()),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		d := time.Since(start)
		metrics.RecordPhase(e.cfg.Job, name, err, d)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "phase aborted")
			e.log.Error("phase aborted", zap.String("phase", name), zap.Error(err))
			return
		}
		span.SetAttributes(
			attribute.Int("sblar.records", st.rows),
			attribute.Int("sblar.errors", st.summary.Errors.Total),
			attribute.Int("sblar.warnings", st.summary.Warnings.Total),
			attribute.Bool("sblar.truncated", st.truncated),
		)
		e.log.Info("phase finished",
			zap.String("phase", name),
			zap.Int("records", st.rows),
			zap.Int("errors", st.summary.Errors.Total),
			zap.Int("warnings", st.summary.Warnings.Total),
			zap.Bool("truncated", st.truncated),
			zap.Duration("elapsed", d),
		)
	}()

	g, gctx := errgroup.WithContext(ctx)
	ch := make(chan *frame.Chunk, e.cfg.ChannelBuffer)

	// Reader: the only goroutine that writes to ch.
	g.Go(func() error {
		defer close(ch)
		if err := src.Chunks(gctx, ch); err != nil {
			return fmt.Errorf("read %s chunks: %w", name, err)
		}
		return nil
	})

	g.Go(func() error {
		budget := NewBudget(e.cfg.MaxErrors)
		for c := range ch {
			if err := gctx.Err(); err != nil {
				return err
			}
			if onChunk != nil {
				if err := onChunk(c); err != nil {
					return err
				}
			}
			res, err := e.runner.Validate(s, c, budget.Detail())
			if err != nil {
				return fmt.Errorf("%s phase at record %d: %w", name, c.Offset+1, err)
			}
			budget.Charge(&res)

			st.rows += res.Rows
			st.summary.Add(res.Summary)
			st.truncated = st.truncated || res.Truncated
			recordResult(e.cfg.Job, res)

			if err := emit(res); err != nil {
				return fmt.Errorf("emit %s result: %w", name, err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return phaseStats{}, err
	}
	return st, nil
}

func recordResult(job string, res Result) {
	phase := string(res.Phase)
	metrics.RecordRows(job, phase, res.Rows)
	for _, b := range []struct {
		severity rules.Severity
		counts   findings.Counts
	}{
		{rules.SeverityError, res.Summary.Errors},
		{rules.SeverityWarning, res.Summary.Warnings},
	} {
		sev := string(b.severity)
		metrics.RecordFindings(job, phase, sev, string(rules.ScopeSingleField), b.counts.SingleField)
		metrics.RecordFindings(job, phase, sev, string(rules.ScopeMultiField), b.counts.MultiField)
		metrics.RecordFindings(job, phase, sev, string(rules.ScopeRegister), b.counts.Register)
	}
}
