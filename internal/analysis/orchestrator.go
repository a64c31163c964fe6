// Package analysis runs the hierarchical repository analysis: a top-level
// model pass that may delegate per-file questions to bounded parallel
// sub-analyses, aggregated into one AnalysisReport.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"codescout/internal/llm"
	"codescout/internal/logging"
	"codescout/internal/manifest"
	"codescout/internal/mcp"
	"codescout/internal/prompt"
	"codescout/internal/safeio"
	"codescout/internal/util/jsonutil"
)

// State is a step of the per-request state machine.
type State string

const (
	StateIngesting     State = "ingesting"
	StatePrompting     State = "prompting"
	StateAwaitingModel State = "awaiting_model"
	StateAggregating   State = "aggregating"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

const defaultFileCacheEntries = 256

// Request is one analysis job over an already extracted repository.
type Request struct {
	ProblemDescription string
	RootDir            string
}

// Options tunes an Orchestrator. Zero values fall back to defaults.
type Options struct {
	Logger           *zap.Logger
	IgnoreDirs       []string
	MaxFileBytes     int64
	FileCacheEntries int
}

// Orchestrator drives one request through
// Ingesting, Prompting, AwaitingModel and Aggregating to Done or Failed.
// It holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	llm     llm.Converser
	prompts *prompt.Registry
	worker  *SubWorker
	opts    Options
	log     *zap.Logger
}

func NewOrchestrator(c llm.Converser, prompts *prompt.Registry, opts Options) *Orchestrator {
	if opts.FileCacheEntries <= 0 {
		opts.FileCacheEntries = defaultFileCacheEntries
	}
	return &Orchestrator{
		llm:     c,
		prompts: prompts,
		worker:  &SubWorker{LLM: c, Prompts: prompts, MaxFileBytes: opts.MaxFileBytes},
		opts:    opts,
		log:     logging.OrNop(opts.Logger),
	}
}

// Analyze runs the whole pipeline for req. Failures are returned as *Error
// tagged with the failing stage.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) (*AnalysisReport, error) {
	r := &run{id: uuid.NewString(), started: time.Now()}
	r.log = o.log.With(zap.String("request_id", r.id))

	r.enter(StateIngesting)
	m, err := manifest.Build(req.RootDir, manifest.Options{IgnoreDirs: o.opts.IgnoreDirs})
	if err != nil {
		return nil, r.fail(StageIngestion, err)
	}
	fsys, err := safeio.NewSafeFS(req.RootDir)
	if err != nil {
		return nil, r.fail(StageIngestion, err)
	}
	files, dirs := m.Count()
	r.log.Info("manifest built", zap.Int("files", files), zap.Int("dirs", dirs))

	r.enter(StatePrompting)
	structure := m.Markdown()
	p, err := o.prompts.Render(prompt.Analysis, map[string]string{
		prompt.VarProblemDescription: req.ProblemDescription,
		prompt.VarCodeRepoStructure:  structure,
	})
	if err != nil {
		return nil, r.fail(StagePrompting, err)
	}

	r.enter(StateAwaitingModel)
	cache, err := newFileCache(o.opts.FileCacheEntries)
	if err != nil {
		return nil, r.fail(StageModel, err)
	}
	scope := &requestScope{
		problem:   req.ProblemDescription,
		structure: structure,
		manifest:  m,
		fs:        fsys,
		files:     cache,
	}
	tools := mcp.NewRegistry(&delegateTool{worker: o.worker, scope: scope, log: r.log})
	raw, err := o.llm.Converse(llm.WithPhase(ctx, llm.PhaseAnalysis), p, tools, ReportSchema)
	if err != nil {
		return nil, r.fail(StageModel, err)
	}

	r.enter(StateAggregating)
	report, err := DecodeReport(raw)
	if err != nil {
		return nil, r.fail(StageAggregation, err)
	}

	r.enter(StateDone)
	r.log.Info("analysis done",
		zap.Int("features", len(report.FeatureAnalysis)),
		zap.Duration("elapsed", time.Since(r.started)))
	return report, nil
}

// run tracks one request's position in the state machine.
type run struct {
	id      string
	state   State
	started time.Time
	log     *zap.Logger
}

func (r *run) enter(s State) {
	r.log.Debug("analysis state", zap.String("from", string(r.state)), zap.String("to", string(s)))
	r.state = s
}

func (r *run) fail(stage Stage, err error) error {
	r.log.Error("analysis failed",
		zap.String("state", string(r.state)),
		zap.String("stage", string(stage)),
		zap.Error(err))
	r.state = StateFailed
	return stageError(stage, err)
}

// DecodeReport parses the model's final answer. Both top-level keys must be
// present; nested lists are normalised to empty rather than null.
func DecodeReport(raw json.RawMessage) (*AnalysisReport, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty model answer")
	}
	var keys map[string]json.RawMessage
	if err := jsonutil.UnmarshalFlex(raw, &keys); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	for _, k := range []string{"feature_analysis", "execution_plan_suggestion"} {
		if _, ok := keys[k]; !ok {
			return nil, fmt.Errorf("decode report: missing %q", k)
		}
	}
	var report AnalysisReport
	if err := jsonutil.UnmarshalFlex(raw, &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if report.FeatureAnalysis == nil {
		report.FeatureAnalysis = []Feature{}
	}
	for i := range report.FeatureAnalysis {
		if report.FeatureAnalysis[i].ImplementationLocations == nil {
			report.FeatureAnalysis[i].ImplementationLocations = []ImplementationLocation{}
		}
	}
	return &report, nil
}
