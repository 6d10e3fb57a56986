package main

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/extremevalue/quantvalid/internal/catalogindex"
	"github.com/extremevalue/quantvalid/internal/codegen"
	"github.com/extremevalue/quantvalid/internal/config"
	"github.com/extremevalue/quantvalid/internal/dataavail"
	"github.com/extremevalue/quantvalid/internal/domain"
	"github.com/extremevalue/quantvalid/internal/driver"
	"github.com/extremevalue/quantvalid/internal/engine"
	quantlog "github.com/extremevalue/quantvalid/internal/log"
	"github.com/extremevalue/quantvalid/internal/orchestrator"
	"github.com/extremevalue/quantvalid/internal/persist"
	"github.com/extremevalue/quantvalid/internal/regimecheck"
	"github.com/extremevalue/quantvalid/internal/sanity"
	"github.com/extremevalue/quantvalid/internal/stats"
	"github.com/extremevalue/quantvalid/internal/telemetry"
	"github.com/extremevalue/quantvalid/internal/verify"
	"github.com/extremevalue/quantvalid/internal/walkforward"
)

type loggerKey struct{}

func withLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func loggerFromContext(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return l
	}
	return quantlog.New()
}

// deps bundles every package this CLI wires together for one run. It
// holds no per-candidate state; runCandidate is the only method that
// mutates anything, and it mutates the StateRecord and workspace file
// tree it's handed, never deps itself.
type deps struct {
	cfg       *config.Config
	store     *persist.Store
	orch      *orchestrator.Orchestrator
	verifier  *verify.Verifier
	resolver  *dataavail.Resolver
	generator *codegen.Generator
	aggBuild  func() *walkforward.Aggregator
	metrics   *telemetry.Registry
	stream    *telemetry.Stream
	catalog   *catalogindex.Index
	log       zerolog.Logger
}

// buildDeps loads configuration and wires every component this CLI
// depends on. Components whose concrete implementation has an offline
// fallback (LLM client, Redis quota counter) degrade gracefully rather
// than erroring when unconfigured.
func buildDeps(ctx context.Context) (*deps, error) {
	zl := loggerFromContext(ctx)

	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return nil, err
	}
	if flagWorkspace != "" {
		cfg.WorkspaceDir = flagWorkspace
	}

	store := persist.New(cfg.WorkspaceDir)

	registryPath := filepath.Join(cfg.WorkspaceDir, "registry.json")
	registry, err := dataavail.LoadRegistry(registryPath)
	if err != nil {
		registry = dataavail.NewRegistry()
	}

	var llmClient codegen.Client
	if cfg.LLM.BaseURL != "" {
		llmClient = engine.NewLLMClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, http.DefaultClient)
	}

	var quota driver.QuotaCounter
	if cfg.Redis.Addr != "" {
		quota = driver.NewRedisQuotaCounter(redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr}), cfg.Redis.Prefix)
	} else {
		quota = driver.NewInProcessQuotaCounter()
	}

	runner, err := buildRunner(ctx, cfg, quota)
	if err != nil {
		return nil, err
	}

	var catalog *catalogindex.Index
	if cfg.CatalogIndex.DSN != "" {
		catalog, err = catalogindex.Open(cfg.CatalogIndex.DSN, time.Duration(cfg.CatalogIndex.TimeoutSeconds)*time.Second)
		if err != nil {
			return nil, err
		}
	}

	timeout := time.Duration(cfg.Backtest.TimeoutSeconds) * time.Second
	baseDriver := driver.New(runner, quota, timeout)
	gen := codegen.NewGenerator(llmClient)

	return &deps{
		cfg:       cfg,
		store:     store,
		orch:      orchestrator.New(),
		verifier:  verify.New(),
		resolver:  dataavail.NewResolver(registry),
		generator: gen,
		aggBuild: func() *walkforward.Aggregator {
			return walkforward.NewAggregator(baseDriver, gen, driver.RewriteDates, cfg.Correction.MaxAttempts)
		},
		catalog: catalog,
		log:     zl,
	}, nil
}

// buildRunner selects C4's local subprocess runner or cloud push/poll
// runner per config.backtest.mode. For cloud mode it also runs one
// startup cleanup pass (§4.4 "on startup... the driver may enumerate
// remote projects and cancel any backtests... still consuming a node"),
// best-effort: a failed cleanup here never blocks startup.
func buildRunner(ctx context.Context, cfg *config.Config, quota driver.QuotaCounter) (driver.Runner, error) {
	switch config.ExecutionMode(cfg.Backtest.Mode) {
	case config.ExecutionCloud:
		creds, err := config.LoadCredentials(cfg.Backtest.CredentialsPath)
		if err != nil {
			return nil, err
		}
		remote := engine.NewHTTPRemoteClient("https://www.quantconnect.com/api/v2", creds.Token, creds.UserID, http.DefaultClient)
		pusher := driver.NewCLIProjectPusher(cfg.Backtest.EngineBinary)
		runner := driver.NewCloudRunner(pusher, remote, quota, cfg.Backtest.ProjectRoot, false)
		_, _ = runner.CleanupOrphans(ctx)
		return runner, nil
	default:
		return driver.NewLocalRunner(cfg.Backtest.EngineBinary, cfg.Backtest.ProjectRoot), nil
	}
}

// runOptions carries the §6 CLI surface's four per-run flags.
type runOptions struct {
	DryRun     bool
	Force      bool
	SkipVerify bool
	ForceLLM   bool
}

// runCandidate drives one candidate through every C1-C9 stage in the
// §4.8 order, persisting an artifact after each stage completes and
// returning the final StateRecord. A non-nil error here means an
// unrecoverable system error (§7 "Fatal"), not a normal INVALIDATED or
// BLOCKED verdict — those are reported via rec.Determination.
func (d *deps) runCandidate(ctx context.Context, c domain.Candidate, opts runOptions) (*domain.StateRecord, error) {
	stages := []string{"verify", "data_audit", "codegen", "walk_forward", "statistical", "regime", "oos", "determination"}
	sl := quantlog.NewStepLogger(d.log, c.ID, stages)
	rec := d.orch.Start(c.ID)
	d.broadcast(c.ID, "start", "beginning validation")

	sl.StartStep("verify")
	if !opts.SkipVerify {
		v := d.verifier.Verify(c)
		if v.Failed() > 0 {
			return d.blockAndFinish(ctx, rec, sl, c.ID, fmt.Sprintf("verification failed: %d check(s)", v.Failed()))
		}
	}
	sl.CompleteStep("verify")

	windows := walkforward.Windows(walkforward.WindowSetName(d.cfg.WalkForward.WindowSet))
	isWindow, oosWindow := splitISAndOOS(windows)
	if err := d.orch.LockHypothesis(rec, isWindow, oosWindow, c.DataReqs.Primary, c.Parameters); err != nil {
		return nil, err
	}

	sl.StartStep("data_audit")
	ok, unmet := d.resolver.AllAvailable(c.DataReqs.Primary)
	if !ok {
		return d.blockAndFinish(ctx, rec, sl, c.ID, fmt.Sprintf("data requirements unavailable: %v", unmet))
	}
	if err := d.orch.Transition(rec, domain.StateDataAudit, "data audit passed"); err != nil {
		return nil, err
	}
	sl.CompleteStep("data_audit")

	if opts.DryRun {
		sl.Determination("DRY_RUN", "stopped before consuming backtest resources")
		return rec, nil
	}

	sl.StartStep("codegen")
	program, err := d.generator.Generate(ctx, c, opts.ForceLLM)
	if err != nil {
		return d.failAndFinish(ctx, rec, sl, c.ID, "code generation failed: "+err.Error())
	}
	if err := d.store.WriteGeneratedProgram(ctx, c.ID, program.Code); err != nil {
		return nil, err
	}
	sl.CompleteStep("codegen")

	sl.StartStep("walk_forward")
	agg := d.aggBuild()
	wf, err := agg.Run(ctx, c, program.Code, windows)
	if err != nil {
		return d.failAndFinish(ctx, rec, sl, c.ID, "walk-forward aggregator error: "+err.Error())
	}
	if err := d.store.WriteRunResult(ctx, c.ID, wf); err != nil {
		return nil, err
	}
	for _, w := range wf.Windows {
		sl.Window(w.WindowID, w.Success, 0, w.Error)
	}
	if wf.Aggregate != nil {
		sl.Aggregate(wf.Aggregate.MeanReturn, wf.Aggregate.AggregateSharpe, wf.Aggregate.AggregateCAGR, wf.Aggregate.WorstMaxDrawdown, wf.Aggregate.Consistency)
	}
	sl.CompleteStep("walk_forward")

	meanAlpha, alphaStdErr := alphaStatistics(wf.Windows)
	statResult := stats.Evaluate(meanAlpha, alphaStdErr, d.cfg.StatisticalSignificance())
	sl.StartStep("statistical")
	sl.CompleteStep("statistical")

	regimeResult := regimecheck.Evaluate(wf.Windows)
	sl.StartStep("regime")
	sl.CompleteStep("regime")

	isFlags := sanity.CheckMinAlpha("is_testing", &meanAlpha)
	if err := d.orch.SubmitISResults(rec, statResult.Significant, regimeResult.Consistent, isFlags); err != nil {
		return nil, err
	}

	sl.StartStep("oos")
	oosAlpha := lastWindowAlpha(wf.Windows)
	oosFlags := sanity.CheckMinAlpha("oos_testing", oosAlpha)
	if err := d.orch.SubmitOOSResults(rec, oosFlags); err != nil {
		return nil, err
	}
	sl.CompleteStep("oos")

	gates := orchestrator.EvaluateGates(wf, d.cfg.GateThresholds())
	for _, g := range gates.Results {
		sl.GateRow(g.Name, g.Threshold, g.Actual, g.Present, g.Passed)
		d.recordGate(g.Name, g.Passed)
	}

	sl.StartStep("determination")
	if err := d.orch.Determine(rec, wf, gates); err != nil {
		return nil, err
	}
	if err := d.orch.Complete(rec); err != nil {
		return nil, err
	}
	sl.CompleteStep("determination")

	if err := d.finish(ctx, rec, c.ID); err != nil {
		return nil, err
	}
	sl.Determination(string(rec.Determination), rec.DeterminationReason)
	d.recordDetermination(string(rec.Determination))
	d.broadcast(c.ID, "determination", rec.DeterminationReason)
	return rec, nil
}

// blockAndFinish moves the candidate to blocked, a normal terminal
// outcome (§7: VerificationFailure/DataUnavailable -> BLOCKED), never
// an error return.
func (d *deps) blockAndFinish(ctx context.Context, rec *domain.StateRecord, sl *quantlog.StepLogger, id, reason string) (*domain.StateRecord, error) {
	if err := d.orch.Block(rec, reason); err != nil {
		return nil, err
	}
	sl.Fail(reason)
	if err := d.finish(ctx, rec, id); err != nil {
		return nil, err
	}
	d.recordDetermination(string(rec.Determination))
	return rec, nil
}

// failAndFinish moves the candidate to failed, for the unrecoverable-
// per-candidate errors §7 maps to FAILED (CodeGenFailure, an aggregator
// error that isn't itself a classified WindowOutcome).
func (d *deps) failAndFinish(ctx context.Context, rec *domain.StateRecord, sl *quantlog.StepLogger, id, reason string) (*domain.StateRecord, error) {
	if err := d.orch.FailRun(rec, reason); err != nil {
		return nil, err
	}
	sl.Fail(reason)
	if err := d.finish(ctx, rec, id); err != nil {
		return nil, err
	}
	d.recordDetermination(string(rec.Determination))
	return rec, nil
}

// finish writes the determination artifact and moves the candidate
// document to the status bucket its determination implies, refreshing
// the optional catalog index (if configured) to match.
func (d *deps) finish(ctx context.Context, rec *domain.StateRecord, id string) error {
	if err := d.store.WriteDetermination(ctx, rec); err != nil {
		return err
	}
	status, move := statusForDetermination(rec.Determination)
	if !move {
		status = domain.StatusPending
	} else if _, err := d.store.MoveStatus(ctx, id, status); err != nil {
		return err
	}
	d.upsertCatalog(ctx, id, status)
	return nil
}

// upsertCatalog refreshes the optional Postgres catalog index; a
// failure here never fails the run, since the file tree under
// internal/persist remains the catalog of record.
func (d *deps) upsertCatalog(ctx context.Context, id string, status domain.Status) {
	if d.catalog == nil {
		return
	}
	entry := catalogindex.Entry{CandidateID: id, Status: status, LastRunAt: time.Now().UTC()}
	if err := d.catalog.Upsert(ctx, entry); err != nil {
		d.log.Warn().Err(err).Str("candidate_id", id).Msg("catalog index upsert failed")
	}
}

func (d *deps) broadcast(candidateID, stage, message string) {
	if d.stream == nil {
		return
	}
	d.stream.Broadcast(telemetry.ProgressEvent{CandidateID: candidateID, Stage: stage, Message: message})
}

func (d *deps) recordGate(name string, passed bool) {
	if d.metrics == nil {
		return
	}
	d.metrics.RecordGateEvaluation(name, passed)
}

func (d *deps) recordDetermination(determination string) {
	if d.metrics == nil {
		return
	}
	d.metrics.RecordDetermination(determination)
}

// statusForDetermination maps a final Determination onto the §6 status
// directory it belongs in; RETRY_LATER leaves the candidate in pending
// for a future run (§7), so it reports move=false.
func statusForDetermination(det domain.Determination) (status domain.Status, move bool) {
	switch det {
	case domain.DeterminationValidated:
		return domain.StatusValidated, true
	case domain.DeterminationInvalidated, domain.DeterminationConditional:
		return domain.StatusInvalidated, true
	case domain.DeterminationBlocked, domain.DeterminationFailed:
		return domain.StatusBlocked, true
	default:
		return domain.StatusPending, false
	}
}

// splitISAndOOS derives the hypothesis-lock bookkeeping windows from a
// walk-forward schedule: every window but the last forms the in-sample
// span, and the last window is held out as out-of-sample.
func splitISAndOOS(windows []domain.WindowSpec) (isWindow, oosWindow domain.WindowSpec) {
	if len(windows) == 0 {
		return domain.WindowSpec{}, domain.WindowSpec{}
	}
	if len(windows) == 1 {
		return windows[0], windows[0]
	}
	oos := windows[len(windows)-1]
	is := domain.WindowSpec{ID: 0, Start: windows[0].Start, End: windows[len(windows)-2].End}
	return is, oos
}

// alphaStatistics computes the mean alpha and its standard error across
// every successful window, the two inputs stats.Evaluate needs
// for its Bonferroni-adjusted significance test.
func alphaStatistics(windows []domain.WindowOutcome) (mean, stdErr float64) {
	var vals []float64
	for _, w := range windows {
		if w.Success && w.Alpha != nil {
			vals = append(vals, *w.Alpha)
		}
	}
	n := len(vals)
	if n == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	mean = sum / float64(n)
	if n < 2 {
		return mean, 0
	}
	var sumSq float64
	for _, v := range vals {
		sumSq += (v - mean) * (v - mean)
	}
	variance := sumSq / float64(n-1)
	stdErr = math.Sqrt(variance / float64(n))
	return mean, stdErr
}

// lastWindowAlpha returns the alpha estimate of the last successful
// window (nil if none succeeded), standing in for the one-shot OOS
// result's sanity check.
func lastWindowAlpha(windows []domain.WindowOutcome) *float64 {
	for i := len(windows) - 1; i >= 0; i-- {
		if windows[i].Success {
			return windows[i].Alpha
		}
	}
	return nil
}
