// Package syncer runs the reconciliation pipeline: fetch the Airtable
// tables, normalize, plan, write the SQL artifact and optionally apply it.
package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/crm-sync/internal/apply"
	"github.com/sells-group/crm-sync/internal/config"
	"github.com/sells-group/crm-sync/internal/model"
	"github.com/sells-group/crm-sync/internal/normalize"
	"github.com/sells-group/crm-sync/internal/plan"
	"github.com/sells-group/crm-sync/internal/resilience"
	"github.com/sells-group/crm-sync/internal/store"
	"github.com/sells-group/crm-sync/pkg/airtable"
)

// Applier executes a plan against the target database.
type Applier interface {
	Apply(ctx context.Context, p *plan.Plan, opts apply.ApplyOpts) (*apply.Report, error)
}

// Notifier is told about every run once it has finished.
type Notifier interface {
	Notify(ctx context.Context, run *model.Run)
}

// RunOpts controls a single run.
type RunOpts struct {
	// Trigger records what started the run ("cli", "webhook").
	Trigger string
	// Apply executes the plan after writing the artifact.
	Apply  bool
	DryRun bool
}

// Result is the outcome of a successful run.
type Result struct {
	RunID        string
	Plan         *plan.Plan
	Artifact     string
	ArtifactPath string
	Fetch        map[model.EntityType]*airtable.FetchResult
	Report       *apply.Report
}

// Engine wires the pipeline stages together.
type Engine struct {
	cfg      *config.Config
	store    store.Store
	client   airtable.Client
	fields   *normalize.FieldMap
	applier  Applier
	notifier Notifier
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithApplier sets the executor used when RunOpts.Apply is true.
func WithApplier(a Applier) Option {
	return func(e *Engine) { e.applier = a }
}

// WithNotifier sets the notifier told about finished runs.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithClock overrides the run timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine.
func New(cfg *config.Config, st store.Store, client airtable.Client, fields *normalize.FieldMap, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		store:  st,
		client: client,
		fields: fields,
		now:    time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run executes one reconciliation run and records it in the run store.
func (e *Engine) Run(ctx context.Context, opts RunOpts) (*Result, error) {
	runID, log, err := e.begin(ctx, &opts)
	if err != nil {
		return nil, err
	}
	return e.finish(ctx, log, runID, opts)
}

// Start records a run and executes it in the background. The returned
// channel yields the run's error, or nil, once it finishes.
func (e *Engine) Start(ctx context.Context, opts RunOpts) (string, <-chan error, error) {
	runID, log, err := e.begin(ctx, &opts)
	if err != nil {
		return "", nil, err
	}
	done := make(chan error, 1)
	go func() {
		defer close(done)
		_, err := e.finish(ctx, log, runID, opts)
		done <- err
	}()
	return runID, done, nil
}

func (e *Engine) begin(ctx context.Context, opts *RunOpts) (string, *zap.Logger, error) {
	if opts.Trigger == "" {
		opts.Trigger = "cli"
	}
	if opts.Apply && e.applier == nil {
		return "", nil, eris.New("syncer: apply requested without a target database")
	}

	run, err := e.store.CreateRun(ctx, opts.Trigger)
	if err != nil {
		return "", nil, eris.Wrap(err, "syncer: create run")
	}
	log := zap.L().With(zap.String("component", "syncer"), zap.String("run_id", run.ID))
	log.Info("run started", zap.String("trigger", opts.Trigger), zap.Bool("apply", opts.Apply))
	return run.ID, log, nil
}

func (e *Engine) finish(ctx context.Context, log *zap.Logger, runID string, opts RunOpts) (*Result, error) {
	defer e.notify(ctx, log, runID)

	res, summary, err := e.run(ctx, log, runID, opts)
	if err != nil {
		log.Error("run failed", zap.Error(err))
		if failErr := e.store.FailRun(context.WithoutCancel(ctx), runID, err); failErr != nil {
			log.Warn("failed to record run failure", zap.Error(failErr))
		}
		return nil, err
	}

	if err := e.store.CompleteRun(ctx, runID, res.ArtifactPath, summary); err != nil {
		err = eris.Wrap(err, "syncer: complete run")
		log.Error("run could not be marked complete", zap.Error(err))
		if failErr := e.store.FailRun(context.WithoutCancel(ctx), runID, err); failErr != nil {
			log.Warn("failed to record run failure", zap.Error(failErr))
		}
		return nil, err
	}
	log.Info("run complete",
		zap.String("artifact", res.ArtifactPath),
		zap.Int("updates", summary.Updates),
		zap.Int("inserts", summary.Inserts),
		zap.Int("deletes", summary.Deletes),
	)
	return res, nil
}

func (e *Engine) notify(ctx context.Context, log *zap.Logger, runID string) {
	if e.notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	run, err := e.store.GetRun(ctx, runID)
	if err != nil {
		log.Warn("failed to load run for notification", zap.Error(err))
		return
	}
	e.notifier.Notify(ctx, run)
}

func (e *Engine) run(ctx context.Context, log *zap.Logger, runID string, opts RunOpts) (*Result, *model.RunSummary, error) {
	now := e.now().UTC()

	fetched, err := e.fetchAll(ctx)
	if err != nil {
		return nil, nil, err
	}

	complete := make(map[model.EntityType]bool, len(fetched))
	var incomplete []model.EntityType
	var causes []string
	for _, t := range model.EntityTypes() {
		fr := fetched[t]
		complete[t] = fr.Complete
		if !fr.Complete {
			incomplete = append(incomplete, t)
			causes = append(causes, fmt.Sprintf("%s: %v", fr.Table, fr.Err))
		}
	}
	if len(incomplete) > 0 {
		if e.cfg.Sync.RequireComplete {
			return nil, nil, eris.Errorf("syncer: incomplete fetch (%s)", strings.Join(causes, "; "))
		}
		log.Warn("continuing with incomplete fetch, cleanup disabled for those tables",
			zap.Strings("causes", causes),
		)
	}

	n := normalize.New(e.fields, now)
	in := plan.Input{RunID: runID, GeneratedAt: now, Complete: complete}
	for _, rec := range fetched[model.EntityCompany].Records {
		in.Companies = append(in.Companies, n.Company(rec))
	}
	for _, rec := range fetched[model.EntityPerson].Records {
		in.People = append(in.People, n.Person(rec))
	}
	for _, rec := range fetched[model.EntityJob].Records {
		in.Jobs = append(in.Jobs, n.Job(rec))
	}

	p := plan.New(plan.Options{AllowEmptyCleanup: e.cfg.Sync.AllowEmptyCleanup}).Plan(in)
	artifact := plan.Emit(p, e.cfg.Sync.Title)

	path, err := e.writeArtifact(runID, now, artifact)
	if err != nil {
		return nil, nil, err
	}

	res := &Result{
		RunID:        runID,
		Plan:         p,
		Artifact:     artifact,
		ArtifactPath: path,
		Fetch:        fetched,
	}
	summary := p.Summary()
	summary.Incomplete = incomplete

	if opts.Apply {
		report, err := e.applier.Apply(ctx, p, apply.ApplyOpts{DryRun: opts.DryRun})
		if err != nil {
			return nil, nil, eris.Wrap(err, "syncer: apply plan")
		}
		res.Report = report
		summary.Applied = report.Committed
		summary.RowsAffected = report.Total
	}
	return res, summary, nil
}

// fetchAll reads the three tables concurrently. A first-page failure on any
// table cancels the others.
func (e *Engine) fetchAll(ctx context.Context) (map[model.EntityType]*airtable.FetchResult, error) {
	tables := map[model.EntityType]string{
		model.EntityPerson:  e.cfg.Airtable.Tables.People,
		model.EntityCompany: e.cfg.Airtable.Tables.Companies,
		model.EntityJob:     e.cfg.Airtable.Tables.Jobs,
	}
	fopts := airtable.FetchOptions{
		PageSize: e.cfg.Airtable.PageSize,
		Retry: resilience.FromSettings(
			e.cfg.Airtable.Retry.MaxAttempts,
			e.cfg.Airtable.Retry.InitialBackoffMs,
			e.cfg.Airtable.Retry.MaxBackoffMs,
		),
	}

	var mu sync.Mutex
	out := make(map[model.EntityType]*airtable.FetchResult, len(tables))

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range model.EntityTypes() {
		g.Go(func() error {
			fr, err := airtable.FetchAll(gctx, e.client, tables[t], fopts)
			if err != nil {
				return err
			}
			mu.Lock()
			out[t] = fr
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "syncer: fetch")
	}
	return out, nil
}

func (e *Engine) writeArtifact(runID string, now time.Time, artifact string) (string, error) {
	dir := e.cfg.Sync.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "syncer: create output dir %s", dir)
	}
	name := fmt.Sprintf("plan-%s-%s.sql", now.Format("20060102T150405Z"), runID)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
		return "", eris.Wrapf(err, "syncer: write artifact %s", path)
	}
	return path, nil
}
