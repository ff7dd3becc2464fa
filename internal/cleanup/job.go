/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package cleanup

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mikelane/previewsweep/internal/github"
	"github.com/mikelane/previewsweep/internal/namespace"
	"github.com/mikelane/previewsweep/internal/reclaim"
	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Phase names logged by a sweep, in the order they run.
const (
	PhaseFetchBranches  = "fetching branches"
	PhaseFetchPreviews  = "fetching previews"
	PhaseCheckActivity  = "checking activity"
	PhaseDeletePreviews = "deleting previews"
)

const defaultDeleteWorkers = 5

// NamespaceStore lists preview namespaces and deletes them.
type NamespaceStore interface {
	ListPreviewNamespaces(ctx context.Context) ([]namespace.Namespace, error)
	Delete(ctx context.Context, name string) error
}

// CostEstimator reports what a namespace costs per hour while it runs.
type CostEstimator interface {
	HourlyCost(ctx context.Context, namespace string) (float64, error)
}

// Observer receives the outcome of every sweep.
type Observer interface {
	ObserveRun(report *Report, err error)
}

// Report summarizes one sweep.
type Report struct {
	Plan *reclaim.Result
	// Deleted lists namespaces whose deletion was issued (or would have
	// been, in dry-run mode)
	Deleted []string
	// Protected lists namespaces refused because of the do-not-delete label
	Protected      []string
	DeleteFailures map[string]error
	// ReclaimedHourlyCost is the estimated hourly cost of the Deleted namespaces
	ReclaimedHourlyCost float64
	DryRun              bool
	StartedAt           time.Time
	FinishedAt          time.Time
}

// Duration returns how long the sweep took.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Job runs one sweep: fetch branches and previews, plan, then delete.
type Job struct {
	branches      github.BranchLister
	namespaces    NamespaceStore
	planner       *reclaim.Planner
	dryRun        bool
	deleteWorkers int
	observers     []Observer
	estimator     CostEstimator
	now           func() time.Time
}

// JobOption configures a Job.
type JobOption func(*Job)

// WithDryRun plans and reports without deleting anything.
func WithDryRun(dryRun bool) JobOption {
	return func(j *Job) {
		j.dryRun = dryRun
	}
}

// WithDeleteWorkers bounds concurrent deletions.
func WithDeleteWorkers(n int) JobOption {
	return func(j *Job) {
		if n > 0 {
			j.deleteWorkers = n
		}
	}
}

// WithObserver registers an observer for sweep outcomes.
func WithObserver(o Observer) JobOption {
	return func(j *Job) {
		j.observers = append(j.observers, o)
	}
}

// WithCostEstimator estimates the cost reclaimed by each deletion.
func WithCostEstimator(e CostEstimator) JobOption {
	return func(j *Job) {
		j.estimator = e
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) JobOption {
	return func(j *Job) {
		j.now = now
	}
}

// NewJob creates a sweep job.
func NewJob(branches github.BranchLister, namespaces NamespaceStore, planner *reclaim.Planner, opts ...JobOption) *Job {
	j := &Job{
		branches:      branches,
		namespaces:    namespaces,
		planner:       planner,
		deleteWorkers: defaultDeleteWorkers,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run performs a single sweep. The returned error is set only for failures
// that abort the sweep before any deletion, including a context cancelled
// while activity was being checked. Failed deletions of individual
// namespaces are recorded in the report instead.
func (j *Job) Run(ctx context.Context) (report *Report, err error) {
	report = &Report{
		DryRun:         j.dryRun,
		DeleteFailures: map[string]error{},
		StartedAt:      j.now(),
	}
	defer func() {
		report.FinishedAt = j.now()
		for _, o := range j.observers {
			o.ObserveRun(report, err)
		}
	}()

	var branches []string
	err = j.phase(ctx, PhaseFetchBranches, func(ctx context.Context) error {
		var listErr error
		branches, listErr = j.branches.Branches(ctx)
		if listErr != nil {
			return fmt.Errorf("failed to list branches: %w", listErr)
		}
		log.FromContext(ctx).Info("Fetched branches", "count", len(branches))
		return nil
	})
	if err != nil {
		return report, err
	}

	var previews []namespace.Namespace
	err = j.phase(ctx, PhaseFetchPreviews, func(ctx context.Context) error {
		var listErr error
		previews, listErr = j.namespaces.ListPreviewNamespaces(ctx)
		if listErr != nil {
			return fmt.Errorf("failed to list preview namespaces: %w", listErr)
		}
		log.FromContext(ctx).Info("Fetched preview namespaces", "count", len(previews))
		return nil
	})
	if err != nil {
		return report, err
	}

	err = j.phase(ctx, PhaseCheckActivity, func(ctx context.Context) error {
		plan, planErr := j.planner.Plan(ctx, reclaim.Snapshot{
			Branches:   branches,
			Namespaces: previews,
			ObservedAt: j.now(),
		})
		if planErr != nil {
			return fmt.Errorf("failed to plan reclaim: %w", planErr)
		}
		report.Plan = plan
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("sweep cancelled: %w", ctxErr)
		}
		log.FromContext(ctx).Info("Planned reclaim",
			"evaluated", len(plan.Decisions),
			"skipped", len(plan.Skipped),
			"toDelete", len(plan.Delete))
		return nil
	})
	if err != nil {
		return report, err
	}

	_ = j.phase(ctx, PhaseDeletePreviews, func(ctx context.Context) error {
		j.deleteAll(ctx, report)
		return nil
	})

	return report, nil
}

type deleteOutcome struct {
	protected bool
	cost      float64
	err       error
}

func (j *Job) deleteAll(ctx context.Context, report *Report) {
	logger := log.FromContext(ctx)
	names := report.Plan.Delete

	// Each deletion writes only its own slot
	outcomes := make([]deleteOutcome, len(names))
	g := new(errgroup.Group)
	g.SetLimit(j.deleteWorkers)
	for i, name := range names {
		g.Go(func() error {
			outcomes[i] = j.deleteOne(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	for i, name := range names {
		out := outcomes[i]
		switch {
		case out.protected:
			logger.Info("Skipping protected preview namespace", "namespace", name, "label", namespace.DoNotDeleteLabel)
			report.Protected = append(report.Protected, name)
		case out.err != nil:
			logger.Error(out.err, "Failed to delete preview namespace", "namespace", name)
			report.DeleteFailures[name] = out.err
		case j.dryRun:
			logger.Info("[DRY RUN] Would delete preview namespace", "namespace", name, "hourlyCost", out.cost)
			report.Deleted = append(report.Deleted, name)
			report.ReclaimedHourlyCost += out.cost
		default:
			logger.Info("Deleted preview namespace", "namespace", name, "hourlyCost", out.cost)
			report.Deleted = append(report.Deleted, name)
			report.ReclaimedHourlyCost += out.cost
		}
	}
	sort.Strings(report.Deleted)
}

func (j *Job) deleteOne(ctx context.Context, name string) deleteOutcome {
	if err := ctx.Err(); err != nil {
		return deleteOutcome{err: err}
	}

	var out deleteOutcome
	if j.estimator != nil {
		cost, err := j.estimator.HourlyCost(ctx, name)
		if err != nil {
			log.FromContext(ctx).V(1).Info("Failed to estimate namespace cost", "namespace", name, "error", err.Error())
		}
		out.cost = cost
	}

	if j.dryRun {
		return out
	}

	err := j.namespaces.Delete(ctx, name)
	switch {
	case errors.Is(err, namespace.ErrProtected):
		out.protected = true
	case err != nil:
		out.err = err
	}
	return out
}

func (j *Job) phase(ctx context.Context, name string, fn func(context.Context) error) error {
	logger := log.FromContext(ctx).WithValues("phase", name)
	ctx = log.IntoContext(ctx, logger)
	start := j.now()

	logger.Info("Phase started")
	if err := fn(ctx); err != nil {
		logger.Error(err, "Phase failed", "duration", j.now().Sub(start))
		return err
	}
	logger.Info("Phase finished", "duration", j.now().Sub(start))
	return nil
}
