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

package reclaim

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-logr/logr"
	"github.com/mikelane/previewsweep/internal/activity"
	"github.com/mikelane/previewsweep/internal/namespace"
	"github.com/mikelane/previewsweep/internal/naming"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds how many namespaces are probed at once.
const DefaultConcurrency = 10

// Planner builds reclaim plans.
type Planner struct {
	prober      activity.Prober
	mapper      *naming.Mapper
	evaluator   activity.Evaluator
	window      time.Duration
	policy      Policy
	concurrency int
	logger      logr.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithMapper sets the branch to namespace mapper.
func WithMapper(m *naming.Mapper) Option {
	return func(p *Planner) {
		p.mapper = m
	}
}

// WithEvaluator sets the idleness evaluator.
func WithEvaluator(e activity.Evaluator) Option {
	return func(p *Planner) {
		p.evaluator = e
	}
}

// WithWindow sets the staleness window shared by every signal.
func WithWindow(window time.Duration) Option {
	return func(p *Planner) {
		p.window = window
	}
}

// WithPolicy sets the deletion policy.
func WithPolicy(policy Policy) Option {
	return func(p *Planner) {
		p.policy = policy
	}
}

// WithConcurrency bounds concurrent namespace evaluations. Values below 1
// remove the bound.
func WithConcurrency(n int) Option {
	return func(p *Planner) {
		p.concurrency = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger logr.Logger) Option {
	return func(p *Planner) {
		p.logger = logger
	}
}

// NewPlanner creates a planner that fetches signals through prober.
func NewPlanner(prober activity.Prober, opts ...Option) *Planner {
	p := &Planner{
		prober:      prober,
		mapper:      naming.NewMapper(nil),
		window:      activity.DefaultWindow,
		policy:      PolicyOrphanedOnly,
		concurrency: DefaultConcurrency,
		logger:      logr.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// evaluation is what a single namespace task hands back to Plan.
type evaluation struct {
	decision *Decision
	skip     *Skip
}

// Plan evaluates every Active namespace in the snapshot and returns the
// deletion plan. It only fails if ctx is already done.
func (p *Planner) Plan(ctx context.Context, snapshot Snapshot) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("plan cancelled before evaluation: %w", err)
	}

	result := &Result{
		ObservedAt: snapshot.ObservedAt,
		Expected:   p.mapper.ExpectedSet(snapshot.Branches),
	}

	seen := make(map[string]bool, len(snapshot.Namespaces))
	active := make([]string, 0, len(snapshot.Namespaces))
	for _, ns := range snapshot.Namespaces {
		if seen[ns.Name] {
			continue
		}
		seen[ns.Name] = true

		if ns.Phase != namespace.PhaseActive {
			p.logger.V(1).Info("Skipping namespace that is not active", "namespace", ns.Name, "phase", ns.Phase)
			result.Skipped = append(result.Skipped, Skip{
				Namespace: ns.Name,
				Phase:     ns.Phase,
				Reason:    SkipPhase,
			})
			continue
		}
		active = append(active, ns.Name)
	}

	// Each task writes only its own slot; results are read after Wait.
	evaluations := make([]evaluation, len(active))
	g := new(errgroup.Group)
	if p.concurrency > 0 {
		g.SetLimit(p.concurrency)
	}
	for i, name := range active {
		g.Go(func() error {
			evaluations[i] = p.evaluate(ctx, name, result.Expected)
			return nil
		})
	}
	_ = g.Wait()

	for _, e := range evaluations {
		if e.skip != nil {
			result.Skipped = append(result.Skipped, *e.skip)
			continue
		}
		result.Decisions = append(result.Decisions, *e.decision)
		if e.decision.Verdict == VerdictDelete {
			result.Delete = append(result.Delete, e.decision.Namespace)
		}
	}

	sort.Slice(result.Decisions, func(i, j int) bool {
		return result.Decisions[i].Namespace < result.Decisions[j].Namespace
	})
	sort.Slice(result.Skipped, func(i, j int) bool {
		return result.Skipped[i].Namespace < result.Skipped[j].Namespace
	})
	sort.Strings(result.Delete)

	return result, nil
}

func (p *Planner) evaluate(ctx context.Context, name string, expected naming.Set) evaluation {
	logger := p.logger.WithValues("namespace", name)

	if err := ctx.Err(); err != nil {
		return cancelled(name, err)
	}

	signals, err := p.prober.Probe(ctx, name, p.window)
	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.V(1).Info("Abandoning evaluation of cancelled run")
		return cancelled(name, ctxErr)
	}
	if err != nil {
		logger.Error(err, "Failed to fetch activity signals, excluding namespace from plan")
		return evaluation{skip: &Skip{
			Namespace: name,
			Phase:     namespace.PhaseActive,
			Reason:    SkipProbeError,
			Err:       err,
		}}
	}

	decision := Decision{
		Namespace: name,
		Idle:      p.evaluator.IsIdle(signals, p.window),
		Expected:  expected.Has(name),
		Signals:   signals,
	}

	switch {
	case !decision.Idle:
		decision.Verdict = VerdictKeep
		decision.Reason = ReasonNotIdle
	case decision.Expected && p.policy == PolicyOrphanedOnly:
		decision.Verdict = VerdictKeep
		decision.Reason = ReasonExpected
	default:
		decision.Verdict = VerdictDelete
		decision.Reason = ReasonIdle
	}

	logger.Info("Evaluated namespace",
		"verdict", decision.Verdict,
		"reason", decision.Reason,
		"signals", activity.Summarize(signals))

	return evaluation{decision: &decision}
}

func cancelled(name string, err error) evaluation {
	return evaluation{skip: &Skip{
		Namespace: name,
		Phase:     namespace.PhaseActive,
		Reason:    SkipCancelled,
		Err:       err,
	}}
}
