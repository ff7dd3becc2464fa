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

package reclaim_test

import (
	"context"
	"errors"
	"time"

	"github.com/mikelane/previewsweep/internal/activity"
	"github.com/mikelane/previewsweep/internal/namespace"
	"github.com/mikelane/previewsweep/internal/reclaim"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Planner", func() {
	var (
		ctx    context.Context
		prober *stubProber
	)

	BeforeEach(func() {
		ctx = context.Background()
		prober = newStubProber()
	})

	Describe("an idle namespace backing a known branch", func() {
		BeforeEach(func() {
			prober.signals["staging-main"] = allSignals(activity.NotObserved)
		})

		It("keeps the namespace under the orphaned-only policy", func() {
			result, err := reclaim.NewPlanner(prober).Plan(ctx, reclaim.Snapshot{
				Branches:   []string{"main"},
				Namespaces: []namespace.Namespace{active("staging-main")},
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Expected.Has("staging-main")).To(BeTrue())
			Expect(result.Delete).To(BeEmpty())

			decision, ok := result.Decision("staging-main")
			Expect(ok).To(BeTrue())
			Expect(decision.Idle).To(BeTrue())
			Expect(decision.Verdict).To(Equal(reclaim.VerdictKeep))
			Expect(decision.Reason).To(Equal(reclaim.ReasonExpected))
		})

		It("deletes the namespace under the all-idle policy", func() {
			result, err := reclaim.NewPlanner(prober, reclaim.WithPolicy(reclaim.PolicyAllIdle)).Plan(ctx, reclaim.Snapshot{
				Branches:   []string{"main"},
				Namespaces: []namespace.Namespace{active("staging-main")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Delete).To(Equal([]string{"staging-main"}))
		})
	})

	Describe("an idle orphaned namespace", func() {
		It("is selected for deletion", func() {
			prober.signals["staging-orphan"] = allSignals(activity.NotObserved)

			result, err := reclaim.NewPlanner(prober).Plan(ctx, reclaim.Snapshot{
				Branches:   []string{},
				Namespaces: []namespace.Namespace{active("staging-orphan")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Delete).To(Equal([]string{"staging-orphan"}))

			decision, _ := result.Decision("staging-orphan")
			Expect(decision.Reason).To(Equal(reclaim.ReasonIdle))
			Expect(decision.Signals).To(HaveLen(3))
		})
	})

	Describe("a namespace whose database is unavailable", func() {
		BeforeEach(func() {
			prober.signals["staging-x"] = activity.UnavailableSignals(activity.DefaultWindow, "pod mysql-0 is Pending")
		})

		It("keeps the namespace by default", func() {
			result, err := reclaim.NewPlanner(prober).Plan(ctx, reclaim.Snapshot{
				Namespaces: []namespace.Namespace{active("staging-x")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Delete).To(BeEmpty())

			decision, ok := result.Decision("staging-x")
			Expect(ok).To(BeTrue())
			Expect(decision.Verdict).To(Equal(reclaim.VerdictKeep))
			Expect(decision.Reason).To(Equal(reclaim.ReasonNotIdle))
		})

		It("deletes the namespace when unavailable counts as idle", func() {
			planner := reclaim.NewPlanner(prober, reclaim.WithEvaluator(activity.Evaluator{UnavailableAsIdle: true}))
			result, err := planner.Plan(ctx, reclaim.Snapshot{
				Namespaces: []namespace.Namespace{active("staging-x")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Delete).To(Equal([]string{"staging-x"}))
		})
	})

	Describe("a namespace that is not active", func() {
		It("never plans a terminating namespace even with idle signals", func() {
			prober.signals["staging-y"] = allSignals(activity.NotObserved)

			result, err := reclaim.NewPlanner(prober, reclaim.WithPolicy(reclaim.PolicyAllIdle)).Plan(ctx, reclaim.Snapshot{
				Namespaces: []namespace.Namespace{inPhase("staging-y", namespace.PhaseTerminating)},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Delete).NotTo(ContainElement("staging-y"))
			Expect(prober.called("staging-y")).To(BeFalse())

			skip, ok := result.Skip("staging-y")
			Expect(ok).To(BeTrue())
			Expect(skip.Reason).To(Equal(reclaim.SkipPhase))
			Expect(skip.Phase).To(Equal(namespace.PhaseTerminating))
		})

		It("never plans a namespace in an unknown phase", func() {
			prober.signals["staging-z"] = allSignals(activity.NotObserved)

			result, err := reclaim.NewPlanner(prober).Plan(ctx, reclaim.Snapshot{
				Namespaces: []namespace.Namespace{inPhase("staging-z", namespace.PhaseUnknown)},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Delete).To(BeEmpty())
			Expect(result.Decisions).To(BeEmpty())
		})
	})

	Describe("a signal fetch failing for one namespace", func() {
		It("still classifies the other namespace", func() {
			prober.errs["staging-broken"] = errors.New("dial tcp: connection refused")
			prober.signals["staging-orphan"] = allSignals(activity.NotObserved)

			result, err := reclaim.NewPlanner(prober).Plan(ctx, reclaim.Snapshot{
				Namespaces: []namespace.Namespace{active("staging-broken"), active("staging-orphan")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Delete).To(Equal([]string{"staging-orphan"}))

			skip, ok := result.Skip("staging-broken")
			Expect(ok).To(BeTrue())
			Expect(skip.Reason).To(Equal(reclaim.SkipProbeError))
			Expect(skip.Err).To(MatchError(ContainSubstring("connection refused")))

			_, evaluated := result.Decision("staging-broken")
			Expect(evaluated).To(BeFalse())
		})
	})

	Describe("Idempotence", func() {
		It("produces the same plan for identical inputs", func() {
			prober.signals["staging-a"] = allSignals(activity.NotObserved)
			prober.signals["staging-b"] = allSignals(activity.Observed)
			prober.signals["staging-c"] = allSignals(activity.NotObserved)
			prober.signals["staging-main"] = allSignals(activity.NotObserved)

			snapshot := reclaim.Snapshot{
				Branches: []string{"main"},
				Namespaces: []namespace.Namespace{
					active("staging-c"),
					active("staging-a"),
					active("staging-b"),
					active("staging-main"),
				},
			}
			planner := reclaim.NewPlanner(prober, reclaim.WithConcurrency(2))

			first, err := planner.Plan(ctx, snapshot)
			Expect(err).NotTo(HaveOccurred())
			second, err := planner.Plan(ctx, snapshot)
			Expect(err).NotTo(HaveOccurred())

			Expect(first.Delete).To(Equal([]string{"staging-a", "staging-c"}))
			Expect(second.Delete).To(Equal(first.Delete))
		})
	})

	Describe("Cancellation", func() {
		It("fails when the context is already done", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := reclaim.NewPlanner(prober).Plan(cancelled, reclaim.Snapshot{
				Namespaces: []namespace.Namespace{active("staging-a")},
			})
			Expect(err).To(MatchError(context.Canceled))
		})

		It("excludes namespaces whose probes are interrupted", func() {
			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			blocking := activity.ProberFunc(func(pctx context.Context, name string, _ time.Duration) ([]activity.Signal, error) {
				if name == "staging-fast" {
					return allSignals(activity.NotObserved), nil
				}
				cancel()
				<-pctx.Done()
				return nil, pctx.Err()
			})

			result, err := reclaim.NewPlanner(blocking, reclaim.WithConcurrency(1)).Plan(runCtx, reclaim.Snapshot{
				Namespaces: []namespace.Namespace{active("staging-fast"), active("staging-slow")},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Delete).To(Equal([]string{"staging-fast"}))

			skip, ok := result.Skip("staging-slow")
			Expect(ok).To(BeTrue())
			Expect(skip.Reason).To(Equal(reclaim.SkipCancelled))
		})
	})
})
