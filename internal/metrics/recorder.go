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

package metrics

import (
	"context"
	"fmt"

	"github.com/mikelane/previewsweep/internal/cleanup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "previewsweep"

// Recorder turns sweep reports into metrics.
type Recorder struct {
	registry    *prometheus.Registry
	runs        *prometheus.CounterVec
	decisions   *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	deletions   *prometheus.CounterVec
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
	reclaimed   prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Sweeps run, by result.",
		}, []string{"result"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "namespaces_evaluated_total",
			Help:      "Preview namespaces evaluated, by verdict and reason.",
		}, []string{"verdict", "reason"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "namespaces_skipped_total",
			Help:      "Preview namespaces excluded from evaluation, by reason.",
		}, []string{"reason"}),
		deletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deletions_total",
			Help:      "Preview namespace deletions, by result.",
		}, []string{"result"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last sweep.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last sweep that finished without a fatal error.",
		}),
		reclaimed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reclaimed_hourly_cost",
			Help:      "Estimated hourly cost of the namespaces deleted by the last sweep.",
		}),
	}

	r.registry.MustRegister(r.runs, r.decisions, r.skipped, r.deletions, r.duration, r.lastSuccess, r.reclaimed)
	return r
}

// Registry returns the registry holding the sweep metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRun implements cleanup.Observer.
func (r *Recorder) ObserveRun(report *cleanup.Report, err error) {
	if report != nil {
		r.duration.Set(report.Duration().Seconds())
	}
	if err != nil {
		r.runs.WithLabelValues("failed").Inc()
		return
	}
	r.runs.WithLabelValues("success").Inc()
	if report == nil {
		return
	}
	r.lastSuccess.Set(float64(report.FinishedAt.Unix()))
	r.reclaimed.Set(report.ReclaimedHourlyCost)

	if plan := report.Plan; plan != nil {
		for _, d := range plan.Decisions {
			r.decisions.WithLabelValues(string(d.Verdict), string(d.Reason)).Inc()
		}
		for _, s := range plan.Skipped {
			r.skipped.WithLabelValues(string(s.Reason)).Inc()
		}
	}

	deleted := "deleted"
	if report.DryRun {
		deleted = "dry_run"
	}
	r.deletions.WithLabelValues(deleted).Add(float64(len(report.Deleted)))
	r.deletions.WithLabelValues("protected").Add(float64(len(report.Protected)))
	r.deletions.WithLabelValues("failed").Add(float64(len(report.DeleteFailures)))
}

// Push sends the current metrics to a Pushgateway under the given job name.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
