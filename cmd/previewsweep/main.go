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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/mikelane/previewsweep/internal/activity"
	"github.com/mikelane/previewsweep/internal/cleanup"
	"github.com/mikelane/previewsweep/internal/cluster"
	"github.com/mikelane/previewsweep/internal/config"
	"github.com/mikelane/previewsweep/internal/cost"
	"github.com/mikelane/previewsweep/internal/database"
	"github.com/mikelane/previewsweep/internal/github"
	"github.com/mikelane/previewsweep/internal/metrics"
	"github.com/mikelane/previewsweep/internal/namespace"
	"github.com/mikelane/previewsweep/internal/reclaim"
	"github.com/mikelane/previewsweep/internal/webhook"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	zapOpts := zap.Options{}

	cmd := &cobra.Command{
		Use:   "previewsweep",
		Short: "Delete idle preview environment namespaces",
		Long: `previewsweep finds preview environment namespaces whose databases show no
activity inside the configured window and deletes them. By default only
namespaces that no longer back an existing branch are deleted.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl.SetLogger(zap.New(zap.UseFlagOptions(&zapOpts)))
			setupLog := ctrl.Log.WithName("setup")

			cfg, err := config.Load(v, cmd.Flags())
			if err != nil {
				setupLog.Error(err, "Failed to load configuration")
				return err
			}
			if err := cfg.Validate(); err != nil {
				setupLog.Error(err, "Invalid configuration")
				return err
			}

			return run(ctrl.SetupSignalHandler(), cfg)
		},
	}

	config.BindFlags(cmd.Flags())
	goFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	zapOpts.BindFlags(goFlags)
	cmd.Flags().AddGoFlagSet(goFlags)

	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	logger := ctrl.Log.WithName("previewsweep")
	ctx = log.IntoContext(ctx, logger)

	prepLog := logger.WithValues("phase", "prep")
	start := time.Now()
	prepLog.Info("Phase started", "dryRun", cfg.DryRun, "policy", cfg.Policy, "window", cfg.Window)

	session, err := cluster.Connect(ctx, cfg.Session())
	if err != nil {
		prepLog.Error(err, "Phase failed", "duration", time.Since(start))
		return err
	}

	branches, err := branchLister(cfg)
	if err != nil {
		prepLog.Error(err, "Phase failed", "duration", time.Since(start))
		return err
	}
	prepLog.Info("Phase finished", "duration", time.Since(start))

	planner := reclaim.NewPlanner(
		database.NewProber(session.Client, cfg.Database()),
		reclaim.WithWindow(cfg.Window),
		reclaim.WithPolicy(cfg.ReclaimPolicy()),
		reclaim.WithConcurrency(cfg.Concurrency),
		reclaim.WithEvaluator(activity.Evaluator{UnavailableAsIdle: cfg.UnavailableAsIdle}),
		reclaim.WithLogger(logger.WithName("planner")),
	)

	recorder := metrics.NewRecorder()
	job := cleanup.NewJob(
		branches,
		namespace.NewManager(session.Client, cfg.Namespaces()),
		planner,
		cleanup.WithDryRun(cfg.DryRun),
		cleanup.WithDeleteWorkers(cfg.DeleteWorkers),
		cleanup.WithObserver(recorder),
		cleanup.WithCostEstimator(cost.NewEstimator(session.Client, cfg.Pricing())),
	)
	runner := &reportingRunner{job: job, recorder: recorder, cfg: cfg}

	if cfg.Interval > 0 {
		logger.Info("Sweeping periodically", "interval", cfg.Interval)
		scheduler := cleanup.NewScheduler(runner, cfg.Interval, cleanup.RunImmediately())

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return scheduler.Start(gctx)
		})
		if cfg.WebhookAddr != "" {
			server := webhook.NewServer(cfg.WebhookAddr, cfg.WebhookSecret, cfg.Repository, scheduler.Trigger)
			g.Go(func() error {
				return server.Start(log.IntoContext(gctx, logger.WithName("webhook")))
			})
		}
		return g.Wait()
	}

	_, err = runner.Run(ctx)
	return err
}

func branchLister(cfg config.Config) (github.BranchLister, error) {
	if cfg.Repository == "" {
		return github.StaticBranches(cfg.Branches), nil
	}

	owner, repo, err := cfg.RepositoryParts()
	if err != nil {
		return nil, err
	}

	var opts []github.ClientOption
	if cfg.GitHubURL != "" {
		opts = append(opts, github.WithBaseURL(cfg.GitHubURL))
	}
	client, err := github.NewClient(cfg.GitHubToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	return &github.RepositoryBranches{Client: client, Owner: owner, Repo: repo}, nil
}

// reportingRunner logs every sweep report and pushes metrics after it.
type reportingRunner struct {
	job      *cleanup.Job
	recorder *metrics.Recorder
	cfg      config.Config
}

func (r *reportingRunner) Run(ctx context.Context) (*cleanup.Report, error) {
	logger := log.FromContext(ctx)

	report, err := r.job.Run(ctx)
	if err == nil {
		logReport(logger, report)
	}

	if r.cfg.PushgatewayURL != "" {
		// The run context may already be cancelled; metrics still go out.
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if pushErr := r.recorder.Push(pushCtx, r.cfg.PushgatewayURL, r.cfg.MetricsJob); pushErr != nil {
			logger.Error(pushErr, "Failed to push metrics")
		}
	}

	return report, err
}

func logReport(logger logr.Logger, report *cleanup.Report) {
	for _, skip := range report.Plan.Skipped {
		if skip.Err != nil {
			logger.Info("Namespace skipped", "namespace", skip.Namespace, "reason", skip.Reason, "error", skip.Err.Error())
			continue
		}
		logger.V(1).Info("Namespace skipped", "namespace", skip.Namespace, "reason", skip.Reason, "phase", skip.Phase)
	}
	for name, err := range report.DeleteFailures {
		logger.Info("Deletion failed", "namespace", name, "error", err.Error())
	}

	logger.Info("Sweep finished",
		"dryRun", report.DryRun,
		"evaluated", len(report.Plan.Decisions),
		"skipped", len(report.Plan.Skipped),
		"deleted", report.Deleted,
		"protected", report.Protected,
		"deleteFailures", len(report.DeleteFailures),
		"reclaimedHourlyCost", report.ReclaimedHourlyCost,
		"duration", report.Duration())
}
