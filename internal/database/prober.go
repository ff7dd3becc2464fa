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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	"github.com/mikelane/previewsweep/internal/activity"
	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Config describes where a preview's database lives and how to reach it.
type Config struct {
	PodName    string
	SecretName string
	SecretKey  string
	User       string
	Database   string
	// HostTemplate is formatted with the namespace name
	HostTemplate string
	Port         int

	ConnectTimeout  time.Duration
	RetryMaxElapsed time.Duration
}

// DefaultConfig returns the layout used by preview environments.
func DefaultConfig() Config {
	return Config{
		PodName:         "mysql-0",
		SecretName:      "db-password",
		SecretKey:       "mysql-password",
		User:            "gitpod",
		Database:        "gitpod",
		HostTemplate:    "db.%s.svc.cluster.local",
		Port:            3306,
		ConnectTimeout:  10 * time.Second,
		RetryMaxElapsed: 30 * time.Second,
	}
}

// OpenFunc opens a database handle for a DSN.
type OpenFunc func(dsn string) (*sql.DB, error)

type probe struct {
	kind  activity.Kind
	query string
}

// probes run against every preview database. The window is always bound as
// a parameter.
var probes = []probe{
	{
		kind:  activity.KindRecentWorkspaceInstance,
		query: "SELECT 1 FROM d_b_workspace_instance WHERE creationTime > DATE_SUB(NOW(), INTERVAL ? HOUR) LIMIT 1",
	},
	{
		kind:  activity.KindRecentUserSignup,
		query: "SELECT 1 FROM d_b_user WHERE creationDate > DATE_SUB(NOW(), INTERVAL ? HOUR) LIMIT 1",
	},
	{
		kind:  activity.KindRecentHeartbeat,
		query: "SELECT 1 FROM d_b_workspace_instance_user WHERE lastSeen > DATE_SUB(NOW(), INTERVAL ? HOUR) LIMIT 1",
	},
}

// Prober checks a preview namespace's database for recent activity.
type Prober struct {
	client client.Client
	config Config
	open   OpenFunc
}

// Option configures a Prober.
type Option func(*Prober)

// WithOpener replaces sql.Open("mysql", dsn).
func WithOpener(open OpenFunc) Option {
	return func(p *Prober) {
		p.open = open
	}
}

// NewProber creates a prober reading pods and secrets through c.
func NewProber(c client.Client, config Config, opts ...Option) *Prober {
	p := &Prober{
		client: c,
		config: config,
		open: func(dsn string) (*sql.DB, error) {
			return sql.Open("mysql", dsn)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe returns one signal per activity kind for the namespace.
func (p *Prober) Probe(ctx context.Context, namespace string, window time.Duration) ([]activity.Signal, error) {
	logger := log.FromContext(ctx).WithValues("namespace", namespace)

	running, reason, err := p.databaseRunning(ctx, namespace)
	if err != nil {
		return nil, err
	}
	if !running {
		logger.V(1).Info("Database unavailable", "reason", reason)
		return activity.UnavailableSignals(window, reason), nil
	}

	password, err := p.password(ctx, namespace)
	if err != nil {
		return nil, err
	}

	db, err := p.open(p.dsn(namespace, password))
	if err != nil {
		return nil, fmt.Errorf("failed to open database in %s: %w", namespace, err)
	}
	defer func() { _ = db.Close() }()

	if err := p.ping(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to connect to database in %s: %w", namespace, err)
	}

	hours := windowHours(window)
	signals := make([]activity.Signal, len(probes))

	g, gctx := errgroup.WithContext(ctx)
	for i, pr := range probes {
		g.Go(func() error {
			outcome, err := queryActivity(gctx, db, pr.query, hours)
			if err != nil {
				return fmt.Errorf("failed to query %s in %s: %w", pr.kind, namespace, err)
			}
			signals[i] = activity.Signal{
				Kind:    pr.kind,
				Outcome: outcome,
				Window:  window,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.V(1).Info("Probed database", "signals", activity.Summarize(signals))
	return signals, nil
}

// databaseRunning reports whether the database pod is Running. A missing pod
// is an expected state, not an error.
func (p *Prober) databaseRunning(ctx context.Context, namespace string) (bool, string, error) {
	pod := &corev1.Pod{}
	err := p.client.Get(ctx, types.NamespacedName{Name: p.config.PodName, Namespace: namespace}, pod)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, fmt.Sprintf("pod %s not found", p.config.PodName), nil
		}
		return false, "", fmt.Errorf("failed to get pod %s/%s: %w", namespace, p.config.PodName, err)
	}

	if pod.Status.Phase != corev1.PodRunning {
		phase := string(pod.Status.Phase)
		if phase == "" {
			phase = "Unknown"
		}
		return false, fmt.Sprintf("pod %s is %s", p.config.PodName, phase), nil
	}

	return true, "", nil
}

func (p *Prober) password(ctx context.Context, namespace string) (string, error) {
	secret := &corev1.Secret{}
	err := p.client.Get(ctx, types.NamespacedName{Name: p.config.SecretName, Namespace: namespace}, secret)
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s/%s: %w", namespace, p.config.SecretName, err)
	}

	password, ok := secret.Data[p.config.SecretKey]
	if !ok {
		return "", fmt.Errorf("secret %s/%s has no key %s", namespace, p.config.SecretName, p.config.SecretKey)
	}

	return string(password), nil
}

func (p *Prober) dsn(namespace, password string) string {
	cfg := mysql.NewConfig()
	cfg.User = p.config.User
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(fmt.Sprintf(p.config.HostTemplate, namespace), strconv.Itoa(p.config.Port))
	cfg.DBName = p.config.Database
	cfg.Timeout = p.config.ConnectTimeout
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ping retries transient connection errors. The database may still be
// starting up right after its pod turned Running.
func (p *Prober) ping(ctx context.Context, db *sql.DB) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = p.config.RetryMaxElapsed

	return backoff.Retry(func() error {
		err := db.PingContext(ctx)
		if err != nil && isRetryableError(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}

func queryActivity(ctx context.Context, db *sql.DB, query string, hours int64) (activity.Outcome, error) {
	var found int
	err := db.QueryRowContext(ctx, query, hours).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return activity.NotObserved, nil
	}
	if err != nil {
		return activity.Unavailable, err
	}
	return activity.Observed, nil
}

// windowHours rounds the window up to whole hours, as MySQL intervals here
// are expressed in hours.
func windowHours(window time.Duration) int64 {
	return int64(math.Ceil(window.Hours()))
}

// isRetryableError returns true for connection errors that are likely to
// clear on their own.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	for _, transient := range []string{
		"driver: bad connection",
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
	} {
		if strings.Contains(errStr, transient) {
			return true
		}
	}
	return false
}
