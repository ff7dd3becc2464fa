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

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mikelane/previewsweep/internal/activity"
	"github.com/mikelane/previewsweep/internal/cluster"
	"github.com/mikelane/previewsweep/internal/cost"
	"github.com/mikelane/previewsweep/internal/database"
	"github.com/mikelane/previewsweep/internal/namespace"
	"github.com/mikelane/previewsweep/internal/reclaim"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "PREVIEWSWEEP"

// Config holds all runtime configuration for a sweep.
type Config struct {
	ConfigFile string `mapstructure:"config"`

	Kubeconfig  string  `mapstructure:"kubeconfig"`
	KubeContext string  `mapstructure:"kube-context"`
	KubeQPS     float32 `mapstructure:"kube-qps"`
	KubeBurst   int     `mapstructure:"kube-burst"`

	NamespacePrefix string `mapstructure:"namespace-prefix"`
	LabelSelector   string `mapstructure:"label-selector"`
	ReleaseLabel    string `mapstructure:"release-label"`

	// Repository is the GitHub repository in owner/repo form
	Repository  string   `mapstructure:"repository"`
	GitHubToken string   `mapstructure:"github-token"`
	GitHubURL   string   `mapstructure:"github-url"`
	Branches    []string `mapstructure:"branches"`

	Window            time.Duration `mapstructure:"window"`
	Policy            string        `mapstructure:"policy"`
	Concurrency       int           `mapstructure:"concurrency"`
	UnavailableAsIdle bool          `mapstructure:"unavailable-as-idle"`

	DryRun        bool `mapstructure:"dry-run"`
	DeleteWorkers int  `mapstructure:"delete-workers"`
	// Interval repeats the sweep when positive; zero runs once and exits
	Interval time.Duration `mapstructure:"interval"`

	DBPod             string        `mapstructure:"db-pod"`
	DBSecret          string        `mapstructure:"db-secret"`
	DBSecretKey       string        `mapstructure:"db-secret-key"`
	DBUser            string        `mapstructure:"db-user"`
	DBName            string        `mapstructure:"db-name"`
	DBHostTemplate    string        `mapstructure:"db-host-template"`
	DBPort            int           `mapstructure:"db-port"`
	DBConnectTimeout  time.Duration `mapstructure:"db-connect-timeout"`
	DBRetryMaxElapsed time.Duration `mapstructure:"db-retry-max-elapsed"`

	PushgatewayURL string `mapstructure:"pushgateway-url"`
	MetricsJob     string `mapstructure:"metrics-job"`

	CostCPUPerHour      float64 `mapstructure:"cost-cpu-per-hour"`
	CostMemoryPerGBHour float64 `mapstructure:"cost-memory-per-gb-hour"`
	CostCurrency        string  `mapstructure:"cost-currency"`

	// WebhookAddr serves GitHub webhooks when set; interval mode only
	WebhookAddr   string `mapstructure:"webhook-addr"`
	WebhookSecret string `mapstructure:"webhook-secret"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	db := database.DefaultConfig()
	pricing := cost.DefaultConfig()
	return Config{
		NamespacePrefix:     namespace.DefaultPrefix,
		Window:              activity.DefaultWindow,
		Policy:              string(reclaim.PolicyOrphanedOnly),
		Concurrency:         reclaim.DefaultConcurrency,
		DeleteWorkers:       5,
		DBPod:               db.PodName,
		DBSecret:            db.SecretName,
		DBSecretKey:         db.SecretKey,
		DBUser:              db.User,
		DBName:              db.Database,
		DBHostTemplate:      db.HostTemplate,
		DBPort:              db.Port,
		DBConnectTimeout:    db.ConnectTimeout,
		DBRetryMaxElapsed:   db.RetryMaxElapsed,
		MetricsJob:          "previewsweep",
		CostCPUPerHour:      pricing.CPUCostPerHour,
		CostMemoryPerGBHour: pricing.MemoryCostPerHour,
		CostCurrency:        pricing.Currency,
	}
}

// BindFlags defines one flag per setting on fs.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()

	fs.String("config", "", "config file (yaml, json or toml)")

	fs.String("kubeconfig", "", "path to a kubeconfig; empty uses the default loading rules")
	fs.String("kube-context", "", "kubeconfig context to use")
	fs.Float32("kube-qps", d.KubeQPS, "client-side QPS limit for the Kubernetes API (0 keeps the client default)")
	fs.Int("kube-burst", d.KubeBurst, "client-side burst limit for the Kubernetes API (0 keeps the client default)")

	fs.String("namespace-prefix", d.NamespacePrefix, "name prefix of preview namespaces")
	fs.String("label-selector", "", "optional label selector narrowing the preview namespaces")
	fs.String("release-label", "", "label key naming the preview namespace on cluster roles and bindings to delete with it")

	fs.String("repository", "", "GitHub repository whose branches back previews, as owner/repo")
	fs.String("github-token", "", "GitHub token used to list branches")
	fs.String("github-url", "", "GitHub API base URL for GitHub Enterprise")
	fs.StringSlice("branches", nil, "fixed branch list, used when no repository is set")

	fs.Duration("window", d.Window, "activity window; namespaces without activity inside it are idle")
	fs.String("policy", d.Policy, "which idle namespaces to delete: orphaned-only or all-idle")
	fs.Int("concurrency", d.Concurrency, "namespaces probed concurrently")
	fs.Bool("unavailable-as-idle", false, "treat namespaces whose database cannot be reached as idle")

	fs.Bool("dry-run", false, "plan and report without deleting")
	fs.Int("delete-workers", d.DeleteWorkers, "namespaces deleted concurrently")
	fs.Duration("interval", 0, "repeat the sweep at this interval; 0 runs once")

	fs.String("db-pod", d.DBPod, "database pod name inside each preview namespace")
	fs.String("db-secret", d.DBSecret, "secret holding the database password")
	fs.String("db-secret-key", d.DBSecretKey, "key of the password in the database secret")
	fs.String("db-user", d.DBUser, "database user")
	fs.String("db-name", d.DBName, "database name")
	fs.String("db-host-template", d.DBHostTemplate, "database host, formatted with the namespace name")
	fs.Int("db-port", d.DBPort, "database port")
	fs.Duration("db-connect-timeout", d.DBConnectTimeout, "database dial timeout")
	fs.Duration("db-retry-max-elapsed", d.DBRetryMaxElapsed, "total time spent retrying a database connection")

	fs.String("pushgateway-url", "", "Prometheus Pushgateway to push sweep metrics to")
	fs.String("metrics-job", d.MetricsJob, "job label for pushed metrics")

	fs.Float64("cost-cpu-per-hour", d.CostCPUPerHour, "price of one requested CPU core per hour")
	fs.Float64("cost-memory-per-gb-hour", d.CostMemoryPerGBHour, "price of one requested GB of memory per hour")
	fs.String("cost-currency", d.CostCurrency, "currency of the cost estimates")

	fs.String("webhook-addr", "", "listen address for GitHub delete webhooks, e.g. :8080 (requires --interval)")
	fs.String("webhook-secret", "", "secret used to verify GitHub webhook signatures")
}

// Load reads configuration from v, applying built-in defaults for any
// values not set by flags, environment or config file. fs may be nil.
func Load(v *viper.Viper, fs *pflag.FlagSet) (Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Config{}, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return cfg, nil
}

// keys lists every setting so environment variables are seen by Unmarshal
// even when no flag or default registers the key.
var keys = []string{
	"config",
	"kubeconfig", "kube-context", "kube-qps", "kube-burst",
	"namespace-prefix", "label-selector", "release-label",
	"repository", "github-token", "github-url", "branches",
	"window", "policy", "concurrency", "unavailable-as-idle",
	"dry-run", "delete-workers", "interval",
	"db-pod", "db-secret", "db-secret-key", "db-user", "db-name",
	"db-host-template", "db-port", "db-connect-timeout", "db-retry-max-elapsed",
	"pushgateway-url", "metrics-job",
	"cost-cpu-per-hour", "cost-memory-per-gb-hour", "cost-currency",
	"webhook-addr", "webhook-secret",
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("namespace-prefix", d.NamespacePrefix)
	v.SetDefault("window", d.Window)
	v.SetDefault("policy", d.Policy)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("delete-workers", d.DeleteWorkers)
	v.SetDefault("db-pod", d.DBPod)
	v.SetDefault("db-secret", d.DBSecret)
	v.SetDefault("db-secret-key", d.DBSecretKey)
	v.SetDefault("db-user", d.DBUser)
	v.SetDefault("db-name", d.DBName)
	v.SetDefault("db-host-template", d.DBHostTemplate)
	v.SetDefault("db-port", d.DBPort)
	v.SetDefault("db-connect-timeout", d.DBConnectTimeout)
	v.SetDefault("db-retry-max-elapsed", d.DBRetryMaxElapsed)
	v.SetDefault("metrics-job", d.MetricsJob)
	v.SetDefault("cost-cpu-per-hour", d.CostCPUPerHour)
	v.SetDefault("cost-memory-per-gb-hour", d.CostMemoryPerGBHour)
	v.SetDefault("cost-currency", d.CostCurrency)
}

// Validate rejects settings a sweep cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.Window <= 0 {
		errs = append(errs, fmt.Errorf("window must be positive, got %s", c.Window))
	}
	if _, err := reclaim.ParsePolicy(c.Policy); err != nil {
		errs = append(errs, err)
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.DeleteWorkers < 1 {
		errs = append(errs, fmt.Errorf("delete-workers must be at least 1, got %d", c.DeleteWorkers))
	}
	if c.Interval < 0 {
		errs = append(errs, fmt.Errorf("interval must not be negative, got %s", c.Interval))
	}
	if c.NamespacePrefix == "" {
		errs = append(errs, errors.New("namespace-prefix must not be empty"))
	}
	if err := namespace.ValidateSelector(c.LabelSelector); err != nil {
		errs = append(errs, err)
	}
	if err := namespace.ValidateReleaseLabel(c.ReleaseLabel); err != nil {
		errs = append(errs, err)
	}
	if c.CostCPUPerHour < 0 || c.CostMemoryPerGBHour < 0 {
		errs = append(errs, errors.New("cost prices must not be negative"))
	}
	if c.DBPort <= 0 || c.DBPort > 65535 {
		errs = append(errs, fmt.Errorf("db-port out of range: %d", c.DBPort))
	}

	if c.WebhookAddr != "" {
		if c.Interval == 0 {
			errs = append(errs, errors.New("webhook-addr requires a positive interval"))
		}
		if c.WebhookSecret == "" {
			errs = append(errs, errors.New("webhook-addr requires webhook-secret"))
		}
	}

	// An empty branch list would make every idle preview look orphaned.
	switch {
	case c.Repository != "":
		if _, _, err := splitRepository(c.Repository); err != nil {
			errs = append(errs, err)
		}
	case len(c.Branches) == 0:
		errs = append(errs, errors.New("either repository or branches must be set"))
	}

	return errors.Join(errs...)
}

// RepositoryParts splits the configured repository into owner and name.
func (c Config) RepositoryParts() (owner, repo string, err error) {
	return splitRepository(c.Repository)
}

func splitRepository(s string) (string, string, error) {
	owner, repo, ok := strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("repository must be in owner/repo form, got %q", s)
	}
	return owner, repo, nil
}

// ReclaimPolicy returns the parsed deletion policy.
func (c Config) ReclaimPolicy() reclaim.Policy {
	policy, err := reclaim.ParsePolicy(c.Policy)
	if err != nil {
		return reclaim.PolicyOrphanedOnly
	}
	return policy
}

// Session returns the cluster connection settings.
func (c Config) Session() cluster.SessionConfig {
	return cluster.SessionConfig{
		Kubeconfig: c.Kubeconfig,
		Context:    c.KubeContext,
		QPS:        c.KubeQPS,
		Burst:      c.KubeBurst,
	}
}

// Namespaces returns the preview namespace selection.
func (c Config) Namespaces() namespace.Options {
	return namespace.Options{
		Prefix:        c.NamespacePrefix,
		LabelSelector: c.LabelSelector,
		ReleaseLabel:  c.ReleaseLabel,
	}
}

// Pricing returns the cost estimation prices.
func (c Config) Pricing() cost.Config {
	return cost.Config{
		Currency:          c.CostCurrency,
		CPUCostPerHour:    c.CostCPUPerHour,
		MemoryCostPerHour: c.CostMemoryPerGBHour,
	}
}

// Database returns the per-namespace database layout.
func (c Config) Database() database.Config {
	return database.Config{
		PodName:         c.DBPod,
		SecretName:      c.DBSecret,
		SecretKey:       c.DBSecretKey,
		User:            c.DBUser,
		Database:        c.DBName,
		HostTemplate:    c.DBHostTemplate,
		Port:            c.DBPort,
		ConnectTimeout:  c.DBConnectTimeout,
		RetryMaxElapsed: c.DBRetryMaxElapsed,
	}
}
