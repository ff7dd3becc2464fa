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

// Package cluster opens an authenticated session against the Kubernetes
// cluster hosting preview environments.
package cluster

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// SessionConfig selects the cluster to connect to.
type SessionConfig struct {
	// Kubeconfig is an explicit kubeconfig path. Empty uses the default
	// loading rules ($KUBECONFIG, ~/.kube/config, then in-cluster).
	Kubeconfig string
	// Context is the kubeconfig context to use. Empty uses the current one.
	Context string
	// QPS and Burst override client-side rate limiting when non-zero
	QPS   float32
	Burst int
}

// Session is a verified handle on one cluster.
type Session struct {
	Client client.Client
	Config *rest.Config
}

// Connect builds a client for the configured cluster and verifies that the
// credentials can list namespaces. Any failure is fatal for a sweep.
func Connect(ctx context.Context, cfg SessionConfig) (*Session, error) {
	restConfig, err := restConfigFor(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load cluster credentials: %w", err)
	}

	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("failed to build scheme: %w", err)
	}

	c, err := client.New(restConfig, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create cluster client: %w", err)
	}

	session := NewSession(c, restConfig)
	if err := session.Verify(ctx); err != nil {
		return nil, err
	}

	return session, nil
}

// NewSession wraps an existing client without verifying it.
func NewSession(c client.Client, restConfig *rest.Config) *Session {
	return &Session{
		Client: c,
		Config: restConfig,
	}
}

// Verify checks that the session can list namespaces.
func (s *Session) Verify(ctx context.Context) error {
	var nsList corev1.NamespaceList
	if err := s.Client.List(ctx, &nsList, client.Limit(1)); err != nil {
		return fmt.Errorf("failed to verify cluster access: %w", err)
	}
	return nil
}

func restConfigFor(cfg SessionConfig) (*rest.Config, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if cfg.Kubeconfig != "" {
		loadingRules.ExplicitPath = cfg.Kubeconfig
	}

	overrides := &clientcmd.ConfigOverrides{}
	if cfg.Context != "" {
		overrides.CurrentContext = cfg.Context
	}

	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
	if err != nil {
		return nil, err
	}

	if cfg.QPS > 0 {
		restConfig.QPS = cfg.QPS
	}
	if cfg.Burst > 0 {
		restConfig.Burst = cfg.Burst
	}

	return restConfig, nil
}
