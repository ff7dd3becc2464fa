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

package namespace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/validation"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const (
	// DefaultPrefix is the name prefix shared by all preview namespaces
	DefaultPrefix = "staging-"

	// DoNotDeleteLabel exempts a namespace from deletion when set to "true"
	DoNotDeleteLabel = "preview.gitpod.io/do-not-delete"
)

// ErrProtected is returned when deleting a namespace carrying DoNotDeleteLabel.
var ErrProtected = errors.New("namespace is protected from deletion")

// Phase is the lifecycle phase of a preview namespace.
type Phase string

const (
	// PhaseActive means the namespace is live
	PhaseActive Phase = "Active"
	// PhaseTerminating means the namespace is being deleted
	PhaseTerminating Phase = "Terminating"
	// PhaseUnknown covers any phase the cluster reports that is not recognized
	PhaseUnknown Phase = "Unknown"
)

// ParsePhase maps the cluster-reported phase onto Phase.
func ParsePhase(p corev1.NamespacePhase) Phase {
	switch p {
	case corev1.NamespaceActive:
		return PhaseActive
	case corev1.NamespaceTerminating:
		return PhaseTerminating
	default:
		return PhaseUnknown
	}
}

// Namespace is a preview namespace observed at list time.
type Namespace struct {
	Name      string
	Phase     Phase
	CreatedAt time.Time
	Labels    map[string]string
}

// Options configures which namespaces a Manager treats as previews.
type Options struct {
	// Prefix every preview namespace name starts with. Defaults to DefaultPrefix.
	Prefix string
	// LabelSelector optionally narrows the namespaces listed
	LabelSelector string
	// ReleaseLabel is the label key whose value names the preview namespace
	// on cluster-scoped objects of its release. Empty skips their cleanup.
	ReleaseLabel string
}

// Manager lists and deletes preview namespaces.
type Manager struct {
	client       client.Client
	prefix       string
	selector     labels.Selector
	releaseLabel string
}

// NewManager creates a new namespace manager. An invalid label selector
// matches nothing; use ValidateSelector to check it up front.
func NewManager(c client.Client, opts Options) *Manager {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	selector := labels.Everything()
	if opts.LabelSelector != "" {
		parsed, err := labels.Parse(opts.LabelSelector)
		if err != nil {
			selector = labels.Nothing()
		} else {
			selector = parsed
		}
	}

	return &Manager{
		client:       c,
		prefix:       prefix,
		selector:     selector,
		releaseLabel: opts.ReleaseLabel,
	}
}

// ValidateSelector reports whether a label selector string parses.
func ValidateSelector(selector string) error {
	if selector == "" {
		return nil
	}
	if _, err := labels.Parse(selector); err != nil {
		return fmt.Errorf("invalid label selector %q: %w", selector, err)
	}
	return nil
}

// ValidateReleaseLabel reports whether a release label key is usable.
func ValidateReleaseLabel(key string) error {
	if key == "" {
		return nil
	}
	if errs := validation.IsQualifiedName(key); len(errs) > 0 {
		return fmt.Errorf("invalid release label %q: %s", key, strings.Join(errs, "; "))
	}
	return nil
}

// ListPreviewNamespaces returns every preview namespace with its phase,
// sorted by name.
func (m *Manager) ListPreviewNamespaces(ctx context.Context) ([]Namespace, error) {
	var nsList corev1.NamespaceList
	if err := m.client.List(ctx, &nsList, client.MatchingLabelsSelector{Selector: m.selector}); err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}

	previews := make([]Namespace, 0, len(nsList.Items))
	for i := range nsList.Items {
		ns := &nsList.Items[i]
		if !strings.HasPrefix(ns.Name, m.prefix) {
			continue
		}
		previews = append(previews, Namespace{
			Name:      ns.Name,
			Phase:     phaseOf(ns),
			CreatedAt: ns.CreationTimestamp.Time,
			Labels:    ns.Labels,
		})
	}

	sort.Slice(previews, func(i, j int) bool {
		return previews[i].Name < previews[j].Name
	})

	return previews, nil
}

// Delete tears down a preview namespace and everything in it, plus the
// cluster roles and bindings its release labelled with ReleaseLabel.
// Deleting a namespace that is gone is a no-op; one already terminating only
// gets its cluster-scoped leftovers removed.
func (m *Manager) Delete(ctx context.Context, name string) error {
	if !strings.HasPrefix(name, m.prefix) {
		return fmt.Errorf("refusing to delete %s: not a preview namespace", name)
	}

	ns := &corev1.Namespace{}
	err := m.client.Get(ctx, types.NamespacedName{Name: name}, ns)
	if err != nil {
		if apierrors.IsNotFound(err) {
			// Namespace already deleted
			return nil
		}
		return fmt.Errorf("failed to get namespace %s: %w", name, err)
	}

	if phaseOf(ns) == PhaseTerminating {
		return m.deleteClusterScoped(ctx, name)
	}

	if ns.Labels[DoNotDeleteLabel] == "true" {
		return fmt.Errorf("%s: %w", name, ErrProtected)
	}

	// Background propagation lets the cluster garbage collect the release
	// and its workloads after the namespace is gone
	err = m.client.Delete(ctx, ns, client.PropagationPolicy(metav1.DeletePropagationBackground))
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete namespace %s: %w", name, err)
	}

	return m.deleteClusterScoped(ctx, name)
}

// deleteClusterScoped removes the objects namespace deletion cannot reach.
func (m *Manager) deleteClusterScoped(ctx context.Context, name string) error {
	if m.releaseLabel == "" {
		return nil
	}

	kinds := []struct {
		kind string
		obj  client.Object
	}{
		{kind: "ClusterRoleBinding", obj: &rbacv1.ClusterRoleBinding{}},
		{kind: "ClusterRole", obj: &rbacv1.ClusterRole{}},
	}
	for _, k := range kinds {
		err := m.client.DeleteAllOf(ctx, k.obj, client.MatchingLabels{m.releaseLabel: name})
		if err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("failed to delete %s objects of %s: %w", k.kind, name, err)
		}
	}
	return nil
}

// Prefix returns the preview namespace name prefix.
func (m *Manager) Prefix() string {
	return m.prefix
}

// phaseOf treats a namespace with a deletion timestamp as terminating even
// when the reported phase has not caught up yet.
func phaseOf(ns *corev1.Namespace) Phase {
	if ns.DeletionTimestamp != nil {
		return PhaseTerminating
	}
	return ParsePhase(ns.Status.Phase)
}
