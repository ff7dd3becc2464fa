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
	"testing"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
)

// TestIntegration_ListThenDelete walks a sweep's cluster side: list previews,
// delete the active ones, list again.
func TestIntegration_ListThenDelete(t *testing.T) {
	c := fake.NewClientBuilder().
		WithScheme(newScheme()).
		WithObjects(
			previewNamespace("staging-one", corev1.NamespaceActive, nil),
			previewNamespace("staging-two", corev1.NamespaceActive, nil),
			previewNamespace("staging-leaving", corev1.NamespaceTerminating, nil),
			previewNamespace("monitoring", corev1.NamespaceActive, nil),
		).
		Build()

	manager := NewManager(c, Options{})
	ctx := context.Background()

	// Step 1: list previews
	previews, err := manager.ListPreviewNamespaces(ctx)
	if err != nil {
		t.Fatalf("failed to list previews: %v", err)
	}
	if len(previews) != 3 {
		t.Fatalf("expected 3 previews, got %d", len(previews))
	}

	// Step 2: delete every active preview
	for _, ns := range previews {
		if ns.Phase != PhaseActive {
			continue
		}
		if err := manager.Delete(ctx, ns.Name); err != nil {
			t.Fatalf("failed to delete %s: %v", ns.Name, err)
		}
	}

	// Step 3: only the terminating namespace remains
	previews, err = manager.ListPreviewNamespaces(ctx)
	if err != nil {
		t.Fatalf("failed to list previews: %v", err)
	}
	if len(previews) != 1 || previews[0].Name != "staging-leaving" {
		t.Errorf("expected only staging-leaving to remain, got %+v", previews)
	}
}
