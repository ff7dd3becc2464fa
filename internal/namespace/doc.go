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

// Package namespace lists and tears down preview environment namespaces.
//
// This package is the cluster-facing side of a sweep: it reports which preview
// namespaces exist, in which lifecycle phase, and deletes the ones a reclaim
// plan selects.
//
// # Preview Namespaces
//
// A namespace is a preview namespace when its name starts with the configured
// prefix (default "staging-") and, if a label selector is configured, it
// matches that selector.
//
// # Lifecycle Phase
//
// The phase reported by the cluster is mapped onto an explicit enumeration:
//
//   - PhaseActive: the namespace is live and may be evaluated
//   - PhaseTerminating: deletion is in progress (also used when a deletion
//     timestamp is set while the phase still reads Active)
//   - PhaseUnknown: anything else, including an empty phase
//
// Only PhaseActive namespaces are ever considered for deletion.
//
// # Deletion
//
// Deleting a preview namespace removes the helm release and every workload in
// it through namespace garbage collection. Deletion is idempotent:
//
//   - a namespace that no longer exists is a no-op
//   - a namespace that is already terminating is a no-op
//   - a namespace labeled "preview.gitpod.io/do-not-delete=true" is refused
//     with ErrProtected
//
// # Usage Example
//
//	mgr := namespace.NewManager(k8sClient, namespace.Options{Prefix: "staging-"})
//
//	namespaces, err := mgr.ListPreviewNamespaces(ctx)
//	if err != nil {
//	    return err
//	}
//
//	for _, ns := range namespaces {
//	    if ns.Phase != namespace.PhaseActive {
//	        continue
//	    }
//	    // evaluate ns.Name
//	}
//
//	err = mgr.Delete(ctx, "staging-orphan")
//	if errors.Is(err, namespace.ErrProtected) {
//	    // skipped by label
//	}
package namespace
