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
	"fmt"
	"time"

	"github.com/mikelane/previewsweep/internal/activity"
	"github.com/mikelane/previewsweep/internal/namespace"
	"github.com/mikelane/previewsweep/internal/naming"
)

// Policy selects which idle namespaces are deleted.
type Policy string

const (
	// PolicyOrphanedOnly deletes idle namespaces that back no known branch
	PolicyOrphanedOnly Policy = "orphaned-only"
	// PolicyAllIdle deletes every idle namespace, even ones backing a branch
	PolicyAllIdle Policy = "all-idle"
)

// ParsePolicy converts a configuration string to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyOrphanedOnly, PolicyAllIdle:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unknown reclaim policy %q (want %q or %q)", s, PolicyOrphanedOnly, PolicyAllIdle)
	}
}

// Verdict is the outcome for one evaluated namespace.
type Verdict string

const (
	// VerdictKeep leaves the namespace alone
	VerdictKeep Verdict = "Keep"
	// VerdictDelete selects the namespace for deletion
	VerdictDelete Verdict = "Delete"
)

// Reason explains a Verdict.
type Reason string

const (
	// ReasonNotIdle means activity was seen or idleness could not be proven
	ReasonNotIdle Reason = "not-idle"
	// ReasonExpected means the namespace is idle but backs a known branch
	ReasonExpected Reason = "expected"
	// ReasonIdle means the namespace is idle and selected for deletion
	ReasonIdle Reason = "idle"
)

// SkipReason explains why a namespace was not evaluated.
type SkipReason string

const (
	// SkipPhase means the namespace was not Active
	SkipPhase SkipReason = "phase"
	// SkipProbeError means fetching its signals failed
	SkipProbeError SkipReason = "probe-error"
	// SkipCancelled means the run was cancelled before evaluation finished
	SkipCancelled SkipReason = "cancelled"
)

// Snapshot is the input of one plan. Branches and Namespaces must be
// observed at the same logical tick.
type Snapshot struct {
	Branches   []string
	Namespaces []namespace.Namespace
	ObservedAt time.Time
}

// Decision is the verdict for one evaluated namespace with its evidence.
type Decision struct {
	Namespace string
	Verdict   Verdict
	Reason    Reason
	Idle      bool
	Expected  bool
	Signals   []activity.Signal
}

// Skip records a namespace excluded from evaluation.
type Skip struct {
	Namespace string
	Phase     namespace.Phase
	Reason    SkipReason
	Err       error
}

// Result is the outcome of one plan.
type Result struct {
	ObservedAt time.Time
	Expected   naming.Set
	Decisions  []Decision
	Skipped    []Skip
	// Delete lists the namespaces to delete in lexical order
	Delete []string
}

// Decision returns the decision for a namespace, if it was evaluated.
func (r *Result) Decision(name string) (Decision, bool) {
	for _, d := range r.Decisions {
		if d.Namespace == name {
			return d, true
		}
	}
	return Decision{}, false
}

// Skip returns the skip record for a namespace, if it was skipped.
func (r *Result) Skip(name string) (Skip, bool) {
	for _, s := range r.Skipped {
		if s.Namespace == name {
			return s, true
		}
	}
	return Skip{}, false
}
