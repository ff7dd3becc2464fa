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

// Package reclaim decides which preview namespaces to delete.
//
// A Planner takes a Snapshot (the branch list and the live namespace list,
// both captured at one point in time) and produces a Result: one Decision per
// evaluated namespace plus the namespaces it skipped and why.
//
// Decision Procedure:
//
//  1. The expected namespace set is built from every branch under both naming
//     schemes (see package naming).
//  2. Namespaces that are not Active are skipped. They are never classified
//     and never deleted.
//  3. Active namespaces are probed concurrently. Each evaluation returns its
//     own Decision; the results are collected only after every evaluation
//     has finished.
//  4. A namespace whose signals are all NotObserved is idle. Under
//     PolicyOrphanedOnly (the default) an idle namespace that backs a known
//     branch is kept; under PolicyAllIdle it is deleted anyway.
//
// Failure Isolation:
//
// A signal fetch that fails skips only that namespace (reason SkipProbeError).
// A fetch interrupted by cancellation skips the namespace with reason
// SkipCancelled; a cancelled probe is never read as inactivity.
//
// Example usage:
//
//	planner := reclaim.NewPlanner(prober,
//		reclaim.WithWindow(24*time.Hour),
//		reclaim.WithLogger(logger),
//	)
//	result, err := planner.Plan(ctx, reclaim.Snapshot{
//		Branches:   branches,
//		Namespaces: namespaces,
//		ObservedAt: time.Now(),
//	})
//	for _, name := range result.Delete {
//		// hand off to the deleter
//	}
package reclaim
