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

// Package activity decides whether a preview namespace is idle.
//
// A namespace is probed for several independent activity signals, each
// evaluated against the same staleness window (24 hours by default):
//
//   - RecentWorkspaceInstance: a workspace instance was created
//   - RecentUserSignup: a user signed up
//   - RecentHeartbeat: a workspace instance user was last seen
//
// Every signal resolves to Observed, NotObserved, or Unavailable (the probe
// could not look, for example because the database pod is not running).
//
// Idleness Rule:
//
// A namespace is idle only when every signal is NotObserved. An empty signal
// list, any Observed signal, or a signal checked against a shorter window than
// requested is never idle. Unavailable signals keep the namespace unless the
// Evaluator is configured with UnavailableAsIdle.
//
// Example usage:
//
//	eval := activity.Evaluator{}
//	signals, err := prober.Probe(ctx, "staging-main", 24*time.Hour)
//	if err != nil {
//		return err // hard probe error, not a negative result
//	}
//	if eval.IsIdle(signals, 24*time.Hour) {
//		// eligible for deletion
//	}
package activity
