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

package activity

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultWindow is the staleness window applied to every signal kind.
const DefaultWindow = 24 * time.Hour

// Kind identifies an activity signal.
type Kind string

const (
	// KindRecentWorkspaceInstance is a workspace instance created within the window
	KindRecentWorkspaceInstance Kind = "RecentWorkspaceInstance"
	// KindRecentUserSignup is a user created within the window
	KindRecentUserSignup Kind = "RecentUserSignup"
	// KindRecentHeartbeat is a workspace heartbeat seen within the window
	KindRecentHeartbeat Kind = "RecentHeartbeat"
)

// AllKinds lists every signal kind a full probe reports.
var AllKinds = []Kind{
	KindRecentWorkspaceInstance,
	KindRecentUserSignup,
	KindRecentHeartbeat,
}

// Outcome is the result of probing one signal.
type Outcome int

const (
	// NotObserved means no activity was found within the window
	NotObserved Outcome = iota
	// Observed means activity was found within the window
	Observed
	// Unavailable means the probe could not look
	Unavailable
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case NotObserved:
		return "NotObserved"
	case Observed:
		return "Observed"
	case Unavailable:
		return "Unavailable"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Signal is one probe result for a namespace.
type Signal struct {
	Kind    Kind
	Outcome Outcome
	// Window is the lookback the probe was evaluated against
	Window time.Duration
	// Reason explains an Unavailable outcome
	Reason string
}

// Prober collects activity signals for a namespace.
//
// An error return is a hard probe failure (connection refused, query error).
// A database that is simply not running is reported as Unavailable signals
// with a nil error.
type Prober interface {
	Probe(ctx context.Context, namespace string, window time.Duration) ([]Signal, error)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, namespace string, window time.Duration) ([]Signal, error)

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context, namespace string, window time.Duration) ([]Signal, error) {
	return f(ctx, namespace, window)
}

// UnavailableSignals returns one Unavailable signal per kind.
func UnavailableSignals(window time.Duration, reason string) []Signal {
	signals := make([]Signal, 0, len(AllKinds))
	for _, kind := range AllKinds {
		signals = append(signals, Signal{
			Kind:    kind,
			Outcome: Unavailable,
			Window:  window,
			Reason:  reason,
		})
	}
	return signals
}

// Summarize renders signals as "Kind=Outcome" pairs for logging.
func Summarize(signals []Signal) string {
	if len(signals) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(signals))
	for _, s := range signals {
		part := fmt.Sprintf("%s=%s", s.Kind, s.Outcome)
		if s.Reason != "" {
			part += fmt.Sprintf("(%s)", s.Reason)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ",")
}
