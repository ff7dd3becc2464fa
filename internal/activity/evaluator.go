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

import "time"

// Evaluator reduces a namespace's signals to an idle verdict.
type Evaluator struct {
	// UnavailableAsIdle counts Unavailable signals as NotObserved.
	// Off by default: a probe that could not look is not evidence of idleness.
	UnavailableAsIdle bool
}

// IsIdle reports whether every signal shows no activity within window.
func (e Evaluator) IsIdle(signals []Signal, window time.Duration) bool {
	if len(signals) == 0 {
		return false
	}

	for _, s := range signals {
		if s.Window < window {
			return false
		}

		switch s.Outcome {
		case NotObserved:
			continue
		case Unavailable:
			if !e.UnavailableAsIdle {
				return false
			}
		default:
			return false
		}
	}

	return true
}
