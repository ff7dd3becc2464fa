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

// Package webhook triggers sweeps from GitHub branch deletions.
//
// When previewsweep runs on an interval, a branch deleted between two ticks
// leaves its preview orphaned until the next tick. The webhook server closes
// that gap: a GitHub "delete" event for a branch of the watched repository
// requests an immediate sweep.
//
// Webhook Security:
//
// All webhook requests must include a valid X-Hub-Signature-256 header containing
// an HMAC-SHA256 signature computed with the webhook secret. Requests with invalid
// or missing signatures are rejected with HTTP 401.
//
// Event Handling:
//   - delete with ref_type "branch": requests a sweep, responds 202
//   - ping: responds 200
//   - any other event or ref type: ignored, responds 200
//
// Rate Limiting:
//
// Sweep requests are rate-limited per repository using a token bucket. A
// request over the limit receives HTTP 429; the sweep it would have asked
// for is already pending.
//
// Example usage:
//
//	server := webhook.NewServer(":8080", secret, "gitpod-io/gitpod", scheduler.Trigger)
//	if err := server.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package webhook
