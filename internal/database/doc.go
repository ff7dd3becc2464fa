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

// Package database probes a preview environment's MySQL database for recent
// activity.
//
// Every preview namespace runs its own database in pod "mysql-0", reachable at
// db.<namespace>.svc.cluster.local:3306. The password is read from the
// "mysql-password" key of secret "db-password" in the same namespace.
//
// Three signals are checked concurrently, each with a parameterized query
// against the same lookback window:
//
//	RecentWorkspaceInstance  d_b_workspace_instance.creationTime
//	RecentUserSignup         d_b_user.creationDate
//	RecentHeartbeat          d_b_workspace_instance_user.lastSeen
//
// A database pod that does not exist or is not Running yields Unavailable
// signals and no error. Connection and query failures are returned as errors
// so the caller can exclude the namespace instead of mistaking the failure
// for inactivity. Transient connection errors (refused, reset, bad
// connection) are retried with exponential backoff before giving up.
//
// Example usage:
//
//	prober := database.NewProber(k8sClient, database.DefaultConfig())
//	signals, err := prober.Probe(ctx, "staging-main", 24*time.Hour)
package database
