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

// Package cleanup runs preview namespace sweeps.
//
// A Job performs one sweep in four logged phases:
//
//  1. fetching branches: the branch list from the configured BranchLister
//  2. fetching previews: the preview namespaces and their phases
//  3. checking activity: the reclaim plan (see package reclaim)
//  4. deleting previews: concurrent deletion of the planned namespaces
//
// A failure in the first three phases aborts the sweep before anything is
// deleted and is returned as an error. A failure to delete one namespace is
// recorded in the Report and does not stop the other deletions.
//
// Exempting Namespaces from Cleanup:
//
// A namespace labeled "preview.gitpod.io/do-not-delete" with value "true"
// is never deleted, even when it is planned for deletion. It is reported
// in Report.Protected:
//
//	kubectl label namespace staging-my-branch preview.gitpod.io/do-not-delete=true
//
// Example usage:
//
//	job := cleanup.NewJob(branches, namespaces, planner, cleanup.WithDryRun(true))
//	report, err := job.Run(ctx)
//
// For long-lived deployments a Scheduler repeats the sweep:
//
//	scheduler := cleanup.NewScheduler(job, time.Hour, cleanup.RunImmediately())
//	if err := scheduler.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package cleanup
