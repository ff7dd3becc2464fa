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

// Package cost estimates what a preview namespace costs to keep running.
//
// The estimate is based on the resource requests of the namespace's pods:
//
//	CPU Cost = (Total CPU Cores) x (CPU Price Per Hour)
//	Memory Cost = (Total Memory GB) x (Memory Price Per GB-Hour)
//	Hourly Cost = CPU Cost + Memory Cost
//
// Pods that have finished (Succeeded or Failed) hold no resources and are
// not counted. A sweep reports the summed hourly cost of the namespaces it
// deletes as the cost it reclaimed.
//
// Default Pricing:
//
//   - CPU: $0.04 per core per hour
//   - Memory: $0.005 per GB per hour
//
// Example usage:
//
//	estimator := cost.NewEstimator(k8sClient, cost.DefaultConfig())
//	hourly, err := estimator.HourlyCost(ctx, "staging-my-branch")
package cost
