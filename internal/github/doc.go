// MIT License
//
// Copyright (c) 2025 Mike Lane
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package github lists the branches of a repository through the GitHub API.
//
// A sweep only needs one thing from source control: the set of branches that
// exist right now. The Client fetches that set with pagination and retries;
// BranchLister abstracts over where the set comes from, so a fixed list
// (StaticBranches) can stand in when no repository is configured.
//
// Example usage:
//
//	client, err := github.NewClient(token)
//	if err != nil {
//	    return err
//	}
//	lister := &github.RepositoryBranches{Client: client, Owner: "gitpod-io", Repo: "gitpod"}
//	branches, err := lister.Branches(ctx)
//
// Rate Limiting:
//
// The GitHub API has rate limits:
//   - 5,000 requests per hour for authenticated requests
//   - 60 requests per hour for unauthenticated requests
//
// When a response reports an exhausted quota, the retry waits for the reset
// time, capped at MaxBackoff.
//
// Retry Logic:
//
// Failed requests are retried with exponential backoff and 20% jitter:
//   - Initial backoff: 100 milliseconds
//   - Maximum backoff: 30 seconds
//   - Maximum retries: 3
//
// Retries are performed for rate limits and 502/503/504 responses.
// Other client errors are returned immediately.
package github
