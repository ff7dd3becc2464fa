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

package github

import (
	"context"
	"sort"
)

// Client interface defines the contract for interacting with GitHub API
type Client interface {
	// ListBranches returns the name of every branch in a repository
	ListBranches(ctx context.Context, owner, repo string) ([]string, error)
}

// BranchLister reports the branches that currently exist. It is the only
// view of source control a sweep needs.
type BranchLister interface {
	Branches(ctx context.Context) ([]string, error)
}

// RepositoryBranches lists branches of a single repository through a Client.
type RepositoryBranches struct {
	Client Client
	Owner  string
	Repo   string
}

// Branches implements BranchLister
func (r *RepositoryBranches) Branches(ctx context.Context) ([]string, error) {
	return r.Client.ListBranches(ctx, r.Owner, r.Repo)
}

// StaticBranches is a fixed branch list, used when no repository is configured.
type StaticBranches []string

// Branches implements BranchLister
func (s StaticBranches) Branches(_ context.Context) ([]string, error) {
	out := make([]string, len(s))
	copy(out, s)
	sort.Strings(out)
	return out, nil
}
