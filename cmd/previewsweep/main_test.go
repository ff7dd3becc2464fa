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

package main

import (
	"testing"

	"github.com/mikelane/previewsweep/internal/config"
	"github.com/mikelane/previewsweep/internal/github"
)

func TestBranchLister(t *testing.T) {
	t.Run("static list without repository", func(t *testing.T) {
		cfg := config.Default()
		cfg.Branches = []string{"main"}

		lister, err := branchLister(cfg)
		if err != nil {
			t.Fatalf("branchLister() unexpected error: %v", err)
		}
		if _, ok := lister.(github.StaticBranches); !ok {
			t.Errorf("branchLister() = %T, want github.StaticBranches", lister)
		}
	})

	t.Run("repository lister", func(t *testing.T) {
		cfg := config.Default()
		cfg.Repository = "gitpod-io/gitpod"
		cfg.GitHubURL = "https://github.example.com/api/v3"

		lister, err := branchLister(cfg)
		if err != nil {
			t.Fatalf("branchLister() unexpected error: %v", err)
		}
		repo, ok := lister.(*github.RepositoryBranches)
		if !ok {
			t.Fatalf("branchLister() = %T, want *github.RepositoryBranches", lister)
		}
		if repo.Owner != "gitpod-io" || repo.Repo != "gitpod" {
			t.Errorf("branchLister() owner/repo = %s/%s, want gitpod-io/gitpod", repo.Owner, repo.Repo)
		}
	})

	t.Run("malformed repository", func(t *testing.T) {
		cfg := config.Default()
		cfg.Repository = "gitpod"

		if _, err := branchLister(cfg); err == nil {
			t.Error("branchLister() expected error, got nil")
		}
	})
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"dry-run", "window", "policy", "repository", "branches", "interval", "pushgateway-url", "zap-devel"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("flag --%s is not defined", name)
		}
	}
}
