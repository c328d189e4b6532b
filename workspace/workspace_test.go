/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"chainguard.dev/retrocookie/gitrepo"
)

func TestWithTemporaryClone(t *testing.T) {
	source := sourceRepo(t)

	var clonePath string
	err := WithTemporaryClone(context.Background(), source, func(ctx context.Context, clone *gitrepo.Repo) error {
		clonePath = clone.Path()
		if !clone.ExistsBranch("master") {
			t.Fatal("clone is missing the master branch")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTemporaryClone: %v", err)
	}

	if _, err := os.Stat(clonePath); !os.IsNotExist(err) {
		t.Fatalf("clone still present at %s: %v", clonePath, err)
	}
}

func TestWithTemporaryCloneRemovedOnError(t *testing.T) {
	source := sourceRepo(t)
	boom := errors.New("boom")

	var clonePath string
	err := WithTemporaryClone(context.Background(), source, func(ctx context.Context, clone *gitrepo.Repo) error {
		clonePath = clone.Path()
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTemporaryClone = %v, want %v", err, boom)
	}

	if _, err := os.Stat(clonePath); !os.IsNotExist(err) {
		t.Fatalf("clone still present at %s after error: %v", clonePath, err)
	}
}

func TestWithTemporaryCloneBadURL(t *testing.T) {
	err := WithTemporaryClone(context.Background(), filepath.Join(t.TempDir(), "nope"), func(ctx context.Context, clone *gitrepo.Repo) error {
		t.Fatal("fn must not run when the clone fails")
		return nil
	})

	var verr *gitrepo.VersionControlError
	if !errors.As(err, &verr) {
		t.Fatalf("expected VersionControlError, got %v", err)
	}
}

func TestWithTemporaryRemote(t *testing.T) {
	repo := openRepo(t, sourceRepo(t))

	err := WithTemporaryRemote(context.Background(), repo, "scratch", "https://example.com/x.git", func(ctx context.Context) error {
		if !repo.HasRemote("scratch") {
			t.Fatal("remote not configured inside fn")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTemporaryRemote: %v", err)
	}

	if repo.HasRemote("scratch") {
		t.Fatal("remote still configured after fn returned")
	}
}

func TestWithTemporaryRemoteRemovedOnError(t *testing.T) {
	repo := openRepo(t, sourceRepo(t))
	boom := errors.New("boom")

	err := WithTemporaryRemote(context.Background(), repo, "scratch", "https://example.com/x.git", func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTemporaryRemote = %v, want %v", err, boom)
	}

	if repo.HasRemote("scratch") {
		t.Fatal("remote still configured after error")
	}
}

func TestWithTemporaryRemoteCollision(t *testing.T) {
	repo := openRepo(t, sourceRepo(t))
	if err := repo.AddRemote("origin", "https://example.com/theirs.git"); err != nil {
		t.Fatalf("AddRemote: %v", err)
	}

	err := WithTemporaryRemote(context.Background(), repo, "origin", "https://example.com/x.git", func(ctx context.Context) error {
		t.Fatal("fn must not run on a name collision")
		return nil
	})

	var rerr *ResourceError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected ResourceError, got %v", err)
	}
	if rerr.Name != "origin" {
		t.Fatalf("ResourceError.Name = %q", rerr.Name)
	}

	// The caller's remote is untouched.
	url, err := repo.RemoteURL("origin")
	if err != nil || url != "https://example.com/theirs.git" {
		t.Fatalf("origin changed: %q, %v", url, err)
	}
}

// sourceRepo builds a repository with one commit and returns its path.
func sourceRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if _, err := wt.Add("README.md"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	sig := &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()}
	if _, err := wt.Commit("initial", &git.CommitOptions{Author: sig, Committer: sig}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return dir
}

func openRepo(t *testing.T, path string) *gitrepo.Repo {
	t.Helper()

	repo, err := gitrepo.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return repo
}
