/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gitrepo

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// requireGit skips tests that shell out to the git binary when it is not on
// PATH, and pins the committer identity so rebases work in a bare environment.
func requireGit(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	t.Setenv("GIT_AUTHOR_NAME", "tester")
	t.Setenv("GIT_AUTHOR_EMAIL", "tester@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "tester")
	t.Setenv("GIT_COMMITTER_EMAIL", "tester@example.com")
	t.Setenv("GIT_CONFIG_GLOBAL", filepath.Join(t.TempDir(), "gitconfig"))
}

func TestRebase(t *testing.T) {
	requireGit(t)

	repo := initRepo(t)
	commitFile(t, repo, "README.md", "hello\n")
	if err := repo.CreateBranch("feature", "master"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}

	// Advance master past the branch point.
	commitFile(t, repo, "main.txt", "main work\n")
	masterHead, err := repo.BranchHead("master")
	if err != nil {
		t.Fatalf("BranchHead: %v", err)
	}

	// Put a commit on feature without leaving master checked out dirty.
	ctx := context.Background()
	wtPath := filepath.Join(t.TempDir(), "feature-wt")
	wt, err := repo.AddWorktree(ctx, wtPath, "feature-wt", "feature", false)
	if err != nil {
		t.Fatalf("AddWorktree: %v", err)
	}
	commitFile(t, wt, "feature.txt", "feature work\n")
	featureWork, err := wt.BranchHead("feature-wt")
	if err != nil {
		t.Fatalf("BranchHead: %v", err)
	}
	if err := repo.RemoveWorktree(ctx, wtPath, true); err != nil {
		t.Fatalf("RemoveWorktree: %v", err)
	}

	if err := repo.Rebase(ctx, "master", "feature-wt", "master"); err != nil {
		t.Fatalf("Rebase: %v", err)
	}

	rebased, err := repo.BranchHead("feature-wt")
	if err != nil {
		t.Fatalf("BranchHead: %v", err)
	}
	if rebased == featureWork {
		t.Fatal("rebase did not move the branch")
	}

	commit, err := repo.Git().CommitObject(rebased)
	if err != nil {
		t.Fatalf("CommitObject: %v", err)
	}
	if commit.NumParents() != 1 || commit.ParentHashes[0] != masterHead {
		t.Fatalf("rebased commit parents %v, want [%s]", commit.ParentHashes, masterHead)
	}
	if commit.Message != "add feature.txt" {
		t.Fatalf("rebased commit message %q", commit.Message)
	}
}

func TestRebaseConflict(t *testing.T) {
	requireGit(t)

	repo := initRepo(t)
	commitFile(t, repo, "shared.txt", "base\n")
	if err := repo.CreateBranch("feature", "master"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	commitFile(t, repo, "shared.txt", "master version\n")

	ctx := context.Background()
	wtPath := filepath.Join(t.TempDir(), "conflict-wt")
	wt, err := repo.AddWorktree(ctx, wtPath, "conflict", "feature", false)
	if err != nil {
		t.Fatalf("AddWorktree: %v", err)
	}
	commitFile(t, wt, "shared.txt", "feature version\n")
	if err := repo.RemoveWorktree(ctx, wtPath, true); err != nil {
		t.Fatalf("RemoveWorktree: %v", err)
	}

	err = repo.Rebase(ctx, "master", "conflict", "master")

	var verr *VersionControlError
	if !errors.As(err, &verr) {
		t.Fatalf("expected VersionControlError, got %v", err)
	}
	if verr.Stderr == "" {
		t.Fatal("expected the conflict diagnostic on Stderr")
	}
}

func TestAddWorktree(t *testing.T) {
	requireGit(t)

	repo := initRepo(t)
	commitFile(t, repo, "README.md", "hello\n")

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wt")

	wt, err := repo.AddWorktree(ctx, path, "scratch", "master", false)
	if err != nil {
		t.Fatalf("AddWorktree: %v", err)
	}

	branch, err := wt.CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != "scratch" {
		t.Fatalf("CurrentBranch = %q", branch)
	}
	if _, err := os.Stat(filepath.Join(path, "README.md")); err != nil {
		t.Fatalf("worktree file missing: %v", err)
	}

	// The branch exists now, so recreating it without force must fail.
	if _, err := repo.AddWorktree(ctx, filepath.Join(t.TempDir(), "wt2"), "scratch", "master", false); err == nil {
		t.Fatal("expected an error reusing the branch without force")
	}

	// Force resets the branch instead.
	wt2, err := repo.AddWorktree(ctx, filepath.Join(t.TempDir(), "wt3"), "scratch", "master", true)
	if err != nil {
		t.Fatalf("AddWorktree (force): %v", err)
	}
	if err := repo.RemoveWorktree(ctx, wt2.Path(), true); err != nil {
		t.Fatalf("RemoveWorktree: %v", err)
	}

	if err := repo.RemoveWorktree(ctx, path, true); err != nil {
		t.Fatalf("RemoveWorktree: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("worktree directory still present: %v", err)
	}
}

func TestUpdate(t *testing.T) {
	requireGit(t)

	source := initRepo(t)
	commitFile(t, source, "README.md", "hello\n")

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mirror.git")
	mirror, err := Clone(ctx, path, source.Path(), true)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	// New history in the source shows up in the mirror after an update.
	newHead := commitFile(t, source, "more.txt", "more\n")
	if err := mirror.Update(ctx); err != nil {
		t.Fatalf("Update: %v", err)
	}

	head, err := mirror.BranchHead("master")
	if err != nil {
		t.Fatalf("BranchHead: %v", err)
	}
	if head != newHead {
		t.Fatalf("mirror head %s, want %s", head, newHead)
	}
}
