/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package template

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/go-cmp/cmp"
)

func TestLoadContext(t *testing.T) {
	repo := initContextRepo(t, `{"project": "foo", "author": "alice"}`)

	ctx, err := LoadContext(repo, "HEAD")
	if err != nil {
		t.Fatalf("LoadContext: %v", err)
	}

	want := Context{"project": "foo", "author": "alice"}
	if diff := cmp.Diff(want, ctx); diff != "" {
		t.Fatalf("context mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadContextMissingFile(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	commitFile(t, repo, dir, "README.md", "hello")

	_, err = LoadContext(repo, "HEAD")

	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestLoadContextNotAnObject(t *testing.T) {
	repo := initContextRepo(t, `["foo", "bar"]`)

	_, err := LoadContext(repo, "HEAD")

	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestLoadContextNonStringValue(t *testing.T) {
	repo := initContextRepo(t, `{"project": "foo", "count": 3}`)

	_, err := LoadContext(repo, "HEAD")

	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestLoadContextBadRevision(t *testing.T) {
	repo := initContextRepo(t, `{"project": "foo"}`)

	_, err := LoadContext(repo, "no-such-branch")

	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestContextNames(t *testing.T) {
	ctx := Context{"b": "2", "a": "1", "c": "3"}

	if diff := cmp.Diff([]string{"a", "b", "c"}, ctx.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func initContextRepo(t *testing.T, contents string) *git.Repository {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	commitFile(t, repo, dir, ContextFileName, contents)
	return repo
}

func commitFile(t *testing.T, repo *git.Repository, dir, name, contents string) {
	t.Helper()

	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()},
	}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}
