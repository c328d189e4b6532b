/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package workspace provides scoped acquisition of ephemeral git resources:
// throwaway clones in process-unique temporary directories, and temporary
// remotes on a caller-owned repository. Both primitives guarantee release on
// every exit path, so a failed operation never leaves debris behind in the
// caller's repository.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/retrocookie/gitrepo"
)

const cloneDirPrefix = "retrocookie-"

// ResourceError reports a name collision on a scoped resource, detected
// before anything is created.
type ResourceError struct {
	Kind string
	Name string
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.Name)
}

// WithTemporaryClone mirror-clones url into a fresh temporary directory,
// invokes fn with the clone, and removes the directory before returning,
// whether fn succeeded or not. The clone is exclusively owned by fn for the
// duration of the call; nothing else sees it.
func WithTemporaryClone(ctx context.Context, url string, fn func(ctx context.Context, clone *gitrepo.Repo) error) error {
	dir, err := os.MkdirTemp("", cloneDirPrefix)
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			clog.FromContext(ctx).Warnf("Removing temporary clone %s: %v", dir, err)
		}
	}()

	clone, err := gitrepo.Clone(ctx, filepath.Join(dir, "instance.git"), url, true)
	if err != nil {
		return err
	}

	if err := fn(ctx, clone); err != nil {
		// The path is logged before teardown so a failure can at least be
		// correlated with what the clone held.
		clog.FromContext(ctx).Debugf("Discarding temporary clone %s after error: %v", dir, err)
		return err
	}
	return nil
}

// WithTemporaryRemote adds a remote named name pointing at url, invokes fn,
// and removes the remote on every exit path. A pre-existing remote with the
// same name belongs to the caller and is never overwritten; that collision is
// a ResourceError raised before the remote is touched.
func WithTemporaryRemote(ctx context.Context, repo *gitrepo.Repo, name, url string, fn func(ctx context.Context) error) error {
	if repo.HasRemote(name) {
		return &ResourceError{Kind: "remote", Name: name}
	}

	if err := repo.AddRemote(name, url); err != nil {
		return err
	}
	defer func() {
		if err := repo.RemoveRemote(name); err != nil {
			clog.FromContext(ctx).Warnf("Removing temporary remote %s: %v", name, err)
		}
	}()

	return fn(ctx)
}
