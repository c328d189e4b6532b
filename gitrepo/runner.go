/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gitrepo

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/chainguard-dev/clog"
)

// run executes the git binary in the repository directory, capturing output.
// Failures come back as VersionControlError carrying the tool's stderr.
func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return "", &VersionControlError{Op: args[0], Err: err}
	}

	clog.FromContext(ctx).Debugf("Running git %s in %s", strings.Join(args, " "), r.path)

	cmd := exec.CommandContext(ctx, gitPath, args...)
	cmd.Dir = r.path
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), &VersionControlError{Op: args[0], Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}

// Update refreshes every remote-tracking ref, pruning ones deleted upstream.
// On a mirror this reconciles refs/heads with the source repository.
func (r *Repo) Update(ctx context.Context) error {
	_, err := r.run(ctx, "remote", "update", "--prune")
	return err
}

// Rebase replays the commits unique to branch relative to upstream onto onto,
// one at a time. It stops on the first conflicting commit and leaves the
// working copy in git's usual half-rebased recovery state; resolution is the
// caller's business, no automatic handling is attempted here.
func (r *Repo) Rebase(ctx context.Context, upstream, branch, onto string) error {
	_, err := r.run(ctx, "rebase", "--onto", onto, upstream, branch)
	return err
}

// AddWorktree attaches an additional working directory at path, creating
// branch at start. With force, an existing branch of that name is reset.
func (r *Repo) AddWorktree(ctx context.Context, path, branch, start string, force bool) (*Repo, error) {
	args := []string{"worktree", "add"}
	if force {
		args = append(args, "--force", "-B", branch)
	} else {
		args = append(args, "-b", branch)
	}
	args = append(args, path, start)

	if _, err := r.run(ctx, args...); err != nil {
		return nil, err
	}
	return Open(path)
}

// RemoveWorktree detaches the working directory at path.
func (r *Repo) RemoveWorktree(ctx context.Context, path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)

	_, err := r.run(ctx, args...)
	return err
}
