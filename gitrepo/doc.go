/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package gitrepo is the uniform repository access layer the rest of the
// module builds on. A Repo wraps a go-git repository together with its
// filesystem path and exposes the handful of operations the rewrite and
// transplant engines need: branch and remote management, refspec-scoped
// fetching, and pushing.
//
// Rebase and linked worktrees have no go-git implementation, so those two
// operations shell out to the git binary; their failures carry the tool's
// stderr so callers see the underlying diagnostic unaltered.
package gitrepo
