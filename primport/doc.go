/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package primport imports GitHub pull requests from an instance repository
// into its Cookiecutter template. For each selected pull request the instance
// branch is transplanted into a worktree of a cached template mirror, pushed
// to the template repository under the retrocookie/ branch prefix, and a
// matching pull request is opened (or, with force, refreshed) against the
// template with the original title, body, and labels.
package primport
