/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package rewrite reverse-substitutes rendered template values back into
// token form across an entire commit history. The engine walks the commit
// graph parents-first, rewrites blobs and tree entries bottom-up through the
// object store, and repoints the branch heads at the rewritten tips. The
// topology and metadata of the history are preserved exactly: same number of
// commits, same parent edges, same authors, committers, timestamps, and
// messages; only contents, paths, and consequently object identities change.
//
// The engine is meant to run inside a disposable clone it owns outright. It
// never mutates anything else.
package rewrite
