/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rewrite

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"chainguard.dev/retrocookie/template"
)

// Engine rewrites the history of a single repository. Construct one per run;
// the memoization tables inside are not safe for reuse across repositories.
type Engine struct {
	repo *git.Repository
	dir  string
	subs template.Substitutions

	// Memoized old->new identities. Rewriting is content-addressed, so a
	// blob or tree reached from many commits is only processed once.
	commits map[plumbing.Hash]plumbing.Hash
	trees   map[plumbing.Hash]plumbing.Hash
	blobs   map[plumbing.Hash]plumbing.Hash
}

// New returns an Engine that re-roots every path of repo's history under
// templateDir and applies subs to file contents and path segments.
func New(repo *git.Repository, templateDir string, subs template.Substitutions) *Engine {
	return &Engine{
		repo:    repo,
		dir:     templateDir,
		subs:    subs,
		commits: make(map[plumbing.Hash]plumbing.Hash),
		trees:   make(map[plumbing.Hash]plumbing.Hash),
		blobs:   make(map[plumbing.Hash]plumbing.Hash),
	}
}

// Run rewrites every commit reachable from the repository's local branch
// heads and repoints those branches at the rewritten tips. Parents are always
// processed before their children, so parent references resolve through the
// rewrite map by construction.
func (e *Engine) Run(ctx context.Context) error {
	log := clog.FromContext(ctx)

	heads, err := e.branchHeads()
	if err != nil {
		return err
	}
	if len(heads) == 0 {
		return fmt.Errorf("repository has no branches to rewrite")
	}

	tips := make([]plumbing.Hash, 0, len(heads))
	for _, ref := range heads {
		tips = append(tips, ref.Hash())
	}

	order, err := e.topoOrder(tips)
	if err != nil {
		return err
	}

	rewritten := 0
	for _, hash := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		newHash, err := e.rewriteCommit(hash)
		if err != nil {
			return fmt.Errorf("rewriting commit %s: %w", hash, err)
		}
		if newHash != hash {
			rewritten++
		}
	}

	for _, ref := range heads {
		newTip, ok := e.commits[ref.Hash()]
		if !ok || newTip == ref.Hash() {
			continue
		}
		if err := e.repo.Storer.SetReference(plumbing.NewHashReference(ref.Name(), newTip)); err != nil {
			return fmt.Errorf("updating %s: %w", ref.Name(), err)
		}
	}

	log.Infof("Rewrote %d of %d commits across %d branches", rewritten, len(order), len(heads))
	return nil
}

// Rewritten returns the new identity of an original commit, when the commit
// was part of the run. A commit whose content did not change maps to itself.
func (e *Engine) Rewritten(old plumbing.Hash) (plumbing.Hash, bool) {
	h, ok := e.commits[old]
	return h, ok
}

func (e *Engine) branchHeads() ([]*plumbing.Reference, error) {
	iter, err := e.repo.References()
	if err != nil {
		return nil, fmt.Errorf("listing references: %w", err)
	}
	defer iter.Close()

	var heads []*plumbing.Reference
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Name().IsBranch() && ref.Type() == plumbing.HashReference {
			heads = append(heads, ref)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing references: %w", err)
	}
	return heads, nil
}

// topoOrder returns every commit reachable from tips, parents strictly before
// children. The walk is an explicit worklist rather than recursion: histories
// can be arbitrarily deep and must not cost stack proportional to length.
func (e *Engine) topoOrder(tips []plumbing.Hash) ([]plumbing.Hash, error) {
	const (
		open = 1
		done = 2
	)

	state := make(map[plumbing.Hash]int)
	var order []plumbing.Hash
	var stack []plumbing.Hash

	for _, tip := range tips {
		stack = append(stack, tip)
	}

	for len(stack) > 0 {
		hash := stack[len(stack)-1]

		switch state[hash] {
		case done:
			stack = stack[:len(stack)-1]

		case open:
			// All parents pushed on the first visit have finished.
			state[hash] = done
			order = append(order, hash)
			stack = stack[:len(stack)-1]

		default:
			state[hash] = open
			commit, err := object.GetCommit(e.repo.Storer, hash)
			if err != nil {
				return nil, fmt.Errorf("reading commit %s: %w", hash, err)
			}
			for _, parent := range commit.ParentHashes {
				switch state[parent] {
				case done:
				case open:
					return nil, fmt.Errorf("commit graph cycle at %s", parent)
				default:
					stack = append(stack, parent)
				}
			}
		}
	}

	return order, nil
}

// rewriteCommit produces the rewritten identity of a single commit. Its
// parents must already be present in the rewrite map.
func (e *Engine) rewriteCommit(hash plumbing.Hash) (plumbing.Hash, error) {
	if newHash, ok := e.commits[hash]; ok {
		return newHash, nil
	}

	commit, err := object.GetCommit(e.repo.Storer, hash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	newTree, err := e.rewriteRoot(commit.TreeHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	parents := make([]plumbing.Hash, len(commit.ParentHashes))
	parentsChanged := false
	for i, parent := range commit.ParentHashes {
		mapped, ok := e.commits[parent]
		if !ok {
			return plumbing.ZeroHash, fmt.Errorf("parent %s visited out of order", parent)
		}
		parents[i] = mapped
		if mapped != parent {
			parentsChanged = true
		}
	}

	if newTree == commit.TreeHash && !parentsChanged {
		e.commits[hash] = hash
		return hash, nil
	}

	// Same author, committer, timestamps, and message; only the tree and
	// parent identities move. A signature over the old content would be
	// meaningless, so none is carried.
	newCommit := &object.Commit{
		Author:       commit.Author,
		Committer:    commit.Committer,
		Message:      commit.Message,
		TreeHash:     newTree,
		ParentHashes: parents,
	}

	obj := e.repo.Storer.NewEncodedObject()
	if err := newCommit.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encoding commit: %w", err)
	}
	newHash, err := e.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("storing commit: %w", err)
	}

	e.commits[hash] = newHash
	return newHash, nil
}
