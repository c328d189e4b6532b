/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package rewrite

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Window git itself inspects when deciding whether a file is binary.
const binarySniffLen = 8000

// rewriteRoot maps an instance root tree into template form: the entire tree
// is re-rooted under the template subdirectory, whose own name is emitted
// verbatim. Everything below it gets path and content substitution.
func (e *Engine) rewriteRoot(hash plumbing.Hash) (plumbing.Hash, error) {
	inner, err := e.rewriteTree(hash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	root := []object.TreeEntry{{
		Name: e.dir,
		Mode: filemode.Dir,
		Hash: inner,
	}}
	return e.storeTree(root)
}

// rewriteTree applies the substitutions to every entry name and descends into
// subtrees and blobs, producing a fresh tree identity bottom-up. An unchanged
// tree keeps its original identity.
func (e *Engine) rewriteTree(hash plumbing.Hash) (plumbing.Hash, error) {
	if newHash, ok := e.trees[hash]; ok {
		return newHash, nil
	}

	tree, err := object.GetTree(e.repo.Storer, hash)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("reading tree %s: %w", hash, err)
	}

	changed := false
	entries := make([]object.TreeEntry, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		name := e.subs.ApplyString(entry.Name)

		target := entry.Hash
		switch entry.Mode {
		case filemode.Dir:
			target, err = e.rewriteTree(entry.Hash)
		case filemode.Regular, filemode.Executable, filemode.Symlink:
			// Symlink blobs hold a path, which is as substitutable as any
			// other text.
			target, err = e.rewriteBlob(entry.Hash)
		default:
			// Submodule gitlinks point outside this repository.
		}
		if err != nil {
			return plumbing.ZeroHash, err
		}

		if name != entry.Name || target != entry.Hash {
			changed = true
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: entry.Mode, Hash: target})
	}

	if !changed {
		e.trees[hash] = hash
		return hash, nil
	}

	newHash, err := e.storeTree(entries)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	e.trees[hash] = newHash
	return newHash, nil
}

// rewriteBlob applies the substitutions to a text blob's raw bytes. Binary
// blobs pass through untouched; rewriting them is explicitly out of scope.
func (e *Engine) rewriteBlob(hash plumbing.Hash) (plumbing.Hash, error) {
	if newHash, ok := e.blobs[hash]; ok {
		return newHash, nil
	}

	blob, err := object.GetBlob(e.repo.Storer, hash)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("reading blob %s: %w", hash, err)
	}

	reader, err := blob.Reader()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("opening blob %s: %w", hash, err)
	}
	data, err := io.ReadAll(reader)
	closeErr := reader.Close()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("reading blob %s: %w", hash, err)
	}
	if closeErr != nil {
		return plumbing.ZeroHash, fmt.Errorf("closing blob %s: %w", hash, closeErr)
	}

	if isBinary(data) {
		e.blobs[hash] = hash
		return hash, nil
	}

	rewritten := e.subs.Apply(data)
	if bytes.Equal(rewritten, data) {
		e.blobs[hash] = hash
		return hash, nil
	}

	newHash, err := e.storeBlob(rewritten)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	e.blobs[hash] = newHash
	return newHash, nil
}

func (e *Engine) storeBlob(data []byte) (plumbing.Hash, error) {
	obj := e.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encoding blob: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return plumbing.ZeroHash, fmt.Errorf("encoding blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encoding blob: %w", err)
	}

	hash, err := e.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("storing blob: %w", err)
	}
	return hash, nil
}

func (e *Engine) storeTree(entries []object.TreeEntry) (plumbing.Hash, error) {
	sortTreeEntries(entries)

	tree := &object.Tree{Entries: entries}
	obj := e.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encoding tree: %w", err)
	}

	hash, err := e.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("storing tree: %w", err)
	}
	return hash, nil
}

// sortTreeEntries orders entries the way git requires: byte order over names,
// with directories compared as if their name ended in "/".
func sortTreeEntries(entries []object.TreeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return treeEntrySortName(entries[i]) < treeEntrySortName(entries[j])
	})
}

func treeEntrySortName(entry object.TreeEntry) string {
	if entry.Mode == filemode.Dir {
		return entry.Name + "/"
	}
	return entry.Name
}

func isBinary(data []byte) bool {
	if len(data) > binarySniffLen {
		data = data[:binarySniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}
