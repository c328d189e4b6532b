/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ContextFileName is the well-known file at the repository root that records
// the variable context an instance was rendered with.
const ContextFileName = ".cookiecutter.json"

// Context is the immutable variable-name to rendered-value mapping for a
// repository snapshot. Construct one with LoadContext; do not mutate it
// afterwards.
type Context map[string]string

// LoadContext reads the context file from the tree at rev. The repository may
// be bare; the file is read from the object store rather than the working
// tree. A missing, unreadable, or non-flat context file is a ConfigError.
func LoadContext(repo *git.Repository, rev string) (Context, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, &ConfigError{Path: ContextFileName, Err: fmt.Errorf("resolving %q: %w", rev, err)}
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, &ConfigError{Path: ContextFileName, Err: fmt.Errorf("reading commit %s: %w", hash, err)}
	}

	file, err := commit.File(ContextFileName)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, &ConfigError{Path: ContextFileName, Err: errors.New("file not found")}
		}
		return nil, &ConfigError{Path: ContextFileName, Err: err}
	}

	contents, err := file.Contents()
	if err != nil {
		return nil, &ConfigError{Path: ContextFileName, Err: err}
	}

	return parseContext([]byte(contents))
}

func parseContext(data []byte) (Context, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Path: ContextFileName, Err: fmt.Errorf("parsing: %w", err)}
	}

	ctx := make(Context, len(raw))
	for key, value := range raw {
		s, ok := value.(string)
		if !ok {
			return nil, &ConfigError{
				Path: ContextFileName,
				Err:  fmt.Errorf("key %q: expected a string value, got %T", key, value),
			}
		}
		ctx[key] = s
	}
	return ctx, nil
}

// Names returns the variable names in sorted order.
func (c Context) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
