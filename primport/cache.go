/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package primport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/retrocookie/gitrepo"
)

// Cache keeps per-user state between runs: bare mirror clones of the
// repositories being imported between, short-lived worktrees carved out of
// those mirrors, and the GitHub token.
type Cache struct {
	root string
}

// OpenCache locates the cache under the user's cache directory.
func OpenCache() (*Cache, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("locating cache directory: %w", err)
	}
	return &Cache{root: filepath.Join(dir, "retrocookie")}, nil
}

// NewCache returns a cache rooted at an explicit directory.
func NewCache(root string) *Cache {
	return &Cache{root: root}
}

type tokenFile struct {
	Token string `json:"token"`
}

// SaveToken persists a GitHub token for later runs.
func (c *Cache) SaveToken(token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(c.root, 0o700); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.Marshal(tokenFile{Token: token})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.root, "token.json"), data, 0o600)
}

// LoadToken returns the persisted GitHub token.
func (c *Cache) LoadToken() (string, error) {
	data, err := os.ReadFile(filepath.Join(c.root, "token.json"))
	if err != nil {
		return "", err
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return "", fmt.Errorf("parsing token file: %w", err)
	}
	if tf.Token == "" {
		return "", errors.New("empty token")
	}
	return tf.Token, nil
}

// Repository returns a mirror clone of the named GitHub repository, cloning
// it on first use and refreshing its refs on subsequent ones.
func (c *Cache) Repository(ctx context.Context, owner, name string) (*gitrepo.Repo, error) {
	path := filepath.Join(c.root, "repositories", owner, name+".git")

	if _, err := os.Stat(path); err == nil {
		repo, err := gitrepo.Open(path)
		if err != nil {
			return nil, err
		}
		if err := repo.Update(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	url := fmt.Sprintf("https://github.com/%s/%s.git", owner, name)
	return gitrepo.Clone(ctx, path, url, true)
}

// WithWorktree checks out branch (created at start) from the cached mirror of
// owner/name into a scoped worktree, runs fn against it, and always removes
// the worktree again. With force an existing branch is reset to start.
func (c *Cache) WithWorktree(ctx context.Context, owner, name, branch, start string, force bool, fn func(ctx context.Context, wt *gitrepo.Repo) error) error {
	mirror, err := gitrepo.Open(filepath.Join(c.root, "repositories", owner, name+".git"))
	if err != nil {
		return err
	}

	path := filepath.Join(c.root, "worktrees", owner, name, filepath.FromSlash(branch))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating worktree directory: %w", err)
	}

	wt, err := mirror.AddWorktree(ctx, path, branch, start, force)
	if err != nil {
		return err
	}
	defer func() {
		if err := mirror.RemoveWorktree(ctx, path, true); err != nil {
			clog.FromContext(ctx).Warnf("Removing worktree %s: %v", path, err)
		}
	}()

	return fn(ctx, wt)
}
