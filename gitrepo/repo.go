/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gitrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Repo is a handle on a working copy or bare repository. It is not owned by
// this package: callers open or clone a Repo and remain responsible for its
// lifetime.
type Repo struct {
	path string
	repo *git.Repository
}

// Open opens the repository at or above path, following a .git directory the
// way the git binary does.
func Open(path string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, &VersionControlError{Op: "open", Err: fmt.Errorf("%s: %w", path, err)}
	}
	return &Repo{path: path, repo: repo}, nil
}

// Clone clones url into path. A mirror clone is bare and carries every ref of
// the source under refs/heads, which is what the rewrite engine wants to
// operate on.
func Clone(ctx context.Context, path, url string, mirror bool) (*Repo, error) {
	clog.FromContext(ctx).Debugf("Cloning %s into %s", url, path)

	repo, err := git.PlainCloneContext(ctx, path, mirror, &git.CloneOptions{
		URL:    url,
		Mirror: mirror,
	})
	if err != nil {
		return nil, &VersionControlError{Op: "clone", Err: fmt.Errorf("%s: %w", url, err)}
	}
	return &Repo{path: path, repo: repo}, nil
}

// Path returns the filesystem location of the repository.
func (r *Repo) Path() string { return r.path }

// Root returns the top-level directory of the working tree, which may sit
// above the path the repository was opened with. Bare repositories have no
// working tree and report their own path.
func (r *Repo) Root() string {
	wt, err := r.repo.Worktree()
	if err != nil {
		return r.path
	}
	return wt.Filesystem.Root()
}

// Git returns the underlying go-git repository for object-level work.
func (r *Repo) Git() *git.Repository { return r.repo }

// CurrentBranch returns the symbolic name of the checked-out branch. A
// detached HEAD is an error, since there is no branch to replay onto.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", &VersionControlError{Op: "symbolic-ref", Err: err}
	}
	if !head.Name().IsBranch() {
		return "", &VersionControlError{Op: "symbolic-ref", Err: errors.New("HEAD is detached")}
	}
	return head.Name().Short(), nil
}

// RemoteURL returns the first configured URL of the named remote.
func (r *Repo) RemoteURL(name string) (string, error) {
	remote, err := r.repo.Remote(name)
	if err != nil {
		return "", &VersionControlError{Op: "remote", Err: fmt.Errorf("%s: %w", name, err)}
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", &VersionControlError{Op: "remote", Err: fmt.Errorf("%s: no URL configured", name)}
	}
	return urls[0], nil
}

// Remotes returns the configured remotes as a name to first-URL mapping.
func (r *Repo) Remotes() (map[string]string, error) {
	remotes, err := r.repo.Remotes()
	if err != nil {
		return nil, &VersionControlError{Op: "remote", Err: err}
	}

	urls := make(map[string]string, len(remotes))
	for _, remote := range remotes {
		cfg := remote.Config()
		if len(cfg.URLs) > 0 {
			urls[cfg.Name] = cfg.URLs[0]
		}
	}
	return urls, nil
}

// HasRemote reports whether a remote with the given name is configured.
func (r *Repo) HasRemote(name string) bool {
	_, err := r.repo.Remote(name)
	return err == nil
}

// AddRemote configures a new remote.
func (r *Repo) AddRemote(name, url string) error {
	if _, err := r.repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: name,
		URLs: []string{url},
	}); err != nil {
		return &VersionControlError{Op: "remote add", Err: fmt.Errorf("%s: %w", name, err)}
	}
	return nil
}

// RemoveRemote deletes a remote and its remote-tracking references.
func (r *Repo) RemoveRemote(name string) error {
	if err := r.repo.DeleteRemote(name); err != nil {
		return &VersionControlError{Op: "remote remove", Err: fmt.Errorf("%s: %w", name, err)}
	}
	return nil
}

// Fetch retrieves exactly the named branches from a remote into its
// remote-tracking namespace. No other history is transferred.
func (r *Repo) Fetch(ctx context.Context, remote string, branches ...string) error {
	refspecs := make([]gitconfig.RefSpec, 0, len(branches))
	for _, branch := range branches {
		refspecs = append(refspecs, gitconfig.RefSpec(
			fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", branch, remote, branch)))
	}

	clog.FromContext(ctx).Debugf("Fetching %v from %s", branches, remote)
	err := r.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remote,
		RefSpecs:   refspecs,
		Tags:       git.NoTags,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return &VersionControlError{Op: "fetch", Err: fmt.Errorf("%s: %w", remote, err)}
	}
	return nil
}

// ExistsBranch reports whether a local branch with the given name exists. It
// has no side effects.
func (r *Repo) ExistsBranch(name string) bool {
	_, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), false)
	return err == nil
}

// CreateBranch creates a new branch pointer at start. It refuses to touch an
// existing branch: overwriting a caller's pointer is never implied.
func (r *Repo) CreateBranch(name, start string) error {
	if r.ExistsBranch(name) {
		return &VersionControlError{Op: "branch", Err: fmt.Errorf("branch %q already exists", name)}
	}

	hash, err := r.repo.ResolveRevision(plumbing.Revision(start))
	if err != nil {
		return &VersionControlError{Op: "branch", Err: fmt.Errorf("resolving %q: %w", start, err)}
	}

	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), *hash)
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return &VersionControlError{Op: "branch", Err: fmt.Errorf("%s: %w", name, err)}
	}
	return nil
}

// BranchHead returns the commit hash a local branch points at.
func (r *Repo) BranchHead(name string) (plumbing.Hash, error) {
	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err != nil {
		return plumbing.ZeroHash, &VersionControlError{Op: "rev-parse", Err: fmt.Errorf("%s: %w", name, err)}
	}
	return ref.Hash(), nil
}

// Push pushes the given refspecs to a remote. With force-with-lease the push
// overwrites the remote ref only if it still points where the local
// remote-tracking ref says it does.
func (r *Repo) Push(ctx context.Context, remote string, auth transport.AuthMethod, forceWithLease bool, refspecs ...gitconfig.RefSpec) error {
	opts := &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   refspecs,
		Auth:       auth,
	}
	if forceWithLease {
		opts.ForceWithLease = &git.ForceWithLease{}
	}

	err := r.repo.PushContext(ctx, opts)
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return &VersionControlError{Op: "push", Err: fmt.Errorf("%s: %w", remote, err)}
	}
	return nil
}
