/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package transplant imports commits from an instance repository back into
// the Cookiecutter template it was generated from. The work happens in two
// phases with different blast radii: first the instance history is rewritten
// into token form inside a disposable mirror clone, which can fail without
// the template repository ever noticing; only then is the rewritten range
// fetched through a temporary remote and replayed onto the template's
// checked-out branch.
package transplant

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainguard-dev/clog"

	"chainguard.dev/retrocookie/gitrepo"
	"chainguard.dev/retrocookie/rewrite"
	"chainguard.dev/retrocookie/template"
	"chainguard.dev/retrocookie/workspace"
)

// RemoteName is the reserved name of the temporary remote linking the
// template repository to the rewritten instance clone. A caller-managed
// remote of the same name is a collision, not something to overwrite.
const RemoteName = "retrocookie"

// Options selects the commit range to import and where to import it.
type Options struct {
	// Ref is the branch on the instance remote whose commits are imported.
	Ref string

	// Base bounds the range: only commits in Base..Ref are replayed.
	// Defaults to "master".
	Base string

	// Branch is the branch created in the template repository. Defaults to
	// Ref.
	Branch string

	// URL locates the instance repository. When empty it is derived from the
	// template's origin URL by the "-instance" naming convention.
	URL string

	// Whitelist and Blacklist filter which context variables are reversed.
	Whitelist []string
	Blacklist []string

	// Path is the template repository's working copy. Defaults to the
	// current directory.
	Path string
}

func (o *Options) setDefaults() {
	if o.Base == "" {
		o.Base = "master"
	}
	if o.Branch == "" {
		o.Branch = o.Ref
	}
	if o.Path == "" {
		o.Path = "."
	}
}

// Import fetches the commits unique to opts.Ref since opts.Base from the
// instance repository, rewrites them into token form, and replays them onto
// the template repository's currently checked-out branch under a new branch
// name. The template's own branch pointer is left untouched.
func Import(ctx context.Context, opts Options) error {
	if opts.Ref == "" {
		return fmt.Errorf("a ref to import is required")
	}
	opts.setDefaults()

	repo, err := gitrepo.Open(opts.Path)
	if err != nil {
		return err
	}

	templateDir, err := template.FindTemplateDirectory(repo.Root())
	if err != nil {
		return err
	}

	current, err := repo.CurrentBranch()
	if err != nil {
		return err
	}

	url := opts.URL
	if url == "" {
		url, err = GuessInstanceURL(repo)
		if err != nil {
			return err
		}
	}

	log := clog.FromContext(ctx)
	log.Infof("Importing %s..%s from %s as %s", opts.Base, opts.Ref, url, opts.Branch)

	return workspace.WithTemporaryClone(ctx, url, func(ctx context.Context, instance *gitrepo.Repo) error {
		tmplCtx, err := template.LoadContext(instance.Git(), "HEAD")
		if err != nil {
			return err
		}

		subs, err := template.NewFilter(opts.Whitelist, opts.Blacklist).Substitutions(tmplCtx)
		if err != nil {
			return err
		}

		if err := rewrite.New(instance.Git(), templateDir, subs).Run(ctx); err != nil {
			return err
		}

		return workspace.WithTemporaryRemote(ctx, repo, RemoteName, instance.Path(), func(ctx context.Context) error {
			return applyCommits(ctx, repo, RemoteName, opts.Base, opts.Ref, opts.Branch, current)
		})
	})
}

// applyCommits creates branch at remote/ref and replays remote/base..branch
// onto the previously recorded checked-out branch.
func applyCommits(ctx context.Context, repo *gitrepo.Repo, remote, base, ref, branch, onto string) error {
	if err := repo.Fetch(ctx, remote, base, ref); err != nil {
		return err
	}
	if err := repo.CreateBranch(branch, remote+"/"+ref); err != nil {
		return err
	}
	return repo.Rebase(ctx, remote+"/"+base, branch, onto)
}

// GuessInstanceURL derives the instance repository's URL from the template's
// origin remote by appending "-instance" before the .git suffix, or at the
// end when there is none.
func GuessInstanceURL(repo *gitrepo.Repo) (string, error) {
	url, err := repo.RemoteURL("origin")
	if err != nil {
		return "", err
	}
	if strings.HasSuffix(url, ".git") {
		return strings.TrimSuffix(url, ".git") + "-instance.git", nil
	}
	return url + "-instance", nil
}
