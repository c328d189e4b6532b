/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package primport

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/chainguard-dev/clog"
	gitconfig "github.com/go-git/go-git/v5/config"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"chainguard.dev/retrocookie/gitrepo"
	"chainguard.dev/retrocookie/template"
	"chainguard.dev/retrocookie/transplant"
)

// BranchPrefix namespaces the branches this workflow pushes to the template
// repository.
const BranchPrefix = "retrocookie/"

// TemplateKey is the context variable Cookiecutter records the template
// location under.
const TemplateKey = "_template"

// Importer drives the pull-request import workflow.
type Importer struct {
	Client *Client
	Cache  *Cache

	// Token authenticates pushes to the template repository.
	Token string

	// Base is the branch imports are based on and pull requests are opened
	// against, in both repositories. Defaults to "master".
	Base string

	// User, when set, restricts imports to pull requests opened by that
	// GitHub login.
	User string

	// Force overwrites previously imported branches and refreshes their
	// pull requests instead of failing.
	Force bool
}

type repoName struct {
	Owner string
	Name  string
}

func (r repoName) String() string { return r.Owner + "/" + r.Name }

func splitRepoName(full string) (repoName, error) {
	owner, name, ok := strings.Cut(full, "/")
	if !ok || owner == "" || name == "" {
		return repoName{}, fmt.Errorf("invalid repository name %q, want owner/name", full)
	}
	return repoName{Owner: owner, Name: name}, nil
}

// Run imports the selected pull requests. With specs, only the matching pull
// requests are imported; otherwise every open one is. The repository argument
// names the instance on GitHub and may be empty, in which case it is detected
// from the current working copy's remotes.
func (i *Importer) Run(ctx context.Context, repository string, specs []string) error {
	log := clog.FromContext(ctx)
	base := i.base()

	instance, instanceMirror, err := i.loadInstance(ctx, repository)
	if err != nil {
		return err
	}

	tmpl, err := templateNameFor(instanceMirror)
	if err != nil {
		return err
	}
	templateMirror, err := i.Cache.Repository(ctx, tmpl.Owner, tmpl.Name)
	if err != nil {
		return err
	}

	pulls, err := i.selectPullRequests(ctx, instance, specs)
	if err != nil {
		return err
	}

	log.Infof("Importing %d pull requests from %s into %s", len(pulls), instance, tmpl)
	for _, pull := range pulls {
		if err := i.importPullRequest(ctx, pull, instanceMirror, templateMirror, tmpl, base); err != nil {
			return fmt.Errorf("importing pull request #%d (%s): %w", pull.Number, pull.Branch, err)
		}
	}
	return nil
}

// List resolves the pull requests Run would import, without importing them.
func (i *Importer) List(ctx context.Context, repository string, specs []string) ([]*PullRequest, error) {
	instance, _, err := i.loadInstance(ctx, repository)
	if err != nil {
		return nil, err
	}
	return i.selectPullRequests(ctx, instance, specs)
}

func (i *Importer) base() string {
	if i.Base == "" {
		return "master"
	}
	return i.Base
}

func (i *Importer) loadInstance(ctx context.Context, repository string) (repoName, *gitrepo.Repo, error) {
	full := repository
	if full == "" {
		detected, err := DetectInstanceName(".")
		if err != nil {
			return repoName{}, nil, err
		}
		full = detected
	}

	instance, err := splitRepoName(full)
	if err != nil {
		return repoName{}, nil, err
	}

	mirror, err := i.Cache.Repository(ctx, instance.Owner, instance.Name)
	if err != nil {
		return repoName{}, nil, err
	}
	return instance, mirror, nil
}

func (i *Importer) selectPullRequests(ctx context.Context, instance repoName, specs []string) ([]*PullRequest, error) {
	var pulls []*PullRequest

	if len(specs) == 0 {
		all, err := i.Client.OpenPullRequests(ctx, instance.Owner, instance.Name)
		if err != nil {
			return nil, err
		}
		pulls = all
	} else {
		for _, spec := range specs {
			pull, err := i.resolveSpec(ctx, instance, spec)
			if err != nil {
				return nil, err
			}
			pulls = append(pulls, pull)
		}
	}

	if i.User == "" {
		return pulls, nil
	}

	filtered := pulls[:0]
	for _, pull := range pulls {
		if pull.User == i.User {
			filtered = append(filtered, pull)
		}
	}
	return filtered, nil
}

// resolveSpec matches a pull request by number or by head branch. A head spec
// may carry an owner qualifier ("owner:branch"), which is stripped.
func (i *Importer) resolveSpec(ctx context.Context, instance repoName, spec string) (*PullRequest, error) {
	if number, err := strconv.Atoi(spec); err == nil {
		return i.Client.PullRequest(ctx, instance.Owner, instance.Name, number)
	}

	branch := spec
	if _, after, ok := strings.Cut(spec, ":"); ok {
		branch = after
	}

	pull, err := i.Client.PullRequestByHead(ctx, instance.Owner, instance.Name, branch)
	if err != nil {
		return nil, err
	}
	if pull == nil {
		return nil, fmt.Errorf("pull request %q not found", spec)
	}
	return pull, nil
}

func (i *Importer) importPullRequest(ctx context.Context, pull *PullRequest, instanceMirror, templateMirror *gitrepo.Repo, tmpl repoName, base string) error {
	log := clog.FromContext(ctx)
	templateBranch := BranchPrefix + pull.Branch

	if templateMirror.ExistsBranch(templateBranch) && !i.Force {
		return fmt.Errorf("%s was already imported", pull.Branch)
	}

	log.Infof("Importing branch %s as %s", pull.Branch, templateBranch)
	err := i.Cache.WithWorktree(ctx, tmpl.Owner, tmpl.Name, templateBranch, base, i.Force, func(ctx context.Context, wt *gitrepo.Repo) error {
		return transplant.Import(ctx, transplant.Options{
			Ref:  pull.Branch,
			Base: base,
			URL:  instanceMirror.Path(),
			Path: wt.Path(),
		})
	})
	if err != nil {
		return err
	}

	auth := &githttp.BasicAuth{
		Username: "unused-when-using-access-tokens",
		Password: i.Token,
	}
	refspec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", pull.Branch, templateBranch))
	if err := templateMirror.Push(ctx, "origin", auth, i.Force, refspec); err != nil {
		return err
	}

	return i.createOrUpdatePullRequest(ctx, pull, tmpl, templateBranch, base)
}

func (i *Importer) createOrUpdatePullRequest(ctx context.Context, pull *PullRequest, tmpl repoName, templateBranch, base string) error {
	log := clog.FromContext(ctx)

	previous, err := i.Client.PullRequestByHead(ctx, tmpl.Owner, tmpl.Name, templateBranch)
	if err != nil {
		return err
	}

	switch {
	case previous == nil:
		head := tmpl.Owner + ":" + templateBranch
		created, err := i.Client.CreatePullRequest(ctx, tmpl.Owner, tmpl.Name, head, base, pull.Title, pull.Body)
		if err != nil {
			return err
		}
		log.Infof("Opened pull request #%d for %s", created.Number, templateBranch)
		return i.Client.AddLabels(ctx, tmpl.Owner, tmpl.Name, created.Number, pull.Labels)

	case i.Force:
		if err := i.Client.UpdatePullRequest(ctx, tmpl.Owner, tmpl.Name, previous.Number, pull.Title, pull.Body, base); err != nil {
			return err
		}
		log.Infof("Updated pull request #%d for %s", previous.Number, templateBranch)
		return i.Client.ReplaceLabels(ctx, tmpl.Owner, tmpl.Name, previous.Number, pull.Labels)

	default:
		return fmt.Errorf("pull request for %s already opened", pull.Branch)
	}
}

// templateNameFor reads the template repository's GitHub name out of the
// instance's context.
func templateNameFor(instanceMirror *gitrepo.Repo) (repoName, error) {
	tmplCtx, err := template.LoadContext(instanceMirror.Git(), "HEAD")
	if err != nil {
		return repoName{}, err
	}

	location, ok := tmplCtx[TemplateKey]
	if !ok {
		return repoName{}, fmt.Errorf("context has no %q key", TemplateKey)
	}

	full, ok := FindRepositoryName(location)
	if !ok {
		return repoName{}, fmt.Errorf("template %q is not on GitHub", location)
	}
	return splitRepoName(full)
}

// DetectInstanceName scans the remotes of the working copy at path for a
// GitHub repository name. The origin remote wins; remaining remotes are tried
// in name order.
func DetectInstanceName(path string) (string, error) {
	repo, err := gitrepo.Open(path)
	if err != nil {
		return "", err
	}

	remotes, err := repo.Remotes()
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(remotes))
	for name := range remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	if _, ok := remotes["origin"]; ok {
		names = append([]string{"origin"}, names...)
	}

	for _, name := range names {
		if full, ok := FindRepositoryName(remotes[name]); ok {
			return full, nil
		}
	}
	return "", fmt.Errorf("instance is not on GitHub")
}

// FindRepositoryName extracts an owner/name pair from a GitHub remote URL in
// any of its common spellings (gh: shorthand, SSH, HTTPS).
func FindRepositoryName(remote string) (string, bool) {
	for _, prefix := range []string{"gh:", "git@github.com:"} {
		if strings.HasPrefix(remote, prefix) {
			path := strings.TrimPrefix(remote, prefix)
			return strings.TrimSuffix(path, ".git"), true
		}
	}

	parsed, err := url.Parse(remote)
	if err != nil || parsed.Hostname() != "github.com" {
		return "", false
	}
	path := strings.TrimPrefix(parsed.Path, "/")
	path = strings.TrimSuffix(path, ".git")
	if path == "" {
		return "", false
	}
	return path, true
}
