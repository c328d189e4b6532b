/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package primport

import (
	"context"
	"fmt"

	"github.com/google/go-github/v84/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

// PullRequest is the slice of a GitHub pull request this workflow cares
// about.
type PullRequest struct {
	Number int
	Title  string
	Body   string
	Branch string // head branch merged by the pull request
	User   string // login of the author
	Labels []string
}

// Client wraps the GitHub REST and GraphQL APIs behind the operations the
// import workflow needs.
type Client struct {
	gh *github.Client
	v4 *githubv4.Client
}

// NewClient authenticates against GitHub with an OAuth token.
func NewClient(ctx context.Context, token string) *Client {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	return &Client{
		gh: github.NewClient(httpClient),
		v4: githubv4.NewClient(httpClient),
	}
}

func fromGitHub(pr *github.PullRequest) *PullRequest {
	labels := make([]string, 0, len(pr.Labels))
	for _, label := range pr.Labels {
		labels = append(labels, label.GetName())
	}
	return &PullRequest{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		Body:   pr.GetBody(),
		Branch: pr.GetHead().GetRef(),
		User:   pr.GetUser().GetLogin(),
		Labels: labels,
	}
}

// PullRequest returns the pull request identified by number.
func (c *Client) PullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	pr, _, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("getting pull request #%d: %w", number, err)
	}
	return fromGitHub(pr), nil
}

// PullRequestByHead returns the open pull request whose head branch is
// headRef, or nil when none exists.
func (c *Client) PullRequestByHead(ctx context.Context, owner, repo, headRef string) (*PullRequest, error) {
	var query struct {
		Repository struct {
			PullRequests struct {
				Nodes []struct {
					Number int
					Title  string
					Body   string
					Author struct {
						Login string
					}
					HeadRefName string
					Labels      struct {
						Nodes []struct {
							Name string
						}
					} `graphql:"labels(first: 100)"`
				}
			} `graphql:"pullRequests(headRefName: $headRef, states: [OPEN], first: 1)"`
		} `graphql:"repository(owner: $owner, name: $repo)"`
	}

	variables := map[string]any{
		"owner":   githubv4.String(owner),
		"repo":    githubv4.String(repo),
		"headRef": githubv4.String(headRef),
	}

	if err := c.v4.Query(ctx, &query, variables); err != nil {
		return nil, fmt.Errorf("querying pull request by head %q: %w", headRef, err)
	}

	nodes := query.Repository.PullRequests.Nodes
	if len(nodes) == 0 {
		return nil, nil
	}

	node := nodes[0]
	labels := make([]string, 0, len(node.Labels.Nodes))
	for _, label := range node.Labels.Nodes {
		labels = append(labels, label.Name)
	}
	return &PullRequest{
		Number: node.Number,
		Title:  node.Title,
		Body:   node.Body,
		Branch: node.HeadRefName,
		User:   node.Author.Login,
		Labels: labels,
	}, nil
}

// OpenPullRequests lists every open pull request in the repository.
func (c *Client) OpenPullRequests(ctx context.Context, owner, repo string) ([]*PullRequest, error) {
	opts := &github.PullRequestListOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var pulls []*PullRequest
	for {
		page, resp, err := c.gh.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing pull requests: %w", err)
		}
		for _, pr := range page {
			pulls = append(pulls, fromGitHub(pr))
		}
		if resp.NextPage == 0 {
			return pulls, nil
		}
		opts.Page = resp.NextPage
	}
}

// CreatePullRequest opens a pull request from head onto base.
func (c *Client) CreatePullRequest(ctx context.Context, owner, repo, head, base, title, body string) (*PullRequest, error) {
	pr, _, err := c.gh.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(body),
		Head:  github.Ptr(head),
		Base:  github.Ptr(base),
	})
	if err != nil {
		return nil, fmt.Errorf("creating pull request for %s: %w", head, err)
	}
	return fromGitHub(pr), nil
}

// UpdatePullRequest rewrites the title, body, and base of an existing pull
// request.
func (c *Client) UpdatePullRequest(ctx context.Context, owner, repo string, number int, title, body, base string) error {
	_, _, err := c.gh.PullRequests.Edit(ctx, owner, repo, number, &github.PullRequest{
		Title: github.Ptr(title),
		Body:  github.Ptr(body),
		Base:  &github.PullRequestBranch{Ref: github.Ptr(base)},
	})
	if err != nil {
		return fmt.Errorf("updating pull request #%d: %w", number, err)
	}
	return nil
}

// AddLabels adds labels to a pull request, keeping existing ones.
func (c *Client) AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	if _, _, err := c.gh.Issues.AddLabelsToIssue(ctx, owner, repo, number, labels); err != nil {
		return fmt.Errorf("adding labels to #%d: %w", number, err)
	}
	return nil
}

// ReplaceLabels replaces the labels on a pull request wholesale.
func (c *Client) ReplaceLabels(ctx context.Context, owner, repo string, number int, labels []string) error {
	if _, _, err := c.gh.Issues.ReplaceLabelsForIssue(ctx, owner, repo, number, labels); err != nil {
		return fmt.Errorf("replacing labels on #%d: %w", number, err)
	}
	return nil
}
