/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// retrocookie-pr imports GitHub pull requests from a Cookiecutter instance
// repository into its template, opening matching pull requests against the
// template with the original title, body, and labels.
//
// Usage:
//
//	retrocookie-pr [-R owner/repo] [--base=master] [-u user] [pull-request...]
//
// The GitHub token is read from $GITHUB_TOKEN, falling back to the token
// cached by a previous run.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"chainguard.dev/retrocookie/primport"
)

type config struct {
	Token string `env:"GITHUB_TOKEN"`
}

var prFlags struct {
	repository string
	base       string
	user       string
	force      bool
	dryRun     bool
	verbose    bool
}

var prCmd = &cobra.Command{
	Use:   "retrocookie-pr [flags] [pull-request...]",
	Short: "Import pull requests from a Cookiecutter instance into its template",
	Long: `Import pull requests from a Cookiecutter instance repository into the
template it was generated from.

Pull requests may be selected by number or head branch; without arguments
every open pull request is imported. Each import pushes a retrocookie/<branch>
branch to the template repository and opens a pull request carrying over the
original title, body, and labels.

The instance repository is detected from the current directory's remotes when
-R is not given; the template is read from the "_template" key of the
instance's context.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := prCmd.Flags()
	f.StringVarP(&prFlags.repository, "repository", "R", "", "GitHub repository containing the pull requests (owner/name)")
	f.StringVar(&prFlags.base, "base", "master", "Import onto, and open pull requests against, this branch")
	f.StringVarP(&prFlags.user, "user", "u", "", "Import pull requests opened by this GitHub user")
	f.BoolVar(&prFlags.force, "force", false, "Overwrite existing imports and their pull requests")
	f.BoolVar(&prFlags.dryRun, "dry-run", false, "List the matching pull requests without importing")
	f.BoolVarP(&prFlags.verbose, "verbose", "v", false, "Enable debug logging")
}

func run(cmd *cobra.Command, args []string) error {
	ctx := loggingContext(cmd.Context(), prFlags.verbose)

	cache, err := primport.OpenCache()
	if err != nil {
		return err
	}

	token, err := resolveToken(ctx, cache)
	if err != nil {
		return err
	}

	importer := &primport.Importer{
		Client: primport.NewClient(ctx, token),
		Cache:  cache,
		Token:  token,
		Base:   prFlags.base,
		User:   prFlags.user,
		Force:  prFlags.force,
	}

	if prFlags.dryRun {
		pulls, err := importer.List(ctx, prFlags.repository, args)
		if err != nil {
			return err
		}
		return primport.RenderTable(cmd.OutOrStdout(), pulls)
	}

	return importer.Run(ctx, prFlags.repository, args)
}

// resolveToken prefers the environment and falls back to the cached token,
// caching a fresh environment token for later runs.
func resolveToken(ctx context.Context, cache *primport.Cache) (string, error) {
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return "", fmt.Errorf("processing environment: %w", err)
	}

	if cfg.Token != "" {
		if err := cache.SaveToken(cfg.Token); err != nil {
			clog.FromContext(ctx).Warnf("Caching token: %v", err)
		}
		return cfg.Token, nil
	}

	token, err := cache.LoadToken()
	if err != nil {
		return "", errors.New("no GitHub token: set GITHUB_TOKEN")
	}
	return token, nil
}

func loggingContext(ctx context.Context, verbose bool) context.Context {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return clog.WithLogger(ctx, log)
}

func main() {
	if err := prCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "retrocookie-pr: %v\n", err)
		os.Exit(1)
	}
}
