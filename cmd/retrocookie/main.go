/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// retrocookie imports commits from a Cookiecutter instance repository back
// into its template, reverse-substituting rendered values into tokens along
// the way.
//
// Usage:
//
//	retrocookie [--base=master] [--branch=<name>] [--url=<instance>] <ref>
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"chainguard.dev/retrocookie/transplant"
)

var rootFlags struct {
	base      string
	branch    string
	url       string
	whitelist []string
	blacklist []string
	directory string
	verbose   bool
}

var rootCmd = &cobra.Command{
	Use:   "retrocookie [flags] <ref>",
	Short: "Import commits from a Cookiecutter instance into its template",
	Long: `Import commits from a Cookiecutter instance repository into the template
it was generated from.

The commits in <base>..<ref> on the instance are rewritten so that rendered
variable values become {{ cookiecutter.variable }} tokens again, in both file
contents and file names, and are then replayed onto the current branch of the
template repository under a new branch.

The instance location defaults to the template's origin URL with "-instance"
appended, matching the convention used when generating instances.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&rootFlags.base, "base", "master", "Import commits since this branch of the instance")
	f.StringVar(&rootFlags.branch, "branch", "", "Branch to create in the template (default: the imported ref)")
	f.StringVar(&rootFlags.url, "url", "", "Instance repository URL (default: derived from origin)")
	f.StringSliceVarP(&rootFlags.whitelist, "whitelist", "w", nil, "Only rewrite these context variables (repeatable)")
	f.StringSliceVarP(&rootFlags.blacklist, "blacklist", "b", nil, "Do not rewrite these context variables (repeatable)")
	f.StringVarP(&rootFlags.directory, "directory", "C", ".", "Template repository location")
	f.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Enable debug logging")
}

func run(cmd *cobra.Command, args []string) error {
	ctx := loggingContext(cmd.Context(), rootFlags.verbose)

	return transplant.Import(ctx, transplant.Options{
		Ref:       args[0],
		Base:      rootFlags.base,
		Branch:    rootFlags.branch,
		URL:       rootFlags.url,
		Whitelist: rootFlags.whitelist,
		Blacklist: rootFlags.blacklist,
		Path:      rootFlags.directory,
	})
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
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "retrocookie: %v\n", err)
		os.Exit(1)
	}
}
