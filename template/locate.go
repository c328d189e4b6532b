/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package template

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Markers that identify a Cookiecutter template directory, required to appear
// in this order within the directory name.
var templateMarkers = []string{"{{", "cookiecutter", "}}"}

// FindTemplateDirectory scans the immediate children of root for the
// directory holding the template skeleton, identified by the templating
// engine's delimiters in its name (e.g. "{{cookiecutter.project}}"). Exactly
// one such directory must exist: none is a ConfigError, and so is more than
// one, since directory-listing order is no basis for picking a winner.
func FindTemplateDirectory(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", &ConfigError{Path: root, Err: err}
	}

	var matches []string
	for _, entry := range entries {
		if entry.IsDir() && hasTemplateMarkers(entry.Name()) {
			matches = append(matches, entry.Name())
		}
	}

	switch len(matches) {
	case 0:
		return "", &ConfigError{Path: root, Err: errors.New("cannot find template directory")}
	case 1:
		return matches[0], nil
	default:
		return "", &ConfigError{
			Path: root,
			Err:  fmt.Errorf("multiple template directories: %s", strings.Join(matches, ", ")),
		}
	}
}

func hasTemplateMarkers(name string) bool {
	rest := name
	for _, marker := range templateMarkers {
		i := strings.Index(rest, marker)
		if i < 0 {
			return false
		}
		rest = rest[i+len(marker):]
	}
	return true
}
