/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gitrepo

import (
	"fmt"
	"strings"
)

// VersionControlError reports a failed version-control operation, either from
// go-git or from the git binary. Stderr holds the tool's diagnostic output
// when the operation ran as a subprocess.
type VersionControlError struct {
	Op     string
	Stderr string
	Err    error
}

func (e *VersionControlError) Error() string {
	if diag := strings.TrimSpace(e.Stderr); diag != "" {
		return fmt.Sprintf("git %s: %v: %s", e.Op, e.Err, diag)
	}
	return fmt.Sprintf("git %s: %v", e.Op, e.Err)
}

func (e *VersionControlError) Unwrap() error { return e.Err }
