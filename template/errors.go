/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package template

import "fmt"

// ConfigError reports a missing or malformed piece of template configuration,
// such as an absent context file or an unlocatable template directory. It is
// always raised before any repository mutation.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// SubstitutionError reports a variable filter that cannot be applied: a
// whitelist entry naming an unknown variable, or two variables whose rendered
// values are indistinguishable and therefore cannot be reversed
// deterministically.
type SubstitutionError struct {
	Variable string
	Reason   string
}

func (e *SubstitutionError) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("substitution: variable %q: %s", e.Variable, e.Reason)
	}
	return fmt.Sprintf("substitution: %s", e.Reason)
}
