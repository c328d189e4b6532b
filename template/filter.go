/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package template

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// Filter selects which context variables participate in a rewrite. The
// effective set is (whitelist, or every context key when the whitelist is
// empty) minus the blacklist. A Filter is computed once per run and never
// mutated.
type Filter struct {
	whitelist map[string]struct{}
	blacklist map[string]struct{}
}

// NewFilter builds a Filter from whitelist and blacklist variable names.
func NewFilter(whitelist, blacklist []string) Filter {
	return Filter{
		whitelist: toSet(whitelist),
		blacklist: toSet(blacklist),
	}
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Substitution replaces one rendered value with its token form.
type Substitution struct {
	Name  string
	Value string
	Token string
}

// Substitutions is an ordered list of value-to-token replacements. The order
// is longest value first so that a value which contains another value as a
// substring is always consumed before the shorter one can corrupt it; ties
// break on variable name for determinism.
type Substitutions []Substitution

// Token returns the unrendered placeholder for a variable name, in the exact
// whitespace convention the templating engine renders from.
func Token(name string) string {
	return fmt.Sprintf("{{ cookiecutter.%s }}", name)
}

// Substitutions resolves the filter against a loaded context into the ordered
// replacement list. A whitelist entry naming an unknown variable is a
// SubstitutionError. So are two selected variables whose values are identical
// after trimming whitespace: such a rendering cannot be reversed without
// guessing, so it is refused outright. Variables whose values are empty or
// whitespace-only carry no reversible trace and are skipped.
func (f Filter) Substitutions(ctx Context) (Substitutions, error) {
	for name := range f.whitelist {
		if _, ok := ctx[name]; !ok {
			return nil, &SubstitutionError{Variable: name, Reason: "not in context"}
		}
	}

	included := func(name string) bool {
		if _, excluded := f.blacklist[name]; excluded {
			return false
		}
		if len(f.whitelist) == 0 {
			return true
		}
		_, ok := f.whitelist[name]
		return ok
	}

	byValue := make(map[string]string) // trimmed value -> variable name
	var subs Substitutions
	for _, name := range ctx.Names() {
		if !included(name) {
			continue
		}
		value := ctx[name]
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if other, ok := byValue[trimmed]; ok {
			return nil, &SubstitutionError{
				Variable: name,
				Reason:   fmt.Sprintf("value %q is ambiguous with variable %q", value, other),
			}
		}
		byValue[trimmed] = name
		subs = append(subs, Substitution{Name: name, Value: value, Token: Token(name)})
	}

	sort.Slice(subs, func(i, j int) bool {
		if len(subs[i].Value) != len(subs[j].Value) {
			return len(subs[i].Value) > len(subs[j].Value)
		}
		return subs[i].Name < subs[j].Name
	})

	return subs, nil
}

// Apply performs the ordered substitution on raw bytes.
func (s Substitutions) Apply(data []byte) []byte {
	for _, sub := range s {
		data = bytes.ReplaceAll(data, []byte(sub.Value), []byte(sub.Token))
	}
	return data
}

// ApplyString performs the ordered substitution on a string, typically a path
// segment.
func (s Substitutions) ApplyString(text string) string {
	for _, sub := range s {
		text = strings.ReplaceAll(text, sub.Value, sub.Token)
	}
	return text
}
