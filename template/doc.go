/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package template models the Cookiecutter side of a template/instance
// repository pair: the variable context rendered into an instance, the
// location of the template skeleton directory, and the ordered substitutions
// that reverse a rendering back into token form.
package template
