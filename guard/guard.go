// Package guard blocks self-referential calls to the CodeCall meta-tools.
//
// Sandboxed scripts and direct callers must not be able to search for,
// describe, or invoke the orchestration tools themselves; allowing it
// opens recursive meta-tool loops and sandbox re-entry. The predicate is
// pure and matches the meta-tool namespace case-insensitively.
package guard

import (
	"strings"

	"golang.org/x/text/cases"
)

// Namespace is the namespace segment owned by the orchestration tools.
const Namespace = "codecall"

var fold = cases.Fold()

// IsBlockedSelfReference reports whether the tool name targets one of the
// orchestration tools. The namespace segment (everything before the first
// ':', or the whole name when there is none) is compared caselessly against
// [Namespace].
func IsBlockedSelfReference(toolName string) bool {
	name := strings.TrimSpace(toolName)
	if name == "" {
		return false
	}
	ns := name
	if i := strings.Index(name, ":"); i >= 0 {
		ns = name[:i]
	}
	return fold.String(ns) == Namespace
}
