// Package validate statically checks untrusted scripts against a resolved
// sandbox policy before they ever reach the runner.
//
// Validation never returns a Go error: malformed syntax and every rule
// violation surface as [Issue] values on the [Result]. Scripts are parsed
// in the same async-function wrapping the runner uses, so top-level return
// and top-level await are tolerated. Identifier and loop rules operate on
// a conservative lexical scan of the source: member-access positions,
// string literals, comments, and regular expressions are skipped, and any
// remaining reference to a denied name is rejected regardless of scoping.
// For a deny-list validator over untrusted input, over-rejection is the
// correct failure mode.
package validate

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/dop251/goja/parser"

	"github.com/jonwraymond/codecall/policy"
)

// Rules toggles the individual validation rules. All rules default to on;
// use [DefaultRules] and clear fields to disable specific checks.
type Rules struct {
	// NoEval rejects any reference to eval.
	NoEval bool

	// DisallowedIdentifiers rejects identifiers from the policy's disabled
	// builtin and global sets (plus console when the policy disallows it).
	DisallowedIdentifiers bool

	// ForbiddenLoops rejects loop constructs when the policy disallows
	// loops.
	ForbiddenLoops bool

	// NoAsync rejects references to the async-function and generator
	// constructors, which are eval-equivalent escape vectors.
	NoAsync bool
}

// DefaultRules returns the rule set with every rule enabled.
func DefaultRules() Rules {
	return Rules{
		NoEval:                true,
		DisallowedIdentifiers: true,
		ForbiddenLoops:        true,
		NoAsync:               true,
	}
}

// Constructor-escape identifiers rejected by the NoAsync rule independently
// of the policy's disabled sets.
var constructorEscapes = []string{
	"Function",
	"AsyncFunction",
	"GeneratorFunction",
	"AsyncGeneratorFunction",
}

// Validate checks a script against the resolved policy with all rules
// enabled. It never returns an error; see the package documentation.
func Validate(script string, opts policy.Options) Result {
	return ValidateWithRules(script, opts, DefaultRules())
}

// ValidateWithRules is Validate with an explicit rule selection.
func ValidateWithRules(script string, opts policy.Options, rules Rules) Result {
	var result Result

	if issue, ok := parseIssue(script); ok {
		result.Issues = append(result.Issues, issue)
		return result
	}

	for _, tok := range scan(script) {
		switch tok.kind {
		case tokenLoop:
			if rules.ForbiddenLoops && !opts.AllowLoops {
				result.Issues = append(result.Issues, Issue{
					Kind:     KindDisallowedLoop,
					Severity: SeverityError,
					Message:  fmt.Sprintf("loop construct %q is not permitted by the active policy", tok.text),
					Location: &Location{Line: tok.line, Column: tok.col},
				})
			}
		case tokenIdentifier:
			if issue, ok := identifierIssue(tok, opts, rules); ok {
				result.Issues = append(result.Issues, issue)
			}
		}
	}

	return result
}

func identifierIssue(tok token, opts policy.Options, rules Rules) (Issue, bool) {
	name := tok.text
	loc := &Location{Line: tok.line, Column: tok.col}

	// eval is always IllegalBuiltinAccess, whichever rule reaches it.
	if name == "eval" {
		if !rules.NoEval && !rules.DisallowedIdentifiers {
			return Issue{}, false
		}
		return Issue{
			Kind:       KindIllegalBuiltinAccess,
			Severity:   SeverityError,
			Message:    "eval is never available to sandboxed scripts",
			Location:   loc,
			Identifier: name,
		}, true
	}

	if rules.NoAsync {
		for _, escape := range constructorEscapes {
			if name == escape {
				return Issue{
					Kind:       KindDisallowedGlobal,
					Severity:   SeverityError,
					Message:    fmt.Sprintf("constructor %q is a sandbox escape vector and is not available", name),
					Location:   loc,
					Identifier: name,
				}, true
			}
		}
	}

	if rules.DisallowedIdentifiers {
		if opts.Disallowed(name) || (!opts.AllowConsole && name == "console") {
			return Issue{
				Kind:       KindDisallowedGlobal,
				Severity:   SeverityError,
				Message:    fmt.Sprintf("identifier %q is disabled by the active policy", name),
				Location:   loc,
				Identifier: name,
			}, true
		}
	}

	return Issue{}, false
}

// lineColRe extracts the position goja's parser embeds in its error text,
// e.g. "Line 3:14 Unexpected token )".
var lineColRe = regexp.MustCompile(`Line (\d+):(\d+)`)

// parseIssue parses the script wrapped the same way the runner wraps it
// (async IIFE body, one header line) and converts any syntax error into a
// ParseError issue with runner-wrapper line numbers mapped back to the
// user's source.
func parseIssue(script string) (Issue, bool) {
	wrapped := "(async () => {\n" + script + "\n});"
	_, err := parser.ParseFile(nil, "script.js", wrapped, 0)
	if err == nil {
		return Issue{}, false
	}

	issue := Issue{
		Kind:     KindParseError,
		Severity: SeverityError,
		Message:  err.Error(),
	}
	if m := lineColRe.FindStringSubmatch(err.Error()); m != nil {
		line, _ := strconv.Atoi(m[1])
		col, _ := strconv.Atoi(m[2])
		// One wrapper line precedes user code.
		if line > 1 {
			issue.Location = &Location{Line: line - 1, Column: col}
		}
	}
	return issue, true
}
