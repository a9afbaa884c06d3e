package validate

// Kind classifies a validation issue.
type Kind string

// Issue kinds.
const (
	// KindParseError reports malformed syntax.
	KindParseError Kind = "ParseError"

	// KindDisallowedGlobal reports a reference to an identifier disabled by
	// the active policy.
	KindDisallowedGlobal Kind = "DisallowedGlobal"

	// KindDisallowedLoop reports a loop construct when loops are not
	// permitted.
	KindDisallowedLoop Kind = "DisallowedLoop"

	// KindIllegalBuiltinAccess reports a reference to eval or another
	// builtin that is never exposed to scripts.
	KindIllegalBuiltinAccess Kind = "IllegalBuiltinAccess"
)

// Severity grades an issue. Only error-severity issues affect [Result.OK].
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Location is a 1-based source position.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Issue is a single validation finding.
type Issue struct {
	// Kind classifies the issue.
	Kind Kind `json:"kind"`

	// Severity grades the issue. Defaults to SeverityError.
	Severity Severity `json:"severity"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// Location is the source position, when the scanner or parser could
	// determine one. Nil otherwise.
	Location *Location `json:"location,omitempty"`

	// Identifier is the offending identifier for identifier-based rules.
	Identifier string `json:"identifier,omitempty"`
}

// Result is the outcome of validating one script.
type Result struct {
	// Issues lists every finding in source order.
	Issues []Issue `json:"issues"`
}

// OK reports whether the script passed validation. It is derived from the
// issue list (no error-severity issues), never stored independently.
func (r Result) OK() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return false
		}
	}
	return true
}
