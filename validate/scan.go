package validate

import "unicode"

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenLoop
)

// token is a lexical finding relevant to the rule checks: a free-standing
// identifier reference or a loop keyword, with its 1-based position.
type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

type scanner struct {
	src  []rune
	i    int
	line int
	col  int
}

func (s *scanner) peek(offset int) rune {
	if s.i+offset < len(s.src) {
		return s.src[s.i+offset]
	}
	return 0
}

func (s *scanner) advance() rune {
	r := s.src[s.i]
	s.i++
	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return r
}

// scan performs a single pass over the source and returns identifier and
// loop-keyword tokens in source order. Comments, string literals, regular
// expression literals, and member-access positions are skipped; template
// literal expressions are scanned as code.
func scan(src string) []token {
	s := &scanner{src: []rune(src), line: 1, col: 1}

	var toks []token
	var tmplDepths []int // brace depths saved when entering ${...} regions
	braceDepth := 0
	prevDot := false  // previous significant token was '.' (member access)
	regexOK := true   // a '/' here would start a regex literal
	pendingDo := 0    // unmatched do keywords awaiting their while

	for s.i < len(s.src) {
		r := s.src[s.i]
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			s.advance()

		case r == '/':
			switch {
			case s.peek(1) == '/':
				s.skipLineComment()
			case s.peek(1) == '*':
				s.skipBlockComment()
			case regexOK:
				s.skipRegex()
				regexOK = false
				prevDot = false
			default:
				s.advance()
				regexOK = true
				prevDot = false
			}

		case r == '\'' || r == '"':
			s.skipString(r)
			regexOK = false
			prevDot = false

		case r == '`':
			s.advance()
			if s.scanTemplate() {
				tmplDepths = append(tmplDepths, braceDepth)
				braceDepth = 0
				regexOK = true
			} else {
				regexOK = false
			}
			prevDot = false

		case isIdentStart(r):
			line, col := s.line, s.col
			name := s.scanIdentifier()
			if !prevDot {
				switch name {
				case "for":
					toks = append(toks, token{tokenLoop, "for", line, col})
				case "do":
					pendingDo++
					toks = append(toks, token{tokenLoop, "do-while", line, col})
				case "while":
					if pendingDo > 0 {
						pendingDo--
					} else {
						toks = append(toks, token{tokenLoop, "while", line, col})
					}
				default:
					if !isKeyword(name) {
						toks = append(toks, token{tokenIdentifier, name, line, col})
					}
				}
			}
			prevDot = false
			regexOK = keywordAllowsRegex(name)

		case r == '.':
			s.advance()
			prevDot = true
			regexOK = false

		case isDigit(r):
			s.scanNumber()
			prevDot = false
			regexOK = false

		case r == '{':
			braceDepth++
			s.advance()
			prevDot = false
			regexOK = true

		case r == '}':
			s.advance()
			prevDot = false
			if braceDepth == 0 && len(tmplDepths) > 0 {
				// Closing a ${...} region: resume the template literal.
				braceDepth = tmplDepths[len(tmplDepths)-1]
				tmplDepths = tmplDepths[:len(tmplDepths)-1]
				if s.scanTemplate() {
					tmplDepths = append(tmplDepths, braceDepth)
					braceDepth = 0
				}
				regexOK = false
			} else {
				if braceDepth > 0 {
					braceDepth--
				}
				regexOK = true
			}

		case r == ')' || r == ']':
			s.advance()
			prevDot = false
			regexOK = false

		default:
			s.advance()
			prevDot = false
			regexOK = true
		}
	}

	return toks
}

// scanTemplate consumes template literal text. It returns true when a ${
// expression opens (the caller resumes code scanning) and false when the
// template terminates.
func (s *scanner) scanTemplate() bool {
	for s.i < len(s.src) {
		switch s.advance() {
		case '\\':
			if s.i < len(s.src) {
				s.advance()
			}
		case '`':
			return false
		case '$':
			if s.peek(0) == '{' {
				s.advance()
				return true
			}
		}
	}
	return false
}

func (s *scanner) skipLineComment() {
	for s.i < len(s.src) && s.src[s.i] != '\n' {
		s.advance()
	}
}

func (s *scanner) skipBlockComment() {
	s.advance() // '/'
	s.advance() // '*'
	for s.i < len(s.src) {
		if s.advance() == '*' && s.peek(0) == '/' {
			s.advance()
			return
		}
	}
}

func (s *scanner) skipString(quote rune) {
	s.advance() // opening quote
	for s.i < len(s.src) {
		r := s.advance()
		if r == '\\' {
			if s.i < len(s.src) {
				s.advance()
			}
			continue
		}
		if r == quote || r == '\n' {
			return
		}
	}
}

func (s *scanner) skipRegex() {
	s.advance() // '/'
	inClass := false
	for s.i < len(s.src) {
		r := s.advance()
		switch {
		case r == '\\':
			if s.i < len(s.src) {
				s.advance()
			}
		case r == '[':
			inClass = true
		case r == ']':
			inClass = false
		case r == '/' && !inClass:
			// Trailing flags.
			for s.i < len(s.src) && isIdentPart(s.src[s.i]) {
				s.advance()
			}
			return
		case r == '\n':
			return
		}
	}
}

func (s *scanner) scanIdentifier() string {
	start := s.i
	for s.i < len(s.src) && isIdentPart(s.src[s.i]) {
		s.advance()
	}
	return string(s.src[start:s.i])
}

func (s *scanner) scanNumber() {
	for s.i < len(s.src) && (isIdentPart(s.src[s.i]) || s.src[s.i] == '.') {
		s.advance()
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Reserved words that are never identifier references. Loop keywords are
// handled separately before this check.
var keywords = map[string]struct{}{
	"await": {}, "break": {}, "case": {}, "catch": {}, "class": {},
	"const": {}, "continue": {}, "debugger": {}, "default": {}, "delete": {},
	"else": {}, "enum": {}, "export": {}, "extends": {}, "false": {},
	"finally": {}, "function": {}, "if": {}, "import": {}, "in": {},
	"instanceof": {}, "let": {}, "new": {}, "null": {}, "of": {},
	"return": {}, "static": {}, "super": {}, "switch": {}, "this": {},
	"throw": {}, "true": {}, "try": {}, "typeof": {}, "undefined": {},
	"var": {}, "void": {}, "yield": {}, "async": {}, "get": {}, "set": {},
}

func isKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}

// keywordAllowsRegex reports whether a '/' directly after the given word
// starts a regex literal rather than division.
func keywordAllowsRegex(name string) bool {
	switch name {
	case "return", "typeof", "instanceof", "in", "of", "new", "delete",
		"void", "case", "do", "else", "yield", "await", "throw":
		return true
	}
	return false
}
