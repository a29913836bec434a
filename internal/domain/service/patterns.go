package service

import (
	"regexp"
	"strings"
)

// Signature is a named pattern matched case-insensitively against free text.
// Exactly one of substr or re is set.
type Signature struct {
	Name   string
	substr string
	re     *regexp.Regexp
}

// Contains builds a substring signature.
func Contains(name, substr string) Signature {
	return Signature{Name: name, substr: strings.ToLower(substr)}
}

// Regexp builds a regular-expression signature. The expression is compiled
// case-insensitively.
func Regexp(name, expr string) Signature {
	return Signature{Name: name, re: regexp.MustCompile("(?i)" + expr)}
}

func (s Signature) matches(lower string) bool {
	if s.re != nil {
		return s.re.MatchString(lower)
	}
	return strings.Contains(lower, s.substr)
}

// Matcher tests a string against an ordered signature list. The first matching
// signature wins.
type Matcher struct {
	signatures []Signature
}

func NewMatcher(signatures ...Signature) Matcher {
	return Matcher{signatures: signatures}
}

// Match returns the name of the first signature contained in s. Empty or
// whitespace-only input never matches.
func (m Matcher) Match(s string) (string, bool) {
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	lower := strings.ToLower(s)
	for _, sig := range m.signatures {
		if sig.matches(lower) {
			return sig.Name, true
		}
	}
	return "", false
}

// MatchAny returns the first match across candidates, in order.
func (m Matcher) MatchAny(candidates ...string) (string, bool) {
	for _, c := range candidates {
		if name, ok := m.Match(c); ok {
			return name, true
		}
	}
	return "", false
}

var xssMatcher = NewMatcher(
	Contains("javascript-uri", "javascript:"),
	Contains("inline-script", "<script"),
	Contains("eval-call", "eval("),
	Contains("vbscript-uri", "vbscript:"),
	Contains("data-html", "data:text/html"),
)

var sqlInjectionMatcher = NewMatcher(
	Regexp("union-select", `\bunion\s+(all\s+)?select\b`),
	Regexp("tautology", `'\s*or\s+'?\w+'?\s*=\s*'?\w+`),
	Regexp("stacked-drop", `;\s*drop\s+(table|database)\b`),
	Regexp("time-based", `\b(sleep|pg_sleep|benchmark)\s*\(`),
	Contains("comment-terminator", "'--"),
)

var falsePositiveMatcher = NewMatcher(
	Contains("chrome-extension", "chrome-extension://"),
	Contains("firefox-extension", "moz-extension://"),
	Contains("safari-extension", "safari-extension://"),
	Contains("safari-web-extension", "safari-web-extension://"),
	Contains("edge-extension", "ms-browser-extension://"),
	Contains("adblock", "adblock"),
	Contains("ublock", "ublock"),
	Contains("adguard", "adguard"),
	Contains("webpack", "webpack://"),
	Contains("webpack-internal", "webpack-internal://"),
	Contains("vite", "vite/"),
	Contains("react-devtools", "react-devtools"),
	Contains("vue-devtools", "vue-devtools"),
)

// devEvalSources matches source files from which a blocked "eval" is dev tooling noise.
var devEvalSources = NewMatcher(
	Regexp("devtools-eval", `^(about|blob):`),
	Contains("devtools-eval", "devtools"),
)

// MatchXSS reports whether s carries a cross-site-scripting indicator.
func MatchXSS(s string) (string, bool) { return xssMatcher.Match(s) }

// MatchSQLInjection reports whether s carries a SQL-injection indicator.
func MatchSQLInjection(s string) (string, bool) { return sqlInjectionMatcher.Match(s) }

// MatchFalsePositive reports whether s is a known benign source of CSP noise.
func MatchFalsePositive(s string) (string, bool) { return falsePositiveMatcher.Match(s) }
