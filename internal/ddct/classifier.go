package ddct

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher reports whether a cell marks a role. Implementations must be safe
// for concurrent use.
type Matcher interface {
	Match(text string) bool
}

// MatcherFunc adapts a plain function to Matcher.
type MatcherFunc func(text string) bool

// Match calls f.
func (f MatcherFunc) Match(text string) bool { return f(text) }

// RegexMatcher matches when the pattern is found anywhere in the text.
// Anchors in the pattern are honoured; the match itself is not anchored.
type RegexMatcher struct {
	Pattern string
	re      *regexp.Regexp
}

// NewRegexMatcher compiles pattern, prefixing (?i) unless caseSensitive.
func NewRegexMatcher(pattern string, caseSensitive bool) (*RegexMatcher, error) {
	expr := pattern
	if !caseSensitive {
		expr = "(?i)" + pattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: compile pattern %q: %v", ErrInvalidOptions, pattern, err)
	}
	return &RegexMatcher{Pattern: pattern, re: re}, nil
}

// Match reports whether the pattern occurs in text.
func (m *RegexMatcher) Match(text string) bool { return m.re.MatchString(text) }

// String returns the pattern as given, without the case flag.
func (m *RegexMatcher) String() string { return m.Pattern }

// ExactMatcher matches cells equal to one of a fixed set of values.
type ExactMatcher struct {
	values        map[string]struct{}
	caseSensitive bool
}

// NewExactMatcher matches any of values, folding case unless caseSensitive.
func NewExactMatcher(caseSensitive bool, values ...string) *ExactMatcher {
	m := &ExactMatcher{values: make(map[string]struct{}, len(values)), caseSensitive: caseSensitive}
	for _, v := range values {
		m.values[m.fold(v)] = struct{}{}
	}
	return m
}

// Match reports whether text equals one of the values.
func (m *ExactMatcher) Match(text string) bool {
	_, ok := m.values[m.fold(text)]
	return ok
}

func (m *ExactMatcher) fold(s string) string {
	if m.caseSensitive {
		return s
	}
	return strings.ToLower(s)
}

// PrefixMatcher matches cells starting with Prefix.
type PrefixMatcher struct {
	Prefix        string
	CaseSensitive bool
}

// Match reports whether text starts with Prefix.
func (m PrefixMatcher) Match(text string) bool {
	if m.CaseSensitive {
		return strings.HasPrefix(text, m.Prefix)
	}
	return strings.HasPrefix(strings.ToLower(text), strings.ToLower(m.Prefix))
}

// Classifier sets the role flags and the Group/Sample identity of each well.
type Classifier struct {
	Control   Matcher
	Reference Matcher

	// ControlColumn is only used to describe a failed match.
	ControlColumn string
}

// Classify returns classified copies of wells. It fails with
// NoControlMatchError when no well is marked as control.
func (c Classifier) Classify(wells []Well) ([]Well, error) {
	out := make([]Well, len(wells))
	anyControl := false
	for i, w := range wells {
		w.IsControl = c.Control.Match(w.ControlText)
		w.IsReference = c.Reference.Match(w.Gene)
		w.Group, w.Sample = SplitLabel(w.Label)
		anyControl = anyControl || w.IsControl
		out[i] = w
	}
	if !anyControl {
		return nil, &NoControlMatchError{Pattern: describeMatcher(c.Control), Column: c.ControlColumn}
	}
	return out, nil
}

// SplitLabel derives the group from a sample label by dropping everything
// after the last hyphen. "MT-OGD-7" gives ("MT-OGD", "MT-OGD-7").
func SplitLabel(label string) (group, sample string) {
	if i := strings.LastIndex(label, "-"); i >= 0 {
		return label[:i], label
	}
	return label, label
}

func describeMatcher(m Matcher) string {
	if s, ok := m.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", m)
}
