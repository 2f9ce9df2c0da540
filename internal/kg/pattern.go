package kg

import (
	"fmt"
	"regexp"
)

// PatternError reports a node name pattern that failed to compile.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid node pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// PatternSet matches a node name against a fixed list of regular expressions.
//
// An empty set matches nothing. Callers that want no include stage at all pass
// a nil *PatternSet to Select and FilterByPatterns instead.
type PatternSet struct {
	raw      []string
	compiled []*regexp.Regexp
}

// CompilePatterns compiles every pattern, failing on the first invalid one.
func CompilePatterns(patterns ...string) (*PatternSet, error) {
	set := &PatternSet{
		raw:      make([]string, 0, len(patterns)),
		compiled: make([]*regexp.Regexp, 0, len(patterns)),
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &PatternError{Pattern: p, Err: err}
		}
		set.raw = append(set.raw, p)
		set.compiled = append(set.compiled, re)
	}
	return set, nil
}

// MustCompilePatterns is CompilePatterns that panics on error.
func MustCompilePatterns(patterns ...string) *PatternSet {
	set, err := CompilePatterns(patterns...)
	if err != nil {
		panic(err)
	}
	return set
}

// MatchAny reports whether node matches at least one pattern. A nil or empty
// set never matches.
func (p *PatternSet) MatchAny(node string) bool {
	if p == nil {
		return false
	}
	for _, re := range p.compiled {
		if re.MatchString(node) {
			return true
		}
	}
	return false
}

// Len returns the number of patterns.
func (p *PatternSet) Len() int {
	if p == nil {
		return 0
	}
	return len(p.raw)
}

// Patterns returns the source expressions.
func (p *PatternSet) Patterns() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.raw...)
}

// acceptNode applies the include/exclude policy shared by Select and
// FilterByPatterns: a nil include set lets every node through.
func acceptNode(node string, include, exclude *PatternSet) bool {
	if include != nil && !include.MatchAny(node) {
		return false
	}
	return !exclude.MatchAny(node)
}
