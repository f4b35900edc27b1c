package guardrail

import (
	"context"
	"regexp"
)

// patterns matches common PII shapes: email addresses, US-style SSNs, and
// 13-16 digit card-like numbers. This is a best-effort content filter; full
// PII classification policy is out of scope.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`\b\d{13,16}\b`),
}

// ContentFilter is the default output guardrail: it masks text matching
// sensitive-content patterns (email addresses, SSNs, card-like numbers)
// rather than blocking the run outright.
type ContentFilter struct {
	mask string
}

// NewContentFilter constructs the default content filter. mask replaces
// each match; an empty mask defaults to "[redacted]".
func NewContentFilter(mask string) *ContentFilter {
	if mask == "" {
		mask = "[redacted]"
	}
	return &ContentFilter{mask: mask}
}

// Name implements Guardrail.
func (f *ContentFilter) Name() string { return "content-filter" }

// Check implements Guardrail.
func (f *ContentFilter) Check(_ context.Context, text string, _ CheckInput) (Verdict, error) {
	filtered := text
	hit := false
	for _, p := range patterns {
		if p.MatchString(filtered) {
			hit = true
			filtered = p.ReplaceAllString(filtered, f.mask)
		}
	}
	if !hit {
		return Verdict{Passed: true}, nil
	}
	return Verdict{Passed: false, FilteredText: filtered}, nil
}
