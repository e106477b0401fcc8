package service

import (
	"regexp"

	"github.com/vibetutor/gateway-server-go/internal/model"
)

// filterCategory pairs a compiled pattern with the reason reported when it
// matches. Categories are checked in order; the first match wins.
type filterCategory struct {
	name    string
	pattern *regexp.Regexp
}

// The keyword lists are deliberately blunt: "death" blocks a homework
// question about a historical figure's death. That over-blocking is the
// product policy for the target audience, not an oversight.
var filterCategories = []filterCategory{
	{
		name:    "violence or self-harm",
		pattern: regexp.MustCompile(`(?i)\b(violence|violent|kill|death|die|dead|suicide|drug|alcohol|sex|nude|porn)\b`),
	},
	{
		name:    "hate or discrimination",
		pattern: regexp.MustCompile(`(?i)\b(hate|racist|discrimination)\b`),
	},
	{
		name:    "profanity",
		pattern: regexp.MustCompile(`(?i)\b(damn|hell|shit|fuck|ass|bitch)\b`),
	},
}

// ContentFilter classifies text as safe or unsafe for a child-oriented
// audience. It is stateless and safe for concurrent use.
type ContentFilter struct{}

func NewContentFilter() *ContentFilter {
	return &ContentFilter{}
}

// Classify scans text against every category and returns the verdict for
// the first match. Matching is case-insensitive and bound to whole words so
// substrings inside legitimate words (e.g. "assessment") pass.
func (f *ContentFilter) Classify(text string) model.FilterVerdict {
	for _, category := range filterCategories {
		if category.pattern.MatchString(text) {
			return model.FilterVerdict{
				Safe:   false,
				Reason: "Content contains inappropriate material for children: " + category.name,
			}
		}
	}
	return model.FilterVerdict{Safe: true}
}
