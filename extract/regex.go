package extract

import (
	"context"
	"regexp"
	"strings"
)

var (
	defaultSubjectPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)set (?:the )?(?:subject|title) (?:of the message )?to (?P<value>.*)$`),
		regexp.MustCompile(`(?i)(?:the )?(?:subject|title) (?:of the message )?is (?P<value>.*)$`),
	}
	defaultContentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)set (?:the )?content (?:of the message )?to (?P<value>.*)$`),
		regexp.MustCompile(`(?i)(?:the )?content (?:of the message )?is (?P<value>.*)$`),
		regexp.MustCompile(`(?i)(?:the )?message (?:says|reads) (?P<value>.*)$`),
	}
)

// RegexExtractor matches a fixed set of phrasings such as "the subject is X"
// or "the message says X". Every pattern must have a "value" group.
type RegexExtractor struct {
	SubjectPatterns []*regexp.Regexp
	ContentPatterns []*regexp.Regexp
}

func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{
		SubjectPatterns: defaultSubjectPatterns,
		ContentPatterns: defaultContentPatterns,
	}
}

func (e *RegexExtractor) ExtractSubject(ctx context.Context, utterance string) (string, bool, error) {
	value, ok := match(e.SubjectPatterns, utterance)
	return value, ok, nil
}

func (e *RegexExtractor) ExtractContent(ctx context.Context, utterance string) (string, bool, error) {
	value, ok := match(e.ContentPatterns, utterance)
	return value, ok, nil
}

func match(patterns []*regexp.Regexp, utterance string) (string, bool) {
	utterance = strings.TrimSpace(utterance)
	for _, re := range patterns {
		m := re.FindStringSubmatch(utterance)
		if m == nil {
			continue
		}
		i := re.SubexpIndex("value")
		if i < 0 {
			continue
		}
		if value := strings.TrimSpace(m[i]); value != "" {
			return value, true
		}
	}
	return "", false
}
