package extract

import (
	"context"
	"fmt"
	"log/slog"
)

// FailbackExtractor asks each extractor in turn and returns the first match.
// Errors are skipped; the last one is returned only when nothing matched.
type FailbackExtractor struct {
	extractors []Extractor
}

func NewFailbackExtractor(extractors ...Extractor) *FailbackExtractor {
	return &FailbackExtractor{extractors: extractors}
}

func (e *FailbackExtractor) ExtractSubject(ctx context.Context, utterance string) (string, bool, error) {
	return e.first(func(x Extractor) (string, bool, error) { return x.ExtractSubject(ctx, utterance) })
}

func (e *FailbackExtractor) ExtractContent(ctx context.Context, utterance string) (string, bool, error) {
	return e.first(func(x Extractor) (string, bool, error) { return x.ExtractContent(ctx, utterance) })
}

func (e *FailbackExtractor) first(fn func(Extractor) (string, bool, error)) (string, bool, error) {
	var lastErr error
	for _, x := range e.extractors {
		value, ok, err := fn(x)
		if err != nil {
			slog.Debug("Extractor failed", "extractor", fmt.Sprintf("%T", x), "err", err)
			lastErr = err
			continue
		}
		if ok {
			return value, true, nil
		}
	}
	return "", false, lastErr
}
