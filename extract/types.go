// Package extract pulls free-text field values out of an utterance.
package extract

import "context"

// Extractor finds the subject or content a user dictated. ok is false when
// the utterance does not use any phrasing the extractor understands.
type Extractor interface {
	ExtractSubject(ctx context.Context, utterance string) (value string, ok bool, err error)
	ExtractContent(ctx context.Context, utterance string) (value string, ok bool, err error)
}
