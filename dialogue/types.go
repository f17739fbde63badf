// Package dialogue holds the named dialog templates spoken by the
// controller and the collaborators that turn them into text.
package dialogue

import (
	"context"
)

// Template names.
const (
	AskForRecipient  = "ask.for.recipient"
	AskForSubject    = "ask.for.subject"
	AskForContent    = "ask.for.content"
	ShouldISend      = "should.i.send"
	SendingMessage   = "sending.message"
	NotUnderstood    = "not.understood"
	ReadoutMessage   = "readout.message"
	MessageCancelled = "message.cancelled"
)

// Prompt is one dialog line the controller wants spoken. Data feeds the
// template placeholders.
type Prompt struct {
	Template       string         `json:"template"`
	Data           map[string]any `json:"data,omitempty"`
	ExpectResponse bool           `json:"expect_response,omitempty"`
}

type Speaker interface {
	Speak(ctx context.Context, prompt Prompt) error
}

type Renderer interface {
	Render(ctx context.Context, prompt Prompt) (string, error)
}

// Line is a rendered prompt.
type Line struct {
	Prompt Prompt `json:"prompt"`
	Text   string `json:"text"`
}
