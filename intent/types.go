// Package intent turns raw utterances into the intents the dialog
// controller dispatches on.
package intent

import (
	"context"

	"github.com/tbxark/mailagent/types"
)

type Name string

const (
	NewMail              Name = "new_mail"
	SetRecipient         Name = "set_recipient"
	SetRecipientExplicit Name = "set_recipient_explicit"
	SetSubject           Name = "set_subject"
	SetSubjectExplicit   Name = "set_subject_explicit"
	SetContent           Name = "set_content"
	SetContentExplicit   Name = "set_content_explicit"
	ConfirmSend          Name = "confirm_send"
	DenySend             Name = "deny_send"
	Cancel               Name = "cancel"
	None                 Name = "none"
)

// Slot keys carried in Utterance.Slots. SlotRecipient holds the name;
// SlotSubject and SlotContent hold the keyword that made the utterance
// explicit, the value itself is extracted from the text.
const (
	SlotRecipient = "recipient"
	SlotSubject   = "subject"
	SlotContent   = "content"
)

// Utterance is one recognized user turn.
type Utterance struct {
	Intent Name              `json:"intent"`
	Text   string            `json:"text"`
	Slots  map[string]string `json:"slots,omitempty"`
}

// Slot returns the named slot and whether it was recognized.
func (u Utterance) Slot(key string) (string, bool) {
	v, ok := u.Slots[key]
	return v, ok
}

type Recognizer[T any] interface {
	Recognize(ctx context.Context, req *types.ToolRequest[T]) (Utterance, error)
}
