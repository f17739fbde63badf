package intent

import (
	"context"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/tbxark/mailagent/command"
	"github.com/tbxark/mailagent/types"
)

var (
	newMailPattern = regexp.MustCompile(`(?i)^(?:please )?(?:(?:send|write|compose|draft|start)\s+(?:a |an |new |the )*|new\s+)(?:e-?mail|mail|message)(?:\s+to\s+(?P<recipient>.+))?$`)

	explicitRecipientPattern = regexp.MustCompile(`(?i)^(?:send it to|set (?:the )?recipient to|(?:the )?recipient is|address it to)\s+(?P<recipient>.+)$`)

	subjectKeyword = regexp.MustCompile(`(?i)\b(?:subject|title)\b`)
	contentKeyword = regexp.MustCompile(`(?i)\bcontent\b|\bmessage (?:says|reads)\b`)
)

// LocalRecognizer recognizes intents with fixed vocabulary, the way a voice
// assistant registers intent files and keywords. Confirmation answers are
// delegated to a command parser while the draft is waiting to be sent.
type LocalRecognizer[T any] struct {
	Commands       command.Parser[T]
	CancelKeywords []string
}

func NewLocalRecognizer[T any]() *LocalRecognizer[T] {
	return &LocalRecognizer[T]{
		Commands:       command.NewLocalCommandParser[T](),
		CancelKeywords: []string{"cancel", "cancel the message", "stop", "never mind", "forget it", "abort"},
	}
}

func (r *LocalRecognizer[T]) Recognize(ctx context.Context, req *types.ToolRequest[T]) (Utterance, error) {
	text := strings.TrimSpace(req.MessagePair.Answer)
	normalized := command.Normalize(text)
	u := Utterance{Intent: None, Text: text}
	if normalized == "" {
		return u, nil
	}

	// "send the message" answers the confirmation prompt before it can
	// start a new draft.
	if req.Phase == types.PhaseReadyToSend && r.Commands != nil {
		cmd, err := r.Commands.ParseCommand(ctx, req)
		if err != nil {
			slog.Debug("Confirmation parse failed", "err", err)
		}
		switch cmd {
		case command.Confirm:
			u.Intent = ConfirmSend
			return u, nil
		case command.Deny:
			u.Intent = DenySend
			return u, nil
		case command.Cancel:
			u.Intent = Cancel
			return u, nil
		}
	}

	if m := newMailPattern.FindStringSubmatch(normalized); m != nil {
		u.Intent = NewMail
		if recipient := cleanRecipient(m[newMailPattern.SubexpIndex("recipient")]); recipient != "" {
			u.Slots = map[string]string{SlotRecipient: recipient}
		}
		return u, nil
	}

	if slices.Contains(r.CancelKeywords, normalized) {
		u.Intent = Cancel
		return u, nil
	}

	if m := explicitRecipientPattern.FindStringSubmatch(text); m != nil {
		if recipient := cleanRecipient(m[explicitRecipientPattern.SubexpIndex("recipient")]); recipient != "" {
			u.Intent = SetRecipientExplicit
			u.Slots = map[string]string{SlotRecipient: recipient}
			return u, nil
		}
	}
	if kw := subjectKeyword.FindString(text); kw != "" {
		u.Intent = SetSubjectExplicit
		u.Slots = map[string]string{SlotSubject: strings.ToLower(kw)}
		return u, nil
	}
	if kw := contentKeyword.FindString(text); kw != "" {
		u.Intent = SetContentExplicit
		u.Slots = map[string]string{SlotContent: strings.ToLower(kw)}
		return u, nil
	}

	switch req.Phase {
	case types.PhaseAwaitingRecipient:
		if recipient := cleanRecipient(text); recipient != "" {
			u.Intent = SetRecipient
			u.Slots = map[string]string{SlotRecipient: recipient}
		}
	case types.PhaseAwaitingSubject:
		u.Intent = SetSubject
	case types.PhaseAwaitingContent:
		u.Intent = SetContent
	}
	return u, nil
}

func cleanRecipient(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "to "), "To ")
	return strings.Trim(s, " .,!?")
}

type FailbackRecognizer[T any] struct {
	recognizers []Recognizer[T]
}

func NewFailbackRecognizer[T any](recognizers ...Recognizer[T]) *FailbackRecognizer[T] {
	return &FailbackRecognizer[T]{recognizers: recognizers}
}

// Recognize returns the first recognition that is not None.
func (r *FailbackRecognizer[T]) Recognize(ctx context.Context, req *types.ToolRequest[T]) (Utterance, error) {
	var lastErr error
	fallback := Utterance{Intent: None, Text: strings.TrimSpace(req.MessagePair.Answer)}
	for _, recognizer := range r.recognizers {
		u, err := recognizer.Recognize(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		if u.Intent != None {
			return u, nil
		}
	}
	return fallback, lastErr
}
