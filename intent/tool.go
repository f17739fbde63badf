package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/mailagent/structured"
	"github.com/tbxark/mailagent/types"
)

const (
	parseIntentToolName        = "parse_intent"
	parseIntentToolDescription = "Classify the user's utterance into one email composition intent."
)

// DefaultParseIntentSystemPromptTemplate is the default system prompt template used by
// ToolBasedRecognizer. The template may contain a single "%s" placeholder for the tool name.
const DefaultParseIntentSystemPromptTemplate = `
You are the intent recognizer of a voice assistant that composes emails one field at a time.

Always read the user's answer together with the assistant's latest question and the active context.

Choose exactly one intent:
- new_mail: the user wants to start a new email. Put a named recipient in "recipient" if given.
- set_recipient_explicit: the user names who the email goes to ("send it to Bob"). Put the name in "recipient".
- set_recipient: the assistant asked for the recipient and the user answered with a name. Put the name in "recipient".
- set_subject_explicit: the user explicitly dictates the subject or title.
- set_subject: the assistant asked for the subject and the user answered it.
- set_content_explicit: the user explicitly dictates the content ("the message says ...").
- set_content: the assistant asked for the content and the user answered it.
- confirm_send: the draft was read back and the user agrees to send it.
- deny_send: the draft was read back and the user says not to send it.
- cancel: the user abandons the email.
- none: anything else.

Call the '%s' tool with the result.
`

type PromptBuilder[T any] func(systemPrompt string) func(ctx context.Context, req *types.ToolRequest[T]) ([]*schema.Message, error)

type recognizerOptions[T any] struct {
	systemPromptTemplate string
	promptBuilder        PromptBuilder[T]
}

type RecognizerOption[T any] func(*recognizerOptions[T])

func WithIntentSystemPromptTemplate[T any](systemPromptTemplate string) RecognizerOption[T] {
	return func(o *recognizerOptions[T]) {
		o.systemPromptTemplate = systemPromptTemplate
	}
}

func WithIntentPromptBuilder[T any](promptBuilder PromptBuilder[T]) RecognizerOption[T] {
	return func(o *recognizerOptions[T]) {
		o.promptBuilder = promptBuilder
	}
}

func newRecognizerOptions[T any](opts ...RecognizerOption[T]) *recognizerOptions[T] {
	opt := recognizerOptions[T]{
		systemPromptTemplate: DefaultParseIntentSystemPromptTemplate,
		promptBuilder: func(systemPrompt string) func(ctx context.Context, req *types.ToolRequest[T]) ([]*schema.Message, error) {
			return func(ctx context.Context, req *types.ToolRequest[T]) ([]*schema.Message, error) {
				message, err := types.FormatToolRequest(req)
				if err != nil {
					return nil, fmt.Errorf("convert to prompt message failed: %w", err)
				}
				return []*schema.Message{
					schema.SystemMessage(systemPrompt),
					schema.UserMessage(message),
				}, nil
			}
		},
	}
	for _, o := range opts {
		o(&opt)
	}
	return &opt
}

type parseIntentInput struct {
	Intent    Name   `json:"intent" jsonschema:"required,enum=new_mail,enum=set_recipient,enum=set_recipient_explicit,enum=set_subject,enum=set_subject_explicit,enum=set_content,enum=set_content_explicit,enum=confirm_send,enum=deny_send,enum=cancel,enum=none,description=The user's intent"`
	Recipient string `json:"recipient,omitempty" jsonschema:"description=Recipient named by the user, if any"`
}

type ToolBasedRecognizer[T any] struct {
	chain *structured.Chain[*types.ToolRequest[T], parseIntentInput]
}

func NewToolBasedRecognizer[T any](chatModel model.ToolCallingChatModel, opts ...RecognizerOption[T]) (*ToolBasedRecognizer[T], error) {
	options := newRecognizerOptions[T](opts...)
	chain, err := structured.NewChain[*types.ToolRequest[T], parseIntentInput](
		chatModel,
		options.promptBuilder(fmt.Sprintf(options.systemPromptTemplate, parseIntentToolName)),
		parseIntentToolName,
		parseIntentToolDescription,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedRecognizer[T]{chain: chain}, nil
}

func (r *ToolBasedRecognizer[T]) Recognize(ctx context.Context, req *types.ToolRequest[T]) (Utterance, error) {
	u := Utterance{Intent: None, Text: strings.TrimSpace(req.MessagePair.Answer)}
	result, err := r.chain.Invoke(ctx, req)
	if err != nil {
		return u, err
	}
	if result == nil || result.Intent == "" {
		return u, fmt.Errorf("empty intent returned by %s", parseIntentToolName)
	}
	u.Intent = result.Intent
	switch u.Intent {
	case NewMail, SetRecipient, SetRecipientExplicit:
		if recipient := cleanRecipient(result.Recipient); recipient != "" {
			u.Slots = map[string]string{SlotRecipient: recipient}
		}
	case SetSubjectExplicit:
		u.Slots = map[string]string{SlotSubject: "subject"}
	case SetContentExplicit:
		u.Slots = map[string]string{SlotContent: "content"}
	}
	return u, nil
}
