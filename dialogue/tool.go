package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ToolBasedRenderer asks a chat model to phrase the dialog line. The line
// rendered by the base renderer is passed along as the reference wording.
type ToolBasedRenderer struct {
	Lang                 string
	systemPrompt         string
	systemPromptTemplate string
	base                 Renderer
	chatModel            model.ToolCallingChatModel
}

// DefaultRendererSystemPromptTemplate is the default system prompt template used by
// ToolBasedRenderer. The template may contain a single "%s" placeholder for the language.
const DefaultRendererSystemPromptTemplate = `You are the voice of an assistant that writes emails for the user.

You receive the name of a dialog line, its data and a reference wording. Say the same thing naturally:
- Keep every recipient, subject and content value exactly as given.
- If the line expects an answer, end with a question.
- One or two short sentences, no lists, nothing else.
- Reply in %s.
`

type rendererOptions struct {
	lang                 string
	systemPrompt         string
	systemPromptTemplate string
}

type RendererOption func(*rendererOptions)

// WithRendererLang sets the language used by the default system prompt template.
func WithRendererLang(lang string) RendererOption {
	return func(o *rendererOptions) {
		o.lang = lang
	}
}

// WithRendererSystemPrompt overrides the system prompt used by ToolBasedRenderer.
func WithRendererSystemPrompt(systemPrompt string) RendererOption {
	return func(o *rendererOptions) {
		o.systemPrompt = systemPrompt
	}
}

// WithRendererSystemPromptTemplate overrides the system prompt template used by ToolBasedRenderer.
// If the template contains "%s", it will be formatted with the language.
func WithRendererSystemPromptTemplate(systemPromptTemplate string) RendererOption {
	return func(o *rendererOptions) {
		o.systemPromptTemplate = systemPromptTemplate
	}
}

func NewToolBasedRenderer(chatModel model.ToolCallingChatModel, base Renderer, opts ...RendererOption) *ToolBasedRenderer {
	options := rendererOptions{
		lang:                 "English",
		systemPromptTemplate: DefaultRendererSystemPromptTemplate,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.lang == "" {
		options.lang = "English"
	}
	if base == nil {
		base = NewLocalRenderer(nil)
	}
	return &ToolBasedRenderer{
		Lang:                 options.lang,
		systemPrompt:         options.systemPrompt,
		systemPromptTemplate: options.systemPromptTemplate,
		base:                 base,
		chatModel:            chatModel,
	}
}

func (r *ToolBasedRenderer) Render(ctx context.Context, prompt Prompt) (string, error) {
	messages, err := r.buildPrompt(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("build dialog prompt: %w", err)
	}
	response, err := r.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("LLM call failed: %w", err)
	}
	text := strings.TrimSpace(response.Content)
	if text == "" {
		return "", fmt.Errorf("LLM returned an empty line for %s", prompt.Template)
	}
	return text, nil
}

func (r *ToolBasedRenderer) buildPrompt(ctx context.Context, prompt Prompt) ([]*schema.Message, error) {
	reference, err := r.base.Render(ctx, prompt)
	if err != nil {
		return nil, err
	}
	data := "{}"
	if len(prompt.Data) > 0 {
		data, err = sonic.MarshalString(prompt.Data)
		if err != nil {
			return nil, fmt.Errorf("marshal dialog data: %w", err)
		}
	}

	systemPrompt := r.systemPrompt
	if systemPrompt == "" {
		tpl := r.systemPromptTemplate
		if tpl == "" {
			tpl = DefaultRendererSystemPromptTemplate
		}
		if strings.Contains(tpl, "%s") {
			systemPrompt = fmt.Sprintf(tpl, r.Lang)
		} else {
			systemPrompt = tpl
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Dialog line:\n%s\n", prompt.Template)
	fmt.Fprintf(&sb, "# Data:\n%s\n", data)
	fmt.Fprintf(&sb, "# Reference wording:\n%s\n", reference)
	if prompt.ExpectResponse {
		sb.WriteString("> expects an answer: yes")
	} else {
		sb.WriteString("> expects an answer: no")
	}
	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(sb.String()),
	}, nil
}
