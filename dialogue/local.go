package dialogue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

// DefaultTemplates are the English dialog lines.
var DefaultTemplates = map[string]string{
	AskForRecipient:  "Who should I send the message to?",
	AskForSubject:    "What is the subject of the message?",
	AskForContent:    "What should the message say?",
	ShouldISend:      "Should I send it?",
	SendingMessage:   "Sending the message to {{.recipient}}.",
	NotUnderstood:    "Sorry, I did not understand that.",
	ReadoutMessage:   "The message will be sent to {{.recipient}}. Its title is {{.subject}}. The message says: {{.content}}",
	MessageCancelled: "Okay, I discarded the message.",
}

// LocalRenderer renders prompts from text templates. Templates are parsed
// lazily and cached.
type LocalRenderer struct {
	templates map[string]string

	mu     sync.Mutex
	parsed map[string]*template.Template
}

// NewLocalRenderer returns a renderer over DefaultTemplates with overrides
// applied on top.
func NewLocalRenderer(overrides map[string]string) *LocalRenderer {
	templates := make(map[string]string, len(DefaultTemplates)+len(overrides))
	for name, text := range DefaultTemplates {
		templates[name] = text
	}
	for name, text := range overrides {
		templates[name] = text
	}
	return &LocalRenderer{
		templates: templates,
		parsed:    make(map[string]*template.Template),
	}
}

func (r *LocalRenderer) Render(ctx context.Context, prompt Prompt) (string, error) {
	tpl, err := r.lookup(prompt.Template)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := tpl.Execute(&sb, prompt.Data); err != nil {
		return "", fmt.Errorf("render %s: %w", prompt.Template, err)
	}
	return sb.String(), nil
}

func (r *LocalRenderer) lookup(name string) (*template.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.parsed[name]; ok {
		return tpl, nil
	}
	text, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown dialog template %q", name)
	}
	tpl, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse dialog template %s: %w", name, err)
	}
	r.parsed[name] = tpl
	return tpl, nil
}

type FailbackRenderer struct {
	renderers []Renderer
}

func NewFailbackRenderer(renderers ...Renderer) *FailbackRenderer {
	return &FailbackRenderer{renderers: renderers}
}

func (r *FailbackRenderer) Render(ctx context.Context, prompt Prompt) (string, error) {
	var lastErr error
	for _, renderer := range r.renderers {
		text, err := renderer.Render(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("all dialog renderers failed: %w", lastErr)
}
