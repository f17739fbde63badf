package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Buffer is a Speaker that renders every prompt and keeps the lines until
// they are drained.
type Buffer struct {
	renderer Renderer

	mu    sync.Mutex
	lines []Line
}

func NewBuffer(renderer Renderer) *Buffer {
	if renderer == nil {
		renderer = NewLocalRenderer(nil)
	}
	return &Buffer{renderer: renderer}
}

func (b *Buffer) Speak(ctx context.Context, prompt Prompt) error {
	text, err := b.renderer.Render(ctx, prompt)
	if err != nil {
		return fmt.Errorf("speak %s: %w", prompt.Template, err)
	}
	slog.Debug("Speak", "template", prompt.Template, "expect_response", prompt.ExpectResponse)
	b.mu.Lock()
	b.lines = append(b.lines, Line{Prompt: prompt, Text: text})
	b.mu.Unlock()
	return nil
}

// Lines returns a copy of the buffered lines.
func (b *Buffer) Lines() []Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Line(nil), b.lines...)
}

// Drain returns the buffered lines and empties the buffer.
func (b *Buffer) Drain() []Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := b.lines
	b.lines = nil
	return lines
}

// Texts returns the text of each line.
func Texts(lines []Line) []string {
	texts := make([]string, 0, len(lines))
	for _, line := range lines {
		texts = append(texts, line.Text)
	}
	return texts
}

// Templates returns the template name of each line.
func Templates(lines []Line) []string {
	names := make([]string, 0, len(lines))
	for _, line := range lines {
		names = append(names, line.Prompt.Template)
	}
	return names
}
