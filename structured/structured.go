// Package structured turns a forced tool call on a chat model into a typed
// result.
package structured

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

// ErrNoToolCall is returned when the model answers without calling the tool.
var ErrNoToolCall = errors.New("model did not call tool")

type PromptBuilder[In any] func(ctx context.Context, input In) ([]*schema.Message, error)

// Chain asks a chat model to call a single tool whose parameters are the
// schema of Out, and decodes the arguments of that call.
type Chain[In, Out any] struct {
	prompt PromptBuilder[In]
	model  model.ToolCallingChatModel
	tool   *schema.ToolInfo
}

func NewChain[In, Out any](
	chatModel model.ToolCallingChatModel,
	prompt PromptBuilder[In],
	toolName string,
	toolDesc string,
) (*Chain[In, Out], error) {
	tool, err := utils.GoStruct2ToolInfo[Out](toolName, toolDesc)
	if err != nil {
		return nil, fmt.Errorf("describe tool %s: %w", toolName, err)
	}
	return &Chain[In, Out]{prompt: prompt, model: chatModel, tool: tool}, nil
}

func (c *Chain[In, Out]) Invoke(ctx context.Context, input In) (*Out, error) {
	msgs, err := c.prompt(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}
	resp, err := c.model.Generate(ctx, msgs,
		model.WithTools([]*schema.ToolInfo{c.tool}),
		model.WithToolChoice(schema.ToolChoiceForced, c.tool.Name),
	)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w %s", ErrNoToolCall, c.tool.Name)
	}
	args, ok := arguments(resp, c.tool.Name)
	if !ok {
		return nil, fmt.Errorf("%w %s: %q", ErrNoToolCall, c.tool.Name, resp.Content)
	}
	slog.Debug("Structured tool call", "tool", c.tool.Name, "arguments", args)

	out := new(Out)
	if err := sonic.UnmarshalString(args, out); err != nil {
		return nil, fmt.Errorf("decode %s arguments: %w", c.tool.Name, err)
	}
	return out, nil
}

func (c *Chain[In, Out]) ToolInfo() *schema.ToolInfo {
	return c.tool
}

func arguments(resp *schema.Message, name string) (string, bool) {
	for _, call := range resp.ToolCalls {
		if call.Function.Name == name && call.Function.Arguments != "" {
			return call.Function.Arguments, true
		}
	}
	return "", false
}
