package command

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/mailagent/structured"
	"github.com/tbxark/mailagent/types"
)

const (
	parseCommandToolName        = "parse_confirmation"
	parseCommandToolDescription = "Classify the user's answer to 'should I send this?': confirm, deny, cancel, none."
)

// DefaultParseCommandSystemPromptTemplate takes the tool name.
const DefaultParseCommandSystemPromptTemplate = `You help a voice assistant that has just read back an email draft and asked whether to send it.

Classify the user's answer, always reading it together with the assistant's question:
- confirm: the user agrees that the email should be sent now.
- deny: the user says not to send it.
- cancel: the user wants to abandon the email altogether.
- none: the answer changes the draft or is unrelated to the question.

Call the '%s' tool with the result.`

type parseCommandInput struct {
	Command Command `json:"command" jsonschema:"required,enum=confirm,enum=deny,enum=cancel,enum=none,description=The user's answer"`
}

type ToolBasedCommandParser[T any] struct {
	chain *structured.Chain[*types.ToolRequest[T], parseCommandInput]
}

func NewToolBasedCommandParser[T any](chatModel model.ToolCallingChatModel) (*ToolBasedCommandParser[T], error) {
	chain, err := structured.NewChain[*types.ToolRequest[T], parseCommandInput](
		chatModel,
		buildParseCommandPrompt[T],
		parseCommandToolName,
		parseCommandToolDescription,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedCommandParser[T]{chain: chain}, nil
}

func (p *ToolBasedCommandParser[T]) ParseCommand(ctx context.Context, req *types.ToolRequest[T]) (Command, error) {
	result, err := p.chain.Invoke(ctx, req)
	if err != nil {
		return None, err
	}
	if result == nil || result.Command == "" {
		return None, fmt.Errorf("empty command returned by %s", parseCommandToolName)
	}
	return result.Command, nil
}

func buildParseCommandPrompt[T any](ctx context.Context, req *types.ToolRequest[T]) ([]*schema.Message, error) {
	message, err := types.FormatToolRequest(req)
	if err != nil {
		return nil, fmt.Errorf("convert to prompt message failed: %w", err)
	}
	return []*schema.Message{
		schema.SystemMessage(fmt.Sprintf(DefaultParseCommandSystemPromptTemplate, parseCommandToolName)),
		schema.UserMessage(message),
	}, nil
}
