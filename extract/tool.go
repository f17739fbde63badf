package extract

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/mailagent/structured"
	"github.com/tbxark/mailagent/types"
)

const (
	extractFieldToolName        = "extract_field"
	extractFieldToolDescription = "Report the value the user dictated for one field of an email, if the utterance contains it."
)

// DefaultExtractSystemPromptTemplate takes the field name and the tool name.
const DefaultExtractSystemPromptTemplate = `You help a voice assistant compose an email.
Decide whether the user's utterance dictates the %s of the email.
- Only report a value the user actually said. Strip phrasing such as "the subject is" or "the message says".
- If the utterance does not dictate the field, set found to false.
Call the '%s' tool with the result.`

type extractRequest struct {
	Field     types.Field
	Utterance string
}

type extractFieldOutput struct {
	Found bool   `json:"found" jsonschema:"required,description=Whether the utterance dictates the field"`
	Value string `json:"value,omitempty" jsonschema:"description=The dictated value without surrounding phrasing"`
}

type ToolBasedExtractor struct {
	chain *structured.Chain[*extractRequest, extractFieldOutput]
}

func NewToolBasedExtractor(chatModel model.ToolCallingChatModel) (*ToolBasedExtractor, error) {
	chain, err := structured.NewChain[*extractRequest, extractFieldOutput](
		chatModel,
		buildExtractPrompt,
		extractFieldToolName,
		extractFieldToolDescription,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedExtractor{chain: chain}, nil
}

func (e *ToolBasedExtractor) ExtractSubject(ctx context.Context, utterance string) (string, bool, error) {
	return e.extract(ctx, types.FieldSubject, utterance)
}

func (e *ToolBasedExtractor) ExtractContent(ctx context.Context, utterance string) (string, bool, error) {
	return e.extract(ctx, types.FieldContent, utterance)
}

func (e *ToolBasedExtractor) extract(ctx context.Context, field types.Field, utterance string) (string, bool, error) {
	result, err := e.chain.Invoke(ctx, &extractRequest{Field: field, Utterance: utterance})
	if err != nil {
		return "", false, fmt.Errorf("extract %s: %w", field, err)
	}
	if result == nil || !result.Found || result.Value == "" {
		return "", false, nil
	}
	return result.Value, true, nil
}

func buildExtractPrompt(ctx context.Context, req *extractRequest) ([]*schema.Message, error) {
	return []*schema.Message{
		schema.SystemMessage(fmt.Sprintf(DefaultExtractSystemPromptTemplate, req.Field, extractFieldToolName)),
		schema.UserMessage(req.Utterance),
	}, nil
}
