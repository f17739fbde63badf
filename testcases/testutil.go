// Package testcases holds end-to-end conversation scenarios and the test
// doubles shared by package tests.
package testcases

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

var ErrNoReply = errors.New("fake chat model has no reply queued")

// FakeChatModel replays queued replies and records every prompt it gets.
type FakeChatModel struct {
	mu      sync.Mutex
	replies []*schema.Message
	errs    []error
	Prompts [][]*schema.Message
}

var _ model.ToolCallingChatModel = (*FakeChatModel)(nil)

func NewFakeChatModel(replies ...*schema.Message) *FakeChatModel {
	return &FakeChatModel{replies: replies, errs: make([]error, len(replies))}
}

// QueueToolCall queues a reply that calls tool with the JSON arguments.
func (m *FakeChatModel) QueueToolCall(tool, arguments string) *FakeChatModel {
	return m.Queue(ToolCallMessage(tool, arguments))
}

func (m *FakeChatModel) Queue(reply *schema.Message) *FakeChatModel {
	m.mu.Lock()
	m.replies = append(m.replies, reply)
	m.errs = append(m.errs, nil)
	m.mu.Unlock()
	return m
}

// QueueError makes the next call fail with err.
func (m *FakeChatModel) QueueError(err error) *FakeChatModel {
	m.mu.Lock()
	m.replies = append(m.replies, nil)
	m.errs = append(m.errs, err)
	m.mu.Unlock()
	return m
}

func (m *FakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, input)
	if len(m.replies) == 0 {
		return nil, ErrNoReply
	}
	reply, err := m.replies[0], m.errs[0]
	m.replies, m.errs = m.replies[1:], m.errs[1:]
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func (m *FakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	reply, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{reply}), nil
}

func (m *FakeChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// Calls returns how many prompts the model received.
func (m *FakeChatModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

func ToolCallMessage(tool, arguments string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID:       "call_" + tool,
			Type:     "function",
			Function: schema.FunctionCall{Name: tool, Arguments: arguments},
		}},
	}
}
