package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/mailagent/intent"
	"github.com/tbxark/mailagent/message"
)

var ErrNoMessages = errors.New("no messages in input")

var _ adk.Agent = (*Agent)(nil)

// Agent exposes the mail sessions as an eino agent. The conversation is
// chosen with WithSessionKey.
type Agent struct {
	name        string
	description string
	recognizer  intent.Recognizer[message.Message]
	sessions    *SessionPool
	history     *HistoryStore
}

func NewAgent(name, description string, recognizer intent.Recognizer[message.Message], sessions *SessionPool, history *HistoryStore) *Agent {
	if recognizer == nil {
		recognizer = intent.NewLocalRecognizer[message.Message]()
	}
	if sessions == nil {
		sessions = NewSessionPool(nil, SessionDeps{})
	}
	return &Agent{
		name:        name,
		description: description,
		recognizer:  recognizer,
		sessions:    sessions,
		history:     history,
	}
}

func (a *Agent) Name(ctx context.Context) string {
	return a.name
}

func (a *Agent) Description(ctx context.Context) string {
	return a.description
}

// Say recognizes text against the session state and handles it.
func (a *Agent) Say(ctx context.Context, text string) (*Turn, error) {
	session, err := a.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	req := session.Request(strings.TrimSpace(text))
	u, err := a.recognizer.Recognize(ctx, req)
	if err != nil {
		slog.Debug("Recognition failed", "phase", req.Phase, "err", err)
	}
	slog.Debug("Recognized utterance", "intent", u.Intent, "phase", req.Phase, "slots", u.Slots)
	if u.Text == "" {
		u.Text = req.MessagePair.Answer
	}
	return a.dispatch(ctx, session, u)
}

// Dispatch handles an utterance recognized by someone else.
func (a *Agent) Dispatch(ctx context.Context, u intent.Utterance) (*Turn, error) {
	session, err := a.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return a.dispatch(ctx, session, u)
}

// Reset forgets the session and transcript of the conversation in ctx.
func (a *Agent) Reset(ctx context.Context) error {
	removed, err := a.sessions.Remove(ctx)
	if err != nil {
		return err
	}
	if !removed {
		slog.Debug("No session to reset")
	}
	if a.history != nil {
		return a.history.Clear(ctx)
	}
	return nil
}

func (a *Agent) dispatch(ctx context.Context, session *Session, u intent.Utterance) (*Turn, error) {
	turn, err := session.Handle(ctx, u)
	if a.history != nil {
		msgs := []*schema.Message{schema.UserMessage(u.Text)}
		if reply := turn.Reply(); reply != "" {
			msgs = append(msgs, schema.AssistantMessage(reply, nil))
		}
		if _, hErr := a.history.Append(ctx, msgs...); hErr != nil {
			slog.Warn("Failed to record history", "err", hErr)
		}
	}
	return turn, err
}

func (a *Agent) Run(ctx context.Context, input *adk.AgentInput, options ...adk.AgentRunOption) *adk.AsyncIterator[*adk.AgentEvent] {
	iter, gen := adk.NewAsyncIteratorPair[*adk.AgentEvent]()
	go func() {
		defer func() {
			e := recover()
			if e != nil {
				gen.Send(&adk.AgentEvent{
					Err: fmt.Errorf("recover from panic: %v", e),
				})
			}
			gen.Close()
		}()
		text, ok := lastUserMessage(input)
		if !ok {
			gen.Send(&adk.AgentEvent{Err: ErrNoMessages})
			return
		}
		turn, err := a.Say(ctx, text)
		if err != nil {
			gen.Send(&adk.AgentEvent{
				Err: fmt.Errorf("handle utterance failed: %w", err),
			})
			return
		}
		gen.Send(&adk.AgentEvent{
			AgentName: a.name,
			Output: &adk.AgentOutput{
				MessageOutput: &adk.MessageVariant{
					IsStreaming: false,
					Message:     schema.AssistantMessage(turn.Reply(), nil),
					Role:        schema.Assistant,
				},
			},
		})
	}()
	return iter
}

func lastUserMessage(input *adk.AgentInput) (string, bool) {
	if input == nil {
		return "", false
	}
	for i := len(input.Messages) - 1; i >= 0; i-- {
		if m := input.Messages[i]; m != nil && m.Role == schema.User {
			return m.Content, true
		}
	}
	return "", false
}
