package testcases

import (
	"context"
	"sync"
	"testing"

	"github.com/tbxark/mailagent/agent"
	"github.com/tbxark/mailagent/extract"
	"github.com/tbxark/mailagent/intent"
	"github.com/tbxark/mailagent/message"
)

type outbox struct {
	mu   sync.Mutex
	sent []message.Message
}

func (o *outbox) Send(ctx context.Context, msg message.Message) error {
	o.mu.Lock()
	o.sent = append(o.sent, msg)
	o.mu.Unlock()
	return nil
}

func (o *outbox) messages() []message.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]message.Message(nil), o.sent...)
}

func NewTestAgent(t *testing.T) (*agent.Agent, *outbox) {
	t.Helper()
	box := &outbox{}
	pool := agent.NewSessionPool(nil, agent.SessionDeps{Transport: box})
	return agent.NewAgent("test", "test mail agent", nil, pool, agent.NewHistoryStore(nil, agent.LastNTrimmer{N: 20})), box
}

// NewModelAgent wires the LLM recognizer and extractor to a fake model.
func NewModelAgent(t *testing.T, m *FakeChatModel) (*agent.Agent, *outbox) {
	t.Helper()
	recognizer, err := intent.NewToolBasedRecognizer[message.Message](m)
	if err != nil {
		t.Fatalf("new recognizer: %v", err)
	}
	extractor, err := extract.NewToolBasedExtractor(m)
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	box := &outbox{}
	pool := agent.NewSessionPool(nil, agent.SessionDeps{Transport: box, Extractor: extractor})
	return agent.NewAgent("test", "test mail agent", recognizer, pool, nil), box
}

func say(t *testing.T, a *agent.Agent, ctx context.Context, text string) *agent.Turn {
	t.Helper()
	turn, err := a.Say(ctx, text)
	if err != nil {
		t.Fatalf("say %q: %v", text, err)
	}
	t.Logf("user: %s | assistant: %s", text, turn.Reply())
	return turn
}
