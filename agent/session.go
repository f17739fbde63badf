package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tbxark/mailagent/dialogue"
	"github.com/tbxark/mailagent/extract"
	"github.com/tbxark/mailagent/intent"
	"github.com/tbxark/mailagent/message"
	"github.com/tbxark/mailagent/transport"
	"github.com/tbxark/mailagent/types"
)

var draftSchema = sync.OnceValues(message.JSONSchema)

// Session is one conversation: a controller, the buffer it speaks into and
// the last question asked.
type Session struct {
	mu           sync.Mutex
	key          string
	controller   *Controller
	buffer       *dialogue.Buffer
	lastQuestion string
}

func (s *Session) Key() string {
	return s.key
}

// Handle runs one utterance through the controller and drains what it said.
func (s *Session) Handle(ctx context.Context, u intent.Utterance) (*Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.Drain()
	resp, err := s.controller.Handle(ctx, u)
	turn := &Turn{Response: resp, Lines: s.buffer.Drain()}
	if q := turn.Question(); q != "" {
		s.lastQuestion = q
	} else if resp != nil && resp.Handled {
		s.lastQuestion = ""
	}
	return turn, err
}

// Request builds the recognizer view of the session for an answer.
func (s *Session) Request(answer string) *types.ToolRequest[message.Message] {
	s.mu.Lock()
	defer s.mu.Unlock()
	draft, _ := s.controller.Message()
	schema, err := draftSchema()
	if err != nil {
		slog.Debug("Draft schema unavailable", "err", err)
	}
	return &types.ToolRequest[message.Message]{
		State:         draft,
		StateSchema:   schema,
		Phase:         s.controller.Phase(),
		MessagePair:   types.MessagePair{Question: s.lastQuestion, Answer: answer},
		MissingFields: s.controller.Missing(),
	}
}

// SessionDeps are shared by every session of a pool.
type SessionDeps struct {
	Renderer  dialogue.Renderer
	Transport transport.Transport
	Extractor extract.Extractor
}

// SessionPool keeps one session per conversation key.
type SessionPool struct {
	mu    sync.Mutex
	store Store[*Session]
	deps  SessionDeps
}

func NewSessionPool(core Cache[*Session], deps SessionDeps) *SessionPool {
	if core == nil {
		core = NewMemoryCache[*Session]()
	}
	return &SessionPool{
		store: NewStore(core, "agent:session", SessionKeyFromContext),
		deps:  deps,
	}
}

// Acquire returns the session of the conversation in ctx, creating it on
// first use.
func (p *SessionPool) Acquire(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	session, ok, err := p.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return session, nil
	}
	key, _ := SessionKeyFromContext(ctx)
	buffer := dialogue.NewBuffer(p.deps.Renderer)
	session = &Session{
		key:    key,
		buffer: buffer,
		controller: NewController(Deps{
			Speaker:   buffer,
			Transport: p.deps.Transport,
			Extractor: p.deps.Extractor,
		}),
	}
	if err := p.store.Set(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	slog.Debug("Created session", "key", key)
	return session, nil
}

// Remove drops the session of the conversation in ctx and reports whether
// there was one.
func (p *SessionPool) Remove(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ok, err := p.store.Exists(ctx)
	if err != nil || !ok {
		return false, err
	}
	if err := p.store.Del(ctx); err != nil {
		return false, err
	}
	return true, nil
}
