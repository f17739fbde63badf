package agent

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

type Trimmer interface {
	Trim(history []*schema.Message) []*schema.Message
}

// LastNTrimmer keeps system messages and the last N others. N <= 0 keeps
// everything.
type LastNTrimmer struct {
	N int
}

func (t LastNTrimmer) Trim(history []*schema.Message) []*schema.Message {
	if t.N <= 0 {
		return history
	}
	others := 0
	for _, m := range history {
		if m.Role != schema.System {
			others++
		}
	}
	drop := others - t.N
	if drop <= 0 {
		return history
	}
	out := make([]*schema.Message, 0, len(history)-drop)
	for _, m := range history {
		if m.Role != schema.System && drop > 0 {
			drop--
			continue
		}
		out = append(out, m)
	}
	return out
}

// HistoryStore keeps the transcript of every conversation.
type HistoryStore struct {
	store   Store[[]*schema.Message]
	trimmer Trimmer
}

func NewHistoryStore(core Cache[[]*schema.Message], trimmer Trimmer) *HistoryStore {
	if core == nil {
		core = NewMemoryCache[[]*schema.Message]()
	}
	return &HistoryStore{
		store:   NewStore(core, "agent:history", SessionKeyFromContext),
		trimmer: trimmer,
	}
}

func (s *HistoryStore) Load(ctx context.Context) ([]*schema.Message, error) {
	hist, _, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	return hist, nil
}

// Append adds msgs to the transcript, skipping nil messages and immediate
// repeats, and returns the trimmed result.
func (s *HistoryStore) Append(ctx context.Context, msgs ...*schema.Message) ([]*schema.Message, error) {
	hist, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	hist = append([]*schema.Message(nil), hist...)
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if n := len(hist); n > 0 && hist[n-1].Role == msg.Role && hist[n-1].Content == msg.Content {
			continue
		}
		hist = append(hist, msg)
	}
	if s.trimmer != nil {
		hist = s.trimmer.Trim(hist)
	}
	if err := s.store.Set(ctx, hist); err != nil {
		return nil, err
	}
	return hist, nil
}

func (s *HistoryStore) Clear(ctx context.Context) error {
	return s.store.Del(ctx)
}
