package testcases

import (
	"context"
	"slices"
	"testing"

	"github.com/tbxark/mailagent/agent"
	"github.com/tbxark/mailagent/dialogue"
	"github.com/tbxark/mailagent/message"
	"github.com/tbxark/mailagent/types"
)

// TestBasicUsage walks a full message from trigger to delivery.
func TestBasicUsage(t *testing.T) {
	t.Parallel()
	ctx := agent.WithSessionKey(context.Background(), "basic")
	a, box := NewTestAgent(t)

	turn := say(t, a, ctx, "Send an email to Alice")
	if turn.Response.Phase != types.PhaseAwaitingSubject {
		t.Fatalf("expected awaiting_subject, got %s", turn.Response.Phase)
	}
	if got := dialogue.Templates(turn.Lines); !slices.Equal(got, []string{dialogue.AskForSubject}) {
		t.Errorf("expected ask.for.subject, got %v", got)
	}

	turn = say(t, a, ctx, "the subject is hello")
	if turn.Response.Message.Subject != "hello" || turn.Response.Phase != types.PhaseAwaitingContent {
		t.Fatalf("unexpected response %+v", turn.Response)
	}

	turn = say(t, a, ctx, "hi")
	if len(turn.Lines) != 0 || turn.Response.Phase != types.PhaseAwaitingContent || turn.Response.Message.Content != "" {
		t.Fatalf("short content should be ignored, got %+v", turn.Response)
	}

	turn = say(t, a, ctx, "I will be there at noon")
	if turn.Response.Phase != types.PhaseReadyToSend {
		t.Fatalf("expected ready_to_send, got %s", turn.Response.Phase)
	}
	if got := dialogue.Templates(turn.Lines); !slices.Equal(got, []string{dialogue.ReadoutMessage, dialogue.ShouldISend}) {
		t.Errorf("unexpected prompts %v", got)
	}

	turn = say(t, a, ctx, "yes please do") // not a keyword: stays ready
	if turn.Response.Handled || turn.Response.Phase != types.PhaseReadyToSend {
		t.Fatalf("unknown answer should be inert, got %+v", turn.Response)
	}

	turn = say(t, a, ctx, "Yes.")
	if !turn.Response.Completed || turn.Response.Phase != types.PhaseIdle {
		t.Fatalf("expected completion, got %+v", turn.Response)
	}
	want := message.Message{Type: message.TypeEmail, Recipient: "alice", Subject: "hello", Content: "I will be there at noon"}
	if sent := box.messages(); len(sent) != 1 || sent[0] != want {
		t.Errorf("expected %+v sent, got %+v", want, sent)
	}
}

// TestAskInOrder fills every field from the prompts alone.
func TestAskInOrder(t *testing.T) {
	t.Parallel()
	ctx := agent.WithSessionKey(context.Background(), "order")
	a, box := NewTestAgent(t)

	answers := []struct {
		text   string
		prompt string
	}{
		{"write a new message", dialogue.AskForRecipient},
		{"Bob", dialogue.AskForSubject},
		{"Dinner on Friday", dialogue.AskForContent},
		{"Are you free at seven?", dialogue.ShouldISend},
	}
	for _, step := range answers {
		turn := say(t, a, ctx, step.text)
		if q := turn.Lines[len(turn.Lines)-1]; q.Prompt.Template != step.prompt || !q.Prompt.ExpectResponse {
			t.Fatalf("%q: expected %s, got %+v", step.text, step.prompt, q.Prompt)
		}
	}
	say(t, a, ctx, "send it")
	sent := box.messages()
	if len(sent) != 1 || sent[0].Recipient != "Bob" || sent[0].Subject != "Dinner on Friday" || sent[0].Content != "Are you free at seven?" {
		t.Errorf("unexpected delivery %+v", sent)
	}
}

// TestCorrectionsBeforeSending changes fields while the draft is read back.
func TestCorrectionsBeforeSending(t *testing.T) {
	t.Parallel()
	ctx := agent.WithSessionKey(context.Background(), "corrections")
	a, box := NewTestAgent(t)

	say(t, a, ctx, "send an email to alice")
	say(t, a, ctx, "hello")
	say(t, a, ctx, "see you soon")
	turn := say(t, a, ctx, "send it to carol")
	if turn.Response.Message.Recipient != "carol" || turn.Response.Phase != types.PhaseReadyToSend {
		t.Fatalf("unexpected response %+v", turn.Response)
	}
	turn = say(t, a, ctx, "set the title to goodbye")
	if turn.Response.Message.Subject != "goodbye" || turn.Response.Phase != types.PhaseReadyToSend {
		t.Fatalf("unexpected response %+v", turn.Response)
	}
	say(t, a, ctx, "ok")
	if sent := box.messages(); len(sent) != 1 || sent[0].Recipient != "carol" || sent[0].Subject != "goodbye" {
		t.Errorf("unexpected delivery %+v", sent)
	}
}
